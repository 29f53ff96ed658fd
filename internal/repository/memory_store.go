package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/eaglebank/insights-service/shared/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process TransactionStore for local development and tests.
// Records keep insertion order, which is its natural order.
type MemoryStore struct {
	mu     sync.RWMutex
	data   []models.Transaction
	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Count(_ context.Context, f Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.data {
		if Matches(f, t) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Find(_ context.Context, f Filter, p Page) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0)
	var skipped int64
	for _, t := range s.data {
		if !Matches(f, t) {
			continue
		}
		if skipped < p.Skip {
			skipped++
			continue
		}
		if p.Limit > 0 && int64(len(out)) >= p.Limit {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// ReplaceAll swaps the whole data set under the write lock, so readers see
// either the old or the new records, never an empty store.
func (s *MemoryStore) ReplaceAll(_ context.Context, txs []models.Transaction) error {
	data := make([]models.Transaction, len(txs))
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range txs {
		s.nextID++
		t.ID = strconv.FormatInt(s.nextID, 10)
		data[i] = t
	}
	s.data = data
	return nil
}

func (s *MemoryStore) SoldSummary(_ context.Context, month time.Month) (decimal.Decimal, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sold := true
	f := Filter{Month: month, Sold: &sold}
	total := decimal.Zero
	var n int64
	for _, t := range s.data {
		if Matches(f, t) {
			total = total.Add(t.Price)
			n++
		}
	}
	return total, n, nil
}

func (s *MemoryStore) CountByPriceBand(_ context.Context, month time.Month, bands []models.PriceBand) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make([]int64, len(bands))
	f := Filter{Month: month}
	for _, t := range s.data {
		if !Matches(f, t) {
			continue
		}
		if i := models.BandIndex(bands, t.Price); i >= 0 {
			counts[i]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) CountByCategory(_ context.Context, month time.Month) ([]models.PieChartEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[string]int64)
	f := Filter{Month: month}
	for _, t := range s.data {
		if Matches(f, t) {
			byCategory[t.Category]++
		}
	}
	out := make([]models.PieChartEntry, 0, len(byCategory))
	for category, n := range byCategory {
		out = append(out, models.PieChartEntry{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
