package repository

import (
	"context"
	"strings"
	"time"

	"github.com/eaglebank/insights-service/internal/service"
	"github.com/eaglebank/insights-service/shared/models"
	"github.com/shopspring/decimal"
)

// Filter narrows a store operation. Zero values mean "no constraint".
type Filter struct {
	Month  time.Month
	Sold   *bool
	Search *service.SearchTerm
}

// Page is a skip/limit window over the store's natural order.
type Page struct {
	Skip  int64
	Limit int64
}

// TransactionReader is the read side of the record store.
type TransactionReader interface {
	Count(ctx context.Context, f Filter) (int64, error)
	Find(ctx context.Context, f Filter, p Page) ([]models.Transaction, error)
	// SoldSummary sums price and counts records matching month with sold = true.
	SoldSummary(ctx context.Context, month time.Month) (decimal.Decimal, int64, error)
	// CountByPriceBand returns one count per band, in band order.
	CountByPriceBand(ctx context.Context, month time.Month, bands []models.PriceBand) ([]int64, error)
	// CountByCategory returns the categories present in month with their counts.
	CountByCategory(ctx context.Context, month time.Month) ([]models.PieChartEntry, error)
}

// TransactionWriter is the write side of the record store.
type TransactionWriter interface {
	Count(ctx context.Context, f Filter) (int64, error)
	// ReplaceAll deletes every record and inserts txs in their place.
	ReplaceAll(ctx context.Context, txs []models.Transaction) error
}

// TransactionStore is implemented by every backend.
type TransactionStore interface {
	TransactionReader
	TransactionWriter
	Close(ctx context.Context) error
}

// Matches reports whether t satisfies f. It is the reference semantics that the
// database backends translate into their own query languages.
func Matches(f Filter, t models.Transaction) bool {
	if f.Month != 0 && t.DateOfSale.UTC().Month() != f.Month {
		return false
	}
	if f.Sold != nil && t.Sold != *f.Sold {
		return false
	}
	if f.Search != nil {
		return matchesSearch(f.Search, t)
	}
	return true
}

func matchesSearch(s *service.SearchTerm, t models.Transaction) bool {
	needle := strings.ToLower(s.Text)
	if strings.Contains(strings.ToLower(t.Title), needle) || strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	return s.Price != nil && t.Price.Equal(*s.Price)
}
