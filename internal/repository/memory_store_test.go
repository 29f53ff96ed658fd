package repository

import (
	"context"
	"testing"
	"time"

	"github.com/eaglebank/insights-service/internal/service"
	"github.com/eaglebank/insights-service/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceAll(context.Background(), sampleTransactions()))
	return s
}

func titles(txs []models.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.Title
	}
	return out
}

func TestMemoryStore_MonthIgnoresYear(t *testing.T) {
	s := seededMemoryStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx, Filter{Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = s.Count(ctx, Filter{Month: time.April})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Count(ctx, Filter{Month: time.May})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_FindSearch(t *testing.T) {
	s := seededMemoryStore(t)
	ctx := context.Background()

	got, err := s.Find(ctx, Filter{Month: time.March, Search: service.ParseSearch("JACKET", false)}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cotton Jacket"}, titles(got))

	// Numeric search matches the exact price, plus any text hit on "150".
	got, err = s.Find(ctx, Filter{Month: time.March, Search: service.ParseSearch("150", false)}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mens Casual T-Shirt"}, titles(got))

	got, err = s.Find(ctx, Filter{Month: time.April, Search: service.ParseSearch("150", false)}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"SSD 1TB"}, titles(got), "description contains 150")

	// Regex metacharacters are literal.
	got, err = s.Find(ctx, Filter{Month: time.March, Search: service.ParseSearch(".*", false)}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_LegacyPriceZeroSearch(t *testing.T) {
	s := seededMemoryStore(t)
	ctx := context.Background()

	got, err := s.Find(ctx, Filter{Month: time.March, Search: service.ParseSearch("zzz", false)}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Find(ctx, Filter{Month: time.March, Search: service.ParseSearch("zzz", true)}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Free Sticker"}, titles(got))
}

func TestMemoryStore_FindPaging(t *testing.T) {
	s := seededMemoryStore(t)
	ctx := context.Background()

	first, err := s.Find(ctx, Filter{Month: time.March}, Page{Skip: 0, Limit: 2})
	require.NoError(t, err)
	second, err := s.Find(ctx, Filter{Month: time.March}, Page{Skip: 2, Limit: 2})
	require.NoError(t, err)
	third, err := s.Find(ctx, Filter{Month: time.March}, Page{Skip: 4, Limit: 2})
	require.NoError(t, err)
	beyond, err := s.Find(ctx, Filter{Month: time.March}, Page{Skip: 10, Limit: 2})
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Len(t, third, 1)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)
	assert.Equal(t, "1", first[0].ID)
}

func TestMemoryStore_Aggregates(t *testing.T) {
	s := seededMemoryStore(t)
	ctx := context.Background()

	total, sold, err := s.SoldSummary(ctx, time.March)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1100.5")), total.String())
	assert.Equal(t, int64(3), sold)

	notSold, err := s.Count(ctx, Filter{Month: time.March, Sold: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), notSold)

	bands, err := s.CountByPriceBand(ctx, time.March, models.PriceBands)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2, 0, 0, 0, 0, 0, 0, 0, 1}, bands)

	cats, err := s.CountByCategory(ctx, time.March)
	require.NoError(t, err)
	assert.Equal(t, []models.PieChartEntry{
		{Category: "A", Count: 2},
		{Category: "B", Count: 2},
		{Category: "jewelery", Count: 1},
	}, cats)

	total, sold, err = s.SoldSummary(ctx, time.July)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	assert.Zero(t, sold)
}

func TestMemoryStore_ReplaceAll(t *testing.T) {
	s := seededMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, sampleTransactions()[:1]))
	n, err := s.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Find(ctx, Filter{}, Page{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].ID, "ids keep increasing across replacements")
}
