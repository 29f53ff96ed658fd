package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/insights-service/internal/metrics"
	"github.com/eaglebank/insights-service/internal/repository"
	"github.com/eaglebank/insights-service/shared/cqrs"
	"github.com/eaglebank/insights-service/shared/events"
	"github.com/eaglebank/insights-service/shared/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string")
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// hookedReader runs afterSoldSummary once, after the summary has been computed.
type hookedReader struct {
	repository.TransactionReader
	once             sync.Once
	afterSoldSummary func()
}

func (h *hookedReader) SoldSummary(ctx context.Context, m time.Month) (decimal.Decimal, int64, error) {
	total, n, err := h.TransactionReader.SoldSummary(ctx, m)
	if h.afterSoldSummary != nil {
		h.once.Do(h.afterSoldSummary)
	}
	return total, n, err
}

func reseedData() []models.Transaction {
	return []models.Transaction{
		sale("Watch", "steel", 700, "C", true, time.Date(2021, time.March, 7, 0, 0, 0, 0, time.UTC)),
	}
}

func TestViewCache(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	march := cqrs.MonthQuery{Month: "March"}

	t.Run("second call is served from the cache", func(t *testing.T) {
		require.NoError(t, client.FlushDB(ctx).Err())
		reader := &countingReader{TransactionReader: seededStore(t, exampleData()...)}
		m := metrics.New("test")
		svc := NewTransactionQueryService(reader, Options{Cache: client, CacheTTL: time.Minute}, m, zerolog.Nop())

		first, err := svc.Combined(ctx, march)
		require.NoError(t, err)
		calls := reader.calls.Load()
		assert.NotZero(t, calls)

		second, err := svc.Combined(ctx, march)
		require.NoError(t, err)
		assert.Equal(t, calls, reader.calls.Load(), "no store access on a cache hit")
		assert.True(t, first.Statistics.TotalSalesAmount.Equal(second.Statistics.TotalSalesAmount))
		assert.Equal(t, first.BarChartData, second.BarChartData)
		assert.Equal(t, first.PieChartData, second.PieChartData)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ViewCacheLookups.WithLabelValues("statistics", "hit")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ViewCacheLookups.WithLabelValues("piechart", "miss")))
	})

	t.Run("invalidation recomputes from the store", func(t *testing.T) {
		require.NoError(t, client.FlushDB(ctx).Err())
		store := seededStore(t, exampleData()...)
		svc := newQueryService(store, Options{Cache: client, CacheTTL: time.Minute})

		before, err := svc.Statistics(ctx, march)
		require.NoError(t, err)
		assert.True(t, before.TotalSalesAmount.Equal(decimal.NewFromInt(50)))

		require.NoError(t, store.ReplaceAll(ctx, reseedData()))
		stale, err := svc.Statistics(ctx, march)
		require.NoError(t, err)
		assert.True(t, stale.TotalSalesAmount.Equal(decimal.NewFromInt(50)), "cached until invalidated")

		require.NoError(t, svc.InvalidateViews(ctx))
		after, err := svc.Statistics(ctx, march)
		require.NoError(t, err)
		assert.True(t, after.TotalSalesAmount.Equal(decimal.NewFromInt(700)), after.TotalSalesAmount.String())
		assert.Zero(t, after.TotalNotSoldItems)
	})

	t.Run("view computed across an invalidation is not served afterwards", func(t *testing.T) {
		require.NoError(t, client.FlushDB(ctx).Err())
		store := seededStore(t, exampleData()...)
		reader := &hookedReader{TransactionReader: store}
		svc := newQueryService(reader, Options{Cache: client, CacheTTL: time.Minute})
		reader.afterSoldSummary = func() {
			// A seed commits while the read is in flight.
			require.NoError(t, store.ReplaceAll(ctx, reseedData()))
			require.NoError(t, svc.InvalidateViews(ctx))
		}

		_, err := svc.Statistics(ctx, march)
		require.NoError(t, err)

		fresh, err := svc.Statistics(ctx, march)
		require.NoError(t, err)
		assert.True(t, fresh.TotalSalesAmount.Equal(decimal.NewFromInt(700)), fresh.TotalSalesAmount.String())
		assert.Equal(t, int64(1), fresh.TotalSoldItems)
		assert.Zero(t, fresh.TotalNotSoldItems)
	})

	t.Run("seed event warms every month", func(t *testing.T) {
		require.NoError(t, client.FlushDB(ctx).Err())
		reader := &countingReader{TransactionReader: seededStore(t, exampleData()...)}
		svc := newQueryService(reader, Options{Cache: client, CacheTTL: time.Minute})

		require.NoError(t, svc.HandleTransactionEvent(ctx, events.Event{
			Type: events.TransactionsSeeded,
			Data: map[string]any{"seedId": "seed-abc", "count": 2},
		}))
		warmed := reader.calls.Load()
		assert.NotZero(t, warmed)

		keys, err := client.Keys(ctx, viewKeyPrefix+"*").Result()
		require.NoError(t, err)
		assert.Len(t, keys, 36, "three views for each of twelve months")

		for _, month := range []string{"January", "March", "December"} {
			_, err := svc.Combined(ctx, cqrs.MonthQuery{Month: month})
			require.NoError(t, err)
		}
		assert.Equal(t, warmed, reader.calls.Load(), "warmed views need no store access")
	})
}
