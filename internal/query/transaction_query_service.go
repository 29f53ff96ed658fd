package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/insights-service/internal/config"
	"github.com/eaglebank/insights-service/internal/metrics"
	"github.com/eaglebank/insights-service/internal/repository"
	"github.com/eaglebank/insights-service/internal/service"
	"github.com/eaglebank/insights-service/shared/cqrs"
	"github.com/eaglebank/insights-service/shared/events"
	"github.com/eaglebank/insights-service/shared/models"
	sharedredis "github.com/eaglebank/insights-service/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	viewKeyPrefix = "insights:view:"
	// viewGenerationKey is bumped on every invalidation. Cached views are keyed
	// by generation, so a view computed before an invalidation is never read after it.
	viewGenerationKey = "insights:view-generation"
)

// Options configures a TransactionQueryService. Cache is optional; a nil client
// disables the month view cache.
type Options struct {
	List              config.ListDefaults
	LegacyPriceSearch bool
	Cache             *goredis.Client
	CacheTTL          time.Duration
}

// TransactionQueryService serves the read side: paged listing and the
// month-scoped dashboards. Every month name is parsed before the store is touched.
type TransactionQueryService struct {
	store   repository.TransactionReader
	opts    Options
	metrics *metrics.Metrics
	log     zerolog.Logger

	cache      *goredis.Client
	statsCache *sharedredis.ViewCache[models.Statistics]
	barCache   *sharedredis.ViewCache[[]models.BarChartEntry]
	pieCache   *sharedredis.ViewCache[[]models.PieChartEntry]
}

func NewTransactionQueryService(store repository.TransactionReader, opts Options, m *metrics.Metrics, log zerolog.Logger) *TransactionQueryService {
	if opts.List.Page < 1 {
		opts.List.Page = 1
	}
	if opts.List.PerPage < 1 {
		opts.List.PerPage = 10
	}
	s := &TransactionQueryService{store: store, opts: opts, metrics: m, log: log}
	if opts.Cache != nil {
		s.cache = opts.Cache
		s.statsCache = sharedredis.NewViewCache[models.Statistics](opts.Cache, opts.CacheTTL, log)
		s.barCache = sharedredis.NewViewCache[[]models.BarChartEntry](opts.Cache, opts.CacheTTL, log)
		s.pieCache = sharedredis.NewViewCache[[]models.PieChartEntry](opts.Cache, opts.CacheTTL, log)
	}
	return s
}

// ListTransactions returns one page of the month's transactions, optionally
// narrowed by search. Zero matches yield an empty, non-nil slice.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	month, err := service.ParseMonth(q.Month)
	if err != nil {
		return nil, err
	}

	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = s.opts.List.Page
	}
	if perPage < 1 {
		perPage = s.opts.List.PerPage
	}
	if limit := s.opts.List.MaxPerPage; limit > 0 && perPage > limit {
		perPage = limit
	}

	filter := repository.Filter{
		Month:  month,
		Search: service.ParseSearch(q.Search, s.opts.LegacyPriceSearch),
	}
	p := repository.Page{Skip: int64(page-1) * int64(perPage), Limit: int64(perPage)}

	start := time.Now()
	txs, err := s.store.Find(ctx, filter, p)
	s.metrics.ObserveStore("find", start, err)
	if err != nil {
		return nil, service.StoreRead(err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// Statistics sums the sold records' prices and counts sold and unsold records.
func (s *TransactionQueryService) Statistics(ctx context.Context, q cqrs.MonthQuery) (*models.Statistics, error) {
	month, err := service.ParseMonth(q.Month)
	if err != nil {
		return nil, err
	}
	return s.statistics(ctx, month)
}

// BarChart counts the month's records in each price band, in band order.
func (s *TransactionQueryService) BarChart(ctx context.Context, q cqrs.MonthQuery) ([]models.BarChartEntry, error) {
	month, err := service.ParseMonth(q.Month)
	if err != nil {
		return nil, err
	}
	return s.barChart(ctx, month)
}

// PieChart counts the month's records per category. Only categories present appear.
func (s *TransactionQueryService) PieChart(ctx context.Context, q cqrs.MonthQuery) ([]models.PieChartEntry, error) {
	month, err := service.ParseMonth(q.Month)
	if err != nil {
		return nil, err
	}
	return s.pieChart(ctx, month)
}

// Combined runs the three dashboards concurrently. Any failure fails the whole view.
func (s *TransactionQueryService) Combined(ctx context.Context, q cqrs.MonthQuery) (*models.CombinedView, error) {
	month, err := service.ParseMonth(q.Month)
	if err != nil {
		return nil, err
	}
	return s.combined(ctx, month)
}

func (s *TransactionQueryService) combined(ctx context.Context, month time.Month) (*models.CombinedView, error) {
	var (
		view  models.CombinedView
		stats *models.Statistics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.statistics(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		view.BarChartData, err = s.barChart(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		view.PieChartData, err = s.pieChart(gctx, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	view.Statistics = *stats
	return &view, nil
}

func (s *TransactionQueryService) statistics(ctx context.Context, month time.Month) (*models.Statistics, error) {
	key, cached := s.cacheKey(ctx, "statistics", month)
	if cached {
		if v, ok := s.statsCache.Get(ctx, key); ok {
			s.lookup("statistics", "hit")
			return v, nil
		}
		s.lookup("statistics", "miss")
	}

	start := time.Now()
	total, sold, err := s.store.SoldSummary(ctx, month)
	s.metrics.ObserveStore("sold_summary", start, err)
	if err != nil {
		return nil, service.StoreRead(err)
	}

	notSold := false
	start = time.Now()
	unsold, err := s.store.Count(ctx, repository.Filter{Month: month, Sold: &notSold})
	s.metrics.ObserveStore("count", start, err)
	if err != nil {
		return nil, service.StoreRead(err)
	}

	stats := &models.Statistics{TotalSalesAmount: total, TotalSoldItems: sold, TotalNotSoldItems: unsold}
	if cached {
		s.statsCache.Set(ctx, key, stats)
	}
	return stats, nil
}

func (s *TransactionQueryService) barChart(ctx context.Context, month time.Month) ([]models.BarChartEntry, error) {
	key, cached := s.cacheKey(ctx, "barchart", month)
	if cached {
		if v, ok := s.barCache.Get(ctx, key); ok {
			s.lookup("barchart", "hit")
			return *v, nil
		}
		s.lookup("barchart", "miss")
	}

	start := time.Now()
	counts, err := s.store.CountByPriceBand(ctx, month, models.PriceBands)
	s.metrics.ObserveStore("count_by_price_band", start, err)
	if err != nil {
		return nil, service.StoreRead(err)
	}
	if len(counts) != len(models.PriceBands) {
		return nil, service.StoreRead(fmt.Errorf("expected %d band counts, got %d", len(models.PriceBands), len(counts)))
	}

	entries := make([]models.BarChartEntry, len(models.PriceBands))
	for i, band := range models.PriceBands {
		entries[i] = models.BarChartEntry{Range: band.Label, Count: counts[i]}
	}
	if cached {
		s.barCache.Set(ctx, key, &entries)
	}
	return entries, nil
}

func (s *TransactionQueryService) pieChart(ctx context.Context, month time.Month) ([]models.PieChartEntry, error) {
	key, cached := s.cacheKey(ctx, "piechart", month)
	if cached {
		if v, ok := s.pieCache.Get(ctx, key); ok {
			s.lookup("piechart", "hit")
			return *v, nil
		}
		s.lookup("piechart", "miss")
	}

	start := time.Now()
	entries, err := s.store.CountByCategory(ctx, month)
	s.metrics.ObserveStore("count_by_category", start, err)
	if err != nil {
		return nil, service.StoreRead(err)
	}
	if entries == nil {
		entries = []models.PieChartEntry{}
	}
	if cached {
		s.pieCache.Set(ctx, key, &entries)
	}
	return entries, nil
}

// InvalidateViews starts a new view generation and drops every cached month
// view. It is a no-op without a cache.
func (s *TransactionQueryService) InvalidateViews(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Incr(ctx, viewGenerationKey).Err(); err != nil {
		return fmt.Errorf("invalidate views: %w", err)
	}
	n, err := sharedredis.DeletePrefix(ctx, s.cache, viewKeyPrefix)
	if err != nil {
		return fmt.Errorf("invalidate views: %w", err)
	}
	s.log.Debug().Int("keys", n).Msg("cached views invalidated")
	return nil
}

// HandleTransactionEvent rebuilds the cached views for all twelve months after
// a seed. Other event types are ignored.
func (s *TransactionQueryService) HandleTransactionEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.TransactionsSeeded {
		return nil
	}
	var seeded events.TransactionsSeededEvent
	if err := event.DecodeData(&seeded); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.InvalidateViews(ctx); err != nil {
		return err
	}
	for m := time.January; m <= time.December; m++ {
		if _, err := s.combined(ctx, m); err != nil {
			return fmt.Errorf("warm %s views: %w", m, err)
		}
	}
	s.log.Info().Str("seed_id", seeded.SeedID).Int("records", seeded.Count).Msg("month views warmed")
	return nil
}

func (s *TransactionQueryService) lookup(view, result string) {
	s.metrics.ViewCacheLookups.WithLabelValues(view, result).Inc()
}

// cacheKey returns the key for view in the current generation. It reports false
// when caching is disabled or the generation cannot be read.
func (s *TransactionQueryService) cacheKey(ctx context.Context, view string, month time.Month) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Get(ctx, viewGenerationKey).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		s.log.Warn().Err(err).Msg("view generation unavailable, bypassing cache")
		return "", false
	}
	return viewKey(gen, view, month), true
}

func viewKey(generation int64, view string, month time.Month) string {
	return fmt.Sprintf("%s%d:%s:%02d", viewKeyPrefix, generation, view, int(month))
}
