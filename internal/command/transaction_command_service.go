package command

import (
	"context"
	"errors"
	"time"

	"github.com/eaglebank/insights-service/internal/metrics"
	"github.com/eaglebank/insights-service/internal/repository"
	"github.com/eaglebank/insights-service/internal/service"
	"github.com/eaglebank/insights-service/shared/cqrs"
	"github.com/eaglebank/insights-service/shared/events"
	"github.com/eaglebank/insights-service/shared/models"
	"github.com/eaglebank/insights-service/shared/utils"
	"github.com/rs/zerolog"
)

// TransactionSource supplies the initial data set.
type TransactionSource interface {
	Fetch(ctx context.Context) ([]models.Transaction, error)
}

// ViewInvalidator drops cached read models after the data set changes.
type ViewInvalidator interface {
	InvalidateViews(ctx context.Context) error
}

// TransactionCommandService seeds the record store. It is the only writer.
type TransactionCommandService struct {
	store       repository.TransactionWriter
	source      TransactionSource
	locker      SeedLocker
	publisher   events.Publisher
	invalidator ViewInvalidator
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func NewTransactionCommandService(
	store repository.TransactionWriter,
	source TransactionSource,
	locker SeedLocker,
	publisher events.Publisher,
	invalidator ViewInvalidator,
	m *metrics.Metrics,
	log zerolog.Logger,
) *TransactionCommandService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TransactionCommandService{
		store:       store,
		source:      source,
		locker:      locker,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		log:         log,
	}
}

// SeedTransactions fills an empty store from the seed source and returns the
// number of records written. A non-empty store yields service.ErrAlreadySeeded
// and is left untouched. The emptiness check and the write happen under the
// seed lock, so concurrent calls cannot both insert.
func (s *TransactionCommandService) SeedTransactions(ctx context.Context, cmd cqrs.SeedTransactionsCommand) (int, error) {
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		s.countSeed("store_error")
		return 0, service.StoreWrite(err)
	}
	defer release()

	start := time.Now()
	existing, err := s.store.Count(ctx, repository.Filter{})
	s.metrics.ObserveStore("count", start, err)
	if err != nil {
		s.countSeed("store_error")
		return 0, service.StoreRead(err)
	}
	if existing > 0 {
		s.countSeed("already_seeded")
		s.log.Info().Int64("existing", existing).Str("requested_by", cmd.RequestedBy).Msg("seed skipped, store already populated")
		return 0, service.ErrAlreadySeeded
	}

	txs, err := s.source.Fetch(ctx)
	if err != nil {
		s.countSeed("source_error")
		s.log.Error().Err(err).Msg("seed source fetch failed")
		return 0, service.SourceUnavailable(err)
	}

	start = time.Now()
	err = s.store.ReplaceAll(ctx, txs)
	s.metrics.ObserveStore("replace_all", start, err)
	if err != nil {
		s.countSeed("store_error")
		s.log.Error().Err(err).Int("records", len(txs)).Msg("seed write failed")
		return 0, service.StoreWrite(err)
	}

	seedID := utils.GenerateID("seed")
	s.countSeed("seeded")
	s.metrics.SeededRecords.Set(float64(len(txs)))
	s.metrics.LastSeedSuccess.SetToCurrentTime()
	s.log.Info().Str("seed_id", seedID).Int("records", len(txs)).Str("requested_by", cmd.RequestedBy).Msg("store seeded")

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateViews(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to invalidate cached views")
		}
	}
	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionsSeeded, events.TransactionsSeededEvent{
		SeedID:      seedID,
		Count:       len(txs),
		RequestedBy: cmd.RequestedBy,
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish transactions.seeded event")
	}
	return len(txs), nil
}

// SeedOnStartup seeds once at boot. An already populated store is not an error.
func (s *TransactionCommandService) SeedOnStartup(ctx context.Context) error {
	_, err := s.SeedTransactions(ctx, cqrs.SeedTransactionsCommand{RequestedBy: "startup"})
	if errors.Is(err, service.ErrAlreadySeeded) {
		return nil
	}
	return err
}

func (s *TransactionCommandService) countSeed(outcome string) {
	s.metrics.SeedRuns.WithLabelValues(outcome).Inc()
}
