// Package cleanup purges recordings that outlived the retention of their
// owner's current plan.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"pomoroom/internal/model"
	"pomoroom/internal/plan"
	"pomoroom/internal/policy"
	"pomoroom/internal/pubsub"
	"pomoroom/internal/storage"

	"github.com/rs/zerolog"
)

// Store is the persistence the sweep reads and updates.
type Store interface {
	ListWithLocator(ctx context.Context) ([]model.RecordingWithOwner, error)
	ClearLocator(ctx context.Context, recordingID string) error
}

// Summary reports one sweep run.
type Summary struct {
	TotalChecked    int `json:"total_checked"`
	DeletedCount    int `json:"deleted_count"`
	StorageFailures int `json:"storage_failures"`
}

// Sweeper runs the retention sweep. Runs are serial: each recording is fully
// processed (file delete, then locator clear) before the next one.
type Sweeper struct {
	store     Store
	deleter   storage.Deleter
	catalog   *plan.Catalog
	publisher pubsub.Publisher
	topic     string
	timeout   time.Duration
	logger    zerolog.Logger
}

// Options configure a Sweeper. Publisher may be nil.
type Options struct {
	Publisher    pubsub.Publisher
	Topic        string
	QueryTimeout time.Duration
	Logger       zerolog.Logger
}

// NewSweeper wires a Sweeper.
func NewSweeper(store Store, deleter storage.Deleter, catalog *plan.Catalog, opts Options) *Sweeper {
	return &Sweeper{
		store:     store,
		deleter:   deleter,
		catalog:   catalog,
		publisher: opts.Publisher,
		topic:     opts.Topic,
		timeout:   opts.QueryTimeout,
		logger:    opts.Logger.With().Str("service", "Sweeper").Logger(),
	}
}

func (s *Sweeper) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// limitsFor returns the effective limits of a recording's owner. Rows with a
// tier the catalog does not know are judged as FREE.
func (s *Sweeper) limitsFor(rec model.RecordingWithOwner) plan.Limits {
	limits, ok := s.catalog.Lookup(rec.Tier)
	if !ok {
		s.logger.Warn().Str("recording_id", rec.ID).Str("owner_id", rec.OwnerID).Str("tier", string(rec.Tier)).
			Msg("Unknown plan tier, applying default tier limits")
		limits = s.catalog.LimitsFor(plan.DefaultTier)
	}
	return limits.Apply(rec.Overrides)
}

// Run performs one sweep evaluated at now. Only a failure to load the
// recordings aborts the run; per-recording failures are logged and skipped.
// A cancelled ctx stops the run between recordings.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Summary, error) {
	started := time.Now()
	var sum Summary

	lctx, cancel := s.bounded(ctx)
	recs, err := s.store.ListWithLocator(lctx)
	cancel()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load recordings for retention sweep")
		return sum, fmt.Errorf("load recordings: %w", err)
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Int("checked", sum.TotalChecked).Msg("Retention sweep interrupted")
			return sum, err
		}
		sum.TotalChecked++

		if !policy.IsExpired(&rec.Recording, s.limitsFor(rec), now) {
			continue
		}

		// An expired recording is purged even when its file cannot be
		// deleted. The file is then orphaned and counted in StorageFailures.
		if rec.HasFile() {
			dctx, cancel := s.bounded(ctx)
			err := s.deleter.Delete(dctx, *rec.StoragePath)
			cancel()
			if err != nil {
				sum.StorageFailures++
				s.logger.Error().Err(err).Str("recording_id", rec.ID).Str("storage_path", *rec.StoragePath).
					Msg("Failed to delete recording file")
			}
		}

		uctx, cancel := s.bounded(ctx)
		err := s.store.ClearLocator(uctx, rec.ID)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("recording_id", rec.ID).Msg("Failed to clear recording storage path")
			continue
		}
		sum.DeletedCount++
	}

	s.logger.Info().
		Int("total_checked", sum.TotalChecked).
		Int("deleted_count", sum.DeletedCount).
		Int("storage_failures", sum.StorageFailures).
		Dur("elapsed", time.Since(started)).
		Msg("Retention sweep finished")

	s.publish(ctx, sum, started)
	return sum, nil
}

func (s *Sweeper) publish(ctx context.Context, sum Summary, started time.Time) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	payload, err := pubsub.SweepCompleted{
		TotalChecked:    sum.TotalChecked,
		DeletedCount:    sum.DeletedCount,
		StorageFailures: sum.StorageFailures,
		StartedAt:       started.UTC(),
		FinishedAt:      time.Now().UTC(),
	}.Encode()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode sweep summary")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", s.topic).Msg("Failed to publish sweep summary")
	}
}
