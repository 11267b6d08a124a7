package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Runner is what Run drives on each tick.
type Runner interface {
	Run(ctx context.Context, now time.Time) (Summary, error)
}

// Run sweeps once immediately and then every interval until ctx is
// cancelled. A failed sweep is logged and retried on the next tick.
func Run(ctx context.Context, logger zerolog.Logger, sweeper Runner, interval, timeout time.Duration) error {
	logger.Info().Dur("interval", interval).Msg("Starting retention sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runOnce(ctx, logger, sweeper, timeout)
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down retention sweeper")
			return nil
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, logger zerolog.Logger, sweeper Runner, timeout time.Duration) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	// Errors caused by shutdown are not failures.
	if _, err := sweeper.Run(runCtx, time.Now()); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Retention sweep failed")
	}
}
