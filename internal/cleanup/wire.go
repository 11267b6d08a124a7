package cleanup

import (
	"context"
	"io"

	"pomoroom/internal/config"
	"pomoroom/internal/plan"
	"pomoroom/internal/pubsub"
	"pomoroom/internal/repository"
	"pomoroom/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewFromConfig builds a Sweeper over Postgres, the S3 bucket and the
// configured Pub/Sub topic. The returned func releases the publisher.
func NewFromConfig(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, catalog *plan.Catalog, logger zerolog.Logger) (*Sweeper, func(), error) {
	s3Client, err := storage.NewS3Client(ctx, storage.Settings{
		Endpoint:  cfg.S3URL,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, nil, err
	}
	publisher, err := pubsub.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if c, ok := publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close Pub/Sub publisher")
			}
		}
	}

	sweeper := NewSweeper(
		repository.NewRecordingRepo(pool),
		storage.NewS3Deleter(s3Client, cfg.S3Bucket, logger),
		catalog,
		Options{
			Publisher:    publisher,
			Topic:        cfg.PubSubSweepTopic,
			QueryTimeout: cfg.QueryTimeout,
			Logger:       logger,
		},
	)
	return sweeper, closeFn, nil
}
