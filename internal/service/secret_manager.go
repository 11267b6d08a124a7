package service

import (
	"context"
	"fmt"
	"strings"

	"pomoroom/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/rs/zerolog"
)

// SecretAccessor reads the latest version of a secret.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerService creates a Secret Manager backed accessor.
func NewSecretManagerService(ctx context.Context, cfg *config.Config) (SecretAccessor, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required for Secret Manager")
	}
	// Secret Manager has no emulator; a real GCP project is needed even locally.
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerService{client: client, projectID: cfg.GCPProjectID}, nil
}

// AccessSecret accepts either a bare secret id or a full resource name.
func (s *secretManagerService) AccessSecret(ctx context.Context, name string) (string, error) {
	resourceName := secretResourceName(s.projectID, name)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resourceName})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return strings.TrimSpace(string(result.Payload.Data)), nil
}

// Close releases the client connection.
func (s *secretManagerService) Close() error {
	return s.client.Close()
}

func secretResourceName(projectID, name string) string {
	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/versions/") {
			return name
		}
		return name + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, name)
}

// ResolveCronSecret returns CRON_SECRET, or reads CRON_SECRET_RESOURCE from
// Secret Manager when only the resource is configured. An empty result
// leaves the cron endpoint closed.
func ResolveCronSecret(ctx context.Context, cfg *config.Config, newAccessor func(context.Context, *config.Config) (SecretAccessor, error), logger zerolog.Logger) (string, error) {
	if cfg.CronSecret != "" || cfg.CronSecretResource == "" {
		return cfg.CronSecret, nil
	}
	accessor, err := newAccessor(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := accessor.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Secret Manager client")
		}
	}()
	secret, err := accessor.AccessSecret(ctx, cfg.CronSecretResource)
	if err != nil {
		return "", err
	}
	logger.Info().Str("resource", cfg.CronSecretResource).Msg("Loaded cron secret from Secret Manager")
	return secret, nil
}
