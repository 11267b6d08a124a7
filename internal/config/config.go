package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`

	DBConnectionString string        `envconfig:"DB_CONNECTION_STRING" required:"true"`
	DBMaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	QueryTimeout       time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`

	JWTSecret    string   `envconfig:"JWT_SECRET" required:"true"`
	AdminUserIDs []string `envconfig:"ADMIN_USER_IDS"`
	CORSOrigins  []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Storage settings (S3-compatible)
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Plan and policy settings
	PlanCatalogJSON         string `envconfig:"PLAN_CATALOG_JSON"`
	DayBoundaryTZ           string `envconfig:"DAY_BOUNDARY_TZ" default:"UTC"`
	RetentionWarningMinutes int    `envconfig:"RETENTION_WARNING_MINUTES" default:"1440"`

	// Retention sweep settings
	CronSecret         string        `envconfig:"CRON_SECRET"`
	CronSecretResource string        `envconfig:"CRON_SECRET_RESOURCE"`
	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"0"`
	SweepTimeout       time.Duration `envconfig:"SWEEP_TIMEOUT" default:"10m"`

	// Pub/Sub settings
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubSweepTopic   string `envconfig:"PUBSUB_TOPIC_SWEEP"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceBasic    string `envconfig:"STRIPE_PRICE_BASIC"`
	StripePricePro      string `envconfig:"STRIPE_PRICE_PRO"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location returns the time zone that bounds "today" for daily quotas.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DayBoundaryTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid DAY_BOUNDARY_TZ %q: %w", c.DayBoundaryTZ, err)
	}
	return loc, nil
}

// RetentionWarning is how close to expiry a recording is flagged.
func (c *Config) RetentionWarning() time.Duration {
	return time.Duration(c.RetentionWarningMinutes) * time.Minute
}

// IsAdmin reports whether userID is listed in ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

// IsDevelopment reports whether the app runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
