package repository

import (
	"context"
	"time"

	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	// EnsureSubscription creates a FREE subscription for the user if none exists.
	EnsureSubscription(ctx context.Context, userID string) error
	// UpdateTier moves the user to tier and records the billing state. A nil
	// stripeSubscriptionID leaves the stored value untouched.
	UpdateTier(ctx context.Context, userID string, tier plan.Tier, status string, stripeSubscriptionID *string) error
	// SetOverrides replaces all three override columns.
	SetOverrides(ctx context.Context, userID string, o plan.Overrides) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
    user_id, tier, max_daily_recordings, max_participants, recording_retention_days,
    stripe_subscription_id, status, created_at, updated_at, cancelled_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	var tier string
	err := row.Scan(
		&s.UserID,
		&tier,
		&s.MaxDailyRecordings,
		&s.MaxParticipants,
		&s.RetentionDays,
		&s.StripeSubscriptionID,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	s.Tier = plan.Tier(tier)
	return &s, nil
}

// GetSubscription returns the user's subscription regardless of status.
func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, classify(err, "fetch subscription for user "+userID)
	}
	return s, nil
}

func (r *subscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE stripe_subscription_id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, stripeSubscriptionID))
	if err != nil {
		return nil, classify(err, "fetch subscription by stripe id "+stripeSubscriptionID)
	}
	return s, nil
}

func (r *subscriptionRepo) EnsureSubscription(ctx context.Context, userID string) error {
	const q = `
        INSERT INTO user_subscriptions (user_id, tier, status)
        VALUES ($1, $2, 'active')
        ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, userID, string(plan.DefaultTier)); err != nil {
		return classify(err, "ensure subscription for user "+userID)
	}
	return nil
}

func (r *subscriptionRepo) UpdateTier(ctx context.Context, userID string, tier plan.Tier, status string, stripeSubscriptionID *string) error {
	var cancelledAt *time.Time
	if status == model.SubscriptionCancelled {
		now := time.Now().UTC()
		cancelledAt = &now
	}
	const q = `
        UPDATE user_subscriptions
        SET tier = $2,
            status = $3,
            stripe_subscription_id = COALESCE($4, stripe_subscription_id),
            cancelled_at = $5,
            updated_at = NOW()
        WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, string(tier), status, stripeSubscriptionID, cancelledAt)
	if err != nil {
		return classify(err, "update tier for user "+userID)
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "update tier for user "+userID)
	}
	return nil
}

func (r *subscriptionRepo) SetOverrides(ctx context.Context, userID string, o plan.Overrides) error {
	const q = `
        UPDATE user_subscriptions
        SET max_daily_recordings = $2,
            max_participants = $3,
            recording_retention_days = $4,
            updated_at = NOW()
        WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, o.MaxDailyRecordings, o.MaxParticipants, o.RecordingRetentionDays)
	if err != nil {
		return classify(err, "set overrides for user "+userID)
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "set overrides for user "+userID)
	}
	return nil
}
