package model

import (
	"time"

	"pomoroom/internal/plan"
)

// Subscription status values.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionPastDue   = "past_due"
)

// Subscription is the 1:1 plan assignment of a user. The override columns
// are nullable; a nil value means the catalog limit for Tier applies.
type Subscription struct {
	UserID               string     `db:"user_id" json:"user_id"`
	Tier                 plan.Tier  `db:"tier" json:"tier"`
	MaxDailyRecordings   *int       `db:"max_daily_recordings" json:"max_daily_recordings,omitempty"`
	MaxParticipants      *int       `db:"max_participants" json:"max_participants,omitempty"`
	RetentionDays        *int       `db:"recording_retention_days" json:"recording_retention_days,omitempty"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	Status               string     `db:"status" json:"status"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	CancelledAt          *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Overrides returns the per-subscription limit overrides.
func (s *Subscription) Overrides() plan.Overrides {
	return plan.Overrides{
		MaxDailyRecordings:     s.MaxDailyRecordings,
		MaxParticipants:        s.MaxParticipants,
		RecordingRetentionDays: s.RetentionDays,
	}
}
