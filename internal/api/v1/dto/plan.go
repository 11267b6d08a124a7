package dto

import (
	"pomoroom/internal/plan"
	"pomoroom/internal/policy"
)

// PlanDTO describes one catalog tier.
type PlanDTO struct {
	Tier   plan.Tier   `json:"tier"`
	Name   string      `json:"name"`
	Limits plan.Limits `json:"limits"`
}

// SubscriptionResponseDTO is the caller's plan, its effective limits and
// today's recording usage.
type SubscriptionResponseDTO struct {
	Tier      plan.Tier       `json:"tier"`
	PlanName  string          `json:"plan_name"`
	Status    string          `json:"status"`
	Limits    plan.Limits     `json:"limits"`
	Overrides plan.Overrides  `json:"overrides"`
	Usage     policy.Decision `json:"recordings_today"`
}

// AdminSubscriptionUpdateDTO changes a user's tier. When Overrides is
// present it replaces all overrides; null fields clear them.
type AdminSubscriptionUpdateDTO struct {
	Tier      string          `json:"tier" validate:"required"`
	Overrides *plan.Overrides `json:"overrides"`
}
