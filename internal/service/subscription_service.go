package service

import (
	"context"
	"errors"
	"fmt"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"
	"pomoroom/internal/policy"
	"pomoroom/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	policy.PlanResolver
	// GetSubscription returns the user's subscription with its effective limits.
	GetSubscription(ctx context.Context, userID string) (*SubscriptionView, error)
	// ChangePlan is the admin path: sets the tier and, when setOverrides is
	// true, replaces the overrides (nil fields clear them).
	ChangePlan(ctx context.Context, userID string, tier plan.Tier, overrides plan.Overrides, setOverrides bool) (*SubscriptionView, error)
	// ApplyBillingState records a tier change coming from Stripe.
	ApplyBillingState(ctx context.Context, userID string, tier plan.Tier, status, stripeSubscriptionID string) error
}

// SubscriptionView is a subscription plus the limits it resolves to.
type SubscriptionView struct {
	Subscription *model.Subscription
	PlanName     string
	Limits       plan.Limits
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	userRepo repository.UserRepository
	roomRepo repository.RoomRepository
	catalog  *plan.Catalog
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	roomRepo repository.RoomRepository,
	catalog *plan.Catalog,
	logger zerolog.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		userRepo: userRepo,
		roomRepo: roomRepo,
		catalog:  catalog,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

// effective resolves the limits of sub. A tier the catalog does not know is
// served with the default tier's limits.
func (s *subscriptionService) effective(sub *model.Subscription) (plan.Tier, plan.Limits) {
	tier := sub.Tier
	limits, ok := s.catalog.Lookup(tier)
	if !ok {
		s.logger.Warn().Str("user_id", sub.UserID).Str("tier", string(tier)).Msg("Unknown plan tier, applying default tier limits")
		tier = plan.DefaultTier
		limits = s.catalog.LimitsFor(tier)
	}
	return tier, limits.Apply(sub.Overrides())
}

func (s *subscriptionService) ResolveUser(ctx context.Context, userID string) (*policy.ResolvedPlan, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubscription(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		// Users predating subscriptions are on the default tier.
		sub = &model.Subscription{UserID: userID, Tier: plan.DefaultTier, Status: model.SubscriptionActive}
	} else if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	tier, limits := s.effective(sub)
	return &policy.ResolvedPlan{Tier: tier, Limits: limits, OwnerID: userID, OwnerName: user.DisplayName()}, nil
}

func (s *subscriptionService) ResolveRoom(ctx context.Context, roomID string) (*policy.ResolvedPlan, error) {
	room, err := s.roomRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.ResolveUser(ctx, room.PlanOwnerID())
}

func (s *subscriptionService) view(sub *model.Subscription) *SubscriptionView {
	tier, limits := s.effective(sub)
	return &SubscriptionView{Subscription: sub, PlanName: s.catalog.DisplayName(tier), Limits: limits}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*SubscriptionView, error) {
	if err := s.repo.EnsureSubscription(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ensure subscription")
		return nil, err
	}
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return s.view(sub), nil
}

func (s *subscriptionService) ChangePlan(ctx context.Context, userID string, tier plan.Tier, overrides plan.Overrides, setOverrides bool) (*SubscriptionView, error) {
	if _, ok := s.catalog.Lookup(tier); !ok {
		return nil, fmt.Errorf("%w: unknown tier %q", apperr.ErrInvalid, tier)
	}
	if err := overrides.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.EnsureSubscription(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTier(ctx, userID, tier, model.SubscriptionActive, nil); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("tier", string(tier)).Msg("Failed to change tier")
		return nil, err
	}
	if setOverrides {
		if err := s.repo.SetOverrides(ctx, userID, overrides); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to set overrides")
			return nil, err
		}
	}
	s.logger.Info().Str("user_id", userID).Str("tier", string(tier)).Bool("overrides", setOverrides).Msg("Subscription changed by admin")
	return s.GetSubscription(ctx, userID)
}

func (s *subscriptionService) ApplyBillingState(ctx context.Context, userID string, tier plan.Tier, status, stripeSubscriptionID string) error {
	if err := s.repo.EnsureSubscription(ctx, userID); err != nil {
		return err
	}
	var subID *string
	if stripeSubscriptionID != "" {
		subID = &stripeSubscriptionID
	}
	if err := s.repo.UpdateTier(ctx, userID, tier, status, subID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("tier", string(tier)).Str("status", status).Msg("Failed to apply billing state")
		return err
	}
	s.logger.Info().Str("user_id", userID).Str("tier", string(tier)).Str("status", status).Msg("Subscription updated from billing")
	return nil
}
