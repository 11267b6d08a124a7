package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pomoroom/internal/apperr"
	"pomoroom/internal/config"
	"pomoroom/internal/middleware"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"
	"pomoroom/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBody = 64 << 10

// StripeService maps Stripe subscription events onto plan tiers.
type StripeService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	subSvc   SubscriptionService
	logger   zerolog.Logger
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, subSvc SubscriptionService, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, userRepo: userRepo, subSvc: subSvc, logger: lg}
}

// getUserIDFromEvent resolves the user from metadata, falling back to the customer id.
func (s *StripeService) getUserIDFromEvent(ctx context.Context, metadata map[string]string, customer *stripe.Customer) (string, error) {
	if userID, ok := metadata["user_id"]; ok && userID != "" {
		return userID, nil
	}
	if customer == nil || customer.ID == "" {
		return "", errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", customer.ID).Msg("Missing user_id metadata; looking up user by customer ID")
	u, err := s.userRepo.GetUserByStripeCustomerID(ctx, customer.ID)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user by Stripe customer ID: %w", err)
	}
	return u.UserID, nil
}

// tierForSubscription maps the first item's price to a tier, falling back to
// a "tier" metadata entry.
func (s *StripeService) tierForSubscription(ss *stripe.Subscription) (plan.Tier, error) {
	if ss.Items != nil && len(ss.Items.Data) > 0 && ss.Items.Data[0].Price != nil {
		switch priceID := ss.Items.Data[0].Price.ID; {
		case priceID == "":
		case priceID == s.cfg.StripePriceBasic:
			return plan.TierBasic, nil
		case priceID == s.cfg.StripePricePro:
			return plan.TierPro, nil
		}
	}
	if raw := ss.Metadata["tier"]; raw != "" {
		return plan.ParseTier(raw)
	}
	return "", fmt.Errorf("subscription %s has no known price or tier metadata", ss.ID)
}

func billingStatus(ss *stripe.Subscription) string {
	switch {
	case ss.Status == stripe.SubscriptionStatusCanceled || ss.CancelAtPeriodEnd:
		return model.SubscriptionCancelled
	case ss.Status == stripe.SubscriptionStatusPastDue || ss.Status == stripe.SubscriptionStatusUnpaid:
		return model.SubscriptionPastDue
	default:
		return model.SubscriptionActive
	}
}

// HandleWebhook verifies and processes a Stripe webhook request.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		middleware.WriteError(w, s.logger, http.StatusBadRequest, "invalid_request", "failed to read payload")
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, sig, s.cfg.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		middleware.WriteError(w, s.logger, http.StatusBadRequest, "invalid_request", "signature verification failed")
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	if err := s.ProcessEvent(r.Context(), event); err != nil {
		s.logger.Error().Err(err).Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Failed to process Stripe webhook")
		if errors.Is(err, apperr.ErrInvalid) {
			middleware.WriteError(w, s.logger, http.StatusBadRequest, "invalid_request", "failed to process webhook")
			return
		}
		middleware.WriteError(w, s.logger, http.StatusInternalServerError, "internal_error", "failed to process webhook")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ProcessEvent applies a verified event. Unhandled event types are ignored.
func (s *StripeService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("%w: invalid checkout.session data: %v", apperr.ErrInvalid, err)
		}
		userID := cs.Metadata["user_id"]
		if userID == "" {
			userID = cs.ClientReferenceID
		}
		if userID == "" || cs.Customer == nil || cs.Customer.ID == "" {
			s.logger.Warn().Str("checkout_session_id", cs.ID).Msg("Checkout session without user or customer, skipping")
			return nil
		}
		return s.userRepo.UpdateStripeCustomerID(ctx, userID, cs.Customer.ID)

	case "customer.subscription.created", "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: invalid subscription data: %v", apperr.ErrInvalid, err)
		}
		tier, err := s.tierForSubscription(&ss)
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, ss.Customer)
		if err != nil {
			return err
		}
		status := billingStatus(&ss)
		s.logger.Info().Str("subscription_id", ss.ID).Str("user_id", userID).Str("tier", string(tier)).Str("status", status).Msg("Applying Stripe subscription")
		return s.subSvc.ApplyBillingState(ctx, userID, tier, status, ss.ID)

	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: invalid subscription data: %v", apperr.ErrInvalid, err)
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, ss.Customer)
		if err != nil {
			return err
		}
		s.logger.Info().Str("subscription_id", ss.ID).Str("user_id", userID).Msg("Stripe subscription deleted, downgrading to default tier")
		return s.subSvc.ApplyBillingState(ctx, userID, plan.DefaultTier, model.SubscriptionCancelled, ss.ID)

	default:
		s.logger.Debug().Str("event_type", string(event.Type)).Msg("Ignoring Stripe event")
		return nil
	}
}
