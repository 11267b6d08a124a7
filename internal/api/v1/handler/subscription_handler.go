package handler

import (
	"context"
	"net/http"

	"pomoroom/internal/api/v1/dto"
	"pomoroom/internal/middleware"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"
	"pomoroom/internal/policy"
	"pomoroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// RecordingLimits is the part of the enforcer the handlers call directly.
type RecordingLimits interface {
	CanRecord(ctx context.Context, scope model.UsageScope) (policy.Decision, error)
	CanRecordInRoom(ctx context.Context, roomID, userID string) (policy.Decision, error)
	CanUpload(ctx context.Context, roomID, userID string, incrementBy int) (policy.Decision, error)
}

// SubscriptionHandler serves plans, the caller's subscription and admin plan changes.
type SubscriptionHandler struct {
	subSvc   service.SubscriptionService
	limits   RecordingLimits
	catalog  *plan.Catalog
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subSvc service.SubscriptionService, limits RecordingLimits, catalog *plan.Catalog, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc, limits: limits, catalog: catalog, validate: v, logger: logger}
}

// RegisterRoutes registers the authenticated subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me/subscription", h.GetSubscription)
	r.Get("/me/limits/recording", h.RecordingLimit)
}

// RegisterAdminRoutes registers endpoints that require an admin caller.
func (h *SubscriptionHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/admin/subscriptions/{userID}", h.AdminUpdate)
}

// ListPlans godoc
// @Summary List plan tiers
// @Tags subscriptions
// @Produce json
// @Success 200 {array} dto.PlanDTO
// @Router /plans [get]
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	tiers := h.catalog.Tiers()
	out := make([]dto.PlanDTO, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, dto.PlanDTO{Tier: t, Name: h.catalog.DisplayName(t), Limits: h.catalog.LimitsFor(t)})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *SubscriptionHandler) respond(w http.ResponseWriter, r *http.Request, userID string, view *service.SubscriptionView) {
	usage, err := h.limits.CanRecord(r.Context(), model.UserScope(userID))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check recording usage")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.SubscriptionResponseDTO{
		Tier:      view.Subscription.Tier,
		PlanName:  view.PlanName,
		Status:    view.Subscription.Status,
		Limits:    view.Limits,
		Overrides: view.Subscription.Overrides(),
		Usage:     usage,
	})
}

// GetSubscription godoc
// @Summary Get the caller's plan, effective limits and today's usage
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {object} dto.ErrorResponse
// @Router /me/subscription [get]
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	view, err := h.subSvc.GetSubscription(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get subscription")
		return
	}
	h.respond(w, r, userID, view)
}

// RecordingLimit godoc
// @Summary Check whether the caller may record right now
// @Description Without room_id the caller's own daily quota is checked. With
// @Description room_id the room's quota is checked as well, as attaching a
// @Description recording in that room would. A denial is a 200 with allowed=false.
// @Tags subscriptions
// @Produce json
// @Param room_id query string false "Room ID"
// @Success 200 {object} dto.LimitCheckResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /me/limits/recording [get]
func (h *SubscriptionHandler) RecordingLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var (
		d   policy.Decision
		err error
	)
	if raw := r.URL.Query().Get("room_id"); raw != "" {
		roomID, ok := parseUUID(w, h.logger, "room_id", raw)
		if !ok {
			return
		}
		d, err = h.limits.CanRecordInRoom(r.Context(), roomID, userID)
	} else {
		d, err = h.limits.CanRecord(r.Context(), model.UserScope(userID))
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check recording limit")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.LimitCheckResponseDTO{Decision: d})
}

// AdminUpdate godoc
// @Summary Change a user's tier and overrides
// @Tags admin
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param body body dto.AdminSubscriptionUpdateDTO true "Plan change"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/subscriptions/{userID} [put]
func (h *SubscriptionHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "userID")
	var req dto.AdminSubscriptionUpdateDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	tier, err := plan.ParseTier(req.Tier)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}
	var overrides plan.Overrides
	if req.Overrides != nil {
		overrides = *req.Overrides
	}
	view, err := h.subSvc.ChangePlan(r.Context(), target, tier, overrides, req.Overrides != nil)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to change subscription")
		return
	}
	actor, _ := middleware.UserIDFromContext(r.Context())
	h.logger.Info().Str("admin_id", actor).Str("user_id", target).Str("tier", string(tier)).Msg("Admin changed subscription")
	h.respond(w, r, target, view)
}
