package handler

import (
	"context"
	"net/http"
	"time"

	"pomoroom/internal/cleanup"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CronHandler exposes scheduled jobs to an external scheduler.
type CronHandler struct {
	sweeper cleanup.Runner
	timeout time.Duration
	logger  zerolog.Logger
}

// NewCronHandler creates a CronHandler. timeout bounds one sweep run.
func NewCronHandler(sweeper cleanup.Runner, timeout time.Duration, logger zerolog.Logger) *CronHandler {
	return &CronHandler{sweeper: sweeper, timeout: timeout, logger: logger}
}

// RegisterRoutes mounts the cron routes; the caller applies the cron secret check.
func (h *CronHandler) RegisterRoutes(r chi.Router) {
	r.Post("/cron/cleanup-recordings", h.CleanupRecordings)
}

// CleanupRecordings godoc
// @Summary Run the recording retention sweep
// @Tags cron
// @Produce json
// @Success 200 {object} cleanup.Summary
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /cron/cleanup-recordings [post]
func (h *CronHandler) CleanupRecordings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	sum, err := h.sweeper.Run(ctx, time.Now())
	if err != nil {
		h.logger.Error().Err(err).Msg("Retention sweep failed")
		writeError(w, h.logger, http.StatusInternalServerError, codeInternal, "retention sweep failed")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sum)
}
