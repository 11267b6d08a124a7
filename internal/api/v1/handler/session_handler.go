package handler

import (
	"net/http"

	"pomoroom/internal/api/v1/dto"
	"pomoroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SessionHandler serves session completion, recordings and streaks.
type SessionHandler struct {
	sessionSvc   service.SessionService
	recordingSvc service.RecordingService
	streakSvc    service.StreakService
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessionSvc service.SessionService, recordingSvc service.RecordingService, streakSvc service.StreakService, v *validator.Validate, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, recordingSvc: recordingSvc, streakSvc: streakSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts the session and recording routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Put("/sessions/{sessionID}/complete", h.CompleteSession)
	r.Post("/sessions/{sessionID}/recording", h.AttachRecording)
	r.Get("/recordings/{recordingID}", h.GetRecording)
	r.Get("/me/streak", h.GetStreak)
}

func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, h.logger, "sessionID")
	if !ok {
		return
	}
	sess, err := h.sessionSvc.CompleteSession(r.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to complete session")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toSessionDTO(sess))
}

// AttachRecording godoc
// @Summary Attach a recording to a session
// @Description Counts against the room's daily recording quota.
// @Tags recordings
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param recording body dto.RecordingCreateDTO true "Recording"
// @Success 201 {object} dto.RecordingResponseDTO
// @Failure 403 {object} dto.DenialResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /sessions/{sessionID}/recording [post]
func (h *SessionHandler) AttachRecording(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, h.logger, "sessionID")
	if !ok {
		return
	}
	var req dto.RecordingCreateDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	rec, err := h.recordingSvc.AttachRecording(r.Context(), sessionID, userID, req.StoragePath, req.DurationSeconds)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to attach recording")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, dto.RecordingResponseDTO{
		ID:              rec.ID,
		SessionID:       rec.SessionID,
		StoragePath:     rec.StoragePath,
		DurationSeconds: rec.DurationSeconds,
		CreatedAt:       rec.CreatedAt,
	})
}

// GetRecording godoc
// @Summary Get a recording and its retention status
// @Tags recordings
// @Produce json
// @Param recordingID path string true "Recording ID"
// @Success 200 {object} dto.RecordingResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /recordings/{recordingID} [get]
func (h *SessionHandler) GetRecording(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	recordingID, ok := uuidParam(w, r, h.logger, "recordingID")
	if !ok {
		return
	}
	view, err := h.recordingSvc.GetRecording(r.Context(), recordingID, userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get recording")
		return
	}
	rec := view.Recording
	writeJSON(w, h.logger, http.StatusOK, dto.RecordingResponseDTO{
		ID:              rec.ID,
		SessionID:       rec.SessionID,
		RoomID:          rec.RoomID,
		StoragePath:     rec.StoragePath,
		DurationSeconds: rec.DurationSeconds,
		CreatedAt:       rec.CreatedAt,
		Retention:       &view.Retention,
	})
}

func (h *SessionHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	st, err := h.streakSvc.GetStreak(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get streak")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, st)
}
