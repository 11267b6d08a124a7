package handler

import (
	"net/http"

	"pomoroom/internal/api/v1/dto"
	"pomoroom/internal/model"
	"pomoroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// RoomHandler serves rooms, their participants and room-scoped limits.
type RoomHandler struct {
	roomSvc    service.RoomService
	sessionSvc service.SessionService
	limits     RecordingLimits
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomSvc service.RoomService, sessionSvc service.SessionService, limits RecordingLimits, v *validator.Validate, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc, sessionSvc: sessionSvc, limits: limits, validate: v, logger: logger}
}

// RegisterRoutes mounts the room routes.
func (h *RoomHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rooms", h.CreateRoom)
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", h.GetRoom)
		r.Put("/main-planner", h.SetMainPlanner)
		r.Get("/participants", h.ListParticipants)
		r.Post("/participants", h.AddParticipant)
		r.Delete("/participants/{userID}", h.RemoveParticipant)
		r.Post("/sessions", h.StartSession)
		r.Post("/uploads/check", h.CheckUpload)
	})
}

func toRoomDTO(room *model.Room) dto.RoomResponseDTO {
	return dto.RoomResponseDTO{
		ID:            room.ID,
		Name:          room.Name,
		CreatorID:     room.CreatorID,
		MainPlannerID: room.MainPlannerID,
		PlanOwnerID:   room.PlanOwnerID(),
		CreatedAt:     room.CreatedAt,
	}
}

func toSessionDTO(s *model.Session) dto.SessionResponseDTO {
	return dto.SessionResponseDTO{
		ID:              s.ID,
		RoomID:          s.RoomID,
		UserID:          s.UserID,
		Title:           s.Title,
		DurationMinutes: s.DurationMinutes,
		Status:          s.Status,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}
}

// CreateRoom godoc
// @Summary Create a room
// @Description The caller becomes the room creator and its first planner.
// @Tags rooms
// @Accept json
// @Produce json
// @Param room body dto.RoomCreateDTO true "Room"
// @Success 201 {object} dto.RoomResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Router /rooms [post]
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req dto.RoomCreateDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	room, err := h.roomSvc.CreateRoom(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create room")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toRoomDTO(room))
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	room, err := h.roomSvc.GetRoom(r.Context(), roomID, userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get room")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) SetMainPlanner(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	var req dto.MainPlannerDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	room, err := h.roomSvc.SetMainPlanner(r.Context(), roomID, userID, req.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to set main planner")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	participants, err := h.roomSvc.ListParticipants(r.Context(), roomID, userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list participants")
		return
	}
	out := make([]dto.ParticipantResponseDTO, 0, len(participants))
	for _, p := range participants {
		out = append(out, dto.ParticipantResponseDTO{UserID: p.UserID, Role: string(p.Role), JoinedAt: p.JoinedAt})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// AddParticipant godoc
// @Summary Add a participant to a room
// @Description Only planners may add participants. The room's plan caps the participant count.
// @Tags rooms
// @Accept json
// @Produce json
// @Param roomID path string true "Room ID"
// @Param participant body dto.ParticipantAddDTO true "Participant"
// @Success 201 {object} dto.ParticipantResponseDTO
// @Failure 403 {object} dto.DenialResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /rooms/{roomID}/participants [post]
func (h *RoomHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	var req dto.ParticipantAddDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	p, err := h.roomSvc.AddParticipant(r.Context(), roomID, userID, req.UserID, model.Role(req.Role))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to add participant")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, dto.ParticipantResponseDTO{UserID: p.UserID, Role: string(p.Role), JoinedAt: p.JoinedAt})
}

func (h *RoomHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	if err := h.roomSvc.RemoveParticipant(r.Context(), roomID, userID, chi.URLParam(r, "userID")); err != nil {
		writeServiceError(w, h.logger, err, "failed to remove participant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	var req dto.SessionCreateDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	sess, err := h.sessionSvc.StartSession(r.Context(), roomID, userID, req.Title, req.DurationMinutes)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to start session")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toSessionDTO(sess))
}

// CheckUpload godoc
// @Summary Check whether a batch of recordings fits today's room quota
// @Tags rooms
// @Accept json
// @Produce json
// @Param roomID path string true "Room ID"
// @Param body body dto.UploadCheckDTO true "Batch size"
// @Success 200 {object} dto.LimitCheckResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /rooms/{roomID}/uploads/check [post]
func (h *RoomHandler) CheckUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, h.logger, "roomID")
	if !ok {
		return
	}
	var req dto.UploadCheckDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	d, err := h.limits.CanUpload(r.Context(), roomID, userID, req.Count)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check upload limit")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.LimitCheckResponseDTO{Decision: d})
}
