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

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/users/me", h.createUser)
	r.Get("/users/me", h.getUser)
}

func toUserDTO(u *model.User) dto.UserResponseDTO {
	return dto.UserResponseDTO{UserID: u.UserID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// createUser godoc
// @Summary Register the caller's profile
// @Description Creates the profile and a FREE subscription for the authenticated user.
// @Tags users
// @Accept json
// @Produce json
// @Param user body dto.UserCreateDTO true "User profile"
// @Success 201 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /users/me [post]
func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req dto.UserCreateDTO
	if !decode(w, r, h.logger, h.validate, &req) {
		return
	}
	u, err := h.userService.Create(r.Context(), &model.User{UserID: userID, Name: req.Name, Email: req.Email})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create user")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toUserDTO(u))
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get user")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toUserDTO(u))
}
