package dto

import (
	"time"

	"pomoroom/internal/policy"
)

// RoomCreateDTO is the request body for creating a room.
type RoomCreateDTO struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// MainPlannerDTO selects whose plan governs a room.
type MainPlannerDTO struct {
	UserID string `json:"user_id" validate:"required"`
}

// RoomResponseDTO is the response body for room endpoints.
type RoomResponseDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatorID     string    `json:"creator_id"`
	MainPlannerID *string   `json:"main_planner_id,omitempty"`
	PlanOwnerID   string    `json:"plan_owner_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ParticipantAddDTO is the request body for adding a participant.
type ParticipantAddDTO struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=planner performer"`
}

// ParticipantResponseDTO is one room participant.
type ParticipantResponseDTO struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// UploadCheckDTO asks whether a batch of recordings fits the room's quota.
type UploadCheckDTO struct {
	Count int `json:"count" validate:"required,min=1,max=100"`
}

// LimitCheckResponseDTO wraps a limit decision.
type LimitCheckResponseDTO struct {
	policy.Decision
}
