package dto

import (
	"time"

	"pomoroom/internal/policy"
)

// SessionCreateDTO starts a focus session.
type SessionCreateDTO struct {
	Title           string `json:"title" validate:"max=200"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=240"`
}

// SessionResponseDTO is the response body for session endpoints.
type SessionResponseDTO struct {
	ID              string     `json:"id"`
	RoomID          string     `json:"room_id"`
	UserID          string     `json:"user_id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// RecordingCreateDTO attaches an uploaded file to a session.
type RecordingCreateDTO struct {
	StoragePath     string `json:"storage_path" validate:"required,max=1024"`
	DurationSeconds *int   `json:"duration_seconds" validate:"omitempty,min=0"`
}

// RecordingResponseDTO is a recording with its retention status.
type RecordingResponseDTO struct {
	ID              string                  `json:"id"`
	SessionID       string                  `json:"session_id"`
	RoomID          string                  `json:"room_id,omitempty"`
	StoragePath     *string                 `json:"storage_path"`
	DurationSeconds *int                    `json:"duration_seconds"`
	CreatedAt       time.Time               `json:"created_at"`
	Retention       *policy.RetentionStatus `json:"retention,omitempty"`
}
