package model

import "time"

// Session status values.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
)

// Session is one focus block run inside a room.
type Session struct {
	ID              string     `db:"id" json:"id"`
	RoomID          string     `db:"room_id" json:"room_id"`
	UserID          string     `db:"user_id" json:"user_id"`
	Title           string     `db:"title" json:"title"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Status          string     `db:"status" json:"status"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
