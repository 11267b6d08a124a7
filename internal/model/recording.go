package model

import (
	"time"

	"pomoroom/internal/plan"
)

// Recording is the audio/video capture attached to a session. StoragePath
// and DurationSeconds are nulled once the retention sweep purges the file;
// CreatedAt never changes.
type Recording struct {
	ID              string    `db:"id" json:"id"`
	SessionID       string    `db:"session_id" json:"session_id"`
	StoragePath     *string   `db:"storage_path" json:"storage_path,omitempty"`
	DurationSeconds *int      `db:"duration_seconds" json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// HasFile reports whether the recording still points at a stored object.
func (r *Recording) HasFile() bool {
	return r.StoragePath != nil && *r.StoragePath != ""
}

// RecordingWithOwner is a recording joined with its owner's subscription,
// as loaded by the retention sweep.
type RecordingWithOwner struct {
	Recording
	OwnerID   string         `db:"owner_id"`
	Tier      plan.Tier      `db:"tier"`
	Overrides plan.Overrides `db:"-"`
}

// RecordingDetail is a recording with the session context needed to check
// access and compute its retention.
type RecordingDetail struct {
	Recording
	RoomID  string `db:"room_id" json:"room_id"`
	OwnerID string `db:"owner_id" json:"owner_id"`
}
