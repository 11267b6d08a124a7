package model

// ScopeKind names what a usage count is aggregated over.
type ScopeKind string

const (
	ScopeUser ScopeKind = "user"
	ScopeRoom ScopeKind = "room"
)

// UsageScope identifies the owner of a usage count: a user's recordings
// across all rooms, or all recordings made in one room.
type UsageScope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

// UserScope is shorthand for a user-owned scope.
func UserScope(userID string) UsageScope { return UsageScope{Kind: ScopeUser, ID: userID} }

// RoomScope is shorthand for a room-owned scope.
func RoomScope(roomID string) UsageScope { return UsageScope{Kind: ScopeRoom, ID: roomID} }
