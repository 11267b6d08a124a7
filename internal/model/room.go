package model

import "time"

// Role is a participant's role inside a room.
type Role string

const (
	RolePlanner   Role = "planner"
	RolePerformer Role = "performer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RolePlanner || r == RolePerformer
}

// Room is a shared timer room. MainPlannerID designates whose plan governs
// the room; when unset the creator's plan applies.
type Room struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	CreatorID     string    `db:"creator_id" json:"creator_id"`
	MainPlannerID *string   `db:"main_planner_id" json:"main_planner_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PlanOwnerID returns the user whose subscription applies to the room.
func (r *Room) PlanOwnerID() string {
	if r.MainPlannerID != nil && *r.MainPlannerID != "" {
		return *r.MainPlannerID
	}
	return r.CreatorID
}

// RoomParticipant is unique per (RoomID, UserID).
type RoomParticipant struct {
	RoomID   string    `db:"room_id" json:"room_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     Role      `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
