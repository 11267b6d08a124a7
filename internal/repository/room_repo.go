package repository

import (
	"context"

	"pomoroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomRepository defines methods for rooms and their participants.
type RoomRepository interface {
	// CreateRoom inserts the room and enrolls its creator as a planner.
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoomByID(ctx context.Context, roomID string) (*model.Room, error)
	// SetMainPlanner changes whose plan governs the room. plannerID must
	// already be a participant of the room.
	SetMainPlanner(ctx context.Context, roomID, plannerID string) error
	ListParticipants(ctx context.Context, roomID string) ([]model.RoomParticipant, error)
	AddParticipant(ctx context.Context, p *model.RoomParticipant) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
	ParticipantRole(ctx context.Context, roomID, userID string) (model.Role, error)
}

type roomRepo struct {
	pool *pgxpool.Pool
}

// NewRoomRepo creates a new RoomRepository.
func NewRoomRepo(pool *pgxpool.Pool) RoomRepository {
	return &roomRepo{pool: pool}
}

func (r *roomRepo) CreateRoom(ctx context.Context, room *model.Room) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertRoom = `
            INSERT INTO rooms (name, creator_id)
            VALUES ($1, $2)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertRoom, room.Name, room.CreatorID).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return classify(err, "insert room")
		}
		const insertPlanner = `
            INSERT INTO room_participants (room_id, user_id, role)
            VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, insertPlanner, room.ID, room.CreatorID, string(model.RolePlanner)); err != nil {
			return classify(err, "enroll creator in room "+room.ID)
		}
		return nil
	})
}

func (r *roomRepo) GetRoomByID(ctx context.Context, roomID string) (*model.Room, error) {
	const q = `
        SELECT id, name, creator_id, main_planner_id, created_at, updated_at
        FROM rooms
        WHERE id = $1`
	var room model.Room
	err := r.pool.QueryRow(ctx, q, roomID).Scan(
		&room.ID,
		&room.Name,
		&room.CreatorID,
		&room.MainPlannerID,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err, "fetch room "+roomID)
	}
	return &room, nil
}

func (r *roomRepo) SetMainPlanner(ctx context.Context, roomID, plannerID string) error {
	const q = `
        UPDATE rooms
        SET main_planner_id = $2, updated_at = NOW()
        WHERE id = $1
          AND EXISTS (
            SELECT 1 FROM room_participants
            WHERE room_id = $1 AND user_id = $2 AND role = 'planner'
          )`
	tag, err := r.pool.Exec(ctx, q, roomID, plannerID)
	if err != nil {
		return classify(err, "set main planner of room "+roomID)
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "set main planner of room "+roomID)
	}
	return nil
}

func (r *roomRepo) ListParticipants(ctx context.Context, roomID string) ([]model.RoomParticipant, error) {
	const q = `
        SELECT room_id, user_id, role, joined_at
        FROM room_participants
        WHERE room_id = $1
        ORDER BY joined_at ASC`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, classify(err, "list participants of room "+roomID)
	}
	defer rows.Close()

	var out []model.RoomParticipant
	for rows.Next() {
		var p model.RoomParticipant
		var role string
		if err := rows.Scan(&p.RoomID, &p.UserID, &role, &p.JoinedAt); err != nil {
			return nil, classify(err, "scan participant")
		}
		p.Role = model.Role(role)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate participants")
	}
	return out, nil
}

func (r *roomRepo) AddParticipant(ctx context.Context, p *model.RoomParticipant) error {
	const q = `
        INSERT INTO room_participants (room_id, user_id, role)
        VALUES ($1, $2, $3)
        RETURNING joined_at`
	if err := r.pool.QueryRow(ctx, q, p.RoomID, p.UserID, string(p.Role)).Scan(&p.JoinedAt); err != nil {
		return classify(err, "add participant "+p.UserID+" to room "+p.RoomID)
	}
	return nil
}

// RemoveParticipant also clears the room's main planner when that user leaves,
// so the creator's plan applies again.
func (r *roomRepo) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2`, roomID, userID)
		if err != nil {
			return classify(err, "remove participant "+userID)
		}
		if tag.RowsAffected() == 0 {
			return classify(pgx.ErrNoRows, "remove participant "+userID)
		}
		const clearPlanner = `
            UPDATE rooms SET main_planner_id = NULL, updated_at = NOW()
            WHERE id = $1 AND main_planner_id = $2`
		if _, err := tx.Exec(ctx, clearPlanner, roomID, userID); err != nil {
			return classify(err, "clear main planner of room "+roomID)
		}
		return nil
	})
}

func (r *roomRepo) ParticipantRole(ctx context.Context, roomID, userID string) (model.Role, error) {
	const q = `SELECT role FROM room_participants WHERE room_id = $1 AND user_id = $2`
	var role string
	if err := r.pool.QueryRow(ctx, q, roomID, userID).Scan(&role); err != nil {
		return "", classify(err, "fetch role of "+userID+" in room "+roomID)
	}
	return model.Role(role), nil
}
