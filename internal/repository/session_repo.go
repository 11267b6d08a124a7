package repository

import (
	"context"
	"time"

	"pomoroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository defines methods for focus sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSessionByID(ctx context.Context, sessionID string) (*model.Session, error)
	// CompleteSession marks a running session of userID as completed.
	CompleteSession(ctx context.Context, sessionID, userID string) (*model.Session, error)
	// CompletedSessionDates returns the distinct local dates, newest first,
	// on which userID completed at least one session.
	CompletedSessionDates(ctx context.Context, userID string, loc *time.Location) ([]time.Time, error)
}

type sessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo creates a new SessionRepository.
func NewSessionRepo(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, room_id, user_id, title, duration_minutes, status, started_at, completed_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.RoomID,
		&s.UserID,
		&s.Title,
		&s.DurationMinutes,
		&s.Status,
		&s.StartedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) CreateSession(ctx context.Context, s *model.Session) error {
	const q = `
        INSERT INTO sessions (room_id, user_id, title, duration_minutes, status)
        VALUES ($1, $2, $3, $4, 'running')
        RETURNING id, status, started_at`
	if err := r.pool.QueryRow(ctx, q, s.RoomID, s.UserID, s.Title, s.DurationMinutes).Scan(&s.ID, &s.Status, &s.StartedAt); err != nil {
		return classify(err, "insert session")
	}
	return nil
}

func (r *sessionRepo) GetSessionByID(ctx context.Context, sessionID string) (*model.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID))
	if err != nil {
		return nil, classify(err, "fetch session "+sessionID)
	}
	return s, nil
}

func (r *sessionRepo) CompleteSession(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	q := `
        UPDATE sessions
        SET status = 'completed', completed_at = NOW()
        WHERE id = $1 AND user_id = $2 AND status = 'running'
        RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, sessionID, userID))
	if err != nil {
		return nil, classify(err, "complete session "+sessionID)
	}
	return s, nil
}

func (r *sessionRepo) CompletedSessionDates(ctx context.Context, userID string, loc *time.Location) ([]time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	const q = `
        SELECT DISTINCT (completed_at AT TIME ZONE $2)::date AS day
        FROM sessions
        WHERE user_id = $1 AND completed_at IS NOT NULL
        ORDER BY day DESC`
	rows, err := r.pool.Query(ctx, q, userID, zoneName(loc))
	if err != nil {
		return nil, classify(err, "list session dates for user "+userID)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, classify(err, "scan session date")
		}
		days = append(days, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate session dates")
	}
	return days, nil
}

// zoneName is the name of loc as Postgres accepts it in AT TIME ZONE. Zones
// without an IANA name, such as time.Local or fixed offsets, fall back to UTC.
func zoneName(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	name := loc.String()
	if name == "" || name == "Local" {
		return "UTC"
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "UTC"
	}
	return name
}
