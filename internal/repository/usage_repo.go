package repository

import (
	"context"
	"fmt"
	"time"

	"pomoroom/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository answers the read-only counts behind plan limits.
type UsageRepository interface {
	// DailyRecordingCount counts live recordings of scope created on the
	// calendar day of ref in loc.
	DailyRecordingCount(ctx context.Context, scope model.UsageScope, ref time.Time, loc *time.Location) (int, error)
	// ParticipantCount counts the current participants of a room.
	ParticipantCount(ctx context.Context, roomID string) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

// DayWindow returns [start, end) of the calendar day containing ref in loc.
// end is the next local midnight, so DST days are 23 or 25 hours long.
func DayWindow(ref time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := ref.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DailyRecordingCount counts recordings created in the day window. Purged
// recordings (null storage_path) no longer count against the quota.
func (r *usageRepo) DailyRecordingCount(ctx context.Context, scope model.UsageScope, ref time.Time, loc *time.Location) (int, error) {
	var column string
	switch scope.Kind {
	case model.ScopeUser:
		column = "s.user_id"
	case model.ScopeRoom:
		column = "s.room_id::text"
	default:
		return 0, fmt.Errorf("unknown usage scope %q", scope.Kind)
	}
	start, end := DayWindow(ref, loc)
	q := `
        SELECT COUNT(*)
        FROM recordings rec
        JOIN sessions s ON s.id = rec.session_id
        WHERE ` + column + ` = $1
          AND rec.storage_path IS NOT NULL
          AND rec.created_at >= $2
          AND rec.created_at < $3
    `
	var count int
	if err := r.pool.QueryRow(ctx, q, scope.ID, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting recordings for %s %s: %w", scope.Kind, scope.ID, err)
	}
	return count, nil
}

// ParticipantCount counts the current participants of a room.
func (r *usageRepo) ParticipantCount(ctx context.Context, roomID string) (int, error) {
	const q = `SELECT COUNT(*) FROM room_participants WHERE room_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, q, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting participants for room %s: %w", roomID, err)
	}
	return count, nil
}
