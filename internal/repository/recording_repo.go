package repository

import (
	"context"

	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordingRepository defines methods for session recordings.
type RecordingRepository interface {
	// CreateRecording returns apperr.ErrConflict when the session already
	// has a recording.
	CreateRecording(ctx context.Context, rec *model.Recording) error
	GetRecordingDetail(ctx context.Context, recordingID string) (*model.RecordingDetail, error)
	// ListWithLocator returns every recording that still points at a stored
	// object, joined with its owner's subscription, oldest first.
	ListWithLocator(ctx context.Context) ([]model.RecordingWithOwner, error)
	// ClearLocator nulls storage_path and duration_seconds. Clearing an
	// already cleared recording is a no-op.
	ClearLocator(ctx context.Context, recordingID string) error
}

type recordingRepo struct {
	pool *pgxpool.Pool
}

// NewRecordingRepo creates a new RecordingRepository.
func NewRecordingRepo(pool *pgxpool.Pool) RecordingRepository {
	return &recordingRepo{pool: pool}
}

func (r *recordingRepo) CreateRecording(ctx context.Context, rec *model.Recording) error {
	const q = `
        INSERT INTO recordings (session_id, storage_path, duration_seconds)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, q, rec.SessionID, rec.StoragePath, rec.DurationSeconds).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return classify(err, "insert recording for session "+rec.SessionID)
	}
	return nil
}

func (r *recordingRepo) GetRecordingDetail(ctx context.Context, recordingID string) (*model.RecordingDetail, error) {
	const q = `
        SELECT rec.id, rec.session_id, rec.storage_path, rec.duration_seconds, rec.created_at,
               s.room_id, s.user_id
        FROM recordings rec
        JOIN sessions s ON s.id = rec.session_id
        WHERE rec.id = $1`
	var d model.RecordingDetail
	err := r.pool.QueryRow(ctx, q, recordingID).Scan(
		&d.ID,
		&d.SessionID,
		&d.StoragePath,
		&d.DurationSeconds,
		&d.CreatedAt,
		&d.RoomID,
		&d.OwnerID,
	)
	if err != nil {
		return nil, classify(err, "fetch recording "+recordingID)
	}
	return &d, nil
}

func (r *recordingRepo) ListWithLocator(ctx context.Context) ([]model.RecordingWithOwner, error) {
	const q = `
        SELECT rec.id, rec.session_id, rec.storage_path, rec.duration_seconds, rec.created_at,
               s.user_id,
               COALESCE(us.tier, 'FREE'),
               us.max_daily_recordings, us.max_participants, us.recording_retention_days
        FROM recordings rec
        JOIN sessions s ON s.id = rec.session_id
        LEFT JOIN user_subscriptions us ON us.user_id = s.user_id
        WHERE rec.storage_path IS NOT NULL
        ORDER BY rec.created_at ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, classify(err, "list recordings with storage")
	}
	defer rows.Close()

	var out []model.RecordingWithOwner
	for rows.Next() {
		var rw model.RecordingWithOwner
		var tier string
		err := rows.Scan(
			&rw.ID,
			&rw.SessionID,
			&rw.StoragePath,
			&rw.DurationSeconds,
			&rw.CreatedAt,
			&rw.OwnerID,
			&tier,
			&rw.Overrides.MaxDailyRecordings,
			&rw.Overrides.MaxParticipants,
			&rw.Overrides.RecordingRetentionDays,
		)
		if err != nil {
			return nil, classify(err, "scan recording")
		}
		rw.Tier = plan.Tier(tier)
		out = append(out, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate recordings")
	}
	return out, nil
}

func (r *recordingRepo) ClearLocator(ctx context.Context, recordingID string) error {
	const q = `
        UPDATE recordings
        SET storage_path = NULL, duration_seconds = NULL
        WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, recordingID)
	if err != nil {
		return classify(err, "clear storage of recording "+recordingID)
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "clear storage of recording "+recordingID)
	}
	return nil
}
