package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/policy"
	"pomoroom/internal/repository"

	"github.com/rs/zerolog"
)

// RecordingService attaches recordings to sessions and reports retention.
type RecordingService interface {
	// AttachRecording checks the daily quotas of the user and of the room
	// and stores the recording. A full quota yields a *policy.DeniedError.
	AttachRecording(ctx context.Context, sessionID, userID, storagePath string, durationSeconds *int) (*model.Recording, error)
	// GetRecording returns the recording with its retention under the
	// owner's current plan. userID must participate in the room.
	GetRecording(ctx context.Context, recordingID, userID string) (*RecordingView, error)
}

// RecordingView is a recording and its retention status.
type RecordingView struct {
	Recording *model.RecordingDetail
	Retention policy.RetentionStatus
}

type recordingService struct {
	repo        repository.RecordingRepository
	sessionRepo repository.SessionRepository
	roomRepo    repository.RoomRepository
	plans       policy.PlanResolver
	enforcer    *policy.Enforcer
	warnWithin  time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewRecordingService creates a RecordingService. warnWithin is how close to
// expiry a recording is reported as expiring soon.
func NewRecordingService(
	repo repository.RecordingRepository,
	sessionRepo repository.SessionRepository,
	roomRepo repository.RoomRepository,
	plans policy.PlanResolver,
	enforcer *policy.Enforcer,
	warnWithin time.Duration,
	logger zerolog.Logger,
) RecordingService {
	return &recordingService{
		repo:        repo,
		sessionRepo: sessionRepo,
		roomRepo:    roomRepo,
		plans:       plans,
		enforcer:    enforcer,
		warnWithin:  warnWithin,
		now:         time.Now,
		logger:      logger.With().Str("service", "RecordingService").Logger(),
	}
}

func (s *recordingService) AttachRecording(ctx context.Context, sessionID, userID, storagePath string, durationSeconds *int) (*model.Recording, error) {
	storagePath = strings.TrimSpace(storagePath)
	if storagePath == "" {
		return nil, fmt.Errorf("%w: storage path is required", apperr.ErrInvalid)
	}
	if durationSeconds != nil && *durationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration must be non-negative", apperr.ErrInvalid)
	}
	sess, err := s.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("%w: session belongs to another user", apperr.ErrForbidden)
	}

	decision, err := s.enforcer.CanRecordInRoom(ctx, sess.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &policy.DeniedError{Decision: decision}
	}

	rec := &model.Recording{SessionID: sessionID, StoragePath: &storagePath, DurationSeconds: durationSeconds}
	if err := s.repo.CreateRecording(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to create recording")
		return nil, err
	}
	s.logger.Info().Str("recording_id", rec.ID).Str("room_id", sess.RoomID).
		Int("used", decision.CurrentCount+1).Int("max", decision.MaxCount).Msg("Recording attached")
	return rec, nil
}

func (s *recordingService) GetRecording(ctx context.Context, recordingID, userID string) (*RecordingView, error) {
	detail, err := s.repo.GetRecordingDetail(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roomRepo.ParticipantRole(ctx, detail.RoomID, userID); err != nil {
		return nil, err
	}
	owner, err := s.plans.ResolveUser(ctx, detail.OwnerID)
	if err != nil {
		s.logger.Error().Err(err).Str("recording_id", recordingID).Str("owner_id", detail.OwnerID).Msg("Failed to resolve owner plan")
		return nil, err
	}
	return &RecordingView{
		Recording: detail,
		Retention: policy.Status(&detail.Recording, owner.Limits, s.now(), s.warnWithin),
	}, nil
}
