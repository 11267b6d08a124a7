package service

import (
	"context"
	"fmt"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/repository"

	"github.com/rs/zerolog"
)

// SessionService starts and completes focus sessions.
type SessionService interface {
	StartSession(ctx context.Context, roomID, userID, title string, durationMinutes int) (*model.Session, error)
	CompleteSession(ctx context.Context, sessionID, userID string) (*model.Session, error)
}

type sessionService struct {
	repo     repository.SessionRepository
	roomRepo repository.RoomRepository
	logger   zerolog.Logger
}

// NewSessionService creates a SessionService with a scoped logger.
func NewSessionService(repo repository.SessionRepository, roomRepo repository.RoomRepository, logger zerolog.Logger) SessionService {
	return &sessionService{
		repo:     repo,
		roomRepo: roomRepo,
		logger:   logger.With().Str("service", "SessionService").Logger(),
	}
}

func (s *sessionService) StartSession(ctx context.Context, roomID, userID, title string, durationMinutes int) (*model.Session, error) {
	if durationMinutes < 1 {
		return nil, fmt.Errorf("%w: duration must be at least one minute", apperr.ErrInvalid)
	}
	if _, err := s.roomRepo.ParticipantRole(ctx, roomID, userID); err != nil {
		return nil, err
	}
	sess := &model.Session{RoomID: roomID, UserID: userID, Title: title, DurationMinutes: durationMinutes}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("Failed to start session")
		return nil, err
	}
	return sess, nil
}

func (s *sessionService) CompleteSession(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	existing, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("%w: session belongs to another user", apperr.ErrForbidden)
	}
	if existing.Status == model.SessionCompleted {
		return existing, nil
	}
	sess, err := s.repo.CompleteSession(ctx, sessionID, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to complete session")
		return nil, err
	}
	return sess, nil
}
