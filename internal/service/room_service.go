package service

import (
	"context"
	"errors"
	"fmt"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/policy"
	"pomoroom/internal/repository"

	"github.com/rs/zerolog"
)

// RoomService manages rooms and their membership.
type RoomService interface {
	CreateRoom(ctx context.Context, creatorID, name string) (*model.Room, error)
	// GetRoom returns the room if userID participates in it.
	GetRoom(ctx context.Context, roomID, userID string) (*model.Room, error)
	// SetMainPlanner is limited to the room creator; plannerID must be a planner.
	SetMainPlanner(ctx context.Context, roomID, actingUserID, plannerID string) (*model.Room, error)
	ListParticipants(ctx context.Context, roomID, userID string) ([]model.RoomParticipant, error)
	// AddParticipant returns a *policy.DeniedError when the room is full.
	AddParticipant(ctx context.Context, roomID, actingUserID, newUserID string, role model.Role) (*model.RoomParticipant, error)
	// RemoveParticipant lets planners remove anyone but the creator, and
	// anyone remove themselves.
	RemoveParticipant(ctx context.Context, roomID, actingUserID, userID string) error
}

type roomService struct {
	repo     repository.RoomRepository
	userRepo repository.UserRepository
	enforcer *policy.Enforcer
	logger   zerolog.Logger
}

// NewRoomService creates a RoomService with a scoped logger.
func NewRoomService(repo repository.RoomRepository, userRepo repository.UserRepository, enforcer *policy.Enforcer, logger zerolog.Logger) RoomService {
	return &roomService{
		repo:     repo,
		userRepo: userRepo,
		enforcer: enforcer,
		logger:   logger.With().Str("service", "RoomService").Logger(),
	}
}

func (s *roomService) CreateRoom(ctx context.Context, creatorID, name string) (*model.Room, error) {
	if _, err := s.userRepo.GetUserByID(ctx, creatorID); err != nil {
		return nil, err
	}
	room := &model.Room{Name: name, CreatorID: creatorID}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		s.logger.Error().Err(err).Str("user_id", creatorID).Msg("Failed to create room")
		return nil, err
	}
	s.logger.Info().Str("room_id", room.ID).Str("user_id", creatorID).Msg("Room created")
	return room, nil
}

func (s *roomService) requireParticipant(ctx context.Context, roomID, userID string) (model.Role, error) {
	return s.repo.ParticipantRole(ctx, roomID, userID)
}

func (s *roomService) GetRoom(ctx context.Context, roomID, userID string) (*model.Room, error) {
	if _, err := s.requireParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.repo.GetRoomByID(ctx, roomID)
}

func (s *roomService) SetMainPlanner(ctx context.Context, roomID, actingUserID, plannerID string) (*model.Room, error) {
	room, err := s.GetRoom(ctx, roomID, actingUserID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != actingUserID {
		return nil, fmt.Errorf("%w: only the room creator can change the main planner", apperr.ErrForbidden)
	}
	role, err := s.repo.ParticipantRole(ctx, roomID, plannerID)
	if err != nil {
		return nil, err
	}
	if role != model.RolePlanner {
		return nil, fmt.Errorf("%w: main planner must hold the planner role", apperr.ErrInvalid)
	}
	if err := s.repo.SetMainPlanner(ctx, roomID, plannerID); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Str("planner_id", plannerID).Msg("Failed to set main planner")
		return nil, err
	}
	return s.repo.GetRoomByID(ctx, roomID)
}

func (s *roomService) ListParticipants(ctx context.Context, roomID, userID string) ([]model.RoomParticipant, error) {
	if _, err := s.requireParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, roomID)
}

func (s *roomService) AddParticipant(ctx context.Context, roomID, actingUserID, newUserID string, role model.Role) (*model.RoomParticipant, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalid, role)
	}
	if _, err := s.userRepo.GetUserByID(ctx, newUserID); err != nil {
		return nil, err
	}
	acting, err := s.repo.ParticipantRole(ctx, roomID, actingUserID)
	if err != nil {
		return nil, err
	}
	if acting != model.RolePlanner {
		return nil, fmt.Errorf("%w: only planners can add participants", apperr.ErrForbidden)
	}
	// A repeat add is a conflict even when the room is full.
	if _, err := s.repo.ParticipantRole(ctx, roomID, newUserID); err == nil {
		return nil, fmt.Errorf("%w: user is already in the room", apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	decision, err := s.enforcer.CanAddParticipant(ctx, roomID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &policy.DeniedError{Decision: decision}
	}
	p := &model.RoomParticipant{RoomID: roomID, UserID: newUserID, Role: role}
	if err := s.repo.AddParticipant(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Str("user_id", newUserID).Msg("Failed to add participant")
		return nil, err
	}
	return p, nil
}

func (s *roomService) RemoveParticipant(ctx context.Context, roomID, actingUserID, userID string) error {
	room, err := s.GetRoom(ctx, roomID, actingUserID)
	if err != nil {
		return err
	}
	if userID == room.CreatorID {
		return fmt.Errorf("%w: the room creator cannot be removed", apperr.ErrForbidden)
	}
	if actingUserID != userID {
		role, err := s.repo.ParticipantRole(ctx, roomID, actingUserID)
		if err != nil {
			return err
		}
		if role != model.RolePlanner {
			return fmt.Errorf("%w: only planners can remove other participants", apperr.ErrForbidden)
		}
	}
	if err := s.repo.RemoveParticipant(ctx, roomID, userID); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("Failed to remove participant")
		return err
	}
	return nil
}
