package service

import (
	"context"
	"sync"
	"time"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"
)

// ============================================================
// In-memory repositories
// ============================================================

type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.UserID] = u
	}
	return m
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.UserID]; ok {
		return apperr.ErrConflict
	}
	m.users[u.UserID] = u
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByStripeCustomerID(_ context.Context, customerID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memUsers) UpdateStripeCustomerID(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.StripeCustomerID = &customerID
	return nil
}

type memSubs struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription
}

func newMemSubs(subs ...*model.Subscription) *memSubs {
	m := &memSubs{subs: map[string]*model.Subscription{}}
	for _, s := range subs {
		m.subs[s.UserID] = s
	}
	return m
}

func (m *memSubs) GetSubscription(_ context.Context, userID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubs) GetByStripeSubscriptionID(_ context.Context, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memSubs) EnsureSubscription(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[userID]; !ok {
		m.subs[userID] = &model.Subscription{UserID: userID, Tier: plan.DefaultTier, Status: model.SubscriptionActive}
	}
	return nil
}

func (m *memSubs) UpdateTier(_ context.Context, userID string, tier plan.Tier, status string, stripeSubscriptionID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	s.Tier, s.Status = tier, status
	if stripeSubscriptionID != nil {
		s.StripeSubscriptionID = stripeSubscriptionID
	}
	return nil
}

func (m *memSubs) SetOverrides(_ context.Context, userID string, o plan.Overrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	s.MaxDailyRecordings, s.MaxParticipants, s.RetentionDays = o.MaxDailyRecordings, o.MaxParticipants, o.RecordingRetentionDays
	return nil
}

type memRooms struct {
	mu      sync.Mutex
	rooms   map[string]*model.Room
	members map[string][]model.RoomParticipant
}

func newMemRooms() *memRooms {
	return &memRooms{rooms: map[string]*model.Room{}, members: map[string][]model.RoomParticipant{}}
}

func (m *memRooms) CreateRoom(_ context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.ID == "" {
		room.ID = "room-" + room.Name
	}
	m.rooms[room.ID] = room
	m.members[room.ID] = append(m.members[room.ID], model.RoomParticipant{RoomID: room.ID, UserID: room.CreatorID, Role: model.RolePlanner})
	return nil
}

func (m *memRooms) GetRoomByID(_ context.Context, id string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRooms) SetMainPlanner(_ context.Context, roomID, plannerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return apperr.ErrNotFound
	}
	r.MainPlannerID = &plannerID
	return nil
}

func (m *memRooms) ListParticipants(_ context.Context, roomID string) ([]model.RoomParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RoomParticipant(nil), m.members[roomID]...), nil
}

func (m *memRooms) AddParticipant(_ context.Context, p *model.RoomParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members[p.RoomID] {
		if existing.UserID == p.UserID {
			return apperr.ErrConflict
		}
	}
	p.JoinedAt = time.Now()
	m.members[p.RoomID] = append(m.members[p.RoomID], *p)
	return nil
}

func (m *memRooms) RemoveParticipant(_ context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.members[roomID]
	for i, p := range list {
		if p.UserID == userID {
			m.members[roomID] = append(list[:i], list[i+1:]...)
			if r := m.rooms[roomID]; r.MainPlannerID != nil && *r.MainPlannerID == userID {
				r.MainPlannerID = nil
			}
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *memRooms) ParticipantRole(_ context.Context, roomID, userID string) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.members[roomID] {
		if p.UserID == userID {
			return p.Role, nil
		}
	}
	return "", apperr.ErrNotFound
}

// ParticipantCount lets memRooms double as the enforcer's usage counter.
func (m *memRooms) ParticipantCount(_ context.Context, roomID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members[roomID]), nil
}

func (m *memRooms) DailyRecordingCount(context.Context, model.UsageScope, time.Time, *time.Location) (int, error) {
	return 0, nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	dates    []time.Time
}

func newMemSessions(sessions ...*model.Session) *memSessions {
	m := &memSessions{sessions: map[string]*model.Session{}}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *memSessions) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = "sess-" + s.Title
	s.Status = model.SessionRunning
	s.StartedAt = time.Now()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) GetSessionByID(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) CompleteSession(_ context.Context, id, userID string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID || s.Status != model.SessionRunning {
		return nil, apperr.ErrNotFound
	}
	now := time.Now()
	s.Status, s.CompletedAt = model.SessionCompleted, &now
	cp := *s
	return &cp, nil
}

func (m *memSessions) CompletedSessionDates(context.Context, string, *time.Location) ([]time.Time, error) {
	return m.dates, nil
}

type memRecordings struct {
	mu      sync.Mutex
	byID    map[string]*model.RecordingDetail
	session *memSessions
}

func newMemRecordings(sessions *memSessions) *memRecordings {
	return &memRecordings{byID: map[string]*model.RecordingDetail{}, session: sessions}
}

func (m *memRecordings) CreateRecording(ctx context.Context, rec *model.Recording) error {
	sess, err := m.session.GetSessionByID(ctx, rec.SessionID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.SessionID == rec.SessionID {
			return apperr.ErrConflict
		}
	}
	rec.ID = "rec-" + rec.SessionID
	rec.CreatedAt = time.Now()
	m.byID[rec.ID] = &model.RecordingDetail{Recording: *rec, RoomID: sess.RoomID, OwnerID: sess.UserID}
	return nil
}

func (m *memRecordings) GetRecordingDetail(_ context.Context, id string) (*model.RecordingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memRecordings) ListWithLocator(context.Context) ([]model.RecordingWithOwner, error) {
	return nil, nil
}

func (m *memRecordings) ClearLocator(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		d.StoragePath, d.DurationSeconds = nil, nil
		return nil
	}
	return apperr.ErrNotFound
}

// roomUsage counts recordings per room for the enforcer.
type roomUsage struct {
	*memRooms
	recordings *memRecordings
}

func (u roomUsage) DailyRecordingCount(_ context.Context, scope model.UsageScope, _ time.Time, _ *time.Location) (int, error) {
	u.recordings.mu.Lock()
	defer u.recordings.mu.Unlock()
	n := 0
	for _, d := range u.recordings.byID {
		if d.HasFile() && ((scope.Kind == model.ScopeRoom && d.RoomID == scope.ID) || (scope.Kind == model.ScopeUser && d.OwnerID == scope.ID)) {
			n++
		}
	}
	return n, nil
}
