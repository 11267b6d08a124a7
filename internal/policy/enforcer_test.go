package policy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Fakes
// ============================================================

type fakeUsage struct {
	mu           sync.Mutex
	daily        map[model.UsageScope]int
	participants map[string]int
	err          error

	lastRef time.Time
	lastLoc *time.Location
}

func (f *fakeUsage) DailyRecordingCount(_ context.Context, scope model.UsageScope, ref time.Time, loc *time.Location) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRef, f.lastLoc = ref, loc
	if f.err != nil {
		return 0, f.err
	}
	return f.daily[scope], nil
}

func (f *fakeUsage) ParticipantCount(_ context.Context, roomID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.participants[roomID], nil
}

type fakePlans struct {
	users map[string]*ResolvedPlan
	rooms map[string]*ResolvedPlan
}

func (f *fakePlans) ResolveUser(_ context.Context, userID string) (*ResolvedPlan, error) {
	p, ok := f.users[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (f *fakePlans) ResolveRoom(_ context.Context, roomID string) (*ResolvedPlan, error) {
	p, ok := f.rooms[roomID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

type fakeMembers map[string]model.Role

func (f fakeMembers) ParticipantRole(_ context.Context, roomID, userID string) (model.Role, error) {
	role, ok := f[roomID+"/"+userID]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return role, nil
}

// ============================================================
// Helpers
// ============================================================

var fixedNow = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func resolved(catalog *plan.Catalog, tier plan.Tier, owner string) *ResolvedPlan {
	return &ResolvedPlan{Tier: tier, Limits: catalog.LimitsFor(tier), OwnerID: owner, OwnerName: owner + " name"}
}

func newTestEnforcer(usage *fakeUsage, plans *fakePlans, members fakeMembers) *Enforcer {
	return NewEnforcer(usage, plans, members, plan.DefaultCatalog(), Options{
		Now:          func() time.Time { return fixedNow },
		QueryTimeout: time.Second,
		Logger:       zerolog.Nop(),
	})
}

// ============================================================
// CanRecord
// ============================================================

func TestCanRecordFreeUserAtLimit(t *testing.T) {
	catalog := plan.DefaultCatalog()
	usage := &fakeUsage{daily: map[model.UsageScope]int{model.UserScope("u1"): 1}}
	plans := &fakePlans{users: map[string]*ResolvedPlan{"u1": resolved(catalog, plan.TierFree, "u1")}}
	e := newTestEnforcer(usage, plans, nil)

	d, err := e.CanRecord(context.Background(), model.UserScope("u1"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.CurrentCount)
	assert.Equal(t, 1, d.MaxCount)
	assert.Equal(t, plan.TierFree, d.PlanTier)
	assert.Equal(t, "Free", d.PlanName)
	assert.Equal(t, ReasonRecordingLimitExceeded, d.ReasonCode)
}

func TestCanRecordBoundary(t *testing.T) {
	catalog := plan.DefaultCatalog()
	max := catalog.LimitsFor(plan.TierBasic).MaxDailyRecordings
	plans := &fakePlans{users: map[string]*ResolvedPlan{"u1": resolved(catalog, plan.TierBasic, "u1")}}

	usage := &fakeUsage{daily: map[model.UsageScope]int{model.UserScope("u1"): max - 1}}
	d, err := newTestEnforcer(usage, plans, nil).CanRecord(context.Background(), model.UserScope("u1"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.ReasonCode)

	usage = &fakeUsage{daily: map[model.UsageScope]int{model.UserScope("u1"): max}}
	d, err = newTestEnforcer(usage, plans, nil).CanRecord(context.Background(), model.UserScope("u1"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCanRecordPassesClockAndLocation(t *testing.T) {
	catalog := plan.DefaultCatalog()
	loc := time.FixedZone("UTC+9", 9*3600)
	usage := &fakeUsage{}
	plans := &fakePlans{users: map[string]*ResolvedPlan{"u1": resolved(catalog, plan.TierFree, "u1")}}
	e := NewEnforcer(usage, plans, nil, catalog, Options{Location: loc, Now: func() time.Time { return fixedNow }})

	_, err := e.CanRecord(context.Background(), model.UserScope("u1"))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, usage.lastRef)
	assert.Equal(t, loc, usage.lastLoc)
	assert.Equal(t, loc, e.Location())
}

func TestCanRecordRoomScopeUsesRoomPlan(t *testing.T) {
	catalog := plan.DefaultCatalog()
	usage := &fakeUsage{daily: map[model.UsageScope]int{model.RoomScope("r1"): 3}}
	plans := &fakePlans{rooms: map[string]*ResolvedPlan{"r1": resolved(catalog, plan.TierBasic, "owner")}}

	d, err := newTestEnforcer(usage, plans, nil).CanRecord(context.Background(), model.RoomScope("r1"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "owner name", d.OwnerName)
	assert.Equal(t, 5, d.MaxCount)
}

func TestCanRecordErrorsAreNotDenials(t *testing.T) {
	catalog := plan.DefaultCatalog()
	plans := &fakePlans{users: map[string]*ResolvedPlan{"u1": resolved(catalog, plan.TierFree, "u1")}}

	_, err := newTestEnforcer(&fakeUsage{}, plans, nil).CanRecord(context.Background(), model.UserScope("missing"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	storeDown := errors.New("connection refused")
	_, err = newTestEnforcer(&fakeUsage{err: storeDown}, plans, nil).CanRecord(context.Background(), model.UserScope("u1"))
	assert.ErrorIs(t, err, storeDown)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)

	_, err = newTestEnforcer(&fakeUsage{}, plans, nil).CanRecord(context.Background(), model.UsageScope{Kind: "team", ID: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestCanRecordInRoomChecksUserAndRoom(t *testing.T) {
	catalog := plan.DefaultCatalog()
	plans := &fakePlans{
		users: map[string]*ResolvedPlan{
			"guest": resolved(catalog, plan.TierFree, "guest"),
			"pro":   resolved(catalog, plan.TierPro, "pro"),
		},
		rooms: map[string]*ResolvedPlan{
			"pro-room":  resolved(catalog, plan.TierPro, "owner"),
			"free-room": resolved(catalog, plan.TierFree, "owner"),
		},
	}
	members := fakeMembers{"pro-room/guest": model.RolePerformer, "free-room/pro": model.RolePerformer}

	// A FREE user with a recording today is capped even in a PRO room.
	usage := &fakeUsage{daily: map[model.UsageScope]int{model.UserScope("guest"): 1}}
	d, err := newTestEnforcer(usage, plans, members).CanRecordInRoom(context.Background(), "pro-room", "guest")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, plan.TierFree, d.PlanTier)
	assert.Equal(t, 1, d.MaxCount)

	// A PRO user is capped by a full FREE room.
	usage = &fakeUsage{daily: map[model.UsageScope]int{model.RoomScope("free-room"): 1}}
	d, err = newTestEnforcer(usage, plans, members).CanRecordInRoom(context.Background(), "free-room", "pro")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "owner name", d.OwnerName)
	assert.Equal(t, ReasonRecordingLimitExceeded, d.ReasonCode)

	// Both allow: the tighter scope is reported.
	usage = &fakeUsage{}
	d, err = newTestEnforcer(usage, plans, members).CanRecordInRoom(context.Background(), "free-room", "pro")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, plan.TierFree, d.PlanTier)

	_, err = newTestEnforcer(usage, plans, members).CanRecordInRoom(context.Background(), "pro-room", "pro")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ============================================================
// CanUpload
// ============================================================

func TestCanUploadBatchBoundary(t *testing.T) {
	catalog := plan.DefaultCatalog()
	max := catalog.LimitsFor(plan.TierPro).MaxDailyRecordings
	plans := &fakePlans{rooms: map[string]*ResolvedPlan{"r1": resolved(catalog, plan.TierPro, "owner")}}
	members := fakeMembers{"r1/u1": model.RolePerformer}

	usage := &fakeUsage{daily: map[model.UsageScope]int{model.RoomScope("r1"): max - 3}}
	d, err := newTestEnforcer(usage, plans, members).CanUpload(context.Background(), "r1", "u1", 3)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, max-3, d.CurrentCount)

	usage = &fakeUsage{daily: map[model.UsageScope]int{model.RoomScope("r1"): max - 2}}
	d, err = newTestEnforcer(usage, plans, members).CanUpload(context.Background(), "r1", "u1", 3)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRecordingLimitExceeded, d.ReasonCode)
}

func TestCanUploadSingleAtMaxDiffersFromRecord(t *testing.T) {
	catalog := plan.DefaultCatalog()
	plans := &fakePlans{rooms: map[string]*ResolvedPlan{"r1": resolved(catalog, plan.TierBasic, "owner")}}
	members := fakeMembers{"r1/u1": model.RolePlanner}
	usage := &fakeUsage{daily: map[model.UsageScope]int{model.RoomScope("r1"): 4}}
	e := newTestEnforcer(usage, plans, members)

	// One more brings the room exactly to its max of 5.
	d, err := e.CanUpload(context.Background(), "r1", "u1", 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = e.CanUpload(context.Background(), "r1", "u1", 2)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCanUploadRequiresMembershipAndPositiveBatch(t *testing.T) {
	catalog := plan.DefaultCatalog()
	plans := &fakePlans{rooms: map[string]*ResolvedPlan{"r1": resolved(catalog, plan.TierBasic, "owner")}}
	e := newTestEnforcer(&fakeUsage{}, plans, fakeMembers{})

	_, err := e.CanUpload(context.Background(), "r1", "stranger", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.CanUpload(context.Background(), "r1", "stranger", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

// ============================================================
// CanAddParticipant
// ============================================================

func TestCanAddParticipant(t *testing.T) {
	catalog := plan.DefaultCatalog()
	plans := &fakePlans{rooms: map[string]*ResolvedPlan{"r1": resolved(catalog, plan.TierFree, "creator")}}
	members := fakeMembers{"r1/creator": model.RolePlanner, "r1/perf": model.RolePerformer}

	usage := &fakeUsage{participants: map[string]int{"r1": 1}}
	d, err := newTestEnforcer(usage, plans, members).CanAddParticipant(context.Background(), "r1", "creator")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.MaxCount)

	usage = &fakeUsage{participants: map[string]int{"r1": 2}}
	d, err = newTestEnforcer(usage, plans, members).CanAddParticipant(context.Background(), "r1", "creator")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonParticipantLimitExceeded, d.ReasonCode)
	assert.Equal(t, "creator name", d.OwnerName)
	assert.Equal(t, "Free", d.PlanName)
}

func TestCanAddParticipantRoleChecks(t *testing.T) {
	catalog := plan.DefaultCatalog()
	plans := &fakePlans{rooms: map[string]*ResolvedPlan{"r1": resolved(catalog, plan.TierFree, "creator")}}
	members := fakeMembers{"r1/perf": model.RolePerformer}
	e := newTestEnforcer(&fakeUsage{}, plans, members)

	_, err := e.CanAddParticipant(context.Background(), "r1", "perf")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.CanAddParticipant(context.Background(), "r1", "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
