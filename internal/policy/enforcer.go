// Package policy decides what a plan allows: recording quotas, participant
// caps and recording retention.
package policy

import (
	"context"
	"fmt"
	"time"

	"pomoroom/internal/apperr"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/rs/zerolog"
)

// Reason codes carried by a denied Decision.
const (
	ReasonRecordingLimitExceeded   = "RECORDING_LIMIT_EXCEEDED"
	ReasonParticipantLimitExceeded = "PARTICIPANT_LIMIT_EXCEEDED"
)

// UsageCounter answers the read-only counts the enforcer needs.
type UsageCounter interface {
	DailyRecordingCount(ctx context.Context, scope model.UsageScope, ref time.Time, loc *time.Location) (int, error)
	ParticipantCount(ctx context.Context, roomID string) (int, error)
}

// ResolvedPlan is the plan in effect for a user or room right now.
type ResolvedPlan struct {
	Tier      plan.Tier
	Limits    plan.Limits
	OwnerID   string
	OwnerName string
}

// PlanResolver looks up the plan currently in effect. Both methods return
// apperr.ErrNotFound for unknown ids.
type PlanResolver interface {
	ResolveUser(ctx context.Context, userID string) (*ResolvedPlan, error)
	ResolveRoom(ctx context.Context, roomID string) (*ResolvedPlan, error)
}

// Membership reports a user's role in a room, or apperr.ErrNotFound when the
// user is not a participant.
type Membership interface {
	ParticipantRole(ctx context.Context, roomID, userID string) (model.Role, error)
}

// Decision is the outcome of a limit check. A denial is a successful check
// with Allowed=false; errors are reserved for checks that could not run.
type Decision struct {
	Allowed      bool      `json:"allowed"`
	CurrentCount int       `json:"current_count"`
	MaxCount     int       `json:"max_count"`
	PlanTier     plan.Tier `json:"plan_tier"`
	PlanName     string    `json:"plan_name"`
	OwnerName    string    `json:"owner_name,omitempty"`
	ReasonCode   string    `json:"reason_code,omitempty"`
}

// Options tune an Enforcer. Zero values pick UTC, time.Now and no timeout.
type Options struct {
	// Location defines where "today" starts for daily quotas.
	Location *time.Location
	// QueryTimeout bounds each counter/resolver call.
	QueryTimeout time.Duration
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Enforcer combines usage counts with the plan in effect. It never writes:
// callers turn a denied Decision into a rejected request. Two requests that
// check concurrently can both pass and overshoot the quota by one; quotas
// are soft limits.
type Enforcer struct {
	usage   UsageCounter
	plans   PlanResolver
	members Membership
	catalog *plan.Catalog
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewEnforcer wires an Enforcer.
func NewEnforcer(usage UsageCounter, plans PlanResolver, members Membership, catalog *plan.Catalog, opts Options) *Enforcer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Enforcer{
		usage:   usage,
		plans:   plans,
		members: members,
		catalog: catalog,
		loc:     opts.Location,
		timeout: opts.QueryTimeout,
		now:     opts.Now,
		logger:  opts.Logger.With().Str("service", "Enforcer").Logger(),
	}
}

// Location is the day-boundary location used for daily quotas.
func (e *Enforcer) Location() *time.Location { return e.loc }

func (e *Enforcer) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Enforcer) resolve(ctx context.Context, scope model.UsageScope) (*ResolvedPlan, error) {
	qctx, cancel := e.bounded(ctx)
	defer cancel()
	switch scope.Kind {
	case model.ScopeUser:
		return e.plans.ResolveUser(qctx, scope.ID)
	case model.ScopeRoom:
		return e.plans.ResolveRoom(qctx, scope.ID)
	default:
		return nil, fmt.Errorf("%w: unknown scope kind %q", apperr.ErrInvalid, scope.Kind)
	}
}

func (e *Enforcer) dailyCount(ctx context.Context, scope model.UsageScope) (int, error) {
	qctx, cancel := e.bounded(ctx)
	defer cancel()
	n, err := e.usage.DailyRecordingCount(qctx, scope, e.now(), e.loc)
	if err != nil {
		return 0, fmt.Errorf("count recordings for %s %s: %w", scope.Kind, scope.ID, err)
	}
	return n, nil
}

func (e *Enforcer) decision(p *ResolvedPlan, current, limit int, allowed bool, reason string) Decision {
	d := Decision{
		Allowed:      allowed,
		CurrentCount: current,
		MaxCount:     limit,
		PlanTier:     p.Tier,
		PlanName:     e.catalog.DisplayName(p.Tier),
		OwnerName:    p.OwnerName,
	}
	if !allowed {
		d.ReasonCode = reason
	}
	return d
}

// CanRecord checks whether one more recording fits today's quota of scope.
// A scope already at its maximum is denied.
func (e *Enforcer) CanRecord(ctx context.Context, scope model.UsageScope) (Decision, error) {
	p, err := e.resolve(ctx, scope)
	if err != nil {
		return Decision{}, err
	}
	current, err := e.dailyCount(ctx, scope)
	if err != nil {
		return Decision{}, err
	}
	limit := p.Limits.MaxDailyRecordings
	d := e.decision(p, current, limit, current < limit, ReasonRecordingLimitExceeded)
	if !d.Allowed {
		e.logger.Info().Str("scope", string(scope.Kind)).Str("scope_id", scope.ID).
			Int("current", current).Int("max", limit).Msg("Recording denied by daily limit")
	}
	return d, nil
}

// CanRecordInRoom checks both quotas a recording by userID in roomID counts
// against: the user's own plan and the room's plan. A denial on either scope
// is returned, the user's first. When both allow, the scope with less
// headroom left is reported. userID must be a participant of the room.
func (e *Enforcer) CanRecordInRoom(ctx context.Context, roomID, userID string) (Decision, error) {
	if err := e.requireMember(ctx, roomID, userID); err != nil {
		return Decision{}, err
	}
	own, err := e.CanRecord(ctx, model.UserScope(userID))
	if err != nil {
		return Decision{}, err
	}
	if !own.Allowed {
		return own, nil
	}
	room, err := e.CanRecord(ctx, model.RoomScope(roomID))
	if err != nil {
		return Decision{}, err
	}
	if !room.Allowed || room.MaxCount-room.CurrentCount <= own.MaxCount-own.CurrentCount {
		return room, nil
	}
	return own, nil
}

// CanUpload checks whether a batch of incrementBy recordings fits today's
// quota of the room. The batch is allowed when the total after upload stays
// at or below the maximum. userID must be a participant of the room.
func (e *Enforcer) CanUpload(ctx context.Context, roomID, userID string, incrementBy int) (Decision, error) {
	if incrementBy < 1 {
		return Decision{}, fmt.Errorf("%w: upload batch size must be at least 1", apperr.ErrInvalid)
	}
	if err := e.requireMember(ctx, roomID, userID); err != nil {
		return Decision{}, err
	}
	scope := model.RoomScope(roomID)
	p, err := e.resolve(ctx, scope)
	if err != nil {
		return Decision{}, err
	}
	current, err := e.dailyCount(ctx, scope)
	if err != nil {
		return Decision{}, err
	}
	limit := p.Limits.MaxDailyRecordings
	return e.decision(p, current, limit, current+incrementBy <= limit, ReasonRecordingLimitExceeded), nil
}

// CanAddParticipant checks the room's participant cap against the plan of
// its main planner (or creator). actingPlannerID must hold the planner role.
func (e *Enforcer) CanAddParticipant(ctx context.Context, roomID, actingPlannerID string) (Decision, error) {
	role, err := e.role(ctx, roomID, actingPlannerID)
	if err != nil {
		return Decision{}, err
	}
	if role != model.RolePlanner {
		return Decision{}, fmt.Errorf("%w: only planners can add participants", apperr.ErrForbidden)
	}
	p, err := e.resolve(ctx, model.RoomScope(roomID))
	if err != nil {
		return Decision{}, err
	}
	qctx, cancel := e.bounded(ctx)
	defer cancel()
	current, err := e.usage.ParticipantCount(qctx, roomID)
	if err != nil {
		return Decision{}, fmt.Errorf("count participants for room %s: %w", roomID, err)
	}
	limit := p.Limits.MaxParticipants
	return e.decision(p, current, limit, current < limit, ReasonParticipantLimitExceeded), nil
}

func (e *Enforcer) role(ctx context.Context, roomID, userID string) (model.Role, error) {
	qctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.members.ParticipantRole(qctx, roomID, userID)
}

func (e *Enforcer) requireMember(ctx context.Context, roomID, userID string) error {
	_, err := e.role(ctx, roomID, userID)
	return err
}

// DeniedError carries a denied Decision out of a service that refused a
// write because of it.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %d of %d used on plan %s", e.Decision.ReasonCode, e.Decision.CurrentCount, e.Decision.MaxCount, e.Decision.PlanTier)
}
