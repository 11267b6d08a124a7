package service

import (
	"context"
	"time"

	"pomoroom/internal/repository"

	"github.com/rs/zerolog"
)

// Streak counts consecutive days with at least one completed session.
type Streak struct {
	Current       int        `json:"current"`
	Longest       int        `json:"longest"`
	LastActiveDay *time.Time `json:"last_active_day,omitempty"`
}

// ComputeStreak derives a Streak from distinct local dates (any order) as
// seen on today. The current streak stays alive through today when the
// user's last session was yesterday.
func ComputeStreak(days []time.Time, today time.Time, loc *time.Location) Streak {
	if loc == nil {
		loc = time.UTC
	}
	seen := make(map[date]bool, len(days))
	var last time.Time
	for _, d := range days {
		local := d.In(loc)
		seen[dateOf(local)] = true
		if local.After(last) {
			last = local
		}
	}
	if len(seen) == 0 {
		return Streak{}
	}

	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
	st := Streak{LastActiveDay: &lastDay}

	for d := range seen {
		if seen[d.add(-1)] {
			continue
		}
		run := 1
		for next := d.add(1); seen[next]; next = next.add(1) {
			run++
		}
		if run > st.Longest {
			st.Longest = run
		}
	}

	cursor := dateOf(today.In(loc))
	if !seen[cursor] {
		cursor = cursor.add(-1)
	}
	for seen[cursor] {
		st.Current++
		cursor = cursor.add(-1)
	}
	return st
}

type date struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) date {
	y, m, d := t.Date()
	return date{y, m, d}
}

func (d date) add(days int) date {
	return dateOf(time.Date(d.year, d.month, d.day+days, 12, 0, 0, 0, time.UTC))
}

// StreakService reports focus streaks.
type StreakService interface {
	GetStreak(ctx context.Context, userID string) (Streak, error)
}

type streakService struct {
	sessions repository.SessionRepository
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

// NewStreakService creates a StreakService counting days in loc.
func NewStreakService(sessions repository.SessionRepository, loc *time.Location, logger zerolog.Logger) StreakService {
	return &streakService{
		sessions: sessions,
		loc:      loc,
		now:      time.Now,
		logger:   logger.With().Str("service", "StreakService").Logger(),
	}
}

func (s *streakService) GetStreak(ctx context.Context, userID string) (Streak, error) {
	days, err := s.sessions.CompletedSessionDates(ctx, userID, s.loc)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load completed session dates")
		return Streak{}, err
	}
	return ComputeStreak(days, s.now(), s.loc), nil
}
