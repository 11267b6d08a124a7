package policy

import (
	"time"

	"pomoroom/internal/model"
	"pomoroom/internal/plan"
)

// Expired is returned by DaysUntilExpiration and MinutesUntilExpiration for a
// recording whose retention has lapsed, so callers can tell it apart from
// "0 whole days left".
const Expired = -1

const day = 24 * time.Hour

// ExpiresAt is the instant the recording stops being retained under limits.
func ExpiresAt(rec *model.Recording, limits plan.Limits) time.Time {
	return rec.CreatedAt.Add(time.Duration(limits.RecordingRetentionDays) * day)
}

// IsExpired reports whether rec is past retention at now. A recording whose
// file was already purged counts as expired whatever its age.
func IsExpired(rec *model.Recording, limits plan.Limits, now time.Time) bool {
	if !rec.HasFile() {
		return true
	}
	return now.After(ExpiresAt(rec, limits))
}

// DaysUntilExpiration returns the whole days left, or Expired.
func DaysUntilExpiration(rec *model.Recording, limits plan.Limits, now time.Time) int {
	return remaining(rec, limits, now, day)
}

// MinutesUntilExpiration returns the whole minutes left, or Expired.
func MinutesUntilExpiration(rec *model.Recording, limits plan.Limits, now time.Time) int {
	return remaining(rec, limits, now, time.Minute)
}

func remaining(rec *model.Recording, limits plan.Limits, now time.Time, unit time.Duration) int {
	if IsExpired(rec, limits, now) {
		return Expired
	}
	left := ExpiresAt(rec, limits).Sub(now)
	if left < 0 {
		return 0
	}
	return int(left / unit)
}

// RetentionStatus is the retention view of one recording at a point in time.
type RetentionStatus struct {
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
	DaysLeft     int       `json:"days_left"`
	MinutesLeft  int       `json:"minutes_left"`
	ExpiringSoon bool      `json:"expiring_soon"`
}

// Status evaluates rec against limits at now. ExpiringSoon is set while the
// recording is still retained but has less than warnWithin left.
func Status(rec *model.Recording, limits plan.Limits, now time.Time, warnWithin time.Duration) RetentionStatus {
	st := RetentionStatus{
		ExpiresAt:   ExpiresAt(rec, limits),
		Expired:     IsExpired(rec, limits, now),
		DaysLeft:    DaysUntilExpiration(rec, limits, now),
		MinutesLeft: MinutesUntilExpiration(rec, limits, now),
	}
	if !st.Expired && st.ExpiresAt.Sub(now) < warnWithin {
		st.ExpiringSoon = true
	}
	return st
}
