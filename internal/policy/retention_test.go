package policy

import (
	"testing"
	"time"

	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func recordingAt(created time.Time) *model.Recording {
	return &model.Recording{ID: "rec-1", SessionID: "sess-1", StoragePath: strPtr("recordings/rec-1.webm"), CreatedAt: created}
}

func TestIsExpiredBoundary(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, days := range []int{1, 7, 30, 90} {
		limits := plan.Limits{RecordingRetentionDays: days}
		rec := recordingAt(created)
		deadline := created.Add(time.Duration(days) * 24 * time.Hour)

		assert.False(t, IsExpired(rec, limits, deadline.Add(-time.Second)), "days=%d just before deadline", days)
		assert.False(t, IsExpired(rec, limits, deadline), "days=%d at deadline", days)
		assert.True(t, IsExpired(rec, limits, deadline.Add(time.Second)), "days=%d just after deadline", days)
	}
}

func TestZeroRetentionExpiresImmediately(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := recordingAt(created)
	limits := plan.Limits{RecordingRetentionDays: 0}

	assert.True(t, IsExpired(rec, limits, created.Add(time.Second)))
	assert.Equal(t, Expired, DaysUntilExpiration(rec, limits, created.Add(time.Second)))
}

func TestPurgedRecordingIsExpired(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := recordingAt(created)
	rec.StoragePath = nil
	limits := plan.Limits{RecordingRetentionDays: 30}

	assert.True(t, IsExpired(rec, limits, created))
	assert.Equal(t, Expired, MinutesUntilExpiration(rec, limits, created))

	rec.StoragePath = strPtr("")
	assert.True(t, IsExpired(rec, limits, created))
}

func TestDaysAndMinutesUntilExpiration(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := recordingAt(created)
	limits := plan.Limits{RecordingRetentionDays: 7}

	now := created.Add(2*24*time.Hour + 3*time.Hour)
	// 4 days 21 hours left.
	assert.Equal(t, 4, DaysUntilExpiration(rec, limits, now))
	assert.Equal(t, (4*24+21)*60, MinutesUntilExpiration(rec, limits, now))

	// Less than a day left is 0 days, not Expired.
	now = created.Add(7*24*time.Hour - 90*time.Second)
	assert.Equal(t, 0, DaysUntilExpiration(rec, limits, now))
	assert.Equal(t, 1, MinutesUntilExpiration(rec, limits, now))
}

func TestStatus(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := recordingAt(created)
	limits := plan.Limits{RecordingRetentionDays: 30}

	st := Status(rec, limits, created.Add(29*24*time.Hour+time.Hour), 24*time.Hour)
	assert.False(t, st.Expired)
	assert.True(t, st.ExpiringSoon)
	assert.Equal(t, 0, st.DaysLeft)
	assert.Equal(t, created.Add(30*24*time.Hour), st.ExpiresAt)

	st = Status(rec, limits, created.Add(time.Hour), 24*time.Hour)
	assert.False(t, st.ExpiringSoon)
	assert.Equal(t, 29, st.DaysLeft)

	st = Status(rec, limits, created.Add(31*24*time.Hour), 24*time.Hour)
	assert.True(t, st.Expired)
	assert.False(t, st.ExpiringSoon)
	assert.Equal(t, Expired, st.DaysLeft)
}

func TestDowngradeShortensRetention(t *testing.T) {
	catalog := plan.DefaultCatalog()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := recordingAt(created)
	now := created.Add(10 * 24 * time.Hour)

	assert.False(t, IsExpired(rec, catalog.LimitsFor(plan.TierBasic), now))
	assert.True(t, IsExpired(rec, catalog.LimitsFor(plan.TierFree), now))
}
