package chrono_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronovault/internal/chrono"
)

func TestIsUnlocked_Boundary(t *testing.T) {
	const unlock = int64(100)
	assert.False(t, chrono.IsUnlocked(unlock, 99_999))
	assert.True(t, chrono.IsUnlocked(unlock, 100_000))
	assert.True(t, chrono.IsUnlocked(unlock, 100_001))
}

func TestIsUnlocked_Monotonic(t *testing.T) {
	const unlock = int64(1705318200)
	seen := false
	for now := (unlock - 5) * 1000; now <= (unlock+5)*1000; now += 250 {
		got := chrono.IsUnlocked(unlock, now)
		if seen {
			require.True(t, got, "once unlocked a seal stays unlocked (now=%d)", now)
		}
		seen = got
		assert.Equal(t, got, chrono.Remaining(unlock, now) == nil, "Remaining nil iff unlocked (now=%d)", now)
	}
	assert.True(t, seen)
}

func TestIsUnlocked_ExtremeUnlockTimes(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).UnixMilli()

	for _, unlock := range []int64{9_300_000_000_000_000, math.MaxInt64/1000 + 1, math.MaxInt64} {
		assert.False(t, chrono.IsUnlocked(unlock, now), "unlock=%d", unlock)
		c := chrono.Remaining(unlock, now)
		require.NotNil(t, c, "unlock=%d", unlock)
		assert.Positive(t, c.Days)
	}

	assert.True(t, chrono.IsUnlocked(math.MinInt64, now))
	assert.Nil(t, chrono.Remaining(math.MinInt64, now))
}

func TestRemaining(t *testing.T) {
	unlock := int64(1_000_000)
	unlockMs := unlock * 1000

	tests := []struct {
		name string
		diff int64
		want *chrono.Countdown
	}{
		{"all units", (26*3600+3*60+4)*1000 + 500, &chrono.Countdown{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}},
		{"under a second", 1, &chrono.Countdown{}},
		{"exactly one hour", 3600 * 1000, &chrono.Countdown{Hours: 1}},
		{"one second short of an hour", 3599 * 1000, &chrono.Countdown{Minutes: 59, Seconds: 59}},
		{"unlocked", 0, nil},
		{"past", -5000, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chrono.Remaining(unlock, unlockMs-tt.diff))
		})
	}
}

func TestTimeHelpers(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	unlock := now.Add(90 * time.Minute).Unix()

	assert.False(t, chrono.UnlockedAt(unlock, now))
	assert.Equal(t, &chrono.Countdown{Hours: 1, Minutes: 30}, chrono.RemainingAt(unlock, now))
	assert.True(t, chrono.UnlockedAt(unlock, now.Add(90*time.Minute)))
	assert.Nil(t, chrono.RemainingAt(unlock, now.Add(2*time.Hour)))
}

func TestCountdown_Format(t *testing.T) {
	tests := []struct {
		c       chrono.Countdown
		str     string
		summary string
	}{
		{chrono.Countdown{Days: 2, Hours: 3, Minutes: 15, Seconds: 9}, "2d 03h 15m 09s", "unlocks in 2 days"},
		{chrono.Countdown{Days: 1}, "1d 00h 00m 00s", "unlocks in 1 day"},
		{chrono.Countdown{Hours: 5, Minutes: 1}, "0d 05h 01m 00s", "unlocks in 5 hours"},
		{chrono.Countdown{Minutes: 1, Seconds: 30}, "0d 00h 01m 30s", "unlocks in 1 minute"},
		{chrono.Countdown{Seconds: 30}, "0d 00h 00m 30s", "unlocks in 0 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.c.String())
			assert.Equal(t, tt.summary, tt.c.Summary())
		})
	}
}
