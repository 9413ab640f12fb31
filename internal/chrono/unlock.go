package chrono

import (
	"fmt"
	"math"
	"time"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour

	maxUnlockSeconds = math.MaxInt64 / msPerSecond
	minUnlockSeconds = math.MinInt64 / msPerSecond
)

// unlockMillis converts an unlock time to milliseconds, saturating instead of
// wrapping so far-future seals stay locked.
func unlockMillis(unlockTimeSeconds int64) int64 {
	switch {
	case unlockTimeSeconds > maxUnlockSeconds:
		return math.MaxInt64
	case unlockTimeSeconds < minUnlockSeconds:
		return math.MinInt64
	default:
		return unlockTimeSeconds * msPerSecond
	}
}

// IsUnlocked reports whether a seal with the given unlock time (unix seconds)
// is naturally revealable at nowMillis (unix milliseconds).
func IsUnlocked(unlockTimeSeconds, nowMillis int64) bool {
	return unlockMillis(unlockTimeSeconds) <= nowMillis
}

// Countdown is the time left until a seal unlocks, largest unit first.
type Countdown struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Remaining returns the countdown to unlockTimeSeconds, or nil if the seal is
// already unlocked at nowMillis. Each unit is floored; nothing is rounded.
func Remaining(unlockTimeSeconds, nowMillis int64) *Countdown {
	unlock := unlockMillis(unlockTimeSeconds)
	if unlock <= nowMillis {
		return nil
	}
	diff := unlock - nowMillis
	return &Countdown{
		Days:    diff / msPerDay,
		Hours:   (diff % msPerDay) / msPerHour,
		Minutes: (diff % msPerHour) / msPerMinute,
		Seconds: (diff % msPerMinute) / msPerSecond,
	}
}

// UnlockedAt is IsUnlocked for a time.Time.
func UnlockedAt(unlockTimeSeconds int64, now time.Time) bool {
	return IsUnlocked(unlockTimeSeconds, now.UnixMilli())
}

// RemainingAt is Remaining for a time.Time.
func RemainingAt(unlockTimeSeconds int64, now time.Time) *Countdown {
	return Remaining(unlockTimeSeconds, now.UnixMilli())
}

// String renders the full countdown, e.g. "2d 03h 15m 09s".
func (c *Countdown) String() string {
	return fmt.Sprintf("%dd %02dh %02dm %02ds", c.Days, c.Hours, c.Minutes, c.Seconds)
}

// Summary renders only the largest non-zero unit, for list views.
func (c *Countdown) Summary() string {
	switch {
	case c.Days > 0:
		return fmt.Sprintf("unlocks in %d %s", c.Days, plural(c.Days, "day"))
	case c.Hours > 0:
		return fmt.Sprintf("unlocks in %d %s", c.Hours, plural(c.Hours, "hour"))
	default:
		return fmt.Sprintf("unlocks in %d %s", c.Minutes, plural(c.Minutes, "minute"))
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
