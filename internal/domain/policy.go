package domain

import "time"

// Policy constants. These are defaults for application config so product can
// tune them without touching call sites.
const (
	DefaultReferralBonus   = 10.0
	DefaultReviewBonus     = 1.0
	DefaultWeeklyReviewCap = 2
)

// CanAwardReviewCredit reports whether another review bonus may be granted
// this week. The cap resets naturally because callers always count entries
// from the start of the current week.
func CanAwardReviewCredit(existingCount, cap int) bool {
	return existingCount < cap
}

// StartOfWeek returns the preceding Monday 00:00 UTC for the given instant.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	diff := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -diff)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
