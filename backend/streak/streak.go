// Package streak computes consecutive-day logging streaks.
package streak

import (
	"time"

	"github.com/jghoshh/bienestar/backend/models"
)

// Advance returns the stats after a log event on today (a YYYY-MM-DD key).
//
// Logging again on the same day changes nothing. Logging the day after the
// last log extends the streak by one. Any other gap, a missing last date or
// an unparseable one starts a new streak of one. BestStreak is the running
// maximum.
func Advance(current models.UserStats, today string) models.UserStats {
	if current.LastLogDate == today {
		return current
	}

	next := current
	next.CurrentStreak = 1
	if current.LastLogDate != "" && DaysBetween(current.LastLogDate, today) == 1 {
		next.CurrentStreak = current.CurrentStreak + 1
	}
	if next.CurrentStreak > current.BestStreak {
		next.BestStreak = next.CurrentStreak
	}
	next.LastLogDate = today
	return next
}

// DaysBetween returns the number of calendar days from a to b. It returns
// -1 when either key fails to parse.
func DaysBetween(a, b string) int {
	from, err := time.Parse(models.DateLayout, a)
	if err != nil {
		return -1
	}
	to, err := time.Parse(models.DateLayout, b)
	if err != nil {
		return -1
	}
	// both parse as UTC midnight, so the difference is a whole number of days
	return int(to.Sub(from).Hours() / 24)
}

// AtRisk reports whether a positive streak will be lost if nothing is
// logged on today.
func AtRisk(stats models.UserStats, today string) bool {
	return stats.CurrentStreak > 0 && stats.LastLogDate != today
}
