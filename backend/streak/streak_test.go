package streak

import (
	"testing"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/stretchr/testify/assert"
)

func TestAdvanceConsecutiveDay(t *testing.T) {
	got := Advance(models.UserStats{CurrentStreak: 4, BestStreak: 4, LastLogDate: "2025-11-27"}, "2025-11-28")

	assert.Equal(t, 5, got.CurrentStreak)
	assert.Equal(t, 5, got.BestStreak)
	assert.Equal(t, "2025-11-28", got.LastLogDate)
}

func TestAdvanceGapResets(t *testing.T) {
	got := Advance(models.UserStats{CurrentStreak: 6, BestStreak: 9, LastLogDate: "2025-11-20"}, "2025-11-28")

	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 9, got.BestStreak, "best streak must not decrease")
	assert.Equal(t, "2025-11-28", got.LastLogDate)
}

func TestAdvanceSameDayIsIdempotent(t *testing.T) {
	start := models.UserStats{CurrentStreak: 3, BestStreak: 7, LastLogDate: "2025-11-28"}

	once := Advance(start, "2025-11-28")
	twice := Advance(once, "2025-11-28")

	assert.Equal(t, start, once)
	assert.Equal(t, start, twice)
}

func TestAdvanceFirstLog(t *testing.T) {
	got := Advance(models.UserStats{}, "2025-11-28")

	assert.Equal(t, models.UserStats{CurrentStreak: 1, BestStreak: 1, LastLogDate: "2025-11-28"}, got)
}

func TestAdvanceUnparseableDateResets(t *testing.T) {
	got := Advance(models.UserStats{CurrentStreak: 10, BestStreak: 10, LastLogDate: "28/11/2025"}, "2025-11-29")

	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 10, got.BestStreak)
}

func TestAdvanceFutureLastDateResets(t *testing.T) {
	got := Advance(models.UserStats{CurrentStreak: 2, BestStreak: 2, LastLogDate: "2025-12-01"}, "2025-11-28")

	assert.Equal(t, 1, got.CurrentStreak)
}

func TestAdvanceAcrossMonthAndYear(t *testing.T) {
	got := Advance(models.UserStats{CurrentStreak: 1, BestStreak: 1, LastLogDate: "2024-12-31"}, "2025-01-01")
	assert.Equal(t, 2, got.CurrentStreak)

	got = Advance(models.UserStats{CurrentStreak: 1, BestStreak: 1, LastLogDate: "2024-02-28"}, "2024-02-29")
	assert.Equal(t, 2, got.CurrentStreak)
}

func TestBestStreakIsRunningMaximum(t *testing.T) {
	days := []string{
		"2025-01-01", "2025-01-02", "2025-01-03", // 3
		"2025-01-05",               // reset
		"2025-01-06",               // 2
		"2025-01-10", "2025-01-11", // reset, 2
		"2025-01-12", "2025-01-13", // 4
	}
	var stats models.UserStats
	observedMax := 0
	prevBest := 0
	for _, day := range days {
		stats = Advance(stats, day)
		if stats.CurrentStreak > observedMax {
			observedMax = stats.CurrentStreak
		}
		assert.GreaterOrEqual(t, stats.BestStreak, prevBest)
		assert.Equal(t, observedMax, stats.BestStreak)
		prevBest = stats.BestStreak
	}
	assert.Equal(t, 4, stats.CurrentStreak)
	assert.Equal(t, 4, stats.BestStreak)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 1, DaysBetween("2025-11-27", "2025-11-28"))
	assert.Equal(t, 8, DaysBetween("2025-11-20", "2025-11-28"))
	assert.Equal(t, 0, DaysBetween("2025-11-28", "2025-11-28"))
	assert.Equal(t, -1, DaysBetween("nope", "2025-11-28"))
}

func TestAtRisk(t *testing.T) {
	assert.True(t, AtRisk(models.UserStats{CurrentStreak: 3, LastLogDate: "2025-11-27"}, "2025-11-28"))
	assert.False(t, AtRisk(models.UserStats{CurrentStreak: 3, LastLogDate: "2025-11-28"}, "2025-11-28"))
	assert.False(t, AtRisk(models.UserStats{}, "2025-11-28"))
}
