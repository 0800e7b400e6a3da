// Package reminders resolves reminder trigger times and arms timers for them.
package reminders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
)

// ErrNoTrigger is returned when a reminder has no next firing time, either
// because its time of day is malformed or because no enabled weekday was
// found within a week. Callers must treat it as "do not schedule".
var ErrNoTrigger = errors.New("reminder has no next trigger time")

// maxScanDays bounds the forward search over weekdays.
const maxScanDays = 7

var timeLayouts = []string{
	"3:04 PM",
	"3:04PM",
	"15:04",
}

// ParseTimeOfDay parses "08:00 AM", "8:00 pm" or "20:00" into hour and minute.
func ParseTimeOfDay(value string) (int, int, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid time of day %q", value)
}

// WeekdayNumber maps a Go weekday onto the 1=Sunday..7=Saturday numbering
// stored on reminders.
func WeekdayNumber(d time.Weekday) int {
	return int(d) + 1
}

// NextTrigger returns the next moment after now at which the reminder
// should fire, in now's location.
func NextTrigger(reminder models.Reminder, now time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(reminder.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoTrigger, err)
	}

	enabled := make(map[int]bool, len(reminder.DaysOfWeek))
	for _, d := range reminder.DaysOfWeek {
		enabled[d] = true
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	for i := 0; i < maxScanDays; i++ {
		if enabled[WeekdayNumber(candidate.Weekday())] {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return time.Time{}, ErrNoTrigger
}

// RepeatInterval is the recurring cadence of a reminder, or zero for a
// one-shot reminder.
func RepeatInterval(reminder models.Reminder) time.Duration {
	if reminder.RepeatIntervalHours <= 0 {
		return 0
	}
	return time.Duration(reminder.RepeatIntervalHours) * time.Hour
}
