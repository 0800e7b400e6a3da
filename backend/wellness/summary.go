package wellness

import (
	"context"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
)

// statsWindow is the number of recent records and days the statistics cover.
const statsWindow = 7

var tips = []string{
	"Drinking a glass of water when you wake up gets your metabolism going.",
	"Sleeping 7 to 8 hours improves your focus and your mood.",
	"Walking 30 minutes a day noticeably lowers stress.",
	"Fruit and vegetables give your body the vitamins it needs.",
	"Putting the phone away an hour before bed improves your sleep.",
	"Consistency is the key: small steps lead to big changes.",
	"Stretching every morning helps your flexibility and energy.",
	"Remember to breathe deeply when you feel stressed.",
}

// weekdayInitials are single-letter Spanish day names, Sunday first.
var weekdayInitials = [...]string{"D", "L", "M", "X", "J", "V", "S"}

// DayStatus tells whether any activity was logged on a day.
type DayStatus struct {
	Date   string `json:"date"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// TrendPoint is one bar of the water chart, scaled to [0.1, 1].
type TrendPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Statistics struct {
	TotalRecords       int              `json:"totalRecords"`
	AvgWater           float64          `json:"avgWater"`
	AvgSleep           float64          `json:"avgSleep"`
	AvgMood            float64          `json:"avgMood"`
	TotalCaloriesToday int              `json:"totalCaloriesToday"`
	TotalMinutesToday  int              `json:"totalMinutesToday"`
	WaterTrend         []TrendPoint     `json:"waterTrend"`
	Goals              models.UserGoals `json:"goals"`
	ActiveDays         int              `json:"activeDays"`
	LastSevenDays      []DayStatus      `json:"lastSevenDays"`
}

type HomeSummary struct {
	Greeting string                 `json:"greeting"`
	Today    *models.WellnessRecord `json:"today"`
	Streak   int                    `json:"streak"`
	Goals    models.UserGoals       `json:"goals"`
	Tip      string                 `json:"tip"`
}

// Statistics summarises the last seven records and days.
func (s *Service) Statistics(ctx context.Context, userID string) *Statistics {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)
	records := s.GetAllRecords(ctx, userID)
	activities := s.GetAllActivities(ctx, userID)

	out := &Statistics{
		Goals:         s.GetUserGoals(ctx, userID),
		WaterTrend:    []TrendPoint{},
		LastSevenDays: make([]DayStatus, 0, statsWindow),
	}

	activeDates := make(map[string]bool, len(activities))
	for _, a := range activities {
		activeDates[a.Date] = true
		if a.Date == today {
			out.TotalCaloriesToday += a.Calories
			out.TotalMinutesToday += a.DurationMinutes
		}
	}
	for i := statsWindow - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		key := day.Format(models.DateLayout)
		status := DayStatus{Date: key, Label: weekdayInitials[day.Weekday()], Active: activeDates[key]}
		if status.Active {
			out.ActiveDays++
		}
		out.LastSevenDays = append(out.LastSevenDays, status)
	}

	if len(records) > statsWindow {
		records = records[:statsWindow]
	}
	out.TotalRecords = len(records)
	if len(records) == 0 {
		return out
	}
	var water, mood int
	var sleep float64
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		water += r.WaterGlasses
		sleep += r.SleepHours
		mood += r.Mood
		out.WaterTrend = append(out.WaterTrend, TrendPoint{Label: dayLabel(r.Date), Value: waterLevel(r.WaterGlasses)})
	}
	n := float64(len(records))
	out.AvgWater = float64(water) / n
	out.AvgSleep = sleep / n
	out.AvgMood = float64(mood) / n
	return out
}

// Home returns what the landing screen shows.
func (s *Service) Home(ctx context.Context, userID string) *HomeSummary {
	return &HomeSummary{
		Greeting: greeting(s.now().In(s.location)),
		Today:    s.GetTodayRecord(ctx, userID),
		Streak:   s.GetUserStats(ctx, userID).CurrentStreak,
		Goals:    s.GetUserGoals(ctx, userID),
		Tip:      tips[s.pick(len(tips))],
	}
}

func greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "Good morning"
	case h >= 12 && h < 20:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func waterLevel(glasses int) float64 {
	v := float64(glasses) / 10
	if v < 0.1 {
		return 0.1
	}
	if v > 1 {
		return 1
	}
	return v
}

// dayLabel is the day of month of a date key, or "??" when it is too short.
func dayLabel(date string) string {
	if len(date) < len(models.DateLayout) {
		return "??"
	}
	return date[len(date)-2:]
}
