package wellness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jghoshh/bienestar/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, f *fixture, records []models.WellnessRecord, activities []models.ActivityLog) {
	t.Helper()
	ctx := context.Background()
	for _, r := range records {
		r.UserID = user
		require.NoError(t, f.store.SaveRecord(ctx, r))
	}
	for _, a := range activities {
		a.UserID = user
		require.NoError(t, f.store.SaveActivity(ctx, a))
	}
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	seed(t, f,
		[]models.WellnessRecord{
			{Date: "2025-11-28", WaterGlasses: 4, SleepHours: 7, Mood: 5},
			{Date: "2025-11-27", WaterGlasses: 12, SleepHours: 8, Mood: 3},
			{Date: "2025-11-25", WaterGlasses: 0, SleepHours: 6, Mood: 1},
		},
		[]models.ActivityLog{
			{ID: "a1", Name: "Run", Date: "2025-11-28", DurationMinutes: 30, Calories: 200},
			{ID: "a2", Name: "Yoga", Date: "2025-11-28", DurationMinutes: 20, Calories: 100},
			{ID: "a3", Name: "Walk", Date: "2025-11-24", DurationMinutes: 45, Calories: 150},
			{ID: "a4", Name: "Bike", Date: "2025-11-10", DurationMinutes: 60, Calories: 400},
		})

	got := f.svc.Statistics(context.Background(), user)

	want := &Statistics{
		TotalRecords:       3,
		AvgWater:           16.0 / 3,
		AvgSleep:           21.0 / 3,
		AvgMood:            9.0 / 3,
		TotalCaloriesToday: 300,
		TotalMinutesToday:  50,
		WaterTrend: []TrendPoint{
			{Label: "25", Value: 0.1},
			{Label: "27", Value: 1},
			{Label: "28", Value: 0.4},
		},
		Goals:      models.UserGoals{UserID: user, WaterGoal: 8, SleepGoal: 8, DailyCaloriesGoal: 5000, WeeklyWorkoutDaysGoal: 7},
		ActiveDays: 2,
		LastSevenDays: []DayStatus{
			{Date: "2025-11-22", Label: "S"},
			{Date: "2025-11-23", Label: "D"},
			{Date: "2025-11-24", Label: "L", Active: true},
			{Date: "2025-11-25", Label: "M"},
			{Date: "2025-11-26", Label: "X"},
			{Date: "2025-11-27", Label: "J"},
			{Date: "2025-11-28", Label: "V", Active: true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Statistics() mismatch (-want +got):\n%s", diff)
	}
}

func TestStatisticsUsesSevenMostRecentRecords(t *testing.T) {
	f := newFixture(t)
	var records []models.WellnessRecord
	for day := 10; day <= 19; day++ {
		records = append(records, models.WellnessRecord{Date: fmt.Sprintf("2025-11-%02d", day), WaterGlasses: 5, Mood: 3})
	}
	seed(t, f, records, nil)

	got := f.svc.Statistics(context.Background(), user)
	assert.Equal(t, 7, got.TotalRecords)
	require.Len(t, got.WaterTrend, 7)
	assert.Equal(t, "13", got.WaterTrend[0].Label)
	assert.Equal(t, "19", got.WaterTrend[6].Label)
	assert.Equal(t, 5.0, got.AvgWater)
}

func TestStatisticsEmpty(t *testing.T) {
	f := newFixture(t)
	got := f.svc.Statistics(context.Background(), user)
	assert.Zero(t, got.TotalRecords)
	assert.Zero(t, got.AvgMood)
	assert.Empty(t, got.WaterTrend)
	assert.Len(t, got.LastSevenDays, 7)
	assert.Zero(t, got.ActiveDays)
}

func TestHome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SaveRecord(ctx, user, models.WellnessRecord{WaterGlasses: 3})
	require.NoError(t, err)

	home := f.svc.Home(ctx, user)
	assert.Equal(t, "Good morning", home.Greeting)
	require.NotNil(t, home.Today)
	assert.Equal(t, 3, home.Today.WaterGlasses)
	assert.Equal(t, 1, home.Streak)
	assert.Equal(t, tips[0], home.Tip)
}

func TestGreeting(t *testing.T) {
	for hour, want := range map[int]string{
		4:  "Good evening",
		5:  "Good morning",
		11: "Good morning",
		12: "Good afternoon",
		19: "Good afternoon",
		20: "Good evening",
	} {
		assert.Equal(t, want, greeting(time.Date(2025, time.November, 28, hour, 0, 0, 0, time.UTC)), "hour %d", hour)
	}
}
