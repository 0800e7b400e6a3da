package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the layout of every calendar-day key ("2025-11-28").
const DateLayout = "2006-01-02"

// Auth providers a user account can originate from.
const (
	ProviderPassword  = "password"
	ProviderFederated = "federated"
)

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string             `bson:"email" json:"email"`
	DisplayName     string             `bson:"display_name" json:"displayName"`
	PhotoURL        string             `bson:"photo_url,omitempty" json:"photoUrl,omitempty"`
	PasswordHash    string             `bson:"password_hash,omitempty" json:"-"`
	Provider        string             `bson:"provider" json:"provider"`
	ProviderSubject string             `bson:"provider_subject,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}

// PasswordReset holds the hashed one-time token mailed to a user.
type PasswordReset struct {
	UserID    string    `bson:"user_id" json:"-"`
	TokenHash string    `bson:"token_hash" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
}

// WellnessRecord is one day's log, keyed by Date.
type WellnessRecord struct {
	UserID       string  `bson:"user_id" json:"-"`
	Date         string  `bson:"date" json:"date"`
	WaterGlasses int     `bson:"water_glasses" json:"waterGlasses"`
	SleepHours   float64 `bson:"sleep_hours" json:"sleepHours"`
	Mood         int     `bson:"mood" json:"mood"`
	Note         string  `bson:"note" json:"note"`
}

// DefaultMood is the neutral mood score of a fresh record.
const DefaultMood = 3

type ActivityLog struct {
	UserID          string `bson:"user_id" json:"-"`
	ID              string `bson:"id" json:"id"`
	Name            string `bson:"name" json:"name"`
	DurationMinutes int    `bson:"duration_minutes" json:"durationMinutes"`
	Calories        int    `bson:"calories" json:"calories"`
	Date            string `bson:"date" json:"date"`
	IconName        string `bson:"icon_name" json:"iconName"`
}

// DefaultActivityIcon is used when an activity is saved without an icon tag.
const DefaultActivityIcon = "run"

type MedicalProfile struct {
	UserID     string   `bson:"user_id" json:"-"`
	FullName   string   `bson:"full_name" json:"fullName"`
	BloodType  string   `bson:"blood_type" json:"bloodType"`
	Height     string   `bson:"height" json:"height"`
	Weight     string   `bson:"weight" json:"weight"`
	Allergies  []string `bson:"allergies" json:"allergies"`
	Conditions []string `bson:"conditions" json:"conditions"`
}

// Reminder days use 1=Sunday through 7=Saturday.
type Reminder struct {
	UserID              string `bson:"user_id" json:"-"`
	ID                  string `bson:"id" json:"id"`
	Title               string `bson:"title" json:"title"`
	Time                string `bson:"time" json:"time"`
	Enabled             bool   `bson:"enabled" json:"enabled"`
	DaysOfWeek          []int  `bson:"days_of_week" json:"daysOfWeek"`
	RepeatIntervalHours int    `bson:"repeat_interval_hours" json:"repeatIntervalHours"`
}

// AllWeekdays is the default day set of a new reminder.
func AllWeekdays() []int {
	return []int{1, 2, 3, 4, 5, 6, 7}
}

type UserGoals struct {
	UserID                string  `bson:"user_id" json:"-"`
	WaterGoal             int     `bson:"water_goal" json:"waterGoal"`
	SleepGoal             float64 `bson:"sleep_goal" json:"sleepGoal"`
	DailyCaloriesGoal     int     `bson:"daily_calories_goal" json:"dailyCaloriesGoal"`
	WeeklyWorkoutDaysGoal int     `bson:"weekly_workout_days_goal" json:"weeklyWorkoutDaysGoal"`
}

// DefaultGoals returns the targets used until a user saves their own.
func DefaultGoals() UserGoals {
	return UserGoals{
		WaterGoal:             8,
		SleepGoal:             8.0,
		DailyCaloriesGoal:     5000,
		WeeklyWorkoutDaysGoal: 7,
	}
}

type UserStats struct {
	UserID        string `bson:"user_id" json:"-"`
	CurrentStreak int    `bson:"current_streak" json:"currentStreak"`
	BestStreak    int    `bson:"best_streak" json:"bestStreak"`
	LastLogDate   string `bson:"last_log_date" json:"lastLogDate"`
}
