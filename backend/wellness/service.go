// Package wellness implements the per-user wellness operations: daily
// records, activities, reminders, goals, the medical profile and the
// streak statistics derived from them.
package wellness

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/reminders"
	storage "github.com/jghoshh/bienestar/backend/storage/persistent"
	"github.com/jghoshh/bienestar/backend/streak"
	"github.com/jghoshh/bienestar/lib/apperr"
	"go.uber.org/zap"
)

// ReminderScheduler arms and disarms reminder timers.
type ReminderScheduler interface {
	Schedule(userID string, reminder models.Reminder) error
	Cancel(userID, reminderID string)
}

type Service struct {
	store     storage.StorageInterface
	scheduler ReminderScheduler
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
	pick      func(n int) int
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPicker replaces the random choice of the daily tip.
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// NewService builds the service. Calendar days are computed in loc.
func NewService(store storage.StorageInterface, scheduler ReminderScheduler, loc *time.Location, logger *zap.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		location:  loc,
		now:       time.Now,
		pick:      rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day key.
func (s *Service) Today() string {
	return s.now().In(s.location).Format(models.DateLayout)
}

// SaveRecord stores today's record, whatever date the caller sent, and
// advances the user's streak.
func (s *Service) SaveRecord(ctx context.Context, userID string, record models.WellnessRecord) (*models.WellnessRecord, error) {
	if record.Mood == 0 {
		record.Mood = models.DefaultMood
	}
	if record.Mood < 1 || record.Mood > 5 {
		return nil, apperr.Validation("mood must be between 1 and 5")
	}
	if record.WaterGlasses < 0 {
		return nil, apperr.Validation("water glasses cannot be negative")
	}
	if record.SleepHours < 0 || record.SleepHours > 24 {
		return nil, apperr.Validation("sleep hours must be between 0 and 24")
	}
	record.UserID = userID
	record.Date = s.Today()
	record.Note = strings.TrimSpace(record.Note)

	if err := s.store.SaveRecord(ctx, record); err != nil {
		return nil, s.internal("saving record", err)
	}
	if _, err := s.UpdateUserStats(ctx, userID); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetTodayRecord returns today's record, or nil when nothing was logged.
func (s *Service) GetTodayRecord(ctx context.Context, userID string) *models.WellnessRecord {
	record, err := s.store.FindRecord(ctx, userID, s.Today())
	if err != nil {
		s.readFailed("today record", userID, err)
		return nil
	}
	return record
}

// GetAllRecords returns every record, most recent first.
func (s *Service) GetAllRecords(ctx context.Context, userID string) []models.WellnessRecord {
	records, err := s.store.FindRecords(ctx, userID)
	if err != nil {
		s.readFailed("records", userID, err)
		return []models.WellnessRecord{}
	}
	return records
}

func (s *Service) SaveMedicalProfile(ctx context.Context, userID string, profile models.MedicalProfile) (*models.MedicalProfile, error) {
	profile.UserID = userID
	profile.FullName = strings.TrimSpace(profile.FullName)
	profile.Allergies = compact(profile.Allergies)
	profile.Conditions = compact(profile.Conditions)
	if err := s.store.SaveMedicalProfile(ctx, profile); err != nil {
		return nil, s.internal("saving medical profile", err)
	}
	return &profile, nil
}

// GetMedicalProfile returns nil when no profile was saved.
func (s *Service) GetMedicalProfile(ctx context.Context, userID string) *models.MedicalProfile {
	profile, err := s.store.FindMedicalProfile(ctx, userID)
	if err != nil {
		s.readFailed("medical profile", userID, err)
		return nil
	}
	return profile
}

// SaveActivity stores an activity. A missing id is generated, a missing
// date means today and a missing icon gets the default one.
func (s *Service) SaveActivity(ctx context.Context, userID string, activity models.ActivityLog) (*models.ActivityLog, error) {
	activity.Name = strings.TrimSpace(activity.Name)
	if activity.Name == "" {
		return nil, apperr.Validation("activity name is required")
	}
	if activity.DurationMinutes < 0 || activity.Calories < 0 {
		return nil, apperr.Validation("duration and calories cannot be negative")
	}
	if activity.Date == "" {
		activity.Date = s.Today()
	} else if _, err := time.Parse(models.DateLayout, activity.Date); err != nil {
		return nil, apperr.Validation("date must use the YYYY-MM-DD format")
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.IconName == "" {
		activity.IconName = models.DefaultActivityIcon
	}
	activity.UserID = userID

	if err := s.store.SaveActivity(ctx, activity); err != nil {
		return nil, s.internal("saving activity", err)
	}
	return &activity, nil
}

func (s *Service) GetActivitiesByDate(ctx context.Context, userID, date string) []models.ActivityLog {
	if date == "" {
		date = s.Today()
	}
	activities, err := s.store.FindActivities(ctx, userID, date)
	if err != nil {
		s.readFailed("activities", userID, err)
		return []models.ActivityLog{}
	}
	return activities
}

func (s *Service) GetAllActivities(ctx context.Context, userID string) []models.ActivityLog {
	activities, err := s.store.FindActivities(ctx, userID, "")
	if err != nil {
		s.readFailed("activities", userID, err)
		return []models.ActivityLog{}
	}
	return activities
}

func (s *Service) DeleteActivity(ctx context.Context, userID, id string) error {
	res, err := s.store.DeleteActivity(ctx, userID, id)
	if err != nil {
		return s.internal("deleting activity", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("activity %s not found", id)
	}
	return nil
}

// SaveReminder stores a reminder and arms it, or disarms it when disabled.
func (s *Service) SaveReminder(ctx context.Context, userID string, reminder models.Reminder) (*models.Reminder, error) {
	reminder.Title = strings.TrimSpace(reminder.Title)
	if reminder.Title == "" {
		return nil, apperr.Validation("reminder title is required")
	}
	if _, _, err := reminders.ParseTimeOfDay(reminder.Time); err != nil {
		return nil, apperr.Validation("reminder time must look like 08:00 AM or 20:00")
	}
	if len(reminder.DaysOfWeek) == 0 {
		reminder.DaysOfWeek = models.AllWeekdays()
	}
	for _, d := range reminder.DaysOfWeek {
		if d < 1 || d > 7 {
			return nil, apperr.Validation("days of week must be between 1 (Sunday) and 7 (Saturday)")
		}
	}
	if reminder.RepeatIntervalHours < 0 {
		return nil, apperr.Validation("repeat interval cannot be negative")
	}
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	reminder.UserID = userID

	if err := s.store.SaveReminder(ctx, reminder); err != nil {
		return nil, s.internal("saving reminder", err)
	}
	s.arm(userID, reminder)
	return &reminder, nil
}

// ToggleReminder flips the enabled flag of a stored reminder.
func (s *Service) ToggleReminder(ctx context.Context, userID, id string) (*models.Reminder, error) {
	reminder, err := s.store.FindReminder(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("reminder %s not found", id)
	} else if err != nil {
		return nil, s.internal("loading reminder", err)
	}
	reminder.Enabled = !reminder.Enabled
	if err := s.store.SaveReminder(ctx, *reminder); err != nil {
		return nil, s.internal("saving reminder", err)
	}
	s.arm(userID, *reminder)
	return reminder, nil
}

func (s *Service) GetReminders(ctx context.Context, userID string) []models.Reminder {
	list, err := s.store.FindReminders(ctx, userID)
	if err != nil {
		s.readFailed("reminders", userID, err)
		return []models.Reminder{}
	}
	return list
}

// DeleteReminder deletes the user's reminder and disarms it.
func (s *Service) DeleteReminder(ctx context.Context, userID, id string) error {
	res, err := s.store.DeleteReminder(ctx, userID, id)
	if err != nil {
		return s.internal("deleting reminder", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("reminder %s not found", id)
	}
	s.scheduler.Cancel(userID, id)
	return nil
}

// CancelUserReminders disarms every reminder of a user, ahead of deleting
// the account.
func (s *Service) CancelUserReminders(ctx context.Context, userID string) error {
	list, err := s.store.FindReminders(ctx, userID)
	if err != nil {
		return s.internal("loading reminders", err)
	}
	for _, r := range list {
		s.scheduler.Cancel(userID, r.ID)
	}
	return nil
}

func (s *Service) arm(userID string, reminder models.Reminder) {
	if err := s.scheduler.Schedule(userID, reminder); err != nil {
		s.logger.Warn("reminder not scheduled",
			zap.String("user_id", userID),
			zap.String("reminder_id", reminder.ID),
			zap.Error(err))
	}
}

func (s *Service) SaveUserGoals(ctx context.Context, userID string, goals models.UserGoals) (*models.UserGoals, error) {
	if goals.WaterGoal <= 0 || goals.SleepGoal <= 0 || goals.DailyCaloriesGoal <= 0 {
		return nil, apperr.Validation("goals must be positive")
	}
	if goals.WeeklyWorkoutDaysGoal < 1 || goals.WeeklyWorkoutDaysGoal > 7 {
		return nil, apperr.Validation("weekly workout days must be between 1 and 7")
	}
	goals.UserID = userID
	if err := s.store.SaveGoals(ctx, goals); err != nil {
		return nil, s.internal("saving goals", err)
	}
	return &goals, nil
}

// GetUserGoals falls back to the default goals.
func (s *Service) GetUserGoals(ctx context.Context, userID string) models.UserGoals {
	goals, err := s.store.FindGoals(ctx, userID)
	if err != nil {
		s.readFailed("goals", userID, err)
		defaults := models.DefaultGoals()
		defaults.UserID = userID
		return defaults
	}
	return *goals
}

// GetUserStats falls back to empty stats.
func (s *Service) GetUserStats(ctx context.Context, userID string) models.UserStats {
	stats, err := s.store.FindStats(ctx, userID)
	if err != nil {
		s.readFailed("stats", userID, err)
		return models.UserStats{UserID: userID}
	}
	return *stats
}

// UpdateUserStats records a log event for today. A failed stats read
// aborts the update instead of restarting the streak.
func (s *Service) UpdateUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	current := models.UserStats{UserID: userID}
	stored, err := s.store.FindStats(ctx, userID)
	switch {
	case err == nil:
		current = *stored
	case !errors.Is(err, storage.ErrNotFound):
		return nil, s.internal("loading stats", err)
	}
	today := s.Today()
	if current.LastLogDate == today {
		return &current, nil
	}
	next := streak.Advance(current, today)
	next.UserID = userID
	if err := s.store.SaveStats(ctx, next); err != nil {
		return nil, s.internal("saving stats", err)
	}
	return &next, nil
}

// readFailed logs read errors other than a plain miss.
func (s *Service) readFailed(what, userID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	s.logger.Warn("read failed, using default", zap.String("what", what), zap.String("user_id", userID), zap.Error(err))
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("wellness operation failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
