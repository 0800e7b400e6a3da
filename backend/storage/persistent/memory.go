package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jghoshh/bienestar/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStorage is a StorageInterface kept in process memory. It backs
// STORAGE_BACKEND=memory and the tests.
type MemoryStorage struct {
	mu         sync.RWMutex
	users      map[string]models.User
	records    map[string]map[string]models.WellnessRecord
	activities map[string]map[string]models.ActivityLog
	reminders  map[string]map[string]models.Reminder
	medical    map[string]models.MedicalProfile
	goals      map[string]models.UserGoals
	stats      map[string]models.UserStats
	resets     map[string]models.PasswordReset
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:      make(map[string]models.User),
		records:    make(map[string]map[string]models.WellnessRecord),
		activities: make(map[string]map[string]models.ActivityLog),
		reminders:  make(map[string]map[string]models.Reminder),
		medical:    make(map[string]models.MedicalProfile),
		goals:      make(map[string]models.UserGoals),
		stats:      make(map[string]models.UserStats),
		resets:     make(map[string]models.PasswordReset),
	}
}

func (s *MemoryStorage) Connect(dbName, uri string) error { return nil }

func (s *MemoryStorage) Disconnect() error { return nil }

func (s *MemoryStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
	}
	user.ID = primitive.NewObjectID()
	s.users[user.ID.Hex()] = *user
	return user, nil
}

func (s *MemoryStorage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryStorage) FindUserBySubject(ctx context.Context, provider, subject string) (*models.User, error) {
	return s.findUser(func(u models.User) bool {
		return u.Provider == provider && u.ProviderSubject == subject
	})
}

func (s *MemoryStorage) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		user.PhotoURL = *update.PhotoURL
	}
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	s.users[id] = user
	return &user, nil
}

func (s *MemoryStorage) DeleteUser(ctx context.Context, id string) (*DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return nil, ErrNotFound
	}
	delete(s.users, id)
	delete(s.records, id)
	delete(s.activities, id)
	delete(s.reminders, id)
	delete(s.medical, id)
	delete(s.goals, id)
	delete(s.stats, id)
	delete(s.resets, id)
	return &DeleteResult{DeletedCount: 1}, nil
}

func (s *MemoryStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStorage) SaveRecord(ctx context.Context, record models.WellnessRecord) error {
	if record.UserID == "" || record.Date == "" {
		return fmt.Errorf("%s: user id and key are required", RecordsCollection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[record.UserID] == nil {
		s.records[record.UserID] = make(map[string]models.WellnessRecord)
	}
	s.records[record.UserID][record.Date] = record
	return nil
}

func (s *MemoryStorage) FindRecord(ctx context.Context, userID, date string) (*models.WellnessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID][date]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStorage) FindRecords(ctx context.Context, userID string) ([]models.WellnessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.WellnessRecord, 0, len(s.records[userID]))
	for _, r := range s.records[userID] {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	return records, nil
}

func (s *MemoryStorage) SaveActivity(ctx context.Context, activity models.ActivityLog) error {
	if activity.UserID == "" || activity.ID == "" {
		return fmt.Errorf("%s: user id and key are required", ActivitiesCollection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activities[activity.UserID] == nil {
		s.activities[activity.UserID] = make(map[string]models.ActivityLog)
	}
	s.activities[activity.UserID][activity.ID] = activity
	return nil
}

func (s *MemoryStorage) FindActivities(ctx context.Context, userID, date string) ([]models.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activities := make([]models.ActivityLog, 0, len(s.activities[userID]))
	for _, a := range s.activities[userID] {
		if date == "" || a.Date == date {
			activities = append(activities, a)
		}
	}
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].Date != activities[j].Date {
			return activities[i].Date > activities[j].Date
		}
		return activities[i].ID < activities[j].ID
	})
	return activities, nil
}

func (s *MemoryStorage) DeleteActivity(ctx context.Context, userID, id string) (*DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[userID][id]; !ok {
		return &DeleteResult{}, nil
	}
	delete(s.activities[userID], id)
	return &DeleteResult{DeletedCount: 1}, nil
}

func (s *MemoryStorage) SaveReminder(ctx context.Context, reminder models.Reminder) error {
	if reminder.UserID == "" || reminder.ID == "" {
		return fmt.Errorf("%s: user id and key are required", RemindersCollection)
	}
	reminder.DaysOfWeek = append([]int(nil), reminder.DaysOfWeek...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reminders[reminder.UserID] == nil {
		s.reminders[reminder.UserID] = make(map[string]models.Reminder)
	}
	s.reminders[reminder.UserID][reminder.ID] = reminder
	return nil
}

func (s *MemoryStorage) FindReminder(ctx context.Context, userID, id string) (*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reminder, ok := s.reminders[userID][id]
	if !ok {
		return nil, ErrNotFound
	}
	reminder.DaysOfWeek = append([]int(nil), reminder.DaysOfWeek...)
	return &reminder, nil
}

func (s *MemoryStorage) FindReminders(ctx context.Context, userID string) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reminders := make([]models.Reminder, 0, len(s.reminders[userID]))
	for _, r := range s.reminders[userID] {
		r.DaysOfWeek = append([]int(nil), r.DaysOfWeek...)
		reminders = append(reminders, r)
	}
	sortReminders(reminders)
	return reminders, nil
}

func (s *MemoryStorage) FindAllReminders(ctx context.Context) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reminders []models.Reminder
	for _, byID := range s.reminders {
		for _, r := range byID {
			r.DaysOfWeek = append([]int(nil), r.DaysOfWeek...)
			reminders = append(reminders, r)
		}
	}
	sortReminders(reminders)
	return reminders, nil
}

func sortReminders(reminders []models.Reminder) {
	sort.Slice(reminders, func(i, j int) bool {
		if reminders[i].Time != reminders[j].Time {
			return reminders[i].Time < reminders[j].Time
		}
		return reminders[i].ID < reminders[j].ID
	})
}

func (s *MemoryStorage) DeleteReminder(ctx context.Context, userID, id string) (*DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[userID][id]; !ok {
		return &DeleteResult{}, nil
	}
	delete(s.reminders[userID], id)
	return &DeleteResult{DeletedCount: 1}, nil
}

func (s *MemoryStorage) SaveMedicalProfile(ctx context.Context, profile models.MedicalProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("%s: user id is required", MedicalProfilesCollection)
	}
	profile.Allergies = append([]string(nil), profile.Allergies...)
	profile.Conditions = append([]string(nil), profile.Conditions...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medical[profile.UserID] = profile
	return nil
}

func (s *MemoryStorage) FindMedicalProfile(ctx context.Context, userID string) (*models.MedicalProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.medical[userID]
	if !ok {
		return nil, ErrNotFound
	}
	profile.Allergies = append([]string(nil), profile.Allergies...)
	profile.Conditions = append([]string(nil), profile.Conditions...)
	return &profile, nil
}

func (s *MemoryStorage) SaveGoals(ctx context.Context, goals models.UserGoals) error {
	if goals.UserID == "" {
		return fmt.Errorf("%s: user id is required", GoalsCollection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goals.UserID] = goals
	return nil
}

func (s *MemoryStorage) FindGoals(ctx context.Context, userID string) (*models.UserGoals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goals, ok := s.goals[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &goals, nil
}

func (s *MemoryStorage) SaveStats(ctx context.Context, stats models.UserStats) error {
	if stats.UserID == "" {
		return fmt.Errorf("%s: user id is required", StatsCollection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stats.UserID] = stats
	return nil
}

func (s *MemoryStorage) FindStats(ctx context.Context, userID string) (*models.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &stats, nil
}

func (s *MemoryStorage) SavePasswordReset(ctx context.Context, reset models.PasswordReset) error {
	if reset.UserID == "" {
		return fmt.Errorf("%s: user id is required", PasswordResetsCollection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[reset.UserID] = reset
	return nil
}

func (s *MemoryStorage) FindPasswordReset(ctx context.Context, userID string) (*models.PasswordReset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reset, ok := s.resets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &reset, nil
}

func (s *MemoryStorage) DeletePasswordReset(ctx context.Context, userID string) (*DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resets[userID]; !ok {
		return &DeleteResult{}, nil
	}
	delete(s.resets, userID)
	return &DeleteResult{DeletedCount: 1}, nil
}

var (
	_ StorageInterface = (*MemoryStorage)(nil)
	_ StorageInterface = (*MongoStorage)(nil)
)
