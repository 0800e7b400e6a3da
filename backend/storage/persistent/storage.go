package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jghoshh/bienestar/backend/models"
)

var (
	// ErrNotFound is returned when no document matches a lookup.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("document already exists")
)

// Collection names.
const (
	UsersCollection           = "users"
	RecordsCollection         = "daily_records"
	ActivitiesCollection      = "activities"
	RemindersCollection       = "reminders"
	MedicalProfilesCollection = "medical_profiles"
	GoalsCollection           = "goals"
	StatsCollection           = "stats"
	PasswordResetsCollection  = "password_resets"
)

// singletonKey is the key of collections holding one document per user.
const singletonKey = "current"

// userCollections hold documents owned by a user and keyed by (user_id, key).
var userCollections = []string{
	RecordsCollection,
	ActivitiesCollection,
	RemindersCollection,
	MedicalProfilesCollection,
	GoalsCollection,
	StatsCollection,
	PasswordResetsCollection,
}

// DeleteResult represents the result of a deletion, specifically the count
// of documents deleted.
type DeleteResult struct {
	DeletedCount int64
}

// UserUpdate lists the user fields to change. Nil fields are left alone.
type UserUpdate struct {
	DisplayName  *string
	PhotoURL     *string
	PasswordHash *string
}

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement. Lookups that match nothing return ErrNotFound.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error

	// Adds a new user. ErrDuplicate when the email is taken.
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserBySubject(ctx context.Context, provider, subject string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error)
	// Deletes the user and every document they own.
	DeleteUser(ctx context.Context, id string) (*DeleteResult, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	SaveRecord(ctx context.Context, record models.WellnessRecord) error
	FindRecord(ctx context.Context, userID, date string) (*models.WellnessRecord, error)
	// Returns every record of the user, most recent date first.
	FindRecords(ctx context.Context, userID string) ([]models.WellnessRecord, error)

	SaveActivity(ctx context.Context, activity models.ActivityLog) error
	// Returns the user's activities on date, or all of them when date is empty,
	// most recent date first.
	FindActivities(ctx context.Context, userID, date string) ([]models.ActivityLog, error)
	DeleteActivity(ctx context.Context, userID, id string) (*DeleteResult, error)

	SaveReminder(ctx context.Context, reminder models.Reminder) error
	FindReminder(ctx context.Context, userID, id string) (*models.Reminder, error)
	FindReminders(ctx context.Context, userID string) ([]models.Reminder, error)
	// Returns the reminders of every user.
	FindAllReminders(ctx context.Context) ([]models.Reminder, error)
	DeleteReminder(ctx context.Context, userID, id string) (*DeleteResult, error)

	SaveMedicalProfile(ctx context.Context, profile models.MedicalProfile) error
	FindMedicalProfile(ctx context.Context, userID string) (*models.MedicalProfile, error)

	SaveGoals(ctx context.Context, goals models.UserGoals) error
	FindGoals(ctx context.Context, userID string) (*models.UserGoals, error)

	SaveStats(ctx context.Context, stats models.UserStats) error
	FindStats(ctx context.Context, userID string) (*models.UserStats, error)

	SavePasswordReset(ctx context.Context, reset models.PasswordReset) error
	FindPasswordReset(ctx context.Context, userID string) (*models.PasswordReset, error)
	DeletePasswordReset(ctx context.Context, userID string) (*DeleteResult, error)
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
