package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage is a StorageInterface backed by MongoDB. Every per-user
// document carries user_id and key fields, unique together.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI
// and creates the indexes every collection relies on.
func (m *MongoStorage) Connect(dbName, uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("error pinging MongoDB: %w", err)
	}

	m.client = client
	m.dbName = dbName

	users := m.collection(UsersCollection)

	// Every user has a unique email.
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating email index: %w", err)
	}

	// Federated accounts are looked up by provider subject.
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "provider", Value: 1},
			{Key: "provider_subject", Value: 1},
		},
		Options: options.Index().SetSparse(true),
	})
	if err != nil {
		return fmt.Errorf("error creating provider subject index: %w", err)
	}

	for _, name := range userCollections {
		_, err = m.collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("error creating user_id and key index on %s: %w", name, err)
		}
	}

	// Date filters on records and activities.
	for _, name := range []string{RecordsCollection, ActivitiesCollection} {
		_, err = m.collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "date", Value: -1},
			},
		})
		if err != nil {
			return fmt.Errorf("error creating user_id and date index on %s: %w", name, err)
		}
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %w", err)
	}
	return nil
}

func (m *MongoStorage) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

// AddUser inserts a user document and sets its generated ID.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	result, err := m.collection(UsersCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return nil, err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (m *MongoStorage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.findUser(ctx, bson.M{"_id": oid})
}

func (m *MongoStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoStorage) FindUserBySubject(ctx context.Context, provider, subject string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"provider": provider, "provider_subject": subject})
}

func (m *MongoStorage) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	user := &models.User{}
	if err := m.collection(UsersCollection).FindOne(ctx, filter).Decode(user); err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// UpdateUser applies the non-nil fields of update and returns the stored user.
func (m *MongoStorage) UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if update.PhotoURL != nil {
		set["photo_url"] = *update.PhotoURL
	}
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}
	if len(set) == 0 {
		return m.FindUserByID(ctx, id)
	}

	result, err := m.collection(UsersCollection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return m.FindUserByID(ctx, id)
}

// DeleteUser deletes a user and all documents associated with them.
func (m *MongoStorage) DeleteUser(ctx context.Context, id string) (*DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	for _, name := range userCollections {
		if _, err := m.collection(name).DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
			return nil, fmt.Errorf("deleting %s: %w", name, err)
		}
	}

	result, err := m.collection(UsersCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if result.DeletedCount == 0 {
		return nil, ErrNotFound
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

func (m *MongoStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	cursor, err := m.collection(UsersCollection).Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID.Hex())
	}
	return ids, cursor.Err()
}

func (m *MongoStorage) SaveRecord(ctx context.Context, record models.WellnessRecord) error {
	return m.upsert(ctx, RecordsCollection, record.UserID, record.Date, record)
}

func (m *MongoStorage) FindRecord(ctx context.Context, userID, date string) (*models.WellnessRecord, error) {
	record := &models.WellnessRecord{}
	if err := m.findOne(ctx, RecordsCollection, userID, date, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (m *MongoStorage) FindRecords(ctx context.Context, userID string) ([]models.WellnessRecord, error) {
	var records []models.WellnessRecord
	err := m.findMany(ctx, RecordsCollection, bson.M{"user_id": userID}, byDateDesc(), &records)
	return records, err
}

func (m *MongoStorage) SaveActivity(ctx context.Context, activity models.ActivityLog) error {
	return m.upsert(ctx, ActivitiesCollection, activity.UserID, activity.ID, activity)
}

func (m *MongoStorage) FindActivities(ctx context.Context, userID, date string) ([]models.ActivityLog, error) {
	filter := bson.M{"user_id": userID}
	if date != "" {
		filter["date"] = date
	}
	var activities []models.ActivityLog
	err := m.findMany(ctx, ActivitiesCollection, filter, byDateDesc(), &activities)
	return activities, err
}

func (m *MongoStorage) DeleteActivity(ctx context.Context, userID, id string) (*DeleteResult, error) {
	return m.deleteOne(ctx, ActivitiesCollection, userID, id)
}

func (m *MongoStorage) SaveReminder(ctx context.Context, reminder models.Reminder) error {
	return m.upsert(ctx, RemindersCollection, reminder.UserID, reminder.ID, reminder)
}

func (m *MongoStorage) FindReminder(ctx context.Context, userID, id string) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	if err := m.findOne(ctx, RemindersCollection, userID, id, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (m *MongoStorage) FindReminders(ctx context.Context, userID string) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := m.findMany(ctx, RemindersCollection, bson.M{"user_id": userID}, options.Find().SetSort(bson.M{"time": 1}), &reminders)
	return reminders, err
}

func (m *MongoStorage) FindAllReminders(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := m.findMany(ctx, RemindersCollection, bson.M{}, options.Find(), &reminders)
	return reminders, err
}

func (m *MongoStorage) DeleteReminder(ctx context.Context, userID, id string) (*DeleteResult, error) {
	return m.deleteOne(ctx, RemindersCollection, userID, id)
}

func (m *MongoStorage) SaveMedicalProfile(ctx context.Context, profile models.MedicalProfile) error {
	return m.upsert(ctx, MedicalProfilesCollection, profile.UserID, singletonKey, profile)
}

func (m *MongoStorage) FindMedicalProfile(ctx context.Context, userID string) (*models.MedicalProfile, error) {
	profile := &models.MedicalProfile{}
	if err := m.findOne(ctx, MedicalProfilesCollection, userID, singletonKey, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (m *MongoStorage) SaveGoals(ctx context.Context, goals models.UserGoals) error {
	return m.upsert(ctx, GoalsCollection, goals.UserID, singletonKey, goals)
}

func (m *MongoStorage) FindGoals(ctx context.Context, userID string) (*models.UserGoals, error) {
	goals := &models.UserGoals{}
	if err := m.findOne(ctx, GoalsCollection, userID, singletonKey, goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func (m *MongoStorage) SaveStats(ctx context.Context, stats models.UserStats) error {
	return m.upsert(ctx, StatsCollection, stats.UserID, singletonKey, stats)
}

func (m *MongoStorage) FindStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := &models.UserStats{}
	if err := m.findOne(ctx, StatsCollection, userID, singletonKey, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (m *MongoStorage) SavePasswordReset(ctx context.Context, reset models.PasswordReset) error {
	return m.upsert(ctx, PasswordResetsCollection, reset.UserID, singletonKey, reset)
}

func (m *MongoStorage) FindPasswordReset(ctx context.Context, userID string) (*models.PasswordReset, error) {
	reset := &models.PasswordReset{}
	if err := m.findOne(ctx, PasswordResetsCollection, userID, singletonKey, reset); err != nil {
		return nil, err
	}
	return reset, nil
}

func (m *MongoStorage) DeletePasswordReset(ctx context.Context, userID string) (*DeleteResult, error) {
	return m.deleteOne(ctx, PasswordResetsCollection, userID, singletonKey)
}

// upsert replaces the (userID, key) document with doc, creating it if needed.
func (m *MongoStorage) upsert(ctx context.Context, name, userID, key string, doc interface{}) error {
	if userID == "" || key == "" {
		return fmt.Errorf("%s: user id and key are required", name)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s document: %w", name, err)
	}
	fields := bson.M{}
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("encoding %s document: %w", name, err)
	}
	fields["user_id"] = userID
	fields["key"] = key

	filter := bson.M{"user_id": userID, "key": key}
	_, err = m.collection(name).ReplaceOne(ctx, filter, fields, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving %s document: %w", name, err)
	}
	return nil
}

func (m *MongoStorage) findOne(ctx context.Context, name, userID, key string, out interface{}) error {
	err := m.collection(name).FindOne(ctx, bson.M{"user_id": userID, "key": key}).Decode(out)
	return notFound(err)
}

func (m *MongoStorage) findMany(ctx context.Context, name string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := m.collection(name).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("querying %s: %w", name, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (m *MongoStorage) deleteOne(ctx context.Context, name, userID, key string) (*DeleteResult, error) {
	result, err := m.collection(name).DeleteOne(ctx, bson.M{"user_id": userID, "key": key})
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

func byDateDesc() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
