package storage

import (
	"context"
	"testing"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addUser(t *testing.T, s *MemoryStorage, email string) string {
	t.Helper()
	u, err := s.AddUser(context.Background(), &models.User{Email: email, Provider: models.ProviderPassword})
	require.NoError(t, err)
	return u.ID.Hex()
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	id := addUser(t, s, "ana@example.com")

	_, err := s.AddUser(ctx, &models.User{Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := s.FindUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID.Hex())

	name := "Ana"
	updated, err := s.UpdateUser(ctx, id, UserUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.DisplayName)

	_, err = s.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateUser(ctx, "missing", UserUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFederatedLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	_, err := s.AddUser(ctx, &models.User{Email: "fed@example.com", Provider: models.ProviderFederated, ProviderSubject: "sub-1"})
	require.NoError(t, err)

	u, err := s.FindUserBySubject(ctx, models.ProviderFederated, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "fed@example.com", u.Email)

	_, err = s.FindUserBySubject(ctx, models.ProviderFederated, "sub-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRecordsUpsertAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.SaveRecord(ctx, models.WellnessRecord{UserID: "u1", Date: "2025-11-27", WaterGlasses: 3}))
	require.NoError(t, s.SaveRecord(ctx, models.WellnessRecord{UserID: "u1", Date: "2025-11-28", WaterGlasses: 1}))
	require.NoError(t, s.SaveRecord(ctx, models.WellnessRecord{UserID: "u1", Date: "2025-11-28", WaterGlasses: 5}))
	require.NoError(t, s.SaveRecord(ctx, models.WellnessRecord{UserID: "u2", Date: "2025-11-28", WaterGlasses: 9}))

	records, err := s.FindRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2025-11-28", records[0].Date)
	assert.Equal(t, 5, records[0].WaterGlasses)

	_, err = s.FindRecord(ctx, "u1", "2025-01-01")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SaveRecord(ctx, models.WellnessRecord{UserID: "u1"}))
}

func TestMemoryActivities(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.SaveActivity(ctx, models.ActivityLog{UserID: "u1", ID: "a", Date: "2025-11-27"}))
	require.NoError(t, s.SaveActivity(ctx, models.ActivityLog{UserID: "u1", ID: "b", Date: "2025-11-28"}))

	onDay, err := s.FindActivities(ctx, "u1", "2025-11-28")
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, "b", onDay[0].ID)

	all, err := s.FindActivities(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	res, err := s.DeleteActivity(ctx, "u1", "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.DeletedCount)

	res, err = s.DeleteActivity(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Zero(t, res.DeletedCount)
}

func TestMemoryRemindersAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	days := []int{1, 2}
	require.NoError(t, s.SaveReminder(ctx, models.Reminder{UserID: "u1", ID: "r", Time: "08:00 AM", DaysOfWeek: days}))
	days[0] = 7

	r, err := s.FindReminder(ctx, "u1", "r")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, r.DaysOfWeek)

	require.NoError(t, s.SaveReminder(ctx, models.Reminder{UserID: "u2", ID: "q", Time: "07:00 AM"}))
	all, err := s.FindAllReminders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	id := addUser(t, s, "ana@example.com")
	require.NoError(t, s.SaveRecord(ctx, models.WellnessRecord{UserID: id, Date: "2025-11-28"}))
	require.NoError(t, s.SaveStats(ctx, models.UserStats{UserID: id, CurrentStreak: 2}))
	require.NoError(t, s.SaveGoals(ctx, models.UserGoals{UserID: id, WaterGoal: 6}))

	_, err := s.DeleteUser(ctx, id)
	require.NoError(t, err)

	records, err := s.FindRecords(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, records)
	_, err = s.FindStats(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindGoals(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteUser(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
