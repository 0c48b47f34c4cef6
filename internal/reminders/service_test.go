package reminders

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/storage"
)

func setupService(t *testing.T) (*Service, *storage.SQLiteRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reminders-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.MigrateUp(db))
	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertUser(context.Background(), storage.User{ID: 7, FirstName: "Ada"}))
	return NewService(repo, nil), repo
}

func TestRegisterUserIsIdempotent(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.RegisterUser(ctx, model.User{ID: 9, FirstName: "Grace"}))
	require.NoError(t, svc.RegisterUser(ctx, model.User{ID: 9, FirstName: "Grace", Username: "hopper"}))

	user, err := repo.GetUser(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "hopper", user.Username)
}

func TestScheduleAndGetRoundTripsRecurrence(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	id, err := svc.Schedule(ctx, CreateReminder{
		OwnerID:    7,
		Title:      "Standup notes",
		DueAt:      &due,
		Category:   "work",
		Priority:   model.PriorityHigh,
		Recurrence: &model.Recurrence{Type: model.RecurrenceWeekly, Days: []time.Weekday{time.Monday, time.Wednesday}},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsRecurring)
	require.NotNil(t, got.Recurrence)
	assert.Equal(t, model.RecurrenceWeekly, got.Recurrence.Type)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, got.Recurrence.Days)
	assert.Equal(t, model.PriorityHigh, got.Priority)
}

func TestScheduleRejectsMissingTitle(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Schedule(context.Background(), CreateReminder{OwnerID: 7, Title: "  "})
	assert.ErrorIs(t, err, model.ErrEmptyTitle)
}

func TestScheduleDefaultsPriorityToMedium(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Water plants"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, got.Priority)
}

func TestRescheduleNotFound(t *testing.T) {
	svc, _ := setupService(t)
	err := svc.Reschedule(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPostponeFromExistingDueDate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Dentist", DueAt: &due})
	require.NoError(t, err)

	require.NoError(t, svc.Postpone(ctx, id, "1d"))

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.DueAt)
	assert.True(t, got.DueAt.Equal(due.Add(24*time.Hour)), "due at %s", got.DueAt)
}

func TestPostponeWithoutDueDateStartsFromNow(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Someday"})
	require.NoError(t, err)

	require.NoError(t, svc.Postpone(ctx, id, "1h"))

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.DueAt)
	assert.True(t, got.DueAt.Equal(now.Add(time.Hour)), "due at %s", got.DueAt)
}

func TestPostponeRejectsUnknownToken(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Dentist"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Postpone(ctx, id, "2h"), ErrInvalidPostpone)
}

func TestChangePriorityValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Dentist"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePriority(ctx, id, "urgent"), model.ErrInvalidPriority)

	require.NoError(t, svc.ChangePriority(ctx, id, model.PriorityLow))
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, got.Priority)
}

func TestMarkCompletedHidesFromDefaultListAndKeepsDueAt(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Dentist", DueAt: &due})
	require.NoError(t, err)

	require.NoError(t, svc.MarkCompleted(ctx, id, true))

	active, err := svc.List(ctx, 7, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.DueAt, "completion must not clear the due date")
	assert.True(t, got.DueAt.Equal(due))
}

func TestListByPriorityIsExactMatch(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "high one", Priority: model.PriorityHigh})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "medium one"})
	require.NoError(t, err)

	high, err := svc.ListByPriority(ctx, 7, model.PriorityHigh)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "high one", high[0].Title)

	_, err = svc.ListByPriority(ctx, 7, "urgent")
	assert.ErrorIs(t, err, model.ErrInvalidPriority)
}

func TestListByCategoryGoesToStore(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Dentist", Category: "health"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Taxes", Category: "finance"})
	require.NoError(t, err)

	health, err := svc.ListByCategory(ctx, 7, "health")
	require.NoError(t, err)
	require.Len(t, health, 1)
	assert.Equal(t, "Dentist", health[0].Title)
}

func TestListDueUsesServiceClock(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	_, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "past", DueAt: &past})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "future", DueAt: &future})
	require.NoError(t, err)

	due, err := svc.ListDue(ctx, 7)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "past", due[0].Title)
}

func TestDeleteRemovesPermanently(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	id, err := svc.Schedule(ctx, CreateReminder{OwnerID: 7, Title: "Dentist"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id), storage.ErrNotFound)
}
