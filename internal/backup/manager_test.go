package backup

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/remindd/internal/storage"
)

type fixture struct {
	manager *Manager
	repo    *storage.SQLiteRepository
	clock   *fakeClock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	// Each call advances the clock so generated filenames never collide.
	c.t = c.t.Add(time.Second)
	return c.t
}

func setupManager(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.MigrateUp(db))
	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)

	mgr, err := NewManager(db, repo, filepath.Join(dir, "backups"), nil)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	mgr.now = clock.now

	require.NoError(t, repo.UpsertUser(context.Background(), storage.User{ID: 7, FirstName: "Ada", Username: "ada"}))
	return fixture{manager: mgr, repo: repo, clock: clock}
}

func addReminder(t *testing.T, repo *storage.SQLiteRepository, title string) string {
	t.Helper()
	id, err := repo.CreateReminder(context.Background(), storage.Reminder{OwnerID: 7, Title: title})
	require.NoError(t, err)
	return id
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()

	addReminder(t, fx.repo, "keep me")

	path, err := fx.manager.Backup(ctx)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// Mutate after the snapshot, then restore.
	addReminder(t, fx.repo, "lost on restore")
	require.NoError(t, fx.manager.Restore(ctx, path))

	rows, err := fx.repo.ListReminders(ctx, 7, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep me", rows[0].Title)

	users, err := fx.repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].FirstName)
}

func TestRestoreRejectsMissingAndMalformedSnapshots(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()

	err := fx.manager.Restore(ctx, filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)

	// A random file is not a remindd store.
	bogus := filepath.Join(t.TempDir(), "bogus.db")
	require.NoError(t, os.WriteFile(bogus, []byte("not a database"), 0o644))
	assert.Error(t, fx.manager.Restore(ctx, bogus))

	// Live data survives failed restores.
	addReminder(t, fx.repo, "still here")
	rows, err := fx.repo.ListReminders(ctx, 7, true)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCleanupOldBackupsKeepsMostRecent(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()

	paths := make([]string, 0, 4)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		path, err := fx.manager.Backup(ctx)
		require.NoError(t, err)
		// Pin mtimes so recency ordering is deterministic.
		require.NoError(t, os.Chtimes(path, base.Add(time.Duration(i)*time.Hour), base.Add(time.Duration(i)*time.Hour)))
		paths = append(paths, path)
	}

	removed, err := fx.manager.CleanupOldBackups(2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := fx.manager.ListBackups()
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, paths[3], remaining[0])
	assert.Equal(t, paths[2], remaining[1])

	removed, err = fx.manager.CleanupOldBackups(10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()

	titles := []string{"alpha", "beta", "gamma"}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		ids = append(ids, addReminder(t, fx.repo, title))
	}

	path, err := fx.manager.ExportUser(ctx, 7, FormatJSON)
	require.NoError(t, err)

	for _, id := range ids {
		require.NoError(t, fx.repo.DeleteReminder(ctx, id))
	}

	require.NoError(t, fx.manager.ImportUser(ctx, path, 0))

	rows, err := fx.repo.ListReminders(ctx, 7, true)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	got := make([]string, 0, 3)
	for _, row := range rows {
		got = append(got, row.Title)
		assert.NotContains(t, ids, row.ID, "import must mint fresh ids")
	}
	assert.ElementsMatch(t, titles, got)
}

func TestExportUserUnknownOwner(t *testing.T) {
	fx := setupManager(t)
	_, err := fx.manager.ExportUser(context.Background(), 999, FormatJSON)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExportUserUnsupportedFormat(t *testing.T) {
	fx := setupManager(t)
	_, err := fx.manager.ExportUser(context.Background(), 7, "xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportCSVWritesSiblingFiles(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()
	addReminder(t, fx.repo, "alpha")

	path, err := fx.manager.ExportUser(ctx, 7, FormatCSV)
	require.NoError(t, err)
	userPath, remindersPath := csvSiblings(path)

	userRows := readAllCSV(t, userPath)
	require.Len(t, userRows, 2)
	assert.Equal(t, userCSVHeader, userRows[0])
	assert.Equal(t, "7", userRows[1][0])
	assert.Equal(t, "Ada", userRows[1][1])

	remRows := readAllCSV(t, remindersPath)
	require.Len(t, remRows, 2)
	assert.Equal(t, reminderCSVHeader, remRows[0])
	assert.Equal(t, "alpha", remRows[1][2])
}

func TestExportCSVNoReminders(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()

	path, err := fx.manager.ExportUser(ctx, 7, FormatCSV)
	require.NoError(t, err)
	_, remindersPath := csvSiblings(path)

	rows := readAllCSV(t, remindersPath)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"No reminders found"}, rows[0])
}

func TestImportCSVRoundTripWithOverrideOwner(t *testing.T) {
	fx := setupManager(t)
	ctx := context.Background()
	addReminder(t, fx.repo, "alpha")

	path, err := fx.manager.ExportUser(ctx, 7, FormatCSV)
	require.NoError(t, err)

	require.NoError(t, fx.manager.ImportUser(ctx, path, 99))

	rows, err := fx.repo.ListReminders(ctx, 99, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].Title)
	assert.Equal(t, int64(99), rows[0].OwnerID)

	user, err := fx.repo.GetUser(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
}

func readAllCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}
