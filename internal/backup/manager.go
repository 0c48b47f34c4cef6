// Package backup provides point-in-time snapshots of the reminder store
// and per-user data export/import.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/remindd/internal/storage"
)

var ErrUnsupportedFormat = errors.New("backup: unsupported export format")

const backupTimeFormat = "20060102_150405"

type Manager struct {
	db     *sql.DB
	repo   storage.Repository
	dir    string
	logger *slog.Logger
	now    func() time.Time
	cron   *cron.Cron
}

func NewManager(db *sql.DB, repo storage.Repository, dir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Manager{db: db, repo: repo, dir: dir, logger: logger, now: time.Now}, nil
}

// Backup writes a consistent snapshot of the whole store into the backup
// directory and returns its path. VACUUM INTO produces a compacted copy
// that is safe while other writers are active.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	name := fmt.Sprintf("remindd_backup_%s.db", m.now().Format(backupTimeFormat))
	path := filepath.Join(m.dir, name)

	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("snapshot store: %w", err)
	}
	m.logger.Info("backup created", "path", path)
	return path, nil
}

// Restore replaces live store contents with the snapshot at path. The
// snapshot is attached on a pinned connection and copied row-for-row
// inside one transaction, so the open handle stays valid.
func (m *Manager) Restore(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pin connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS snapshot`, path); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `DETACH DATABASE snapshot`)
	}()

	// Reject snapshots missing the expected schema before touching live data.
	var tables int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM snapshot.sqlite_master
		WHERE type = 'table' AND name IN ('users', 'reminders')`).Scan(&tables)
	if err != nil {
		return fmt.Errorf("inspect snapshot: %w", err)
	}
	if tables != 2 {
		return fmt.Errorf("restore %s: snapshot is not a remindd store", path)
	}

	stmts := []string{
		`BEGIN IMMEDIATE`,
		`DELETE FROM reminders`,
		`DELETE FROM users`,
		`INSERT INTO users SELECT * FROM snapshot.users`,
		`INSERT INTO reminders SELECT * FROM snapshot.reminders`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_, _ = conn.ExecContext(ctx, `ROLLBACK`)
			return fmt.Errorf("restore %s: %w", path, err)
		}
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}

	m.logger.Info("store restored", "path", path)
	return nil
}

// ListBackups returns snapshot paths, most recently modified first.
func (m *Manager) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	type backupFile struct {
		path    string
		modTime time.Time
	}
	files := make([]backupFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, backupFile{path: filepath.Join(m.dir, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.path)
	}
	return out, nil
}

// CleanupOldBackups keeps the max most recent snapshots and deletes the
// rest, returning how many were removed.
func (m *Manager) CleanupOldBackups(max int) (int, error) {
	backups, err := m.ListBackups()
	if err != nil {
		return 0, err
	}
	if max < 0 {
		max = 0
	}
	if len(backups) <= max {
		return 0, nil
	}

	removed := 0
	for _, path := range backups[max:] {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove old backup: %w", err)
		}
		m.logger.Info("removed old backup", "path", path)
		removed++
	}
	return removed, nil
}

// StartSchedule runs Backup and CleanupOldBackups on the given cron spec
// (e.g. "0 3 * * *" for nightly at 03:00).
func (m *Manager) StartSchedule(spec string, maxBackups int) error {
	if m.cron != nil {
		return errors.New("backup: schedule already started")
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		if _, err := m.Backup(ctx); err != nil {
			m.logger.Error("scheduled backup failed", "error", err)
			return
		}
		if _, err := m.CleanupOldBackups(maxBackups); err != nil {
			m.logger.Error("backup cleanup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}
	m.cron = c
	c.Start()
	m.logger.Info("backup schedule started", "spec", spec, "max_backups", maxBackups)
	return nil
}

// StopSchedule stops the cron schedule and waits for a running job.
func (m *Manager) StopSchedule() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.cron = nil
}
