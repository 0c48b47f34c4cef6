package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

const reminderColumns = `id, owner_id, title, description, due_at, category, priority, is_recurring, recurrence, is_completed, created_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, in User) error {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, username, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET first_name = excluded.first_name,
			last_name = excluded.last_name,
			username = excluded.username`,
		in.ID, in.FirstName, in.LastName, in.Username, mustTime(createdAt),
	)
	return err
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, username, created_at
		FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, username, created_at
		FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in Reminder) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", ErrEmptyTitle
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.OwnerID, in.Title, in.Description, nullTime(in.DueAt), in.Category,
		priority, boolInt(in.IsRecurring), in.Recurrence, boolInt(in.IsCompleted), mustTime(createdAt),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders WHERE id = ?`, id)
	item, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, id string, upd ReminderUpdate) error {
	if upd.isEmpty() {
		return errors.New("storage: empty reminder update")
	}
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return ErrEmptyTitle
		}
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.DueAt != nil {
		sets = append(sets, "due_at = ?")
		args = append(args, mustTime(*upd.DueAt))
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *upd.Priority)
	}
	if upd.IsRecurring != nil {
		sets = append(sets, "is_recurring = ?")
		args = append(args, boolInt(*upd.IsRecurring))
	}
	if upd.Recurrence != nil {
		sets = append(sets, "recurrence = ?")
		args = append(args, *upd.Recurrence)
	}
	if upd.IsCompleted != nil {
		sets = append(sets, "is_completed = ?")
		args = append(args, boolInt(*upd.IsCompleted))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE reminders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// ListReminders orders by due date ascending; reminders without a due date
// sort last, ties broken by id so repeated reads are stable.
func (r *SQLiteRepository) ListReminders(ctx context.Context, ownerID int64, includeCompleted bool) ([]Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE owner_id = ?`
	if !includeCompleted {
		query += ` AND is_completed = 0`
	}
	query += ` ORDER BY due_at IS NULL, due_at ASC, id ASC`
	return r.queryReminders(ctx, query, ownerID)
}

func (r *SQLiteRepository) ListRemindersByCategory(ctx context.Context, ownerID int64, category string) ([]Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
		WHERE owner_id = ? AND category = ? AND is_completed = 0
		ORDER BY due_at IS NULL, due_at ASC, id ASC`
	return r.queryReminders(ctx, query, ownerID, category)
}

func (r *SQLiteRepository) ListDueReminders(ctx context.Context, ownerID int64, asOf time.Time) ([]Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
		WHERE owner_id = ? AND due_at IS NOT NULL AND due_at <= ? AND is_completed = 0
		ORDER BY due_at ASC, id ASC`
	return r.queryReminders(ctx, query, ownerID, mustTime(asOf))
}

func (r *SQLiteRepository) queryReminders(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (User, error) {
	var out User
	var created string
	if err := s.Scan(&out.ID, &out.FirstName, &out.LastName, &out.Username, &created); err != nil {
		return User{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return User{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func scanReminder(s scanner) (Reminder, error) {
	var out Reminder
	var due sql.NullString
	var recurring int
	var completed int
	var created string
	if err := s.Scan(&out.ID, &out.OwnerID, &out.Title, &out.Description, &due, &out.Category,
		&out.Priority, &recurring, &out.Recurrence, &completed, &created); err != nil {
		return Reminder{}, err
	}
	dueAt, err := parseNullableTime(due)
	if err != nil {
		return Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Reminder{}, err
	}
	out.DueAt = dueAt
	out.IsRecurring = recurring == 1
	out.IsCompleted = completed == 1
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
