package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("storage: not found")
	ErrEmptyTitle = errors.New("storage: reminder title is required")
)

type Repository interface {
	UpsertUser(ctx context.Context, in User) error
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// CreateReminder assigns and returns the reminder id.
	CreateReminder(ctx context.Context, in Reminder) (string, error)
	GetReminder(ctx context.Context, id string) (Reminder, error)
	UpdateReminder(ctx context.Context, id string, upd ReminderUpdate) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, ownerID int64, includeCompleted bool) ([]Reminder, error)
	ListRemindersByCategory(ctx context.Context, ownerID int64, category string) ([]Reminder, error)
	ListDueReminders(ctx context.Context, ownerID int64, asOf time.Time) ([]Reminder, error)
}
