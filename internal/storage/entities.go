package storage

import "time"

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	CreatedAt time.Time
}

// Reminder is the storage row. Recurrence holds the JSON-encoded pattern;
// decoding into the model variant happens above this layer.
type Reminder struct {
	ID          string
	OwnerID     int64
	Title       string
	Description string
	DueAt       *time.Time
	Category    string
	Priority    string
	IsRecurring bool
	Recurrence  string
	IsCompleted bool
	CreatedAt   time.Time
}

// ReminderUpdate is a typed partial update: only non-nil fields change.
type ReminderUpdate struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	Category    *string
	Priority    *string
	IsRecurring *bool
	Recurrence  *string
	IsCompleted *bool
}

func (u ReminderUpdate) isEmpty() bool {
	return u.Title == nil && u.Description == nil && u.DueAt == nil &&
		u.Category == nil && u.Priority == nil && u.IsRecurring == nil &&
		u.Recurrence == nil && u.IsCompleted == nil
}
