package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPriority  = errors.New("model: invalid reminder priority")
	ErrEmptyTitle       = errors.New("model: reminder title is required")
	ErrRecurrenceNeeded = errors.New("model: recurrence pattern is required for a recurring reminder")
	ErrRecurrenceUnused = errors.New("model: recurrence pattern must be nil for a non-recurring reminder")
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// User identifies a reminder owner. The ID is assigned by the surrounding
// chat platform, not by this service.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	CreatedAt time.Time
}

type Reminder struct {
	ID          string
	OwnerID     int64
	Title       string
	Description string
	DueAt       *time.Time
	Category    string
	Priority    Priority
	IsRecurring bool
	Recurrence  *Recurrence
	IsCompleted bool
	CreatedAt   time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if !r.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, r.Priority)
	}
	if r.IsRecurring && r.Recurrence == nil {
		return ErrRecurrenceNeeded
	}
	if !r.IsRecurring && r.Recurrence != nil {
		return ErrRecurrenceUnused
	}
	if r.Recurrence != nil {
		if err := r.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsDue reports whether the reminder should fire at the given instant.
// Reminders without a due date never fire.
func (r Reminder) IsDue(now time.Time) bool {
	if r.IsCompleted || r.DueAt == nil {
		return false
	}
	return !r.DueAt.After(now)
}
