// Package reminders implements the reminder lifecycle operations:
// scheduling, rescheduling, postponing, field changes, completion,
// deletion, and the list projections the chat surface renders.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/storage"
)

var ErrInvalidPostpone = errors.New("reminders: invalid postpone duration")

// postponeDurations are the offsets the chat surface offers on a fired
// reminder.
var postponeDurations = map[string]time.Duration{
	"1h": time.Hour,
	"3h": 3 * time.Hour,
	"1d": 24 * time.Hour,
	"1w": 7 * 24 * time.Hour,
}

type Service struct {
	repo   storage.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo storage.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// RegisterUser records or refreshes a user's profile. The chat surface
// calls it on every interaction, so it must be idempotent.
func (s *Service) RegisterUser(ctx context.Context, user model.User) error {
	return s.repo.UpsertUser(ctx, storage.User{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// CreateReminder carries the fields the conversation collaborator gathered.
// A non-nil Recurrence makes the reminder recurring.
type CreateReminder struct {
	OwnerID     int64
	Title       string
	Description string
	DueAt       *time.Time
	Category    string
	Priority    model.Priority
	Recurrence  *model.Recurrence
}

func (s *Service) Schedule(ctx context.Context, in CreateReminder) (string, error) {
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	rem := model.Reminder{
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		DueAt:       in.DueAt,
		Category:    in.Category,
		Priority:    priority,
		IsRecurring: in.Recurrence != nil,
		Recurrence:  in.Recurrence,
	}
	if err := rem.Validate(); err != nil {
		return "", err
	}

	row, err := ToRow(rem)
	if err != nil {
		return "", err
	}
	id, err := s.repo.CreateReminder(ctx, row)
	if err != nil {
		return "", err
	}
	s.logger.Info("reminder scheduled", "reminder_id", id, "owner_id", in.OwnerID)
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Reminder, error) {
	row, err := s.repo.GetReminder(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}
	return FromRow(row)
}

// Reschedule overwrites the due date.
func (s *Service) Reschedule(ctx context.Context, id string, dueAt time.Time) error {
	if err := s.repo.UpdateReminder(ctx, id, storage.ReminderUpdate{DueAt: &dueAt}); err != nil {
		return err
	}
	s.logger.Info("reminder rescheduled", "reminder_id", id, "due_at", dueAt)
	return nil
}

// Postpone shifts the due date by a fixed token amount. A reminder with no
// due date is postponed relative to now.
func (s *Service) Postpone(ctx context.Context, id string, token string) error {
	d, ok := postponeDurations[token]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostpone, token)
	}
	row, err := s.repo.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	base := s.now()
	if row.DueAt != nil {
		base = *row.DueAt
	}
	return s.Reschedule(ctx, id, base.Add(d))
}

func (s *Service) ChangePriority(ctx context.Context, id string, priority model.Priority) error {
	if !priority.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidPriority, priority)
	}
	p := string(priority)
	return s.repo.UpdateReminder(ctx, id, storage.ReminderUpdate{Priority: &p})
}

func (s *Service) ChangeCategory(ctx context.Context, id string, category string) error {
	return s.repo.UpdateReminder(ctx, id, storage.ReminderUpdate{Category: &category})
}

// MarkCompleted sets the completion flag. The due date is left in place so
// the reminder can be reopened.
func (s *Service) MarkCompleted(ctx context.Context, id string, completed bool) error {
	if err := s.repo.UpdateReminder(ctx, id, storage.ReminderUpdate{IsCompleted: &completed}); err != nil {
		return err
	}
	s.logger.Info("reminder completion changed", "reminder_id", id, "completed", completed)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteReminder(ctx, id); err != nil {
		return err
	}
	s.logger.Info("reminder deleted", "reminder_id", id)
	return nil
}

func (s *Service) List(ctx context.Context, ownerID int64, includeCompleted bool) ([]model.Reminder, error) {
	rows, err := s.repo.ListReminders(ctx, ownerID, includeCompleted)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func (s *Service) ListByCategory(ctx context.Context, ownerID int64, category string) ([]model.Reminder, error) {
	rows, err := s.repo.ListRemindersByCategory(ctx, ownerID, category)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

// ListByPriority filters the active list in memory; priority has no index
// and lists are per-user small.
func (s *Service) ListByPriority(ctx context.Context, ownerID int64, priority model.Priority) ([]model.Reminder, error) {
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidPriority, priority)
	}
	all, err := s.List(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.Reminder, 0, len(all))
	for _, rem := range all {
		if rem.Priority == priority {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (s *Service) ListDue(ctx context.Context, ownerID int64) ([]model.Reminder, error) {
	rows, err := s.repo.ListDueReminders(ctx, ownerID, s.now())
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}
