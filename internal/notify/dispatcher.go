// Package notify runs the background sweep that turns stored due
// reminders into notifications.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/reminders"
	"github.com/sandeepkv93/remindd/internal/storage"
)

const DefaultInterval = 60 * time.Second

// Notifier delivers one reminder to its owner. The dispatcher passes
// structured reminder data; rendering is the implementation's concern.
type Notifier interface {
	Notify(ctx context.Context, ownerID int64, rem model.Reminder) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ownerID int64, rem model.Reminder) error

func (f NotifierFunc) Notify(ctx context.Context, ownerID int64, rem model.Reminder) error {
	return f(ctx, ownerID, rem)
}

// Dispatcher polls the store on a fixed interval and notifies due
// reminders. Sweeps never overlap: the loop is strictly sleep, sweep,
// sleep. The interval is the cadence between sweep starts; a sweep longer
// than the interval delays the next tick rather than running concurrently.
type Dispatcher struct {
	repo     storage.Repository
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDispatcher(repo storage.Repository, notifier Notifier, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:     repo,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the poll loop. The first sweep runs immediately.
// Starting a running or stopped dispatcher is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	go d.loop()
}

// Stop asks the loop to exit and waits for it. An in-flight sweep finishes
// first; cancellation is only observed between sweeps.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()
	<-d.doneCh
}

func (d *Dispatcher) loop() {
	defer close(d.doneCh)

	ctx := context.Background()
	d.sweep(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

// sweep walks every user's due reminders in due-date order. A failed
// notification is logged and skipped; the reminder stays due and is
// retried on the next sweep. After a successful notification a recurring
// reminder advances to its next occurrence and a one-shot reminder is
// completed.
func (d *Dispatcher) sweep(ctx context.Context) {
	users, err := d.repo.ListUsers(ctx)
	if err != nil {
		d.logger.Error("sweep: list users failed", "error", err)
		return
	}

	now := d.now()
	notified := 0
	for _, user := range users {
		rows, err := d.repo.ListDueReminders(ctx, user.ID, now)
		if err != nil {
			d.logger.Error("sweep: list due reminders failed", "owner_id", user.ID, "error", err)
			continue
		}
		for _, row := range rows {
			rem, err := reminders.FromRow(row)
			if err != nil {
				d.logger.Error("sweep: bad reminder row", "reminder_id", row.ID, "error", err)
				continue
			}
			if err := d.notifier.Notify(ctx, user.ID, rem); err != nil {
				d.logger.Warn("sweep: notify failed, will retry next sweep",
					"reminder_id", rem.ID, "owner_id", user.ID, "error", err)
				continue
			}
			notified++
			d.advance(ctx, rem)
		}
	}
	if notified > 0 {
		d.logger.Info("sweep complete", "notified", notified)
	}
}

// advance applies the post-notification transition. Each update is its own
// atomic write; a crash after the notification re-notifies next sweep
// (at-least-once delivery).
func (d *Dispatcher) advance(ctx context.Context, rem model.Reminder) {
	if rem.IsRecurring && rem.Recurrence != nil && rem.DueAt != nil {
		if next, ok := rem.Recurrence.Next(*rem.DueAt); ok {
			if err := d.repo.UpdateReminder(ctx, rem.ID, storage.ReminderUpdate{DueAt: &next}); err != nil {
				d.logger.Error("sweep: advance due date failed", "reminder_id", rem.ID, "error", err)
			}
			return
		}
	}
	completed := true
	if err := d.repo.UpdateReminder(ctx, rem.ID, storage.ReminderUpdate{IsCompleted: &completed}); err != nil {
		d.logger.Error("sweep: mark completed failed", "reminder_id", rem.ID, "error", err)
	}
}
