// Package scheduler runs the periodic background jobs: due-card reminders and
// cleanup of mastered ledger rows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/flashy/internal/config"
	"github.com/example/flashy/internal/database"
	"github.com/example/flashy/pkg/models"
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *database.Store
	notifier  Notifier
	reminder  config.ReminderConfig
	cleanup   config.CleanupConfig
	logger    *slog.Logger
	now       func() time.Time
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, user models.User, due int) error
}

// New creates a new scheduler instance
func New(store *database.Store, notifier Notifier, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		store:     store,
		notifier:  notifier,
		reminder:  cfg.Reminder,
		cleanup:   cfg.Cleanup,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks. Jobs stop when ctx is done or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.scheduler.SingletonModeAll()

	if _, err := s.scheduler.Every(s.reminder.Interval).Do(s.checkAndSendReminders, ctx); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	if _, err := s.scheduler.Every(s.cleanup.Interval).Do(s.runCleanup, ctx); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		"reminder_interval", s.reminder.Interval,
		"cleanup_interval", s.cleanup.Interval,
	)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether t falls inside the configured reminder hours
func (s *Scheduler) InWindow(t time.Time) bool {
	h := t.Hour()
	return h >= s.reminder.StartHour && h <= s.reminder.EndHour
}

// checkAndSendReminders checks for users who need reminders and sends them
func (s *Scheduler) checkAndSendReminders(ctx context.Context) {
	now := s.now()
	if !s.InWindow(now) {
		s.logger.Debug("outside notification hours, skipping reminders",
			"hour", now.Hour(),
			"start_hour", s.reminder.StartHour,
			"end_hour", s.reminder.EndHour,
		)
		return
	}

	if _, err := s.RemindAll(ctx); err != nil {
		s.logger.Error("reminder pass failed", "error", err)
	}
}

// RemindAll notifies every user with cards to study today and returns how
// many were notified. A failure for one user does not stop the others.
func (s *Scheduler) RemindAll(ctx context.Context) (int, error) {
	users, err := s.store.Users.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range users {
		ok, err := s.remind(ctx, user)
		if err != nil {
			s.logger.Error("failed to remind user", "user_id", user.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// RunManualCheck forces a check for a specific user
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) error {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.remind(ctx, *user)
	return err
}

func (s *Scheduler) remind(ctx context.Context, user models.User) (bool, error) {
	due, err := s.store.Plans.CountDue(ctx, user.ID, models.DateOf(s.now()))
	if err != nil {
		return false, err
	}
	if due == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminder(ctx, user, due); err != nil {
		return false, fmt.Errorf("failed to send reminder: %w", err)
	}
	return true, nil
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	if _, err := s.Cleanup(ctx); err != nil {
		s.logger.Error("cleanup failed", "error", err)
	}
}

// Cleanup deletes the ledger rows of mastered cards
func (s *Scheduler) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.store.Records.DeleteMastered(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("mastered study records removed", "rows", n)
	return n, nil
}
