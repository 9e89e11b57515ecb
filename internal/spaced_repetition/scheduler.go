// Package spaced_repetition decides when each card comes back: it classifies
// the day's answers and turns them into a review plan.
package spaced_repetition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/flashy/pkg/models"
)

// Ledger is the read side of the study record ledger
type Ledger interface {
	Tally(ctx context.Context, userID, cardID int64, day models.Date) (*models.StudyRecord, error)
	TotalAttempts(ctx context.Context, userID, cardID int64) (int, error)
}

// PlanStore persists review plans
type PlanStore interface {
	Get(ctx context.Context, userID, cardID int64) (*models.ReviewPlan, error)
	Upsert(ctx context.Context, plan *models.ReviewPlan) error
}

// Scheduler applies a Policy to ledger tallies
type Scheduler struct {
	policy Policy
	logger *slog.Logger
}

// NewScheduler creates a scheduler using policy
func NewScheduler(policy Policy, logger *slog.Logger) *Scheduler {
	return &Scheduler{policy: policy, logger: logger}
}

// Policy returns the policy in use
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// Reschedule recomputes and stores the plan for (user, card) from the tally
// recorded on asOf. The tally must exist: rescheduling a pair nobody answered
// that day is a programming error. Mastered plans are returned unchanged.
func (s *Scheduler) Reschedule(ctx context.Context, ledger Ledger, plans PlanStore, userID, cardID int64, asOf models.Date) (*models.ReviewPlan, error) {
	prev, err := s.currentPlan(ctx, plans, userID, cardID)
	if err != nil {
		return nil, err
	}
	if prev.Status == models.StatusMastered {
		return &prev, nil
	}

	tally, err := ledger.Tally(ctx, userID, cardID, asOf)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: reschedule without a study record for user %d card %d on %s",
				models.ErrInvariantViolation, userID, cardID, asOf)
		}
		return nil, err
	}

	total, err := ledger.TotalAttempts(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	classified := Classify(tally.CorrectCount, tally.IncorrectCount)
	next := s.policy.Next(prev, classified, asOf)
	next.UserID, next.CardID = userID, cardID
	next.TotalAttempts = total

	if err := plans.Upsert(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to save review plan: %w", err)
	}

	s.logger.Debug("card rescheduled",
		"user_id", userID,
		"card_id", cardID,
		"from", prev.Status,
		"to", next.Status,
		"next_due", next.NextDueDate,
	)
	return &next, nil
}

// Promote marks (user, card) as mastered. The pair leaves every future
// session; there is no way back.
func (s *Scheduler) Promote(ctx context.Context, plans PlanStore, userID, cardID int64) (*models.ReviewPlan, error) {
	plan, err := s.currentPlan(ctx, plans, userID, cardID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.StatusMastered {
		return &plan, nil
	}

	plan.UserID, plan.CardID = userID, cardID
	plan.Status = models.StatusMastered
	plan.NextDueDate = nil
	if err := plans.Upsert(ctx, &plan); err != nil {
		return nil, fmt.Errorf("failed to save review plan: %w", err)
	}

	s.logger.Debug("card mastered", "user_id", userID, "card_id", cardID)
	return &plan, nil
}

// currentPlan returns the stored plan, or a New plan for an unseen pair
func (s *Scheduler) currentPlan(ctx context.Context, plans PlanStore, userID, cardID int64) (models.ReviewPlan, error) {
	plan, err := plans.Get(ctx, userID, cardID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ReviewPlan{UserID: userID, CardID: cardID, Status: models.StatusNew}, nil
	}
	if err != nil {
		return models.ReviewPlan{}, err
	}
	return *plan, nil
}
