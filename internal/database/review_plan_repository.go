package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashy/pkg/models"
)

const planColumns = "user_id, card_id, status, total_attempts, review_step, next_due_date"

// ReviewPlanRepository stores the scheduling state of each (user, card) pair
type ReviewPlanRepository struct {
	db sqlx.ExtContext
}

// NewReviewPlanRepository creates a new repository instance
func NewReviewPlanRepository(db sqlx.ExtContext) *ReviewPlanRepository {
	return &ReviewPlanRepository{db: db}
}

// Get returns the plan for (user, card)
func (r *ReviewPlanRepository) Get(ctx context.Context, userID, cardID int64) (*models.ReviewPlan, error) {
	query := r.db.Rebind("SELECT " + planColumns + " FROM review_plans WHERE user_id = ? AND card_id = ?")
	var plan models.ReviewPlan
	if err := sqlx.GetContext(ctx, r.db, &plan, query, userID, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d card %d", models.ErrPlanNotFound, userID, cardID)
		}
		return nil, newPersistenceError("get", "review plan", err)
	}
	return &plan, nil
}

// ListByUser returns every plan of a user ordered by card
func (r *ReviewPlanRepository) ListByUser(ctx context.Context, userID int64) ([]models.ReviewPlan, error) {
	query := r.db.Rebind("SELECT " + planColumns + " FROM review_plans WHERE user_id = ? ORDER BY card_id")
	plans := []models.ReviewPlan{}
	if err := sqlx.SelectContext(ctx, r.db, &plans, query, userID); err != nil {
		return nil, newPersistenceError("list", "review plans", err)
	}
	return plans, nil
}

// Upsert creates or replaces the plan for (plan.UserID, plan.CardID). Plans
// breaking the status/due-date invariant are rejected before any write.
func (r *ReviewPlanRepository) Upsert(ctx context.Context, plan *models.ReviewPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.TotalAttempts < 0 || plan.ReviewStep < 0 {
		return fmt.Errorf("%w: negative counters in plan for card %d", models.ErrInvariantViolation, plan.CardID)
	}

	query := r.db.Rebind(`
		INSERT INTO review_plans (user_id, card_id, status, total_attempts, review_step, next_due_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			status = excluded.status,
			total_attempts = excluded.total_attempts,
			review_step = excluded.review_step,
			next_due_date = excluded.next_due_date,
			updated_at = CURRENT_TIMESTAMP
	`)
	_, err := r.db.ExecContext(ctx, query,
		plan.UserID, plan.CardID, int(plan.Status), plan.TotalAttempts, plan.ReviewStep, plan.NextDueDate)
	if err != nil {
		return newPersistenceError("upsert", "review plan", err)
	}
	return nil
}

// CountByStatus returns how many plans of a user are in each status
func (r *ReviewPlanRepository) CountByStatus(ctx context.Context, userID int64) (map[models.Status]int, error) {
	query := r.db.Rebind("SELECT status, COUNT(*) AS n FROM review_plans WHERE user_id = ? GROUP BY status")
	var rows []struct {
		Status models.Status `db:"status"`
		N      int           `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID); err != nil {
		return nil, newPersistenceError("count", "review plans", err)
	}
	counts := make(map[models.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

// CountDue returns how many cards of a user need attention on asOf:
// Learning cards plus Reviewing cards due on or before that day.
func (r *ReviewPlanRepository) CountDue(ctx context.Context, userID int64, asOf models.Date) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM review_plans
		WHERE user_id = ?
		AND (status = ? OR (status = ? AND next_due_date <= ?))
	`)
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, query,
		userID, int(models.StatusLearning), int(models.StatusReviewing), asOf)
	if err != nil {
		return 0, newPersistenceError("count due", "review plans", err)
	}
	return n, nil
}
