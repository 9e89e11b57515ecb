package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashy/pkg/models"
)

// StudyRecordRepository is the study ledger: per user, card and day tallies
// of correct and incorrect answers.
type StudyRecordRepository struct {
	db sqlx.ExtContext
}

// NewStudyRecordRepository creates a new repository instance
func NewStudyRecordRepository(db sqlx.ExtContext) *StudyRecordRepository {
	return &StudyRecordRepository{db: db}
}

// Record adds the deltas to the tally for (user, card, day), creating the
// row when it does not exist, and returns the tally after the update. The
// increment is a single statement so concurrent writers cannot lose updates.
func (r *StudyRecordRepository) Record(ctx context.Context, userID, cardID int64, day models.Date, correctDelta, incorrectDelta int) (*models.StudyRecord, error) {
	if correctDelta < 0 || incorrectDelta < 0 || correctDelta+incorrectDelta == 0 {
		return nil, fmt.Errorf("%w: deltas (%d, %d)", models.ErrInvalidInput, correctDelta, incorrectDelta)
	}

	query := r.db.Rebind(`
		INSERT INTO study_records (user_id, card_id, study_date, correct_count, incorrect_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, card_id, study_date) DO UPDATE SET
			correct_count = study_records.correct_count + excluded.correct_count,
			incorrect_count = study_records.incorrect_count + excluded.incorrect_count
		RETURNING user_id, card_id, study_date, correct_count, incorrect_count
	`)
	var rec models.StudyRecord
	err := sqlx.GetContext(ctx, r.db, &rec, query, userID, cardID, day, correctDelta, incorrectDelta)
	if err != nil {
		return nil, newPersistenceError("record", "study record", err)
	}
	return &rec, nil
}

// Tally returns the tally for (user, card, day)
func (r *StudyRecordRepository) Tally(ctx context.Context, userID, cardID int64, day models.Date) (*models.StudyRecord, error) {
	query := r.db.Rebind(`
		SELECT user_id, card_id, study_date, correct_count, incorrect_count
		FROM study_records
		WHERE user_id = ? AND card_id = ? AND study_date = ?
	`)
	var rec models.StudyRecord
	if err := sqlx.GetContext(ctx, r.db, &rec, query, userID, cardID, day); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d card %d on %s", models.ErrStudyRecordNotFound, userID, cardID, day)
		}
		return nil, newPersistenceError("get", "study record", err)
	}
	return &rec, nil
}

// TotalAttempts returns the number of answers ever recorded for (user, card)
func (r *StudyRecordRepository) TotalAttempts(ctx context.Context, userID, cardID int64) (int, error) {
	query := r.db.Rebind(`
		SELECT COALESCE(SUM(correct_count + incorrect_count), 0)
		FROM study_records
		WHERE user_id = ? AND card_id = ?
	`)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, query, userID, cardID); err != nil {
		return 0, newPersistenceError("sum", "study records", err)
	}
	return total, nil
}

// DeleteMastered removes the ledger rows of every mastered (user, card) pair
// and returns how many rows were deleted. Review plans are kept so mastered
// cards stay out of rotation.
func (r *StudyRecordRepository) DeleteMastered(ctx context.Context) (int64, error) {
	query := r.db.Rebind(`
		DELETE FROM study_records
		WHERE EXISTS (
			SELECT 1 FROM review_plans p
			WHERE p.user_id = study_records.user_id
			AND p.card_id = study_records.card_id
			AND p.status = ?
		)
	`)
	result, err := r.db.ExecContext(ctx, query, int(models.StatusMastered))
	if err != nil {
		return 0, newPersistenceError("delete", "study records", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, newPersistenceError("count deleted", "study records", err)
	}
	return rows, nil
}
