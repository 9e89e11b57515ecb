package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashy/pkg/models"
)

func TestReviewPlanRepository_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "alice")
	card := seedCards(t, store, "chat")[0]
	due := models.NewDate(2024, 3, 11)

	plan := &models.ReviewPlan{
		UserID:        user.ID,
		CardID:        card.ID,
		Status:        models.StatusReviewing,
		TotalAttempts: 3,
		ReviewStep:    1,
		NextDueDate:   due.Ptr(),
	}
	require.NoError(t, store.Plans.Upsert(ctx, plan))

	got, err := store.Plans.Get(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewing, got.Status)
	assert.Equal(t, 3, got.TotalAttempts)
	assert.Equal(t, 1, got.ReviewStep)
	require.NotNil(t, got.NextDueDate)
	assert.True(t, got.NextDueDate.Equal(due))

	// replace with a learning plan, clearing the due date
	plan.Status = models.StatusLearning
	plan.NextDueDate = nil
	plan.TotalAttempts = 4
	require.NoError(t, store.Plans.Upsert(ctx, plan))

	got, err = store.Plans.Get(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLearning, got.Status)
	assert.Nil(t, got.NextDueDate)
	assert.Equal(t, 4, got.TotalAttempts)

	plans, err := store.Plans.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestReviewPlanRepository_UpsertRejectsInvariantViolations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "alice")
	card := seedCards(t, store, "chat")[0]
	due := models.NewDate(2024, 3, 11)

	err := store.Plans.Upsert(ctx, &models.ReviewPlan{
		UserID: user.ID, CardID: card.ID, Status: models.StatusLearning, NextDueDate: due.Ptr(),
	})
	assert.ErrorIs(t, err, models.ErrInvariantViolation)

	err = store.Plans.Upsert(ctx, &models.ReviewPlan{
		UserID: user.ID, CardID: card.ID, Status: models.Status(9),
	})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	err = store.Plans.Upsert(ctx, &models.ReviewPlan{
		UserID: user.ID, CardID: card.ID, Status: models.StatusLearning, TotalAttempts: -1,
	})
	assert.ErrorIs(t, err, models.ErrInvariantViolation)

	_, err = store.Plans.Get(ctx, user.ID, card.ID)
	assert.ErrorIs(t, err, models.ErrPlanNotFound)
}

func TestReviewPlanRepository_Counts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "alice")
	cards := seedCards(t, store, "a", "b", "c", "d")
	today := models.NewDate(2024, 3, 10)

	plans := []models.ReviewPlan{
		{CardID: cards[0].ID, Status: models.StatusLearning},
		{CardID: cards[1].ID, Status: models.StatusReviewing, NextDueDate: today.AddDays(-1).Ptr()},
		{CardID: cards[2].ID, Status: models.StatusReviewing, NextDueDate: today.AddDays(2).Ptr()},
		{CardID: cards[3].ID, Status: models.StatusMastered},
	}
	for i := range plans {
		plans[i].UserID = user.ID
		require.NoError(t, store.Plans.Upsert(ctx, &plans[i]))
	}

	due, err := store.Plans.CountDue(ctx, user.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 2, due)

	counts, err := store.Plans.CountByStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{
		models.StatusLearning:  1,
		models.StatusReviewing: 2,
		models.StatusMastered:  1,
	}, counts)
}
