package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/flashy/internal/config"
	"github.com/example/flashy/internal/database"
	"github.com/example/flashy/internal/logger"
	"github.com/example/flashy/internal/spaced_repetition"
	"github.com/example/flashy/pkg/models"
)

var studyDay = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN:    ":memory:",
	}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestDriver(t *testing.T, store *database.Store, size int) *Driver {
	t.Helper()
	scheduler := spaced_repetition.NewScheduler(spaced_repetition.SimplePolicy{}, logger.Discard())
	return NewDriver(store, scheduler, size, logger.Discard(),
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return studyDay }),
		WithBcryptCost(bcrypt.MinCost),
	)
}

func seedCards(t *testing.T, store *database.Store, n int) []models.Card {
	t.Helper()
	cards := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		card := models.Card{Word: fmt.Sprintf("word%d", i), Sentence: "sentence"}
		require.NoError(t, store.Cards.Create(context.Background(), &card))
		cards = append(cards, card)
	}
	return cards
}

func TestStartSessionRegistersUserAndCapsSize(t *testing.T) {
	store := newTestStore(t)
	seedCards(t, store, 8)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User.Username)
	assert.NotZero(t, s.User.ID)
	assert.True(t, s.AsOf.Equal(models.NewDate(2024, 3, 10)))
	assert.Equal(t, 5, s.Remaining())
	assert.NotEqual(t, s.ID.String(), "")

	again, err := d.StartSession(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, again.User.ID)
	assert.NotEqual(t, s.ID, again.ID)
}

func TestStartSessionEmptyUsername(t *testing.T) {
	d := newTestDriver(t, newTestStore(t), 5)

	_, err := d.StartSession(context.Background(), "", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestStartSessionResumesByUsername(t *testing.T) {
	store := newTestStore(t)
	seedCards(t, store, 2)
	d := newTestDriver(t, store, 5)
	ctx := context.Background()

	first, err := d.StartSession(ctx, "alice", "s3cret")
	require.NoError(t, err)

	stored, err := store.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Credential)
	assert.NotEqual(t, "s3cret", stored.Credential)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Credential), []byte("s3cret")))

	for _, password := range []string{"", "wrong", "s3cret"} {
		s, err := d.StartSession(ctx, "alice", password)
		require.NoError(t, err, "password %q", password)
		assert.Equal(t, first.User.ID, s.User.ID)
		assert.Equal(t, 2, s.Remaining())
	}

	again, err := store.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, stored.Credential, again.Credential)
}

func TestApplyFeedbackAliceChatScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chat := models.Card{Word: "chat", Phonetic: "[tʃæt]", Sentence: "Let's chat."}
	require.NoError(t, store.Cards.Create(ctx, &chat))
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	current, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, chat.ID, current.ID)

	plan, err := d.ApplyFeedback(ctx, s, chat.ID, models.OutcomeIncorrect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLearning, plan.Status)
	assertTally(t, store, s, chat.ID, 0, 1)
	assert.Equal(t, 1, s.Remaining(), "learning cards stay in the working set")

	plan, err = d.ApplyFeedback(ctx, s, chat.ID, models.OutcomeCorrect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLearning, plan.Status)
	assertTally(t, store, s, chat.ID, 1, 1)

	plan, err = d.ApplyFeedback(ctx, s, chat.ID, models.OutcomeCorrect)
	require.NoError(t, err)
	assertTally(t, store, s, chat.ID, 2, 1)
	assert.Equal(t, models.StatusReviewing, plan.Status)
	require.NotNil(t, plan.NextDueDate)
	assert.True(t, plan.NextDueDate.Equal(s.AsOf.AddDays(1)))
	assert.True(t, s.Done())

	stored, err := store.Plans.Get(ctx, s.User.ID, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewing, stored.Status)
	assert.Equal(t, 3, stored.TotalAttempts)
	assert.Equal(t, chat.ID, s.LastPersisted())

	// not due again until tomorrow
	next, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 0, next.Remaining())
}

func TestApplyFeedbackMasteredIsTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 3)
	d := newTestDriver(t, store, 1)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	first, ok := s.Current()
	require.True(t, ok)

	_, err = d.ApplyFeedback(ctx, s, first.ID, models.OutcomeIncorrect)
	require.NoError(t, err)

	plan, err := d.ApplyFeedback(ctx, s, first.ID, models.OutcomeMastered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMastered, plan.Status)
	assert.Nil(t, plan.NextDueDate)

	// replaced immediately, cap still honoured
	require.Equal(t, 1, s.Remaining())
	replacement, _ := s.Current()
	assert.NotEqual(t, first.ID, replacement.ID)

	// answers for the mastered card are no longer accepted in this session
	_, err = d.ApplyFeedback(ctx, s, first.ID, models.OutcomeCorrect)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	for _, size := range []int{1, 5, 10} {
		d := newTestDriver(t, store, size)
		next, err := d.StartSession(ctx, "alice", "")
		require.NoError(t, err)
		assert.LessOrEqual(t, next.Remaining(), size)
		for _, c := range next.Cards() {
			assert.NotEqual(t, first.ID, c.ID, "mastered card came back")
		}
	}
}

func TestApplyFeedbackSkipsCardMasteredByAnotherSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cards := seedCards(t, store, 1)
	d := newTestDriver(t, store, 5)

	stale, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	other, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)

	_, err = d.ApplyFeedback(ctx, other, cards[0].ID, models.OutcomeMastered)
	require.NoError(t, err)

	plan, err := d.ApplyFeedback(ctx, stale, cards[0].ID, models.OutcomeCorrect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMastered, plan.Status)
	assert.True(t, stale.Done())

	_, err = store.Records.Tally(ctx, stale.User.ID, cards[0].ID, stale.AsOf)
	assert.ErrorIs(t, err, models.ErrStudyRecordNotFound)
	total, err := store.Records.TotalAttempts(ctx, stale.User.ID, cards[0].ID)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, d.Finish(ctx, stale))
}

func TestProgressCountsPlans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 4)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	cards := s.Cards()
	require.Len(t, cards, 4)

	_, err = d.ApplyFeedback(ctx, s, cards[0].ID, models.OutcomeCorrect)
	require.NoError(t, err)
	_, err = d.ApplyFeedback(ctx, s, cards[1].ID, models.OutcomeIncorrect)
	require.NoError(t, err)
	_, err = d.ApplyFeedback(ctx, s, cards[2].ID, models.OutcomeMastered)
	require.NoError(t, err)

	progress, err := d.Progress(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.ByStatus[models.StatusReviewing])
	assert.Equal(t, 1, progress.ByStatus[models.StatusLearning])
	assert.Equal(t, 1, progress.ByStatus[models.StatusMastered])
	assert.Equal(t, 2, progress.Active())
	assert.Equal(t, 2, progress.DueTomorrow, "the learning card and the review due tomorrow")
}

func TestApplyFeedbackMasteredWithoutPriorAnswer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 1)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	card, _ := s.Current()

	_, err = d.ApplyFeedback(ctx, s, card.ID, models.OutcomeMastered)
	require.NoError(t, err)
	assert.True(t, s.Done(), "no candidates left to refill")

	plan, err := store.Plans.Get(ctx, s.User.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMastered, plan.Status)
}

func TestApplyFeedbackQuitKeepsObservations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 2)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	card, _ := s.Current()

	_, err = d.ApplyFeedback(ctx, s, card.ID, models.OutcomeIncorrect)
	require.NoError(t, err)

	plan, err := d.ApplyFeedback(ctx, s, 0, models.OutcomeQuit)
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.True(t, s.Done())

	_, err = d.ApplyFeedback(ctx, s, card.ID, models.OutcomeCorrect)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	assertTally(t, store, s, card.ID, 0, 1)
}

func TestApplyFeedbackRejectsUnknownOutcome(t *testing.T) {
	store := newTestStore(t)
	seedCards(t, store, 1)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(context.Background(), "alice", "")
	require.NoError(t, err)
	card, _ := s.Current()

	_, err = d.ApplyFeedback(context.Background(), s, card.ID, models.Outcome("maybe"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFinishFlushesTouchedCards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 2)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	card, _ := s.Current()
	_, err = d.ApplyFeedback(ctx, s, card.ID, models.OutcomeIncorrect)
	require.NoError(t, err)

	require.NoError(t, d.Finish(ctx, s))
	require.NoError(t, d.Finish(ctx, s))
	assert.True(t, s.Done())

	plan, err := store.Plans.Get(ctx, s.User.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLearning, plan.Status)
	assert.Equal(t, 1, plan.TotalAttempts)
}

func TestApplyFeedbackStorageFailureMarksUnflushed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 1)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)
	card, _ := s.Current()

	require.NoError(t, store.Close())
	_, err = d.ApplyFeedback(ctx, s, card.ID, models.OutcomeCorrect)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPersistence))

	abort := newAbortError(s, err)
	assert.Equal(t, []int64{card.ID}, abort.Unflushed)
	assert.Zero(t, abort.LastPersisted)
	assert.Contains(t, abort.Error(), fmt.Sprintf("unflushed cards [%d]", card.ID))
}

func assertTally(t *testing.T, store *database.Store, s *Session, cardID int64, correct, incorrect int) {
	t.Helper()
	rec, err := store.Records.Tally(context.Background(), s.User.ID, cardID, s.AsOf)
	require.NoError(t, err)
	assert.Equal(t, correct, rec.CorrectCount)
	assert.Equal(t, incorrect, rec.IncorrectCount)
}
