package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/flashy/internal/database"
	"github.com/example/flashy/internal/spaced_repetition"
	"github.com/example/flashy/pkg/models"
)

// Driver runs study sessions against a store
type Driver struct {
	store     *database.Store
	scheduler *spaced_repetition.Scheduler
	size      int
	logger    *slog.Logger

	rng        *rand.Rand
	now        func() time.Time
	bcryptCost int
}

// Option configures a Driver
type Option func(*Driver)

// WithRand sets the source used to shuffle the working set
func WithRand(rng *rand.Rand) Option {
	return func(d *Driver) { d.rng = rng }
}

// WithClock sets the clock that decides the study day
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithBcryptCost sets the cost used to hash new credentials
func WithBcryptCost(cost int) Option {
	return func(d *Driver) { d.bcryptCost = cost }
}

// NewDriver creates a driver pulling at most size cards per session
func NewDriver(store *database.Store, scheduler *spaced_repetition.Scheduler, size int, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		store:      store,
		scheduler:  scheduler,
		size:       size,
		logger:     logger,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewSource(d.now().UnixNano()))
	}
	return d
}

// StartSession looks the user up by name, registering unknown usernames, and
// loads the working set for today. A password is only hashed and stored when
// a new user is registered.
func (d *Driver) StartSession(ctx context.Context, username, password string) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", models.ErrInvalidInput)
	}

	user, err := d.lookupUser(ctx, username, password)
	if err != nil {
		return nil, err
	}

	asOf := models.DateOf(d.now())
	cards, err := d.store.Cards.ListUndueOrDue(ctx, user.ID, asOf, d.size, d.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}

	s := newSession(*user, asOf, cards, d.logger)
	s.logger.Info("session started", "as_of", asOf.String(), "cards", len(cards),
		"policy", d.scheduler.Policy().Name())
	return s, nil
}

func (d *Driver) lookupUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := d.store.Users.GetByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	var credential string
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash credential: %w", err)
		}
		credential = string(hash)
	}

	user, created, err := d.store.Users.GetOrCreate(ctx, username, credential)
	if err != nil {
		return nil, err
	}
	if created {
		d.logger.Info("user registered", "user", username, "user_id", user.ID)
	}
	return user, nil
}

// ApplyFeedback routes one answer for a card of the working set.
//
// correct and incorrect are recorded in the ledger and the card is
// rescheduled in the same transaction; a card still Learning goes to the back
// of the queue, anything else leaves it. A card already mastered by another
// session leaves the queue without a ledger entry. mastered promotes the card
// and replaces it with the next eligible candidate. quit finishes the session.
// The returned plan is nil for quit.
func (d *Driver) ApplyFeedback(ctx context.Context, s *Session, cardID int64, outcome models.Outcome) (*models.ReviewPlan, error) {
	if s.finished {
		return nil, fmt.Errorf("%w: session already finished", models.ErrInvalidInput)
	}
	if !outcome.IsValid() {
		return nil, fmt.Errorf("%w: outcome %q", models.ErrInvalidInput, outcome)
	}
	if outcome == models.OutcomeQuit {
		s.finished = true
		s.logger.Info("session quit", "remaining", len(s.queue))
		return nil, nil
	}
	if s.indexOf(cardID) < 0 {
		return nil, fmt.Errorf("%w: card %d is not in the session", models.ErrInvalidInput, cardID)
	}

	if outcome == models.OutcomeMastered {
		return d.master(ctx, s, cardID)
	}

	correct, incorrect := outcome.Deltas()
	var (
		plan     *models.ReviewPlan
		mastered bool
	)
	err := d.store.InTx(ctx, func(r database.Repositories) error {
		if _, err := r.Cards.GetByID(ctx, cardID); err != nil {
			return err
		}
		prev, err := r.Plans.Get(ctx, s.User.ID, cardID)
		switch {
		case err == nil && prev.Status == models.StatusMastered:
			plan, mastered = prev, true
			return nil
		case err != nil && !errors.Is(err, models.ErrPlanNotFound):
			return err
		}
		if _, err := r.Records.Record(ctx, s.User.ID, cardID, s.AsOf, correct, incorrect); err != nil {
			return err
		}
		plan, err = d.scheduler.Reschedule(ctx, r.Records, r.Plans, s.User.ID, cardID, s.AsOf)
		return err
	})
	if err != nil {
		s.unflushed[cardID] = true
		return nil, err
	}

	if mastered {
		delete(s.touched, cardID)
		s.remove(cardID)
		s.logger.Info("card already mastered", "card_id", cardID)
		return plan, nil
	}

	s.markPersisted(cardID)
	s.touched[cardID] = true
	if plan.Status == models.StatusLearning {
		s.requeue(cardID)
	} else {
		s.remove(cardID)
	}

	s.logger.Debug("answer recorded", "card_id", cardID, "outcome", outcome, "status", plan.Status)
	return plan, nil
}

func (d *Driver) master(ctx context.Context, s *Session, cardID int64) (*models.ReviewPlan, error) {
	var plan *models.ReviewPlan
	err := d.store.InTx(ctx, func(r database.Repositories) error {
		if _, err := r.Cards.GetByID(ctx, cardID); err != nil {
			return err
		}
		var err error
		plan, err = d.scheduler.Promote(ctx, r.Plans, s.User.ID, cardID)
		return err
	})
	if err != nil {
		s.unflushed[cardID] = true
		return nil, err
	}

	s.markPersisted(cardID)
	delete(s.touched, cardID)
	s.remove(cardID)
	s.logger.Info("card mastered", "card_id", cardID)

	if err := d.refill(ctx, s); err != nil {
		return nil, err
	}
	return plan, nil
}

// refill appends the next eligible card that has not been in the session yet
func (d *Driver) refill(ctx context.Context, s *Session) error {
	candidates, err := d.store.Cards.ListUndueOrDue(ctx, s.User.ID, s.AsOf, -1, d.rng)
	if err != nil {
		return fmt.Errorf("failed to load replacement card: %w", err)
	}
	for _, c := range candidates {
		if !s.seen[c.ID] {
			s.add(c)
			return nil
		}
	}
	return nil
}

// Finish flushes the plans of every answered card still in the working set
// and marks the session finished. It is safe to call more than once.
func (d *Driver) Finish(ctx context.Context, s *Session) error {
	var errs []error
	for _, card := range s.Cards() {
		if !s.touched[card.ID] {
			continue
		}
		err := d.store.InTx(ctx, func(r database.Repositories) error {
			_, err := d.scheduler.Reschedule(ctx, r.Records, r.Plans, s.User.ID, card.ID, s.AsOf)
			return err
		})
		if err != nil {
			s.unflushed[card.ID] = true
			errs = append(errs, fmt.Errorf("failed to flush card %d: %w", card.ID, err))
			continue
		}
		s.markPersisted(card.ID)
	}

	s.finished = true
	s.logger.Info("session finished", "remaining", len(s.queue), "unflushed", len(s.unflushed))
	return errors.Join(errs...)
}

func (s *Session) markPersisted(cardID int64) {
	s.lastPersisted = cardID
	delete(s.unflushed, cardID)
}

// Progress reports the user's plans by status and how many of them come up
// the day after the session.
func (d *Driver) Progress(ctx context.Context, s *Session) (models.Progress, error) {
	counts, err := d.store.Plans.CountByStatus(ctx, s.User.ID)
	if err != nil {
		return models.Progress{}, err
	}
	plans, err := d.store.Plans.ListByUser(ctx, s.User.ID)
	if err != nil {
		return models.Progress{}, err
	}

	tomorrow := s.AsOf.AddDays(1)
	progress := models.Progress{ByStatus: counts}
	for i := range plans {
		if plans[i].IsDueOn(tomorrow) {
			progress.DueTomorrow++
		}
	}
	return progress, nil
}
