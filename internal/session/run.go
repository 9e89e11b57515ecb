package session

import (
	"context"
	"errors"
	"io"

	"github.com/example/flashy/pkg/models"
)

// Presenter shows cards to the learner and reads the answers
type Presenter interface {
	// Show renders the card and waits until the learner is ready to answer.
	Show(ctx context.Context, card models.Card, remaining int) error
	// Ask reads one raw response key.
	Ask(ctx context.Context) (string, error)
	// Notice tells the learner something without expecting an answer.
	Notice(msg string)
}

// Player plays a card's audio. Play blocks until playback ends or ctx is done.
type Player interface {
	Play(ctx context.Context, ref string) error
}

// Run presents cards until the working set is empty or the learner quits.
// Unrecognized keys are re-prompted. Closed input counts as quit. Finish is
// always called; a storage or invariant failure is returned as *AbortError.
func (d *Driver) Run(ctx context.Context, s *Session, presenter Presenter, player Player) error {
	runErr := d.loop(ctx, s, presenter, player)

	// plans are flushed even when ctx was cancelled
	finishErr := d.Finish(context.WithoutCancel(ctx), s)

	if err := errors.Join(runErr, finishErr); err != nil {
		return newAbortError(s, err)
	}
	return nil
}

func (d *Driver) loop(ctx context.Context, s *Session, presenter Presenter, player Player) error {
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		card, _ := s.Current()

		if card.AudioRef != "" {
			if err := player.Play(ctx, card.AudioRef); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("audio playback failed", "card_id", card.ID, "ref", card.AudioRef, "error", err)
			}
		}

		if err := presenter.Show(ctx, card, s.Remaining()); err != nil {
			if errors.Is(err, io.EOF) {
				s.finished = true
				return nil
			}
			return err
		}

		outcome, err := d.ask(ctx, s, presenter)
		if err != nil {
			return err
		}
		if _, err := d.ApplyFeedback(ctx, s, card.ID, outcome); err != nil {
			return err
		}
	}
	return nil
}

// ask reads keys until one maps to an outcome
func (d *Driver) ask(ctx context.Context, s *Session, presenter Presenter) (models.Outcome, error) {
	for {
		key, err := presenter.Ask(ctx)
		if errors.Is(err, io.EOF) {
			return models.OutcomeQuit, nil
		}
		if err != nil {
			return "", err
		}

		outcome, err := models.ParseOutcome(key)
		if err == nil {
			return outcome, nil
		}
		s.logger.Debug("unrecognized response", "key", key)
		presenter.Notice("Please answer y (correct), n (incorrect), m (mastered) or q (quit).")
	}
}
