// Package session drives a study session: it picks the working set, routes
// the learner's answers to the ledger and the scheduler, and flushes plans
// when the session ends.
package session

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/flashy/pkg/models"
)

// Session is the state of one study session. It is owned by a single
// goroutine.
type Session struct {
	ID   uuid.UUID
	User models.User
	AsOf models.Date

	queue     []models.Card
	seen      map[int64]bool // every card pulled into the session
	touched   map[int64]bool // cards with a persisted answer
	unflushed map[int64]bool // cards whose last write failed

	lastPersisted int64
	finished      bool
	logger        *slog.Logger
}

func newSession(user models.User, asOf models.Date, cards []models.Card, logger *slog.Logger) *Session {
	id := uuid.New()
	s := &Session{
		ID:        id,
		User:      user,
		AsOf:      asOf,
		queue:     cards,
		seen:      make(map[int64]bool, len(cards)),
		touched:   make(map[int64]bool),
		unflushed: make(map[int64]bool),
		logger:    logger.With("session_id", id.String(), "user", user.Username),
	}
	for _, c := range cards {
		s.seen[c.ID] = true
	}
	return s
}

// Current returns the card at the head of the working set
func (s *Session) Current() (models.Card, bool) {
	if len(s.queue) == 0 {
		return models.Card{}, false
	}
	return s.queue[0], true
}

// Cards returns a copy of the working set in presentation order
func (s *Session) Cards() []models.Card {
	cards := make([]models.Card, len(s.queue))
	copy(cards, s.queue)
	return cards
}

// Remaining returns the size of the working set
func (s *Session) Remaining() int {
	return len(s.queue)
}

// Done reports whether the learner quit or the working set is empty
func (s *Session) Done() bool {
	return s.finished || len(s.queue) == 0
}

// LastPersisted returns the last card whose answer reached storage, or 0
func (s *Session) LastPersisted() int64 {
	return s.lastPersisted
}

func (s *Session) indexOf(cardID int64) int {
	for i, c := range s.queue {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

func (s *Session) remove(cardID int64) {
	if i := s.indexOf(cardID); i >= 0 {
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
	}
}

func (s *Session) requeue(cardID int64) {
	i := s.indexOf(cardID)
	if i < 0 {
		return
	}
	card := s.queue[i]
	s.queue = append(append(s.queue[:i], s.queue[i+1:]...), card)
}

func (s *Session) add(card models.Card) {
	s.queue = append(s.queue, card)
	s.seen[card.ID] = true
}
