package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashy/pkg/models"
)

const cardColumns = `c.id, COALESCE(c.phonetic, '') AS phonetic, c.word,
	COALESCE(c.sentence, '') AS sentence, COALESCE(c.audio_ref, '') AS audio_ref`

// CardRepository handles database operations for cards
type CardRepository struct {
	db sqlx.ExtContext
}

// NewCardRepository creates a new repository instance
func NewCardRepository(db sqlx.ExtContext) *CardRepository {
	return &CardRepository{db: db}
}

// SessionBuckets holds the candidate cards of a session, split by priority.
type SessionBuckets struct {
	Learning []models.Card // cards the user is still learning
	Due      []models.Card // reviewing cards due on or before the session day
	Unseen   []models.Card // cards the user has never studied
}

// Len returns the number of candidates across all buckets.
func (b SessionBuckets) Len() int {
	return len(b.Learning) + len(b.Due) + len(b.Unseen)
}

// GetByID returns a card by ID
func (r *CardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	var card models.Card
	query := r.db.Rebind("SELECT " + cardColumns + " FROM cards c WHERE c.id = ?")
	if err := sqlx.GetContext(ctx, r.db, &card, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", models.ErrCardNotFound, id)
		}
		return nil, newPersistenceError("get", "card", err)
	}
	return &card, nil
}

// GetAll returns all cards ordered by ID
func (r *CardRepository) GetAll(ctx context.Context) ([]models.Card, error) {
	return r.selectCards(ctx, "SELECT "+cardColumns+" FROM cards c ORDER BY c.id")
}

// Count returns the number of cards in the catalog
func (r *CardRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, "SELECT COUNT(*) FROM cards"); err != nil {
		return 0, newPersistenceError("count", "cards", err)
	}
	return n, nil
}

// Create inserts a new card and sets its ID. A card whose word is already in
// the catalog is not inserted and models.ErrDuplicate is returned.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := r.db.Rebind(`
		INSERT INTO cards (phonetic, word, sentence, audio_ref)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (word) DO NOTHING
		RETURNING id
	`)
	err := sqlx.GetContext(ctx, r.db, &card.ID, query,
		card.Phonetic,
		card.Word,
		card.Sentence,
		card.AudioRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: card %q", models.ErrDuplicate, card.Word)
	}
	if err != nil {
		return newPersistenceError("create", "card", err)
	}
	return nil
}

// ListBuckets returns every session candidate for the user, split into the
// learning, due and unseen buckets. Mastered cards and reviewing cards due
// after asOf are in none of them.
func (r *CardRepository) ListBuckets(ctx context.Context, userID int64, asOf models.Date) (SessionBuckets, error) {
	var (
		b   SessionBuckets
		err error
	)

	b.Learning, err = r.selectCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN review_plans p ON p.card_id = c.id
		WHERE p.user_id = ? AND p.status = ?
		ORDER BY c.id
	`, userID, int(models.StatusLearning))
	if err != nil {
		return b, err
	}

	b.Due, err = r.selectCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN review_plans p ON p.card_id = c.id
		WHERE p.user_id = ? AND p.status = ? AND p.next_due_date <= ?
		ORDER BY c.id
	`, userID, int(models.StatusReviewing), asOf)
	if err != nil {
		return b, err
	}

	b.Unseen, err = r.selectCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		WHERE NOT EXISTS (
			SELECT 1 FROM review_plans p WHERE p.card_id = c.id AND p.user_id = ?
		)
		ORDER BY c.id
	`, userID)
	if err != nil {
		return b, err
	}

	return b, nil
}

// ListUndueOrDue returns the working set for a session: learning cards, then
// cards due for review, then unseen cards, each bucket shuffled with rng and
// the whole sequence capped at limit. A negative limit means no cap.
func (r *CardRepository) ListUndueOrDue(ctx context.Context, userID int64, asOf models.Date, limit int, rng *rand.Rand) ([]models.Card, error) {
	b, err := r.ListBuckets(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}
	return b.Flatten(limit, rng), nil
}

// Flatten shuffles each bucket in place and concatenates them in priority
// order, keeping at most limit cards. A nil rng uses a time-seeded source.
func (b SessionBuckets) Flatten(limit int, rng *rand.Rand) []models.Card {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	cards := make([]models.Card, 0, b.Len())
	for _, bucket := range [][]models.Card{b.Learning, b.Due, b.Unseen} {
		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
		cards = append(cards, bucket...)
	}

	if limit >= 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	return cards
}

func (r *CardRepository) selectCards(ctx context.Context, query string, args ...interface{}) ([]models.Card, error) {
	cards := []models.Card{}
	if err := sqlx.SelectContext(ctx, r.db, &cards, r.db.Rebind(query), args...); err != nil {
		return nil, newPersistenceError("list", "cards", err)
	}
	return cards, nil
}
