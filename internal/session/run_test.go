package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashy/pkg/models"
)

// scriptedPresenter answers with a fixed list of keys, then reports io.EOF
type scriptedPresenter struct {
	keys    []string
	shown   []models.Card
	notices []string
	onAsk   func(n int)
	asked   int
}

func (p *scriptedPresenter) Show(_ context.Context, card models.Card, _ int) error {
	p.shown = append(p.shown, card)
	return nil
}

func (p *scriptedPresenter) Ask(_ context.Context) (string, error) {
	p.asked++
	if p.onAsk != nil {
		p.onAsk(p.asked)
	}
	if len(p.keys) == 0 {
		return "", io.EOF
	}
	key := p.keys[0]
	p.keys = p.keys[1:]
	return key, nil
}

func (p *scriptedPresenter) Notice(msg string) {
	p.notices = append(p.notices, msg)
}

type recordingPlayer struct {
	played []string
	err    error
}

func (p *recordingPlayer) Play(_ context.Context, ref string) error {
	p.played = append(p.played, ref)
	return p.err
}

func TestRunRepromptsAndCompletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	card := models.Card{Word: "chat", AudioRef: "audio/chat.mp3"}
	require.NoError(t, store.Cards.Create(ctx, &card))
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)

	presenter := &scriptedPresenter{keys: []string{"x", "n", "y", "Y"}}
	player := &recordingPlayer{}
	require.NoError(t, d.Run(ctx, s, presenter, player))

	assert.Len(t, presenter.notices, 1)
	assert.Len(t, presenter.shown, 3)
	assert.Equal(t, []string{"audio/chat.mp3", "audio/chat.mp3", "audio/chat.mp3"}, player.played)
	assert.True(t, s.Done())

	plan, err := store.Plans.Get(ctx, s.User.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewing, plan.Status)
}

func TestRunQuitsOnClosedInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCards(t, store, 3)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)

	presenter := &scriptedPresenter{keys: []string{"n"}}
	require.NoError(t, d.Run(ctx, s, presenter, &recordingPlayer{}))
	assert.True(t, s.Done())
	assert.Equal(t, 3, s.Remaining())
}

func TestRunIgnoresAudioFailures(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	card := models.Card{Word: "chat", AudioRef: "missing.mp3"}
	require.NoError(t, store.Cards.Create(ctx, &card))
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)

	player := &recordingPlayer{err: errors.New("no such file")}
	require.NoError(t, d.Run(ctx, s, &scriptedPresenter{keys: []string{"m"}}, player))
	assert.Len(t, player.played, 1)
}

func TestRunAbortsOnStorageFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	card := models.Card{Word: "chat"}
	require.NoError(t, store.Cards.Create(ctx, &card))
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(ctx, "alice", "")
	require.NoError(t, err)

	presenter := &scriptedPresenter{
		keys: []string{"n", "y"},
		onAsk: func(n int) {
			if n == 2 {
				_ = store.Close()
			}
		},
	}
	err = d.Run(ctx, s, presenter, &recordingPlayer{})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.ErrorIs(t, err, models.ErrPersistence)
	assert.Equal(t, card.ID, abort.LastPersisted)
	assert.Equal(t, []int64{card.ID}, abort.Unflushed)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store := newTestStore(t)
	seedCards(t, store, 2)
	d := newTestDriver(t, store, 5)

	s, err := d.StartSession(context.Background(), "alice", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.Run(ctx, s, &scriptedPresenter{keys: []string{"y"}}, &recordingPlayer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, s.Done())
}
