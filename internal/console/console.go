// Package console is the terminal front-end: it shows cards, reads answers and
// prints reminders.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/example/flashy/pkg/models"
)

const answerPrompt = "Did you know it? [y]es / [n]o / [m]astered / [q]uit: "

// Console reads from one stream and writes to another
type Console struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex // guards out; reminders arrive from scheduler goroutines
}

// New creates a console on the given streams
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Show prints the card front, waits for Enter and reveals the sentence
func (c *Console) Show(_ context.Context, card models.Card, remaining int) error {
	c.printf("\n(%d left)  %s  %s\n", remaining, card.Word, card.Phonetic)
	c.printf("Press Enter to see the example...")
	if _, err := c.readLine(); err != nil {
		return err
	}
	if card.Sentence != "" {
		c.printf("  %s\n", card.Sentence)
	}
	return nil
}

// Ask prompts for a response key and returns it trimmed
func (c *Console) Ask(_ context.Context) (string, error) {
	c.printf(answerPrompt)
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Notice prints msg on its own line
func (c *Console) Notice(msg string) {
	c.printf("%s\n", msg)
}

// SendReminder implements scheduler.Notifier
func (c *Console) SendReminder(_ context.Context, user models.User, due int) error {
	noun := "cards"
	if due == 1 {
		noun = "card"
	}
	c.printf("Reminder: %s has %d %s to study today. Run `flashy study --user %s`.\n", user.Username, due, noun, user.Username)
	return nil
}

// Summary prints the end-of-session report. progress may be nil when it
// could not be loaded.
func (c *Console) Summary(remaining int, progress *models.Progress) {
	if remaining == 0 {
		c.printf("\nAll done for today.\n")
	} else {
		c.printf("\nSession ended with %d card(s) left.\n", remaining)
	}
	if progress == nil {
		return
	}
	c.printf("Learning %d, Reviewing %d, Mastered %d. %d active, %d due tomorrow.\n",
		progress.ByStatus[models.StatusLearning],
		progress.ByStatus[models.StatusReviewing],
		progress.ByStatus[models.StatusMastered],
		progress.Active(),
		progress.DueTomorrow)
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		return line, nil
	}
	return line, err
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
