// Package audio plays card pronunciations through an external command.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned when an empty player command is configured
var ErrNoCommand = errors.New("no audio command configured")

// Player plays an audio reference, blocking until playback ends
type Player interface {
	Play(ctx context.Context, ref string) error
}

// NopPlayer plays nothing
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, string) error { return nil }

// CommandPlayer runs an external program with the audio reference as its
// last argument, e.g. "mpg123 -q" or "afplay".
type CommandPlayer struct {
	name   string
	args   []string
	logger *slog.Logger
}

// NewCommandPlayer parses command into a program and its arguments
func NewCommandPlayer(command string, logger *slog.Logger) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	return &CommandPlayer{name: fields[0], args: fields[1:], logger: logger}, nil
}

// Play runs the command and waits for it. Cancelling ctx kills the player.
func (p *CommandPlayer) Play(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	args := append(append([]string{}, p.args...), ref)
	cmd := exec.CommandContext(ctx, p.name, args...)

	p.logger.Debug("playing audio", "command", p.name, "ref", ref)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to play %s: %w (%s)", ref, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// New returns a CommandPlayer for command, or a NopPlayer when it is empty
func New(command string, logger *slog.Logger) (Player, error) {
	if strings.TrimSpace(command) == "" {
		return NopPlayer{}, nil
	}
	return NewCommandPlayer(command, logger)
}
