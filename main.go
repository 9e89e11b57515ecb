// Command flashy is a terminal flashcard trainer with spaced repetition.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/example/flashy/internal/audio"
	"github.com/example/flashy/internal/config"
	"github.com/example/flashy/internal/console"
	"github.com/example/flashy/internal/database"
	"github.com/example/flashy/internal/excel"
	"github.com/example/flashy/internal/logger"
	"github.com/example/flashy/internal/scheduler"
	"github.com/example/flashy/internal/session"
	"github.com/example/flashy/internal/spaced_repetition"
	"github.com/example/flashy/pkg/models"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `Usage: flashy <command> [flags]

Commands:
  study   --user NAME [--password P]             study today's cards
  import  --file PATH [--sheet S] [--audio-dir D] load cards from CSV or Excel
  cleanup                                         delete ledger rows of mastered cards
  watch                                           send reminders and run cleanup until interrupted

Settings come from FLASHY_* environment variables, .env and flashy.yaml.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError reports bad command-line arguments
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	switch args[0] {
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "flashy: %v\n", err)
		return exitFailure
	}
	log, err := logger.Setup(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "flashy: %v\n", err)
		return exitFailure
	}

	a := &app{cfg: cfg, logger: log, stdin: stdin, stdout: stdout, stderr: stderr}
	commands := map[string]func(context.Context, []string) error{
		"study":   a.study,
		"import":  a.importCards,
		"cleanup": a.cleanup,
		"watch":   a.watch,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "flashy: unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	if err := cmd(ctx, args[1:]); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			if !errors.Is(err, pflag.ErrHelp) {
				fmt.Fprintf(stderr, "flashy %s: %v\n", args[0], err)
			}
			return exitUsage
		}
		fmt.Fprintf(stderr, "flashy: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func (a *app) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) openStore(ctx context.Context) (*database.Store, error) {
	store, err := database.Open(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func (a *app) study(ctx context.Context, args []string) error {
	fs := a.flagSet("study")
	username := fs.StringP("user", "u", "", "learner name; unknown names are registered")
	password := fs.StringP("password", "p", "", "optional password stored when the user is registered")
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	if *username == "" {
		return usageError{errors.New("--user is required")}
	}

	policy, err := spaced_repetition.PolicyByName(a.cfg.Schedule.Policy)
	if err != nil {
		return err
	}
	player, err := audio.New(a.cfg.Audio.Command, a.logger)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	driver := session.NewDriver(store, spaced_repetition.NewScheduler(policy, a.logger), a.cfg.Session.Size, a.logger)
	s, err := driver.StartSession(ctx, *username, *password)
	if err != nil {
		return err
	}

	con := console.New(a.stdin, a.stdout)
	err = driver.Run(ctx, s, con, player)
	con.Summary(s.Remaining(), a.progress(ctx, driver, s))
	return err
}

func (a *app) progress(ctx context.Context, driver *session.Driver, s *session.Session) *models.Progress {
	progress, err := driver.Progress(context.WithoutCancel(ctx), s)
	if err != nil {
		a.logger.Warn("failed to load progress", "user", s.User.Username, "error", err)
		return nil
	}
	return &progress
}

func (a *app) importCards(ctx context.Context, args []string) error {
	cfg := excel.DefaultImportConfig()
	fs := a.flagSet("import")
	fs.StringVarP(&cfg.FilePath, "file", "f", "", "CSV or Excel file to load")
	fs.StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "sheet to read from an Excel file")
	fs.StringVar(&cfg.AudioDir, "audio-dir", "", "directory for <phonetic>_<word>.MP3 audio files")
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	if cfg.FilePath == "" {
		return usageError{errors.New("--file is required")}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := excel.NewImporter(store.Cards, a.logger).ImportCards(ctx, cfg)
	if result != nil {
		fmt.Fprintf(a.stdout, "processed %d, created %d, skipped %d, errors %d\n",
			result.TotalProcessed, result.Created, result.Skipped, len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Fprintln(a.stderr, msg)
		}
	}
	return err
}

func (a *app) cleanup(ctx context.Context, args []string) error {
	if err := a.flagSet("cleanup").Parse(args); err != nil {
		return usageError{err}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sched := scheduler.New(store, console.New(a.stdin, a.stdout), a.cfg, a.logger)
	n, err := sched.Cleanup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed %d study records\n", n)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	if err := a.flagSet("watch").Parse(args); err != nil {
		return usageError{err}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sched := scheduler.New(store, console.New(a.stdin, a.stdout), a.cfg, a.logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	a.logger.Info("watch stopped")
	return nil
}
