package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/relabel/internal/core/progress"
	"github.com/colonyops/relabel/internal/store/jsonfile"
	"github.com/colonyops/relabel/internal/tui"
)

type ReviewCmd struct {
	flags *Flags

	fresh  bool
	resume bool
	watch  bool
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags) *ReviewCmd {
	return &ReviewCmd{flags: flags}
}

// Flags returns the review flags so they can also be set on the root
// command, where review is the default action.
func (cmd *ReviewCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "fresh",
			Usage:       "discard saved progress and start from the first item",
			Destination: &cmd.fresh,
		},
		&cli.BoolFlag{
			Name:        "resume",
			Aliases:     []string{"y"},
			Usage:       "resume saved progress without asking",
			Destination: &cmd.resume,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Usage:       "reload annotations when the current sidecar changes on disk",
			Value:       true,
			Destination: &cmd.watch,
		},
	}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "review",
		Usage: "Review the catalog interactively",
		Description: `Opens the review screen on the first undecided item.

Move the point with the arrow keys or the mouse, pick a code with tab or
1-9, then press enter (or click) to commit. p keeps the item as is, x
rejects it into quarantine, s copies it to the ambiguous folder and u undoes
the last decision.

Progress is saved after every decision; running review again resumes.`,
		Flags:  cmd.Flags(),
		Action: cmd.Run,
	})

	return app
}

// Run opens the review screen.
func (cmd *ReviewCmd) Run(ctx context.Context, c *cli.Command) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("review needs an interactive terminal; use 'relabel apply' for scripted decisions")
	}

	cfg := cmd.flags.Config
	ws, err := loadWorkspace(ctx, cfg)
	if err != nil {
		return err
	}

	engine, closeEngine, err := ws.openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	if err := cmd.confirmResume(ctx, engine, promptResume); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	opts := tui.Options{
		Engine:         engine,
		Codes:          ws.table.Codes(),
		DefaultCode:    cfg.Review.DefaultCode,
		Anchor:         cfg.Review.Anchor,
		AnnotationsKey: cfg.Schema.AnnotationsKey,
	}
	if cmd.watch {
		fw, err := jsonfile.NewFileWatcher()
		if err != nil {
			return fmt.Errorf("start file watcher: %w", err)
		}
		defer func() { _ = fw.Close() }()
		opts.Watcher = fw
	}

	if err := tui.Run(ctx, opts); err != nil {
		return err
	}

	printSummary(c.Root().Writer, engine.Stats())
	return nil
}

// resumable is the part of the engine the resume prompt needs.
type resumable interface {
	Resolution() progress.Resolution
	State() progress.State
	Reset(ctx context.Context) error
}

// confirmResume asks whether to continue a saved session. Declining resets
// the saved progress so the session starts over with a new ID. The engine
// already holds the output lock, so the reset cannot race another session.
func (cmd *ReviewCmd) confirmResume(ctx context.Context, s resumable, ask func(progress.State) (bool, error)) error {
	if cmd.fresh {
		return s.Reset(ctx)
	}

	state := s.State()
	if s.Resolution() != progress.Resumed || state.Cursor == 0 || cmd.resume {
		return nil
	}

	resume, err := ask(state)
	if err != nil {
		return err
	}
	if resume {
		return nil
	}
	return s.Reset(ctx)
}

func promptResume(state progress.State) (bool, error) {
	resume := true
	err := huh.NewConfirm().
		Title("Saved progress found").
		Description(fmt.Sprintf("%d of %d items decided (last: %s)", state.Cursor, state.CatalogSize, state.LastItem)).
		Affirmative("Resume").
		Negative("Start over").
		Value(&resume).
		Run()
	return resume, err
}
