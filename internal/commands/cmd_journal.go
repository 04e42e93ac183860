package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/styles"
	"github.com/colonyops/relabel/internal/data/stores"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/pkg/iojson"
)

type JournalCmd struct {
	flags *Flags

	sessionID  string
	limit      int
	sessions   bool
	jsonOutput bool
}

// NewJournalCmd creates a new journal command.
func NewJournalCmd(flags *Flags) *JournalCmd {
	return &JournalCmd{flags: flags}
}

// Register adds the journal command to the application.
func (cmd *JournalCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "journal",
		Usage:     "Show recorded decisions",
		UsageText: "relabel journal [--limit N] [--sessions] [--json] [SESSION]",
		Description: `Lists the audit journal, newest first. Every applied decision and undo is
recorded with the files it touched. SESSION (or --session) narrows the
listing to one session.`,
		ShellComplete: SessionIDCompleter(cmd.flags),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "session",
				Aliases:     []string{"s"},
				Usage:       "only entries of this session",
				Destination: &cmd.sessionID,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum rows (0 for all)",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "sessions",
				Usage:       "list sessions instead of entries",
				Destination: &cmd.sessions,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *JournalCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg.Journal.Disabled {
		return fmt.Errorf("the journal is disabled in the config")
	}
	if _, err := os.Stat(cfg.JournalFile()); err != nil {
		_, _ = fmt.Fprintf(c.Root().ErrWriter, "No journal at %s\n", cfg.JournalFile())
		return nil
	}

	database, err := stores.OpenDB(cfg.JournalFile())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = database.Close() }()
	store := stores.NewJournalStore(database)

	w := c.Root().Writer
	if cmd.sessions {
		infos, err := store.Sessions(ctx, cmd.limit)
		if err != nil {
			return err
		}
		if cmd.jsonOutput {
			return writeLines(w, infos)
		}
		_, _ = fmt.Fprintln(w, renderTable(
			[]string{"session", "input", "output", "items", "started", "resumed"},
			sessionRows(infos),
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		))
		return nil
	}

	sessionID := cmd.sessionID
	if sessionID == "" && c.Args().Present() {
		sessionID = c.Args().First()
	}

	if sessionID != "" {
		if _, err := store.Session(ctx, sessionID); err != nil {
			if stores.IsNotFoundError(err) {
				return fmt.Errorf("no journal session %q", sessionID)
			}
			return err
		}
	}

	entries, err := store.List(ctx, sessionID, cmd.limit)
	if err != nil {
		return err
	}
	if cmd.jsonOutput {
		return writeLines(w, entries)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No journal entries")
		return nil
	}
	_, _ = fmt.Fprintln(w, renderTable(
		[]string{"time", "session", "seq", "decision", "item", "code", "region", "files"},
		entryRows(entries),
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	return nil
}

func writeLines[T any](w io.Writer, items []T) error {
	for _, item := range items {
		if err := iojson.WriteLine(w, item); err != nil {
			return err
		}
	}
	return nil
}

func sessionRows(infos []session.Info) [][]string {
	rows := make([][]string, 0, len(infos))
	for _, s := range infos {
		rows = append(rows, []string{
			shortID(s.ID), s.InputRoot, s.OutputDir, strconv.Itoa(s.Items),
			s.StartedAt.Local().Format(time.DateTime), s.ResumedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func entryRows(entries []session.JournalEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		decision := styles.IconFor(string(e.Kind)) + " " + string(e.Kind)
		if e.Undo {
			decision = styles.IconUndo + " undo " + string(e.Kind)
		}
		region := ""
		if e.Kind == history.Commit {
			region = e.Region.String()
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(time.DateTime),
			shortID(e.SessionID),
			strconv.Itoa(e.Seq),
			decision,
			e.ItemID,
			e.Code,
			region,
			strconv.Itoa(len(e.Effects)),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
