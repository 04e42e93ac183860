package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/progress"
	"github.com/colonyops/relabel/internal/core/styles"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags

	jsonOutput bool
}

// NewStatusCmd creates a new status command.
func NewStatusCmd(flags *Flags) *StatusCmd {
	return &StatusCmd{flags: flags}
}

// Register adds the status command to the application.
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show saved progress",
		UsageText: "relabel status [--json]",
		Description: `Shows the saved cursor and decision counters of the output directory
against the current catalog. The output directory is not locked, so status
can run while a review is open.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

// StatusReport describes saved progress against the current catalog.
type StatusReport struct {
	session.Stats
	Next      string    `json:"next,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	ws, err := loadWorkspace(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}

	stored, found, err := ws.progress.Load(ctx)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	state, res := progress.Resolve(stored, found, ws.catalog.Len())

	report := buildStatus(state, res, ws.catalog.Len())
	if item, ok := ws.catalog.At(state.Cursor); ok {
		report.Next = item.ID
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, report)
	}

	w := c.Root().Writer
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.TitleStyle.Render("session"), report.SessionID)
	_, _ = fmt.Fprintf(w, "progress   %s (%d/%d, %d remaining)\n", report.Resolution, report.Cursor, report.Total, report.Remaining)
	if report.Next != "" {
		_, _ = fmt.Fprintf(w, "next       %s\n", report.Next)
	}
	if !report.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "updated    %s\n", report.UpdatedAt.Local().Format(time.DateTime))
	}
	printSummary(w, report.Stats)
	return nil
}

func buildStatus(state progress.State, res progress.Resolution, total int) StatusReport {
	return StatusReport{
		Stats: session.Stats{
			SessionID:  state.SessionID,
			Cursor:     state.Cursor,
			Total:      total,
			Remaining:  max(total-state.Cursor, 0),
			Counters:   state.Counters,
			Complete:   total > 0 && state.Cursor >= total,
			Resolution: res.String(),
		},
		UpdatedAt: state.UpdatedAt,
	}
}

// printSummary writes the decision counters as a table.
func printSummary(w io.Writer, stats session.Stats) {
	rows := make([][]string, 0, len(history.Kinds))
	for _, kind := range history.Kinds {
		k := string(kind)
		rows = append(rows, []string{styles.IconFor(k) + " " + k, strconv.Itoa(stats.Counters[k])})
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"decision", "count"}, rows, []columnAlignment{alignLeft, alignRight}))
}
