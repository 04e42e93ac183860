package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/catalog"
)

type ScanCmd struct {
	flags *Flags

	jsonOutput bool
	limit      int
}

// NewScanCmd creates a new scan command.
func NewScanCmd(flags *Flags) *ScanCmd {
	return &ScanCmd{flags: flags}
}

// Register adds the scan command to the application.
func (cmd *ScanCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "scan",
		Usage:     "List the catalog",
		UsageText: "relabel scan [--json] [--limit N]",
		Description: `Scans the input root with the configured extensions, code filter and
missing-sidecar policy and lists the items in review order.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "show at most N items (0 for all)",
				Destination: &cmd.limit,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ScanCmd) run(ctx context.Context, c *cli.Command) error {
	ws, err := loadWorkspace(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}

	items := ws.catalog.Items()
	total := len(items)
	if cmd.limit > 0 && cmd.limit < total {
		items = items[:cmd.limit]
	}

	if cmd.jsonOutput {
		return writeLines(c.Root().Writer, items)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, renderTable(
		[]string{"#", "item", "code", "sidecar"},
		scanRows(items),
		[]columnAlignment{alignRight},
	))
	_, _ = fmt.Fprintf(c.Root().Writer, "%d items\n", total)
	return nil
}

func scanRows(items []catalog.WorkItem) [][]string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		sidecar := "yes"
		if !item.HasSidecar() {
			sidecar = "missing"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), item.ID, item.SourceCode, sidecar})
	}
	return rows
}
