package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/overlay"
	"github.com/colonyops/relabel/internal/core/sidecar"
	"github.com/colonyops/relabel/internal/core/styles"
)

type InspectCmd struct {
	flags *Flags

	plain bool
	width int
}

// NewInspectCmd creates a new inspect command.
func NewInspectCmd(flags *Flags) *InspectCmd {
	return &InspectCmd{flags: flags}
}

// Register adds the inspect command to the application.
func (cmd *InspectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "inspect",
		Usage:     "Show the annotations of an output record and its original",
		UsageText: "relabel inspect [--plain] <output record or image>",
		Description: `Lists the shapes stored in an output record. When originals.root is
configured, the matching original record is looked up by ID and its shapes
are listed too, so a committed region can be compared with the source
annotations.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "print markdown without terminal rendering",
				Destination: &cmd.plain,
			},
			&cli.IntFlag{
				Name:        "width",
				Usage:       "wrap width for rendered output",
				Value:       100,
				Destination: &cmd.width,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *InspectCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one record path")
	}

	doc, err := inspectReport(ctx, cmd.flags.Config, c.Args().First())
	if err != nil {
		return err
	}

	if cmd.plain {
		_, _ = fmt.Fprint(c.Root().Writer, doc)
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(cmd.width),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, _ = fmt.Fprint(c.Root().Writer, out)
	return nil
}

// inspectReport builds the markdown report for the record at path. An image
// path is mapped to its sidecar.
func inspectReport(ctx context.Context, cfg *config.Config, path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), cfg.Input.SidecarExt) {
		path = sidecar.PathFor(path, cfg.Input.SidecarExt)
	}

	rec, err := sidecar.Read(path)
	if err != nil {
		return "", err
	}

	table, err := cfg.CodeTable()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filepath.Base(path))
	writeShapes(&b, sidecar.Shapes(rec, cfg.Schema.AnnotationsKey))

	if cfg.Originals.Root == "" {
		return b.String(), nil
	}

	target, ok := table.Find(filepath.Base(path))
	if !ok {
		fmt.Fprintf(&b, "\n_No code token in the file name; original not looked up._\n")
		return b.String(), nil
	}

	finder := overlay.NewFinder(cfg.Originals.Root, cfg.Input.SidecarExt, cfg.Originals.Match, table)
	origPath, found, err := finder.Find(ctx, filepath.Base(path), target)
	if err != nil {
		return "", fmt.Errorf("find original: %w", err)
	}
	if !found {
		fmt.Fprintf(&b, "\n## Original\n\n_No original found under %s (ID %s)._\n",
			cfg.Originals.Root, overlay.ExtractID(filepath.Base(path), target.Token))
		return b.String(), nil
	}

	orig, err := sidecar.Read(origPath)
	if err != nil {
		return "", fmt.Errorf("read original: %w", err)
	}
	fmt.Fprintf(&b, "\n## Original\n\n`%s`\n\n", origPath)
	writeShapes(&b, sidecar.Shapes(orig, cfg.Schema.AnnotationsKey))
	return b.String(), nil
}

func writeShapes(b *strings.Builder, shapes []sidecar.Shape) {
	if len(shapes) == 0 {
		b.WriteString("_No shapes._\n")
		return
	}

	b.WriteString("| # | kind | label | color | geometry |\n")
	b.WriteString("|---|------|-------|-------|----------|\n")
	for i, s := range shapes {
		geom := s.Box.String()
		if s.Kind == sidecar.ShapePolygon {
			geom = fmt.Sprintf("%d points", len(s.Points))
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s |\n", i+1, s.Kind, s.Label, s.Color, geom)
	}
}
