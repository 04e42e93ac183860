package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/sidecar"
	"github.com/colonyops/relabel/internal/core/styles"
	"github.com/colonyops/relabel/internal/session"
)

type PreviewCmd struct {
	flags *Flags

	item   string
	index  int
	code   string
	point  string
	anchor string
}

// NewPreviewCmd creates a new preview command.
func NewPreviewCmd(flags *Flags) *PreviewCmd {
	return &PreviewCmd{flags: flags}
}

// Register adds the preview command to the application.
func (cmd *PreviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "preview",
		Usage:     "Show what a commit would write, without writing it",
		UsageText: "relabel preview [--item ID | --index N] [--code A2] [--point x,y] [--anchor center]",
		Description: `Runs the label transformation for one item and prints the output file name,
the clamped region and a diff between the input record and the record a
commit would write. Nothing is written.

The item defaults to the first one in the catalog and the point to the image
center.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "item", Usage: "item ID (path relative to the input root)", Destination: &cmd.item},
			&cli.IntFlag{Name: "index", Usage: "1-based catalog position", Destination: &cmd.index},
			&cli.StringFlag{Name: "code", Usage: "target code (defaults to review.default_code)", Destination: &cmd.code},
			&cli.StringFlag{Name: "point", Usage: "point in image pixels as x,y", Destination: &cmd.point},
			&cli.StringFlag{Name: "anchor", Usage: "top-left or center (defaults to review.anchor)", Destination: &cmd.anchor},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *PreviewCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	ws, err := loadWorkspace(ctx, cfg)
	if err != nil {
		return err
	}

	item, err := pickItem(ws.catalog, cmd.item, cmd.index)
	if err != nil {
		return err
	}

	codeToken := cmd.code
	if codeToken == "" {
		codeToken = cfg.Review.DefaultCode
	}
	target, err := ws.table.Lookup(codeToken)
	if err != nil {
		return err
	}

	anchor := cfg.Review.Anchor
	if cmd.anchor != "" {
		if anchor, err = geometry.ParseAnchor(cmd.anchor); err != nil {
			return err
		}
	}

	img, err := session.HeaderSizer{}.Size(item.PrimaryPath)
	if err != nil {
		return err
	}
	point := geometry.Point{X: img.W / 2, Y: img.H / 2}
	if cmd.point != "" {
		if point, err = geometry.ParsePoint(cmd.point); err != nil {
			return err
		}
	}

	in, err := previewInput(cfg, item)
	if err != nil {
		return err
	}

	box := geometry.Size{W: cfg.Review.BoxWidth, H: cfg.Review.BoxHeight}
	region := geometry.Place(point, anchor, img, box)
	res := ws.transformer.Transform(in, target, region, item.Name())

	format := sidecar.FormatFor(item.SidecarPath)
	before, err := sidecar.Encode(in, format)
	if err != nil {
		return err
	}
	after, err := sidecar.Encode(res.Record, format)
	if err != nil {
		return err
	}

	w := c.Root().Writer
	_, _ = fmt.Fprintf(w, "%s %s → %s\n", styles.TitleStyle.Render("item"), item.ID, res.Filename)
	_, _ = fmt.Fprintf(w, "%s %s (image %dx%d, point %d,%d, anchor %s)\n",
		styles.TitleStyle.Render("region"), region, img.W, img.H, point.X, point.Y, anchor)
	_, _ = fmt.Fprintln(w)
	writeLineDiff(w, string(before), string(after))
	return nil
}

// previewInput reads the item's sidecar the way a commit would.
func previewInput(cfg *config.Config, item catalog.WorkItem) (sidecar.Record, error) {
	rec, err := sidecar.Read(item.SidecarPath)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, sidecar.ErrMissing) && cfg.Input.MissingSidecar == config.MissingEmpty:
		return sidecar.Record{}, nil
	case errors.Is(err, sidecar.ErrMissing):
		return nil, fmt.Errorf("%w: %s", session.ErrMissingSidecar, item.SidecarPath)
	case errors.Is(err, sidecar.ErrMalformed):
		return sidecar.Record{}, nil
	default:
		return nil, err
	}
}

func pickItem(cat *catalog.Catalog, id string, index int) (catalog.WorkItem, error) {
	if id != "" {
		i := cat.Index(id)
		if i < 0 {
			return catalog.WorkItem{}, fmt.Errorf("item %s is not in the catalog", id)
		}
		item, _ := cat.At(i)
		return item, nil
	}

	if index == 0 {
		index = 1
	}
	item, ok := cat.At(index - 1)
	if !ok {
		return catalog.WorkItem{}, fmt.Errorf("index %d is outside the catalog (1-%d)", index, cat.Len())
	}
	return item, nil
}

// writeLineDiff prints a line-level diff of a and b with added and removed
// lines colored.
func writeLineDiff(w io.Writer, a, b string) {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for line := range strings.SplitSeq(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				_, _ = fmt.Fprintln(w, styles.AddedStyle.Render("+ "+line))
			case diffmatchpatch.DiffDelete:
				_, _ = fmt.Fprintln(w, styles.RemovedStyle.Render("- "+line))
			default:
				_, _ = fmt.Fprintln(w, styles.MutedStyle.Render("  "+line))
			}
		}
	}
}
