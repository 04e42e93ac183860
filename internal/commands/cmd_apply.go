package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/pkg/iojson"
)

type ApplyCmd struct {
	flags *Flags
	fr    *iojson.FileReader[ApplyLine]

	keepGoing bool
}

// NewApplyCmd creates a new apply command.
func NewApplyCmd(flags *Flags) *ApplyCmd {
	return &ApplyCmd{flags: flags, fr: &iojson.FileReader[ApplyLine]{}}
}

// Register adds the apply command to the application.
func (cmd *ApplyCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "apply",
		Usage: "Apply decisions from a JSON-lines script",
		UsageText: `relabel apply [options]

Read from stdin:
  echo '{"action":"commit","code":"A2","x":120,"y":80}' | relabel apply

Read from file:
  relabel apply -f decisions.jsonl`,
		Description: `Runs review decisions without the interactive screen. Each input line is
one command applied to the current item, in order, exactly as the matching
key would in the review screen.

Line schema:
  {"action": "commit", "code": "A2", "x": 120, "y": 80, "anchor": "center", "item": "dog/x.jpg"}
  {"action": "keep" | "reject" | "skip" | "undo"}

Fields:
  action - Required. commit, keep, reject, skip or undo.
  code   - commit only. Target code (defaults to review.default_code).
  x, y   - commit only. Point in image pixels (required for commit).
  anchor - commit only. top-left or center (defaults to review.anchor).
  item   - Optional. Expected current item ID; the line fails if another
           item is current.

Each result is written to stdout as one JSON line. Processing stops at the
first failed line unless --keep-going is set.`,
		Flags: []cli.Flag{
			cmd.fr.Flag(),
			&cli.BoolFlag{
				Name:        "keep-going",
				Usage:       "continue after a failed line",
				Destination: &cmd.keepGoing,
			},
		},
		Action: cmd.run,
	})

	return app
}

// ApplyLine is one scripted command.
type ApplyLine struct {
	Action string `json:"action"`
	Code   string `json:"code,omitempty"`
	X      *int   `json:"x,omitempty"`
	Y      *int   `json:"y,omitempty"`
	Anchor string `json:"anchor,omitempty"`
	Item   string `json:"item,omitempty"`
}

// Validate checks the line against the code table.
func (l ApplyLine) Validate(table *label.Table) error {
	var errs criterio.FieldErrorsBuilder

	switch l.Action {
	case "commit":
		if l.X == nil || l.Y == nil {
			errs = errs.Append("x,y", fmt.Errorf("commit requires a point"))
		}
		if l.Code != "" && table != nil {
			if _, err := table.Lookup(l.Code); err != nil {
				errs = errs.Append("code", err)
			}
		}
		if l.Anchor != "" {
			if _, err := geometry.ParseAnchor(l.Anchor); err != nil {
				errs = errs.Append("anchor", err)
			}
		}
	case "keep", "reject", "skip", "undo":
		if l.Code != "" || l.X != nil || l.Y != nil || l.Anchor != "" {
			errs = errs.Append("action", fmt.Errorf("%s takes no code, point or anchor", l.Action))
		}
	case "":
		errs = errs.Append("action", fmt.Errorf("is required"))
	default:
		errs = errs.Append("action", fmt.Errorf("unknown action %q", l.Action))
	}

	return errs.ToError()
}

// Command converts a validated line.
func (l ApplyLine) Command() session.Command {
	switch l.Action {
	case "commit":
		var anchor geometry.Anchor
		if l.Anchor != "" {
			anchor, _ = geometry.ParseAnchor(l.Anchor)
		}
		return session.Commit{Code: l.Code, Point: geometry.Point{X: *l.X, Y: *l.Y}, Anchor: anchor}
	case "keep":
		return session.Keep{}
	case "reject":
		return session.Reject{}
	case "skip":
		return session.Skip{}
	default:
		return session.Undo{}
	}
}

// ApplyResult is the output for one input line.
type ApplyResult struct {
	Line    int              `json:"line"`
	Action  string           `json:"action"`
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Outcome *session.Outcome `json:"outcome,omitempty"`
}

// errApplyFailed marks a run that stopped or finished with failed lines.
var errApplyFailed = errors.New("one or more lines failed")

func (cmd *ApplyCmd) run(ctx context.Context, c *cli.Command) error {
	ws, err := loadWorkspace(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}

	engine, closeEngine, err := ws.openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	return applyScript(ctx, engine, ws.table, cmd.fr, c.Root().Writer, cmd.keepGoing)
}

// scriptEngine is the engine surface apply needs.
type scriptEngine interface {
	Current() (catalog.WorkItem, bool)
	Dispatch(ctx context.Context, cmd session.Command) (session.Outcome, error)
}

func applyScript(ctx context.Context, engine scriptEngine, table *label.Table, fr *iojson.FileReader[ApplyLine], w io.Writer, keepGoing bool) error {
	failed := false

	err := fr.Each(func(n int, line ApplyLine) error {
		res := ApplyResult{Line: n, Action: line.Action}

		if err := applyLine(ctx, engine, table, line, &res); err != nil {
			failed = true
			res.Error = err.Error()
		} else {
			res.OK = true
		}

		if err := iojson.WriteLine(w, res); err != nil {
			return err
		}
		if !res.OK && !keepGoing {
			return errApplyFailed
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed {
		return errApplyFailed
	}
	return nil
}

func applyLine(ctx context.Context, engine scriptEngine, table *label.Table, line ApplyLine, res *ApplyResult) error {
	if err := line.Validate(table); err != nil {
		return err
	}

	if line.Item != "" {
		current, ok := engine.Current()
		if !ok {
			return session.ErrSessionComplete
		}
		if current.ID != line.Item {
			return fmt.Errorf("current item is %s, not %s", current.ID, line.Item)
		}
	}

	out, err := engine.Dispatch(ctx, line.Command())
	if err != nil {
		return err
	}
	res.Outcome = &out
	return nil
}
