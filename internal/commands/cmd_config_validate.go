package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/styles"
	"github.com/colonyops/relabel/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "relabel config validate [options]",
				Description: "Validates the configuration file, checking directories, the code table and the overlay settings.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// ValidationIssue is one field error in JSON output.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	issues := validationIssues(cfg.ValidateDeep(cmd.flags.ConfigPath))
	warnings := cfg.Warnings()

	if cmd.format == "json" {
		out := struct {
			Valid    bool                       `json:"valid"`
			Errors   []ValidationIssue          `json:"errors,omitempty"`
			Warnings []config.ValidationWarning `json:"warnings,omitempty"`
		}{
			Valid:    len(issues) == 0,
			Errors:   issues,
			Warnings: warnings,
		}
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out); err != nil {
			return err
		}
		if len(issues) > 0 {
			return cli.Exit("", 1)
		}
		return nil
	}

	return outputValidationText(c.Root().Writer, issues, warnings)
}

// validationIssues flattens criterio field errors. Any other error becomes a
// single issue without a field.
func validationIssues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationIssue{{Message: err.Error()}}
	}

	issues := make([]ValidationIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, ValidationIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	return issues
}

func outputValidationText(w io.Writer, issues []ValidationIssue, warnings []config.ValidationWarning) error {
	for _, warn := range warnings {
		line := fmt.Sprintf("%s: %s", warn.Category, warn.Message)
		if warn.Item != "" {
			line = fmt.Sprintf("%s.%s: %s", warn.Category, warn.Item, warn.Message)
		}
		_, _ = fmt.Fprintln(w, styles.MutedStyle.Render("warning "+line))
	}

	for _, issue := range issues {
		field := issue.Field
		if field == "" {
			field = "config"
		}
		_, _ = fmt.Fprintln(w, styles.RemovedStyle.Render(fmt.Sprintf("%s %s: %s", styles.IconReject, field, issue.Message)))
	}

	if len(issues) == 0 {
		_, _ = fmt.Fprintln(w, styles.AddedStyle.Render(styles.IconKeep+" Configuration is valid"))
		return nil
	}

	_, _ = fmt.Fprintf(w, "%d error(s) found\n", len(issues))
	return cli.Exit("", 1)
}
