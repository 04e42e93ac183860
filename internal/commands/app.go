package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/core/logging"
	"github.com/colonyops/relabel/internal/core/styles"
	"github.com/colonyops/relabel/internal/profiler"
	"github.com/colonyops/relabel/pkg/logutils"
)

// NewApp builds the root command with every subcommand registered. Running
// it with no subcommand opens the review screen.
func NewApp(flags *Flags, version string) *cli.Command {
	var (
		logCloser func()
		prof      *profiler.Server
	)

	app := &cli.Command{
		Name:      "relabel",
		Usage:     "Review and relabel annotated image datasets",
		UsageText: "relabel [global options] command [command options]",
		Description: `relabel walks a folder of images and their annotation sidecars one item at
a time. For each item the reviewer commits a new label with a fixed-size
region, keeps it as is, rejects it into quarantine or marks it ambiguous.
Every decision can be undone and progress is saved after each one.

Run 'relabel' with no arguments to open the review screen.`,
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("RELABEL_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/relabel.log)",
				Sources:     cli.EnvVars("RELABEL_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("RELABEL_CONFIG"),
				Value:       DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("RELABEL_DATA_DIR"),
				Value:       DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "input root (overrides input.root)",
				Sources:     cli.EnvVars("RELABEL_INPUT"),
				Destination: &flags.InputRoot,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output directory (overrides output.dir)",
				Sources:     cli.EnvVars("RELABEL_OUTPUT"),
				Destination: &flags.OutputDir,
			},
			&cli.IntFlag{
				Name:        "profiler-port",
				Usage:       "serve pprof on 127.0.0.1:PORT (0 disables)",
				Sources:     cli.EnvVars("RELABEL_PROFILER_PORT"),
				Hidden:      true,
				Destination: &flags.ProfilerPort,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/relabel.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "relabel.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logging.Install(logger)
			logCloser = closer

			cfg, err := flags.LoadConfig()
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			if err := styles.UseTheme(cfg.TUI.Theme); err != nil {
				log.Warn().Err(err).Msg("unknown theme, using default")
			}

			if flags.ProfilerPort > 0 {
				prof = profiler.New(flags.ProfilerPort)
				if err := prof.Start(ctx); err != nil {
					log.Warn().Err(err).Msg("profiler disabled")
					prof = nil
				}
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if prof != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = prof.Shutdown(shutdownCtx)
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	reviewCmd := NewReviewCmd(flags)

	app = reviewCmd.Register(app)
	app = NewApplyCmd(flags).Register(app)
	app = NewStatusCmd(flags).Register(app)
	app = NewScanCmd(flags).Register(app)
	app = NewPreviewCmd(flags).Register(app)
	app = NewInspectCmd(flags).Register(app)
	app = NewJournalCmd(flags).Register(app)
	app = NewConfigValidateCmd(flags).Register(app)

	// Register review flags on root command
	app.Flags = append(app.Flags, reviewCmd.Flags()...)

	// Set review as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'relabel --help' for usage", c.Args().First())
		}
		return reviewCmd.Run(ctx, c)
	}

	return app
}
