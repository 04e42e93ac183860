package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/relabel/internal/data/stores"
)

// sessionCompletionLimit caps how many journal sessions are suggested.
const sessionCompletionLimit = 20

// SessionIDCompleter returns a ShellCompleteFunc that suggests recent journal
// session IDs as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func SessionIDCompleter(flags *Flags) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		cfg := flags.Config
		if cfg == nil || cfg.Journal.Disabled {
			return
		}
		if _, err := os.Stat(cfg.JournalFile()); err != nil {
			return
		}

		database, err := stores.OpenDB(cfg.JournalFile())
		if err != nil {
			return
		}
		defer func() { _ = database.Close() }()

		infos, err := stores.NewJournalStore(database).Sessions(ctx, sessionCompletionLimit)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, info := range infos {
			_, _ = fmt.Fprintln(w, info.ID)
		}
	}
}
