package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/core/logging"
	"github.com/colonyops/relabel/internal/data/db"
	"github.com/colonyops/relabel/internal/data/stores"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/internal/store/jsonfile"
)

// workspace holds what every catalog-facing command builds from config.
type workspace struct {
	cfg         *config.Config
	table       *label.Table
	transformer *label.Transformer
	catalog     *catalog.Catalog
	progress    *jsonfile.ProgressStore
}

func loadWorkspace(ctx context.Context, cfg *config.Config) (*workspace, error) {
	if cfg.Input.Root == "" {
		return nil, fmt.Errorf("input root is not set (use --input or input.root in the config file)")
	}

	table, err := cfg.CodeTable()
	if err != nil {
		return nil, fmt.Errorf("code table: %w", err)
	}
	filter, err := label.NewFilter(table, cfg.Input.SourceCodes)
	if err != nil {
		return nil, fmt.Errorf("source codes: %w", err)
	}

	cat, err := catalog.Build(ctx, catalog.Options{
		Root:               cfg.Input.Root,
		ImageExt:           cfg.Input.ImageExt,
		SidecarExt:         cfg.Input.SidecarExt,
		Filter:             filter,
		ExcludeDirs:        []string{cfg.Output.Dir, cfg.QuarantineDir(), cfg.AmbiguousDir()},
		DropMissingSidecar: cfg.Input.MissingSidecar == config.MissingExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", cfg.Input.Root, err)
	}

	return &workspace{
		cfg:         cfg,
		table:       table,
		transformer: label.NewTransformer(table, cfg.LabelSchema()),
		catalog:     cat,
		progress:    jsonfile.NewProgressStore(cfg.ProgressFile()),
	}, nil
}

// openJournal opens the audit journal. It returns nil when the journal is
// disabled or cannot be opened; the session runs without it.
func openJournal(cfg *config.Config) (*db.DB, *stores.JournalStore) {
	if cfg.Journal.Disabled {
		return nil, nil
	}
	database, err := stores.OpenDB(cfg.JournalFile())
	if err != nil {
		logging.Component("journal").Warn().Err(err).Str("path", cfg.JournalFile()).Msg("journal unavailable")
		return nil, nil
	}
	return database, stores.NewJournalStore(database)
}

// openEngine starts a session over the workspace catalog. The returned
// close func releases the output lock and the journal.
func (w *workspace) openEngine(ctx context.Context) (*session.Engine, func(), error) {
	database, journal := openJournal(w.cfg)

	deps := session.Deps{
		Catalog:     w.catalog,
		Transformer: w.transformer,
		Progress:    w.progress,
	}
	if journal != nil {
		deps.Journal = journal
	}

	closeDB := func() {
		if database != nil {
			_ = database.Close()
		}
	}

	engine, err := session.Open(ctx, w.cfg, deps)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	return engine, func() {
		_ = engine.Close()
		closeDB()
	}, nil
}
