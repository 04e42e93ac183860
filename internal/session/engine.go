// Package session runs a review session: it walks the catalog, applies one
// decision per item and keeps every decision undoable.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/core/logging"
	"github.com/colonyops/relabel/internal/core/progress"
	"github.com/colonyops/relabel/internal/core/sidecar"
	"github.com/colonyops/relabel/internal/fileops"
)

var (
	// ErrMissingSidecar is returned when a commit needs a sidecar that does
	// not exist and the policy forbids an empty record.
	ErrMissingSidecar = errors.New("sidecar missing")
	// ErrSessionComplete is returned for decisions after the last item.
	ErrSessionComplete = errors.New("session complete")
	// ErrOutputExists is returned when a decision would overwrite a file.
	ErrOutputExists = errors.New("output already exists")
	// ErrLocked is returned when another engine holds the output directory.
	ErrLocked = errors.New("output directory is in use by another session")
)

// LockFileName is created in the output directory while an engine is open.
const LockFileName = ".relabel.lock"

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Catalog     *catalog.Catalog
	Transformer *label.Transformer
	Progress    progress.Store
	// Sizer defaults to a cached HeaderSizer.
	Sizer ImageSizer
	// Journal is optional.
	Journal Journal
}

// Engine is the review state machine. All methods are safe for concurrent
// use; commands are serialized.
type Engine struct {
	mu sync.Mutex

	cfg         *config.Config
	catalog     *catalog.Catalog
	transformer *label.Transformer
	store       progress.Store
	sizer       ImageSizer
	journal     Journal
	lock        *flock.Flock
	log         zerolog.Logger

	state      progress.State
	history    history.Stack
	resolution progress.Resolution
}

// Open locks the output directory, restores progress and returns a ready
// engine. Close releases the lock.
func Open(ctx context.Context, cfg *config.Config, deps Deps) (*Engine, error) {
	if deps.Catalog == nil || deps.Transformer == nil || deps.Progress == nil {
		return nil, fmt.Errorf("session: catalog, transformer and progress store are required")
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Output.Dir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.Output.Dir)
	}

	e := &Engine{
		cfg:         cfg,
		catalog:     deps.Catalog,
		transformer: deps.Transformer,
		store:       deps.Progress,
		sizer:       deps.Sizer,
		journal:     deps.Journal,
		lock:        lock,
		log:         logging.Component("session"),
	}
	if e.sizer == nil {
		e.sizer = NewCachedSizer(HeaderSizer{})
	}

	stored, found, err := e.store.Load(ctx)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("load progress: %w", err)
	}

	e.state, e.resolution = progress.Resolve(stored, found, e.catalog.Len())
	if e.state.SessionID == "" {
		e.state.SessionID = uuid.NewString()
	}
	e.state.CatalogSize = e.catalog.Len()

	e.log.Info().
		Str("session_id", e.state.SessionID).
		Str("resolution", e.resolution.String()).
		Int("cursor", e.state.Cursor).
		Int("items", e.catalog.Len()).
		Msg("session opened")

	if e.journal != nil {
		now := time.Now()
		info := Info{
			ID:        e.state.SessionID,
			InputRoot: cfg.Input.Root,
			OutputDir: cfg.Output.Dir,
			Items:     e.catalog.Len(),
			StartedAt: now,
			ResumedAt: now,
		}
		if err := e.journal.BeginSession(ctx, info); err != nil {
			e.log.Warn().Err(err).Msg("journal begin session failed")
		}
	}

	return e, nil
}

// Close releases the output directory lock.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lock.Unlock()
}

// Reset discards saved progress and starts a new session at the first
// item. Undo history is dropped with it; files already written stay where
// they are.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := progress.State{
		SessionID:   uuid.NewString(),
		Counters:    map[string]int{},
		CatalogSize: e.catalog.Len(),
		UpdatedAt:   time.Now(),
	}
	if err := e.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	e.state = next
	e.history = history.Stack{}
	e.resolution = progress.Fresh

	e.log.Info().
		Str("session_id", next.SessionID).
		Int("items", next.CatalogSize).
		Msg("progress reset")

	if e.journal != nil {
		now := time.Now()
		info := Info{
			ID:        next.SessionID,
			InputRoot: e.cfg.Input.Root,
			OutputDir: e.cfg.Output.Dir,
			Items:     next.CatalogSize,
			StartedAt: now,
			ResumedAt: now,
		}
		if err := e.journal.BeginSession(ctx, info); err != nil {
			e.log.Warn().Err(err).Msg("journal begin session failed")
		}
	}
	return nil
}

// Resolution reports how stored progress was reconciled when the engine
// was opened.
func (e *Engine) Resolution() progress.Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolution
}

// SessionID returns the session identifier.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.SessionID
}

// Current returns the item under the cursor. ok is false once the session
// is complete.
func (e *Engine) Current() (catalog.WorkItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.At(e.state.Cursor)
}

// Done reports whether every item has been decided.
func (e *Engine) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done()
}

func (e *Engine) done() bool {
	return e.state.Cursor >= e.catalog.Len()
}

// State returns a copy of the session state.
func (e *Engine) State() progress.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Items returns a copy of the catalog.
func (e *Engine) Items() []catalog.WorkItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Items()
}

// Stats summarizes the session.
type Stats struct {
	SessionID  string         `json:"session_id"`
	Cursor     int            `json:"cursor"`
	Total      int            `json:"total"`
	Remaining  int            `json:"remaining"`
	Counters   map[string]int `json:"counters"`
	Undoable   int            `json:"undoable"`
	Complete   bool           `json:"complete"`
	Resolution string         `json:"resolution"`
}

// Stats returns the current counters and position.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state.Clone()
	return Stats{
		SessionID:  s.SessionID,
		Cursor:     s.Cursor,
		Total:      e.catalog.Len(),
		Remaining:  max(0, e.catalog.Len()-s.Cursor),
		Counters:   s.Counters,
		Undoable:   e.history.Len(),
		Complete:   e.done(),
		Resolution: e.resolution.String(),
	}
}

// Preview returns the unclamped and clamped box a commit at p would use on
// the current item.
func (e *Engine) Preview(p geometry.Point, anchor geometry.Anchor) (desired, clamped geometry.Region, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.catalog.At(e.state.Cursor)
	if !ok {
		return geometry.Region{}, geometry.Region{}, ErrSessionComplete
	}
	if anchor == "" {
		anchor = e.cfg.Review.Anchor
	}

	img, err := e.imageSize(item.PrimaryPath)
	if err != nil {
		return geometry.Region{}, geometry.Region{}, err
	}

	box := e.box()
	return geometry.Desired(p, anchor, box), geometry.Place(p, anchor, img, box), nil
}

// ImageSize returns the dimensions of the current item's image.
func (e *Engine) ImageSize() (geometry.Size, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.catalog.At(e.state.Cursor)
	if !ok {
		return geometry.Size{}, ErrSessionComplete
	}
	return e.imageSize(item.PrimaryPath)
}

func (e *Engine) box() geometry.Size {
	return geometry.Size{W: e.cfg.Review.BoxWidth, H: e.cfg.Review.BoxHeight}
}

func (e *Engine) imageSize(p string) (geometry.Size, error) {
	return e.sizer.Size(p)
}

// Dispatch applies one command. A failed command changes nothing: file
// effects already applied are rolled back and the state, catalog and
// history are left as they were.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = logging.WithSessionID(ctx, e.state.SessionID)

	if _, ok := cmd.(Undo); ok {
		return e.undo(ctx)
	}

	item, ok := e.catalog.At(e.state.Cursor)
	if !ok {
		return Outcome{Cursor: e.state.Cursor, Complete: true}, ErrSessionComplete
	}
	ctx = logging.WithItemID(ctx, item.ID)

	switch c := cmd.(type) {
	case Commit:
		return e.decide(ctx, history.Commit, item, func(b *fileops.Batch, rec *history.Record) error {
			return e.planCommit(ctx, b, rec, c)
		})
	case Keep:
		return e.decide(ctx, history.Keep, item, e.planKeep)
	case Reject:
		return e.decide(ctx, history.Reject, item, e.planReject)
	case Skip:
		return e.decide(ctx, history.Skip, item, e.planSkip)
	default:
		return Outcome{}, fmt.Errorf("unknown command %T", cmd)
	}
}

type plan func(b *fileops.Batch, rec *history.Record) error

func (e *Engine) decide(ctx context.Context, kind history.ActionKind, item catalog.WorkItem, apply plan) (Outcome, error) {
	b := fileops.NewBatch(fileops.BatchOptions{
		Overwrite: e.cfg.Output.Overwrite,
		BackupDir: filepath.Join(e.cfg.Output.Dir, ".displaced"),
	})

	rec := history.Record{
		Kind:   kind,
		Index:  e.state.Cursor,
		Item:   item,
		Before: e.state.Clone(),
		At:     time.Now(),
	}

	if err := apply(b, &rec); err != nil {
		e.rollback(ctx, b, kind)
		if errors.Is(err, fileops.ErrExists) {
			return Outcome{}, fmt.Errorf("%s %s: %w: %w", kind, item.ID, ErrOutputExists, err)
		}
		return Outcome{}, fmt.Errorf("%s %s: %w", kind, item.ID, err)
	}
	rec.Effects = b.Effects()

	next := e.state.Clone()
	next.Counters[string(kind)]++
	next.LastItem = item.ID
	next.UpdatedAt = rec.At
	if kind.RemovesItem() {
		e.catalog.Remove(rec.Index)
	} else {
		next.Cursor++
	}
	next.CatalogSize = e.catalog.Len()

	if err := e.store.Save(ctx, next); err != nil {
		if kind.RemovesItem() {
			e.catalog.Insert(rec.Index, item)
		}
		e.rollback(ctx, b, kind)
		return Outcome{}, fmt.Errorf("save progress: %w", err)
	}

	e.state = next
	e.history.Push(rec)
	e.record(ctx, rec, false)

	e.log.Info().Ctx(ctx).
		Str("kind", string(kind)).
		Str("code", rec.Code).
		Int("cursor", e.state.Cursor).
		Int("effects", len(rec.Effects)).
		Msg("decision applied")

	return e.outcome(rec, false, rec.Effects.Paths()), nil
}

func (e *Engine) rollback(ctx context.Context, b *fileops.Batch, kind history.ActionKind) {
	if len(b.Effects()) == 0 {
		return
	}
	if err := b.Rollback(); err != nil {
		e.log.Error().Ctx(ctx).Err(err).Str("kind", string(kind)).Msg("rollback incomplete")
		return
	}
	e.log.Warn().Ctx(ctx).Str("kind", string(kind)).Msg("decision rolled back")
}

func (e *Engine) undo(ctx context.Context) (Outcome, error) {
	rec, ok := e.history.Peek()
	if !ok {
		return Outcome{NothingToUndo: true, Cursor: e.state.Cursor, Complete: e.done()}, nil
	}
	ctx = logging.WithItemID(ctx, rec.Item.ID)

	prev := rec.Before.Clone()
	prev.UpdatedAt = time.Now()

	if err := e.store.Save(ctx, prev); err != nil {
		return Outcome{}, fmt.Errorf("save progress: %w", err)
	}

	if err := rec.Revert(); err != nil {
		if serr := e.store.Save(ctx, e.state); serr != nil {
			e.log.Error().Ctx(ctx).Err(serr).Msg("restore progress after failed undo")
		}
		return Outcome{}, err
	}

	if _, err := e.history.Pop(); err != nil {
		return Outcome{}, err
	}
	if rec.Kind.RemovesItem() {
		e.catalog.Insert(rec.Index, rec.Item)
	}
	e.state = prev
	e.record(ctx, rec, true)

	e.log.Info().Ctx(ctx).
		Str("kind", string(rec.Kind)).
		Int("cursor", e.state.Cursor).
		Msg("decision undone")

	var restored []string
	for _, eff := range rec.Effects {
		switch eff.Kind {
		case fileops.EffectMove:
			restored = append(restored, eff.From)
		case fileops.EffectDisplace:
			restored = append(restored, eff.Path)
		}
	}
	return e.outcome(rec, true, restored), nil
}

func (e *Engine) record(ctx context.Context, rec history.Record, undo bool) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(ctx, entryFor(e.state.SessionID, rec, undo, e.state.Cursor)); err != nil {
		e.log.Warn().Ctx(ctx).Err(err).Msg("journal append failed")
	}
}

func (e *Engine) outcome(rec history.Record, undone bool, paths []string) Outcome {
	return Outcome{
		Kind:     rec.Kind,
		Undone:   undone,
		Item:     rec.Item,
		Region:   rec.Region,
		Paths:    paths,
		Cursor:   e.state.Cursor,
		Complete: e.done(),
	}
}

func (e *Engine) planCommit(ctx context.Context, b *fileops.Batch, rec *history.Record, c Commit) error {
	token := c.Code
	if token == "" {
		token = e.cfg.Review.DefaultCode
	}
	target, err := e.transformer.Table().Lookup(token)
	if err != nil {
		return err
	}
	anchor := c.Anchor
	if anchor == "" {
		anchor = e.cfg.Review.Anchor
	}

	in, err := e.readSidecar(ctx, rec.Item)
	if err != nil {
		return err
	}

	img, err := e.imageSize(rec.Item.PrimaryPath)
	if err != nil {
		return err
	}
	region := geometry.Place(c.Point, anchor, img, e.box())

	res := e.transformer.Transform(in, target, region, rec.Item.Name())
	data, err := sidecar.Encode(res.Record, sidecar.FormatFor(rec.Item.SidecarPath))
	if err != nil {
		return err
	}

	dir := e.cfg.Output.Dir
	if e.cfg.Output.GroupByCode {
		dir = filepath.Join(dir, target.DirName)
	}

	rec.Code = target.Token
	rec.Region = region

	if err := b.Write(filepath.Join(dir, res.Stem()+e.cfg.Input.SidecarExt), data); err != nil {
		return err
	}
	return b.Copy(rec.Item.PrimaryPath, filepath.Join(dir, res.Filename))
}

// readSidecar applies the missing-sidecar policy. Malformed records degrade
// to an empty record.
func (e *Engine) readSidecar(ctx context.Context, item catalog.WorkItem) (sidecar.Record, error) {
	rec, err := sidecar.Read(item.SidecarPath)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, sidecar.ErrMissing):
		if e.cfg.Input.MissingSidecar == config.MissingEmpty {
			return sidecar.Record{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingSidecar, item.SidecarPath)
	case errors.Is(err, sidecar.ErrMalformed):
		e.log.Warn().Ctx(ctx).Err(err).Msg("malformed sidecar, using empty record")
		return sidecar.Record{}, nil
	default:
		return nil, err
	}
}

func (e *Engine) planKeep(b *fileops.Batch, rec *history.Record) error {
	if e.cfg.Output.KeepMode == config.KeepNone {
		return nil
	}

	dir := e.cfg.Output.Dir
	if e.cfg.Output.GroupByCode {
		name := rec.Item.SourceCode
		if code, err := e.transformer.Table().Lookup(rec.Item.SourceCode); err == nil {
			name = code.DirName
		}
		dir = filepath.Join(dir, name)
	}
	rec.Code = rec.Item.SourceCode
	return copyPair(b, rec.Item, dir)
}

func (e *Engine) planSkip(b *fileops.Batch, rec *history.Record) error {
	return copyPair(b, rec.Item, e.cfg.AmbiguousDir())
}

// planReject moves the pair under the quarantine directory, keeping its
// position relative to the input root.
func (e *Engine) planReject(b *fileops.Batch, rec *history.Record) error {
	dir := filepath.Join(e.cfg.QuarantineDir(), filepath.FromSlash(path.Dir(rec.Item.ID)))

	if err := b.Move(rec.Item.PrimaryPath, filepath.Join(dir, rec.Item.Name())); err != nil {
		return err
	}
	if !fileops.Exists(rec.Item.SidecarPath) {
		return nil
	}
	return b.Move(rec.Item.SidecarPath, filepath.Join(dir, filepath.Base(rec.Item.SidecarPath)))
}

// copyPair copies the primary file and, when present, its sidecar into dir.
func copyPair(b *fileops.Batch, item catalog.WorkItem, dir string) error {
	if err := b.Copy(item.PrimaryPath, filepath.Join(dir, item.Name())); err != nil {
		return err
	}
	if !fileops.Exists(item.SidecarPath) {
		return nil
	}
	return b.Copy(item.SidecarPath, filepath.Join(dir, filepath.Base(item.SidecarPath)))
}
