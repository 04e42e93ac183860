package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
)

// EffectKind tags a recorded side effect.
type EffectKind string

const (
	// EffectWrite created Path.
	EffectWrite EffectKind = "write"
	// EffectMove moved From to Path.
	EffectMove EffectKind = "move"
	// EffectDisplace moved a pre-existing Path aside to Backup.
	EffectDisplace EffectKind = "displace"
)

// Effect is one applied filesystem change.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Path   string     `json:"path"`
	From   string     `json:"from,omitempty"`
	Backup string     `json:"backup,omitempty"`
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectMove:
		return fmt.Sprintf("move %s -> %s", e.From, e.Path)
	case EffectDisplace:
		return fmt.Sprintf("displace %s -> %s", e.Path, e.Backup)
	default:
		return fmt.Sprintf("write %s", e.Path)
	}
}

// Effects is an ordered list of applied changes.
type Effects []Effect

// Paths returns the paths the effects produced, in order.
func (es Effects) Paths() []string {
	var out []string
	for _, e := range es {
		if e.Kind != EffectDisplace {
			out = append(out, e.Path)
		}
	}
	return out
}

// Revert undoes the effects in reverse order. Every effect is checked before
// anything is touched so that a revert which cannot complete changes
// nothing. Effects already undone on disk are skipped.
func (es Effects) Revert() error {
	for i := len(es) - 1; i >= 0; i-- {
		if err := es[i].check(); err != nil {
			return err
		}
	}

	var errs []error
	for i := len(es) - 1; i >= 0; i-- {
		if err := es[i].revert(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e Effect) check() error {
	switch e.Kind {
	case EffectMove:
		if !Exists(e.Path) && !Exists(e.From) {
			return fmt.Errorf("cannot restore %s: %s is gone", e.From, e.Path)
		}
		if Exists(e.Path) && Exists(e.From) {
			return fmt.Errorf("cannot restore %s: %w", e.From, ErrExists)
		}
	case EffectDisplace:
		if !Exists(e.Backup) && !Exists(e.Path) {
			return fmt.Errorf("cannot restore %s: backup %s is gone", e.Path, e.Backup)
		}
	}
	return nil
}

func (e Effect) revert() error {
	switch e.Kind {
	case EffectWrite:
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	case EffectMove:
		if Exists(e.Path) {
			return Move(e.Path, e.From)
		}
	case EffectDisplace:
		if Exists(e.Backup) {
			return Move(e.Backup, e.Path)
		}
	}
	return nil
}

// BatchOptions configures a Batch.
type BatchOptions struct {
	// Overwrite allows replacing existing destinations. Replaced files are
	// moved into BackupDir so the batch stays revertible.
	Overwrite bool
	// BackupDir receives displaced files. Defaults to a ".displaced"
	// directory next to the destination.
	BackupDir string
}

// Batch applies file changes one at a time and remembers them. A failed
// step leaves earlier steps applied; callers roll back with Rollback.
type Batch struct {
	opts    BatchOptions
	effects Effects
}

// NewBatch creates an empty batch.
func NewBatch(opts BatchOptions) *Batch {
	return &Batch{opts: opts}
}

// Effects returns a copy of the applied effects.
func (b *Batch) Effects() Effects {
	return slices.Clone(b.effects)
}

// Write atomically writes data to path.
func (b *Batch) Write(path string, data []byte) error {
	if err := b.prepare(path); err != nil {
		return err
	}
	if err := WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	b.effects = append(b.effects, Effect{Kind: EffectWrite, Path: path})
	return nil
}

// Copy copies src to dst.
func (b *Batch) Copy(src, dst string) error {
	if err := b.prepare(dst); err != nil {
		return err
	}
	if err := CopyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	b.effects = append(b.effects, Effect{Kind: EffectWrite, Path: dst})
	return nil
}

// Move moves src to dst.
func (b *Batch) Move(src, dst string) error {
	if err := b.prepare(dst); err != nil {
		return err
	}
	if err := Move(src, dst); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	b.effects = append(b.effects, Effect{Kind: EffectMove, Path: dst, From: src})
	return nil
}

// Rollback reverts everything applied so far and empties the batch.
func (b *Batch) Rollback() error {
	err := b.effects.Revert()
	b.effects = nil
	return err
}

// prepare makes room for dst, displacing an existing file when allowed.
func (b *Batch) prepare(dst string) error {
	if !Exists(dst) {
		return nil
	}
	if !b.opts.Overwrite {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}

	dir := b.opts.BackupDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(dst), ".displaced")
	}
	backup := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(dst))

	if err := Move(dst, backup); err != nil {
		return fmt.Errorf("displace %s: %w", dst, err)
	}
	b.effects = append(b.effects, Effect{Kind: EffectDisplace, Path: dst, Backup: backup})
	return nil
}
