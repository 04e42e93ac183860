// Package catalog discovers the ordered list of work items a review session
// walks through.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/core/sidecar"
)

// ErrEmptyCatalog is returned when a scan finds no eligible items.
var ErrEmptyCatalog = errors.New("no eligible items found")

// WorkItem is one image/sidecar pair.
type WorkItem struct {
	// ID is the primary path relative to the scan root, slash separated.
	ID          string `json:"id"`
	PrimaryPath string `json:"primary_path"`
	SidecarPath string `json:"sidecar_path"`
	// SourceCode is the code token found in the filename.
	SourceCode string `json:"source_code"`
}

// Name returns the primary file's base name.
func (w WorkItem) Name() string {
	return filepath.Base(w.PrimaryPath)
}

// HasSidecar reports whether the sidecar file currently exists.
func (w WorkItem) HasSidecar() bool {
	_, err := os.Stat(w.SidecarPath)
	return err == nil
}

// Options controls a scan.
type Options struct {
	Root       string
	ImageExt   string
	SidecarExt string
	Filter     label.Filter
	// ExcludeDirs are skipped along with everything beneath them.
	ExcludeDirs []string
	// DropMissingSidecar removes items whose sidecar does not exist.
	DropMissingSidecar bool
}

// Build scans Root and returns the catalog sorted by full path.
func Build(ctx context.Context, opts Options) (*Catalog, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	excluded := make([]string, 0, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolve excluded dir: %w", err)
		}
		excluded = append(excluded, abs)
	}

	ext := strings.ToLower(opts.ImageExt)
	var items []WorkItem

	err = doublestar.GlobWalk(os.DirFS(root), "**/*", func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		full := filepath.Join(root, filepath.FromSlash(rel))
		if strings.ToLower(filepath.Ext(rel)) != ext || isExcluded(full, excluded) {
			return nil
		}

		code, ok := opts.Filter.Match(d.Name())
		if !ok {
			return nil
		}

		item := WorkItem{
			ID:          rel,
			PrimaryPath: full,
			SidecarPath: sidecar.PathFor(full, opts.SidecarExt),
			SourceCode:  code.Token,
		}
		if opts.DropMissingSidecar && !item.HasSidecar() {
			return nil
		}

		items = append(items, item)
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}

	slices.SortFunc(items, func(a, b WorkItem) int {
		return strings.Compare(a.PrimaryPath, b.PrimaryPath)
	})

	return &Catalog{items: items}, nil
}

func isExcluded(path string, excluded []string) bool {
	for _, e := range excluded {
		if path == e || strings.HasPrefix(path, e+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Catalog is an ordered, mutable list of work items. It is not safe for
// concurrent use; the session engine serializes access.
type Catalog struct {
	items []WorkItem
}

// New wraps items without scanning. Used by tests and replays.
func New(items []WorkItem) *Catalog {
	return &Catalog{items: slices.Clone(items)}
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// At returns the item at i.
func (c *Catalog) At(i int) (WorkItem, bool) {
	if i < 0 || i >= len(c.items) {
		return WorkItem{}, false
	}
	return c.items[i], true
}

// Items returns a copy of the items.
func (c *Catalog) Items() []WorkItem {
	return slices.Clone(c.items)
}

// Remove deletes and returns the item at i.
func (c *Catalog) Remove(i int) (WorkItem, bool) {
	item, ok := c.At(i)
	if !ok {
		return WorkItem{}, false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return item, true
}

// Insert places item at i, shifting later items. i is clamped to [0, Len].
func (c *Catalog) Insert(i int, item WorkItem) {
	i = max(0, min(i, len(c.items)))
	c.items = slices.Insert(c.items, i, item)
}

// Index returns the position of the item with id, or -1.
func (c *Catalog) Index(id string) int {
	return slices.IndexFunc(c.items, func(w WorkItem) bool { return w.ID == id })
}
