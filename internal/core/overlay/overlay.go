// Package overlay locates the original sidecar an output record was derived
// from, so both annotation sets can be shown together.
package overlay

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/colonyops/relabel/internal/core/label"
)

// MatchMode selects how originals are matched to an output.
type MatchMode string

const (
	// MatchExact requires the original's stem to rewrite to the output's stem.
	MatchExact MatchMode = "exact"
	// MatchPrefix accepts any original whose stem equals the extracted ID or
	// starts with "<ID>_". It can pick the wrong file when IDs share a prefix.
	MatchPrefix MatchMode = "prefix"
)

// IsValid reports whether m is a known mode.
func (m MatchMode) IsValid() bool {
	return m == MatchExact || m == MatchPrefix
}

// ExtractID returns the part of filename's stem before "_<token>", or the
// whole stem when the token is absent.
func ExtractID(filename, token string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(stem, "_"+token); i > 0 {
		return stem[:i]
	}
	return stem
}

// Finder searches a directory tree of original sidecars. The tree is indexed
// once, on first use.
type Finder struct {
	root  string
	ext   string
	mode  MatchMode
	table *label.Table

	once   sync.Once
	err    error
	byStem map[string][]string // stem -> paths, sorted
	stems  []string            // sorted
}

// NewFinder creates a Finder over root for files with the sidecar extension.
func NewFinder(root, ext string, mode MatchMode, table *label.Table) *Finder {
	if !mode.IsValid() {
		mode = MatchExact
	}
	return &Finder{root: root, ext: ext, mode: mode, table: table}
}

func (f *Finder) index(ctx context.Context) error {
	f.once.Do(func() {
		f.byStem = map[string][]string{}
		if info, err := os.Stat(f.root); err != nil {
			f.err = fmt.Errorf("originals root: %w", err)
			return
		} else if !info.IsDir() {
			f.err = fmt.Errorf("originals root %s is not a directory", f.root)
			return
		}

		err := doublestar.GlobWalk(os.DirFS(f.root), "**/*"+f.ext, func(rel string, d fs.DirEntry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
			f.byStem[stem] = append(f.byStem[stem], filepath.Join(f.root, filepath.FromSlash(rel)))
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil {
			f.err = fmt.Errorf("index originals in %s: %w", f.root, err)
			return
		}

		for stem, paths := range f.byStem {
			slices.Sort(paths)
			f.stems = append(f.stems, stem)
		}
		slices.Sort(f.stems)
	})
	return f.err
}

// Find returns the original sidecar for the output file name, which carries
// target's token. found is false when nothing matches.
func (f *Finder) Find(ctx context.Context, outputName string, target label.Code) (path string, found bool, err error) {
	if err := f.index(ctx); err != nil {
		return "", false, err
	}

	base := filepath.Base(outputName)
	outStem := strings.TrimSuffix(base, filepath.Ext(base))

	if f.mode == MatchPrefix {
		return f.findPrefix(ExtractID(outputName, target.Token))
	}

	if paths, ok := f.byStem[outStem]; ok {
		return paths[0], true, nil
	}
	for _, stem := range f.stems {
		if rewritten, ok := f.table.Substitute(stem, target.Token); ok && rewritten == outStem {
			return f.byStem[stem][0], true, nil
		}
		if stem+"_"+target.Token == outStem {
			return f.byStem[stem][0], true, nil
		}
	}
	return "", false, nil
}

func (f *Finder) findPrefix(id string) (string, bool, error) {
	if paths, ok := f.byStem[id]; ok {
		return paths[0], true, nil
	}
	for _, stem := range f.stems {
		if strings.HasPrefix(stem, id+"_") {
			return f.byStem[stem][0], true, nil
		}
	}
	return "", false, nil
}
