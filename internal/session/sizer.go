package session

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/pkg/kv"
)

// sizeCacheEntries bounds CachedSizer. Headers are tiny; the bound only
// keeps very large catalogs from growing the map without limit.
const sizeCacheEntries = 4096

// ImageSizer reports the pixel dimensions of an image file.
type ImageSizer interface {
	Size(path string) (geometry.Size, error)
}

// HeaderSizer reads dimensions from the image header without decoding
// pixel data.
type HeaderSizer struct{}

func (HeaderSizer) Size(path string) (geometry.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.Size{}, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("read image header %s: %w", path, err)
	}
	return geometry.Size{W: cfg.Width, H: cfg.Height}, nil
}

// FixedSizer reports the same size for every image.
type FixedSizer geometry.Size

func (s FixedSizer) Size(string) (geometry.Size, error) {
	return geometry.Size(s), nil
}

// CachedSizer memoizes another sizer by path. Failed reads are not cached.
type CachedSizer struct {
	next  ImageSizer
	cache *kv.Store[string, geometry.Size]
}

func NewCachedSizer(next ImageSizer) *CachedSizer {
	return &CachedSizer{
		next:  next,
		cache: kv.New[string, geometry.Size](sizeCacheEntries),
	}
}

func (s *CachedSizer) Size(path string) (geometry.Size, error) {
	return s.cache.GetOrLoad(path, func() (geometry.Size, error) {
		return s.next.Size(path)
	})
}
