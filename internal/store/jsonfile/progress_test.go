package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/colonyops/relabel/internal/core/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", ProgressFileName)
	store := NewProgressStore(path)

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	state := progress.State{
		SessionID:   "s-1",
		Cursor:      2,
		Counters:    map[string]int{"commit": 1, "skip": 1},
		LastItem:    "a/IMG_D_A2_002.jpg",
		CatalogSize: 5,
		UpdatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, state))

	got, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "tmp file should be renamed away")
}

func TestProgressStore_Overwrites(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore(filepath.Join(t.TempDir(), ProgressFileName))

	require.NoError(t, store.Save(ctx, progress.State{Cursor: 1, Counters: map[string]int{"commit": 1}}))
	require.NoError(t, store.Save(ctx, progress.State{Cursor: 0, Counters: map[string]int{}}))

	got, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, got.Cursor)
	assert.Empty(t, got.Counters)
}

func TestProgressStore_UnreadableIsNotFound(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "garbage", content: "{cursor: nope"},
		{name: "wrong type", content: `{"cursor": "three"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ProgressFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, found, err := NewProgressStore(path).Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestProgressStore_NilCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProgressFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"cursor": 1}`), 0o644))

	got, found, err := NewProgressStore(path).Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.NotNil(t, got.Counters)
}
