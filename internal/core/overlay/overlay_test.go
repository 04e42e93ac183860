package overlay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/colonyops/relabel/internal/core/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *label.Table {
	t.Helper()
	table, err := label.NewTable([]label.Code{
		{Token: "A1", DirName: "A1_papule"},
		{Token: "A2", DirName: "A2_scaling"},
		{Token: "A7", DirName: "A7_normal", Normal: true},
	})
	require.NoError(t, err)
	return table
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name, token, want string
	}{
		{"IMG_D_A7_001.json", "A7", "IMG_D"},
		{"/out/IMG_D_A7_001.jpg", "A7", "IMG_D"},
		{"plain.json", "A7", "plain"},
		{"A7_first.json", "A7", "A7_first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractID(tt.name, tt.token))
		})
	}
}

func TestFinder_Exact(t *testing.T) {
	root := t.TempDir()
	table := testTable(t)
	normal, err := table.Lookup("A7")
	require.NoError(t, err)

	touch(t, filepath.Join(root, "x", "IMG_D_A2_001.json"))
	touch(t, filepath.Join(root, "y", "IMG_D_A1_0012.json"))
	touch(t, filepath.Join(root, "y", "plain.json"))
	touch(t, filepath.Join(root, "y", "IMG_D_A2_001.jpg"))

	f := NewFinder(root, ".json", MatchExact, table)
	ctx := context.Background()

	path, found, err := f.Find(ctx, "IMG_D_A7_001.json", normal)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, filepath.Join(root, "x", "IMG_D_A2_001.json"), path)

	path, found, err = f.Find(ctx, "plain_A7.json", normal)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, filepath.Join(root, "y", "plain.json"), path)

	_, found, err = f.Find(ctx, "IMG_D_A7_999.json", normal)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFinder_Prefix(t *testing.T) {
	root := t.TempDir()
	table := testTable(t)
	normal, err := table.Lookup("A7")
	require.NoError(t, err)

	touch(t, filepath.Join(root, "IMG_D_A2_001.json"))

	f := NewFinder(root, ".json", MatchPrefix, table)

	path, found, err := f.Find(context.Background(), "IMG_D_A7_555.json", normal)
	require.NoError(t, err)
	require.True(t, found, "prefix mode matches on the shared ID")
	assert.Equal(t, filepath.Join(root, "IMG_D_A2_001.json"), path)
}

func TestFinder_MissingRoot(t *testing.T) {
	table := testTable(t)
	normal, err := table.Lookup("A7")
	require.NoError(t, err)

	f := NewFinder(filepath.Join(t.TempDir(), "nope"), ".json", MatchExact, table)
	_, _, err = f.Find(context.Background(), "a.json", normal)
	require.Error(t, err)
}

func TestMatchMode_IsValid(t *testing.T) {
	assert.True(t, MatchExact.IsValid())
	assert.True(t, MatchPrefix.IsValid())
	assert.False(t, MatchMode("fuzzy").IsValid())
}
