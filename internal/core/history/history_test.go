package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/fileops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	var s Stack

	_, err := s.Pop()
	require.ErrorIs(t, err, ErrEmpty)

	s.Push(Record{Kind: Commit, Index: 0})
	s.Push(Record{Kind: Reject, Index: 1})
	assert.Equal(t, 2, s.Len())

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, Reject, top.Kind)

	r, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, Reject, r.Kind)

	r, err = s.Pop()
	require.NoError(t, err)
	assert.Equal(t, Commit, r.Kind)
	assert.Equal(t, 0, s.Len())
}

func TestParseActionKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseActionKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseActionKind("undo")
	require.Error(t, err)

	assert.True(t, Reject.RemovesItem())
	assert.False(t, Skip.RemovesItem())
}

func TestRecord_Revert(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")

	b := fileops.NewBatch(fileops.BatchOptions{})
	require.NoError(t, b.Write(out, []byte("{}")))

	r := Record{Kind: Commit, Item: catalog.WorkItem{ID: "a.jpg"}, Effects: b.Effects()}
	require.NoError(t, r.Revert())

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}
