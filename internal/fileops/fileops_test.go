package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "nested", "out", "dst.jpg")
	writeFile(t, src, "pixels")

	require.NoError(t, CopyFile(src, dst))
	assert.Equal(t, "pixels", readFile(t, dst))
	assert.Equal(t, "pixels", readFile(t, src))

	err := CopyFile(filepath.Join(dir, "missing"), dst)
	require.Error(t, err)
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.json")
	dst := filepath.Join(dir, "q", "a.json")
	writeFile(t, src, "{}")

	require.NoError(t, Move(src, dst))
	assert.False(t, Exists(src))
	assert.Equal(t, "{}", readFile(t, dst))
}

func TestWriteFile_Atomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rec.json")
	require.NoError(t, WriteFile(path, []byte(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, readFile(t, path))
	assert.False(t, Exists(path+".tmp"))
}

func TestBatch_RollbackRestoresEverything(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "in", "IMG_A2_1.jpg")
	rec := filepath.Join(dir, "in", "IMG_A2_1.json")
	writeFile(t, img, "img")
	writeFile(t, rec, "rec")

	b := NewBatch(BatchOptions{})
	require.NoError(t, b.Write(filepath.Join(dir, "out", "IMG_A7_1.json"), []byte("new")))
	require.NoError(t, b.Copy(img, filepath.Join(dir, "out", "IMG_A7_1.jpg")))
	require.NoError(t, b.Move(rec, filepath.Join(dir, "reject", "IMG_A2_1.json")))

	effects := b.Effects()
	require.Len(t, effects, 3)
	assert.Equal(t, EffectWrite, effects[0].Kind)
	assert.Equal(t, EffectMove, effects[2].Kind)
	assert.Equal(t, rec, effects[2].From)
	assert.Len(t, effects.Paths(), 3)

	require.NoError(t, b.Rollback())

	assert.False(t, Exists(filepath.Join(dir, "out", "IMG_A7_1.json")))
	assert.False(t, Exists(filepath.Join(dir, "out", "IMG_A7_1.jpg")))
	assert.False(t, Exists(filepath.Join(dir, "reject", "IMG_A2_1.json")))
	assert.Equal(t, "rec", readFile(t, rec))
	assert.Equal(t, "img", readFile(t, img))
	assert.Empty(t, b.Effects())
}

func TestBatch_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.json")
	writeFile(t, dst, "old")

	b := NewBatch(BatchOptions{})
	err := b.Write(dst, []byte("new"))
	require.ErrorIs(t, err, ErrExists)
	assert.Equal(t, "old", readFile(t, dst))
	assert.Empty(t, b.Effects())
}

func TestBatch_OverwriteDisplacesAndRestores(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out", "out.json")
	backups := filepath.Join(dir, "backups")
	writeFile(t, dst, "old")

	b := NewBatch(BatchOptions{Overwrite: true, BackupDir: backups})
	require.NoError(t, b.Write(dst, []byte("new")))
	assert.Equal(t, "new", readFile(t, dst))

	effects := b.Effects()
	require.Len(t, effects, 2)
	assert.Equal(t, EffectDisplace, effects[0].Kind)
	assert.Equal(t, "old", readFile(t, effects[0].Backup))
	assert.Equal(t, []string{dst}, effects.Paths())

	require.NoError(t, effects.Revert())
	assert.Equal(t, "old", readFile(t, dst))
	assert.False(t, Exists(effects[0].Backup))
}

func TestBatch_FailedStepKeepsEarlierEffects(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")

	b := NewBatch(BatchOptions{})
	require.NoError(t, b.Write(out, []byte("x")))

	err := b.Copy(filepath.Join(dir, "missing.jpg"), filepath.Join(dir, "out.jpg"))
	require.Error(t, err)
	assert.False(t, Exists(filepath.Join(dir, "out.jpg")))
	require.Len(t, b.Effects(), 1)

	require.NoError(t, b.Rollback())
	assert.False(t, Exists(out))
}

func TestEffects_Revert(t *testing.T) {
	t.Run("already reverted is a no-op", func(t *testing.T) {
		dir := t.TempDir()
		from := filepath.Join(dir, "a")
		writeFile(t, from, "a")

		es := Effects{
			{Kind: EffectWrite, Path: filepath.Join(dir, "gone")},
			{Kind: EffectMove, From: from, Path: filepath.Join(dir, "moved")},
		}
		require.NoError(t, es.Revert())
		assert.Equal(t, "a", readFile(t, from))
	})

	t.Run("lost move target changes nothing", func(t *testing.T) {
		dir := t.TempDir()
		written := filepath.Join(dir, "written")
		writeFile(t, written, "w")

		es := Effects{
			{Kind: EffectMove, From: filepath.Join(dir, "src"), Path: filepath.Join(dir, "dst")},
			{Kind: EffectWrite, Path: written},
		}
		require.Error(t, es.Revert())
		assert.True(t, Exists(written))
	})

	t.Run("occupied origin changes nothing", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dst := filepath.Join(dir, "dst")
		writeFile(t, src, "new occupant")
		writeFile(t, dst, "moved")

		es := Effects{{Kind: EffectMove, From: src, Path: dst}}
		err := es.Revert()
		require.ErrorIs(t, err, ErrExists)
		assert.Equal(t, "moved", readFile(t, dst))
	})
}
