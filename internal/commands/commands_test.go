package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/progress"
	"github.com/colonyops/relabel/pkg/tuitest"
)

func TestValidationIssues(t *testing.T) {
	assert.Nil(t, validationIssues(nil))

	plain := validationIssues(errors.New("boom"))
	require.Len(t, plain, 1)
	assert.Equal(t, "boom", plain[0].Message)

	var b criterio.FieldErrorsBuilder
	b = b.Append("input.root", fmt.Errorf("does not exist"))
	b = b.Append("codes[1].token", fmt.Errorf("duplicate"))
	issues := validationIssues(b.ToError())
	require.Len(t, issues, 2)
	assert.Equal(t, ValidationIssue{Field: "input.root", Message: "does not exist"}, issues[0])
}

func TestBuildStatus(t *testing.T) {
	state := progress.State{SessionID: "abc", Cursor: 3, Counters: map[string]int{"commit": 2, "reject": 1}}

	report := buildStatus(state, progress.Resumed, 10)
	assert.Equal(t, 7, report.Remaining)
	assert.False(t, report.Complete)
	assert.Equal(t, "resumed", report.Resolution)

	done := buildStatus(progress.State{Cursor: 4}, progress.Resumed, 4)
	assert.True(t, done.Complete)
	assert.Equal(t, 0, done.Remaining)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, buildStatus(progress.State{Counters: map[string]int{"skip": 4}}, progress.Fresh, 4).Stats)

	out := tuitest.StripANSI(buf.String())
	assert.Contains(t, out, "skip")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "commit")
}

func TestPickItem(t *testing.T) {
	cat := catalog.New([]catalog.WorkItem{{ID: "a.jpg"}, {ID: "b.jpg"}})

	item, err := pickItem(cat, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", item.ID)

	item, err = pickItem(cat, "", 2)
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", item.ID)

	item, err = pickItem(cat, "b.jpg", 0)
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", item.ID)

	_, err = pickItem(cat, "", 3)
	assert.Error(t, err)
	_, err = pickItem(cat, "zzz.jpg", 0)
	assert.Error(t, err)
}

func TestWriteLineDiff(t *testing.T) {
	var buf bytes.Buffer
	writeLineDiff(&buf, "a\nb\nc\n", "a\nB\nc\n")

	out := tuitest.StripANSI(buf.String())
	assert.Contains(t, out, "  a")
	assert.Contains(t, out, "- b")
	assert.Contains(t, out, "+ B")
	assert.Contains(t, out, "  c")
}

func writeRecord(t *testing.T, path string, x int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := fmt.Sprintf(`{"metaData":{},"labelingInfo":[{"box":{"location":[{"x":%d,"y":5,"width":224,"height":224}],"label":"A7_정상","color":"#27b73c"}}]}`, x)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestInspectReport(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out", "A7_정상", "dog_A7_001.json")
	orig := filepath.Join(root, "orig", "dog", "dog_A1_001.json")
	writeRecord(t, out, 11)
	writeRecord(t, orig, 99)

	cfg := config.DefaultConfig()
	cfg.Originals.Root = filepath.Join(root, "orig")

	doc, err := inspectReport(context.Background(), &cfg, out)
	require.NoError(t, err)
	assert.Contains(t, doc, "# dog_A7_001.json")
	assert.Contains(t, doc, "| 1 | box | A7_정상 | #27b73c |")
	assert.Contains(t, doc, "## Original")
	assert.Contains(t, doc, orig)

	t.Run("image path maps to sidecar", func(t *testing.T) {
		doc, err := inspectReport(context.Background(), &cfg, filepath.Join(filepath.Dir(out), "dog_A7_001.jpg"))
		require.NoError(t, err)
		assert.Contains(t, doc, "# dog_A7_001.json")
	})

	t.Run("no originals root", func(t *testing.T) {
		cfg := config.DefaultConfig()
		doc, err := inspectReport(context.Background(), &cfg, out)
		require.NoError(t, err)
		assert.NotContains(t, doc, "Original")
	})

	t.Run("original missing", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Originals.Root = t.TempDir()
		doc, err := inspectReport(context.Background(), &cfg, out)
		require.NoError(t, err)
		assert.Contains(t, doc, "No original found")
	})
}
