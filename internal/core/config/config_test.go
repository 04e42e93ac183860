package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load("", dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, ".jpg", cfg.Input.ImageExt)
	assert.Equal(t, ".json", cfg.Input.SidecarExt)
	assert.Equal(t, MissingBlock, cfg.Input.MissingSidecar)
	assert.Equal(t, KeepCopy, cfg.Output.KeepMode)
	assert.True(t, cfg.Output.Overwrite)
	assert.Equal(t, 224, cfg.Review.BoxWidth)
	assert.Equal(t, geometry.AnchorCenter, cfg.Review.Anchor)
	assert.Equal(t, "A7", cfg.Review.DefaultCode)
	assert.Equal(t, overlay.MatchExact, cfg.Originals.Match)
	assert.Len(t, cfg.Codes, 7)

	table, err := cfg.CodeTable()
	require.NoError(t, err)
	normal, ok := table.Normal()
	require.True(t, ok)
	assert.Equal(t, "A7_정상", normal.DirName)
	assert.Equal(t, "무증상", normal.Presence)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Review, cfg.Review)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
input:
  root: /data/in
  image_ext: png
  source_codes: [A2]
  missing_sidecar: exclude
output:
  dir: /data/out
  keep_mode: none
review:
  box_width: 128
  anchor: top-left
originals:
  match: prefix
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.Input.Root)
	assert.Equal(t, ".png", cfg.Input.ImageExt)
	assert.Equal(t, ".json", cfg.Input.SidecarExt)
	assert.Equal(t, []string{"A2"}, cfg.Input.SourceCodes)
	assert.Equal(t, MissingExclude, cfg.Input.MissingSidecar)
	assert.Equal(t, KeepNone, cfg.Output.KeepMode)
	assert.True(t, cfg.Output.GroupByCode, "unset bool keeps default")
	assert.True(t, cfg.Output.Overwrite, "unset bool keeps default")
	assert.Equal(t, 128, cfg.Review.BoxWidth)
	assert.Equal(t, 224, cfg.Review.BoxHeight)
	assert.Equal(t, geometry.AnchorTopLeft, cfg.Review.Anchor)
	assert.Equal(t, overlay.MatchPrefix, cfg.Originals.Match)

	assert.Equal(t, filepath.Join("/data/in", "_REJECTED"), cfg.QuarantineDir())
	assert.Equal(t, filepath.Join("/data/out", "_AMBIGUOUS"), cfg.AmbiguousDir())
	assert.Equal(t, filepath.Join("/data/out", "progress.json"), cfg.ProgressFile())
}

func TestLoad_OverwriteOptOut(t *testing.T) {
	path := writeConfig(t, `
output:
  overwrite: false
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)
	assert.False(t, cfg.Output.Overwrite)
}

func TestLoad_CustomCodes(t *testing.T) {
	path := writeConfig(t, `
input:
  source_codes: [B1]
codes:
  - {token: B1, dir_name: B1_spots, presence: symptomatic}
  - {token: B9, dir_name: B9_clear, presence: asymptomatic, normal: true}
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "B9", cfg.Review.DefaultCode)
	assert.Len(t, cfg.Codes, 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "input: [", wantErr: "parse config file"},
		{name: "bad policy", content: "input: {missing_sidecar: maybe}", wantErr: "missing_sidecar"},
		{name: "bad keep mode", content: "output: {keep_mode: move}", wantErr: "keep_mode"},
		{name: "bad anchor", content: "review: {anchor: middle}", wantErr: "anchor"},
		{name: "negative box", content: "review: {box_width: -4}", wantErr: "at least 1x1"},
		{name: "unknown default code", content: "review: {default_code: Z1}", wantErr: "default_code"},
		{name: "unknown source code", content: "input: {source_codes: [Z1]}", wantErr: "source_codes"},
		{name: "same extensions", content: "input: {image_ext: .json}", wantErr: "must differ"},
		{name: "bad match", content: "originals: {match: fuzzy}", wantErr: "originals.match"},
		{
			name:    "duplicate tokens",
			content: "codes: [{token: A1, dir_name: A1_x}, {token: A1, dir_name: A1_y}]",
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RequiresDataDir(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory")
}

func TestLabelSchema(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.LabelSchema()
	assert.Equal(t, "metaData", s.MetadataKey)
	assert.Equal(t, "정상", s.NormalDiagnosis)
	assert.Equal(t, []string{"src_path", "label_path"}, s.PathFields)

	s.PathFields[0] = "changed"
	assert.Equal(t, "src_path", cfg.Schema.PathFields[0])
}

func TestJournalFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/relabel"
	assert.Equal(t, "/var/lib/relabel/relabel.db", cfg.JournalFile())

	cfg.Journal.Path = "/tmp/j.db"
	assert.Equal(t, "/tmp/j.db", cfg.JournalFile())
}
