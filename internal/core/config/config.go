// Package config handles configuration loading and validation for relabel.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/core/overlay"
	"gopkg.in/yaml.v3"
)

// MissingPolicy decides what happens to items whose sidecar does not exist.
type MissingPolicy string

const (
	// MissingBlock refuses commit on the item until the sidecar appears.
	MissingBlock MissingPolicy = "block"
	// MissingExclude drops the item while building the catalog.
	MissingExclude MissingPolicy = "exclude"
	// MissingEmpty commits from an empty record.
	MissingEmpty MissingPolicy = "empty"
)

// IsValid reports whether p is a known policy.
func (p MissingPolicy) IsValid() bool {
	switch p {
	case MissingBlock, MissingExclude, MissingEmpty:
		return true
	default:
		return false
	}
}

// KeepMode decides what accept-as-is writes.
type KeepMode string

const (
	// KeepCopy copies the untouched pair into the output directory.
	KeepCopy KeepMode = "copy"
	// KeepNone records the decision without touching the filesystem.
	KeepNone KeepMode = "none"
)

// IsValid reports whether m is a known mode.
func (m KeepMode) IsValid() bool {
	return m == KeepCopy || m == KeepNone
}

// Config holds the application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Review    ReviewConfig    `yaml:"review"`
	Codes     []CodeConfig    `yaml:"codes"`
	Schema    SchemaConfig    `yaml:"schema"`
	Originals OriginalsConfig `yaml:"originals"`
	Journal   JournalConfig   `yaml:"journal"`
	TUI       TUIConfig       `yaml:"tui"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// InputConfig describes the catalog to review.
type InputConfig struct {
	Root       string `yaml:"root"`
	ImageExt   string `yaml:"image_ext"`
	SidecarExt string `yaml:"sidecar_ext"`
	// SourceCodes restricts the catalog to files carrying one of these
	// tokens. Empty accepts every code in the table.
	SourceCodes    []string      `yaml:"source_codes"`
	MissingSidecar MissingPolicy `yaml:"missing_sidecar"`
}

// OutputConfig describes where decisions write.
type OutputConfig struct {
	Dir           string `yaml:"dir"`
	QuarantineDir string `yaml:"quarantine_dir"` // default: <input.root>/_REJECTED
	AmbiguousDir  string `yaml:"ambiguous_dir"`  // default: <output.dir>/_AMBIGUOUS
	// GroupByCode writes commits under <dir>/<code dir name>/.
	GroupByCode bool     `yaml:"group_by_code"`
	KeepMode    KeepMode `yaml:"keep_mode"`
	// Overwrite replaces existing outputs instead of refusing. Replaced
	// files are kept aside so undo can restore them. On by default so a
	// finished catalog can be reviewed again into the same output dir.
	Overwrite bool `yaml:"overwrite"`
}

// ReviewConfig holds the commit defaults.
type ReviewConfig struct {
	BoxWidth    int             `yaml:"box_width"`
	BoxHeight   int             `yaml:"box_height"`
	Anchor      geometry.Anchor `yaml:"anchor"`
	DefaultCode string          `yaml:"default_code"`
}

// CodeConfig is one entry of the classification table.
type CodeConfig struct {
	Token    string `yaml:"token"`
	DirName  string `yaml:"dir_name"`
	Presence string `yaml:"presence"`
	Label    string `yaml:"label"`
	Color    string `yaml:"color"`
	Normal   bool   `yaml:"normal"`
}

// SchemaConfig names the sidecar fields the transformer touches.
type SchemaConfig struct {
	MetadataKey     string   `yaml:"metadata_key"`
	AnnotationsKey  string   `yaml:"annotations_key"`
	IdentifierField string   `yaml:"identifier_field"`
	ClassField      string   `yaml:"class_field"`
	PresenceField   string   `yaml:"presence_field"`
	DiagnosisField  string   `yaml:"diagnosis_field"`
	PathFields      []string `yaml:"path_fields"`
	RejectFlagField string   `yaml:"reject_flag_field"`
	NotRejected     string   `yaml:"not_rejected"`
	NormalDiagnosis string   `yaml:"normal_diagnosis"`
	SymptomMarker   string   `yaml:"symptom_marker"`
	NoSymptomMarker string   `yaml:"no_symptom_marker"`
}

// OriginalsConfig points at the tree of unmodified sidecars used by inspect.
type OriginalsConfig struct {
	Root  string            `yaml:"root"`
	Match overlay.MatchMode `yaml:"match"`
}

// JournalConfig controls the audit journal.
type JournalConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"` // default: <data dir>/relabel.db
}

// TUIConfig holds interface preferences.
type TUIConfig struct {
	Theme string `yaml:"theme"`
}

const (
	symptomatic   = "유증상"
	asymptomatic  = "무증상"
	defaultColor  = "#27b73c"
	defaultNormal = "A7"
)

// DefaultCodes is the built-in classification table.
func DefaultCodes() []CodeConfig {
	return []CodeConfig{
		{Token: "A1", DirName: "A1_구진_플라크", Presence: symptomatic, Color: defaultColor},
		{Token: "A2", DirName: "A2_비듬_각질_상피성잔고리", Presence: symptomatic, Color: defaultColor},
		{Token: "A3", DirName: "A3_태선화_과다색소침착", Presence: symptomatic, Color: defaultColor},
		{Token: "A4", DirName: "A4_농포_여드름", Presence: symptomatic, Color: defaultColor},
		{Token: "A5", DirName: "A5_미란_궤양", Presence: symptomatic, Color: defaultColor},
		{Token: "A6", DirName: "A6_결절_종괴", Presence: symptomatic, Color: defaultColor},
		{Token: "A7", DirName: "A7_정상", Presence: asymptomatic, Color: defaultColor, Normal: true},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			ImageExt:       ".jpg",
			SidecarExt:     ".json",
			SourceCodes:    []string{"A1", "A2", "A3", "A4", "A5", "A6"},
			MissingSidecar: MissingBlock,
		},
		Output: OutputConfig{
			Dir:         "output",
			GroupByCode: true,
			KeepMode:    KeepCopy,
			Overwrite:   true,
		},
		Review: ReviewConfig{
			BoxWidth:    224,
			BoxHeight:   224,
			Anchor:      geometry.AnchorCenter,
			DefaultCode: defaultNormal,
		},
		Codes: DefaultCodes(),
		Schema: SchemaConfig{
			MetadataKey:     "metaData",
			AnnotationsKey:  "labelingInfo",
			IdentifierField: "Raw data ID",
			ClassField:      "lesions",
			PresenceField:   "Path",
			DiagnosisField:  "diagnosis",
			PathFields:      []string{"src_path", "label_path"},
			RejectFlagField: "inspRejectYn",
			NotRejected:     "N",
			NormalDiagnosis: "정상",
			SymptomMarker:   symptomatic,
			NoSymptomMarker: asymptomatic,
		},
		Originals: OriginalsConfig{Match: overlay.MatchExact},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Input.ImageExt == "" {
		c.Input.ImageExt = defaults.Input.ImageExt
	}
	if c.Input.SidecarExt == "" {
		c.Input.SidecarExt = defaults.Input.SidecarExt
	}
	c.Input.ImageExt = dotted(c.Input.ImageExt)
	c.Input.SidecarExt = dotted(c.Input.SidecarExt)
	if c.Input.MissingSidecar == "" {
		c.Input.MissingSidecar = defaults.Input.MissingSidecar
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaults.Output.Dir
	}
	if c.Output.KeepMode == "" {
		c.Output.KeepMode = defaults.Output.KeepMode
	}
	if c.Review.BoxWidth == 0 {
		c.Review.BoxWidth = defaults.Review.BoxWidth
	}
	if c.Review.BoxHeight == 0 {
		c.Review.BoxHeight = defaults.Review.BoxHeight
	}
	if c.Review.Anchor == "" {
		c.Review.Anchor = defaults.Review.Anchor
	}
	if len(c.Codes) == 0 {
		c.Codes = defaults.Codes
	}
	if c.Review.DefaultCode == "" {
		for _, code := range c.Codes {
			if code.Normal {
				c.Review.DefaultCode = code.Token
			}
		}
	}
	if c.Originals.Match == "" {
		c.Originals.Match = defaults.Originals.Match
	}
}

func dotted(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}

	if strings.EqualFold(c.Input.ImageExt, c.Input.SidecarExt) {
		return fmt.Errorf("input.image_ext and input.sidecar_ext must differ")
	}

	if !c.Input.MissingSidecar.IsValid() {
		return fmt.Errorf("input.missing_sidecar %q is invalid (want block, exclude or empty)", c.Input.MissingSidecar)
	}

	if !c.Output.KeepMode.IsValid() {
		return fmt.Errorf("output.keep_mode %q is invalid (want copy or none)", c.Output.KeepMode)
	}

	if c.Review.BoxWidth < 1 || c.Review.BoxHeight < 1 {
		return fmt.Errorf("review box must be at least 1x1, got %dx%d", c.Review.BoxWidth, c.Review.BoxHeight)
	}

	if !c.Review.Anchor.IsValid() {
		return fmt.Errorf("review.anchor %q is invalid", c.Review.Anchor)
	}

	if !c.Originals.Match.IsValid() {
		return fmt.Errorf("originals.match %q is invalid (want exact or prefix)", c.Originals.Match)
	}

	table, err := c.CodeTable()
	if err != nil {
		return fmt.Errorf("codes: %w", err)
	}

	if _, err := table.Lookup(c.Review.DefaultCode); err != nil {
		return fmt.Errorf("review.default_code: %w", err)
	}

	if _, err := label.NewFilter(table, c.Input.SourceCodes); err != nil {
		return fmt.Errorf("input.source_codes: %w", err)
	}

	if c.Schema.MetadataKey == "" || c.Schema.AnnotationsKey == "" {
		return fmt.Errorf("schema.metadata_key and schema.annotations_key are required")
	}

	return nil
}

// CodeTable builds the label table from the configured codes.
func (c *Config) CodeTable() (*label.Table, error) {
	codes := make([]label.Code, 0, len(c.Codes))
	for _, cc := range c.Codes {
		codes = append(codes, label.Code{
			Token:    cc.Token,
			DirName:  cc.DirName,
			Presence: cc.Presence,
			Label:    cc.Label,
			Color:    cc.Color,
			Normal:   cc.Normal,
		})
	}
	return label.NewTable(codes)
}

// LabelSchema converts the schema section for the transformer.
func (c *Config) LabelSchema() label.Schema {
	s := c.Schema
	return label.Schema{
		MetadataKey:     s.MetadataKey,
		AnnotationsKey:  s.AnnotationsKey,
		IdentifierField: s.IdentifierField,
		ClassField:      s.ClassField,
		PresenceField:   s.PresenceField,
		DiagnosisField:  s.DiagnosisField,
		PathFields:      slices.Clone(s.PathFields),
		RejectFlagField: s.RejectFlagField,
		NotRejected:     s.NotRejected,
		NormalDiagnosis: s.NormalDiagnosis,
		SymptomMarker:   s.SymptomMarker,
		NoSymptomMarker: s.NoSymptomMarker,
	}
}

// QuarantineDir returns where rejected pairs are moved.
func (c *Config) QuarantineDir() string {
	if c.Output.QuarantineDir != "" {
		return c.Output.QuarantineDir
	}
	return filepath.Join(c.Input.Root, "_REJECTED")
}

// AmbiguousDir returns where skipped pairs are copied.
func (c *Config) AmbiguousDir() string {
	if c.Output.AmbiguousDir != "" {
		return c.Output.AmbiguousDir
	}
	return filepath.Join(c.Output.Dir, "_AMBIGUOUS")
}

// ProgressFile returns the path of the progress record.
func (c *Config) ProgressFile() string {
	return filepath.Join(c.Output.Dir, "progress.json")
}

// JournalFile returns the path of the journal database.
func (c *Config) JournalFile() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.DataDir, "relabel.db")
}

// LogFile returns the default log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "relabel.log")
}
