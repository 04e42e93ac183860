package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/colonyops/relabel/internal/core/overlay"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// directory accessibility and the code table. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateDirLayout(),
		c.validateCodes(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if !c.Output.Overwrite {
		warnings = append(warnings, ValidationWarning{
			Category: "Output",
			Item:     "overwrite",
			Message:  "commits fail when an output already exists; reviewing the catalog again needs a clean output dir",
		})
	}

	if c.Originals.Match == overlay.MatchPrefix {
		warnings = append(warnings, ValidationWarning{
			Category: "Originals",
			Item:     "match",
			Message:  "prefix matching can pick the wrong original when IDs share a prefix",
		})
	}

	if !slices.ContainsFunc(c.Codes, func(code CodeConfig) bool { return code.Normal }) {
		warnings = append(warnings, ValidationWarning{
			Category: "Codes",
			Message:  "no code is marked normal; diagnosis and symptom marker rules never apply",
		})
	}

	if c.Input.MissingSidecar == MissingEmpty {
		warnings = append(warnings, ValidationWarning{
			Category: "Input",
			Item:     "missing_sidecar",
			Message:  "items without a sidecar are committed from an empty record",
		})
	}

	return warnings
}

// validateFileAccess checks config file, input root, and writable directories.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("input.root", c.Input.Root, isExistingDirectory),
		criterio.Run("output.dir", c.Output.Dir, isDirectoryOrNotExist),
		criterio.Run("output.quarantine_dir", c.QuarantineDir(), isDirectoryOrNotExist),
		criterio.Run("output.ambiguous_dir", c.AmbiguousDir(), isDirectoryOrNotExist),
		criterio.Run("originals.root", c.Originals.Root, isExistingDirectoryOrEmpty),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isExistingDirectory validates that a path is set and is a directory.
func isExistingDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func isExistingDirectoryOrEmpty(path string) error {
	if path == "" {
		return nil
	}
	return isExistingDirectory(path)
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// validateDirLayout rejects layouts where decisions would feed back into the
// catalog or collide with each other.
func (c *Config) validateDirLayout() error {
	var errs criterio.FieldErrorsBuilder

	dirs := []struct{ field, dir string }{
		{"output.dir", c.Output.Dir},
		{"output.quarantine_dir", c.QuarantineDir()},
		{"output.ambiguous_dir", c.AmbiguousDir()},
	}

	for _, d := range dirs {
		if sameDir(d.dir, c.Input.Root) {
			errs = errs.Append(d.field, fmt.Errorf("must differ from input.root"))
		}
	}

	if sameDir(c.QuarantineDir(), c.Output.Dir) {
		errs = errs.Append("output.quarantine_dir", fmt.Errorf("must differ from output.dir"))
	}

	return errs.ToError()
}

func sameDir(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// validateCodes checks each code entry field by field.
func (c *Config) validateCodes() error {
	var errs criterio.FieldErrorsBuilder

	for i, code := range c.Codes {
		prefix := fmt.Sprintf("codes[%d]", i)
		if code.Color != "" && !colorRe.MatchString(code.Color) {
			errs = errs.Append(prefix+".color", fmt.Errorf("invalid color %q (want #rrggbb)", code.Color))
		}
		if code.Presence == "" {
			errs = errs.Append(prefix+".presence", fmt.Errorf("is required"))
		}
		if !strings.HasPrefix(code.DirName, code.Token) {
			errs = errs.Append(prefix+".dir_name", fmt.Errorf("%q should start with token %q", code.DirName, code.Token))
		}
	}

	return errs.ToError()
}
