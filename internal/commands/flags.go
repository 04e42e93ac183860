package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/relabel/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// ProfilerPort serves pprof on 127.0.0.1 when non-zero.
	ProfilerPort int

	// InputRoot and OutputDir override the configured directories.
	InputRoot string
	OutputDir string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "relabel", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "relabel")
}

// LoadConfig reads the config file and applies the directory overrides.
func (f *Flags) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath, f.DataDir)
	if err != nil {
		return nil, err
	}

	if f.InputRoot == "" && f.OutputDir == "" {
		return cfg, nil
	}
	if f.InputRoot != "" {
		cfg.Input.Root = f.InputRoot
	}
	if f.OutputDir != "" {
		cfg.Output.Dir = f.OutputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
