package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".ocrdlp"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Preset holds reusable settings for a named dataset-collection job.
// Presets let users keep recurring queries in the config file instead of
// retyping flags.
type Preset struct {
	// Query is the image search query for this preset.
	Query string `yaml:"query,omitempty"`

	// Engine overrides the default search engine for this preset.
	Engine string `yaml:"engine,omitempty"`

	// Limit overrides the default result cap for this preset.
	Limit int `yaml:"limit,omitempty"`

	// OutputDir overrides where images are written.
	OutputDir string `yaml:"outputDir,omitempty"`

	// LabelFile overrides the JSONL output path.
	LabelFile string `yaml:"labelFile,omitempty"`
}

// File represents the structure of the .ocrdlp configuration file.
type File struct {
	// Presets maps preset names to their settings.
	Presets map[string]Preset `yaml:"presets,omitempty"`

	// Defaults contains settings applied to all presets unless
	// overridden by the preset itself.
	Defaults Preset `yaml:"defaults,omitempty"`

	// MixedEngines is the engine order for the mixed composite mode.
	MixedEngines []string `yaml:"mixedEngines,omitempty"`
}

// GetPreset returns the named preset merged over the defaults.
// An unknown name returns just the defaults.
func (cf *File) GetPreset(name string) Preset {
	result := cf.Defaults

	preset, ok := cf.Presets[name]
	if !ok {
		return result
	}

	if preset.Query != "" {
		result.Query = preset.Query
	}
	if preset.Engine != "" {
		result.Engine = preset.Engine
	}
	if preset.Limit > 0 {
		result.Limit = preset.Limit
	}
	if preset.OutputDir != "" {
		result.OutputDir = preset.OutputDir
	}
	if preset.LabelFile != "" {
		result.LabelFile = preset.LabelFile
	}

	return result
}

// LoadConfigFile loads presets from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this based on whether the path was explicitly specified.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Presets == nil {
		cf.Presets = make(map[string]Preset)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .ocrdlp in the current directory
//  3. Look for .ocrdlp in the user's home directory
//
// Returns the path if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
