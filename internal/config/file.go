package config

import (
	"azdoexport/internal/fetcher"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file picked up from the working directory
// when --config is not given.
const DefaultFileName = ".azdoexport.yaml"

// LoadFile overlays the YAML file at path onto cfg. Only the sections the
// file mentions are touched, so a file carrying a single retry knob leaves
// every other default alone. Durations accept Go syntax ("30s", "2m").
//
// The file covers the run-shaping sections only: retry, breaker, classify
// and logging. Target, credentials and output come from flags and the
// environment.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	overlay := struct {
		Retry    *fetcher.RetryPolicy        `yaml:"retry"`
		Breaker  *fetcher.BreakerPolicy      `yaml:"breaker"`
		Classify fetcher.ClassificationTable `yaml:"classify"`
		Logging  *Logging                    `yaml:"logging"`
	}{
		Retry:   &cfg.Retry,
		Breaker: &cfg.Breaker,
		Logging: &cfg.Logging,
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(overlay.Classify) > 0 {
		cfg.Classify = cfg.Classify.Merge(overlay.Classify)
	}
	return nil
}

// LoadFileOrDefault is LoadFile, except a missing file leaves cfg untouched.
// Used for the optional well-known file in the working directory.
func LoadFileOrDefault(path string, cfg *Config) error {
	err := LoadFile(path, cfg)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
