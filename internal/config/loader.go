package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if EXPORTS_CONFIG is set
//  3. env (prefix EXPORTS_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("EXPORTS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: EXPORTS_DB_PATH, EXPORTS_START_DATE, ...
	// Map env keys like EXPORTS_EXPORT_DIR -> export_dir (flat keys),
	// preserving underscores to match the koanf tags on the struct.
	envProvider := env.Provider("EXPORTS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "exports_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	if cfg.ExportDir == "" || cfg.ResultDir == "" {
		return nil, errors.New("export_dir and result_dir must not be empty")
	}
	if cfg.MergedFile == "" {
		return nil, errors.New("merged_file must not be empty")
	}
	return &cfg, nil
}
