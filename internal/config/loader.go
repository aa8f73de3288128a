package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PATTERNMINER_"

// Load loads configuration from the YAML file at configPath, then
// overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PATTERNMINER_GITHUB_TOKEN, ...)
//  2. YAML config file (~/.config/patternminer/config.yaml by default)
//  3. Hardcoded defaults
//
// A missing config file is not an error; the defaults plus environment
// variables apply. As a convenience, GITHUB_TOKEN is honored when no
// patternminer-specific token is set.
//
// Environment variable mapping: the PATTERNMINER_ prefix is stripped, the
// first underscore separates section from field, and the field keeps its
// underscores:
//
//	PATTERNMINER_GITHUB_TOKEN          -> github.token
//	PATTERNMINER_SEARCH_MAX_RESULTS    -> search.max_results
//	PATTERNMINER_ACQUIRE_CLONE_TIMEOUT -> acquire.clone_timeout
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "patternminer", "config.yaml")
	}

	if content, err := os.ReadFile(configPath); err == nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// PATTERNMINER_SEARCH_MAX_RESULTS -> search.max_results:
		// split on the first underscore only, the field keeps the rest.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.GitHub.Token.IsSet() {
		cfg.GitHub.Token = Secret(os.Getenv("GITHUB_TOKEN"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
