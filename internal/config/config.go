// Package config provides configuration loading for patternminer.
package config

import (
	"fmt"
	"time"
)

// Config is the full patternminer configuration. Values are layered:
// hardcoded defaults, then the YAML config file, then PATTERNMINER_*
// environment variables. Per-run CLI flags override on top of this.
type Config struct {
	GitHub    GitHubConfig  `koanf:"github"`
	Search    SearchConfig  `koanf:"search"`
	Acquire   AcquireConfig `koanf:"acquire"`
	Cache     CacheConfig   `koanf:"cache"`
	Ranking   RankingConfig `koanf:"ranking"`
	Workspace string        `koanf:"workspace"`
	Logging   LoggingConfig `koanf:"logging"`
}

// GitHubConfig holds GitHub API access settings.
type GitHubConfig struct {
	// Token authenticates code-search requests. Unauthenticated search is
	// rate-limited so aggressively that a token is effectively required.
	Token Secret `koanf:"token"`
	// BaseURL overrides the API endpoint, for GitHub Enterprise or tests.
	BaseURL string `koanf:"base_url"`
}

// SearchConfig controls code-search pagination and pacing.
type SearchConfig struct {
	Orgs              []string `koanf:"orgs"`
	MaxResults        int      `koanf:"max_results"`
	PageSize          int      `koanf:"page_size"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
}

// AcquireConfig controls the clone worker pool.
type AcquireConfig struct {
	Repos        int      `koanf:"repos"`
	Concurrency  int      `koanf:"concurrency"`
	CloneTimeout Duration `koanf:"clone_timeout"`
}

// CacheConfig controls result freshness gating.
type CacheConfig struct {
	TTL Duration `koanf:"ttl"`
}

// RankingConfig holds the relevance-score weights. The defaults are the
// contract: match density dominates popularity, which dominates language
// spread. Overridable mainly for experiments and tests.
type RankingConfig struct {
	StarsWeight     float64 `koanf:"stars_weight"`
	MatchesWeight   float64 `koanf:"matches_weight"`
	LanguagesWeight float64 `koanf:"languages_weight"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Orgs:              []string{"openshift", "kubernetes"},
			MaxResults:        1000,
			PageSize:          100,
			RequestsPerSecond: 2,
		},
		Acquire: AcquireConfig{
			Repos:        50,
			Concurrency:  8,
			CloneTimeout: Duration(120 * time.Second),
		},
		Cache: CacheConfig{
			TTL: Duration(7 * 24 * time.Hour),
		},
		Ranking: RankingConfig{
			StarsWeight:     1.0,
			MatchesWeight:   2.0,
			LanguagesWeight: 0.5,
		},
		Workspace: "./workspace",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks configuration invariants that do not depend on a
// specific run.
func (c *Config) Validate() error {
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive")
	}
	if c.Search.PageSize <= 0 || c.Search.PageSize > 100 {
		return fmt.Errorf("search.page_size must be in [1,100], got %d", c.Search.PageSize)
	}
	if c.Search.RequestsPerSecond <= 0 {
		return fmt.Errorf("search.requests_per_second must be positive")
	}
	if c.Acquire.Concurrency <= 0 {
		return fmt.Errorf("acquire.concurrency must be positive")
	}
	if c.Acquire.CloneTimeout.Duration() <= 0 {
		return fmt.Errorf("acquire.clone_timeout must be positive")
	}
	if c.Ranking.MatchesWeight < 0 || c.Ranking.StarsWeight < 0 || c.Ranking.LanguagesWeight < 0 {
		return fmt.Errorf("ranking weights cannot be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
