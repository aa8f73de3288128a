package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"openshift", "kubernetes"}, cfg.Search.Orgs)
	assert.Equal(t, 1000, cfg.Search.MaxResults)
	assert.Equal(t, 100, cfg.Search.PageSize)
	assert.Equal(t, 50, cfg.Acquire.Repos)
	assert.Equal(t, 8, cfg.Acquire.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.Acquire.CloneTimeout.Duration())
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL.Duration())
	assert.Equal(t, 1.0, cfg.Ranking.StarsWeight)
	assert.Equal(t, 2.0, cfg.Ranking.MatchesWeight)
	assert.Equal(t, 0.5, cfg.Ranking.LanguagesWeight)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  orgs: [acme, initech]
  max_results: 250
acquire:
  concurrency: 4
  clone_timeout: 90s
cache:
  ttl: 24h
workspace: /tmp/surveys
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"acme", "initech"}, cfg.Search.Orgs)
	assert.Equal(t, 250, cfg.Search.MaxResults)
	assert.Equal(t, 4, cfg.Acquire.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Acquire.CloneTimeout.Duration())
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Duration())
	assert.Equal(t, "/tmp/surveys", cfg.Workspace)
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Search.PageSize)
	assert.Equal(t, 2.0, cfg.Ranking.MatchesWeight)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  max_results: 250\n"), 0o600))

	t.Setenv("PATTERNMINER_SEARCH_MAX_RESULTS", "500")
	t.Setenv("PATTERNMINER_GITHUB_TOKEN", "ghp_secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Search.MaxResults)
	assert.Equal(t, "ghp_secret", cfg.GitHub.Token.Value())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Search.MaxResults)
}

func TestLoad_GithubTokenFallback(t *testing.T) {
	t.Setenv("PATTERNMINER_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "gho_fallback")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gho_fallback", cfg.GitHub.Token.Value())
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero page size", "search:\n  page_size: 0\n"},
		{"oversized page", "search:\n  page_size: 200\n"},
		{"zero concurrency", "acquire:\n  concurrency: 0\n"},
		{"negative weight", "ranking:\n  matches_weight: -1\n"},
		{"bad log format", "logging:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	assert.False(t, Secret("").IsSet())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))

	out, err := json.Marshal(Duration(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"1m0s"`, string(out))
}
