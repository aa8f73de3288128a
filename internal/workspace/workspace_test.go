package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ClusterOperator", "ClusterOperator"},
		{"k8s.io/client-go", "k8s.io-client-go"},
		{"type Foo struct", "type-Foo-struct"},
		{"...", "pattern"},
		{"", "pattern"},
		{"a b\tc", "a-b-c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/ws", "My Pattern")

	assert.Equal(t, filepath.Join("/ws", "My-Pattern"), l.Dir())
	assert.Equal(t, filepath.Join("/ws", "My-Pattern", "selection.json"), l.SelectionPath())
	assert.Equal(t, filepath.Join("/ws", "My-Pattern", "ledger.json"), l.LedgerPath())
	assert.Equal(t, filepath.Join("/ws", "My-Pattern", "failures.json"), l.FailuresPath())
	assert.Equal(t, filepath.Join("/ws", "My-Pattern", "cache.marker"), l.MarkerPath())
	assert.Equal(t, filepath.Join("/ws", "My-Pattern", "repos", "api"), l.RepoPath("api"))
}

func TestWriteSelection_RoundTripAndCanonicalOrder(t *testing.T) {
	l := NewLayout(t.TempDir(), "Widget")
	w := NewWriter(l)

	sel := &survey.Selection{
		Pattern:       "Widget",
		ReposFound:    3,
		ReposSelected: 3,
		Repos: []survey.Repository{
			{FullName: "acme/low", Name: "low", Org: "acme", Score: 1},
			{FullName: "acme/high", Name: "high", Org: "acme", Score: 9},
			{FullName: "acme/mid", Name: "mid", Org: "acme", Score: 5},
		},
	}
	require.NoError(t, w.WriteSelection(sel))

	got, err := w.ReadSelection()
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Pattern)
	require.Len(t, got.Repos, 3)
	// Persisted in canonical order regardless of completion order upstream.
	assert.Equal(t, "acme/high", got.Repos[0].FullName)
	assert.Equal(t, "acme/mid", got.Repos[1].FullName)
	assert.Equal(t, "acme/low", got.Repos[2].FullName)
}

func TestWriteSelection_SchemaFields(t *testing.T) {
	l := NewLayout(t.TempDir(), "Widget")
	w := NewWriter(l)

	require.NoError(t, w.WriteSelection(&survey.Selection{
		Pattern:       "Widget",
		ReposFound:    1,
		ReposSelected: 1,
		Repos: []survey.Repository{{
			FullName: "acme/api", Org: "acme", Name: "api",
			Stars: 7, CloneURL: "https://github.com/acme/api.git",
			MatchCount: 2, Score: 4.5,
		}},
	}))

	data, err := os.ReadFile(l.SelectionPath())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Widget", doc["pattern"])
	assert.Equal(t, float64(1), doc["repos_found"])
	assert.Equal(t, float64(1), doc["repos_selected"])

	repos := doc["repos"].([]any)
	entry := repos[0].(map[string]any)
	for _, field := range []string{"full_name", "org", "name", "stars", "clone_url", "match_count", "relevance_score"} {
		assert.Contains(t, entry, field)
	}
}

func TestWriteFailures_OnlyWhenNonEmpty(t *testing.T) {
	l := NewLayout(t.TempDir(), "Widget")
	w := NewWriter(l)
	require.NoError(t, l.Ensure())

	require.NoError(t, w.WriteFailures(nil))
	_, err := os.Stat(l.FailuresPath())
	assert.True(t, os.IsNotExist(err), "no manifest for a clean run")

	require.NoError(t, w.WriteFailures([]Failure{{Repository: "acme/api", Reason: "timeout"}}))
	_, err = os.Stat(l.FailuresPath())
	require.NoError(t, err)

	// A later clean run removes the stale manifest.
	require.NoError(t, w.WriteFailures(nil))
	_, err = os.Stat(l.FailuresPath())
	assert.True(t, os.IsNotExist(err))
}

func TestWriteLedger(t *testing.T) {
	l := NewLayout(t.TempDir(), "Widget")
	w := NewWriter(l)

	ledger := &survey.Ledger{
		RunID:      "run-1",
		Pattern:    "Widget",
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
		Outcomes: []survey.CloneOutcome{
			{RepoFullName: "acme/api", Status: survey.StatusSuccess},
			{RepoFullName: "acme/bad", Status: survey.StatusFailed, Error: "boom"},
		},
	}
	require.NoError(t, w.WriteLedger(ledger))

	data, err := os.ReadFile(l.LedgerPath())
	require.NoError(t, err)
	var got survey.Ledger
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ledger.RunID, got.RunID)
	assert.Len(t, got.Outcomes, 2)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	l := NewLayout(t.TempDir(), "Widget")
	w := NewWriter(l)

	require.NoError(t, w.WriteSelection(&survey.Selection{Pattern: "Widget"}))
	require.NoError(t, w.WriteLedger(&survey.Ledger{RunID: "r"}))

	entries, err := os.ReadDir(l.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files must not survive a write")
	}
}

func TestCountClones(t *testing.T) {
	l := NewLayout(t.TempDir(), "Widget")
	require.NoError(t, l.Ensure())
	assert.Equal(t, 0, l.CountClones())

	// One populated checkout, one empty directory (failed clone debris).
	full := l.RepoPath("api")
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.MkdirAll(l.RepoPath("empty"), 0o755))

	assert.Equal(t, 1, l.CountClones())
}
