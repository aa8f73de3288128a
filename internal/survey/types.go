// Package survey defines the shared data model for the pattern-survey
// pipeline: search matches, aggregated repositories, the ranked selection,
// and the per-clone outcome ledger.
package survey

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SearchMatch is one file-level hit returned by a search provider.
// (RepoFullName, Path) identifies a match; duplicates across pages carry
// no extra information and are discarded during aggregation.
type SearchMatch struct {
	RepoFullName string `json:"repository"`
	Path         string `json:"path"`
	Language     string `json:"language,omitempty"`

	// Repository metadata as reported alongside the match.
	Stars    int    `json:"stars"`
	CloneURL string `json:"clone_url"`
}

// Key returns the deduplication key for the match.
func (m SearchMatch) Key() string {
	return m.RepoFullName + "\x00" + m.Path
}

// Repository is the aggregated per-repository record. It is built up
// during aggregation, scored once by the ranker, and immutable after the
// selection is finalized.
type Repository struct {
	FullName   string   `json:"full_name"`
	Org        string   `json:"org"`
	Name       string   `json:"name"`
	Stars      int      `json:"stars"`
	CloneURL   string   `json:"clone_url"`
	MatchCount int      `json:"match_count"`
	Languages  []string `json:"languages,omitempty"`
	Score      float64  `json:"relevance_score"`
}

// SplitFullName splits an "org/name" repository identifier.
func SplitFullName(fullName string) (org, name string) {
	if i := strings.IndexByte(fullName, '/'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}

// Selection is the ranked, size-bounded repository selection for a
// pattern. Repos are ordered by (Score desc, Stars desc, FullName asc).
type Selection struct {
	Pattern       string       `json:"pattern"`
	ReposFound    int          `json:"repos_found"`
	ReposSelected int          `json:"repos_selected"`
	Repos         []Repository `json:"repos"`
}

// Sort re-establishes the canonical selection order. The order is total:
// FullName is unique per provider, so no two entries compare equal.
func (s *Selection) Sort() {
	sort.Slice(s.Repos, func(i, j int) bool {
		a, b := s.Repos[i], s.Repos[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Stars != b.Stars {
			return a.Stars > b.Stars
		}
		return a.FullName < b.FullName
	})
}

// CloneTask is one unit of acquisition work.
type CloneTask struct {
	RepoFullName string `json:"repository"`
	CloneURL     string `json:"clone_url"`
	TargetPath   string `json:"target_path"`
}

// OutcomeStatus classifies how a clone task ended.
type OutcomeStatus string

const (
	// StatusCached means the target path already held a checkout and the
	// network was never touched.
	StatusCached OutcomeStatus = "cached"
	// StatusSuccess means the clone completed.
	StatusSuccess OutcomeStatus = "success"
	// StatusFailed means the clone failed or timed out.
	StatusFailed OutcomeStatus = "failed"
)

// CloneOutcome records the result of exactly one CloneTask. Error is set
// iff Status is StatusFailed.
type CloneOutcome struct {
	RepoFullName string        `json:"repository"`
	Status       OutcomeStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
}

// Ledger is the persisted acquisition record for one run.
type Ledger struct {
	RunID      string         `json:"run_id"`
	Pattern    string         `json:"pattern"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcomes   []CloneOutcome `json:"outcomes"`
}

// RunContext carries every per-run knob through the pipeline explicitly.
// Nothing in the pipeline reads ambient process state.
type RunContext struct {
	RunID    string
	Pattern  string
	Orgs     []string
	Language string

	MaxRepos   int
	MaxResults int

	Workspace    string
	CacheTTL     time.Duration
	ForceRefresh bool

	// SkipSearch reuses the persisted selection instead of querying the
	// search provider, then proceeds to acquisition as usual.
	SkipSearch bool
	// SkipAcquisition stops after persisting the ranked selection; no
	// clones are attempted.
	SkipAcquisition bool
}

const (
	// MinRepos is the smallest statistically useful selection; runs that
	// find or acquire fewer repositories than this fail.
	MinRepos = 3
	// MaxReposLimit caps how many repositories a single run may select.
	MaxReposLimit = 50
)

// Validate fails fast on configuration errors before any network call.
func (rc *RunContext) Validate() error {
	if strings.TrimSpace(rc.Pattern) == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	if len(rc.Orgs) == 0 {
		return fmt.Errorf("at least one organization is required")
	}
	for _, org := range rc.Orgs {
		if strings.TrimSpace(org) == "" {
			return fmt.Errorf("organization names must not be empty")
		}
	}
	if rc.MaxRepos < MinRepos || rc.MaxRepos > MaxReposLimit {
		return fmt.Errorf("repos must be between %d and %d, got %d", MinRepos, MaxReposLimit, rc.MaxRepos)
	}
	if rc.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive, got %d", rc.MaxResults)
	}
	if rc.Workspace == "" {
		return fmt.Errorf("workspace directory must not be empty")
	}
	if rc.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	return nil
}
