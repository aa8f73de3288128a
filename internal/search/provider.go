// Package search defines the code-search provider contract and its
// GitHub-backed implementation.
package search

import (
	"context"

	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

// Query describes one code search across a set of organizations.
type Query struct {
	// Pattern is the code construct being surveyed, e.g. a type or API
	// name. Searched as an exact phrase.
	Pattern string
	// Orgs limits the search to these organizations.
	Orgs []string
	// Language optionally restricts matches to a single language.
	Language string
	// MaxResults caps the cumulative number of file matches fetched
	// across all pages.
	MaxResults int
}

// Provider is the code-search collaborator. Implementations page through
// the remote API internally and return the raw file-level matches;
// deduplication and aggregation happen downstream.
type Provider interface {
	Search(ctx context.Context, q Query) ([]survey.SearchMatch, error)
}
