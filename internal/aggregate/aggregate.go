// Package aggregate folds raw file-level search matches into
// per-repository records.
package aggregate

import (
	"sort"

	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

// Result is the aggregation output: one record per distinct repository
// plus diagnostics about how much duplicate data the provider returned.
type Result struct {
	Repos map[string]*survey.Repository
	// RawMatches is the total number of matches processed.
	RawMatches int
	// Duplicates is how many (repository, path) pairs were discarded as
	// already seen. Overlapping pages and repeated queries with and
	// without a language filter both produce these.
	Duplicates int
}

// Aggregate deduplicates matches on (repository, path) and folds them
// into repository records. MatchCount is the number of distinct matched
// paths; Languages accumulates every non-empty language value seen.
// Feeding the same match twice yields the same result as feeding it once.
func Aggregate(matches []survey.SearchMatch) *Result {
	res := &Result{
		Repos: make(map[string]*survey.Repository),
	}
	seen := make(map[string]struct{}, len(matches))
	languages := make(map[string]map[string]struct{})

	for _, m := range matches {
		res.RawMatches++
		if _, dup := seen[m.Key()]; dup {
			res.Duplicates++
			continue
		}
		seen[m.Key()] = struct{}{}

		repo, ok := res.Repos[m.RepoFullName]
		if !ok {
			org, name := survey.SplitFullName(m.RepoFullName)
			repo = &survey.Repository{
				FullName: m.RepoFullName,
				Org:      org,
				Name:     name,
				Stars:    m.Stars,
				CloneURL: m.CloneURL,
			}
			res.Repos[m.RepoFullName] = repo
			languages[m.RepoFullName] = make(map[string]struct{})
		}

		repo.MatchCount++
		if m.Language != "" {
			languages[m.RepoFullName][m.Language] = struct{}{}
		}
	}

	for fullName, repo := range res.Repos {
		repo.Languages = sortedKeys(languages[fullName])
	}
	return res
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
