// Package rank scores aggregated repositories and produces the bounded,
// deterministically ordered selection.
package rank

import (
	"errors"
	"fmt"
	"math"

	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

// ErrInsufficientResults is returned when fewer than survey.MinRepos
// distinct repositories matched the pattern. A sample that small says
// nothing useful, so the run stops before any acquisition.
var ErrInsufficientResults = errors.New("insufficient repositories matched the pattern")

// Weights parameterize the relevance score. The default combination is
// the contract: match density dominates raw popularity, which dominates
// language spread.
type Weights struct {
	Stars     float64
	Matches   float64
	Languages float64
}

// DefaultWeights returns the contractual scoring weights.
func DefaultWeights() Weights {
	return Weights{Stars: 1.0, Matches: 2.0, Languages: 0.5}
}

// maxLanguageBonus caps how much language diversity can contribute.
const maxLanguageBonus = 3

// Score computes the relevance score for one repository. It depends only
// on the repository's own fields, so identical inputs always score
// identically.
func (w Weights) Score(r *survey.Repository) float64 {
	bonus := len(r.Languages)
	if bonus > maxLanguageBonus {
		bonus = maxLanguageBonus
	}
	return w.Stars*math.Log10(float64(r.Stars)+1) +
		w.Matches*float64(r.MatchCount) +
		w.Languages*float64(bonus)
}

// Select scores every repository and returns the top maxRepos as a
// selection ordered by (score desc, stars desc, full name asc). The
// ordering is total: full names are unique per provider.
func Select(repos map[string]*survey.Repository, pattern string, maxRepos int, w Weights) (*survey.Selection, error) {
	if maxRepos < survey.MinRepos || maxRepos > survey.MaxReposLimit {
		return nil, fmt.Errorf("max repos must be between %d and %d, got %d", survey.MinRepos, survey.MaxReposLimit, maxRepos)
	}
	if len(repos) < survey.MinRepos {
		return nil, fmt.Errorf("%w: found %d distinct repositories, need at least %d",
			ErrInsufficientResults, len(repos), survey.MinRepos)
	}

	sel := &survey.Selection{
		Pattern:    pattern,
		ReposFound: len(repos),
		Repos:      make([]survey.Repository, 0, len(repos)),
	}
	for _, r := range repos {
		scored := *r
		scored.Score = w.Score(r)
		sel.Repos = append(sel.Repos, scored)
	}

	sel.Sort()
	if len(sel.Repos) > maxRepos {
		sel.Repos = sel.Repos[:maxRepos]
	}
	sel.ReposSelected = len(sel.Repos)
	return sel, nil
}
