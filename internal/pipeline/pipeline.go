// Package pipeline wires search, aggregation, ranking, caching, and
// acquisition into one run and maps failures to exit codes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternminer/internal/acquire"
	"github.com/fyrsmithlabs/patternminer/internal/aggregate"
	"github.com/fyrsmithlabs/patternminer/internal/cache"
	"github.com/fyrsmithlabs/patternminer/internal/rank"
	"github.com/fyrsmithlabs/patternminer/internal/search"
	"github.com/fyrsmithlabs/patternminer/internal/survey"
	"github.com/fyrsmithlabs/patternminer/internal/workspace"
)

// ExitCode is the process exit status for a run.
type ExitCode int

const (
	// ExitOK covers success, cache-hit short-circuits, and partial clone
	// failures where enough repositories were still acquired.
	ExitOK ExitCode = 0
	// ExitSearchFailed covers configuration errors, search provider
	// failures, and insufficient search results.
	ExitSearchFailed ExitCode = 1
	// ExitAcquireFailed means fewer than the minimum viable number of
	// repositories were acquired. Artifacts are still persisted.
	ExitAcquireFailed ExitCode = 2
)

// Deps are the pipeline's collaborators.
type Deps struct {
	Provider search.Provider
	Cloner   acquire.Cloner
	Logger   *zap.Logger

	Weights      rank.Weights
	Concurrency  int
	CloneTimeout time.Duration
}

// Run executes the pipeline for one run context.
//
// Control flow: validate, cache gate, search, aggregate, rank, acquire,
// persist, refresh marker. A fresh cache short-circuits before any
// network call.
func Run(ctx context.Context, deps Deps, rc survey.RunContext) (ExitCode, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := rc.Validate(); err != nil {
		return ExitSearchFailed, fmt.Errorf("invalid run configuration: %w", err)
	}

	layout := workspace.NewLayout(rc.Workspace, rc.Pattern)
	writer := workspace.NewWriter(layout)
	marker := cache.NewManager(layout.MarkerPath(), rc.CacheTTL)

	// --skip-search is an explicit re-drive of acquisition, so the
	// freshness gate only applies to ordinary runs.
	if !rc.SkipSearch && marker.State(rc.ForceRefresh) == cache.Fresh {
		age, _ := marker.Age()
		clones := layout.CountClones()
		log.Info("cache is fresh, reusing previous results",
			zap.String("pattern", rc.Pattern),
			zap.Duration("age", age),
			zap.Duration("ttl", rc.CacheTTL),
			zap.Int("clones_on_disk", clones))
		if sel, err := writer.ReadSelection(); err == nil {
			log.Info("cached selection",
				zap.Int("repos_found", sel.ReposFound),
				zap.Int("repos_selected", sel.ReposSelected))
		}
		return ExitOK, nil
	}

	if err := layout.Ensure(); err != nil {
		return ExitSearchFailed, fmt.Errorf("workspace setup failed: %w", err)
	}

	sel, err := selectRepositories(ctx, deps, rc, writer, log)
	if err != nil {
		return ExitSearchFailed, err
	}

	if err := writer.WriteSelection(sel); err != nil {
		return ExitSearchFailed, fmt.Errorf("failed to persist selection: %w", err)
	}
	log.Info("selection persisted",
		zap.Int("repos_found", sel.ReposFound),
		zap.Int("repos_selected", sel.ReposSelected),
		zap.String("path", layout.SelectionPath()))

	if rc.SkipAcquisition {
		log.Info("acquisition skipped by request")
		return ExitOK, nil
	}

	summary, err := acquireSelection(ctx, deps, rc, sel, layout, writer, log)
	if err != nil {
		return ExitAcquireFailed, err
	}
	log.Info("acquisition complete",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("cached", summary.Cached),
		zap.Int("failed", summary.Failed))

	if !summary.Viable() {
		return ExitAcquireFailed, fmt.Errorf(
			"acquire stage failed: only %d of %d repositories acquired, need at least %d",
			summary.Acquired(), len(sel.Repos), survey.MinRepos)
	}

	if err := marker.Touch(); err != nil {
		log.Warn("failed to refresh cache marker", zap.Error(err))
	}
	return ExitOK, nil
}

// selectRepositories produces the ranked selection, either by running
// search and aggregation or by reusing the persisted selection.
func selectRepositories(ctx context.Context, deps Deps, rc survey.RunContext, writer *workspace.Writer, log *zap.Logger) (*survey.Selection, error) {
	if rc.SkipSearch {
		sel, err := writer.ReadSelection()
		if err != nil {
			return nil, fmt.Errorf("search stage failed: no reusable selection: %w", err)
		}
		log.Info("reusing persisted selection",
			zap.Int("repos_selected", sel.ReposSelected))
		return sel, nil
	}

	matches, err := deps.Provider.Search(ctx, search.Query{
		Pattern:    rc.Pattern,
		Orgs:       rc.Orgs,
		Language:   rc.Language,
		MaxResults: rc.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("search stage failed: %w", err)
	}

	agg := aggregate.Aggregate(matches)
	log.Info("matches aggregated",
		zap.Int("raw_matches", agg.RawMatches),
		zap.Int("duplicates_discarded", agg.Duplicates),
		zap.Int("distinct_repositories", len(agg.Repos)))

	sel, err := rank.Select(agg.Repos, rc.Pattern, rc.MaxRepos, deps.Weights)
	if err != nil {
		return nil, fmt.Errorf("rank stage failed: %w", err)
	}
	return sel, nil
}

// acquireSelection clones the selection and persists the ledger and
// failure manifest. Persistence happens even when too few repositories
// were acquired, so callers can inspect partial results.
func acquireSelection(ctx context.Context, deps Deps, rc survey.RunContext, sel *survey.Selection, layout *workspace.Layout, writer *workspace.Writer, log *zap.Logger) (acquire.Summary, error) {
	tasks := BuildTasks(sel, layout)

	scheduler := acquire.NewScheduler(deps.Cloner, acquire.Options{
		Concurrency: deps.Concurrency,
		TaskTimeout: deps.CloneTimeout,
		Logger:      log,
	})

	started := time.Now().UTC()
	outcomes := scheduler.Run(ctx, tasks)
	ledger := &survey.Ledger{
		RunID:      rc.RunID,
		Pattern:    rc.Pattern,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Outcomes:   outcomes,
	}

	var failures []workspace.Failure
	for _, o := range outcomes {
		if o.Status == survey.StatusFailed {
			failures = append(failures, workspace.Failure{
				Repository: o.RepoFullName,
				Reason:     o.Error,
			})
			log.Warn("repository not acquired",
				zap.String("repository", o.RepoFullName),
				zap.String("reason", o.Error))
		}
	}

	if err := writer.WriteLedger(ledger); err != nil {
		return acquire.Summary{}, fmt.Errorf("failed to persist ledger: %w", err)
	}
	if err := writer.WriteFailures(failures); err != nil {
		return acquire.Summary{}, fmt.Errorf("failed to persist failure manifest: %w", err)
	}

	return acquire.Summarize(outcomes), nil
}

// BuildTasks maps the selection onto deterministic clone targets. Targets
// use the repository short name; when two selected repositories share a
// name, later ones fall back to org--name to keep targets unique.
func BuildTasks(sel *survey.Selection, layout *workspace.Layout) []survey.CloneTask {
	tasks := make([]survey.CloneTask, 0, len(sel.Repos))
	claimed := make(map[string]string, len(sel.Repos))

	for _, repo := range sel.Repos {
		short := repo.Name
		if owner, ok := claimed[short]; ok && owner != repo.FullName {
			short = repo.Org + "--" + repo.Name
		}
		claimed[short] = repo.FullName

		tasks = append(tasks, survey.CloneTask{
			RepoFullName: repo.FullName,
			CloneURL:     repo.CloneURL,
			TargetPath:   layout.RepoPath(short),
		})
	}
	return tasks
}
