package acquire

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

// Options configures the acquisition scheduler.
type Options struct {
	// Concurrency is the hard upper bound on simultaneous clones.
	// Default: 8, and never more than the number of tasks.
	Concurrency int
	// TaskTimeout forcibly terminates a single clone. Default: 120s.
	TaskTimeout time.Duration
	Logger      *zap.Logger
}

// Scheduler drives clone tasks through a fixed-size worker pool. Each
// task yields exactly one outcome; failures are isolated per task and
// never abort siblings.
type Scheduler struct {
	cloner      Cloner
	concurrency int
	taskTimeout time.Duration
	log         *zap.Logger
}

// NewScheduler creates a scheduler around the given cloner.
func NewScheduler(cloner Cloner, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 120 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		cloner:      cloner,
		concurrency: opts.Concurrency,
		taskTimeout: opts.TaskTimeout,
		log:         opts.Logger.Named("acquire"),
	}
}

// Run executes every task and returns one outcome per task. Re-running
// against the same targets is idempotent: existing non-empty checkouts
// are reported as cached without touching the network. If ctx expires,
// tasks that have not started are reported failed rather than left
// hanging.
func (s *Scheduler) Run(ctx context.Context, tasks []survey.CloneTask) []survey.CloneOutcome {
	if len(tasks) == 0 {
		return nil
	}

	workers := s.concurrency
	if len(tasks) < workers {
		workers = len(tasks)
	}

	results := make(chan survey.CloneOutcome, len(tasks))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, task := range tasks {
		// Cached checkouts are resolved synchronously: no network, no
		// reason to occupy a worker slot.
		if hasCheckout(task.TargetPath) {
			s.log.Debug("checkout already present",
				zap.String("repository", task.RepoFullName),
				zap.String("path", task.TargetPath))
			results <- survey.CloneOutcome{
				RepoFullName: task.RepoFullName,
				Status:       survey.StatusCached,
			}
			continue
		}

		wg.Add(1)
		go func(t survey.CloneTask) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- survey.CloneOutcome{
					RepoFullName: t.RepoFullName,
					Status:       survey.StatusFailed,
					Error:        "run deadline reached before clone started",
				}
				return
			}

			results <- s.cloneOne(ctx, t)
		}(task)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single consumer: workers never touch the shared ledger directly.
	outcomes := make([]survey.CloneOutcome, 0, len(tasks))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// cloneOne runs a single clone under the per-task timeout.
func (s *Scheduler) cloneOne(ctx context.Context, t survey.CloneTask) survey.CloneOutcome {
	taskCtx, cancel := context.WithTimeout(ctx, s.taskTimeout)
	defer cancel()

	start := time.Now()
	s.log.Info("cloning", zap.String("repository", t.RepoFullName))

	err := s.cloner.Clone(taskCtx, t.CloneURL, t.TargetPath)
	if err == nil {
		s.log.Info("clone complete",
			zap.String("repository", t.RepoFullName),
			zap.Duration("elapsed", time.Since(start)))
		return survey.CloneOutcome{
			RepoFullName: t.RepoFullName,
			Status:       survey.StatusSuccess,
		}
	}

	reason := err.Error()
	if ctx.Err() != nil {
		reason = "run deadline reached during clone"
	} else if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		reason = "clone timed out after " + s.taskTimeout.String()
	}
	s.log.Warn("clone failed",
		zap.String("repository", t.RepoFullName),
		zap.String("reason", reason))
	return survey.CloneOutcome{
		RepoFullName: t.RepoFullName,
		Status:       survey.StatusFailed,
		Error:        reason,
	}
}

// hasCheckout reports whether targetPath already holds a non-empty
// directory.
func hasCheckout(targetPath string) bool {
	entries, err := os.ReadDir(targetPath)
	return err == nil && len(entries) > 0
}

// Summary tallies the outcomes of one acquisition run.
type Summary struct {
	Succeeded int
	Cached    int
	Failed    int
}

// Summarize counts outcomes by status.
func Summarize(outcomes []survey.CloneOutcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case survey.StatusSuccess:
			s.Succeeded++
		case survey.StatusCached:
			s.Cached++
		case survey.StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Acquired is the number of usable checkouts: fresh clones plus cached
// ones.
func (s Summary) Acquired() int { return s.Succeeded + s.Cached }

// Viable reports whether enough repositories were acquired to make the
// survey statistically meaningful.
func (s Summary) Viable() bool { return s.Acquired() >= survey.MinRepos }
