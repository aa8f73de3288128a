package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternminer/internal/acquire"
	"github.com/fyrsmithlabs/patternminer/internal/config"
	"github.com/fyrsmithlabs/patternminer/internal/logging"
	"github.com/fyrsmithlabs/patternminer/internal/pipeline"
	"github.com/fyrsmithlabs/patternminer/internal/rank"
	"github.com/fyrsmithlabs/patternminer/internal/search"
	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

// newAcquireCmd builds the acquire subcommand, the main entry point of
// the pipeline.
func newAcquireCmd() *cobra.Command {
	var (
		configPath      string
		orgs            []string
		repos           int
		language        string
		refresh         bool
		skipSearch      bool
		skipAcquisition bool
		cacheTTL        time.Duration
		workspaceDir    string
		concurrency     int
		cloneTimeout    time.Duration
		logLevel        string
	)

	cmd := &cobra.Command{
		Use:   "acquire <pattern>",
		Short: "Search, rank, and shallow-clone repositories using a pattern",
		Long: `Search GitHub code search for a pattern across organizations, rank the
matching repositories by relevance, and shallow-clone the top-ranked ones.

Examples:
  # Survey usage of a type across the default organizations
  patternminer acquire ClusterOperator

  # Survey Go usage in specific organizations, keeping only the top 10 repos
  patternminer acquire ClusterOperator --orgs=openshift,operator-framework --repos=10 --language=go

  # Bypass the freshness cache and re-run the full pipeline
  patternminer acquire ClusterOperator --refresh

  # Re-drive acquisition from the persisted selection (no search calls)
  patternminer acquire ClusterOperator --skip-search

  # Search and rank only, skip cloning
  patternminer acquire ClusterOperator --skip-acquisition`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override config-file and env defaults.
			if !cmd.Flags().Changed("orgs") {
				orgs = cfg.Search.Orgs
			}
			if !cmd.Flags().Changed("repos") {
				repos = cfg.Acquire.Repos
			}
			if !cmd.Flags().Changed("cache-ttl") {
				cacheTTL = cfg.Cache.TTL.Duration()
			}
			if !cmd.Flags().Changed("workspace") {
				workspaceDir = cfg.Workspace
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Acquire.Concurrency
			}
			if !cmd.Flags().Changed("clone-timeout") {
				cloneTimeout = cfg.Acquire.CloneTimeout.Duration()
			}
			if !cmd.Flags().Changed("log-level") {
				logLevel = cfg.Logging.Level
			}

			log, err := logging.New(logLevel, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // stderr sync failures are unactionable

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			provider, err := search.NewGitHub(ctx, search.Options{
				Token:             cfg.GitHub.Token,
				BaseURL:           cfg.GitHub.BaseURL,
				PageSize:          cfg.Search.PageSize,
				RequestsPerSecond: cfg.Search.RequestsPerSecond,
				Logger:            log,
			})
			if err != nil {
				return err
			}

			rc := survey.RunContext{
				RunID:           uuid.NewString(),
				Pattern:         args[0],
				Orgs:            orgs,
				Language:        language,
				MaxRepos:        repos,
				MaxResults:      cfg.Search.MaxResults,
				Workspace:       workspaceDir,
				CacheTTL:        cacheTTL,
				ForceRefresh:    refresh,
				SkipSearch:      skipSearch,
				SkipAcquisition: skipAcquisition,
			}

			deps := pipeline.Deps{
				Provider: provider,
				Cloner:   acquire.NewGitCloner(),
				Logger:   log,
				Weights: rank.Weights{
					Stars:     cfg.Ranking.StarsWeight,
					Matches:   cfg.Ranking.MatchesWeight,
					Languages: cfg.Ranking.LanguagesWeight,
				},
				Concurrency:  concurrency,
				CloneTimeout: cloneTimeout,
			}

			code, err := pipeline.Run(ctx, deps, rc)
			if err != nil {
				log.Error("run failed",
					zap.String("run_id", rc.RunID),
					zap.Int("exit_code", int(code)),
					zap.Error(err))
				return &exitError{code: int(code), err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ~/.config/patternminer/config.yaml)")
	cmd.Flags().StringSliceVar(&orgs, "orgs", nil, "Organizations to search (default from config)")
	cmd.Flags().IntVar(&repos, "repos", 50, "Maximum repositories to select (3-50)")
	cmd.Flags().StringVar(&language, "language", "", "Restrict matches to one language")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the freshness cache and re-run the full pipeline")
	cmd.Flags().BoolVar(&skipSearch, "skip-search", false, "Reuse the persisted selection and go straight to acquisition")
	cmd.Flags().BoolVar(&skipAcquisition, "skip-acquisition", false, "Search and rank only, skip cloning")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 7*24*time.Hour, "Freshness window for cached results")
	cmd.Flags().StringVar(&workspaceDir, "workspace", "./workspace", "Workspace directory for artifacts and clones")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Maximum concurrent clone operations")
	cmd.Flags().DurationVar(&cloneTimeout, "clone-timeout", 120*time.Second, "Per-repository clone timeout")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}
