package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/patternminer/internal/config"
	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

// RetryConfig configures retry behavior for transient search API
// failures. Auth and rate-limit responses are never retried.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the first failure.
	// Default: 2
	MaxRetries int
	// InitialBackoff is the initial backoff duration. Default: 500ms
	InitialBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2
	BackoffMultiplier float64
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2.0
	}
}

// Options configures the GitHub search provider.
type Options struct {
	// Token authenticates API requests. Optional, but unauthenticated
	// code search is rate-limited to near uselessness.
	Token config.Secret
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string
	// PageSize is the per-page result count, capped at 100 by the API.
	PageSize int
	// RequestsPerSecond paces outbound API calls.
	RequestsPerSecond float64
	Retry             RetryConfig
	Logger            *zap.Logger
}

// GitHub implements Provider on top of the GitHub code-search API.
type GitHub struct {
	client   *github.Client
	limiter  *rate.Limiter
	pageSize int
	retry    RetryConfig
	log      *zap.Logger
}

// NewGitHub creates a GitHub search provider with token authentication.
func NewGitHub(ctx context.Context, opts Options) (*GitHub, error) {
	httpClient := http.DefaultClient
	if opts.Token.IsSet() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token.Value()})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	if opts.PageSize <= 0 || opts.PageSize > 100 {
		opts.PageSize = 100
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	opts.Retry.ApplyDefaults()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &GitHub{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		pageSize: opts.PageSize,
		retry:    opts.Retry,
		log:      opts.Logger.Named("search"),
	}, nil
}

// Search pages through the code-search API until the result set is
// exhausted or q.MaxResults matches have been collected, then hydrates
// repository metadata (stars, clone URL) for every distinct repository.
// Code-search responses embed only a minimal repository object, so the
// hydration pass is what makes star counts trustworthy.
func (g *GitHub) Search(ctx context.Context, q Query) ([]survey.SearchMatch, error) {
	query := buildQuery(q)
	g.log.Debug("starting code search", zap.String("query", query), zap.Int("max_results", q.MaxResults))

	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}

	var matches []survey.SearchMatch
	page := 1
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("search canceled: %w", err)
		}

		var result *github.CodeSearchResult
		resp, err := g.doWithRetry(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var opErr error
			result, resp, opErr = g.client.Search.Code(ctx, query, opts)
			return resp, opErr
		})
		if err != nil {
			return nil, err
		}

		for _, cr := range result.CodeResults {
			repo := cr.GetRepository()
			if repo.GetFullName() == "" || cr.GetPath() == "" {
				continue
			}
			matches = append(matches, survey.SearchMatch{
				RepoFullName: repo.GetFullName(),
				Path:         cr.GetPath(),
				Language:     repo.GetLanguage(),
				Stars:        repo.GetStargazersCount(),
				CloneURL:     repo.GetCloneURL(),
			})
			if len(matches) >= q.MaxResults {
				break
			}
		}

		g.log.Debug("fetched search page",
			zap.Int("page", page),
			zap.Int("page_results", len(result.CodeResults)),
			zap.Int("cumulative", len(matches)))

		if len(matches) >= q.MaxResults || resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		page++
	}

	if err := g.hydrate(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// hydrate fills in stars, clone URL, and language for each distinct
// repository seen in the matches.
func (g *GitHub) hydrate(ctx context.Context, matches []survey.SearchMatch) error {
	type meta struct {
		stars    int
		cloneURL string
		language string
	}
	seen := make(map[string]*meta)

	for i := range matches {
		fullName := matches[i].RepoFullName
		m, ok := seen[fullName]
		if !ok {
			org, name := survey.SplitFullName(fullName)
			if err := g.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("search canceled: %w", err)
			}
			var repo *github.Repository
			_, err := g.doWithRetry(ctx, func() (*github.Response, error) {
				var resp *github.Response
				var opErr error
				repo, resp, opErr = g.client.Repositories.Get(ctx, org, name)
				return resp, opErr
			})
			if err != nil {
				return fmt.Errorf("failed to fetch metadata for %s: %w", fullName, err)
			}
			m = &meta{
				stars:    repo.GetStargazersCount(),
				cloneURL: repo.GetCloneURL(),
				language: repo.GetLanguage(),
			}
			if m.cloneURL == "" {
				m.cloneURL = "https://github.com/" + fullName + ".git"
			}
			seen[fullName] = m
		}
		matches[i].Stars = m.stars
		matches[i].CloneURL = m.cloneURL
		if matches[i].Language == "" {
			matches[i].Language = m.language
		}
	}
	return nil
}

// buildQuery assembles the code-search query string: the pattern as an
// exact phrase plus org (and optional language) qualifiers.
func buildQuery(q Query) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%q", q.Pattern))
	for _, org := range q.Orgs {
		sb.WriteString(" org:")
		sb.WriteString(org)
	}
	if q.Language != "" {
		sb.WriteString(" language:")
		sb.WriteString(q.Language)
	}
	return sb.String()
}

// doWithRetry runs one API operation, retrying transient failures with
// exponential backoff. Auth and rate-limit responses (401/403/429) abort
// immediately with AuthOrRateLimitError; anything else that keeps failing
// surfaces as TransientError.
func (g *GitHub) doWithRetry(ctx context.Context, op func() (*github.Response, error)) (*github.Response, error) {
	backoff := g.retry.InitialBackoff
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		resp, err := op()
		if err == nil {
			if attempt > 0 {
				g.log.Info("search API recovered after retries", zap.Int("attempts", attempt+1))
			}
			return resp, nil
		}

		status := statusCode(resp)
		if isAuthOrRateLimit(err, status) {
			return resp, &AuthOrRateLimitError{StatusCode: status, Err: err}
		}

		lastErr = err
		lastStatus = status
		if attempt == g.retry.MaxRetries {
			break
		}

		g.log.Warn("transient search API failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("status_code", status),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("search canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * g.retry.BackoffMultiplier)
		}
	}

	return nil, &TransientError{StatusCode: lastStatus, Attempts: g.retry.MaxRetries + 1, Err: lastErr}
}

// isAuthOrRateLimit reports whether the failure must not be retried.
func isAuthOrRateLimit(err error, status int) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// statusCode safely extracts the HTTP status code from a response.
func statusCode(resp *github.Response) int {
	if resp != nil && resp.Response != nil {
		return resp.Response.StatusCode
	}
	return 0
}
