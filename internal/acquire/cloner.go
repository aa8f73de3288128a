// Package acquire realizes a repository selection as on-disk shallow
// clones using a bounded worker pool.
package acquire

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
)

// Cloner performs one repository checkout. Implementations must respect
// context cancellation so per-task timeouts can terminate a stuck clone.
type Cloner interface {
	Clone(ctx context.Context, url, targetPath string) error
}

// GitCloner clones over HTTPS with go-git: depth 1, single branch, no
// tags, which keeps transfer size near the minimum for a usable checkout.
type GitCloner struct{}

// NewGitCloner creates the default cloner.
func NewGitCloner() *GitCloner { return &GitCloner{} }

// Clone performs the shallow clone. A failed or canceled clone removes
// the partial checkout so a later run retries cleanly instead of
// mistaking debris for a cached result.
func (c *GitCloner) Clone(ctx context.Context, url, targetPath string) error {
	_, err := git.PlainCloneContext(ctx, targetPath, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		os.RemoveAll(targetPath)
		return fmt.Errorf("clone failed: %w", err)
	}
	return nil
}
