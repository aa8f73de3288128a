package acquire

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitCloner_FailureRemovesPartialCheckout(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doomed")
	c := NewGitCloner()

	err := c.Clone(context.Background(), filepath.Join(t.TempDir(), "no-such-repo"), target)
	require.Error(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "partial checkout must be removed so a rerun can retry")
}

func TestGitCloner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := filepath.Join(t.TempDir(), "canceled")
	err := NewGitCloner().Clone(ctx, "https://github.com/acme/api.git", target)
	require.Error(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}
