package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weekTTL = 7 * 24 * time.Hour

func TestState_MissingMarkerIsStale(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "cache.marker"), weekTTL)
	assert.Equal(t, Stale, m.State(false))

	_, ok := m.Age()
	assert.False(t, ok)
}

func TestState_FreshWithinTTL(t *testing.T) {
	markerPath := filepath.Join(t.TempDir(), "cache.marker")
	m := NewManager(markerPath, weekTTL)
	require.NoError(t, m.Touch())

	// Simulate a run 100 seconds after the marker was written.
	t0, err := os.Stat(markerPath)
	require.NoError(t, err)
	m.now = func() time.Time { return t0.ModTime().Add(100 * time.Second) }

	assert.Equal(t, Fresh, m.State(false))

	age, ok := m.Age()
	require.True(t, ok)
	assert.Equal(t, 100*time.Second, age)
}

func TestState_StaleAfterTTL(t *testing.T) {
	markerPath := filepath.Join(t.TempDir(), "cache.marker")
	m := NewManager(markerPath, weekTTL)
	require.NoError(t, m.Touch())

	t0, err := os.Stat(markerPath)
	require.NoError(t, err)
	m.now = func() time.Time { return t0.ModTime().Add(weekTTL + time.Second) }

	assert.Equal(t, Stale, m.State(false))
}

func TestState_ForceRefreshAlwaysStale(t *testing.T) {
	markerPath := filepath.Join(t.TempDir(), "cache.marker")
	m := NewManager(markerPath, weekTTL)
	require.NoError(t, m.Touch())

	assert.Equal(t, Fresh, m.State(false))
	assert.Equal(t, Stale, m.State(true))
}

func TestTouch_RefreshesExistingMarker(t *testing.T) {
	markerPath := filepath.Join(t.TempDir(), "cache.marker")
	m := NewManager(markerPath, weekTTL)
	require.NoError(t, m.Touch())

	// Backdate the marker past the TTL, then touch again.
	old := time.Now().Add(-weekTTL - time.Hour)
	require.NoError(t, os.Chtimes(markerPath, old, old))
	assert.Equal(t, Stale, m.State(false))

	require.NoError(t, m.Touch())
	assert.Equal(t, Fresh, m.State(false))
}

func TestTouch_CreatesParentDirectory(t *testing.T) {
	markerPath := filepath.Join(t.TempDir(), "deep", "nested", "cache.marker")
	m := NewManager(markerPath, weekTTL)
	require.NoError(t, m.Touch())

	_, err := os.Stat(markerPath)
	assert.NoError(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "stale", Stale.String())
}
