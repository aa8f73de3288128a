// Package cache gates pipeline re-execution on the age of a per-pattern
// freshness marker.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the freshness decision for a run.
type State int

const (
	// Stale means the full pipeline must run.
	Stale State = iota
	// Fresh means a prior run's results are recent enough to reuse.
	Fresh
)

func (s State) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// Manager decides freshness from the marker file's modification time.
// The marker is rewritten only after a fully successful run, so a fresh
// marker always vouches for complete artifacts.
type Manager struct {
	markerPath string
	ttl        time.Duration

	now func() time.Time
}

// NewManager creates a manager for one pattern's marker file.
func NewManager(markerPath string, ttl time.Duration) *Manager {
	return &Manager{
		markerPath: markerPath,
		ttl:        ttl,
		now:        time.Now,
	}
}

// State reads the marker and returns the freshness decision. A missing
// marker, an expired marker, or forceRefresh all yield Stale.
func (m *Manager) State(forceRefresh bool) State {
	if forceRefresh {
		return Stale
	}
	info, err := os.Stat(m.markerPath)
	if err != nil {
		return Stale
	}
	if m.now().Sub(info.ModTime()) < m.ttl {
		return Fresh
	}
	return Stale
}

// Age returns how old the marker is, or false if it does not exist.
func (m *Manager) Age() (time.Duration, bool) {
	info, err := os.Stat(m.markerPath)
	if err != nil {
		return 0, false
	}
	return m.now().Sub(info.ModTime()), true
}

// Touch rewrites the marker, anchoring freshness at the current time.
func (m *Manager) Touch() error {
	if err := os.MkdirAll(filepath.Dir(m.markerPath), 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	stamp := m.now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(m.markerPath, []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("failed to write cache marker: %w", err)
	}
	return nil
}
