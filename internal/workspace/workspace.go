// Package workspace owns the on-disk layout of a pattern survey and the
// atomic persistence of its artifacts.
//
// Per-pattern layout:
//
//	<root>/<pattern-slug>/
//	  selection.json   ranked repository selection
//	  ledger.json      all clone outcomes for the last run
//	  failures.json    failed clones, present only when non-empty
//	  cache.marker     mtime anchors cache freshness
//	  repos/<name>/    shallow clones
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/patternminer/internal/survey"
)

const (
	selectionFile = "selection.json"
	ledgerFile    = "ledger.json"
	failuresFile  = "failures.json"
	markerFile    = "cache.marker"
	reposDir      = "repos"
)

// Failure is one entry in the failure manifest. It lets callers
// distinguish "no match" from "network or permission failure".
type Failure struct {
	Repository string `json:"repository"`
	Reason     string `json:"reason"`
}

// Layout resolves every artifact path for one (root, pattern) pair.
type Layout struct {
	root    string
	pattern string
}

// NewLayout creates the layout for a pattern under the workspace root.
func NewLayout(root, pattern string) *Layout {
	return &Layout{root: root, pattern: pattern}
}

// Dir returns the per-pattern directory.
func (l *Layout) Dir() string { return filepath.Join(l.root, Slug(l.pattern)) }

// SelectionPath returns the selection artifact path.
func (l *Layout) SelectionPath() string { return filepath.Join(l.Dir(), selectionFile) }

// LedgerPath returns the acquisition ledger path.
func (l *Layout) LedgerPath() string { return filepath.Join(l.Dir(), ledgerFile) }

// FailuresPath returns the failure manifest path.
func (l *Layout) FailuresPath() string { return filepath.Join(l.Dir(), failuresFile) }

// MarkerPath returns the cache marker path.
func (l *Layout) MarkerPath() string { return filepath.Join(l.Dir(), markerFile) }

// ReposDir returns the directory holding the shallow clones.
func (l *Layout) ReposDir() string { return filepath.Join(l.Dir(), reposDir) }

// RepoPath returns the clone target for a repository short name. Targets
// are partitioned per repository, so no two clone workers ever share a
// filesystem path.
func (l *Layout) RepoPath(shortName string) string {
	return filepath.Join(l.ReposDir(), Slug(shortName))
}

// Ensure creates the per-pattern directory tree.
func (l *Layout) Ensure() error {
	if err := os.MkdirAll(l.ReposDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return nil
}

// CountClones counts non-empty clone directories currently on disk.
func (l *Layout) CountClones() int {
	entries, err := os.ReadDir(l.ReposDir())
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(l.ReposDir(), e.Name()))
		if err == nil && len(sub) > 0 {
			count++
		}
	}
	return count
}

// Slug makes a pattern or repository name safe to use as a directory
// name. Anything outside [A-Za-z0-9._-] becomes '-'.
func Slug(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	out := strings.Trim(sb.String(), "-.")
	if out == "" {
		out = "pattern"
	}
	return out
}

// Writer persists run artifacts. Every write goes to a temp file in the
// destination directory followed by a rename, so concurrent readers never
// observe a partially written artifact.
type Writer struct {
	layout *Layout
}

// NewWriter creates a writer for the given layout.
func NewWriter(layout *Layout) *Writer {
	return &Writer{layout: layout}
}

// WriteSelection persists the ranked selection in canonical order.
func (w *Writer) WriteSelection(sel *survey.Selection) error {
	sel.Sort()
	return writeJSON(w.layout.SelectionPath(), sel)
}

// ReadSelection loads a previously persisted selection.
func (w *Writer) ReadSelection() (*survey.Selection, error) {
	data, err := os.ReadFile(w.layout.SelectionPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	var sel survey.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("failed to parse selection: %w", err)
	}
	return &sel, nil
}

// WriteLedger persists the acquisition ledger.
func (w *Writer) WriteLedger(ledger *survey.Ledger) error {
	return writeJSON(w.layout.LedgerPath(), ledger)
}

// WriteFailures persists the failure manifest, or removes a stale one
// when the run had no failures.
func (w *Writer) WriteFailures(failures []Failure) error {
	if len(failures) == 0 {
		if err := os.Remove(w.layout.FailuresPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale failure manifest: %w", err)
		}
		return nil
	}
	return writeJSON(w.layout.FailuresPath(), failures)
}

// writeJSON writes v as indented JSON via temp-file-then-rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
	}
	return nil
}
