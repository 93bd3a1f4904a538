// Package history persists solve state on disk, one directory per solve.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lucasnoah/proofmill/internal/solve"
)

// Store manages solve state on disk.
type Store struct {
	baseDir string // defaults to ~/.proofmill/solves
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.proofmill/solves, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".proofmill", "solves")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) solveDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) statePath(id string) string {
	return filepath.Join(s.solveDir(id), "solve.json")
}

// Create initialises a new solve on disk.
func (s *Store) Create(st *solve.State) error {
	dir := s.solveDir(st.Problem.ID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("solve %s already exists", st.Problem.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := writeJSON(s.statePath(st.Problem.ID), st); err != nil {
		return fmt.Errorf("write solve.json: %w", err)
	}
	return nil
}

// Get reads the state for a solve.
func (s *Store) Get(id string) (*solve.State, error) {
	var st solve.State
	if err := readJSON(s.statePath(id), &st); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("solve %s not found", id)
		}
		return nil, err
	}
	return &st, nil
}

// Save writes the full state snapshot.
func (s *Store) Save(st *solve.State) error {
	return writeJSON(s.statePath(st.Problem.ID), st)
}

// Update performs an atomic read-modify-write of the solve state.
func (s *Store) Update(id string, fn func(*solve.State)) error {
	st, err := s.Get(id)
	if err != nil {
		return err
	}
	fn(st)
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return writeJSON(s.statePath(id), st)
}

// SaveFinal writes the integrated document as final.md next to the state.
func (s *Store) SaveFinal(id string, doc *solve.FinalDocument) error {
	return replaceFile(filepath.Join(s.solveDir(id), "final.md"), []byte(doc.Markdown))
}

// FinalPath returns the location of the final document for a solve.
func (s *Store) FinalPath(id string) string {
	return filepath.Join(s.solveDir(id), "final.md")
}

// List returns all solves, optionally filtered by status.
// Pass "" for statusFilter to return all solves.
func (s *Store) List(statusFilter string) ([]solve.State, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var states []solve.State
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		st, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || st.Status == statusFilter {
			states = append(states, *st)
		}
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].CreatedAt < states[j].CreatedAt
	})
	return states, nil
}

// Delete removes all data for a solve.
func (s *Store) Delete(id string) error {
	dir := s.solveDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("solve %s not found", id)
	}
	return os.RemoveAll(dir)
}
