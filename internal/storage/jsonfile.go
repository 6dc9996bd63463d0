package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/state"
)

// JSONFileStore keeps the snapshot in a single JSON file, the same shape
// the export produces. It remembers which file it last read or wrote, so a
// Save over a file replaced by another process fails with ErrConflict.
type JSONFileStore struct {
	path string

	mu      sync.Mutex
	tracked bool
	seen    os.FileInfo // nil when the file did not exist
}

func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &JSONFileStore{path: path}, nil
}

func (s *JSONFileStore) Load(ctx context.Context) (*state.State, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.InfoContext(ctx, "State file not found, starting empty", "path", s.path)
		s.track(nil)
		return state.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat state file: %w", err)
	}
	st, err := state.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	s.track(info)
	return st, nil
}

func (s *JSONFileStore) track(info os.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = true
	s.seen = info
}

// checkUnchanged reports ErrConflict when the file on disk is not the one
// last read or written through this store.
func (s *JSONFileStore) checkUnchanged() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracked {
		return nil
	}

	current, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		current = nil
	} else if err != nil {
		return fmt.Errorf("stat state file: %w", err)
	}

	switch {
	case s.seen == nil && current == nil:
		return nil
	case s.seen == nil || current == nil:
		return ErrConflict
	case !os.SameFile(s.seen, current) || !s.seen.ModTime().Equal(current.ModTime()) || s.seen.Size() != current.Size():
		return ErrConflict
	}
	return nil
}

// Save writes to a temporary file in the same directory and renames it over
// the previous snapshot, so a crash never leaves a half-written file. It
// fails with ErrConflict when another writer replaced the file since the
// last Load or Save.
func (s *JSONFileStore) Save(ctx context.Context, st *state.State) error {
	if err := s.checkUnchanged(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	if err := st.Encode(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.track(info)
	}

	slog.DebugContext(ctx, "State saved", "path", s.path, "transactions", st.Expenses.Len())
	return nil
}

func (s *JSONFileStore) Close() error { return nil }
