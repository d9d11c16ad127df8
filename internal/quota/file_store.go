package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists gate state as a small JSON file. Writes go through a
// temp-file rename, so concurrent processes sharing the path converge on the
// last complete write rather than a torn one.
type FileStore struct {
	path string
}

// NewFileStore creates a store at the given path. Parent directories are
// created on first save.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("quota store path is required")
	}
	return &FileStore{path: filepath.Clean(path)}, nil
}

// Load reads the persisted state; a missing file is not an error.
func (s *FileStore) Load() (State, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read quota file: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("decode quota file: %w", err)
	}
	return state, true, nil
}

// Save atomically replaces the persisted state.
func (s *FileStore) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode quota state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create quota dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".quota-*")
	if err != nil {
		return fmt.Errorf("create quota temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write quota temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close quota temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace quota file: %w", err)
	}
	return nil
}
