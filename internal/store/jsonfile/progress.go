package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/colonyops/relabel/internal/core/logging"
	"github.com/colonyops/relabel/internal/core/progress"
)

// ProgressFileName is the file written inside the output directory.
const ProgressFileName = "progress.json"

// ProgressStore implements progress.Store using a JSON file for persistence.
// Every save overwrites the whole file.
type ProgressStore struct {
	path string
	mu   sync.RWMutex
}

var _ progress.Store = (*ProgressStore)(nil)

// NewProgressStore creates a new JSON file progress store at the given path.
func NewProgressStore(path string) *ProgressStore {
	return &ProgressStore{path: path}
}

// Path returns the backing file path.
func (s *ProgressStore) Path() string { return s.path }

// Load returns the stored state. A missing, empty or unparsable file reports
// found=false; only read errors are returned.
func (s *ProgressStore) Load(ctx context.Context) (progress.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return progress.State{}, false, nil
		}
		return progress.State{}, false, err
	}

	if len(data) == 0 {
		return progress.State{}, false, nil
	}

	var state progress.State
	if err := json.Unmarshal(data, &state); err != nil {
		log := logging.Component("progress")
		log.Warn().Ctx(ctx).Err(err).Str("path", s.path).Msg("ignoring unreadable progress file")
		return progress.State{}, false, nil
	}

	if state.Counters == nil {
		state.Counters = map[string]int{}
	}

	return state, true, nil
}

// Save writes the state to disk atomically.
func (s *ProgressStore) Save(ctx context.Context, state progress.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
