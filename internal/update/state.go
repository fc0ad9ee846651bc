package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aatumaykin/hostkeeper/internal/logger"
)

// StateFilename is the name of the persisted update state file inside the
// state directory. It lives apart from the config file so config edits never
// race the updater's writes.
const StateFilename = "update_state.json"

// State is the only record that outlives a run.
//
// Invariants:
//   - Version changes only after a successful hash-verified install.
//   - LastUpdateCheck is advanced the moment a check becomes due, before the
//     network call completes, so a permanently failing update source consumes
//     one interval per failure instead of being retried every run.
type State struct {
	LastUpdateCheck time.Time `json:"last_update_check"`
	Version         string    `json:"version"`
}

// StateStore persists State as a small JSON file.
type StateStore struct {
	path   string
	logger *logger.Logger
}

// NewStateStore creates a store writing to stateDir/update_state.json.
func NewStateStore(stateDir string, log *logger.Logger) *StateStore {
	return &StateStore{
		path:   filepath.Join(stateDir, StateFilename),
		logger: log,
	}
}

// Path returns the file the store reads and writes.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the persisted state. A missing or unparseable file yields the
// default state: epoch-zero last check and the given baseline version, so the
// first run always considers a check due.
func (s *StateStore) Load(baselineVersion string) State {
	defaultState := State{
		LastUpdateCheck: time.Unix(0, 0).UTC(),
		Version:         baselineVersion,
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return defaultState
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		if s.logger != nil {
			s.logger.Warn("update state file is corrupt, starting from defaults",
				logger.Field{Key: "path", Value: s.path},
				logger.Field{Key: "error", Value: err.Error()})
		}
		return defaultState
	}

	if state.Version == "" {
		state.Version = baselineVersion
	}
	if state.LastUpdateCheck.IsZero() {
		state.LastUpdateCheck = time.Unix(0, 0).UTC()
	}
	return state
}

// Save writes the state atomically: temp file in the same directory, then
// rename. An interrupted write leaves the previous state parseable.
func (s *StateStore) Save(state State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal update state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".update_state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
