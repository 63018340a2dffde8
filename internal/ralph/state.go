package ralph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesonstone/ito/internal/itopath"
)

// IterationOutcome classifies how one loop iteration ended.
type IterationOutcome string

const (
	OutcomePromise   IterationOutcome = "promise"
	OutcomeError     IterationOutcome = "error"
	OutcomeTimeout   IterationOutcome = "timeout"
	OutcomeNoChanges IterationOutcome = "no_changes"
	OutcomeValidFail IterationOutcome = "validation_failed"
)

// IterationRecord is one entry in a run's history.
type IterationRecord struct {
	Index        int              `json:"index"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      time.Time        `json:"ended_at"`
	Outcome      IterationOutcome `json:"outcome"`
	ExitCode     int              `json:"exit_code"`
	FilesChanged int              `json:"files_changed"`
	CommitSHA    string           `json:"commit_sha,omitempty"`
	Note         string           `json:"note,omitempty"`
}

// State is the persisted per-change Ralph loop state, stored at
// <ito_path>/.state/ralph/<change_id>/state.json so a run surviving a
// process restart picks up where it left off instead of starting the
// iteration counter and error streak over.
type State struct {
	ChangeID       string            `json:"change_id"`
	Iteration      int               `json:"iteration"`
	ConsecutiveErr int               `json:"consecutive_errors"`
	Completed      bool              `json:"completed"`
	UpdatedAt      time.Time         `json:"updated_at"`
	History        []IterationRecord `json:"history"`
}

// LoadState reads the persisted state for changeID, returning a fresh zero
// State (not an error) if none exists yet.
func LoadState(itoPath, changeID string) (*State, error) {
	path, err := itopath.RalphStatePath(itoPath, changeID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{ChangeID: changeID}, nil
	}
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save atomically persists s via a temp-file-then-rename, matching the
// write pattern tasks.Transition uses for status edits.
func (s *State) Save(itoPath string) error {
	path, err := itopath.RalphStatePath(itoPath, s.ChangeID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// AppendHistory records one iteration and advances the counters, resetting
// ConsecutiveErr whenever the iteration did not end in an error.
func (s *State) AppendHistory(rec IterationRecord) {
	s.History = append(s.History, rec)
	s.Iteration = rec.Index
	if rec.Outcome == OutcomeError {
		s.ConsecutiveErr++
	} else {
		s.ConsecutiveErr = 0
	}
}

// ReadContext returns the freeform context sidecar's contents, or "" if it
// doesn't exist yet.
func ReadContext(itoPath, changeID string) (string, error) {
	path, err := itopath.RalphContextPath(itoPath, changeID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteContext overwrites the context sidecar's contents.
func WriteContext(itoPath, changeID, content string) error {
	path, err := itopath.RalphContextPath(itoPath, changeID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// AppendContext adds a block to the existing context sidecar, separated by
// a blank line, implementing the loop's --add-context CLI option.
func AppendContext(itoPath, changeID, addition string) error {
	existing, err := ReadContext(itoPath, changeID)
	if err != nil {
		return err
	}
	if existing != "" {
		existing += "\n\n"
	}
	return WriteContext(itoPath, changeID, existing+addition)
}

// ClearContext empties the context sidecar, implementing --clear-context.
func ClearContext(itoPath, changeID string) error {
	return WriteContext(itoPath, changeID, "")
}
