package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesonstone/ito/internal/tasks"
)

// ComputeApplyStatus computes the apply-phase gate for a change: which
// artifacts block apply, the tracking file's parsed progress (if any), and
// the resulting state accordingly.
func ComputeApplyStatus(changeName, changeDir string, r Resolved) ApplyStatus {
	s := r.Schema
	apply := s.Apply

	allIDs := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		allIDs = append(allIDs, a.ID)
	}
	required := allIDs
	var tracksFile, schemaInstruction string
	if apply != nil {
		if apply.Requires != nil {
			required = apply.Requires
		}
		tracksFile = apply.Tracks
		schemaInstruction = apply.Instruction
	}

	var missing []string
	for _, id := range required {
		a, ok := s.ArtifactByID(id)
		if !ok {
			continue
		}
		if !ArtifactDone(changeDir, a.Generates) {
			missing = append(missing, id)
		}
	}

	contextFiles := map[string]string{}
	for _, a := range s.Artifacts {
		if ArtifactDone(changeDir, a.Generates) {
			contextFiles[a.ID] = filepath.Join(changeDir, a.Generates)
		}
	}

	status := ApplyStatus{
		ChangeName:   changeName,
		SchemaName:   s.Name,
		ContextFiles: contextFiles,
	}
	if tracksFile != "" {
		status.TracksFile = tracksFile
		status.TracksPath = filepath.Join(changeDir, tracksFile)
	}

	var tracksExists bool
	var progress tasks.Progress
	var result tasks.ParseResult
	if tracksFile != "" {
		if raw, err := os.ReadFile(status.TracksPath); err == nil {
			tracksExists = true
			result = tasks.Parse(string(raw))
			status.TracksFormat = result.Format.String()
			progress = result.Progress
		}
	}
	status.Progress = ProgressInfo{
		Total:     progress.Total,
		Complete:  progress.Complete,
		Remaining: progress.Remaining,
	}
	if status.TracksFormat != "" {
		ip, p := progress.InProgress, progress.Pending
		status.Progress.InProgress = &ip
		status.Progress.Pending = &p
	}

	tracksFilename := tracksFile
	if tracksFilename == "" {
		tracksFilename = "tasks.md"
	} else {
		tracksFilename = filepath.Base(tracksFilename)
	}

	switch {
	case len(missing) > 0:
		status.State = "blocked"
		status.MissingArtifacts = missing
		status.Instruction = fmt.Sprintf(
			"cannot apply this change yet: missing artifacts %v. create them first.", missing)
	case tracksFile != "" && !tracksExists:
		status.State = "blocked"
		status.Instruction = fmt.Sprintf("%s is missing and must be created.", tracksFilename)
	case tracksFile != "" && tracksExists && progress.Total == 0:
		status.State = "blocked"
		status.Instruction = fmt.Sprintf("%s exists but contains no tasks.", tracksFilename)
	case tracksFile != "" && progress.Remaining == 0 && progress.Total > 0:
		status.State = "all_done"
		status.Instruction = "all tasks are complete; this change is ready to be archived."
	case tracksFile == "":
		status.State = "ready"
		status.Instruction = firstNonEmpty(schemaInstruction, "all required artifacts complete; proceed with implementation.")
	default:
		status.State = "ready"
		status.Instruction = firstNonEmpty(schemaInstruction,
			"read context files, work through pending tasks, mark complete as you go.")
	}

	return status
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
