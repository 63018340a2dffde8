package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jamesonstone/ito/internal/git"
)

// SessionID returns the persisted per-worktree session id at sessionPath,
// creating one if absent. The id is a UUID generated once per CLI process
// group and reused by every event that process (or a ralph/reconcile pass
// invoked from it) appends to the audit log.
func SessionID(sessionPath string) (string, error) {
	if raw, err := os.ReadFile(sessionPath); err == nil {
		id := trimNewline(raw)
		if id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := writeSessionFile(sessionPath, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	return id, nil
}

func trimNewline(raw []byte) string {
	for len(raw) > 0 && (raw[len(raw)-1] == '\n' || raw[len(raw)-1] == '\r') {
		raw = raw[:len(raw)-1]
	}
	return string(raw)
}

func writeSessionFile(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(id+"\n"), 0o644)
}

// harnessSessionEnvVar is the environment variable a coding-agent harness
// may set to correlate its own session id with the audit events Ito
// records around invoking it.
const harnessSessionEnvVar = "ITO_HARNESS_SESSION_ID"

// HarnessSessionIDFromEnv reads the current harness session id from the
// environment, or "" if the harness didn't set one.
func HarnessSessionIDFromEnv() string {
	return os.Getenv(harnessSessionEnvVar)
}

// BuildContext assembles a Context from the current git state of repoRoot.
// Missing git info (detached HEAD branch, no commits yet) is omitted rather
// than left as an empty string placeholder in the caller-visible sense:
// the zero value already serializes as "omitempty".
func BuildContext(repoRoot, sessionID, harnessSessionID string) Context {
	ctx := Context{SessionID: sessionID, HarnessSessionID: harnessSessionID}
	if !git.IsRepo(repoRoot) {
		return ctx
	}
	if branch, err := git.CurrentBranch(repoRoot); err == nil && branch != "HEAD" {
		ctx.Branch = branch
	}
	ctx.Worktree = git.WorktreeName(repoRoot)
	ctx.Commit = git.CurrentCommitShort(repoRoot)
	return ctx
}
