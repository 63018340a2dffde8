package cli

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/jamesonstone/ito/internal/audit"
	"github.com/jamesonstone/ito/internal/change"
	"github.com/jamesonstone/ito/internal/config"
	"github.com/jamesonstone/ito/internal/itopath"
)

// findItoRoot locates the project root (the nearest ancestor of cwd
// containing an .ito store) and returns it alongside the .ito path itself.
func findItoRoot() (repoRoot, itoPath string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd, itopath.DirName)
	if err != nil {
		return "", "", fmt.Errorf("%w (run 'ito init' first)", err)
	}
	return root, filepath.Join(root, itopath.DirName), nil
}

// listChangeNames returns the active and archived change directory names
// under itoPath.
func listChangeNames(itoPath string) (active, archived []string, err error) {
	active, err = listDirNames(itopath.ChangesRoot(itoPath), "archive")
	if err != nil {
		return nil, nil, err
	}
	archived, err = listDirNames(itopath.ArchiveDir(itoPath), "")
	if err != nil {
		// no archive directory yet is fine
		archived = nil
	}
	return active, archived, nil
}

func listDirNames(dir, skip string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == skip {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// resolveChangeArg resolves a user-supplied fragment to exactly one
// canonical change id, reporting ambiguity and not-found errors the way
// every change-targeting subcommand needs to.
func resolveChangeArg(itoPath, input string, includeArchived bool) (string, error) {
	active, archived, err := listChangeNames(itoPath)
	if err != nil {
		return "", err
	}
	result := change.Resolve(active, archived, input, includeArchived)
	switch result.Kind {
	case change.Unique:
		return result.ID, nil
	case change.Ambiguous:
		return "", fmt.Errorf("%q is ambiguous: matches %v", input, result.Candidates)
	default:
		return "", fmt.Errorf("no change matches %q", input)
	}
}

// itoPathRelativeTo expresses itoPath relative to repoRoot, for callers that
// need to re-join it onto a different worktree's checkout path.
func itoPathRelativeTo(repoRoot, itoPath string) (string, error) {
	rel, err := filepath.Rel(repoRoot, itoPath)
	if err != nil {
		return "", fmt.Errorf("relativize .ito path: %w", err)
	}
	return rel, nil
}

// currentUser returns the OS username, falling back to "unknown" rather
// than failing commands that only use it for audit provenance.
func currentUser() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "unknown"
	}
	return u.Username
}

// newAuditBuilder assembles the audit.Builder every mutating command stamps
// its event with, resolving (and persisting, if absent) the process's
// session id.
func newAuditBuilder(repoRoot, itoPath string, actor audit.Actor) (audit.Builder, string, error) {
	sessionID, err := audit.SessionID(itopath.AuditSessionPath(itoPath))
	if err != nil {
		return audit.Builder{}, "", fmt.Errorf("resolve session id: %w", err)
	}
	ctx := audit.BuildContext(repoRoot, sessionID, "")
	builder := audit.NewBuilder(actor, currentUser(), ctx)
	return builder, itopath.AuditLogPath(itoPath), nil
}
