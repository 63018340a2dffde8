package coordgit

import (
	"os/exec"
	"strings"
)

// FetchCoordinationBranch runs `git fetch origin <branch>` in repoRoot and
// classifies failures per spec.md §4.9.
func FetchCoordinationBranch(repoRoot, branch string) error {
	if !ValidBranchName(branch) {
		return newError(CommandFailed, "invalid branch name: "+branch)
	}
	cmd := exec.Command("git", "fetch", "origin", branch)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	stderr := strings.ToLower(string(out))
	switch {
	case strings.Contains(stderr, "couldn't find remote ref"), strings.Contains(stderr, "remote ref does not exist"):
		return newError(RemoteMissing, strings.TrimSpace(string(out)))
	case strings.Contains(stderr, "no such remote"):
		return newError(RemoteNotConfigured, strings.TrimSpace(string(out)))
	default:
		return newError(CommandFailed, strings.TrimSpace(string(out)))
	}
}

// PushCoordinationBranch pushes localRef to refs/heads/<branch> on origin
// and classifies failures per spec.md §4.9.
func PushCoordinationBranch(repoRoot, localRef, branch string) error {
	if !ValidBranchName(branch) {
		return newError(CommandFailed, "invalid branch name: "+branch)
	}
	refspec := localRef + ":refs/heads/" + branch
	cmd := exec.Command("git", "push", "origin", refspec)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	stderr := strings.ToLower(string(out))
	switch {
	case strings.Contains(stderr, "non-fast-forward"):
		return newError(NonFastForward, strings.TrimSpace(string(out)))
	case strings.Contains(stderr, "protected branch"):
		return newError(ProtectedBranch, strings.TrimSpace(string(out)))
	case strings.Contains(stderr, "[rejected]"), strings.Contains(stderr, "remote rejected"):
		return newError(RemoteRejected, strings.TrimSpace(string(out)))
	default:
		return newError(CommandFailed, strings.TrimSpace(string(out)))
	}
}
