// package git provides git integration for Ito: current-branch lookup, worktree
// introspection for audit context, and the porcelain status/commit helpers
// the Ralph loop and coordination git integration build on.
package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// IsRepo checks if the given directory is inside a git repository.
func IsRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// CurrentBranch returns the name of the current git branch.
func CurrentBranch(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// StatusPorcelainCount returns the number of non-empty lines `git status
// --porcelain` reports in dir. Used by the Ralph loop to count file changes
// per iteration. A failing git invocation is non-fatal and counts as 0.
func StatusPorcelainCount(dir string) int {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return 0
	}
	count := 0
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// CurrentCommitShort returns the short hash of HEAD, or "" if it cannot be
// determined (e.g. an empty repository with no commits yet).
func CurrentCommitShort(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// GitDir returns the `.git`-relative common/private dir for dir, used to
// detect whether dir is a linked worktree rather than the main one: a
// linked worktree's `git rev-parse --git-dir` points inside
// `<main>/.git/worktrees/<name>` instead of directly at `<main>/.git`.
func GitDir(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git dir: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// WorktreeName returns the name of the linked worktree dir belongs to, or
// "" if dir is the main worktree (or worktree detection fails). Name is
// derived from the `.git/worktrees/<name>` path segment.
func WorktreeName(dir string) string {
	gitDir, err := GitDir(dir)
	if err != nil {
		return ""
	}
	marker := filepath.Join("worktrees")
	idx := strings.LastIndex(gitDir, string(filepath.Separator)+marker+string(filepath.Separator))
	if idx < 0 {
		return ""
	}
	rest := gitDir[idx+len(marker)+2:]
	return strings.SplitN(rest, string(filepath.Separator), 2)[0]
}

// IsInsideWorktree reports whether dir is inside any git worktree (main or
// linked).
func IsInsideWorktree(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// AddAll stages every change in dir (`git add -A`).
func AddAll(dir string) error {
	cmd := exec.Command("git", "add", "-A")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git add -A: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// Commit commits staged changes in dir with message. A "nothing to commit"
// exit is reported as an error so callers can treat it as non-fatal
// themselves (the Ralph loop does; coordination git reservation does not).
func Commit(dir, message string) error {
	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git commit: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// DiffCachedQuiet reports whether the index has no staged changes relative
// to HEAD (`git diff --cached --quiet`): true means nothing is staged.
func DiffCachedQuiet(dir string) (bool, error) {
	cmd := exec.Command("git", "diff", "--cached", "--quiet")
	cmd.Dir = dir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git diff --cached --quiet: %w", err)
}
