package coordgit

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jamesonstone/ito/internal/git"
	"github.com/jamesonstone/ito/internal/itopath"
)

// ReserveChange implements spec.md §4.9's
// reserve_change_on_coordination_branch: it atomically publishes the
// on-disk contents of a change directory onto the coordination branch via a
// disposable detached worktree, so two contributors creating the same
// change id race safely at the git layer instead of the filesystem layer.
//
// It is a silent no-op if repoRoot is not inside a git worktree at all
// (e.g. a plain directory during tests).
func ReserveChange(repoRoot, itoPath, changeID, branch string) error {
	if !git.IsInsideWorktree(repoRoot) {
		return nil
	}
	if !ValidBranchName(branch) {
		return newError(CommandFailed, "invalid branch name: "+branch)
	}
	if !itopath.IsSafeSegment(changeID) {
		return fmt.Errorf("invalid change id: %q", changeID)
	}
	sourceDir, err := itopath.ChangeDir(itoPath, changeID)
	if err != nil {
		return err
	}

	worktreePath := filepath.Join(os.TempDir(), "ito-worktrees", uuid.NewString())
	if err := addWorktree(repoRoot, worktreePath); err != nil {
		return fmt.Errorf("create ephemeral worktree: %w", err)
	}
	defer removeWorktree(repoRoot, worktreePath)

	fetchErr := FetchCoordinationBranch(repoRoot, branch)
	if fetchErr != nil {
		var cgErr *Error
		if !asCoordError(fetchErr, &cgErr) || cgErr.Kind != RemoteMissing {
			return fmt.Errorf("fetch coordination branch: %w", fetchErr)
		}
		// RemoteMissing: proceed from the ephemeral worktree's current
		// detached HEAD, which is whatever commit it branched from.
	} else {
		if err := checkoutDetached(worktreePath, "origin/"+branch); err != nil {
			return fmt.Errorf("checkout origin/%s: %w", branch, err)
		}
	}

	targetDir := filepath.Join(worktreePath, itopath.DirName, "changes", changeID)
	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("clear existing reservation target: %w", err)
	}
	if err := copyTree(sourceDir, targetDir); err != nil {
		return fmt.Errorf("copy change directory: %w", err)
	}

	relTarget := filepath.Join(itopath.DirName, "changes", changeID)
	if err := gitAdd(worktreePath, relTarget); err != nil {
		return fmt.Errorf("stage reservation: %w", err)
	}

	quiet, err := git.DiffCachedQuiet(worktreePath)
	if err != nil {
		return fmt.Errorf("check staged diff: %w", err)
	}
	if quiet {
		return nil
	}

	if err := git.Commit(worktreePath, fmt.Sprintf("chore(coordination): reserve %s", changeID)); err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	if err := PushCoordinationBranch(worktreePath, "HEAD", branch); err != nil {
		return fmt.Errorf("push coordination branch: %w", err)
	}
	return nil
}

func asCoordError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

func addWorktree(repoRoot, path string) error {
	cmd := exec.Command("git", "worktree", "add", "--detach", path)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func removeWorktree(repoRoot, path string) {
	cmd := exec.Command("git", "worktree", "remove", "--force", path)
	cmd.Dir = repoRoot
	_ = cmd.Run()
	_ = os.RemoveAll(path)
}

func checkoutDetached(worktreePath, ref string) error {
	cmd := exec.Command("git", "checkout", "--detach", ref)
	cmd.Dir = worktreePath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func gitAdd(worktreePath, relPath string) error {
	cmd := exec.Command("git", "add", relPath)
	cmd.Dir = worktreePath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// copyTree recursively copies src into dst, skipping symlinks (with a
// warning to stderr) rather than following or erroring on them.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			fmt.Fprintf(os.Stderr, "warning: skipping symlink %s\n", path)
			return nil
		}
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}
