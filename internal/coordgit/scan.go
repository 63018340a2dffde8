package coordgit

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/jamesonstone/ito/internal/audit"
	"github.com/jamesonstone/ito/internal/itopath"
)

// WorktreeEntry is one row of `git worktree list`.
type WorktreeEntry struct {
	Path string
	Name string
}

// ListWorktrees parses `git worktree list --porcelain` in repoRoot.
func ListWorktrees(repoRoot string) ([]WorktreeEntry, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git worktree list: %w", err)
	}

	var entries []WorktreeEntry
	var current WorktreeEntry
	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if current.Path != "" {
				entries = append(entries, current)
			}
			current = WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case line == "":
			if current.Path != "" {
				entries = append(entries, current)
				current = WorktreeEntry{}
			}
		}
	}
	if current.Path != "" {
		entries = append(entries, current)
	}
	for i := range entries {
		parts := strings.Split(strings.TrimSuffix(entries[i].Path, "/"), "/")
		entries[i].Name = parts[len(parts)-1]
	}
	return entries, nil
}

// ScanWorktreeAudits concurrently reads the audit log under each worktree's
// ito store root (<worktree>/<itoPath>/.state/audit/events.jsonl) and
// returns every event tagged with the worktree it came from, so a
// materializer can merge audit history recorded across several linked
// worktrees (e.g. an in-flight coordination reservation plus the main
// checkout). Uses a bounded conc/pool so scanning many worktrees doesn't
// spawn unbounded goroutines.
func ScanWorktreeAudits(ctx context.Context, worktrees []WorktreeEntry, itoPath string, maxConcurrent int) ([]audit.TaggedEvent, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	p := pool.NewWithResults[[]audit.TaggedEvent]().
		WithContext(ctx).
		WithMaxGoroutines(maxConcurrent)

	for _, wt := range worktrees {
		wt := wt
		p.Go(func(ctx context.Context) ([]audit.TaggedEvent, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			logPath := itopath.AuditLogPath(filepath.Join(wt.Path, itoPath))
			events, err := audit.ReadAll(logPath)
			if err != nil {
				return nil, fmt.Errorf("read audit log for worktree %s: %w", wt.Name, err)
			}
			info := audit.WorktreeInfo{Name: wt.Name, Path: wt.Path}
			tagged := make([]audit.TaggedEvent, len(events))
			for i, e := range events {
				tagged[i] = audit.TaggedEvent{Event: e, Worktree: info}
			}
			return tagged, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	var all []audit.TaggedEvent
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
