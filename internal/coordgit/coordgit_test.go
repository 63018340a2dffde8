package coordgit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesonstone/ito/internal/audit"
)

func TestValidBranchName(t *testing.T) {
	valid := []string{
		"ito/internal/changes",
		"main",
		"feature/x-1",
	}
	for _, name := range valid {
		if !ValidBranchName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{
		"",
		"/leading-slash",
		"trailing-slash/",
		"-leading-dash",
		"has..dotdot",
		"has@{at-brace",
		"double//slash",
		"trailing-dot.",
		"trailing.lock",
		"has space",
		"has~tilde",
		"has^caret",
		"has:colon",
		"has?question",
		"has*star",
		"has[bracket",
		"has\\backslash",
		"seg/.hidden",
		"seg/trailing.",
	}
	for _, name := range invalid {
		if ValidBranchName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}

func TestScanWorktreeAuditsTagsAndMerges(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main")
	linked := filepath.Join(root, "linked")
	for _, dir := range []string{main, linked} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	builder := audit.NewBuilder(audit.ActorCLI, "tester", audit.Context{SessionID: "s1"})
	if err := audit.Append(filepath.Join(main, ".ito", ".state", "audit", "events.jsonl"),
		builder.Build(audit.EntityChange, "001-01", "", audit.OpCreate, "", "", nil)); err != nil {
		t.Fatal(err)
	}
	if err := audit.Append(filepath.Join(linked, ".ito", ".state", "audit", "events.jsonl"),
		builder.Build(audit.EntityTask, "1.1", "001-01", audit.OpStatusChange, "pending", "complete", nil)); err != nil {
		t.Fatal(err)
	}

	worktrees := []WorktreeEntry{
		{Path: main, Name: "main"},
		{Path: linked, Name: "linked"},
	}
	tagged, err := ScanWorktreeAudits(context.Background(), worktrees, ".ito", 0)
	if err != nil {
		t.Fatalf("ScanWorktreeAudits: %v", err)
	}
	if len(tagged) != 2 {
		t.Fatalf("expected 2 tagged events, got %d", len(tagged))
	}

	byWorktree := map[string]string{}
	for _, te := range tagged {
		byWorktree[te.Worktree.Name] = string(te.Event.Entity)
	}
	if byWorktree["main"] != "change" || byWorktree["linked"] != "task" {
		t.Fatalf("unexpected worktree->entity mapping: %v", byWorktree)
	}

	merged := audit.MaterializeTagged(tagged)
	key := audit.EntityKey{Entity: audit.EntityTask, EntityID: "1.1", Scope: "001-01"}
	if state, ok := merged[key]; !ok || state.Status != "complete" {
		t.Fatalf("expected merged task status complete, got %+v (ok=%v)", state, ok)
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		NonFastForward:      "non_fast_forward",
		ProtectedBranch:     "protected_branch",
		RemoteRejected:      "remote_rejected",
		RemoteMissing:       "remote_missing",
		RemoteNotConfigured: "remote_not_configured",
		CommandFailed:       "command_failed",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("kind.String() = %q, want %q", got, want)
		}
	}
}
