package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveEmbeddedDefault(t *testing.T) {
	dir := t.TempDir()
	r, err := Resolve("", dir, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if r.Source != Embedded {
		t.Fatalf("expected embedded source, got %v", r.Source)
	}
	if r.Schema.Name != "spec-driven" {
		t.Fatalf("expected spec-driven schema, got %q", r.Schema.Name)
	}
	if len(r.Schema.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(r.Schema.Artifacts))
	}
}

func TestResolveUnsafeNameNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve("../escape", dir, "")
	if err == nil {
		t.Fatalf("expected error for unsafe schema name")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
}

func TestResolveProjectOverridesEmbedded(t *testing.T) {
	itoPath := t.TempDir()
	schemaDir := filepath.Join(itoPath, "schemas", "spec-driven")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `name: spec-driven
artifacts:
  - id: only
    generates: only.md
    template: only.md.tmpl
    requires: []
`
	if err := os.WriteFile(filepath.Join(schemaDir, "schema.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Resolve("spec-driven", itoPath, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if r.Source != Project {
		t.Fatalf("expected project source, got %v", r.Source)
	}
	if len(r.Schema.Artifacts) != 1 || r.Schema.Artifacts[0].ID != "only" {
		t.Fatalf("expected project schema content, got %+v", r.Schema)
	}
}

func TestResolveRejectsDuplicateArtifactIDs(t *testing.T) {
	itoPath := t.TempDir()
	schemaDir := filepath.Join(itoPath, "schemas", "dup")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `name: dup
artifacts:
  - id: a
    generates: a.md
    template: a.md.tmpl
  - id: a
    generates: b.md
    template: b.md.tmpl
`
	if err := os.WriteFile(filepath.Join(schemaDir, "schema.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Resolve("dup", itoPath, "")
	if err == nil {
		t.Fatalf("expected duplicate-id error")
	}
}

func TestResolveRejectsDanglingRequires(t *testing.T) {
	itoPath := t.TempDir()
	schemaDir := filepath.Join(itoPath, "schemas", "dangling")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `name: dangling
artifacts:
  - id: a
    generates: a.md
    template: a.md.tmpl
    requires: ["missing"]
`
	if err := os.WriteFile(filepath.Join(schemaDir, "schema.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Resolve("dangling", itoPath, "")
	if err == nil {
		t.Fatalf("expected dangling-requires error")
	}
}

func TestBuildOrderTopological(t *testing.T) {
	s := Schema{
		Name: "x",
		Artifacts: []Artifact{
			{ID: "a", Generates: "a.md", Template: "a.tmpl"},
			{ID: "b", Generates: "b.md", Template: "b.tmpl", Requires: []string{"a"}},
			{ID: "c", Generates: "c.md", Template: "c.tmpl", Requires: []string{"a"}},
		},
	}
	order := BuildOrder(s)
	if len(order) != 3 || order[0] != "a" {
		t.Fatalf("expected a first, got %v", order)
	}
	if order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected deterministic [a b c], got %v", order)
	}
}

func TestComputeChangeStatusGating(t *testing.T) {
	changeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(changeDir, "proposal.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := Resolve("", changeDir, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	status := ComputeChangeStatus("my-change", changeDir, r)
	byID := map[string]ArtifactStatus{}
	for _, a := range status.Artifacts {
		byID[a.ID] = a
	}
	if byID["proposal"].Status != "done" {
		t.Fatalf("expected proposal done, got %+v", byID["proposal"])
	}
	if byID["design"].Status != "ready" {
		t.Fatalf("expected design ready, got %+v", byID["design"])
	}
	if byID["tasks"].Status != "blocked" {
		t.Fatalf("expected tasks blocked, got %+v", byID["tasks"])
	}
	if len(byID["tasks"].MissingDeps) != 1 || byID["tasks"].MissingDeps[0] != "design" {
		t.Fatalf("expected tasks missing [design], got %+v", byID["tasks"].MissingDeps)
	}
	if status.IsComplete {
		t.Fatalf("expected change incomplete")
	}
}

func TestComputeApplyStatusBlockedOnMissingArtifacts(t *testing.T) {
	changeDir := t.TempDir()
	r, err := Resolve("", changeDir, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	status := ComputeApplyStatus("my-change", changeDir, r)
	if status.State != "blocked" {
		t.Fatalf("expected blocked state, got %q", status.State)
	}
	if len(status.MissingArtifacts) != 3 {
		t.Fatalf("expected all 3 artifacts missing, got %v", status.MissingArtifacts)
	}
}

func TestComputeApplyStatusAllDone(t *testing.T) {
	changeDir := t.TempDir()
	for _, f := range []string{"proposal.md", "design.md"} {
		if err := os.WriteFile(filepath.Join(changeDir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [x] 1: Done\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := Resolve("", changeDir, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	status := ComputeApplyStatus("my-change", changeDir, r)
	if status.State != "all_done" {
		t.Fatalf("expected all_done, got %q (%+v)", status.State, status)
	}
}

func TestArtifactDoneGlobSuffix(t *testing.T) {
	changeDir := t.TempDir()
	specsDir := filepath.Join(changeDir, "specs", "001")
	if err := os.MkdirAll(specsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(specsDir, "spec.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !ArtifactDone(changeDir, "specs/**/*.md") {
		t.Fatalf("expected glob match under specs/**/*.md")
	}
	if ArtifactDone(changeDir, "specs/**/*.json") {
		t.Fatalf("expected no match for *.json suffix")
	}
}
