package tasks

import (
	"strings"
	"testing"
)

func TestDetectFormatEmpty(t *testing.T) {
	r := Parse("")
	if r.Format != Checkbox {
		t.Fatalf("expected empty input to parse as checkbox, got %v", r.Format)
	}
	if len(r.Tasks) != 0 || len(r.Diagnostics) != 0 {
		t.Fatalf("expected no tasks/diagnostics for empty input, got %+v", r)
	}
}

func TestParseCheckboxBasic(t *testing.T) {
	content := "- [ ] 1: First task\n- [x] 2: Second task\n- [~] 3: Third task\n"
	r := Parse(content)
	if r.Format != Checkbox {
		t.Fatalf("expected checkbox format")
	}
	if len(r.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(r.Tasks))
	}
	if r.Tasks[0].Status != Pending || r.Tasks[1].Status != Complete || r.Tasks[2].Status != InProgress {
		t.Fatalf("unexpected statuses: %+v", r.Tasks)
	}
	if r.Progress.Total != 3 || r.Progress.Complete != 1 || r.Progress.Remaining != 2 {
		t.Fatalf("unexpected progress: %+v", r.Progress)
	}
}

func TestParseEnhancedBasic(t *testing.T) {
	content := `## Wave 1: Foundations
- **Depends On**: None

### Task 1.1: Do the thing
- **Status**: [ ] pending
- **Updated At**: 2026-01-01
- **Dependencies**: none

### Task 1.2: Do another thing
- **Status**: [ ] pending
- **Updated At**: 2026-01-01
- **Dependencies**: 1.1
`
	r := Parse(content)
	if r.Format != Enhanced {
		t.Fatalf("expected enhanced format")
	}
	if len(r.Waves) != 1 || r.Waves[0].Number != 1 {
		t.Fatalf("unexpected waves: %+v", r.Waves)
	}
	if len(r.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(r.Tasks), r.Tasks)
	}
	if r.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", r.Diagnostics)
	}

	ready, blockers := IsReady(r.Tasks[0], r)
	if !ready {
		t.Fatalf("expected task 1.1 to be ready, blockers=%v", blockers)
	}
	ready, blockers = IsReady(r.Tasks[1], r)
	if ready {
		t.Fatalf("expected task 1.2 to be blocked on 1.1")
	}
	if len(blockers) == 0 {
		t.Fatalf("expected blocker reasons for task 1.2")
	}
}

func TestMissingUpdatedAtIsError(t *testing.T) {
	content := `## Wave 1
- **Depends On**: None

### Task 1.1: Do the thing
- **Status**: [ ] pending
`
	r := Parse(content)
	if !r.HasErrors() {
		t.Fatalf("expected missing Updated At to be an error")
	}
}

func TestMissingDependsOnIsErrorWithSynthesizedDeps(t *testing.T) {
	content := `## Wave 2
### Task 2.1: Something
- **Status**: [ ] pending
- **Updated At**: 2026-01-01
`
	r := Parse(content)
	if !r.HasErrors() {
		t.Fatalf("expected missing Depends On to be an error")
	}
	if len(r.Waves) != 1 || len(r.Waves[0].DependsOn) != 1 || r.Waves[0].DependsOn[0] != 1 {
		t.Fatalf("expected synthesized dependency on wave 1, got %+v", r.Waves)
	}
}

func TestShelvedDependencyIsError(t *testing.T) {
	content := `## Wave 1
- **Depends On**: None

### Task 1.1: First
- **Status**: [ ] shelved
- **Updated At**: 2026-01-01

### Task 1.2: Second
- **Status**: [ ] pending
- **Updated At**: 2026-01-01
- **Dependencies**: 1.1
`
	r := Parse(content)
	if !r.HasErrors() {
		t.Fatalf("expected dependency on shelved task to be an error")
	}
}

func TestTransitionCheckboxStartThenComplete(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/tasks.md"
	content := "- [ ] 1: First task\n"
	if err := writeAtomic(path, content); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}

	now := mustParseTime(t, "2026-02-08")
	_, result, err := Transition(path, "1", Start, now)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !strings.Contains(mustRead(t, path), "[~]") {
		t.Fatalf("expected in-progress marker after start, got %q", mustRead(t, path))
	}
	task, _ := result.TaskByID("1")
	if task.Status != InProgress {
		t.Fatalf("expected in-progress status, got %v", task.Status)
	}

	_, _, err = Transition(path, "1", CompleteTransition, now)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !strings.Contains(mustRead(t, path), "[x]") {
		t.Fatalf("expected complete marker, got %q", mustRead(t, path))
	}
}

func TestTransitionBlockedStartRefused(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/tasks.md"
	content := `## Wave 1
- **Depends On**: None

### Task 1.1: First
- **Status**: [ ] pending
- **Updated At**: 2026-01-01

### Task 1.2: Second
- **Status**: [ ] pending
- **Updated At**: 2026-01-01
- **Dependencies**: 1.1
`
	if err := writeAtomic(path, content); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	before := mustRead(t, path)

	now := mustParseTime(t, "2026-02-08")
	_, _, err := Transition(path, "1.2", Start, now)
	if err == nil {
		t.Fatalf("expected transition to be refused")
	}
	if _, ok := err.(*TransitionError); !ok {
		t.Fatalf("expected TransitionError, got %T: %v", err, err)
	}
	if mustRead(t, path) != before {
		t.Fatalf("expected file to be unchanged after refused transition")
	}
}
