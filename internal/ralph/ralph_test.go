package ralph

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesonstone/ito/internal/tasks"
)

func TestDetectPromise(t *testing.T) {
	assert.True(t, detectPromise("blah\n<promise>"+defaultPromiseToken+"</promise>\nblah", defaultPromiseToken))
	assert.True(t, detectPromise("<promise> "+defaultPromiseToken+" </promise>", defaultPromiseToken))
	assert.False(t, detectPromise("no tag here", defaultPromiseToken))
	assert.False(t, detectPromise("<promise>WRONG_TOKEN</promise>", defaultPromiseToken))
}

func TestBuildPromptIncludesSections(t *testing.T) {
	prompt := BuildPrompt(PromptInputs{
		ChangeID:     "001-01",
		ModuleID:     "001",
		Iteration:    2,
		TasksSummary: "1/2 complete",
		SavedContext: "remember the thing",
		UserGuidance: "use tabs",
	})
	assert.Contains(t, prompt, "001-01")
	assert.Contains(t, prompt, "1/2 complete")
	assert.Contains(t, prompt, "remember the thing")
	assert.Contains(t, prompt, "use tabs")
	assert.Contains(t, prompt, defaultPromiseToken)
}

func TestTasksSummaryIncludesErrors(t *testing.T) {
	result := tasks.ParseResult{
		Progress:    tasks.Progress{Total: 3, Complete: 1, Remaining: 2},
		Diagnostics: []tasks.Diagnostic{{Level: tasks.Error, Message: "bad task"}},
	}
	summary := TasksSummary(result)
	assert.Contains(t, summary, "1/3 complete")
	assert.Contains(t, summary, "bad task")
}

func TestLoadUserGuidanceStripsBeforeMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user-guidance.md"), []byte("scratch notes\nITO:END\nkeep this\n"), 0o644))

	guidance, err := LoadUserGuidance(dir)
	require.NoError(t, err)
	assert.Equal(t, "keep this", guidance)
}

func TestLoadUserGuidanceMissingFile(t *testing.T) {
	dir := t.TempDir()
	guidance, err := LoadUserGuidance(dir)
	require.NoError(t, err)
	assert.Equal(t, "", guidance)
}

func TestStateSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s := &State{ChangeID: "001-01"}
	s.AppendHistory(IterationRecord{Index: 1, Outcome: OutcomePromise, StartedAt: time.Now(), EndedAt: time.Now()})
	require.NoError(t, s.Save(dir))

	loaded, err := LoadState(dir, "001-01")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Iteration)
	assert.Len(t, loaded.History, 1)
	assert.Equal(t, OutcomePromise, loaded.History[0].Outcome)
}

func TestLoadStateMissingReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadState(dir, "002-01")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Iteration)
	assert.False(t, s.Completed)
}

func TestAppendHistoryTracksConsecutiveErrors(t *testing.T) {
	s := &State{ChangeID: "001-01"}
	s.AppendHistory(IterationRecord{Index: 1, Outcome: OutcomeError})
	s.AppendHistory(IterationRecord{Index: 2, Outcome: OutcomeError})
	assert.Equal(t, 2, s.ConsecutiveErr)

	s.AppendHistory(IterationRecord{Index: 3, Outcome: OutcomePromise})
	assert.Equal(t, 0, s.ConsecutiveErr)
}

func TestContextAppendAndClear(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AppendContext(dir, "001-01", "first note"))
	require.NoError(t, AppendContext(dir, "001-01", "second note"))

	content, err := ReadContext(dir, "001-01")
	require.NoError(t, err)
	assert.Contains(t, content, "first note")
	assert.Contains(t, content, "second note")

	require.NoError(t, ClearContext(dir, "001-01"))
	content, err = ReadContext(dir, "001-01")
	require.NoError(t, err)
	assert.Equal(t, "", content)
}

func TestResolveTargetByChangeID(t *testing.T) {
	dir := t.TempDir()
	changeDir := filepath.Join(dir, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))

	id, err := ResolveTarget(dir, "001-01")
	require.NoError(t, err)
	assert.Equal(t, "001-01", id)
}

func TestResolveTargetByModuleWithSingleChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "changes", "001-01"), 0o755))

	id, err := ResolveTarget(dir, "001")
	require.NoError(t, err)
	assert.Equal(t, "001-01", id)
}

func TestResolveTargetByModuleAmbiguous(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "changes", "001-01"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "changes", "001-02"), 0o755))

	_, err := ResolveTarget(dir, "001")
	assert.Error(t, err)
}

func TestResolveTargetSkipsArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "changes", "001-01"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "changes", "archive"), 0o755))

	id, err := ResolveTarget(dir, "001")
	require.NoError(t, err)
	assert.Equal(t, "001-01", id)
}

// fakeHarness returns canned results in sequence, for driving Run in tests
// without shelling out to a real agent binary.
type fakeHarness struct {
	results []RunResult
	calls   int
}

func (f *fakeHarness) Name() string         { return "fake" }
func (f *fakeHarness) StreamsOutput() bool  { return false }
func (f *fakeHarness) Run(RunConfig) (RunResult, error) {
	r := f.results[f.calls]
	f.calls++
	return r, nil
}

func TestRunCompletesOnPromiseAndPassingValidation(t *testing.T) {
	repo := t.TempDir()
	itoPath := filepath.Join(repo, ".ito")
	changeDir := filepath.Join(itoPath, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [x] done\n"), 0o644))

	harness := &fakeHarness{results: []RunResult{
		{Stdout: "<promise>" + defaultPromiseToken + "</promise>", ExitCode: 0},
	}}

	result, err := Run(Options{
		RepoRoot: repo,
		ItoPath:  itoPath,
		ChangeID: "001-01",
		MaxIters: 1,
		Harness:  harness,
		NoCommit: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, OutcomePromise, result.LastOutcome)
}

func TestRunStopsAfterErrorThreshold(t *testing.T) {
	repo := t.TempDir()
	itoPath := filepath.Join(repo, ".ito")
	changeDir := filepath.Join(itoPath, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [ ] todo\n"), 0o644))

	harness := &erroringHarness{}

	_, err := Run(Options{
		RepoRoot:       repo,
		ItoPath:        itoPath,
		ChangeID:       "001-01",
		MaxIters:       10,
		Harness:        harness,
		NoCommit:       true,
		ErrorThreshold: 2,
	})
	assert.Error(t, err)
}

type erroringHarness struct{}

func (erroringHarness) Name() string        { return "erroring" }
func (erroringHarness) StreamsOutput() bool { return false }
func (erroringHarness) Run(RunConfig) (RunResult, error) {
	return RunResult{}, assert.AnError
}

func TestRunHonorsMinIterations(t *testing.T) {
	repo := t.TempDir()
	itoPath := filepath.Join(repo, ".ito")
	changeDir := filepath.Join(itoPath, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [x] done\n"), 0o644))

	harness := &fakeHarness{results: []RunResult{
		{Stdout: "<promise>" + defaultPromiseToken + "</promise>", ExitCode: 0},
		{Stdout: "<promise>" + defaultPromiseToken + "</promise>", ExitCode: 0},
	}}

	result, err := Run(Options{
		RepoRoot: repo,
		ItoPath:  itoPath,
		ChangeID: "001-01",
		MinIters: 2,
		MaxIters: 2,
		Harness:  harness,
		NoCommit: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, 2, result.Iterations)
}

func TestRunSkipsValidationWhenRequested(t *testing.T) {
	repo := t.TempDir()
	itoPath := filepath.Join(repo, ".ito")
	changeDir := filepath.Join(itoPath, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [ ] still pending\n"), 0o644))

	harness := &fakeHarness{results: []RunResult{
		{Stdout: "<promise>" + defaultPromiseToken + "</promise>", ExitCode: 0},
	}}

	result, err := Run(Options{
		RepoRoot:       repo,
		ItoPath:        itoPath,
		ChangeID:       "001-01",
		MaxIters:       1,
		Harness:        harness,
		NoCommit:       true,
		SkipValidation: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
}

func TestRunRespectsCustomCompletionPromise(t *testing.T) {
	repo := t.TempDir()
	itoPath := filepath.Join(repo, ".ito")
	changeDir := filepath.Join(itoPath, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [x] done\n"), 0o644))

	harness := &fakeHarness{results: []RunResult{
		{Stdout: "<promise>CUSTOM_TOKEN</promise>", ExitCode: 0},
	}}

	result, err := Run(Options{
		RepoRoot:          repo,
		ItoPath:           itoPath,
		ChangeID:          "001-01",
		MaxIters:          1,
		Harness:           harness,
		NoCommit:          true,
		CompletionPromise: "CUSTOM_TOKEN",
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
}

func TestRunExitOnErrorFailsImmediately(t *testing.T) {
	repo := t.TempDir()
	itoPath := filepath.Join(repo, ".ito")
	changeDir := filepath.Join(itoPath, "changes", "001-01")
	require.NoError(t, os.MkdirAll(changeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(changeDir, "tasks.md"), []byte("- [ ] todo\n"), 0o644))

	harness := &fakeHarness{results: []RunResult{
		{Stdout: "", ExitCode: 1},
	}}

	_, err := Run(Options{
		RepoRoot:    repo,
		ItoPath:     itoPath,
		ChangeID:    "001-01",
		MaxIters:    5,
		Harness:     harness,
		NoCommit:    true,
		ExitOnError: true,
	})
	assert.Error(t, err)
}

func TestRunMaxIterationsZeroErrors(t *testing.T) {
	_, err := Run(Options{
		RepoRoot: t.TempDir(),
		ItoPath:  filepath.Join(t.TempDir(), ".ito"),
		ChangeID: "001-01",
		MaxIters: 0,
		Harness:  &fakeHarness{},
	})
	assert.Error(t, err)
}
