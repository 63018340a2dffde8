package validate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckTaskCompletionMissingFile(t *testing.T) {
	res := CheckTaskCompletion(filepath.Join(t.TempDir(), "tasks.md"))
	require.True(t, res.Passed)
}

func TestCheckTaskCompletionRemaining(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.md")
	content := "- [ ] Task one\n- [x] Task two\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res := CheckTaskCompletion(path)
	require.False(t, res.Passed)
	require.Equal(t, 1, res.Remaining)
	require.Equal(t, 2, res.Total)
}

func TestCheckTaskCompletionAllDone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte("- [x] Task one\n"), 0o644))

	res := CheckTaskCompletion(path)
	require.True(t, res.Passed)
	require.Equal(t, 0, res.Remaining)
}

func TestDiscoverCommandsFromItoJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ito.json"),
		[]byte(`{"ralph":{"validationCommands":["go test ./...","go vet ./..."]}}`), 0o644))

	cmds := DiscoverCommands(dir, filepath.Join(dir, ".ito"))
	require.Equal(t, []string{"go test ./...", "go vet ./..."}, cmds)
}

func TestDiscoverCommandsFallbackPointer(t *testing.T) {
	dir := t.TempDir()
	itoPath := filepath.Join(dir, ".ito")
	require.NoError(t, os.MkdirAll(itoPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(itoPath, "config.json"),
		[]byte(`{"ralph":{"validation":{"commands":["make test"]}}}`), 0o644))

	cmds := DiscoverCommands(dir, itoPath)
	require.Equal(t, []string{"make test"}, cmds)
}

func TestDiscoverCommandsAgentsFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"),
		[]byte("Run `make check` before committing, then `make test`.\n"), 0o644))

	cmds := DiscoverCommands(dir, filepath.Join(dir, ".ito"))
	require.Equal(t, []string{"make check", "make test"}, cmds)
}

func TestRunCommandCapturesOutput(t *testing.T) {
	res := RunCommand("echo hello", t.TempDir(), time.Second)
	require.True(t, res.Passed)
	require.Contains(t, res.Stdout, "hello")
	require.Equal(t, 0, res.ExitCode)
}

func TestRunCommandNonZeroExit(t *testing.T) {
	res := RunCommand("exit 3", t.TempDir(), time.Second)
	require.False(t, res.Passed)
	require.Equal(t, 3, res.ExitCode)
}

func TestRunCommandTimeout(t *testing.T) {
	res := RunCommand("sleep 2", t.TempDir(), 100*time.Millisecond)
	require.True(t, res.TimedOut)
	require.False(t, res.Passed)
}

func TestReportSummaryPassed(t *testing.T) {
	r := Report{TaskCompletion: TaskCompletionResult{Passed: true}}
	require.Equal(t, "validation passed", r.Summary())
	require.True(t, r.Passed())
}
