// Package validate implements the validation gate described in spec.md
// §4.8: task-completion check, discovered project validation commands, and
// an optional extra command, each captured with truncated output and a
// timeout. The Ralph loop runs this once a promise is detected and carries
// a failing report into the next iteration's prompt.
package validate

import (
	"fmt"
	"strings"
	"time"
)

// outputCap is the soft per-stream truncation limit (~12 KB) spec.md §4.8
// specifies for captured command output.
const outputCap = 12 * 1024

const truncatedMarker = "\n...(truncated)"

// CommandResult captures the outcome of running one shell command.
type CommandResult struct {
	Command  string        `json:"command"`
	Passed   bool          `json:"passed"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// TaskCompletionResult is step 1 of the validation report.
type TaskCompletionResult struct {
	Passed      bool     `json:"passed"`
	Remaining   int      `json:"remaining"`
	Total       int      `json:"total"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Report is the composable outcome of a full validation run: task
// completion, the discovered project commands, and an optional extra
// command. Passed is true iff every step passed.
type Report struct {
	TaskCompletion TaskCompletionResult `json:"task_completion"`
	Commands       []CommandResult      `json:"commands"`
	Extra          *CommandResult       `json:"extra,omitempty"`
}

// Passed reports whether every step of the report succeeded.
func (r Report) Passed() bool {
	if !r.TaskCompletion.Passed {
		return false
	}
	for _, c := range r.Commands {
		if !c.Passed {
			return false
		}
	}
	if r.Extra != nil && !r.Extra.Passed {
		return false
	}
	return true
}

// Summary renders a short human-readable failure report, suitable for
// carrying into the next Ralph iteration's prompt per spec.md §4.7 step 9.
func (r Report) Summary() string {
	if r.Passed() {
		return "validation passed"
	}
	var b strings.Builder
	b.WriteString("validation failed:\n")
	if !r.TaskCompletion.Passed {
		b.WriteString(fmt.Sprintf("- tasks: %d of %d remaining", r.TaskCompletion.Remaining, r.TaskCompletion.Total))
		for _, d := range r.TaskCompletion.Diagnostics {
			b.WriteString("\n  - " + d)
		}
		b.WriteString("\n")
	}
	for _, c := range r.Commands {
		if c.Passed {
			continue
		}
		b.WriteString(fmt.Sprintf("- command %q exited %d", c.Command, c.ExitCode))
		if c.TimedOut {
			b.WriteString(" (timed out)")
		}
		b.WriteString("\n")
		if c.Stderr != "" {
			b.WriteString("  stderr:\n" + indent(c.Stderr) + "\n")
		}
	}
	if r.Extra != nil && !r.Extra.Passed {
		b.WriteString(fmt.Sprintf("- extra command %q exited %d\n", r.Extra.Command, r.Extra.ExitCode))
	}
	return b.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

func truncate(s string) string {
	if len(s) <= outputCap {
		return s
	}
	return s[:outputCap] + truncatedMarker
}
