package validate

import (
	"os"

	"github.com/jamesonstone/ito/internal/tasks"
)

// CheckTaskCompletion implements spec.md §4.8 step 1: parse the change's
// tasks.md and succeed iff remaining == 0 and there are no Error-level
// diagnostics. A missing or empty tasks file counts as success.
func CheckTaskCompletion(tasksPath string) TaskCompletionResult {
	raw, err := os.ReadFile(tasksPath)
	if err != nil {
		return TaskCompletionResult{Passed: true}
	}
	result := tasks.Parse(string(raw))
	if len(result.Tasks) == 0 {
		return TaskCompletionResult{Passed: true}
	}

	var diags []string
	for _, d := range result.Diagnostics {
		if d.Level == tasks.Error {
			diags = append(diags, d.Message)
		}
	}

	passed := result.Progress.Remaining == 0 && len(diags) == 0
	return TaskCompletionResult{
		Passed:      passed,
		Remaining:   result.Progress.Remaining,
		Total:       result.Progress.Total,
		Diagnostics: diags,
	}
}
