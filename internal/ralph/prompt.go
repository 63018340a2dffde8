package ralph

import (
	"fmt"
	"os"
	"strings"

	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/tasks"
	"github.com/jamesonstone/ito/internal/validate"
)

// defaultPromiseToken is embedded in the prompt and must appear, exactly
// and trimmed, wrapped in <promise>...</promise> tags in the harness's
// stdout for an iteration to count as complete, unless Options.CompletionPromise
// overrides it.
const defaultPromiseToken = "ITO_RALPH_DONE"

// guidanceEndMarker bounds how much of user-guidance.md is passed through
// to the agent: everything up to and including this line is stripped, so a
// project can keep scratch notes above the marker that never reach the
// prompt.
const guidanceEndMarker = "ITO:END"

// PromptInputs gathers everything BuildPrompt needs to compose one
// iteration's prompt.
type PromptInputs struct {
	ChangeID       string
	ModuleID       string
	Iteration      int
	MinIterations  int
	MaxIterations  int
	TasksSummary   string
	SavedContext   string
	LastValidation *validate.Report
	UserGuidance   string
	PromiseToken   string
}

// BuildPrompt composes the prompt for one Ralph iteration: a fixed base
// instruction, the change/module identity, progress so far, any saved
// freeform context, the prior validation failure (if the last iteration's
// promise was rejected), user guidance, and the completion token the agent
// must echo back.
func BuildPrompt(in PromptInputs) string {
	var b strings.Builder

	b.WriteString("You are working autonomously on one change in a larger project.\n")
	b.WriteString("Make progress on the open tasks, run any checks you can, and keep edits scoped to this change.\n\n")

	fmt.Fprintf(&b, "Change: %s\n", in.ChangeID)
	if in.ModuleID != "" {
		fmt.Fprintf(&b, "Module: %s\n", in.ModuleID)
	}
	if in.MaxIterations > 0 {
		fmt.Fprintf(&b, "Iteration: %d (min %d, max %d)\n\n", in.Iteration, in.MinIterations, in.MaxIterations)
	} else {
		fmt.Fprintf(&b, "Iteration: %d\n\n", in.Iteration)
	}

	if in.TasksSummary != "" {
		b.WriteString("Current tasks:\n")
		b.WriteString(in.TasksSummary)
		b.WriteString("\n\n")
	}

	if in.SavedContext != "" {
		b.WriteString("Notes carried from prior iterations:\n")
		b.WriteString(in.SavedContext)
		b.WriteString("\n\n")
	}

	if in.LastValidation != nil && !in.LastValidation.Passed() {
		b.WriteString("The previous iteration's validation did not pass:\n")
		b.WriteString(in.LastValidation.Summary())
		b.WriteString("\nAddress these before declaring completion.\n\n")
	}

	if in.UserGuidance != "" {
		b.WriteString("Project guidance:\n")
		b.WriteString(in.UserGuidance)
		b.WriteString("\n\n")
	}

	token := in.PromiseToken
	if token == "" {
		token = defaultPromiseToken
	}
	fmt.Fprintf(&b, "When every task for this change is complete and validation would pass, output exactly:\n<promise>%s</promise>\n", token)
	b.WriteString("Do not output that tag otherwise.\n")

	return b.String()
}

// TasksSummary renders a compact progress line plus any error diagnostics,
// suitable for embedding in a prompt without dumping the whole file.
func TasksSummary(result tasks.ParseResult) string {
	p := result.Progress
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d complete, %d in progress, %d pending, %d remaining", p.Complete, p.Total, p.InProgress, p.Pending, p.Remaining)
	for _, d := range result.Diagnostics {
		if d.Level == tasks.Error {
			fmt.Fprintf(&b, "\n- error: %s", d.Message)
		}
	}
	return b.String()
}

// LoadUserGuidance reads <ito_path>/user-guidance.md and strips everything
// up to and including a line containing guidanceEndMarker, if present. A
// missing file yields "", nil.
func LoadUserGuidance(itoPath string) (string, error) {
	path := itopath.UserGuidancePath(itoPath)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	content := string(data)
	if idx := strings.Index(content, guidanceEndMarker); idx != -1 {
		rest := content[idx+len(guidanceEndMarker):]
		if nl := strings.Index(rest, "\n"); nl != -1 {
			rest = rest[nl+1:]
		} else {
			rest = ""
		}
		content = strings.TrimLeft(rest, "\n")
	}
	return strings.TrimSpace(content), nil
}
