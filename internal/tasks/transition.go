package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TransitionKind identifies one of the four supported status transitions.
type TransitionKind int

const (
	Start TransitionKind = iota
	CompleteTransition
	ShelveTransition
	UnshelveTransition
)

// Transition re-parses the tasks file at path, validates and applies the
// requested transition for taskID, rewrites the file atomically, and
// returns the updated task view. No write happens if any step fails.
func Transition(path string, taskID string, kind TransitionKind, now time.Time) (Task, ParseResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Task{}, ParseResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(raw)
	result := Parse(content)

	if result.HasErrors() {
		return Task{}, result, &ParseError{Diagnostics: result.Diagnostics}
	}
	task, ok := result.TaskByID(taskID)
	if !ok {
		return Task{}, result, refused("unknown task %q", taskID)
	}

	if err := checkPrecondition(task, result, kind); err != nil {
		return Task{}, result, err
	}

	newStatus := targetStatus(kind)
	today := now.UTC().Format("2006-01-02")

	var newContent string
	if result.Format == Checkbox {
		newContent, err = rewriteCheckbox(content, task, newStatus)
	} else {
		newContent, err = rewriteEnhanced(content, task, newStatus, today)
	}
	if err != nil {
		return Task{}, result, err
	}

	if err := writeAtomic(path, newContent); err != nil {
		return Task{}, result, err
	}

	updated := Parse(newContent)
	ut, _ := updated.TaskByID(taskID)
	return ut, updated, nil
}

func targetStatus(kind TransitionKind) Status {
	switch kind {
	case Start:
		return InProgress
	case CompleteTransition:
		return Complete
	case ShelveTransition:
		return Shelved
	case UnshelveTransition:
		return Pending
	default:
		return Pending
	}
}

func checkPrecondition(task Task, result ParseResult, kind TransitionKind) error {
	switch kind {
	case Start:
		if result.Format == Checkbox {
			for _, t := range result.Tasks {
				if t.Status == InProgress {
					return refused("checkbox format does not support a second concurrent in-progress task (task %s is already in-progress)", t.ID)
				}
			}
			return nil
		}
		if task.Status != Pending {
			return refused("task %s is not pending", task.ID)
		}
		ready, blockers := IsReady(task, result)
		if !ready {
			if len(blockers) > 0 {
				return refused("task %s is blocked: %s", task.ID, strings.Join(blockers, "; "))
			}
			return refused("task %s is not ready", task.ID)
		}
		return nil
	case CompleteTransition:
		if task.Status == Complete {
			return refused("task %s is already complete", task.ID)
		}
		return nil
	case ShelveTransition:
		if result.Format == Checkbox {
			return refused("checkbox format does not support shelving")
		}
		if task.Status == Complete {
			return refused("task %s is already complete", task.ID)
		}
		return nil
	case UnshelveTransition:
		if result.Format == Checkbox {
			return refused("checkbox format does not support shelving")
		}
		if task.Status != Shelved {
			return refused("task %s is not shelved", task.ID)
		}
		return nil
	default:
		return refused("unknown transition")
	}
}

func rewriteCheckbox(content string, task Task, status Status) (string, error) {
	lines := strings.Split(content, "\n")
	if task.LineIndex < 0 || task.LineIndex >= len(lines) {
		return "", refused("task %s line index out of range", task.ID)
	}
	line := lines[task.LineIndex]
	open := strings.Index(line, "[")
	close := strings.Index(line, "]")
	if open < 0 || close != open+2 {
		return "", refused("task %s marker not found on its line", task.ID)
	}
	marker := checkboxMarker(status)
	lines[task.LineIndex] = line[:open+1] + marker + line[close:]
	return strings.Join(lines, "\n"), nil
}

func checkboxMarker(status Status) string {
	switch status {
	case Complete:
		return "x"
	case InProgress:
		return "~"
	case Shelved:
		return "-"
	default:
		return " "
	}
}

func rewriteEnhanced(content string, task Task, status Status, today string) (string, error) {
	lines := strings.Split(content, "\n")
	start := task.LineIndex
	if start < 0 || start >= len(lines) {
		return "", refused("task %s line index out of range", task.ID)
	}
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if strings.HasPrefix(t, "### ") || strings.HasPrefix(t, "## ") {
			end = i
			break
		}
	}

	statusLine := fmt.Sprintf("- **Status**: [%s] %s", checkboxMarker(status), labelFor(status))
	updatedAtLine := fmt.Sprintf("- **Updated At**: %s", today)

	block := lines[start:end]
	out := []string{block[0]}
	sawStatus, sawUpdatedAt := false, false
	for _, l := range block[1:] {
		trimmed := strings.TrimSpace(l)
		switch {
		case statusLineRe.MatchString(trimmed):
			out = append(out, statusLine)
			sawStatus = true
		case updatedAtRe.MatchString(trimmed):
			out = append(out, updatedAtLine)
			sawUpdatedAt = true
		default:
			out = append(out, l)
		}
	}
	var insertions []string
	if !sawStatus {
		insertions = append(insertions, statusLine)
	}
	if !sawUpdatedAt {
		insertions = append(insertions, updatedAtLine)
	}
	if len(insertions) > 0 {
		rest := out[1:]
		out = append([]string{out[0]}, append(append([]string{}, insertions...), rest...)...)
	}

	newLines := append(append(append([]string{}, lines[:start]...), out...), lines[end:]...)
	return strings.Join(newLines, "\n"), nil
}

func labelFor(status Status) string {
	switch status {
	case Complete:
		return "complete"
	case InProgress:
		return "in-progress"
	case Shelved:
		return "shelved"
	default:
		return "pending"
	}
}

func writeAtomic(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tasks-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	return nil
}
