package tasks

import (
	"regexp"
	"strconv"
	"strings"
)

var enhancedHeading = regexp.MustCompile(`^###\s+(Task\s+)?[^:]+:\s+.+$`)

// DetectFormat implements the format-detection heuristic: "enhanced" iff
// the file contains at least one heading matching the Task-heading shape
// AND the literal substring "- **Status**:"; otherwise "checkbox"
// (including for empty input).
func DetectFormat(content string) Format {
	if !strings.Contains(content, "- **Status**:") {
		return Checkbox
	}
	for _, line := range strings.Split(content, "\n") {
		if enhancedHeading.MatchString(strings.TrimSpace(line)) {
			return Enhanced
		}
	}
	return Checkbox
}

var checkboxLine = regexp.MustCompile(`^[-*]\s\[([ xX~>])\]\s(.*)$`)
var checkboxIDLabel = regexp.MustCompile(`^(\d+(?:\.\d+)*):\s*(.*)$`)

// ParseCheckbox parses the legacy checkbox format: each line beginning with
// "-"/"*" followed by "[ ]"/"[x]"/"[X]"/"[~]"/"[>]" is a task. Shelved status
// is unrepresentable in this format.
func ParseCheckbox(content string) ParseResult {
	var result ParseResult
	result.Format = Checkbox

	seq := 0
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimLeft(raw, " \t")
		m := checkboxLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		marker := m[1]
		label := strings.TrimSpace(m[2])

		var status Status
		switch marker {
		case "x", "X":
			status = Complete
		case " ":
			status = Pending
		case "~", ">":
			status = InProgress
		default:
			continue
		}

		id := ""
		name := label
		if lm := checkboxIDLabel.FindStringSubmatch(label); lm != nil {
			id = lm[1]
			name = lm[2]
		}
		if id == "" {
			seq++
			id = strconv.Itoa(seq)
		}

		result.Tasks = append(result.Tasks, Task{
			ID:        id,
			Name:      name,
			Status:    status,
			LineIndex: i,
		})
	}

	result.Diagnostics = append(result.Diagnostics, validateRelational(result.Tasks, nil)...)
	result.Progress = ComputeProgress(result.Tasks)
	return result
}
