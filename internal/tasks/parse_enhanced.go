package tasks

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	waveHeaderRe    = regexp.MustCompile(`^##\s+Wave\s+(\d+)\s*(?:[:\-]\s*(.+))?$`)
	checkpointsRe   = regexp.MustCompile(`^##\s+Checkpoints\s*$`)
	dependsOnRe     = regexp.MustCompile(`^-\s+\*\*Depends On\*\*:\s*(.*)$`)
	taskHeaderRe    = regexp.MustCompile(`^###\s+Task\s+([^:]+):\s+(.+)$`)
	dependenciesRe  = regexp.MustCompile(`^-\s+\*\*Dependencies\*\*:\s*(.*)$`)
	updatedAtRe     = regexp.MustCompile(`^-\s+\*\*Updated At\*\*:\s*(.*)$`)
	statusLineRe    = regexp.MustCompile(`^-\s+\*\*Status\*\*:\s*\[([ xX~>\-])\]\s*(.*)$`)
	filesLineRe     = regexp.MustCompile("^-\\s+\\*\\*Files\\*\\*:\\s*`(.*)`\\s*$")
	verifyLineRe    = regexp.MustCompile("^-\\s+\\*\\*Verify\\*\\*:\\s*`(.*)`\\s*$")
	doneWhenRe      = regexp.MustCompile(`^-\s+\*\*Done When\*\*:\s*(.*)$`)
	actionRe        = regexp.MustCompile(`^-\s+\*\*Action\*\*:\s*(.*)$`)
	anyFieldOrHdrRe = regexp.MustCompile(`^(-\s+\*\*[^*]+\*\*:|###\s|##\s)`)
	strictDateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	leadingWaveRe   = regexp.MustCompile(`(?i)^wave\s+`)
	leadingTaskRe   = regexp.MustCompile(`(?i)^task\s+`)
)

type waveBuilder struct {
	wave          Wave
	sawDependsOn  bool
	missingDeps   bool
}

// ParseEnhanced parses the wave-based enhanced tasks.md format with a
// line-based state machine over `## Wave N`, `## Checkpoints`,
// `### Task <id>: <name>` headers and their sibling `- **Field**:` bullets.
func ParseEnhanced(content string) ParseResult {
	var result ParseResult
	result.Format = Enhanced

	var diags []Diagnostic
	var waves []Wave
	var tasksOut []Task

	var currentWave *int
	inCheckpoints := false
	var wb *waveBuilder

	var curTask *Task
	inAction := false
	var actionLines []string
	curSawStatus := false
	var statusSeen []bool

	flushTask := func() {
		if curTask == nil {
			return
		}
		if inAction {
			curTask.Action = strings.TrimRight(strings.Join(actionLines, "\n"), "\n")
		}
		tasksOut = append(tasksOut, *curTask)
		statusSeen = append(statusSeen, curSawStatus)
		curTask = nil
		inAction = false
		actionLines = nil
		curSawStatus = false
	}

	flushWave := func() {
		if wb == nil {
			return
		}
		if !wb.sawDependsOn {
			diags = append(diags, Diagnostic{
				Level:   Error,
				Message: "wave " + strconv.Itoa(wb.wave.Number) + " is missing a Depends On line",
				Line:    wb.wave.HeaderLine,
			})
			for n := 1; n < wb.wave.Number; n++ {
				wb.wave.DependsOn = append(wb.wave.DependsOn, n)
			}
		}
		waves = append(waves, wb.wave)
		wb = nil
	}

	lines := strings.Split(content, "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if m := checkpointsRe.FindStringSubmatch(trimmed); m != nil {
			flushTask()
			flushWave()
			inCheckpoints = true
			currentWave = nil
			continue
		}

		if m := waveHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flushTask()
			flushWave()
			inCheckpoints = false
			num, _ := strconv.Atoi(m[1])
			title := strings.TrimSpace(m[2])
			n := num
			currentWave = &n
			wb = &waveBuilder{wave: Wave{Number: num, Title: title, HeaderLine: i}}
			continue
		}

		if wb != nil && !wb.sawDependsOn {
			if m := dependsOnRe.FindStringSubmatch(trimmed); m != nil {
				wb.sawDependsOn = true
				expr := strings.TrimSpace(m[1])
				wb.wave.DependsOn = parseWaveDeps(expr)
				continue
			}
		} else if m := dependsOnRe.FindStringSubmatch(trimmed); m != nil && wb != nil && wb.sawDependsOn {
			diags = append(diags, Diagnostic{
				Level:   Warning,
				Message: "duplicate Depends On line for wave " + strconv.Itoa(wb.wave.Number) + ", first wins",
				Line:    i,
			})
			_ = m
			continue
		}

		if m := taskHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flushTask()
			id := strings.TrimSpace(m[1])
			name := strings.TrimSpace(m[2])
			kind := Normal
			if inCheckpoints {
				kind = CheckpointKind
			}
			if currentWave == nil && !inCheckpoints {
				diags = append(diags, Diagnostic{
					Level:   Warning,
					Message: "task " + id + " appears outside any wave",
					TaskID:  id,
					Line:    i,
				})
			}
			t := Task{
				ID:        id,
				Name:      name,
				Status:    Pending,
				Kind:      kind,
				LineIndex: i,
			}
			if currentWave != nil {
				w := *currentWave
				t.Wave = &w
			}
			curTask = &t
			inAction = false
			actionLines = nil

			// Missing Status/Updated At are detected at flush time by
			// checking whether they were ever set; track via sentinels.
			curTask.UpdatedAt = ""
			continue
		}

		if curTask == nil {
			continue
		}

		if inAction {
			if anyFieldOrHdrRe.MatchString(trimmed) {
				inAction = false
			} else {
				actionLines = append(actionLines, line)
				continue
			}
		}

		if m := actionRe.FindStringSubmatch(trimmed); m != nil {
			inAction = true
			rest := strings.TrimSpace(m[1])
			actionLines = nil
			if rest != "" {
				actionLines = append(actionLines, rest)
			}
			continue
		}

		if m := dependenciesRe.FindStringSubmatch(trimmed); m != nil {
			curTask.Dependencies = parseTaskDeps(m[1])
			continue
		}

		if m := updatedAtRe.FindStringSubmatch(trimmed); m != nil {
			v := strings.TrimSpace(m[1])
			if !strictDateRe.MatchString(v) {
				diags = append(diags, Diagnostic{
					Level:   Error,
					Message: "task " + curTask.ID + " has an invalid Updated At date: " + v,
					TaskID:  curTask.ID,
					Line:    i,
				})
			} else {
				curTask.UpdatedAt = v
			}
			continue
		}

		if m := statusLineRe.FindStringSubmatch(trimmed); m != nil {
			marker := m[1]
			label := strings.TrimSpace(m[2])
			status, ok := statusFromLabel(label)
			if !ok {
				status = Pending
			}
			if markerMismatch(marker, status) {
				diags = append(diags, Diagnostic{
					Level:   Warning,
					Message: "task " + curTask.ID + " marker does not match status label; status label governs",
					TaskID:  curTask.ID,
					Line:    i,
				})
			}
			curTask.Status = status
			curSawStatus = true
			continue
		}

		if m := filesLineRe.FindStringSubmatch(trimmed); m != nil {
			curTask.Files = splitCSV(m[1])
			continue
		}

		if m := verifyLineRe.FindStringSubmatch(trimmed); m != nil {
			curTask.VerifyCmd = strings.TrimSpace(m[1])
			continue
		}

		if m := doneWhenRe.FindStringSubmatch(trimmed); m != nil {
			curTask.DoneWhen = strings.TrimSpace(m[1])
			continue
		}
	}

	flushTask()
	flushWave()

	// Missing Updated At / Status detection: a task whose UpdatedAt is empty
	// never saw an Updated At line; a task for which no Status line was ever
	// matched defaults to Pending in memory but is flagged here.
	for idx := range tasksOut {
		t := &tasksOut[idx]
		if t.UpdatedAt == "" {
			diags = append(diags, Diagnostic{
				Level:   Error,
				Message: "task " + t.ID + " is missing Updated At",
				TaskID:  t.ID,
				Line:    t.LineIndex,
			})
		}
		if !statusSeen[idx] {
			diags = append(diags, Diagnostic{
				Level:   Error,
				Message: "task " + t.ID + " is missing Status",
				TaskID:  t.ID,
				Line:    t.LineIndex,
			})
		}
	}

	result.Tasks = tasksOut
	result.Waves = waves
	result.Diagnostics = append(diags, validateRelational(tasksOut, waves)...)
	result.Progress = ComputeProgress(tasksOut)
	return result
}

func statusFromLabel(label string) (Status, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	switch l {
	case "complete", "done":
		return Complete, true
	case "in-progress", "in progress", "in_progress":
		return InProgress, true
	case "shelved":
		return Shelved, true
	case "pending", "":
		return Pending, true
	default:
		return Pending, false
	}
}

func markerMismatch(marker string, status Status) bool {
	switch marker {
	case "x", "X":
		return status != Complete
	case "-":
		return status != Shelved
	case " ":
		return status != Pending && status != InProgress && status != Shelved
	default:
		return false
	}
}

func parseWaveDeps(expr string) []int {
	l := strings.ToLower(strings.TrimSpace(expr))
	if l == "" || l == "none" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(expr, ",") {
		p := strings.TrimSpace(part)
		p = leadingWaveRe.ReplaceAllString(p, "")
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parseTaskDeps(expr string) []string {
	l := strings.ToLower(strings.TrimSpace(expr))
	switch l {
	case "", "none", "all previous waves", "all prior tasks":
		return nil
	}
	var out []string
	for _, part := range strings.Split(expr, ",") {
		p := strings.TrimSpace(part)
		p = leadingTaskRe.ReplaceAllString(p, "")
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
