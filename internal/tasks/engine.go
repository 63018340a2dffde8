package tasks

import "fmt"

// IsReady reports whether task is ready to start under the enhanced-format
// dependency and wave-ordering rules, along with human-readable blocker strings when it
// is not. Checkpoint tasks are never auto-ready.
func IsReady(task Task, result ParseResult) (bool, []string) {
	if task.Status != Pending {
		return false, nil
	}
	if task.Kind == CheckpointKind {
		return false, []string{"task " + task.ID + " is a checkpoint and requires explicit approval"}
	}

	var blockers []string
	byID := make(map[string]Task, len(result.Tasks))
	for _, t := range result.Tasks {
		byID[t.ID] = t
	}
	for _, dep := range task.Dependencies {
		dt, ok := byID[dep]
		if !ok {
			blockers = append(blockers, fmt.Sprintf("missing task %s", dep))
			continue
		}
		if dt.Status != Complete {
			blockers = append(blockers, fmt.Sprintf("task %s is not complete", dep))
		}
	}

	if task.Wave != nil {
		waveByNum := make(map[int]Wave, len(result.Waves))
		for _, w := range result.Waves {
			waveByNum[w.Number] = w
		}
		if w, ok := waveByNum[*task.Wave]; ok {
			for _, priorWave := range w.DependsOn {
				if !waveFullyDone(result, priorWave) {
					blockers = append(blockers, fmt.Sprintf("wave %d is not complete", priorWave))
				}
			}
		}
	}

	return len(blockers) == 0, blockers
}

func waveFullyDone(result ParseResult, waveNum int) bool {
	for _, t := range result.Tasks {
		if t.Wave == nil || *t.Wave != waveNum {
			continue
		}
		if t.Status != Complete && t.Status != Shelved {
			return false
		}
	}
	return true
}

// ReadySet returns the set of task ids currently ready to start.
func ReadySet(result ParseResult) map[string]bool {
	ready := make(map[string]bool)
	for _, t := range result.Tasks {
		if ok, _ := IsReady(t, result); ok {
			ready[t.ID] = true
		}
	}
	return ready
}

// Blocked reports whether a task is blocked: not done and not ready.
func Blocked(task Task, result ParseResult) (bool, []string) {
	if task.Status == Complete {
		return false, nil
	}
	ready, blockers := IsReady(task, result)
	if ready {
		return false, nil
	}
	return true, blockers
}
