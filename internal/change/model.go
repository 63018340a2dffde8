package change

import "time"

// Status is the derived status of a change (spec.md §3).
type Status string

const (
	StatusNoTasks   Status = "no_tasks"
	StatusInProgress Status = "in_progress"
	StatusComplete  Status = "complete"
)

// WorkStatus enumerates a change's coarser-grained workflow stage.
type WorkStatus string

const (
	WorkDraft      WorkStatus = "draft"
	WorkReady      WorkStatus = "ready"
	WorkInProgress WorkStatus = "in_progress"
	WorkPaused     WorkStatus = "paused"
	WorkComplete   WorkStatus = "complete"
)

// TaskCounts tallies tasks by status for a Summary.
type TaskCounts struct {
	Complete   int
	Shelved    int
	InProgress int
	Pending    int
	Total      int
}

// Summary is the change summary described in spec.md §3.
type Summary struct {
	ID          string
	ModuleID    string
	Counts      TaskCounts
	LastModified time.Time
	HasProposal bool
	HasDesign   bool
	HasSpecs    bool
	HasTasks    bool
}

// DeriveStatus computes the change status from task counts, per spec.md §3:
// NoTasks when there are no tasks, Complete when every task is complete or
// shelved, InProgress otherwise.
func DeriveStatus(c TaskCounts) Status {
	if c.Total == 0 {
		return StatusNoTasks
	}
	if c.Complete+c.Shelved == c.Total {
		return StatusComplete
	}
	return StatusInProgress
}

// DeriveWorkStatus computes the coarser work status from summary flags and
// task counts.
func DeriveWorkStatus(s Summary) WorkStatus {
	if !s.HasProposal {
		return WorkDraft
	}
	if !s.HasTasks {
		return WorkReady
	}
	switch DeriveStatus(s.Counts) {
	case StatusComplete:
		return WorkComplete
	case StatusInProgress:
		if s.Counts.InProgress == 0 && s.Counts.Complete+s.Counts.Shelved > 0 {
			return WorkPaused
		}
		return WorkInProgress
	default:
		return WorkReady
	}
}

// Module groups related changes under a 3-digit id.
type Module struct {
	ID      string
	Name    string
	Changes []string
}
