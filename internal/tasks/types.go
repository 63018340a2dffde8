// Package tasks implements the dual-format tasks.md parser (enhanced
// wave-based and legacy checkbox) and the tasks engine that computes
// readiness and performs atomic status transitions.
package tasks

// Format identifies which tasks.md dialect was detected.
type Format int

const (
	// Checkbox is the legacy "- [ ] Task" format.
	Checkbox Format = iota
	// Enhanced is the wave-based "### Task N: Name" format.
	Enhanced
)

func (f Format) String() string {
	if f == Enhanced {
		return "enhanced"
	}
	return "checkbox"
}

// Status is a task's lifecycle state.
type Status string

const (
	Pending    Status = "pending"
	InProgress Status = "in-progress"
	Complete   Status = "complete"
	Shelved    Status = "shelved"
)

// Kind distinguishes ordinary tasks from checkpoint tasks, which require
// explicit approval and are never auto-ready from dependencies alone.
type Kind int

const (
	Normal Kind = iota
	CheckpointKind
)

// Task is a single unit of work parsed from tasks.md.
type Task struct {
	ID           string
	Name         string
	Wave         *int
	Status       Status
	UpdatedAt    string
	Dependencies []string
	Files        []string
	Action       string
	VerifyCmd    string
	DoneWhen     string
	Kind         Kind
	LineIndex    int
}

// Wave is a `## Wave N` section grouping tasks with a shared dependency on
// earlier waves.
type Wave struct {
	Number     int
	Title      string
	DependsOn  []int
	HeaderLine int
}

// DiagnosticLevel classifies a Diagnostic's severity.
type DiagnosticLevel int

const (
	Warning DiagnosticLevel = iota
	Error
)

func (l DiagnosticLevel) String() string {
	if l == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic reports a parse or validation problem. Error-level diagnostics
// block mutating operations.
type Diagnostic struct {
	Level   DiagnosticLevel
	Message string
	TaskID  string
	Line    int
}

// Progress is the set of derived counters over a parsed task list.
type Progress struct {
	Total      int
	Complete   int
	Shelved    int
	InProgress int
	Pending    int
	Remaining  int
}

// ParseResult is the complete output of parsing a tasks.md file.
type ParseResult struct {
	Format      Format
	Tasks       []Task
	Waves       []Wave
	Diagnostics []Diagnostic
	Progress    Progress
}

// HasErrors reports whether any diagnostic is Error-level.
func (r ParseResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// TaskByID looks up a task by id, returning ok=false if absent.
func (r ParseResult) TaskByID(id string) (Task, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// ComputeProgress derives Progress counters over a set of tasks.
func ComputeProgress(tasks []Task) Progress {
	var p Progress
	p.Total = len(tasks)
	for _, t := range tasks {
		switch t.Status {
		case Complete:
			p.Complete++
		case Shelved:
			p.Shelved++
		case InProgress:
			p.InProgress++
		default:
			p.Pending++
		}
	}
	p.Remaining = p.Total - (p.Complete + p.Shelved)
	return p
}
