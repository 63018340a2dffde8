package ralph

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/fatih/color"

	"github.com/jamesonstone/ito/internal/audit"
	"github.com/jamesonstone/ito/internal/git"
	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/tasks"
	"github.com/jamesonstone/ito/internal/validate"
)

var promisePattern = regexp.MustCompile(`<promise>\s*(.*?)\s*</promise>`)

// Options configures one invocation of Run. Reporting state and editing the
// saved context are not Options: they are separate calls (LoadState,
// AppendContext, ClearContext) that never run an iteration. Run does not
// read AllowAll or Verbose.
type Options struct {
	RepoRoot          string
	ItoPath           string
	ChangeID          string
	MinIters          int
	MaxIters          int
	Harness           Harness
	Model             string
	NoCommit          bool
	AllowAll          bool
	Verbose           bool
	ErrorThreshold    int
	InactivityTimeout time.Duration
	CommandTimeout    time.Duration
	ExtraValidateCmd  string
	CompletionPromise string
	SkipValidation    bool
	ExitOnError       bool
}

// Result summarizes a completed Run.
type Result struct {
	ChangeID     string
	Iterations   int
	Completed    bool
	LastOutcome  IterationOutcome
	State        *State
}

// defaultErrorThreshold is how many consecutive iteration errors Run
// tolerates before giving up.
const defaultErrorThreshold = 3

// Run drives the bounded iteration loop for one change: compose a prompt,
// invoke the harness, look for the promise token, gate it on validation,
// commit on success, and persist state after every iteration so a crash or
// Ctrl-C mid-run can be resumed from where it left off.
func Run(opts Options) (Result, error) {
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = defaultErrorThreshold
	}
	if opts.MaxIters <= 0 {
		return Result{}, fmt.Errorf("ralph loop: max_iterations must be at least 1")
	}
	if opts.MinIters <= 0 {
		opts.MinIters = 1
	}
	promiseToken := opts.CompletionPromise
	if promiseToken == "" {
		promiseToken = defaultPromiseToken
	}

	state, err := LoadState(opts.ItoPath, opts.ChangeID)
	if err != nil {
		return Result{}, fmt.Errorf("load ralph state: %w", err)
	}
	if state.Completed {
		return Result{ChangeID: opts.ChangeID, Completed: true, State: state}, nil
	}

	tasksPath, err := itopath.TasksPath(opts.ItoPath, opts.ChangeID)
	if err != nil {
		return Result{}, err
	}
	moduleID, _ := itopath.ExtractModuleID(opts.ChangeID)

	guidance, err := LoadUserGuidance(opts.ItoPath)
	if err != nil {
		return Result{}, fmt.Errorf("load user guidance: %w", err)
	}

	sessionID, err := audit.SessionID(itopath.AuditSessionPath(opts.ItoPath))
	if err != nil {
		return Result{}, fmt.Errorf("resolve session id: %w", err)
	}
	builder := audit.NewBuilder(audit.ActorRalph, "ralph", audit.BuildContext(opts.RepoRoot, sessionID, audit.HarnessSessionIDFromEnv()))
	logPath := itopath.AuditLogPath(opts.ItoPath)

	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var lastValidation *validate.Report
	nonZeroExitStreak := 0

	for i := 0; i < opts.MaxIters; i++ {
		iteration := state.Iteration + 1
		fmt.Printf("%s iteration %d for %s\n", cyan("ralph"), iteration, opts.ChangeID)

		tasksContent, err := os.ReadFile(tasksPath)
		if err != nil {
			return Result{}, fmt.Errorf("read tasks.md: %w", err)
		}
		parsed := tasks.Parse(string(tasksContent))

		savedContext, err := ReadContext(opts.ItoPath, opts.ChangeID)
		if err != nil {
			return Result{}, fmt.Errorf("read ralph context: %w", err)
		}

		prompt := BuildPrompt(PromptInputs{
			ChangeID:       opts.ChangeID,
			ModuleID:       moduleID,
			Iteration:      iteration,
			MinIterations:  opts.MinIters,
			MaxIterations:  opts.MaxIters,
			TasksSummary:   TasksSummary(parsed),
			SavedContext:   savedContext,
			LastValidation: lastValidation,
			UserGuidance:   guidance,
			PromiseToken:   promiseToken,
		})

		start := time.Now()
		runResult, err := opts.Harness.Run(RunConfig{
			Prompt:            prompt,
			Model:             opts.Model,
			WorkDir:           opts.RepoRoot,
			InactivityTimeout: opts.InactivityTimeout,
		})
		rec := IterationRecord{Index: iteration, StartedAt: start, EndedAt: time.Now()}

		if err != nil {
			rec.Outcome = OutcomeError
			rec.Note = err.Error()
			state.AppendHistory(rec)
			if saveErr := state.Save(opts.ItoPath); saveErr != nil {
				return Result{}, saveErr
			}
			fmt.Printf("%s iteration %d failed: %s\n", red("ralph"), iteration, err)
			if state.ConsecutiveErr >= opts.ErrorThreshold {
				return Result{ChangeID: opts.ChangeID, Iterations: iteration, LastOutcome: OutcomeError, State: state},
					fmt.Errorf("ralph loop: %d consecutive errors, giving up", state.ConsecutiveErr)
			}
			continue
		}

		if runResult.TimedOut {
			fmt.Printf("%s inactivity timeout reached, restarting iteration %d\n", yellow("ralph"), iteration)
			continue
		}

		rec.ExitCode = runResult.ExitCode

		if runResult.ExitCode != 0 {
			if opts.ExitOnError {
				return Result{ChangeID: opts.ChangeID, Iterations: iteration, LastOutcome: OutcomeError, State: state},
					fmt.Errorf("ralph loop: %s exited %d", opts.Harness.Name(), runResult.ExitCode)
			}
			nonZeroExitStreak++
			if nonZeroExitStreak > opts.ErrorThreshold {
				return Result{ChangeID: opts.ChangeID, Iterations: iteration, LastOutcome: OutcomeError, State: state},
					fmt.Errorf("ralph loop: exceeded non-zero exit threshold (%d)", opts.ErrorThreshold)
			}
			fmt.Printf("%s iteration %d: %s exited %d, continuing\n", yellow("ralph"), iteration, opts.Harness.Name(), runResult.ExitCode)
		} else {
			nonZeroExitStreak = 0
		}

		rec.FilesChanged = git.StatusPorcelainCount(opts.RepoRoot)

		promised := detectPromise(runResult.Stdout, promiseToken)

		if !promised || iteration < opts.MinIters {
			rec.Outcome = OutcomeNoChanges
			if rec.FilesChanged > 0 {
				rec.Outcome = IterationOutcome("in_progress")
			}
			state.AppendHistory(rec)
			if saveErr := state.Save(opts.ItoPath); saveErr != nil {
				return Result{}, saveErr
			}
			if !opts.NoCommit && rec.FilesChanged > 0 {
				commitIterationProgress(opts, iteration)
			}
			lastValidation = nil
			continue
		}

		if opts.SkipValidation {
			lastValidation = nil
		} else {
			report := validate.Run(validate.Options{
				RepoRoot:       opts.RepoRoot,
				ItoPath:        opts.ItoPath,
				TasksPath:      tasksPath,
				ExtraCommand:   opts.ExtraValidateCmd,
				CommandTimeout: opts.CommandTimeout,
			})
			lastValidation = &report

			if !report.Passed() {
				rec.Outcome = OutcomeValidFail
				rec.Note = report.Summary()
				state.AppendHistory(rec)
				if saveErr := state.Save(opts.ItoPath); saveErr != nil {
					return Result{}, saveErr
				}
				fmt.Printf("%s iteration %d promised completion but validation failed\n", yellow("ralph"), iteration)
				if !opts.NoCommit && rec.FilesChanged > 0 {
					commitIterationProgress(opts, iteration)
				}
				continue
			}
		}

		rec.Outcome = OutcomePromise
		if !opts.NoCommit {
			if sha := commitIterationProgress(opts, iteration); sha != "" {
				rec.CommitSHA = sha
			}
		}
		state.Completed = true
		state.AppendHistory(rec)
		if saveErr := state.Save(opts.ItoPath); saveErr != nil {
			return Result{}, saveErr
		}

		if appendErr := audit.Append(logPath, builder.Build(audit.EntityChange, opts.ChangeID, "", audit.OpStatusChange, "", "complete", map[string]any{
			"source": "ralph",
		})); appendErr != nil {
			return Result{}, fmt.Errorf("append completion audit event: %w", appendErr)
		}

		fmt.Printf("%s %s complete after %d iteration(s)\n", green("ralph"), opts.ChangeID, iteration)
		return Result{ChangeID: opts.ChangeID, Iterations: iteration, Completed: true, LastOutcome: OutcomePromise, State: state}, nil
	}

	return Result{ChangeID: opts.ChangeID, Iterations: state.Iteration, LastOutcome: lastOutcome(state), State: state}, nil
}

func detectPromise(stdout, token string) bool {
	matches := promisePattern.FindAllStringSubmatch(stdout, -1)
	for _, m := range matches {
		if m[1] == token {
			return true
		}
	}
	return false
}

// commitIterationProgress stages and commits whatever the iteration
// changed. A "nothing to commit" exit from git is swallowed: it just means
// the agent didn't touch the working tree this round.
func commitIterationProgress(opts Options, iteration int) (sha string) {
	if err := git.AddAll(opts.RepoRoot); err != nil {
		return ""
	}
	message := fmt.Sprintf("ralph: %s iteration %d", opts.ChangeID, iteration)
	if err := git.Commit(opts.RepoRoot, message); err != nil {
		return ""
	}
	return git.CurrentCommitShort(opts.RepoRoot)
}

func lastOutcome(s *State) IterationOutcome {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1].Outcome
}
