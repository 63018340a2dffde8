package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesonstone/ito/internal/ralph"
)

var ralphCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Drive the bounded agent loop against a change",
}

var (
	ralphMinIters       int
	ralphMaxIters       int
	ralphBinary         string
	ralphModel          string
	ralphNoCommit       bool
	ralphAllowAll       bool
	ralphVerbose        bool
	ralphErrorThreshold int
	ralphInactivity     time.Duration
	ralphExtraValidate  string
	ralphCompletionTok  string
	ralphSkipValidation bool
	ralphExitOnError    bool
)

var ralphRunCmd = &cobra.Command{
	Use:   "run <target>",
	Short: "Run the loop against a change id or module id",
	Long:  "Run the loop against a change id, or a module id when that module has exactly one active change.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRalphRun,
}

var ralphStatusCmd = &cobra.Command{
	Use:   "status <target>",
	Short: "Show persisted loop state for a change",
	Args:  cobra.ExactArgs(1),
	RunE:  runRalphStatus,
}

var ralphAddContextCmd = &cobra.Command{
	Use:   "add-context <target> <text>",
	Short: "Append a note to the change's saved context, carried into future prompts",
	Args:  cobra.ExactArgs(2),
	RunE:  runRalphAddContext,
}

var ralphClearContextCmd = &cobra.Command{
	Use:   "clear-context <target>",
	Short: "Clear the change's saved context",
	Args:  cobra.ExactArgs(1),
	RunE:  runRalphClearContext,
}

func init() {
	ralphRunCmd.Flags().IntVar(&ralphMinIters, "min-iterations", 1, "minimum iterations before a promise is accepted")
	ralphRunCmd.Flags().IntVar(&ralphMaxIters, "max-iterations", 10, "maximum iterations to run before stopping")
	ralphRunCmd.Flags().StringVar(&ralphBinary, "binary", "claude", "coding agent binary to invoke")
	ralphRunCmd.Flags().StringVar(&ralphModel, "model", "", "model identifier to pass to the harness")
	ralphRunCmd.Flags().BoolVar(&ralphNoCommit, "no-commit", false, "do not commit changes after each iteration")
	ralphRunCmd.Flags().BoolVar(&ralphAllowAll, "allow-all", false, "grant the harness unrestricted tool permissions")
	ralphRunCmd.Flags().BoolVarP(&ralphVerbose, "verbose", "v", false, "passed to the loop as Options.Verbose; the loop does not read it")
	ralphRunCmd.Flags().IntVar(&ralphErrorThreshold, "error-threshold", 0, "consecutive iteration errors tolerated before giving up (0 = default)")
	ralphRunCmd.Flags().DurationVar(&ralphInactivity, "inactivity-timeout", 10*time.Minute, "kill the harness if it produces no output for this long")
	ralphRunCmd.Flags().StringVar(&ralphExtraValidate, "validate-command", "", "extra shell command to run as part of the validation gate")
	ralphRunCmd.Flags().StringVar(&ralphCompletionTok, "completion-promise", "", "override the literal token the harness must echo inside <promise> tags")
	ralphRunCmd.Flags().BoolVar(&ralphSkipValidation, "skip-validation", false, "accept a promise without running the validation gate")
	ralphRunCmd.Flags().BoolVar(&ralphExitOnError, "exit-on-error", false, "fail immediately on the first non-zero harness exit instead of tolerating a threshold")

	ralphCmd.AddCommand(ralphRunCmd, ralphStatusCmd, ralphAddContextCmd, ralphClearContextCmd)
	rootCmd.AddCommand(ralphCmd)
}

func runRalphRun(cmd *cobra.Command, args []string) error {
	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := ralph.ResolveTarget(itoPath, args[0])
	if err != nil {
		return err
	}

	harnessArgs := []string{}
	if ralphAllowAll {
		harnessArgs = append(harnessArgs, "--dangerously-allow-all")
	}
	if ralphModel != "" {
		harnessArgs = append(harnessArgs, "--model", ralphModel)
	}
	harness := ralph.NewProcessHarness(ralphBinary, harnessArgs)

	result, err := ralph.Run(ralph.Options{
		RepoRoot:          repoRoot,
		ItoPath:           itoPath,
		ChangeID:          changeID,
		MinIters:          ralphMinIters,
		MaxIters:          ralphMaxIters,
		Harness:           harness,
		Model:             ralphModel,
		NoCommit:          ralphNoCommit,
		AllowAll:          ralphAllowAll,
		Verbose:           ralphVerbose,
		ErrorThreshold:    ralphErrorThreshold,
		InactivityTimeout: ralphInactivity,
		ExtraValidateCmd:  ralphExtraValidate,
		CompletionPromise: ralphCompletionTok,
		SkipValidation:    ralphSkipValidation,
		ExitOnError:       ralphExitOnError,
	})
	if err != nil {
		return err
	}
	if !result.Completed {
		return fmt.Errorf("%s not complete after %d iteration(s)", changeID, result.Iterations)
	}
	return nil
}

func runRalphStatus(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := ralph.ResolveTarget(itoPath, args[0])
	if err != nil {
		return err
	}
	state, err := ralph.LoadState(itoPath, changeID)
	if err != nil {
		return err
	}
	fmt.Printf("%s%s%s: iteration %d, completed=%v\n", ralphC, changeID, reset, state.Iteration, state.Completed)
	for _, h := range state.History {
		fmt.Printf("  #%d %s exit=%d files=%d\n", h.Index, h.Outcome, h.ExitCode, h.FilesChanged)
	}
	return nil
}

func runRalphAddContext(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := ralph.ResolveTarget(itoPath, args[0])
	if err != nil {
		return err
	}
	return ralph.AppendContext(itoPath, changeID, args[1])
}

func runRalphClearContext(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := ralph.ResolveTarget(itoPath, args[0])
	if err != nil {
		return err
	}
	return ralph.ClearContext(itoPath, changeID)
}
