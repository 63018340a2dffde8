package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/validate"
)

var validateExtraCmd string
var validateTimeout time.Duration

var validateCmd = &cobra.Command{
	Use:   "validate <change>",
	Short: "Run the validation gate for a change: task completion, project commands, extra command",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateExtraCmd, "command", "", "an additional shell command to run after discovered project commands")
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", validate.DefaultCommandTimeout, "per-command timeout")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}
	tasksPath, err := itopath.TasksPath(itoPath, changeID)
	if err != nil {
		return err
	}

	report := validate.Run(validate.Options{
		RepoRoot:       repoRoot,
		ItoPath:        itoPath,
		TasksPath:      tasksPath,
		ExtraCommand:   validateExtraCmd,
		CommandTimeout: validateTimeout,
	})

	fmt.Println(report.Summary())
	if !report.Passed() {
		return fmt.Errorf("validation failed for %s", changeID)
	}
	return nil
}
