package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesonstone/ito/internal/coordgit"
)

var coordinateCmd = &cobra.Command{
	Use:   "coordinate",
	Short: "Reserve changes on a shared coordination branch",
}

var coordinateReserveCmd = &cobra.Command{
	Use:   "reserve <change> <branch>",
	Short: "Atomically publish a change directory onto a coordination branch",
	Args:  cobra.ExactArgs(2),
	RunE:  runCoordinateReserve,
}

func init() {
	coordinateCmd.AddCommand(coordinateReserveCmd)
	rootCmd.AddCommand(coordinateCmd)
}

func runCoordinateReserve(cmd *cobra.Command, args []string) error {
	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}
	branch := args[1]

	if err := coordgit.ReserveChange(repoRoot, itoPath, changeID, branch); err != nil {
		return err
	}
	fmt.Printf("%sReserved %s on %s%s\n", changeC, changeID, branch, reset)
	return nil
}
