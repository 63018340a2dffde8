package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesonstone/ito/internal/itopath"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Ito store in the current directory",
	Long: `Initialize a new Ito store in the current directory.

Creates the .ito directory tree:
  .ito/changes/       — active changes
  .ito/changes/archive/ — archived changes
  .ito/schemas/        — project-level schema overrides
  .ito/.state/          — audit log, ralph state, session id

Safe to run again: existing directories are left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	itoPath := filepath.Join(cwd, itopath.DirName)
	dirs := []string{
		itopath.ChangesRoot(itoPath),
		itopath.ArchiveDir(itoPath),
		itopath.ProjectSchemasDir(itoPath),
		itopath.StateDir(itoPath),
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	fmt.Printf("%sInitialized Ito store at %s%s\n", changeC, itoPath, reset)
	fmt.Println(dim + "Next: ito change new <module> to start your first change" + reset)
	return nil
}
