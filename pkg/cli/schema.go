package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect a change's artifact schema",
}

var schemaStatusCmd = &cobra.Command{
	Use:   "status <change>",
	Short: "Show artifact completion status for a change",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaStatus,
}

var schemaOrderCmd = &cobra.Command{
	Use:   "order <change>",
	Short: "Print the artifact build order for a change",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaOrder,
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply-status <change>",
	Short: "Show whether a change is ready for its apply phase",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaApplyStatus,
}

func init() {
	schemaCmd.AddCommand(schemaStatusCmd, schemaOrderCmd, schemaApplyCmd)
	rootCmd.AddCommand(schemaCmd)
}

func resolveChangeSchema(itoPath, changeID string) (schema.Resolved, string, error) {
	changeDir, err := itopath.ChangeDir(itoPath, changeID)
	if err != nil {
		return schema.Resolved{}, "", err
	}

	name := ""
	metaPath, err := itopath.ChangeMetaPath(itoPath, changeID)
	if err == nil {
		if raw, readErr := os.ReadFile(metaPath); readErr == nil {
			var meta changeMeta
			if yaml.Unmarshal(raw, &meta) == nil {
				name = meta.Schema
			}
		}
	}

	resolved, err := schema.Resolve(name, itoPath, homeDirOrEmpty())
	if err != nil {
		return schema.Resolved{}, "", fmt.Errorf("resolve schema: %w", err)
	}
	return resolved, changeDir, nil
}

func runSchemaStatus(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}
	resolved, changeDir, err := resolveChangeSchema(itoPath, changeID)
	if err != nil {
		return err
	}
	status := schema.ComputeChangeStatus(changeID, changeDir, resolved)

	fmt.Printf("%s%s%s using schema %s (%s)\n", changeC, changeID, reset, status.SchemaName, resolved.Source)
	for _, a := range status.Artifacts {
		fmt.Printf("  [%s] %s -> %s\n", a.Status, a.ID, a.OutputPath)
		if len(a.MissingDeps) > 0 {
			fmt.Printf("      waiting on: %v\n", a.MissingDeps)
		}
	}
	if status.IsComplete {
		fmt.Printf("%sall required artifacts present%s\n", dim, reset)
	}
	return nil
}

func runSchemaOrder(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}
	resolved, _, err := resolveChangeSchema(itoPath, changeID)
	if err != nil {
		return err
	}
	for _, id := range schema.BuildOrder(resolved.Schema) {
		fmt.Println(id)
	}
	return nil
}

func runSchemaApplyStatus(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}
	resolved, changeDir, err := resolveChangeSchema(itoPath, changeID)
	if err != nil {
		return err
	}
	status := schema.ComputeApplyStatus(changeID, changeDir, resolved)

	fmt.Printf("%s%s%s: %s\n", changeC, changeID, reset, status.State)
	fmt.Println(status.Instruction)
	if len(status.MissingArtifacts) > 0 {
		fmt.Printf("missing: %v\n", status.MissingArtifacts)
	}
	if status.TracksFile != "" {
		fmt.Printf("tracking %s: %d/%d complete, %d remaining\n",
			filepath.Base(status.TracksFile), status.Progress.Complete, status.Progress.Total, status.Progress.Remaining)
	}
	return nil
}
