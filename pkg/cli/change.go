package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesonstone/ito/internal/audit"
	"github.com/jamesonstone/ito/internal/coordgit"
	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/schema"
)

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Create, list, and archive changes",
}

var changeNewSchema string
var changeNewSlug string
var changeNewBranch string

var changeNewCmd = &cobra.Command{
	Use:   "new <module>",
	Short: "Create a new change under a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runChangeNew,
}

var changeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active changes",
	RunE:  runChangeList,
}

var changeArchiveCmd = &cobra.Command{
	Use:   "archive <change>",
	Short: "Archive a completed change",
	Args:  cobra.ExactArgs(1),
	RunE:  runChangeArchive,
}

func init() {
	changeNewCmd.Flags().StringVar(&changeNewSchema, "schema", "", "schema name to apply (default: "+schema.DefaultName+")")
	changeNewCmd.Flags().StringVar(&changeNewSlug, "slug", "", "optional slug suffix for the change id")
	changeNewCmd.Flags().StringVar(&changeNewBranch, "coordination-branch", "", "reserve the change on this coordination branch")

	changeCmd.AddCommand(changeNewCmd, changeListCmd, changeArchiveCmd)
	rootCmd.AddCommand(changeCmd)
}

// changeMeta is the decoded form of a change's .ito.yaml sidecar.
type changeMeta struct {
	Schema string `yaml:"schema,omitempty"`
}

func runChangeNew(cmd *cobra.Command, args []string) error {
	moduleInput := args[0]
	if !itopath.IsSafeSegment(moduleInput) {
		return fmt.Errorf("invalid module id: %q", moduleInput)
	}
	modNum, err := strconv.Atoi(moduleInput)
	if err != nil {
		return fmt.Errorf("module id must be numeric, got %q", moduleInput)
	}
	module := fmt.Sprintf("%03d", modNum)

	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}

	number, err := nextChangeNumber(itoPath, module)
	if err != nil {
		return err
	}
	changeID := fmt.Sprintf("%s-%02d", module, number)
	if changeNewSlug != "" {
		changeID += "_" + changeNewSlug
	}

	changeDir, err := itopath.ChangeDir(itoPath, changeID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(changeDir, 0o755); err != nil {
		return fmt.Errorf("create change directory: %w", err)
	}

	schemaName := changeNewSchema
	if schemaName != "" {
		metaPath, err := itopath.ChangeMetaPath(itoPath, changeID)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(changeMeta{Schema: schemaName})
		if err != nil {
			return err
		}
		if err := os.WriteFile(metaPath, data, 0o644); err != nil {
			return fmt.Errorf("write .ito.yaml: %w", err)
		}
	}

	resolved, err := schema.Resolve(schemaName, itoPath, homeDirOrEmpty())
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}

	builder, logPath, err := newAuditBuilder(repoRoot, itoPath, audit.ActorCLI)
	if err != nil {
		return err
	}
	event := builder.Build(audit.EntityChange, changeID, "", audit.OpCreate, "", "", map[string]any{
		"module": module,
		"schema": resolved.Schema.Name,
	})
	if err := audit.Append(logPath, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	if changeNewBranch != "" {
		if err := coordgit.ReserveChange(repoRoot, itoPath, changeID, changeNewBranch); err != nil {
			return fmt.Errorf("reserve change on coordination branch: %w", err)
		}
	}

	fmt.Printf("%sCreated change %s%s (schema: %s)\n", changeC, changeID, reset, resolved.Schema.Name)
	return nil
}

// nextChangeNumber scans existing active and archived changes under module
// and returns the lowest unused two-digit change number.
func nextChangeNumber(itoPath, module string) (int, error) {
	active, archived, err := listChangeNames(itoPath)
	if err != nil {
		return 0, err
	}
	used := map[int]bool{}
	for _, name := range append(active, archived...) {
		id, ok := itopath.ParseChangeID(name)
		if !ok || id.Module != module {
			continue
		}
		n, err := strconv.Atoi(id.Number)
		if err == nil {
			used[n] = true
		}
	}
	for n := 1; n < 100; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, fmt.Errorf("module %s has no free change numbers", module)
}

func runChangeList(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	active, _, err := listChangeNames(itoPath)
	if err != nil {
		return err
	}
	sort.Strings(active)
	if len(active) == 0 {
		fmt.Println(dim + "no active changes" + reset)
		return nil
	}
	for _, id := range active {
		fmt.Printf("%s%s%s\n", changeC, id, reset)
	}
	return nil
}

func runChangeArchive(cmd *cobra.Command, args []string) error {
	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}

	srcDir, err := itopath.ChangeDir(itoPath, changeID)
	if err != nil {
		return err
	}
	dstDir, err := itopath.ArchivedChangeDir(itoPath, changeID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstDir), 0o755); err != nil {
		return err
	}
	if err := os.Rename(srcDir, dstDir); err != nil {
		return fmt.Errorf("archive %s: %w", changeID, err)
	}

	builder, logPath, err := newAuditBuilder(repoRoot, itoPath, audit.ActorCLI)
	if err != nil {
		return err
	}
	if err := audit.Append(logPath, builder.Build(audit.EntityChange, changeID, "", audit.OpArchive, "", "", nil)); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	fmt.Printf("%sArchived %s%s\n", changeC, changeID, reset)
	return nil
}

func homeDirOrEmpty() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
