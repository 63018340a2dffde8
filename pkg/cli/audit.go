package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesonstone/ito/internal/audit"
	"github.com/jamesonstone/ito/internal/coordgit"
	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/tasks"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and reconcile the audit event log",
}

var auditAllWorktrees bool

var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Print every recorded audit event",
	RunE:  runAuditLog,
}

var auditReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Diff audit history against on-disk task state and append compensating events",
	RunE:  runAuditReconcile,
}

func init() {
	auditLogCmd.Flags().BoolVar(&auditAllWorktrees, "all-worktrees", false, "merge audit history from every linked git worktree, not just this one")
	auditCmd.AddCommand(auditLogCmd, auditReconcileCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}

	if !auditAllWorktrees {
		events, err := audit.ReadAll(itopath.AuditLogPath(itoPath))
		if err != nil {
			return fmt.Errorf("read audit log: %w", err)
		}
		for _, e := range events {
			printAuditEvent(e, "")
		}
		return nil
	}

	worktrees, err := coordgit.ListWorktrees(repoRoot)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	relIto, err := itoPathRelativeTo(repoRoot, itoPath)
	if err != nil {
		return err
	}
	tagged, err := coordgit.ScanWorktreeAudits(context.Background(), worktrees, relIto, 0)
	if err != nil {
		return fmt.Errorf("scan worktree audit logs: %w", err)
	}
	for _, t := range tagged {
		printAuditEvent(t.Event, t.Worktree.Name)
	}
	return nil
}

func printAuditEvent(e audit.Event, worktree string) {
	fmt.Printf("%s%s%s %-8s %s/%s", dim, e.TS.Format("2006-01-02T15:04:05.000Z"), reset, e.Op, e.Entity, e.EntityID)
	if e.Scope != "" {
		fmt.Printf("@%s", e.Scope)
	}
	if e.From != "" || e.To != "" {
		fmt.Printf(" %s->%s", e.From, e.To)
	}
	fmt.Printf(" (%s:%s)", e.Actor, e.By)
	if worktree != "" {
		fmt.Printf(" [%s]", worktree)
	}
	fmt.Println()
}

func runAuditReconcile(cmd *cobra.Command, args []string) error {
	repoRoot, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	active, _, err := listChangeNames(itoPath)
	if err != nil {
		return err
	}

	fileState := map[audit.EntityKey]string{}
	for _, changeID := range active {
		fileState[audit.EntityKey{Entity: audit.EntityChange, EntityID: changeID}] = "active"

		tasksPath, err := itopath.TasksPath(itoPath, changeID)
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(tasksPath)
		if err != nil {
			continue
		}
		for _, t := range tasks.Parse(string(raw)).Tasks {
			key := audit.EntityKey{Entity: audit.EntityTask, EntityID: t.ID, Scope: changeID}
			fileState[key] = string(t.Status)
		}
	}

	builder, logPath, err := newAuditBuilder(repoRoot, itoPath, audit.ActorReconcile)
	if err != nil {
		return err
	}
	drifts, err := audit.Reconcile(logPath, fileState, builder)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	if len(drifts) == 0 {
		fmt.Println(dim + "no drift found" + reset)
		return nil
	}
	for _, d := range drifts {
		fmt.Printf("%s %s/%s", driftKindLabel(d.Kind), d.Key.Entity, d.Key.EntityID)
		if d.Key.Scope != "" {
			fmt.Printf("@%s", d.Key.Scope)
		}
		fmt.Printf(" log=%q file=%q\n", d.LogStatus, d.FileStatus)
	}
	return nil
}

func driftKindLabel(k audit.DriftKind) string {
	switch k {
	case audit.Missing:
		return "missing"
	case audit.Diverged:
		return "diverged"
	case audit.Extra:
		return "extra"
	default:
		return "unknown"
	}
}
