package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jamesonstone/ito/internal/audit"
	"github.com/jamesonstone/ito/internal/itopath"
	"github.com/jamesonstone/ito/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and transition tasks within a change",
}

var tasksListCmd = &cobra.Command{
	Use:   "list <change>",
	Short: "List tasks for a change",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksList,
}

var tasksStartCmd = &cobra.Command{
	Use:   "start <change> <task-id>",
	Short: "Mark a task in-progress",
	Args:  cobra.ExactArgs(2),
	RunE:  makeTransitionRunner(tasks.Start),
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <change> <task-id>",
	Short: "Mark a task complete",
	Args:  cobra.ExactArgs(2),
	RunE:  makeTransitionRunner(tasks.CompleteTransition),
}

var tasksShelveCmd = &cobra.Command{
	Use:   "shelve <change> <task-id>",
	Short: "Shelve a task (enhanced format only)",
	Args:  cobra.ExactArgs(2),
	RunE:  makeTransitionRunner(tasks.ShelveTransition),
}

var tasksUnshelveCmd = &cobra.Command{
	Use:   "unshelve <change> <task-id>",
	Short: "Return a shelved task to pending",
	Args:  cobra.ExactArgs(2),
	RunE:  makeTransitionRunner(tasks.UnshelveTransition),
}

var tasksWatch bool

func init() {
	tasksListCmd.Flags().BoolVar(&tasksWatch, "watch", false, "reprint the list whenever tasks.md changes, until interrupted")
	tasksCmd.AddCommand(tasksListCmd, tasksStartCmd, tasksDoneCmd, tasksShelveCmd, tasksUnshelveCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	_, itoPath, err := findItoRoot()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeArg(itoPath, args[0], false)
	if err != nil {
		return err
	}
	path, err := itopath.TasksPath(itoPath, changeID)
	if err != nil {
		return err
	}

	if err := printTasksList(path); err != nil {
		return err
	}
	if !tasksWatch {
		return nil
	}
	return watchTasksList(path)
}

func printTasksList(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tasks.md: %w", err)
	}
	result := tasks.Parse(string(content))

	for _, t := range result.Tasks {
		marker := "-"
		switch t.Status {
		case tasks.Complete:
			marker = "x"
		case tasks.InProgress:
			marker = "~"
		case tasks.Shelved:
			marker = "s"
		}
		fmt.Printf("[%s] %s %s%s%s\n", marker, t.ID, taskC, t.Name, reset)
	}
	p := result.Progress
	fmt.Printf("%s%d/%d complete, %d remaining%s\n", dim, p.Complete, p.Total, p.Remaining, reset)
	for _, d := range result.Diagnostics {
		fmt.Printf("%s%s: %s%s\n", dim, d.Level, d.Message, reset)
	}
	return nil
}

// watchTasksList reprints the task list on every write/rename touching
// tasks.md, until Ctrl-C. Editors commonly replace the file rather than
// write in place, so the watch is registered on the parent directory and
// filtered to the file's own name.
func watchTasksList(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	name := filepath.Base(path)
	for {
		select {
		case <-sigCh:
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("%swatch error: %v%s\n", dim, err, reset)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fmt.Println(dim + "---" + reset)
			if err := printTasksList(path); err != nil {
				fmt.Printf("%s%v%s\n", dim, err, reset)
			}
		}
	}
}

// makeTransitionRunner builds a cobra RunE that applies one task transition
// kind and appends exactly one task.status_change audit event on success:
// tasks.Transition itself is pure and never touches the audit log.
func makeTransitionRunner(kind tasks.TransitionKind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		repoRoot, itoPath, err := findItoRoot()
		if err != nil {
			return err
		}
		changeID, err := resolveChangeArg(itoPath, args[0], false)
		if err != nil {
			return err
		}
		taskID := args[1]

		path, err := itopath.TasksPath(itoPath, changeID)
		if err != nil {
			return err
		}

		before := tasks.Status("")
		if raw, err := os.ReadFile(path); err == nil {
			if t, ok := tasks.Parse(string(raw)).TaskByID(taskID); ok {
				before = t.Status
			}
		}

		task, _, err := tasks.Transition(path, taskID, kind, time.Now())
		if err != nil {
			return err
		}

		builder, logPath, err := newAuditBuilder(repoRoot, itoPath, audit.ActorCLI)
		if err != nil {
			return err
		}
		event := builder.Build(audit.EntityTask, taskID, changeID, audit.OpStatusChange, string(before), string(task.Status), nil)
		if err := audit.Append(logPath, event); err != nil {
			return fmt.Errorf("append audit event: %w", err)
		}

		fmt.Printf("%s%s%s %s → %s%s%s\n", changeC, changeID, reset, taskID, taskC, task.Status, reset)
		return nil
	}
}
