// package cli implements the Ito command-line interface.
package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ANSI color codes for consistent theming.
const (
	reset     = "\033[0m"
	dim       = "\033[38;5;245m"
	whiteBold = "\033[1;37m"
	gray      = "\033[38;5;240m"
	moduleC   = "\033[38;5;220m" // gold/yellow
	changeC   = "\033[38;5;39m"  // bright cyan
	taskC     = "\033[38;5;82m"  // bright green
	auditC    = "\033[38;5;213m" // bright pink
	ralphC    = "\033[38;5;208m" // orange
)

// banner returns the Ito ASCII art banner.
func banner() string {
	colors := []string{
		"\033[38;5;39m",
		"\033[38;5;38m",
		"\033[38;5;37m",
		"\033[38;5;36m",
		"\033[38;5;30m",
		"\033[38;5;238m",
	}
	lines := []string{
		"██╗████████╗ ██████╗ ",
		"██║╚══██╔══╝██╔═══██╗",
		"██║   ██║   ██║   ██║",
		"██║   ██║   ██║   ██║",
		"██║   ██║   ╚██████╔╝",
		"╚═╝   ╚═╝    ╚═════╝ ",
	}
	var result string
	for i, line := range lines {
		result += "                              " + colors[i] + line + reset + "\n"
	}
	result += "\n"
	result += "                       " + dim + "Filesystem-backed workflow engine for coding agents" + reset + "\n"
	return result
}

// flowDiagram describes the artifact pipeline a change moves through.
func flowDiagram() string {
	return whiteBold + "Change lifecycle:" + reset + `
` + gray + `┌────────┐    ┌───────┐    ┌────────┐    ┌───────┐    ┌──────────┐` + reset + `
` + gray + `│ ` + moduleC + `Module` + reset + gray + ` │ ─▶ │ ` + changeC + `Change` + reset + gray + ` │ ─▶ │ ` + taskC + `Tasks` + reset + gray + `  │ ─▶ │ ` + ralphC + `Ralph` + reset + gray + ` │ ─▶ │ ` + auditC + `Archived` + reset + gray + ` │` + reset + `
` + gray + `└────────┘    └───────┘    └────────┘    └───────┘    └──────────┘` + reset + `

` + whiteBold + `Artifacts:` + reset + `
  1. ` + moduleC + `Module` + reset + dim + `   — a numbered area of the codebase a set of changes belongs to` + reset + `
  2. ` + changeC + `Change` + reset + dim + `   — one unit of work, tracked under .ito/changes/<id>` + reset + `
  3. ` + taskC + `Tasks` + reset + dim + `    — the change's tasks.md dependency graph` + reset + `
  4. ` + ralphC + `Ralph` + reset + dim + `    — the bounded loop that drives an agent through those tasks` + reset + `
  5. ` + auditC + `Audit` + reset + dim + `    — the append-only event log every mutation is recorded to` + reset
}

var rootCmd = &cobra.Command{
	Use:   "ito",
	Short: "Ito coordinates AI coding agents across a filesystem-backed change log",
	Long: banner() + `
Ito tracks changes, tasks, and artifacts on disk and records every
mutation to an append-only audit log, so multiple agents (and humans)
can work the same project without losing track of who did what.

` + flowDiagram(),
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandOrder defines the display order of commands in help.
var commandOrder = map[string]int{
	"init": 1,

	"change": 10,
	"tasks":  11,
	"schema": 12,

	"validate": 20,
	"audit":    21,

	"ralph": 30,

	"coordinate": 40,

	"completion": 91,
	"help":       92,
}

func init() {
	rootCmd.SetVersionTemplate("ito version {{.Version}}\n")

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		sortByCommandOrder(cmd.Commands())
		defaultHelp(cmd, args)
	})

	defaultUsage := rootCmd.UsageFunc()
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		sortByCommandOrder(cmd.Commands())
		return defaultUsage(cmd)
	})
}

func sortByCommandOrder(cmds []*cobra.Command) {
	sort.SliceStable(cmds, func(i, j int) bool {
		iOrder, iOk := commandOrder[cmds[i].Name()]
		jOrder, jOk := commandOrder[cmds[j].Name()]
		if !iOk {
			iOrder = 50
		}
		if !jOk {
			jOrder = 50
		}
		return iOrder < jOrder
	})
}
