package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haidaraM/ansible-playbook-grapher/internal/console"
	"github.com/haidaraM/ansible-playbook-grapher/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ansible-playbook-grapher",
	Short: "Draw the execution graph of Ansible playbooks",
	Long: `ansible-playbook-grapher statically analyzes Ansible playbooks and
renders their execution structure (plays, roles, blocks, tasks and
handlers) as Graphviz SVG, Mermaid flowchart markup or JSON.`,
	SilenceErrors: true,
}

// Execute runs the CLI under a signal-cancelled context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		noColor, _ := rootCmd.PersistentFlags().GetBool("no-color")
		console.New(os.Stderr, noColor).Errorf("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountP("verbosity", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbosity, _ := cmd.Flags().GetCount("verbosity")
	return logging.New(logging.FromVerbosity(verbosity))
}

func newConsole(cmd *cobra.Command) *console.Console {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return console.New(os.Stderr, noColor)
}
