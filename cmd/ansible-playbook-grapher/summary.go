package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	grapher "github.com/haidaraM/ansible-playbook-grapher"
	"github.com/haidaraM/ansible-playbook-grapher/internal/renderer"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <playbook>...",
	Short: "Print a markdown summary of one or more playbooks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSummary,
}

func init() {
	addBuildFlags(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	result, err := grapher.Graph(cmd.Context(), buildOptions(cmd, args))
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	markdown := renderer.Summary(result.Playbooks)
	noColor, _ := cmd.Flags().GetBool("no-color")
	if !noColor && term.IsTerminal(int(os.Stdout.Fd())) {
		tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
		if err == nil {
			if rendered, err := tr.Render(markdown); err == nil {
				markdown = rendered
			}
		}
	}
	fmt.Fprint(os.Stdout, markdown)

	cons := newConsole(cmd)
	for path, buildErr := range result.Failed {
		cons.Errorf("Building %s failed: %v", path, buildErr)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d playbook(s) failed to build", len(result.Failed))
	}
	return nil
}
