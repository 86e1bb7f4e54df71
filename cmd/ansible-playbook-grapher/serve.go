package main

import (
	"github.com/spf13/cobra"

	"github.com/haidaraM/ansible-playbook-grapher/internal/renderer"
	"github.com/haidaraM/ansible-playbook-grapher/internal/viewer"
)

var serveCmd = &cobra.Command{
	Use:   "serve <playbook>...",
	Short: "Serve a live-reloading Mermaid view of the playbooks",
	Long: `Serves the graph over HTTP and watches the playbooks, role files and
included task files for changes. Connected browsers reload as soon as
a rebuild succeeds; a failed rebuild keeps the last good graph.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	addBuildFlags(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "Address to listen on")
	serveCmd.Flags().String("renderer-mermaid-directive", "", "Mermaid directive prepended to the chart")
	serveCmd.Flags().String("renderer-mermaid-orientation", "", "Mermaid flowchart orientation (default LR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	directive, _ := cmd.Flags().GetString("renderer-mermaid-directive")
	orientation, _ := cmd.Flags().GetString("renderer-mermaid-orientation")
	addr, _ := cmd.Flags().GetString("listen")

	s := viewer.New(buildOptions(cmd, args), renderer.MermaidOptions{
		Directive:   directive,
		Orientation: orientation,
	}, newLogger(cmd))

	cmd.SilenceUsage = true
	newConsole(cmd).Infof("Serving the graph on %s", addr)
	return s.Run(cmd.Context(), addr)
}
