package main

import (
	"github.com/spf13/cobra"

	"github.com/haidaraM/ansible-playbook-grapher/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the grapher as an MCP server over stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout so agents can
graph and summarize playbooks as tools. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return mcpserver.New(newLogger(cmd)).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
