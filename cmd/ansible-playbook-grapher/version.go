package main

import (
	"fmt"

	"github.com/spf13/cobra"

	grapher "github.com/haidaraM/ansible-playbook-grapher"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), grapher.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
