package main

import (
	"github.com/spf13/cobra"

	grapher "github.com/haidaraM/ansible-playbook-grapher"
)

// addBuildFlags registers the flags shared by every command that
// builds a graph.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("tags", "t", nil, "Only graph tasks tagged with these values")
	cmd.Flags().StringSlice("skip-tags", nil, "Leave out tasks tagged with these values")
	cmd.Flags().StringSlice("exclude-roles", nil, "Leave out these roles wherever they are used")
	cmd.Flags().Bool("include-role-tasks", false, "Expand the tasks of roles and dynamic includes")
	cmd.Flags().Bool("group-roles-by-name", false, "Merge every usage of a role into one node")
	cmd.Flags().Bool("show-handlers", false, "Resolve notify declarations into handler nodes")
	cmd.Flags().Bool("hide-empty-plays", false, "Drop roles, blocks and plays left empty after filtering")
	cmd.Flags().Bool("hide-plays-without-roles", false, "Drop plays that use no roles")
	cmd.Flags().StringSlice("roles-path", nil, "Extra directories searched for roles")
}

// buildOptions assembles the library options from the command's flags
// and positional playbook arguments.
func buildOptions(cmd *cobra.Command, playbooks []string) grapher.Options {
	tags, _ := cmd.Flags().GetStringSlice("tags")
	skipTags, _ := cmd.Flags().GetStringSlice("skip-tags")
	excludeRoles, _ := cmd.Flags().GetStringSlice("exclude-roles")
	includeRoleTasks, _ := cmd.Flags().GetBool("include-role-tasks")
	groupRoles, _ := cmd.Flags().GetBool("group-roles-by-name")
	showHandlers, _ := cmd.Flags().GetBool("show-handlers")
	hideEmpty, _ := cmd.Flags().GetBool("hide-empty-plays")
	hideWithoutRoles, _ := cmd.Flags().GetBool("hide-plays-without-roles")
	rolesPath, _ := cmd.Flags().GetStringSlice("roles-path")

	return grapher.Options{
		Playbooks:             playbooks,
		Tags:                  tags,
		SkipTags:              skipTags,
		ExcludeRoles:          excludeRoles,
		RolesPaths:            rolesPath,
		IncludeRoleTasks:      includeRoleTasks,
		GroupRolesByName:      groupRoles,
		ShowHandlers:          showHandlers,
		HideEmptyPlays:        hideEmpty,
		HidePlaysWithoutRoles: hideWithoutRoles,
		Logger:                newLogger(cmd),
	}
}
