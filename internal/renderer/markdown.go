package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// Summary renders a Markdown report of the playbooks: one plays table
// with per-section task counts, then the roles with their usage counts.
// The output is meant for CI job summaries and for the summary command,
// which runs it through a terminal Markdown renderer on a TTY.
func Summary(playbooks []*graph.PlaybookNode) string {
	var sb strings.Builder
	sb.WriteString("# Playbook summary\n")

	for _, pb := range playbooks {
		fmt.Fprintf(&sb, "\n## %s\n\n", pb.Name())

		sb.WriteString("| Play | Pre tasks | Roles | Tasks | Post tasks | Handlers |\n")
		sb.WriteString("| --- | ---: | ---: | ---: | ---: | ---: |\n")
		for _, play := range pb.Plays {
			fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %d |\n",
				play.Name(),
				countTasks(play.PreTasks),
				len(play.Roles),
				countTasks(play.Tasks),
				countTasks(play.PostTasks),
				len(play.Handlers))
		}

		usage := roleUsage(pb)
		if len(usage) > 0 {
			sb.WriteString("\n### Roles\n\n")
			sb.WriteString("| Role | Usages |\n")
			sb.WriteString("| --- | ---: |\n")
			names := make([]string, 0, len(usage))
			for name := range usage {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(&sb, "| %s | %d |\n", name, usage[name])
			}
		}
	}
	return sb.String()
}

// countTasks counts the task leaves in a section, looking through
// blocks and expanded roles.
func countTasks(nodes []graph.Node) int {
	count := 0
	for _, n := range nodes {
		switch t := n.(type) {
		case *graph.BlockNode:
			count += countTasks(t.Tasks)
		case *graph.RoleNode:
			count += countTasks(t.Tasks)
		default:
			count++
		}
	}
	return count
}

// roleUsage counts how many call sites reference each role name. A
// node shared after grouping still counts once per site it is reached
// from, since the walk follows every parent edge.
func roleUsage(pb *graph.PlaybookNode) map[string]int {
	usage := map[string]int{}
	graph.Walk(pb, func(v graph.Visit) bool {
		if role, ok := v.Node.(*graph.RoleNode); ok {
			usage[role.Name()]++
		}
		return true
	})
	return usage
}
