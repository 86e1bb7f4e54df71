/*
Package grapher statically analyzes Ansible playbooks and builds a
graph of their execution structure: plays, roles, blocks, tasks and
handlers, with their ordering, effective conditionals and source
positions. The graph is a best-effort static approximation, nothing is
executed against real infrastructure.

The CLI renders the graph as Graphviz DOT (and SVG through the dot
executable), Mermaid flowchart markup, a JSON document mirroring the
model 1:1, or a Markdown summary.

# Usage

Build the graph through the one entry point and walk the trees:

	package main

	import (
		"context"
		"fmt"
		"log"

		grapher "github.com/haidaraM/ansible-playbook-grapher"
		"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
	)

	func main() {
		result, err := grapher.Graph(context.Background(), grapher.Options{
			Playbooks:        []string{"site.yml"},
			IncludeRoleTasks: true,
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, pb := range result.Playbooks {
			graph.Walk(pb, func(v graph.Visit) bool {
				fmt.Printf("%*s%s\n", 2*v.Depth, "", v.Node.Name())
				return true
			})
		}
	}

The node types and the traversal live in pkg/graph; the JSON output
mirrors that surface 1:1.
*/
package grapher
