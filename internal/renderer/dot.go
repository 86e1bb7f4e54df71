package renderer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// GraphvizOptions tunes the DOT output.
type GraphvizOptions struct {
	// Links turns node positions into URL attributes. Nil means no
	// links.
	Links *LinkHandler
}

// GraphvizNotFoundError reports a missing dot executable when an SVG
// was requested.
type GraphvizNotFoundError struct {
	Err error
}

func (e *GraphvizNotFoundError) Error() string {
	return fmt.Sprintf("the 'dot' executable from Graphviz is required to render SVG: %v", e.Err)
}

func (e *GraphvizNotFoundError) Unwrap() error { return e.Err }

// DOT renders the playbooks as one Graphviz digraph. Roles and blocks
// become clusters so their tasks nest visually; every node and edge
// carries a stable id usable as an anchor in the produced SVG.
func DOT(playbooks []*graph.PlaybookNode, opts GraphvizOptions) string {
	d := &dotBuilder{links: opts.Links, rolesBuilt: map[string]bool{}}
	d.line(0, "digraph {")
	d.line(1, `ratio=fill;`)
	d.line(1, `rankdir=LR;`)
	d.line(1, `concentrate=true;`)
	d.line(1, `ordering=in;`)
	d.line(1, `edge [sep=10, esep=5];`)

	for _, pb := range playbooks {
		d.playbook(pb)
	}
	d.line(0, "}")
	return d.sb.String()
}

// RenderSVG runs the dot executable over a DOT source and writes the
// SVG at outputPath. The absence of dot is a typed error so the CLI can
// name the missing binary.
func RenderSVG(ctx context.Context, dotSource, outputPath string) error {
	dot, err := exec.LookPath("dot")
	if err != nil {
		return &GraphvizNotFoundError{Err: err}
	}

	cmd := exec.CommandContext(ctx, dot, "-Tsvg", "-o", outputPath)
	cmd.Stdin = strings.NewReader(dotSource)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("dot failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

type dotBuilder struct {
	sb    strings.Builder
	links *LinkHandler
	// edgeCounter numbers edges globally, it is part of the edge id.
	edgeCounter int
	rolesBuilt  map[string]bool
}

func (d *dotBuilder) playbook(pb *graph.PlaybookNode) {
	d.line(1, fmt.Sprintf(`%s [label=%s, shape=box, id=%s, style=dotted, tooltip=%s%s];`,
		pb.ID(), quote(pb.Name()), quote(pb.ID()), quote(pb.Name()), d.url(pb)))

	for _, play := range pb.Plays {
		d.play(pb, play)
	}
}

func (d *dotBuilder) play(pb *graph.PlaybookNode, play *graph.PlayNode) {
	colors := play.Colors()
	d.line(1, fmt.Sprintf(`%s [label=%s, shape=box, id=%s, style=filled, color=%s, fontcolor=%s, tooltip=%s%s];`,
		play.ID(), quote(play.Name()), quote(play.ID()), quote(colors.Main), quote(colors.Font), quote(play.Name()), d.url(play)))
	d.edge(pb.ID(), play.ID(), fmt.Sprintf("%d", play.Index()), colors.Main)

	for _, group := range play.Compositions() {
		for _, child := range group.Nodes {
			d.node(2, play, child, colors)
		}
	}
}

func (d *dotBuilder) node(depth int, parent graph.Node, n graph.Node, colors graph.Colors) {
	switch t := n.(type) {
	case *graph.RoleNode:
		d.role(depth, parent, t, colors)
	case *graph.BlockNode:
		d.block(depth, parent, t, colors)
	case *graph.HandlerNode:
		d.task(depth, parent, &t.TaskNode, colors)
	case *graph.TaskNode:
		d.task(depth, parent, t, colors)
	}
}

func (d *dotBuilder) task(depth int, parent graph.Node, task *graph.TaskNode, colors graph.Colors) {
	label := categoryPrefix(task.Category) + task.Name()
	d.line(depth, fmt.Sprintf(`%s [label=%s, shape=octagon, id=%s, color=%s, tooltip=%s%s];`,
		task.ID(), quote(label), quote(task.ID()), quote(colors.Main), quote(task.Name()), d.url(task)))
	d.edge(parent.ID(), task.ID(), edgeLabel(task), colors.Main)
}

// role emits the role as a cluster holding its node and subtree. A role
// shared by several call sites after grouping is emitted once, later
// sites only add an edge into it.
func (d *dotBuilder) role(depth int, parent graph.Node, role *graph.RoleNode, colors graph.Colors) {
	d.edge(parent.ID(), role.ID(), edgeLabel(role), colors.Main)
	if d.rolesBuilt[role.ID()] {
		return
	}
	d.rolesBuilt[role.ID()] = true

	d.line(depth, fmt.Sprintf("subgraph cluster_%s {", role.ID()))
	d.line(depth+1, fmt.Sprintf("label=%s;", quote("[role] "+role.Name())))
	d.line(depth+1, fmt.Sprintf("color=%s;", quote(colors.Main)))
	d.line(depth+1, fmt.Sprintf(`%s [label=%s, shape=box, id=%s, color=%s, tooltip=%s%s];`,
		role.ID(), quote("[role] "+role.Name()), quote(role.ID()), quote(colors.Main), quote(role.Name()), d.url(role)))
	for _, group := range role.Compositions() {
		for _, child := range group.Nodes {
			d.node(depth+1, role, child, colors)
		}
	}
	d.line(depth, "}")
}

func (d *dotBuilder) block(depth int, parent graph.Node, block *graph.BlockNode, colors graph.Colors) {
	d.edge(parent.ID(), block.ID(), edgeLabel(block), colors.Main)

	d.line(depth, fmt.Sprintf("subgraph cluster_%s {", block.ID()))
	d.line(depth+1, fmt.Sprintf("label=%s;", quote("[block] "+block.Name())))
	d.line(depth+1, fmt.Sprintf("color=%s;", quote(colors.Main)))
	d.line(depth+1, fmt.Sprintf(`%s [label=%s, shape=box, id=%s, color=%s, tooltip=%s%s];`,
		block.ID(), quote("[block] "+block.Name()), quote(block.ID()), quote(colors.Main), quote(block.Name()), d.url(block)))
	for _, child := range block.Tasks {
		d.node(depth+1, block, child, colors)
	}
	d.line(depth, "}")
}

func (d *dotBuilder) edge(source, dest, label, color string) {
	id := fmt.Sprintf("edge_%d_%s_%s", d.edgeCounter, source, dest)
	d.line(1, fmt.Sprintf(`%s -> %s [label=%s, id=%s, color=%s, fontcolor=%s, tooltip=%s, labeltooltip=%s];`,
		source, dest, quote(label), quote(id), quote(color), quote(color), quote(label), quote(label)))
	d.edgeCounter++
}

func (d *dotBuilder) url(n graph.Node) string {
	u := d.links.URL(n.Position())
	if u == "" {
		return ""
	}
	return fmt.Sprintf(", URL=%s", quote(u))
}

func (d *dotBuilder) line(depth int, s string) {
	d.sb.WriteString(strings.Repeat("    ", depth))
	d.sb.WriteString(s)
	d.sb.WriteByte('\n')
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
