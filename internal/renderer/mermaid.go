package renderer

import (
	"fmt"
	"strings"

	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// Defaults for the Mermaid output. The directive tunes the rendered
// chart, see https://mermaid.js.org/config/directives.html.
const (
	DefaultMermaidDirective   = `%%{ init: { "flowchart": { "curve": "bumpX" } } }%%`
	DefaultMermaidOrientation = "LR"
)

// MermaidOptions tunes the flowchart output.
type MermaidOptions struct {
	// Directive is prepended to the chart, empty for the default.
	Directive string
	// Orientation is the flowchart direction, empty for left-to-right.
	Orientation string
}

// Mermaid renders the playbooks as one flowchart. Mermaid styles links
// by their creation order, so the emitter numbers every link globally
// across playbooks and colors it with the owning play's color.
func Mermaid(playbooks []*graph.PlaybookNode, opts MermaidOptions) string {
	if opts.Directive == "" {
		opts.Directive = DefaultMermaidDirective
	}
	if opts.Orientation == "" {
		opts.Orientation = DefaultMermaidOrientation
	}

	m := &mermaidBuilder{rolesBuilt: map[string]bool{}}
	m.text("---")
	m.text("title: Ansible Playbook Grapher")
	m.text("---")
	m.text(opts.Directive)
	m.text("flowchart " + opts.Orientation)

	m.indent++
	for _, pb := range playbooks {
		m.comment(fmt.Sprintf("Start of the playbook '%s'", pb.Name()))
		m.text(fmt.Sprintf(`%s("%s")`, pb.ID(), escapeMermaid(pb.Name())))
		m.indent++
		for _, play := range pb.Plays {
			m.play(pb, play)
		}
		m.indent--
		m.comment(fmt.Sprintf("End of the playbook '%s'", pb.Name()))
	}
	m.indent--

	return m.sb.String()
}

type mermaidBuilder struct {
	sb        strings.Builder
	indent    int
	linkOrder int
	// rolesBuilt remembers the role node ids already defined, so a
	// role shared by several call sites after grouping is declared
	// once and only gains edges afterwards.
	rolesBuilt map[string]bool
}

func (m *mermaidBuilder) play(pb *graph.PlaybookNode, play *graph.PlayNode) {
	colors := play.Colors()
	m.comment(fmt.Sprintf("Start of the play '%s'", play.Name()))
	m.text(fmt.Sprintf(`%s["%s"]`, play.ID(), escapeMermaid(play.Name())))
	m.text(fmt.Sprintf("style %s fill:%s,color:%s", play.ID(), colors.Main, colors.Font))
	m.link(pb.ID(), play.ID(), fmt.Sprintf("%d", play.Index()), colors.Main)

	m.indent++
	for _, group := range play.Compositions() {
		for _, child := range group.Nodes {
			m.node(play, child, colors)
		}
	}
	m.indent--
	m.comment(fmt.Sprintf("End of the play '%s'", play.Name()))
}

func (m *mermaidBuilder) node(parent graph.Node, n graph.Node, colors graph.Colors) {
	switch t := n.(type) {
	case *graph.RoleNode:
		m.role(parent, t, colors)
	case *graph.BlockNode:
		m.block(parent, t, colors)
	case *graph.HandlerNode:
		m.task(parent, &t.TaskNode, colors)
	case *graph.TaskNode:
		m.task(parent, t, colors)
	}
}

func (m *mermaidBuilder) task(parent graph.Node, task *graph.TaskNode, colors graph.Colors) {
	m.text(fmt.Sprintf(`%s["%s%s"]`, task.ID(), categoryPrefix(task.Category), escapeMermaid(task.Name())))
	m.text(fmt.Sprintf("style %s stroke:%s,fill:%s", task.ID(), colors.Main, colors.Font))
	m.link(parent.ID(), task.ID(), edgeLabel(task), colors.Main)
}

func (m *mermaidBuilder) role(parent graph.Node, role *graph.RoleNode, colors graph.Colors) {
	m.comment(fmt.Sprintf("Start of the role '%s'", role.Name()))
	m.link(parent.ID(), role.ID(), edgeLabel(role), colors.Main)

	if m.rolesBuilt[role.ID()] {
		m.comment(fmt.Sprintf("End of the role '%s'", role.Name()))
		return
	}
	m.rolesBuilt[role.ID()] = true

	m.text(fmt.Sprintf(`%s("[role] %s")`, role.ID(), escapeMermaid(role.Name())))
	m.text(fmt.Sprintf("style %s fill:%s,color:%s,stroke:%s", role.ID(), colors.Main, colors.Font, colors.Main))

	m.indent++
	for _, group := range role.Compositions() {
		for _, child := range group.Nodes {
			m.node(role, child, colors)
		}
	}
	m.indent--
	m.comment(fmt.Sprintf("End of the role '%s'", role.Name()))
}

func (m *mermaidBuilder) block(parent graph.Node, block *graph.BlockNode, colors graph.Colors) {
	m.comment(fmt.Sprintf("Start of the block '%s'", block.Name()))
	m.text(fmt.Sprintf(`%s["[block] %s"]`, block.ID(), escapeMermaid(block.Name())))
	m.text(fmt.Sprintf("style %s fill:%s,color:%s,stroke:%s", block.ID(), colors.Main, colors.Font, colors.Main))
	m.link(parent.ID(), block.ID(), edgeLabel(block), colors.Main)

	m.text(fmt.Sprintf(`subgraph subgraph_%s["%s "]`, block.ID(), escapeMermaid(block.Name())))
	m.indent++
	for _, child := range block.Tasks {
		m.node(block, child, colors)
	}
	m.indent--
	m.text("end")
	m.comment(fmt.Sprintf("End of the block '%s'", block.Name()))
}

func (m *mermaidBuilder) link(source, dest, label, color string) {
	m.text(fmt.Sprintf(`%s -->|"%s"| %s`, source, escapeMermaid(strings.TrimSpace(label)), dest))
	m.text(fmt.Sprintf("linkStyle %d stroke:%s,color:%s", m.linkOrder, color, color))
	m.linkOrder++
}

func (m *mermaidBuilder) comment(text string) {
	m.text("%% " + text)
}

func (m *mermaidBuilder) text(line string) {
	m.sb.WriteString(strings.Repeat("\t", m.indent))
	m.sb.WriteString(line)
	m.sb.WriteByte('\n')
}

// edgeLabel is the index plus the effective conditional, "2 [when: x]".
func edgeLabel(n graph.Node) string {
	if n.When() == "" {
		return fmt.Sprintf("%d", n.Index())
	}
	return fmt.Sprintf("%d %s", n.Index(), n.When())
}

func categoryPrefix(cat graph.Category) string {
	switch cat {
	case graph.CategoryPreTask:
		return prefixPreTask
	case graph.CategoryPostTask:
		return prefixPostTask
	case graph.CategoryHandler:
		return prefixHandler
	default:
		return ""
	}
}

// escapeMermaid swaps double quotes for single ones, Mermaid labels
// cannot carry them.
func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}
