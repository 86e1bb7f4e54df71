// Package graph holds the static execution model of one or more playbooks:
// the node types, their composition rules, identity generation, the
// depth-first traversal used by every renderer, and the post-build
// filtering passes. Nodes are built once per invocation, pruned in place,
// then read by renderers; nothing here touches the filesystem.
package graph

import "fmt"

// Kind discriminates the closed set of node types.
type Kind string

const (
	KindPlaybook Kind = "playbook"
	KindPlay     Kind = "play"
	KindRole     Kind = "role"
	KindBlock    Kind = "block"
	KindTask     Kind = "task"
	KindHandler  Kind = "handler"
)

// Category tells which play section a task was declared in. It affects
// rendering (label prefix, shape color) but not the task's identity.
type Category string

const (
	CategoryPreTask  Category = "pre_task"
	CategoryTask     Category = "task"
	CategoryPostTask Category = "post_task"
	CategoryHandler  Category = "handler"
)

// Composition group names, in traversal order.
const (
	GroupPlays     = "plays"
	GroupPreTasks  = "pre_tasks"
	GroupRoles     = "roles"
	GroupTasks     = "tasks"
	GroupPostTasks = "post_tasks"
	GroupHandlers  = "handlers"
)

// Position points at the source of a node: a file location for plays,
// tasks and included roles, or a role's directory.
type Position struct {
	Type   string // "file" or "folder"
	Path   string
	Line   int
	Column int
}

// FilePosition returns a file position.
func FilePosition(path string, line, column int) *Position {
	return &Position{Type: "file", Path: path, Line: line, Column: column}
}

// FolderPosition returns a directory position, used for roles resolved on
// disk rather than referenced from a task.
func FolderPosition(path string) *Position {
	return &Position{Type: "folder", Path: path}
}

// Node is the capability shared by every element of the model. The set of
// implementations is closed; consumers type-switch on the concrete types
// and the switch is exhaustive over the six kinds.
type Node interface {
	ID() string
	Kind() Kind
	Name() string
	// Index is the 1-based position among siblings in the owning
	// composition group. It is recomputed after every pruning pass.
	Index() int
	// When is the effective conditional in display form,
	// "[when: c1 and c2]", or empty when the node is unguarded. It is the
	// conjunction of every enclosing conditional, computed at build time.
	When() string
	Position() *Position

	setIndex(int)
}

// Composite is implemented by nodes that own ordered groups of children.
type Composite interface {
	Node
	// Compositions returns the named child groups in traversal order.
	// The returned slices share backing arrays with the node.
	Compositions() []Group
	// Append adds child to the named group and assigns its index
	// (current group length + 1). It panics when the group does not
	// exist on this node or the child's kind is not allowed in it,
	// both programming errors.
	Append(group string, child Node)
}

// Group is a named, ordered run of children within a composite.
type Group struct {
	Name  string
	Nodes []Node
}

type base struct {
	id    string
	name  string
	when  string
	index int
	pos   *Position
}

func (b *base) ID() string          { return b.id }
func (b *base) Name() string        { return b.name }
func (b *base) Index() int          { return b.index }
func (b *base) When() string        { return b.when }
func (b *base) Position() *Position { return b.pos }
func (b *base) setIndex(i int)      { b.index = i }

// PlaybookNode is the root of one input file. One invocation may hold
// several, each built independently.
type PlaybookNode struct {
	base
	Plays []*PlayNode
}

// NewPlaybookNode creates the root node for the playbook at path.
func NewPlaybookNode(g *IDGenerator, path string) *PlaybookNode {
	return &PlaybookNode{base: base{
		id:   g.Next(KindPlaybook, path),
		name: path,
		pos:  FilePosition(path, 1, 1),
	}}
}

func (p *PlaybookNode) Kind() Kind { return KindPlaybook }

func (p *PlaybookNode) Compositions() []Group {
	return []Group{{GroupPlays, asNodes(p.Plays)}}
}

func (p *PlaybookNode) Append(group string, child Node) {
	if group != GroupPlays {
		panic(fmt.Sprintf("graph: playbook has no %q group", group))
	}
	play := mustKind[*PlayNode](child, group)
	p.Plays = append(p.Plays, play)
	play.setIndex(len(p.Plays))
}

// PlayNode maps a set of hosts to ordered task sections. Pre tasks run
// before roles and tasks, post tasks after; handlers come last.
type PlayNode struct {
	base
	PreTasks  []Node
	Roles     []*RoleNode
	Tasks     []Node
	PostTasks []Node
	Handlers  []*HandlerNode
}

// NewPlayNode creates a play node. The name is the play's name with its
// host pattern, as produced by the loader.
func NewPlayNode(g *IDGenerator, name string, pos *Position) *PlayNode {
	return &PlayNode{base: base{id: g.Next(KindPlay, name), name: name, pos: pos}}
}

func (p *PlayNode) Kind() Kind { return KindPlay }

func (p *PlayNode) Compositions() []Group {
	return []Group{
		{GroupPreTasks, p.PreTasks},
		{GroupRoles, asNodes(p.Roles)},
		{GroupTasks, p.Tasks},
		{GroupPostTasks, p.PostTasks},
		{GroupHandlers, asNodes(p.Handlers)},
	}
}

func (p *PlayNode) Append(group string, child Node) {
	switch group {
	case GroupPreTasks:
		p.PreTasks = append(p.PreTasks, mustTaskLike(child, group))
		child.setIndex(len(p.PreTasks))
	case GroupRoles:
		role := mustKind[*RoleNode](child, group)
		p.Roles = append(p.Roles, role)
		role.setIndex(len(p.Roles))
	case GroupTasks:
		p.Tasks = append(p.Tasks, mustTaskLike(child, group))
		child.setIndex(len(p.Tasks))
	case GroupPostTasks:
		p.PostTasks = append(p.PostTasks, mustTaskLike(child, group))
		child.setIndex(len(p.PostTasks))
	case GroupHandlers:
		h := mustKind[*HandlerNode](child, group)
		p.Handlers = append(p.Handlers, h)
		h.setIndex(len(p.Handlers))
	default:
		panic(fmt.Sprintf("graph: play has no %q group", group))
	}
}

// Empty reports whether the play has no children in any group.
func (p *PlayNode) Empty() bool {
	return len(p.PreTasks) == 0 && len(p.Roles) == 0 && len(p.Tasks) == 0 &&
		len(p.PostTasks) == 0 && len(p.Handlers) == 0
}

// RoleNode is a named, reusable bundle of tasks. Each usage site gets its
// own instance; GroupRolesByName later merges instances that share a name
// into one canonical node referenced from every usage site.
type RoleNode struct {
	base
	// IncludeRole is set when the role was reached through an
	// include_role task. Those carry a file position at the call site
	// instead of the role directory, and they are the only task-section
	// roles counted by RemovePlaysWithoutRoles.
	IncludeRole bool
	Tasks       []Node
	Handlers    []*HandlerNode
}

// NewRoleNode creates a role node for one usage site.
func NewRoleNode(g *IDGenerator, name, when string, pos *Position, includeRole bool) *RoleNode {
	return &RoleNode{
		base:        base{id: g.Next(KindRole, name), name: name, when: when, pos: pos},
		IncludeRole: includeRole,
	}
}

func (r *RoleNode) Kind() Kind { return KindRole }

func (r *RoleNode) Compositions() []Group {
	return []Group{
		{GroupTasks, r.Tasks},
		{GroupHandlers, asNodes(r.Handlers)},
	}
}

func (r *RoleNode) Append(group string, child Node) {
	switch group {
	case GroupTasks:
		r.Tasks = append(r.Tasks, mustTaskLike(child, group))
		child.setIndex(len(r.Tasks))
	case GroupHandlers:
		h := mustKind[*HandlerNode](child, group)
		r.Handlers = append(r.Handlers, h)
		h.setIndex(len(r.Handlers))
	default:
		panic(fmt.Sprintf("graph: role has no %q group", group))
	}
}

// Empty reports whether the role has neither tasks nor handlers.
func (r *RoleNode) Empty() bool { return len(r.Tasks) == 0 && len(r.Handlers) == 0 }

// BlockNode groups tasks that share a conditional guard. The guard is not
// carried by the edge into the block: it is conjoined into each child's
// effective When at build time, matching how the engine evaluates blocks.
type BlockNode struct {
	base
	Tasks []Node
}

// NewBlockNode creates a block node. Unnamed blocks get the loader's
// placeholder name.
func NewBlockNode(g *IDGenerator, name, when string, pos *Position) *BlockNode {
	return &BlockNode{base: base{id: g.Next(KindBlock, name), name: name, when: when, pos: pos}}
}

func (b *BlockNode) Kind() Kind { return KindBlock }

func (b *BlockNode) Compositions() []Group {
	return []Group{{GroupTasks, b.Tasks}}
}

func (b *BlockNode) Append(group string, child Node) {
	if group != GroupTasks {
		panic(fmt.Sprintf("graph: block has no %q group", group))
	}
	b.Tasks = append(b.Tasks, mustTaskLike(child, group))
	child.setIndex(len(b.Tasks))
}

// Empty reports whether the block holds no tasks.
func (b *BlockNode) Empty() bool { return len(b.Tasks) == 0 }

// TaskNode is a leaf unit of work. A task looping over items is collapsed
// to this single representative node.
type TaskNode struct {
	base
	Category Category
}

// NewTaskNode creates a leaf task in the given category.
func NewTaskNode(g *IDGenerator, cat Category, name, when string, pos *Position) *TaskNode {
	return &TaskNode{
		base:     base{id: g.Next(KindTask, name), name: name, when: when, pos: pos},
		Category: cat,
	}
}

func (t *TaskNode) Kind() Kind { return KindTask }

// HandlerNode is a task that runs only when notified. It is owned by the
// play or role whose handler section declared it; NotifiedBy lists the ids
// of the tasks that notify it, a non-owning back reference.
type HandlerNode struct {
	TaskNode
	NotifiedBy []string
}

// NewHandlerNode creates a handler node.
func NewHandlerNode(g *IDGenerator, name, when string, pos *Position) *HandlerNode {
	return &HandlerNode{TaskNode: TaskNode{
		base:     base{id: g.Next(KindHandler, name), name: name, when: when, pos: pos},
		Category: CategoryHandler,
	}}
}

func (h *HandlerNode) Kind() Kind { return KindHandler }

// AddNotifier records the id of a task that notifies this handler. Already
// recorded ids are ignored so repeated notifications stay a set.
func (h *HandlerNode) AddNotifier(taskID string) {
	for _, id := range h.NotifiedBy {
		if id == taskID {
			return
		}
	}
	h.NotifiedBy = append(h.NotifiedBy, taskID)
}

func asNodes[T Node](in []T) []Node {
	out := make([]Node, len(in))
	for i, n := range in {
		out[i] = n
	}
	return out
}

func mustKind[T Node](n Node, group string) T {
	t, ok := n.(T)
	if !ok {
		panic(fmt.Sprintf("graph: %s node not allowed in %q group", n.Kind(), group))
	}
	return t
}

// mustTaskLike admits the kinds a task section can hold: tasks, blocks and
// roles reached through include_role or import_role.
func mustTaskLike(n Node, group string) Node {
	switch n.(type) {
	case *TaskNode, *BlockNode, *RoleNode:
		return n
	default:
		panic(fmt.Sprintf("graph: %s node not allowed in %q group", n.Kind(), group))
	}
}
