// Package builder translates the loader's parse output into the graph
// node model: one tree per playbook, with effective conditionals
// conjoined at build time, repeated roles deduplicated on demand, tasks
// filtered by tags and handlers resolved from notify declarations. The
// build is sequential by design, index assignment depends on sibling
// order.
package builder

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/haidaraM/ansible-playbook-grapher/internal/ansible"
	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// Config is the builder's knob surface, values only. The CLI owns the
// flag mechanics.
type Config struct {
	// Tags is the run set; empty means "all". SkipTags wins over Tags.
	Tags     []string
	SkipTags []string
	// ExcludedRoles are skipped wherever they are used.
	ExcludedRoles []string
	// IncludeRoleTasks expands the task bodies of roles and dynamic
	// includes. Static imports are always expanded, the engine inlines
	// them before any conditional is evaluated.
	IncludeRoleTasks bool
	// GroupRolesByName merges every usage of a role into one node.
	GroupRolesByName bool
	// ShowHandlers resolves notify declarations into handler nodes.
	ShowHandlers bool
	// HideEmptyPlays drops roles, blocks and plays left empty after tag
	// filtering.
	HideEmptyPlays bool
	// HidePlaysWithoutRoles drops plays using no play-level role and no
	// include_role.
	HidePlaysWithoutRoles bool
	// RolesPaths are extra directories searched for roles, after
	// roles/ next to the playbook.
	RolesPaths []string
}

// Builder turns playbooks into graph trees. It is stateless across
// Build calls; each call owns its id generator and visitation stack, so
// one builder can serve a whole multi-playbook invocation.
type Builder struct {
	loader *ansible.Loader
	cfg    Config
	logger *slog.Logger
}

// New creates a builder. A nil logger discards everything.
func New(loader *ansible.Loader, cfg Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{loader: loader, cfg: cfg, logger: logger}
}

// Build parses the playbook at path and constructs its filtered tree.
// Role directories that cannot be located and YAML the loader rejects
// are fatal for this playbook; everything else degrades to log lines.
func (b *Builder) Build(path string) (*graph.PlaybookNode, error) {
	pf, err := b.loader.LoadPlaybook(path)
	if err != nil {
		return nil, err
	}

	bc := &buildContext{
		ids:     graph.NewIDGenerator(),
		baseDir: filepath.Dir(path),
	}
	pb := graph.NewPlaybookNode(bc.ids, path)

	for _, play := range pf.Plays {
		playNode, err := b.buildPlay(bc, play)
		if err != nil {
			return nil, err
		}
		pb.Append(graph.GroupPlays, playNode)
	}

	b.applyFilters(pb)
	return pb, nil
}

// applyFilters runs the post-build passes in their fixed order: role
// grouping, empty-role/empty-block elision, empty-play removal,
// roleless-play removal. Each pass reindexes what it touched.
func (b *Builder) applyFilters(pb *graph.PlaybookNode) {
	if b.cfg.GroupRolesByName {
		pb.GroupRolesByName()
	}
	if b.cfg.HideEmptyPlays {
		if n := pb.RemoveEmptyRolesAndBlocks(b.cfg.IncludeRoleTasks); n > 0 {
			b.logger.Debug("removed empty roles and blocks", "count", n)
		}
		if n := pb.RemoveEmptyPlays(); n > 0 {
			b.logger.Debug("removed empty plays", "count", n)
		}
	}
	if b.cfg.HidePlaysWithoutRoles {
		if n := pb.RemovePlaysWithoutRoles(); n > 0 {
			b.logger.Debug("removed plays without roles", "count", n)
		}
	}
}

// buildContext carries the per-playbook state: the id generator and the
// stack of roles currently being expanded on this branch, which is what
// stops a self-referencing role from recursing forever.
type buildContext struct {
	ids     *graph.IDGenerator
	baseDir string
	// roleStack holds the names of the roles open in the current
	// branch, outermost first.
	roleStack []string
	// notifications records, in creation order, every task that
	// declared notify targets.
	notifications []notification
	// handlerPool maps each composite that declared handlers to its
	// definitions, in resolution order: the play first, then each role
	// in usage order.
	handlerPool []handlerSource
}

type notification struct {
	taskID  string
	targets []string
}

type handlerSource struct {
	owner    graph.Composite
	handlers []*ansible.Task
}

func (bc *buildContext) roleOpen(name string) bool {
	return slices.Contains(bc.roleStack, name)
}

func (b *Builder) buildPlay(bc *buildContext, play *ansible.Play) (*graph.PlayNode, error) {
	pos := location(play.Location)
	node := graph.NewPlayNode(bc.ids, playName(play), pos)

	bc.notifications = nil
	bc.handlerPool = nil
	if b.cfg.ShowHandlers && len(play.Handlers) > 0 {
		bc.handlerPool = append(bc.handlerPool, handlerSource{owner: node, handlers: play.Handlers})
	}

	if err := b.buildTaskList(bc, node, graph.GroupPreTasks, graph.CategoryPreTask, play.PreTasks, nil); err != nil {
		return nil, err
	}
	for _, use := range play.Roles {
		if err := b.buildRoleUse(bc, node, use); err != nil {
			return nil, err
		}
	}
	if err := b.buildTaskList(bc, node, graph.GroupTasks, graph.CategoryTask, play.Tasks, nil); err != nil {
		return nil, err
	}
	if err := b.buildTaskList(bc, node, graph.GroupPostTasks, graph.CategoryPostTask, play.PostTasks, nil); err != nil {
		return nil, err
	}

	if b.cfg.ShowHandlers {
		b.resolveHandlers(bc)
	}
	return node, nil
}

// buildRoleUse handles one entry of the play's roles section.
func (b *Builder) buildRoleUse(bc *buildContext, play *graph.PlayNode, use *ansible.RoleUse) error {
	if slices.Contains(b.cfg.ExcludedRoles, use.Name) {
		b.logger.Debug("skipping excluded role", "role", use.Name)
		return nil
	}
	if !ansible.MatchTags(use.Tags, b.cfg.Tags, b.cfg.SkipTags) {
		b.logger.Debug("role filtered out by tags", "role", use.Name, "tags", use.Tags)
		return nil
	}

	role, err := b.loader.LoadRole(use.Name, "", bc.baseDir, b.cfg.RolesPaths, use.Tags, use.Vars)
	if err != nil {
		return err
	}

	roleNode := graph.NewRoleNode(bc.ids, use.Name, formatWhen(use.When), graph.FolderPosition(role.Path), false)
	play.Append(graph.GroupRoles, roleNode)
	return b.expandRole(bc, roleNode, role, use.When)
}

// expandRole fills a role node with its task subtree and registers its
// handlers. The caller has already appended the node to its parent.
func (b *Builder) expandRole(bc *buildContext, roleNode *graph.RoleNode, role *ansible.Role, conds []string) error {
	if b.cfg.ShowHandlers && len(role.Handlers) > 0 {
		bc.handlerPool = append(bc.handlerPool, handlerSource{owner: roleNode, handlers: role.Handlers})
	}
	if !b.cfg.IncludeRoleTasks {
		return nil
	}

	bc.roleStack = append(bc.roleStack, role.Name)
	defer func() { bc.roleStack = bc.roleStack[:len(bc.roleStack)-1] }()

	return b.buildTaskList(bc, roleNode, graph.GroupTasks, graph.CategoryTask, role.Tasks, conds)
}

// buildTaskList appends one node per surviving task to the parent's
// group. conds are the conditionals inherited from every enclosing
// construct; each child's effective conditional is the conjunction of
// conds and its own when.
func (b *Builder) buildTaskList(bc *buildContext, parent graph.Composite, group string, cat graph.Category, tasks []*ansible.Task, conds []string) error {
	for _, task := range tasks {
		if err := b.buildTask(bc, parent, group, cat, task, conds); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildTask(bc *buildContext, parent graph.Composite, group string, cat graph.Category, task *ansible.Task, conds []string) error {
	effective := conjoin(conds, task.When)

	switch {
	case task.IsBlock():
		return b.buildBlock(bc, parent, group, cat, task, effective)
	case task.IncludeRole != nil:
		return b.buildRoleInclude(bc, parent, group, task, effective)
	case task.IncludeTasks != "":
		return b.buildTasksInclude(bc, parent, group, cat, task, effective)
	default:
		if !ansible.MatchTags(task.Tags, b.cfg.Tags, b.cfg.SkipTags) {
			b.logger.Debug("task filtered out by tags", "task", task.Name, "tags", task.Tags)
			return nil
		}
		if task.Loop {
			b.logger.Debug("collapsing looped task to one node", "task", task.Name)
		}
		node := graph.NewTaskNode(bc.ids, cat, task.Name, formatWhen(effective), location(task.Location))
		parent.Append(group, node)
		if len(task.Notify) > 0 {
			bc.notifications = append(bc.notifications, notification{taskID: node.ID(), targets: task.Notify})
		}
		return nil
	}
}

// buildBlock creates the block node and builds its sections under it.
// The block's guard is not carried by the block itself: it is conjoined
// into each child's effective conditional, which is how the engine
// evaluates blocks. Tag filtering happens per contained task, a block's
// tags are inherited by its children rather than gating the block.
func (b *Builder) buildBlock(bc *buildContext, parent graph.Composite, group string, cat graph.Category, task *ansible.Task, conds []string) error {
	name := task.Name
	if name == "" {
		name = "block"
	}
	node := graph.NewBlockNode(bc.ids, name, "", location(task.Location))
	parent.Append(group, node)

	for _, section := range [][]*ansible.Task{task.Block, task.Rescue, task.Always} {
		if err := b.buildTaskList(bc, node, graph.GroupTasks, cat, section, conds); err != nil {
			return err
		}
	}
	return nil
}

// buildRoleInclude handles include_role and import_role tasks. An
// import is statically inlined by the engine, so its role is always
// expanded; an include expands only when role tasks were requested. A
// role already open on this branch is not expanded again, which is what
// keeps a self-referencing role from looping: the node is still created
// so the reference stays visible, its subtree is truncated.
func (b *Builder) buildRoleInclude(bc *buildContext, parent graph.Composite, group string, task *ansible.Task, conds []string) error {
	ref := task.IncludeRole
	if slices.Contains(b.cfg.ExcludedRoles, ref.Name) {
		b.logger.Debug("skipping excluded role", "role", ref.Name)
		return nil
	}
	if !ansible.MatchTags(task.Tags, b.cfg.Tags, b.cfg.SkipTags) {
		b.logger.Debug("role include filtered out by tags", "role", ref.Name, "tags", task.Tags)
		return nil
	}

	role, err := b.loader.LoadRole(ref.Name, ref.TasksFrom, bc.baseDir, b.cfg.RolesPaths, task.Tags, task.Vars)
	if err != nil {
		return err
	}

	var node *graph.RoleNode
	if task.Static {
		node = graph.NewRoleNode(bc.ids, ref.Name, formatWhen(conds), graph.FolderPosition(role.Path), false)
	} else {
		node = graph.NewRoleNode(bc.ids, ref.Name, formatWhen(conds), location(task.Location), true)
	}
	parent.Append(group, node)

	if bc.roleOpen(ref.Name) {
		b.logger.Warn("role includes itself, truncating the branch",
			"role", ref.Name, "stack", strings.Join(bc.roleStack, " > "))
		return nil
	}
	if b.cfg.ShowHandlers && len(role.Handlers) > 0 {
		bc.handlerPool = append(bc.handlerPool, handlerSource{owner: node, handlers: role.Handlers})
	}
	if !task.Static && !b.cfg.IncludeRoleTasks {
		return nil
	}

	bc.roleStack = append(bc.roleStack, role.Name)
	defer func() { bc.roleStack = bc.roleStack[:len(bc.roleStack)-1] }()

	return b.buildTaskList(bc, node, graph.GroupTasks, graph.CategoryTask, role.Tasks, conds)
}

// buildTasksInclude handles include_tasks and import_tasks. Both inline
// the file's tasks straight into the current parent, an import always
// and an include only when expansion was requested; an unexpanded
// include stays a single task node so the reference remains visible.
func (b *Builder) buildTasksInclude(bc *buildContext, parent graph.Composite, group string, cat graph.Category, task *ansible.Task, conds []string) error {
	if !ansible.MatchTags(task.Tags, b.cfg.Tags, b.cfg.SkipTags) {
		b.logger.Debug("task include filtered out by tags", "file", task.IncludeTasks, "tags", task.Tags)
		return nil
	}
	if !task.Static && !b.cfg.IncludeRoleTasks {
		name := task.Name
		if name == "" || name == task.Action {
			name = fmt.Sprintf("[include_tasks] %s", task.IncludeTasks)
		}
		parent.Append(group, graph.NewTaskNode(bc.ids, cat, name, formatWhen(conds), location(task.Location)))
		return nil
	}

	path := task.IncludeTasks
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(task.Location.Path), path)
	}
	tasks, err := b.loader.LoadTaskFile(path, task.Tags, task.Vars)
	if err != nil {
		return err
	}
	return b.buildTaskList(bc, parent, group, cat, tasks, conds)
}

// resolveHandlers walks the notifications recorded during the play's
// build and appends one handler node per notified definition, at the
// end of the play or role that declared it. That placement is a
// documented approximation: statically there is no notify-time
// execution point to attach to. The first definition matching a
// notified name wins; a name matching nothing is logged and skipped.
func (b *Builder) resolveHandlers(bc *buildContext) {
	built := make(map[*ansible.Task]*graph.HandlerNode)

	for _, notif := range bc.notifications {
		for _, target := range notif.targets {
			def, owner := bc.findHandler(target)
			if def == nil {
				b.logger.Warn("notified handler not found, skipping", "handler", target)
				continue
			}
			node, ok := built[def]
			if !ok {
				node = graph.NewHandlerNode(bc.ids, def.Name, formatWhen(def.When), location(def.Location))
				owner.Append(graph.GroupHandlers, node)
				built[def] = node
			}
			node.AddNotifier(notif.taskID)
		}
	}
}

func (bc *buildContext) findHandler(name string) (*ansible.Task, graph.Composite) {
	for _, source := range bc.handlerPool {
		for _, def := range source.handlers {
			if def.Name == name {
				return def, source.owner
			}
		}
	}
	return nil, nil
}

// playName renders the play label: the play's name with its host
// pattern, "Play: all (webservers)" style.
func playName(play *ansible.Play) string {
	if play.Name == play.Hosts || play.Hosts == "" {
		return fmt.Sprintf("Play: %s", play.Name)
	}
	return fmt.Sprintf("Play: %s (%s)", play.Name, play.Hosts)
}

// conjoin appends own conditionals to the inherited ones without
// mutating either slice.
func conjoin(parent, own []string) []string {
	if len(own) == 0 {
		return parent
	}
	out := make([]string, 0, len(parent)+len(own))
	out = append(out, parent...)
	out = append(out, own...)
	return out
}

// formatWhen renders the display form of an effective conditional:
// "[when: a and b]", empty for an unguarded node.
func formatWhen(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return fmt.Sprintf("[when: %s]", strings.Join(conds, " and "))
}

func location(loc ansible.Location) *graph.Position {
	if loc.Path == "" {
		return nil
	}
	return graph.FilePosition(loc.Path, loc.Line, loc.Column)
}
