// Package ansible is the host-engine adapter: it loads playbook, role and
// task-file YAML into already-resolved objects the tree builder consumes.
// Resolution here means positions from the YAML parser, tags inherited
// down to every task, and best-effort variable substitution in names.
// Conditional expressions are never evaluated, only carried as text.
package ansible

// Location points into a source file.
type Location struct {
	Path   string
	Line   int
	Column int
}

// PlaybookFile is one parsed playbook. Plays imported through
// import_playbook are inlined, each keeping the location of its own file.
type PlaybookFile struct {
	Path  string
	Plays []*Play
}

// Play is one play with its task sections decoded and its variables
// collected from vars and vars_files.
type Play struct {
	Name      string
	Hosts     string
	Tags      []string
	Vars      map[string]any
	PreTasks  []*Task
	Roles     []*RoleUse
	Tasks     []*Task
	PostTasks []*Task
	Handlers  []*Task
	Location  Location
}

// RoleUse is one entry of a play's roles section.
type RoleUse struct {
	Name     string
	Tags     []string
	When     []string
	Vars     map[string]any
	Location Location
}

// Task is a task-list entry: a plain module invocation, a block, a
// task-file include or a role include. Exactly one of the structural
// fields is populated for the non-plain shapes.
type Task struct {
	Name   string
	Action string
	// When keeps the raw conditional expressions as written, one entry
	// per list element.
	When []string
	// Tags are fully inherited: the play's, the enclosing block's and
	// the role usage's tags are already merged in.
	Tags   []string
	Notify []string
	// Loop is set when the task declares loop or any with_* form. The
	// items are not expanded.
	Loop     bool
	Vars     map[string]any
	Location Location

	// Block groups, set when the task is a block.
	Block  []*Task
	Rescue []*Task
	Always []*Task

	// IncludeRole is set for include_role and import_role.
	IncludeRole *RoleRef
	// IncludeTasks is the file argument of include_tasks/import_tasks.
	IncludeTasks string
	// Static distinguishes import_* (inlined before execution) from
	// include_* (resolved at run time).
	Static bool
}

// IsBlock reports whether the task is a block wrapper.
func (t *Task) IsBlock() bool {
	return len(t.Block) > 0 || len(t.Rescue) > 0 || len(t.Always) > 0
}

// RoleRef is the argument of include_role/import_role.
type RoleRef struct {
	Name      string
	TasksFrom string
}

// Role is a role loaded from disk.
type Role struct {
	Name     string
	Path     string
	Tasks    []*Task
	Handlers []*Task
	Defaults map[string]any
}
