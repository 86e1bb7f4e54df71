package ansible

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Task keywords the engine reserves. Any other key on a task mapping is
// the module being invoked.
var taskKeywords = map[string]bool{
	"action": true, "any_errors_fatal": true, "args": true, "async": true,
	"become": true, "become_exe": true, "become_flags": true,
	"become_method": true, "become_user": true, "changed_when": true,
	"check_mode": true, "collections": true, "connection": true,
	"debugger": true, "delay": true, "delegate_facts": true,
	"delegate_to": true, "diff": true, "environment": true,
	"failed_when": true, "ignore_errors": true, "ignore_unreachable": true,
	"listen": true, "local_action": true, "loop": true,
	"loop_control": true, "module_defaults": true, "name": true,
	"no_log": true, "notify": true, "poll": true, "port": true,
	"register": true, "remote_user": true, "retries": true,
	"run_once": true, "tags": true, "throttle": true, "timeout": true,
	"until": true, "vars": true, "when": true,
}

type playDoc struct {
	Name      string         `mapstructure:"name"`
	Hosts     any            `mapstructure:"hosts"`
	Tags      any            `mapstructure:"tags"`
	Vars      map[string]any `mapstructure:"vars"`
	VarsFiles []any          `mapstructure:"vars_files"`
}

type taskDoc struct {
	Name   string         `mapstructure:"name"`
	When   any            `mapstructure:"when"`
	Tags   any            `mapstructure:"tags"`
	Notify any            `mapstructure:"notify"`
	Vars   map[string]any `mapstructure:"vars"`
}

type roleUseDoc struct {
	Role string         `mapstructure:"role"`
	Name string         `mapstructure:"name"`
	Tags any            `mapstructure:"tags"`
	When any            `mapstructure:"when"`
	Vars map[string]any `mapstructure:"vars"`
}

type roleRefDoc struct {
	Name      string `mapstructure:"name"`
	TasksFrom string `mapstructure:"tasks_from"`
}

func (l *Loader) decodeTaskList(path string, seq *yaml.Node, parentTags []string, tp *Templar) ([]*Task, error) {
	if isNull(seq) {
		return nil, nil
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: a task section must be a list", seq.Line)}
	}
	var tasks []*Task
	for _, item := range seq.Content {
		if isNull(item) {
			continue
		}
		if item.Kind != yaml.MappingNode {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: a task must be a mapping", item.Line)}
		}
		task, err := l.decodeTask(path, item, parentTags, tp)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (l *Loader) decodeTask(path string, node *yaml.Node, parentTags []string, tp *Templar) (*Task, error) {
	raw, err := decodeMapping(path, node)
	if err != nil {
		return nil, err
	}
	var doc taskDoc
	if err := mapstructure.Decode(raw, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("task at line %d: %w", node.Line, err)}
	}

	scoped := tp.With(doc.Vars)
	task := &Task{
		When:     toStrings(doc.When),
		Tags:     mergeTags(parentTags, resolveAll(scoped, toStrings(doc.Tags))),
		Notify:   toStrings(doc.Notify),
		Vars:     doc.Vars,
		Location: Location{Path: path, Line: node.Line, Column: node.Column},
	}

	// Walk the mapping in document order so module detection does not
	// depend on map iteration.
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := normalizeKey(node.Content[i].Value)
		value := node.Content[i+1]
		switch key {
		case "block", "rescue", "always":
			list, err := l.decodeTaskList(path, value, task.Tags, scoped)
			if err != nil {
				return nil, err
			}
			switch key {
			case "block":
				task.Block = list
			case "rescue":
				task.Rescue = list
			case "always":
				task.Always = list
			}
		case "include_role", "import_role":
			ref, err := decodeRoleRef(path, value)
			if err != nil {
				return nil, err
			}
			ref.Name = scoped.Resolve(ref.Name)
			task.IncludeRole = ref
			task.Action = key
			task.Static = key == "import_role"
		case "include_tasks", "import_tasks":
			file, err := decodeFileArg(path, value)
			if err != nil {
				return nil, err
			}
			task.IncludeTasks = scoped.Resolve(file)
			task.Action = key
			task.Static = key == "import_tasks"
		case "loop":
			task.Loop = true
		default:
			if strings.HasPrefix(key, "with_") {
				task.Loop = true
				break
			}
			if task.Action == "" && !taskKeywords[key] {
				task.Action = key
			}
		}
	}

	task.Name = scoped.Resolve(doc.Name)
	if task.Name == "" && !task.IsBlock() {
		if task.Action != "" {
			task.Name = task.Action
		} else {
			task.Name = "task"
		}
	}
	return task, nil
}

func (l *Loader) decodeRoles(path string, seq *yaml.Node, playTags []string, tp *Templar) ([]*RoleUse, error) {
	if isNull(seq) {
		return nil, nil
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: roles must be a list", seq.Line)}
	}
	var uses []*RoleUse
	for _, item := range seq.Content {
		if isNull(item) {
			continue
		}
		use := &RoleUse{Location: Location{Path: path, Line: item.Line, Column: item.Column}}
		switch item.Kind {
		case yaml.ScalarNode:
			use.Name = tp.Resolve(item.Value)
			use.Tags = playTags
		case yaml.MappingNode:
			raw, err := decodeMapping(path, item)
			if err != nil {
				return nil, err
			}
			var doc roleUseDoc
			if err := mapstructure.Decode(raw, &doc); err != nil {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("role at line %d: %w", item.Line, err)}
			}
			name := doc.Role
			if name == "" {
				name = doc.Name
			}
			if name == "" {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: role entry without a name", item.Line)}
			}
			scoped := tp.With(doc.Vars)
			use.Name = scoped.Resolve(name)
			use.Tags = mergeTags(playTags, resolveAll(scoped, toStrings(doc.Tags)))
			use.When = toStrings(doc.When)
			use.Vars = doc.Vars
		default:
			return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: unexpected role entry", item.Line)}
		}
		uses = append(uses, use)
	}
	return uses, nil
}

// decodeRoleRef accepts the mapping form {name: x, tasks_from: y}, the
// k=v shorthand "name=x tasks_from=y" and a bare role name.
func decodeRoleRef(path string, value *yaml.Node) (*RoleRef, error) {
	switch value.Kind {
	case yaml.ScalarNode:
		ref := &RoleRef{}
		fields := strings.Fields(value.Value)
		for _, field := range fields {
			k, v, found := strings.Cut(field, "=")
			if !found {
				ref.Name = field
				continue
			}
			switch k {
			case "name":
				ref.Name = v
			case "tasks_from":
				ref.TasksFrom = v
			}
		}
		if ref.Name == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: role include without a name", value.Line)}
		}
		return ref, nil
	case yaml.MappingNode:
		raw, err := decodeMapping(path, value)
		if err != nil {
			return nil, err
		}
		var doc roleRefDoc
		if err := mapstructure.Decode(raw, &doc); err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("role include at line %d: %w", value.Line, err)}
		}
		if doc.Name == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: role include without a name", value.Line)}
		}
		return &RoleRef{Name: doc.Name, TasksFrom: doc.TasksFrom}, nil
	default:
		return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: unexpected role include argument", value.Line)}
	}
}

// decodeFileArg accepts the scalar form "file.yml", the k=v shorthand
// "file=file.yml" and the mapping form {file: file.yml}.
func decodeFileArg(path string, value *yaml.Node) (string, error) {
	switch value.Kind {
	case yaml.ScalarNode:
		if after, found := strings.CutPrefix(value.Value, "file="); found {
			if fields := strings.Fields(after); len(fields) > 0 {
				return fields[0], nil
			}
			break
		}
		if value.Value != "" {
			return value.Value, nil
		}
	case yaml.MappingNode:
		if file := mappingValue(value, "file"); file != nil {
			return file.Value, nil
		}
	}
	return "", &ParseError{Path: path, Err: fmt.Errorf("line %d: task include without a file", value.Line)}
}

func decodeMapping(path string, node *yaml.Node) (map[string]any, error) {
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: %w", node.Line, err)}
	}
	return m, nil
}

// mappingValue returns the value node for key, nil when absent. Module
// prefixes are normalized so "ansible.builtin.import_playbook" finds
// "import_playbook".
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if normalizeKey(node.Content[i].Value) == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func normalizeKey(key string) string {
	key = strings.TrimPrefix(key, "ansible.builtin.")
	return strings.TrimPrefix(key, "ansible.legacy.")
}

func isNull(node *yaml.Node) bool {
	return node == nil || node.Tag == "!!null"
}

// toStrings flattens a scalar, a list, or nested lists into strings.
// when, tags and notify all accept both scalar and list forms.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, toStrings(item)...)
		}
		return out
	case []string:
		return t
	default:
		return []string{fmt.Sprintf("%v", t)}
	}
}

func resolveAll(tp *Templar, in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = tp.Resolve(s)
	}
	return out
}

func mergeVars(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}
