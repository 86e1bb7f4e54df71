package ansible

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader reads playbook, role and task-file YAML from disk. It is
// stateless apart from its logger and safe to reuse across playbooks.
type Loader struct {
	logger *slog.Logger
}

// NewLoader builds a loader. A nil logger discards everything.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// LoadPlaybook parses the playbook at path. Plays pulled in through
// import_playbook are inlined in place, keeping their own file's
// positions; an import cycle is a parse error.
func (l *Loader) LoadPlaybook(path string) (*PlaybookFile, error) {
	pf := &PlaybookFile{Path: path}
	if err := l.loadPlaysInto(pf, path, map[string]bool{}); err != nil {
		return nil, err
	}
	return pf, nil
}

func (l *Loader) loadPlaysInto(pf *PlaybookFile, path string, importing map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if importing[abs] {
		return &ParseError{Path: path, Err: errors.New("import_playbook cycle")}
	}
	importing[abs] = true
	defer delete(importing, abs)

	root, err := l.parseFile(path)
	if err != nil {
		return err
	}
	if root == nil {
		return &ParseError{Path: path, Err: errors.New("playbook is empty")}
	}
	if root.Kind != yaml.SequenceNode {
		return &ParseError{Path: path, Err: errors.New("a playbook must be a list of plays")}
	}

	for _, item := range root.Content {
		if isNull(item) {
			continue
		}
		if item.Kind != yaml.MappingNode {
			return &ParseError{Path: path, Err: fmt.Errorf("line %d: a play must be a mapping", item.Line)}
		}
		if target := mappingValue(item, "import_playbook"); target != nil {
			imported, err := decodeFileArg(path, target)
			if err != nil {
				return err
			}
			if !filepath.IsAbs(imported) {
				imported = filepath.Join(filepath.Dir(path), imported)
			}
			l.logger.Debug("inlining imported playbook", "from", path, "playbook", imported)
			if err := l.loadPlaysInto(pf, imported, importing); err != nil {
				return err
			}
			continue
		}
		play, err := l.decodePlay(path, item)
		if err != nil {
			return err
		}
		pf.Plays = append(pf.Plays, play)
	}
	return nil
}

func (l *Loader) decodePlay(path string, node *yaml.Node) (*Play, error) {
	raw, err := decodeMapping(path, node)
	if err != nil {
		return nil, err
	}
	var doc playDoc
	if err := mapstructure.Decode(raw, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("play at line %d: %w", node.Line, err)}
	}

	vars := mergeVars(doc.Vars, l.loadVarsFiles(filepath.Dir(path), doc.VarsFiles))
	tp := NewTemplar(vars, l.logger)

	hosts := joinHosts(toStrings(doc.Hosts))
	name := doc.Name
	if name == "" {
		name = hosts
	}
	play := &Play{
		Name:     tp.Resolve(name),
		Hosts:    hosts,
		Tags:     resolveAll(tp, toStrings(doc.Tags)),
		Vars:     vars,
		Location: Location{Path: path, Line: node.Line, Column: node.Column},
	}

	sections := []struct {
		key string
		dst *[]*Task
	}{
		{"pre_tasks", &play.PreTasks},
		{"tasks", &play.Tasks},
		{"post_tasks", &play.PostTasks},
		{"handlers", &play.Handlers},
	}
	for _, section := range sections {
		value := mappingValue(node, section.key)
		if value == nil {
			continue
		}
		tasks, err := l.decodeTaskList(path, value, play.Tags, tp)
		if err != nil {
			return nil, err
		}
		*section.dst = tasks
	}

	if value := mappingValue(node, "roles"); value != nil {
		if play.Roles, err = l.decodeRoles(path, value, play.Tags, tp); err != nil {
			return nil, err
		}
	}
	return play, nil
}

// LoadRole locates a role on disk and loads its tasks, handlers and
// defaults. The search order is <baseDir>/roles/<name> then each
// configured search path. tasksFrom selects an alternative entry file in
// tasks/, defaulting to main.
func (l *Loader) LoadRole(name, tasksFrom, baseDir string, searchPaths []string, parentTags []string, vars map[string]any) (*Role, error) {
	candidates := make([]string, 0, len(searchPaths)+1)
	candidates = append(candidates, filepath.Join(baseDir, "roles", name))
	for _, p := range searchPaths {
		candidates = append(candidates, filepath.Join(p, name))
	}

	var rolePath string
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			rolePath = candidate
			break
		}
	}
	if rolePath == "" {
		return nil, &RoleNotFoundError{Role: name, Searched: candidates}
	}

	defaults, err := l.loadMappingFile(existingVariant(filepath.Join(rolePath, "defaults", "main")))
	if err != nil {
		return nil, err
	}
	roleVars := mergeVars(defaults, vars)

	entry := tasksFrom
	if entry == "" {
		entry = "main"
	}
	tasks, err := l.loadTaskFileIfPresent(existingVariant(filepath.Join(rolePath, "tasks", entry)), parentTags, roleVars)
	if err != nil {
		return nil, err
	}
	handlers, err := l.loadTaskFileIfPresent(existingVariant(filepath.Join(rolePath, "handlers", "main")), parentTags, roleVars)
	if err != nil {
		return nil, err
	}

	return &Role{Name: name, Path: rolePath, Tasks: tasks, Handlers: handlers, Defaults: defaults}, nil
}

// LoadTaskFile parses a file consumed through include_tasks or
// import_tasks: a plain list of tasks. A missing file is an error, the
// play expects it to exist.
func (l *Loader) LoadTaskFile(path string, parentTags []string, vars map[string]any) ([]*Task, error) {
	root, err := l.parseFile(path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return l.decodeTaskList(path, root, parentTags, NewTemplar(vars, l.logger))
}

func (l *Loader) loadTaskFileIfPresent(path string, parentTags []string, vars map[string]any) ([]*Task, error) {
	if path == "" {
		return nil, nil
	}
	return l.LoadTaskFile(path, parentTags, vars)
}

// parseFile returns the document root node, nil for an empty file.
func (l *Loader) parseFile(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil
}

// loadVarsFiles merges the vars_files entries in order. These files are
// auxiliary to graphing, so a missing or unreadable one (vaulted files
// included) degrades to a log line instead of failing the build.
func (l *Loader) loadVarsFiles(baseDir string, entries []any) map[string]any {
	merged := map[string]any{}
	for _, entry := range toStrings(entries) {
		path := entry
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		vars, err := l.loadMappingFile(path)
		if err != nil {
			l.logger.Debug("skipping vars file", "path", entry, "err", err)
			continue
		}
		merged = mergeVars(merged, vars)
	}
	return merged
}

// loadMappingFile parses a YAML file expected to hold a mapping. An empty
// path or file yields nil.
func (l *Loader) loadMappingFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	root, err := l.parseFile(path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	var m map[string]any
	if err := root.Decode(&m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}

// existingVariant probes stem.yml then stem.yaml, or the stem itself when
// it already has an extension. Empty when none exists.
func existingVariant(stem string) string {
	candidates := []string{stem + ".yml", stem + ".yaml"}
	if filepath.Ext(stem) != "" {
		candidates = []string{stem}
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func joinHosts(hosts []string) string {
	return strings.Join(hosts, ",")
}
