package ansible

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// variableRef matches simple {{ variable }} or {{ nested.path }}
// expressions. Anything richer (filters, math, lookups) is out of reach
// without a template engine and is intentionally left as written.
var variableRef = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// Templar substitutes known variables into strings, best effort. An
// expression it cannot resolve stays verbatim in the output; graphing
// must never fail on an unknown variable.
type Templar struct {
	vars   map[string]any
	logger *slog.Logger
}

// NewTemplar builds a templar over the given variables.
func NewTemplar(vars map[string]any, logger *slog.Logger) *Templar {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Templar{vars: vars, logger: logger}
}

// With returns a templar whose variables are the receiver's overlaid
// with extra. The receiver is not modified.
func (t *Templar) With(extra map[string]any) *Templar {
	if len(extra) == 0 {
		return t
	}
	merged := make(map[string]any, len(t.vars)+len(extra))
	for k, v := range t.vars {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &Templar{vars: merged, logger: t.logger}
}

// Resolve substitutes every resolvable expression in s.
func (t *Templar) Resolve(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return variableRef.ReplaceAllStringFunc(s, func(expr string) string {
		path := variableRef.FindStringSubmatch(expr)[1]
		if value, ok := t.lookup(path); ok {
			return toDisplay(value)
		}
		t.logger.Debug("variable not resolvable, keeping raw expression", "expression", expr)
		return expr
	})
}

func (t *Templar) lookup(path string) (any, bool) {
	var current any = t.vars
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	// A resolved map or list has no useful string form for a node name.
	switch current.(type) {
	case map[string]any, []any:
		return nil, false
	}
	return current, true
}

func toDisplay(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
