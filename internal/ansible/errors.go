package ansible

import (
	"fmt"
	"strings"
)

// ParseError reports YAML the loader could not accept: a syntax error or
// a document whose shape is not a playbook/task list. It is fatal for the
// playbook being built.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RoleNotFoundError reports a role whose directory exists in none of the
// searched locations. Fatal for the playbook being built.
type RoleNotFoundError struct {
	Role     string
	Searched []string
}

func (e *RoleNotFoundError) Error() string {
	return fmt.Sprintf("role %q not found, searched: %s", e.Role, strings.Join(e.Searched, ", "))
}
