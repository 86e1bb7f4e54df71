package grapher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haidaraM/ansible-playbook-grapher/internal/ansible"
	"github.com/haidaraM/ansible-playbook-grapher/internal/builder"
	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// Version is the tool version reported by the CLI and the MCP server.
const Version = "0.1.0"

// Options is the whole configuration surface of a graphing run. The
// CLI, the preview server and the MCP server all funnel into it.
type Options struct {
	// Playbooks are the files to graph, each becoming its own root.
	Playbooks []string

	// Tags is the run tag set; empty means everything. SkipTags wins
	// over Tags.
	Tags     []string
	SkipTags []string
	// ExcludeRoles names roles to leave out wherever they are used.
	ExcludeRoles []string
	// RolesPaths are extra directories searched for roles.
	RolesPaths []string

	IncludeRoleTasks      bool
	GroupRolesByName      bool
	ShowHandlers          bool
	HideEmptyPlays        bool
	HidePlaysWithoutRoles bool

	// Logger receives diagnostics. Nil discards them; the library
	// never touches the process-wide default logger.
	Logger *slog.Logger
}

// Result holds what a run produced: one tree per playbook that built,
// and the error for each one that did not.
type Result struct {
	// Playbooks are the successfully built trees, in input order.
	Playbooks []*graph.PlaybookNode
	// Failed maps a playbook path to its build error.
	Failed map[string]error
}

// Err aggregates the per-playbook failures, nil when everything built.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for path, err := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	return errors.Join(errs...)
}

// Graph builds every playbook in opts into a filtered tree. A playbook
// that fails to build does not stop the others; its error lands in
// Result.Failed and the successful trees are still returned. Builds run
// sequentially so node ids stay deterministic across runs.
func Graph(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Playbooks) == 0 {
		return nil, errors.New("no playbook given")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := builder.New(ansible.NewLoader(logger), builder.Config{
		Tags:                  opts.Tags,
		SkipTags:              opts.SkipTags,
		ExcludedRoles:         opts.ExcludeRoles,
		IncludeRoleTasks:      opts.IncludeRoleTasks,
		GroupRolesByName:      opts.GroupRolesByName,
		ShowHandlers:          opts.ShowHandlers,
		HideEmptyPlays:        opts.HideEmptyPlays,
		HidePlaysWithoutRoles: opts.HidePlaysWithoutRoles,
		RolesPaths:            opts.RolesPaths,
	}, logger)

	result := &Result{Failed: map[string]error{}}
	for _, path := range opts.Playbooks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pb, err := b.Build(path)
		if err != nil {
			logger.Error("building playbook failed", "playbook", path, "error", err)
			result.Failed[path] = err
			continue
		}
		result.Playbooks = append(result.Playbooks, pb)
	}
	return result, nil
}
