package builder

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidaraM/ansible-playbook-grapher/internal/ansible"
	"github.com/haidaraM/ansible-playbook-grapher/internal/logging"
	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

func build(t *testing.T, name string, cfg Config) *graph.PlaybookNode {
	t.Helper()
	b := New(ansible.NewLoader(logging.NewNop()), cfg, logging.NewNop())
	pb, err := b.Build(filepath.Join("testdata", name))
	require.NoError(t, err)
	return pb
}

func names(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func indices(nodes []graph.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.Index()
	}
	return out
}

func TestBuildPlaySections(t *testing.T) {
	pb := build(t, "scenario.yml", Config{IncludeRoleTasks: true})

	require.Len(t, pb.Plays, 1)
	play := pb.Plays[0]
	assert.Equal(t, "Play: Provision fleet (all)", play.Name())

	assert.Equal(t, []string{"Refresh package index", "Install prerequisites"}, names(play.PreTasks))
	assert.Equal(t, []int{1, 2}, indices(play.PreTasks))

	require.Len(t, play.Roles, 2)
	assert.Equal(t, "common", play.Roles[0].Name())
	assert.Equal(t, 1, play.Roles[0].Index())
	assert.Equal(t, 2, play.Roles[1].Index())

	assert.Equal(t, []int{1, 2}, indices(play.Tasks))
	assert.Equal(t, []int{1, 2}, indices(play.PostTasks))
}

func TestRoleConditionals(t *testing.T) {
	pb := build(t, "scenario.yml", Config{IncludeRoleTasks: true})
	play := pb.Plays[0]

	common, guarded := play.Roles[0], play.Roles[1]
	assert.Empty(t, common.When())
	assert.Equal(t, `[when: ansible_distribution == "Debian"]`, guarded.When())

	// The role's guard propagates into its tasks, conjoined with the
	// task's own conditional.
	require.Len(t, guarded.Tasks, 1)
	assert.Equal(t, `[when: ansible_distribution == "Debian" and pinning_enabled]`, guarded.Tasks[0].When())

	// Roles reached from the play's roles section point at their
	// directory, not a file position.
	require.NotNil(t, common.Position())
	assert.Equal(t, "folder", common.Position().Type)
	assert.Equal(t, filepath.Join("testdata", "roles", "common"), common.Position().Path)
}

func TestDeterminism(t *testing.T) {
	collect := func() (ids []string, idx []int) {
		pb := build(t, "scenario.yml", Config{IncludeRoleTasks: true, ShowHandlers: true})
		graph.Walk(pb, func(v graph.Visit) bool {
			ids = append(ids, v.Node.ID())
			idx = append(idx, v.Node.Index())
			return true
		})
		return ids, idx
	}

	firstIDs, firstIdx := collect()
	secondIDs, secondIdx := collect()
	if diff := cmp.Diff(firstIDs, secondIDs); diff != "" {
		t.Errorf("node ids differ between identical builds (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstIdx, secondIdx); diff != "" {
		t.Errorf("indices differ between identical builds (-first +second):\n%s", diff)
	}
}

func TestRoleInstancesPerUsage(t *testing.T) {
	pb := build(t, "two_plays.yml", Config{IncludeRoleTasks: true})

	require.Len(t, pb.Plays, 2)
	frontend := pb.Plays[0].Roles[0]
	backend := pb.Plays[1].Roles[0]

	assert.Equal(t, "web", frontend.Name())
	assert.Equal(t, "web", backend.Name())
	assert.NotEqual(t, frontend.ID(), backend.ID(), "each usage site gets its own node")
	assert.NotSame(t, frontend, backend)

	// Each instance carries its own copy of the task subtree.
	assert.Len(t, frontend.Tasks, 2)
	assert.Len(t, backend.Tasks, 2)
	assert.NotEqual(t, frontend.Tasks[0].ID(), backend.Tasks[0].ID())
}

func TestGroupRolesByName(t *testing.T) {
	pb := build(t, "two_plays.yml", Config{IncludeRoleTasks: true, GroupRolesByName: true})

	frontend := pb.Plays[0].Roles[0]
	backend := pb.Plays[1].Roles[0]
	assert.Same(t, frontend, backend, "both usages share the canonical node")
	assert.Equal(t, frontend.ID(), backend.ID())
}

func TestSelfReferencingRoleTerminates(t *testing.T) {
	pb := build(t, "selfref.yml", Config{IncludeRoleTasks: true})

	play := pb.Plays[0]
	require.Len(t, play.Tasks, 1)
	outer, ok := play.Tasks[0].(*graph.RoleNode)
	require.True(t, ok)
	assert.Equal(t, "looper", outer.Name())

	// The first expansion holds the role's task and the truncated
	// second reference, which must stay empty.
	require.Len(t, outer.Tasks, 2)
	assert.Equal(t, "Before recursion", outer.Tasks[0].Name())
	inner, ok := outer.Tasks[1].(*graph.RoleNode)
	require.True(t, ok)
	assert.Equal(t, "looper", inner.Name())
	assert.Empty(t, inner.Tasks, "the self-referencing branch is truncated")
}

func TestBlockGuardOnChildrenNotOnBlock(t *testing.T) {
	pb := build(t, "tags.yml", Config{})

	play := pb.Plays[0]
	require.Len(t, play.Tasks, 2)
	block, ok := play.Tasks[0].(*graph.BlockNode)
	require.True(t, ok)

	assert.Empty(t, block.When(), "the edge into a block carries no condition")
	require.Len(t, block.Tasks, 1)
	assert.Equal(t, "[when: release_window]", block.Tasks[0].When())
}

func TestTagFiltering(t *testing.T) {
	t.Run("run tags keep matching and untagged tasks", func(t *testing.T) {
		pb := build(t, "tags.yml", Config{Tags: []string{"prod"}})
		play := pb.Plays[0]
		require.Len(t, play.Tasks, 2)
		block := play.Tasks[0].(*graph.BlockNode)
		assert.Len(t, block.Tasks, 1)
		assert.Equal(t, "Untagged task", play.Tasks[1].Name())
	})

	t.Run("skip tags leave the emptied block in place", func(t *testing.T) {
		pb := build(t, "tags.yml", Config{SkipTags: []string{"prod"}})
		play := pb.Plays[0]
		require.Len(t, play.Tasks, 2)
		block := play.Tasks[0].(*graph.BlockNode)
		assert.Empty(t, block.Tasks)
	})

	t.Run("hide-empty elides the emptied block and reindexes", func(t *testing.T) {
		pb := build(t, "tags.yml", Config{SkipTags: []string{"prod"}, HideEmptyPlays: true})
		play := pb.Plays[0]
		require.Len(t, play.Tasks, 1)
		assert.Equal(t, "Untagged task", play.Tasks[0].Name())
		assert.Equal(t, 1, play.Tasks[0].Index())
	})
}

func TestIncludeAndImportSemantics(t *testing.T) {
	pb := build(t, "includes.yml", Config{})
	play := pb.Plays[0]
	require.Len(t, play.Tasks, 4)

	// import_tasks is always inlined.
	assert.Equal(t, "Statically imported task", play.Tasks[0].Name())

	// include_tasks without expansion stays a single reference node
	// keeping its guard.
	includeTasks := play.Tasks[1]
	assert.Equal(t, "[include_tasks] tasks/dynamic.yml", includeTasks.Name())
	assert.Equal(t, "[when: wants_dynamic]", includeTasks.When())

	// import_role is always expanded and is not an include_role for
	// the roleless-play filter.
	imported, ok := play.Tasks[2].(*graph.RoleNode)
	require.True(t, ok)
	assert.False(t, imported.IncludeRole)
	assert.Len(t, imported.Tasks, 1)
	assert.Equal(t, "folder", imported.Position().Type)

	// include_role without expansion keeps the node, drops the body.
	included, ok := play.Tasks[3].(*graph.RoleNode)
	require.True(t, ok)
	assert.True(t, included.IncludeRole)
	assert.Equal(t, "[when: wants_metrics]", included.When())
	assert.Empty(t, included.Tasks)
	assert.Equal(t, "file", included.Position().Type, "an include_role points at its call site")
}

func TestIncludeTasksExpansion(t *testing.T) {
	pb := build(t, "includes.yml", Config{IncludeRoleTasks: true})
	play := pb.Plays[0]

	// With expansion requested the dynamic include inlines its file's
	// tasks too, keeping the include's guard on each of them.
	assert.Equal(t, "Dynamically included task", play.Tasks[1].Name())
	assert.Equal(t, "[when: wants_dynamic]", play.Tasks[1].When())
	metrics := play.Tasks[3].(*graph.RoleNode)
	assert.Len(t, metrics.Tasks, 1)
}

func TestHandlerResolution(t *testing.T) {
	pb := build(t, "handlers.yml", Config{IncludeRoleTasks: true, ShowHandlers: true})
	play := pb.Plays[0]

	// The play handler lands on the play, notified by the play task.
	require.Len(t, play.Handlers, 1)
	restart := play.Handlers[0]
	assert.Equal(t, "restart app", restart.Name())
	require.Len(t, play.Tasks, 2)
	rotate := play.Tasks[0]
	assert.Equal(t, []string{rotate.ID()}, restart.NotifiedBy)

	// The role handler lands on the role that declared it, collecting
	// every notifier: the role's own task and the play task.
	web := play.Roles[0]
	require.Len(t, web.Handlers, 1)
	reload := web.Handlers[0]
	assert.Equal(t, "reload nginx", reload.Name())
	require.Len(t, web.Tasks, 2)
	assert.Equal(t, []string{web.Tasks[1].ID(), rotate.ID()}, reload.NotifiedBy)

	// "no such handler" resolves to nothing and is only logged.
	assert.Equal(t, 1, len(play.Handlers))
}

func TestHandlersOffByDefault(t *testing.T) {
	pb := build(t, "handlers.yml", Config{IncludeRoleTasks: true})
	assert.Empty(t, pb.Plays[0].Handlers)
	assert.Empty(t, pb.Plays[0].Roles[0].Handlers)
}

func TestExcludedRoles(t *testing.T) {
	pb := build(t, "two_plays.yml", Config{ExcludedRoles: []string{"web"}})

	assert.Empty(t, pb.Plays[0].Roles)
	require.Len(t, pb.Plays[1].Roles, 1)
	assert.Equal(t, "metrics", pb.Plays[1].Roles[0].Name())
	assert.Equal(t, 1, pb.Plays[1].Roles[0].Index())
}

func TestMissingRoleIsFatal(t *testing.T) {
	b := New(ansible.NewLoader(logging.NewNop()), Config{}, logging.NewNop())
	_, err := b.Build(filepath.Join("testdata", "missing_role.yml"))

	var notFound *ansible.RoleNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "does_not_exist", notFound.Role)
}

func TestHidePlaysWithoutRoles(t *testing.T) {
	pb := build(t, "tags.yml", Config{HidePlaysWithoutRoles: true})
	assert.Empty(t, pb.Plays)

	pb = build(t, "two_plays.yml", Config{HidePlaysWithoutRoles: true})
	assert.Len(t, pb.Plays, 2)
}

func TestHideEmptyPlaysIdempotence(t *testing.T) {
	pb := build(t, "scenario.yml", Config{IncludeRoleTasks: true, HideEmptyPlays: true})
	before := len(pb.Plays)
	require.Zero(t, pb.RemoveEmptyPlays())
	assert.Len(t, pb.Plays, before)
}
