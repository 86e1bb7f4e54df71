package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countKind(root Node, kind Kind) int {
	count := 0
	Walk(root, func(v Visit) bool {
		if v.Node.Kind() == kind {
			count++
		}
		return true
	})
	return count
}

func TestGroupRolesByName(t *testing.T) {
	build := func() (*PlaybookNode, *RoleNode, *RoleNode) {
		g := NewIDGenerator()
		pb := NewPlaybookNode(g, "site.yml")

		playOne := NewPlayNode(g, "Play: web", nil)
		pb.Append(GroupPlays, playOne)
		first := NewRoleNode(g, "nginx", "", FolderPosition("roles/nginx"), false)
		first.Append(GroupTasks, NewTaskNode(g, CategoryTask, "install nginx", "", nil))
		playOne.Append(GroupRoles, first)

		playTwo := NewPlayNode(g, "Play: proxy", nil)
		pb.Append(GroupPlays, playTwo)
		second := NewRoleNode(g, "nginx", "", FolderPosition("roles/nginx"), false)
		second.Append(GroupTasks, NewTaskNode(g, CategoryTask, "install nginx", "", nil))
		playTwo.Append(GroupRoles, second)

		return pb, first, second
	}

	t.Run("disabled keeps distinct instances", func(t *testing.T) {
		pb, first, second := build()
		require.NotEqual(t, first.ID(), second.ID())
		assert.Equal(t, 2, countKind(pb, KindRole))
	})

	t.Run("enabled merges onto the first instance", func(t *testing.T) {
		pb, first, _ := build()
		pb.GroupRolesByName()

		require.Len(t, pb.Plays, 2)
		require.Len(t, pb.Plays[0].Roles, 1)
		require.Len(t, pb.Plays[1].Roles, 1)
		assert.Same(t, first, pb.Plays[0].Roles[0])
		assert.Same(t, first, pb.Plays[1].Roles[0], "second usage must point at the canonical node")
		assert.Equal(t, pb.Plays[0].Roles[0].ID(), pb.Plays[1].Roles[0].ID())
	})

	t.Run("include_role in a task section merges too", func(t *testing.T) {
		g := NewIDGenerator()
		pb := NewPlaybookNode(g, "site.yml")
		play := NewPlayNode(g, "Play: all", nil)
		pb.Append(GroupPlays, play)

		viaPre := NewRoleNode(g, "common", "", FilePosition("site.yml", 4, 7), true)
		play.Append(GroupPreTasks, viaPre)
		viaPlay := NewRoleNode(g, "common", "", FolderPosition("roles/common"), false)
		play.Append(GroupRoles, viaPlay)

		pb.GroupRolesByName()

		// pre_tasks precede the roles section in traversal order, so the
		// include_role instance is the canonical one.
		require.Len(t, play.Roles, 1)
		assert.Same(t, viaPre, play.PreTasks[0])
		assert.Same(t, viaPre, play.Roles[0])
	})
}

func TestRemoveEmptyRolesAndBlocks(t *testing.T) {
	t.Run("cascades through nested blocks", func(t *testing.T) {
		g := NewIDGenerator()
		pb := NewPlaybookNode(g, "site.yml")
		play := NewPlayNode(g, "Play: all", nil)
		pb.Append(GroupPlays, play)

		outer := NewBlockNode(g, "outer", "", nil)
		inner := NewBlockNode(g, "inner", "", nil)
		outer.Append(GroupTasks, inner)
		play.Append(GroupTasks, outer)
		play.Append(GroupTasks, NewTaskNode(g, CategoryTask, "survivor", "", nil))

		removed := pb.RemoveEmptyRolesAndBlocks(true)

		assert.Equal(t, 2, removed)
		require.Len(t, play.Tasks, 1)
		assert.Equal(t, "survivor", play.Tasks[0].Name())
		assert.Equal(t, 1, play.Tasks[0].Index(), "survivor must be reindexed to 1")
	})

	t.Run("drops expanded empty roles only", func(t *testing.T) {
		g := NewIDGenerator()
		pb := NewPlaybookNode(g, "site.yml")
		play := NewPlayNode(g, "Play: all", nil)
		pb.Append(GroupPlays, play)
		play.Append(GroupRoles, NewRoleNode(g, "bare", "", FolderPosition("roles/bare"), false))

		pb.RemoveEmptyRolesAndBlocks(false)
		assert.Len(t, play.Roles, 1, "unexpanded role is empty by construction, keep it")

		pb.RemoveEmptyRolesAndBlocks(true)
		assert.Empty(t, play.Roles, "expanded role with no surviving tasks goes away")
	})

	t.Run("role with only handlers survives", func(t *testing.T) {
		g := NewIDGenerator()
		pb := NewPlaybookNode(g, "site.yml")
		play := NewPlayNode(g, "Play: all", nil)
		pb.Append(GroupPlays, play)
		role := NewRoleNode(g, "notifier", "", FolderPosition("roles/notifier"), false)
		role.Append(GroupHandlers, NewHandlerNode(g, "restart service", "", nil))
		play.Append(GroupRoles, role)

		pb.RemoveEmptyRolesAndBlocks(true)
		assert.Len(t, play.Roles, 1)
	})
}

func TestRemoveEmptyPlays(t *testing.T) {
	g := NewIDGenerator()
	pb := NewPlaybookNode(g, "site.yml")

	empty := NewPlayNode(g, "Play: empty", nil)
	pb.Append(GroupPlays, empty)
	busy := NewPlayNode(g, "Play: busy", nil)
	busy.Append(GroupTasks, NewTaskNode(g, CategoryTask, "work", "", nil))
	pb.Append(GroupPlays, busy)

	require.Equal(t, 1, pb.RemoveEmptyPlays())
	require.Len(t, pb.Plays, 1)
	assert.Equal(t, "Play: busy", pb.Plays[0].Name())
	assert.Equal(t, 1, pb.Plays[0].Index())

	before := len(Flatten(pb))
	assert.Equal(t, 0, pb.RemoveEmptyPlays(), "no empty plays left, nothing to remove")
	assert.Equal(t, before, len(Flatten(pb)), "idempotent on a clean playbook")
}

func TestRemovePlaysWithoutRoles(t *testing.T) {
	g := NewIDGenerator()
	pb := NewPlaybookNode(g, "site.yml")

	// import_role is inlined by the engine, so this play does not count
	// as using roles.
	imported := NewPlayNode(g, "Play: imported only", nil)
	importedRole := NewRoleNode(g, "static", "", FolderPosition("roles/static"), false)
	imported.Append(GroupTasks, importedRole)
	pb.Append(GroupPlays, imported)

	// include_role nested inside a block still counts.
	included := NewPlayNode(g, "Play: included", nil)
	block := NewBlockNode(g, "wrapper", "", nil)
	block.Append(GroupTasks, NewRoleNode(g, "dynamic", "", FilePosition("site.yml", 9, 7), true))
	included.Append(GroupTasks, block)
	pb.Append(GroupPlays, included)

	direct := NewPlayNode(g, "Play: direct", nil)
	direct.Append(GroupRoles, NewRoleNode(g, "plain", "", FolderPosition("roles/plain"), false))
	pb.Append(GroupPlays, direct)

	require.Equal(t, 1, pb.RemovePlaysWithoutRoles())
	require.Len(t, pb.Plays, 2)
	assert.Equal(t, "Play: included", pb.Plays[0].Name())
	assert.Equal(t, "Play: direct", pb.Plays[1].Name())
	assert.Equal(t, []int{1, 2}, []int{pb.Plays[0].Index(), pb.Plays[1].Index()})
}

func TestReindexLeavesNoGaps(t *testing.T) {
	g := NewIDGenerator()
	pb := NewPlaybookNode(g, "site.yml")
	play := NewPlayNode(g, "Play: all", nil)
	pb.Append(GroupPlays, play)
	for _, name := range []string{"a", "b", "c", "d"} {
		play.Append(GroupTasks, NewTaskNode(g, CategoryTask, name, "", nil))
	}
	block := NewBlockNode(g, "empty", "", nil)
	play.Append(GroupTasks, block)

	pb.RemoveEmptyRolesAndBlocks(true)

	for i, n := range play.Tasks {
		require.Equal(t, i+1, n.Index(), "index of %s", n.Name())
	}
}
