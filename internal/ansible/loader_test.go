package ansible

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *PlaybookFile {
	t.Helper()
	pf, err := NewLoader(nil).LoadPlaybook(filepath.Join("testdata", name))
	require.NoError(t, err)
	return pf
}

func TestLoadPlaybookShape(t *testing.T) {
	pf := loadFixture(t, "site.yml")

	require.Len(t, pf.Plays, 2)
	web, db := pf.Plays[0], pf.Plays[1]

	assert.Equal(t, "Configure webservers", web.Name)
	assert.Equal(t, "webservers", web.Hosts)
	assert.Equal(t, []string{"web"}, web.Tags)
	assert.Len(t, web.PreTasks, 2)
	assert.Len(t, web.Roles, 2)
	assert.Len(t, web.Tasks, 3)
	assert.Len(t, web.PostTasks, 1)
	assert.Len(t, web.Handlers, 1)

	assert.Equal(t, "dbservers", db.Name, "a play without a name falls back to its hosts")
	assert.Empty(t, db.Roles)
}

func TestLoadPlaybookPositions(t *testing.T) {
	pf := loadFixture(t, "site.yml")

	web := pf.Plays[0]
	assert.Equal(t, filepath.Join("testdata", "site.yml"), web.Location.Path)
	assert.Equal(t, 2, web.Location.Line)
	assert.Equal(t, 3, web.Location.Column)

	// A mapping's column is that of its first key, not the list dash.
	install := web.PreTasks[0]
	assert.Equal(t, 12, install.Location.Line)
	assert.Equal(t, 7, install.Location.Column)

	assert.Equal(t, 53, pf.Plays[1].Location.Line)
}

func TestTaskDecoding(t *testing.T) {
	web := loadFixture(t, "site.yml").Plays[0]

	t.Run("module detection normalizes the builtin prefix", func(t *testing.T) {
		assert.Equal(t, "apt", web.PreTasks[0].Action)
		assert.Equal(t, "service", web.Handlers[0].Action)
	})

	t.Run("variables resolve in names, conditionals stay raw", func(t *testing.T) {
		warm := web.PreTasks[1]
		assert.Equal(t, "Warm cache for demo", warm.Name)
		assert.Equal(t, []string{"cache_enabled | bool"}, warm.When)
	})

	t.Run("tags inherit from play and block", func(t *testing.T) {
		assert.Equal(t, []string{"web", "packages"}, web.PreTasks[0].Tags)

		maintenance := web.Tasks[0]
		require.True(t, maintenance.IsBlock())
		assert.Equal(t, []string{"web", "maintenance"}, maintenance.Tags)
		require.Len(t, maintenance.Block, 1)
		assert.Equal(t, []string{"web", "maintenance"}, maintenance.Block[0].Tags)
	})

	t.Run("block children keep their own conditionals and notify", func(t *testing.T) {
		drain := web.Tasks[0].Block[0]
		assert.Equal(t, "Drain pool", drain.Name)
		assert.Equal(t, []string{"maintenance"}, drain.When)
		assert.Equal(t, []string{"restart nginx"}, drain.Notify)
	})

	t.Run("include_role and import_tasks", func(t *testing.T) {
		include := web.Tasks[1]
		require.NotNil(t, include.IncludeRole)
		assert.Equal(t, "deploy", include.IncludeRole.Name)
		assert.False(t, include.Static)
		assert.Equal(t, []string{"do_deploy"}, include.When)

		imported := web.Tasks[2]
		assert.Equal(t, "tasks/verify.yml", imported.IncludeTasks)
		assert.True(t, imported.Static)
	})

	t.Run("loops collapse to a flag", func(t *testing.T) {
		report := web.PostTasks[0]
		assert.True(t, report.Loop)
		assert.Equal(t, "Report status", report.Name)
	})
}

func TestRolesSection(t *testing.T) {
	web := loadFixture(t, "site.yml").Plays[0]

	plain := web.Roles[0]
	assert.Equal(t, "web", plain.Name)
	assert.Equal(t, []string{"web"}, plain.Tags, "bare role entries inherit the play tags")
	assert.Empty(t, plain.When)

	metrics := web.Roles[1]
	assert.Equal(t, "metrics", metrics.Name)
	assert.Equal(t, []string{"web", "monitoring"}, metrics.Tags)
	assert.Equal(t, []string{"enable_metrics"}, metrics.When)
	assert.Equal(t, 22, metrics.Location.Line)
}

func TestVarsFilesMergeIntoTemplar(t *testing.T) {
	web := loadFixture(t, "site.yml").Plays[0]

	assert.Equal(t, "demo", web.Vars["app_name"])
	assert.Equal(t, true, web.Vars["cache_enabled"], "vars_files entries are merged in")
	assert.Equal(t, "staging", web.Vars["env_name"])
}

func TestLoadRole(t *testing.T) {
	loader := NewLoader(nil)

	role, err := loader.LoadRole("web", "", "testdata", nil, []string{"web"}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "roles", "web"), role.Path)
	require.Len(t, role.Tasks, 2)
	assert.Equal(t, "Install nginx", role.Tasks[0].Name, "role defaults resolve in task names")
	assert.Equal(t, []string{"web", "install"}, role.Tasks[0].Tags)
	require.Len(t, role.Handlers, 1)
	assert.Equal(t, "reload web", role.Handlers[0].Name)
	assert.Equal(t, map[string]any{"package_name": "nginx"}, role.Defaults)
}

func TestLoadRoleNotFound(t *testing.T) {
	_, err := NewLoader(nil).LoadRole("ghost", "", "testdata", []string{"/nonexistent"}, nil, nil)

	var notFound *RoleNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Role)
	assert.Len(t, notFound.Searched, 2)
}

func TestImportPlaybookInlinesPlays(t *testing.T) {
	pf := loadFixture(t, "import_main.yml")

	require.Len(t, pf.Plays, 2)
	assert.Equal(t, "Local play", pf.Plays[0].Name)
	assert.Equal(t, "Imported play", pf.Plays[1].Name)
	assert.Equal(t, filepath.Join("testdata", "imported.yml"), pf.Plays[1].Location.Path,
		"imported plays keep their own file's position")
}

func TestImportPlaybookCycle(t *testing.T) {
	_, err := NewLoader(nil).LoadPlaybook(filepath.Join("testdata", "cycle_a.yml"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "cycle")
}

func TestLoadPlaybookRejectsBadInput(t *testing.T) {
	loader := NewLoader(nil)

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.LoadPlaybook(filepath.Join("testdata", "nope.yml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := loader.LoadPlaybook(filepath.Join("testdata", "broken.yml"))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("not a list of plays", func(t *testing.T) {
		_, err := loader.LoadPlaybook(filepath.Join("testdata", "notalist.yml"))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "list of plays")
	})
}

func TestLoadTaskFileMissingIsAnError(t *testing.T) {
	_, err := NewLoader(nil).LoadTaskFile(filepath.Join("testdata", "tasks", "absent.yml"), nil, nil)
	require.ErrorIs(t, err, fs.ErrNotExist)
}
