package grapher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidaraM/ansible-playbook-grapher/internal/ansible"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGraph(t *testing.T) {
	result, err := Graph(context.Background(), Options{
		Playbooks:        []string{filepath.Join("testdata", "site.yml")},
		IncludeRoleTasks: true,
	})
	require.NoError(t, err)
	require.NoError(t, result.Err())

	require.Len(t, result.Playbooks, 1)
	pb := result.Playbooks[0]
	require.Len(t, pb.Plays, 2)
	assert.Equal(t, "Play: Deploy application (appservers)", pb.Plays[0].Name())
	require.Len(t, pb.Plays[0].Roles, 1)
	assert.Len(t, pb.Plays[0].Roles[0].Tasks, 2)
}

func TestGraphHideEmptyPlays(t *testing.T) {
	result, err := Graph(context.Background(), Options{
		Playbooks:      []string{filepath.Join("testdata", "site.yml")},
		HideEmptyPlays: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Playbooks, 1)
	assert.Len(t, result.Playbooks[0].Plays, 1, "the empty play is dropped")
}

func TestGraphPartialFailure(t *testing.T) {
	missing := filepath.Join("testdata", "nope.yml")
	result, err := Graph(context.Background(), Options{
		Playbooks: []string{missing, filepath.Join("testdata", "site.yml")},
	})
	require.NoError(t, err, "one broken playbook does not abort the invocation")

	assert.Len(t, result.Playbooks, 1, "the good playbook still builds")
	require.Contains(t, result.Failed, missing)
	assert.Error(t, result.Err())
}

func TestGraphMissingRole(t *testing.T) {
	dir := t.TempDir()
	playbook := filepath.Join(dir, "broken.yml")
	writeFile(t, playbook, "---\n- hosts: all\n  roles:\n    - ghost\n")

	result, err := Graph(context.Background(), Options{Playbooks: []string{playbook}})
	require.NoError(t, err)

	var notFound *ansible.RoleNotFoundError
	require.ErrorAs(t, result.Failed[playbook], &notFound)
	assert.Equal(t, "ghost", notFound.Role)
}

func TestGraphNoPlaybooks(t *testing.T) {
	_, err := Graph(context.Background(), Options{})
	assert.ErrorContains(t, err, "no playbook given")
}

func TestGraphCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Graph(ctx, Options{Playbooks: []string{filepath.Join("testdata", "site.yml")}})
	assert.ErrorIs(t, err, context.Canceled)
}
