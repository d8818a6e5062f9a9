package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("v1"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("f")
	require.NoError(t, err)
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)
	return dir
}

func TestVersionCleanWorktree(t *testing.T) {
	dir := initRepo(t)
	v, err := Version(dir)
	require.NoError(t, err)
	require.Len(t, v, 40, "expected a bare 40-char sha for a clean worktree")
}

func TestVersionDirtyWorktreeHasSuffix(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("v2"), 0o644))
	v, err := Version(dir)
	require.NoError(t, err)
	require.NotEmpty(t, v)
	require.Equal(t, byte('*'), v[len(v)-1], "expected dirty-worktree suffix, got %q", v)
}
