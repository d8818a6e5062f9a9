package recipe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleanupContext(t *testing.T, installDir, pkgName string) *Context {
	t.Helper()
	return &Context{
		Go: context.Background(),
		Config: map[string]string{
			"install_dir": installDir,
			"pkg_name":    pkgName,
		},
	}
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expected %s to be removed, stat err=%v", path, err)
}

func TestPostInstallCleanupRemovesLaFiles(t *testing.T) {
	installDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "lib"), 0o755))
	laPath := filepath.Join(installDir, "lib", "libfoo.la")
	require.NoError(t, os.WriteFile(laPath, []byte("x"), 0o644))

	ctx := newCleanupContext(t, installDir, "gmp")
	require.NoError(t, PostInstallCleanup(ctx))
	assertGone(t, laPath)
}

func TestPostInstallCleanupRemovesInfoDir(t *testing.T) {
	installDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "share", "info"), 0o755))
	infoDir := filepath.Join(installDir, "share", "info", "dir")
	require.NoError(t, os.WriteFile(infoDir, []byte("x"), 0o644))

	ctx := newCleanupContext(t, installDir, "gmp")
	require.NoError(t, PostInstallCleanup(ctx))
	assertGone(t, infoDir)
}

func TestPostInstallCleanupStripsManHeader(t *testing.T) {
	installDir := t.TempDir()
	manDir := filepath.Join(installDir, "share", "man", "man1")
	require.NoError(t, os.MkdirAll(manDir, 0o755))
	manPath := filepath.Join(manDir, "foo.1")
	content := ".\\\" Generated by something on host XYZ\n.TH FOO 1\nbody\n"
	require.NoError(t, os.WriteFile(manPath, []byte(content), 0o644))

	ctx := newCleanupContext(t, installDir, "gmp")
	require.NoError(t, PostInstallCleanup(ctx))

	got, err := os.ReadFile(manPath)
	require.NoError(t, err)
	assert.Equal(t, ".TH FOO 1\nbody\n", string(got))
}

func TestPostInstallCleanupRemovesKnownStrayArtifact(t *testing.T) {
	installDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "lib"), 0o755))
	libertyPath := filepath.Join(installDir, "lib", "libiberty.a")
	require.NoError(t, os.WriteFile(libertyPath, []byte("x"), 0o644))

	ctx := newCleanupContext(t, installDir, "binutils")
	require.NoError(t, PostInstallCleanup(ctx))
	assertGone(t, libertyPath)
}

func TestPruneGlobRemovesMatches(t *testing.T) {
	installDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "share", "locale", "en"), 0o755))

	ctx := newCleanupContext(t, installDir, "glibc")
	require.NoError(t, ctx.PruneGlob("share/locale/*"))

	entries, err := os.ReadDir(filepath.Join(installDir, "share", "locale"))
	require.NoError(t, err)
	assert.Empty(t, entries, "expected locale subtree pruned")
}
