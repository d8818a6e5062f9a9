package archive

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestFormat(t *testing.T) {
	h := ManifestHeader{
		VariantName:   "gmp-x86_64-unknown-linux-gnu",
		SourceVersion: "deadbeef*",
		EngineVersion: "cafef00d",
	}
	got := Manifest(h, map[string]string{
		"bin/foo": "aaa",
		"lib/bar": "bbb",
	})
	want := "gmp-x86_64-unknown-linux-gnu\n" +
		"Source Version: deadbeef*\n" +
		"XYZ Version: cafef00d\n" +
		"\n" +
		"aaa bin/foo\n" +
		"bbb lib/bar\n"
	assert.Equal(t, want, got)
}

func TestManifestOmitsSourceVersionForGroupOnly(t *testing.T) {
	h := ManifestHeader{VariantName: "arm-toolchain-x86_64-unknown-linux-gnu", EngineVersion: "cafef00d"}
	got := Manifest(h, nil)
	assert.Equal(t, "arm-toolchain-x86_64-unknown-linux-gnu\nXYZ Version: cafef00d\n\n", got)
}

func TestWriteReleaseTarGzDeterministic(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "share", "xyz"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "tool"), []byte("bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "share", "xyz", "variant"), []byte("manifest"), 0o644))

	dst1 := filepath.Join(t.TempDir(), "out1.tar.gz")
	dst2 := filepath.Join(t.TempDir(), "out2.tar.gz")
	ctx := context.Background()
	require.NoError(t, WriteReleaseTarGz(ctx, src, dst1))
	require.NoError(t, WriteReleaseTarGz(ctx, src, dst2))

	b1, err := os.ReadFile(dst1)
	require.NoError(t, err)
	b2, err := os.ReadFile(dst2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "archives should be byte-for-byte identical")
}

func TestWriteReleaseTarGzNormalisesMetadata(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "tool"), []byte("bin"), 0o755))

	dst := filepath.Join(t.TempDir(), "out.tar.gz")
	require.NoError(t, WriteReleaseTarGz(context.Background(), src, dst))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	hdr, err := tr.Next()
	require.NoError(t, err)

	assert.Equal(t, entryUID, hdr.Uid)
	assert.Equal(t, entryGID, hdr.Gid)
	assert.Equal(t, entryOwner, hdr.Uname)
	assert.Equal(t, entryGroup, hdr.Gname)
	assert.True(t, hdr.ModTime.Equal(BaseTime), "unexpected mtime: %v", hdr.ModTime)
}
