package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLiteral(t *testing.T) {
	got, err := Render("no placeholders here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no placeholders here", got)
}

func TestRenderSingleKey(t *testing.T) {
	cfg := map[string]string{"host": "x86_64-unknown-linux-gnu"}
	got, err := Render("--host={host}", cfg)
	require.NoError(t, err)
	assert.Equal(t, "--host=x86_64-unknown-linux-gnu", got)
}

func TestRenderRecursive(t *testing.T) {
	cfg := map[string]string{
		"prefix":      "/noprefix",
		"host":        "x86_64-unknown-linux-gnu",
		"eprefix":     "{prefix}/{host}",
		"eprefix_dir": "{install_dir}{eprefix}",
		"install_dir": "/tmp/install",
	}
	got, err := Render("{eprefix_dir}", cfg)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/install/noprefix/x86_64-unknown-linux-gnu", got)
}

func TestRenderUnknownKey(t *testing.T) {
	_, err := Render("{nope}", map[string]string{})
	assert.Error(t, err)
}

func TestRenderSelfReferentialCycle(t *testing.T) {
	cfg := map[string]string{"a": "{a}"}
	_, err := Render("{a}", cfg)
	assert.Error(t, err)
}

func TestRenderAll(t *testing.T) {
	cfg := map[string]string{"jobs": "-j4"}
	got, err := RenderAll([]string{"make", "{jobs}"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"make", "-j4"}, got)
}

func TestKeys(t *testing.T) {
	keys := Parse("{a}-{b}").Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "a", keys[0])
	assert.Equal(t, "b", keys[1])
}
