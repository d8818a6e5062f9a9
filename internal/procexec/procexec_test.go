package procexec

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/xyz/internal/sandbox"
)

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), sandbox.Dir(dir), "/nonexistent/bin", nil, "echo", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", strings.TrimSpace(res.Stdout))
}

func TestRunArgvNotShellJoined(t *testing.T) {
	// A single argument containing a space and shell metacharacters must
	// reach the child as one argument, never reinterpreted by a shell.
	dir := t.TempDir()
	res, err := Run(context.Background(), sandbox.Dir(dir), "/nonexistent/bin", nil, "echo", "a;b && c")
	require.NoError(t, err)
	assert.Equal(t, "a;b && c", strings.TrimSpace(res.Stdout), "argv was shell-interpreted")
}

func TestRunFailureNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), sandbox.Dir(dir), "/nonexistent/bin", nil, "false")
	assert.Error(t, err)
}

func TestRunEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), sandbox.Dir(dir), "/nonexistent/bin", map[string]string{"FOO": "bar"}, "sh", "-c", "echo $FOO")
	require.NoError(t, err)
	assert.Equal(t, "bar", strings.TrimSpace(res.Stdout))
}

func TestRunEmptyArgv(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), sandbox.Dir(dir))
	assert.Error(t, err)
}
