package recipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/xyz/internal/procexec"
	"github.com/chainguard-dev/xyz/internal/sandbox"
)

type recordingRunner struct {
	calls [][]string
	envs  []map[string]string
}

func (r *recordingRunner) Run(_ context.Context, _ sandbox.Dir, env map[string]string, argv ...string) (procexec.Result, error) {
	r.calls = append(r.calls, append([]string(nil), argv...))
	r.envs = append(r.envs, env)
	return procexec.Result{}, nil
}

func TestValidateVariantOK(t *testing.T) {
	schema := VariantSchema{"target": {"arm-none-eabi", "x86_64-unknown-linux-gnu"}}
	_, _, ok := ValidateVariant(schema, map[string]string{"target": "arm-none-eabi"})
	assert.True(t, ok, "expected valid")
}

func TestValidateVariantUnknownKey(t *testing.T) {
	schema := VariantSchema{"target": {"arm-none-eabi"}}
	badKey, _, ok := ValidateVariant(schema, map[string]string{"abi": "eabi"})
	assert.False(t, ok)
	assert.Equal(t, "abi", badKey)
}

func TestValidateVariantOutOfRange(t *testing.T) {
	schema := VariantSchema{"target": {"arm-none-eabi"}}
	_, badValue, ok := ValidateVariant(schema, map[string]string{"target": "x86_64-linux"})
	assert.False(t, ok)
	assert.Equal(t, "x86_64-linux", badValue)
}

func TestValidateVariantMissingRequiredKey(t *testing.T) {
	schema := VariantSchema{"target": {"arm-none-eabi"}}
	badKey, _, ok := ValidateVariant(schema, map[string]string{})
	assert.False(t, ok, "expected an empty variant to be rejected when the schema requires target")
	assert.Equal(t, "target", badKey)
}

func TestResolveDepsForwardsVariant(t *testing.T) {
	m := Metadata{
		Name: "gcc",
		Deps: []DepSpec{
			{Name: "binutils", Variant: map[string]string{"target": "{target}"}},
			{Name: "gmp"},
		},
	}
	deps, err := m.ResolveDeps(map[string]string{"target": "arm-none-eabi"})
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "binutils", deps[0].Name)
	assert.Equal(t, "arm-none-eabi", deps[0].Variant["target"])
	assert.Equal(t, "gmp", deps[1].Name)
	assert.Nil(t, deps[1].Variant)
}

func newTestContext(t *testing.T, runner *recordingRunner) *Context {
	t.Helper()
	return &Context{
		Go:     context.Background(),
		Runner: runner,
		BuildDir: t.TempDir(),
		Config: map[string]string{
			"prefix":            "/noprefix",
			"eprefix":           "/noprefix/x86_64-unknown-linux-gnu",
			"host":              "x86_64-unknown-linux-gnu",
			"build":             "x86_64-unknown-linux-gnu",
			"source_dir_from_build": "../../source/gmp",
			"standard_ldflags":  "-Lfoo",
			"standard_cppflags": "-Ibar",
			"jobs":              "-j4",
			"target":            "arm-none-eabi",
		},
	}
}

func TestHostLibConfigureDisablesSharedByDefault(t *testing.T) {
	runner := &recordingRunner{}
	ctx := newTestContext(t, runner)
	require.NoError(t, ctx.HostLibConfigure(nil, nil, false))
	assert.Contains(t, runner.calls[0], "--disable-shared")
	assert.Equal(t, "-Lfoo", runner.envs[0]["LDFLAGS"])
}

func TestCrossConfigureAddsProgramPrefix(t *testing.T) {
	runner := &recordingRunner{}
	ctx := newTestContext(t, runner)
	require.NoError(t, ctx.CrossConfigure(nil, nil))
	assert.Contains(t, runner.calls[0], "--program-prefix=arm-none-eabi-")
	_, ok := runner.envs[0]["CPPFLAGS"]
	assert.False(t, ok, "cross configure should not default CPPFLAGS, got %v", runner.envs[0])
}

func TestDefaultMakeUsesJobs(t *testing.T) {
	runner := &recordingRunner{}
	ctx := newTestContext(t, runner)
	require.NoError(t, DefaultMake(ctx))
	assert.Equal(t, []string{"make", "-j4"}, runner.calls[0])
}
