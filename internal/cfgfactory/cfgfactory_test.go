package cfgfactory

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/xyz/internal/usageerr"
)

func TestVariantNameSortsKeys(t *testing.T) {
	got := VariantName("gcc", map[string]string{"target": "arm-none-eabi", "abi": "eabi"}, "x86_64-unknown-linux-gnu")
	assert.Equal(t, "gcc-abi_eabi-target_arm-none-eabi-x86_64-unknown-linux-gnu", got)
}

func TestVariantNameNoVariant(t *testing.T) {
	got := VariantName("texinfo", nil, "x86_64-unknown-linux-gnu")
	assert.Equal(t, "texinfo-x86_64-unknown-linux-gnu", got)
}

func TestBuildLinuxFlags(t *testing.T) {
	cfg, err := Build(Params{
		PkgName:     "gmp",
		VariantName: "gmp-x86_64-unknown-linux-gnu",
		Host:        "x86_64-unknown-linux-gnu",
		Build:       "x86_64-unknown-linux-gnu",
		RootDir:     ".",
		Jobs:        4,
		RepoPrefix:  "git://github.com/example/",
	})
	require.NoError(t, err)

	want := map[string]string{
		"jobs":         "-j4",
		"pkg_name":     "gmp",
		"variant_name": "gmp-x86_64-unknown-linux-gnu",
		"repo_name":    "git://github.com/example/gmp",
	}
	got := map[string]string{
		"jobs":         cfg["jobs"],
		"pkg_name":     cfg["pkg_name"],
		"variant_name": cfg["variant_name"],
		"repo_name":    cfg["repo_name"],
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("config map mismatch (-want +got):\n%s", d)
	}

	assert.Contains(t, cfg["standard_ldflags"], "-L")
	assert.NotContains(t, cfg["standard_ldflags"], "syslibroot")
}

func TestBuildDarwinFlags(t *testing.T) {
	cfg, err := Build(Params{
		PkgName:           "gmp",
		VariantName:       "gmp-x86_64-apple-darwin",
		Host:              "x86_64-apple-darwin",
		Build:             "x86_64-apple-darwin",
		RootDir:           ".",
		Jobs:              1,
		UsesOSXFrameworks: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(cfg["standard_ldflags"], "-F/Library/Frameworks"))
	assert.True(t, strings.Contains(cfg["standard_cppflags"], "-isysroot"))
}

func TestBuildUnknownPlatformIsUsageError(t *testing.T) {
	_, err := Build(Params{
		PkgName:     "binutils",
		VariantName: "binutils-target_arm-none-eabi-arm-none-eabi",
		Host:        "arm-none-eabi",
		Build:       "x86_64-unknown-linux-gnu",
		RootDir:     ".",
	})
	require.Error(t, err)
	assert.True(t, usageerr.Is(err), "expected a UsageError, got %T: %v", err, err)
}
