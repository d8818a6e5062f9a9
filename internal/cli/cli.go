// Copyright 2022 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli wires the engine up to a cobra/pflag command line,
// matching the flags table in spec.md §6 verbatim.
package cli

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chainguard-dev/xyz/internal/loader"
)

// Flags holds every xyz flag, mirroring the BuildFlags-struct
// convention: one struct, one addFlags registering function, bound by
// pointer so the command's RunE reads the final parsed values.
type Flags struct {
	Build string
	Host  string
	Jobs  int

	Reconfigure    bool
	Force          bool
	ForceRecursive bool
	Config         string

	Clean         bool
	CleanRelease  bool
	CheckReleases bool

	PkgRoot string
	List    bool

	RootDir    string
	RecipesDir string
	EngineRepo string
	RepoPrefix string

	VarsFile string
	EnvFile  string
}

func addFlags(fs *pflag.FlagSet, f *Flags) {
	fs.StringVar(&f.Build, "build", runtime.GOARCH+"-unknown-linux-gnu", "override autodetected build platform triple")
	fs.StringVar(&f.Host, "host", "", "override host platform triple (defaults to --build)")
	fs.IntVarP(&f.Jobs, "jobs", "j", 1, "parallelism passed to make")

	fs.BoolVar(&f.Reconfigure, "reconfigure", false, "delete .configured sentinels and rerun configure")
	fs.BoolVar(&f.Force, "force", false, "remove devtree/build/install for the named package before building")
	fs.BoolVar(&f.ForceRecursive, "force-recursive", false, "implies --force and propagates to dependencies")
	fs.StringVar(&f.Config, "config", "", "comma-separated variant assignments (k:v,k:v,...) passed to each named package")

	fs.BoolVar(&f.Clean, "clean", false, "remove install, devtree and build for the named packages and exit")
	fs.BoolVar(&f.CleanRelease, "clean-release", false, "also remove release and exit")
	fs.BoolVar(&f.CheckReleases, "check-releases", false, "verify release archives for duplicate-path consistency")

	fs.StringVar(&f.PkgRoot, "pkg-root", "", "root of an installed package set for --list")
	fs.BoolVar(&f.List, "list", false, "list packages installed under --pkg-root")

	fs.StringVar(&f.RootDir, "root", ".", "packaging tree root")
	fs.StringVar(&f.RecipesDir, "recipes-dir", "", "recipe directory (autodetected under --root if unset)")
	fs.StringVar(&f.EngineRepo, "engine-repo", ".", "engine repository read for the manifest's XYZ Version line")
	fs.StringVar(&f.RepoPrefix, "repo-prefix", "git://example.invalid/", "compiled-in upstream git URL prefix")

	fs.StringVar(&f.VarsFile, "vars-file", "", "YAML file of extra configuration variables merged before substitution")
	fs.StringVar(&f.EnvFile, "env-file", "", "dotenv file of extra environment variables merged into every subprocess")
}

// NewRootCommand builds the xyz root command.
func NewRootCommand() *cobra.Command {
	f := &Flags{}

	cmd := &cobra.Command{
		Use:           "xyz [packages...]",
		Short:         "Resolve, build, and package software from source",
		Long:          "xyz resolves a package's dependency graph, builds each member from source via configure/make/install, stages dependencies into a private devtree sysroot, and emits a deterministic release archive.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, args)
		},
	}
	addFlags(cmd.Flags(), f)
	return cmd
}

func run(ctx context.Context, f *Flags, pkgs []string) error {
	switch {
	case f.List:
		return runList(f.PkgRoot)

	case f.CheckReleases:
		return runCheckReleases(f.RootDir)

	case f.Clean, f.CleanRelease:
		host := f.Host
		if host == "" {
			host = f.Build
		}
		variant, err := parseConfig(f.Config)
		if err != nil {
			return err
		}
		return runClean(f.RootDir, host, f.Build, pkgs, variant, f.CleanRelease)

	default:
		host := f.Host
		if host == "" {
			host = f.Build
		}
		recipesDir := f.RecipesDir
		if recipesDir == "" {
			detected, err := loader.DetectRecipesDir(f.RootDir)
			if err != nil {
				return err
			}
			recipesDir = detected
		}
		return runBuild(ctx, f, host, recipesDir, pkgs)
	}
}
