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

// Package fixtures registers a small set of recipes mirroring
// original_source/rules/{texinfo,gmp,mpfr,binutils,arm-toolchain}.py,
// for the engine's seed tests. Importing this package for its side
// effect (the init functions) registers every fixture recipe with
// internal/loader; RecipesDir locates the recipe.yaml sidecars that
// live alongside this file.
package fixtures

import (
	"path/filepath"
	"runtime"

	"github.com/chainguard-dev/xyz/internal/loader"
	"github.com/chainguard-dev/xyz/internal/recipe"
)

// RecipesDir returns the absolute path to this package's recipes/
// directory, regardless of the caller's working directory — tests run
// from any package directory and still need to find these sidecars.
func RecipesDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "recipes")
}

type texinfoRecipe struct{}

func (texinfoRecipe) Name() string { return "texinfo" }
func (texinfoRecipe) Configure(c *recipe.Context) error {
	return c.HostLibConfigure(nil, nil, false)
}
func (texinfoRecipe) Make(c *recipe.Context) error    { return recipe.DefaultMake(c) }
func (texinfoRecipe) Install(c *recipe.Context) error { return recipe.DefaultInstall(c) }

type gmpRecipe struct{}

func (gmpRecipe) Name() string { return "gmp" }
func (gmpRecipe) Configure(c *recipe.Context) error {
	return c.HostLibConfigure(nil, nil, false)
}
func (gmpRecipe) Make(c *recipe.Context) error    { return recipe.DefaultMake(c) }
func (gmpRecipe) Install(c *recipe.Context) error { return recipe.DefaultInstall(c) }

type mpfrRecipe struct{}

func (mpfrRecipe) Name() string { return "mpfr" }
func (mpfrRecipe) Configure(c *recipe.Context) error {
	return c.HostLibConfigure([]string{"--with-gmp={devtree_dir_abs}/{host}"}, nil, false)
}
func (mpfrRecipe) Make(c *recipe.Context) error    { return recipe.DefaultMake(c) }
func (mpfrRecipe) Install(c *recipe.Context) error { return recipe.DefaultInstall(c) }

type binutilsRecipe struct{}

func (binutilsRecipe) Name() string { return "binutils" }
func (binutilsRecipe) Configure(c *recipe.Context) error {
	return c.CrossConfigure([]string{
		"--disable-nls",
		"--enable-lto",
		"--enable-ld=yes",
		"--without-zlib",
	}, nil)
}
func (binutilsRecipe) Make(c *recipe.Context) error    { return recipe.DefaultMake(c) }
func (binutilsRecipe) Install(c *recipe.Context) error { return recipe.DefaultInstall(c) }

// armToolchainRecipe is group-only: the engine never calls its phase
// hooks, but the Recipe interface still requires them.
type armToolchainRecipe struct{}

func (armToolchainRecipe) Name() string                      { return "arm-toolchain" }
func (armToolchainRecipe) Configure(*recipe.Context) error    { return nil }
func (armToolchainRecipe) Make(*recipe.Context) error         { return nil }
func (armToolchainRecipe) Install(*recipe.Context) error      { return nil }

func init() {
	loader.Register("texinfo", func() recipe.Recipe { return texinfoRecipe{} })
	loader.Register("gmp", func() recipe.Recipe { return gmpRecipe{} })
	loader.Register("mpfr", func() recipe.Recipe { return mpfrRecipe{} })
	loader.Register("binutils", func() recipe.Recipe { return binutilsRecipe{} })
	loader.Register("arm-toolchain", func() recipe.Recipe { return armToolchainRecipe{} })
}
