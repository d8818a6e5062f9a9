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

// Package loader is the recipe loader: it locates a package recipe by
// name and instantiates it. The historical implementation dynamically
// imports a Python module named by convention and asserts its
// pkg_name attribute matches; this is a Go systems-language
// restatement of the same contract using compile-time registration
// (option (a) from the redesign notes) plus a recipe.yaml sidecar for
// declarative metadata.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chainguard-dev/xyz/internal/recipe"
)

// Factory constructs a recipe's code half. Recipes register themselves
// at package init time, mirroring the historical module-alias trick
// that let recipes "import xyz" without re-initialising the engine —
// here every recipe package imports internal/loader, not the other
// way around, so there is no import cycle to avoid.
type Factory func() recipe.Recipe

var registry = map[string]Factory{}

// Register adds a recipe factory to the process-wide registry, keyed
// by the name it claims to build. Called from recipe package init
// functions.
func Register(name string, f Factory) {
	registry[name] = f
}

// conventionalDirNames are the recipe-directory basenames the loader
// checks, in order, when the caller doesn't pass an explicit path —
// the same convention-over-configuration pattern melange's
// DetectPipelineDir uses for its own pipeline directory.
var conventionalDirNames = []string{"recipes", ".xyz/recipes"}

// DetectRecipesDir looks for one of the conventional recipe directory
// names beneath root and returns the first that exists.
func DetectRecipesDir(root string) (string, error) {
	for _, name := range conventionalDirNames {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("loader: no recipes directory found under %s (tried %v)", root, conventionalDirNames)
}

// Load locates pkgName's recipe.yaml under recipesDir, parses it, and
// pairs it with the registered Go factory for pkgName. It asserts that
// the YAML's own name field, the requested name, and the factory's
// Recipe.Name() all agree, matching the historical loader's assertion
// that the imported module's pkg_name equals the name it was imported
// under.
func Load(recipesDir, pkgName string) (recipe.Recipe, recipe.Metadata, error) {
	yamlPath := filepath.Join(recipesDir, pkgName, "recipe.yaml")
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, recipe.Metadata{}, fmt.Errorf("loader: read %s: %w", yamlPath, err)
	}

	var meta recipe.Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, recipe.Metadata{}, fmt.Errorf("loader: parse %s: %w", yamlPath, err)
	}
	if meta.Name != pkgName {
		return nil, recipe.Metadata{}, fmt.Errorf("loader: %s declares name %q, requested %q", yamlPath, meta.Name, pkgName)
	}

	factory, ok := registry[pkgName]
	if !ok {
		return nil, recipe.Metadata{}, fmt.Errorf("loader: no recipe registered for %q", pkgName)
	}
	r := factory()
	if r.Name() != pkgName {
		return nil, recipe.Metadata{}, fmt.Errorf("loader: registered recipe for %q reports Name() == %q", pkgName, r.Name())
	}

	return r, meta, nil
}
