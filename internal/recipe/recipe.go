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

// Package recipe is the package model: the Recipe interface every
// buildable package implements, the variant schema that guards
// instantiation, the dependency-edge tagged union, and the shared
// configure/install helpers recipes call from their hooks. This is
// the Go analogue of the Python BuildProtocol/Package classes in the
// historical implementation — a recipe is a value, not data, because
// its hooks run arbitrary code.
package recipe

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/xyz/internal/tmpl"
)

// Dependency is a tagged union: either a bare package name (Variant is
// nil) or a name qualified by a variant assignment, as when gcc
// depends on "binutils" qualified by its own target variant.
type Dependency struct {
	Name    string
	Variant map[string]string
}

// Dep builds an unqualified dependency edge.
func Dep(name string) Dependency { return Dependency{Name: name} }

// QualifiedDep builds a variant-qualified dependency edge.
func QualifiedDep(name string, variant map[string]string) Dependency {
	return Dependency{Name: name, Variant: variant}
}

// VariantSchema maps a variant key to its legal values. An empty or
// nil schema means the recipe takes no variant.
type VariantSchema map[string][]string

// Recipe is the package model's code half: the phase hooks, which run
// arbitrary logic and so must be Go, not data. Everything about a
// recipe that is pure data — its dependencies, variant schema, and
// group-only/crosstool/uses-osx-frameworks flags — lives in its
// Metadata (recipe.yaml) instead; see internal/loader. Configure has
// no default — the recipe must supply build-system specific logic.
// Make and Install have engine-provided defaults (DefaultMake,
// DefaultInstall) that most recipes call as-is or extend.
type Recipe interface {
	// Name is the recipe's declared package name, checked by the loader
	// against the name it was requested under and against recipe.yaml's
	// own name field.
	Name() string

	Configure(ctx *Context) error
	Make(ctx *Context) error
	Install(ctx *Context) error
}

// DepSpec is one recipe.yaml dependency entry: a bare name, or a name
// with a variant whose values may themselves be {key} templates
// resolved against the depending instance's own variant (how gcc's
// recipe.yaml forwards its `target` variant into its binutils
// dependency without any Go code).
type DepSpec struct {
	Name    string            `yaml:"name"`
	Variant map[string]string `yaml:"variant,omitempty"`
}

// Metadata is a recipe's declarative data, loaded from its recipe.yaml
// sidecar.
type Metadata struct {
	Name              string        `yaml:"name"`
	Deps              []DepSpec     `yaml:"deps,omitempty"`
	VariantSchema     VariantSchema `yaml:"variant_schema,omitempty"`
	GroupOnly         bool          `yaml:"group_only,omitempty"`
	Crosstool         bool          `yaml:"crosstool,omitempty"`
	UsesOSXFrameworks bool          `yaml:"uses_osx_frameworks,omitempty"`
}

// ResolveDeps renders every DepSpec's variant-value templates against
// variant (the depending instance's own frozen variant) and returns
// the concrete dependency edges.
func (m Metadata) ResolveDeps(variant map[string]string) ([]Dependency, error) {
	out := make([]Dependency, 0, len(m.Deps))
	for _, d := range m.Deps {
		if len(d.Variant) == 0 {
			out = append(out, Dep(d.Name))
			continue
		}
		resolved := make(map[string]string, len(d.Variant))
		for k, v := range d.Variant {
			rv, err := renderAgainst(v, variant)
			if err != nil {
				return nil, err
			}
			resolved[k] = rv
		}
		out = append(out, QualifiedDep(d.Name, resolved))
	}
	return out, nil
}

// Instance is a package recipe frozen with a specific variant: the
// unit the engine actually builds. It is identified by
// (pkg_name, frozen variant, host) and memoised by the resolver so a
// transitive dependency referenced twice is only instantiated once.
type Instance struct {
	Recipe      Recipe
	Metadata    Metadata
	Variant     map[string]string
	VariantName string
	Config      map[string]string
}

// EffectiveDeps returns this instance's dependency edges, as declared
// in its recipe.yaml and resolved against its frozen variant.
func (inst *Instance) EffectiveDeps() ([]Dependency, error) {
	return inst.Metadata.ResolveDeps(inst.Variant)
}

// Rendered fully resolves inst.Config[key] — which may itself
// reference other keys, per the config factory's nested templates —
// against inst.Config.
func (inst *Instance) Rendered(key string) (string, error) {
	v, ok := inst.Config[key]
	if !ok {
		return "", fmt.Errorf("recipe: instance %s has no config key %q", inst.VariantName, key)
	}
	return tmpl.Render(v, inst.Config)
}

// ValidateVariant checks variant against schema: every key in variant
// must be declared in schema with one of its allowed values, and every
// key declared in schema must be present in variant — a schema key
// missing from variant is reported the same as an out-of-range value,
// since an absent {target} substitution fails later, mid-build, rather
// than up front. An unknown key or an out-of-range value is reported
// by name so the caller can build a UsageError from it.
func ValidateVariant(schema VariantSchema, variant map[string]string) (badKey, badValue string, ok bool) {
	for k, v := range variant {
		allowed, declared := schema[k]
		if !declared {
			return k, v, false
		}
		found := false
		for _, a := range allowed {
			if a == v {
				found = true
				break
			}
		}
		if !found {
			return k, v, false
		}
	}
	for k := range schema {
		if _, present := variant[k]; !present {
			return k, "", false
		}
	}
	return "", "", true
}

// renderAgainst resolves {key} templates in s against a plain variant
// map rather than a full configuration map — used for recipe.yaml
// dependency-variant forwarding, which only ever references the
// depending instance's own variant keys.
func renderAgainst(s string, variant map[string]string) (string, error) {
	return tmpl.Render(s, variant)
}

// Context is the environment injected into a recipe's hooks: config
// substitution and the subprocess driver, scoped to this instance's
// build directory. It is the Go analogue of self.config/self.builder
// in the historical recipes.
type Context struct {
	Go      context.Context
	Config  map[string]string
	Runner  Runner
	BuildDir string
}
