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

// Package resolve is the dependency resolver: for a package instance,
// walk its (platform-adjusted) dependency edges in declaration order,
// recursively materialising and extracting each one into the
// instance's devtree before its own build pipeline runs. It memoises
// instances by variant name and keeps an explicit visited set, closing
// the redesign-notes gap where the historical resolver had no cycle
// detection at all.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainguard-dev/xyz/internal/cfgfactory"
	"github.com/chainguard-dev/xyz/internal/recipe"
)

// Instantiate builds a fully configured package instance for a
// dependency edge. Supplied by the engine, which owns the config
// factory call and recipe loading.
type Instantiate func(ctx context.Context, dep recipe.Dependency) (*recipe.Instance, error)

// EnsureBuilt drives a dependency instance through the full build
// pipeline if its release archive doesn't already exist. Supplied by
// the engine so the resolver can recurse into it without an import
// cycle. path is the chain of variant names currently being staged,
// up to and including the instance that depends on inst — the engine
// must thread it back into its own recursive StageDeps call so a
// multi-level cycle (A depends on B depends on A) is caught across
// the EnsureBuilt boundary, not just within one StageDeps call.
type EnsureBuilt func(ctx context.Context, inst *recipe.Instance, forceRecursive bool, path []string) error

// ExtractInto extracts a dependency's release archive into this
// package's devtree directory, via the opaque `tar xf` child process
// (per spec.md §1, tar extraction of a devtree dependency is an
// external collaborator, never reimplemented — only the release
// archive write path is done in-process).
type ExtractInto func(ctx context.Context, releaseFile, devtreeDirAbs string) error

// Cache memoises package instances by variant name so a transitive
// dependency referenced from two different packages is only
// instantiated once.
type Cache struct {
	mu        sync.Mutex
	instances map[string]*recipe.Instance
}

// NewCache returns an empty instance cache.
func NewCache() *Cache {
	return &Cache{instances: make(map[string]*recipe.Instance)}
}

// GetOrCreate returns the cached instance for variantName, calling
// create to build one if this is the first request.
func (c *Cache) GetOrCreate(variantName string, create func() (*recipe.Instance, error)) (*recipe.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[variantName]; ok {
		return inst, nil
	}
	inst, err := create()
	if err != nil {
		return nil, err
	}
	c.instances[variantName] = inst
	return inst, nil
}

// DepsOf returns a package instance's effective dependency edges —
// normally EffectiveDeps bound to the builder's host platform family,
// so the platform-conditional glibc prepend is applied consistently
// at every level of the recursion.
type DepsOf func(inst *recipe.Instance) ([]recipe.Dependency, error)

// Resolver drives the recursive dependency-staging sequence for one
// package instance.
type Resolver struct {
	DepsOf      DepsOf
	Instantiate Instantiate
	EnsureBuilt EnsureBuilt
	ExtractInto ExtractInto
}

// CycleError is a resolver error (error taxonomy 4): a recipe's
// dependency graph revisits a package already on the current descent
// path.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolve: dependency cycle detected: %v", e.Path)
}

// EffectiveDeps returns inst's dependency edges, with glibc prepended
// when the host platform family is linux-gnu and inst is not glibc
// itself — the one platform-conditional rule spec.md §4.4 assigns to
// the resolver rather than to any individual recipe.
func EffectiveDeps(inst *recipe.Instance, hostFamily cfgfactory.Family) ([]recipe.Dependency, error) {
	deps, err := inst.EffectiveDeps()
	if err != nil {
		return nil, err
	}
	if hostFamily != cfgfactory.FamilyLinux || inst.Recipe.Name() == "glibc" {
		return deps, nil
	}
	for _, d := range deps {
		if d.Name == "glibc" {
			return deps, nil
		}
	}
	return append([]recipe.Dependency{recipe.Dep("glibc")}, deps...), nil
}

// StageDeps walks inst's effective dependencies in declaration order:
// for each, resolve (or reuse a memoised) instance, ensure it is
// built, then extract its release archive into devtreeDirAbs. path
// carries the chain of variant names currently being staged, used
// purely for cycle detection and error reporting; callers invoke this
// with path == nil.
func (r *Resolver) StageDeps(ctx context.Context, inst *recipe.Instance, devtreeDirAbs string, forceRecursive bool, path []string) error {
	for _, p := range path {
		if p == inst.VariantName {
			return &CycleError{Path: append(append([]string(nil), path...), inst.VariantName)}
		}
	}
	nextPath := append(append([]string(nil), path...), inst.VariantName)

	deps, err := r.DepsOf(inst)
	if err != nil {
		return fmt.Errorf("resolve: %s: %w", inst.VariantName, err)
	}

	// Extraction order is declaration order, never resorted (spec.md §4.5):
	// later dependencies may intentionally overwrite earlier ones' files.
	for _, dep := range deps {
		depInst, err := r.Instantiate(ctx, dep)
		if err != nil {
			return fmt.Errorf("resolve: instantiate %s: %w", dep.Name, err)
		}

		for _, p := range nextPath {
			if p == depInst.VariantName {
				return &CycleError{Path: append(append([]string(nil), nextPath...), depInst.VariantName)}
			}
		}

		if err := r.EnsureBuilt(ctx, depInst, forceRecursive, nextPath); err != nil {
			return fmt.Errorf("resolve: build %s: %w", depInst.VariantName, err)
		}
		releaseFile, err := depInst.Rendered("release_file")
		if err != nil {
			return err
		}
		if err := r.ExtractInto(ctx, releaseFile, devtreeDirAbs); err != nil {
			return fmt.Errorf("resolve: extract %s into devtree: %w", depInst.VariantName, err)
		}
	}
	return nil
}
