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

// Package engine is the top-level build driver: resolve → download →
// configure (once, persisted) → make → install → package. It owns the
// sysroot staging sequence (via internal/resolve) and the per-package
// state machine described in spec.md §4.6.
package engine

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/pkg/errors"

	"github.com/chainguard-dev/xyz/internal/cfgfactory"
	"github.com/chainguard-dev/xyz/internal/loader"
	"github.com/chainguard-dev/xyz/internal/procexec"
	"github.com/chainguard-dev/xyz/internal/recipe"
	"github.com/chainguard-dev/xyz/internal/resolve"
	"github.com/chainguard-dev/xyz/internal/sandbox"
	"github.com/chainguard-dev/xyz/internal/usageerr"
)

// Exec is the subprocess entry point the builder drives every opaque
// child process through: git clone, tar xf, make, configure. Its
// shape mirrors internal/procexec.Run exactly so the real driver can
// be used as-is; tests swap it for a recording fake so the seed tests
// don't require a real toolchain.
type Exec func(ctx context.Context, dir sandbox.Dir, devtreeHostBin string, env map[string]string, argv ...string) (procexec.Result, error)

// boundRunner adapts Exec, with a devtree host-bin path and an
// --env-file overlay already bound, to the recipe.Runner interface a
// recipe's Context needs.
type boundRunner struct {
	exec           Exec
	devtreeHostBin string
	extraEnv       map[string]string
}

func (r boundRunner) Run(ctx context.Context, dir sandbox.Dir, env map[string]string, argv ...string) (procexec.Result, error) {
	merged := make(map[string]string, len(r.extraEnv)+len(env))
	for k, v := range r.extraEnv {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	return r.exec(ctx, dir, r.devtreeHostBin, merged, argv...)
}

// Builder is the top-level driver: one per invocation of the CLI,
// parameterised by build/host platform and parallelism.
type Builder struct {
	Host  string
	Build string
	Jobs  int

	// RootDir is the packaging tree root (source/, build/, devtree/,
	// install/, release/).
	RootDir string
	// RecipesDir holds each package's recipe.yaml sidecar.
	RecipesDir string
	// EngineRepoDir is read for the manifest's XYZ Version line —
	// normally the engine's own checkout.
	EngineRepoDir string
	// RepoPrefix is the compiled-in upstream git URL prefix.
	RepoPrefix string

	// ExtraEnv overlays every subprocess invocation's environment,
	// sourced from --env-file.
	ExtraEnv map[string]string
	// ExtraVars overlays every package's configuration map before
	// substitution, sourced from --vars-file.
	ExtraVars map[string]string

	// Exec runs an external command. Required; NewBuilder does not
	// default it, since the zero value silently executing nothing
	// would be a worse failure mode than a nil-pointer panic during
	// development.
	Exec Exec

	cache *resolve.Cache
}

// NewBuilder constructs a Builder with a fresh instance cache.
func NewBuilder(b Builder) *Builder {
	b.cache = resolve.NewCache()
	if b.Jobs < 1 {
		b.Jobs = 1
	}
	return &b
}

// Options parameterises one Build invocation (spec.md §6 flags).
type Options struct {
	Variant        map[string]string
	Force          bool
	ForceRecursive bool
	Reconfigure    bool
}

// Build drives pkgName through the full resolve/download/configure/
// make/install/package pipeline, unconditionally — an explicitly
// requested top-level package always runs the pipeline; only its
// dependencies are skipped when already materialised on disk (see
// internal/resolve).
func (b *Builder) Build(ctx context.Context, pkgName string, opts Options) error {
	inst, err := b.loadInstance(pkgName, opts.Variant)
	if err != nil {
		return err
	}
	return b.runPipeline(ctx, inst, opts, nil)
}

// loadInstance loads pkgName's recipe, validates the requested variant
// against its schema, computes its deterministic variant name, and
// returns the (possibly memoised) package instance with a fully built
// configuration map.
func (b *Builder) loadInstance(pkgName string, variant map[string]string) (*recipe.Instance, error) {
	r, meta, err := loader.Load(b.RecipesDir, pkgName)
	if err != nil {
		return nil, fmt.Errorf("engine: load recipe %q: %w", pkgName, err)
	}

	if badKey, badValue, ok := recipe.ValidateVariant(meta.VariantSchema, variant); !ok {
		return nil, usageerr.New("engine: package %q rejects variant %s=%q", pkgName, badKey, badValue)
	}

	variantName := cfgfactory.VariantName(pkgName, variant, b.Host)

	return b.cache.GetOrCreate(variantName, func() (*recipe.Instance, error) {
		cfg, err := cfgfactory.Build(cfgfactory.Params{
			PkgName:           pkgName,
			VariantName:       variantName,
			Variant:           variant,
			Host:              b.Host,
			Build:             b.Build,
			RootDir:           b.RootDir,
			Jobs:              b.Jobs,
			UsesOSXFrameworks: meta.UsesOSXFrameworks,
			RepoPrefix:        b.RepoPrefix,
		})
		if err != nil {
			return nil, err
		}
		for k, v := range b.ExtraVars {
			cfg[k] = v
		}
		return &recipe.Instance{
			Recipe:      r,
			Metadata:    meta,
			Variant:     variant,
			VariantName: variantName,
			Config:      cfg,
		}, nil
	})
}

// hostFamily parses the builder's host triple once per pipeline run;
// an unparseable triple is a usage error surfaced before any
// filesystem side effect.
func (b *Builder) hostFamily() (cfgfactory.Family, error) {
	p, ok := cfgfactory.ParsePlatform(b.Host)
	if !ok {
		return "", usageerr.New("engine: malformed host platform triple %q", b.Host)
	}
	return p.Family(), nil
}

// runPipeline is the per-package state machine from spec.md §4.6:
// START → (force) → DEPS_STAGED → (group-only shortcut) →
// SOURCE_PRESENT → CONFIGURED → BUILT → INSTALLED → PACKAGED. path is
// the chain of variant names currently being staged by an ancestor
// StageDeps call, threaded through so a cycle spanning more than one
// dependency level (A -> B -> A) is caught instead of recursing until
// the stack overflows; top-level Build calls start with path == nil.
func (b *Builder) runPipeline(ctx context.Context, inst *recipe.Instance, opts Options, path []string) error {
	log := clog.FromContext(ctx).With("package", inst.VariantName)
	ctx = clog.WithLogger(ctx, log)

	devtreeDirAbs, err := inst.Rendered("devtree_dir_abs")
	if err != nil {
		return err
	}
	buildDir, err := inst.Rendered("build_dir")
	if err != nil {
		return err
	}
	installDirAbs, err := inst.Rendered("install_dir_abs")
	if err != nil {
		return err
	}

	if opts.Force || opts.ForceRecursive {
		log.Infof("force: removing devtree, build, and install directories")
		if err := removeAll(devtreeDirAbs, buildDir, installDirAbs); err != nil {
			return errors.Wrap(err, "engine: force cleanup")
		}
	}

	if err := ensureDir(devtreeDirAbs); err != nil {
		return errors.Wrap(err, "engine: create devtree directory")
	}

	family, err := b.hostFamily()
	if err != nil {
		return err
	}

	resolver := &resolve.Resolver{
		DepsOf: func(i *recipe.Instance) ([]recipe.Dependency, error) {
			return resolve.EffectiveDeps(i, family)
		},
		Instantiate: func(_ context.Context, dep recipe.Dependency) (*recipe.Instance, error) {
			return b.loadInstance(dep.Name, dep.Variant)
		},
		EnsureBuilt: func(ctx context.Context, depInst *recipe.Instance, forceRecursive bool, depPath []string) error {
			return b.ensureDepBuilt(ctx, depInst, forceRecursive, opts.Reconfigure, depPath)
		},
		ExtractInto: func(ctx context.Context, releaseFile, devtreeDirAbs string) error {
			return b.extractInto(ctx, inst, releaseFile, devtreeDirAbs)
		},
	}
	if err := resolver.StageDeps(ctx, inst, devtreeDirAbs, opts.ForceRecursive, path); err != nil {
		return errors.Wrap(err, "engine: stage dependencies")
	}
	log.Infof("dependencies staged")

	if inst.Metadata.GroupOnly {
		return b.packageGroupOnly(ctx, inst, devtreeDirAbs, installDirAbs)
	}

	sourceDir, err := inst.Rendered("source_dir")
	if err != nil {
		return err
	}
	if !pathExists(sourceDir) {
		repoName, err := inst.Rendered("repo_name")
		if err != nil {
			return err
		}
		log.Infof("cloning %s", repoName)
		if _, err := b.exec(ctx, inst, sandbox.Dir("."), nil, "git", "clone", repoName, sourceDir); err != nil {
			return errors.Wrapf(err, "engine: clone %s", repoName)
		}
	}

	if err := ensureDir(buildDir); err != nil {
		return errors.Wrap(err, "engine: create build directory")
	}

	configured := configuredSentinel(buildDir)
	if opts.Reconfigure && pathExists(configured) {
		log.Infof("reconfigure: clearing configured sentinel")
		if err := removeFile(configured); err != nil {
			return errors.Wrap(err, "engine: clear configured sentinel")
		}
	}
	if !pathExists(configured) {
		log.Infof("configuring")
		if err := inst.Recipe.Configure(b.newRecipeContext(ctx, inst, buildDir)); err != nil {
			return errors.Wrap(err, "engine: configure")
		}
		if err := touchFile(configured); err != nil {
			return errors.Wrap(err, "engine: write configured sentinel")
		}
	} else {
		log.Infof("already configured, skipping")
	}

	log.Infof("building")
	if err := inst.Recipe.Make(b.newRecipeContext(ctx, inst, buildDir)); err != nil {
		return errors.Wrap(err, "engine: make")
	}

	log.Infof("installing")
	if err := removeAll(installDirAbs); err != nil {
		return errors.Wrap(err, "engine: wipe install directory")
	}
	if err := ensureDir(installDirAbs); err != nil {
		return errors.Wrap(err, "engine: recreate install directory")
	}
	installErr := func() error {
		defer sandbox.Umask(0o022)()
		return inst.Recipe.Install(b.newRecipeContext(ctx, inst, buildDir))
	}()
	if installErr != nil {
		return errors.Wrap(installErr, "engine: install")
	}

	return b.packageRelease(ctx, inst, installDirAbs, sourceDir)
}

// newRecipeContext builds the *recipe.Context a recipe's hooks run
// against, with the subprocess driver bound to this instance's
// devtree host-bin path and working directory set to buildDir.
func (b *Builder) newRecipeContext(ctx context.Context, inst *recipe.Instance, buildDir string) *recipe.Context {
	return &recipe.Context{
		Go:       ctx,
		Config:   inst.Config,
		BuildDir: buildDir,
		Runner:   b.runnerFor(inst),
	}
}

func (b *Builder) runnerFor(inst *recipe.Instance) boundRunner {
	devtreeDirAbs, _ := inst.Rendered("devtree_dir_abs")
	return boundRunner{
		exec:           b.Exec,
		devtreeHostBin: devtreeDirAbs + "/" + inst.Config["host"] + "/bin",
		extraEnv:       b.ExtraEnv,
	}
}

// ensureDepBuilt is the resolver's EnsureBuilt callback: it skips the
// pipeline entirely when the dependency's release archive already
// exists on disk and the caller did not request --force-recursive.
// path is the ancestor descent path StageDeps computed for this
// dependency (including the package that depends on it); it is passed
// straight back into runPipeline so a cycle is caught no matter how
// many EnsureBuilt/StageDeps round-trips it spans.
func (b *Builder) ensureDepBuilt(ctx context.Context, inst *recipe.Instance, forceRecursive, reconfigure bool, path []string) error {
	releaseFile, err := inst.Rendered("release_file")
	if err != nil {
		return err
	}
	if pathExists(releaseFile) && !forceRecursive {
		clog.FromContext(ctx).Infof("%s already materialised, skipping", inst.VariantName)
		return nil
	}
	return b.runPipeline(ctx, inst, Options{
		Variant:        inst.Variant,
		Force:          forceRecursive,
		ForceRecursive: forceRecursive,
		Reconfigure:    reconfigure,
	}, path)
}

// extractInto runs `tar xf <release> -C <devtree>` — an opaque child
// process, never reimplemented in-process (spec.md §1). owner is the
// package instance whose devtree is being populated, used only to
// pick a PATH for the subprocess.
func (b *Builder) extractInto(ctx context.Context, owner *recipe.Instance, releaseFile, devtreeDirAbs string) error {
	_, err := b.exec(ctx, owner, sandbox.Dir("."), nil, "tar", "xf", releaseFile, "-C", devtreeDirAbs)
	return err
}

func (b *Builder) exec(ctx context.Context, owner *recipe.Instance, dir sandbox.Dir, env map[string]string, argv ...string) (procexec.Result, error) {
	devtreeHostBin, _ := owner.Rendered("devtree_dir_abs")
	merged := make(map[string]string, len(b.ExtraEnv)+len(env))
	for k, v := range b.ExtraEnv {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	return b.Exec(ctx, dir, devtreeHostBin+"/"+owner.Config["host"]+"/bin", merged, argv...)
}
