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

package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/chainguard-dev/xyz/internal/archive"
	"github.com/chainguard-dev/xyz/internal/fsutil"
	"github.com/chainguard-dev/xyz/internal/gitinfo"
	"github.com/chainguard-dev/xyz/internal/recipe"
)

// gitVersion is a tolerant wrapper around gitinfo.Version: a missing or
// non-git directory (the engine's own checkout need not be a git
// clone in every deployment) yields an empty version string rather
// than failing the whole build.
func gitVersion(dir string) string {
	v, err := gitinfo.Version(dir)
	if err != nil {
		return ""
	}
	return v
}

// packageGroupOnly packages a group-only recipe (spec.md §4.2): it has
// no source, build, or install of its own, so its release archive is
// just a manifest over a symlink back into the already-staged
// devtree, letting a group-only package (like a toolchain bundle) be
// depended on exactly like any other package.
func (b *Builder) packageGroupOnly(ctx context.Context, inst *recipe.Instance, devtreeDirAbs, installDirAbs string) error {
	prefixDir, err := inst.Rendered("prefix_dir")
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(filepath.Dir(prefixDir)); err != nil {
		return errors.Wrap(err, "engine: create install prefix parent")
	}

	rel, err := filepath.Rel(filepath.Dir(prefixDir), devtreeDirAbs)
	if err != nil {
		return errors.Wrap(err, "engine: relativise devtree path")
	}
	if fsutil.Exists(prefixDir) {
		if err := fsutil.RemoveTree(prefixDir); err != nil {
			return errors.Wrap(err, "engine: remove stale prefix symlink")
		}
	}
	if err := os.Symlink(rel, prefixDir); err != nil {
		return errors.Wrap(err, "engine: symlink install prefix to devtree")
	}

	rels, err := fsutil.ListFiles(prefixDir)
	if err != nil {
		return errors.Wrap(err, "engine: list staged files")
	}
	entries := make(map[string]string, len(rels))
	for _, r := range rels {
		sum, err := fsutil.SHA256File(filepath.Join(prefixDir, r))
		if err != nil {
			return errors.Wrapf(err, "engine: hash %s", r)
		}
		entries[r] = sum
	}

	manifestRel := archive.ManifestRelPath(inst.VariantName)
	manifest := archive.Manifest(archive.ManifestHeader{
		VariantName:   inst.VariantName,
		EngineVersion: gitVersion(b.EngineRepoDir),
	}, entries)
	manifestPath := filepath.Join(prefixDir, manifestRel)
	if err := fsutil.EnsureDir(filepath.Dir(manifestPath)); err != nil {
		return errors.Wrap(err, "engine: create manifest directory")
	}
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		return errors.Wrap(err, "engine: write manifest")
	}

	releaseFile, err := inst.Rendered("release_file")
	if err != nil {
		return err
	}
	return archive.WriteReleaseTarGz(ctx, prefixDir, releaseFile)
}

// packageRelease hashes every staged file under the install tree,
// writes the share/xyz/<variant_name> manifest recording both the
// source checkout's and the engine's own git versions, and produces
// the final deterministic release archive.
func (b *Builder) packageRelease(ctx context.Context, inst *recipe.Instance, installDirAbs, sourceDir string) error {
	prefixDir, err := inst.Rendered("prefix_dir")
	if err != nil {
		return err
	}

	rels, err := fsutil.ListFiles(prefixDir)
	if err != nil {
		return errors.Wrap(err, "engine: list staged files")
	}
	entries := make(map[string]string, len(rels))
	for _, r := range rels {
		sum, err := fsutil.SHA256File(filepath.Join(prefixDir, r))
		if err != nil {
			return errors.Wrapf(err, "engine: hash %s", r)
		}
		entries[r] = sum
	}

	manifest := archive.Manifest(archive.ManifestHeader{
		VariantName:   inst.VariantName,
		SourceVersion: gitVersion(sourceDir),
		EngineVersion: gitVersion(b.EngineRepoDir),
	}, entries)
	manifestPath := filepath.Join(prefixDir, archive.ManifestRelPath(inst.VariantName))
	if err := fsutil.EnsureDir(filepath.Dir(manifestPath)); err != nil {
		return errors.Wrap(err, "engine: create manifest directory")
	}
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		return errors.Wrap(err, "engine: write manifest")
	}

	releaseFile, err := inst.Rendered("release_file")
	if err != nil {
		return err
	}
	return archive.WriteReleaseTarGz(ctx, prefixDir, releaseFile)
}
