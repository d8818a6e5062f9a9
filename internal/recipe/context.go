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

package recipe

import (
	"context"
	"path/filepath"

	"github.com/chainguard-dev/xyz/internal/fsutil"
	"github.com/chainguard-dev/xyz/internal/procexec"
	"github.com/chainguard-dev/xyz/internal/sandbox"
	"github.com/chainguard-dev/xyz/internal/tmpl"
)

// Runner is the subset of the subprocess driver a recipe context
// needs. The engine supplies procexec.Run bound to a devtree host-bin
// path; tests supply a recording fake so seed tests don't require a
// real toolchain.
type Runner interface {
	Run(ctx context.Context, dir sandbox.Dir, env map[string]string, argv ...string) (procexec.Result, error)
}

// Render substitutes {key} placeholders in s against the context's
// configuration map.
func (c *Context) Render(s string) (string, error) {
	return tmpl.Render(s, c.Config)
}

// RenderAll applies Render to every element of ss.
func (c *Context) RenderAll(ss []string) ([]string, error) {
	return tmpl.RenderAll(ss, c.Config)
}

// Join renders each part and filesystem-joins the results, the `j()`
// helper from the package model's public surface.
func (c *Context) Join(parts ...string) (string, error) {
	rendered, err := c.RenderAll(parts)
	if err != nil {
		return "", err
	}
	return filepath.Join(rendered...), nil
}

// EnsureDir renders path and creates it (and parents) if absent.
func (c *Context) EnsureDir(path string) error {
	rendered, err := c.Render(path)
	if err != nil {
		return err
	}
	return fsutil.EnsureDir(rendered)
}

// RemoveTree renders path and recursively deletes it.
func (c *Context) RemoveTree(path string) error {
	rendered, err := c.Render(path)
	if err != nil {
		return err
	}
	return fsutil.RemoveTree(rendered)
}

// Exists renders path and reports whether it exists.
func (c *Context) Exists(path string) (bool, error) {
	rendered, err := c.Render(path)
	if err != nil {
		return false, err
	}
	return fsutil.Exists(rendered), nil
}

// Cmd renders env's values and argv, then runs the command in
// BuildDir via the context's Runner. This is the templated wrapper
// every recipe hook ultimately calls.
func (c *Context) Cmd(env map[string]string, argv ...string) error {
	renderedArgv, err := c.RenderAll(argv)
	if err != nil {
		return err
	}
	renderedEnv := make(map[string]string, len(env))
	for k, v := range env {
		rv, err := c.Render(v)
		if err != nil {
			return err
		}
		renderedEnv[k] = rv
	}
	_, err = c.Runner.Run(c.Go, sandbox.Dir(c.BuildDir), renderedEnv, renderedArgv...)
	return err
}

// HostLibConfigure runs ./configure with the flags a native library
// recipe needs: --prefix, --exec-prefix, --host, --build, and (unless
// enableShared) --disable-shared, plus LDFLAGS/CPPFLAGS seeded from
// the standard_* config keys and extraArgs appended last. env
// overrides the LDFLAGS/CPPFLAGS defaults on key collision.
func (c *Context) HostLibConfigure(extraArgs []string, env map[string]string, enableShared bool) error {
	args := []string{
		"{source_dir_from_build}/configure",
		"--prefix={prefix}",
		"--exec-prefix={eprefix}",
		"--host={host}",
		"--build={build}",
	}
	if !enableShared {
		args = append(args, "--disable-shared")
	}
	args = append(args, extraArgs...)

	base := map[string]string{
		"LDFLAGS":  "{standard_ldflags}",
		"CPPFLAGS": "{standard_cppflags}",
	}
	for k, v := range env {
		base[k] = v
	}
	return c.Cmd(base, args...)
}

// HostAppConfigure is HostLibConfigure without the --disable-shared
// default, for recipes building end-user applications rather than
// libraries other recipes link against.
func (c *Context) HostAppConfigure(extraArgs []string, env map[string]string) error {
	return c.HostLibConfigure(extraArgs, env, true)
}

// CrossConfigure runs ./configure for a cross-compilation recipe:
// --program-prefix={target}- and --target={target} on top of the
// host/build/prefix flags, with only LDFLAGS seeded by default
// (CPPFLAGS is deliberately not set — cross builds draw their headers
// from a sysroot path the recipe supplies via extraArgs instead).
func (c *Context) CrossConfigure(extraArgs []string, env map[string]string) error {
	args := append([]string{
		"{source_dir_from_build}/configure",
		"--prefix={prefix}",
		"--exec-prefix={eprefix}",
		"--host={host}",
		"--build={build}",
		"--program-prefix={target}-",
		"--target={target}",
	}, extraArgs...)

	base := map[string]string{"LDFLAGS": "{standard_ldflags}"}
	for k, v := range env {
		base[k] = v
	}
	return c.Cmd(base, args...)
}
