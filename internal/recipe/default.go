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
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/xyz/internal/sandbox"
)

// DefaultMake is the shared Make implementation: `make {jobs}` in the
// build directory. Most recipes use this unmodified.
func DefaultMake(c *Context) error {
	return c.Cmd(nil, "make", "{jobs}")
}

// strayArtifact names a (pkg-name, relative glob) pair the default
// install cleanup removes after the DESTDIR install, seeded from
// known upstream leakage in binutils and gcc: libiberty.a is installed
// into a lib directory no recipe ever asked for, and some
// info/man-adjacent cruft ships alongside it.
type strayArtifact struct {
	pkgName string
	glob    string
}

var strayArtifacts = []strayArtifact{
	{pkgName: "binutils", glob: "lib/libiberty.a"},
	{pkgName: "gcc", glob: "lib/libiberty.a"},
	{pkgName: "gcc", glob: "share/info/dir"},
}

// DefaultInstall is the shared Install implementation: `make
// DESTDIR={install_dir_abs} install` under umask 0o022, followed by
// the standard post-install cleanup: remove share/info/dir, delete
// every *.la file, strip the "generated on" header line from every
// man page, and remove any stray artifacts this package is known to
// leak.
func DefaultInstall(c *Context) error {
	err := func() error {
		defer sandbox.Umask(0o022)()
		return c.Cmd(nil, "make", "DESTDIR={install_dir_abs}", "install")
	}()
	if err != nil {
		return err
	}
	return PostInstallCleanup(c)
}

// PostInstallCleanup performs the cleanups DefaultInstall runs after
// `make install`. Exported so recipes with a bespoke install step
// (glibc's install_root convention, for instance) can still opt into
// the same cleanup.
func PostInstallCleanup(c *Context) error {
	installDir, err := c.Render("{install_dir}")
	if err != nil {
		return err
	}

	infoDir := filepath.Join(installDir, "share", "info", "dir")
	if _, err := os.Stat(infoDir); err == nil {
		if err := os.Remove(infoDir); err != nil {
			return err
		}
	}

	if err := removeMatchingFiles(installDir, func(rel string) bool {
		return strings.HasSuffix(rel, ".la")
	}); err != nil {
		return err
	}

	if err := stripManHeaders(filepath.Join(installDir, "share", "man")); err != nil {
		return err
	}

	pkgName, err := c.Render("{pkg_name}")
	if err != nil {
		return err
	}
	for _, a := range strayArtifacts {
		if a.pkgName != pkgName {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(installDir, a.glob))
		if err != nil {
			return err
		}
		for _, m := range matches {
			if err := os.RemoveAll(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// PruneGlob removes every path under {install_dir} matching glob
// (relative, filepath.Match syntax applied per path segment via
// filepath.Glob's own walking), supplementing DefaultInstall's fixed
// cleanups with the long per-recipe prune lists recipes like glibc
// need (stray bin/sbin/locale/zoneinfo subtrees left by `make
// install`).
func (c *Context) PruneGlob(glob string) error {
	installDir, err := c.Render("{install_dir}")
	if err != nil {
		return err
	}
	renderedGlob, err := c.Render(glob)
	if err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(installDir, renderedGlob))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.RemoveAll(m); err != nil {
			return err
		}
	}
	return nil
}

func removeMatchingFiles(root string, match func(rel string) bool) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	var toRemove []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if match(rel) {
			toRemove = append(toRemove, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range toRemove {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

// generatedHeaderPrefix is the leading line groff-generated man pages
// carry that the build leaves in, naming the absolute build host path
// it was generated on — stripped so two builds of the same source on
// different machines produce byte-identical man pages.
const generatedHeaderPrefix = ".\\\" Generated"

func stripManHeaders(manDir string) error {
	if _, err := os.Stat(manDir); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(manDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return stripFileHeader(path)
	})
}

func stripFileHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	var lines []string
	scanner := bufio.NewScanner(f)
	first := true
	changed := false
	for scanner.Scan() {
		line := scanner.Text()
		if first && strings.HasPrefix(line, generatedHeaderPrefix) {
			first = false
			changed = true
			continue
		}
		first = false
		lines = append(lines, line)
	}
	cerr := scanner.Err()
	f.Close()
	if cerr != nil {
		return cerr
	}
	if !changed {
		return nil
	}
	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), info.Mode())
}
