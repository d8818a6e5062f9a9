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

// Package cfgfactory builds the per-package configuration map: every
// path, flag, and platform-derived string a recipe's templates can
// reference via {key}. It is pure and side-effect free — it computes
// strings, it never touches the filesystem.
package cfgfactory

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/chainguard-dev/xyz/internal/usageerr"
)

// defaultDarwinSDKPath is used when Params.DarwinSDKPath is unset. Real
// deployments on a Mac would resolve this via `xcrun --show-sdk-path`;
// the engine treats it as a configurable constant rather than probing
// for it, since SDK discovery is Xcode's concern, not the build
// engine's.
const defaultDarwinSDKPath = "/Library/Developer/CommandLineTools/SDKs/MacOSX.sdk"

// Params is everything the config factory needs to build a package
// instance's configuration map that isn't itself derivable from the
// map (i.e. the builder-level and package-instance-level inputs).
type Params struct {
	PkgName     string
	VariantName string
	Variant     map[string]string

	Host  string
	Build string

	// RootDir is the packaging tree root, as given on the command line;
	// may be relative (".") or absolute.
	RootDir string

	Jobs int

	UsesOSXFrameworks bool

	// RepoPrefix is the compiled-in upstream git URL prefix, e.g.
	// "git://github.com/example/".
	RepoPrefix string

	DarwinSDKPath string
}

// Build produces the full configuration map for a package instance.
func Build(p Params) (map[string]string, error) {
	hostPlat, ok := ParsePlatform(p.Host)
	if !ok {
		return nil, usageerr.New("cfgfactory: malformed host platform triple %q", p.Host)
	}

	cfg := map[string]string{
		"pkg_name":     p.PkgName,
		"variant_name": p.VariantName,
		"host":         p.Host,
		"build":        p.Build,
	}
	for k, v := range p.Variant {
		cfg[k] = v
	}

	cfg["prefix"] = "/noprefix"
	cfg["eprefix"] = "{prefix}/{host}"

	rootDir := p.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	cfg["root_dir"] = rootDir
	rootAbs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("cfgfactory: resolve absolute root_dir: %w", err)
	}
	cfg["root_dir_abs"] = rootAbs

	cfg["source_dir"] = path.Join("{root_dir}", "source", "{pkg_name}")
	cfg["build_dir"] = path.Join("{root_dir}", "build", "{variant_name}")

	if filepath.IsAbs(rootDir) {
		cfg["source_dir_from_build"] = path.Join(rootAbs, "source", p.PkgName)
	} else {
		cfg["source_dir_from_build"] = path.Join("..", "..", rootDir, "source", p.PkgName)
	}

	cfg["devtree_dir"] = path.Join("{root_dir}", "devtree", "{variant_name}")
	cfg["devtree_dir_abs"] = path.Join(rootAbs, "devtree", p.VariantName)
	cfg["install_dir"] = path.Join("{root_dir}", "install", "{variant_name}")
	cfg["install_dir_abs"] = path.Join(rootAbs, "install", p.VariantName)

	cfg["prefix_dir"] = "{install_dir}{prefix}"
	cfg["eprefix_dir"] = "{install_dir}{eprefix}"

	cfg["release_dir"] = path.Join("{root_dir}", "release")
	cfg["release_file"] = path.Join("{release_dir}", p.VariantName+".tar.gz")

	cfg["repo_name"] = p.RepoPrefix + p.PkgName

	sdk := p.DarwinSDKPath
	if sdk == "" {
		sdk = defaultDarwinSDKPath
	}

	devtreeHostLib := path.Join(cfg["devtree_dir_abs"], p.Host, "lib")
	devtreeInclude := path.Join(cfg["devtree_dir_abs"], "include")
	devtreeHostInclude := path.Join(cfg["devtree_dir_abs"], p.Host, "include")

	var ldflags, cppflags string
	switch hostPlat.Family() {
	case FamilyDarwin:
		ldflags = fmt.Sprintf("-Wl,-search_paths_first -Wl,-syslibroot,%s", sdk)
		if p.UsesOSXFrameworks {
			ldflags += " -F/Library/Frameworks -F/System/Library/Frameworks"
		}
		cppflags = fmt.Sprintf("-isysroot %s", sdk)
	case FamilyLinux:
		ldflags = ""
		cppflags = ""
	default:
		return nil, usageerr.New("cfgfactory: unsupported host platform family for %q", p.Host)
	}
	ldflags = appendFlag(ldflags, fmt.Sprintf("-L%s", devtreeHostLib))
	cppflags = appendFlag(cppflags, fmt.Sprintf("-I%s -I%s", devtreeInclude, devtreeHostInclude))

	cfg["standard_ldflags"] = ldflags
	cfg["standard_cppflags"] = cppflags

	if p.Jobs < 1 {
		p.Jobs = 1
	}
	cfg["jobs"] = fmt.Sprintf("-j%d", p.Jobs)

	return cfg, nil
}

func appendFlag(base, addition string) string {
	if base == "" {
		return addition
	}
	return base + " " + addition
}

// VariantName derives the deterministic variant name from a package
// name, its frozen variant, and the host triple: pkg[-k_v-k_v...]-host,
// with variant keys sorted.
func VariantName(pkgName string, variant map[string]string, host string) string {
	keys := make([]string, 0, len(variant))
	for k := range variant {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	name := pkgName
	for _, k := range keys {
		name += fmt.Sprintf("-%s_%s", k, variant[k])
	}
	return name + "-" + host
}
