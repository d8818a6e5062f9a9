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

package cli

import (
	"github.com/chainguard-dev/xyz/internal/cfgfactory"
	"github.com/chainguard-dev/xyz/internal/fsutil"
	"github.com/chainguard-dev/xyz/internal/tmpl"
	"github.com/chainguard-dev/xyz/internal/usageerr"
)

// runClean removes install/devtree/build (and, with alsoRelease,
// release) for each named package's variant, computing paths straight
// from the config factory rather than loading a recipe — clean needs
// no recipe logic, only the deterministic path layout.
func runClean(rootDir, host, build string, pkgs []string, variant map[string]string, alsoRelease bool) error {
	if len(pkgs) == 0 {
		return usageerr.New("cli: --clean requires at least one package name")
	}

	for _, pkg := range pkgs {
		variantName := cfgfactory.VariantName(pkg, variant, host)
		cfg, err := cfgfactory.Build(cfgfactory.Params{
			PkgName:     pkg,
			VariantName: variantName,
			Variant:     variant,
			Host:        host,
			Build:       build,
			RootDir:     rootDir,
			Jobs:        1,
		})
		if err != nil {
			return err
		}

		keys := []string{"install_dir_abs", "devtree_dir_abs", "build_dir"}
		if alsoRelease {
			keys = append(keys, "release_file")
		}
		for _, k := range keys {
			path, err := tmpl.Render(cfg[k], cfg)
			if err != nil {
				return err
			}
			if err := fsutil.RemoveTree(path); err != nil {
				return err
			}
		}
	}
	return nil
}
