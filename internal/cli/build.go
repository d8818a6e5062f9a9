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
	"context"

	"github.com/chainguard-dev/xyz/internal/engine"
	"github.com/chainguard-dev/xyz/internal/procexec"
	"github.com/chainguard-dev/xyz/internal/usageerr"
)

// runBuild drives every named package through the full build pipeline
// with a Builder backed by the real subprocess driver.
func runBuild(ctx context.Context, f *Flags, host, recipesDir string, pkgs []string) error {
	if len(pkgs) == 0 {
		return usageerr.New("cli: build requires at least one package name")
	}

	variant, err := parseConfig(f.Config)
	if err != nil {
		return err
	}
	extraVars, err := readVarsFile(f.VarsFile)
	if err != nil {
		return err
	}
	extraEnv, err := readEnvFile(f.EnvFile)
	if err != nil {
		return err
	}

	b := engine.NewBuilder(engine.Builder{
		Host:          host,
		Build:         f.Build,
		Jobs:          f.Jobs,
		RootDir:       f.RootDir,
		RecipesDir:    recipesDir,
		EngineRepoDir: f.EngineRepo,
		RepoPrefix:    f.RepoPrefix,
		ExtraEnv:      extraEnv,
		ExtraVars:     extraVars,
		Exec:          engine.Exec(procexec.Run),
	})

	opts := engine.Options{
		Variant:        variant,
		Force:          f.Force,
		ForceRecursive: f.ForceRecursive,
		Reconfigure:    f.Reconfigure,
	}

	for _, pkg := range pkgs {
		if err := b.Build(ctx, pkg, opts); err != nil {
			return err
		}
	}
	return nil
}
