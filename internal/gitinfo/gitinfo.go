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

// Package gitinfo provides read-only git introspection for manifest
// headers: a repository's HEAD commit and whether its worktree is
// dirty. This mirrors the historical git_ver() helper (`git log -1
// --pretty=%H` plus `git status --porcelain`), re-expressed as a
// go-git library call instead of a second subprocess — git itself is
// still shelled out for the one mutating operation (`git clone`), but
// reading a repository we already have on disk doesn't need a child
// process.
package gitinfo

import (
	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

// Version returns the HEAD commit hash at repoDir, with a trailing
// "*" appended if the worktree has uncommitted changes, matching the
// historical version-string convention used in release manifests.
func Version(repoDir string) (string, error) {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return "", errors.Wrapf(err, "gitinfo: open %s", repoDir)
	}

	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrapf(err, "gitinfo: resolve HEAD in %s", repoDir)
	}
	sha := head.Hash().String()

	wt, err := repo.Worktree()
	if err != nil {
		return "", errors.Wrapf(err, "gitinfo: open worktree in %s", repoDir)
	}
	status, err := wt.Status()
	if err != nil {
		return "", errors.Wrapf(err, "gitinfo: status in %s", repoDir)
	}
	if !status.IsClean() {
		sha += "*"
	}
	return sha, nil
}
