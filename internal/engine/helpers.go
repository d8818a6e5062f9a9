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
	"path/filepath"

	"github.com/chainguard-dev/xyz/internal/fsutil"
)

// removeAll deletes every path in paths, tolerating paths that don't
// exist.
func removeAll(paths ...string) error {
	for _, p := range paths {
		if err := fsutil.RemoveTree(p); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir creates path and any missing parents.
func ensureDir(path string) error {
	return fsutil.EnsureDir(path)
}

// pathExists reports whether path exists, of any type.
func pathExists(path string) bool {
	return fsutil.Exists(path)
}

// removeFile deletes a single file, tolerating its absence.
func removeFile(path string) error {
	return fsutil.RemoveTree(path)
}

// touchFile creates path (and its parent directory) if absent, or
// updates its mtime if present.
func touchFile(path string) error {
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return fsutil.Touch(path)
}

// configuredSentinel is the marker file a build directory carries once
// Configure has run successfully; its presence is what makes a second
// invocation skip reconfiguration, and --reconfigure works by deleting
// it first.
func configuredSentinel(buildDir string) string {
	return filepath.Join(buildDir, ".configured")
}
