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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/chainguard-dev/xyz/internal/usageerr"
)

// runList prints the variant name and recorded versions of every
// package installed under pkgRoot, reading the manifests written at
// share/xyz/<variant_name> by the packaging step.
func runList(pkgRoot string) error {
	if pkgRoot == "" {
		return usageerr.New("cli: --list requires --pkg-root")
	}

	manifestDir := filepath.Join(pkgRoot, "share", "xyz")
	entries, err := os.ReadDir(manifestDir)
	if err != nil {
		return errors.Wrap(err, "list: read manifest directory")
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := printManifest(filepath.Join(manifestDir, e.Name())); err != nil {
			return errors.Wrapf(err, "list: %s", e.Name())
		}
	}
	return nil
}

func printManifest(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var variantName, sourceVersion, xyzVersion string
	sc := bufio.NewScanner(f)
	for i := 0; sc.Scan(); i++ {
		line := sc.Text()
		if i == 0 {
			variantName = line
			continue
		}
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "Source Version: "); ok {
			sourceVersion = v
		}
		if v, ok := strings.CutPrefix(line, "XYZ Version: "); ok {
			xyzVersion = v
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if sourceVersion != "" {
		fmt.Printf("%s\tsource=%s\txyz=%s\n", variantName, sourceVersion, xyzVersion)
	} else {
		fmt.Printf("%s\txyz=%s\n", variantName, xyzVersion)
	}
	return nil
}
