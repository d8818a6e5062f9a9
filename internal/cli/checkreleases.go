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
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// fileRecord is what makes a release archive entry comparable across
// archives: two entries with the same path are expected to carry
// identical content and metadata no matter which archive they came
// from, since a shared dependency is packaged once per variant.
type fileRecord struct {
	kind   byte
	digest string
	link   string
	mode   int64
	uid    int
	gid    int
	uname  string
	gname  string
}

// runCheckReleases walks every archive under rootDir/release, hashing
// each regular file's contents, and reports any path whose recorded
// metadata disagrees between two archives that both contain it.
func runCheckReleases(rootDir string) error {
	releaseDir := filepath.Join(rootDir, "release")
	names, err := os.ReadDir(releaseDir)
	if err != nil {
		return errors.Wrap(err, "checkreleases: list release directory")
	}

	seen := make(map[string]fileRecord)
	inconsistent := 0

	for _, n := range names {
		if n.IsDir() {
			continue
		}
		fmt.Println(n.Name())
		if err := checkOneArchive(filepath.Join(releaseDir, n.Name()), seen, &inconsistent); err != nil {
			return errors.Wrapf(err, "checkreleases: %s", n.Name())
		}
	}

	if inconsistent > 0 {
		return errors.Errorf("checkreleases: %d path(s) disagreed between archives", inconsistent)
	}
	return nil
}

func checkOneArchive(path string, seen map[string]fileRecord, inconsistent *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		rec := fileRecord{
			mode:  hdr.Mode,
			uid:   hdr.Uid,
			gid:   hdr.Gid,
			uname: hdr.Uname,
			gname: hdr.Gname,
		}

		switch hdr.Typeflag {
		case tar.TypeReg:
			rec.kind = 'F'
			h := sha256.New()
			if _, err := io.Copy(h, tr); err != nil {
				return err
			}
			rec.digest = hex.EncodeToString(h.Sum(nil))
		case tar.TypeDir:
			rec.kind = 'D'
		case tar.TypeSymlink:
			rec.kind = 'S'
			rec.link = hdr.Linkname
		case tar.TypeLink:
			rec.kind = 'L'
			rec.link = hdr.Linkname
		default:
			return errors.Errorf("%s is the wrong type (%v)", hdr.Name, hdr.Typeflag)
		}

		dupe := " "
		if prior, ok := seen[hdr.Name]; ok {
			dupe = "X"
			if prior != rec {
				*inconsistent++
				fmt.Printf("%s already extracted with different contents! %+v != %+v\n", hdr.Name, prior, rec)
			}
		}
		seen[hdr.Name] = rec

		extra := rec.digest
		if rec.link != "" {
			extra = "--> " + rec.link
		}
		fmt.Printf("\t%s - %-10s %s %s\n", dupe, kindName(rec.kind), hdr.Name, extra)
	}
	return nil
}

func kindName(k byte) string {
	switch k {
	case 'F':
		return "FILE"
	case 'D':
		return "DIR"
	case 'S':
		return "SYMLINK"
	case 'L':
		return "LINK"
	default:
		return "?"
	}
}
