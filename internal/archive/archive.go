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

// Package archive writes the engine's one self-implemented tar
// operation: the deterministic, content-addressable release archive.
// Every other tar invocation (extracting a dependency into a devtree)
// is an opaque `tar xf` child process; producing the final artifact's
// exact bytes is the core's own responsibility, so it is done here
// with archive/tar and klauspost/pgzip rather than shelled out.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"

	"github.com/chainguard-dev/xyz/internal/fsutil"
)

// BaseTime is the fixed mtime stamped onto every archive entry,
// matching the historical BASE_TIME constant: the epoch seconds of
// 2013-01-01 00:00:00 UTC.
var BaseTime = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)

// entryOwner and entryGroup are the normalised uid/gid/uname/gname
// stamped onto every archive entry, regardless of the machine that
// produced the archive.
const (
	entryUID   = 1000
	entryGID   = 1000
	entryOwner = "xyz"
	entryGroup = "xyz"
)

// ManifestHeader carries the two version lines written at the top of
// every manifest.
type ManifestHeader struct {
	VariantName string
	// SourceVersion is the source checkout's HEAD sha plus a trailing
	// "*" if the worktree was dirty. Empty for group-only packages,
	// whose manifest omits the line entirely.
	SourceVersion string
	// EngineVersion is the same convention applied to the engine's own
	// repository.
	EngineVersion string
}

// Manifest renders the share/xyz/<variant_name> text file: the header
// block followed by a blank line and one "<sha256> <relpath>" line per
// file, sorted by path.
func Manifest(h ManifestHeader, entries map[string]string) string {
	var b []byte
	b = append(b, h.VariantName+"\n"...)
	if h.SourceVersion != "" {
		b = append(b, fmt.Sprintf("Source Version: %s\n", h.SourceVersion)...)
	}
	b = append(b, fmt.Sprintf("XYZ Version: %s\n", h.EngineVersion)...)
	b = append(b, '\n')

	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		b = append(b, fmt.Sprintf("%s %s\n", entries[p], p)...)
	}
	return string(b)
}

// ManifestRelPath is where the manifest lives inside prefix_dir, per
// the glossary: share/xyz/<variant_name>.
func ManifestRelPath(variantName string) string {
	return filepath.Join("share", "xyz", variantName)
}

// WriteReleaseTarGz walks srcDir (expected to be a package's
// prefix_dir) and writes a deterministic gzip-compressed tar to
// dstPath. The manifest file (already rendered by the caller via
// Manifest, since it needs every other file's hash first) must already
// exist on disk at share/xyz/<variant_name> beneath srcDir before this
// is called, so it is included like any other file.
func WriteReleaseTarGz(ctx context.Context, srcDir, dstPath string) error {
	if err := fsutil.EnsureDir(filepath.Dir(dstPath)); err != nil {
		return errors.Wrap(err, "archive: create release directory")
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return errors.Wrap(err, "archive: create release file")
	}
	defer f.Close()

	gz, err := pgzip.NewWriterLevel(f, pgzip.BestCompression)
	if err != nil {
		return errors.Wrap(err, "archive: init gzip writer")
	}
	gz.ModTime = BaseTime
	gz.OS = 255 // unknown, matches a host-agnostic archive

	tw := tar.NewWriter(gz)

	rels, err := fsutil.ListFiles(srcDir)
	if err != nil {
		return errors.Wrap(err, "archive: list files")
	}

	clog.FromContext(ctx).Infof("packaging %d files from %s into %s", len(rels), srcDir, dstPath)

	for _, rel := range rels {
		if err := writeEntry(tw, srcDir, rel); err != nil {
			return errors.Wrapf(err, "archive: write entry %s", rel)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "archive: close tar writer")
	}
	return gz.Close()
}

func writeEntry(tw *tar.Writer, srcDir, rel string) error {
	full := filepath.Join(srcDir, rel)
	info, err := os.Lstat(full)
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		link, err = os.Readlink(full)
		if err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.Format = tar.FormatGNU
	hdr.ModTime = BaseTime
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid = entryUID
	hdr.Gid = entryGID
	hdr.Uname = entryOwner
	hdr.Gname = entryGroup

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.Mode().IsRegular() {
		r, err := os.Open(full)
		if err != nil {
			return err
		}
		defer r.Close()
		if _, err := io.Copy(tw, r); err != nil {
			return err
		}
	}
	return nil
}
