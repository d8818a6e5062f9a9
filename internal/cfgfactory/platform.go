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

package cfgfactory

import "strings"

// Family is the coarse platform category the config factory branches
// on: darwin, linux-gnu, or other (the last may legitimately be a
// cross-compilation target triple such as arm-none-eabi, never a host
// the engine actually runs builds for its own needs).
type Family string

const (
	FamilyDarwin  Family = "darwin"
	FamilyLinux   Family = "linux-gnu"
	FamilyOther   Family = "other"
)

// Platform is a parsed <arch>-<vendor>-<os> triple. Extra hyphenated
// components (as in x86_64-unknown-linux-gnu) are folded into OS.
type Platform struct {
	Triple string
	Arch   string
	Vendor string
	OS     string
}

// ParsePlatform splits a triple into its components. At least two
// hyphens are required.
func ParsePlatform(triple string) (Platform, bool) {
	parts := strings.Split(triple, "-")
	if len(parts) < 3 {
		return Platform{}, false
	}
	return Platform{
		Triple: triple,
		Arch:   parts[0],
		Vendor: parts[1],
		OS:     strings.Join(parts[2:], "-"),
	}, true
}

// Family categorises the platform by its OS suffix.
func (p Platform) Family() Family {
	switch {
	case p.OS == "darwin":
		return FamilyDarwin
	case strings.HasPrefix(p.OS, "linux"):
		return FamilyLinux
	default:
		return FamilyOther
	}
}
