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

// Package usageerr defines the taxonomy-1 error type: a user-facing
// mistake (bad platform string, unknown variant value, bad flag
// combination) that the CLI reports as a clean one-line message and
// exit code 1, never a stack trace.
package usageerr

import (
	"errors"
	"fmt"
)

// UsageError is returned for mistakes the caller can fix: an unknown
// variant value, an unsupported platform triple, an invalid flag
// combination. It carries no stack trace; the CLI prints its message
// verbatim.
type UsageError struct {
	msg string
}

// New builds a UsageError from a format string, in the style of
// fmt.Errorf but without %w wrapping (a UsageError is always a leaf).
func New(format string, args ...any) *UsageError {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string { return e.msg }

// Is reports whether err is (or wraps) a *UsageError, for use at the
// CLI boundary to decide between a clean exit-1 message and a stack
// trace.
func Is(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
