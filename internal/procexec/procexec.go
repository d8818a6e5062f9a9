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

// Package procexec is the subprocess driver: it runs an external
// command with a composed environment and a real argv vector, and
// fails on non-zero exit. Unlike the historical implementation this
// replaces, argv is never joined into a shell string — every argument
// reaches the child exactly as given, via os/exec, with no shell in
// between.
package procexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/chainguard-dev/clog"
	"github.com/pkg/errors"

	"github.com/chainguard-dev/xyz/internal/sandbox"
)

// baseEnv is the minimal environment every child process starts from,
// before the caller's overlay is applied: a PATH rooted at the
// devtree's host bin directory plus the system directories, and a
// fixed C locale so build tool output is stable across hosts.
func baseEnv(devtreeHostBin string) []string {
	return []string{
		fmt.Sprintf("PATH=%s:/usr/bin:/bin:/usr/sbin:/sbin", devtreeHostBin),
		"LANG=C",
	}
}

// Runner executes commands with a composed environment. The zero value
// is ready to use.
type Runner struct{}

// Result captures a completed invocation's captured output, for
// callers (like go-git-adjacent introspection or tests) that want it;
// the driver itself only cares about the exit status.
type Result struct {
	Stdout string
	Stderr string
}

// Run executes argv[0] with argv[1:] as arguments, CWD set to dir,
// and an environment composed of a minimal base overlaid by env (env
// entries win over the base on key collision). It blocks until the
// child exits and returns an error wrapping the exit status if it was
// non-zero.
func Run(ctx context.Context, dir sandbox.Dir, devtreeHostBin string, env map[string]string, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("procexec: empty argv")
	}

	clog.FromContext(ctx).Infof("exec %q in %s", argv, dir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = string(dir)
	cmd.Env = mergeEnv(baseEnv(devtreeHostBin), env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return res, errors.Wrapf(err, "exec %q failed: %s", argv, stderr.String())
	}
	return res, nil
}

// mergeEnv overlays overlay (already substituted) onto base, keeping
// base's ordering for keys it doesn't touch and appending new keys
// from overlay in map-iteration order (irrelevant to exec.Cmd, which
// does not care about key order).
func mergeEnv(base []string, overlay map[string]string) []string {
	seen := make(map[string]int, len(base))
	out := make([]string, len(base))
	copy(out, base)
	for i, kv := range base {
		if k, _, ok := splitEnv(kv); ok {
			seen[k] = i
		}
	}
	for k, v := range overlay {
		entry := k + "=" + v
		if i, ok := seen[k]; ok {
			out[i] = entry
			continue
		}
		out = append(out, entry)
		seen[k] = len(out) - 1
	}
	return out
}

func splitEnv(kv string) (key, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
