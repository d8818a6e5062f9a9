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

// Command xyz resolves a package's dependency graph, builds each
// member from source, and packages the result into a deterministic
// release archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	pkgerrors "github.com/pkg/errors"

	"github.com/chainguard-dev/xyz/internal/cli"
	"github.com/chainguard-dev/xyz/internal/usageerr"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := clog.WithLogger(context.Background(), logger)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case usageerr.Is(err):
		fmt.Fprintln(os.Stderr, "xyz:", err)
		return 1
	case errors.Is(err, context.Canceled):
		return 0
	default:
		fmt.Fprintf(os.Stderr, "xyz: %+v\n", pkgerrors.WithStack(err))
		return 1
	}
}
