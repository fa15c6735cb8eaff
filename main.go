// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/filememo/internal/cacheutil"
	"github.com/staranto/filememo/internal/command"
	"github.com/staranto/filememo/internal/config"
	mylog "github.com/staranto/filememo/internal/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	// Best-effort: pre-create the data directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && !ok {
		// Non-fatal: print to stderr and continue.
		fmt.Fprintln(os.Stderr, err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an argument set from the config file. "@name"
// anywhere after the subcommand is replaced by the list at <subcommand>.name;
// without one, <subcommand>.defaults is inserted right after the subcommand.
func mangleArguments(args []string) []string {
	// Short-circuit for --help/-h. If help is requested, leave the args alone.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return args
		}
	}

	cmdIdx := command.SubcommandIndex(args)
	if cmdIdx < 0 {
		return args
	}

	out := append([]string{}, args[:cmdIdx+1]...)
	rest := args[cmdIdx+1:]

	set := "defaults"
	idx := len(out)
	for i, a := range rest {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			rest = append(append([]string{}, rest[:i]...), rest[i+1:]...)
			idx += i
			break
		}
	}
	out = append(out, rest...)

	setArgs, _ := config.GetStringSlice(args[cmdIdx] + "." + set)
	for _, arg := range setArgs {
		parts := strings.Fields(arg)
		out = append(out[:idx], append(parts, out[idx:]...)...)
		idx += len(parts)
	}

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, out)
	return out
}
