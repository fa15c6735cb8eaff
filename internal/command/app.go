// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/config"
	"github.com/staranto/filememo/internal/meta"
)

// rootValueFlags are the root flags that consume the following argument.
var rootValueFlags = map[string]bool{
	"--backend":     true,
	"-b":            true,
	"--cache-file":  true,
	"--cache-db":    true,
	"--flush-delay": true,
}

// SubcommandIndex returns the index in args of the subcommand, skipping the
// binary name, root flags and their values. It returns -1 if there is none.
func SubcommandIndex(args []string) int {
	for i := 1; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			continue
		}
		if i > 1 && rootValueFlags[args[i-1]] {
			continue
		}
		return i
	}
	return -1
}

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The filememo subcommand also represents the namespace key to be used
	// when retrieving config values. Root flags such as --backend may come
	// before it.
	var ns string
	if i := SubcommandIndex(args); i > 0 {
		ns = args[i]
	}

	cfg, _ := config.Load(ns)
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		Settings:    settings,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "filememo",
		Usage: "file-validated memo cache",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "filememo version info",
				HideDefault: true,
			},
		}, NewStoreFlags()...),
		Metadata: map[string]any{
			"meta": meta,
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
	}

	app.Commands = append(app.Commands,
		BackupCommandBuilder(meta),
		CompletionCommandBuilder(meta),
		DiffCommandBuilder(meta),
		GetCommandBuilder(meta),
		HashCommandBuilder(meta),
		LsCommandBuilder(meta),
		MigrateCommandBuilder(meta),
		PurgeCommandBuilder(meta),
		RestoreCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
