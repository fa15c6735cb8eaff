// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/meta"
	"github.com/staranto/filememo/internal/output"
)

// DiffCommandAction prints the structural difference between the snapshot
// file and the table store. The snapshot is the left side.
func DiffCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, _, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}

	left, err := LoadBackend(ctx, cache.KindSnapshot, s)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	right, err := LoadBackend(ctx, cache.KindTable, s)
	if err != nil {
		return fmt.Errorf("failed to read table store: %w", err)
	}

	lb, err := cache.EncodeSnapshot(left)
	if err != nil {
		return err
	}
	rb, err := cache.EncodeSnapshot(right)
	if err != nil {
		return err
	}

	text, changed, err := output.Diff(lb, rb, spitOptions(cmd).Color)
	if err != nil {
		return err
	}
	if !changed {
		_, err = fmt.Fprintln(writer(cmd), "no differences")
		return err
	}
	_, err = fmt.Fprint(writer(cmd), text)
	return err
}

// DiffCommandBuilder constructs the cli.Command for "diff".
func DiffCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "diff",
		Usage:     "compare the snapshot file with the table store",
		UsageText: `filememo diff [--color]`,
		Meta:      meta,
		Action:    DiffCommandAction,
		Flags: []cli.Flag{
			&cli.BoolWithInverseFlag{
				Name:    "color",
				Aliases: []string{"c"},
				Usage:   "enable colored diff output",
			},
		},
	}
	return cb.Build()
}
