// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/meta"
)

// MigrateCommandAction copies every entry of the active backend into the
// other one.
func MigrateCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, from, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}
	to, err := cache.ParseKind(cmd.String("to"))
	if err != nil {
		return err
	}
	if to == from {
		return fmt.Errorf("source and target backend are both %s", from)
	}

	data, err := LoadBackend(ctx, from, s)
	if err != nil {
		return fmt.Errorf("failed to read %s cache: %w", from, err)
	}
	if err := StoreBackend(ctx, to, s, data); err != nil {
		return fmt.Errorf("failed to write %s cache: %w", to, err)
	}

	n := countEntries(data)
	log.WithFields(log.Fields{"from": from, "to": to, "entries": n}).Info("migrated")
	_, err = fmt.Fprintf(writer(cmd), "migrated %d entries in %d subsections from %s to %s\n", n, len(data), from, to)
	return err
}

// MigrateCommandBuilder constructs the cli.Command for "migrate".
func MigrateCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "migrate",
		Usage:     "copy all entries to the other backend",
		UsageText: `filememo migrate --to snapshot|table`,
		Meta:      meta,
		Action:    MigrateCommandAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "target backend, snapshot or table",
				Required: true,
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator, BackendValidator)
				},
			},
		},
	}
	return cb.Build()
}
