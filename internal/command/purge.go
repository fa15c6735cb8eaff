// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cacheutil"
	"github.com/staranto/filememo/internal/meta"
)

// PurgeCommandAction removes quarantined snapshot copies older than --hours.
func PurgeCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, _, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}

	removed, err := cacheutil.Purge(s.QuarantineDir, cmd.Int("hours"))
	if err != nil {
		return err
	}

	w := writer(cmd)
	for _, p := range removed {
		fmt.Fprintln(w, p)
	}
	_, err = fmt.Fprintf(w, "purged %d files from %s\n", len(removed), s.QuarantineDir)
	return err
}

// PurgeCommandBuilder constructs the cli.Command for "purge".
func PurgeCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "purge",
		Usage:     "remove old quarantined cache files",
		UsageText: `filememo purge [--hours N]`,
		Meta:      meta,
		Action:    PurgeCommandAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "hours",
				Usage: "remove files older than this many hours",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("purge.hours", altsrc.StringSourcer(cfg.Source)),
				),
				Value: 72, //nolint:mnd
				Validator: func(value int) error {
					return FlagValidators(value, PositiveValidator)
				},
			},
		},
	}
	return cb.Build()
}
