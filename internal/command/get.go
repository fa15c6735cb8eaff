// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/meta"
)

// GetCommandAction prints one stored value, optionally narrowed by a gjson
// path.
func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 2 { //nolint:mnd
		return errors.New("SUBSECTION and TITLE are required")
	}
	subsection, title := cmd.Args().Get(0), cmd.Args().Get(1)

	s, kind, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}
	data, err := LoadBackend(ctx, kind, s)
	if err != nil {
		return err
	}

	e, ok := data[subsection][title]
	if !ok {
		return fmt.Errorf("no entry %s/%s in %s cache", subsection, title, kind)
	}

	out, err := QueryValue(e.Value, cmd.String("query"))
	if err != nil {
		return fmt.Errorf("%s/%s: %w", subsection, title, err)
	}
	_, err = fmt.Fprintln(writer(cmd), out)
	return err
}

// QueryValue narrows value with a gjson path and renders the result.
// Strings print bare, everything else as indented JSON.
func QueryValue(value json.RawMessage, query string) (string, error) {
	raw := []byte(value)
	res := gjson.ParseBytes(value)
	if query != "" {
		res = gjson.GetBytes(value, query)
		if !res.Exists() {
			return "", fmt.Errorf("query %q matched nothing", query)
		}
		raw = []byte(res.Raw)
	}
	if res.Type == gjson.String && json.Valid(raw) {
		return res.String(), nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("invalid stored value: %w", err)
	}
	return buf.String(), nil
}

// GetCommandBuilder constructs the cli.Command for "get".
func GetCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "get",
		Usage:     "print a stored value",
		UsageText: `filememo get [options] SUBSECTION TITLE`,
		Meta:      meta,
		Action:    GetCommandAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "gjson path applied to the value",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
		},
	}
	return cb.Build()
}
