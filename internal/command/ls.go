// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/meta"
	"github.com/staranto/filememo/internal/output"
)

// LsCommandAction lists the subsections, or the entries of one subsection.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, kind, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}
	data, err := LoadBackend(ctx, kind, s)
	if err != nil {
		return err
	}

	if cmd.NArg() == 0 {
		return output.Spit(writer(cmd), SectionRows(data), []string{"subsection", "entries"}, spitOptions(cmd))
	}

	name := cmd.Args().First()
	entries, ok := data[name]
	if !ok {
		return fmt.Errorf("no subsection %q in %s cache", name, kind)
	}
	return output.Spit(writer(cmd), EntryRows(entries), []string{"title", "modified", "bytes"}, spitOptions(cmd))
}

// SectionRows summarizes each subsection.
func SectionRows(data cache.Data) []map[string]interface{} {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		rows = append(rows, map[string]interface{}{
			"subsection": name,
			"entries":    len(data[name]),
		})
	}
	return rows
}

// EntryRows renders the entries of one subsection. "value" carries the
// decoded value for the structured formats.
func EntryRows(entries map[string]cache.Entry) []map[string]interface{} {
	titles := make([]string, 0, len(entries))
	for title := range entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	rows := make([]map[string]interface{}, 0, len(titles))
	for _, title := range titles {
		e := entries[title]
		var value interface{}
		if err := json.Unmarshal(e.Value, &value); err != nil {
			value = string(e.Value)
		}
		rows = append(rows, map[string]interface{}{
			"title":    title,
			"mtime":    e.MTime,
			"modified": humanize.Time(cache.Time(e.MTime)),
			"bytes":    len(e.Value),
			"value":    value,
		})
	}
	return rows
}

// LsCommandBuilder constructs the cli.Command for "ls".
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "ls",
		Usage:     "list subsections or the entries of one",
		UsageText: `filememo ls [options] [SUBSECTION]`,
		Output:    true,
		Meta:      meta,
		Action:    LsCommandAction,
	}
	return cb.Build()
}
