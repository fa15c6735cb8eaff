// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/config"
	"github.com/staranto/filememo/internal/meta"
	"github.com/staranto/filememo/internal/output"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// CommandBuilder constructs a cli.Command for filememo subcommands using a
// consistent pattern. The builder wires metadata, optionally adds the output
// flags, and sets up validators.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	// Output attaches --output, --color, --filter, --sort and --titles.
	Output bool
	Action func(context.Context, *cli.Command) error
	Meta   meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, cb.Flags...)
	if cb.Output {
		flags = append(flags, NewGlobalFlags(cb.Name)...)
	}

	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log.Debugf("Executing action for %s %v", cb.Name, c.Args().Slice())
			return cb.Action(ctx, c)
		},
	}
}

// ResolveSettings applies the root flags on top of the settings loaded at
// startup and returns them with the selected backend kind.
func ResolveSettings(cmd *cli.Command) (config.Settings, cache.Kind, error) {
	s := GetMeta(cmd).Settings

	if v := cmd.String("cache-file"); v != "" {
		s.CacheFile = v
	}
	if v := cmd.String("cache-db"); v != "" {
		s.CacheDatabase = v
	}
	if d := cmd.Duration("flush-delay"); d > 0 {
		s.FlushDelay = d
	}

	kind := s.Kind()
	if v := cmd.String("backend"); v != "" {
		k, err := cache.ParseKind(v)
		if err != nil {
			return s, "", err
		}
		kind = k
	}

	return s, kind, nil
}

// OpenStore opens the store selected by the command's settings. The caller
// owns the store and must Close it.
func OpenStore(ctx context.Context, cmd *cli.Command) (*cache.Store, error) {
	s, kind, err := ResolveSettings(cmd)
	if err != nil {
		return nil, err
	}

	be, err := cache.NewBackend(kind, s.Backend())
	if err != nil {
		return nil, err
	}
	log.WithField("backend", kind).Debug("opening cache")

	return cache.Open(ctx, be)
}

// closeStore closes s and reports, but does not return, a failure. Used in
// defers where the action's own error takes precedence.
func closeStore(ctx context.Context, s *cache.Store) {
	if s == nil {
		return
	}
	if err := s.Close(ctx); err != nil {
		log.WithError(err).Error("failed to close cache")
	}
}

// LoadBackend reads the full persisted state of one backend without opening
// a store, so nothing is created or quarantined as a side effect.
func LoadBackend(ctx context.Context, kind cache.Kind, s config.Settings) (cache.Data, error) {
	switch kind {
	case cache.KindSnapshot:
		data, err := cache.ReadSnapshot(s.CacheFile)
		if errors.Is(err, fs.ErrNotExist) {
			return cache.Data{}, nil
		}
		return data, err
	case cache.KindTable:
		if _, err := os.Stat(s.CacheDatabase); errors.Is(err, fs.ErrNotExist) {
			return cache.Data{}, nil
		}
		return cache.NewTableStore(s.CacheDatabase).Load(ctx)
	}
	return nil, fmt.Errorf("unknown cache backend %q", kind)
}

// StoreBackend merges data into one backend's persisted state. Incoming
// entries replace existing ones with the same subsection and title.
func StoreBackend(ctx context.Context, kind cache.Kind, s config.Settings, data cache.Data) error {
	switch kind {
	case cache.KindSnapshot:
		current, err := LoadBackend(ctx, kind, s)
		if err != nil {
			return err
		}
		for name, entries := range data {
			if current[name] == nil {
				current[name] = map[string]cache.Entry{}
			}
			for title, e := range entries {
				current[name][title] = e
			}
		}
		return cache.WriteSnapshot(s.CacheFile, current)
	case cache.KindTable:
		return cache.NewTableStore(s.CacheDatabase).Write(ctx, data)
	}
	return fmt.Errorf("unknown cache backend %q", kind)
}

// countEntries returns the number of entries in data.
func countEntries(data cache.Data) (n int) {
	for _, entries := range data {
		n += len(entries)
	}
	return
}

// spitOptions collects the output flags. --color defaults to on when stdout
// is a terminal.
func spitOptions(cmd *cli.Command) output.Options {
	color := output.IsTerminal(writer(cmd))
	if cmd.IsSet("color") {
		color = cmd.Bool("color")
	}
	return output.Options{
		Format: cmd.String("output"),
		Color:  color,
		Titles: cmd.Bool("titles"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
	}
}

// writer returns the root command's writer, stdout when unset.
func writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// absPath resolves p against the starting directory.
func absPath(startingDir, p string) string {
	if filepath.IsAbs(p) || startingDir == "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return filepath.Join(startingDir, p)
}
