// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/cacheutil"
	"github.com/staranto/filememo/internal/digest"
	"github.com/staranto/filememo/internal/meta"
	"github.com/staranto/filememo/internal/output"
)

// HashSection is the subsection holding sha256 digests. Other algorithms
// get their own subsection so a switch of --algo never returns a digest of
// the wrong kind.
const HashSection = "hashes"

// HashSectionFor returns the subsection used for algo.
func HashSectionFor(algo digest.Algo) string {
	if algo == digest.SHA256 || algo == "" {
		return HashSection
	}
	return HashSection + "-" + string(algo)
}

// HashCommandAction digests each FILE, reusing a cached digest while the
// file's mtime is unchanged.
func HashCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one FILE is required")
	}
	algo := digest.Algo(cmd.String("algo"))

	var store *cache.Store
	if cacheutil.Enabled() {
		var err error
		if store, err = OpenStore(ctx, cmd); err != nil {
			return err
		}
		defer closeStore(ctx, store)
	} else {
		log.Debug("cache disabled, hashing without memoization")
	}

	rows := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		path := absPath(m.StartingDir, f)
		res, cached, err := HashFile(ctx, store, path, algo)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"file":   f,
			"path":   path,
			"algo":   string(res.Algo),
			"sum":    res.Sum,
			"short":  res.Short(),
			"bytes":  res.Size,
			"size":   humanize.Bytes(uint64(res.Size)), //nolint:gosec
			"cached": cached,
		})
	}

	columns := []string{"short", "size", "cached", "file"}
	if cmd.Bool("full") {
		columns[0] = "sum"
	}
	return output.Spit(writer(cmd), rows, columns, spitOptions(cmd))
}

// HashFile returns the digest of path and whether it came from the cache. A
// nil store hashes unconditionally.
func HashFile(ctx context.Context, store *cache.Store, path string, algo digest.Algo) (digest.Result, bool, error) {
	if store == nil {
		res, err := digest.File(ctx, path, algo)
		return res, false, err
	}

	var (
		computed bool
		fresh    digest.Result
	)
	res, ok, err := cache.Compute(ctx, store, HashSectionFor(algo), path, path,
		func(ctx context.Context) (digest.Result, bool, error) {
			computed = true
			r, err := digest.File(ctx, path, algo)
			if err != nil {
				return digest.Result{}, false, err
			}
			fresh = r
			return r, true, nil
		},
		cache.WithProgress(string(algo)+" "+filepath.Base(path)),
	)
	if err != nil {
		return digest.Result{}, false, err
	}
	if !ok {
		// The digest was computed but could not be persisted.
		return fresh, false, nil
	}
	return res, !computed, nil
}

// HashCommandBuilder constructs the cli.Command for "hash".
func HashCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "hash",
		Usage:     "digest files, reusing cached results",
		UsageText: `filememo hash [options] FILE...`,
		Output:    true,
		Meta:      meta,
		Action:    HashCommandAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "algo",
				Aliases: []string{"a"},
				Usage:   "digest algorithm, sha256 or blake2b",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("hash.algo", altsrc.StringSourcer(cfg.Source)),
				),
				Value: string(digest.SHA256),
				Validator: func(value string) error {
					return FlagValidators(value, AlgoValidator)
				},
			},
			&cli.BoolFlag{
				Name:  "full",
				Usage: "show the full digest in text output",
			},
		},
	}
	return cb.Build()
}
