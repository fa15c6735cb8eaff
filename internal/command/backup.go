// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/aws"
	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/meta"
)

// DefaultBackupKey is the object key used when --key is not given.
const DefaultBackupKey = "filememo/cache.json"

// newObjectAPI builds the S3 client for backup and restore. Tests replace it.
var newObjectAPI = func(ctx context.Context, cmd *cli.Command) (aws.ObjectAPI, error) {
	var opts []aws.Option
	if p := cmd.String("profile"); p != "" {
		opts = append(opts, aws.WithProfile(p))
	}
	if r := cmd.String("region"); r != "" {
		opts = append(opts, aws.WithRegion(r))
	}

	awsCfg, err := aws.LoadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return aws.NewS3(awsCfg, aws.WithS3Endpoint(cmd.String("endpoint"))), nil
}

// BackupCommandAction uploads the active backend's state to S3 in the
// snapshot file format, whichever backend is active.
func BackupCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, kind, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}
	data, err := LoadBackend(ctx, kind, s)
	if err != nil {
		return err
	}
	body, err := cache.EncodeSnapshot(data)
	if err != nil {
		return err
	}

	api, err := newObjectAPI(ctx, cmd)
	if err != nil {
		return err
	}
	bucket, key := cmd.String("bucket"), cmd.String("key")
	if err := aws.PutSnapshot(ctx, api, bucket, key, body); err != nil {
		return err
	}

	_, err = fmt.Fprintf(writer(cmd), "backed up %d entries to s3://%s/%s\n", countEntries(data), bucket, key)
	return err
}

// RestoreCommandAction downloads a backup and merges it into the active
// backend.
func RestoreCommandAction(ctx context.Context, cmd *cli.Command) error {
	s, kind, err := ResolveSettings(cmd)
	if err != nil {
		return err
	}

	api, err := newObjectAPI(ctx, cmd)
	if err != nil {
		return err
	}
	bucket, key := cmd.String("bucket"), cmd.String("key")
	body, err := aws.GetSnapshot(ctx, api, bucket, key)
	if err != nil {
		return err
	}

	data, err := cache.DecodeSnapshot(body)
	if err != nil {
		return fmt.Errorf("s3://%s/%s is not a cache snapshot: %w", bucket, key, err)
	}
	if err := StoreBackend(ctx, kind, s, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{"backend": kind, "entries": countEntries(data)}).Info("restored")
	_, err = fmt.Fprintf(writer(cmd), "restored %d entries from s3://%s/%s into %s cache\n",
		countEntries(data), bucket, key, kind)
	return err
}

// newS3Flags returns the flags shared by backup and restore.
func newS3Flags(ns string) []cli.Flag {
	return []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:     "bucket",
			Usage:    "S3 bucket",
			Required: true,
			Sources:  cli.NewValueSourceChain(cli.EnvVar("FILEMEMO_BUCKET")),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "key",
			Usage: "object key",
			Value: DefaultBackupKey,
		}),
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "S3-compatible endpoint URL",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_ENDPOINT_URL_S3"),
				yaml.YAML("s3.endpoint", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "AWS shared config profile",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "AWS region",
		},
	}
}

// BackupCommandBuilder constructs the cli.Command for "backup".
func BackupCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "backup",
		Usage:     "upload the cache to S3",
		UsageText: `filememo backup --bucket B [--key K]`,
		Meta:      meta,
		Action:    BackupCommandAction,
		Flags:     newS3Flags("backup"),
	}
	return cb.Build()
}

// RestoreCommandBuilder constructs the cli.Command for "restore".
func RestoreCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "restore",
		Usage:     "merge a cache backup from S3 into the active backend",
		UsageText: `filememo restore --bucket B [--key K]`,
		Meta:      meta,
		Action:    RestoreCommandAction,
		Flags:     newS3Flags("restore"),
	}
	return cb.Build()
}
