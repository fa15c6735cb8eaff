// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws contains the AWS SDK v2 helpers used by the backup and restore
// commands to move cache snapshots in and out of S3.
package aws
