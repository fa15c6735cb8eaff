// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
)

const (
	SnapshotName   = "cache.json"
	DatabaseName   = "cache_database.db"
	QuarantineName = "tmp"
)

// Dir resolves the base data directory.
// Precedence:
//  1. FILEMEMO_DATA_DIR, if set and non-empty
//  2. os.UserCacheDir()/filememo
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("FILEMEMO_DATA_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "filememo"), true
	}
	return "", false
}

// Enabled returns true unless FILEMEMO_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("FILEMEMO_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base data directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create data directory: %w", err)
	}
	return base, true, nil
}

// SnapshotPath is the default location of the JSON snapshot.
func SnapshotPath() string {
	return under(SnapshotName)
}

// DatabasePath is the default location of the SQLite table store.
func DatabasePath() string {
	return under(DatabaseName)
}

// QuarantineDir is where unreadable snapshots are moved.
func QuarantineDir() string {
	return under(QuarantineName)
}

func under(name string) string {
	base, ok := Dir()
	if !ok {
		base = "."
	}
	return filepath.Join(base, name)
}

// Purge removes files under dir older than the provided number of hours.
// If hours <= 0 or dir does not exist, it is a no-op. It returns the paths
// that were removed.
func Purge(dir string, hours int) ([]string, error) {
	if hours <= 0 {
		log.Debug("purge disabled")
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var removed []string
	maxAge := time.Duration(hours) * time.Hour
	if err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err == nil {
				log.Debugf("removed %s", path)
				removed = append(removed, path)
			} else {
				log.WithError(err).Warnf("failed to remove %s", path)
			}
		}
		return nil
	}); err != nil {
		return removed, fmt.Errorf("failed to purge %s: %w", dir, err)
	}
	return removed, nil
}
