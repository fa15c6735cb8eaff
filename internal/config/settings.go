// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/cacheutil"
)

// Settings selects and locates the cache backend. Values come from the
// environment first, then the config file's "cache" block, then the
// defaults under the data directory.
type Settings struct {
	CacheFile     string        `env:"FILEMEMO_CACHE_FILE"`
	CacheDatabase string        `env:"FILEMEMO_CACHE_DATABASE"`
	QuarantineDir string        `env:"FILEMEMO_QUARANTINE_DIR"`
	SQLite        *bool         `env:"FILEMEMO_SQLITE_CACHE"`
	FlushDelay    time.Duration `env:"FILEMEMO_FLUSH_DELAY"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadSettings resolves Settings from the environment, config file and
// defaults.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}

	if s.CacheFile == "" {
		s.CacheFile, _ = GetString("cache.file", cacheutil.SnapshotPath())
	}
	if s.CacheDatabase == "" {
		s.CacheDatabase, _ = GetString("cache.database", cacheutil.DatabasePath())
	}
	if s.QuarantineDir == "" {
		s.QuarantineDir, _ = GetString("cache.quarantine", cacheutil.QuarantineDir())
	}
	if s.SQLite == nil {
		b, _ := GetBool("cache.sqlite", false)
		s.SQLite = &b
	}
	if s.FlushDelay <= 0 {
		d, err := GetDuration("cache.flush_delay", cache.DefaultFlushDelay)
		if err != nil {
			return Settings{}, fmt.Errorf("cache.flush_delay: %w", err)
		}
		s.FlushDelay = d
	}

	return s, nil
}

// Kind returns the backend selected by the SQLite flag.
func (s Settings) Kind() cache.Kind {
	if s.SQLite != nil && *s.SQLite {
		return cache.KindTable
	}
	return cache.KindSnapshot
}

// Backend converts s into the settings the cache package consumes.
func (s Settings) Backend() cache.Settings {
	return cache.Settings{
		SnapshotPath:  s.CacheFile,
		QuarantineDir: s.QuarantineDir,
		DatabasePath:  s.CacheDatabase,
		FlushDelay:    s.FlushDelay,
	}
}
