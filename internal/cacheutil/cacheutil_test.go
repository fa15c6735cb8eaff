// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cacheutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_EnvOverride(t *testing.T) {
	t.Setenv("FILEMEMO_DATA_DIR", "/var/lib/filememo")

	dir, ok := Dir()
	assert.True(t, ok)
	assert.Equal(t, "/var/lib/filememo", dir)
	assert.Equal(t, "/var/lib/filememo/cache.json", SnapshotPath())
	assert.Equal(t, "/var/lib/filememo/cache_database.db", DatabasePath())
	assert.Equal(t, "/var/lib/filememo/tmp", QuarantineDir())
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"1", true},
		{"true", true},
		{"0", false},
		{"false", false},
	}

	for _, tt := range tests {
		t.Run("FILEMEMO_CACHE="+tt.value, func(t *testing.T) {
			t.Setenv("FILEMEMO_CACHE", tt.value)
			assert.Equal(t, tt.want, Enabled())
		})
	}
}

func TestEnsureBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "data")
	t.Setenv("FILEMEMO_DATA_DIR", base)
	t.Setenv("FILEMEMO_CACHE", "")

	got, ok, err := EnsureBaseDir()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base, got)
	assert.DirExists(t, base)

	t.Setenv("FILEMEMO_CACHE", "0")
	_, ok, err = EnsureBaseDir()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "cache.json")
	fresh := filepath.Join(dir, "cache-20250101T000000.json")
	require.NoError(t, os.WriteFile(old, []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("{"), 0o600))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := Purge(dir, 24)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	removed, err = Purge(dir, 0)
	assert.NoError(t, err)
	assert.Empty(t, removed)

	removed, err = Purge(filepath.Join(dir, "missing"), 1)
	assert.NoError(t, err)
	assert.Empty(t, removed)
}
