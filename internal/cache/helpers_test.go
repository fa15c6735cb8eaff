// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sourceFile creates a file under t.TempDir() with the given mtime (seconds).
func sourceFile(t *testing.T, name string, mtime int64) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
	touch(t, p, mtime)
	return p
}

func touch(t *testing.T, path string, mtime int64) {
	t.Helper()
	ts := time.Unix(mtime, 0)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

// openSnapshotStore opens a store on a snapshot file that never flushes on
// its own during a test.
func openSnapshotStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	be := NewSnapshotFile(path, WithFlushDelay(time.Hour))
	s, err := Open(context.Background(), be, opts...)
	require.NoError(t, err)
	return s
}

func openTableStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), NewTableStore(path))
	require.NoError(t, err)
	return s
}

// constant returns a ComputeFunc yielding v and counting its calls.
func constant(v string, calls *int) ComputeFunc {
	return func(context.Context) (json.RawMessage, bool, error) {
		*calls++
		b, _ := json.Marshal(v)
		return b, true, nil
	}
}
