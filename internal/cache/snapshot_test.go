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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotLoad_Missing(t *testing.T) {
	be := NewSnapshotFile(filepath.Join(t.TempDir(), "cache.json"))
	data, err := be.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSnapshotLoad_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	raw := `{
    "hashes": {
        "model.safetensors": {"mtime": 1000.5, "value": "abc123"}
    },
    "empty": null
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	data, err := NewSnapshotFile(path).Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, data, "hashes")
	e := data["hashes"]["model.safetensors"]
	assert.Equal(t, 1000.5, e.MTime)
	assert.JSONEq(t, `"abc123"`, string(e.Value))
	assert.NotNil(t, data["empty"])
}

func TestSnapshotLoad_CorruptIsQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	qdir := filepath.Join(dir, "tmp")

	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated", content: `{"hashes": {"a": {"mtime": 1`},
		{name: "wrong shape", content: `["not", "a", "map"]`},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			s, err := Open(context.Background(), NewSnapshotFile(path, WithQuarantineDir(qdir)))
			require.NoError(t, err)
			assert.Empty(t, s.Sections())

			_, err = os.Stat(path)
			assert.ErrorIs(t, err, os.ErrNotExist)

			files, err := os.ReadDir(qdir)
			require.NoError(t, err)
			require.Len(t, files, i+1)

			// The first copy keeps its name, later ones are stamped.
			found := false
			for _, f := range files {
				b, err := os.ReadFile(filepath.Join(qdir, f.Name()))
				require.NoError(t, err)
				if string(b) == tt.content {
					found = true
				}
			}
			assert.True(t, found, "quarantined copy should hold the original bytes")
			if i == 0 {
				assert.Equal(t, "cache.json", files[0].Name())
			}
		})
	}
}

func TestSnapshotWrite_Atomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cache.json")
	file := sourceFile(t, "a.bin", 1000)

	s := openSnapshotStore(t, path)
	calls := 0
	_, _, err := s.GetOrCompute(ctx, "hashes", "a", file, constant("abc", &calls))
	require.NoError(t, err)

	// Nothing hits disk until the writer flushes.
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, s.Flush(ctx))

	_, err = os.Stat(path + "-")
	assert.ErrorIs(t, err, os.ErrNotExist, "temp file should be renamed away")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, 1000.0, doc["hashes"]["a"]["mtime"])
	assert.Equal(t, "abc", doc["hashes"]["a"]["value"])
}

func TestSnapshot_RestartRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")
	file := sourceFile(t, "a.bin", 1000)

	s := openSnapshotStore(t, path)
	calls := 0
	_, _, err := s.GetOrCompute(ctx, "hashes", "a", file, constant("abc", &calls))
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	s = openSnapshotStore(t, path)
	v, ok, err := s.GetOrCompute(ctx, "hashes", "a", file, constant("zzz", &calls))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `"abc"`, string(v))
	assert.Equal(t, 1, calls)
}

func TestSnapshotWrite_Unattached(t *testing.T) {
	be := NewSnapshotFile(filepath.Join(t.TempDir(), "cache.json"))
	assert.Error(t, be.Write(context.Background()))
}

func TestDecodeSnapshot(t *testing.T) {
	data, err := DecodeSnapshot([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	_, err = DecodeSnapshot([]byte(`{"hashes": 3}`))
	assert.Error(t, err)

	b, err := EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	in := Data{"hashes": {"a": {MTime: 1.25, Value: json.RawMessage(`{"sum":"ff"}`)}}}
	b, err = EncodeSnapshot(in)
	require.NoError(t, err)
	out, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, 1.25, out["hashes"]["a"].MTime)
	assert.JSONEq(t, `{"sum":"ff"}`, string(out["hashes"]["a"].Value))
}
