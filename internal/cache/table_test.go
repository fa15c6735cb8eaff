// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, dbPath, name string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestTableStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	file := sourceFile(t, "model.bin", 1000)

	want := map[string]any{
		"sum":   "abc123",
		"size":  float64(9),
		"parts": []any{"a", "b"},
		"meta":  map[string]any{"ok": true},
	}

	s := openTableStore(t, dbPath)
	calls := 0
	fn := func(context.Context) (map[string]any, bool, error) {
		calls++
		return want, true, nil
	}
	_, ok, err := Compute(ctx, s, "hashes", "model.bin", file, fn)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close(ctx))

	// Simulate a restart.
	s = openTableStore(t, dbPath)
	got, ok, err := Compute(ctx, s, "hashes", "model.bin", file, fn)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)

	e, found := s.Section(ctx, "hashes").Get("model.bin")
	require.True(t, found)
	assert.Equal(t, 1000.0, e.MTime)
}

func TestTableStore_SectionCreatesTable(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	s := openTableStore(t, dbPath)

	sec := s.Section(ctx, "extra-networks")
	assert.Equal(t, 0, sec.Len())
	assert.True(t, tableExists(t, dbPath, "extra-networks"))

	// An empty table still comes back as a section.
	s = openTableStore(t, dbPath)
	assert.Equal(t, []string{"extra-networks"}, s.Sections())
}

func TestTableStore_QuotedNames(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	be := NewTableStore(dbPath)

	name := `odd "name"; DROP TABLE x`
	e := Entry{MTime: 12.25, Value: json.RawMessage(`{"a":1}`)}
	require.NoError(t, be.Record(ctx, name, "title", e))

	data, err := be.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, data, name)
	assert.Equal(t, 12.25, data[name]["title"].MTime)
	assert.JSONEq(t, `{"a":1}`, string(data[name]["title"].Value))
}

func TestTableStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	be := NewTableStore(filepath.Join(t.TempDir(), "cache.db"))

	require.NoError(t, be.Record(ctx, "hashes", "a", Entry{MTime: 1, Value: json.RawMessage(`"one"`)}))
	require.NoError(t, be.Record(ctx, "hashes", "a", Entry{MTime: 2, Value: json.RawMessage(`"two"`)}))

	data, err := be.Load(ctx)
	require.NoError(t, err)
	require.Len(t, data["hashes"], 1)
	assert.Equal(t, 2.0, data["hashes"]["a"].MTime)
	assert.JSONEq(t, `"two"`, string(data["hashes"]["a"].Value))
}

func TestTableStore_CorruptDatabaseLoadsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("definitely not sqlite, just some bytes padding it out"), 0o600))

	data, err := NewTableStore(dbPath).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTableStore_WriteMany(t *testing.T) {
	ctx := context.Background()
	be := NewTableStore(filepath.Join(t.TempDir(), "cache.db"))

	in := Data{
		"hashes": {
			"a": {MTime: 1, Value: json.RawMessage(`"x"`)},
			"b": {MTime: 2, Value: json.RawMessage(`"y"`)},
		},
		"sizes": {
			"a": {MTime: 1, Value: json.RawMessage(`10`)},
		},
	}
	require.NoError(t, be.Write(ctx, in))

	out, err := be.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Len(t, out["hashes"], 2)
	assert.JSONEq(t, `10`, string(out["sizes"]["a"].Value))
}
