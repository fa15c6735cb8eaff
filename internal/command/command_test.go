// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/cache"
	"github.com/staranto/filememo/internal/config"
)

// isolate points every path the CLI touches at a fresh temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FILEMEMO_DATA_DIR", dir)
	t.Setenv("FILEMEMO_CFG", filepath.Join(dir, "absent.yaml"))
	for _, k := range []string{
		"FILEMEMO_CACHE",
		"FILEMEMO_CACHE_FILE",
		"FILEMEMO_CACHE_DATABASE",
		"FILEMEMO_QUARANTINE_DIR",
		"FILEMEMO_SQLITE_CACHE",
		"FILEMEMO_FLUSH_DELAY",
	} {
		t.Setenv(k, "")
	}
	config.Config = config.Type{}
	t.Cleanup(func() { config.Config = config.Type{} })
	return dir
}

// run executes filememo with args and returns what it wrote.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx := context.Background()
	argv := append([]string{"filememo"}, args...)

	app, err := InitApp(ctx, argv)
	require.NoError(t, err)

	var buf bytes.Buffer
	app.Writer = &buf
	app.ErrWriter = &buf
	err = app.Run(ctx, argv)
	return buf.String(), err
}

func runJSON(t *testing.T, args ...string) []map[string]interface{} {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	return rows
}

func writeFile(t *testing.T, dir, name, content string, mtime int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	ts := time.Unix(mtime, 0)
	require.NoError(t, os.Chtimes(path, ts, ts))
	return path
}

func TestHash_CachedUntilModified(t *testing.T) {
	for _, backend := range []string{"snapshot", "table"} {
		t.Run(backend, func(t *testing.T) {
			dir := isolate(t)
			path := writeFile(t, dir, "model.safetensors", "hello", 1000)

			rows := runJSON(t, "--backend", backend, "hash", "--output", "json", path)
			require.Len(t, rows, 1)
			assert.Equal(t, false, rows[0]["cached"])
			assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", rows[0]["sum"])
			assert.Equal(t, float64(5), rows[0]["bytes"])

			rows = runJSON(t, "--backend", backend, "hash", "--output", "json", path)
			assert.Equal(t, true, rows[0]["cached"])

			ts := time.Unix(1001, 0)
			require.NoError(t, os.Chtimes(path, ts, ts))
			rows = runJSON(t, "--backend", backend, "hash", "--output", "json", path)
			assert.Equal(t, false, rows[0]["cached"])
		})
	}
}

func TestHash_AlgorithmsUseSeparateSections(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.bin", "hello", 1000)

	runJSON(t, "hash", "--output", "json", path)
	rows := runJSON(t, "hash", "--algo", "blake2b", "--output", "json", path)
	assert.Equal(t, false, rows[0]["cached"])
	assert.Equal(t, "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf", rows[0]["sum"])

	rows = runJSON(t, "ls", "--output", "json", "--sort", "subsection")
	require.Len(t, rows, 2)
	assert.Equal(t, HashSection, rows[0]["subsection"])
	assert.Equal(t, HashSection+"-blake2b", rows[1]["subsection"])
}

func TestHash_CacheDisabled(t *testing.T) {
	dir := isolate(t)
	t.Setenv("FILEMEMO_CACHE", "0")
	path := writeFile(t, dir, "a.bin", "hello", 1000)

	for range 2 {
		rows := runJSON(t, "hash", "--output", "json", path)
		assert.Equal(t, false, rows[0]["cached"])
	}
	assert.NoFileExists(t, filepath.Join(dir, "cache.json"))
}

func TestHash_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "hash")
	assert.ErrorContains(t, err, "FILE is required")

	_, err = run(t, "hash", filepath.Join(dir, "missing.bin"))
	var fae *cache.FileAccessError
	assert.True(t, errors.As(err, &fae), "got %v", err)

	_, err = run(t, "hash", "--algo", "md5", filepath.Join(dir, "missing.bin"))
	assert.ErrorContains(t, err, "must be one of")
}

func TestLs(t *testing.T) {
	dir := isolate(t)
	a := writeFile(t, dir, "a.bin", "aaa", 1000)
	b := writeFile(t, dir, "b.bin", "bb", 2000)
	runJSON(t, "hash", "--output", "json", a, b)

	rows := runJSON(t, "ls", "--output", "json")
	require.Len(t, rows, 1)
	assert.Equal(t, HashSection, rows[0]["subsection"])
	assert.Equal(t, float64(2), rows[0]["entries"])

	rows = runJSON(t, "ls", "--output", "json", "--sort=-mtime", HashSection)
	require.Len(t, rows, 2)
	assert.Equal(t, b, rows[0]["title"])
	assert.Equal(t, float64(2000), rows[0]["mtime"])
	value, ok := rows[0]["value"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sha256", value["algo"])

	rows = runJSON(t, "ls", "--output", "json", "--filter", "title@b.bin", HashSection)
	require.Len(t, rows, 1)
	assert.Equal(t, b, rows[0]["title"])

	out, err := run(t, "ls", "--output", "text", HashSection)
	require.NoError(t, err)
	assert.Contains(t, out, a)

	_, err = run(t, "ls", "nope")
	assert.ErrorContains(t, err, `no subsection "nope"`)

	_, err = run(t, "ls", "--output", "xml")
	assert.ErrorContains(t, err, "must be one of")
}

func TestGet(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.bin", "hello", 1000)
	runJSON(t, "hash", "--output", "json", path)

	out, err := run(t, "get", "--query", "sum", HashSection, path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824\n", out)

	out, err = run(t, "get", HashSection, path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"algo":"sha256","sum":"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824","size":5}`, out)

	_, err = run(t, "get", HashSection, "/no/such/title")
	assert.ErrorContains(t, err, "no entry")

	_, err = run(t, "get", HashSection)
	assert.ErrorContains(t, err, "SUBSECTION and TITLE are required")
}

func TestQueryValue(t *testing.T) {
	value := json.RawMessage(`{"sum":"ff","size":5,"tags":["a","b"]}`)

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{name: "whole value", query: "", want: "{\n  \"sum\": \"ff\",\n  \"size\": 5,\n  \"tags\": [\n    \"a\",\n    \"b\"\n  ]\n}"},
		{name: "string is bare", query: "sum", want: "ff"},
		{name: "number", query: "size", want: "5"},
		{name: "array element", query: "tags.1", want: "b"},
		{name: "array count", query: "tags.#", want: "2"},
		{name: "no match", query: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryValue(value, tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryValue_StoredScalar(t *testing.T) {
	tests := []struct {
		name  string
		value string
		query string
		want  string
	}{
		{name: "string", value: `"abc123"`, want: "abc123"},
		{name: "string with escapes", value: `"a\"b"`, want: `a"b`},
		{name: "string via @this", value: `"abc123"`, query: "@this", want: "abc123"},
		{name: "number", value: `42`, want: "42"},
		{name: "bool", value: `true`, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryValue(json.RawMessage(tt.value), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubcommandIndex(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "subcommand first", args: []string{"filememo", "hash", "a.bin"}, want: 1},
		{name: "after valued flag", args: []string{"filememo", "--backend", "table", "hash"}, want: 3},
		{name: "after short flag", args: []string{"filememo", "-b", "snapshot", "ls"}, want: 3},
		{name: "after bool flag", args: []string{"filememo", "--version", "ls"}, want: 2},
		{name: "inline value", args: []string{"filememo", "--backend=table", "get", "x"}, want: 2},
		{name: "none", args: []string{"filememo", "--backend", "table"}, want: -1},
		{name: "bare", args: []string{"filememo"}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubcommandIndex(tt.args))
		})
	}
}

func TestInitApp_NamespaceAfterRootFlags(t *testing.T) {
	dir := isolate(t)
	cfg := filepath.Join(dir, "filememo.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("hash:\n  output: json\n"), 0o600))
	t.Setenv("FILEMEMO_CFG", cfg)

	_, err := InitApp(context.Background(), []string{"filememo", "--backend", "table", "hash", "x"})
	require.NoError(t, err)
	assert.Equal(t, "hash", config.Config.Namespace)
}

func TestMigrateAndDiff(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.bin", "hello", 1000)
	runJSON(t, "hash", "--output", "json", path)

	out, err := run(t, "diff", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "hashes")
	assert.NotContains(t, out, "no differences")

	out, err = run(t, "migrate", "--to", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated 1 entries in 1 subsections from snapshot to table")

	out, err = run(t, "diff")
	require.NoError(t, err)
	assert.Equal(t, "no differences\n", out)

	rows := runJSON(t, "--backend", "table", "hash", "--output", "json", path)
	assert.Equal(t, true, rows[0]["cached"])

	_, err = run(t, "migrate", "--to", "snapshot")
	assert.ErrorContains(t, err, "both snapshot")

	_, err = run(t, "migrate")
	assert.Error(t, err)
}

func TestMigrate_MergesIntoSnapshot(t *testing.T) {
	dir := isolate(t)
	a := writeFile(t, dir, "a.bin", "aaa", 1000)
	b := writeFile(t, dir, "b.bin", "bbb", 1000)

	runJSON(t, "hash", "--output", "json", a)
	runJSON(t, "--backend", "table", "hash", "--output", "json", b)

	_, err := run(t, "--backend", "table", "migrate", "--to", "snapshot")
	require.NoError(t, err)

	data, err := cache.ReadSnapshot(filepath.Join(dir, "cache.json"))
	require.NoError(t, err)
	assert.Len(t, data[HashSection], 2)
}

func TestPurge(t *testing.T) {
	dir := isolate(t)
	qdir := filepath.Join(dir, "tmp")
	require.NoError(t, os.MkdirAll(qdir, 0o755))
	old := writeFile(t, qdir, "cache.json", "{", time.Now().Add(-48*time.Hour).Unix())
	fresh := writeFile(t, qdir, "cache-1.json", "{", time.Now().Unix())

	out, err := run(t, "purge", "--hours", "24")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 1 files")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	_, err = run(t, "purge", "--hours", "0")
	assert.ErrorContains(t, err, "greater than zero")
}

func TestCompletion(t *testing.T) {
	isolate(t)

	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "complete -F _filememo filememo")

	out, err = run(t, "completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "#compdef filememo")
}

func TestResolveSettings_FlagsOverride(t *testing.T) {
	dir := isolate(t)

	app, err := InitApp(context.Background(), []string{"filememo", "ls"})
	require.NoError(t, err)

	var got struct {
		file  string
		db    string
		delay time.Duration
		kind  cache.Kind
	}
	for _, c := range app.Commands {
		if c.Name != "ls" {
			continue
		}
		c.Action = func(_ context.Context, cmd *cli.Command) error {
			s, kind, err := ResolveSettings(cmd)
			got.file, got.db, got.delay, got.kind = s.CacheFile, s.CacheDatabase, s.FlushDelay, kind
			return err
		}
	}

	err = app.Run(context.Background(), []string{
		"filememo", "--backend", "sqlite", "--cache-file", "/x/c.json",
		"--flush-delay", "250ms", "ls",
	})
	require.NoError(t, err)
	assert.Equal(t, "/x/c.json", got.file)
	assert.Equal(t, filepath.Join(dir, "cache_database.db"), got.db)
	assert.Equal(t, 250*time.Millisecond, got.delay)
	assert.Equal(t, cache.KindTable, got.kind)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, OutputValidator("yaml"))
	assert.Error(t, OutputValidator("raw"))
	assert.NoError(t, BackendValidator("table"))
	assert.Error(t, BackendValidator("redis"))
	assert.NoError(t, AlgoValidator("blake2b"))
	assert.Error(t, AlgoValidator("md5"))
	assert.Error(t, JammedFlagValidator("--output"))
	assert.Error(t, PositiveValidator(0))
	assert.NoError(t, FlagValidators("json", JammedFlagValidator, OutputValidator))
}
