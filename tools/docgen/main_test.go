// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = "# filememo hash\n\n" +
	"## Short description\n\n" +
	"Digest files, reusing cached results\nwhile mtimes are unchanged.\n\n" +
	"## Quick examples\n\n" +
	"```sh\n" +
	"# Hash a model file\n" +
	"filememo hash   model.safetensors\n" +
	"\n" +
	"filememo hash --algo blake2b a.bin\n" +
	"```\n"

func TestExtractTitleAndShortDesc(t *testing.T) {
	title, short := extractTitleAndShortDesc(sampleDoc)
	assert.Equal(t, "filememo hash", title)
	assert.Equal(t, "Digest files, reusing cached results while mtimes are unchanged.", short)

	title, short = extractTitleAndShortDesc("# only a title\n")
	assert.Equal(t, "only a title", title)
	assert.Equal(t, "only a title.", short)
}

func TestExtractQuickExamples(t *testing.T) {
	exs := extractQuickExamples(sampleDoc)
	require.Len(t, exs, 2)
	assert.Equal(t, example{Desc: "Hash a model file", Cmd: "filememo hash   model.safetensors"}, exs[0])
	assert.Equal(t, "Example", exs[1].Desc)

	assert.Nil(t, extractQuickExamples("# nothing here"))
}

func TestBuildTLDR(t *testing.T) {
	got := buildTLDR("hash", "filememo hash", "Digest files.", extractQuickExamples(sampleDoc))
	assert.Contains(t, got, "# filememo-hash\n\n> Digest files.\n")
	assert.Contains(t, got, "- Hash a model file:\n\n`filememo hash model.safetensors`\n")

	got = buildTLDR("ls", "", "", nil)
	assert.Contains(t, got, "`filememo ls --help`")
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	cmds := filepath.Join(root, "docs", "commands")
	require.NoError(t, os.MkdirAll(cmds, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cmds, "hash.md"), []byte(sampleDoc), 0o644))

	n, err := generate(root, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(root, "docs", "man", "share", "man1", "filememo-hash.1"))
	assert.FileExists(t, filepath.Join(root, "docs", "tldr", "filememo-hash.md"))

	_, err = generate(t.TempDir(), true)
	assert.Error(t, err)
}
