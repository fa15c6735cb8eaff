// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

type Algo string

const (
	SHA256  Algo = "sha256"
	BLAKE2b Algo = "blake2b"
)

// Algos lists the supported algorithms.
var Algos = []Algo{SHA256, BLAKE2b}

// Result is what gets cached for a file.
type Result struct {
	Algo Algo   `json:"algo"`
	Sum  string `json:"sum"`
	Size int64  `json:"size"`
}

// Short returns the first 10 hex characters of the digest, the form used
// for display.
func (r Result) Short() string {
	if len(r.Sum) <= 10 {
		return r.Sum
	}
	return r.Sum[:10]
}

// New returns a fresh hash for algo.
func New(algo Algo) (hash.Hash, error) {
	switch algo {
	case SHA256, "":
		return sha256.New(), nil
	case BLAKE2b:
		return blake2b.New256(nil)
	}
	return nil, fmt.Errorf("unsupported digest algorithm %q", algo)
}

// File hashes the file at path. Reading stops early if ctx is cancelled.
func File(ctx context.Context, path string, algo Algo) (Result, error) {
	h, err := New(algo)
	if err != nil {
		return Result{}, err
	}
	if algo == "" {
		algo = SHA256
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.Copy(h, &ctxReader{ctx: ctx, r: f})
	if err != nil {
		return Result{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Result{
		Algo: algo,
		Sum:  hex.EncodeToString(h.Sum(nil)),
		Size: n,
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
