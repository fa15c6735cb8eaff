// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies a persistence backend variant.
type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindTable    Kind = "table"
)

// ParseKind maps a user supplied backend name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSnapshot, "json", "file":
		return KindSnapshot, nil
	case KindTable, "sqlite", "db":
		return KindTable, nil
	}
	return "", fmt.Errorf("unknown cache backend %q (want %s or %s)", s, KindSnapshot, KindTable)
}

// Source gives a backend read access to the full in-memory store.
type Source interface {
	Snapshot() Data
}

// Backend persists a Store.
type Backend interface {
	Kind() Kind
	// Load reads the full persisted state. Missing state is an empty Data,
	// not an error.
	Load(ctx context.Context) (Data, error)
	// EnsureSection is called the first time a subsection is referenced.
	EnsureSection(ctx context.Context, subsection string) error
	// Record persists a freshly computed entry.
	Record(ctx context.Context, subsection, title string, e Entry) error
	// Attach is called once by Open, before any Record.
	Attach(src Source)
	// Close flushes anything pending and releases resources.
	Close(ctx context.Context) error
}

// Settings carries everything needed to construct either backend.
type Settings struct {
	SnapshotPath  string
	QuarantineDir string
	DatabasePath  string
	FlushDelay    time.Duration
}

// NewBackend constructs the backend selected by kind.
func NewBackend(kind Kind, s Settings) (Backend, error) {
	switch kind {
	case KindSnapshot:
		if s.SnapshotPath == "" {
			return nil, fmt.Errorf("snapshot path is required")
		}
		return NewSnapshotFile(s.SnapshotPath,
			WithQuarantineDir(s.QuarantineDir),
			WithFlushDelay(s.FlushDelay),
		), nil
	case KindTable:
		if s.DatabasePath == "" {
			return nil, fmt.Errorf("database path is required")
		}
		return NewTableStore(s.DatabasePath), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", kind)
}
