// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// SnapshotFile persists the whole store as one JSON document. Writes go to a
// sibling temp file which is then renamed over the canonical path, so readers
// never see a partial file. Writes are debounced.
type SnapshotFile struct {
	path          string
	quarantineDir string
	delay         time.Duration

	mu     sync.Mutex
	src    Source
	writer *Debouncer
}

// SnapshotOption customizes a SnapshotFile.
type SnapshotOption func(*SnapshotFile)

// WithQuarantineDir sets where unreadable snapshot files are moved. The
// default is a "quarantine" directory next to the snapshot.
func WithQuarantineDir(dir string) SnapshotOption {
	return func(s *SnapshotFile) {
		if dir != "" {
			s.quarantineDir = dir
		}
	}
}

// WithFlushDelay overrides DefaultFlushDelay.
func WithFlushDelay(d time.Duration) SnapshotOption {
	return func(s *SnapshotFile) { s.delay = d }
}

// NewSnapshotFile returns a snapshot backend writing to path.
func NewSnapshotFile(path string, opts ...SnapshotOption) *SnapshotFile {
	s := &SnapshotFile{
		path:          path,
		quarantineDir: filepath.Join(filepath.Dir(path), "quarantine"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = NewDebouncer(s.delay, s.Write)
	return s
}

func (s *SnapshotFile) Kind() Kind { return KindSnapshot }

// Path returns the canonical snapshot path.
func (s *SnapshotFile) Path() string { return s.path }

// Writer exposes the debouncer driving snapshot writes.
func (s *SnapshotFile) Writer() *Debouncer { return s.writer }

// Load reads the snapshot. A missing file is an empty store. A file that
// can't be read or parsed is moved to the quarantine directory and the store
// starts empty.
func (s *SnapshotFile) Load(_ context.Context) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := ReadSnapshot(s.path)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("no cache file at %s, starting empty", s.path)
		return Data{}, nil
	}

	dest, qerr := s.quarantine()
	if qerr != nil {
		log.WithError(qerr).Errorf("failed to move unreadable cache %s aside", s.path)
	}
	log.WithError(err).WithField("quarantine", dest).
		Errorf("issue reading %s, moved it aside and starting with an empty cache", s.path)
	return Data{}, nil
}

// ReadSnapshot parses the snapshot file at path.
func ReadSnapshot(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := DecodeSnapshot(b)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot document. Null subsections decode as
// empty ones.
func DecodeSnapshot(b []byte) (Data, error) {
	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = Data{}
	}
	for name, entries := range data {
		if entries == nil {
			data[name] = map[string]Entry{}
		}
	}
	return data, nil
}

// EncodeSnapshot renders data in the snapshot file format.
func EncodeSnapshot(data Data) ([]byte, error) {
	if data == nil {
		data = Data{}
	}
	b, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache: %w", err)
	}
	return b, nil
}

// quarantine moves the snapshot into the quarantine directory, keeping its
// base name unless that slot is taken.
func (s *SnapshotFile) quarantine() (string, error) {
	if err := os.MkdirAll(s.quarantineDir, 0o755); err != nil { //nolint:mnd
		return "", fmt.Errorf("failed to create quarantine directory: %w", err)
	}

	base := filepath.Base(s.path)
	dest := filepath.Join(s.quarantineDir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		stamp := time.Now().Format("20060102T150405.000000000")
		dest = filepath.Join(s.quarantineDir, strings.TrimSuffix(base, ext)+"-"+stamp+ext)
	}

	if err := os.Rename(s.path, dest); err != nil {
		return "", fmt.Errorf("failed to quarantine cache file: %w", err)
	}
	return dest, nil
}

// Write serializes the attached store and atomically replaces the snapshot.
func (s *SnapshotFile) Write(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return fmt.Errorf("snapshot %s has no attached store", s.path)
	}
	return WriteSnapshot(s.path, s.src.Snapshot())
}

// WriteSnapshot writes data to path via a temp sibling and a rename.
func WriteSnapshot(path string, data Data) error {
	b, err := EncodeSnapshot(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := path + "-"
	if err := os.WriteFile(tmp, b, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace cache: %w", err)
	}

	log.Debugf("wrote cache to %s", path)
	return nil
}

func (s *SnapshotFile) EnsureSection(context.Context, string) error { return nil }

// Record schedules a debounced write; the entry is already in memory.
func (s *SnapshotFile) Record(context.Context, string, string, Entry) error {
	s.writer.MarkDirty()
	return nil
}

func (s *SnapshotFile) Attach(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
}

// Flush writes any pending state immediately.
func (s *SnapshotFile) Flush(ctx context.Context) error {
	return s.writer.FlushNow(ctx)
}

// Close flushes pending state and stops the writer.
func (s *SnapshotFile) Close(ctx context.Context) error {
	return s.writer.Shutdown(ctx)
}
