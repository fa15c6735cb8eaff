// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
)

// Store is the in-memory cache, loaded once from its backend when opened.
// Consumers receive a *Store explicitly; there is no package level instance.
type Store struct {
	backend Backend
	dedupe  bool

	mu       sync.RWMutex
	sections map[string]*Section

	group singleflight.Group

	// opMu orders admission of operations against Close so that ops.Add
	// never races ops.Wait.
	opMu   sync.Mutex
	ops    sync.WaitGroup
	closed atomic.Bool
}

// Option customizes a Store.
type Option func(*Store)

// WithDedupe controls whether concurrent misses on the same title share a
// single compute call. It is on by default.
func WithDedupe(on bool) Option {
	return func(s *Store) { s.dedupe = on }
}

// Open loads the backend's persisted state and returns a ready Store.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("cache backend is required")
	}

	data, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	s := &Store{
		backend:  backend,
		dedupe:   true,
		sections: make(map[string]*Section, len(data)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for name, entries := range data {
		s.sections[name] = newSection(name, entries)
	}
	backend.Attach(s)

	log.WithFields(log.Fields{
		"backend":  backend.Kind(),
		"sections": len(s.sections),
	}).Debug("cache loaded")

	return s, nil
}

// Backend returns the backend the store persists to.
func (s *Store) Backend() Backend {
	return s.backend
}

// Section returns the named subsection, creating and registering an empty
// one on first reference.
func (s *Store) Section(ctx context.Context, name string) *Section {
	s.mu.RLock()
	sec, ok := s.sections[name]
	s.mu.RUnlock()
	if ok {
		return sec
	}

	s.mu.Lock()
	sec, ok = s.sections[name]
	if !ok {
		sec = newSection(name, nil)
		s.sections[name] = sec
	}
	s.mu.Unlock()

	if !ok {
		if err := s.backend.EnsureSection(ctx, name); err != nil {
			log.WithError(err).Warnf("failed to prepare cache section %s", name)
		}
	}
	return sec
}

// Sections returns the names of all known subsections, sorted.
func (s *Store) Sections() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	secs := make([]*Section, 0, len(s.sections))
	for _, sec := range s.sections {
		secs = append(secs, sec)
	}
	s.mu.RUnlock()

	data := make(Data, len(secs))
	for _, sec := range secs {
		data[sec.Name()] = sec.Entries()
	}
	return data
}

type flusher interface {
	Flush(ctx context.Context) error
}

// Flush forces pending writes out to the backend. It is a no-op for backends
// that write synchronously.
func (s *Store) Flush(ctx context.Context) error {
	if f, ok := s.backend.(flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// begin admits an operation, returning false once the store is closed. Each
// successful begin must be paired with a call to s.ops.Done.
func (s *Store) begin() bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.ops.Add(1)
	return true
}

// Close waits for in-flight GetOrCompute calls, flushes pending state and
// closes the backend. It is safe to call more than once. If ctx ends before
// the in-flight calls finish, the backend is still closed and ctx's error is
// returned.
func (s *Store) Close(ctx context.Context) error {
	s.opMu.Lock()
	if s.closed.Swap(true) {
		s.opMu.Unlock()
		return nil
	}
	s.opMu.Unlock()

	var waitErr error
	done := make(chan struct{})
	go func() {
		s.ops.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.WithError(ctx.Err()).Warn("closing cache with computes still running")
		waitErr = fmt.Errorf("failed to drain cache: %w", ctx.Err())
	}

	if err := s.backend.Close(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	return waitErr
}
