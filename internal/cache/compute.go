// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apex/log"
)

// ComputeFunc produces the JSON value to cache. ok=false means no value was
// produced; nothing is cached in that case.
type ComputeFunc func(ctx context.Context) (value json.RawMessage, ok bool, err error)

type computeOptions struct {
	progress string
}

// ComputeOption customizes a GetOrCompute call.
type ComputeOption func(*computeOptions)

// WithProgress logs label before a recompute and the result after it.
func WithProgress(label string) ComputeOption {
	return func(o *computeOptions) { o.progress = label }
}

type result struct {
	value json.RawMessage
	ok    bool
}

// GetOrCompute returns the value cached under (subsection, title) if it was
// computed from the current version of filePath. Otherwise it calls compute,
// caches the result against filePath's mtime and returns it.
//
// A failure to stat filePath is returned as a *FileAccessError. Errors from
// compute are returned unchanged. Concurrent misses on the same title and
// observed mtime share one compute call unless the store was opened
// WithDedupe(false); the shared call runs with the first caller's ctx.
func (s *Store) GetOrCompute(
	ctx context.Context,
	subsection, title, filePath string,
	compute ComputeFunc,
	opts ...ComputeOption,
) (json.RawMessage, bool, error) {
	if !s.begin() {
		return nil, false, ErrClosed
	}
	defer s.ops.Done()

	var o computeOptions
	for _, opt := range opts {
		opt(&o)
	}

	sec := s.Section(ctx, subsection)

	fi, err := os.Stat(filePath)
	if err != nil {
		return nil, false, &FileAccessError{Path: filePath, Err: err}
	}
	mtime := ModTime(fi)

	if e, ok := sec.Get(title); ok && e.Valid(mtime) {
		return e.Value, true, nil
	}

	if !s.dedupe {
		r, err := s.miss(ctx, sec, title, mtime, compute, o)
		return r.value, r.ok, err
	}

	key := fmt.Sprintf("%s\x00%s\x00%v", subsection, title, mtime)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// Another caller may have filled the slot while we waited.
		if e, ok := sec.Get(title); ok && e.Valid(mtime) {
			return result{value: e.Value, ok: true}, nil
		}
		return s.miss(ctx, sec, title, mtime, compute, o)
	})
	if err != nil {
		return nil, false, err
	}

	r := v.(result)
	if !r.ok {
		return nil, false, nil
	}
	out := make(json.RawMessage, len(r.value))
	copy(out, r.value)
	return out, true, nil
}

func (s *Store) miss(
	ctx context.Context,
	sec *Section,
	title string,
	mtime float64,
	compute ComputeFunc,
	o computeOptions,
) (result, error) {
	logger := log.WithFields(log.Fields{"section": sec.Name(), "title": title})

	if o.progress != "" {
		logger.Info(o.progress)
	}

	value, ok, err := compute(ctx)
	if err != nil {
		return result{}, err
	}
	if o.progress != "" {
		logger.Infof("%s: %s", o.progress, value)
	}
	if !ok || !hasValue(value) {
		return result{}, nil
	}
	if !json.Valid(value) {
		return result{}, fmt.Errorf("value computed for %s/%s is not valid JSON", sec.Name(), title)
	}

	e := Entry{MTime: mtime, Value: value}

	if s.backend.Kind() == KindTable {
		// Memory only changes once the row is durable.
		if err := s.backend.Record(ctx, sec.Name(), title, e); err != nil {
			logger.WithError(err).Error("failed to store cache entry")
			return result{}, nil
		}
		sec.Set(title, e)
		return result{value: value, ok: true}, nil
	}

	sec.Set(title, e)
	if err := s.backend.Record(ctx, sec.Name(), title, e); err != nil {
		logger.WithError(err).Error("failed to schedule cache write")
	}
	return result{value: value, ok: true}, nil
}

// Compute is the typed form of GetOrCompute. Values are stored as JSON, so T
// must round-trip through encoding/json.
func Compute[T any](
	ctx context.Context,
	s *Store,
	subsection, title, filePath string,
	fn func(ctx context.Context) (T, bool, error),
	opts ...ComputeOption,
) (T, bool, error) {
	var zero T

	raw, ok, err := s.GetOrCompute(ctx, subsection, title, filePath,
		func(ctx context.Context) (json.RawMessage, bool, error) {
			v, ok, err := fn(ctx)
			if err != nil || !ok {
				return nil, ok, err
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, false, fmt.Errorf("failed to encode value for %s/%s: %w", subsection, title, err)
			}
			return b, true, nil
		}, opts...)
	if err != nil || !ok {
		return zero, false, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false, fmt.Errorf("failed to decode value for %s/%s: %w", subsection, title, err)
	}
	return out, true, nil
}
