// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sort"
	"sync"
)

// Section maps titles to entries for one subsection. It is safe for
// concurrent use.
type Section struct {
	name string

	mu      sync.RWMutex
	entries map[string]Entry
}

func newSection(name string, entries map[string]Entry) *Section {
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return &Section{name: name, entries: entries}
}

// Name returns the subsection name.
func (s *Section) Name() string {
	return s.name
}

// Get returns the entry stored under title.
func (s *Section) Get(title string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[title]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Set stores e under title, replacing any previous entry.
func (s *Section) Set(title string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[title] = e.clone()
}

// Delete removes title from the section. It only touches memory; persisted
// copies are overwritten on the next flush (snapshot) or left in place
// (table).
func (s *Section) Delete(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, title)
}

// Len returns the number of entries.
func (s *Section) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Titles returns the entry titles in sorted order.
func (s *Section) Titles() []string {
	s.mu.RLock()
	titles := make([]string, 0, len(s.entries))
	for t := range s.entries {
		titles = append(titles, t)
	}
	s.mu.RUnlock()

	sort.Strings(titles)
	return titles
}

// Entries returns a copy of every entry in the section.
func (s *Section) Entries() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for t, e := range s.entries {
		out[t] = e.clone()
	}
	return out
}
