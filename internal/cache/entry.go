// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"time"
)

// Entry is a single cached value along with the modification time of the
// source file it was derived from.
type Entry struct {
	// MTime is the source file's modification time, in fractional seconds
	// since the epoch, as observed when Value was computed.
	MTime float64 `json:"mtime"`
	// Value is the JSON encoded result.
	Value json.RawMessage `json:"value"`
}

// Valid reports whether the entry carries a value and matches mtime.
func (e Entry) Valid(mtime float64) bool {
	return hasValue(e.Value) && e.MTime == mtime
}

// hasValue treats a missing value and JSON null alike.
func hasValue(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && !bytes.Equal(v, []byte("null"))
}

// Data is the whole store: subsection -> title -> Entry. It is also the shape
// of the snapshot file.
type Data map[string]map[string]Entry

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for name, entries := range d {
		m := make(map[string]Entry, len(entries))
		for title, e := range entries {
			m[title] = e.clone()
		}
		out[name] = m
	}
	return out
}

func (e Entry) clone() Entry {
	if e.Value == nil {
		return e
	}
	v := make(json.RawMessage, len(e.Value))
	copy(v, e.Value)
	return Entry{MTime: e.MTime, Value: v}
}

// ModTime returns fi's modification time in the seconds representation used
// by Entry.MTime.
func ModTime(fi os.FileInfo) float64 {
	return toSeconds(fi.ModTime())
}

// Time converts an Entry mtime back to a time.Time.
func Time(mtime float64) time.Time {
	sec := int64(mtime)
	nsec := int64((mtime - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
