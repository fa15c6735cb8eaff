// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache provides a persistent, mtime-validated memo store for the
// results of expensive file-derived computations. Entries are grouped into
// named sections and persisted either to a single JSON snapshot file or to a
// SQLite database with one table per section.
package cache
