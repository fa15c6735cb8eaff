// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output filters, sorts and renders result rows as text tables, JSON
// or YAML, and renders structural diffs of cache documents.
package output
