// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package digest computes content digests of (potentially very large) files.
package digest
