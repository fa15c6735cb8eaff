// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a Store that has been closed.
var ErrClosed = errors.New("cache is closed")

// FileAccessError reports that the source file backing an entry could not be
// stat'd. It is a caller precondition failure and is never cached.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("failed to stat %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}
