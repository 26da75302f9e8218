/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQueue is returned when a play request leaves nothing playable.
	// The engine is idle afterwards; it is informational.
	ErrEmptyQueue = errors.New("nothing playable in queue")

	// ErrInvalidTransition indicates an invalid state transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotInitialized is returned before Init.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("engine disposed")
)

// LoadError is a recoverable failure to load or start an entry. The queue and
// current index are left intact.
type LoadError struct {
	QueueUID string
	Src      string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.QueueUID, e.Src, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
