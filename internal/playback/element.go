/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"sync"
)

// Element is the host media element: something that can load a source,
// decode it and report progress. Implementations must deliver notifications
// asynchronously through Notifications and never from inside their own
// method calls.
type Element interface {
	// Load assigns src and tags every following notification with session.
	Load(ctx context.Context, src, session string) error
	// Play starts or resumes the loaded source.
	Play(ctx context.Context) error
	Pause() error
	// Stop releases the loaded source. No Ended notification is emitted.
	Stop() error
	// Seek moves to an absolute position in seconds.
	Seek(seconds float64) error
	// Position is the elapsed time in seconds.
	Position() float64
	// Duration is the source length in seconds, 0 when unknown.
	Duration() float64
	Loaded() bool
	Notifications() <-chan Notification
	Close() error
}

// NotificationKind is the closed set of element notifications.
type NotificationKind string

const (
	KindMetadataLoaded NotificationKind = "metadata_loaded"
	KindPositionUpdate NotificationKind = "position_update"
	KindEnded          NotificationKind = "ended"
	KindError          NotificationKind = "error"
)

// Notification is a message from the element to the engine, tagged with the
// session that was loaded when it was produced.
type Notification struct {
	Kind     NotificationKind
	Session  string
	Elapsed  float64
	Duration float64
	Err      error
}

// MetadataLoaded reports the duration of the loaded source.
func MetadataLoaded(session string, duration float64) Notification {
	return Notification{Kind: KindMetadataLoaded, Session: session, Duration: duration}
}

// PositionUpdate reports playback progress.
func PositionUpdate(session string, elapsed, duration float64) Notification {
	return Notification{Kind: KindPositionUpdate, Session: session, Elapsed: elapsed, Duration: duration}
}

// Ended reports that the source played to its end.
func Ended(session string, elapsed float64) Notification {
	return Notification{Kind: KindEnded, Session: session, Elapsed: elapsed}
}

// Failed reports a runtime element error.
func Failed(session string, err error) Notification {
	return Notification{Kind: KindError, Session: session, Err: err}
}

// Notifier is the delivery channel shared by element implementations.
// Position updates are dropped when the buffer is full; every other kind
// waits for room until the notifier is closed.
type Notifier struct {
	ch   chan Notification
	done chan struct{}
	once sync.Once
}

// NewNotifier creates a notifier with the given buffer size.
func NewNotifier(size int) *Notifier {
	return &Notifier{
		ch:   make(chan Notification, size),
		done: make(chan struct{}),
	}
}

// C returns the receive side.
func (n *Notifier) C() <-chan Notification {
	return n.ch
}

// Send delivers note. It must not be called while holding a lock that the
// engine may need.
func (n *Notifier) Send(note Notification) {
	if note.Kind == KindPositionUpdate {
		select {
		case n.ch <- note:
		case <-n.done:
		default:
		}
		return
	}
	select {
	case n.ch <- note:
	case <-n.done:
	}
}

// Close stops delivery. Pending sends return immediately.
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.done) })
}
