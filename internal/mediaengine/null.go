/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediaengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/playback"
)

// NullElement plays nothing. It advances a clock for a fixed duration per
// source and reports progress exactly like an audio element would.
type NullElement struct {
	mu sync.Mutex

	interval time.Duration
	length   float64
	logger   zerolog.Logger
	notes    *playback.Notifier

	src      string
	session  string
	loaded   bool
	playing  bool
	position float64
	lastTick time.Time
	gen      uint64
	closed   bool

	now func() time.Time
}

// NewNullElement creates a clock-driven element.
func NewNullElement(cfg Config, logger zerolog.Logger) *NullElement {
	cfg = cfg.withDefaults()
	return &NullElement{
		interval: cfg.PositionInterval,
		length:   cfg.NullDuration.Seconds(),
		logger:   logger.With().Str("component", "null_element").Logger(),
		notes:    playback.NewNotifier(notificationBuffer),
		now:      time.Now,
	}
}

// Load implements playback.Element.
func (n *NullElement) Load(_ context.Context, src, session string) error {
	if src == "" {
		return ErrNoSource
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	n.gen++
	gen := n.gen
	n.src = src
	n.session = session
	n.loaded = true
	n.playing = false
	n.position = 0
	length := n.length
	n.mu.Unlock()

	n.logger.Debug().Str("src", src).Str("session", session).Msg("source loaded")
	go func() {
		n.notes.Send(playback.MetadataLoaded(session, length))
		n.run(gen)
	}()
	return nil
}

// Play implements playback.Element.
func (n *NullElement) Play(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.loaded {
		return ErrNotLoaded
	}
	if !n.playing {
		n.playing = true
		n.lastTick = n.now()
	}
	return nil
}

// Pause implements playback.Element.
func (n *NullElement) Pause() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.advanceLocked()
	n.playing = false
	return nil
}

// Stop implements playback.Element.
func (n *NullElement) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	n.loaded = false
	n.playing = false
	n.position = 0
	n.src = ""
	return nil
}

// Seek implements playback.Element.
func (n *NullElement) Seek(seconds float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.loaded {
		return ErrNotLoaded
	}
	n.position = min(max(seconds, 0), n.length)
	n.lastTick = n.now()
	return nil
}

// Position implements playback.Element.
func (n *NullElement) Position() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.advanceLocked()
	return n.position
}

// Duration implements playback.Element.
func (n *NullElement) Duration() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.loaded {
		return 0
	}
	return n.length
}

// Loaded implements playback.Element.
func (n *NullElement) Loaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// Notifications implements playback.Element.
func (n *NullElement) Notifications() <-chan playback.Notification {
	return n.notes.C()
}

// Close implements playback.Element.
func (n *NullElement) Close() error {
	n.mu.Lock()
	n.closed = true
	n.gen++
	n.loaded = false
	n.mu.Unlock()
	n.notes.Close()
	return nil
}

func (n *NullElement) advanceLocked() {
	if !n.playing {
		return
	}
	now := n.now()
	n.position = min(n.position+now.Sub(n.lastTick).Seconds(), n.length)
	n.lastTick = now
}

// run emits position updates for load generation gen until the source ends
// or is replaced.
func (n *NullElement) run(gen uint64) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for range ticker.C {
		n.mu.Lock()
		if n.gen != gen {
			n.mu.Unlock()
			return
		}
		n.advanceLocked()
		session, pos, playing := n.session, n.position, n.playing
		ended := pos >= n.length
		if ended {
			n.playing = false
			n.gen++
		}
		n.mu.Unlock()

		switch {
		case ended:
			n.notes.Send(playback.Ended(session, pos))
			return
		case playing:
			n.notes.Send(playback.PositionUpdate(session, pos, n.length))
		}
	}
}
