/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mediaengine provides the media elements the playback engine
// drives: a clock-only element, a beep decoder wired to the local speaker
// and a libmpv player.
package mediaengine

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/routing"
)

// Backend names a media element implementation.
type Backend string

const (
	BackendNull Backend = "null"
	BackendBeep Backend = "beep"
	BackendMPV  Backend = "mpv"
)

const (
	defaultPositionInterval = 250 * time.Millisecond
	defaultNullDuration     = 3 * time.Minute
	notificationBuffer      = 32
)

var (
	// ErrUnavailable is returned for a backend not compiled into this build.
	ErrUnavailable = errors.New("media backend not available in this build")

	// ErrNoSource is returned when Load is called with an empty locator.
	ErrNoSource = errors.New("no audio source")

	// ErrNotLoaded is returned by Play and Seek before a successful Load.
	ErrNotLoaded = errors.New("no source loaded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("element closed")
)

// Config selects and tunes a media element.
type Config struct {
	Backend Backend

	// PositionInterval is the period of position updates.
	PositionInterval time.Duration

	// NullDuration is the length the null element reports for every source.
	NullDuration time.Duration

	// HTTPClient fetches remote sources for the beep backend.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendNull
	}
	if c.PositionInterval <= 0 {
		c.PositionInterval = defaultPositionInterval
	}
	if c.NullDuration <= 0 {
		c.NullDuration = defaultNullDuration
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

// New creates the element for cfg.Backend together with the routing fabric
// that shapes its output.
func New(cfg Config, logger zerolog.Logger) (playback.Element, routing.Fabric, error) {
	cfg = cfg.withDefaults()
	mixer := routing.NewMixer()

	switch cfg.Backend {
	case BackendNull:
		return NewNullElement(cfg, logger), mixer, nil
	case BackendBeep:
		if !BeepAvailable {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, cfg.Backend)
		}
		el, err := NewBeepElement(cfg, mixer, logger)
		if err != nil {
			return nil, nil, err
		}
		return el, mixer, nil
	case BackendMPV:
		if !MPVAvailable {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, cfg.Backend)
		}
		el, err := NewMPVElement(cfg, mixer, logger)
		if err != nil {
			return nil, nil, err
		}
		return el, mixer, nil
	default:
		return nil, nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
