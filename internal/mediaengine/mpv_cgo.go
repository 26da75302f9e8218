/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build cgo

package mediaengine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	mpv "github.com/supersonic-app/go-mpv"

	"github.com/friendsincode/godspeed/internal/mediaengine/dsp"
	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/routing"
)

var errSourceNotOpened = errors.New("mpv could not open source")

// MPVAvailable indicates whether the libmpv backend is compiled in.
const MPVAvailable = true

// MPVElement drives a libmpv instance. The routing matrix is applied as an
// audio filter whenever the mixer recomputes it.
type MPVElement struct {
	mu sync.Mutex

	instance *mpv.Mpv
	builder  *dsp.Builder
	logger   zerolog.Logger
	notes    *playback.Notifier

	session   string
	loaded    bool
	replacing bool
	started   bool
	closed    bool

	done chan struct{}
}

// NewMPVElement creates and initializes libmpv without video output.
func NewMPVElement(cfg Config, mixer *routing.Mixer, logger zerolog.Logger) (*MPVElement, error) {
	cfg = cfg.withDefaults()

	instance := mpv.Create()
	for _, opt := range [][2]string{
		{"audio-display", "no"},
		{"video", "no"},
		{"idle", "yes"},
		{"keep-open", "no"},
	} {
		if err := instance.SetOptionString(opt[0], opt[1]); err != nil {
			instance.TerminateDestroy()
			return nil, fmt.Errorf("set mpv option %s: %w", opt[0], err)
		}
	}
	if err := instance.Initialize(); err != nil {
		instance.TerminateDestroy()
		return nil, fmt.Errorf("initialize mpv: %w", err)
	}

	m := &MPVElement{
		instance: instance,
		builder:  dsp.NewBuilder(logger),
		logger:   logger.With().Str("component", "mpv_element").Logger(),
		notes:    playback.NewNotifier(notificationBuffer),
		done:     make(chan struct{}),
	}
	if err := instance.ObserveProperty(0, "playback-time", mpv.FORMAT_DOUBLE); err != nil {
		m.logger.Warn().Err(err).Msg("observe playback-time failed")
	}
	if err := instance.ObserveProperty(0, "duration", mpv.FORMAT_DOUBLE); err != nil {
		m.logger.Warn().Err(err).Msg("observe duration failed")
	}

	mixer.OnChange(m.applyMatrix)
	m.applyMatrix(mixer.Matrix())

	go m.eventLoop()
	return m, nil
}

func (m *MPVElement) applyMatrix(mat routing.Matrix) {
	graph, err := m.builder.Build("mpv", mat)
	if err != nil {
		m.logger.Error().Err(err).Msg("build audio filter failed")
		return
	}
	if err := m.instance.Command([]string{"af", "set", graph.Filter}); err != nil {
		m.logger.Error().Err(err).Str("filter", graph.Filter).Msg("apply audio filter failed")
	}
}

// Load implements playback.Element. The file starts paused.
func (m *MPVElement) Load(_ context.Context, src, session string) error {
	if src == "" {
		return ErrNoSource
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if err := m.instance.SetProperty("pause", mpv.FORMAT_FLAG, true); err != nil {
		m.logger.Debug().Err(err).Msg("pause before load failed")
	}
	m.replacing = m.loaded
	if err := m.instance.Command([]string{"loadfile", src, "replace"}); err != nil {
		m.loaded = false
		return fmt.Errorf("loadfile: %w", err)
	}
	m.session = session
	m.loaded = true
	m.started = false
	return nil
}

// Play implements playback.Element.
func (m *MPVElement) Play(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	return m.instance.SetProperty("pause", mpv.FORMAT_FLAG, false)
}

// Pause implements playback.Element.
func (m *MPVElement) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil
	}
	return m.instance.SetProperty("pause", mpv.FORMAT_FLAG, true)
}

// Stop implements playback.Element.
func (m *MPVElement) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	m.session = ""
	return m.instance.Command([]string{"stop"})
}

// Seek implements playback.Element.
func (m *MPVElement) Seek(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	return m.instance.Command([]string{"seek", strconv.FormatFloat(seconds, 'f', 3, 64), "absolute"})
}

// Position implements playback.Element.
func (m *MPVElement) Position() float64 {
	return m.propertyDouble("playback-time")
}

// Duration implements playback.Element.
func (m *MPVElement) Duration() float64 {
	return m.propertyDouble("duration")
}

func (m *MPVElement) propertyDouble(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return 0
	}
	value, err := m.instance.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil || value == nil {
		return 0
	}
	v, _ := value.(float64)
	return v
}

// Loaded implements playback.Element.
func (m *MPVElement) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Notifications implements playback.Element.
func (m *MPVElement) Notifications() <-chan playback.Notification {
	return m.notes.C()
}

// Close implements playback.Element.
func (m *MPVElement) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.loaded = false
	m.mu.Unlock()

	<-m.done
	m.notes.Close()
	m.instance.TerminateDestroy()
	return nil
}

// eventLoop translates libmpv events into notifications until Close.
func (m *MPVElement) eventLoop() {
	defer close(m.done)

	for {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}

		evt := m.instance.WaitEvent(1)
		if evt == nil {
			continue
		}

		switch evt.Event_Id {
		case mpv.EVENT_START_FILE:
			m.mu.Lock()
			m.replacing = false
			m.mu.Unlock()
		case mpv.EVENT_FILE_LOADED:
			m.mu.Lock()
			m.started = true
			session := m.session
			m.mu.Unlock()
			m.notes.Send(playback.MetadataLoaded(session, m.Duration()))
		case mpv.EVENT_PROPERTY_CHANGE:
			m.mu.Lock()
			session, loaded := m.session, m.loaded
			m.mu.Unlock()
			if !loaded {
				continue
			}
			m.notes.Send(playback.PositionUpdate(session, m.Position(), m.Duration()))
		case mpv.EVENT_END_FILE:
			m.mu.Lock()
			session, loaded, replacing, started := m.session, m.loaded, m.replacing, m.started
			if loaded && !replacing {
				m.loaded = false
			}
			m.mu.Unlock()
			if !loaded || replacing {
				continue
			}
			if !started {
				m.notes.Send(playback.Failed(session, errSourceNotOpened))
				continue
			}
			m.notes.Send(playback.Ended(session, 0))
		}
	}
}
