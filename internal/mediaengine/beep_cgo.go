/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build (linux && cgo) || windows || darwin

package mediaengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/routing"
)

// BeepAvailable indicates whether the beep backend is compiled in.
const BeepAvailable = true

const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// BeepElement decodes sources with beep and plays them on the local
// speaker. Every frame passes through the routing mixer.
type BeepElement struct {
	mu sync.Mutex

	cfg    Config
	mixer  *routing.Mixer
	logger zerolog.Logger
	notes  *playback.Notifier

	session  string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	gen      uint64
	closed   bool

	stop chan struct{}
}

// NewBeepElement opens the speaker and starts the position ticker.
func NewBeepElement(cfg Config, mixer *routing.Mixer, logger zerolog.Logger) (*BeepElement, error) {
	cfg = cfg.withDefaults()
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	b := &BeepElement{
		cfg:    cfg,
		mixer:  mixer,
		logger: logger.With().Str("component", "beep_element").Logger(),
		notes:  playback.NewNotifier(notificationBuffer),
		stop:   make(chan struct{}),
	}
	go b.tick()
	return b, nil
}

// Load implements playback.Element. The source is decoded and queued on
// the speaker paused.
func (b *BeepElement) Load(ctx context.Context, src, session string) error {
	if src == "" {
		return ErrNoSource
	}
	data, format, err := openSource(ctx, b.cfg.HTTPClient, src)
	if err != nil {
		return err
	}
	streamer, sf, err := decode(data, format)
	if err != nil {
		return fmt.Errorf("decode %s: %w", format, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		_ = streamer.Close()
		return ErrClosed
	}
	b.stopLocked()

	b.gen++
	gen := b.gen
	b.session = session
	b.streamer = streamer
	b.format = sf
	b.ctrl = &beep.Ctrl{
		Streamer: &routedStreamer{Streamer: beep.Resample(4, sf.SampleRate, speakerRate, streamer), mixer: b.mixer},
		Paused:   true,
	}
	length := sf.SampleRate.D(streamer.Len()).Seconds()

	speaker.Play(beep.Seq(b.ctrl, beep.Callback(func() {
		go b.finished(gen)
	})))

	b.logger.Debug().Str("src", src).Str("format", string(format)).Float64("duration", length).Msg("source loaded")
	go b.notes.Send(playback.MetadataLoaded(session, length))
	return nil
}

func decode(src memSource, format Format) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case FormatMP3:
		return mp3.Decode(src)
	case FormatWAV:
		return wav.Decode(src)
	case FormatFLAC:
		return flac.Decode(src)
	case FormatVorbis:
		return vorbis.Decode(src)
	}
	return nil, beep.Format{}, ErrUnsupportedFormat
}

// finished runs after the speaker drained load generation gen.
func (b *BeepElement) finished(gen uint64) {
	b.mu.Lock()
	if b.gen != gen || b.streamer == nil {
		b.mu.Unlock()
		return
	}
	session := b.session
	elapsed := b.positionLocked()
	if err := b.streamer.Err(); err != nil {
		b.mu.Unlock()
		b.notes.Send(playback.Failed(session, err))
		return
	}
	b.mu.Unlock()
	b.notes.Send(playback.Ended(session, elapsed))
}

// Play implements playback.Element.
func (b *BeepElement) Play(context.Context) error {
	return b.setPaused(false)
}

// Pause implements playback.Element.
func (b *BeepElement) Pause() error {
	return b.setPaused(true)
}

func (b *BeepElement) setPaused(paused bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl == nil {
		if paused {
			return nil
		}
		return ErrNotLoaded
	}
	speaker.Lock()
	b.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

// Stop implements playback.Element.
func (b *BeepElement) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	return nil
}

// stopLocked must be called with b.mu held.
func (b *BeepElement) stopLocked() {
	b.gen++
	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = true
		speaker.Unlock()
	}
	speaker.Clear()
	if b.streamer != nil {
		_ = b.streamer.Close()
		b.streamer = nil
	}
	b.ctrl = nil
}

// Seek implements playback.Element.
func (b *BeepElement) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return ErrNotLoaded
	}
	samples := b.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	samples = min(max(samples, 0), b.streamer.Len()-1)

	speaker.Lock()
	defer speaker.Unlock()
	return b.streamer.Seek(samples)
}

// Position implements playback.Element.
func (b *BeepElement) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positionLocked()
}

func (b *BeepElement) positionLocked() float64 {
	if b.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos).Seconds()
}

// Duration implements playback.Element.
func (b *BeepElement) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len()).Seconds()
}

// Loaded implements playback.Element.
func (b *BeepElement) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamer != nil
}

// Notifications implements playback.Element.
func (b *BeepElement) Notifications() <-chan playback.Notification {
	return b.notes.C()
}

// Close implements playback.Element.
func (b *BeepElement) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopLocked()
	close(b.stop)
	b.mu.Unlock()
	b.notes.Close()
	return nil
}

func (b *BeepElement) tick() {
	ticker := time.NewTicker(b.cfg.PositionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		if b.streamer == nil || b.ctrl == nil {
			b.mu.Unlock()
			continue
		}
		speaker.Lock()
		paused := b.ctrl.Paused
		speaker.Unlock()
		session := b.session
		pos := b.positionLocked()
		length := b.format.SampleRate.D(b.streamer.Len()).Seconds()
		b.mu.Unlock()

		if !paused {
			b.notes.Send(playback.PositionUpdate(session, pos, length))
		}
	}
}

// routedStreamer applies the routing matrix to every buffer it yields.
type routedStreamer struct {
	beep.Streamer
	mixer *routing.Mixer
}

func (r *routedStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := r.Streamer.Stream(samples)
	r.mixer.Process(samples[:n])
	return n, ok
}
