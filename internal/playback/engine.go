/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playback owns the play queue, the media element and the routing
// graph for one listening session and drives them from user commands and
// element notifications.
package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/gain"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/queue"
	"github.com/friendsincode/godspeed/internal/routing"
	"github.com/friendsincode/godspeed/internal/telemetry"
)

// Minimum listen before a play counts, and the share of the track that
// counts when it is longer.
const (
	CountThresholdSeconds  = 10.0
	CountThresholdFraction = 0.3
)

// PlayLogger receives qualifying plays. LogPlay must not block.
type PlayLogger interface {
	LogPlay(ctx context.Context, record models.PlayRecord)
}

// Publisher fans engine events out to observers.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Options configure an Engine.
type Options struct {
	Element    Element
	Fabric     routing.Fabric
	PlayLogger PlayLogger
	Publisher  Publisher
	Logger     zerolog.Logger
	Mix        models.MixState

	// BaseURL resolves relative audio locators of incoming descriptors.
	BaseURL string
}

// Engine is the playback session controller. Every mutation and every
// element notification is applied under one mutex.
type Engine struct {
	mu sync.Mutex

	element Element
	router  *routing.Controller
	queue   *queue.Store
	plays   PlayLogger
	bus     Publisher
	logger  zerolog.Logger
	baseURL string

	state     models.PlaybackState
	isPlaying bool
	session   *models.PlaySession
	elapsed   float64
	duration  float64
	progress  float64

	mix     models.MixState
	weights gain.Weights

	initialized bool
	disposed    bool
}

// New creates an engine. Call Init before issuing commands.
func New(opts Options) *Engine {
	logger := opts.Logger.With().Str("component", "playback").Logger()
	return &Engine{
		element: opts.Element,
		router:  routing.NewController(opts.Fabric, opts.Logger),
		queue:   queue.NewStore(opts.Logger),
		plays:   opts.PlayLogger,
		bus:     opts.Publisher,
		logger:  logger,
		baseURL: opts.BaseURL,
		state:   models.PlaybackIdle,
		mix:     opts.Mix.Clamped(),
	}
}

// Init wires the routing graph for the initial mix.
func (e *Engine) Init(ctx context.Context) error {
	_, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.init")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}
	if e.initialized {
		return nil
	}

	weights, err := e.router.Init(e.mix)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	e.mix.Mono = e.router.Mono()
	e.weights = weights
	e.initialized = true
	e.logger.Info().Bool("mono", e.mix.Mono).Msg("playback engine initialized")
	return nil
}

// Dispose stops playback, unwires the graph and closes the element.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return nil
	}
	e.disposed = true
	e.session = nil
	e.isPlaying = false

	var errs []error
	if e.element.Loaded() {
		errs = append(errs, e.element.Stop())
	}
	errs = append(errs, e.router.Dispose(), e.element.Close())
	e.logger.Info().Msg("playback engine disposed")
	return errors.Join(errs...)
}

// Run pumps element notifications into Notify until ctx is done or the
// channel closes.
func (e *Engine) Run(ctx context.Context) error {
	notes := e.element.Notifications()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case note, ok := <-notes:
			if !ok {
				return nil
			}
			e.Notify(ctx, note)
		}
	}
}

// Notify applies one element notification. Notifications from a superseded
// session are discarded.
func (e *Engine) Notify(ctx context.Context, note Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return
	}
	if e.session == nil || note.Session != e.session.ID {
		telemetry.StaleNotifications.WithLabelValues(string(note.Kind)).Inc()
		return
	}

	switch note.Kind {
	case KindMetadataLoaded:
		if note.Duration > 0 {
			e.duration = note.Duration
		}
		e.updateProgressLocked()
		e.publishProgressLocked()
	case KindPositionUpdate:
		e.elapsed = note.Elapsed
		if note.Duration > 0 {
			e.duration = note.Duration
		}
		e.updateProgressLocked()
		if !e.session.PlayCounted && e.elapsed >= countThreshold(e.duration) {
			e.countPlayLocked(ctx)
		}
		e.publishProgressLocked()
	case KindEnded:
		if note.Elapsed > 0 {
			e.elapsed = note.Elapsed
		}
		if !e.session.PlayCounted {
			e.countPlayLocked(ctx)
		}
		if err := e.transitionLocked(models.PlaybackEnded); err != nil {
			return
		}
		e.advanceLocked(ctx)
	case KindError:
		telemetry.PlaybackErrors.Inc()
		e.logger.Warn().Err(note.Err).Str("session", note.Session).Msg("media element error, skipping track")
		if err := e.transitionLocked(models.PlaybackError); err != nil {
			return
		}
		e.advanceLocked(ctx)
	default:
		e.logger.Warn().Str("kind", string(note.Kind)).Msg("unknown notification kind")
	}
}

func countThreshold(duration float64) float64 {
	return math.Max(CountThresholdSeconds, CountThresholdFraction*duration)
}

// loadLocked starts a new session for entry. On failure the queue and
// current index are left untouched and a *LoadError is returned.
func (e *Engine) loadLocked(ctx context.Context, entry models.QueueEntry) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.load",
		attribute.String("queue_uid", entry.QueueUID),
		attribute.String("track_id", entry.ID),
	)
	defer span.End()

	if e.element.Loaded() {
		if err := e.element.Pause(); err != nil {
			e.logger.Debug().Err(err).Msg("pause before load failed")
		}
	}

	e.session = &models.PlaySession{
		ID:       uuid.NewString(),
		QueueUID: entry.QueueUID,
		TrackID:  entry.ID,
	}
	e.elapsed = 0
	e.progress = 0
	e.duration = 0
	if entry.Duration > 0 {
		e.duration = entry.Duration
	}
	e.isPlaying = false
	if err := e.transitionLocked(models.PlaybackLoading); err != nil {
		return err
	}

	if err := e.element.Load(ctx, entry.AudioSrc, e.session.ID); err != nil {
		loadErr := &LoadError{QueueUID: entry.QueueUID, Src: entry.AudioSrc, Err: err}
		e.failLoadLocked(loadErr, models.PlaybackIdle)
		e.session = nil
		telemetry.RecordError(span, loadErr)
		return loadErr
	}
	if err := e.element.Play(ctx); err != nil {
		loadErr := &LoadError{QueueUID: entry.QueueUID, Src: entry.AudioSrc, Err: err}
		e.failLoadLocked(loadErr, models.PlaybackPaused)
		telemetry.RecordError(span, loadErr)
		return loadErr
	}

	e.isPlaying = true
	_ = e.transitionLocked(models.PlaybackPlaying)
	e.logger.Info().
		Str("queue_uid", entry.QueueUID).
		Str("track_id", entry.ID).
		Str("session", e.session.ID).
		Msg("track loaded")
	e.publish(events.EventTrackLoaded, events.Payload{
		"queue_uid":     entry.QueueUID,
		"track_id":      entry.ID,
		"title":         entry.Title,
		"artist":        entry.Artist,
		"session_id":    e.session.ID,
		"current_index": e.queue.CurrentIndex(),
	})
	return nil
}

func (e *Engine) failLoadLocked(err *LoadError, to models.PlaybackState) {
	telemetry.LoadFailures.Inc()
	e.isPlaying = false
	_ = e.transitionLocked(to)
	e.logger.Warn().Err(err.Err).Str("queue_uid", err.QueueUID).Str("src", err.Src).Msg("load failed")
	e.publish(events.EventLoadFailed, events.Payload{
		"queue_uid": err.QueueUID,
		"error":     err.Err.Error(),
	})
}

// advanceLocked consumes the current entry and loads the next one, or goes
// idle when nothing is left.
func (e *Engine) advanceLocked(ctx context.Context) {
	adv := e.queue.Advance()
	e.publishQueueLocked()

	if !adv.HasNext {
		e.idleLocked()
		if adv.Destroyed {
			e.logger.Debug().Msg("queue exhausted")
		}
		return
	}
	if adv.Looped {
		e.logger.Debug().Int("remaining", e.queue.Len()).Msg("queue looped")
	}
	if err := e.loadLocked(ctx, adv.Next); err != nil {
		e.logger.Debug().Err(err).Msg("advance load failed")
	}
}

// idleLocked stops the element and drops the session.
func (e *Engine) idleLocked() {
	if e.element.Loaded() {
		if err := e.element.Stop(); err != nil {
			e.logger.Debug().Err(err).Msg("stop failed")
		}
	}
	e.session = nil
	e.isPlaying = false
	e.elapsed = 0
	e.progress = 0
	e.duration = 0
	_ = e.transitionLocked(models.PlaybackIdle)
}

func (e *Engine) countPlayLocked(ctx context.Context) {
	e.session.PlayCounted = true

	source := models.PlaySourceQueue
	if e.queue.SinglePlay() {
		source = models.PlaySourceSingle
	}
	if cur, ok := e.queue.Current(); ok && cur.PlaySingle {
		source = models.PlaySourceSingle
	}
	record := models.PlayRecord{
		TrackID:   e.session.TrackID,
		SessionID: e.session.ID,
		Source:    source,
		At:        time.Now().UTC(),
	}
	telemetry.PlaysCounted.WithLabelValues(string(source)).Inc()
	e.logger.Debug().
		Str("track_id", record.TrackID).
		Str("session", record.SessionID).
		Float64("elapsed", e.elapsed).
		Msg("play counted")
	if e.plays != nil {
		e.plays.LogPlay(context.WithoutCancel(ctx), record)
	}
	e.publish(events.EventPlayLogged, events.Payload{
		"track_id":   record.TrackID,
		"session_id": record.SessionID,
		"source":     string(record.Source),
	})
}

func (e *Engine) updateProgressLocked() {
	if e.duration <= 0 {
		e.progress = 0
		return
	}
	e.progress = math.Min(1, math.Max(0, e.elapsed/e.duration))
}

func (e *Engine) publishProgressLocked() {
	e.publish(events.EventProgress, events.Payload{
		"elapsed":  e.elapsed,
		"duration": e.duration,
		"progress": e.progress,
	})
}

func (e *Engine) publishQueueLocked() {
	telemetry.QueueLength.Set(float64(e.queue.Len()))
	e.publish(events.EventQueueChanged, events.Payload{
		"length":        e.queue.Len(),
		"current_index": e.queue.CurrentIndex(),
	})
}

func (e *Engine) publish(eventType events.EventType, payload events.Payload) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventType, payload)
}

func (e *Engine) readyLocked() error {
	switch {
	case e.disposed:
		return ErrDisposed
	case !e.initialized:
		return ErrNotInitialized
	}
	return nil
}
