/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlog delivers counted plays to the logging collaborators.
// Delivery is fire and forget: failures are logged and counted, never
// retried or reported back to the player.
package playlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/telemetry"
)

const (
	defaultQueueSize       = 64
	defaultDeliveryTimeout = 10 * time.Second
)

// Sink is one destination for play records.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, record models.PlayRecord) error
}

// MultiSink fans a record out to every sink and joins their errors.
type MultiSink []Sink

// Name implements Sink.
func (MultiSink) Name() string { return "multi" }

// Deliver implements Sink.
func (m MultiSink) Deliver(ctx context.Context, record models.PlayRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Deliver(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options tune a Dispatcher.
type Options struct {
	QueueSize       int
	DeliveryTimeout time.Duration
}

// Dispatcher queues records and delivers them from a single worker.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	queue  chan models.PlayRecord
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts a dispatcher delivering to sinks.
func NewDispatcher(opts Options, logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}

	d := &Dispatcher{
		sinks:   sinks,
		timeout: opts.DeliveryTimeout,
		logger:  logger.With().Str("component", "playlog").Logger(),
		queue:   make(chan models.PlayRecord, opts.QueueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// LogPlay queues record without blocking. When the queue is full or the
// dispatcher is closed the record is dropped.
func (d *Dispatcher) LogPlay(_ context.Context, record models.PlayRecord) {
	if record.At.IsZero() {
		record.At = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		telemetry.PlayLogDropped.Inc()
		d.logger.Warn().Str("track_id", record.TrackID).Msg("play dropped, dispatcher closed")
		return
	}
	select {
	case d.queue <- record:
	default:
		telemetry.PlayLogDropped.Inc()
		d.logger.Warn().Str("track_id", record.TrackID).Msg("play dropped, queue full")
	}
}

// Close stops accepting records and waits for queued ones to be delivered.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for record := range d.queue {
		for _, sink := range d.sinks {
			d.deliver(sink, record)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, record models.PlayRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayLog, "playlog.deliver",
		attribute.String("sink", sink.Name()),
		attribute.String("track_id", record.TrackID),
	)
	defer span.End()

	if err := sink.Deliver(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		telemetry.PlayLogDeliveries.WithLabelValues(sink.Name(), "error").Inc()
		d.logger.Error().Err(err).
			Str("sink", sink.Name()).
			Str("track_id", record.TrackID).
			Str("session", record.SessionID).
			Msg("play delivery failed")
		return
	}
	telemetry.PlayLogDeliveries.WithLabelValues(sink.Name(), "ok").Inc()
	d.logger.Debug().Str("sink", sink.Name()).Str("track_id", record.TrackID).Msg("play delivered")
}
