/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/queue"
	"github.com/friendsincode/godspeed/internal/telemetry"
	"github.com/friendsincode/godspeed/internal/track"
)

// PlayQueue replaces the queue with descriptors and starts at startIndex.
// Descriptors without a playable source are dropped. groupID is shared by
// every descriptor that has no group of its own.
func (e *Engine) PlayQueue(ctx context.Context, descriptors []*models.TrackDescriptor, startIndex int, groupID string) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.play_queue",
		attribute.Int("tracks", len(descriptors)),
		attribute.Int("start_index", startIndex),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	entries := track.NormalizeAll(descriptors, e.normalizeOptions(groupID))
	entry, ok := e.queue.Replace(entries, startIndex)
	e.publishQueueLocked()
	if !ok {
		e.idleLocked()
		return ErrEmptyQueue
	}
	return e.loadLocked(ctx, entry)
}

// PlayTrack plays one descriptor. A single-play descriptor replaces the
// queue; otherwise the track is found in the queue by uid or appended.
// Descriptors without a playable source are rejected and leave the queue
// untouched.
func (e *Engine) PlayTrack(ctx context.Context, descriptor *models.TrackDescriptor) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.play_track")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	entry, err := track.Normalize(descriptor, e.normalizeOptions(""))
	if err == nil {
		err = track.Validate(entry)
	}
	if err != nil {
		return err
	}

	if entry.PlaySingle {
		entry = e.queue.ReplaceSingle(entry)
		e.publishQueueLocked()
		return e.loadLocked(ctx, entry)
	}

	idx := e.queue.IndexOf(entry.QueueUID)
	if idx < 0 {
		e.queue.Append(entry)
		idx = e.queue.Len() - 1
	}
	entry, err = e.queue.Jump(idx)
	if err != nil {
		return err
	}
	e.publishQueueLocked()
	return e.loadLocked(ctx, entry)
}

// PlayIndex jumps to the entry at index and plays it.
func (e *Engine) PlayIndex(ctx context.Context, index int) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.play_index",
		attribute.Int("index", index),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	entry, err := e.queue.Jump(index)
	if err != nil {
		return err
	}
	e.publishQueueLocked()
	return e.loadLocked(ctx, entry)
}

// PlayNext inserts descriptors right after the current entry. Playback is
// not affected. It returns the number of entries queued.
func (e *Engine) PlayNext(ctx context.Context, descriptors ...*models.TrackDescriptor) (int, error) {
	return e.enqueue(ctx, "engine.play_next", descriptors, e.queue.InsertAfterCurrent)
}

// PlayLater appends descriptors to the end of the queue.
func (e *Engine) PlayLater(ctx context.Context, descriptors ...*models.TrackDescriptor) (int, error) {
	return e.enqueue(ctx, "engine.play_later", descriptors, e.queue.Append)
}

func (e *Engine) enqueue(ctx context.Context, name string, descriptors []*models.TrackDescriptor, insert func(...models.QueueEntry) int) (int, error) {
	_, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, name,
		attribute.Int("tracks", len(descriptors)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return 0, err
	}

	entries := track.NormalizeAll(descriptors, e.normalizeOptions(""))
	n := insert(entries...)
	if n > 0 {
		e.publishQueueLocked()
	}
	return n, nil
}

// Remove deletes the entry with queueUID. Removing the playing entry stops
// playback and leaves the engine idle; nothing else is started.
func (e *Engine) Remove(ctx context.Context, queueUID string) error {
	_, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.remove",
		attribute.String("queue_uid", queueUID),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	removal, err := e.queue.Remove(queueUID)
	if err != nil {
		return err
	}
	if removal.WasCurrent {
		e.idleLocked()
	}
	e.publishQueueLocked()
	return nil
}

// Reorder applies a drag and drop move. Playback is not affected.
func (e *Engine) Reorder(move queue.Move) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	if err := e.queue.Reorder(move); err != nil {
		return err
	}
	e.publishQueueLocked()
	return nil
}

// ClearQueue stops playback and empties the queue.
func (e *Engine) ClearQueue(ctx context.Context) error {
	_, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.clear_queue")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	e.queue.Clear()
	e.idleLocked()
	e.publishQueueLocked()
	return nil
}

// Skip consumes the current entry without counting it and moves on.
func (e *Engine) Skip(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.skip")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	if _, ok := e.queue.Current(); !ok {
		return ErrEmptyQueue
	}
	e.advanceLocked(ctx)
	if e.queue.CurrentIndex() == queue.NoCurrent {
		return ErrEmptyQueue
	}
	return nil
}

// Previous plays the entry before the current one. At the head of the queue
// the current entry restarts from zero.
func (e *Engine) Previous(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.previous")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	entry, ok := e.queue.Previous()
	if !ok {
		if !e.element.Loaded() {
			return nil
		}
		e.elapsed = 0
		e.updateProgressLocked()
		return e.element.Seek(0)
	}
	e.publishQueueLocked()
	return e.loadLocked(ctx, entry)
}

// TogglePlayPause pauses or resumes the loaded source. It is a no-op when
// nothing is loaded.
func (e *Engine) TogglePlayPause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}
	if e.session == nil || !e.element.Loaded() {
		return nil
	}

	if e.isPlaying {
		if err := e.element.Pause(); err != nil {
			return err
		}
		e.isPlaying = false
		return e.transitionLocked(models.PlaybackPaused)
	}

	if err := e.element.Play(ctx); err != nil {
		e.isPlaying = false
		cur, _ := e.queue.Current()
		loadErr := &LoadError{QueueUID: cur.QueueUID, Src: cur.AudioSrc, Err: err}
		e.failLoadLocked(loadErr, models.PlaybackPaused)
		return loadErr
	}
	e.isPlaying = true
	return e.transitionLocked(models.PlaybackPlaying)
}

// Seek moves to fraction of the duration, clamped to [0, 1]. The session is
// kept. It is a no-op when nothing is loaded.
func (e *Engine) Seek(fraction float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}
	if e.session == nil || !e.element.Loaded() {
		return nil
	}

	if math.IsNaN(fraction) {
		fraction = 0
	}
	fraction = math.Min(1, math.Max(0, fraction))
	duration := e.duration
	if d := e.element.Duration(); d > 0 {
		duration = d
	}
	target := fraction * duration
	if err := e.element.Seek(target); err != nil {
		return err
	}
	e.elapsed = target
	e.updateProgressLocked()
	e.publishProgressLocked()
	return nil
}

func (e *Engine) normalizeOptions(groupID string) track.Options {
	return track.Options{
		GroupID: groupID,
		BaseURL: e.baseURL,
		Logger:  &e.logger,
	}
}
