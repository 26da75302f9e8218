/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"github.com/friendsincode/godspeed/internal/gain"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/queue"
)

// Snapshot is a consistent copy of everything the UI renders.
type Snapshot struct {
	State        models.PlaybackState `json:"state"`
	Queue        []models.QueueEntry  `json:"queue"`
	Groups       []GroupSummary       `json:"groups"`
	CurrentIndex int                  `json:"currentIndex"`
	Current      *models.QueueEntry   `json:"current,omitempty"`
	SinglePlay   bool                 `json:"singlePlay"`
	IsPlaying    bool                 `json:"isPlaying"`
	Elapsed      float64              `json:"elapsed"`
	Progress     float64              `json:"progress"`
	Duration     float64              `json:"duration"`
	Session      *models.PlaySession  `json:"session,omitempty"`
	Mix          models.MixState      `json:"mix"`
	Weights      gain.Weights         `json:"weights"`
}

// GroupSummary describes one contiguous run of the queue.
type GroupSummary struct {
	Key     queue.GroupKey `json:"key"`
	GroupID string         `json:"groupId,omitempty"`
	Start   int            `json:"start"`
	Size    int            `json:"size"`
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:        e.state,
		Queue:        e.queue.Entries(),
		CurrentIndex: e.queue.CurrentIndex(),
		SinglePlay:   e.queue.SinglePlay(),
		IsPlaying:    e.isPlaying,
		Elapsed:      e.elapsed,
		Progress:     e.progress,
		Duration:     e.duration,
		Mix:          e.mix,
		Weights:      e.weights,
	}
	for _, g := range e.queue.Groups() {
		snap.Groups = append(snap.Groups, GroupSummary{
			Key:     g.Key,
			GroupID: g.GroupID,
			Start:   g.Start,
			Size:    len(g.Entries),
		})
	}
	if cur, ok := e.queue.Current(); ok {
		snap.Current = &cur
	}
	if e.session != nil {
		session := *e.session
		snap.Session = &session
	}
	return snap
}

// State returns the playback state.
func (e *Engine) State() models.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsPlaying reports whether the element is playing.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isPlaying
}
