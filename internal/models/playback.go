/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

// PlaybackState enumerates playback engine states.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackLoading PlaybackState = "loading"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackEnded   PlaybackState = "ended"
	PlaybackError   PlaybackState = "error"
)

// PlaySession is one uninterrupted listen of one queue entry. A new session
// starts on every load, including reloads of the same entry.
type PlaySession struct {
	ID          string `json:"id"`
	QueueUID    string `json:"queueUid"`
	TrackID     string `json:"trackId"`
	PlayCounted bool   `json:"playCounted"`
}
