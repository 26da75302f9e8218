/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Placeholder locators used when the catalog omits artwork.
const (
	DefaultAlbumCover    = "/assets/default-cover.png"
	DefaultWaveformImage = "/assets/default-waveform.png"
)

// TrackDescriptor is the loosely populated track record handed over by the
// catalog. Every field is optional.
type TrackDescriptor struct {
	ID            string   `json:"id,omitempty"`
	Title         string   `json:"title,omitempty"`
	Artist        string   `json:"artist,omitempty"`
	Album         string   `json:"album,omitempty"`
	Year          string   `json:"year,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
	AudioSrc      string   `json:"audioSrc,omitempty"`
	AlbumCover    string   `json:"albumCover,omitempty"`
	WaveformImage string   `json:"waveformImage,omitempty"`
	Codec         string   `json:"codec,omitempty"`
	Bitrate       *int     `json:"bitrate,omitempty"`
	FileSize      *int64   `json:"fileSize,omitempty"`
	QueueUID      string   `json:"queueUid,omitempty"`
	GroupID       string   `json:"groupId,omitempty"`
	PlaySingle    bool     `json:"playSingle,omitempty"`
}

// QueueEntry is a normalized, immutable queue item. Entries are replaced
// wholesale, never mutated in place.
type QueueEntry struct {
	ID            string  `json:"id"`
	QueueUID      string  `json:"queueUid"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	Year          string  `json:"year"`
	Duration      float64 `json:"duration"`
	Codec         string  `json:"codec"`
	Bitrate       int     `json:"bitrate"`
	FileSize      int64   `json:"fileSize"`
	AudioSrc      string  `json:"audioSrc"`
	AlbumCover    string  `json:"albumCover"`
	WaveformImage string  `json:"waveformImage"`
	GroupID       string  `json:"groupId,omitempty"`
	PlaySingle    bool    `json:"playSingle,omitempty"`
}

// Grouped reports whether the entry belongs to a contiguous group.
func (e QueueEntry) Grouped() bool {
	return e.GroupID != ""
}

// WithGroup returns a copy of the entry carrying groupID.
func (e QueueEntry) WithGroup(groupID string) QueueEntry {
	e.GroupID = groupID
	return e
}

// PlaySource tells the play log whether a track was queued or played alone.
type PlaySource string

const (
	PlaySourceQueue  PlaySource = "queue"
	PlaySourceSingle PlaySource = "single"
)

// PlayRecord is handed to the play logger once per counted session.
type PlayRecord struct {
	TrackID   string     `json:"track_id"`
	SessionID string     `json:"sessionId"`
	Source    PlaySource `json:"source"`
	At        time.Time  `json:"-"`
}

// Play is a persisted play log row.
type Play struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	TrackID   string    `gorm:"index"`
	SessionID string    `gorm:"type:uuid;uniqueIndex"`
	Source    string    `gorm:"type:varchar(16)"`
	PlayedAt  time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName pins the plays table name.
func (Play) TableName() string {
	return "plays"
}

// TrackPlayCount is the running play total for one track.
type TrackPlayCount struct {
	TrackID      string `gorm:"primaryKey;type:varchar(64)"`
	PlayCount    int64  `gorm:"not null;default:0"`
	LastPlayedAt time.Time
}

// TableName pins the counter table name.
func (TrackPlayCount) TableName() string {
	return "track_play_counts"
}
