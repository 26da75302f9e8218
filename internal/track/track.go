/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package track turns loosely populated catalog descriptors into queue entries.
package track

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/friendsincode/godspeed/internal/models"
)

// Display defaults for fields the catalog left empty.
const (
	UnknownTitle  = "Unknown Track"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownYear   = "Unknown Year"
	UnknownCodec  = "Unknown"
)

var (
	// ErrNilTrack is returned for a missing descriptor.
	ErrNilTrack = errors.New("track descriptor is nil")

	// ErrMissingSource marks an entry with no playable audio locator.
	ErrMissingSource = errors.New("track has no audio source")
)

// Options tune normalization of a batch.
type Options struct {
	// GroupID is applied to descriptors that do not carry their own.
	GroupID string

	// BaseURL resolves relative locators such as /godspeed/track/7/play.
	BaseURL string

	Logger *zerolog.Logger
}

// Normalize maps a descriptor onto a QueueEntry with every display field
// populated. The descriptor's queue uid is kept when present.
func Normalize(in *models.TrackDescriptor, opts Options) (models.QueueEntry, error) {
	if in == nil {
		return models.QueueEntry{}, ErrNilTrack
	}

	entry := models.QueueEntry{
		ID:            lo.CoalesceOrEmpty(strings.TrimSpace(in.ID), uuid.NewString()),
		QueueUID:      lo.CoalesceOrEmpty(strings.TrimSpace(in.QueueUID), uuid.NewString()),
		Title:         lo.CoalesceOrEmpty(strings.TrimSpace(in.Title), UnknownTitle),
		Artist:        lo.CoalesceOrEmpty(strings.TrimSpace(in.Artist), UnknownArtist),
		Album:         lo.CoalesceOrEmpty(strings.TrimSpace(in.Album), UnknownAlbum),
		Year:          lo.CoalesceOrEmpty(strings.TrimSpace(in.Year), UnknownYear),
		Codec:         lo.CoalesceOrEmpty(strings.TrimSpace(in.Codec), UnknownCodec),
		AudioSrc:      resolve(opts.BaseURL, strings.TrimSpace(in.AudioSrc)),
		AlbumCover:    resolve(opts.BaseURL, lo.CoalesceOrEmpty(strings.TrimSpace(in.AlbumCover), models.DefaultAlbumCover)),
		WaveformImage: resolve(opts.BaseURL, lo.CoalesceOrEmpty(strings.TrimSpace(in.WaveformImage), models.DefaultWaveformImage)),
		GroupID:       lo.CoalesceOrEmpty(in.GroupID, opts.GroupID),
		PlaySingle:    in.PlaySingle,
	}
	if in.Duration != nil && *in.Duration > 0 {
		entry.Duration = *in.Duration
	}
	if in.Bitrate != nil && *in.Bitrate > 0 {
		entry.Bitrate = *in.Bitrate
	}
	if in.FileSize != nil && *in.FileSize > 0 {
		entry.FileSize = *in.FileSize
	}

	return entry, nil
}

// Validate rejects entries that cannot be handed to a media element.
func Validate(entry models.QueueEntry) error {
	if entry.AudioSrc == "" {
		return ErrMissingSource
	}
	return nil
}

// NormalizeAll normalizes a batch, dropping nil descriptors and entries
// without a source.
func NormalizeAll(in []*models.TrackDescriptor, opts Options) []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(in))
	for i, desc := range in {
		entry, err := Normalize(desc, opts)
		if err == nil {
			err = Validate(entry)
		}
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Debug().Err(err).Int("index", i).Msg("dropping invalid track")
			}
			continue
		}
		out = append(out, entry)
	}
	return out
}

// FromEntry converts an entry back into a descriptor. Normalizing the result
// yields the same entry, identity included.
func FromEntry(e models.QueueEntry) *models.TrackDescriptor {
	return &models.TrackDescriptor{
		ID:            e.ID,
		Title:         e.Title,
		Artist:        e.Artist,
		Album:         e.Album,
		Year:          e.Year,
		Duration:      lo.ToPtr(e.Duration),
		AudioSrc:      e.AudioSrc,
		AlbumCover:    e.AlbumCover,
		WaveformImage: e.WaveformImage,
		Codec:         e.Codec,
		Bitrate:       lo.ToPtr(e.Bitrate),
		FileSize:      lo.ToPtr(e.FileSize),
		QueueUID:      e.QueueUID,
		GroupID:       e.GroupID,
		PlaySingle:    e.PlaySingle,
	}
}

func resolve(base, locator string) string {
	if base == "" || locator == "" || !strings.HasPrefix(locator, "/") {
		return locator
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return locator
	}
	ref, err := url.Parse(locator)
	if err != nil {
		return locator
	}
	return baseURL.ResolveReference(ref).String()
}
