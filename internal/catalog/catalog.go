/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog fetches track descriptors from the library service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/godspeed/internal/cache"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/telemetry"
)

// DefaultWaveform is used when a track has no rendered waveform.
const DefaultWaveform = "/waveforms/default.webp"

var (
	// ErrNotFound is returned when the catalog has no such track, album or playlist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrEmptyID is returned for blank identifiers.
	ErrEmptyID = errors.New("catalog: empty id")
)

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: unexpected status %d: %s", e.Status, e.Body)
}

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache
	logger  zerolog.Logger
}

// NewClient creates a catalog client. A nil cache disables caching.
func NewClient(baseURL string, httpClient *http.Client, c *cache.Cache, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger = logger.With().Str("component", "catalog").Logger()
	if c == nil {
		c = cache.Disabled(logger)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   c,
		logger:  logger,
	}
}

// Invalidate drops the cached answer for one lookup so the next request
// goes to the catalog.
func (c *Client) Invalidate(ctx context.Context, kind cache.Kind, id string) error {
	c.logger.Debug().Str("kind", string(kind)).Str("id", id).Msg("invalidating cached lookup")
	return c.cache.Invalidate(ctx, kind, id)
}

// FlushCache drops every cached catalog answer.
func (c *Client) FlushCache(ctx context.Context) error {
	return c.cache.FlushAll(ctx)
}

// Track returns a single track, ungrouped.
func (c *Client) Track(ctx context.Context, id string) ([]*models.TrackDescriptor, error) {
	return c.lookup(ctx, cache.KindTrack, id, func(ctx context.Context) ([]row, error) {
		var r row
		if err := c.getJSON(ctx, "/godspeed/tracks", url.Values{"track_id": {id}}, &r); err != nil {
			return nil, err
		}
		return []row{r}, nil
	})
}

// AlbumTracks returns an album's tracks sharing one fresh group.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]*models.TrackDescriptor, error) {
	tracks, err := c.lookup(ctx, cache.KindAlbum, albumID, func(ctx context.Context) ([]row, error) {
		var rows []row
		if err := c.getJSON(ctx, "/godspeed/tracks", url.Values{"album_id": {albumID}}, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return Grouped(tracks, NewGroupID()), nil
}

// PlaylistTracks returns a playlist's tracks in playlist order, sharing one
// fresh group.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]*models.TrackDescriptor, error) {
	tracks, err := c.lookup(ctx, cache.KindPlaylist, playlistID, func(ctx context.Context) ([]row, error) {
		var p struct {
			Tracks []row `json:"tracks"`
		}
		if err := c.getJSON(ctx, "/godspeed/playlists/"+url.PathEscape(playlistID), nil, &p); err != nil {
			return nil, err
		}
		return p.Tracks, nil
	})
	if err != nil {
		return nil, err
	}
	return Grouped(tracks, NewGroupID()), nil
}

// NewGroupID returns an identifier for one "play this album" batch.
func NewGroupID() string {
	return uuid.NewString()
}

// Grouped returns copies of tracks stamped with groupID.
func Grouped(tracks []*models.TrackDescriptor, groupID string) []*models.TrackDescriptor {
	return lo.Map(tracks, func(t *models.TrackDescriptor, _ int) *models.TrackDescriptor {
		cp := *t
		cp.GroupID = groupID
		return &cp
	})
}

func (c *Client) lookup(ctx context.Context, kind cache.Kind, id string, fetch func(context.Context) ([]row, error)) ([]*models.TrackDescriptor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopeCatalog, "catalog."+string(kind),
		attribute.String("catalog.id", id))
	defer span.End()

	if tracks, ok := c.cache.GetTracks(ctx, kind, id); ok {
		telemetry.CatalogCacheHits.Inc()
		telemetry.CatalogRequests.WithLabelValues(string(kind), "cache").Inc()
		return tracks, nil
	}

	rows, err := fetch(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.CatalogRequests.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("fetch %s %s: %w", kind, id, err)
	}
	telemetry.CatalogRequests.WithLabelValues(string(kind), "ok").Inc()

	tracks := lo.Map(rows, func(r row, _ int) *models.TrackDescriptor { return r.descriptor() })
	if err := c.cache.SetTracks(ctx, kind, id, tracks); err != nil {
		c.logger.Debug().Err(err).Str("kind", string(kind)).Str("id", id).Msg("cache store failed")
	}

	c.logger.Debug().Str("kind", string(kind)).Str("id", id).Int("tracks", len(tracks)).Msg("catalog lookup")
	return tracks, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// row is a track as the catalog returns it.
type row struct {
	ID           flexString `json:"id"`
	Title        string     `json:"title"`
	AlbumID      flexString `json:"album_id"`
	Album        string     `json:"album"`
	Artist       string     `json:"artist"`
	AlbumArtist  string     `json:"album_artist"`
	Year         flexString `json:"year"`
	Duration     *float64   `json:"duration"`
	Codec        string     `json:"codec"`
	Bitrate      *int       `json:"bitrate"`
	FileSize     *int64     `json:"file_size"`
	WaveformPath string     `json:"waveform_path"`
	CustomTitle  string     `json:"custom_title"`
}

func (r row) descriptor() *models.TrackDescriptor {
	d := &models.TrackDescriptor{
		ID:            string(r.ID),
		Title:         lo.CoalesceOrEmpty(r.CustomTitle, r.Title),
		Artist:        lo.CoalesceOrEmpty(r.AlbumArtist, r.Artist),
		Album:         r.Album,
		Year:          string(r.Year),
		Duration:      r.Duration,
		Codec:         r.Codec,
		Bitrate:       r.Bitrate,
		FileSize:      r.FileSize,
		WaveformImage: lo.CoalesceOrEmpty(r.WaveformPath, DefaultWaveform),
	}
	if d.ID != "" {
		d.AudioSrc = "/godspeed/track/" + url.PathEscape(d.ID) + "/play"
	}
	if r.AlbumID != "" {
		d.AlbumCover = "/godspeed/album/" + url.PathEscape(string(r.AlbumID)) + "/cover"
	}
	return d
}
