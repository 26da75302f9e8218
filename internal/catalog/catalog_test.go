/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/cache"
	"github.com/friendsincode/godspeed/internal/models"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/godspeed/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Query().Get("track_id") == "7":
			_, _ = w.Write([]byte(`{"id":7,"title":"Song","album_id":3,"album":"Record","artist":"Band","year":1999,"duration":201.5,"codec":"flac","bitrate":900,"file_size":123456,"waveform_path":"/waveforms/7.webp"}`))
		case r.URL.Query().Get("album_id") == "3":
			_, _ = w.Write([]byte(`[{"id":1,"title":"One","album_id":3,"album_artist":"Band"},{"id":2,"title":"Two","album_id":3,"album_artist":null,"artist":"Band"}]`))
		case r.URL.Query().Get("album_id") == "500":
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		default:
			http.Error(w, `{"error":"Track not found"}`, http.StatusNotFound)
		}
	})
	mux.HandleFunc("/godspeed/playlists/9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":9,"name":"Mix","tracks":[{"position":1,"custom_title":"Intro","id":"a","title":"A","album_id":"x"},{"position":2,"id":"b","title":"B"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Track(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())

	tracks, err := c.Track(context.Background(), "7")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	got := tracks[0]
	if got.ID != "7" || got.Year != "1999" {
		t.Errorf("id/year = %q/%q", got.ID, got.Year)
	}
	if got.AudioSrc != "/godspeed/track/7/play" {
		t.Errorf("AudioSrc = %q", got.AudioSrc)
	}
	if got.AlbumCover != "/godspeed/album/3/cover" {
		t.Errorf("AlbumCover = %q", got.AlbumCover)
	}
	if got.WaveformImage != "/waveforms/7.webp" {
		t.Errorf("WaveformImage = %q", got.WaveformImage)
	}
	if got.Duration == nil || *got.Duration != 201.5 {
		t.Errorf("Duration = %v", got.Duration)
	}
	if got.FileSize == nil || *got.FileSize != 123456 {
		t.Errorf("FileSize = %v", got.FileSize)
	}
	if got.GroupID != "" {
		t.Errorf("single track should not be grouped, got %q", got.GroupID)
	}
}

func TestClient_AlbumTracksShareGroup(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())

	first, err := c.AlbumTracks(context.Background(), "3")
	if err != nil {
		t.Fatalf("AlbumTracks: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(first))
	}
	if first[0].GroupID == "" || first[0].GroupID != first[1].GroupID {
		t.Errorf("tracks not sharing a group: %q %q", first[0].GroupID, first[1].GroupID)
	}
	if first[1].Artist != "Band" {
		t.Errorf("Artist fallback = %q", first[1].Artist)
	}
	if first[0].WaveformImage != DefaultWaveform {
		t.Errorf("WaveformImage = %q, want default", first[0].WaveformImage)
	}

	second, err := c.AlbumTracks(context.Background(), "3")
	if err != nil {
		t.Fatalf("AlbumTracks: %v", err)
	}
	if second[0].GroupID == first[0].GroupID {
		t.Error("each batch should get a fresh group id")
	}
}

func TestClient_PlaylistTracks(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(srv.URL+"/", srv.Client(), nil, zerolog.Nop())

	tracks, err := c.PlaylistTracks(context.Background(), "9")
	if err != nil {
		t.Fatalf("PlaylistTracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].Title != "Intro" {
		t.Errorf("custom title not applied: %q", tracks[0].Title)
	}
	if tracks[1].AlbumCover != "" {
		t.Errorf("track without album should have no cover, got %q", tracks[1].AlbumCover)
	}
}

func TestClient_Errors(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())
	ctx := context.Background()

	if _, err := c.Track(ctx, "  "); !errors.Is(err, ErrEmptyID) {
		t.Errorf("blank id: got %v", err)
	}
	if _, err := c.Track(ctx, "404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing track: got %v", err)
	}

	_, err := c.AlbumTracks(ctx, "500")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Errorf("expected StatusError 500, got %v", err)
	}
}

func TestClient_CacheAdminWithoutRedis(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())
	ctx := context.Background()

	if err := c.Invalidate(ctx, cache.KindAlbum, "1"); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if err := c.FlushCache(ctx); err != nil {
		t.Errorf("FlushCache: %v", err)
	}
	if _, err := c.Track(ctx, "7"); err != nil {
		t.Errorf("Track after flush: %v", err)
	}
}

func TestGrouped_CopiesDescriptors(t *testing.T) {
	in := []*models.TrackDescriptor{{ID: "1"}, {ID: "2", GroupID: "old"}}
	out := Grouped(in, "g")
	for i, d := range out {
		if d.GroupID != "g" {
			t.Errorf("out[%d].GroupID = %q", i, d.GroupID)
		}
	}
	if in[0].GroupID != "" || in[1].GroupID != "old" {
		t.Error("Grouped mutated its input")
	}
}
