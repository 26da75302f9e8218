/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package track

import (
	"errors"
	"testing"

	"github.com/samber/lo"

	"github.com/friendsincode/godspeed/internal/models"
)

func TestNormalize_Defaults(t *testing.T) {
	entry, err := Normalize(&models.TrackDescriptor{AudioSrc: "/music/a.mp3"}, Options{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	checks := map[string]string{
		"title":    entry.Title,
		"artist":   entry.Artist,
		"album":    entry.Album,
		"year":     entry.Year,
		"codec":    entry.Codec,
		"cover":    entry.AlbumCover,
		"waveform": entry.WaveformImage,
		"id":       entry.ID,
		"uid":      entry.QueueUID,
	}
	for field, got := range checks {
		if got == "" {
			t.Errorf("%s is empty", field)
		}
	}
	if entry.Title != UnknownTitle || entry.Artist != UnknownArtist || entry.Year != UnknownYear {
		t.Errorf("unexpected defaults: %+v", entry)
	}
	if entry.Duration != 0 || entry.Bitrate != 0 || entry.FileSize != 0 {
		t.Errorf("numeric defaults should be zero: %+v", entry)
	}
}

func TestNormalize_NilInput(t *testing.T) {
	if _, err := Normalize(nil, Options{}); !errors.Is(err, ErrNilTrack) {
		t.Fatalf("Normalize(nil) error = %v, want ErrNilTrack", err)
	}
}

func TestNormalize_GroupFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opt   string
		want  string
	}{
		{name: "input wins", input: "album-1", opt: "batch", want: "album-1"},
		{name: "option fallback", input: "", opt: "batch", want: "batch"},
		{name: "no group", input: "", opt: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := Normalize(&models.TrackDescriptor{AudioSrc: "x", GroupID: tt.input}, Options{GroupID: tt.opt})
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if entry.GroupID != tt.want {
				t.Errorf("GroupID = %q, want %q", entry.GroupID, tt.want)
			}
		})
	}
}

func TestNormalize_UniqueUIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		entry, err := Normalize(&models.TrackDescriptor{ID: "same", AudioSrc: "x"}, Options{})
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if seen[entry.QueueUID] {
			t.Fatalf("duplicate queue uid %s", entry.QueueUID)
		}
		seen[entry.QueueUID] = true
	}
}

func TestNormalize_PreservesIdentity(t *testing.T) {
	first, err := Normalize(&models.TrackDescriptor{
		ID:       "42",
		Title:    "Song",
		AudioSrc: "/godspeed/track/42/play",
		Duration: lo.ToPtr(201.5),
		Bitrate:  lo.ToPtr(320),
	}, Options{GroupID: "g"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	again, err := Normalize(FromEntry(first), Options{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if again != first {
		t.Errorf("renormalized entry differs:\n got %+v\nwant %+v", again, first)
	}
}

func TestNormalize_ResolvesRelativeLocators(t *testing.T) {
	entry, err := Normalize(&models.TrackDescriptor{
		AudioSrc:   "/godspeed/track/7/play",
		AlbumCover: "https://cdn.example.com/c.jpg",
	}, Options{BaseURL: "http://catalog.local:3000"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if entry.AudioSrc != "http://catalog.local:3000/godspeed/track/7/play" {
		t.Errorf("AudioSrc = %q", entry.AudioSrc)
	}
	if entry.AlbumCover != "https://cdn.example.com/c.jpg" {
		t.Errorf("AlbumCover = %q", entry.AlbumCover)
	}
	if entry.WaveformImage != "http://catalog.local:3000"+models.DefaultWaveformImage {
		t.Errorf("WaveformImage = %q", entry.WaveformImage)
	}
}

func TestNormalizeAll_DropsInvalid(t *testing.T) {
	in := []*models.TrackDescriptor{
		{ID: "1", AudioSrc: "a"},
		nil,
		{ID: "2"},
		{ID: "3", AudioSrc: "c"},
	}

	out := NormalizeAll(in, Options{})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "1" || out[1].ID != "3" {
		t.Errorf("unexpected ids: %s, %s", out[0].ID, out[1].ID)
	}
}
