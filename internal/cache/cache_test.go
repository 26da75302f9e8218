/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/models"
)

func TestKey(t *testing.T) {
	tests := []struct {
		kind Kind
		id   string
		want string
	}{
		{KindTrack, "7", "godspeed:cache:track:7"},
		{KindAlbum, "12", "godspeed:cache:album:12"},
		{KindPlaylist, "abc", "godspeed:cache:playlist:abc"},
	}
	for _, tt := range tests {
		if got := Key(tt.kind, tt.id); got != tt.want {
			t.Errorf("Key(%s, %s) = %q, want %q", tt.kind, tt.id, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"track", "album", "playlist"} {
		kind, err := ParseKind(name)
		if err != nil || string(kind) != name {
			t.Errorf("ParseKind(%q) = %q, %v", name, kind, err)
		}
	}
	if _, err := ParseKind("artist"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(artist) err = %v", err)
	}
}

func TestNew_UnreachableIsDisabled(t *testing.T) {
	c := New(Config{RedisAddr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, zerolog.Nop())
	defer c.Close()

	if c.IsAvailable() {
		t.Fatal("expected cache to be disabled")
	}
	ctx := context.Background()
	if err := c.SetTracks(ctx, KindAlbum, "1", []*models.TrackDescriptor{{ID: "1"}}); err != nil {
		t.Errorf("SetTracks on disabled cache: %v", err)
	}
	if _, ok := c.GetTracks(ctx, KindAlbum, "1"); ok {
		t.Error("disabled cache reported a hit")
	}
	if err := c.Invalidate(ctx, KindAlbum, "1"); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if err := c.FlushAll(ctx); err != nil {
		t.Errorf("FlushAll: %v", err)
	}
}

func TestDisabled(t *testing.T) {
	c := Disabled(zerolog.Nop())
	if c.IsAvailable() {
		t.Fatal("expected disabled cache")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
