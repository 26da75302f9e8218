/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"path/filepath"
	"testing"
)

func TestSourceDescriptors(t *testing.T) {
	got := sourceDescriptors([]string{"music/one.flac", " ", "https://example.com/two.mp3"})
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(got))
	}
	if !filepath.IsAbs(got[0].AudioSrc) {
		t.Errorf("local path not made absolute: %q", got[0].AudioSrc)
	}
	if got[0].Title != "one" {
		t.Errorf("title = %q", got[0].Title)
	}
	if got[1].AudioSrc != "https://example.com/two.mp3" || got[1].Title != "https://example.com/two.mp3" {
		t.Errorf("url descriptor = %+v", got[1])
	}
}
