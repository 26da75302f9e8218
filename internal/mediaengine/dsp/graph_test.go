/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dsp

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/routing"
)

func TestBuild(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	tests := []struct {
		name   string
		matrix routing.Matrix
		want   string
		silent bool
	}{
		{
			name:   "identity",
			matrix: routing.Matrix{{1, 0}, {0, 1}},
			want:   "lavfi=[pan=stereo|c0=1.0000*c0+0.0000*c1|c1=0.0000*c0+1.0000*c1]",
		},
		{
			name:   "pan right",
			matrix: routing.Matrix{{0.5, 0}, {0.5, 1}},
			want:   "lavfi=[pan=stereo|c0=0.5000*c0+0.0000*c1|c1=0.5000*c0+1.0000*c1]",
		},
		{
			name:   "unwired",
			matrix: routing.Matrix{},
			want:   "lavfi=[pan=stereo|c0=0.0000*c0+0.0000*c1|c1=0.0000*c0+0.0000*c1]",
			silent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := b.Build("test", tt.matrix)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if g.Filter != tt.want {
				t.Errorf("filter = %q, want %q", g.Filter, tt.want)
			}
			if g.Silent != tt.silent {
				t.Errorf("silent = %v, want %v", g.Silent, tt.silent)
			}
		})
	}
}

func TestBuildRejectsBadCoefficients(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	for _, m := range []routing.Matrix{
		{{math.NaN(), 0}, {0, 1}},
		{{1, 0}, {0, math.Inf(1)}},
		{{-0.1, 0}, {0, 1}},
	} {
		if _, err := b.Build("bad", m); err == nil {
			t.Errorf("expected error for %v", m)
		}
	}
}
