/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package gain

import (
	"math"
	"testing"

	"github.com/friendsincode/godspeed/internal/models"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		mix  models.MixState
		want Weights
	}{
		{
			name: "centred stereo",
			mix:  models.DefaultMix(),
			want: Weights{LL: 1, RR: 1},
		},
		{
			name: "pan hard right",
			mix:  models.MixState{BaseLeftVolume: 1, BaseRightVolume: 1, MasterVolume: 1, Pan: 1},
			want: Weights{LL: 0, RR: 1, LR: 1, RL: 0},
		},
		{
			name: "pan half left with replay gain",
			mix:  models.MixState{BaseLeftVolume: 1, BaseRightVolume: 0.8, MasterVolume: 1, Pan: -0.5, ReplayGainEnabled: true},
			want: Weights{LL: 0.5, RR: 0.8 * 0.5 * 0.5, LR: 0, RL: 0.8 * 0.5 * 0.5},
		},
		{
			name: "mono centred",
			mix:  models.MixState{BaseLeftVolume: 1, BaseRightVolume: 0.5, MasterVolume: 0.8, Mono: true},
			want: Weights{MonoSum: 0.6, MonoL: 0.3, MonoR: 0.3},
		},
		{
			name: "mono panned right",
			mix:  models.MixState{BaseLeftVolume: 1, BaseRightVolume: 1, MasterVolume: 1, Pan: 0.5, Mono: true},
			want: Weights{MonoSum: 1, MonoL: 0.25, MonoR: 0.5},
		},
		{
			name: "muted",
			mix:  models.MixState{BaseLeftVolume: 1, BaseRightVolume: 1, MasterVolume: 1, Muted: true},
			want: Weights{},
		},
		{
			name: "out of range inputs are clamped",
			mix:  models.MixState{BaseLeftVolume: 3, BaseRightVolume: -1, MasterVolume: 2, Pan: -7},
			want: Weights{LL: 1, RR: 0, LR: 0, RL: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.mix)
			pairs := [][2]float64{
				{got.LL, tt.want.LL}, {got.RR, tt.want.RR}, {got.LR, tt.want.LR}, {got.RL, tt.want.RL},
				{got.MonoSum, tt.want.MonoSum}, {got.MonoL, tt.want.MonoL}, {got.MonoR, tt.want.MonoR},
			}
			for i, p := range pairs {
				if !near(p[0], p[1]) {
					t.Errorf("weight %d = %v, want %v (got %+v)", i, p[0], p[1], got)
				}
			}
		})
	}
}

func TestCompute_InactiveSetIsZero(t *testing.T) {
	for _, pan := range []float64{-1, -0.3, 0, 0.4, 1} {
		for _, mono := range []bool{false, true} {
			for _, rg := range []bool{false, true} {
				mix := models.MixState{BaseLeftVolume: 0.7, BaseRightVolume: 0.9, MasterVolume: 0.6, Pan: pan, Mono: mono, ReplayGainEnabled: rg}
				w := Compute(mix)
				if w.StereoActive() && w.MonoActive() {
					t.Fatalf("both weight sets active for %+v: %+v", mix, w)
				}
				if mono && w.StereoActive() {
					t.Fatalf("stereo leak in mono mode: %+v", w)
				}
				if !mono && w.MonoActive() {
					t.Fatalf("mono leak in stereo mode: %+v", w)
				}

				limit := 1.0
				if rg {
					limit = ReplayGainFactor
				}
				for _, v := range []float64{w.LL, w.RR, w.LR, w.RL, w.MonoSum, w.MonoL, w.MonoR} {
					if v < 0 || v > limit+eps {
						t.Fatalf("weight %v out of [0,%v] for %+v", v, limit, mix)
					}
				}
			}
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	mix := models.MixState{BaseLeftVolume: 0.3, BaseRightVolume: 0.9, MasterVolume: 0.5, Pan: 0.25, ReplayGainEnabled: true}
	if Compute(mix) != Compute(mix) {
		t.Fatal("Compute is not idempotent")
	}
}

func TestCompute_NaNClampsToSilence(t *testing.T) {
	w := Compute(models.MixState{BaseLeftVolume: 1, BaseRightVolume: 1, MasterVolume: math.NaN()})
	if w.StereoActive() {
		t.Fatalf("NaN master volume should clamp to zero, got %+v", w)
	}
}
