/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package gain derives routing weights from the mix controls.
package gain

import (
	"math"

	"github.com/friendsincode/godspeed/internal/models"
)

// ReplayGainFactor is the fixed attenuation applied when replay gain is on.
const ReplayGainFactor = 0.5

// Weights holds the gain of every path in the routing graph.
type Weights struct {
	LL float64 `json:"ll"`
	RR float64 `json:"rr"`
	LR float64 `json:"lr"`
	RL float64 `json:"rl"`

	MonoSum float64 `json:"monoSum"`
	MonoL   float64 `json:"monoL"`
	MonoR   float64 `json:"monoR"`
}

// Compute derives the weights for mix. Out of range controls are clamped and
// the weight set for the inactive topology is zero.
func Compute(mix models.MixState) Weights {
	mix = mix.Clamped()

	master := mix.MasterVolume
	if mix.Muted {
		master = 0
	}
	replayGain := 1.0
	if mix.ReplayGainEnabled {
		replayGain = ReplayGainFactor
	}

	if mix.Mono {
		sum := ((mix.BaseLeftVolume + mix.BaseRightVolume) / 2) * master * replayGain
		return Weights{
			MonoSum: sum,
			MonoL:   sum * (1 - math.Max(mix.Pan, 0)) * 0.5,
			MonoR:   sum * (1 + math.Min(mix.Pan, 0)) * 0.5,
		}
	}

	leftAtt := 1.0
	if mix.Pan > 0 {
		leftAtt = 1 - mix.Pan
	}
	rightAtt := 1.0
	if mix.Pan < 0 {
		rightAtt = 1 + mix.Pan
	}

	return Weights{
		LL: mix.BaseLeftVolume * master * leftAtt * replayGain,
		RR: mix.BaseRightVolume * master * rightAtt * replayGain,
		LR: mix.BaseLeftVolume * master * math.Max(mix.Pan, 0) * replayGain,
		RL: mix.BaseRightVolume * master * math.Max(-mix.Pan, 0) * replayGain,
	}
}

// StereoActive reports whether any stereo path carries signal.
func (w Weights) StereoActive() bool {
	return w.LL != 0 || w.RR != 0 || w.LR != 0 || w.RL != 0
}

// MonoActive reports whether any mono bus path carries signal.
func (w Weights) MonoActive() bool {
	return w.MonoSum != 0 || w.MonoL != 0 || w.MonoR != 0
}
