/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "math"

// MixState holds the user-facing mix controls.
type MixState struct {
	BaseLeftVolume    float64 `json:"baseLeftVolume" yaml:"base_left_volume"`
	BaseRightVolume   float64 `json:"baseRightVolume" yaml:"base_right_volume"`
	MasterVolume      float64 `json:"masterVolume" yaml:"master_volume"`
	Pan               float64 `json:"pan" yaml:"pan"`
	Mono              bool    `json:"mono" yaml:"mono"`
	Muted             bool    `json:"muted" yaml:"muted"`
	ReplayGainEnabled bool    `json:"replayGainEnabled" yaml:"replay_gain"`
}

// DefaultMix is full volume, centred, stereo.
func DefaultMix() MixState {
	return MixState{
		BaseLeftVolume:  1,
		BaseRightVolume: 1,
		MasterVolume:    1,
	}
}

// Clamped returns a copy with every continuous control forced into range.
func (m MixState) Clamped() MixState {
	m.BaseLeftVolume = clamp(m.BaseLeftVolume, 0, 1)
	m.BaseRightVolume = clamp(m.BaseRightVolume, 0, 1)
	m.MasterVolume = clamp(m.MasterVolume, 0, 1)
	m.Pan = clamp(m.Pan, -1, 1)
	return m
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
