/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"fmt"

	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/gain"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/telemetry"
)

// Mix returns the current mix controls.
func (e *Engine) Mix() models.MixState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mix
}

// SetBaseVolume sets the per-channel base volumes.
func (e *Engine) SetBaseVolume(left, right float64) (gain.Weights, error) {
	return e.updateMix(func(m *models.MixState) {
		m.BaseLeftVolume = left
		m.BaseRightVolume = right
	})
}

// SetMasterVolume sets the master volume.
func (e *Engine) SetMasterVolume(volume float64) (gain.Weights, error) {
	return e.updateMix(func(m *models.MixState) {
		m.MasterVolume = volume
	})
}

// SetPan sets the stereo balance in [-1, 1].
func (e *Engine) SetPan(pan float64) (gain.Weights, error) {
	return e.updateMix(func(m *models.MixState) {
		m.Pan = pan
	})
}

// ToggleMute flips the mute flag.
func (e *Engine) ToggleMute() (gain.Weights, error) {
	return e.updateMix(func(m *models.MixState) {
		m.Muted = !m.Muted
	})
}

// ToggleReplayGain flips replay gain attenuation.
func (e *Engine) ToggleReplayGain() (gain.Weights, error) {
	return e.updateMix(func(m *models.MixState) {
		m.ReplayGainEnabled = !m.ReplayGainEnabled
	})
}

// SetMix replaces every continuous control and flag except mono, which
// needs a topology switch through SetMono.
func (e *Engine) SetMix(mix models.MixState) (gain.Weights, error) {
	return e.updateMix(func(m *models.MixState) {
		mono := m.Mono
		*m = mix
		m.Mono = mono
	})
}

func (e *Engine) updateMix(apply func(*models.MixState)) (gain.Weights, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return gain.Weights{}, err
	}

	next := e.mix
	apply(&next)
	next = next.Clamped()

	weights, err := e.router.Apply(next)
	if err != nil {
		return e.weights, fmt.Errorf("apply mix: %w", err)
	}
	e.mix = next
	e.weights = weights
	e.publishMixLocked()
	return weights, nil
}

// SetMono switches between the stereo and mono topologies. Playback
// continues from the same position.
func (e *Engine) SetMono(ctx context.Context, enabled bool) (gain.Weights, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopePlayback, "engine.set_mono")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return gain.Weights{}, err
	}
	if e.mix.Mono == enabled && e.router.Wired() {
		return e.weights, nil
	}

	loaded := e.session != nil && e.element.Loaded()
	wasPlaying := e.isPlaying
	position := e.elapsed
	if loaded {
		position = e.element.Position()
		if wasPlaying {
			if err := e.element.Pause(); err != nil {
				e.logger.Debug().Err(err).Msg("pause before topology switch failed")
			}
		}
	}

	next := e.mix
	next.Mono = enabled
	weights, switchErr := e.router.SetMono(next)
	e.mix.Mono = e.router.Mono()
	e.weights = e.router.Weights()
	if switchErr == nil {
		e.weights = weights
	} else {
		telemetry.RecordError(span, switchErr)
	}
	e.publishMixLocked()

	if loaded {
		if err := e.element.Seek(position); err != nil {
			e.logger.Warn().Err(err).Float64("position", position).Msg("restore position failed")
		}
		if wasPlaying {
			if err := e.element.Play(ctx); err != nil {
				e.isPlaying = false
				_ = e.transitionLocked(models.PlaybackPaused)
				e.logger.Warn().Err(err).Msg("resume after topology switch failed")
			}
		}
	}
	return e.weights, switchErr
}

func (e *Engine) publishMixLocked() {
	e.publish(events.EventMixChanged, events.Payload{
		"mix":     e.mix,
		"weights": e.weights,
	})
}
