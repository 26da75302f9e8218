/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"

	"github.com/friendsincode/godspeed/internal/gain"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/playback"
)

type seekRequest struct {
	Fraction *float64 `json:"fraction"`
}

type mixRequest struct {
	BaseLeftVolume    *float64 `json:"baseLeftVolume"`
	BaseRightVolume   *float64 `json:"baseRightVolume"`
	MasterVolume      *float64 `json:"masterVolume"`
	Pan               *float64 `json:"pan"`
	Muted             *bool    `json:"muted"`
	ReplayGainEnabled *bool    `json:"replayGainEnabled"`
}

func (m mixRequest) apply(mix models.MixState) models.MixState {
	if m.BaseLeftVolume != nil {
		mix.BaseLeftVolume = *m.BaseLeftVolume
	}
	if m.BaseRightVolume != nil {
		mix.BaseRightVolume = *m.BaseRightVolume
	}
	if m.MasterVolume != nil {
		mix.MasterVolume = *m.MasterVolume
	}
	if m.Pan != nil {
		mix.Pan = *m.Pan
	}
	if m.Muted != nil {
		mix.Muted = *m.Muted
	}
	if m.ReplayGainEnabled != nil {
		mix.ReplayGainEnabled = *m.ReplayGainEnabled
	}
	return mix
}

type monoRequest struct {
	Enabled bool `json:"enabled"`
}

type mixResponse struct {
	Mix     models.MixState `json:"mix"`
	Weights gain.Weights    `json:"weights"`
}

func (a *API) handlePlayerToggle(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.TogglePlayPause(r.Context()); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

// Running off the end of the queue is reported as the resulting idle
// snapshot, not as an error.
func (a *API) handlePlayerSkip(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Skip(r.Context()); err != nil && !errors.Is(err, playback.ErrEmptyQueue) {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

func (a *API) handlePlayerPrevious(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Previous(r.Context()); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

func (a *API) handlePlayerSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Fraction == nil {
		writeError(w, http.StatusBadRequest, "fraction_required")
		return
	}
	if err := a.engine.Seek(*req.Fraction); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

func (a *API) handleMixGet(w http.ResponseWriter, r *http.Request) {
	snap := a.engine.Snapshot()
	writeJSON(w, http.StatusOK, mixResponse{Mix: snap.Mix, Weights: snap.Weights})
}

func (a *API) handleMixPut(w http.ResponseWriter, r *http.Request) {
	var req mixRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	weights, err := a.engine.SetMix(req.apply(a.engine.Mix()))
	a.writeMix(w, r, weights, err)
}

func (a *API) handleMixMono(w http.ResponseWriter, r *http.Request) {
	var req monoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	weights, err := a.engine.SetMono(r.Context(), req.Enabled)
	a.writeMix(w, r, weights, err)
}

func (a *API) handleMixMute(w http.ResponseWriter, r *http.Request) {
	weights, err := a.engine.ToggleMute()
	a.writeMix(w, r, weights, err)
}

func (a *API) handleMixReplayGain(w http.ResponseWriter, r *http.Request) {
	weights, err := a.engine.ToggleReplayGain()
	a.writeMix(w, r, weights, err)
}

func (a *API) writeMix(w http.ResponseWriter, r *http.Request, weights gain.Weights, err error) {
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mixResponse{Mix: a.engine.Mix(), Weights: weights})
}
