/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"fmt"

	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/telemetry"
)

var validTransitions = map[models.PlaybackState][]models.PlaybackState{
	models.PlaybackIdle: {
		models.PlaybackLoading,
	},
	models.PlaybackLoading: {
		models.PlaybackPlaying,
		models.PlaybackPaused,
		models.PlaybackIdle,
		models.PlaybackError,
		models.PlaybackLoading,
	},
	models.PlaybackPlaying: {
		models.PlaybackPaused,
		models.PlaybackEnded,
		models.PlaybackError,
		models.PlaybackLoading,
		models.PlaybackIdle,
	},
	models.PlaybackPaused: {
		models.PlaybackPlaying,
		models.PlaybackEnded,
		models.PlaybackError,
		models.PlaybackLoading,
		models.PlaybackIdle,
	},
	models.PlaybackEnded: {
		models.PlaybackLoading,
		models.PlaybackIdle,
	},
	models.PlaybackError: {
		models.PlaybackLoading,
		models.PlaybackIdle,
	},
}

func isValidTransition(from, to models.PlaybackState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transitionLocked moves the engine to state to. Must hold e.mu.
func (e *Engine) transitionLocked(to models.PlaybackState) error {
	from := e.state
	if from == to {
		return nil
	}
	if !isValidTransition(from, to) {
		e.logger.Warn().Str("from", string(from)).Str("to", string(to)).Msg("rejected state transition")
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	e.state = to
	telemetry.PlaybackTransitions.WithLabelValues(string(from), string(to)).Inc()
	e.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("playback state changed")
	e.publish(events.EventPlaybackState, events.Payload{
		"from":       string(from),
		"to":         string(to),
		"is_playing": e.isPlaying,
	})
	return nil
}
