/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/catalog"
	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/logbuffer"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/queue"
	"github.com/friendsincode/godspeed/internal/routing"
	"github.com/friendsincode/godspeed/internal/track"
)

// Catalog resolves album and playlist ids to descriptors.
type Catalog interface {
	Track(ctx context.Context, id string) ([]*models.TrackDescriptor, error)
	AlbumTracks(ctx context.Context, albumID string) ([]*models.TrackDescriptor, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]*models.TrackDescriptor, error)
}

// EventSource is the subscription side of the event bus.
type EventSource interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// API exposes HTTP handlers.
type API struct {
	engine  *playback.Engine
	catalog Catalog
	bus     EventSource
	logs    *logbuffer.Buffer
	logger  zerolog.Logger
}

// New creates the API router wrapper. catalog may be nil, in which case
// album and playlist requests are rejected.
func New(engine *playback.Engine, catalog Catalog, bus EventSource, logger zerolog.Logger) *API {
	return &API{
		engine:  engine,
		catalog: catalog,
		bus:     bus,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// WithLogs exposes buf on /api/v1/logs.
func (a *API) WithLogs(buf *logbuffer.Buffer) *API {
	a.logs = buf
	return a
}

// Routes registers all endpoints under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/state", a.handleState)
		r.Get("/logs", a.handleLogs)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", a.handleQueueGet)
			r.Delete("/", a.handleQueueClear)
			r.Post("/play", a.handleQueuePlay)
			r.Post("/next", a.handleQueueNext)
			r.Post("/later", a.handleQueueLater)
			r.Post("/reorder", a.handleQueueReorder)
			r.Post("/jump/{index}", a.handleQueueJump)
			r.Delete("/{queueUID}", a.handleQueueRemove)
		})

		r.Route("/player", func(r chi.Router) {
			r.Post("/toggle", a.handlePlayerToggle)
			r.Post("/skip", a.handlePlayerSkip)
			r.Post("/previous", a.handlePlayerPrevious)
			r.Post("/seek", a.handlePlayerSeek)
		})

		r.Route("/catalog/cache", func(r chi.Router) {
			r.Delete("/", a.handleCacheFlush)
			r.Delete("/{kind}/{id}", a.handleCacheInvalidate)
		})

		r.Route("/mix", func(r chi.Router) {
			r.Get("/", a.handleMixGet)
			r.Put("/", a.handleMixPut)
			r.Post("/mono", a.handleMixMono)
			r.Post("/mute", a.handleMixMute)
			r.Post("/replaygain", a.handleMixReplayGain)
		})
	})

	r.Get("/ws", a.handleEvents)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": string(a.engine.State())})
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

// writeEngineError maps engine and collaborator errors onto HTTP statuses.
func (a *API) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var loadErr *playback.LoadError
	var statusErr *catalog.StatusError

	switch {
	case errors.As(err, &loadErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":    "load_failed",
			"queueUid": loadErr.QueueUID,
			"src":      loadErr.Src,
		})
		return
	case errors.Is(err, playback.ErrEmptyQueue):
		writeError(w, http.StatusUnprocessableEntity, "empty_queue")
		return
	case errors.Is(err, track.ErrMissingSource), errors.Is(err, track.ErrNilTrack):
		writeError(w, http.StatusUnprocessableEntity, "invalid_track")
		return
	case errors.Is(err, playback.ErrNotInitialized), errors.Is(err, playback.ErrDisposed):
		writeError(w, http.StatusServiceUnavailable, "engine_unavailable")
		return
	case errors.Is(err, playback.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
		return
	case errors.Is(err, queue.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "entry_not_found")
		return
	case errors.Is(err, queue.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	case errors.Is(err, queue.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index_out_of_range")
		return
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "catalog_not_found")
		return
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, "catalog_error")
		return
	case errors.Is(err, routing.ErrInvalidTopology):
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("routing failure")
		writeError(w, http.StatusInternalServerError, "routing_failed")
		return
	}

	a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error")
}

func decodeJSON(r *http.Request, dest any) error {
	return json.NewDecoder(r.Body).Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
