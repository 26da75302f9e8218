/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/godspeed/internal/cache"
)

// CacheAdmin is implemented by catalogs that cache lookups.
type CacheAdmin interface {
	Invalidate(ctx context.Context, kind cache.Kind, id string) error
	FlushCache(ctx context.Context) error
}

func (a *API) cacheAdmin(w http.ResponseWriter) (CacheAdmin, bool) {
	admin, ok := a.catalog.(CacheAdmin)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable")
		return nil, false
	}
	return admin, true
}

func (a *API) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.cacheAdmin(w)
	if !ok {
		return
	}
	if err := admin.FlushCache(r.Context()); err != nil {
		a.logger.Error().Err(err).Msg("catalog cache flush failed")
		writeError(w, http.StatusBadGateway, "cache_error")
		return
	}
	a.logger.Info().Msg("catalog cache flushed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

func (a *API) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.cacheAdmin(w)
	if !ok {
		return
	}
	kind, err := cache.ParseKind(chi.URLParam(r, "kind"))
	if errors.Is(err, cache.ErrUnknownKind) {
		writeError(w, http.StatusBadRequest, "invalid_kind")
		return
	}
	id := chi.URLParam(r, "id")
	if err := admin.Invalidate(r.Context(), kind, id); err != nil {
		a.logger.Error().Err(err).Str("kind", string(kind)).Str("id", id).Msg("catalog cache invalidate failed")
		writeError(w, http.StatusBadGateway, "cache_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "kind": string(kind), "id": id})
}
