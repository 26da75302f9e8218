/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/godspeed/internal/logbuffer"
)

type logsResponse struct {
	Entries    []logbuffer.LogEntry `json:"entries"`
	Components []string             `json:"components"`
	Stats      logbuffer.Stats      `json:"stats"`
}

// handleLogs returns recent log lines. Query parameters: level, component,
// session, search, since (RFC3339), limit. Newest entries come first.
func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	if a.logs == nil {
		writeError(w, http.StatusNotFound, "logs_disabled")
		return
	}

	params := r.URL.Query()
	q := logbuffer.Query{
		Level:     params.Get("level"),
		Component: params.Get("component"),
		Session:   params.Get("session"),
		Search:    params.Get("search"),
		Limit:     200,
		Newest:    true,
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		q.Limit = limit
	}
	if raw := params.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		q.Since = since
	}

	writeJSON(w, http.StatusOK, logsResponse{
		Entries:    a.logs.Query(q),
		Components: a.logs.Components(),
		Stats:      a.logs.Stats(),
	})
}
