/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/logbuffer"
)

func TestLogs(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/v1/logs", nil)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "logs_disabled" {
		t.Fatalf("without buffer: status %d", rr.Code)
	}

	buf := logbuffer.New(50)
	logger := zerolog.New(logbuffer.NewWriter(buf, nil))
	logger.Info().Str("component", "playback").Msg("track loaded")
	logger.Warn().Str("component", "queue").Msg("entry missing")
	logger.Info().Str("component", "playback").Msg("play counted")

	router := chi.NewRouter()
	New(env.engine, nil, env.bus, zerolog.Nop()).WithLogs(buf).Routes(router)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	rr = get("/api/v1/logs?component=playback&limit=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body logsResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Message != "play counted" {
		t.Errorf("entries = %+v", body.Entries)
	}
	if len(body.Components) != 2 || body.Stats.Count != 3 {
		t.Errorf("components = %v stats = %+v", body.Components, body.Stats)
	}

	for _, path := range []string{"/api/v1/logs?limit=x", "/api/v1/logs?since=yesterday"} {
		if rr := get(path); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", path, rr.Code)
		}
	}
}
