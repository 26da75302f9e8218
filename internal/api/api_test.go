/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/godspeed/internal/catalog"
	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/routing"
)

// stubElement is a media element that loads and plays instantly.
type stubElement struct {
	mu      sync.Mutex
	loaded  bool
	pos     float64
	loadErr error
	notes   *playback.Notifier
}

func (s *stubElement) Load(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded = true
	s.pos = 0
	return nil
}

func (s *stubElement) Play(context.Context) error { return nil }
func (s *stubElement) Pause() error               { return nil }

func (s *stubElement) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return nil
}

func (s *stubElement) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = seconds
	return nil
}

func (s *stubElement) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *stubElement) Duration() float64 { return 200 }

func (s *stubElement) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *stubElement) Notifications() <-chan playback.Notification { return s.notes.C() }

func (s *stubElement) Close() error {
	s.notes.Close()
	return nil
}

type stubCatalog struct {
	albums map[string][]*models.TrackDescriptor
}

func (c *stubCatalog) Track(_ context.Context, id string) ([]*models.TrackDescriptor, error) {
	return []*models.TrackDescriptor{{ID: id, AudioSrc: "/godspeed/track/" + id + "/play"}}, nil
}

func (c *stubCatalog) AlbumTracks(_ context.Context, id string) ([]*models.TrackDescriptor, error) {
	tracks, ok := c.albums[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return catalog.Grouped(tracks, "album-"+id), nil
}

func (c *stubCatalog) PlaylistTracks(context.Context, string) ([]*models.TrackDescriptor, error) {
	return nil, &catalog.StatusError{Status: http.StatusInternalServerError}
}

type testEnv struct {
	engine  *playback.Engine
	element *stubElement
	bus     *events.Bus
	router  chi.Router
}

func newTestEnv(t *testing.T, cat Catalog) *testEnv {
	t.Helper()
	env := &testEnv{
		element: &stubElement{notes: playback.NewNotifier(8)},
		bus:     events.NewBus(),
	}
	env.engine = playback.New(playback.Options{
		Element:   env.element,
		Fabric:    routing.NewMixer(),
		Publisher: env.bus,
		Logger:    zerolog.Nop(),
		Mix:       models.DefaultMix(),
	})
	if err := env.engine.Init(context.Background()); err != nil {
		t.Fatalf("init engine: %v", err)
	}
	t.Cleanup(func() { _ = env.engine.Dispose() })

	env.router = chi.NewRouter()
	New(env.engine, cat, env.bus, zerolog.Nop()).Routes(env.router)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) playback.Snapshot {
	t.Helper()
	var snap playback.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v (body=%s)", err, rr.Body.String())
	}
	return snap
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body["error"]
}

func tracks(ids ...string) []*models.TrackDescriptor {
	out := make([]*models.TrackDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, &models.TrackDescriptor{ID: id, QueueUID: "uid-" + id, AudioSrc: "/audio/" + id})
	}
	return out
}

func TestState_Idle(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/api/v1/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	snap := decodeSnapshot(t, rr)
	if snap.State != models.PlaybackIdle || len(snap.Queue) != 0 {
		t.Errorf("unexpected initial snapshot: %+v", snap)
	}
}

func TestQueuePlay(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{
		"tracks":     tracks("a", "b", "c"),
		"startIndex": 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	snap := decodeSnapshot(t, rr)
	if snap.State != models.PlaybackPlaying {
		t.Errorf("state = %s", snap.State)
	}
	if len(snap.Queue) != 3 || snap.CurrentIndex != 1 {
		t.Errorf("queue len %d current %d", len(snap.Queue), snap.CurrentIndex)
	}
}

func TestQueuePlay_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cat    Catalog
		body   any
		status int
		code   string
	}{
		{"no tracks", nil, map[string]any{}, http.StatusBadRequest, "tracks_required"},
		{"catalog missing", nil, map[string]any{"albumId": "1"}, http.StatusServiceUnavailable, "catalog_unavailable"},
		{"album not found", &stubCatalog{}, map[string]any{"albumId": "9"}, http.StatusNotFound, "catalog_not_found"},
		{"catalog failure", &stubCatalog{}, map[string]any{"playlistId": "1"}, http.StatusBadGateway, "catalog_error"},
		{"nothing playable", nil, map[string]any{"tracks": []map[string]any{{"id": "x"}, {"id": "y"}}}, http.StatusUnprocessableEntity, "empty_queue"},
		{"one track without source", nil, map[string]any{"tracks": []map[string]any{{"id": "x"}}}, http.StatusUnprocessableEntity, "empty_queue"},
		{"single play without source", nil, map[string]any{"tracks": []map[string]any{{"id": "x"}}, "single": true}, http.StatusUnprocessableEntity, "invalid_track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.cat)
			rr := env.do(t, http.MethodPost, "/api/v1/queue/play", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d body=%s", tt.status, rr.Code, rr.Body.String())
			}
			if got := errorCode(t, rr); got != tt.code {
				t.Errorf("error = %q, want %q", got, tt.code)
			}
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		env := newTestEnv(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/play", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}

func TestQueuePlay_OneTrackReplacesQueue(t *testing.T) {
	env := newTestEnv(t, nil)
	if rr := env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a", "b", "c")}); rr.Code != http.StatusOK {
		t.Fatalf("seed queue: %d", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("d")})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	snap := decodeSnapshot(t, rr)
	if len(snap.Queue) != 1 || snap.Queue[0].ID != "d" || snap.CurrentIndex != 0 {
		t.Fatalf("queue = %+v current %d", snap.Queue, snap.CurrentIndex)
	}
	if snap.SinglePlay {
		t.Error("a one-track batch should not be single-play")
	}

	rr = env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("e"), "single": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	snap = decodeSnapshot(t, rr)
	if len(snap.Queue) != 1 || snap.Queue[0].ID != "e" || !snap.SinglePlay {
		t.Errorf("single play: queue = %+v single %v", snap.Queue, snap.SinglePlay)
	}
}

func TestQueuePlay_Album(t *testing.T) {
	cat := &stubCatalog{albums: map[string][]*models.TrackDescriptor{"3": tracks("one", "two")}}
	env := newTestEnv(t, cat)

	rr := env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"albumId": "3"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	snap := decodeSnapshot(t, rr)
	if len(snap.Queue) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Queue))
	}
	for _, e := range snap.Queue {
		if e.GroupID != "album-3" {
			t.Errorf("entry %s group = %q", e.ID, e.GroupID)
		}
	}
	if len(snap.Groups) != 1 || snap.Groups[0].Size != 2 {
		t.Errorf("groups = %+v", snap.Groups)
	}
}

func TestQueuePlay_LoadFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.element.loadErr = errors.New("decode failed")

	rr := env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a", "b")})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "load_failed" || body["queueUid"] != "uid-a" {
		t.Errorf("body = %v", body)
	}

	snap := decodeSnapshot(t, env.do(t, http.MethodGet, "/api/v1/state", nil))
	if len(snap.Queue) != 2 {
		t.Errorf("queue should survive a load failure, got %d entries", len(snap.Queue))
	}
}

func TestQueueNextLaterRemove(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a", "b")})

	rr := env.do(t, http.MethodPost, "/api/v1/queue/next", map[string]any{"tracks": tracks("n")})
	if rr.Code != http.StatusOK {
		t.Fatalf("next: %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPost, "/api/v1/queue/later", map[string]any{"tracks": tracks("l")})
	if rr.Code != http.StatusOK {
		t.Fatalf("later: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Added int           `json:"added"`
		Queue queueResponse `json:"queue"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Added != 1 {
		t.Errorf("added = %d", resp.Added)
	}
	var ids []string
	for _, e := range resp.Queue.Queue {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "a,n,b,l" {
		t.Errorf("queue order = %v", ids)
	}

	rr = env.do(t, http.MethodDelete, "/api/v1/queue/uid-b", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("remove: %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodDelete, "/api/v1/queue/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("remove missing: expected 404, got %d", rr.Code)
	}
}

func TestQueueReorder(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a", "b", "c")})

	rr := env.do(t, http.MethodPost, "/api/v1/queue/reorder", map[string]any{"sourceIndex": 2, "targetIndex": 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", rr.Code, rr.Body.String())
	}
	var q queueResponse
	if err := json.NewDecoder(rr.Body).Decode(&q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Queue[0].ID != "c" || q.CurrentIndex != 1 {
		t.Errorf("after reorder first=%s current=%d", q.Queue[0].ID, q.CurrentIndex)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/queue/reorder", map[string]any{"sourceIndex": 1, "targetIndex": 1})
	if rr.Code != http.StatusOK {
		t.Errorf("noop move should succeed, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/v1/queue/reorder", map[string]any{"isGroup": true})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("group move without keys: expected 400, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/v1/queue/reorder", map[string]any{"sourceIndex": 7, "targetIndex": 0})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("out of range: expected 400, got %d", rr.Code)
	}
}

func TestQueueJumpAndClear(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a", "b", "c")})

	rr := env.do(t, http.MethodPost, "/api/v1/queue/jump/2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("jump: %d %s", rr.Code, rr.Body.String())
	}
	if snap := decodeSnapshot(t, rr); snap.CurrentIndex != 2 {
		t.Errorf("current = %d", snap.CurrentIndex)
	}

	if rr := env.do(t, http.MethodPost, "/api/v1/queue/jump/x", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric index: expected 400, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/v1/queue/jump/9", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("out of range: expected 400, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/api/v1/queue", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear: %d", rr.Code)
	}
	if snap := decodeSnapshot(t, rr); len(snap.Queue) != 0 || snap.State != models.PlaybackIdle {
		t.Errorf("after clear: %+v", snap)
	}
}

func TestPlayerControls(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a", "b", "c")})

	snap := decodeSnapshot(t, env.do(t, http.MethodPost, "/api/v1/player/toggle", nil))
	if snap.IsPlaying || snap.State != models.PlaybackPaused {
		t.Errorf("toggle: playing=%v state=%s", snap.IsPlaying, snap.State)
	}

	rr := env.do(t, http.MethodPost, "/api/v1/player/seek", map[string]any{"fraction": 0.5})
	if rr.Code != http.StatusOK {
		t.Fatalf("seek: %d", rr.Code)
	}
	if snap := decodeSnapshot(t, rr); snap.Elapsed != 100 {
		t.Errorf("elapsed after seek = %v", snap.Elapsed)
	}
	if rr := env.do(t, http.MethodPost, "/api/v1/player/seek", map[string]any{}); rr.Code != http.StatusBadRequest {
		t.Errorf("seek without fraction: expected 400, got %d", rr.Code)
	}

	// Skipping consumes the current entry.
	snap = decodeSnapshot(t, env.do(t, http.MethodPost, "/api/v1/player/skip", nil))
	if len(snap.Queue) != 2 || snap.Current == nil || snap.Current.ID != "b" {
		t.Fatalf("skip: queue=%d current=%+v", len(snap.Queue), snap.Current)
	}

	env.do(t, http.MethodPost, "/api/v1/queue/jump/1", nil)
	snap = decodeSnapshot(t, env.do(t, http.MethodPost, "/api/v1/player/previous", nil))
	if snap.CurrentIndex != 0 || snap.Current.ID != "b" {
		t.Errorf("previous: current = %d", snap.CurrentIndex)
	}

	snap = decodeSnapshot(t, env.do(t, http.MethodPost, "/api/v1/player/previous", nil))
	if snap.CurrentIndex != 0 || snap.Elapsed != 0 {
		t.Errorf("previous at head: current=%d elapsed=%v", snap.CurrentIndex, snap.Elapsed)
	}
}

func TestPlayerSkip_PastEndIsIdle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/queue/play", map[string]any{"tracks": tracks("a")})

	rr := env.do(t, http.MethodPost, "/api/v1/player/skip", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if snap := decodeSnapshot(t, rr); snap.State != models.PlaybackIdle {
		t.Errorf("state = %s, want idle", snap.State)
	}
}

func TestMixEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPut, "/api/v1/mix", map[string]any{"masterVolume": 3, "pan": -0.5})
	if rr.Code != http.StatusOK {
		t.Fatalf("put mix: %d %s", rr.Code, rr.Body.String())
	}
	var resp mixResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mix.MasterVolume != 1 || resp.Mix.Pan != -0.5 {
		t.Errorf("mix = %+v", resp.Mix)
	}
	if resp.Mix.BaseLeftVolume != 1 {
		t.Errorf("unset fields should keep their value: %+v", resp.Mix)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/mix/mono", map[string]any{"enabled": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("mono: %d %s", rr.Code, rr.Body.String())
	}
	resp = mixResponse{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Mix.Mono {
		t.Error("expected mono enabled")
	}

	rr = env.do(t, http.MethodPost, "/api/v1/mix/mute", nil)
	resp = mixResponse{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Mix.Muted {
		t.Error("expected muted")
	}

	rr = env.do(t, http.MethodPost, "/api/v1/mix/replaygain", nil)
	resp = mixResponse{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Mix.ReplayGainEnabled {
		t.Error("expected replay gain enabled")
	}

	rr = env.do(t, http.MethodGet, "/api/v1/mix", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get mix: %d", rr.Code)
	}
}

func TestEventsWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?types=" + string(events.EventQueueChanged)
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "snapshot" {
		t.Fatalf("first message = %s (%v)", data, err)
	}

	if _, err := env.engine.PlayLater(ctx, tracks("a")...); err != nil {
		t.Fatalf("PlayLater: %v", err)
	}

	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if msg.Type != string(events.EventQueueChanged) {
		t.Errorf("event type = %q", msg.Type)
	}
}

func TestParseEventTypes(t *testing.T) {
	got := parseEventTypes("queue.changed, mix.changed,,")
	if len(got) != 2 || got[1] != events.EventMixChanged {
		t.Errorf("parseEventTypes = %v", got)
	}
	if parseEventTypes("") != nil {
		t.Error("empty input should yield nil")
	}
}
