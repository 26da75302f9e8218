/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/godspeed/internal/models"
)

type memorySink struct {
	mu      sync.Mutex
	name    string
	records []models.PlayRecord
	err     error
	block   chan struct{}
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Deliver(_ context.Context, record models.PlayRecord) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return m.err
}

func (m *memorySink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func record(track, session string) models.PlayRecord {
	return models.PlayRecord{
		TrackID:   track,
		SessionID: session,
		Source:    models.PlaySourceQueue,
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	ok := &memorySink{name: "ok"}
	failing := &memorySink{name: "failing", err: errors.New("down")}
	d := NewDispatcher(Options{}, zerolog.Nop(), ok, failing)

	d.LogPlay(context.Background(), record("1", "s1"))
	d.LogPlay(context.Background(), record("2", "s2"))
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if ok.len() != 2 || failing.len() != 2 {
		t.Fatalf("deliveries ok=%d failing=%d, want 2 each", ok.len(), failing.len())
	}
	if ok.records[0].TrackID != "1" || ok.records[1].TrackID != "2" {
		t.Errorf("order = %+v", ok.records)
	}
}

func TestDispatcher_NeverBlocks(t *testing.T) {
	sink := &memorySink{name: "slow", block: make(chan struct{})}
	d := NewDispatcher(Options{QueueSize: 1}, zerolog.Nop(), sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.LogPlay(context.Background(), record("1", "s"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogPlay blocked on a full queue")
	}

	close(sink.block)
	_ = d.Close()
	if n := sink.len(); n < 1 || n > 2 {
		t.Errorf("delivered %d records, want 1 or 2", n)
	}

	d.LogPlay(context.Background(), record("late", "s9"))
}

func TestDispatcher_FillsTimestamp(t *testing.T) {
	sink := &memorySink{name: "mem"}
	d := NewDispatcher(Options{}, zerolog.Nop(), sink)
	d.LogPlay(context.Background(), models.PlayRecord{TrackID: "1", SessionID: "s"})
	_ = d.Close()

	if sink.records[0].At.IsZero() {
		t.Error("expected timestamp to be filled")
	}
}

func TestMultiSink(t *testing.T) {
	a := &memorySink{name: "a"}
	b := &memorySink{name: "b", err: errors.New("nope")}
	err := MultiSink{a, b}.Deliver(context.Background(), record("1", "s"))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if a.len() != 1 || b.len() != 1 {
		t.Errorf("fan-out a=%d b=%d", a.len(), b.len())
	}
}

func TestHTTPSink(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != LogPlayPath {
			http.Error(w, "bad route", http.StatusNotFound)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/", srv.Client())
	if err := sink.Deliver(context.Background(), record("42", "sess-1")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	want := map[string]string{"track_id": "42", "sessionId": "sess-1", "source": "queue"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if len(got) != len(want) {
		t.Errorf("body has %d fields, want %d: %v", len(got), len(want), got)
	}
}

func TestHTTPSink_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Database error"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewHTTPSink(srv.URL, srv.Client()).Deliver(context.Background(), record("1", "s")); err == nil {
		t.Fatal("expected error for 500")
	}
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestNATSSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "")
	if err := sink.Deliver(context.Background(), record("7", "s7")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if pub.subject != DefaultSubject {
		t.Errorf("subject = %q", pub.subject)
	}

	var msg natsPlay
	if err := json.Unmarshal(pub.data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.TrackID != "7" || msg.SessionID != "s7" || msg.PlayedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("message = %+v", msg)
	}

	pub.err = errors.New("disconnected")
	if err := sink.Deliver(context.Background(), record("7", "s8")); err == nil {
		t.Error("expected publish error")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Play{}, &models.TrackPlayCount{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestDBSink(t *testing.T) {
	db := openTestDB(t)
	if err := db.Exec(`CREATE TABLE tracks (id TEXT PRIMARY KEY, play_count INTEGER)`).Error; err != nil {
		t.Fatalf("create tracks: %v", err)
	}
	if err := db.Exec(`INSERT INTO tracks (id, play_count) VALUES ('42', NULL)`).Error; err != nil {
		t.Fatalf("seed tracks: %v", err)
	}

	sink := NewDBSink(db)
	ctx := context.Background()
	for _, session := range []string{"s1", "s2", "s2"} {
		if err := sink.Deliver(ctx, record("42", session)); err != nil {
			t.Fatalf("Deliver %s: %v", session, err)
		}
	}

	var plays int64
	db.Model(&models.Play{}).Count(&plays)
	if plays != 2 {
		t.Errorf("plays = %d, want 2", plays)
	}

	var counter models.TrackPlayCount
	if err := db.First(&counter, "track_id = ?", "42").Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.PlayCount != 2 {
		t.Errorf("counter = %d, want 2", counter.PlayCount)
	}

	var trackCount int64
	db.Raw(`SELECT play_count FROM tracks WHERE id = '42'`).Scan(&trackCount)
	if trackCount != 2 {
		t.Errorf("tracks.play_count = %d, want 2", trackCount)
	}
}

func TestDBSink_WithoutCatalogTable(t *testing.T) {
	db := openTestDB(t)
	if err := NewDBSink(db).Deliver(context.Background(), record("9", "s1")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	var counter models.TrackPlayCount
	if err := db.First(&counter, "track_id = ?", "9").Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.PlayCount != 1 {
		t.Errorf("counter = %d, want 1", counter.PlayCount)
	}
}
