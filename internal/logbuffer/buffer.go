/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent log lines in memory so the
// dashboard can show what the engine has been doing.
package logbuffer

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 2000

// LogEntry represents a single log entry.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a thread-safe ring buffer of log entries.
type Buffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	capacity int
	head     int
	count    int
}

// New creates a buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]LogEntry, capacity),
		capacity: capacity,
	}
}

// Add appends an entry, overwriting the oldest when full.
func (b *Buffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// All returns every entry, oldest first.
func (b *Buffer) All() []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]LogEntry, b.count)
	start := 0
	if b.count == b.capacity {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		result[i] = b.entries[(start+i)%b.capacity]
	}
	return result
}

// Query filters the buffer.
type Query struct {
	Level     string    // exact level (debug, info, warn, error)
	Component string    // exact component
	Session   string    // matches the "session" or "session_id" field
	Search    string    // case-insensitive substring of message, component or string fields
	Since     time.Time // entries at or after this time
	Limit     int       // max entries, 0 = all
	Newest    bool      // newest first
}

// Query returns entries matching q.
func (b *Buffer) Query(q Query) []LogEntry {
	search := strings.ToLower(q.Search)

	out := lo.Filter(b.All(), func(e LogEntry, _ int) bool {
		if q.Level != "" && e.Level != q.Level {
			return false
		}
		if q.Component != "" && e.Component != q.Component {
			return false
		}
		if q.Session != "" && e.Fields["session"] != q.Session && e.Fields["session_id"] != q.Session {
			return false
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			return false
		}
		if search != "" && !matches(e, search) {
			return false
		}
		return true
	})

	if q.Newest {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matches(e LogEntry, search string) bool {
	if strings.Contains(strings.ToLower(e.Message), search) || strings.Contains(strings.ToLower(e.Component), search) {
		return true
	}
	for _, v := range e.Fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

// Components returns the distinct components seen, sorted.
func (b *Buffer) Components() []string {
	components := lo.Uniq(lo.FilterMap(b.All(), func(e LogEntry, _ int) (string, bool) {
		return e.Component, e.Component != ""
	}))
	sort.Strings(components)
	return components
}

// Stats summarises the buffer.
type Stats struct {
	Capacity   int            `json:"capacity"`
	Count      int            `json:"count"`
	LevelCount map[string]int `json:"level_count"`
}

// Stats returns counts per level.
func (b *Buffer) Stats() Stats {
	all := b.All()
	return Stats{
		Capacity:   b.capacity,
		Count:      len(all),
		LevelCount: lo.CountValuesBy(all, func(e LogEntry) string { return e.Level }),
	}
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

// Writer captures zerolog JSON lines into a Buffer.
type Writer struct {
	buffer   *Buffer
	fallback io.Writer
}

// NewWriter creates a writer that captures logs to buffer and copies them to
// fallback when it is non-nil.
func NewWriter(buffer *Buffer, fallback io.Writer) *Writer {
	return &Writer{buffer: buffer, fallback: fallback}
}

// Write implements io.Writer. Lines that are not JSON objects are passed to
// the fallback only.
func (w *Writer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err == nil {
		entry := LogEntry{Timestamp: time.Now(), Fields: make(map[string]any)}
		for k, v := range raw {
			switch k {
			case "level":
				entry.Level, _ = v.(string)
			case "message":
				entry.Message, _ = v.(string)
			case "component":
				entry.Component, _ = v.(string)
			case "time":
				entry.Timestamp = parseTime(v, entry.Timestamp)
			default:
				entry.Fields[k] = v
			}
		}
		w.buffer.Add(entry)
	}

	if w.fallback != nil {
		return w.fallback.Write(p)
	}
	return len(p), nil
}

// parseTime accepts RFC3339 strings and unix seconds.
func parseTime(v any, def time.Time) time.Time {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	case float64:
		return time.Unix(int64(t), 0)
	}
	return def
}
