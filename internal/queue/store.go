/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package queue holds the play queue, its current index and the reorder,
// insert and removal rules that keep that index pointing at the right entry.
package queue

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/friendsincode/godspeed/internal/models"
)

// NoCurrent marks an undefined current index.
const NoCurrent = -1

var (
	// ErrEntryNotFound is returned when no entry carries the queue uid.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrIndexOutOfRange is returned for indices outside the queue.
	ErrIndexOutOfRange = errors.New("queue index out of range")

	// ErrGroupNotFound is returned for unknown group keys.
	ErrGroupNotFound = errors.New("queue group not found")

	// ErrNoopMove is returned when source and target resolve to the same position.
	ErrNoopMove = errors.New("source and target are the same")
)

// Store is the ordered queue plus its current index. It is not safe for
// concurrent use; the playback engine serializes access.
type Store struct {
	entries    []models.QueueEntry
	current    int
	singlePlay bool
	// anchor is the slot left by a removed current entry. "Play next"
	// inserts after it while nothing is current.
	anchor     int
	logger     zerolog.Logger
}

// NewStore creates an empty queue.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		current: NoCurrent,
		anchor:  NoCurrent,
		logger:  logger.With().Str("component", "queue").Logger(),
	}
}

// Entries returns a copy of the queue.
func (s *Store) Entries() []models.QueueEntry {
	return append([]models.QueueEntry(nil), s.entries...)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// CurrentIndex returns the current index or NoCurrent.
func (s *Store) CurrentIndex() int {
	return s.current
}

// Current returns the current entry.
func (s *Store) Current() (models.QueueEntry, bool) {
	if s.current < 0 || s.current >= len(s.entries) {
		return models.QueueEntry{}, false
	}
	return s.entries[s.current], true
}

// SinglePlay reports whether the current entry was started on its own.
func (s *Store) SinglePlay() bool {
	return s.singlePlay
}

// IndexOf returns the position of queueUID or -1.
func (s *Store) IndexOf(queueUID string) int {
	_, idx, ok := lo.FindIndexOf(s.entries, func(e models.QueueEntry) bool {
		return e.QueueUID == queueUID
	})
	if !ok {
		return -1
	}
	return idx
}

// Replace swaps the whole queue and selects startIndex, clamped into range.
// It returns the entry to load, if any.
func (s *Store) Replace(entries []models.QueueEntry, startIndex int) (models.QueueEntry, bool) {
	s.entries = nil
	s.entries = s.admit(entries)
	s.singlePlay = false
	s.anchor = NoCurrent
	s.enforceContiguity()

	if len(s.entries) == 0 {
		s.current = NoCurrent
		return models.QueueEntry{}, false
	}
	s.current = lo.Clamp(startIndex, 0, len(s.entries)-1)
	s.logger.Debug().Int("size", len(s.entries)).Int("start", s.current).Msg("queue replaced")
	return s.entries[s.current], true
}

// ReplaceSingle makes entry the only queue item, played on its own.
func (s *Store) ReplaceSingle(entry models.QueueEntry) models.QueueEntry {
	s.entries = nil
	s.entries = s.admit([]models.QueueEntry{entry})
	s.current = 0
	s.anchor = NoCurrent
	s.singlePlay = true
	return s.entries[0]
}

// InsertAfterCurrent splices entries right after the current entry. With
// nothing current they go after the slot of the last removed current entry,
// or at the head. The current index is unchanged.
func (s *Store) InsertAfterCurrent(entries ...models.QueueEntry) int {
	pos := s.current + 1
	if s.current == NoCurrent {
		pos = 0
		if s.anchor != NoCurrent && len(s.entries) > 0 {
			pos = min(s.anchor, len(s.entries)-1) + 1
		}
	}
	return s.insert(pos, entries)
}

// Append adds entries to the end of the queue.
func (s *Store) Append(entries ...models.QueueEntry) int {
	return s.insert(len(s.entries), entries)
}

func (s *Store) insert(pos int, entries []models.QueueEntry) int {
	batch := s.admit(entries)
	if len(batch) == 0 {
		return 0
	}
	pos = lo.Clamp(pos, 0, len(s.entries))

	next := make([]models.QueueEntry, 0, len(s.entries)+len(batch))
	next = append(next, s.entries[:pos]...)
	next = append(next, batch...)
	next = append(next, s.entries[pos:]...)
	s.entries = next

	if s.current != NoCurrent && s.current >= pos {
		s.current += len(batch)
	}
	if s.anchor != NoCurrent && s.anchor >= pos {
		s.anchor += len(batch)
	}
	s.singlePlay = false
	s.enforceContiguity()
	s.logger.Debug().Int("count", len(batch)).Int("position", pos).Msg("entries inserted")
	return len(batch)
}

// Removal describes the outcome of Remove.
type Removal struct {
	Entry      models.QueueEntry
	Index      int
	WasCurrent bool
}

// Remove deletes the entry with queueUID. Removing the current entry leaves
// the queue without a current index; it never selects another entry.
func (s *Store) Remove(queueUID string) (Removal, error) {
	idx := s.IndexOf(queueUID)
	if idx < 0 {
		return Removal{}, fmt.Errorf("%w: %s", ErrEntryNotFound, queueUID)
	}

	removed := Removal{Entry: s.entries[idx], Index: idx}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)

	switch {
	case idx < s.current:
		s.current--
	case idx == s.current:
		removed.WasCurrent = true
		s.current = NoCurrent
		s.singlePlay = false
		s.anchor = min(idx, len(s.entries)-1)
	case s.current == NoCurrent && s.anchor != NoCurrent && idx < s.anchor:
		s.anchor--
	}
	if len(s.entries) == 0 {
		s.current = NoCurrent
		s.anchor = NoCurrent
	}
	return removed, nil
}

// Jump selects the entry at index.
func (s *Store) Jump(index int) (models.QueueEntry, error) {
	if index < 0 || index >= len(s.entries) {
		return models.QueueEntry{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.current = index
	s.singlePlay = false
	s.anchor = NoCurrent
	return s.entries[index], nil
}

// Previous steps back one entry. It reports false at the head of the queue.
func (s *Store) Previous() (models.QueueEntry, bool) {
	if len(s.entries) == 0 || s.current <= 0 {
		return models.QueueEntry{}, false
	}
	s.current--
	return s.entries[s.current], true
}

// Clear destroys the queue.
func (s *Store) Clear() {
	s.entries = nil
	s.current = NoCurrent
	s.anchor = NoCurrent
	s.singlePlay = false
}

// admit copies entries and gives a fresh queue uid to any entry whose uid is
// empty or already taken.
func (s *Store) admit(entries []models.QueueEntry) []models.QueueEntry {
	taken := make(map[string]bool, len(s.entries)+len(entries))
	for _, e := range s.entries {
		taken[e.QueueUID] = true
	}

	out := make([]models.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.QueueUID == "" || taken[e.QueueUID] {
			e.QueueUID = uuid.NewString()
		}
		taken[e.QueueUID] = true
		out = append(out, e)
	}
	return out
}
