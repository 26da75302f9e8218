/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package queue

import "github.com/friendsincode/godspeed/internal/models"

// Advancement is the outcome of consuming the current entry.
type Advancement struct {
	Finished    models.QueueEntry
	HasFinished bool

	Next    models.QueueEntry
	HasNext bool
	Index   int

	// Looped is set when the next entry wrapped around to the head.
	Looped bool
	// Destroyed is set when the queue ran out and was cleared.
	Destroyed bool
}

// Advance consumes the current entry and selects the next one. The finished
// entry is removed; the entry that slid into its slot plays next, wrapping to
// the head of the queue when the tail was consumed. When the next entry sits
// inside a group whose head is still queued, playback restarts at that head.
// Single-play sessions and an exhausted queue destroy the queue.
func (s *Store) Advance() Advancement {
	if len(s.entries) == 0 {
		s.Clear()
		return Advancement{Destroyed: true, Index: NoCurrent}
	}

	finished, ok := s.Current()
	if !ok {
		return Advancement{Index: NoCurrent}
	}
	adv := Advancement{Finished: finished, HasFinished: true, Index: NoCurrent}

	if s.singlePlay {
		s.Clear()
		adv.Destroyed = true
		return adv
	}

	cur := s.current
	s.entries = append(s.entries[:cur:cur], s.entries[cur+1:]...)
	if len(s.entries) == 0 {
		s.Clear()
		adv.Destroyed = true
		return adv
	}
	if finished.PlaySingle {
		s.current = NoCurrent
		s.anchor = min(cur, len(s.entries)-1)
		return adv
	}

	next := cur
	if next >= len(s.entries) {
		next = 0
		adv.Looped = true
	}
	if s.entries[next].GroupID != "" {
		next = s.groupStart(next)
	}

	s.current = next
	s.anchor = NoCurrent
	adv.Next = s.entries[next]
	adv.HasNext = true
	adv.Index = next
	s.logger.Debug().Int("index", next).Bool("looped", adv.Looped).Msg("queue advanced")
	return adv
}
