/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package queue

import (
	"fmt"

	"github.com/friendsincode/godspeed/internal/models"
)

// Move describes a drag and drop reorder: either one entry by index or a
// whole group by key.
type Move struct {
	Group     bool
	Source    int
	Target    int
	SourceKey GroupKey
	TargetKey GroupKey
}

// SingleMove moves the entry at source into target's slot.
func SingleMove(source, target int) Move {
	return Move{Source: source, Target: target}
}

// GroupMove moves the run for source into the slot of the run for target.
func GroupMove(source, target GroupKey) Move {
	return Move{Group: true, SourceKey: source, TargetKey: target}
}

// Reorder applies move. The moved span takes the target's place: it lands
// before the target when moving up and after it when moving down. A single
// entry dragged down onto index t therefore ends at t with the target shifted
// up one slot, rather than stopping at t-1 in front of it. Group moves follow
// the same rule. The current index follows the entry it pointed at.
func (s *Store) Reorder(move Move) error {
	if move.Group {
		return s.moveGroup(move.SourceKey, move.TargetKey)
	}
	return s.moveSingle(move.Source, move.Target)
}

func (s *Store) moveSingle(source, target int) error {
	if source < 0 || source >= len(s.entries) {
		return fmt.Errorf("%w: source %d", ErrIndexOutOfRange, source)
	}
	if target < 0 || target >= len(s.entries) {
		return fmt.Errorf("%w: target %d", ErrIndexOutOfRange, target)
	}
	if source == target {
		return ErrNoopMove
	}

	moved := s.entries[source].WithGroup(s.entries[target].GroupID)
	s.entries[source] = moved
	s.splice(source, 1, target)
	s.enforceContiguity()
	return nil
}

func (s *Store) moveGroup(sourceKey, targetKey GroupKey) error {
	if sourceKey == targetKey {
		return ErrNoopMove
	}
	srcStart, n, err := s.span(sourceKey)
	if err != nil {
		return err
	}
	dstStart, dstLen, err := s.span(targetKey)
	if err != nil {
		return err
	}

	// Insertion point in the queue with the source span removed.
	at := dstStart
	if dstStart > srcStart {
		at = dstStart + dstLen - n
	}
	if at == srcStart {
		return ErrNoopMove
	}
	s.splice(srcStart, n, at)
	s.enforceContiguity()
	return nil
}

// splice moves entries[start:start+n] so that it begins at index at of the
// resulting queue, translating the current index by the induced offset.
func (s *Store) splice(start, n, at int) {
	span := append([]models.QueueEntry(nil), s.entries[start:start+n]...)
	rest := make([]models.QueueEntry, 0, len(s.entries)-n)
	rest = append(rest, s.entries[:start]...)
	rest = append(rest, s.entries[start+n:]...)

	next := make([]models.QueueEntry, 0, len(s.entries))
	next = append(next, rest[:at]...)
	next = append(next, span...)
	next = append(next, rest[at:]...)
	s.entries = next

	cur := s.current
	switch {
	case cur == NoCurrent:
	case cur >= start && cur < start+n:
		s.current = at + (cur - start)
	default:
		if cur >= start+n {
			cur -= n
		}
		if cur >= at {
			cur += n
		}
		s.current = cur
	}
}
