/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package queue

import (
	"fmt"

	"github.com/friendsincode/godspeed/internal/models"
)

// GroupKey identifies a contiguous run of entries sharing a group id, or a
// single ungrouped entry.
type GroupKey string

const (
	groupPrefix  = "group:"
	singlePrefix = "single:"
)

// KeyOf returns the group key for entry.
func KeyOf(entry models.QueueEntry) GroupKey {
	if entry.GroupID != "" {
		return GroupKey(groupPrefix + entry.GroupID)
	}
	return GroupKey(singlePrefix + entry.QueueUID)
}

// Group is a maximal contiguous run of entries sharing a key.
type Group struct {
	Key     GroupKey            `json:"key"`
	GroupID string              `json:"groupId,omitempty"`
	Start   int                 `json:"start"`
	Entries []models.QueueEntry `json:"entries"`
}

// Groups splits the queue into its runs, in order.
func (s *Store) Groups() []Group {
	var groups []Group
	for i := 0; i < len(s.entries); {
		start, n := i, s.runLength(i)
		groups = append(groups, Group{
			Key:     KeyOf(s.entries[start]),
			GroupID: s.entries[start].GroupID,
			Start:   start,
			Entries: append([]models.QueueEntry(nil), s.entries[start:start+n]...),
		})
		i += n
	}
	return groups
}

// span locates the run for key.
func (s *Store) span(key GroupKey) (start, n int, err error) {
	for i := 0; i < len(s.entries); i++ {
		if KeyOf(s.entries[i]) == key {
			return i, s.runLength(i), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrGroupNotFound, key)
}

func (s *Store) runLength(start int) int {
	key := KeyOf(s.entries[start])
	n := 1
	for start+n < len(s.entries) && KeyOf(s.entries[start+n]) == key {
		n++
	}
	return n
}

// groupStart returns the first index of the run containing idx.
func (s *Store) groupStart(idx int) int {
	key := KeyOf(s.entries[idx])
	for idx > 0 && KeyOf(s.entries[idx-1]) == key {
		idx--
	}
	return idx
}

// enforceContiguity gives every later, detached run of an already seen group
// id a derived id so that no group is ever interleaved with another.
func (s *Store) enforceContiguity() {
	used := make(map[string]bool)
	for _, e := range s.entries {
		if e.GroupID != "" {
			used[e.GroupID] = true
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < len(s.entries); {
		n := s.runLength(i)
		gid := s.entries[i].GroupID
		if gid != "" {
			if seen[gid] {
				fresh := derivedGroupID(gid, used)
				used[fresh] = true
				for j := i; j < i+n; j++ {
					s.entries[j] = s.entries[j].WithGroup(fresh)
				}
				s.logger.Debug().Str("group", gid).Str("renamed", fresh).Msg("split group re-keyed")
				gid = fresh
			}
			seen[gid] = true
		}
		i += n
	}
}

func derivedGroupID(gid string, used map[string]bool) string {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s~%d", gid, n)
		if !used[candidate] {
			return candidate
		}
	}
}
