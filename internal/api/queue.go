/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/godspeed/internal/catalog"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/queue"
)

var errCatalogUnavailable = errors.New("catalog not configured")

// tracksRequest names what to enqueue: explicit descriptors or a catalog
// album, playlist or track. Single asks for single-play of one track.
type tracksRequest struct {
	Tracks     []*models.TrackDescriptor `json:"tracks"`
	StartIndex int                       `json:"startIndex"`
	GroupID    string                    `json:"groupId"`
	AlbumID    string                    `json:"albumId"`
	PlaylistID string                    `json:"playlistId"`
	TrackID    string                    `json:"trackId"`
	Single     bool                      `json:"single"`
}

type reorderRequest struct {
	SourceIndex    int    `json:"sourceIndex"`
	TargetIndex    int    `json:"targetIndex"`
	SourceGroupKey string `json:"sourceGroupKey"`
	TargetGroupKey string `json:"targetGroupKey"`
	IsGroup        bool   `json:"isGroup"`
}

type queueResponse struct {
	Queue        []models.QueueEntry     `json:"queue"`
	Groups       []playback.GroupSummary `json:"groups"`
	CurrentIndex int                     `json:"currentIndex"`
	SinglePlay   bool                    `json:"singlePlay"`
}

func (a *API) queueView() queueResponse {
	snap := a.engine.Snapshot()
	return queueResponse{
		Queue:        snap.Queue,
		Groups:       snap.Groups,
		CurrentIndex: snap.CurrentIndex,
		SinglePlay:   snap.SinglePlay,
	}
}

// resolve turns a request into descriptors. Catalog batches carry their own
// shared group id.
func (a *API) resolve(ctx context.Context, req tracksRequest) ([]*models.TrackDescriptor, error) {
	if len(req.Tracks) > 0 {
		return req.Tracks, nil
	}
	if req.AlbumID == "" && req.PlaylistID == "" && req.TrackID == "" {
		return nil, nil
	}
	if a.catalog == nil {
		return nil, errCatalogUnavailable
	}
	switch {
	case req.AlbumID != "":
		return a.catalog.AlbumTracks(ctx, req.AlbumID)
	case req.PlaylistID != "":
		return a.catalog.PlaylistTracks(ctx, req.PlaylistID)
	default:
		return a.catalog.Track(ctx, req.TrackID)
	}
}

func (a *API) decodeTracks(w http.ResponseWriter, r *http.Request) ([]*models.TrackDescriptor, tracksRequest, bool) {
	var req tracksRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return nil, req, false
	}
	tracks, err := a.resolve(r.Context(), req)
	if errors.Is(err, errCatalogUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable")
		return nil, req, false
	}
	if err != nil {
		a.writeEngineError(w, r, err)
		return nil, req, false
	}
	if len(tracks) == 0 {
		writeError(w, http.StatusBadRequest, "tracks_required")
		return nil, req, false
	}
	return tracks, req, true
}

func (a *API) handleQueueGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.queueView())
}

func (a *API) handleQueuePlay(w http.ResponseWriter, r *http.Request) {
	tracks, req, ok := a.decodeTracks(w, r)
	if !ok {
		return
	}

	groupID := req.GroupID
	if groupID == "" && len(tracks) > 0 && tracks[0] != nil {
		groupID = tracks[0].GroupID
	}

	// Every batch replaces the queue. Only an explicit single-play request
	// for one track goes through PlayTrack.
	var err error
	if len(tracks) == 1 && tracks[0] != nil && (req.Single || tracks[0].PlaySingle) {
		single := *tracks[0]
		single.PlaySingle = true
		err = a.engine.PlayTrack(r.Context(), &single)
	} else {
		err = a.engine.PlayQueue(r.Context(), tracks, req.StartIndex, groupID)
	}
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

func (a *API) handleQueueNext(w http.ResponseWriter, r *http.Request) {
	a.handleEnqueue(w, r, a.engine.PlayNext)
}

func (a *API) handleQueueLater(w http.ResponseWriter, r *http.Request) {
	a.handleEnqueue(w, r, a.engine.PlayLater)
}

func (a *API) handleEnqueue(w http.ResponseWriter, r *http.Request, insert func(context.Context, ...*models.TrackDescriptor) (int, error)) {
	tracks, req, ok := a.decodeTracks(w, r)
	if !ok {
		return
	}
	if req.GroupID != "" {
		tracks = catalog.Grouped(tracks, req.GroupID)
	}

	added, err := insert(r.Context(), tracks...)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added": added,
		"queue": a.queueView(),
	})
}

func (a *API) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "queueUID")
	if strings.TrimSpace(uid) == "" {
		writeError(w, http.StatusBadRequest, "queue_uid_required")
		return
	}
	if err := a.engine.Remove(r.Context(), uid); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.queueView())
}

func (a *API) handleQueueReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	move := queue.SingleMove(req.SourceIndex, req.TargetIndex)
	if req.IsGroup {
		if req.SourceGroupKey == "" || req.TargetGroupKey == "" {
			writeError(w, http.StatusBadRequest, "group_keys_required")
			return
		}
		move = queue.GroupMove(queue.GroupKey(req.SourceGroupKey), queue.GroupKey(req.TargetGroupKey))
	}

	if err := a.engine.Reorder(move); err != nil && !errors.Is(err, queue.ErrNoopMove) {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.queueView())
}

func (a *API) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.ClearQueue(r.Context()); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

func (a *API) handleQueueJump(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index")
		return
	}
	if err := a.engine.PlayIndex(r.Context(), index); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}
