/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/godspeed/internal/models"
)

// DBSink writes plays to the database. A session is stored at most once.
// When the catalog's tracks table shares the database its play_count column
// is bumped as well.
type DBSink struct {
	db *gorm.DB
}

// NewDBSink creates a database sink. Tables must already be migrated.
func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

// Name implements Sink.
func (s *DBSink) Name() string { return "db" }

// Deliver implements Sink.
func (s *DBSink) Deliver(ctx context.Context, record models.PlayRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		play := models.Play{
			ID:        uuid.NewString(),
			TrackID:   record.TrackID,
			SessionID: record.SessionID,
			Source:    string(record.Source),
			PlayedAt:  record.At,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).Create(&play)
		if res.Error != nil {
			return fmt.Errorf("insert play: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		counter := models.TrackPlayCount{
			TrackID:      record.TrackID,
			PlayCount:    1,
			LastPlayedAt: record.At,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "track_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"play_count":     gorm.Expr("track_play_counts.play_count + 1"),
				"last_played_at": record.At,
			}),
		}).Create(&counter).Error; err != nil {
			return fmt.Errorf("bump play count: %w", err)
		}

		if tx.Migrator().HasTable("tracks") {
			if err := tx.Table("tracks").
				Where("id = ?", record.TrackID).
				UpdateColumn("play_count", gorm.Expr("COALESCE(play_count, 0) + 1")).Error; err != nil {
				return fmt.Errorf("bump tracks.play_count: %w", err)
			}
		}
		return nil
	})
}
