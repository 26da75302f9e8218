/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/godspeed/internal/models"
)

// Migrate creates the play log tables. The catalog's tracks table is never
// migrated here.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.Play{},
		&models.TrackPlayCount{},
	)
}
