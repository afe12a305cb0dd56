package database

import (
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. Order matters for
// the foreign keys: collaborators first, then tickets, then permissions.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Booth{},
		&models.StaffTicket{},
		&models.StaffPermission{},
		&models.CacheEntry{},
	)
}
