package db

import (
	"fmt"

	"github.com/zulandar/stratum/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration, parents first.
func AllModels() []interface{} {
	return []interface{}{
		&models.Material{},
		&models.FrameType{},
		&models.GlazingType{},
		&models.Assembly{},
		&models.Layer{},
		&models.Segment{},
		&models.Attachment{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
