// Package store persists assemblies and reference catalogs with GORM.
//
// Structural writes load the affected subtree, apply the same
// internal/assembly edit the client applies, and write the renumbered
// positions back inside one transaction.
package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/catalog"
	"github.com/zulandar/stratum/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// NewID returns a fresh row id.
func NewID() string {
	return uuid.NewString()
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func withTree(db *gorm.DB) *gorm.DB {
	return db.Preload("Layers", byPosition).Preload("Layers.Segments", byPosition)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store: %s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("store: load %s %s: %w", what, id, err)
}

// savePositions writes the order of every layer and segment of a.
func savePositions(tx *gorm.DB, a *models.Assembly) error {
	for _, l := range a.Layers {
		if err := tx.Model(&models.Layer{}).Where("id = ?", l.ID).Update("position", l.Order).Error; err != nil {
			return fmt.Errorf("store: renumber layer %s: %w", l.ID, err)
		}
		if err := saveSegmentPositions(tx, &l); err != nil {
			return err
		}
	}
	return nil
}

func saveSegmentPositions(tx *gorm.DB, l *models.Layer) error {
	for _, s := range l.Segments {
		if err := tx.Model(&models.Segment{}).Where("id = ?", s.ID).Update("position", s.Order).Error; err != nil {
			return fmt.Errorf("store: renumber segment %s: %w", s.ID, err)
		}
	}
	return nil
}

// deleteSegments removes segments and their attachments.
func deleteSegments(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("segment_id IN ?", ids).Delete(&models.Attachment{}).Error; err != nil {
		return fmt.Errorf("store: delete attachments: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Segment{}).Error; err != nil {
		return fmt.Errorf("store: delete segments: %w", err)
	}
	return nil
}

func segmentIDs(layers ...models.Layer) []string {
	var ids []string
	for _, l := range layers {
		for _, s := range l.Segments {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Catalog returns the rows of one reference catalog ordered by name.
func Catalog(db *gorm.DB, key string) (interface{}, error) {
	var (
		out interface{}
		err error
	)
	switch key {
	case catalog.Materials:
		rows := []models.Material{}
		err = db.Order("name").Find(&rows).Error
		out = rows
	case catalog.Frames:
		rows := []models.FrameType{}
		err = db.Order("name").Find(&rows).Error
		out = rows
	case catalog.Glazing:
		rows := []models.GlazingType{}
		err = db.Order("name").Find(&rows).Error
		out = rows
	default:
		return nil, fmt.Errorf("store: catalog %q: %w", key, catalog.ErrUnknownCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list catalog %s: %w", key, err)
	}
	return out, nil
}

// invalid tags a validation failure with assembly.ErrInvalidInput.
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("store: "+format+": %w", append(args, assembly.ErrInvalidInput)...)
}
