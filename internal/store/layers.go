package store

import (
	"fmt"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"gorm.io/gorm"
)

// GetLayer loads one layer with its segments.
func GetLayer(db *gorm.DB, id string) (*models.Layer, error) {
	var l models.Layer
	if err := db.Preload("Segments", byPosition).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, notFound(err, "layer", id)
	}
	return &l, nil
}

// CreateLayer inserts a layer at req.Order. With a material id the layer
// is seeded with one segment of that material.
func CreateLayer(db *gorm.DB, assemblyID string, req models.LayerCreate) (*models.Layer, error) {
	var out models.Layer
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := GetAssembly(tx, assemblyID)
		if err != nil {
			return err
		}
		layer := models.Layer{ID: NewID(), ThicknessMM: req.ThicknessMM, Segments: []models.Segment{}}
		if req.MaterialID != "" {
			if _, err := assembly.InsertSegmentAt(&layer, 0, assembly.SegmentAttrs{
				ID:         NewID(),
				MaterialID: req.MaterialID,
				WidthMM:    req.WidthMM,
			}); err != nil {
				return err
			}
		}
		out, err = assembly.InsertLayer(a, req.Order, layer)
		if err != nil {
			return err
		}
		if err := tx.Create(&out).Error; err != nil {
			return fmt.Errorf("store: create layer: %w", err)
		}
		return savePositions(tx, a)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLayer applies a patch and returns the updated layer.
func UpdateLayer(db *gorm.DB, id string, patch models.LayerPatch) (*models.Layer, error) {
	if patch.ThicknessMM != nil {
		if err := assembly.ValidatePositive("thickness", *patch.ThicknessMM); err != nil {
			return nil, err
		}
		res := db.Model(&models.Layer{}).Where("id = ?", id).Update("thickness_mm", *patch.ThicknessMM)
		if res.Error != nil {
			return nil, fmt.Errorf("store: update layer %s: %w", id, res.Error)
		}
	}
	return GetLayer(db, id)
}

// DeleteLayer removes a layer with its segments and renumbers the rest.
func DeleteLayer(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		l, err := GetLayer(tx, id)
		if err != nil {
			return err
		}
		a, err := GetAssembly(tx, l.AssemblyID)
		if err != nil {
			return err
		}
		removed, err := assembly.DeleteLayer(a, id)
		if err != nil {
			return notFound(gorm.ErrRecordNotFound, "layer", id)
		}
		if err := deleteSegments(tx, segmentIDs(removed)); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Layer{}).Error; err != nil {
			return fmt.Errorf("store: delete layer %s: %w", id, err)
		}
		return savePositions(tx, a)
	})
}
