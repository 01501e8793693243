package store

import (
	"fmt"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"gorm.io/gorm"
)

// ListAssemblies returns a project's assemblies, oldest first, with layers
// and segments in order.
func ListAssemblies(db *gorm.DB, projectID string) ([]models.Assembly, error) {
	out := []models.Assembly{}
	if err := withTree(db).Where("project_id = ?", projectID).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list assemblies for %s: %w", projectID, err)
	}
	return out, nil
}

// GetAssembly loads one assembly with its tree.
func GetAssembly(db *gorm.DB, id string) (*models.Assembly, error) {
	var a models.Assembly
	if err := withTree(db).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err, "assembly", id)
	}
	return &a, nil
}

// CreateAssembly inserts an empty assembly.
func CreateAssembly(db *gorm.DB, projectID string, req models.AssemblyCreate) (*models.Assembly, error) {
	name, err := assembly.ValidateName(req.Name)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, invalid("project id is required")
	}
	typ := req.Type
	if typ == "" {
		typ = "wall"
	}
	a := models.Assembly{
		ID:          NewID(),
		ProjectID:   projectID,
		Name:        name,
		Type:        typ,
		Orientation: models.FirstLayerOutside,
		Layers:      []models.Layer{},
	}
	if err := db.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("store: create assembly: %w", err)
	}
	return &a, nil
}

// UpdateAssembly applies a patch and returns the updated assembly.
func UpdateAssembly(db *gorm.DB, id string, patch models.AssemblyPatch) (*models.Assembly, error) {
	if patch.Name != nil {
		name, err := assembly.ValidateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		res := db.Model(&models.Assembly{}).Where("id = ?", id).Update("name", name)
		if res.Error != nil {
			return nil, fmt.Errorf("store: update assembly %s: %w", id, res.Error)
		}
	}
	return GetAssembly(db, id)
}

// DeleteAssembly removes an assembly with its layers, segments and
// attachments.
func DeleteAssembly(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		a, err := GetAssembly(tx, id)
		if err != nil {
			return err
		}
		if err := deleteSegments(tx, segmentIDs(a.Layers...)); err != nil {
			return err
		}
		if err := tx.Where("assembly_id = ?", id).Delete(&models.Layer{}).Error; err != nil {
			return fmt.Errorf("store: delete layers of %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Assembly{}).Error; err != nil {
			return fmt.Errorf("store: delete assembly %s: %w", id, err)
		}
		return nil
	})
}

// FlipAssembly applies a flip and persists the new order.
func FlipAssembly(db *gorm.DB, id string, mode models.FlipMode) (*models.Assembly, error) {
	var out *models.Assembly
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := GetAssembly(tx, id)
		if err != nil {
			return err
		}
		switch mode {
		case models.FlipOrientationMode:
			assembly.FlipOrientation(a)
		case models.FlipLayersMode:
			assembly.FlipLayers(a)
		default:
			return invalid("flip mode %q", mode)
		}
		if err := tx.Model(&models.Assembly{}).Where("id = ?", id).Update("orientation", a.Orientation).Error; err != nil {
			return fmt.Errorf("store: flip assembly %s: %w", id, err)
		}
		if err := savePositions(tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
