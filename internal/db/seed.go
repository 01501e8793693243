package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/zulandar/stratum/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed is the reference data file loaded by `stratum db seed`.
type Seed struct {
	Materials []SeedMaterial `yaml:"materials"`
	Frames    []SeedFrame    `yaml:"frames"`
	Glazing   []SeedGlazing  `yaml:"glazing"`
}

// SeedMaterial is one material entry. Color is "a,r,g,b".
type SeedMaterial struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Category     string  `yaml:"category"`
	Conductivity float64 `yaml:"conductivity"`
	Density      float64 `yaml:"density"`
	SpecificHeat float64 `yaml:"specific_heat"`
	Color        string  `yaml:"color"`
}

type SeedFrame struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	WidthMM    float64 `yaml:"width_mm"`
	UValue     float64 `yaml:"u_value"`
	PsiInstall float64 `yaml:"psi_install"`
}

type SeedGlazing struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	UValue float64 `yaml:"u_value"`
	GValue float64 `yaml:"g_value"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("db: read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed unmarshals and validates seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("db: parse seed: %w", err)
	}
	var errs []string
	check := func(kind, id, name string, seen map[string]bool) {
		switch {
		case id == "":
			errs = append(errs, fmt.Sprintf("%s %q: id is required", kind, name))
		case seen[id]:
			errs = append(errs, fmt.Sprintf("%s %q: duplicate id", kind, id))
		case name == "":
			errs = append(errs, fmt.Sprintf("%s %q: name is required", kind, id))
		}
		seen[id] = true
	}
	seen := map[string]bool{}
	for _, m := range s.Materials {
		check("material", m.ID, m.Name, seen)
		if m.Color != "" {
			var c models.ARGB
			if err := c.Scan(m.Color); err != nil {
				errs = append(errs, fmt.Sprintf("material %q: color: %v", m.ID, err))
			}
		}
	}
	seen = map[string]bool{}
	for _, f := range s.Frames {
		check("frame", f.ID, f.Name, seen)
	}
	seen = map[string]bool{}
	for _, g := range s.Glazing {
		check("glazing", g.ID, g.Name, seen)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("db: invalid seed:\n  %s", strings.Join(errs, "\n  "))
	}
	return &s, nil
}

// Material converts the seed entry to its model. Color was validated by
// ParseSeed.
func (m SeedMaterial) Material() models.Material {
	out := models.Material{
		ID:           m.ID,
		Name:         m.Name,
		Category:     m.Category,
		Conductivity: m.Conductivity,
		Density:      m.Density,
		SpecificHeat: m.SpecificHeat,
		ARGB:         models.ARGB{255, 128, 128, 128},
	}
	if m.Color != "" {
		_ = out.ARGB.Scan(m.Color)
	}
	return out
}

// SeedCatalog upserts every catalog row in s, keyed by id.
func SeedCatalog(db *gorm.DB, s *Seed) error {
	for _, sm := range s.Materials {
		m := sm.Material()
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "category", "conductivity", "density", "specific_heat", "argb"}),
		}).Create(&m)
		if result.Error != nil {
			return fmt.Errorf("db: seed material %q: %w", m.ID, result.Error)
		}
	}
	for _, sf := range s.Frames {
		f := models.FrameType{ID: sf.ID, Name: sf.Name, WidthMM: sf.WidthMM, UValue: sf.UValue, PsiInstall: sf.PsiInstall}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "width_mm", "u_value", "psi_install"}),
		}).Create(&f)
		if result.Error != nil {
			return fmt.Errorf("db: seed frame %q: %w", f.ID, result.Error)
		}
	}
	for _, sg := range s.Glazing {
		g := models.GlazingType{ID: sg.ID, Name: sg.Name, UValue: sg.UValue, GValue: sg.GValue}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "u_value", "g_value"}),
		}).Create(&g)
		if result.Error != nil {
			return fmt.Errorf("db: seed glazing %q: %w", g.ID, result.Error)
		}
	}
	return nil
}
