package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// ARGB is a color as an alpha, red, green, blue quadruple.
type ARGB [4]uint8

// Value stores the color as "a,r,g,b".
func (c ARGB) Value() (driver.Value, error) {
	return fmt.Sprintf("%d,%d,%d,%d", c[0], c[1], c[2], c[3]), nil
}

// Scan reads the "a,r,g,b" form written by Value.
func (c *ARGB) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*c = ARGB{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("models: scan ARGB from %T", src)
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return fmt.Errorf("models: scan ARGB: want 4 components, got %q", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return fmt.Errorf("models: scan ARGB component %d: %w", i, err)
		}
		c[i] = uint8(n)
	}
	return nil
}

// Hex renders the color as #AARRGGBB.
func (c ARGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c[0], c[1], c[2], c[3])
}

// Material is a catalog entry. Thermal properties are SI base units.
type Material struct {
	ID           string  `json:"id" gorm:"primaryKey;size:64"`
	Name         string  `json:"name" gorm:"size:128;not null"`
	Category     string  `json:"category" gorm:"size:64;index"`
	Conductivity float64 `json:"conductivity"`  // W/m·K
	Density      float64 `json:"density"`       // kg/m³
	SpecificHeat float64 `json:"specific_heat"` // J/kg·K
	ARGB         ARGB    `json:"argb" gorm:"type:varchar(32)"`
}

// FrameType is a window frame catalog entry.
type FrameType struct {
	ID         string  `json:"id" gorm:"primaryKey;size:64"`
	Name       string  `json:"name" gorm:"size:128;not null"`
	WidthMM    float64 `json:"width_mm"`
	UValue     float64 `json:"u_value"`     // W/m²·K
	PsiInstall float64 `json:"psi_install"` // W/m·K
}

// GlazingType is a glazing catalog entry.
type GlazingType struct {
	ID     string  `json:"id" gorm:"primaryKey;size:64"`
	Name   string  `json:"name" gorm:"size:128;not null"`
	UValue float64 `json:"u_value"` // W/m²·K
	GValue float64 `json:"g_value"`
}
