// Package models holds the entities shared by the editing client and the
// persistence server. Struct tags serve both encoding/json and gorm.
package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/zulandar/stratum/internal/status"
)

// Orientation records which side of the assembly the first layer faces.
type Orientation string

const (
	FirstLayerOutside Orientation = "first_layer_outside"
	FirstLayerInside  Orientation = "first_layer_inside"
)

// Flipped returns the opposite orientation.
func (o Orientation) Flipped() Orientation {
	if o == FirstLayerInside {
		return FirstLayerOutside
	}
	return FirstLayerInside
}

// Assembly is one wall, roof or floor construction in a project.
type Assembly struct {
	ID          string      `json:"id" gorm:"primaryKey;size:64"`
	ProjectID   string      `json:"project_id" gorm:"size:64;not null;index"`
	Name        string      `json:"name" gorm:"size:255;not null"`
	Type        string      `json:"type" gorm:"size:32;default:wall"`
	Orientation Orientation `json:"orientation" gorm:"size:32;default:first_layer_outside"`
	RValue      *float64    `json:"r_value,omitempty"`
	Layers      []Layer     `json:"layers" gorm:"foreignKey:AssemblyID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Layer is one course of an assembly. Order is its zero-based position.
type Layer struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	AssemblyID  string    `json:"assembly_id" gorm:"size:64;not null;index"`
	Order       int       `json:"order" gorm:"column:position;not null"`
	ThicknessMM float64   `json:"thickness_mm" gorm:"not null"`
	Segments    []Segment `json:"segments" gorm:"foreignKey:LayerID;constraint:OnDelete:CASCADE"`
}

// Segment is a single-material slice of a layer.
type Segment struct {
	ID                     string        `json:"id" gorm:"primaryKey;size:64"`
	LayerID                string        `json:"layer_id" gorm:"size:64;not null;index"`
	Order                  int           `json:"order" gorm:"column:position;not null"`
	WidthMM                float64       `json:"width_mm" gorm:"not null"`
	MaterialID             string        `json:"material_id" gorm:"size:64;index"`
	SteelStudSpacingMM     *float64      `json:"steel_stud_spacing_mm"`
	IsContinuousInsulation bool          `json:"is_continuous_insulation" gorm:"default:false"`
	SpecificationStatus    status.Status `json:"specification_status" gorm:"size:16;default:na"`
	Notes                  *string       `json:"notes" gorm:"type:text"`
	SitePhotos             []Attachment  `json:"site_photos,omitempty" gorm:"-"`
	Datasheets             []Attachment  `json:"datasheets,omitempty" gorm:"-"`
}

// IsSteelStud is derived from the spacing so the flag can never be true
// while the spacing is null.
func (s Segment) IsSteelStud() bool {
	return s.SteelStudSpacingMM != nil
}

// Attachment kinds.
const (
	AttachmentSitePhoto = "site_photo"
	AttachmentDatasheet = "datasheet"
)

// Attachment is a server-owned file reference on a segment.
type Attachment struct {
	ID           uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	SegmentID    string `json:"-" gorm:"size:64;not null;index"`
	Kind         string `json:"-" gorm:"size:16;not null"`
	Reference    string `json:"reference" gorm:"size:255;not null"`
	ThumbnailURL string `json:"thumbnail_url" gorm:"size:1024"`
	FullSizeURL  string `json:"full_size_url" gorm:"size:1024"`
}

// Attachments is the response of the segment attachments endpoint.
type Attachments struct {
	SitePhotos []Attachment `json:"site_photos"`
	Datasheets []Attachment `json:"datasheets"`
}

// NullFloat is a PATCH field that distinguishes "absent" from "set to
// null". Absent fields are dropped via omitzero.
type NullFloat struct {
	Set   bool
	Value *float64
}

// SetFloat returns a NullFloat carrying v (nil clears the field).
func SetFloat(v *float64) NullFloat {
	return NullFloat{Set: true, Value: v}
}

func (n NullFloat) IsZero() bool { return !n.Set }

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// AssemblyCreate is the body of POST /api/projects/:project/assemblies.
type AssemblyCreate struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
}

// AssemblyPatch is the body of PATCH /api/assemblies/:id.
type AssemblyPatch struct {
	Name *string `json:"name,omitempty"`
}

// FlipMode selects which reordering POST /api/assemblies/:id/flip applies.
type FlipMode string

const (
	FlipOrientationMode FlipMode = "orientation"
	FlipLayersMode      FlipMode = "layers"
)

// FlipRequest is the body of POST /api/assemblies/:id/flip.
type FlipRequest struct {
	Mode FlipMode `json:"mode" binding:"required,oneof=orientation layers"`
}

// LayerCreate is the body of POST /api/assemblies/:id/layers. When
// MaterialID is set the server seeds the layer with one segment.
type LayerCreate struct {
	Order       int     `json:"order" binding:"gte=0"`
	ThicknessMM float64 `json:"thickness_mm" binding:"gt=0"`
	MaterialID  string  `json:"material_id,omitempty"`
	WidthMM     float64 `json:"width_mm,omitempty" binding:"gte=0"`
}

// LayerPatch is the body of PATCH /api/layers/:id.
type LayerPatch struct {
	ThicknessMM *float64 `json:"thickness_mm,omitempty" binding:"omitempty,gt=0"`
}

// SegmentCreate is the body of POST /api/layers/:id/segments.
type SegmentCreate struct {
	Order                  int           `json:"order" binding:"gte=0"`
	WidthMM                float64       `json:"width_mm" binding:"gt=0"`
	MaterialID             string        `json:"material_id"`
	SteelStudSpacingMM     *float64      `json:"steel_stud_spacing_mm,omitempty" binding:"omitempty,gt=0"`
	IsContinuousInsulation bool          `json:"is_continuous_insulation,omitempty"`
	SpecificationStatus    status.Status `json:"specification_status,omitempty"`
	Notes                  *string       `json:"notes,omitempty"`
}

// SegmentPatch is the body of PATCH /api/segments/:id. Only non-nil
// fields are sent and applied.
type SegmentPatch struct {
	WidthMM                *float64       `json:"width_mm,omitempty" binding:"omitempty,gt=0"`
	MaterialID             *string        `json:"material_id,omitempty"`
	SteelStudSpacingMM     NullFloat      `json:"steel_stud_spacing_mm,omitzero"`
	IsContinuousInsulation *bool          `json:"is_continuous_insulation,omitempty"`
	SpecificationStatus    *status.Status `json:"specification_status,omitempty"`
	Notes                  *string        `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SegmentPatch) Empty() bool {
	return p.WidthMM == nil && p.MaterialID == nil && !p.SteelStudSpacingMM.Set &&
		p.IsContinuousInsulation == nil && p.SpecificationStatus == nil && p.Notes == nil
}

// AttachmentCreate is the body of POST /api/segments/:id/attachments.
type AttachmentCreate struct {
	Kind         string `json:"kind" binding:"required,oneof=site_photo datasheet"`
	Reference    string `json:"reference" binding:"required"`
	ThumbnailURL string `json:"thumbnail_url"`
	FullSizeURL  string `json:"full_size_url"`
}
