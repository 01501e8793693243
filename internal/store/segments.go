package store

import (
	"fmt"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"gorm.io/gorm"
)

// GetSegment loads one segment.
func GetSegment(db *gorm.DB, id string) (*models.Segment, error) {
	var s models.Segment
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err, "segment", id)
	}
	return &s, nil
}

// CreateSegment inserts a segment at req.Order and renumbers the layer.
func CreateSegment(db *gorm.DB, layerID string, req models.SegmentCreate) (*models.Segment, error) {
	var out models.Segment
	err := db.Transaction(func(tx *gorm.DB) error {
		l, err := GetLayer(tx, layerID)
		if err != nil {
			return err
		}
		out, err = assembly.InsertSegmentAt(l, req.Order, assembly.SegmentAttrs{
			ID:                     NewID(),
			WidthMM:                req.WidthMM,
			MaterialID:             req.MaterialID,
			SteelStudSpacingMM:     req.SteelStudSpacingMM,
			IsContinuousInsulation: req.IsContinuousInsulation,
			SpecificationStatus:    req.SpecificationStatus,
			Notes:                  req.Notes,
		})
		if err != nil {
			return err
		}
		if err := tx.Create(&out).Error; err != nil {
			return fmt.Errorf("store: create segment: %w", err)
		}
		return saveSegmentPositions(tx, l)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSegment applies every field set in patch. An empty notes string
// clears the notes.
func UpdateSegment(db *gorm.DB, id string, patch models.SegmentPatch) (*models.Segment, error) {
	var out *models.Segment
	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := GetSegment(tx, id)
		if err != nil {
			return err
		}
		if patch.WidthMM != nil {
			if err := assembly.ValidatePositive("width", *patch.WidthMM); err != nil {
				return err
			}
			s.WidthMM = *patch.WidthMM
		}
		if patch.MaterialID != nil {
			if *patch.MaterialID == "" {
				return invalid("material id is required")
			}
			s.MaterialID = *patch.MaterialID
		}
		if patch.SteelStudSpacingMM.Set {
			if err := assembly.SetSteelStudSpacing(s, patch.SteelStudSpacingMM.Value); err != nil {
				return err
			}
		}
		if patch.IsContinuousInsulation != nil {
			s.IsContinuousInsulation = *patch.IsContinuousInsulation
		}
		if patch.SpecificationStatus != nil {
			if !patch.SpecificationStatus.Valid() {
				return invalid("specification status %q", *patch.SpecificationStatus)
			}
			s.SpecificationStatus = *patch.SpecificationStatus
		}
		if patch.Notes != nil {
			if *patch.Notes == "" {
				s.Notes = nil
			} else {
				notes := *patch.Notes
				s.Notes = &notes
			}
		}
		if err := tx.Save(s).Error; err != nil {
			return fmt.Errorf("store: update segment %s: %w", id, err)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSegment removes a segment and renumbers its layer.
func DeleteSegment(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		s, err := GetSegment(tx, id)
		if err != nil {
			return err
		}
		l, err := GetLayer(tx, s.LayerID)
		if err != nil {
			return err
		}
		if _, err := assembly.DeleteSegment(l, id); err != nil {
			return notFound(gorm.ErrRecordNotFound, "segment", id)
		}
		if err := deleteSegments(tx, []string{id}); err != nil {
			return err
		}
		return saveSegmentPositions(tx, l)
	})
}

// SegmentAttachments lists a segment's site photos and datasheets.
func SegmentAttachments(db *gorm.DB, segmentID string) (*models.Attachments, error) {
	if _, err := GetSegment(db, segmentID); err != nil {
		return nil, err
	}
	var rows []models.Attachment
	if err := db.Where("segment_id = ?", segmentID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list attachments of %s: %w", segmentID, err)
	}
	out := &models.Attachments{SitePhotos: []models.Attachment{}, Datasheets: []models.Attachment{}}
	for _, r := range rows {
		switch r.Kind {
		case models.AttachmentSitePhoto:
			out.SitePhotos = append(out.SitePhotos, r)
		case models.AttachmentDatasheet:
			out.Datasheets = append(out.Datasheets, r)
		}
	}
	return out, nil
}

// AddAttachment records a file reference on a segment.
func AddAttachment(db *gorm.DB, segmentID string, req models.AttachmentCreate) (*models.Attachment, error) {
	if req.Kind != models.AttachmentSitePhoto && req.Kind != models.AttachmentDatasheet {
		return nil, invalid("attachment kind %q", req.Kind)
	}
	if req.Reference == "" {
		return nil, invalid("attachment reference is required")
	}
	if _, err := GetSegment(db, segmentID); err != nil {
		return nil, err
	}
	att := models.Attachment{
		SegmentID:    segmentID,
		Kind:         req.Kind,
		Reference:    req.Reference,
		ThumbnailURL: req.ThumbnailURL,
		FullSizeURL:  req.FullSizeURL,
	}
	if err := db.Create(&att).Error; err != nil {
		return nil, fmt.Errorf("store: add attachment to %s: %w", segmentID, err)
	}
	return &att, nil
}
