// Package assembly implements the structural edits on the
// Assembly→Layer→Segment tree.
//
// Every function here is synchronous and does no I/O. A structural change
// and the renumbering that follows it happen in the same call, so a caller
// holding its own lock never exposes a half-renumbered sequence.
package assembly

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/status"
)

// DefaultSegmentWidthMM is the width a new segment gets when none is given.
const DefaultSegmentWidthMM = 50.0

var (
	// ErrNotFound means the referenced layer or segment is not in the tree.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means a dimension or name failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// SegmentAttrs holds the attributes of a segment being inserted. Zero
// values select defaults: the anchor's material for InsertSegmentAfter,
// DefaultSegmentWidthMM for the width, status.Default for the status.
type SegmentAttrs struct {
	ID                     string
	WidthMM                float64
	MaterialID             string
	SteelStudSpacingMM     *float64
	IsContinuousInsulation bool
	SpecificationStatus    status.Status
	Notes                  *string
}

// ValidatePositive rejects zero, negative, NaN and infinite dimensions.
func ValidatePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("assembly: %s must be a positive number, got %v: %w", field, v, ErrInvalidInput)
	}
	return nil
}

// ValidateName trims name and rejects it if nothing is left.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("assembly: name is required: %w", ErrInvalidInput)
	}
	return trimmed, nil
}

func renumberSegments(segs []models.Segment) {
	for i := range segs {
		segs[i].Order = i
	}
}

func renumberLayers(layers []models.Layer) {
	for i := range layers {
		layers[i].Order = i
	}
}

func segmentIndex(layer *models.Layer, id string) int {
	return slices.IndexFunc(layer.Segments, func(s models.Segment) bool { return s.ID == id })
}

func layerIndex(a *models.Assembly, id string) int {
	return slices.IndexFunc(a.Layers, func(l models.Layer) bool { return l.ID == id })
}

func newSegment(layerID string, attrs SegmentAttrs) (models.Segment, error) {
	width := attrs.WidthMM
	if width == 0 {
		width = DefaultSegmentWidthMM
	}
	if err := ValidatePositive("width", width); err != nil {
		return models.Segment{}, err
	}
	if attrs.SteelStudSpacingMM != nil {
		if err := ValidatePositive("steel stud spacing", *attrs.SteelStudSpacingMM); err != nil {
			return models.Segment{}, err
		}
	}
	st := attrs.SpecificationStatus
	if st == "" {
		st = status.Default
	}
	if !st.Valid() {
		return models.Segment{}, fmt.Errorf("assembly: specification status %q: %w", st, ErrInvalidInput)
	}
	return models.Segment{
		ID:                     attrs.ID,
		LayerID:                layerID,
		WidthMM:                width,
		MaterialID:             attrs.MaterialID,
		SteelStudSpacingMM:     cloneFloat(attrs.SteelStudSpacingMM),
		IsContinuousInsulation: attrs.IsContinuousInsulation,
		SpecificationStatus:    st,
		Notes:                  cloneString(attrs.Notes),
	}, nil
}

// InsertSegmentAt inserts a new segment at index (clamped to the valid
// range) and renumbers the layer. It returns a copy of the new segment.
func InsertSegmentAt(layer *models.Layer, index int, attrs SegmentAttrs) (models.Segment, error) {
	seg, err := newSegment(layer.ID, attrs)
	if err != nil {
		return models.Segment{}, err
	}
	index = max(0, min(index, len(layer.Segments)))
	layer.Segments = slices.Insert(layer.Segments, index, seg)
	renumberSegments(layer.Segments)
	return layer.Segments[index], nil
}

// InsertSegmentAfter inserts a segment directly to the right of the anchor,
// at order anchor.Order+1, inheriting the anchor's material unless attrs
// names another one.
func InsertSegmentAfter(layer *models.Layer, anchorID string, attrs SegmentAttrs) (models.Segment, error) {
	idx := segmentIndex(layer, anchorID)
	if idx < 0 {
		return models.Segment{}, fmt.Errorf("assembly: anchor segment %s in layer %s: %w", anchorID, layer.ID, ErrNotFound)
	}
	if attrs.MaterialID == "" {
		attrs.MaterialID = layer.Segments[idx].MaterialID
	}
	// With contiguous orders the anchor's position is its order, so idx+1
	// is anchor.Order+1.
	return InsertSegmentAt(layer, idx+1, attrs)
}

// DeleteSegment removes a segment and renumbers the rest. The layer is
// left untouched when the id is absent.
func DeleteSegment(layer *models.Layer, segmentID string) (models.Segment, error) {
	idx := segmentIndex(layer, segmentID)
	if idx < 0 {
		return models.Segment{}, fmt.Errorf("assembly: segment %s in layer %s: %w", segmentID, layer.ID, ErrNotFound)
	}
	removed := layer.Segments[idx]
	layer.Segments = slices.Delete(layer.Segments, idx, idx+1)
	renumberSegments(layer.Segments)
	return removed, nil
}

// InsertLayer inserts layer at index (clamped) and renumbers.
func InsertLayer(a *models.Assembly, index int, layer models.Layer) (models.Layer, error) {
	if err := ValidatePositive("thickness", layer.ThicknessMM); err != nil {
		return models.Layer{}, err
	}
	layer.AssemblyID = a.ID
	for i := range layer.Segments {
		layer.Segments[i].LayerID = layer.ID
	}
	renumberSegments(layer.Segments)
	index = max(0, min(index, len(a.Layers)))
	a.Layers = slices.Insert(a.Layers, index, layer)
	renumberLayers(a.Layers)
	return a.Layers[index], nil
}

// DeleteLayer removes a layer together with its segments and renumbers.
func DeleteLayer(a *models.Assembly, layerID string) (models.Layer, error) {
	idx := layerIndex(a, layerID)
	if idx < 0 {
		return models.Layer{}, fmt.Errorf("assembly: layer %s in assembly %s: %w", layerID, a.ID, ErrNotFound)
	}
	removed := a.Layers[idx]
	a.Layers = slices.Delete(a.Layers, idx, idx+1)
	renumberLayers(a.Layers)
	return removed, nil
}

// FlipLayers reverses the layer sequence. Segments keep their order.
func FlipLayers(a *models.Assembly) {
	slices.Reverse(a.Layers)
	renumberLayers(a.Layers)
}

// FlipOrientation mirrors the assembly: layers are reversed, the segments
// of every layer are reversed, and the orientation tag is toggled.
func FlipOrientation(a *models.Assembly) {
	FlipLayers(a)
	for i := range a.Layers {
		slices.Reverse(a.Layers[i].Segments)
		renumberSegments(a.Layers[i].Segments)
	}
	a.Orientation = a.Orientation.Flipped()
}

// ResizeSegment sets a segment's width.
func ResizeSegment(a *models.Assembly, segmentID string, widthMM float64) error {
	if err := ValidatePositive("width", widthMM); err != nil {
		return err
	}
	_, seg := FindSegment(a, segmentID)
	if seg == nil {
		return fmt.Errorf("assembly: segment %s: %w", segmentID, ErrNotFound)
	}
	seg.WidthMM = widthMM
	return nil
}

// ResizeLayer sets a layer's thickness.
func ResizeLayer(a *models.Assembly, layerID string, thicknessMM float64) error {
	if err := ValidatePositive("thickness", thicknessMM); err != nil {
		return err
	}
	layer := FindLayer(a, layerID)
	if layer == nil {
		return fmt.Errorf("assembly: layer %s: %w", layerID, ErrNotFound)
	}
	layer.ThicknessMM = thicknessMM
	return nil
}

// SetSteelStudSpacing sets or clears (nil) the spacing. The steel-stud
// flag is derived from it, so the two can never disagree.
func SetSteelStudSpacing(seg *models.Segment, spacingMM *float64) error {
	if spacingMM != nil {
		if err := ValidatePositive("steel stud spacing", *spacingMM); err != nil {
			return err
		}
	}
	seg.SteelStudSpacingMM = cloneFloat(spacingMM)
	return nil
}

// FindLayer returns a pointer into a.Layers, valid until the next
// structural change, or nil.
func FindLayer(a *models.Assembly, layerID string) *models.Layer {
	if i := layerIndex(a, layerID); i >= 0 {
		return &a.Layers[i]
	}
	return nil
}

// FindSegment returns the owning layer and the segment, or nils.
func FindSegment(a *models.Assembly, segmentID string) (*models.Layer, *models.Segment) {
	for li := range a.Layers {
		if si := segmentIndex(&a.Layers[li], segmentID); si >= 0 {
			return &a.Layers[li], &a.Layers[li].Segments[si]
		}
	}
	return nil, nil
}

// ReplaceSegment swaps the segment with id oldID for seg, keeping its
// position. Used to install the server's canonical copy of a segment that
// was inserted locally under a temporary id.
func ReplaceSegment(a *models.Assembly, oldID string, seg models.Segment) bool {
	layer, cur := FindSegment(a, oldID)
	if cur == nil {
		return false
	}
	seg.LayerID = layer.ID
	seg.Order = cur.Order
	*cur = seg
	return true
}

// PlaceSegment inserts an existing segment at its own order (clamped) and
// renumbers the layer. It returns the placed copy.
func PlaceSegment(layer *models.Layer, seg models.Segment) models.Segment {
	seg.LayerID = layer.ID
	index := max(0, min(seg.Order, len(layer.Segments)))
	layer.Segments = slices.Insert(layer.Segments, index, seg)
	renumberSegments(layer.Segments)
	return layer.Segments[index]
}

// ReplaceLayer swaps the layer with id oldID for layer, keeping its position.
func ReplaceLayer(a *models.Assembly, oldID string, layer models.Layer) bool {
	cur := FindLayer(a, oldID)
	if cur == nil {
		return false
	}
	layer.AssemblyID = a.ID
	layer.Order = cur.Order
	for i := range layer.Segments {
		layer.Segments[i].LayerID = layer.ID
	}
	renumberSegments(layer.Segments)
	*cur = layer
	return true
}

// TotalThickness sums the layer thicknesses.
func TotalThickness(a *models.Assembly) float64 {
	var total float64
	for _, l := range a.Layers {
		total += l.ThicknessMM
	}
	return total
}

// MaterialIDs returns the distinct material references in first-seen order.
func MaterialIDs(a *models.Assembly) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, l := range a.Layers {
		for _, s := range l.Segments {
			if s.MaterialID != "" && !seen[s.MaterialID] {
				seen[s.MaterialID] = true
				ids = append(ids, s.MaterialID)
			}
		}
	}
	return ids
}

// Check verifies the ordering invariants of the whole tree and returns
// every violation joined.
func Check(a *models.Assembly) error {
	var errs []error
	layerIDs := make(map[string]bool)
	for i, l := range a.Layers {
		if l.Order != i {
			errs = append(errs, fmt.Errorf("layer %s: order %d at position %d", l.ID, l.Order, i))
		}
		if layerIDs[l.ID] {
			errs = append(errs, fmt.Errorf("layer %s: duplicate id", l.ID))
		}
		layerIDs[l.ID] = true
		if l.AssemblyID != a.ID {
			errs = append(errs, fmt.Errorf("layer %s: assembly id %q, want %q", l.ID, l.AssemblyID, a.ID))
		}
		segIDs := make(map[string]bool)
		for j, s := range l.Segments {
			if s.Order != j {
				errs = append(errs, fmt.Errorf("segment %s: order %d at position %d", s.ID, s.Order, j))
			}
			if segIDs[s.ID] {
				errs = append(errs, fmt.Errorf("segment %s: duplicate id", s.ID))
			}
			segIDs[s.ID] = true
			if s.LayerID != l.ID {
				errs = append(errs, fmt.Errorf("segment %s: layer id %q, want %q", s.ID, s.LayerID, l.ID))
			}
			if s.SteelStudSpacingMM != nil && *s.SteelStudSpacingMM <= 0 {
				errs = append(errs, fmt.Errorf("segment %s: steel stud spacing %v", s.ID, *s.SteelStudSpacingMM))
			}
		}
	}
	return errors.Join(errs...)
}

// Clone deep-copies an assembly.
func Clone(a models.Assembly) models.Assembly {
	out := a
	out.RValue = cloneFloat(a.RValue)
	out.Layers = make([]models.Layer, len(a.Layers))
	for i, l := range a.Layers {
		out.Layers[i] = CloneLayer(l)
	}
	return out
}

// CloneLayer deep-copies a layer.
func CloneLayer(l models.Layer) models.Layer {
	out := l
	out.Segments = make([]models.Segment, len(l.Segments))
	for i, s := range l.Segments {
		out.Segments[i] = CloneSegment(s)
	}
	return out
}

// CloneSegment deep-copies a segment.
func CloneSegment(s models.Segment) models.Segment {
	out := s
	out.SteelStudSpacingMM = cloneFloat(s.SteelStudSpacingMM)
	out.Notes = cloneString(s.Notes)
	out.SitePhotos = slices.Clone(s.SitePhotos)
	out.Datasheets = slices.Clone(s.Datasheets)
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
