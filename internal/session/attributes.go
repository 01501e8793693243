package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/status"
	"golang.org/x/sync/errgroup"
)

// Field names, as used by Pending.
const (
	FieldName                 = "name"
	FieldThickness            = "thickness_mm"
	FieldWidth                = "width_mm"
	FieldMaterial             = "material_id"
	FieldSteelStudSpacing     = "steel_stud_spacing_mm"
	FieldContinuousInsulation = "is_continuous_insulation"
	FieldNotes                = "notes"
	FieldSpecificationStatus  = "specification_status"
)

// fieldRef binds one editable attribute to its place in the local tree and
// to the request that persists it. get and set run with c.mu held. check
// validates the value the server echoed before it is committed.
type fieldRef[T any] struct {
	kind  string
	name  string
	op    string
	get   func(c *Coordinator, id string) (T, bool)
	set   func(c *Coordinator, id string, v T)
	send  func(ctx context.Context, r Remote, id string, v T) (T, error)
	check func(v T) error
}

func segmentRef[T any](name, op string, get func(*models.Segment) T, set func(*models.Segment, T) error, patch func(T) models.SegmentPatch, check func(T) error) fieldRef[T] {
	return fieldRef[T]{
		kind: "segment",
		name: name,
		op:   op,
		get: func(c *Coordinator, id string) (T, bool) {
			_, _, s := c.findSegment(id)
			if s == nil {
				var zero T
				return zero, false
			}
			return get(s), true
		},
		set: func(c *Coordinator, id string, v T) {
			if _, _, s := c.findSegment(id); s != nil {
				if err := set(s, v); err != nil {
					c.log.Error("failed to apply segment attribute", "segment", id, "field", name, "error", err)
				}
			}
		},
		send: func(ctx context.Context, r Remote, id string, v T) (T, error) {
			seg, err := r.UpdateSegment(ctx, id, patch(v))
			if err != nil {
				var zero T
				return zero, err
			}
			return get(seg), nil
		},
		check: check,
	}
}

func checkMaterial(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("session: material id is required: %w", assembly.ErrInvalidInput)
	}
	return nil
}

func checkSpacing(v *float64) error {
	if v == nil {
		return nil
	}
	return assembly.ValidatePositive("steel stud spacing", *v)
}

func checkStatus(v status.Status) error {
	if !v.Valid() {
		return fmt.Errorf("session: specification status %q: %w", v, assembly.ErrInvalidInput)
	}
	return nil
}

func checkName(v string) error {
	_, err := assembly.ValidateName(v)
	return err
}

var (
	widthRef = segmentRef(FieldWidth, "Saving segment width",
		func(s *models.Segment) float64 { return s.WidthMM },
		func(s *models.Segment, v float64) error { s.WidthMM = v; return nil },
		func(v float64) models.SegmentPatch { return models.SegmentPatch{WidthMM: &v} },
		func(v float64) error { return assembly.ValidatePositive("width", v) })

	materialRef = segmentRef(FieldMaterial, "Saving segment material",
		func(s *models.Segment) string { return s.MaterialID },
		func(s *models.Segment, v string) error { s.MaterialID = v; return nil },
		func(v string) models.SegmentPatch { return models.SegmentPatch{MaterialID: &v} },
		checkMaterial)

	steelStudRef = segmentRef(FieldSteelStudSpacing, "Saving steel stud spacing",
		func(s *models.Segment) *float64 { return s.SteelStudSpacingMM },
		assembly.SetSteelStudSpacing,
		func(v *float64) models.SegmentPatch { return models.SegmentPatch{SteelStudSpacingMM: models.SetFloat(v)} },
		checkSpacing)

	continuousInsulationRef = segmentRef(FieldContinuousInsulation, "Saving continuous insulation",
		func(s *models.Segment) bool { return s.IsContinuousInsulation },
		func(s *models.Segment, v bool) error { s.IsContinuousInsulation = v; return nil },
		func(v bool) models.SegmentPatch { return models.SegmentPatch{IsContinuousInsulation: &v} },
		nil)

	notesRef = segmentRef(FieldNotes, "Saving notes",
		func(s *models.Segment) string {
			if s.Notes == nil {
				return ""
			}
			return *s.Notes
		},
		func(s *models.Segment, v string) error {
			if v == "" {
				s.Notes = nil
				return nil
			}
			s.Notes = &v
			return nil
		},
		func(v string) models.SegmentPatch { return models.SegmentPatch{Notes: &v} },
		nil)

	statusRef = segmentRef(FieldSpecificationStatus, "Saving specification status",
		func(s *models.Segment) status.Status { return s.SpecificationStatus },
		func(s *models.Segment, v status.Status) error { s.SpecificationStatus = v; return nil },
		func(v status.Status) models.SegmentPatch { return models.SegmentPatch{SpecificationStatus: &v} },
		checkStatus)

	thicknessRef = fieldRef[float64]{
		kind: "layer",
		name: FieldThickness,
		op:   "Saving layer thickness",
		get: func(c *Coordinator, id string) (float64, bool) {
			_, l := c.findLayer(id)
			if l == nil {
				return 0, false
			}
			return l.ThicknessMM, true
		},
		set: func(c *Coordinator, id string, v float64) {
			if _, l := c.findLayer(id); l != nil {
				l.ThicknessMM = v
			}
		},
		send: func(ctx context.Context, r Remote, id string, v float64) (float64, error) {
			l, err := r.UpdateLayer(ctx, id, models.LayerPatch{ThicknessMM: &v})
			if err != nil {
				return 0, err
			}
			return l.ThicknessMM, nil
		},
		check: func(v float64) error { return assembly.ValidatePositive("thickness", v) },
	}

	nameRef = fieldRef[string]{
		kind: "assembly",
		name: FieldName,
		op:   "Renaming assembly",
		get: func(c *Coordinator, id string) (string, bool) {
			a := c.findAssembly(id)
			if a == nil {
				return "", false
			}
			return a.Name, true
		},
		set: func(c *Coordinator, id string, v string) {
			if a := c.findAssembly(id); a != nil {
				a.Name = v
			}
		},
		send: func(ctx context.Context, r Remote, id string, v string) (string, error) {
			a, err := r.UpdateAssembly(ctx, id, models.AssemblyPatch{Name: &v})
			if err != nil {
				return "", err
			}
			return a.Name, nil
		},
		check: checkName,
	}
)

// edit runs one optimistic stage, submit, commit-or-revert cycle.
func edit[T any](ctx context.Context, c *Coordinator, ref fieldRef[T], id string, v T) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	cur, ok := ref.get(c, id)
	if !ok {
		c.mu.Unlock()
		c.notFound(ref.kind, id)
		return nil
	}
	key := fieldKey{kind: ref.kind, id: id, name: ref.name}
	fld, ok := c.fields[key]
	if !ok {
		fld = NewField[any](cur)
		c.fields[key] = fld
	}
	t := fld.Stage(v)
	ref.set(c, id, v)
	c.mu.Unlock()

	rctx, cancel := c.requestContext(ctx)
	echo, err := ref.send(rctx, c.remote, id, v)
	cancel()
	if err == nil && ref.check != nil {
		if cerr := ref.check(echo); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidResponse, cerr)
		}
	}

	c.mu.Lock()
	if err != nil {
		if fld.Fail(t) && !c.closed {
			ref.set(c, id, fld.Value().(T))
		}
		c.release(key, fld)
		c.mu.Unlock()
		return c.fail(ref.op, err)
	}
	if fld.Succeed(t, echo) && !c.closed {
		ref.set(c, id, echo)
	}
	c.release(key, fld)
	c.mu.Unlock()
	return nil
}

// release forgets a field once nothing is in flight for it. Called with
// c.mu held.
func (c *Coordinator) release(key fieldKey, fld *Field[any]) {
	if fld.Outstanding() == 0 && c.fields[key] == fld {
		delete(c.fields, key)
	}
}

// RenameAssembly changes an assembly's name.
func (c *Coordinator) RenameAssembly(ctx context.Context, assemblyID, name string) error {
	name, err := assembly.ValidateName(name)
	if err != nil {
		return err
	}
	return edit(ctx, c, nameRef, assemblyID, name)
}

// ResizeLayer changes a layer's thickness.
func (c *Coordinator) ResizeLayer(ctx context.Context, layerID string, thicknessMM float64) error {
	if err := assembly.ValidatePositive("thickness", thicknessMM); err != nil {
		return err
	}
	return edit(ctx, c, thicknessRef, layerID, thicknessMM)
}

// ResizeSegment changes a segment's width.
func (c *Coordinator) ResizeSegment(ctx context.Context, segmentID string, widthMM float64) error {
	if err := assembly.ValidatePositive("width", widthMM); err != nil {
		return err
	}
	return edit(ctx, c, widthRef, segmentID, widthMM)
}

// SetMaterial points a segment at another catalog material.
func (c *Coordinator) SetMaterial(ctx context.Context, segmentID, materialID string) error {
	materialID = strings.TrimSpace(materialID)
	if err := checkMaterial(materialID); err != nil {
		return err
	}
	return edit(ctx, c, materialRef, segmentID, materialID)
}

// SetSteelStudSpacing sets the stud spacing; nil makes the segment a
// non-steel-stud segment.
func (c *Coordinator) SetSteelStudSpacing(ctx context.Context, segmentID string, spacingMM *float64) error {
	if spacingMM != nil {
		if err := assembly.ValidatePositive("steel stud spacing", *spacingMM); err != nil {
			return err
		}
		v := *spacingMM
		spacingMM = &v
	}
	return edit(ctx, c, steelStudRef, segmentID, spacingMM)
}

// SetContinuousInsulation sets the continuous-insulation flag.
func (c *Coordinator) SetContinuousInsulation(ctx context.Context, segmentID string, on bool) error {
	return edit(ctx, c, continuousInsulationRef, segmentID, on)
}

// SetNotes replaces a segment's notes; an empty string clears them.
func (c *Coordinator) SetNotes(ctx context.Context, segmentID, notes string) error {
	return edit(ctx, c, notesRef, segmentID, notes)
}

// SetStatus changes a segment's specification status.
func (c *Coordinator) SetStatus(ctx context.Context, segmentID string, st status.Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	return edit(ctx, c, statusRef, segmentID, st)
}

// SaveSegment submits every attribute set in p as its own request, in
// parallel. Each attribute commits or reverts independently; the first
// error is returned. Nothing is sent when any attribute is invalid.
func (c *Coordinator) SaveSegment(ctx context.Context, segmentID string, p models.SegmentPatch) error {
	if err := validatePatch(p); err != nil {
		return err
	}
	var g errgroup.Group
	if p.WidthMM != nil {
		v := *p.WidthMM
		g.Go(func() error { return edit(ctx, c, widthRef, segmentID, v) })
	}
	if p.MaterialID != nil {
		v := strings.TrimSpace(*p.MaterialID)
		g.Go(func() error { return edit(ctx, c, materialRef, segmentID, v) })
	}
	if p.SteelStudSpacingMM.Set {
		v := p.SteelStudSpacingMM.Value
		g.Go(func() error { return edit(ctx, c, steelStudRef, segmentID, v) })
	}
	if p.IsContinuousInsulation != nil {
		v := *p.IsContinuousInsulation
		g.Go(func() error { return edit(ctx, c, continuousInsulationRef, segmentID, v) })
	}
	if p.Notes != nil {
		v := *p.Notes
		g.Go(func() error { return edit(ctx, c, notesRef, segmentID, v) })
	}
	if p.SpecificationStatus != nil {
		v := *p.SpecificationStatus
		g.Go(func() error { return edit(ctx, c, statusRef, segmentID, v) })
	}
	return g.Wait()
}

func validatePatch(p models.SegmentPatch) error {
	if p.WidthMM != nil {
		if err := assembly.ValidatePositive("width", *p.WidthMM); err != nil {
			return err
		}
	}
	if p.MaterialID != nil && strings.TrimSpace(*p.MaterialID) == "" {
		return fmt.Errorf("session: material id is required: %w", assembly.ErrInvalidInput)
	}
	if p.SteelStudSpacingMM.Set && p.SteelStudSpacingMM.Value != nil {
		if err := assembly.ValidatePositive("steel stud spacing", *p.SteelStudSpacingMM.Value); err != nil {
			return err
		}
	}
	if p.SpecificationStatus != nil && !p.SpecificationStatus.Valid() {
		return fmt.Errorf("session: specification status %q: %w", *p.SpecificationStatus, assembly.ErrInvalidInput)
	}
	return nil
}
