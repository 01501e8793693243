package session

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
)

// AddAssembly creates an assembly on the server and adds the canonical copy
// to local state.
func (c *Coordinator) AddAssembly(ctx context.Context, name, typ string) (*models.Assembly, error) {
	name, err := assembly.ValidateName(name)
	if err != nil {
		return nil, err
	}
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	rctx, cancel := c.requestContext(ctx)
	created, err := c.remote.CreateAssembly(rctx, c.projectID, models.AssemblyCreate{Name: name, Type: typ})
	cancel()
	if err != nil {
		return nil, c.fail("Creating assembly", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a := assembly.Clone(*created)
	c.assemblies = append(c.assemblies, &a)
	out := assembly.Clone(a)
	return &out, nil
}

// DeleteAssembly removes an assembly once the server confirms. It refuses
// to run unless confirmed is true.
func (c *Coordinator) DeleteAssembly(ctx context.Context, assemblyID string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("session: delete assembly %s: %w", assemblyID, ErrConfirmationRequired)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.findAssembly(assemblyID) == nil {
		c.mu.Unlock()
		c.notFound("assembly", assemblyID)
		return nil
	}
	c.mu.Unlock()

	rctx, cancel := c.requestContext(ctx)
	err := c.remote.DeleteAssembly(rctx, assemblyID)
	cancel()
	if err != nil {
		return c.fail("Deleting assembly", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assemblies = slices.DeleteFunc(c.assemblies, func(a *models.Assembly) bool { return a.ID == assemblyID })
	return nil
}

// FlipOrientation mirrors an assembly optimistically, then reloads it from
// the server.
func (c *Coordinator) FlipOrientation(ctx context.Context, assemblyID string) error {
	return c.flip(ctx, assemblyID, models.FlipOrientationMode, assembly.FlipOrientation)
}

// FlipLayers reverses an assembly's layers optimistically, then reloads it
// from the server.
func (c *Coordinator) FlipLayers(ctx context.Context, assemblyID string) error {
	return c.flip(ctx, assemblyID, models.FlipLayersMode, assembly.FlipLayers)
}

// flip relies on both flips being their own inverse for the rollback.
func (c *Coordinator) flip(ctx context.Context, assemblyID string, mode models.FlipMode, apply func(*models.Assembly)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	a := c.findAssembly(assemblyID)
	if a == nil {
		c.mu.Unlock()
		c.notFound("assembly", assemblyID)
		return nil
	}
	apply(a)
	c.mu.Unlock()

	rctx, cancel := c.requestContext(ctx)
	_, err := c.remote.FlipAssembly(rctx, assemblyID, mode)
	cancel()
	if err != nil {
		c.mu.Lock()
		if a := c.findAssembly(assemblyID); a != nil {
			apply(a)
		}
		c.mu.Unlock()
		return c.fail("Flipping assembly", err)
	}
	return c.reload(ctx, assemblyID)
}

// reload replaces one assembly with the server's copy. A failed reload
// keeps the local copy, which already reflects the change.
func (c *Coordinator) reload(ctx context.Context, assemblyID string) error {
	rctx, cancel := c.requestContext(ctx)
	fresh, err := c.remote.GetAssembly(rctx, assemblyID)
	cancel()
	if err != nil {
		c.log.Warn("reload after flip failed, keeping local copy", "assembly", assemblyID, "error", err)
		return nil
	}
	if fresh == nil || fresh.ID != assemblyID {
		c.log.Warn("reload after flip returned another assembly, keeping local copy", "assembly", assemblyID)
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.assemblies {
		if a.ID == assemblyID {
			cp := assembly.Clone(*fresh)
			c.assemblies[i] = &cp
			break
		}
	}
	return nil
}

// AddLayer inserts a layer at index. With a material id the layer starts
// with one full-width segment of that material, as on the server.
func (c *Coordinator) AddLayer(ctx context.Context, assemblyID string, index int, thicknessMM float64, materialID string) (*models.Layer, error) {
	if err := assembly.ValidatePositive("thickness", thicknessMM); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	a := c.findAssembly(assemblyID)
	if a == nil {
		c.mu.Unlock()
		c.notFound("assembly", assemblyID)
		return nil, nil
	}
	tempID := c.newID()
	layer := models.Layer{ID: tempID, ThicknessMM: thicknessMM}
	if materialID != "" {
		if _, err := assembly.InsertSegmentAt(&layer, 0, assembly.SegmentAttrs{ID: c.newID(), MaterialID: materialID}); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	staged, err := assembly.InsertLayer(a, index, layer)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	rctx, cancel := c.requestContext(ctx)
	created, err := c.remote.CreateLayer(rctx, assemblyID, models.LayerCreate{
		Order:       staged.Order,
		ThicknessMM: thicknessMM,
		MaterialID:  materialID,
	})
	cancel()

	c.mu.Lock()
	if err != nil {
		if a := c.findAssembly(assemblyID); a != nil {
			if _, derr := assembly.DeleteLayer(a, tempID); derr != nil && !errors.Is(derr, assembly.ErrNotFound) {
				c.log.Error("rollback of layer insert failed", "layer", tempID, "error", derr)
			}
		}
		c.mu.Unlock()
		return nil, c.fail("Adding layer", err)
	}
	defer c.mu.Unlock()
	c.adoptLayer(assemblyID, tempID, *created)
	out := assembly.CloneLayer(*created)
	return &out, nil
}

// DeleteLayer removes a layer once the server confirms.
func (c *Coordinator) DeleteLayer(ctx context.Context, layerID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, l := c.findLayer(layerID); l == nil {
		c.mu.Unlock()
		c.notFound("layer", layerID)
		return nil
	}
	c.mu.Unlock()

	rctx, cancel := c.requestContext(ctx)
	err := c.remote.DeleteLayer(rctx, layerID)
	cancel()
	if err != nil {
		return c.fail("Deleting layer", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, _ := c.findLayer(layerID); a != nil {
		_, _ = assembly.DeleteLayer(a, layerID)
	}
	return nil
}

// InsertSegmentAfter inserts a segment to the right of the anchor
// optimistically under a temporary id. On success the server's copy
// replaces it; on failure it is removed again.
func (c *Coordinator) InsertSegmentAfter(ctx context.Context, anchorID string, attrs assembly.SegmentAttrs) (*models.Segment, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	_, layer, anchor := c.findSegment(anchorID)
	if anchor == nil {
		c.mu.Unlock()
		c.notFound("segment", anchorID)
		return nil, nil
	}
	layerID := layer.ID
	tempID := c.newID()
	attrs.ID = tempID
	staged, err := assembly.InsertSegmentAfter(layer, anchorID, attrs)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rctx, cancel := c.requestContext(ctx)
	created, err := c.remote.CreateSegment(rctx, layerID, models.SegmentCreate{
		Order:                  staged.Order,
		WidthMM:                staged.WidthMM,
		MaterialID:             staged.MaterialID,
		SteelStudSpacingMM:     staged.SteelStudSpacingMM,
		IsContinuousInsulation: staged.IsContinuousInsulation,
		SpecificationStatus:    staged.SpecificationStatus,
		Notes:                  staged.Notes,
	})
	cancel()

	c.mu.Lock()
	if err != nil {
		if _, l := c.findLayer(layerID); l != nil {
			if _, derr := assembly.DeleteSegment(l, tempID); derr != nil && !errors.Is(derr, assembly.ErrNotFound) {
				c.log.Error("rollback of segment insert failed", "segment", tempID, "error", derr)
			}
		}
		c.mu.Unlock()
		return nil, c.fail("Adding segment", err)
	}
	defer c.mu.Unlock()
	c.adoptSegment(layerID, tempID, *created)
	out := assembly.CloneSegment(*created)
	return &out, nil
}

// adoptSegment swaps the temporary segment for the server's copy. When a
// reload in between already dropped the temporary segment, the created one
// is placed at its server order unless the reload brought it along.
// Called with c.mu held.
func (c *Coordinator) adoptSegment(layerID, tempID string, created models.Segment) {
	a, l := c.findLayer(layerID)
	if a == nil {
		c.log.Warn("layer of created segment is gone", "layer", layerID, "segment", created.ID)
		return
	}
	if assembly.ReplaceSegment(a, tempID, assembly.CloneSegment(created)) {
		return
	}
	if _, _, s := c.findSegment(created.ID); s != nil {
		return
	}
	assembly.PlaceSegment(l, assembly.CloneSegment(created))
}

// adoptLayer is adoptSegment for layers. Called with c.mu held.
func (c *Coordinator) adoptLayer(assemblyID, tempID string, created models.Layer) {
	a := c.findAssembly(assemblyID)
	if a == nil {
		c.log.Warn("assembly of created layer is gone", "assembly", assemblyID, "layer", created.ID)
		return
	}
	if assembly.ReplaceLayer(a, tempID, assembly.CloneLayer(created)) {
		return
	}
	if _, l := c.findLayer(created.ID); l != nil {
		return
	}
	if _, err := assembly.InsertLayer(a, created.Order, assembly.CloneLayer(created)); err != nil {
		c.log.Error("failed to place created layer", "layer", created.ID, "error", err)
	}
}

// DeleteSegment removes a segment once the server confirms.
func (c *Coordinator) DeleteSegment(ctx context.Context, segmentID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, _, s := c.findSegment(segmentID); s == nil {
		c.mu.Unlock()
		c.notFound("segment", segmentID)
		return nil
	}
	c.mu.Unlock()

	rctx, cancel := c.requestContext(ctx)
	err := c.remote.DeleteSegment(rctx, segmentID)
	cancel()
	if err != nil {
		return c.fail("Deleting segment", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, l, _ := c.findSegment(segmentID); l != nil {
		_, _ = assembly.DeleteSegment(l, segmentID)
	}
	return nil
}

// Attachments fetches a segment's site photos and datasheets and keeps
// them on the local segment.
func (c *Coordinator) Attachments(ctx context.Context, segmentID string) (*models.Attachments, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	rctx, cancel := c.requestContext(ctx)
	att, err := c.remote.Attachments(rctx, segmentID)
	cancel()
	if err != nil {
		return nil, c.fail("Loading attachments", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, _, s := c.findSegment(segmentID); s != nil {
		s.SitePhotos = slices.Clone(att.SitePhotos)
		s.Datasheets = slices.Clone(att.Datasheets)
	}
	return att, nil
}
