package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zulandar/stratum/internal/models"
)

// Decode unmarshals a raw catalog into a fresh slice owned by the caller.
func Decode[T any](key string, raw json.RawMessage) ([]T, error) {
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", key, err)
	}
	return out, nil
}

func load[T any](ctx context.Context, c *Cache, key string) ([]T, error) {
	raw, err := c.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Decode[T](key, raw)
}

// Materials returns a snapshot of the materials catalog.
func (c *Cache) Materials(ctx context.Context) ([]models.Material, error) {
	return load[models.Material](ctx, c, Materials)
}

// FrameTypes returns a snapshot of the frame types catalog.
func (c *Cache) FrameTypes(ctx context.Context) ([]models.FrameType, error) {
	return load[models.FrameType](ctx, c, Frames)
}

// GlazingTypes returns a snapshot of the glazing types catalog.
func (c *Cache) GlazingTypes(ctx context.Context) ([]models.GlazingType, error) {
	return load[models.GlazingType](ctx, c, Glazing)
}

// MaterialIndex maps material id to material for resolving segment
// references. It falls back to a stale catalog when the refresh fails.
func (c *Cache) MaterialIndex(ctx context.Context) (map[string]models.Material, error) {
	raw, _, err := c.LoadOrStale(ctx, Materials)
	if err != nil {
		return nil, err
	}
	mats, err := Decode[models.Material](Materials, raw)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]models.Material, len(mats))
	for _, m := range mats {
		idx[m.ID] = m
	}
	return idx, nil
}
