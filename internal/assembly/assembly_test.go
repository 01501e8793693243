package assembly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/status"
)

func makeLayer(id string, widths ...float64) models.Layer {
	l := models.Layer{ID: id, AssemblyID: "asm-1", ThicknessMM: 100}
	for i, w := range widths {
		l.Segments = append(l.Segments, models.Segment{
			ID:                  fmt.Sprintf("%s-s%d", id, i),
			LayerID:             id,
			Order:               i,
			WidthMM:             w,
			MaterialID:          fmt.Sprintf("mat-%d", i),
			SpecificationStatus: status.NA,
		})
	}
	return l
}

func makeAssembly(layers ...models.Layer) models.Assembly {
	a := models.Assembly{ID: "asm-1", Name: "Exterior wall", Orientation: models.FirstLayerOutside}
	for i, l := range layers {
		l.Order = i
		a.Layers = append(a.Layers, l)
	}
	return a
}

func orders(segs []models.Segment) []int {
	out := make([]int, len(segs))
	for i, s := range segs {
		out[i] = s.Order
	}
	return out
}

func widths(segs []models.Segment) []float64 {
	out := make([]float64, len(segs))
	for i, s := range segs {
		out[i] = s.WidthMM
	}
	return out
}

func assertContiguous(t *testing.T, segs []models.Segment) {
	t.Helper()
	seen := make(map[int]bool)
	for i, s := range segs {
		if s.Order != i {
			t.Fatalf("segment %s order = %d at index %d; orders = %v", s.ID, s.Order, i, orders(segs))
		}
		if seen[s.Order] {
			t.Fatalf("duplicate order %d", s.Order)
		}
		seen[s.Order] = true
	}
}

func TestInsertSegmentAfter_MiddleOfThree(t *testing.T) {
	layer := makeLayer("L1", 50, 50, 50)

	seg, err := InsertSegmentAfter(&layer, "L1-s1", SegmentAttrs{ID: "new", WidthMM: 25})
	if err != nil {
		t.Fatalf("InsertSegmentAfter: %v", err)
	}

	if got := orders(layer.Segments); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Errorf("orders = %v, want [0 1 2 3]", got)
	}
	if got := widths(layer.Segments); !reflect.DeepEqual(got, []float64{50, 50, 25, 50}) {
		t.Errorf("widths = %v, want [50 50 25 50]", got)
	}
	if layer.Segments[2].ID != "new" || seg.Order != 2 {
		t.Errorf("new segment at %q order %d, want index 2", layer.Segments[2].ID, seg.Order)
	}
}

func TestInsertSegmentAfter_Defaults(t *testing.T) {
	layer := makeLayer("L1", 80)
	seg, err := InsertSegmentAfter(&layer, "L1-s0", SegmentAttrs{ID: "new"})
	if err != nil {
		t.Fatalf("InsertSegmentAfter: %v", err)
	}
	if seg.WidthMM != DefaultSegmentWidthMM {
		t.Errorf("width = %v, want default %v", seg.WidthMM, DefaultSegmentWidthMM)
	}
	if seg.MaterialID != "mat-0" {
		t.Errorf("material = %q, want inherited mat-0", seg.MaterialID)
	}
	if seg.SpecificationStatus != status.NA {
		t.Errorf("status = %q, want na", seg.SpecificationStatus)
	}
	if seg.LayerID != "L1" {
		t.Errorf("layer id = %q", seg.LayerID)
	}

	seg, err = InsertSegmentAfter(&layer, "new", SegmentAttrs{ID: "other", MaterialID: "mat-x"})
	if err != nil {
		t.Fatalf("InsertSegmentAfter: %v", err)
	}
	if seg.MaterialID != "mat-x" {
		t.Errorf("explicit material overridden: %q", seg.MaterialID)
	}
}

func TestInsertSegmentAfter_Errors(t *testing.T) {
	layer := makeLayer("L1", 50, 50)
	before := CloneLayer(layer)

	if _, err := InsertSegmentAfter(&layer, "missing", SegmentAttrs{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing anchor err = %v, want ErrNotFound", err)
	}
	if _, err := InsertSegmentAfter(&layer, "L1-s0", SegmentAttrs{WidthMM: -5}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative width err = %v, want ErrInvalidInput", err)
	}
	bad := -1.0
	if _, err := InsertSegmentAfter(&layer, "L1-s0", SegmentAttrs{SteelStudSpacingMM: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative spacing err = %v, want ErrInvalidInput", err)
	}
	if _, err := InsertSegmentAfter(&layer, "L1-s0", SegmentAttrs{SpecificationStatus: "done"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad status err = %v, want ErrInvalidInput", err)
	}
	if !reflect.DeepEqual(layer, before) {
		t.Error("failed inserts mutated the layer")
	}
}

func TestInsertThenDeleteRestores(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for anchor := 0; anchor < n; anchor++ {
			ws := make([]float64, n)
			for i := range ws {
				ws[i] = float64(10 * (i + 1))
			}
			layer := makeLayer("L", ws...)
			original := CloneLayer(layer)

			if _, err := InsertSegmentAfter(&layer, fmt.Sprintf("L-s%d", anchor), SegmentAttrs{ID: "tmp"}); err != nil {
				t.Fatalf("insert: %v", err)
			}
			assertContiguous(t, layer.Segments)
			if _, err := DeleteSegment(&layer, "tmp"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if !reflect.DeepEqual(layer.Segments, original.Segments) {
				t.Errorf("n=%d anchor=%d: insert+delete = %v, want %v", n, anchor, layer.Segments, original.Segments)
			}
		}
	}
}

func TestDeleteSegment(t *testing.T) {
	layer := makeLayer("L1", 10, 20, 30)
	removed, err := DeleteSegment(&layer, "L1-s0")
	if err != nil {
		t.Fatalf("DeleteSegment: %v", err)
	}
	if removed.ID != "L1-s0" {
		t.Errorf("removed = %q", removed.ID)
	}
	assertContiguous(t, layer.Segments)
	if got := widths(layer.Segments); !reflect.DeepEqual(got, []float64{20, 30}) {
		t.Errorf("widths = %v, want stable [20 30]", got)
	}

	if _, err := DeleteSegment(&layer, "L1-s0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	DeleteSegment(&layer, "L1-s1")
	DeleteSegment(&layer, "L1-s2")
	if len(layer.Segments) != 0 {
		t.Errorf("expected empty layer, got %d segments", len(layer.Segments))
	}
}

func TestRandomEditsKeepOrdersContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	layer := makeLayer("L", 50)
	next := 0
	for step := 0; step < 500; step++ {
		if len(layer.Segments) == 0 || rng.Intn(3) > 0 {
			if len(layer.Segments) == 0 {
				InsertSegmentAt(&layer, 0, SegmentAttrs{ID: fmt.Sprintf("n%d", next)})
			} else {
				anchor := layer.Segments[rng.Intn(len(layer.Segments))].ID
				if _, err := InsertSegmentAfter(&layer, anchor, SegmentAttrs{ID: fmt.Sprintf("n%d", next)}); err != nil {
					t.Fatalf("insert: %v", err)
				}
			}
			next++
		} else {
			victim := layer.Segments[rng.Intn(len(layer.Segments))].ID
			if _, err := DeleteSegment(&layer, victim); err != nil {
				t.Fatalf("delete: %v", err)
			}
		}
		assertContiguous(t, layer.Segments)
	}
}

func TestInsertAndDeleteLayer(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 50), makeLayer("L1", 50))

	l, err := InsertLayer(&a, 1, models.Layer{ID: "mid", ThicknessMM: 12.5, Segments: []models.Segment{{ID: "m-s", WidthMM: 50}}})
	if err != nil {
		t.Fatalf("InsertLayer: %v", err)
	}
	if l.Order != 1 || l.AssemblyID != "asm-1" {
		t.Errorf("inserted layer = %+v", l)
	}
	if a.Layers[1].Segments[0].LayerID != "mid" {
		t.Error("inserted layer's segments not re-parented")
	}
	if err := Check(&a); err != nil {
		t.Errorf("Check after insert: %v", err)
	}

	if _, err := InsertLayer(&a, 99, models.Layer{ID: "end", ThicknessMM: 5}); err != nil {
		t.Fatalf("InsertLayer clamp: %v", err)
	}
	if a.Layers[len(a.Layers)-1].ID != "end" {
		t.Error("out-of-range index should append")
	}
	if _, err := InsertLayer(&a, 0, models.Layer{ID: "bad", ThicknessMM: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero thickness err = %v, want ErrInvalidInput", err)
	}

	for _, id := range []string{"L0", "mid", "L1", "end"} {
		if _, err := DeleteLayer(&a, id); err != nil {
			t.Fatalf("DeleteLayer(%s): %v", id, err)
		}
		if err := Check(&a); err != nil {
			t.Errorf("Check after deleting %s: %v", id, err)
		}
	}
	if len(a.Layers) != 0 {
		t.Errorf("layers = %d, want zero-layer assembly", len(a.Layers))
	}
	if _, err := DeleteLayer(&a, "L0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFlipLayersTwiceRestores(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 10, 20), makeLayer("L1", 30), makeLayer("L2", 40, 50, 60))
	original := Clone(a)

	FlipLayers(&a)
	if a.Layers[0].ID != "L2" || a.Layers[2].ID != "L0" {
		t.Errorf("flip order = %s,%s,%s", a.Layers[0].ID, a.Layers[1].ID, a.Layers[2].ID)
	}
	if got := widths(a.Layers[0].Segments); !reflect.DeepEqual(got, []float64{40, 50, 60}) {
		t.Errorf("FlipLayers must not reorder segments, got %v", got)
	}
	if err := Check(&a); err != nil {
		t.Errorf("Check: %v", err)
	}

	FlipLayers(&a)
	if !reflect.DeepEqual(a, original) {
		t.Error("FlipLayers twice did not restore the assembly")
	}
}

func TestFlipOrientation(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 10, 20), makeLayer("L1", 30, 40, 50))
	original := Clone(a)

	FlipOrientation(&a)
	if a.Orientation != models.FirstLayerInside {
		t.Errorf("orientation = %q", a.Orientation)
	}
	if a.Layers[0].ID != "L1" {
		t.Errorf("first layer = %s, want L1", a.Layers[0].ID)
	}
	if got := widths(a.Layers[0].Segments); !reflect.DeepEqual(got, []float64{50, 40, 30}) {
		t.Errorf("segments not mirrored: %v", got)
	}
	if err := Check(&a); err != nil {
		t.Errorf("Check: %v", err)
	}

	FlipOrientation(&a)
	if !reflect.DeepEqual(a, original) {
		t.Error("FlipOrientation twice did not restore the assembly")
	}
}

func TestResize(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 10, 20))

	if err := ResizeSegment(&a, "L0-s1", 35); err != nil {
		t.Fatalf("ResizeSegment: %v", err)
	}
	if a.Layers[0].Segments[1].WidthMM != 35 {
		t.Errorf("width = %v", a.Layers[0].Segments[1].WidthMM)
	}
	if err := ResizeLayer(&a, "L0", 140); err != nil {
		t.Fatalf("ResizeLayer: %v", err)
	}
	if a.Layers[0].ThicknessMM != 140 {
		t.Errorf("thickness = %v", a.Layers[0].ThicknessMM)
	}

	before := Clone(a)
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := ResizeSegment(&a, "L0-s1", v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ResizeSegment(%v) err = %v, want ErrInvalidInput", v, err)
		}
		if err := ResizeLayer(&a, "L0", v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ResizeLayer(%v) err = %v, want ErrInvalidInput", v, err)
		}
	}
	if err := ResizeSegment(&a, "nope", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := ResizeLayer(&a, "nope", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if !reflect.DeepEqual(a, before) {
		t.Error("rejected resizes mutated the assembly")
	}
}

func TestSetSteelStudSpacing(t *testing.T) {
	seg := models.Segment{ID: "s"}
	spacing := 406.4
	if err := SetSteelStudSpacing(&seg, &spacing); err != nil {
		t.Fatalf("set: %v", err)
	}
	spacing = 1 // caller's variable must not alias the stored value
	if !seg.IsSteelStud() || *seg.SteelStudSpacingMM != 406.4 {
		t.Errorf("spacing = %v", seg.SteelStudSpacingMM)
	}
	zero := 0.0
	if err := SetSteelStudSpacing(&seg, &zero); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero spacing err = %v", err)
	}
	if err := SetSteelStudSpacing(&seg, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if seg.IsSteelStud() {
		t.Error("cleared spacing still reports steel stud")
	}
}

func TestValidateName(t *testing.T) {
	if got, err := ValidateName("  Roof A "); err != nil || got != "Roof A" {
		t.Errorf("ValidateName = %q, %v", got, err)
	}
	if _, err := ValidateName(" \t "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name err = %v", err)
	}
}

func TestReplaceSegmentAndLayer(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 10, 20))
	ok := ReplaceSegment(&a, "L0-s1", models.Segment{ID: "server-1", WidthMM: 20, Order: 99})
	if !ok {
		t.Fatal("ReplaceSegment returned false")
	}
	got := a.Layers[0].Segments[1]
	if got.ID != "server-1" || got.Order != 1 || got.LayerID != "L0" {
		t.Errorf("replaced segment = %+v", got)
	}
	if ReplaceSegment(&a, "nope", models.Segment{}) {
		t.Error("ReplaceSegment on missing id returned true")
	}

	ok = ReplaceLayer(&a, "L0", models.Layer{ID: "server-L", ThicknessMM: 12, Segments: []models.Segment{{ID: "x"}}})
	if !ok {
		t.Fatal("ReplaceLayer returned false")
	}
	if err := Check(&a); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestPlaceSegment(t *testing.T) {
	l := makeLayer("L0", 10, 20, 30)
	got := PlaceSegment(&l, models.Segment{ID: "srv-1", WidthMM: 5, Order: 1})
	if got.ID != "srv-1" || got.Order != 1 || got.LayerID != "L0" {
		t.Errorf("placed = %+v", got)
	}
	if w := widths(l.Segments); !reflect.DeepEqual(w, []float64{10, 5, 20, 30}) {
		t.Errorf("widths = %v", w)
	}
	assertContiguous(t, l.Segments)

	PlaceSegment(&l, models.Segment{ID: "srv-2", WidthMM: 7, Order: 99})
	if last := l.Segments[len(l.Segments)-1]; last.ID != "srv-2" || last.Order != 4 {
		t.Errorf("out-of-range order not clamped: %+v", last)
	}
	assertContiguous(t, l.Segments)
}

func TestCheck_ReportsViolations(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 10, 20))
	a.Layers[0].Segments[1].Order = 5
	a.Layers[0].Segments[0].LayerID = "other"
	bad := -3.0
	a.Layers[0].Segments[0].SteelStudSpacingMM = &bad
	err := Check(&a)
	if err == nil {
		t.Fatal("expected violations")
	}
	for _, want := range []string{"order 5 at position 1", "layer id", "steel stud spacing"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Check error %q missing %q", err, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	spacing := 400.0
	note := "check datasheet"
	a := makeAssembly(makeLayer("L0", 10))
	a.Layers[0].Segments[0].SteelStudSpacingMM = &spacing
	a.Layers[0].Segments[0].Notes = &note

	c := Clone(a)
	*c.Layers[0].Segments[0].SteelStudSpacingMM = 1
	*c.Layers[0].Segments[0].Notes = "changed"
	c.Layers[0].Segments[0].WidthMM = 99

	if spacing != 400 || note != "check datasheet" || a.Layers[0].Segments[0].WidthMM != 10 {
		t.Error("Clone shares memory with the original")
	}
}

func TestTotalsAndMaterials(t *testing.T) {
	a := makeAssembly(makeLayer("L0", 10, 20), makeLayer("L1", 5))
	a.Layers[1].ThicknessMM = 12.5
	if got := TotalThickness(&a); got != 112.5 {
		t.Errorf("TotalThickness = %v", got)
	}
	if got := MaterialIDs(&a); !reflect.DeepEqual(got, []string{"mat-0", "mat-1"}) {
		t.Errorf("MaterialIDs = %v", got)
	}
}
