package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/zulandar/stratum/internal/status"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestOrderColumns(t *testing.T) {
	// "order" is reserved in SQL, both tables store it as "position".
	assertGormTag(t, reflect.TypeOf(Layer{}), "Order", "column:position")
	assertGormTag(t, reflect.TypeOf(Segment{}), "Order", "column:position")
}

func TestCascadeTags(t *testing.T) {
	assertGormTag(t, reflect.TypeOf(Assembly{}), "Layers", "OnDelete:CASCADE")
	assertGormTag(t, reflect.TypeOf(Layer{}), "Segments", "OnDelete:CASCADE")
	assertGormTag(t, reflect.TypeOf(Segment{}), "SpecificationStatus", "default:na")
	assertGormTag(t, reflect.TypeOf(Segment{}), "SitePhotos", "-")
}

func TestSegment_IsSteelStud(t *testing.T) {
	s := Segment{}
	if s.IsSteelStud() {
		t.Error("IsSteelStud with nil spacing = true")
	}
	spacing := 406.4
	s.SteelStudSpacingMM = &spacing
	if !s.IsSteelStud() {
		t.Error("IsSteelStud with spacing = false")
	}
}

func TestOrientation_Flipped(t *testing.T) {
	if FirstLayerInside.Flipped() != FirstLayerOutside {
		t.Error("inside should flip to outside")
	}
	if FirstLayerOutside.Flipped() != FirstLayerInside {
		t.Error("outside should flip to inside")
	}
	if Orientation("").Flipped() != FirstLayerInside {
		t.Error("unset orientation is treated as outside")
	}
}

func TestARGB_ValueScan(t *testing.T) {
	c := ARGB{255, 10, 20, 30}
	v, err := c.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "255,10,20,30" {
		t.Errorf("Value = %v", v)
	}

	var back ARGB
	if err := back.Scan([]byte("255,10,20,30")); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if back != c {
		t.Errorf("Scan = %v, want %v", back, c)
	}
	if c.Hex() != "#FF0A141E" {
		t.Errorf("Hex = %q", c.Hex())
	}

	for _, bad := range []interface{}{"1,2,3", "1,2,3,999", 42} {
		if err := back.Scan(bad); err == nil {
			t.Errorf("Scan(%v) expected error", bad)
		}
	}
}

func TestMaterial_JSONColor(t *testing.T) {
	m := Material{ID: "mat-1", Name: "Mineral wool", ARGB: ARGB{255, 200, 180, 40}}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"argb":[255,200,180,40]`) {
		t.Errorf("json = %s, want argb as a number array", data)
	}
}

func TestSegmentPatch_JSON(t *testing.T) {
	width := 25.0
	st := status.Complete
	tests := []struct {
		name  string
		patch SegmentPatch
		want  string
	}{
		{"width only", SegmentPatch{WidthMM: &width}, `{"width_mm":25}`},
		{"status only", SegmentPatch{SpecificationStatus: &st}, `{"specification_status":"complete"}`},
		{"clear spacing", SegmentPatch{SteelStudSpacingMM: SetFloat(nil)}, `{"steel_stud_spacing_mm":null}`},
		{"set spacing", SegmentPatch{SteelStudSpacingMM: SetFloat(&width)}, `{"steel_stud_spacing_mm":25}`},
		{"empty", SegmentPatch{}, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.patch)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestSegmentPatch_DecodeNullVersusAbsent(t *testing.T) {
	var absent SegmentPatch
	if err := json.Unmarshal([]byte(`{"width_mm":10}`), &absent); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if absent.SteelStudSpacingMM.Set {
		t.Error("absent spacing decoded as Set")
	}

	var cleared SegmentPatch
	if err := json.Unmarshal([]byte(`{"steel_stud_spacing_mm":null}`), &cleared); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !cleared.SteelStudSpacingMM.Set || cleared.SteelStudSpacingMM.Value != nil {
		t.Errorf("null spacing = %+v, want Set with nil Value", cleared.SteelStudSpacingMM)
	}

	var set SegmentPatch
	if err := json.Unmarshal([]byte(`{"steel_stud_spacing_mm":406.4}`), &set); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if set.SteelStudSpacingMM.Value == nil || *set.SteelStudSpacingMM.Value != 406.4 {
		t.Errorf("spacing = %+v, want 406.4", set.SteelStudSpacingMM)
	}
	if set.Empty() {
		t.Error("patch with spacing reported Empty")
	}
	if !(SegmentPatch{}).Empty() {
		t.Error("zero patch not Empty")
	}
}
