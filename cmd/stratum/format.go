package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/units"
)

// formatLength renders a millimetre value in the display system with its
// unit.
func formatLength(d units.Display, mm float64) string {
	return d.FormatWithUnit(&mm, units.Length)
}

// materialLabel prefers the catalog name and falls back to the raw id.
func materialLabel(names map[string]string, id string) string {
	if id == "" {
		return "(none)"
	}
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

// segmentFlags summarises the boolean and optional attributes of s.
func segmentFlags(d units.Display, s models.Segment) string {
	var flags []string
	if s.IsSteelStud() {
		flags = append(flags, "steel stud @ "+d.FormatWithUnit(s.SteelStudSpacingMM, units.Length))
	}
	if s.IsContinuousInsulation {
		flags = append(flags, "CI")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ", ")
}

func orientationLabel(o models.Orientation) string {
	if o == models.FirstLayerInside {
		return "first layer inside"
	}
	return "first layer outside"
}

// printAssemblyTable writes one row per assembly.
func printAssemblyTable(out io.Writer, d units.Display, list []models.Assembly) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tLAYERS\tTHICKNESS\tORIENTATION")
	for i := range list {
		a := &list[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			a.ID, a.Name, a.Type, len(a.Layers),
			formatLength(d, assembly.TotalThickness(a)), orientationLabel(a.Orientation))
	}
	w.Flush()
}

// printAssembly writes the full layer and segment tree of a.
func printAssembly(out io.Writer, d units.Display, names map[string]string, a models.Assembly) {
	fmt.Fprintf(out, "Assembly:    %s\n", a.ID)
	fmt.Fprintf(out, "Name:        %s\n", a.Name)
	fmt.Fprintf(out, "Type:        %s\n", a.Type)
	fmt.Fprintf(out, "Orientation: %s\n", orientationLabel(a.Orientation))
	fmt.Fprintf(out, "Thickness:   %s\n", formatLength(d, assembly.TotalThickness(&a)))
	if len(a.Layers) == 0 {
		fmt.Fprintln(out, "\nNo layers.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, l := range a.Layers {
		fmt.Fprintf(w, "\nLayer %d\t%s\t%s\n", l.Order+1, l.ID, formatLength(d, l.ThicknessMM))
		fmt.Fprintln(w, "  #\tSEGMENT\tWIDTH\tMATERIAL\tSTATUS\tFLAGS\tNOTES")
		for _, s := range l.Segments {
			notes := "-"
			if s.Notes != nil {
				notes = *s.Notes
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				s.Order+1, s.ID, formatLength(d, s.WidthMM), materialLabel(names, s.MaterialID),
				s.SpecificationStatus.Label(), segmentFlags(d, s), notes)
		}
	}
	w.Flush()
}

func printAttachments(out io.Writer, att *models.Attachments) {
	if len(att.SitePhotos) == 0 && len(att.Datasheets) == 0 {
		fmt.Fprintln(out, "No attachments.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tREFERENCE\tURL")
	for _, p := range att.SitePhotos {
		fmt.Fprintf(w, "site photo\t%s\t%s\n", p.Reference, firstNonEmpty(p.FullSizeURL, p.ThumbnailURL))
	}
	for _, ds := range att.Datasheets {
		fmt.Fprintf(w, "datasheet\t%s\t%s\n", ds.Reference, firstNonEmpty(ds.FullSizeURL, ds.ThumbnailURL))
	}
	w.Flush()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return "-"
}
