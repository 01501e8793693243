// Package status defines the per-segment specification status vocabulary.
package status

import (
	"fmt"
	"strings"
)

// Status tags how completely a segment's material is documented.
type Status string

const (
	Complete Status = "complete"
	Missing  Status = "missing"
	Question Status = "question"
	NA       Status = "na"
)

// Default is the status of a newly created segment.
const Default = NA

var labels = map[Status]string{
	Complete: "Complete",
	Missing:  "Missing",
	Question: "Question",
	NA:       "N/A",
}

// All returns every status in display order.
func All() []Status {
	return []Status{Complete, Missing, Question, NA}
}

// Valid reports whether s is one of the four known values.
func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Label is the human-readable name.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Parse accepts the wire value or the label, case-insensitively.
func Parse(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "n/a" {
		return NA, nil
	}
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("status: unknown specification status %q (want one of %v)", s, All())
	}
	return st, nil
}

// CanTransition reports whether from→to is allowed. The vocabulary is
// flat: any known status may move to any known status.
func CanTransition(from, to Status) bool {
	return from.Valid() && to.Valid()
}
