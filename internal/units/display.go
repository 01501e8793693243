package units

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zulandar/stratum/internal/kv"
)

// System is the user's display convention.
type System string

const (
	SI System = "SI"
	IP System = "IP"
)

// Placeholder is what Format renders for a missing value.
const Placeholder = "-"

// ParseSystem accepts "si"/"ip" in any case.
func ParseSystem(s string) (System, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SI", "METRIC":
		return SI, nil
	case "IP", "IMPERIAL":
		return IP, nil
	}
	return "", fmt.Errorf("units: unknown unit system %q (want SI or IP)", s)
}

// Quantity pairs the canonical SI unit of a stored value with its IP
// display unit and the decimals used for each.
type Quantity struct {
	Name       string
	SIUnit     Unit
	IPUnit     Unit
	SIDecimals int
	IPDecimals int
}

var (
	Length       = Quantity{"length", Millimeter, Inch, 1, 3}
	Conductivity = Quantity{"conductivity", WattPerMeterKelvin, BtuPerHourFootF, 3, 3}
	Density      = Quantity{"density", KilogramPerCubicMeter, PoundPerCubicFoot, 1, 2}
	SpecificHeat = Quantity{"specific heat", JoulePerKilogramKelvin, BtuPerPoundF, 0, 3}
	Area         = Quantity{"area", SquareMeter, SquareFoot, 2, 1}
	Volume       = Quantity{"volume", CubicMeter, CubicFoot, 3, 1}
	Flow         = Quantity{"flow", CubicMeterPerHour, CubicFootPerMinute, 1, 1}
	UValue       = Quantity{"u-value", WattPerSquareMeterK, BtuPerHourFt2F, 3, 3}
	RValue       = Quantity{"r-value", SquareMeterKPerWatt, HourFt2FPerBtu, 2, 1}
)

// Display renders canonical SI values in the selected system and parses
// user input back into SI.
type Display struct {
	System System
}

// Unit returns the unit values of q are shown in.
func (d Display) Unit(q Quantity) Unit {
	if d.System == IP {
		return q.IPUnit
	}
	return q.SIUnit
}

func (d Display) decimals(q Quantity) int {
	if d.System == IP {
		return q.IPDecimals
	}
	return q.SIDecimals
}

// Value converts a canonical SI value into the display system.
func (d Display) Value(si float64, q Quantity) (float64, error) {
	return Convert(si, q.SIUnit, d.Unit(q))
}

// Format renders an optional SI value as a fixed-decimal string in the
// display system. A nil value renders as Placeholder.
func (d Display) Format(si *float64, q Quantity) string {
	if si == nil {
		return Placeholder
	}
	v, err := d.Value(*si, q)
	if err != nil {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', d.decimals(q), 64)
}

// FormatWithUnit is Format followed by the unit tag.
func (d Display) FormatWithUnit(si *float64, q Quantity) string {
	s := d.Format(si, q)
	if s == Placeholder {
		return s
	}
	return s + " " + string(d.Unit(q))
}

// Parse converts a value typed in the display system back to SI.
func (d Display) Parse(input float64, q Quantity) (float64, error) {
	return Convert(input, d.Unit(q), q.SIUnit)
}

// ParseString is Parse for raw text input.
func (d Display) ParseString(input string, q Quantity) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, fmt.Errorf("units: parse %q: %w", input, err)
	}
	return d.Parse(v, q)
}

// preferenceKey is the store key the chosen system is persisted under.
const preferenceKey = "unit_system"

// Preferences persists the user's unit system across sessions.
type Preferences struct {
	store kv.Store
}

// NewPreferences wraps store.
func NewPreferences(store kv.Store) *Preferences {
	return &Preferences{store: store}
}

// System returns the saved choice, defaulting to SI when nothing is stored.
func (p *Preferences) System(ctx context.Context) (System, error) {
	raw, err := p.store.Get(ctx, preferenceKey)
	if errors.Is(err, kv.ErrNotFound) {
		return SI, nil
	}
	if err != nil {
		return "", fmt.Errorf("units: read preference: %w", err)
	}
	return ParseSystem(string(raw))
}

// SetSystem saves the choice.
func (p *Preferences) SetSystem(ctx context.Context, s System) error {
	if s != SI && s != IP {
		return fmt.Errorf("units: unknown unit system %q", s)
	}
	if err := p.store.Set(ctx, preferenceKey, []byte(s)); err != nil {
		return fmt.Errorf("units: save preference: %w", err)
	}
	return nil
}

// Display returns a Display for the saved system.
func (p *Preferences) Display(ctx context.Context) (Display, error) {
	s, err := p.System(ctx)
	if err != nil {
		return Display{}, err
	}
	return Display{System: s}, nil
}
