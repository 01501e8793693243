// Package units converts magnitudes between the closed set of SI and
// Imperial unit tags used by the assembly editor.
//
// Every conversion is a single linear factor registered for a direct
// (from, to) pair. There is no chaining: mm→ft→in is never inferred, the
// mm→in pair has to be registered on its own.
package units

import (
	"errors"
	"fmt"
	"sort"
)

// Unit is a unit tag such as "mm" or "W/mK".
type Unit string

// Length.
const (
	Millimeter Unit = "mm"
	Meter      Unit = "m"
	Inch       Unit = "in"
	Foot       Unit = "ft"
)

// Thermal conductivity and its per-inch resistivity.
const (
	WattPerMeterKelvin     Unit = "W/mK"
	BtuPerHourFootF        Unit = "Btu/hr.ft.F"
	BtuInchPerHourFt2F     Unit = "Btu.in/hr.ft2.F"
	MeterKelvinPerWatt     Unit = "m.K/W"
	HourFt2FPerBtuInch     Unit = "hr.ft2.F/Btu.in"
	KilogramPerCubicMeter  Unit = "kg/m3"
	PoundPerCubicFoot      Unit = "lb/ft3"
	JoulePerKilogramKelvin Unit = "J/kgK"
	BtuPerPoundF           Unit = "Btu/lb.F"
)

// Area, volume, flow, U-value and R-value.
const (
	SquareMeter         Unit = "m2"
	SquareFoot          Unit = "ft2"
	CubicMeter          Unit = "m3"
	CubicFoot           Unit = "ft3"
	CubicMeterPerHour   Unit = "m3/h"
	CubicFootPerMinute  Unit = "cfm"
	WattPerSquareMeterK Unit = "W/m2K"
	BtuPerHourFt2F      Unit = "Btu/hr.ft2.F"
	SquareMeterKPerWatt Unit = "m2K/W"
	HourFt2FPerBtu      Unit = "hr.ft2.F/Btu"
)

// ErrUnsupportedConversion is returned when no direct factor is registered
// for a (from, to) pair.
var ErrUnsupportedConversion = errors.New("unsupported conversion")

// Base definitions the factors are derived from.
const (
	metersPerInch   = 0.0254
	metersPerFoot   = 0.3048
	kilogramsPerLb  = 0.45359237
	joulesPerBtu    = 1055.05585262
	kelvinPerDegF   = 5.0 / 9.0
	secondsPerHour  = 3600.0
	secondsPerMin   = 60.0
	wattsPerBtuHour = joulesPerBtu / secondsPerHour
)

type pair struct {
	from, to Unit
}

var factors = map[pair]float64{}

// register adds a direct factor and its inverse.
func register(from, to Unit, factor float64) {
	factors[pair{from, to}] = factor
	factors[pair{to, from}] = 1 / factor
}

func init() {
	// Length.
	register(Millimeter, Meter, 0.001)
	register(Millimeter, Inch, 1/(metersPerInch*1000))
	register(Millimeter, Foot, 1/(metersPerFoot*1000))
	register(Meter, Inch, 1/metersPerInch)
	register(Meter, Foot, 1/metersPerFoot)
	register(Inch, Foot, 1.0/12)

	// Conductivity. 1 Btu/(hr·ft·°F) expressed in W/(m·K).
	btuHrFtF := wattsPerBtuHour / (metersPerFoot * kelvinPerDegF)
	btuInHrFt2F := wattsPerBtuHour * metersPerInch / (metersPerFoot * metersPerFoot * kelvinPerDegF)
	register(WattPerMeterKelvin, BtuPerHourFootF, 1/btuHrFtF)
	register(WattPerMeterKelvin, BtuInchPerHourFt2F, 1/btuInHrFt2F)
	register(BtuPerHourFootF, BtuInchPerHourFt2F, 12)

	// Resistivity is the reciprocal quantity, so it only converts among
	// resistivity tags.
	register(MeterKelvinPerWatt, HourFt2FPerBtuInch, btuInHrFt2F)

	// Density and specific heat.
	register(KilogramPerCubicMeter, PoundPerCubicFoot, metersPerFoot*metersPerFoot*metersPerFoot/kilogramsPerLb)
	register(JoulePerKilogramKelvin, BtuPerPoundF, kilogramsPerLb*kelvinPerDegF/joulesPerBtu)

	// Area, volume, flow.
	register(SquareMeter, SquareFoot, 1/(metersPerFoot*metersPerFoot))
	register(CubicMeter, CubicFoot, 1/(metersPerFoot*metersPerFoot*metersPerFoot))
	register(CubicMeterPerHour, CubicFootPerMinute, (1/secondsPerHour)/(metersPerFoot*metersPerFoot*metersPerFoot/secondsPerMin))

	// U and R values.
	btuHrFt2F := wattsPerBtuHour / (metersPerFoot * metersPerFoot * kelvinPerDegF)
	register(WattPerSquareMeterK, BtuPerHourFt2F, 1/btuHrFt2F)
	register(SquareMeterKPerWatt, HourFt2FPerBtu, btuHrFt2F)
}

// Convert converts value from one unit to another. Identical units return
// value untouched.
func Convert(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}
	f, ok := factors[pair{from, to}]
	if !ok {
		return 0, fmt.Errorf("units: %s -> %s: %w", from, to, ErrUnsupportedConversion)
	}
	return value * f, nil
}

// Supported reports whether a direct conversion exists.
func Supported(from, to Unit) bool {
	if from == to {
		return true
	}
	_, ok := factors[pair{from, to}]
	return ok
}

// Known returns every registered unit tag, sorted.
func Known() []Unit {
	seen := make(map[Unit]bool)
	for p := range factors {
		seen[p.from] = true
		seen[p.to] = true
	}
	out := make([]Unit, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pairs returns every registered direct (from, to) pair.
func Pairs() [][2]Unit {
	out := make([][2]Unit, 0, len(factors))
	for p := range factors {
		out = append(out, [2]Unit{p.from, p.to})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
