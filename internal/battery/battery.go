// Package battery estimates state of charge from the battery terminal voltage.
package battery

import "ina219mon/internal/mathx"

// Range is the usable voltage window of the battery.
type Range struct {
	Empty float64 // V at 0%
	Full  float64 // V at 100%
}

// DefaultRange is a single Li-ion cell: 3.0V empty, 4.2V full.
var DefaultRange = Range{Empty: 3.0, Full: 4.2}

// Percent maps v linearly onto [0, 100]. Voltages outside the range
// saturate.
func (r Range) Percent(v float64) float64 {
	if r.Full == r.Empty {
		return 0
	}
	p := mathx.Translate(v, r.Empty, r.Full, 0, 100)
	return mathx.Clamp(p, 0, 100)
}

// EstimatePercent uses DefaultRange.
func EstimatePercent(v float64) float64 {
	return DefaultRange.Percent(v)
}

const lowPercent = 20

// Status is a coarse charge indication.
type Status string

const (
	StatusEmpty  Status = "Empty"
	StatusLow    Status = "Low"
	StatusNormal Status = "Normal"
	StatusFull   Status = "Full"
)

func StatusOf(percent float64) Status {
	switch {
	case percent <= 0:
		return StatusEmpty
	case percent >= 100:
		return StatusFull
	case percent < lowPercent:
		return StatusLow
	default:
		return StatusNormal
	}
}
