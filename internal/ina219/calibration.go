package ina219

import (
	"fmt"
	"math/bits"

	"periph.io/x/conn/v3/physic"
)

// calScale is the datasheet's internal 0.04096 constant expressed for a
// current LSB in nA and a shunt in nΩ: 0.04096 / (1e-9 * 1e-9).
const calScale = 40_960_000_000_000_000

// Calibration is the calibration register value and the scale factors it
// implies. The three fields are only valid together.
type Calibration struct {
	Value      uint16
	CurrentLSB float64 // mA per count
	PowerLSB   float64 // mW per count
}

// ComputeCalibration derives the calibration for a shunt resistor and the
// shunt voltage full scale selected in the configuration.
//
//	MaxExpected_I = VSHUNT_MAX / RSHUNT
//	Current_LSB   = MaxExpected_I / 2^15, rounded up to a 1-2-5 step
//	Cal           = trunc(0.04096 / (Current_LSB * RSHUNT))
//	Power_LSB     = 20 * Current_LSB
//
// With a 0.01Ω shunt and ±320mV range this gives Cal 4096 and a 1mA LSB.
func ComputeCalibration(shunt physic.ElectricResistance, fullScale physic.ElectricPotential) (Calibration, error) {
	if shunt <= 0 || fullScale <= 0 {
		return Calibration{}, fmt.Errorf("%w: shunt %s, full scale %s", ErrInvalidCalibration, shunt, fullScale)
	}

	// Minimum LSB in nA = ceil(Vfs[nV] * 1e9 / (R[nΩ] * 2^15)).
	hi, lo := bits.Mul64(uint64(fullScale), 1_000_000_000)
	den := uint64(shunt) << 15
	if hi >= den {
		return Calibration{}, fmt.Errorf("%w: shunt %s too small", ErrInvalidCalibration, shunt)
	}
	minLSB, rem := bits.Div64(hi, lo, den)
	if rem != 0 {
		minLSB++
	}
	lsb := roundStep(minLSB)

	hi, prod := bits.Mul64(lsb, uint64(shunt))
	if hi != 0 || prod > calScale {
		return Calibration{}, fmt.Errorf("%w: current LSB %dnA out of range", ErrInvalidCalibration, lsb)
	}
	cal := calScale / prod
	if cal == 0 || cal > 0xFFFF {
		return Calibration{}, fmt.Errorf("%w: calibration value %d does not fit the register", ErrInvalidCalibration, cal)
	}

	currentLSB := float64(lsb) / 1e6
	return Calibration{
		Value:      uint16(cal),
		CurrentLSB: currentLSB,
		PowerLSB:   20 * currentLSB,
	}, nil
}

// roundStep returns the smallest 1, 2 or 5 times a power of ten that is >= n.
func roundStep(n uint64) uint64 {
	for p := uint64(1); ; p *= 10 {
		for _, m := range [...]uint64{1, 2, 5} {
			if m*p >= n {
				return m * p
			}
		}
	}
}
