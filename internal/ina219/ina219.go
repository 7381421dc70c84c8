// Package ina219 drives a TI INA219 current/power monitor over I2C.
package ina219

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"ina219mon/internal/mathx"
)

// State tracks the device lifecycle. There is no way back to Uninitialized
// other than Reset.
type State int

const (
	Uninitialized State = iota
	Configured
	Sampling
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Sampling:
		return "sampling"
	default:
		return "uninitialized"
	}
}

// Reading is one sampling cycle in physical units.
type Reading struct {
	ShuntMilliVolts  float64
	BusVolts         float64
	CurrentMilliAmps float64
	PowerMilliWatts  float64
}

// INA219 is a single sensor on a bus. It is not safe for concurrent use: the
// calibration rewrite before a current or power read must not be interleaved
// with other transactions.
type INA219 struct {
	c     codec
	cfg   Config
	cal   Calibration
	state State
}

// NewINA219 validates cfg and computes the calibration for the given shunt.
// Nothing is written to the bus until Apply.
func NewINA219(bus i2c.Bus, cfg Config, shunt physic.ElectricResistance) (*INA219, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cal, err := ComputeCalibration(shunt, cfg.ShuntRange.FullScale())
	if err != nil {
		return nil, err
	}
	return &INA219{
		c:   codec{dev: &i2c.Dev{Addr: Addr, Bus: bus}},
		cfg: cfg,
		cal: cal,
	}, nil
}

func (d *INA219) Config() Config           { return d.cfg }
func (d *INA219) Calibration() Calibration { return d.cal }
func (d *INA219) State() State             { return d.state }

// WriteRegister writes a raw 16-bit value.
func (d *INA219) WriteRegister(reg byte, val uint16) error {
	return d.c.writeReg(reg, val)
}

// ReadRegister reads a raw 16-bit value.
func (d *INA219) ReadRegister(reg byte) (int16, error) {
	return d.c.readReg(reg)
}

// Apply writes the calibration register and then the configuration register.
// It must succeed once before any measurement.
func (d *INA219) Apply() error {
	if err := d.c.writeReg(REG_CALIBRATION, d.cal.Value); err != nil {
		return err
	}
	if err := d.c.writeReg(REG_CONFIG, d.cfg.Value()); err != nil {
		return err
	}
	if d.state == Uninitialized {
		d.state = Configured
	}
	return nil
}

// Reset restores the chip's power-on defaults. Apply is required again
// afterwards.
func (d *INA219) Reset() error {
	if err := d.c.writeReg(REG_CONFIG, CONFIG_RESET); err != nil {
		return err
	}
	d.state = Uninitialized
	return nil
}

func (d *INA219) read(reg byte) (int16, error) {
	if d.state == Uninitialized {
		return 0, ErrNotConfigured
	}
	v, err := d.c.readReg(reg)
	if err != nil {
		return 0, err
	}
	d.state = Sampling
	return v, nil
}

// readCalibrated re-asserts the calibration value right before reading reg.
// The current and power registers read as zero or stale after the chip has
// lost its calibration (e.g. brown-out), so it is written on every read.
func (d *INA219) readCalibrated(reg byte) (int16, error) {
	if d.state == Uninitialized {
		return 0, ErrNotConfigured
	}
	if err := d.c.writeReg(REG_CALIBRATION, d.cal.Value); err != nil {
		return 0, err
	}
	return d.read(reg)
}

// ReadShuntVoltage returns the shunt voltage in mV (10µV per count).
func (d *INA219) ReadShuntVoltage() (float64, error) {
	raw, err := d.read(REG_SHUNT_VOLT)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 100, nil
}

// ReadBusVoltage returns the bus voltage in V. The low three bits carry
// status flags; the value is the remaining 13 bits at 4mV per count.
func (d *INA219) ReadBusVoltage() (float64, error) {
	raw, err := d.read(REG_BUS_VOLT)
	if err != nil {
		return 0, err
	}
	mV := int32(raw>>3) * 4
	return float64(mV) / 1000, nil
}

// ReadCurrent returns the magnitude of the current in mA. The register is
// signed by charge direction; the sign is dropped.
func (d *INA219) ReadCurrent() (float64, error) {
	raw, err := d.readCalibrated(REG_CURRENT)
	if err != nil {
		return 0, err
	}
	return float64(mathx.Abs(int32(raw))) * d.cal.CurrentLSB, nil
}

// ReadPower returns the power in mW.
func (d *INA219) ReadPower() (float64, error) {
	raw, err := d.readCalibrated(REG_POWER)
	if err != nil {
		return 0, err
	}
	return float64(uint16(raw)) * d.cal.PowerLSB, nil
}

// Sense performs one full sampling cycle. The first failure aborts it.
func (d *INA219) Sense() (Reading, error) {
	var r Reading
	var err error
	if r.ShuntMilliVolts, err = d.ReadShuntVoltage(); err != nil {
		return Reading{}, err
	}
	if r.BusVolts, err = d.ReadBusVoltage(); err != nil {
		return Reading{}, err
	}
	if r.CurrentMilliAmps, err = d.ReadCurrent(); err != nil {
		return Reading{}, err
	}
	if r.PowerMilliWatts, err = d.ReadPower(); err != nil {
		return Reading{}, err
	}
	return r, nil
}
