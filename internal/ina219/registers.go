package ina219

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// Addr is the fixed I2C address of the sensor (A0 tied to SCL, A1 to GND).
const Addr = 0x43

const (
	REG_CONFIG      = 0x00
	REG_SHUNT_VOLT  = 0x01
	REG_BUS_VOLT    = 0x02
	REG_POWER       = 0x03
	REG_CURRENT     = 0x04
	REG_CALIBRATION = 0x05
)

var (
	ErrNotConfigured      = errors.New("ina219: device not configured")
	ErrInvalidConfig      = errors.New("ina219: invalid configuration")
	ErrInvalidCalibration = errors.New("ina219: invalid calibration")
)

// BusError reports a failed register transaction. Err is the transport error
// (NACK, timeout, ...).
type BusError struct {
	Op  string
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("ina219: %s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// codec frames 16-bit big-endian register transfers on a single device.
type codec struct {
	dev *i2c.Dev
}

// writeReg sends [reg, hi, lo] as one transaction ending with a stop.
func (c *codec) writeReg(reg byte, val uint16) error {
	if err := c.dev.Tx([]byte{reg, byte(val >> 8), byte(val)}, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// readReg writes the register pointer and reads two bytes back with a
// repeated start, so the bus is not released between the two phases.
func (c *codec) readReg(reg byte) (int16, error) {
	buf := make([]byte, 2)
	if err := c.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return int16(uint16(buf[0])<<8 | uint16(buf[1])), nil
}
