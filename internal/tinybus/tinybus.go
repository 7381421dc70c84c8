// Package tinybus exposes a TinyGo I2C peripheral as a periph i2c.Bus so the
// same sensor driver runs on a microcontroller and on a Linux host.
package tinybus

import (
	"errors"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

var ErrSpeedUnsupported = errors.New("tinybus: bus does not support changing speed")

// baudSetter is implemented by machine.I2C.
type baudSetter interface {
	SetBaudRate(br uint32) error
}

// Bus wraps a drivers.I2C. A write-then-read Tx is issued as one transfer
// with a repeated start, as machine.I2C does.
type Bus struct {
	dev  drivers.I2C
	name string
}

var _ i2c.Bus = (*Bus)(nil)

func New(dev drivers.I2C, name string) *Bus {
	return &Bus{dev: dev, name: name}
}

func (b *Bus) String() string { return b.name }

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.dev.Tx(addr, w, r)
}

func (b *Bus) SetSpeed(f physic.Frequency) error {
	s, ok := b.dev.(baudSetter)
	if !ok {
		return ErrSpeedUnsupported
	}
	return s.SetBaudRate(uint32(f / physic.Hertz))
}
