package ina219

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// CONFIG_RESET resets every register to its power-on default.
const CONFIG_RESET = 0x8000

// Bit offsets and widths of the configuration register fields.
const (
	busRangeShift = 13
	busRangeWidth = 1

	shuntRangeShift = 11
	shuntRangeWidth = 2

	busADCShift   = 7
	shuntADCShift = 3
	adcWidth      = 4

	modeShift = 0
	modeWidth = 3
)

func field(v uint16, shift, width uint) uint16 {
	return (v & (1<<width - 1)) << shift
}

func mask(shift, width uint) uint16 {
	return (1<<width - 1) << shift
}

// BusRange selects the bus voltage full-scale range.
type BusRange uint16

const (
	BusRange16V BusRange = 0
	BusRange32V BusRange = 1
)

// ShuntRange selects the PGA gain and shunt voltage full-scale range.
type ShuntRange uint16

const (
	ShuntRange40mV  ShuntRange = 0 // gain /1
	ShuntRange80mV  ShuntRange = 1 // gain /2
	ShuntRange160mV ShuntRange = 2 // gain /4
	ShuntRange320mV ShuntRange = 3 // gain /8
)

// FullScale returns the largest shunt voltage measurable in this range.
func (r ShuntRange) FullScale() physic.ElectricPotential {
	return 40 * physic.MilliVolt << r
}

// ADCMode selects ADC resolution, or 12-bit resolution with sample averaging.
// It is used for both the bus and the shunt ADC.
type ADCMode uint16

const (
	ADC9Bit      ADCMode = 0x0 // 84us
	ADC10Bit     ADCMode = 0x1 // 148us
	ADC11Bit     ADCMode = 0x2 // 276us
	ADC12Bit     ADCMode = 0x3 // 532us
	ADC12Bit2S   ADCMode = 0x9 // 1.06ms
	ADC12Bit4S   ADCMode = 0xA // 2.13ms
	ADC12Bit8S   ADCMode = 0xB // 4.26ms
	ADC12Bit16S  ADCMode = 0xC // 8.51ms
	ADC12Bit32S  ADCMode = 0xD // 17.02ms
	ADC12Bit64S  ADCMode = 0xE // 34.05ms
	ADC12Bit128S ADCMode = 0xF // 68.10ms
)

func (m ADCMode) valid() bool {
	return m <= ADC12Bit || (m >= ADC12Bit2S && m <= ADC12Bit128S)
}

// Mode is the operating mode.
type Mode uint16

const (
	ModePowerDown          Mode = 0
	ModeShuntTriggered     Mode = 1
	ModeBusTriggered       Mode = 2
	ModeShuntBusTriggered  Mode = 3
	ModeADCOff             Mode = 4
	ModeShuntContinuous    Mode = 5
	ModeBusContinuous      Mode = 6
	ModeShuntBusContinuous Mode = 7
)

// Config holds the options packed into the configuration register.
type Config struct {
	BusRange   BusRange
	ShuntRange ShuntRange
	BusADC     ADCMode
	ShuntADC   ADCMode
	Mode       Mode
}

// DefaultConfig measures up to 32V and ±320mV continuously with 12-bit bus
// samples and 32-sample shunt averaging.
func DefaultConfig() Config {
	return Config{
		BusRange:   BusRange32V,
		ShuntRange: ShuntRange320mV,
		BusADC:     ADC12Bit,
		ShuntADC:   ADC12Bit32S,
		Mode:       ModeShuntBusContinuous,
	}
}

// Value composes the register value. Out-of-range options are masked to
// their field width; call Validate to reject them instead.
func (c Config) Value() uint16 {
	return field(uint16(c.BusRange), busRangeShift, busRangeWidth) |
		field(uint16(c.ShuntRange), shuntRangeShift, shuntRangeWidth) |
		field(uint16(c.BusADC), busADCShift, adcWidth) |
		field(uint16(c.ShuntADC), shuntADCShift, adcWidth) |
		field(uint16(c.Mode), modeShift, modeWidth)
}

func (c Config) Validate() error {
	switch {
	case c.BusRange > BusRange32V:
		return fmt.Errorf("%w: bus range %d", ErrInvalidConfig, c.BusRange)
	case c.ShuntRange > ShuntRange320mV:
		return fmt.Errorf("%w: shunt range %d", ErrInvalidConfig, c.ShuntRange)
	case !c.BusADC.valid():
		return fmt.Errorf("%w: bus adc mode 0x%X", ErrInvalidConfig, uint16(c.BusADC))
	case !c.ShuntADC.valid():
		return fmt.Errorf("%w: shunt adc mode 0x%X", ErrInvalidConfig, uint16(c.ShuntADC))
	case c.Mode > ModeShuntBusContinuous:
		return fmt.Errorf("%w: mode %d", ErrInvalidConfig, c.Mode)
	}
	return nil
}
