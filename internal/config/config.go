// Package config loads the monitor's start-up settings. Options are read once;
// the sensor is never reconfigured while running.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"ina219mon/internal/battery"
	"ina219mon/internal/ina219"
)

type Config struct {
	Bus          string        `yaml:"bus"`     // i2creg name, "" for the first bus
	LEDPin       string        `yaml:"led_pin"` // gpioreg name, "" for no LED
	ShuntOhms    float64       `yaml:"shunt_ohms"`
	PollInterval time.Duration `yaml:"poll_interval"`
	HTTPPort     int           `yaml:"http_port"` // 0 disables the status server
	LogLevel     string        `yaml:"log_level"`
	Sensor       SensorConfig  `yaml:"sensor"`
	Battery      BatteryConfig `yaml:"battery"`
}

type SensorConfig struct {
	BusRange   string `yaml:"bus_range"`
	ShuntRange string `yaml:"shunt_range"`
	BusADC     string `yaml:"bus_adc"`
	ShuntADC   string `yaml:"shunt_adc"`
	Mode       string `yaml:"mode"`
}

type BatteryConfig struct {
	EmptyVolts float64 `yaml:"empty_volts"`
	FullVolts  float64 `yaml:"full_volts"`
}

// Default matches the reference board: 0.01Ω shunt, 32V/±320mV continuous,
// one sample per second.
func Default() Config {
	return Config{
		ShuntOhms:    0.01,
		PollInterval: time.Second,
		HTTPPort:     3000,
		LogLevel:     "INFO",
		Sensor: SensorConfig{
			BusRange:   "32V",
			ShuntRange: "320mV",
			BusADC:     "12bit",
			ShuntADC:   "12bit_32s",
			Mode:       "shunt_bus_continuous",
		},
		Battery: BatteryConfig{
			EmptyVolts: battery.DefaultRange.Empty,
			FullVolts:  battery.DefaultRange.Full,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
// Keys that match no field are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ShuntOhms <= 0 {
		return fmt.Errorf("shunt_ohms must be positive, got %v", c.ShuntOhms)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	if c.Battery.FullVolts <= c.Battery.EmptyVolts {
		return errors.New("battery.full_volts must be above battery.empty_volts")
	}
	_, err := c.Sensor.Device()
	return err
}

// Shunt returns the shunt resistance with nano-ohm resolution.
func (c Config) Shunt() physic.ElectricResistance {
	return physic.ElectricResistance(c.ShuntOhms*float64(physic.Ohm) + 0.5)
}

func (c Config) BatteryRange() battery.Range {
	return battery.Range{Empty: c.Battery.EmptyVolts, Full: c.Battery.FullVolts}
}

var (
	busRanges = map[string]ina219.BusRange{
		"16v": ina219.BusRange16V,
		"32v": ina219.BusRange32V,
	}
	shuntRanges = map[string]ina219.ShuntRange{
		"40mv":  ina219.ShuntRange40mV,
		"80mv":  ina219.ShuntRange80mV,
		"160mv": ina219.ShuntRange160mV,
		"320mv": ina219.ShuntRange320mV,
	}
	adcModes = map[string]ina219.ADCMode{
		"9bit":       ina219.ADC9Bit,
		"10bit":      ina219.ADC10Bit,
		"11bit":      ina219.ADC11Bit,
		"12bit":      ina219.ADC12Bit,
		"12bit_2s":   ina219.ADC12Bit2S,
		"12bit_4s":   ina219.ADC12Bit4S,
		"12bit_8s":   ina219.ADC12Bit8S,
		"12bit_16s":  ina219.ADC12Bit16S,
		"12bit_32s":  ina219.ADC12Bit32S,
		"12bit_64s":  ina219.ADC12Bit64S,
		"12bit_128s": ina219.ADC12Bit128S,
	}
	modes = map[string]ina219.Mode{
		"power_down":           ina219.ModePowerDown,
		"shunt_triggered":      ina219.ModeShuntTriggered,
		"bus_triggered":        ina219.ModeBusTriggered,
		"shunt_bus_triggered":  ina219.ModeShuntBusTriggered,
		"adc_off":              ina219.ModeADCOff,
		"shunt_continuous":     ina219.ModeShuntContinuous,
		"bus_continuous":       ina219.ModeBusContinuous,
		"shunt_bus_continuous": ina219.ModeShuntBusContinuous,
	}
)

func lookup[T any](m map[string]T, key, name string) (T, error) {
	v, ok := m[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown sensor.%s %q", name, key)
	}
	return v, nil
}

// Device converts the option names into a register configuration.
func (s SensorConfig) Device() (ina219.Config, error) {
	var cfg ina219.Config
	var err error
	if cfg.BusRange, err = lookup(busRanges, s.BusRange, "bus_range"); err != nil {
		return cfg, err
	}
	if cfg.ShuntRange, err = lookup(shuntRanges, s.ShuntRange, "shunt_range"); err != nil {
		return cfg, err
	}
	if cfg.BusADC, err = lookup(adcModes, s.BusADC, "bus_adc"); err != nil {
		return cfg, err
	}
	if cfg.ShuntADC, err = lookup(adcModes, s.ShuntADC, "shunt_adc"); err != nil {
		return cfg, err
	}
	if cfg.Mode, err = lookup(modes, s.Mode, "mode"); err != nil {
		return cfg, err
	}
	return cfg, nil
}
