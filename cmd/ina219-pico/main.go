//go:build rp2040

// Command ina219-pico is the Raspberry Pi Pico firmware: INA219 on I2C1
// (GP2 SDA, GP3 SCL), report on the USB serial console, onboard LED as the
// status indicator.
package main

import (
	"context"
	"machine"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"ina219mon/internal/battery"
	"ina219mon/internal/ina219"
	"ina219mon/internal/logging"
	"ina219mon/internal/monitor"
	"ina219mon/internal/tinybus"
)

const shunt = 10 * physic.MilliOhm

type pinLED struct {
	p machine.Pin
}

func (l pinLED) Out(level gpio.Level) error {
	l.p.Set(bool(level))
	return nil
}

func main() {
	console := logging.InitConsole(os.Stdout)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	i2c := machine.I2C1
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.GP2,
		SCL:       machine.GP3,
	}); err != nil {
		logging.Log.Errorf("i2c1: %v", err)
	}

	sensor, err := ina219.NewINA219(tinybus.New(i2c, "i2c1"), ina219.DefaultConfig(), shunt)
	if err != nil {
		// Only reachable with a bad compile-time configuration.
		for {
			logging.Log.Errorf("ina219: %v", err)
			time.Sleep(time.Second)
		}
	}

	mon := monitor.New(sensor, pinLED{led}, console, logging.Log, battery.DefaultRange, time.Second)
	mon.Run(context.Background())
}
