package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"ina219mon/internal/config"
	"ina219mon/internal/ina219"
	"ina219mon/internal/logging"
	"ina219mon/internal/monitor"
	"ina219mon/internal/server"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (defaults to the reference board)")
	flag.Parse()

	log := logging.Log

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		log.Warningf("invalid log_level %q: %v", cfg.LogLevel, err)
	}
	log.Info("Starting ina219mon...")

	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		log.Fatalf("failed to open I2C: %v", err)
	}
	defer bus.Close()

	devCfg, err := cfg.Sensor.Device()
	if err != nil {
		log.Fatal(err)
	}
	sensor, err := ina219.NewINA219(bus, devCfg, cfg.Shunt())
	if err != nil {
		log.Fatalf("Failed to init INA219: %v", err)
	}
	cal := sensor.Calibration()
	log.Infof("INA219 (Addr: 0x%X) on %s: config 0x%04X, calibration %d, %.3f mA/bit, %.3f mW/bit",
		ina219.Addr, bus, devCfg.Value(), cal.Value, cal.CurrentLSB, cal.PowerLSB)

	var led monitor.LED
	if cfg.LEDPin != "" {
		pin := gpioreg.ByName(cfg.LEDPin)
		if pin == nil {
			log.Fatalf("unknown LED pin %q", cfg.LEDPin)
		}
		if err := pin.Out(gpio.Low); err != nil {
			log.Fatalf("failed to drive LED pin %s: %v", pin, err)
		}
		led = pin
	}

	mon := monitor.New(sensor, led, os.Stdout, log, cfg.BatteryRange(), cfg.PollInterval)

	if cfg.HTTPPort != 0 {
		go func() {
			if err := server.Run(cfg.HTTPPort, mon); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("monitor stopped: %v", err)
	}
	log.Info("Stopped")
}
