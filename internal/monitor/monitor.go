// Package monitor runs the sampling loop: read the sensor, estimate charge,
// print a report and blink the status LED once per period.
package monitor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"ina219mon/internal/battery"
	"ina219mon/internal/ina219"
)

type Sensor interface {
	Apply() error
	Sense() (ina219.Reading, error)
	State() ina219.State
}

// LED is the part of gpio.PinOut the monitor needs.
type LED interface {
	Out(l gpio.Level) error
}

type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Snapshot is the outcome of the most recent cycle. Reading, Percent and
// Status keep the last good values when a later cycle fails.
type Snapshot struct {
	Reading ina219.Reading
	Percent float64
	Status  battery.Status
	Updated time.Time
	Err     error
	Valid   bool
}

type Monitor struct {
	sensor   Sensor
	led      LED
	out      io.Writer
	log      Logger
	rng      battery.Range
	interval time.Duration

	level gpio.Level

	mu   sync.RWMutex
	snap Snapshot
}

// New builds a monitor. led may be nil.
func New(sensor Sensor, led LED, out io.Writer, log Logger, rng battery.Range, interval time.Duration) *Monitor {
	return &Monitor{
		sensor:   sensor,
		led:      led,
		out:      out,
		log:      log,
		rng:      rng,
		interval: interval,
	}
}

// Latest returns the last published snapshot.
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Run samples immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Cycle(time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			m.Cycle(now)
		}
	}
}

// Cycle performs one sampling cycle. A failed cycle prints nothing; the error
// is logged and recorded in the snapshot. Until the sensor has been
// configured every cycle retries Apply first.
func (m *Monitor) Cycle(now time.Time) {
	defer m.toggleLED()

	if m.sensor.State() == ina219.Uninitialized {
		if err := m.sensor.Apply(); err != nil {
			m.log.Errorf("configure sensor: %v", err)
			m.fail(now, err)
			return
		}
		m.log.Infof("sensor configured")
	}

	r, err := m.sensor.Sense()
	if err != nil {
		m.log.Warningf("read sensor: %v", err)
		m.fail(now, err)
		return
	}

	pct := m.rng.Percent(r.BusVolts)
	if err := WriteReport(m.out, r, pct); err != nil {
		m.log.Errorf("write report: %v", err)
	}

	m.mu.Lock()
	m.snap = Snapshot{
		Reading: r,
		Percent: pct,
		Status:  battery.StatusOf(pct),
		Updated: now,
		Valid:   true,
	}
	m.mu.Unlock()
}

func (m *Monitor) fail(now time.Time, err error) {
	m.mu.Lock()
	m.snap.Updated = now
	m.snap.Err = err
	m.mu.Unlock()
}

func (m *Monitor) toggleLED() {
	if m.led == nil {
		return
	}
	m.level = !m.level
	if err := m.led.Out(m.level); err != nil {
		m.log.Warningf("status led: %v", err)
	}
}

// WriteReport prints one cycle: voltage, current and power in base units,
// the charge estimate, then a blank line. Lines end in "\n"; a serial console
// wraps w in logging.NewCRLFWriter.
func WriteReport(w io.Writer, r ina219.Reading, percent float64) error {
	_, err := fmt.Fprintf(w,
		"Voltage:        %6.1f V\nCurrent:        %6.3f A\nPower:          %6.3f W\nPercent:        %6.1f %%\n\n",
		r.BusVolts, r.CurrentMilliAmps/1000, r.PowerMilliWatts/1000, percent)
	return err
}
