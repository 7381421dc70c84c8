package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"ina219mon/internal/battery"
	"ina219mon/internal/ina219"
	"ina219mon/internal/logging"
)

type MockSensor struct {
	state    ina219.State
	reading  ina219.Reading
	applyErr error
	senseErr error
	applies  int
	senses   int
}

func (m *MockSensor) Apply() error {
	m.applies++
	if m.applyErr != nil {
		return m.applyErr
	}
	m.state = ina219.Configured
	return nil
}

func (m *MockSensor) Sense() (ina219.Reading, error) {
	m.senses++
	if m.senseErr != nil {
		return ina219.Reading{}, m.senseErr
	}
	m.state = ina219.Sampling
	return m.reading, nil
}

func (m *MockSensor) State() ina219.State { return m.state }

type MockLED struct {
	levels []gpio.Level
}

func (m *MockLED) Out(l gpio.Level) error {
	m.levels = append(m.levels, l)
	return nil
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{})   {}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	r := ina219.Reading{BusVolts: 3.6, CurrentMilliAmps: 500, PowerMilliWatts: 1800}
	if err := WriteReport(&buf, r, 50); err != nil {
		t.Fatal(err)
	}
	want := "Voltage:           3.6 V\n" +
		"Current:         0.500 A\n" +
		"Power:           1.800 W\n" +
		"Percent:          50.0 %\n" +
		"\n"
	if buf.String() != want {
		t.Errorf("report =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteReportCRLF(t *testing.T) {
	var buf bytes.Buffer
	r := ina219.Reading{BusVolts: 4.2, CurrentMilliAmps: 1250, PowerMilliWatts: 5250}
	if err := WriteReport(logging.NewCRLFWriter(&buf), r, 100); err != nil {
		t.Fatal(err)
	}
	want := "Voltage:           4.2 V\r\n" +
		"Current:         1.250 A\r\n" +
		"Power:           5.250 W\r\n" +
		"Percent:         100.0 %\r\n" +
		"\r\n"
	if buf.String() != want {
		t.Errorf("report =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestCycle(t *testing.T) {
	sensor := &MockSensor{reading: ina219.Reading{BusVolts: 3.6, CurrentMilliAmps: 500, PowerMilliWatts: 1800}}
	led := &MockLED{}
	var out bytes.Buffer
	m := New(sensor, led, &out, nopLogger{}, battery.DefaultRange, time.Second)

	if m.Latest().Valid {
		t.Fatal("snapshot valid before first cycle")
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.Cycle(now)

	if sensor.applies != 1 || sensor.senses != 1 {
		t.Errorf("applies=%d senses=%d, want 1/1", sensor.applies, sensor.senses)
	}
	snap := m.Latest()
	if !snap.Valid || snap.Err != nil {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Reading != sensor.reading || !snap.Updated.Equal(now) {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Percent < 49.999 || snap.Percent > 50.001 || snap.Status != battery.StatusNormal {
		t.Errorf("percent/status = %v/%s", snap.Percent, snap.Status)
	}
	if !strings.Contains(out.String(), "Percent:          50.0 %") {
		t.Errorf("report missing percent: %q", out.String())
	}

	m.Cycle(now.Add(time.Second))
	if sensor.applies != 1 {
		t.Errorf("Apply called again once configured")
	}
	if len(led.levels) != 2 || led.levels[0] != gpio.High || led.levels[1] != gpio.Low {
		t.Errorf("led levels = %v", led.levels)
	}
}

func TestCycleApplyFailureRetried(t *testing.T) {
	nack := errors.New("nack")
	sensor := &MockSensor{applyErr: nack}
	led := &MockLED{}
	var out bytes.Buffer
	m := New(sensor, led, &out, nopLogger{}, battery.DefaultRange, time.Second)

	m.Cycle(time.Now())
	if sensor.senses != 0 {
		t.Errorf("Sense called on unconfigured sensor")
	}
	if snap := m.Latest(); snap.Valid || !errors.Is(snap.Err, nack) {
		t.Errorf("snapshot = %+v", snap)
	}
	if out.Len() != 0 {
		t.Errorf("report printed for failed cycle: %q", out.String())
	}
	if len(led.levels) != 1 {
		t.Errorf("led not toggled on failed cycle")
	}

	sensor.applyErr = nil
	m.Cycle(time.Now())
	if sensor.applies != 2 || sensor.senses != 1 {
		t.Errorf("applies=%d senses=%d, want 2/1", sensor.applies, sensor.senses)
	}
	if snap := m.Latest(); !snap.Valid || snap.Err != nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCycleSenseFailureKeepsLastReading(t *testing.T) {
	sensor := &MockSensor{reading: ina219.Reading{BusVolts: 4.2}}
	var out bytes.Buffer
	m := New(sensor, nil, &out, nopLogger{}, battery.DefaultRange, time.Second)

	m.Cycle(time.Now())
	out.Reset()

	timeout := errors.New("timeout")
	sensor.senseErr = timeout
	m.Cycle(time.Now())

	snap := m.Latest()
	if !snap.Valid || snap.Reading.BusVolts != 4.2 || snap.Status != battery.StatusFull {
		t.Errorf("last good reading lost: %+v", snap)
	}
	if !errors.Is(snap.Err, timeout) {
		t.Errorf("Err = %v, want %v", snap.Err, timeout)
	}
	if out.Len() != 0 {
		t.Errorf("report printed for failed cycle: %q", out.String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sensor := &MockSensor{reading: ina219.Reading{BusVolts: 3.7}}
	var out bytes.Buffer
	m := New(sensor, nil, &out, nopLogger{}, battery.DefaultRange, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if sensor.senses != 1 {
		t.Errorf("senses = %d, want the immediate first cycle", sensor.senses)
	}
}

// tickSensor reports each Sense on a channel so Run can be observed from
// another goroutine.
type tickSensor struct {
	mu     sync.Mutex
	state  ina219.State
	sensed chan struct{}
}

func (s *tickSensor) Apply() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ina219.Configured
	return nil
}

func (s *tickSensor) Sense() (ina219.Reading, error) {
	s.mu.Lock()
	s.state = ina219.Sampling
	s.mu.Unlock()
	select {
	case s.sensed <- struct{}{}:
	default:
	}
	return ina219.Reading{BusVolts: 3.9}, nil
}

func (s *tickSensor) State() ina219.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func TestRunTicks(t *testing.T) {
	sensor := &tickSensor{sensed: make(chan struct{}, 4)}
	led := &MockLED{}
	m := New(sensor, led, io.Discard, nopLogger{}, battery.DefaultRange, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-sensor.sensed:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d cycles before timeout", i)
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if snap := m.Latest(); !snap.Valid || snap.Reading.BusVolts != 3.9 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(led.levels) < 3 {
		t.Errorf("led toggled %d times, want at least 3", len(led.levels))
	}
}
