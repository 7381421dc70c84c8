package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ina219mon/internal/logging"
	"ina219mon/internal/monitor"
)

type SnapshotSource interface {
	Latest() monitor.Snapshot
}

type BatteryResponse struct {
	Level   int     `json:"sensor.battery_level"`
	Voltage float64 `json:"sensor.battery_voltage"`
	Current float64 `json:"sensor.battery_current"` // A, magnitude only
	Power   float64 `json:"sensor.battery_power"`   // W
	Shunt   float64 `json:"sensor.shunt_voltage"`   // mV
	State   string  `json:"sensor.battery_state"`
	Updated string  `json:"sensor.updated"`
	Error   string  `json:"sensor.error,omitempty"`
}

type Server struct {
	src SnapshotSource
}

func Run(port int, src SnapshotSource) error {
	s := &Server{src: src}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.rootHandler)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logging.Log.Infof("Listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Latest()
	if !snap.Valid {
		msg := "no reading yet"
		if snap.Err != nil {
			msg = snap.Err.Error()
		}
		http.Error(w, msg, http.StatusServiceUnavailable)
		return
	}

	resp := BatteryResponse{
		Level:   int(snap.Percent),
		Voltage: snap.Reading.BusVolts,
		Current: snap.Reading.CurrentMilliAmps / 1000,
		Power:   snap.Reading.PowerMilliWatts / 1000,
		Shunt:   snap.Reading.ShuntMilliVolts,
		State:   string(snap.Status),
		Updated: snap.Updated.UTC().Format(time.RFC3339),
	}
	// The reading is kept from the last good cycle; flag that it is stale.
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
