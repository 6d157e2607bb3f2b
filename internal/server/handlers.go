package server

import (
	"net/http"
	"time"

	"github.com/go-kit/log/level"

	"github.com/seclens/windevices/inventory"
)

// DeviceEnvelope is the wire shape of the device endpoints.
type DeviceEnvelope struct {
	Result   inventory.Result   `json:"result"`
	Message  string             `json:"message"`
	Error    string             `json:"error,omitempty"`
	ScanTime time.Time          `json:"scanTime"`
	Count    int                `json:"count"`
	Devices  []inventory.Device `json:"devices"`
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondSnapshot(w, s.Store.Current())
}

func (s *Server) handleMassStorage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.Store.Current()
	snap.Devices = inventory.FilterMassStorage(snap.Devices)
	if snap.Result == inventory.ResultOK && len(snap.Devices) == 0 {
		snap.Result = inventory.ResultNoDevices
	}
	s.respondSnapshot(w, snap)
}

func (s *Server) respondSnapshot(w http.ResponseWriter, snap Snapshot) {
	env := DeviceEnvelope{
		Result:   snap.Result,
		Message:  inventory.ResultMessage(snap.Result),
		Error:    snap.ScanErr,
		ScanTime: snap.ScanTime,
		Count:    len(snap.Devices),
		Devices:  snap.Devices,
	}
	if err := respondJSON(w, http.StatusOK, env); err != nil {
		level.Warn(s.logger).Log("msg", "response write failed", "err", err)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := respondJSON(w, http.StatusOK, inventory.Version()); err != nil {
		level.Warn(s.logger).Log("msg", "response write failed", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
