package server

import (
	"sync"
	"time"

	"github.com/seclens/windevices/inventory"
)

// SnapshotStore holds the most recent scan for the read-only API. Scans
// replace the content wholesale.
type SnapshotStore struct {
	mu       sync.RWMutex
	devices  []inventory.Device
	scanTime time.Time
	result   inventory.Result
	scanErr  string
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{result: inventory.ResultNoDevices}
}

// Snapshot is one published scan.
type Snapshot struct {
	Devices  []inventory.Device
	ScanTime time.Time
	Result   inventory.Result
	ScanErr  string
}

// Publish records the outcome of a scan, successful or not.
func (s *SnapshotStore) Publish(devices []inventory.Device, scanErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scanTime = time.Now().UTC()
	if scanErr != nil {
		s.result = inventory.ResultFor(scanErr)
		s.scanErr = scanErr.Error()
		return
	}
	s.devices = append(s.devices[:0:0], devices...)
	s.scanErr = ""
	if len(devices) == 0 {
		s.result = inventory.ResultNoDevices
	} else {
		s.result = inventory.ResultOK
	}
}

// Current returns a copy of the latest snapshot.
func (s *SnapshotStore) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Devices:  append([]inventory.Device(nil), s.devices...),
		ScanTime: s.scanTime,
		Result:   s.result,
		ScanErr:  s.scanErr,
	}
}
