package server

import (
	"testing"

	"github.com/efficientgo/core/errors"

	"github.com/seclens/windevices/inventory"
	"github.com/seclens/windevices/usbhub"
)

func TestStorePublishAndCurrent(t *testing.T) {
	s := NewSnapshotStore()

	snap := s.Current()
	if snap.Result != inventory.ResultNoDevices {
		t.Errorf("fresh store result: got %d, want %d", snap.Result, inventory.ResultNoDevices)
	}
	if len(snap.Devices) != 0 {
		t.Errorf("fresh store devices: got %d", len(snap.Devices))
	}

	devices := []inventory.Device{{Product: "a"}, {Product: "b"}}
	s.Publish(devices, nil)

	snap = s.Current()
	if snap.Result != inventory.ResultOK {
		t.Errorf("result: got %d, want OK", snap.Result)
	}
	if len(snap.Devices) != 2 {
		t.Errorf("devices: got %d, want 2", len(snap.Devices))
	}
	if snap.ScanTime.IsZero() {
		t.Error("scan time not set")
	}

	// Mutating the returned copy must not touch the store.
	snap.Devices[0].Product = "mutated"
	if got := s.Current().Devices[0].Product; got != "a" {
		t.Errorf("store mutated through copy: %q", got)
	}
}

func TestStorePublishEmpty(t *testing.T) {
	s := NewSnapshotStore()
	s.Publish(nil, nil)
	if got := s.Current().Result; got != inventory.ResultNoDevices {
		t.Errorf("result: got %d, want %d", got, inventory.ResultNoDevices)
	}
}

func TestStorePublishError(t *testing.T) {
	s := NewSnapshotStore()
	s.Publish([]inventory.Device{{Product: "a"}}, nil)

	// A failed scan records the error but keeps the last good list.
	s.Publish(nil, errors.Wrap(usbhub.ErrIoctl, "walk failed"))
	snap := s.Current()
	if snap.Result != inventory.ResultEnumFailed {
		t.Errorf("result: got %d, want %d", snap.Result, inventory.ResultEnumFailed)
	}
	if snap.ScanErr == "" {
		t.Error("scan error not recorded")
	}
	if len(snap.Devices) != 1 {
		t.Errorf("last good list lost: got %d devices", len(snap.Devices))
	}
}
