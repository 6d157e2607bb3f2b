package main

import (
	"context"

	"github.com/seclens/windevices/inventory"
)

// scanner adapts the inventory manager to the two shapes the CLI needs.
type scanner struct {
	mgr inventory.Manager
}

func (s *scanner) Scan(ctx context.Context, massOnly bool) ([]inventory.Device, error) {
	if massOnly {
		return s.mgr.EnumerateUSBMassStorage(ctx)
	}
	return s.mgr.EnumerateUSBDevices(ctx)
}

func (s *scanner) ByClass(classGUID string) ([]inventory.Device, error) {
	return s.mgr.EnumerateByDeviceClass(classGUID)
}
