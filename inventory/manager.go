package inventory

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/seclens/windevices/devenum"
	"github.com/seclens/windevices/usbhub"
)

// ErrBadIndex flags an out-of-range device index.
var ErrBadIndex = errors.New("device index out of range")

// Manager is the narrow surface the snapshot server and CLI consume. The
// implementation stays private; construct one with New.
type Manager interface {
	// EnumerateUSBDevices rebuilds the device list from a full topology
	// walk and returns it.
	EnumerateUSBDevices(ctx context.Context) ([]Device, error)
	// EnumerateUSBMassStorage walks the topology and keeps only mass
	// storage devices, enriched with their physical drive records.
	EnumerateUSBMassStorage(ctx context.Context) ([]Device, error)
	// EnumerateByDeviceClass lists present devices of one setup class
	// from the registry alone, without touching hub channels.
	EnumerateByDeviceClass(classGUID string) ([]Device, error)
	// DeviceCount reports the size of the last enumerated list.
	DeviceCount() int
	// DeviceAt returns one device from the last enumerated list.
	DeviceAt(i int) (Device, error)
}

// List is a mutex-protected device snapshot. Every enumeration replaces
// the content wholesale; readers get copies.
type List struct {
	mu      sync.RWMutex
	devices []Device
}

// Replace swaps in a freshly enumerated list.
func (l *List) Replace(devices []Device) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.devices = append(l.devices[:0:0], devices...)
}

// Devices returns a copy of the snapshot.
func (l *List) Devices() []Device {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Device(nil), l.devices...)
}

// Count reports the snapshot size.
func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.devices)
}

// At returns the i-th device of the snapshot.
func (l *List) At(i int) (Device, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.devices) {
		return Device{}, errors.Wrapf(ErrBadIndex, "index %d, size %d", i, len(l.devices))
	}
	return l.devices[i], nil
}

// ResultFor maps an operation outcome to the stable snapshot result code.
func ResultFor(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case stderrors.Is(err, ErrBadIndex):
		return ResultBadIndex
	case stderrors.Is(err, usbhub.ErrInvalidHandle):
		return ResultInvalidHandle
	case stderrors.Is(err, usbhub.ErrInvalidArgument):
		return ResultNullArg
	case stderrors.Is(err, devenum.ErrInvalidArgument):
		return ResultNullArg
	case stderrors.Is(err, devenum.ErrEnumeration), stderrors.Is(err, usbhub.ErrIoctl):
		return ResultEnumFailed
	default:
		return ResultUnknown
	}
}
