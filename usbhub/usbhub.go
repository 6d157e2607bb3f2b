// Package usbhub talks to USB hub and host controller driver stacks
// through device control transfers, exposing per-port connection state and
// descriptors. The transport is an interface so the protocol logic is
// testable without hardware.
package usbhub

import (
	"github.com/efficientgo/core/errors"

	"github.com/seclens/windevices/descriptor"
)

// MaxPortsPerHub caps port traversal; the USB specification allows at most
// 127 addressable devices on a bus.
const MaxPortsPerHub = 127

var (
	// ErrInvalidArgument flags caller mistakes (zero port index, zero
	// port count). It always propagates.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidHandle flags use of a closed or never-opened channel.
	ErrInvalidHandle = errors.New("invalid device handle")
	// ErrIoctl wraps failed control transfers.
	ErrIoctl = errors.New("device control transfer failed")
)

// Conn is a handle to one hub or controller device file. Ioctl issues a
// buffered control transfer and reports how many bytes the driver wrote
// into out.
type Conn interface {
	Ioctl(code uint32, in, out []byte) (int, error)
	Close() error
}

// Speed is the negotiated bus speed of a connected device.
type Speed int

const (
	SpeedUnknown Speed = iota
	SpeedLow
	SpeedFull
	SpeedHigh
	SpeedSuper
)

func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low"
	case SpeedFull:
		return "Full"
	case SpeedHigh:
		return "High"
	case SpeedSuper:
		return "SuperSpeed"
	default:
		return "Unknown"
	}
}

// NodeInfo is the hub-level summary from a node information query.
// NodeType distinguishes an ordinary hub from a multi-interface parent
// (winapi.UsbHubNode / winapi.UsbMIParentNode).
type NodeInfo struct {
	NodeType     uint32
	PortCount    uint32
	IsBusPowered bool
}

// ConnectorInfo carries physical connector attributes of one port. The
// companion fields map a USB3 port to its USB2 twin on the paired hub.
type ConnectorInfo struct {
	Properties          uint32
	IsTypeC             bool
	CompanionIndex      uint16
	CompanionPortNumber uint16
}

// ConnectionInfo is the decoded per-port connection state.
type ConnectionInfo struct {
	Port             uint32
	Status           uint32
	Connected        bool
	Speed            Speed
	IsHub            bool
	DeviceAddress    uint16
	OpenPipes        uint32
	CurrentConfig    byte
	DeviceDescriptor descriptor.Device
}

// PortInfo aggregates everything a port enumeration learns about one port.
// Unconnected ports carry only Port, Status and connector data.
type PortInfo struct {
	ConnectionInfo

	DriverKey       string
	Connector       ConnectorInfo
	ExternalHubPath string

	Interface    descriptor.InterfaceInfo
	HasInterface bool

	Manufacturer string
	Product      string
	SerialNumber string

	ConfigDescriptor []byte
}

// ControllerInfo describes a host controller as reported by the USB user
// request interface.
type ControllerInfo struct {
	PciVendorID       uint32
	PciDeviceID       uint32
	PciRevision       uint32
	NumberOfRootPorts uint32
}
