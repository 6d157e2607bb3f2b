package usbhub

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/efficientgo/core/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/seclens/windevices/descriptor"
	"github.com/seclens/windevices/internal/winapi"
)

// Request/response buffer offsets for the connection queries. The layouts
// mirror usbioctl.h with default packing.
const (
	nodeInfoSize          = 76
	nodeInfoTypeOff       = 0
	nodeInfoPortCountOff  = 6
	nodeInfoBusPoweredOff = 75

	connInfoSize       = 36
	connInfoDescOff    = 4
	connInfoConfigOff  = 22
	connInfoSpeedOff   = 23
	connInfoIsHubOff   = 24
	connInfoAddressOff = 26
	connInfoPipesOff   = 28
	connInfoStatusOff  = 32

	v2InfoSize = 16

	nameHeaderSize    = 12
	nameActualLenOff  = 4
	nameStringOff     = 8
	hcdNameHeaderSize = 8

	connectorPropsSize = 20

	descRequestHeaderSize = 12

	hubInfoExSize           = 80
	hubInfoExHighestPortOff = 4

	controllerInfoSize   = 40
	controllerPayloadOff = 16

	defaultLanguageID = 0x0409 // EN-US, the index most firmware populates
)

// Channel drives the per-port queries against one opened hub device.
type Channel struct {
	conn   Conn
	logger log.Logger
}

// NewChannel wraps an open hub connection. The logger receives soft
// per-port failures; pass nil to discard them.
func NewChannel(conn Conn, logger log.Logger) (*Channel, error) {
	if conn == nil {
		return nil, errors.Wrap(ErrInvalidHandle, "nil connection")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Channel{conn: conn, logger: logger}, nil
}

// Close releases the underlying device handle.
func (c *Channel) Close() error {
	if c.conn == nil {
		return errors.Wrap(ErrInvalidHandle, "channel already closed")
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Channel) ioctl(code uint32, buf []byte) (int, error) {
	if c.conn == nil {
		return 0, errors.Wrap(ErrInvalidHandle, "channel closed")
	}
	n, err := c.conn.Ioctl(code, buf, buf)
	if err != nil {
		return n, errors.Wrapf(ErrIoctl, "ioctl 0x%X: %v", code, err)
	}
	return n, nil
}

// NodeInfo queries the hub node for its port count and power mode.
func (c *Channel) NodeInfo() (NodeInfo, error) {
	buf := make([]byte, nodeInfoSize)
	n, err := c.ioctl(winapi.IOCTL_USB_GET_NODE_INFORMATION, buf)
	if err != nil {
		return NodeInfo{}, err
	}
	if n < nodeInfoSize {
		return NodeInfo{}, errors.Wrapf(ErrIoctl, "node information truncated: %d bytes", n)
	}
	return NodeInfo{
		NodeType:     binary.LittleEndian.Uint32(buf[nodeInfoTypeOff:]),
		PortCount:    uint32(buf[nodeInfoPortCountOff]),
		IsBusPowered: buf[nodeInfoBusPoweredOff] != 0,
	}, nil
}

// HighestPortNumber returns the extended hub query's port ceiling. Hubs
// predating the extended query report zero here and NodeInfo is
// authoritative.
func (c *Channel) HighestPortNumber() (uint16, error) {
	buf := make([]byte, hubInfoExSize)
	n, err := c.ioctl(winapi.IOCTL_USB_GET_HUB_INFORMATION_EX, buf)
	if err != nil {
		return 0, err
	}
	if n < hubInfoExHighestPortOff+2 {
		return 0, errors.Wrapf(ErrIoctl, "hub information truncated: %d bytes", n)
	}
	return binary.LittleEndian.Uint16(buf[hubInfoExHighestPortOff:]), nil
}

// CapabilityFlags returns the raw USB_HUB_CAP_FLAGS bitfield.
func (c *Channel) CapabilityFlags() (uint32, error) {
	buf := make([]byte, 4)
	n, err := c.ioctl(winapi.IOCTL_USB_GET_HUB_CAPABILITIES_EX, buf)
	if err != nil {
		return 0, err
	}
	if n < 4 {
		return 0, errors.Wrapf(ErrIoctl, "hub capabilities truncated: %d bytes", n)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ConnectionInfo reads connection state for one 1-based port. The extended
// query is preferred; when the driver stack rejects it the legacy query
// supplies low/full speed at least. Super speed operation is detected via
// the V2 flags, which high-speed-only stacks do not implement.
func (c *Channel) ConnectionInfo(port uint32) (ConnectionInfo, error) {
	if port == 0 {
		return ConnectionInfo{}, errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}

	var v2Flags uint32
	v2 := make([]byte, v2InfoSize)
	binary.LittleEndian.PutUint32(v2[0:], port)
	binary.LittleEndian.PutUint32(v2[4:], v2InfoSize)
	binary.LittleEndian.PutUint32(v2[8:], winapi.UsbProtocol110|winapi.UsbProtocol200|winapi.UsbProtocol300)
	if _, err := c.ioctl(winapi.IOCTL_USB_GET_NODE_CONNECTION_INFORMATION_EX_V2, v2); err == nil {
		v2Flags = binary.LittleEndian.Uint32(v2[12:])
	} else {
		level.Debug(c.logger).Log("msg", "v2 connection query unsupported", "port", port, "err", err)
	}

	buf := make([]byte, connInfoSize)
	binary.LittleEndian.PutUint32(buf[0:], port)
	if _, err := c.ioctl(winapi.IOCTL_USB_GET_NODE_CONNECTION_INFORMATION_EX, buf); err == nil {
		info, perr := c.parseConnection(port, buf)
		if perr != nil {
			return ConnectionInfo{}, perr
		}
		info.Speed = exSpeed(buf[connInfoSpeedOff], v2Flags)
		return info, nil
	} else {
		level.Debug(c.logger).Log("msg", "extended connection query failed, trying legacy", "port", port, "err", err)
	}

	buf = make([]byte, connInfoSize)
	binary.LittleEndian.PutUint32(buf[0:], port)
	if _, err := c.ioctl(winapi.IOCTL_USB_GET_NODE_CONNECTION_INFORMATION, buf); err != nil {
		return ConnectionInfo{}, err
	}
	info, perr := c.parseConnection(port, buf)
	if perr != nil {
		return ConnectionInfo{}, perr
	}
	if buf[connInfoSpeedOff] != 0 {
		info.Speed = SpeedLow
	} else {
		info.Speed = SpeedFull
	}
	return info, nil
}

func (c *Channel) parseConnection(port uint32, buf []byte) (ConnectionInfo, error) {
	status := binary.LittleEndian.Uint32(buf[connInfoStatusOff:])
	info := ConnectionInfo{
		Port:      port,
		Status:    status,
		Connected: status == winapi.DeviceConnected,
		IsHub:     buf[connInfoIsHubOff] != 0,
	}
	if !info.Connected {
		return info, nil
	}
	dev, err := descriptor.ParseDevice(buf[connInfoDescOff : connInfoDescOff+descriptor.DeviceDescriptorLength])
	if err != nil {
		return ConnectionInfo{}, err
	}
	info.DeviceDescriptor = dev
	info.CurrentConfig = buf[connInfoConfigOff]
	info.DeviceAddress = binary.LittleEndian.Uint16(buf[connInfoAddressOff:])
	info.OpenPipes = binary.LittleEndian.Uint32(buf[connInfoPipesOff:])
	return info, nil
}

func exSpeed(raw byte, v2Flags uint32) Speed {
	speed := SpeedUnknown
	switch raw {
	case winapi.UsbLowSpeed:
		speed = SpeedLow
	case winapi.UsbFullSpeed:
		speed = SpeedFull
	case winapi.UsbHighSpeed:
		speed = SpeedHigh
	case winapi.UsbSuperSpeed:
		speed = SpeedSuper
	}
	// xHCI stacks report SuperSpeed devices as high speed in the EX query
	// and expose the truth only through the V2 flags.
	if speed == SpeedHigh &&
		v2Flags&winapi.V2DeviceIsSuperSpeedCapableOrHigher != 0 &&
		v2Flags&winapi.V2DeviceIsOperatingAtSuperSpeedOrHigher != 0 {
		speed = SpeedSuper
	}
	return speed
}

// DriverKeyName resolves the registry driver key of the device on a port.
func (c *Channel) DriverKeyName(port uint32) (string, error) {
	if port == 0 {
		return "", errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}
	return c.connectionString(winapi.IOCTL_USB_GET_NODE_CONNECTION_DRIVERKEY_NAME, port)
}

// ExternalHubName resolves the device name of a downstream hub attached to
// a port. Empty when the port does not host a hub.
func (c *Channel) ExternalHubName(port uint32) (string, error) {
	if port == 0 {
		return "", errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}
	return c.connectionString(winapi.IOCTL_USB_GET_NODE_CONNECTION_NAME, port)
}

// connectionString handles the two-phase name queries that share the
// ConnectionIndex/ActualLength/name layout.
func (c *Channel) connectionString(code uint32, port uint32) (string, error) {
	probe := make([]byte, nameHeaderSize)
	binary.LittleEndian.PutUint32(probe[0:], port)
	if _, err := c.ioctl(code, probe); err != nil {
		return "", err
	}
	actual := binary.LittleEndian.Uint32(probe[nameActualLenOff:])
	if actual <= nameHeaderSize {
		return "", nil
	}
	buf := make([]byte, actual)
	binary.LittleEndian.PutUint32(buf[0:], port)
	if _, err := c.ioctl(code, buf); err != nil {
		return "", err
	}
	return decodeUTF16Z(buf[nameStringOff:]), nil
}

// ConnectorProperties reads physical connector attributes for one port.
func (c *Channel) ConnectorProperties(port uint32) (ConnectorInfo, error) {
	if port == 0 {
		return ConnectorInfo{}, errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}
	buf := make([]byte, connectorPropsSize)
	binary.LittleEndian.PutUint32(buf[0:], port)
	n, err := c.ioctl(winapi.IOCTL_USB_GET_PORT_CONNECTOR_PROPERTIES, buf)
	if err != nil {
		return ConnectorInfo{}, err
	}
	if n < 16 {
		return ConnectorInfo{}, errors.Wrapf(ErrIoctl, "connector properties truncated: %d bytes", n)
	}
	props := binary.LittleEndian.Uint32(buf[8:])
	return ConnectorInfo{
		Properties:          props,
		IsTypeC:             props&winapi.PortConnectorIsTypeC != 0,
		CompanionIndex:      binary.LittleEndian.Uint16(buf[12:]),
		CompanionPortNumber: binary.LittleEndian.Uint16(buf[14:]),
	}, nil
}

// descriptorRequest issues a GET_DESCRIPTOR through the hub for the device
// on a port and returns the descriptor payload with the transferred byte
// count.
func (c *Channel) descriptorRequest(port uint32, value, index uint16, length int) ([]byte, int, error) {
	buf := make([]byte, descRequestHeaderSize+length)
	binary.LittleEndian.PutUint32(buf[0:], port)
	binary.LittleEndian.PutUint16(buf[6:], value)
	binary.LittleEndian.PutUint16(buf[8:], index)
	binary.LittleEndian.PutUint16(buf[10:], uint16(length))
	n, err := c.ioctl(winapi.IOCTL_USB_GET_DESCRIPTOR_FROM_NODE_CONNECTION, buf)
	if err != nil {
		return nil, 0, err
	}
	if n < descRequestHeaderSize {
		return nil, 0, errors.Wrapf(ErrIoctl, "descriptor request returned %d bytes", n)
	}
	out := make([]byte, n-descRequestHeaderSize)
	copy(out, buf[descRequestHeaderSize:n])
	return out, n - descRequestHeaderSize, nil
}

// DeviceDescriptor fetches and validates the device descriptor of the
// device on a port.
func (c *Channel) DeviceDescriptor(port uint32) (descriptor.Device, error) {
	if port == 0 {
		return descriptor.Device{}, errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}
	raw, _, err := c.descriptorRequest(port,
		winapi.UsbDeviceDescriptorType<<8, 0, descriptor.DeviceDescriptorLength)
	if err != nil {
		return descriptor.Device{}, err
	}
	dev, err := descriptor.ParseDevice(raw)
	if err != nil {
		return descriptor.Device{}, err
	}
	if err := descriptor.ValidateDevice(dev); err != nil {
		return descriptor.Device{}, err
	}
	return dev, nil
}

// ConfigDescriptor fetches the complete configuration descriptor tree for
// the given configuration index, probing the header first to size the full
// transfer.
func (c *Channel) ConfigDescriptor(port uint32, index byte) ([]byte, error) {
	if port == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}
	value := uint16(winapi.UsbConfigurationDescriptorType)<<8 | uint16(index)
	head, _, err := c.descriptorRequest(port, value, 0, 9)
	if err != nil {
		return nil, err
	}
	cfg, err := descriptor.ParseConfig(head)
	if err != nil {
		return nil, err
	}
	full, _, err := c.descriptorRequest(port, value, 0, int(cfg.TotalLength))
	if err != nil {
		return nil, err
	}
	if err := descriptor.ValidateConfigTree(full); err != nil {
		return nil, err
	}
	return full, nil
}

// StringDescriptor fetches and decodes one string descriptor.
func (c *Channel) StringDescriptor(port uint32, index byte, langID uint16) (string, error) {
	if port == 0 {
		return "", errors.Wrap(ErrInvalidArgument, "port index is 1-based")
	}
	value := uint16(winapi.UsbStringDescriptorType)<<8 | uint16(index)
	raw, transferred, err := c.descriptorRequest(port, value, langID, winapi.MaximumUsbStringLength)
	if err != nil {
		return "", err
	}
	if err := descriptor.ValidateStringResponse(raw, transferred); err != nil {
		return "", err
	}
	return descriptor.DecodeString(raw), nil
}

// StringSet holds the three identity strings a device descriptor indexes.
type StringSet struct {
	Manufacturer string
	Product      string
	SerialNumber string
}

// Strings fetches the manufacturer, product and serial number strings for
// the device on a port, in the first language the device reports (or EN-US
// when the language table is unreadable). Missing individual strings are
// soft failures.
func (c *Channel) Strings(port uint32, dev descriptor.Device) StringSet {
	langID := uint16(defaultLanguageID)
	if ids, err := c.languageIDs(port); err == nil && len(ids) > 0 {
		langID = ids[0]
	} else if err != nil {
		level.Debug(c.logger).Log("msg", "language table unreadable, assuming EN-US", "port", port, "err", err)
	}

	var set StringSet
	fetch := func(index byte, dst *string, what string) {
		if index == 0 {
			return
		}
		s, err := c.StringDescriptor(port, index, langID)
		if err != nil {
			level.Debug(c.logger).Log("msg", "string descriptor unreadable", "port", port, "what", what, "err", err)
			return
		}
		*dst = s
	}
	fetch(dev.ManufacturerIndex, &set.Manufacturer, "manufacturer")
	fetch(dev.ProductIndex, &set.Product, "product")
	fetch(dev.SerialNumberIndex, &set.SerialNumber, "serial")
	return set
}

// languageIDs reads string descriptor zero, the supported language table.
func (c *Channel) languageIDs(port uint32) ([]uint16, error) {
	value := uint16(winapi.UsbStringDescriptorType) << 8
	raw, transferred, err := c.descriptorRequest(port, value, 0, winapi.MaximumUsbStringLength)
	if err != nil {
		return nil, err
	}
	if err := descriptor.ValidateStringResponse(raw, transferred); err != nil {
		return nil, err
	}
	ids := make([]uint16, 0, (transferred-2)/2)
	for off := 2; off+1 < transferred; off += 2 {
		ids = append(ids, binary.LittleEndian.Uint16(raw[off:]))
	}
	return ids, nil
}

// EnumeratePorts walks every port of the hub and rebuilds the full port
// map. portCount must be the hub's reported port count; zero is a caller
// error. Ports whose queries fail are logged and omitted, so a transiently
// wedged device never aborts the walk.
func (c *Channel) EnumeratePorts(portCount uint32) (map[uint32]PortInfo, error) {
	if portCount == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "port count must be positive")
	}
	if c.conn == nil {
		return nil, errors.Wrap(ErrInvalidHandle, "channel closed")
	}
	if portCount > MaxPortsPerHub {
		portCount = MaxPortsPerHub
	}

	ports := make(map[uint32]PortInfo, portCount)
	for port := uint32(1); port <= portCount; port++ {
		info, err := c.ConnectionInfo(port)
		if err != nil {
			level.Warn(c.logger).Log("msg", "port query failed", "port", port, "err", err)
			continue
		}
		pi := PortInfo{ConnectionInfo: info}

		if conn, err := c.ConnectorProperties(port); err == nil {
			pi.Connector = conn
		} else {
			level.Debug(c.logger).Log("msg", "connector properties unavailable", "port", port, "err", err)
		}

		if info.Connected {
			c.fillDevice(port, &pi)
		}
		ports[port] = pi
	}
	return ports, nil
}

// fillDevice gathers driver key, descriptors and strings for a connected
// port. Every step degrades independently.
func (c *Channel) fillDevice(port uint32, pi *PortInfo) {
	if key, err := c.DriverKeyName(port); err == nil {
		pi.DriverKey = key
	} else {
		level.Debug(c.logger).Log("msg", "driver key unreadable", "port", port, "err", err)
	}

	cfg, err := c.ConfigDescriptor(port, 0)
	if err != nil {
		level.Debug(c.logger).Log("msg", "config descriptor unreadable", "port", port, "err", err)
	} else {
		pi.ConfigDescriptor = cfg
		if info, ok := descriptor.FirstInterface(cfg); ok {
			pi.Interface = info
			pi.HasInterface = true
		}
	}

	if descriptor.HasStringDescriptors(pi.DeviceDescriptor, pi.ConfigDescriptor) {
		set := c.Strings(port, pi.DeviceDescriptor)
		pi.Manufacturer = set.Manufacturer
		pi.Product = set.Product
		pi.SerialNumber = set.SerialNumber
	}

	if pi.IsHub {
		if name, err := c.ExternalHubName(port); err == nil {
			pi.ExternalHubPath = name
		} else {
			level.Debug(c.logger).Log("msg", "external hub name unreadable", "port", port, "err", err)
		}
	}
}

// decodeUTF16Z decodes a NUL-terminated little-endian UTF-16 byte tail.
func decodeUTF16Z(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i:])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}
