package usbhub

import (
	"encoding/binary"

	"github.com/efficientgo/core/errors"

	"github.com/seclens/windevices/internal/winapi"
)

// HostController reads identity and root hub information from an opened
// host controller device. Unlike per-port hub queries, controller failures
// are hard errors: a controller that cannot answer cannot anchor a
// topology walk.
type HostController struct {
	conn Conn
}

// NewHostController wraps an open controller connection.
func NewHostController(conn Conn) (*HostController, error) {
	if conn == nil {
		return nil, errors.Wrap(ErrInvalidHandle, "nil connection")
	}
	return &HostController{conn: conn}, nil
}

// Close releases the underlying device handle.
func (h *HostController) Close() error {
	if h.conn == nil {
		return errors.Wrap(ErrInvalidHandle, "controller already closed")
	}
	err := h.conn.Close()
	h.conn = nil
	return err
}

func (h *HostController) ioctl(code uint32, buf []byte) (int, error) {
	if h.conn == nil {
		return 0, errors.Wrap(ErrInvalidHandle, "controller closed")
	}
	n, err := h.conn.Ioctl(code, buf, buf)
	if err != nil {
		return n, errors.Wrapf(ErrIoctl, "ioctl 0x%X: %v", code, err)
	}
	return n, nil
}

// DriverKey resolves the controller's registry driver key in the usual two
// phases.
func (h *HostController) DriverKey() (string, error) {
	return h.hcdString(winapi.IOCTL_GET_HCD_DRIVERKEY_NAME)
}

// RootHubName resolves the symbolic name of the controller's root hub.
// Prefix it with `\\.\` to open the hub device.
func (h *HostController) RootHubName() (string, error) {
	return h.hcdString(winapi.IOCTL_USB_GET_ROOT_HUB_NAME)
}

// hcdString handles the ActualLength/name layout shared by the controller
// name queries.
func (h *HostController) hcdString(code uint32) (string, error) {
	probe := make([]byte, hcdNameHeaderSize)
	if _, err := h.ioctl(code, probe); err != nil {
		return "", err
	}
	actual := binary.LittleEndian.Uint32(probe[0:])
	if actual <= hcdNameHeaderSize {
		return "", errors.Wrapf(ErrIoctl, "name query reported %d bytes", actual)
	}
	buf := make([]byte, actual)
	if _, err := h.ioctl(code, buf); err != nil {
		return "", err
	}
	return decodeUTF16Z(buf[4:]), nil
}

// Info queries PCI identity and root port count through the USB user
// request interface.
func (h *HostController) Info() (ControllerInfo, error) {
	buf := make([]byte, controllerInfoSize)
	binary.LittleEndian.PutUint32(buf[0:], winapi.USBUSER_GET_CONTROLLER_INFO_0)
	binary.LittleEndian.PutUint32(buf[8:], controllerInfoSize)
	n, err := h.ioctl(winapi.IOCTL_USB_USER_REQUEST, buf)
	if err != nil {
		return ControllerInfo{}, err
	}
	if n < controllerInfoSize {
		return ControllerInfo{}, errors.Wrapf(ErrIoctl, "controller info truncated: %d bytes", n)
	}
	if status := binary.LittleEndian.Uint32(buf[4:]); status != 0 {
		return ControllerInfo{}, errors.Wrapf(ErrIoctl, "user request status 0x%X", status)
	}
	p := buf[controllerPayloadOff:]
	return ControllerInfo{
		PciVendorID:       binary.LittleEndian.Uint32(p[0:]),
		PciDeviceID:       binary.LittleEndian.Uint32(p[4:]),
		PciRevision:       binary.LittleEndian.Uint32(p[8:]),
		NumberOfRootPorts: binary.LittleEndian.Uint32(p[12:]),
	}, nil
}
