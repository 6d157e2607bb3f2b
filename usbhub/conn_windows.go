//go:build windows

package usbhub

import (
	"github.com/efficientgo/core/errors"
	"golang.org/x/sys/windows"
)

// deviceConn is the production Conn over a Win32 device handle.
type deviceConn struct {
	handle windows.Handle
}

// Open opens a hub or host controller device file for control transfers.
// The path must already carry the `\\.\` or `\\?\` prefix.
func Open(path string) (Conn, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "device path %q: %v", path, err)
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_WRITE,
		windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0, 0)
	if err != nil {
		return nil, errors.Wrapf(ErrIoctl, "open %q: %v", path, err)
	}
	return &deviceConn{handle: h}, nil
}

func (c *deviceConn) Ioctl(code uint32, in, out []byte) (int, error) {
	var inPtr, outPtr *byte
	if len(in) > 0 {
		inPtr = &in[0]
	}
	if len(out) > 0 {
		outPtr = &out[0]
	}
	var ret uint32
	err := windows.DeviceIoControl(c.handle, code,
		inPtr, uint32(len(in)), outPtr, uint32(len(out)), &ret, nil)
	if err != nil {
		return int(ret), err
	}
	return int(ret), nil
}

func (c *deviceConn) Close() error {
	if c.handle == windows.InvalidHandle {
		return nil
	}
	err := windows.CloseHandle(c.handle)
	c.handle = windows.InvalidHandle
	return err
}
