package usbhub

import (
	"encoding/binary"
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/seclens/windevices/internal/winapi"
)

// fakeController answers the host controller queries from fixed values.
type fakeController struct {
	driverKey   string
	rootHubName string
	info        ControllerInfo
	status      uint32
	closed      bool
}

func (f *fakeController) Close() error {
	f.closed = true
	return nil
}

func (f *fakeController) Ioctl(code uint32, in, out []byte) (int, error) {
	switch code {
	case winapi.IOCTL_GET_HCD_DRIVERKEY_NAME:
		return hcdNameResponse(out, f.driverKey)
	case winapi.IOCTL_USB_GET_ROOT_HUB_NAME:
		return hcdNameResponse(out, f.rootHubName)
	case winapi.IOCTL_USB_USER_REQUEST:
		binary.LittleEndian.PutUint32(out[4:], f.status)
		p := out[controllerPayloadOff:]
		binary.LittleEndian.PutUint32(p[0:], f.info.PciVendorID)
		binary.LittleEndian.PutUint32(p[4:], f.info.PciDeviceID)
		binary.LittleEndian.PutUint32(p[8:], f.info.PciRevision)
		binary.LittleEndian.PutUint32(p[12:], f.info.NumberOfRootPorts)
		return controllerInfoSize, nil
	}
	return 0, errors.New("unexpected ioctl")
}

func hcdNameResponse(out []byte, name string) (int, error) {
	enc := utf16.Encode([]rune(name))
	actual := hcdNameHeaderSize + 2*(len(enc)+1) - 4
	binary.LittleEndian.PutUint32(out[0:], uint32(actual))
	if len(out) < actual {
		return len(out), nil
	}
	for i, c := range enc {
		binary.LittleEndian.PutUint16(out[4+2*i:], c)
	}
	return actual, nil
}

func TestHostControllerQueries(t *testing.T) {
	fake := &fakeController{
		driverKey:   `{36fc9e60-c465-11cf-8056-444553540000}\0010`,
		rootHubName: `USB#ROOT_HUB30#4&deadbeef&0#{f18a0e88-c30c-11d0-8815-00a0c906bed8}`,
		info: ControllerInfo{
			PciVendorID:       0x8086,
			PciDeviceID:       0xA36D,
			PciRevision:       0x10,
			NumberOfRootPorts: 16,
		},
	}

	hc, err := NewHostController(fake)
	if err != nil {
		t.Fatalf("NewHostController: %v", err)
	}

	key, err := hc.DriverKey()
	if err != nil {
		t.Fatalf("DriverKey: %v", err)
	}
	if key != fake.driverKey {
		t.Errorf("driver key: got %q, want %q", key, fake.driverKey)
	}

	name, err := hc.RootHubName()
	if err != nil {
		t.Fatalf("RootHubName: %v", err)
	}
	if name != fake.rootHubName {
		t.Errorf("root hub name: got %q, want %q", name, fake.rootHubName)
	}

	info, err := hc.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info != fake.info {
		t.Errorf("controller info: got %+v, want %+v", info, fake.info)
	}

	if err := hc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fake.closed {
		t.Error("underlying connection not closed")
	}
	if _, err := hc.Info(); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("closed controller: got %v, want ErrInvalidHandle", err)
	}
}

func TestHostControllerBadStatus(t *testing.T) {
	fake := &fakeController{status: 4} // UsbUserInvalidRequestCode
	hc, err := NewHostController(fake)
	if err != nil {
		t.Fatalf("NewHostController: %v", err)
	}
	if _, err := hc.Info(); !errors.Is(err, ErrIoctl) {
		t.Errorf("got %v, want ErrIoctl", err)
	}

	if _, err := NewHostController(nil); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("nil conn: got %v, want ErrInvalidHandle", err)
	}
}
