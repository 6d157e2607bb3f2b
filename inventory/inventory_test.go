package inventory

import (
	"errors"
	"strings"
	"testing"

	"github.com/seclens/windevices/usbhub"
)

func TestResultMessage(t *testing.T) {
	tests := []struct {
		code Result
		want string
	}{
		{ResultOK, "Success"},
		{ResultInvalidHandle, "Invalid handle"},
		{ResultOutOfMemory, "Out of memory"},
		{ResultNoDevices, "No devices found"},
		{ResultEnumFailed, "Device enumeration failed"},
		{ResultBadIndex, "Invalid device index"},
		{ResultNullArg, "NULL pointer argument"},
		{ResultUnknown, "Unknown error"},
		{Result(42), "Unrecognized error code"},
	}

	for _, tt := range tests {
		if got := ResultMessage(tt.code); got != tt.want {
			t.Errorf("ResultMessage(%d): got %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestResultFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Result
	}{
		{"nil", nil, ResultOK},
		{"bad index", ErrBadIndex, ResultBadIndex},
		{"invalid handle", usbhub.ErrInvalidHandle, ResultInvalidHandle},
		{"invalid argument", usbhub.ErrInvalidArgument, ResultNullArg},
		{"ioctl failure", usbhub.ErrIoctl, ResultEnumFailed},
		{"unknown", errors.New("boom"), ResultUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultFor(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	v := Version()
	if v.Version != "1.0.0" {
		t.Errorf("version: got %q, want 1.0.0", v.Version)
	}
	if v.BuildDate == "" {
		t.Error("build date empty")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short stays", "Kingston", 256, "Kingston"},
		{"exact stays", "abc", 3, "abc"},
		{"cut", "abcdef", 3, "abc"},
		{"never splits a rune", "abéf", 3, "ab"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClamped(t *testing.T) {
	d := Device{
		Description: strings.Repeat("x", 300),
		DevicePath:  strings.Repeat("y", 600),
		VendorName:  strings.Repeat("z", 200),
	}
	c := d.Clamped()
	if len(c.Description) != 256 {
		t.Errorf("description: got %d bytes, want 256", len(c.Description))
	}
	if len(c.DevicePath) != 512 {
		t.Errorf("device path: got %d bytes, want 512", len(c.DevicePath))
	}
	if len(c.VendorName) != 128 {
		t.Errorf("vendor name: got %d bytes, want 128", len(c.VendorName))
	}
	if len(d.Description) != 300 {
		t.Error("Clamped mutated its receiver")
	}
}

func TestChooseInterfaceGUID(t *testing.T) {
	const specific = "53f56307-b6bf-11d0-94f2-00a0c91efb8b"

	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"empty", nil, ""},
		{"single generic", []string{GenericUSBInterfaceGUID}, GenericUSBInterfaceGUID},
		{"generic loses to specific", []string{GenericUSBInterfaceGUID, specific}, specific},
		{"specific keeps its seat", []string{specific, GenericUSBInterfaceGUID}, specific},
		{
			"braces and case normalized",
			[]string{"{A5DCBF10-6530-11D2-901F-00C04FB951ED}", "{" + strings.ToUpper(specific) + "}"},
			specific,
		},
		{"first specific wins", []string{specific, "f18a0e88-c30c-11d0-8815-00a0c906bed8"}, specific},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseInterfaceGUID(tt.candidates); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRefineInterfaceGUID(t *testing.T) {
	const functional = "53f56307-b6bf-11d0-94f2-00a0c91efb8b"
	byDesc := map[string]string{
		"USB Mass Storage Device":     GenericUSBInterfaceGUID,
		"DataTraveler 3.0 USB Device": functional,
	}

	got := RefineInterfaceGUID(GenericUSBInterfaceGUID, byDesc, "DataTraveler 3.0")
	if got != functional {
		t.Errorf("got %q, want %q", got, functional)
	}

	// No product string leaves the choice alone.
	got = RefineInterfaceGUID(GenericUSBInterfaceGUID, byDesc, "")
	if got != GenericUSBInterfaceGUID {
		t.Errorf("got %q, want generic", got)
	}

	// No description match either.
	got = RefineInterfaceGUID(GenericUSBInterfaceGUID, byDesc, "Unrelated Widget")
	if got != GenericUSBInterfaceGUID {
		t.Errorf("got %q, want generic", got)
	}
}

func TestInterfaceClassNameFor(t *testing.T) {
	tests := []struct {
		name           string
		interfaceClass byte
		deviceClass    byte
		want           string
	}{
		{"interface class wins", 0x08, 0x00, "Mass Storage"},
		{"device class fallback", 0xFF, 0x09, "Hub"},
		{"nothing known", 0xFF, 0x00, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterfaceClassNameFor(tt.interfaceClass, tt.deviceClass); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilters(t *testing.T) {
	devices := []Device{
		{Product: "stick", VendorID: 0x0951, DeviceClass: 0x00, InterfaceClass: 0x08},
		{Product: "mouse", VendorID: 0x046D, DeviceClass: 0x00, InterfaceClass: 0x03},
		{Product: "hub", VendorID: 0x0BDA, DeviceClass: 0x09, InterfaceClass: 0x09},
	}

	if got := FilterByVendorID(devices, 0x0951); len(got) != 1 || got[0].Product != "stick" {
		t.Errorf("FilterByVendorID: got %+v", got)
	}
	if got := FilterByDeviceClass(devices, 0x09); len(got) != 1 || got[0].Product != "hub" {
		t.Errorf("FilterByDeviceClass: got %+v", got)
	}
	if got := FilterMassStorage(devices); len(got) != 1 || got[0].Product != "stick" {
		t.Errorf("FilterMassStorage: got %+v", got)
	}
	if got := FilterByVendorID(nil, 1); len(got) != 0 {
		t.Errorf("empty input: got %+v", got)
	}
}

func TestList(t *testing.T) {
	var l List
	if l.Count() != 0 {
		t.Fatalf("fresh list count: got %d", l.Count())
	}
	if _, err := l.At(0); !errors.Is(err, ErrBadIndex) {
		t.Errorf("empty At: got %v, want ErrBadIndex", err)
	}

	l.Replace([]Device{{Product: "a"}, {Product: "b"}})
	if l.Count() != 2 {
		t.Errorf("count: got %d, want 2", l.Count())
	}
	d, err := l.At(1)
	if err != nil {
		t.Fatalf("At(1): %v", err)
	}
	if d.Product != "b" {
		t.Errorf("At(1): got %q, want b", d.Product)
	}
	if _, err := l.At(-1); !errors.Is(err, ErrBadIndex) {
		t.Errorf("At(-1): got %v, want ErrBadIndex", err)
	}
	if _, err := l.At(2); !errors.Is(err, ErrBadIndex) {
		t.Errorf("At(2): got %v, want ErrBadIndex", err)
	}

	// Rebuilds replace, never merge.
	l.Replace([]Device{{Product: "c"}})
	if l.Count() != 1 {
		t.Errorf("after replace: got %d, want 1", l.Count())
	}
}
