package usbid

import "testing"

func TestClassName(t *testing.T) {
	tests := []struct {
		code byte
		want string
	}{
		{0x00, "Interface class device"},
		{0x01, "Audio"},
		{0x03, "Human Interface Device"},
		{0x08, "Mass Storage"},
		{0x09, "Hub"},
		{0x0E, "Video"},
		{0xE0, "Wireless Controller"},
		{0xFF, "Vendor Specific"},
		{0x15, "Unknown"},
		{0x04, "Unknown"},
	}

	for _, tt := range tests {
		if got := ClassName(tt.code); got != tt.want {
			t.Errorf("ClassName(0x%02X): got %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIsMassStorage(t *testing.T) {
	tests := []struct {
		name                        string
		interfaceClass, deviceClass byte
		want                        bool
	}{
		{"interface class", ClassMassStorage, 0x00, true},
		{"device class", 0x00, ClassMassStorage, true},
		{"both", ClassMassStorage, ClassMassStorage, true},
		{"neither", ClassHID, ClassPerInterface, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMassStorage(tt.interfaceClass, tt.deviceClass); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVidPidPattern(t *testing.T) {
	if got := VidPidPattern(0x0951, 0x172B); got != "VID_0951&PID_172B" {
		t.Errorf("got %q, want VID_0951&PID_172B", got)
	}
	if got := VidPidPattern(0xA, 0x3); got != "VID_000A&PID_0003" {
		t.Errorf("got %q, want VID_000A&PID_0003", got)
	}
}

func TestParseVidPid(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		vid, pid uint16
		ok       bool
	}{
		{"hardware id", `USB\VID_0951&PID_172B&REV_0110`, 0x0951, 0x172B, true},
		{"instance id", `USB\VID_046D&PID_C52B\6&2E6A2DBE&0&2`, 0x046D, 0xC52B, true},
		{"lower case", `usb\vid_0951&pid_172b`, 0x0951, 0x172B, true},
		{"missing pid", `USB\VID_0951&REV_0110`, 0, 0, false},
		{"truncated", `USB\VID_09`, 0, 0, false},
		{"empty", ``, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vid, pid, ok := ParseVidPid(tt.id)
			if ok != tt.ok || vid != tt.vid || pid != tt.pid {
				t.Errorf("got (0x%04X, 0x%04X, %v), want (0x%04X, 0x%04X, %v)",
					vid, pid, ok, tt.vid, tt.pid, tt.ok)
			}
		})
	}
}

func TestHexID(t *testing.T) {
	if got := HexID(0x46D); got != "0x046D" {
		t.Errorf("got %q, want 0x046D", got)
	}
}

func TestVendorName(t *testing.T) {
	tests := []struct {
		vid  uint16
		want string
	}{
		{0x046D, "Logitech"},
		{0x0951, "Kingston Technology"},
		{0x8086, "Intel"},
		{0xDEAD, "0xDEAD"},
	}

	for _, tt := range tests {
		if got := VendorName(tt.vid); got != tt.want {
			t.Errorf("VendorName(0x%04X): got %q, want %q", tt.vid, got, tt.want)
		}
	}
}
