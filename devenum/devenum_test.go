package devenum

import "testing"

func TestHasHardwareID(t *testing.T) {
	ids := []string{
		`USB\VID_0951&PID_172B&REV_0110`,
		`USB\VID_0951&PID_172B`,
	}

	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"exact case", "VID_0951&PID_172B", true},
		{"lower case pattern", "vid_0951&pid_172b", true},
		{"no match", "VID_046D&PID_C52B", false},
		{"empty pattern", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasHardwareID(ids, tt.pattern); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if HasHardwareID(nil, "VID_0951&PID_172B") {
		t.Error("nil id list should not match")
	}
}

func TestPowerStateString(t *testing.T) {
	tests := []struct {
		state PowerState
		want  string
	}{
		{PowerD0, "D0"},
		{PowerD3, "D3"},
		{PowerUnspecified, "Unspecified"},
		{PowerState(99), "Unspecified"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("PowerState(%d): got %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	d := Device{Description: "USB Mass Storage Device", FriendlyName: "Kingston DataTraveler"}
	if got := d.DisplayName(); got != "USB Mass Storage Device" {
		t.Errorf("got %q", got)
	}
	d.Description = ""
	if got := d.DisplayName(); got != "Kingston DataTraveler" {
		t.Errorf("got %q", got)
	}
}
