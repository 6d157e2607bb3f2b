package inventory

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/go-kit/log"

	"github.com/seclens/windevices/devenum"
	"github.com/seclens/windevices/internal/winapi"
	"github.com/seclens/windevices/usbhub"
)

// scriptedPort is the minimum a walk needs from a port: connection state,
// the is-hub flag and the driver key the registry gate matches on.
type scriptedPort struct {
	isHub     bool
	driverKey string
}

type scriptedHub struct {
	ports map[uint32]scriptedPort
}

func (h *scriptedHub) Close() error { return nil }

func (h *scriptedHub) Ioctl(code uint32, in, out []byte) (int, error) {
	switch code {
	case winapi.IOCTL_USB_GET_NODE_INFORMATION:
		out[6] = byte(len(h.ports))
		out[75] = 1
		return 76, nil

	case winapi.IOCTL_USB_GET_NODE_CONNECTION_INFORMATION_EX:
		p, ok := h.ports[binary.LittleEndian.Uint32(out[0:])]
		if !ok {
			return 0, errors.New("no such port")
		}
		out[4], out[5] = 18, 1 // device descriptor header
		if p.isHub {
			out[24] = 1
		}
		binary.LittleEndian.PutUint32(out[32:], winapi.DeviceConnected)
		return 36, nil

	case winapi.IOCTL_USB_GET_NODE_CONNECTION_DRIVERKEY_NAME:
		p, ok := h.ports[binary.LittleEndian.Uint32(out[0:])]
		if !ok {
			return 0, errors.New("no such port")
		}
		enc := utf16.Encode([]rune(p.driverKey))
		actual := 8 + 2*(len(enc)+1)
		binary.LittleEndian.PutUint32(out[4:], uint32(actual))
		if len(out) < actual {
			return len(out), nil
		}
		for i, c := range enc {
			binary.LittleEndian.PutUint16(out[8+2*i:], c)
		}
		return actual, nil
	}
	return 0, errors.New("unsupported ioctl")
}

func TestWalkHubRegistryGate(t *testing.T) {
	// Root hub: port 1 hosts a hub the registry knows by driver key,
	// port 2 hosts a hub it does not. Only port 1 gets walked; the walk
	// descends at the registry record's device path.
	root := &scriptedHub{ports: map[uint32]scriptedPort{
		1: {isHub: true, driverKey: `{hubclass}\0007`},
		2: {isHub: true, driverKey: `{hubclass}\0099`},
	}}
	child := &scriptedHub{ports: map[uint32]scriptedPort{
		1: {driverKey: `{usbclass}\0003`},
	}}

	opened := make(map[string]int)
	m := &manager{
		logger: log.NewNopLogger(),
		open: func(path string) (usbhub.Conn, error) {
			opened[path]++
			switch path {
			case `\\.\ROOT_HUB30`:
				return root, nil
			case `\\?\usb#hub#7`:
				return child, nil
			}
			return nil, errors.New("unknown path")
		},
	}
	idx := newRegistryIndex([]devenum.Device{
		{
			InstanceID: `USB\VID_2109&PID_2817\5&1`,
			DriverKey:  `{hubclass}\0007`,
			DevicePath: `\\?\usb#hub#7`,
		},
	})

	var devices []Device
	visited := make(map[string]struct{})
	m.walkHub(context.Background(), `\\.\ROOT_HUB30`, visited, idx, &devices)

	if opened[`\\?\usb#hub#7`] != 1 {
		t.Fatalf("matched hub opened %d times, want 1", opened[`\\?\usb#hub#7`])
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	// The child hub's device is a leaf under the registry path.
	if devices[0].HubPath != `\\?\usb#hub#7` && devices[1].HubPath != `\\?\usb#hub#7` {
		t.Errorf("no device correlated under the descended hub: %+v", devices)
	}
	// The unmatched hub port stays a leaf on the root hub.
	var orphan *Device
	for i := range devices {
		if devices[i].HubPath == `\\.\ROOT_HUB30` {
			orphan = &devices[i]
		}
	}
	if orphan == nil {
		t.Fatalf("unmatched hub port was not kept as a leaf: %+v", devices)
	}
}
