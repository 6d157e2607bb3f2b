//go:build windows

package inventory

import (
	"context"

	"github.com/efficientgo/core/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/windows"

	"github.com/seclens/windevices/devenum"
	"github.com/seclens/windevices/internal/winapi"
	"github.com/seclens/windevices/usbhub"
	"github.com/seclens/windevices/usbid"
)

type manager struct {
	logger log.Logger
	open   func(path string) (usbhub.Conn, error)
	list   List
}

// New builds the production manager. The logger receives soft failures
// from the topology walk; pass nil to discard them.
func New(logger log.Logger) Manager {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &manager{logger: logger, open: usbhub.Open}
}

func (m *manager) EnumerateUSBDevices(ctx context.Context) ([]Device, error) {
	// The registry pass feeds correlation for every port the walk finds.
	regs, err := devenum.ByInterface(winapi.GUIDDevInterfaceUSBDevice)
	if err != nil {
		return nil, err
	}
	idx := newRegistryIndex(regs)

	controllers, err := devenum.ByInterface(winapi.GUIDDevInterfaceUSBHostController)
	if err != nil {
		return nil, err
	}

	var devices []Device
	visited := make(map[string]struct{})
	for _, ctrl := range controllers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ctrl.DevicePath == "" {
			continue
		}
		rootHub, err := m.readController(ctrl.DevicePath)
		if err != nil {
			// A controller that cannot answer cannot anchor a walk.
			return nil, err
		}
		m.walkHub(ctx, `\\.\`+rootHub, visited, idx, &devices)
	}

	slices.SortFunc(devices, func(a, b Device) int {
		if a.HubPath != b.HubPath {
			if a.HubPath < b.HubPath {
				return -1
			}
			return 1
		}
		return int(a.Port) - int(b.Port)
	})

	m.enrichDisks(devices)
	for i := range devices {
		devices[i] = devices[i].Clamped()
	}
	m.list.Replace(devices)
	return devices, nil
}

// readController opens a host controller and resolves its root hub name.
func (m *manager) readController(path string) (string, error) {
	conn, err := m.open(path)
	if err != nil {
		return "", err
	}
	hc, err := usbhub.NewHostController(conn)
	if err != nil {
		conn.Close()
		return "", err
	}
	defer hc.Close()

	info, err := hc.Info()
	if err != nil {
		return "", errors.Wrapf(err, "controller %s", path)
	}
	rootHub, err := hc.RootHubName()
	if err != nil {
		return "", errors.Wrapf(err, "controller %s", path)
	}
	level.Debug(m.logger).Log("msg", "controller read",
		"path", path,
		"vendor", usbid.HexID(uint16(info.PciVendorID)),
		"device", usbid.HexID(uint16(info.PciDeviceID)),
		"rootPorts", info.NumberOfRootPorts,
		"rootHub", rootHub)
	return rootHub, nil
}

// walkHub enumerates one hub's ports, correlating connected devices and
// recursing into downstream hubs. Hub-level failures degrade to a logged
// skip; the visited set breaks topology cycles.
func (m *manager) walkHub(ctx context.Context, path string, visited map[string]struct{}, idx *registryIndex, out *[]Device) {
	if err := ctx.Err(); err != nil {
		return
	}
	if _, seen := visited[path]; seen {
		level.Warn(m.logger).Log("msg", "hub cycle detected, skipping", "path", path)
		return
	}
	visited[path] = struct{}{}

	conn, err := m.open(path)
	if err != nil {
		level.Warn(m.logger).Log("msg", "hub open failed", "path", path, "err", err)
		return
	}
	ch, err := usbhub.NewChannel(conn, m.logger)
	if err != nil {
		conn.Close()
		return
	}
	defer ch.Close()

	node, err := ch.NodeInfo()
	if err != nil {
		level.Warn(m.logger).Log("msg", "hub node query failed", "path", path, "err", err)
		return
	}
	if node.PortCount == 0 {
		level.Warn(m.logger).Log("msg", "hub reports zero ports", "path", path)
		return
	}
	ports, err := ch.EnumeratePorts(node.PortCount)
	if err != nil {
		level.Warn(m.logger).Log("msg", "port enumeration failed", "path", path, "err", err)
		return
	}

	indices := make([]uint32, 0, len(ports))
	for port := range ports {
		indices = append(indices, port)
	}
	slices.Sort(indices)

	for _, port := range indices {
		pi := ports[port]
		if !pi.Connected {
			continue
		}
		if pi.IsHub {
			// Descend only when the registry knows the hub by driver
			// key; an orphaned is-hub port stays a leaf device.
			if bus, ok := idx.matchDriverKey(pi.DriverKey); ok {
				down := bus.DevicePath
				if down == "" && pi.ExternalHubPath != "" {
					down = `\\.\` + pi.ExternalHubPath
				}
				if down != "" {
					m.walkHub(ctx, down, visited, idx, out)
					continue
				}
			} else {
				level.Warn(m.logger).Log("msg", "hub port has no bus registry record",
					"path", path, "port", port)
			}
		}
		*out = append(*out, correlate(pi, path, idx))
	}
}

func (m *manager) EnumerateUSBMassStorage(ctx context.Context) ([]Device, error) {
	devices, err := m.EnumerateUSBDevices(ctx)
	if err != nil {
		return nil, err
	}
	return FilterMassStorage(devices), nil
}

func (m *manager) EnumerateByDeviceClass(classGUID string) ([]Device, error) {
	guid, err := windows.GUIDFromString("{" + NormalizeGUID(classGUID) + "}")
	if err != nil {
		return nil, errors.Wrapf(devenum.ErrInvalidArgument, "class guid %q: %v", classGUID, err)
	}
	regs, err := devenum.BySetupClass(guid)
	if err != nil {
		return nil, err
	}

	// The USB interface pass marks which class siblings sit on the bus.
	usbSet := make(map[string]string)
	if usbRegs, err := devenum.ByInterface(winapi.GUIDDevInterfaceUSBDevice); err == nil {
		for _, u := range usbRegs {
			usbSet[u.InstanceID] = u.DevicePath
		}
	} else {
		level.Warn(m.logger).Log("msg", "usb interface pass failed", "err", err)
	}

	devices := make([]Device, 0, len(regs))
	for _, r := range regs {
		d := Device{
			Description:    r.Description,
			FriendlyName:   r.FriendlyName,
			Manufacturer:   r.Manufacturer,
			DeviceID:       r.InstanceID,
			SetupClassGUID: NormalizeGUID(r.ClassGUID),
			PowerState:     r.PowerState.String(),
			InterfaceClass: usbid.ClassNone,
			IsConnected:    true,
		}
		for _, hw := range r.HardwareIDs {
			if vid, pid, ok := usbid.ParseVidPid(hw); ok {
				d.VendorID, d.ProductID = vid, pid
				d.VendorName = usbid.VendorName(vid)
				d.ProductName = usbid.HexID(pid)
				d.IsUSBDevice = true
				break
			}
		}
		if path, onBus := usbSet[r.InstanceID]; onBus {
			d.IsUSBDevice = true
			d.DevicePath = path
		}
		devices = append(devices, d.Clamped())
	}
	return devices, nil
}

func (m *manager) DeviceCount() int {
	return m.list.Count()
}

func (m *manager) DeviceAt(i int) (Device, error) {
	return m.list.At(i)
}
