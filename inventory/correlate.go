package inventory

import (
	"strings"

	"github.com/seclens/windevices/devenum"
	"github.com/seclens/windevices/usbhub"
	"github.com/seclens/windevices/usbid"
)

// registryIndex groups one enumeration pass over the USB device interface
// so per-port correlation does not rescan the full list.
type registryIndex struct {
	devices []devenum.Device
}

func newRegistryIndex(devices []devenum.Device) *registryIndex {
	return &registryIndex{devices: devices}
}

// matchVidPid returns every registry record whose hardware ids carry the
// port device's VID/PID pattern.
func (idx *registryIndex) matchVidPid(vid, pid uint16) []devenum.Device {
	pattern := usbid.VidPidPattern(vid, pid)
	var out []devenum.Device
	for _, d := range idx.devices {
		if devenum.HasHardwareID(d.HardwareIDs, pattern) {
			out = append(out, d)
		}
	}
	return out
}

// matchDriverKey finds the bus-layer record for the device on a port; the
// hub reports the same driver key the registry stores.
func (idx *registryIndex) matchDriverKey(key string) (devenum.Device, bool) {
	if key == "" {
		return devenum.Device{}, false
	}
	for _, d := range idx.devices {
		if d.DriverKey != "" && strings.EqualFold(d.DriverKey, key) {
			return d, true
		}
	}
	return devenum.Device{}, false
}

// correlate merges one connected port's hub-side data with its registry
// records into a Device.
func correlate(pi usbhub.PortInfo, hubPath string, idx *registryIndex) Device {
	desc := pi.DeviceDescriptor
	dev := Device{
		Manufacturer:   pi.Manufacturer,
		Product:        pi.Product,
		SerialNumber:   pi.SerialNumber,
		VendorID:       desc.VendorID,
		ProductID:      desc.ProductID,
		DeviceClass:    desc.DeviceClass,
		DeviceSubClass: desc.DeviceSubClass,
		DeviceProtocol: desc.DeviceProtocol,
		InterfaceClass: usbid.ClassNone,
		VendorName:     usbid.VendorName(desc.VendorID),
		ProductName:    usbid.HexID(desc.ProductID),
		Speed:          pi.Speed.String(),
		Port:           pi.Port,
		HubPath:        hubPath,
		IsConnected:    true,
		IsUSBDevice:    true,
	}
	if pi.HasInterface {
		dev.InterfaceClass = pi.Interface.Class
	}
	dev.InterfaceClassName = InterfaceClassNameFor(dev.InterfaceClass, dev.DeviceClass)

	matches := idx.matchVidPid(desc.VendorID, desc.ProductID)

	if bus, ok := idx.matchDriverKey(pi.DriverKey); ok {
		dev.DeviceID = bus.InstanceID
		dev.DevicePath = bus.DevicePath
		dev.FriendlyName = bus.FriendlyName
		dev.Description = bus.Description
		dev.SetupClassGUID = NormalizeGUID(bus.ClassGUID)
		dev.PowerState = bus.PowerState.String()
		if dev.Manufacturer == "" {
			dev.Manufacturer = bus.Manufacturer
		}
	}

	// A device with no product string still deserves a description; the
	// registry pass carries the INF-supplied one.
	if dev.Description == "" {
		for _, m := range matches {
			if m.Description != "" {
				dev.Description = m.Description
				break
			}
		}
	}
	if dev.Product == "" {
		dev.Product = dev.Description
	}

	guids := make([]string, 0, len(matches))
	byDescription := make(map[string]string, len(matches))
	for _, m := range matches {
		guids = append(guids, m.ClassGUID)
		if m.Description != "" {
			byDescription[m.Description] = m.ClassGUID
		}
	}
	chosen := ChooseInterfaceGUID(guids)
	dev.InterfaceGUID = RefineInterfaceGUID(chosen, byDescription, pi.Product)
	if dev.SetupClassGUID == "" {
		dev.SetupClassGUID = dev.InterfaceGUID
	}

	return dev
}
