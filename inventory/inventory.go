// Package inventory correlates hub port topology with registry device
// records into a single device list, and exposes the list operations the
// snapshot API serves.
package inventory

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/seclens/windevices/usbid"
)

// GenericUSBInterfaceGUID is the device interface class every USB device
// exposes. It identifies nothing in particular, so it loses every
// tie-break against a more specific interface class.
const GenericUSBInterfaceGUID = "a5dcbf10-6530-11d2-901f-00c04fb951ed"

// Field capacities on the snapshot wire. Longer values are truncated at a
// rune boundary.
const (
	capName        = 256
	capID          = 512
	capVendorName  = 128
	capProductName = 128
	capIfaceClass  = 64
)

// Result is a stable status code for snapshot consumers.
type Result int

const (
	ResultOK            Result = 0
	ResultInvalidHandle Result = -1
	ResultOutOfMemory   Result = -2
	ResultNoDevices     Result = -3
	ResultEnumFailed    Result = -4
	ResultBadIndex      Result = -5
	ResultNullArg       Result = -6
	ResultUnknown       Result = -99
)

// ResultMessage renders a Result for humans.
func ResultMessage(r Result) string {
	switch r {
	case ResultOK:
		return "Success"
	case ResultInvalidHandle:
		return "Invalid handle"
	case ResultOutOfMemory:
		return "Out of memory"
	case ResultNoDevices:
		return "No devices found"
	case ResultEnumFailed:
		return "Device enumeration failed"
	case ResultBadIndex:
		return "Invalid device index"
	case ResultNullArg:
		return "NULL pointer argument"
	case ResultUnknown:
		return "Unknown error"
	default:
		return "Unrecognized error code"
	}
}

// Info identifies the engine build.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
}

// BuildDate is stamped via -ldflags at release time.
var BuildDate = "unknown"

// Version reports the engine version.
func Version() Info {
	return Info{Version: "1.0.0", BuildDate: BuildDate}
}

// DiskInfo enriches a mass storage device with its physical drive record.
type DiskInfo struct {
	Model        string   `json:"model"`
	Index        uint32   `json:"index"`
	MediaType    string   `json:"mediaType,omitempty"`
	DriveLetters []string `json:"driveLetters,omitempty"`
}

// Device is one correlated USB device.
type Device struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Description  string `json:"description,omitempty"`
	FriendlyName string `json:"friendlyName,omitempty"`

	DeviceID   string `json:"deviceId,omitempty"`
	DevicePath string `json:"devicePath,omitempty"`

	VendorID  uint16 `json:"vendorId"`
	ProductID uint16 `json:"productId"`

	DeviceClass    byte `json:"deviceClass"`
	DeviceSubClass byte `json:"deviceSubClass"`
	DeviceProtocol byte `json:"deviceProtocol"`
	InterfaceClass byte `json:"interfaceClass"`

	VendorName         string `json:"vendorName,omitempty"`
	ProductName        string `json:"productName,omitempty"`
	InterfaceClassName string `json:"interfaceClassName,omitempty"`

	SetupClassGUID string `json:"setupClassGuid,omitempty"`
	InterfaceGUID  string `json:"interfaceGuid,omitempty"`

	Speed      string `json:"speed,omitempty"`
	PowerState string `json:"powerState,omitempty"`
	Port       uint32 `json:"port,omitempty"`
	HubPath    string `json:"hubPath,omitempty"`

	IsConnected bool `json:"isConnected"`
	IsUSBDevice bool `json:"isUsbDevice"`

	Disk *DiskInfo `json:"disk,omitempty"`
}

// Clamped returns a copy with every string field cut to its wire capacity.
func (d Device) Clamped() Device {
	d.Manufacturer = truncate(d.Manufacturer, capName)
	d.Product = truncate(d.Product, capName)
	d.SerialNumber = truncate(d.SerialNumber, capName)
	d.Description = truncate(d.Description, capName)
	d.FriendlyName = truncate(d.FriendlyName, capName)
	d.DeviceID = truncate(d.DeviceID, capID)
	d.DevicePath = truncate(d.DevicePath, capID)
	d.VendorName = truncate(d.VendorName, capVendorName)
	d.ProductName = truncate(d.ProductName, capProductName)
	d.InterfaceClassName = truncate(d.InterfaceClassName, capIfaceClass)
	return d
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// NormalizeGUID renders a GUID string in canonical lowercase form without
// braces. Returns the input unchanged when it does not parse.
func NormalizeGUID(s string) string {
	g, err := uuid.Parse(strings.Trim(s, "{}"))
	if err != nil {
		return s
	}
	return g.String()
}

// ChooseInterfaceGUID picks the most specific interface GUID from the
// candidates. The generic USB device interface loses to any other GUID;
// among equally specific candidates the first seen wins.
func ChooseInterfaceGUID(candidates []string) string {
	chosen := ""
	for _, c := range candidates {
		n := NormalizeGUID(c)
		if n == "" {
			continue
		}
		if chosen == "" {
			chosen = n
			continue
		}
		if chosen == GenericUSBInterfaceGUID && n != GenericUSBInterfaceGUID {
			chosen = n
		}
	}
	return chosen
}

// RefineInterfaceGUID upgrades the chosen GUID when a candidate's device
// description mentions the product string; such a record is the functional
// interface of the device rather than the bus-level one.
func RefineInterfaceGUID(chosen string, byDescription map[string]string, product string) string {
	if product == "" {
		return chosen
	}
	p := strings.ToUpper(product)
	for desc, g := range byDescription {
		if strings.Contains(strings.ToUpper(desc), p) {
			return NormalizeGUID(g)
		}
	}
	return chosen
}

// InterfaceClassNameFor resolves the display name for a device's class:
// the first interface class when one was read, the device class otherwise.
func InterfaceClassNameFor(interfaceClass, deviceClass byte) string {
	if interfaceClass != usbid.ClassNone {
		return usbid.ClassName(interfaceClass)
	}
	if deviceClass != 0 {
		return usbid.ClassName(deviceClass)
	}
	return "Unknown"
}

// FilterByVendorID returns the devices with a matching vendor id.
func FilterByVendorID(devices []Device, vid uint16) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.VendorID == vid {
			out = append(out, d)
		}
	}
	return out
}

// FilterByDeviceClass returns the devices with a matching device class.
func FilterByDeviceClass(devices []Device, class byte) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.DeviceClass == class {
			out = append(out, d)
		}
	}
	return out
}

// FilterMassStorage returns the devices exposing the mass storage class on
// either level.
func FilterMassStorage(devices []Device) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if usbid.IsMassStorage(d.InterfaceClass, d.DeviceClass) {
			out = append(out, d)
		}
	}
	return out
}
