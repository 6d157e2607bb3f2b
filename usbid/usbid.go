// Package usbid maps USB class codes and vendor/product identifiers to the
// names and registry patterns used throughout device correlation.
package usbid

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known base class codes.
const (
	ClassPerInterface = 0x00
	ClassAudio        = 0x01
	ClassComm         = 0x02
	ClassHID          = 0x03
	ClassPhysical     = 0x05
	ClassImage        = 0x06
	ClassPrinter      = 0x07
	ClassMassStorage  = 0x08
	ClassHub          = 0x09
	ClassData         = 0x0A
	ClassSmartCard    = 0x0B
	ClassSecurity     = 0x0D
	ClassVideo        = 0x0E
	ClassHealthcare   = 0x0F
	ClassAudioVideo   = 0x10
	ClassBillboard    = 0x11
	ClassBridge       = 0x12
	ClassDiagnostic   = 0xDC
	ClassWireless     = 0xE0
	ClassMisc         = 0xEF
	ClassAppSpecific  = 0xFE
	ClassVendorSpec   = 0xFF
)

// ClassNone marks a class slot that has not been read from a descriptor.
const ClassNone = 0xFF

var classNames = map[byte]string{
	ClassPerInterface: "Interface class device",
	ClassAudio:        "Audio",
	ClassComm:         "Communications and CDC Control",
	ClassHID:          "Human Interface Device",
	ClassPhysical:     "Physical",
	ClassImage:        "Image",
	ClassPrinter:      "Printer",
	ClassMassStorage:  "Mass Storage",
	ClassHub:          "Hub",
	ClassData:         "CDC-Data",
	ClassSmartCard:    "Smart Card",
	ClassSecurity:     "Content Security",
	ClassVideo:        "Video",
	ClassHealthcare:   "Personal Healthcare",
	ClassAudioVideo:   "Audio/Video Devices",
	ClassBillboard:    "Billboard Device",
	ClassBridge:       "USB Type-C Bridge",
	ClassDiagnostic:   "Diagnostic Device",
	ClassWireless:     "Wireless Controller",
	ClassMisc:         "Miscellaneous",
	ClassAppSpecific:  "Application Specific",
	ClassVendorSpec:   "Vendor Specific",
}

// ClassName returns the descriptive name for a base class code, or
// "Unknown" when the code is not assigned.
func ClassName(code byte) string {
	if name, ok := classNames[code]; ok {
		return name
	}
	return "Unknown"
}

// IsMassStorage reports whether a device exposes the mass storage class,
// either on its first interface or at the device level.
func IsMassStorage(interfaceClass, deviceClass byte) bool {
	return interfaceClass == ClassMassStorage || deviceClass == ClassMassStorage
}

// HexID renders a vendor or product identifier the way device property
// pages do.
func HexID(v uint16) string {
	return fmt.Sprintf("0x%04X", v)
}

// vendorNames covers the vendor identifiers seen most often on consumer
// buses. The full usb.org registry runs to thousands of entries; anything
// outside this table falls back to the hex rendering.
var vendorNames = map[uint16]string{
	0x0403: "Future Technology Devices International",
	0x045E: "Microsoft",
	0x046D: "Logitech",
	0x04B4: "Cypress Semiconductor",
	0x04D8: "Microchip Technology",
	0x04E8: "Samsung Electronics",
	0x04F2: "Chicony Electronics",
	0x0518: "EzKEY",
	0x054C: "Sony",
	0x056A: "Wacom",
	0x058F: "Alcor Micro",
	0x05AC: "Apple",
	0x05E3: "Genesys Logic",
	0x067B: "Prolific Technology",
	0x0781: "SanDisk",
	0x0846: "NetGear",
	0x08BB: "Texas Instruments",
	0x0930: "Toshiba",
	0x0951: "Kingston Technology",
	0x0BDA: "Realtek Semiconductor",
	0x0CF3: "Qualcomm Atheros Communications",
	0x10C4: "Silicon Labs",
	0x1058: "Western Digital Technologies",
	0x125F: "A-DATA Technology",
	0x13FE: "Kingston Technology Company",
	0x152D: "JMicron Technology",
	0x174C: "ASMedia Technology",
	0x1A40: "Terminus Technology",
	0x1D6B: "Linux Foundation",
	0x2109: "VIA Labs",
	0x8086: "Intel",
}

// VendorName resolves a vendor identifier against the static registry
// table, falling back to HexID for unlisted vendors.
func VendorName(vid uint16) string {
	if name, ok := vendorNames[vid]; ok {
		return name
	}
	return HexID(vid)
}

// VidPidPattern builds the hardware-id substring that identifies a
// vendor/product pair in registry hardware-id lists.
func VidPidPattern(vid, pid uint16) string {
	return fmt.Sprintf("VID_%04X&PID_%04X", vid, pid)
}

// ParseVidPid extracts the vendor and product ids from a hardware or
// instance id like `USB\VID_0951&PID_172B\...`. ok is false when either
// marker is missing or malformed.
func ParseVidPid(id string) (vid, pid uint16, ok bool) {
	u := strings.ToUpper(id)
	v, vok := hexAfter(u, "VID_")
	p, pok := hexAfter(u, "PID_")
	if !vok || !pok {
		return 0, 0, false
	}
	return v, p, true
}

func hexAfter(s, marker string) (uint16, bool) {
	i := strings.Index(s, marker)
	if i < 0 || i+len(marker)+4 > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[i+len(marker):i+len(marker)+4], 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
