// Package descriptor parses and validates raw USB descriptor buffers read
// from hub connection queries. All functions operate on owned byte slices
// and never index past the validated window.
package descriptor

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/efficientgo/core/errors"
)

// Descriptor type tags from the USB specification.
const (
	TypeDevice        = 0x01
	TypeConfiguration = 0x02
	TypeString        = 0x03
	TypeInterface     = 0x04
	TypeEndpoint      = 0x05
)

// DeviceDescriptorLength is the fixed wire size of a device descriptor.
const DeviceDescriptorLength = 18

var (
	ErrShortBuffer   = errors.New("descriptor buffer too short")
	ErrBadType       = errors.New("unexpected descriptor type")
	ErrBadLength     = errors.New("descriptor length field invalid")
	ErrMalformedTree = errors.New("configuration descriptor tree malformed")
)

// Device is the decoded 18-byte device descriptor.
type Device struct {
	Length            byte
	DescriptorType    byte
	BcdUSB            uint16
	DeviceClass       byte
	DeviceSubClass    byte
	DeviceProtocol    byte
	MaxPacketSize0    byte
	VendorID          uint16
	ProductID         uint16
	BcdDevice         uint16
	ManufacturerIndex byte
	ProductIndex      byte
	SerialNumberIndex byte
	NumConfigurations byte
}

// Config is the decoded 9-byte configuration descriptor header.
type Config struct {
	Length             byte
	DescriptorType     byte
	TotalLength        uint16
	NumInterfaces      byte
	ConfigurationValue byte
	ConfigurationIndex byte
	Attributes         byte
	MaxPower           byte
}

// InterfaceInfo carries the class triple of an interface descriptor.
type InterfaceInfo struct {
	Class    byte
	SubClass byte
	Protocol byte
}

// ParseDevice decodes a device descriptor. Multibyte fields are
// little-endian per the USB specification.
func ParseDevice(buf []byte) (Device, error) {
	if len(buf) < DeviceDescriptorLength {
		return Device{}, errors.Wrapf(ErrShortBuffer, "device descriptor: got %d bytes", len(buf))
	}
	return Device{
		Length:            buf[0],
		DescriptorType:    buf[1],
		BcdUSB:            binary.LittleEndian.Uint16(buf[2:4]),
		DeviceClass:       buf[4],
		DeviceSubClass:    buf[5],
		DeviceProtocol:    buf[6],
		MaxPacketSize0:    buf[7],
		VendorID:          binary.LittleEndian.Uint16(buf[8:10]),
		ProductID:         binary.LittleEndian.Uint16(buf[10:12]),
		BcdDevice:         binary.LittleEndian.Uint16(buf[12:14]),
		ManufacturerIndex: buf[14],
		ProductIndex:      buf[15],
		SerialNumberIndex: buf[16],
		NumConfigurations: buf[17],
	}, nil
}

// ValidateDevice checks the structural invariants of a device descriptor:
// declared length 18, type tag DEVICE, and a bcdUSB of at least 1.0.
func ValidateDevice(d Device) error {
	if d.Length != DeviceDescriptorLength {
		return errors.Wrapf(ErrBadLength, "bLength %d", d.Length)
	}
	if d.DescriptorType != TypeDevice {
		return errors.Wrapf(ErrBadType, "got 0x%02X, want 0x%02X", d.DescriptorType, TypeDevice)
	}
	if d.BcdUSB < 0x0100 {
		return errors.Wrapf(ErrBadLength, "bcdUSB 0x%04X below 1.0", d.BcdUSB)
	}
	return nil
}

// ParseConfig decodes the 9-byte configuration descriptor header.
func ParseConfig(buf []byte) (Config, error) {
	if len(buf) < 9 {
		return Config{}, errors.Wrapf(ErrShortBuffer, "config descriptor: got %d bytes", len(buf))
	}
	c := Config{
		Length:             buf[0],
		DescriptorType:     buf[1],
		TotalLength:        binary.LittleEndian.Uint16(buf[2:4]),
		NumInterfaces:      buf[4],
		ConfigurationValue: buf[5],
		ConfigurationIndex: buf[6],
		Attributes:         buf[7],
		MaxPower:           buf[8],
	}
	if c.DescriptorType != TypeConfiguration {
		return Config{}, errors.Wrapf(ErrBadType, "got 0x%02X, want 0x%02X", c.DescriptorType, TypeConfiguration)
	}
	return c, nil
}

// ValidateConfigTree walks every element of a configuration descriptor
// buffer and verifies the chain is traversable: each element's two-byte
// common header must fit, the declared bLength must fit in the remainder,
// and a zero bLength aborts the walk (a malformed device could otherwise
// pin the walker forever).
func ValidateConfigTree(buf []byte) error {
	c, err := ParseConfig(buf)
	if err != nil {
		return err
	}
	window := int(c.TotalLength)
	if window > len(buf) {
		window = len(buf)
	}
	off := 0
	for off < window {
		if window-off < 2 {
			return errors.Wrapf(ErrMalformedTree, "common header truncated at offset %d", off)
		}
		l := int(buf[off])
		if l == 0 {
			return errors.Wrapf(ErrMalformedTree, "zero bLength at offset %d", off)
		}
		if l > window-off {
			return errors.Wrapf(ErrMalformedTree, "element at offset %d declares %d bytes, %d remain", off, l, window-off)
		}
		off += l
	}
	return nil
}

// FirstInterface returns the class triple of the first interface element in
// a configuration descriptor buffer, whether or not the interface carries
// string indexes. ok is false when the tree holds no interface element.
func FirstInterface(buf []byte) (InterfaceInfo, bool) {
	if err := ValidateConfigTree(buf); err != nil {
		return InterfaceInfo{}, false
	}
	c, _ := ParseConfig(buf)
	window := int(c.TotalLength)
	if window > len(buf) {
		window = len(buf)
	}
	for off := 0; off < window; off += int(buf[off]) {
		if buf[off+1] == TypeInterface && int(buf[off]) >= 8 {
			return InterfaceInfo{
				Class:    buf[off+5],
				SubClass: buf[off+6],
				Protocol: buf[off+7],
			}, true
		}
	}
	return InterfaceInfo{}, false
}

// InterfaceCount walks a configuration descriptor buffer and counts its
// interface elements. A malformed tree counts as zero.
func InterfaceCount(buf []byte) int {
	if err := ValidateConfigTree(buf); err != nil {
		return 0
	}
	c, _ := ParseConfig(buf)
	window := int(c.TotalLength)
	if window > len(buf) {
		window = len(buf)
	}
	n := 0
	for off := 0; off < window; off += int(buf[off]) {
		if buf[off+1] == TypeInterface {
			n++
		}
	}
	return n
}

// HasStringDescriptors reports whether a device is expected to answer
// string descriptor requests. The device descriptor indexes are the fast
// path; failing that, the configuration tree is walked and any
// configuration or interface element with a nonzero string index flags
// the device. A string-bearing element too short for its layout ends the
// walk with false.
func HasStringDescriptors(d Device, config []byte) bool {
	if d.ManufacturerIndex != 0 || d.ProductIndex != 0 || d.SerialNumberIndex != 0 {
		return true
	}
	if err := ValidateConfigTree(config); err != nil {
		return false
	}
	c, _ := ParseConfig(config)
	window := int(c.TotalLength)
	if window > len(config) {
		window = len(config)
	}
	for off := 0; off < window; off += int(config[off]) {
		l := int(config[off])
		switch config[off+1] {
		case TypeConfiguration:
			if l < 7 {
				return false
			}
			if config[off+6] != 0 {
				return true
			}
		case TypeInterface:
			if l < 9 {
				return false
			}
			if config[off+8] != 0 {
				return true
			}
		}
	}
	return false
}

// ValidateStringResponse checks a string descriptor payload against the
// byte count the transfer actually returned: STRING type tag, a bLength
// that matches the transfer, and an even length (the payload is UTF-16LE).
func ValidateStringResponse(buf []byte, transferred int) error {
	if len(buf) < 2 || transferred < 2 {
		return errors.Wrap(ErrShortBuffer, "string descriptor")
	}
	if buf[1] != TypeString {
		return errors.Wrapf(ErrBadType, "got 0x%02X, want 0x%02X", buf[1], TypeString)
	}
	if int(buf[0]) != transferred {
		return errors.Wrapf(ErrBadLength, "bLength %d, transfer returned %d", buf[0], transferred)
	}
	if transferred%2 != 0 {
		return errors.Wrapf(ErrBadLength, "odd byte count %d", transferred)
	}
	return nil
}

// DecodeString converts a validated string descriptor payload to a Go
// string. The two header bytes are skipped.
func DecodeString(buf []byte) string {
	if len(buf) < 2 {
		return ""
	}
	end := int(buf[0])
	if end > len(buf) {
		end = len(buf)
	}
	u := make([]uint16, 0, (end-2)/2)
	for i := 2; i+1 < end; i += 2 {
		u = append(u, binary.LittleEndian.Uint16(buf[i:i+2]))
	}
	return string(utf16.Decode(u))
}
