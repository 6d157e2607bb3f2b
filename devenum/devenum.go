// Package devenum enumerates devices registered with the Windows device
// installation layer and reads their registry-backed properties.
package devenum

import (
	"strings"

	"github.com/efficientgo/core/errors"
)

var (
	// ErrInvalidArgument flags caller mistakes and always propagates.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEnumeration flags a failed device set query.
	ErrEnumeration = errors.New("device enumeration failed")
)

// PowerState mirrors the DEVICE_POWER_STATE registry value.
type PowerState uint32

const (
	PowerUnspecified PowerState = iota
	PowerD0
	PowerD1
	PowerD2
	PowerD3
)

func (p PowerState) String() string {
	switch p {
	case PowerD0:
		return "D0"
	case PowerD1:
		return "D1"
	case PowerD2:
		return "D2"
	case PowerD3:
		return "D3"
	default:
		return "Unspecified"
	}
}

// Device is one enumerated device with its registry properties. Properties
// the device does not carry are left zero.
type Device struct {
	InstanceID   string
	Description  string
	FriendlyName string
	Manufacturer string
	HardwareIDs  []string
	DriverKey    string
	ClassGUID    string
	DevicePath   string
	PowerState   PowerState
}

// DisplayName prefers the description and falls back to the friendly name.
func (d Device) DisplayName() string {
	if d.Description != "" {
		return d.Description
	}
	return d.FriendlyName
}

// HasHardwareID reports whether any of the device's hardware ids contains
// the pattern, compared case-insensitively. Hardware id casing is not
// stable across bus drivers.
func HasHardwareID(ids []string, pattern string) bool {
	if pattern == "" {
		return false
	}
	p := strings.ToUpper(pattern)
	for _, id := range ids {
		if strings.Contains(strings.ToUpper(id), p) {
			return true
		}
	}
	return false
}
