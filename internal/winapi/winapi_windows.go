//go:build windows

package winapi

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// --- DLL Handles ---
var (
	setupapi = syscall.NewLazyDLL("setupapi.dll")
)

// --- Procedure Handles ---
var (
	// Device information sets

	ProcSetupDiGetClassDevs          = setupapi.NewProc("SetupDiGetClassDevsW")
	ProcSetupDiEnumDeviceInfo        = setupapi.NewProc("SetupDiEnumDeviceInfo")
	ProcSetupDiDestroyDeviceInfoList = setupapi.NewProc("SetupDiDestroyDeviceInfoList")

	// Device interfaces

	ProcSetupDiEnumDeviceInterfaces     = setupapi.NewProc("SetupDiEnumDeviceInterfaces")
	ProcSetupDiGetDeviceInterfaceDetail = setupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")

	// Registry properties

	ProcSetupDiGetDeviceRegistryProperty = setupapi.NewProc("SetupDiGetDeviceRegistryPropertyW")
	ProcSetupDiGetDeviceInstanceId       = setupapi.NewProc("SetupDiGetDeviceInstanceIdW")
)

// --- Constants ---
const (
	// SetupDiGetClassDevs flags

	DIGCF_DEFAULT         = 0x00000001
	DIGCF_PRESENT         = 0x00000002
	DIGCF_ALLCLASSES      = 0x00000004
	DIGCF_PROFILE         = 0x00000008
	DIGCF_DEVICEINTERFACE = 0x00000010

	// SPDRP property codes from setupapi.h

	SPDRP_DEVICEDESC        = 0x00000000
	SPDRP_HARDWAREID        = 0x00000001
	SPDRP_SERVICE           = 0x00000004
	SPDRP_CLASS             = 0x00000007
	SPDRP_CLASSGUID         = 0x00000008
	SPDRP_DRIVER            = 0x00000009
	SPDRP_MFG               = 0x0000000B
	SPDRP_FRIENDLYNAME      = 0x0000000C
	SPDRP_DEVICE_POWER_DATA = 0x0000001E

	InvalidHandleValue = ^uintptr(0)
)

// --- Interface Class GUIDs ---
var (
	GUIDDevInterfaceUSBDevice = windows.GUID{
		Data1: 0xA5DCBF10, Data2: 0x6530, Data3: 0x11D2,
		Data4: [8]byte{0x90, 0x1F, 0x00, 0xC0, 0x4F, 0xB9, 0x51, 0xED},
	}
	GUIDDevInterfaceUSBHub = windows.GUID{
		Data1: 0xF18A0E88, Data2: 0xC30C, Data3: 0x11D0,
		Data4: [8]byte{0x88, 0x15, 0x00, 0xA0, 0xC9, 0x06, 0xBE, 0xD8},
	}
	GUIDDevInterfaceUSBHostController = windows.GUID{
		Data1: 0x3ABF6F2D, Data2: 0x71C4, Data3: 0x462A,
		Data4: [8]byte{0x8A, 0x92, 0x1E, 0x68, 0x61, 0xE6, 0xAF, 0x27},
	}
)

// --- Struct Definitions ---

// SetupDi: per-device element of a device information set
type SPDevinfoData struct {
	CbSize    uint32
	ClassGuid windows.GUID
	DevInst   uint32
	Reserved  uintptr
}

// SetupDi: per-interface element
type SPDeviceInterfaceData struct {
	CbSize             uint32
	InterfaceClassGuid windows.GUID
	Flags              uint32
	Reserved           uintptr
}

// Registry power data; only the leading fields are consumed
type CMPowerData struct {
	Size                 uint32
	MostRecentPowerState uint32
}
