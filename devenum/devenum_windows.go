//go:build windows

package devenum

import (
	"syscall"
	"unsafe"

	"github.com/efficientgo/core/errors"
	"golang.org/x/sys/windows"

	"github.com/seclens/windevices/internal/winapi"
)

const (
	errorNoMoreItems        = syscall.Errno(259)
	errorInsufficientBuffer = syscall.Errno(122)
)

// devInfoSet wraps a SetupDi device information set handle.
type devInfoSet struct {
	handle uintptr
}

func openDevInfoSet(classGUID *windows.GUID, flags uint32) (*devInfoSet, error) {
	var guidArg uintptr
	if classGUID != nil {
		guidArg = uintptr(unsafe.Pointer(classGUID))
	}
	h, _, err := winapi.ProcSetupDiGetClassDevs.Call(guidArg, 0, 0, uintptr(flags))
	if h == winapi.InvalidHandleValue {
		return nil, errors.Wrapf(ErrEnumeration, "SetupDiGetClassDevs: %v", err)
	}
	return &devInfoSet{handle: h}, nil
}

func (s *devInfoSet) close() {
	winapi.ProcSetupDiDestroyDeviceInfoList.Call(s.handle)
}

// enumDevice fetches the i-th element of the set. ok is false once the set
// is exhausted.
func (s *devInfoSet) enumDevice(i uint32) (winapi.SPDevinfoData, bool, error) {
	var data winapi.SPDevinfoData
	data.CbSize = uint32(unsafe.Sizeof(data))
	r, _, err := winapi.ProcSetupDiEnumDeviceInfo.Call(
		s.handle, uintptr(i), uintptr(unsafe.Pointer(&data)))
	if r == 0 {
		if err == errorNoMoreItems {
			return data, false, nil
		}
		return data, false, errors.Wrapf(ErrEnumeration, "SetupDiEnumDeviceInfo(%d): %v", i, err)
	}
	return data, true, nil
}

// stringProperty reads one registry string property in the usual two
// phases: size probe, then fetch. ok is false when the device does not
// carry the property.
func (s *devInfoSet) stringProperty(data *winapi.SPDevinfoData, prop uint32) (string, bool) {
	buf, ok := s.rawProperty(data, prop)
	if !ok || len(buf) < 2 {
		return "", false
	}
	return windows.UTF16ToString(bytesToUTF16(buf)), true
}

// multiSzProperty reads a REG_MULTI_SZ property as a string slice.
func (s *devInfoSet) multiSzProperty(data *winapi.SPDevinfoData, prop uint32) []string {
	buf, ok := s.rawProperty(data, prop)
	if !ok {
		return nil
	}
	var out []string
	u := bytesToUTF16(buf)
	start := 0
	for i, c := range u {
		if c == 0 {
			if i > start {
				out = append(out, windows.UTF16ToString(u[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func (s *devInfoSet) rawProperty(data *winapi.SPDevinfoData, prop uint32) ([]byte, bool) {
	var need uint32
	_, _, err := winapi.ProcSetupDiGetDeviceRegistryProperty.Call(
		s.handle, uintptr(unsafe.Pointer(data)), uintptr(prop),
		0, 0, 0, uintptr(unsafe.Pointer(&need)))
	if err != errorInsufficientBuffer || need == 0 {
		return nil, false
	}
	buf := make([]byte, need)
	r, _, _ := winapi.ProcSetupDiGetDeviceRegistryProperty.Call(
		s.handle, uintptr(unsafe.Pointer(data)), uintptr(prop),
		0, uintptr(unsafe.Pointer(&buf[0])), uintptr(need), 0)
	if r == 0 {
		return nil, false
	}
	return buf, true
}

func (s *devInfoSet) instanceID(data *winapi.SPDevinfoData) string {
	buf := make([]uint16, 512)
	var need uint32
	r, _, _ := winapi.ProcSetupDiGetDeviceInstanceId.Call(
		s.handle, uintptr(unsafe.Pointer(data)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), uintptr(unsafe.Pointer(&need)))
	if r == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

func (s *devInfoSet) powerState(data *winapi.SPDevinfoData) PowerState {
	buf, ok := s.rawProperty(data, winapi.SPDRP_DEVICE_POWER_DATA)
	if !ok || len(buf) < int(unsafe.Sizeof(winapi.CMPowerData{})) {
		return PowerUnspecified
	}
	pd := (*winapi.CMPowerData)(unsafe.Pointer(&buf[0]))
	// DEVICE_POWER_STATE counts from PowerDeviceUnspecified.
	if pd.MostRecentPowerState > uint32(PowerD3) {
		return PowerUnspecified
	}
	return PowerState(pd.MostRecentPowerState)
}

// interfacePath resolves the i-th device interface path for the given
// interface class. ok is false when the element has no such interface.
func (s *devInfoSet) interfacePath(data *winapi.SPDevinfoData, classGUID *windows.GUID, i uint32) (string, bool) {
	var ifData winapi.SPDeviceInterfaceData
	ifData.CbSize = uint32(unsafe.Sizeof(ifData))
	var dataArg uintptr
	if data != nil {
		dataArg = uintptr(unsafe.Pointer(data))
	}
	r, _, _ := winapi.ProcSetupDiEnumDeviceInterfaces.Call(
		s.handle, dataArg, uintptr(unsafe.Pointer(classGUID)),
		uintptr(i), uintptr(unsafe.Pointer(&ifData)))
	if r == 0 {
		return "", false
	}

	var need uint32
	winapi.ProcSetupDiGetDeviceInterfaceDetail.Call(
		s.handle, uintptr(unsafe.Pointer(&ifData)), 0, 0,
		uintptr(unsafe.Pointer(&need)), 0)
	if need == 0 {
		return "", false
	}
	detail := make([]byte, need)
	// SP_DEVICE_INTERFACE_DETAIL_DATA_W: cbSize is 8 on 64-bit builds
	// (6 on 32-bit) and the path starts right after the size field.
	cbSize := uint32(8)
	if unsafe.Sizeof(uintptr(0)) == 4 {
		cbSize = 6
	}
	*(*uint32)(unsafe.Pointer(&detail[0])) = cbSize
	r, _, _ = winapi.ProcSetupDiGetDeviceInterfaceDetail.Call(
		s.handle, uintptr(unsafe.Pointer(&ifData)), uintptr(unsafe.Pointer(&detail[0])),
		uintptr(need), 0, 0)
	if r == 0 {
		return "", false
	}
	return windows.UTF16ToString(bytesToUTF16(detail[4:])), true
}

func (s *devInfoSet) device(data *winapi.SPDevinfoData) Device {
	d := Device{
		InstanceID: s.instanceID(data),
		ClassGUID:  data.ClassGuid.String(),
		PowerState: s.powerState(data),
	}
	d.Description, _ = s.stringProperty(data, winapi.SPDRP_DEVICEDESC)
	d.FriendlyName, _ = s.stringProperty(data, winapi.SPDRP_FRIENDLYNAME)
	d.Manufacturer, _ = s.stringProperty(data, winapi.SPDRP_MFG)
	d.DriverKey, _ = s.stringProperty(data, winapi.SPDRP_DRIVER)
	d.HardwareIDs = s.multiSzProperty(data, winapi.SPDRP_HARDWAREID)
	return d
}

// ByInterface enumerates present devices that expose the given device
// interface class, with their interface device paths resolved.
func ByInterface(classGUID windows.GUID) ([]Device, error) {
	set, err := openDevInfoSet(&classGUID, winapi.DIGCF_PRESENT|winapi.DIGCF_DEVICEINTERFACE)
	if err != nil {
		return nil, err
	}
	defer set.close()

	var devices []Device
	for i := uint32(0); ; i++ {
		data, ok, err := set.enumDevice(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		d := set.device(&data)
		if path, ok := set.interfacePath(&data, &classGUID, 0); ok {
			d.DevicePath = path
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// AllPresent enumerates every present device regardless of class.
func AllPresent() ([]Device, error) {
	set, err := openDevInfoSet(nil, winapi.DIGCF_PRESENT|winapi.DIGCF_ALLCLASSES)
	if err != nil {
		return nil, err
	}
	defer set.close()

	var devices []Device
	for i := uint32(0); ; i++ {
		data, ok, err := set.enumDevice(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		devices = append(devices, set.device(&data))
	}
	return devices, nil
}

// BySetupClass enumerates present devices of one setup class, for
// registry-only sibling queries.
func BySetupClass(classGUID windows.GUID) ([]Device, error) {
	set, err := openDevInfoSet(&classGUID, winapi.DIGCF_PRESENT)
	if err != nil {
		return nil, err
	}
	defer set.close()

	var devices []Device
	for i := uint32(0); ; i++ {
		data, ok, err := set.enumDevice(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		devices = append(devices, set.device(&data))
	}
	return devices, nil
}

func bytesToUTF16(b []byte) []uint16 {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return u
}
