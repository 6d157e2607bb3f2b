package winapi

// usbioctl.h control codes. All are CTL_CODE(FILE_DEVICE_USB, fn,
// METHOD_BUFFERED, FILE_ANY_ACCESS); only the function number varies.
const (
	fileDeviceUSB = 0x00000022

	IOCTL_USB_GET_NODE_INFORMATION                  = fileDeviceUSB<<16 | 258<<2
	IOCTL_USB_GET_NODE_CONNECTION_INFORMATION       = fileDeviceUSB<<16 | 259<<2
	IOCTL_USB_GET_DESCRIPTOR_FROM_NODE_CONNECTION   = fileDeviceUSB<<16 | 260<<2
	IOCTL_USB_GET_NODE_CONNECTION_NAME              = fileDeviceUSB<<16 | 261<<2
	IOCTL_USB_GET_NODE_CONNECTION_DRIVERKEY_NAME    = fileDeviceUSB<<16 | 264<<2
	IOCTL_GET_HCD_DRIVERKEY_NAME                    = fileDeviceUSB<<16 | 265<<2
	IOCTL_USB_USER_REQUEST                          = fileDeviceUSB<<16 | 266<<2
	IOCTL_USB_GET_NODE_CONNECTION_INFORMATION_EX    = fileDeviceUSB<<16 | 274<<2
	IOCTL_USB_GET_HUB_CAPABILITIES_EX               = fileDeviceUSB<<16 | 276<<2
	IOCTL_USB_GET_HUB_INFORMATION_EX                = fileDeviceUSB<<16 | 277<<2
	IOCTL_USB_GET_PORT_CONNECTOR_PROPERTIES         = fileDeviceUSB<<16 | 278<<2
	IOCTL_USB_GET_NODE_CONNECTION_INFORMATION_EX_V2 = fileDeviceUSB<<16 | 279<<2

	// Root hub name shares the function number of node information; the
	// receiving device type disambiguates (host controller vs hub).
	IOCTL_USB_GET_ROOT_HUB_NAME = IOCTL_USB_GET_NODE_INFORMATION

	// usbuser.h request code for USBUSER_CONTROLLER_INFO_0
	USBUSER_GET_CONTROLLER_INFO_0 = 0x00000001
)

const (
	// USB_CONNECTION_STATUS values

	NoDeviceConnected        = 0
	DeviceConnected          = 1
	DeviceFailedEnum         = 2
	DeviceGeneralFailure     = 3
	DeviceCausedOvercurrent  = 4
	DeviceNotEnoughPower     = 5
	DeviceNotEnoughBandwidth = 6
	DeviceHubNestedTooDeeply = 7
	DeviceInLegacyHub        = 8

	// USB_DEVICE_SPEED values from the EX connection query

	UsbLowSpeed   = 0
	UsbFullSpeed  = 1
	UsbHighSpeed  = 2
	UsbSuperSpeed = 3

	// SupportedUsbProtocols bits in the V2 connection query

	UsbProtocol110 = 0x01
	UsbProtocol200 = 0x02
	UsbProtocol300 = 0x04

	// USB_NODE_CONNECTION_INFORMATION_EX_V2 flag bits

	V2DeviceIsOperatingAtSuperSpeedOrHigher     = 0x01
	V2DeviceIsSuperSpeedCapableOrHigher         = 0x02
	V2DeviceIsOperatingAtSuperSpeedPlusOrHigher = 0x04
	V2DeviceIsSuperSpeedPlusCapableOrHigher     = 0x08

	// USB_PORT_PROPERTIES flag bits

	PortIsUserConnectable     = 0x01
	PortIsDebugCapable        = 0x02
	PortHasMultipleCompanions = 0x04
	PortConnectorIsTypeC      = 0x08

	// Node types from USB_HUB_NODE

	UsbHubNode      = 0
	UsbMIParentNode = 1

	// Descriptor type tags from usbspec.h

	UsbDeviceDescriptorType        = 0x01
	UsbConfigurationDescriptorType = 0x02
	UsbStringDescriptorType        = 0x03
	UsbInterfaceDescriptorType     = 0x04

	// GET_DESCRIPTOR transfer limits

	MaximumUsbStringLength = 255
)
