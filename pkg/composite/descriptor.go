// Package composite builds the custom USB composite device descriptor
// that combines CDC (Serial) + HID (Keyboard + Mouse + Consumer + Joystick).
//
// The keyboard, mouse and consumer collections are fixed. The joystick
// collection is generated at boot from the configured axis and button
// counts, so the host always sees exactly the inputs the report engine
// serializes: the axes first (one byte each), then the buttons packed
// LSB-first with constant pad bits up to a byte boundary.
package composite

import (
	"machine/usb"
	"machine/usb/descriptor"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/joystick"
)

// JoystickReportID is the report ID of the generated joystick collection.
// IDs 1-3 belong to the mouse, keyboard and consumer collections.
const JoystickReportID = 4

// Desktop usages assigned to the axes, in slot order. The first six are the
// standard axes; the extra slots are sliders and dials appended by hardware
// with more than six analog inputs.
var axisUsages = [][]byte{
	descriptor.HIDUsageDesktopX,
	descriptor.HIDUsageDesktopY,
	descriptor.HIDUsageDesktopZ,
	{0x09, 0x33}, // Usage (Rx)
	{0x09, 0x34}, // Usage (Ry)
	descriptor.HIDUsageDesktopRz,
	{0x09, 0x36}, // Usage (Slider)
	{0x09, 0x37}, // Usage (Dial)
}

// fixedHIDCollections holds the mouse, keyboard and consumer report
// collections (report IDs 1-3).
var fixedHIDCollections = [][]byte{
	// ===================================================================
	// REPORT ID 1: MOUSE (5 bytes total: 1 ID + 1 buttons + 3 axes)
	// ===================================================================
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopMouse,
	descriptor.HIDCollectionApplication,
	descriptor.HIDUsageDesktopPointer,
	descriptor.HIDCollectionPhysical,
	descriptor.HIDReportID(1),
	// Buttons (5 buttons, 1 bit each + 3 bits padding)
	descriptor.HIDUsagePageButton,
	descriptor.HIDUsageMinimum(1),
	descriptor.HIDUsageMaximum(5),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(1),
	descriptor.HIDReportCount(5),
	descriptor.HIDReportSize(1),
	descriptor.HIDInputDataVarAbs,
	descriptor.HIDReportCount(1),
	descriptor.HIDReportSize(3),
	descriptor.HIDInputConstVarAbs,
	// Axes (X, Y, Wheel)
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopX,
	descriptor.HIDUsageDesktopY,
	descriptor.HIDUsageDesktopWheel,
	descriptor.HIDLogicalMinimum(-127),
	descriptor.HIDLogicalMaximum(127),
	descriptor.HIDReportSize(8),
	descriptor.HIDReportCount(3),
	descriptor.HIDInputDataVarRel,
	descriptor.HIDCollectionEnd,
	descriptor.HIDCollectionEnd,

	// ===================================================================
	// REPORT ID 2: KEYBOARD (9 bytes total: 1 ID + 8 data)
	// ===================================================================
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopKeyboard,
	descriptor.HIDCollectionApplication,
	descriptor.HIDReportID(2),
	// Modifier keys (8 bits)
	descriptor.HIDUsagePageKeyboard,
	descriptor.HIDUsageMinimum(224),
	descriptor.HIDUsageMaximum(231),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(1),
	descriptor.HIDReportSize(1),
	descriptor.HIDReportCount(8),
	descriptor.HIDInputDataVarAbs,
	// Reserved byte
	descriptor.HIDReportCount(1),
	descriptor.HIDReportSize(8),
	descriptor.HIDInputConstVarAbs,
	// LED output report (for keyboard LEDs)
	descriptor.HIDReportCount(3),
	descriptor.HIDReportSize(1),
	descriptor.HIDUsagePageLED,
	descriptor.HIDUsageMinimum(1),
	descriptor.HIDUsageMaximum(3),
	descriptor.HIDOutputDataVarAbs,
	descriptor.HIDReportCount(5),
	descriptor.HIDReportSize(1),
	descriptor.HIDOutputConstVarAbs,
	// Keycodes (6 keys)
	descriptor.HIDReportCount(6),
	descriptor.HIDReportSize(8),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(255),
	descriptor.HIDUsagePageKeyboard,
	descriptor.HIDUsageMinimum(0),
	descriptor.HIDUsageMaximum(255),
	descriptor.HIDInputDataAryAbs,
	descriptor.HIDCollectionEnd,

	// ===================================================================
	// REPORT ID 3: CONSUMER CONTROL (3 bytes total: 1 ID + 2 data)
	// ===================================================================
	descriptor.HIDUsagePageConsumer,
	descriptor.HIDUsageConsumerControl,
	descriptor.HIDCollectionApplication,
	descriptor.HIDReportID(3),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(8191),
	descriptor.HIDUsageMinimum(0),
	descriptor.HIDUsageMaximum(0x1FFF),
	descriptor.HIDReportSize(16),
	descriptor.HIDReportCount(1),
	descriptor.HIDInputDataAryAbs,
	descriptor.HIDCollectionEnd,
}

// joystickCollection generates the joystick report collection for the given
// axis and button counts. Axes beyond the eight known usages reuse the
// slider usage; hardware with that many inputs reports them in reverse wire
// order, which the report engine's slot remapping accounts for.
func joystickCollection(axes, buttons int) [][]byte {
	items := [][]byte{
		descriptor.HIDUsagePageGenericDesktop,
		{0x09, 0x04}, // Usage (Joystick)
		descriptor.HIDCollectionApplication,
		descriptor.HIDReportID(JoystickReportID),
	}

	if axes > 0 {
		items = append(items, descriptor.HIDUsagePageGenericDesktop)
		for i := 0; i < axes; i++ {
			usage := axisUsages[len(axisUsages)-1]
			if i < len(axisUsages) {
				usage = axisUsages[i]
			}
			items = append(items, usage)
		}
		items = append(items,
			descriptor.HIDLogicalMinimum(0),
			descriptor.HIDLogicalMaximum(255),
			descriptor.HIDReportSize(8),
			descriptor.HIDReportCount(axes),
			descriptor.HIDInputDataVarAbs,
		)
	}

	if buttons > 0 {
		items = append(items,
			descriptor.HIDUsagePageButton,
			descriptor.HIDUsageMinimum(1),
			descriptor.HIDUsageMaximum(buttons),
			descriptor.HIDLogicalMinimum(0),
			descriptor.HIDLogicalMaximum(1),
			descriptor.HIDReportSize(1),
			descriptor.HIDReportCount(buttons),
			descriptor.HIDInputDataVarAbs,
		)
		if pad := buttons % 8; pad != 0 {
			items = append(items,
				descriptor.HIDReportCount(1),
				descriptor.HIDReportSize(8-pad),
				descriptor.HIDInputConstVarAbs,
			)
		}
	}

	items = append(items, descriptor.HIDCollectionEnd)
	return items
}

// ReportDescriptor assembles the full composite HID report descriptor.
func ReportDescriptor(axes, buttons int) []byte {
	items := make([][]byte, 0, len(fixedHIDCollections)+32)
	items = append(items, fixedHIDCollections...)
	items = append(items, joystickCollection(axes, buttons)...)
	return descriptor.Append(items)
}

// Descriptor builds the complete USB descriptor for the composite device:
// CDC (Serial) + HID (Keyboard/Mouse/Consumer/Joystick).
func Descriptor(axes, buttons int) descriptor.Descriptor {
	hidReport := ReportDescriptor(axes, buttons)

	return descriptor.Descriptor{
		// Device descriptor: USB 2.0 Composite device
		Device: descriptor.DeviceCDC.Bytes(),

		// Configuration descriptor: All interfaces combined
		Configuration: descriptor.Append([][]byte{
			// Configuration header
			descriptor.ConfigurationCDCHID.Bytes(),
			// CDC interfaces
			descriptor.InterfaceAssociationCDC.Bytes(),
			descriptor.InterfaceCDCControl.Bytes(),
			descriptor.ClassSpecificCDCHeader.Bytes(),
			descriptor.ClassSpecificCDCACM.Bytes(),
			descriptor.ClassSpecificCDCUnion.Bytes(),
			descriptor.ClassSpecificCDCCallManagement.Bytes(),
			descriptor.EndpointEP1IN.Bytes(),
			descriptor.InterfaceCDCData.Bytes(),
			descriptor.EndpointEP2OUT.Bytes(),
			descriptor.EndpointEP3IN.Bytes(),
			// HID interface
			descriptor.InterfaceHID.Bytes(),
			// HID class descriptor (patched with the report descriptor length)
			func() []byte {
				classHID := descriptor.ClassHID.Bytes()
				classHID[7] = byte(len(hidReport))
				classHID[8] = byte(len(hidReport) >> 8)
				return classHID
			}(),
			descriptor.EndpointEP4IN.Bytes(),
			descriptor.EndpointEP5OUT.Bytes(),
		}),

		// HID report descriptors by interface number
		HID: map[uint16][]byte{
			usb.HID_INTERFACE: hidReport,
		},
	}
}

// BootInfoLine returns the boot-info line matching the descriptor that
// Install generates; the report engine's loader parses it at startup.
func BootInfoLine(axes, buttons int) string {
	return joystick.FormatBootInfo(axes, buttons)
}

// Install replaces the default CDC+HID descriptor with the generated
// composite descriptor. Must run before USB enumeration, i.e. before any
// other package touches the USB device.
func Install(axes, buttons int) {
	descriptor.CDCHID = Descriptor(axes, buttons)
}
