// Package djtable implements a driver for the Wii DJ Hero turntable
// extension controller, attached over I2C at address 0x52.
//
// The controller reports a 6-byte state: stick X/Y (0-63), crossfade
// slider (0-15), effects dial (0-31), two turntables (signed, 5-bit
// magnitude with a separate direction bit) and nine buttons (active low).
package djtable

import (
	"time"

	"tinygo.org/x/drivers"
)

// DefaultAddress is the extension controller's I2C address.
const DefaultAddress = 0x52

// Buttons holds the pressed state of every button on the deck.
type Buttons struct {
	GreenLeft  bool
	RedLeft    bool
	BlueLeft   bool
	GreenRight bool
	RedRight   bool
	BlueRight  bool
	Euphoria   bool
	Minus      bool
	Plus       bool
}

// Device wraps an I2C connection to the DJ-table controller.
type Device struct {
	bus     drivers.I2C
	Address uint16
	data    [6]byte
}

// New creates a new DJ-table device on the given bus. The bus must already
// be configured.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: DefaultAddress,
	}
}

// Configure initializes the extension in unencrypted mode.
func (d *Device) Configure() error {
	if err := d.bus.Tx(d.Address, []byte{0xF0, 0x55}, nil); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.bus.Tx(d.Address, []byte{0xFB, 0x00}, nil); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Update reads the current 6-byte controller state. Call once per polling
// loop iteration; the accessors return values from the last Update.
func (d *Device) Update() error {
	if err := d.bus.Tx(d.Address, []byte{0x00}, nil); err != nil {
		return err
	}
	// The controller needs a moment between the pointer write and the read
	time.Sleep(250 * time.Microsecond)
	return d.bus.Tx(d.Address, nil, d.data[:])
}

// StickX returns the joystick X position (0-63).
func (d *Device) StickX() int {
	return int(d.data[0] & 0x3F)
}

// StickY returns the joystick Y position (0-63).
func (d *Device) StickY() int {
	return int(d.data[1] & 0x3F)
}

// Slider returns the crossfade slider position (0-15).
func (d *Device) Slider() int {
	return int(d.data[2] >> 1 & 0x0F)
}

// Dial returns the effects dial position (0-31).
func (d *Device) Dial() int {
	return int(d.data[2]>>5&0x03)<<3 | int(d.data[3]>>5&0x07)
}

// LeftTurntable returns the left platter velocity (-32 to 31, 0 at rest).
func (d *Device) LeftTurntable() int {
	return signed6(int(d.data[4]&0x01)<<5 | int(d.data[3]&0x1F))
}

// RightTurntable returns the right platter velocity (-32 to 31, 0 at rest).
func (d *Device) RightTurntable() int {
	return signed6(int(d.data[2]&0x01)<<5 |
		int(d.data[0]>>6&0x03)<<3 |
		int(d.data[1]>>6&0x03)<<1 |
		int(d.data[2]>>7&0x01))
}

// Buttons returns the pressed state of all buttons. The wire encoding is
// active low; this driver reports true for pressed.
func (d *Device) Buttons() Buttons {
	b4, b5 := d.data[4], d.data[5]
	return Buttons{
		RedLeft:    b4&(1<<6) == 0,
		Minus:      b4&(1<<4) == 0,
		Plus:       b4&(1<<2) == 0,
		RedRight:   b4&(1<<1) == 0,
		BlueLeft:   b5&(1<<7) == 0,
		GreenRight: b5&(1<<5) == 0,
		Euphoria:   b5&(1<<4) == 0,
		GreenLeft:  b5&(1<<3) == 0,
		BlueRight:  b5&(1<<1) == 0,
	}
}

// signed6 interprets a 6-bit value as two's complement.
func signed6(v int) int {
	if v >= 32 {
		return v - 64
	}
	return v
}
