// Package config defines the persisted device settings for the DJ-table
// joystick. The struct is designed for zero-allocation binary serialization.
package config

import (
	"encoding/binary"
	"errors"
)

// CurrentVersion is the config format version.
// Bump this when making breaking changes to the config format.
// When firmware boots and finds a different version in flash, the config is
// wiped and defaults apply.
const CurrentVersion uint16 = 1

// Capability limits enforced before a config is accepted. Six standard axes
// plus two reversed slider slots; the button count must fit the packed
// report bytes the descriptor generator emits.
const (
	MaxAxes    = 8
	MaxButtons = 64
)

// Device-level flag bits.
const (
	// FlagInvertY flips the joystick Y axis before it reaches the report
	// engine.
	FlagInvertY uint32 = 1 << 0
)

// Size is the serialized length of a DeviceConfig.
const Size = 12

// DeviceConfig holds the editable device settings. The axis and button
// counts drive USB descriptor generation at boot, so changes take effect on
// the next power cycle.
//
// Total size: 12 bytes
// Layout:
//
//	[0-1]:  Version (uint16)
//	[2-5]:  Flags (uint32)
//	[6]:    AxisCount (uint8)
//	[7]:    ButtonCount (uint8)
//	[8-11]: Reserved
type DeviceConfig struct {
	Version     uint16 // Config format version
	Flags       uint32 // FlagInvertY etc.
	AxisCount   uint8  // Analog axes exposed to the host
	ButtonCount uint8  // Digital buttons exposed to the host
	Reserved    uint32 // Padding / future use
}

var (
	ErrInvalidSize   = errors.New("invalid config size")
	ErrInvalidCounts = errors.New("invalid axis/button counts")
)

// Default returns the configuration for the stock DJ-table build: six axes
// (stick X/Y, crossfade slider, effects dial, both turntables) and thirteen
// buttons.
func Default() DeviceConfig {
	return DeviceConfig{
		Version:     CurrentVersion,
		AxisCount:   6,
		ButtonCount: 13,
	}
}

// Validate checks that the counts describe a buildable device: within the
// descriptor generator's limits and with at least one input.
func (d *DeviceConfig) Validate() error {
	if d.AxisCount > MaxAxes || d.ButtonCount > MaxButtons {
		return ErrInvalidCounts
	}
	if d.AxisCount == 0 && d.ButtonCount == 0 {
		return ErrInvalidCounts
	}
	return nil
}

// InvertY reports whether the Y axis should be inverted.
func (d *DeviceConfig) InvertY() bool {
	return d.Flags&FlagInvertY != 0
}

// SetInvertY sets or clears the Y inversion flag.
func (d *DeviceConfig) SetInvertY(on bool) {
	if on {
		d.Flags |= FlagInvertY
	} else {
		d.Flags &^= FlagInvertY
	}
}

// MarshalBinary implements encoding.BinaryMarshaler for DeviceConfig.
func (d *DeviceConfig) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint16(buf[0:], d.Version)
	binary.LittleEndian.PutUint32(buf[2:], d.Flags)
	buf[6] = d.AxisCount
	buf[7] = d.ButtonCount
	binary.LittleEndian.PutUint32(buf[8:], d.Reserved)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for DeviceConfig.
func (d *DeviceConfig) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return ErrInvalidSize
	}

	d.Version = binary.LittleEndian.Uint16(data[0:])
	d.Flags = binary.LittleEndian.Uint32(data[2:])
	d.AxisCount = data[6]
	d.ButtonCount = data[7]
	d.Reserved = binary.LittleEndian.Uint32(data[8:])
	return nil
}
