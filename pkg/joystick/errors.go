package joystick

import "errors"

// Boot-info loader errors.
var (
	ErrNoBootInfo    = errors.New("joystick: no boot info line found")
	ErrBootInfoShort = errors.New("joystick: boot info line has fewer than 4 values")
	ErrZeroReportLen = errors.New("joystick: boot info reports a zero-length report")
)

// Construction errors.
var (
	ErrNoInputs = errors.New("joystick: no axes or buttons configured")
)

// Validation errors. These are always caller errors; input values are never
// silently clamped.
var (
	ErrNoAxes      = errors.New("joystick: no axes configured")
	ErrAxisIndex   = errors.New("joystick: axis index out of range")
	ErrAxisValue   = errors.New("joystick: axis value must be in range 0 to 255")
	ErrNoButtons   = errors.New("joystick: no buttons configured")
	ErrButtonIndex = errors.New("joystick: button index out of range")
)
