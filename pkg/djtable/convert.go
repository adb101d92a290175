package djtable

import "math"

// Joystick axis output range.
const (
	outputStart = 0
	outputEnd   = 255
)

// ConvertRange maps a sensor reading from [start, end] onto the joystick
// axis range [0, 255]. No clamping: readings outside the stated range map
// outside the axis range and the report engine rejects them.
func ConvertRange(value, start, end int) int {
	a := float64(value - start)
	b := float64(end - start)
	c := float64(outputEnd - outputStart)
	return int(math.Round(a/b*c + outputStart))
}

// ConvertTurntable maps a platter velocity onto the axis range. Negative
// readings are folded so that the full sweep from fast-counterclockwise to
// fast-clockwise is monotonic on the axis.
func ConvertTurntable(value int) int {
	if value < 0 {
		value = -(value + 32)
	}
	return ConvertRange(value, -31, 31)
}

// ConvertY maps the stick Y reading (0-63) onto the axis range. The HID Y
// axis grows downward, so the reading is flipped unless invert is set.
func ConvertY(value int, invert bool) int {
	if invert {
		return ConvertRange(value, 0, 63)
	}
	return -ConvertRange(63-value, 0, -63)
}
