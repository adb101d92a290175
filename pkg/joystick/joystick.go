// Package joystick implements the input-state-to-report engine for a
// generic USB HID joystick.
//
// The engine owns the live input state (one byte per axis, packed button
// bits), serializes it into a fixed-length report and sends it through an
// injected transmit capability. Reports are only transmitted when the
// serialized state differs from the last report that went out, which bounds
// outbound traffic to the rate of actual input change.
//
// Report layout: one unsigned byte per axis (0-255, 128 = center), followed
// by the button bits packed LSB-first, zero-padded to the configured report
// length.
package joystick

import (
	"bytes"
	"time"
)

// Axis value limits for USB HID reports.
const (
	AxisMin  = 0
	AxisMax  = 255
	AxisIdle = 128
)

// Standard axis index aliases.
const (
	AxisX  = 0
	AxisY  = 1
	AxisZ  = 2
	AxisRx = 3
	AxisRy = 4
	AxisRz = 5
	AxisS0 = 6
	AxisS1 = 7
)

// retryDelay is how long to wait before the single transmit retry during
// construction. The host may still be settling endpoint setup right after
// enumeration.
const retryDelay = time.Second

// Sender is the transmit capability: it accepts one serialized report and
// performs a single host-visible transmission. Failure handling and latency
// belong to the implementation, not the engine.
type Sender interface {
	SendReport(report []byte) error
}

// AxisUpdate pairs a 0-based axis index with a new value (0-255).
type AxisUpdate struct {
	Axis  int
	Value int
}

// ButtonUpdate pairs a 0-based button index with a pressed state.
type ButtonUpdate struct {
	Button  int
	Pressed bool
}

// Joystick is the report engine. It is driven synchronously by a single
// polling loop; no internal locking.
type Joystick struct {
	caps *CapabilityConfig
	out  Sender

	axisValues []byte
	buttonBits []byte
	report     []byte
	lastReport []byte
}

// New creates a report engine with all axes centered and all buttons
// released, then performs one forced transmission so the host immediately
// sees the idle state. If that first transmission fails it is retried once
// after a short delay; a second failure is fatal.
func New(caps *CapabilityConfig, out Sender) (*Joystick, error) {
	if caps.AxisCount == 0 && caps.ButtonCount == 0 {
		return nil, ErrNoInputs
	}

	j := &Joystick{
		caps:       caps,
		out:        out,
		axisValues: make([]byte, caps.AxisCount),
		buttonBits: make([]byte, caps.ButtonBytes()),
		report:     make([]byte, caps.ReportLength),
		lastReport: make([]byte, caps.ReportLength),
	}

	if err := j.ResetAll(); err != nil {
		time.Sleep(retryDelay)
		if err := j.ResetAll(); err != nil {
			return nil, err
		}
	}

	return j, nil
}

// AxisCount returns the number of configured axes.
func (j *Joystick) AxisCount() int {
	return j.caps.AxisCount
}

// ButtonCount returns the number of configured buttons.
func (j *Joystick) ButtonCount() int {
	return j.caps.ButtonCount
}

// ValidateAxis checks an axis index and value against the configured
// capabilities. It never mutates state.
func (j *Joystick) ValidateAxis(axis, value int) error {
	if j.caps.AxisCount == 0 {
		return ErrNoAxes
	}
	if axis < 0 || axis >= j.caps.AxisCount {
		return ErrAxisIndex
	}
	if value < AxisMin || value > AxisMax {
		return ErrAxisValue
	}
	return nil
}

// ValidateButton checks a button index against the configured capabilities.
// It never mutates state.
func (j *Joystick) ValidateButton(button int) error {
	if j.caps.ButtonCount == 0 {
		return ErrNoButtons
	}
	if button < 0 || button >= j.caps.ButtonCount {
		return ErrButtonIndex
	}
	return nil
}

// UpdateAxes applies one or more axis updates in the order given.
//
// Validation is fail-fast: the first invalid pair stops the call and earlier
// writes from the same call stay applied. There is no rollback. With
// skipValidation true the pairs are written unchecked; callers own the
// consequences.
//
// Devices with more than 7 axes store the extra slider axes in reverse wire
// order, so indices above 5 are remapped to slot AxisCount-index+5. Indices
// 0-5 are never remapped.
//
// Unless deferSend is true, a report cycle runs after the last pair: the
// state is serialized and transmitted if it differs from the last report
// sent. Transmit errors propagate to the caller.
func (j *Joystick) UpdateAxes(deferSend, skipValidation bool, updates ...AxisUpdate) error {
	for _, u := range updates {
		if !skipValidation {
			if err := j.ValidateAxis(u.Axis, u.Value); err != nil {
				return err
			}
		}
		slot := u.Axis
		if j.caps.AxisCount > 7 && slot > 5 {
			slot = j.caps.AxisCount - slot + 5 // reverse sequence for sliders
		}
		j.axisValues[slot] = byte(u.Value)
	}

	if deferSend {
		return nil
	}
	return j.send(false)
}

// UpdateButtons applies one or more button updates in the order given, with
// the same fail-fast, no-rollback and deferSend semantics as UpdateAxes.
// Button i lives in bit i%8 of packed byte i/8.
func (j *Joystick) UpdateButtons(deferSend, skipValidation bool, updates ...ButtonUpdate) error {
	for _, u := range updates {
		if !skipValidation {
			if err := j.ValidateButton(u.Button); err != nil {
				return err
			}
		}
		bank := u.Button / 8
		bit := u.Button % 8
		if u.Pressed {
			j.buttonBits[bank] |= 1 << bit
		} else {
			j.buttonBits[bank] &^= 1 << bit
		}
	}

	if deferSend {
		return nil
	}
	return j.send(false)
}

// Send runs a report cycle without changing any input state. Useful after a
// series of deferred updates.
func (j *Joystick) Send() error {
	return j.send(false)
}

// ResetAll returns every axis to center and releases every button, then
// transmits unconditionally, even if the report matches the last one sent.
// Called at construction and available for re-synchronization with the host.
func (j *Joystick) ResetAll() error {
	for i := range j.axisValues {
		j.axisValues[i] = AxisIdle
	}
	for i := range j.buttonBits {
		j.buttonBits[i] = 0
	}
	return j.send(true)
}

// LastReport returns a copy of the most recently transmitted report.
func (j *Joystick) LastReport() []byte {
	out := make([]byte, len(j.lastReport))
	copy(out, j.lastReport)
	return out
}

// send serializes the current state and transmits it if forced or changed.
func (j *Joystick) send(force bool) error {
	for i := range j.report {
		j.report[i] = 0
	}
	n := copy(j.report, j.axisValues)
	copy(j.report[n:], j.buttonBits)

	if !force && bytes.Equal(j.report, j.lastReport) {
		return nil
	}
	if err := j.out.SendReport(j.report); err != nil {
		return err
	}
	copy(j.lastReport, j.report)
	return nil
}
