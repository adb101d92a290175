// Package joyport exposes the joystick HID endpoint as a transmit
// capability for the report engine. It owns no input state: the engine
// serializes, joyport frames the report with its report ID and puts it on
// the wire.
package joyport

import (
	"machine"
	"machine/usb/hid"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/composite"
)

// Port queues serialized joystick reports for USB transmission.
type Port struct {
	buf     *hid.RingBuffer
	waitTxc bool
}

// port is the singleton instance
var port *Port

// init registers the port with the HID subsystem so the USB interrupt can
// drain queued reports.
func init() {
	if port == nil {
		port = &Port{
			buf: hid.NewRingBuffer(),
		}
		hid.SetHandler(port)
	}
}

// Open returns the joystick port instance.
func Open() *Port {
	return port
}

// TxHandler is called by the USB interrupt when the endpoint is ready to
// transmit. This implements the hidDevicer interface.
func (p *Port) TxHandler() bool {
	p.waitTxc = false
	if b, ok := p.buf.Get(); ok {
		p.waitTxc = true
		hid.SendUSBPacket(b)
		return true
	}
	return false
}

// RxHandler handles output reports from the host.
// This implements the hidDevicer interface.
func (p *Port) RxHandler(b []byte) bool {
	// The joystick collection declares no output reports
	return false
}

// SendReport frames the serialized report with the joystick report ID and
// transmits it, queuing when the endpoint is busy. Implements
// joystick.Sender.
func (p *Port) SendReport(report []byte) error {
	packet := make([]byte, 0, len(report)+1)
	packet = append(packet, composite.JoystickReportID)
	packet = append(packet, report...)
	p.tx(packet)
	return nil
}

// tx sends a report packet, queuing if necessary.
func (p *Port) tx(b []byte) {
	if machine.USBDev.InitEndpointComplete {
		if p.waitTxc {
			// USB busy, queue for later
			p.buf.Put(b)
		} else {
			// Send immediately
			p.waitTxc = true
			hid.SendUSBPacket(b)
		}
	}
}
