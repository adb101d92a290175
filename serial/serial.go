// Package serial runs the USB CDC configuration channel. Two framings share
// the port: a first byte of 0xAA starts a binary protocol frame for the PC
// app, anything else is collected into a text line for the debug console.
package serial

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/config"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/joystick"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/protocol"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/storage"
)

// Port is the byte-level serial connection. machine.Serial satisfies it.
type Port interface {
	ReadByte() (byte, error)
	Write(p []byte) (n int, err error)
}

type Serial struct {
	port     Port
	handler  *protocol.Handler
	stick    *joystick.Joystick
	store    *storage.Manager
	inIndex  int
	inBuffer [128]byte
}

func NewSerial(port Port, handler *protocol.Handler, stick *joystick.Joystick, store *storage.Manager) Serial {
	return Serial{
		port:    port,
		handler: handler,
		stick:   stick,
		store:   store,
	}
}

// Handle services the port forever. Run on its own goroutine.
func (s *Serial) Handle() {
	for {
		s.Poll()
	}
}

// Poll consumes at most one byte (or one whole binary frame) from the port.
// Returns false when no input was available.
func (s *Serial) Poll() bool {
	b, err := s.port.ReadByte()
	if err != nil {
		return false
	}

	if b == protocol.SyncByte && s.inIndex == 0 {
		s.handleFrame(b)
		return true
	}

	if b == '\n' {
		line := string(s.inBuffer[:s.inIndex])
		s.inIndex = 0
		s.handleLine(strings.TrimRight(line, "\r"))
		return true
	}

	if s.inIndex == len(s.inBuffer) {
		s.inIndex = 0
	}

	s.inBuffer[s.inIndex] = b
	s.inIndex++

	return true
}

// handleFrame reads the rest of a binary frame and writes the response.
func (s *Serial) handleFrame(sync byte) {
	frame, err := protocol.ReadFrame(io.MultiReader(
		bytes.NewReader([]byte{sync}),
		portReader{s.port},
	))
	if err != nil {
		protocol.WriteResponse(s.port, &protocol.Response{Status: protocol.StatusInvalidData})
		return
	}

	protocol.WriteResponse(s.port, s.handler.Handle(frame))
}

// handleLine tokenizes and dispatches one console command.
func (s *Serial) handleLine(line string) {
	fields, err := shlex.Split(line)
	if err != nil || len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "areyouadjtable?":
		s.write("yes")
	case "ping":
		s.write("pong")
	case "caps":
		s.write(fmt.Sprintf("axes %d buttons %d", s.stick.AxisCount(), s.stick.ButtonCount()))
	case "state":
		s.write(fmt.Sprintf("% x", s.stick.LastReport()))
	case "reset":
		if err := s.stick.ResetAll(); err != nil {
			s.write("err " + err.Error())
			return
		}
		s.write("ok")
	case "invert":
		s.handleInvert(fields[1:])
	case "version":
		s.write(fmt.Sprintf("fw %d.%d cfg %d", protocol.FirmwareMajor, protocol.FirmwareMinor, config.CurrentVersion))
	case "factory":
		if err := s.store.FactoryReset(); err != nil {
			s.write("err " + err.Error())
			return
		}
		s.write("ok reboot to apply")
	default:
		s.write("err unknown command")
	}
}

// handleInvert persists the Y-inversion flag. It is read once at boot, so
// the change applies on the next power cycle.
func (s *Serial) handleInvert(args []string) {
	if len(args) != 2 || args[0] != "y" || (args[1] != "on" && args[1] != "off") {
		s.write("err usage: invert y on|off")
		return
	}

	var cfg config.DeviceConfig
	if err := s.store.LoadDevice(&cfg); err != nil {
		if err != storage.ErrNotFound {
			s.write("err " + err.Error())
			return
		}
		cfg = config.Default()
	}
	cfg.SetInvertY(args[1] == "on")

	if err := s.store.SaveDevice(&cfg); err != nil {
		s.write("err " + err.Error())
		return
	}
	s.write("ok reboot to apply")
}

func (s *Serial) write(out string) {
	s.port.Write([]byte(out + "\n"))
}

// portReader adapts the byte port into an io.Reader that waits for the rest
// of an in-flight frame.
type portReader struct {
	port Port
}

func (r portReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for i := range p {
		for {
			b, err := r.port.ReadByte()
			if err == nil {
				p[i] = b
				break
			}
			if i > 0 {
				// Mid-frame, give the sender a moment
				time.Sleep(100 * time.Microsecond)
				continue
			}
			return i, err
		}
	}
	return len(p), nil
}
