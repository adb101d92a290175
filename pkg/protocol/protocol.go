// Package protocol implements a binary serial protocol for PC app communication.
// The protocol is designed to be simple, efficient, and suitable for TinyGo.
//
// Frame format:
//
//	[SYNC:1][CMD:1][LEN:2][PAYLOAD:LEN][CRC:2]
//	- SYNC: 0xAA (frame start marker)
//	- CMD: Command byte
//	- LEN: Payload length (uint16, little-endian)
//	- PAYLOAD: Variable length data
//	- CRC: CRC16-CCITT of [CMD][LEN][PAYLOAD]
//
// Response format is identical.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/config"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/joystick"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/storage"
)

const (
	SyncByte = 0xAA

	// Command codes (PC → Device)
	CmdPing            = 0x01
	CmdGetDeviceConfig = 0x02
	CmdSetDeviceConfig = 0x03
	CmdGetBootInfo     = 0x04
	CmdGetInputState   = 0x05
	CmdResetInputs     = 0x06
	CmdFactoryReset    = 0x07
	CmdGetVersion      = 0x10

	// Response status codes (Device → PC)
	StatusOK          = 0x00
	StatusError       = 0x01
	StatusInvalidCmd  = 0x02
	StatusInvalidData = 0x03
	StatusNotFound    = 0x04
)

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrCRCMismatch  = errors.New("CRC mismatch")
)

// Handler processes protocol commands against the storage manager and the
// live report engine.
type Handler struct {
	storage *storage.Manager
	stick   *joystick.Joystick
}

// NewHandler creates a new protocol handler. stick may be nil when the
// engine failed to come up; input-state commands then report StatusError.
func NewHandler(sm *storage.Manager, stick *joystick.Joystick) *Handler {
	return &Handler{
		storage: sm,
		stick:   stick,
	}
}

// Frame represents a protocol frame.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// Response represents a protocol response.
type Response struct {
	Status  uint8
	Payload []byte
}

// ReadFrame reads and validates a frame from the reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	// Read sync byte
	sync := make([]byte, 1)
	if _, err := io.ReadFull(r, sync); err != nil {
		return nil, err
	}
	if sync[0] != SyncByte {
		return nil, ErrInvalidFrame
	}

	// Read header (cmd + len)
	header := make([]byte, 3)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	cmd := header[0]
	length := binary.LittleEndian.Uint16(header[1:])

	// Sanity check on length
	if length > 4096 {
		return nil, ErrInvalidFrame
	}

	// Read payload
	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	// Read CRC
	crcBytes := make([]byte, 2)
	if _, err := io.ReadFull(r, crcBytes); err != nil {
		return nil, err
	}
	receivedCRC := binary.LittleEndian.Uint16(crcBytes)

	// Verify CRC
	calculatedCRC := calcCRC(append(header, payload...))
	if receivedCRC != calculatedCRC {
		return nil, ErrCRCMismatch
	}

	return &Frame{
		Cmd:     cmd,
		Payload: payload,
	}, nil
}

// WriteResponse writes a response frame to the writer.
func WriteResponse(w io.Writer, resp *Response) error {
	return writeRaw(w, resp.Status, resp.Payload)
}

// WriteFrame writes a request frame (for testing/PC side).
func WriteFrame(w io.Writer, frame *Frame) error {
	return writeRaw(w, frame.Cmd, frame.Payload)
}

// writeRaw assembles [SYNC][head][LEN][PAYLOAD][CRC] and writes it out.
func writeRaw(w io.Writer, head uint8, payload []byte) error {
	payloadLen := uint16(len(payload))
	frameLen := 1 + 1 + 2 + int(payloadLen) + 2 // sync + head + len + payload + crc

	buf := make([]byte, 0, frameLen)
	buf = append(buf, SyncByte, head)

	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, payloadLen)
	buf = append(buf, lenBytes...)
	buf = append(buf, payload...)

	// CRC covers everything after the sync byte
	crc := calcCRC(buf[1:])
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	buf = append(buf, crcBytes...)

	_, err := w.Write(buf)
	return err
}

// Handle processes a command frame and returns a response.
func (h *Handler) Handle(frame *Frame) *Response {
	switch frame.Cmd {
	case CmdPing:
		return h.handlePing(frame.Payload)
	case CmdGetDeviceConfig:
		return h.handleGetDeviceConfig()
	case CmdSetDeviceConfig:
		return h.handleSetDeviceConfig(frame.Payload)
	case CmdGetBootInfo:
		return h.handleGetBootInfo()
	case CmdGetInputState:
		return h.handleGetInputState()
	case CmdResetInputs:
		return h.handleResetInputs()
	case CmdFactoryReset:
		return h.handleFactoryReset()
	case CmdGetVersion:
		return h.handleGetVersion()
	default:
		return &Response{Status: StatusInvalidCmd}
	}
}

// handlePing responds with the same payload (echo).
func (h *Handler) handlePing(payload []byte) *Response {
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleGetDeviceConfig returns the persisted device configuration.
func (h *Handler) handleGetDeviceConfig() *Response {
	var cfg config.DeviceConfig
	if err := h.storage.LoadDevice(&cfg); err != nil {
		if err == storage.ErrNotFound {
			return &Response{Status: StatusNotFound}
		}
		return &Response{Status: StatusError}
	}

	data, err := cfg.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}

	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleSetDeviceConfig persists a new device configuration. The axis and
// button counts feed descriptor generation, so they apply on the next boot.
// Payload: [DeviceConfig:12 bytes]
func (h *Handler) handleSetDeviceConfig(payload []byte) *Response {
	if len(payload) != config.Size {
		return &Response{Status: StatusInvalidData}
	}

	var cfg config.DeviceConfig
	if err := cfg.UnmarshalBinary(payload); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	if err := cfg.Validate(); err != nil {
		return &Response{Status: StatusInvalidData}
	}

	if err := h.storage.SaveDevice(&cfg); err != nil {
		return &Response{Status: StatusError}
	}

	return &Response{Status: StatusOK}
}

// handleGetBootInfo returns the persisted boot-info line.
func (h *Handler) handleGetBootInfo() *Response {
	data, err := h.storage.ReadBootInfo()
	if err != nil {
		if err == storage.ErrNotFound {
			return &Response{Status: StatusNotFound}
		}
		return &Response{Status: StatusError}
	}

	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleGetInputState returns the last report the engine transmitted.
func (h *Handler) handleGetInputState() *Response {
	if h.stick == nil {
		return &Response{Status: StatusError}
	}
	return &Response{
		Status:  StatusOK,
		Payload: h.stick.LastReport(),
	}
}

// handleResetInputs centers all axes and releases all buttons, forcing a
// transmission so the host re-synchronizes.
func (h *Handler) handleResetInputs() *Response {
	if h.stick == nil {
		return &Response{Status: StatusError}
	}
	if err := h.stick.ResetAll(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleFactoryReset wipes all configuration.
func (h *Handler) handleFactoryReset() *Response {
	if err := h.storage.FactoryReset(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleGetVersion returns firmware and config version info.
// Response: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][ConfigVersion:2]
func (h *Handler) handleGetVersion() *Response {
	payload := make([]byte, 4)
	payload[0] = FirmwareMajor
	payload[1] = FirmwareMinor
	binary.LittleEndian.PutUint16(payload[2:], config.CurrentVersion)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// Firmware version reported by CmdGetVersion.
const (
	FirmwareMajor = 0
	FirmwareMinor = 2
)

// calcCRC calculates CRC16-CCITT.
// Polynomial: 0x1021, Initial: 0xFFFF
func calcCRC(data []byte) uint16 {
	var crc uint16 = 0xFFFF

	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
