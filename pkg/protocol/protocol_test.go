package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/config"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/joystick"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/storage"

	"tinygo.org/x/tinyfs"
)

type nullSender struct{}

func (nullSender) SendReport([]byte) error { return nil }

func newTestHandler(t *testing.T) (*Handler, *storage.Manager, *joystick.Joystick) {
	t.Helper()

	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)
	mgr, err := storage.New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	caps := &joystick.CapabilityConfig{AxisCount: 6, ButtonCount: 13, ReportLength: 8}
	stick, err := joystick.New(caps, nullSender{})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	return NewHandler(mgr, stick), mgr, stick
}

func TestFrameEncodingDecoding(t *testing.T) {
	original := &Frame{
		Cmd:     CmdGetDeviceConfig,
		Payload: []byte{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, original); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	decoded, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if decoded.Cmd != original.Cmd {
		t.Errorf("Cmd: expected 0x%x, got 0x%x", original.Cmd, decoded.Cmd)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("Payload: expected %v, got %v", original.Payload, decoded.Payload)
	}
}

func TestReadFrameBadSync(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{0x55, 0, 0, 0, 0, 0})); err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadFrameBadCRC(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &Frame{Cmd: CmdPing, Payload: []byte{1}}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	// Corrupt the last CRC byte.
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF

	if _, err := ReadFrame(bytes.NewReader(raw)); err != ErrCRCMismatch {
		t.Errorf("Expected ErrCRCMismatch, got %v", err)
	}
}

func TestPingCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdPing, Payload: []byte{0xAA, 0xBB, 0xCC}})
	if resp.Status != StatusOK {
		t.Fatalf("Status: expected OK, got 0x%x", resp.Status)
	}
	if !bytes.Equal(resp.Payload, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Payload not echoed: got %v", resp.Payload)
	}
}

func TestUnknownCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: 0xEE})
	if resp.Status != StatusInvalidCmd {
		t.Errorf("Status: expected InvalidCmd, got 0x%x", resp.Status)
	}
}

func TestGetSetDeviceConfig(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	// Nothing stored yet.
	resp := handler.Handle(&Frame{Cmd: CmdGetDeviceConfig})
	if resp.Status != StatusNotFound {
		t.Fatalf("Status: expected NotFound, got 0x%x", resp.Status)
	}

	// Store a config.
	cfg := config.Default()
	cfg.SetInvertY(true)
	payload, err := cfg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	resp = handler.Handle(&Frame{Cmd: CmdSetDeviceConfig, Payload: payload})
	if resp.Status != StatusOK {
		t.Fatalf("Set status: expected OK, got 0x%x", resp.Status)
	}

	// Read it back.
	resp = handler.Handle(&Frame{Cmd: CmdGetDeviceConfig})
	if resp.Status != StatusOK {
		t.Fatalf("Get status: expected OK, got 0x%x", resp.Status)
	}
	var loaded config.DeviceConfig
	if err := loaded.UnmarshalBinary(resp.Payload); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if !loaded.InvertY() {
		t.Error("InvertY flag lost")
	}
	if loaded.AxisCount != 6 || loaded.ButtonCount != 13 {
		t.Errorf("Counts: got %d/%d", loaded.AxisCount, loaded.ButtonCount)
	}
}

func TestSetDeviceConfigRejectsBadData(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	// Wrong size.
	resp := handler.Handle(&Frame{Cmd: CmdSetDeviceConfig, Payload: []byte{1, 2, 3}})
	if resp.Status != StatusInvalidData {
		t.Errorf("Short payload: expected InvalidData, got 0x%x", resp.Status)
	}

	// Structurally valid but zero inputs.
	cfg := config.DeviceConfig{Version: config.CurrentVersion}
	payload, _ := cfg.MarshalBinary()
	resp = handler.Handle(&Frame{Cmd: CmdSetDeviceConfig, Payload: payload})
	if resp.Status != StatusInvalidData {
		t.Errorf("Zero inputs: expected InvalidData, got 0x%x", resp.Status)
	}
}

func TestGetBootInfo(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetBootInfo})
	if resp.Status != StatusNotFound {
		t.Fatalf("Status: expected NotFound, got 0x%x", resp.Status)
	}

	if err := mgr.WriteBootInfo("JoystickXL 6 13 0 8"); err != nil {
		t.Fatalf("WriteBootInfo failed: %v", err)
	}

	resp = handler.Handle(&Frame{Cmd: CmdGetBootInfo})
	if resp.Status != StatusOK {
		t.Fatalf("Status: expected OK, got 0x%x", resp.Status)
	}
	if !bytes.Contains(resp.Payload, []byte("JoystickXL")) {
		t.Errorf("Payload missing marker: %q", resp.Payload)
	}
}

func TestGetInputState(t *testing.T) {
	handler, mgr, stick := newTestHandler(t)
	defer mgr.Close()

	if err := stick.UpdateAxes(false, false, joystick.AxisUpdate{Axis: 0, Value: 200}); err != nil {
		t.Fatalf("UpdateAxes failed: %v", err)
	}

	resp := handler.Handle(&Frame{Cmd: CmdGetInputState})
	if resp.Status != StatusOK {
		t.Fatalf("Status: expected OK, got 0x%x", resp.Status)
	}
	if len(resp.Payload) != 8 {
		t.Fatalf("Expected 8 byte report, got %d", len(resp.Payload))
	}
	if resp.Payload[0] != 200 {
		t.Errorf("Axis 0: expected 200, got %d", resp.Payload[0])
	}
}

func TestResetInputs(t *testing.T) {
	handler, mgr, stick := newTestHandler(t)
	defer mgr.Close()

	if err := stick.UpdateButtons(false, false, joystick.ButtonUpdate{Button: 0, Pressed: true}); err != nil {
		t.Fatalf("UpdateButtons failed: %v", err)
	}

	resp := handler.Handle(&Frame{Cmd: CmdResetInputs})
	if resp.Status != StatusOK {
		t.Fatalf("Status: expected OK, got 0x%x", resp.Status)
	}

	report := stick.LastReport()
	if report[6] != 0 || report[7] != 0 {
		t.Errorf("Buttons not cleared: %v", report)
	}
}

func TestFactoryResetCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	cfg := config.Default()
	if err := mgr.SaveDevice(&cfg); err != nil {
		t.Fatalf("SaveDevice failed: %v", err)
	}

	resp := handler.Handle(&Frame{Cmd: CmdFactoryReset})
	if resp.Status != StatusOK {
		t.Fatalf("Status: expected OK, got 0x%x", resp.Status)
	}

	resp = handler.Handle(&Frame{Cmd: CmdGetDeviceConfig})
	if resp.Status != StatusNotFound {
		t.Errorf("Expected NotFound after factory reset, got 0x%x", resp.Status)
	}
}

func TestGetVersion(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetVersion})
	if resp.Status != StatusOK {
		t.Fatalf("Status: expected OK, got 0x%x", resp.Status)
	}
	if len(resp.Payload) != 4 {
		t.Fatalf("Expected 4 byte payload, got %d", len(resp.Payload))
	}
	if resp.Payload[0] != FirmwareMajor || resp.Payload[1] != FirmwareMinor {
		t.Errorf("Firmware version: got %d.%d", resp.Payload[0], resp.Payload[1])
	}
	if got := binary.LittleEndian.Uint16(resp.Payload[2:]); got != config.CurrentVersion {
		t.Errorf("Config version: expected %d, got %d", config.CurrentVersion, got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, &Response{Status: StatusOK, Payload: []byte{9, 8, 7}}); err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}

	// A response decodes with the same frame reader; Cmd carries the status.
	decoded, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if decoded.Cmd != StatusOK {
		t.Errorf("Status byte: expected 0x%x, got 0x%x", StatusOK, decoded.Cmd)
	}
	if !bytes.Equal(decoded.Payload, []byte{9, 8, 7}) {
		t.Errorf("Payload: got %v", decoded.Payload)
	}
}
