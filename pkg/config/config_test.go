package config

import (
	"testing"
)

func TestDeviceConfigMarshalUnmarshal(t *testing.T) {
	original := DeviceConfig{
		Version:     1,
		Flags:       FlagInvertY | 0x100,
		AxisCount:   6,
		ButtonCount: 13,
		Reserved:    0xABCD,
	}

	// Marshal
	data, err := original.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	if len(data) != Size {
		t.Errorf("Expected %d bytes, got %d", Size, len(data))
	}

	// Unmarshal
	var decoded DeviceConfig
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}

	// Verify
	if decoded.Version != original.Version {
		t.Errorf("Version: expected %d, got %d", original.Version, decoded.Version)
	}
	if decoded.Flags != original.Flags {
		t.Errorf("Flags: expected 0x%x, got 0x%x", original.Flags, decoded.Flags)
	}
	if decoded.AxisCount != original.AxisCount {
		t.Errorf("AxisCount: expected %d, got %d", original.AxisCount, decoded.AxisCount)
	}
	if decoded.ButtonCount != original.ButtonCount {
		t.Errorf("ButtonCount: expected %d, got %d", original.ButtonCount, decoded.ButtonCount)
	}
	if decoded.Reserved != original.Reserved {
		t.Errorf("Reserved: expected 0x%x, got 0x%x", original.Reserved, decoded.Reserved)
	}
}

func TestUnmarshalTooShort(t *testing.T) {
	var cfg DeviceConfig
	if err := cfg.UnmarshalBinary(make([]byte, Size-1)); err != ErrInvalidSize {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Version != CurrentVersion {
		t.Errorf("Version: expected %d, got %d", CurrentVersion, cfg.Version)
	}
	if cfg.AxisCount != 6 {
		t.Errorf("AxisCount: expected 6, got %d", cfg.AxisCount)
	}
	if cfg.ButtonCount != 13 {
		t.Errorf("ButtonCount: expected 13, got %d", cfg.ButtonCount)
	}
	if cfg.InvertY() {
		t.Error("InvertY should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		axes    uint8
		buttons uint8
		ok      bool
	}{
		{"stock", 6, 13, true},
		{"axes only", 8, 0, true},
		{"buttons only", 0, 64, true},
		{"no inputs", 0, 0, false},
		{"too many axes", 9, 0, false},
		{"too many buttons", 0, 65, false},
	}
	for _, c := range cases {
		cfg := DeviceConfig{AxisCount: c.axes, ButtonCount: c.buttons}
		err := cfg.Validate()
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err != ErrInvalidCounts {
			t.Errorf("%s: expected ErrInvalidCounts, got %v", c.name, err)
		}
	}
}

func TestInvertYFlag(t *testing.T) {
	var cfg DeviceConfig
	cfg.SetInvertY(true)
	if !cfg.InvertY() {
		t.Error("InvertY should be set")
	}
	if cfg.Flags != FlagInvertY {
		t.Errorf("Flags: expected 0x%x, got 0x%x", FlagInvertY, cfg.Flags)
	}
	cfg.SetInvertY(false)
	if cfg.InvertY() {
		t.Error("InvertY should be cleared")
	}
}
