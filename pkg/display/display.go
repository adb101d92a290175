//go:build !nodebug

// Package display provides SSD1306 OLED status output. It shows the
// configured capabilities at boot and the live input report while running.
//
// To build without display support (saves ~1KB RAM and flash), use:
//
//	tinygo build -tags=nodebug -target=pico -o firmware.uf2 .
package display

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
)

const (
	// I2C configuration. The DJ-table extension owns I2C0, the display
	// hangs off I2C1.
	i2cAddress = 0x3C
	sclPin     = machine.GPIO3
	sdaPin     = machine.GPIO2

	screenWidth  = 128
	screenHeight = 64
	lineHeight   = 8
	maxLineChars = 31
)

var white = color.RGBA{255, 255, 255, 255}

// Manager handles the SSD1306 status display.
type Manager struct {
	device ssd1306.Device
}

// NewManager creates and initializes the display manager.
// Returns nil if display initialization fails (non-fatal, status only).
func NewManager() *Manager {
	i2c := machine.I2C1
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400000, // 400kHz fast mode
		SCL:       sclPin,
		SDA:       sdaPin,
	}); err != nil {
		return nil
	}

	// Small delay for bus stabilization
	time.Sleep(10 * time.Millisecond)

	dev := ssd1306.NewI2C(i2c)
	dev.Configure(ssd1306.Config{
		Address: i2cAddress,
		Width:   screenWidth,
		Height:  screenHeight,
	})
	dev.ClearDisplay()

	mgr := &Manager{device: dev}
	mgr.drawLines([]string{"DJ table", "starting..."})

	return mgr
}

// ShowBoot displays the configured capabilities.
func (m *Manager) ShowBoot(axes, buttons int) {
	m.drawLines(BootRows(axes, buttons))
}

// ShowState displays the most recent input report.
func (m *Manager) ShowState(report []byte, axisCount int) {
	m.drawLines(StateRows(report, axisCount))
}

// ShowError displays an error message.
func (m *Manager) ShowError(msg string) {
	m.drawLines([]string{"ERR", truncate(msg, maxLineChars)})
}

// drawLines clears the screen and renders one string per row.
func (m *Manager) drawLines(lines []string) {
	m.device.ClearBuffer()
	for i, line := range lines {
		y := int16(lineHeight*(i+1) - 2)
		tinyfont.WriteLine(&m.device, &tinyfont.TomThumb, 0, y, truncate(line, maxLineChars), white)
	}
	m.device.Display()
}
