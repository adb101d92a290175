package main

import (
	"bytes"
	"machine"
	"time"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/composite"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/config"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/display"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/djtable"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/joyport"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/joystick"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/protocol"
	"github.com/recordeca/tinygo-djtable-rp2040/pkg/storage"
	"github.com/recordeca/tinygo-djtable-rp2040/serial"
)

// Joystick button assignments. 0-8 are the physical buttons; 9-12 report
// platter motion as buttons for games that bind scratching digitally.
const (
	btnGreenLeft = iota
	btnRedLeft
	btnBlueLeft
	btnGreenRight
	btnRedRight
	btnBlueRight
	btnEuphoria
	btnMinus
	btnPlus
	btnLeftSpinCW
	btnLeftSpinCCW
	btnRightSpinCW
	btnRightSpinCCW
)

// Joystick axis assignments.
const (
	axStickX = joystick.AxisX
	axStickY = joystick.AxisY
	axSlider = joystick.AxisZ
	axDial   = joystick.AxisRx
	axLeft   = joystick.AxisRy
	axRight  = joystick.AxisRz
)

const (
	pollInterval      = 5 * time.Millisecond
	displayEveryPolls = 50
)

func main() {
	disp := display.NewManager()

	store, err := storage.New(machine.Flash, true)
	if err != nil {
		fatal(disp, "storage: "+err.Error())
	}

	cfg := loadConfig(store)

	// The descriptor must be in place before the host enumerates, and the
	// boot-info line must describe the descriptor that was just installed.
	composite.Install(int(cfg.AxisCount), int(cfg.ButtonCount))
	if err := store.WriteBootInfo(composite.BootInfoLine(int(cfg.AxisCount), int(cfg.ButtonCount))); err != nil {
		fatal(disp, "bootinfo: "+err.Error())
	}

	caps := loadCaps(disp, store)

	stick, err := joystick.New(caps, joyport.Open())
	if err != nil {
		fatal(disp, "joystick: "+err.Error())
	}

	console := serial.NewSerial(machine.Serial, protocol.NewHandler(store, stick), stick, store)
	go console.Handle()

	if err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 100000,
		SCL:       machine.GPIO1,
		SDA:       machine.GPIO0,
	}); err != nil {
		fatal(disp, "i2c: "+err.Error())
	}

	deck := djtable.New(machine.I2C0)
	for deck.Configure() != nil {
		// Extension not plugged in yet, keep probing
		time.Sleep(250 * time.Millisecond)
	}

	// Holding euphoria at power-up latches Y inversion for players who
	// mount the deck upside down, same effect as the persisted flag.
	invertY := cfg.InvertY()
	if deck.Update() == nil && deck.Buttons().Euphoria {
		invertY = true
	}

	if disp != nil {
		disp.ShowBoot(stick.AxisCount(), stick.ButtonCount())
	}

	polls := 0
	for {
		time.Sleep(pollInterval)

		if err := deck.Update(); err != nil {
			continue
		}

		buttons := deck.Buttons()
		left := deck.LeftTurntable()
		right := deck.RightTurntable()

		err := stick.UpdateButtons(true, false,
			joystick.ButtonUpdate{Button: btnGreenLeft, Pressed: buttons.GreenLeft},
			joystick.ButtonUpdate{Button: btnRedLeft, Pressed: buttons.RedLeft},
			joystick.ButtonUpdate{Button: btnBlueLeft, Pressed: buttons.BlueLeft},
			joystick.ButtonUpdate{Button: btnGreenRight, Pressed: buttons.GreenRight},
			joystick.ButtonUpdate{Button: btnRedRight, Pressed: buttons.RedRight},
			joystick.ButtonUpdate{Button: btnBlueRight, Pressed: buttons.BlueRight},
			joystick.ButtonUpdate{Button: btnEuphoria, Pressed: buttons.Euphoria},
			joystick.ButtonUpdate{Button: btnMinus, Pressed: buttons.Minus},
			joystick.ButtonUpdate{Button: btnPlus, Pressed: buttons.Plus},
			joystick.ButtonUpdate{Button: btnLeftSpinCW, Pressed: left > 0},
			joystick.ButtonUpdate{Button: btnLeftSpinCCW, Pressed: left < 0},
			joystick.ButtonUpdate{Button: btnRightSpinCW, Pressed: right > 0},
			joystick.ButtonUpdate{Button: btnRightSpinCCW, Pressed: right < 0},
		)
		if err == nil {
			// Final batch of the iteration runs the report cycle
			err = stick.UpdateAxes(false, false,
				joystick.AxisUpdate{Axis: axStickX, Value: djtable.ConvertRange(deck.StickX(), 0, 63)},
				joystick.AxisUpdate{Axis: axStickY, Value: djtable.ConvertY(deck.StickY(), invertY)},
				joystick.AxisUpdate{Axis: axSlider, Value: djtable.ConvertRange(deck.Slider(), 0, 15)},
				joystick.AxisUpdate{Axis: axDial, Value: djtable.ConvertRange(deck.Dial(), 0, 31)},
				joystick.AxisUpdate{Axis: axLeft, Value: djtable.ConvertTurntable(left)},
				joystick.AxisUpdate{Axis: axRight, Value: djtable.ConvertTurntable(right)},
			)
		}
		if err != nil && disp != nil {
			disp.ShowError(err.Error())
			continue
		}

		polls++
		if disp != nil && polls%displayEveryPolls == 0 {
			disp.ShowState(stick.LastReport(), stick.AxisCount())
		}
	}
}

// loadConfig returns the persisted device configuration, seeding the
// defaults on first boot so the PC app always finds a record.
func loadConfig(store *storage.Manager) config.DeviceConfig {
	var cfg config.DeviceConfig
	err := store.LoadDevice(&cfg)
	if err == nil && cfg.Validate() == nil {
		return cfg
	}

	cfg = config.Default()
	store.SaveDevice(&cfg)
	return cfg
}

// loadCaps parses the boot-info line written moments ago.
func loadCaps(disp *display.Manager, store *storage.Manager) *joystick.CapabilityConfig {
	info, err := store.ReadBootInfo()
	if err != nil {
		fatal(disp, "bootinfo: "+err.Error())
	}

	caps, err := joystick.ParseBootInfo(bytes.NewReader(info))
	if err != nil {
		fatal(disp, "bootinfo: "+err.Error())
	}

	return caps
}

// fatal shows the error and blinks the LED forever. Unrecoverable without a
// power cycle.
func fatal(disp *display.Manager, msg string) {
	if disp != nil {
		disp.ShowError(msg)
	}

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
