// Package app ties the keypad together: it owns the key matrix, the protocol
// channel, the HID reporter, persistence and the LED panel, and runs the
// primary and secondary core loops over them.
package app

import (
	"keypad-go/keyboard"
	"keypad-go/protocol"
	"keypad-go/services/heartbeat"
	"keypad-go/services/hid"
	"keypad-go/services/leds"
	"keypad-go/services/serial"
	"keypad-go/services/store"
	"keypad-go/services/usbd"
	"keypad-go/timer"
	"keypad-go/types"
	"keypad-go/x/logx"
	"keypad-go/x/mathx"
)

// Clock is the millisecond tick source.
type Clock interface {
	Millis() uint32
}

// Device resets the chip.
type Device interface {
	Reboot()
	EnterBootloader()
}

// Board lists the hardware collaborators and board wiring.
type Board struct {
	Rows, Cols int
	Lines      keyboard.Lines
	Port       serial.Port
	HID        hid.Sender
	USB        usbd.Signals
	Flash      store.Backing
	Shifter    leds.Shifter
	MountLED   leds.Pin
	CaptureLED leds.Pin
	Layout     leds.Layout
	Device     Device
	Clock      Clock

	// Defaults is the factory keymap. Nil selects DefaultKeymap.
	Defaults []types.KeyConfig
	// Poll services the USB stack once per primary iteration. Optional.
	Poll func()
}

const (
	timerSlots     = 8
	splashDuration = 300
	blinkPeriod    = 100
)

// App is shared by both cores. The primary core owns everything except the
// timer list and the panel, which belong to the secondary core once the
// handoff has completed.
type App struct {
	matrix   *keyboard.Matrix
	ch       *serial.Channel
	rep      *hid.Reporter
	store    *store.Store
	usb      usbd.Signals
	dev      Device
	clock    Clock
	poll     func()
	defaults []types.KeyConfig

	layout leds.Layout
	lit    leds.State
	beat   heartbeat.Beat

	in, out    protocol.Message
	scratch    [protocol.MaxData]byte
	levels     [protocol.MaxData]byte
	lastLevels [protocol.MaxData]byte

	// Secondary core.
	timers    *timer.List
	panel     *leds.Panel
	lastTick  uint32
	ticked    bool
	splash    timer.Timer
	blink     timer.Timer
	blinkHigh bool
}

// New assembles an App from a board description. Nothing touches the
// hardware until Boot.
func New(b Board) *App {
	m := keyboard.New(b.Rows, b.Cols, b.Lines)
	defaults := b.Defaults
	if defaults == nil {
		defaults = DefaultKeymap(m.Len())
	}
	return &App{
		matrix:   m,
		ch:       serial.New(b.Port),
		rep:      hid.NewReporter(b.HID),
		store:    store.New(b.Flash, m.Len()),
		usb:      b.USB,
		dev:      b.Device,
		clock:    b.Clock,
		poll:     b.Poll,
		defaults: defaults,
		layout:   b.Layout,
		timers:   timer.New(timerSlots),
		panel:    leds.NewPanel(b.Shifter, b.MountLED, b.CaptureLED),
	}
}

// Matrix exposes the key matrix (read by tests and the simulator).
func (a *App) Matrix() *keyboard.Matrix { return a.matrix }

// Blocked reports whether capture mode is on.
func (a *App) Blocked() bool { return a.rep.Blocked() }

// Boot initialises and loads the persisted configuration, then starts the
// boot splash. A non-nil error is fatal; pass it to Halt.
func (a *App) Boot() error {
	now := a.clock.Millis()
	if err := a.store.Init(); err != nil {
		return err
	}
	defaulted, err := a.store.Load(now, a.matrix, a.defaults)
	if err != nil {
		return err
	}
	logx.Info("app", "config loaded", "keys", a.matrix.Len(), "defaulted", defaulted)

	a.startSplash(now)
	return nil
}

func (a *App) keyLEDMask() uint32 {
	var mask uint32
	for _, bit := range a.layout.KeyLEDs {
		mask |= 1 << bit
	}
	return mask
}

// Sync writes a pending configuration save now. Only call it while no core
// loop is running.
func (a *App) Sync() error { return a.store.Sync(a.matrix) }

// startSplash lights every key LED until a one-shot timer releases them.
func (a *App) startSplash(now uint32) {
	mask := a.keyLEDMask()
	a.panel.Override(mask, mask)
	a.splash = timer.Timer{
		Kind:     timer.OneShot,
		Base:     now,
		Duration: splashDuration,
		Cleanup: func(*timer.Timer) {
			a.panel.Release(mask)
		},
	}
	if !a.timers.Schedule(&a.splash) {
		a.panel.Release(mask)
	}
}

// DefaultKeymap is the factory configuration: digits 0..5 on keys 0..5,
// no modifiers, control mode None and key_id equal to the index.
func DefaultKeymap(n int) []types.KeyConfig {
	digits := [...]uint8{hid.Key0, hid.Key1, hid.Key2, hid.Key3, hid.Key4, hid.Key5}
	out := make([]types.KeyConfig, mathx.Max(n, 0))
	for i := range out {
		out[i] = types.KeyConfig{Mode: types.ModeNone, ID: uint8(i)}
		if i < len(digits) {
			out[i].Keycode = digits[i]
		}
	}
	return out
}
