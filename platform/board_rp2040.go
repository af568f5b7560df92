//go:build rp2040

package platform

import (
	"machine"
	"machine/usb/hid"
	"machine/usb/hid/keyboard"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/flash"
	"tinygo.org/x/drivers/shiftregister"

	"keypad-go/services/app"
	khid "keypad-go/services/hid"
	"keypad-go/services/usbd"
	"keypad-go/x/logx"
)

// Pin assignments (GP numbers).
const (
	pinRow1 = machine.GPIO5
	pinRow2 = machine.GPIO6
	pinCol1 = machine.GPIO7
	pinCol2 = machine.GPIO8
	pinCol3 = machine.GPIO9

	pin595Lat = machine.GPIO10
	pin595Clk = machine.GPIO11
	pin595Dat = machine.GPIO12

	pinFlashRX  = machine.GPIO16
	pinFlashCSn = machine.GPIO17
	pinFlashSCK = machine.GPIO18
	pinFlashTX  = machine.GPIO19

	pinLEDMount   = machine.GPIO22
	pinLEDCapture = machine.GPIO23

	pinLogTX = machine.GPIO0
	pinLogRX = machine.GPIO1
)

// TinyGo's composite HID descriptor puts the keyboard on report 2.
const kbdReportID = 2

// Board configures the RP2040 peripherals and returns the wiring for app.New.
func Board() app.Board {
	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       pinLogTX,
		RX:       pinLogRX,
	})
	logx.Output = uartx.UART0
	logx.Info("board", "rp2040 up")

	lines := newLines()

	sh := shiftregister.New(shiftregister.EIGHT_BITS, pin595Lat, pin595Clk, pin595Dat)
	sh.Configure()

	mount := newStatusPin(pinLEDMount)
	capture := newStatusPin(pinLEDCapture)

	usb := &usbd.State{}
	kbd := keyboard.Port() // registers the HID interface

	return app.Board{
		Rows:       Rows,
		Cols:       Cols,
		Lines:      lines,
		Port:       cdcPort{},
		HID:        hidSender{},
		USB:        usb,
		Flash:      newFlashBacking(),
		Shifter:    sh,
		MountLED:   mount,
		CaptureLED: capture,
		Layout:     Layout,
		Device:     device{},
		Clock:      newClock(),
		Poll: func() {
			usb.SetMounted(machine.USBDev.InitEndpointComplete)
			var ind uint8
			if kbd.NumLockLed() {
				ind |= khid.LEDNumLock
			}
			if kbd.CapsLockLed() {
				ind |= khid.LEDCapsLock
			}
			if kbd.ScrollLockLed() {
				ind |= khid.LEDScrollLock
			}
			usb.SetIndicators(ind)
		},
	}
}

// ---- key matrix ----

type lines struct {
	rows [Rows]machine.Pin
	cols [Cols]machine.Pin
}

func newLines() *lines {
	l := &lines{
		rows: [Rows]machine.Pin{pinRow1, pinRow2},
		cols: [Cols]machine.Pin{pinCol1, pinCol2, pinCol3},
	}
	for _, p := range l.rows {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}
	for _, p := range l.cols {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	}
	return l
}

func (l *lines) SetRow(row int, active bool) {
	if row < 0 || row >= Rows {
		return
	}
	l.rows[row].Set(active)
	settle()
}

func (l *lines) Column(col int) bool {
	if col < 0 || col >= Cols {
		return false
	}
	return l.cols[col].Get()
}

// settle lets a driven row line reach the column inputs.
func settle() {
	for i := 0; i < 16; i++ {
		_ = pinRow1.Get()
	}
}

// ---- status LEDs ----

type statusPin struct{ p machine.Pin }

func newStatusPin(p machine.Pin) statusPin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.High() // active-low: off
	return statusPin{p}
}

func (s statusPin) Set(level bool) { s.p.Set(level) }

// ---- USB CDC ----

type cdcPort struct{}

func (cdcPort) Receive(p []byte) int {
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n
}

func (cdcPort) Transmit(p []byte) int {
	n, _ := machine.Serial.Write(p)
	return n
}

// ---- USB HID ----

type hidSender struct{}

func (hidSender) SendReport(_ uint8, modifiers uint8, keycodes [khid.MaxKeycodes]uint8) {
	hid.SendUSBPacket([]byte{
		kbdReportID, modifiers, 0,
		keycodes[0], keycodes[1], keycodes[2], keycodes[3], keycodes[4], keycodes[5],
	})
}

// ---- configuration flash ----

type flashBacking struct{ dev *flash.Device }

func newFlashBacking() *flashBacking {
	return &flashBacking{
		dev: flash.NewSPI(machine.SPI0, pinFlashTX, pinFlashRX, pinFlashSCK, pinFlashCSn),
	}
}

func (f *flashBacking) Init() error {
	return f.dev.Configure(&flash.DeviceConfig{Identifier: flash.DefaultDeviceIdentifier})
}

func (f *flashBacking) ReadAt(p []byte, off int64) (int, error) { return f.dev.ReadAt(p, off) }

func (f *flashBacking) WriteAt(p []byte, off int64) (int, error) { return f.dev.WriteAt(p, off) }

func (f *flashBacking) EraseSector(off int64) error {
	return f.dev.EraseSector(uint32(off / flash.SectorSize))
}

// ---- device control ----

type device struct{}

func (device) Reboot() { machine.CPUReset() }

func (device) EnterBootloader() { machine.EnterBootloader() }

// ---- clock ----

type clock struct{ start time.Time }

func newClock() clock { return clock{start: time.Now()} }

func (c clock) Millis() uint32 { return uint32(time.Since(c.start).Milliseconds()) }
