//go:build !rp2040

package platform

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"keypad-go/services/app"
	"keypad-go/services/hid"
	"keypad-go/services/usbd"
	"keypad-go/x/logx"
)

// Sim is an in-process keypad: every collaborator is a fake that tests and
// the host configurator can drive and inspect.
type Sim struct {
	Keys       *SimMatrix
	Serial     *Pipe
	HID        *HIDLog
	USB        *usbd.State
	Flash      *MemFlash
	LEDs       *ShiftLog
	MountLED   *PinState
	CaptureLED *PinState
	Device     *DeviceLog
	Clock      app.Clock
}

// NewSim builds a simulator around clock. A nil clock uses wall time.
func NewSim(clock app.Clock) *Sim {
	if clock == nil {
		clock = NewWallClock()
	}
	return &Sim{
		Keys:       &SimMatrix{},
		Serial:     NewPipe(),
		HID:        &HIDLog{},
		USB:        &usbd.State{},
		Flash:      NewMemFlash(FlashSector),
		LEDs:       &ShiftLog{},
		MountLED:   &PinState{},
		CaptureLED: &PinState{},
		Device:     &DeviceLog{},
		Clock:      clock,
	}
}

// Board wires the simulator into an app.Board.
func (s *Sim) Board() app.Board {
	return app.Board{
		Rows:       Rows,
		Cols:       Cols,
		Lines:      s.Keys,
		Port:       s.Serial,
		HID:        s.HID,
		USB:        s.USB,
		Flash:      s.Flash,
		Shifter:    s.LEDs,
		MountLED:   s.MountLED,
		CaptureLED: s.CaptureLED,
		Layout:     Layout,
		Device:     s.Device,
		Clock:      s.Clock,
	}
}

// Board returns a simulated board with logging on stderr.
func Board() app.Board {
	logx.Output = os.Stderr
	return NewSim(nil).Board()
}

// ----------------------------- key matrix ------------------------------------

// SimMatrix implements keyboard.Lines over a set of pressed switches.
type SimMatrix struct {
	mu   sync.Mutex
	down [Rows][Cols]bool
	row  int
	set  bool
}

// Press closes switch id (row*Cols + col).
func (m *SimMatrix) Press(id int) { m.put(id, true) }

// Release opens switch id.
func (m *SimMatrix) Release(id int) { m.put(id, false) }

func (m *SimMatrix) put(id int, v bool) {
	if id < 0 || id >= Rows*Cols {
		return
	}
	m.mu.Lock()
	m.down[id/Cols][id%Cols] = v
	m.mu.Unlock()
}

func (m *SimMatrix) SetRow(row int, active bool) {
	m.mu.Lock()
	m.row, m.set = row, active
	m.mu.Unlock()
}

func (m *SimMatrix) Column(col int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set || m.row < 0 || m.row >= Rows || col < 0 || col >= Cols {
		return false
	}
	return m.down[m.row][col]
}

// ----------------------------- serial ----------------------------------------

// Pipe connects the device's serial port to a host-side io.ReadWriter.
type Pipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	toDev  []byte
	toHost []byte
	closed bool

	// Accept bounds one Transmit call; 0 means unlimited.
	Accept int
}

func NewPipe() *Pipe {
	p := &Pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Receive is the device side read.
func (p *Pipe) Receive(b []byte) int {
	p.mu.Lock()
	n := copy(b, p.toDev)
	p.toDev = p.toDev[n:]
	p.mu.Unlock()
	return n
}

// Transmit is the device side write.
func (p *Pipe) Transmit(b []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	if p.Accept > 0 && len(b) > p.Accept {
		b = b[:p.Accept]
	}
	p.toHost = append(p.toHost, b...)
	p.cond.Broadcast()
	return len(b)
}

// Write queues bytes for the device.
func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.toDev = append(p.toDev, b...)
	return len(b), nil
}

// Read blocks until the device has sent something or the pipe is closed.
func (p *Pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.toHost) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.toHost) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.toHost)
	p.toHost = p.toHost[n:]
	return n, nil
}

// Drain returns and clears everything the device has sent so far.
func (p *Pipe) Drain() []byte {
	p.mu.Lock()
	out := p.toHost
	p.toHost = nil
	p.mu.Unlock()
	return out
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	return nil
}

// ----------------------------- HID -------------------------------------------

// HIDReport is one recorded keyboard report.
type HIDReport struct {
	ID        uint8
	Modifiers uint8
	Keycodes  [hid.MaxKeycodes]uint8
}

// HIDLog records keyboard reports.
type HIDLog struct {
	mu      sync.Mutex
	reports []HIDReport
}

func (h *HIDLog) SendReport(id, mods uint8, keys [hid.MaxKeycodes]uint8) {
	h.mu.Lock()
	h.reports = append(h.reports, HIDReport{id, mods, keys})
	h.mu.Unlock()
}

// Reports returns a copy of everything sent.
func (h *HIDLog) Reports() []HIDReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HIDReport(nil), h.reports...)
}

// ----------------------------- flash -----------------------------------------

// MemFlash behaves like NOR flash: erased bytes read 0xFF and writes can only
// clear bits.
type MemFlash struct {
	mu   sync.Mutex
	data []byte

	InitErr error
	ReadErr error

	erases int
	writes int
}

func NewMemFlash(size int) *MemFlash {
	f := &MemFlash{data: make([]byte, size)}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *MemFlash) Init() error { return f.InitErr }

func (f *MemFlash) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return 0, f.ReadErr
	}
	if off < 0 || off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	return copy(p, f.data[off:]), nil
}

func (f *MemFlash) EraseSector(off int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := off - off%FlashSector
	for i := start; i < start+FlashSector && i < int64(len(f.data)); i++ {
		f.data[i] = 0xFF
	}
	f.erases++
	return nil
}

func (f *MemFlash) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(f.data)) {
		return 0, io.ErrShortWrite
	}
	for i, b := range p {
		f.data[off+int64(i)] &= b
	}
	f.writes++
	return len(p), nil
}

// Bytes returns a copy of n bytes from the start of the flash.
func (f *MemFlash) Bytes(n int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.data[:n]...)
}

// Load replaces the flash contents with p; the rest reads erased.
func (f *MemFlash) Load(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(f.data, p)
	for i := n; i < len(f.data); i++ {
		f.data[i] = 0xFF
	}
}

// Store dumps the flash contents to a file.
func (f *MemFlash) Store(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return os.WriteFile(path, f.data, 0o644)
}

// Counts reports erase and write operations so far.
func (f *MemFlash) Counts() (erases, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.erases, f.writes
}

// ----------------------------- LEDs ------------------------------------------

// ShiftLog records the last mask latched into the shift register.
type ShiftLog struct {
	mask   atomic.Uint32
	writes atomic.Uint32
}

func (s *ShiftLog) WriteMask(m uint32) {
	s.mask.Store(m)
	s.writes.Add(1)
}

func (s *ShiftLog) Mask() uint32   { return s.mask.Load() }
func (s *ShiftLog) Writes() uint32 { return s.writes.Load() }

// PinState is a GPIO output.
type PinState struct{ v atomic.Bool }

func (p *PinState) Set(level bool) { p.v.Store(level) }
func (p *PinState) Level() bool    { return p.v.Load() }

// ----------------------------- device ----------------------------------------

// DeviceLog counts reset requests.
type DeviceLog struct {
	reboots     atomic.Int32
	bootloaders atomic.Int32
}

func (d *DeviceLog) Reboot()          { d.reboots.Add(1) }
func (d *DeviceLog) EnterBootloader() { d.bootloaders.Add(1) }

func (d *DeviceLog) Reboots() int     { return int(d.reboots.Load()) }
func (d *DeviceLog) Bootloaders() int { return int(d.bootloaders.Load()) }

// ----------------------------- clocks ----------------------------------------

// ManualClock only moves when told to.
type ManualClock struct{ ms atomic.Uint32 }

func (c *ManualClock) Millis() uint32    { return c.ms.Load() }
func (c *ManualClock) Set(ms uint32)     { c.ms.Store(ms) }
func (c *ManualClock) Advance(ms uint32) { c.ms.Add(ms) }

// WallClock counts milliseconds since it was created.
type WallClock struct{ start time.Time }

func NewWallClock() *WallClock { return &WallClock{start: time.Now()} }

func (c *WallClock) Millis() uint32 { return uint32(time.Since(c.start).Milliseconds()) }
