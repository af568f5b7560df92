// Package keyboard turns raw key-matrix samples into debounced key levels and
// a press-order list.
//
// Edges are accepted on the tick they are sampled. A key that changes to
// active becomes Rising and is appended to the order list; on the next scan
// tick it latches High. Releasing works the same way through Falling to Low.
// The order list holds exactly the keys that are Rising or High, oldest
// press first.
package keyboard

import (
	"iter"

	"keypad-go/types"
	"keypad-go/x/mathx"
)

// KeyID addresses one key: row*cols + col.
type KeyID uint8

const (
	// InvalidKey is returned by lookups that fall outside the matrix.
	InvalidKey KeyID = 0xFF
	// NoOrder marks a key that is not in the order list.
	NoOrder uint8 = 0xFF
)

// MaxKeys bounds the matrix size so ids fit below InvalidKey.
const MaxKeys = 64

// Key is the live state of one physical switch.
type Key struct {
	Level    types.Level
	Order    uint8  // press-order slot, NoOrder when not held
	LastTick uint32 // tick of the last level change

	Mode      types.ControlMode
	Keycode   uint8
	Modifiers uint8
	Toggle    uint8 // 0 or 1
	ID        uint8
}

// Config returns the persisted projection of k.
func (k *Key) Config() types.KeyConfig {
	return types.KeyConfig{Mode: k.Mode, Keycode: k.Keycode, Modifiers: k.Modifiers, ID: k.ID}
}

// Apply copies the user-configurable fields from c.
func (k *Key) Apply(c types.KeyConfig) {
	k.Mode = c.Mode
	k.Keycode = c.Keycode
	k.Modifiers = c.Modifiers
	k.ID = c.ID
}

// Lines drives and samples the matrix wiring.
type Lines interface {
	// SetRow drives one row line active or idle.
	SetRow(row int, active bool)
	// Column samples one column line.
	Column(col int) bool
}

// Matrix owns the key states of a rows×cols switch matrix.
type Matrix struct {
	rows, cols int
	lines      Lines

	next     []uint8 // raw bitmap per row, bit = column
	keys     []Key
	orders   []KeyID
	ordered  int
	scanTick uint32
	scanned  bool
}

// New creates a matrix. lines may be nil when samples are fed with Update.
func New(rows, cols int, lines Lines) *Matrix {
	rows = mathx.Clamp(rows, 1, MaxKeys)
	cols = mathx.Clamp(cols, 1, 8)
	n := mathx.Min(rows*cols, MaxKeys)
	m := &Matrix{
		rows:   rows,
		cols:   cols,
		lines:  lines,
		next:   make([]uint8, rows),
		keys:   make([]Key, n),
		orders: make([]KeyID, n),
	}
	for i := range m.orders {
		m.orders[i] = InvalidKey
		m.keys[i].Order = NoOrder
	}
	return m
}

// Len reports the number of keys.
func (m *Matrix) Len() int { return len(m.keys) }

// Scan samples the lines and updates key states, once per distinct tick.
// Repeated calls with the same tick are no-ops.
func (m *Matrix) Scan(now uint32) {
	if m.scanned && m.scanTick == now {
		return
	}
	if m.lines != nil {
		for r := 0; r < m.rows; r++ {
			m.lines.SetRow(r, true)
			var bits uint8
			for c := 0; c < m.cols; c++ {
				if m.lines.Column(c) {
					bits |= 1 << c
				}
			}
			m.lines.SetRow(r, false)
			m.next[r] = bits
		}
	}
	m.update(now)
}

// Update feeds one bitmap per row (bit c = column c active) for tick now.
// Like Scan, it does nothing when now equals the last processed tick.
func (m *Matrix) Update(now uint32, rows []uint8) {
	if m.scanned && m.scanTick == now {
		return
	}
	for r := range m.next {
		m.next[r] = 0
		if r < len(rows) {
			m.next[r] = rows[r]
		}
	}
	m.update(now)
}

func (m *Matrix) update(now uint32) {
	m.scanTick = now
	m.scanned = true

	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			i := r*m.cols + c
			if i >= len(m.keys) {
				break
			}
			k := &m.keys[i]
			id := KeyID(i)

			prev := k.Level.Active()
			next := m.next[r]&(1<<c) != 0

			if prev != next {
				if next {
					k.Level = types.LevelRising
					m.addOrder(id)
				} else {
					k.Level = types.LevelFalling
					m.removeOrder(id)
				}
				k.LastTick = now
				continue
			}

			switch k.Level {
			case types.LevelRising:
				k.Level = types.LevelHigh
				k.LastTick = now
			case types.LevelFalling:
				k.Level = types.LevelLow
				k.LastTick = now
			}
		}
	}

	m.assignOrders()
}

func (m *Matrix) count() int { return mathx.Min(m.ordered, len(m.keys)) }

func (m *Matrix) findOrder(id KeyID) int {
	for i := 0; i < m.count(); i++ {
		if m.orders[i] == id {
			return i
		}
	}
	return -1
}

func (m *Matrix) addOrder(id KeyID) {
	if m.ordered >= len(m.keys) {
		return
	}
	m.removeOrder(id)
	m.orders[m.ordered] = id
	m.ordered++
}

func (m *Matrix) removeOrder(id KeyID) {
	n := m.findOrder(id)
	if n < 0 {
		return
	}
	count := m.count()
	copy(m.orders[n:count-1], m.orders[n+1:count])
	m.orders[count-1] = InvalidKey
	m.ordered--
}

func (m *Matrix) assignOrders() {
	for i := range m.keys {
		m.keys[i].Order = NoOrder
	}
	for i := 0; i < m.count(); i++ {
		if k := m.Key(m.orders[i]); k != nil {
			k.Order = uint8(i)
		}
	}
}

// Key returns mutable access to one key, or nil when id is out of range.
func (m *Matrix) Key(id KeyID) *Key {
	if int(id) >= len(m.keys) {
		return nil
	}
	return &m.keys[id]
}

// State returns the level of a key; out-of-range keys read Low.
func (m *Matrix) State(id KeyID) types.Level {
	if k := m.Key(id); k != nil {
		return k.Level
	}
	return types.LevelLow
}

// IsDown reports whether the key has latched High.
func (m *Matrix) IsDown(id KeyID) bool {
	k := m.Key(id)
	return k != nil && k.Level == types.LevelHigh
}

// IsUp reports whether the key has latched Low.
func (m *Matrix) IsUp(id KeyID) bool {
	k := m.Key(id)
	return k != nil && k.Level == types.LevelLow
}

// Order returns the press-order slot of a key, or NoOrder.
func (m *Matrix) Order(id KeyID) uint8 {
	if k := m.Key(id); k != nil {
		return k.Order
	}
	return NoOrder
}

// KeyInOrder returns the n-th held key, oldest press first, or InvalidKey.
func (m *Matrix) KeyInOrder(n int) KeyID {
	if n < 0 || n >= m.count() {
		return InvalidKey
	}
	return m.orders[n]
}

// Ordered reports how many keys are in the order list.
func (m *Matrix) Ordered() int { return m.count() }

// Pressing yields held keys in press order.
func (m *Matrix) Pressing() iter.Seq[KeyID] {
	return func(yield func(KeyID) bool) {
		n := m.count()
		for i := 0; i < n; i++ {
			if !yield(m.orders[i]) {
				return
			}
		}
	}
}

// Levels writes one level byte per key into dst and returns the used slice.
func (m *Matrix) Levels(dst []byte) []byte {
	n := mathx.Min(len(dst), len(m.keys))
	for i := 0; i < n; i++ {
		dst[i] = byte(m.keys[i].Level)
	}
	return dst[:n]
}
