package keyboard

import (
	"math/rand"
	"testing"

	"keypad-go/types"
)

// fakeLines reports pressed[row][col] while that row is driven.
type fakeLines struct {
	pressed [][]bool
	row     int
	driven  int
}

func (f *fakeLines) SetRow(row int, active bool) {
	if active {
		f.row = row
		f.driven++
	} else {
		f.row = -1
	}
}

func (f *fakeLines) Column(col int) bool {
	if f.row < 0 {
		return false
	}
	return f.pressed[f.row][col]
}

func TestScanDrivesEachRowOncePerTick(t *testing.T) {
	lines := &fakeLines{pressed: [][]bool{{false, true, false}, {false, false, true}}}
	m := New(2, 3, lines)

	m.Scan(1)
	m.Scan(1)
	if lines.driven != 2 {
		t.Fatalf("rows driven %d times, want 2", lines.driven)
	}
	if m.State(1) != types.LevelRising || m.State(5) != types.LevelRising {
		t.Fatalf("states = %v %v", m.State(1), m.State(5))
	}
	if m.KeyInOrder(0) != 1 || m.KeyInOrder(1) != 5 {
		t.Fatalf("order = %d %d", m.KeyInOrder(0), m.KeyInOrder(1))
	}
}

func TestLevelLifecycle(t *testing.T) {
	m := New(2, 3, nil)

	steps := []struct {
		tick  uint32
		row0  uint8
		want  types.Level
		order uint8
	}{
		{1, 0b001, types.LevelRising, 0},
		{2, 0b001, types.LevelHigh, 0},
		{3, 0b001, types.LevelHigh, 0},
		{4, 0b000, types.LevelFalling, NoOrder},
		{5, 0b000, types.LevelLow, NoOrder},
		{6, 0b000, types.LevelLow, NoOrder},
	}
	for _, s := range steps {
		m.Update(s.tick, []uint8{s.row0, 0})
		if got := m.State(0); got != s.want {
			t.Fatalf("tick %d: level %v want %v", s.tick, got, s.want)
		}
		if got := m.Order(0); got != s.order {
			t.Fatalf("tick %d: order %d want %d", s.tick, got, s.order)
		}
	}
	if m.Key(0).LastTick != 5 {
		t.Fatalf("LastTick = %d, want 5", m.Key(0).LastTick)
	}
	if !m.IsUp(0) || m.IsDown(0) {
		t.Fatal("IsUp/IsDown disagree with Low")
	}
}

func TestPressOrderIsByTimeOfPress(t *testing.T) {
	m := New(2, 3, nil)

	m.Update(1, []uint8{0b100, 0}) // key 2
	m.Update(2, []uint8{0b101, 0}) // key 0
	m.Update(3, []uint8{0b101, 0b010}) // key 4

	want := []KeyID{2, 0, 4}
	var got []KeyID
	for id := range m.Pressing() {
		got = append(got, id)
	}
	if len(got) != len(want) {
		t.Fatalf("pressing = %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pressing = %v want %v", got, want)
		}
	}

	// Releasing the middle key closes the gap, keeping order stable.
	m.Update(4, []uint8{0b100, 0b010})
	if m.KeyInOrder(0) != 2 || m.KeyInOrder(1) != 4 || m.KeyInOrder(2) != InvalidKey {
		t.Fatalf("after release: %d %d %d", m.KeyInOrder(0), m.KeyInOrder(1), m.KeyInOrder(2))
	}
	if m.Order(4) != 1 || m.Order(0) != NoOrder {
		t.Fatalf("orders: key4=%d key0=%d", m.Order(4), m.Order(0))
	}
}

func TestSameTickIsIdempotent(t *testing.T) {
	m := New(2, 3, nil)
	m.Update(7, []uint8{0b011, 0})
	before := snapshot(m)

	for i := 0; i < 5; i++ {
		m.Update(7, []uint8{0b011, 0})
		m.Scan(7)
	}
	after := snapshot(m)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("key %d changed on repeated tick: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func snapshot(m *Matrix) []Key {
	out := make([]Key, m.Len())
	for i := range out {
		out[i] = *m.Key(KeyID(i))
	}
	return out
}

func TestOrderInvariantUnderRandomSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := New(2, 3, nil)

	for tick := uint32(1); tick < 2000; tick++ {
		m.Update(tick, []uint8{uint8(rng.Intn(8)), uint8(rng.Intn(8))})

		seen := map[KeyID]bool{}
		for id := range m.Pressing() {
			if seen[id] {
				t.Fatalf("tick %d: key %d appears twice", tick, id)
			}
			seen[id] = true
			if !m.State(id).Active() {
				t.Fatalf("tick %d: key %d in order list but %v", tick, id, m.State(id))
			}
		}
		if m.Ordered() > m.Len() {
			t.Fatalf("tick %d: order length %d > %d", tick, m.Ordered(), m.Len())
		}
		for i := 0; i < m.Len(); i++ {
			id := KeyID(i)
			active := m.State(id).Active()
			if active != seen[id] {
				t.Fatalf("tick %d: key %d active=%v listed=%v", tick, id, active, seen[id])
			}
			if active != (m.Order(id) != NoOrder) {
				t.Fatalf("tick %d: key %d order slot %d disagrees with level", tick, id, m.Order(id))
			}
		}
	}
}

func TestOutOfRangeQueries(t *testing.T) {
	m := New(2, 3, nil)
	if m.Key(6) != nil || m.Key(InvalidKey) != nil {
		t.Fatal("Key beyond range should be nil")
	}
	if m.State(9) != types.LevelLow || m.IsDown(9) || m.IsUp(9) || m.Order(9) != NoOrder {
		t.Fatal("out-of-range key should read as absent")
	}
	if m.KeyInOrder(-1) != InvalidKey {
		t.Fatal("negative order should be invalid")
	}
}

func TestConfigProjection(t *testing.T) {
	m := New(2, 3, nil)
	k := m.Key(3)
	k.Apply(types.KeyConfig{Mode: types.ModeToggle, Keycode: 0x04, Modifiers: 0x02, ID: 9})
	k.Toggle = 1
	got := k.Config()
	if got != (types.KeyConfig{Mode: types.ModeToggle, Keycode: 0x04, Modifiers: 0x02, ID: 9}) {
		t.Fatalf("Config = %+v", got)
	}
}

func TestLevels(t *testing.T) {
	m := New(2, 3, nil)
	m.Update(1, []uint8{0b010, 0})
	m.Update(2, []uint8{0b010, 0b001})
	var buf [8]byte
	got := m.Levels(buf[:])
	want := []byte{0, byte(types.LevelHigh), 0, byte(types.LevelRising), 0, 0}
	if string(got) != string(want) {
		t.Fatalf("levels = %v want %v", got, want)
	}
}
