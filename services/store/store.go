// Package store persists key configuration to a flash-like backing store and
// debounces writes.
package store

import (
	"keypad-go/errcode"
	"keypad-go/keyboard"
	"keypad-go/types"
	"keypad-go/x/logx"
)

// Backing is the raw storage device. Offsets are bytes from the start of
// the configuration area.
type Backing interface {
	Init() error
	ReadAt(p []byte, off int64) (int, error)
	EraseSector(off int64) error
	WriteAt(p []byte, off int64) (int, error)
}

// Offset of the configuration record within the backing store.
const Offset int64 = 0

// Store loads and saves the key configuration record.
type Store struct {
	b      Backing
	policy Policy
	keys   []types.KeyConfig
	buf    []byte
	writes uint32
}

// New prepares a store for a matrix of n keys.
func New(b Backing, n int) *Store {
	return &Store{
		b:    b,
		keys: make([]types.KeyConfig, n),
		buf:  make([]byte, 0, RecordSize(n)),
	}
}

// Init brings up the backing device.
func (s *Store) Init() error {
	return errcode.Wrap(errcode.StoreInit, "store.init", s.b.Init())
}

// Load reads the record into m. When the stored version is not current
// (erased flash included) it installs defaults and reserves a save, and
// reports defaulted=true. A read failure is returned as StoreRead.
func (s *Store) Load(now uint32, m *keyboard.Matrix, defaults []types.KeyConfig) (defaulted bool, err error) {
	buf := s.buf[:RecordSize(len(s.keys))]
	if _, err := s.b.ReadAt(buf, Offset); err != nil {
		return false, errcode.Wrap(errcode.StoreRead, "store.load", err)
	}
	ver, err := ParseRecord(buf, s.keys)
	if err != nil {
		return false, &errcode.E{C: errcode.StoreRead, Op: "store.load", Err: err}
	}
	if ver != Version {
		logx.Info("store", "no valid record, using defaults", "version", ver)
		for i := range s.keys {
			s.keys[i] = defaultAt(defaults, i)
		}
		s.policy.Reserve(now)
		defaulted = true
	}
	for i, c := range s.keys {
		if k := m.Key(keyboard.KeyID(i)); k != nil {
			k.Apply(c)
		}
	}
	return defaulted, nil
}

// Reserve requests a debounced save.
func (s *Store) Reserve(now uint32) { s.policy.Reserve(now) }

// Pending reports whether a save is waiting.
func (s *Store) Pending() bool { return s.policy.Pending() }

// Tick flushes m once the quiet window after the last request has passed.
// It reports whether a flush ran.
func (s *Store) Tick(now uint32, m *keyboard.Matrix) (bool, error) {
	if !s.policy.Due(now) {
		return false, nil
	}
	return true, s.Flush(m)
}

// Sync flushes a pending save without waiting for its window.
func (s *Store) Sync(m *keyboard.Matrix) error {
	if !s.policy.pending {
		return nil
	}
	s.policy.pending = false
	return s.Flush(m)
}

// Flush erases the sector and writes the current configuration of m.
func (s *Store) Flush(m *keyboard.Matrix) error {
	for i := range s.keys {
		if k := m.Key(keyboard.KeyID(i)); k != nil {
			s.keys[i] = k.Config()
		}
	}
	if err := s.b.EraseSector(Offset); err != nil {
		return errcode.Wrap(errcode.StoreErase, "store.flush", err)
	}
	s.buf = AppendRecord(s.buf[:0], s.keys)
	if _, err := s.b.WriteAt(s.buf, Offset); err != nil {
		return errcode.Wrap(errcode.StoreWrite, "store.flush", err)
	}
	s.writes++
	return nil
}

// Writes reports completed flushes since boot.
func (s *Store) Writes() uint32 { return s.writes }

func defaultAt(defaults []types.KeyConfig, i int) types.KeyConfig {
	if i < len(defaults) {
		return defaults[i]
	}
	return types.KeyConfig{ID: uint8(i)}
}
