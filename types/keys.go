package types

// ------------------------
// Key levels
// ------------------------

// Level is the debounced electrical state of one key.
type Level uint8

const (
	LevelLow Level = iota
	LevelRising
	LevelHigh
	LevelFalling
)

// Active reports whether the key counts as held (Rising or High).
func (l Level) Active() bool { return l == LevelRising || l == LevelHigh }

func (l Level) String() string {
	switch l {
	case LevelRising:
		return "rising"
	case LevelHigh:
		return "high"
	case LevelFalling:
		return "falling"
	default:
		return "low"
	}
}

// ------------------------
// Control modes
// ------------------------

// ControlMode selects how a key's LED and toggle semantics are derived.
type ControlMode uint8

const (
	ModeNone ControlMode = iota
	ModeInvert
	ModeToggle
	ModeToggleInvert
	ModeRemoteControl
)

func (m ControlMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeInvert:
		return "invert"
	case ModeToggle:
		return "toggle"
	case ModeToggleInvert:
		return "toggle_invert"
	case ModeRemoteControl:
		return "remote_control"
	default:
		return "unknown"
	}
}

// ParseControlMode is the inverse of String.
func ParseControlMode(s string) (ControlMode, bool) {
	for m := ModeNone; m <= ModeRemoteControl; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// ------------------------
// Key configuration
// ------------------------

// KeyConfig is the persisted, user-configurable projection of a key.
// Wire and flash order is Mode, Keycode, Modifiers, ID.
type KeyConfig struct {
	Mode      ControlMode
	Keycode   uint8
	Modifiers uint8
	ID        uint8
}

// KeyConfigSize is the encoded size of one KeyConfig.
const KeyConfigSize = 4

// AppendTo appends the 4-byte wire form of c.
func (c KeyConfig) AppendTo(dst []byte) []byte {
	return append(dst, byte(c.Mode), c.Keycode, c.Modifiers, c.ID)
}

// KeyConfigFrom decodes the 4-byte wire form. b must hold at least 4 bytes.
func KeyConfigFrom(b []byte) KeyConfig {
	_ = b[3]
	return KeyConfig{
		Mode:      ControlMode(b[0]),
		Keycode:   b[1],
		Modifiers: b[2],
		ID:        b[3],
	}
}
