// Package keymap reads and writes keypad configurations as YAML for the host
// configurator.
//
//	version: 1
//	keys:
//	  - index: 0
//	    mode: toggle
//	    keycode: 0x39
//	    modifiers: [lshift]
//	    id: 0
package keymap

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"keypad-go/services/hid"
	"keypad-go/types"
)

// Version is the keymap file format version.
const Version = 1

// File is one keymap document.
type File struct {
	Version int   `yaml:"version"`
	Keys    []Key `yaml:"keys"`
}

// Key is the configuration of one key, addressed by matrix index.
type Key struct {
	Index     int      `yaml:"index"`
	Mode      string   `yaml:"mode"`
	Keycode   uint8    `yaml:"keycode"`
	Modifiers []string `yaml:"modifiers,omitempty"`
	ID        uint8    `yaml:"id"`
}

var modifierNames = []struct {
	name string
	bit  uint8
}{
	{"lctrl", hid.ModLeftCtrl},
	{"lshift", hid.ModLeftShift},
	{"lalt", hid.ModLeftAlt},
	{"lgui", hid.ModLeftGUI},
	{"rctrl", hid.ModRightCtrl},
	{"rshift", hid.ModRightShift},
	{"ralt", hid.ModRightAlt},
	{"rgui", hid.ModRightGUI},
}

// ModifierNames renders a modifier mask as names, lowest bit first.
func ModifierNames(mask uint8) []string {
	var out []string
	for _, m := range modifierNames {
		if mask&m.bit != 0 {
			out = append(out, m.name)
		}
	}
	return out
}

// ParseModifiers is the inverse of ModifierNames.
func ParseModifiers(names []string) (uint8, error) {
	var mask uint8
next:
	for _, n := range names {
		for _, m := range modifierNames {
			if m.name == n {
				mask |= m.bit
				continue next
			}
		}
		return 0, fmt.Errorf("unknown modifier %q", n)
	}
	return mask, nil
}

// FromConfigs builds a document from configurations in key order.
func FromConfigs(cfgs []types.KeyConfig) File {
	f := File{Version: Version, Keys: make([]Key, len(cfgs))}
	for i, c := range cfgs {
		f.Keys[i] = Key{
			Index:     i,
			Mode:      c.Mode.String(),
			Keycode:   c.Keycode,
			Modifiers: ModifierNames(c.Modifiers),
			ID:        c.ID,
		}
	}
	return f
}

// Config converts one entry.
func (k Key) Config() (types.KeyConfig, error) {
	mode, ok := types.ParseControlMode(k.Mode)
	if !ok {
		return types.KeyConfig{}, fmt.Errorf("key %d: unknown mode %q", k.Index, k.Mode)
	}
	mods, err := ParseModifiers(k.Modifiers)
	if err != nil {
		return types.KeyConfig{}, fmt.Errorf("key %d: %w", k.Index, err)
	}
	return types.KeyConfig{Mode: mode, Keycode: k.Keycode, Modifiers: mods, ID: k.ID}, nil
}

// Validate checks the version, indices below n and entries.
func (f File) Validate(n int) error {
	if f.Version != Version {
		return fmt.Errorf("unsupported keymap version %d", f.Version)
	}
	seen := make(map[int]bool, len(f.Keys))
	for _, k := range f.Keys {
		if k.Index < 0 || k.Index >= n {
			return fmt.Errorf("key index %d out of range [0,%d)", k.Index, n)
		}
		if seen[k.Index] {
			return fmt.Errorf("key %d listed twice", k.Index)
		}
		seen[k.Index] = true
		if _, err := k.Config(); err != nil {
			return err
		}
	}
	return nil
}

// SetKeysPayload encodes the entries as SetKeys tuples, in index order.
func (f File) SetKeysPayload() ([]byte, error) {
	keys := append([]Key(nil), f.Keys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Index < keys[j].Index })

	out := make([]byte, 0, len(keys)*(1+types.KeyConfigSize))
	for _, k := range keys {
		c, err := k.Config()
		if err != nil {
			return nil, err
		}
		out = c.AppendTo(append(out, byte(k.Index)))
	}
	return out, nil
}

// Read decodes a keymap document.
func Read(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode keymap: %w", err)
	}
	return f, nil
}

// Write encodes a keymap document.
func Write(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode keymap: %w", err)
	}
	return enc.Close()
}
