package keymap

import (
	"bytes"
	"strings"
	"testing"

	"keypad-go/services/hid"
	"keypad-go/types"
)

func TestReadHexAndNames(t *testing.T) {
	doc := `
version: 1
keys:
  - index: 2
    mode: toggle
    keycode: 0x39
    modifiers: [lctrl, rshift]
    id: 9
  - index: 0
    mode: none
    keycode: 0x27
    id: 0
`
	f, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := f.Validate(6); err != nil {
		t.Fatalf("validate: %v", err)
	}
	c, err := f.Keys[0].Config()
	if err != nil {
		t.Fatal(err)
	}
	want := types.KeyConfig{Mode: types.ModeToggle, Keycode: hid.KeyCapsLock, Modifiers: hid.ModLeftCtrl | hid.ModRightShift, ID: 9}
	if c != want {
		t.Fatalf("config = %+v want %+v", c, want)
	}

	p, err := f.SetKeysPayload()
	if err != nil {
		t.Fatal(err)
	}
	wantP := []byte{0, 0, 0x27, 0, 0, 2, byte(types.ModeToggle), 0x39, 0x21, 9}
	if !bytes.Equal(p, wantP) {
		t.Fatalf("payload = % x want % x", p, wantP)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]File{
		"version":   {Version: 2},
		"range":     {Version: 1, Keys: []Key{{Index: 6, Mode: "none"}}},
		"duplicate": {Version: 1, Keys: []Key{{Index: 1, Mode: "none"}, {Index: 1, Mode: "none"}}},
		"mode":      {Version: 1, Keys: []Key{{Index: 1, Mode: "sticky"}}},
		"modifier":  {Version: 1, Keys: []Key{{Index: 1, Mode: "none", Modifiers: []string{"hyper"}}}},
	}
	for name, f := range cases {
		if err := f.Validate(6); err == nil {
			t.Fatalf("%s: accepted", name)
		}
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	if _, err := Read(strings.NewReader("version: 1\nlayers: []\n")); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestWriteThenRead(t *testing.T) {
	cfgs := []types.KeyConfig{
		{Mode: types.ModeNone, Keycode: hid.Key0, ID: 0},
		{Mode: types.ModeRemoteControl, Keycode: hid.KeyA, Modifiers: hid.ModLeftGUI, ID: 1},
	}
	var buf bytes.Buffer
	if err := Write(&buf, FromConfigs(cfgs)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "mode: remote_control") {
		t.Fatalf("yaml:\n%s", buf.String())
	}
	f, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range f.Keys {
		c, err := k.Config()
		if err != nil || c != cfgs[i] {
			t.Fatalf("key %d = %+v (%v)", i, c, err)
		}
	}
}

func TestModifierNames(t *testing.T) {
	got := ModifierNames(hid.ModLeftShift | hid.ModRightGUI)
	if len(got) != 2 || got[0] != "lshift" || got[1] != "rgui" {
		t.Fatalf("names = %v", got)
	}
}
