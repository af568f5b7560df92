package app

import (
	"keypad-go/keyboard"
	"keypad-go/protocol"
	"keypad-go/services/hid"
	"keypad-go/types"
	"keypad-go/x/logx"
	"keypad-go/x/mathx"
)

// setKeysTuple is {key_index, mode, keycode, modifiers, id}.
const setKeysTuple = 1 + types.KeyConfigSize

// handle dispatches one received message. Unknown opcodes get no reply.
func (a *App) handle(msg *protocol.Message, now uint32) {
	switch msg.Opcode {
	case protocol.OpEcho:
		a.send(msg)

	case protocol.OpGetKeys:
		a.emitKeyInfo(protocol.OpGetKeys)

	case protocol.OpSetKeys:
		p := msg.Payload()
		for i := 0; i+setKeysTuple <= len(p); i += setKeysTuple {
			if k := a.matrix.Key(keyboard.KeyID(p[i])); k != nil {
				k.Apply(types.KeyConfigFrom(p[i+1:]))
			}
		}
		a.emitKeyInfo(protocol.OpSetKeys)
		a.store.Reserve(now)

	case protocol.OpResetKeys:
		for i := 0; i < a.matrix.Len(); i++ {
			if i < len(a.defaults) {
				a.matrix.Key(keyboard.KeyID(i)).Apply(a.defaults[i])
			}
		}
		a.emitKeyInfo(protocol.OpResetKeys)
		a.store.Reserve(now)

	case protocol.OpSaveConf:
		a.store.Reserve(now)
		a.send(msg)

	case protocol.OpCheckCapture:
		a.emitCaptureState(protocol.OpCheckCapture)

	case protocol.OpEnterCapture:
		a.rep.SetBlocked(true)
		a.emitCaptureState(protocol.OpEnterCapture)
		a.emitKeyReport(false)

	case protocol.OpLeaveCapture:
		a.rep.SetBlocked(false)
		a.emitCaptureState(protocol.OpLeaveCapture)

	case protocol.OpReboot:
		logx.Info("app", "reboot requested")
		a.dev.Reboot()

	case protocol.OpUpload:
		logx.Info("app", "entering bootloader")
		a.dev.EnterBootloader()
	}
}

func (a *App) send(m *protocol.Message) {
	if !a.ch.WriteMessage(m) {
		logx.Error("app", "reply truncated", "op", m.Opcode.String())
	}
}

// emitKeyInfo replies with every key's configuration under opcode op.
func (a *App) emitKeyInfo(op protocol.Opcode) {
	n := mathx.Min(a.matrix.Len(), protocol.MaxData/types.KeyConfigSize)
	buf := a.scratch[:0]
	for i := 0; i < n; i++ {
		buf = a.matrix.Key(keyboard.KeyID(i)).Config().AppendTo(buf)
	}
	a.out = protocol.New(op, buf)
	a.send(&a.out)
}

func (a *App) emitCaptureState(op protocol.Opcode) {
	state := protocol.CaptureOff
	if a.rep.Blocked() {
		state = protocol.CaptureOn
	}
	a.out = protocol.New(op, []byte{state})
	a.send(&a.out)
}

// emitKeyReport sends one level byte per key. Optimised reports are only
// sent when the levels differ from the last report.
func (a *App) emitKeyReport(optimised bool) {
	levels := a.matrix.Levels(a.levels[:])
	if optimised && string(levels) == string(a.lastLevels[:len(levels)]) {
		return
	}
	copy(a.lastLevels[:], levels)
	a.out = protocol.New(protocol.OpKeyReport, levels)
	a.send(&a.out)
}

// syncToggles mirrors host lock indicators into the toggle state of keys
// bound to the matching lock keycodes.
func (a *App) syncToggles() {
	ind := a.usb.Indicators()
	for i := 0; i < a.matrix.Len(); i++ {
		k := a.matrix.Key(keyboard.KeyID(i))
		var bit uint8
		switch k.Keycode {
		case hid.KeyCapsLock:
			bit = hid.LEDCapsLock
		case hid.KeyNumLock:
			bit = hid.LEDNumLock
		case hid.KeyScrollLock:
			bit = hid.LEDScrollLock
		default:
			continue
		}
		k.Toggle = 0
		if ind&bit != 0 {
			k.Toggle = 1
		}
	}
}
