package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"keypad-go/keymap"
	"keypad-go/protocol"
	"keypad-go/types"
)

func dispatch(c *client, opts options, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "echo":
		return cmdEcho(c, rest, out)
	case "get":
		return cmdGet(c, out)
	case "set":
		return cmdSet(c, rest, out)
	case "reset":
		m, err := c.request(protocol.OpResetKeys, nil, protocol.OpResetKeys)
		if err != nil {
			return err
		}
		return printKeys(out, m)
	case "save":
		_, err := c.request(protocol.OpSaveConf, nil, protocol.OpSaveConf)
		return err
	case "capture":
		return cmdCapture(c, rest, out)
	case "monitor":
		return cmdMonitor(c, opts.count, out)
	case "export":
		return cmdExport(c, rest, out)
	case "import":
		return cmdImport(c, rest, out)
	case "reboot":
		return c.send(protocol.OpReboot, nil)
	case "upload":
		return c.send(protocol.OpUpload, nil)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a byte value", s)
	}
	return byte(v), nil
}

func cmdEcho(c *client, args []string, out io.Writer) error {
	data := make([]byte, 0, len(args))
	for _, a := range args {
		b, err := parseByte(a)
		if err != nil {
			return err
		}
		data = append(data, b)
	}
	m, err := c.request(protocol.OpEcho, data, protocol.OpEcho)
	if err != nil {
		return err
	}
	if string(m.Payload()) != string(data) {
		return fmt.Errorf("echo mismatch: sent % x, got % x", data, m.Payload())
	}
	fmt.Fprintf(out, "ok % x\n", m.Payload())
	return nil
}

func decodeKeys(m protocol.Message) []types.KeyConfig {
	p := m.Payload()
	out := make([]types.KeyConfig, 0, len(p)/types.KeyConfigSize)
	for i := 0; i+types.KeyConfigSize <= len(p); i += types.KeyConfigSize {
		out = append(out, types.KeyConfigFrom(p[i:]))
	}
	return out
}

func printKeys(out io.Writer, m protocol.Message) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tMODE\tKEYCODE\tMODIFIERS\tID")
	for i, k := range decodeKeys(m) {
		mods := strings.Join(keymap.ModifierNames(k.Modifiers), ",")
		if mods == "" {
			mods = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t0x%02x\t%s\t%d\n", i, k.Mode, k.Keycode, mods, k.ID)
	}
	return tw.Flush()
}

func getKeys(c *client) ([]types.KeyConfig, error) {
	m, err := c.request(protocol.OpGetKeys, nil, protocol.OpGetKeys)
	if err != nil {
		return nil, err
	}
	return decodeKeys(m), nil
}

func cmdGet(c *client, out io.Writer) error {
	m, err := c.request(protocol.OpGetKeys, nil, protocol.OpGetKeys)
	if err != nil {
		return err
	}
	return printKeys(out, m)
}

func cmdSet(c *client, args []string, out io.Writer) error {
	if len(args) < 3 || len(args) > 5 {
		return errors.New("usage: set <index> <mode> <keycode> [modifiers] [id]")
	}
	index, err := parseByte(args[0])
	if err != nil {
		return err
	}
	cur, err := getKeys(c)
	if err != nil {
		return err
	}
	if int(index) >= len(cur) {
		return fmt.Errorf("key index %d out of range [0,%d)", index, len(cur))
	}

	key := keymap.Key{Index: int(index), Mode: args[1], ID: cur[index].ID}
	if key.Keycode, err = parseByte(args[2]); err != nil {
		return err
	}
	if len(args) > 3 && args[3] != "-" {
		key.Modifiers = strings.Split(args[3], ",")
	}
	if len(args) > 4 {
		if key.ID, err = parseByte(args[4]); err != nil {
			return err
		}
	}

	payload, err := keymap.File{Version: keymap.Version, Keys: []keymap.Key{key}}.SetKeysPayload()
	if err != nil {
		return err
	}
	m, err := c.request(protocol.OpSetKeys, payload, protocol.OpSetKeys)
	if err != nil {
		return err
	}
	return printKeys(out, m)
}

func cmdCapture(c *client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: capture check|enter|leave")
	}
	var op protocol.Opcode
	switch args[0] {
	case "check":
		op = protocol.OpCheckCapture
	case "enter":
		op = protocol.OpEnterCapture
	case "leave":
		op = protocol.OpLeaveCapture
	default:
		return fmt.Errorf("unknown capture action %q", args[0])
	}
	m, err := c.request(op, nil, op)
	if err != nil {
		return err
	}
	state := "off"
	if m.Length > 0 && m.Data[0] == protocol.CaptureOn {
		state = "on"
	}
	fmt.Fprintf(out, "capture %s\n", state)
	return nil
}

func formatLevels(p []byte) string {
	var b strings.Builder
	for i, l := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(types.Level(l).String())
	}
	return b.String()
}

func cmdMonitor(c *client, count int, out io.Writer) error {
	if _, err := c.request(protocol.OpEnterCapture, nil, protocol.OpEnterCapture); err != nil {
		return err
	}
	defer c.request(protocol.OpLeaveCapture, nil, protocol.OpLeaveCapture)

	for seen := 0; count == 0 || seen < count; {
		m, err := c.next(c.timeout)
		if errors.Is(err, errTimeout) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if m.Opcode != protocol.OpKeyReport {
			continue
		}
		fmt.Fprintln(out, formatLevels(m.Payload()))
		seen++
	}
	return nil
}

func cmdExport(c *client, args []string, out io.Writer) error {
	cfgs, err := getKeys(c)
	if err != nil {
		return err
	}
	w := out
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return keymap.Write(w, keymap.FromConfigs(cfgs))
}

func cmdImport(c *client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := keymap.Read(f)
	if err != nil {
		return err
	}
	cur, err := getKeys(c)
	if err != nil {
		return err
	}
	if err := doc.Validate(len(cur)); err != nil {
		return err
	}
	payload, err := doc.SetKeysPayload()
	if err != nil {
		return err
	}
	m, err := c.request(protocol.OpSetKeys, payload, protocol.OpSetKeys)
	if err != nil {
		return err
	}
	if _, err := c.request(protocol.OpSaveConf, nil, protocol.OpSaveConf); err != nil {
		return err
	}
	return printKeys(out, m)
}
