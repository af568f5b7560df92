// Package logx writes tagged log lines without fmt.
//
// Lines look like
//
//	[store] flushed version=1 keys=6
//
// The default println sink on the board is USB CDC, which carries the binary
// configuration protocol, so firmware logs go through Output instead. The
// platform points Output at a spare UART; tests leave it discarding.
package logx

import (
	"io"
	"sync"

	"keypad-go/x/conv"
)

// Output receives every log line. Writes are serialised by a package mutex.
var Output io.Writer = discard{}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

var (
	mu  sync.Mutex
	buf []byte
)

// Info logs msg under tag followed by key/value pairs.
func Info(tag, msg string, kv ...any) { write(tag, "", msg, kv) }

// Error logs msg under tag with an "error" marker.
func Error(tag, msg string, kv ...any) { write(tag, "error: ", msg, kv) }

func write(tag, level, msg string, kv []any) {
	mu.Lock()
	defer mu.Unlock()

	b := buf[:0]
	b = append(b, '[')
	b = append(b, tag...)
	b = append(b, "] "...)
	b = append(b, level...)
	b = append(b, msg...)
	for i := 0; i+1 < len(kv); i += 2 {
		b = append(b, ' ')
		if k, ok := kv[i].(string); ok {
			b = append(b, k...)
		} else {
			b = append(b, '?')
		}
		b = append(b, '=')
		b = appendValue(b, kv[i+1])
	}
	b = append(b, '\n')
	buf = b
	_, _ = Output.Write(b)
}

func appendValue(b []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(b, x...)
	case bool:
		if x {
			return append(b, "true"...)
		}
		return append(b, "false"...)
	case int:
		return conv.AppendInt(b, int64(x))
	case int32:
		return conv.AppendInt(b, int64(x))
	case int64:
		return conv.AppendInt(b, x)
	case uint8:
		return conv.AppendHex8(append(b, "0x"...), x)
	case uint16:
		return conv.AppendUint(b, uint64(x))
	case uint32:
		return conv.AppendUint(b, uint64(x))
	case uint64:
		return conv.AppendUint(b, x)
	case error:
		if x == nil {
			return append(b, "nil"...)
		}
		return append(b, x.Error()...)
	default:
		return append(b, '?')
	}
}
