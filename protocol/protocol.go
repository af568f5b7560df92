// Package protocol frames the configuration protocol spoken over USB serial.
//
// A frame is
//
//	opcode(1) | length(1) | data(length <= 64) | checksum(1)
//
// with no delimiter. The checksum is the two's complement of the low byte of
// opcode+length+sum(data), so the byte sum of a whole valid frame is zero.
package protocol

// Opcode identifies a message.
type Opcode uint8

const (
	OpEcho Opcode = iota
	OpGetKeys
	OpSetKeys
	OpResetKeys
	OpSaveConf
	OpCheckCapture
	OpEnterCapture
	OpLeaveCapture
	OpKeyReport
	OpReboot
	OpUpload
)

func (o Opcode) String() string {
	switch o {
	case OpEcho:
		return "echo"
	case OpGetKeys:
		return "get_keys"
	case OpSetKeys:
		return "set_keys"
	case OpResetKeys:
		return "reset_keys"
	case OpSaveConf:
		return "save_conf"
	case OpCheckCapture:
		return "check_capture"
	case OpEnterCapture:
		return "enter_capture"
	case OpLeaveCapture:
		return "leave_capture"
	case OpKeyReport:
		return "key_report"
	case OpReboot:
		return "reboot"
	case OpUpload:
		return "upload"
	default:
		return "unknown"
	}
}

const (
	// MaxData is the largest payload a frame may carry.
	MaxData = 64
	// Overhead is opcode + length + checksum.
	Overhead = 3
	// MaxFrame is the largest encoded frame.
	MaxFrame = MaxData + Overhead
)

// Capture state payload values.
const (
	CaptureOff byte = 0
	CaptureOn  byte = 255
)

// Message is one decoded or to-be-encoded frame.
type Message struct {
	Opcode   Opcode
	Length   uint8
	Data     [MaxData]byte
	Checksum uint8
}

// New builds a message with a copy of data (truncated to MaxData) and a
// fresh checksum.
func New(op Opcode, data []byte) Message {
	var m Message
	m.Opcode = op
	m.Length = uint8(copy(m.Data[:], data))
	m.Checksum = Checksum(&m)
	return m
}

// Payload returns the valid part of Data.
func (m *Message) Payload() []byte { return m.Data[:m.Length] }

// Checksum computes the frame checksum of m's header and payload.
func Checksum(m *Message) uint8 {
	n := int(m.Length)
	if n > MaxData {
		n = MaxData
	}
	sum := uint16(m.Opcode) + uint16(m.Length)
	for i := 0; i < n; i++ {
		sum += uint16(m.Data[i])
	}
	return uint8(((sum & 0xFF) ^ 0xFF) + 1)
}

// AppendFrame appends the encoded frame of m with a freshly computed
// checksum. Length is clamped to MaxData.
func AppendFrame(dst []byte, m *Message) []byte {
	c := *m
	if c.Length > MaxData {
		c.Length = MaxData
	}
	dst = append(dst, byte(c.Opcode), c.Length)
	dst = append(dst, c.Data[:c.Length]...)
	return append(dst, Checksum(&c))
}
