package store

import (
	"encoding/binary"

	"keypad-go/errcode"
	"keypad-go/types"
)

// Version tags the persisted record layout.
const Version uint32 = 1

const headerSize = 4

// RecordSize is the encoded size of a record holding n keys.
func RecordSize(n int) int { return headerSize + n*types.KeyConfigSize }

// AppendRecord appends the little-endian record: version, then one
// KeyConfig per key.
func AppendRecord(dst []byte, keys []types.KeyConfig) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, Version)
	for _, k := range keys {
		dst = k.AppendTo(dst)
	}
	return dst
}

// ParseRecord decodes b into dst and returns the stored version. Keys are
// only decoded when the version matches; a short buffer is BadRecord.
func ParseRecord(b []byte, dst []types.KeyConfig) (uint32, error) {
	if len(b) < headerSize {
		return 0, errcode.BadRecord
	}
	ver := binary.LittleEndian.Uint32(b)
	if ver != Version {
		return ver, nil
	}
	if len(b) < RecordSize(len(dst)) {
		return ver, errcode.BadRecord
	}
	body := b[headerSize:]
	for i := range dst {
		dst[i] = types.KeyConfigFrom(body[i*types.KeyConfigSize:])
	}
	return ver, nil
}
