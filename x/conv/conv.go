// Package conv appends integers to byte slices without fmt or strconv, for
// MCU builds where both are expensive.
package conv

const hexDigits = "0123456789abcdef"

// AppendUint appends the decimal form of u.
func AppendUint(dst []byte, u uint64) []byte {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	return append(dst, buf[i:]...)
}

// AppendInt appends the decimal form of n, with a leading '-' when negative.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		// Stays in range for MinInt64.
		return AppendUint(append(dst, '-'), uint64(-(n + 1))+1)
	}
	return AppendUint(dst, uint64(n))
}

// AppendHex8 appends n as two lowercase hex digits.
func AppendHex8(dst []byte, n uint8) []byte {
	return append(dst, hexDigits[n>>4], hexDigits[n&0xF])
}
