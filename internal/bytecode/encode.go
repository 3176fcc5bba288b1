package bytecode

import "encoding/binary"

// U16 little-endian encodes a 16-bit operand.
func U16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// U8 wraps a single byte operand for symmetry with U16 at call sites.
func U8(v byte) []byte { return []byte{v} }
