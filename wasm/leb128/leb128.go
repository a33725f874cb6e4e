// Package leb128 decodes the LEB128 integer encodings used by the
// WebAssembly binary format.
package leb128

import (
	"fmt"
	"io"
)

// DecodeUint32 reads an unsigned 32-bit LEB128 integer from r,
// returning the value and the number of bytes consumed.
func DecodeUint32(r io.Reader) (ret uint32, num uint64, err error) {
	for shift := 0; shift < 35; shift += 7 {
		b, err := readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
	}
	return
}

// DecodeUint64 reads an unsigned 64-bit LEB128 integer from r.
func DecodeUint64(r io.Reader) (ret uint64, num uint64, err error) {
	for shift := 0; shift < 64; shift += 7 {
		b, err := readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
	}
	return
}

// DecodeInt32 reads a signed 32-bit LEB128 integer from r.
func DecodeInt32(r io.Reader) (ret int32, num uint64, err error) {
	var shift int
	var b byte
	for shift < 35 {
		b, err = readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	// Sign-extend when the final group's sign bit is set.
	if shift < 32 && b&0x40 != 0 {
		ret |= ^0 << shift
	}
	return
}

// DecodeInt64 reads a signed 64-bit LEB128 integer from r.
func DecodeInt64(r io.Reader) (ret int64, num uint64, err error) {
	var shift int
	var b byte
	for shift < 70 {
		b, err = readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		ret |= ^0 << shift
	}
	return
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
