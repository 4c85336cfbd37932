// Package ztable implements the table helper opcodes: print_table,
// scan_table and copy_table.
package ztable

import (
	"strings"

	"github.com/wrenfield/zigzag/zcore"
)

// PrintTable renders a width x height character grid starting at baddr,
// skipping `skip` extra bytes at the end of each row (print_table's stride
// operand), as text with newline-separated rows.
func PrintTable(core *zcore.Core, baddr uint32, width, height, skip uint16) string {
	var s strings.Builder

	for row := uint16(0); row < height; row++ {
		if row != 0 {
			s.WriteByte('\n')
		}
		rowStart := baddr + uint32(row)*(uint32(width)+uint32(skip))
		for col := uint16(0); col < width; col++ {
			s.WriteByte(core.ReadByte(rowStart + uint32(col)))
		}
	}

	return s.String()
}

// ScanTable searches length entries of size (form&0x7f) bytes starting at
// baddr for test, comparing as a word when form's top bit is set or a byte
// otherwise, and returns the matching entry's address or 0.
func ScanTable(core *zcore.Core, test uint16, baddr uint32, length uint16, form uint16) uint32 {
	fieldSize := form & 0b0111_1111
	checkWord := form&0b1000_0000 != 0
	if fieldSize == 0 {
		return 0
	}

	ptr := baddr
	for i := uint16(0); i < length; i++ {
		var value uint16
		if checkWord {
			value = core.ReadHalfWord(ptr)
		} else {
			value = uint16(core.ReadByte(ptr))
		}
		if value == test {
			return ptr
		}
		ptr += uint32(fieldSize)
	}

	return 0
}

// CopyTable copies abs(size) bytes from first to second. second == 0 is the
// "zero the table" special case (abs(size) bytes at first are zeroed); size < 0 allows the
// copy to proceed byte-by-byte even when the ranges overlap (the Standard's
// documented corruption-permitted mode), while size > 0 snapshots the
// source first so an overlapping destination can't corrupt the read.
func CopyTable(core *zcore.Core, first, second uint32, size int32) {
	sizeAbs := uint32(size)
	if size < 0 {
		sizeAbs = uint32(-size)
	}

	switch {
	case second == 0:
		for i := uint32(0); i < sizeAbs; i++ {
			core.WriteByte(first+i, 0)
		}
	case size < 0:
		for i := uint32(0); i < sizeAbs; i++ {
			core.WriteByte(second+i, core.ReadByte(first+i))
		}
	default:
		tmp := make([]uint8, sizeAbs)
		for i := uint32(0); i < sizeAbs; i++ {
			tmp[i] = core.ReadByte(first + i)
		}
		for i := uint32(0); i < sizeAbs; i++ {
			core.WriteByte(second+i, tmp[i])
		}
	}
}
