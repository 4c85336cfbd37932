package ztable_test

import (
	"testing"

	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/ztable"
)

func newTestCore(t *testing.T) *zcore.Core {
	t.Helper()
	b := make([]uint8, 256)
	b[0x00] = 3
	b[0x0e] = 0x00
	b[0x0f] = 0x80
	b[0x1a] = 0x00
	b[0x1b] = 0x80
	core, err := zcore.Load(b)
	if err != nil {
		t.Fatalf("failed to build core: %v", err)
	}
	return core
}

func TestPrintTable(t *testing.T) {
	core := newTestCore(t)
	text := "ABCDEF"
	for i, c := range []byte(text) {
		core.WriteByte(0x10+uint32(i), c)
	}

	got := ztable.PrintTable(core, 0x10, 3, 2, 0)
	want := "ABC\nDEF"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestScanTableByte(t *testing.T) {
	core := newTestCore(t)
	values := []uint8{1, 2, 3, 42, 5}
	for i, v := range values {
		core.WriteByte(0x10+uint32(i), v)
	}

	addr := ztable.ScanTable(core, 42, 0x10, 5, 1)
	if addr != 0x13 {
		t.Fatalf("expected match at 0x13, got %x", addr)
	}

	missing := ztable.ScanTable(core, 99, 0x10, 5, 1)
	if missing != 0 {
		t.Fatalf("expected no match, got %x", missing)
	}
}

func TestScanTableWord(t *testing.T) {
	core := newTestCore(t)
	core.WriteHalfWord(0x10, 0x1111)
	core.WriteHalfWord(0x12, 0xBEEF)
	core.WriteHalfWord(0x14, 0x2222)

	addr := ztable.ScanTable(core, 0xBEEF, 0x10, 3, 0b1000_0010)
	if addr != 0x12 {
		t.Fatalf("expected match at 0x12, got %x", addr)
	}
}

func TestCopyTableZeroesWhenSecondIsZero(t *testing.T) {
	core := newTestCore(t)
	for i := uint32(0); i < 4; i++ {
		core.WriteByte(0x10+i, 0xFF)
	}

	ztable.CopyTable(core, 0x10, 0, 4)

	for i := uint32(0); i < 4; i++ {
		if core.ReadByte(0x10+i) != 0 {
			t.Fatalf("expected byte %d zeroed, got %x", i, core.ReadByte(0x10+i))
		}
	}
}

func TestCopyTableNonOverlapping(t *testing.T) {
	core := newTestCore(t)
	for i := uint32(0); i < 4; i++ {
		core.WriteByte(0x10+i, uint8(i+1))
	}

	ztable.CopyTable(core, 0x10, 0x20, 4)

	for i := uint32(0); i < 4; i++ {
		if core.ReadByte(0x20+i) != uint8(i+1) {
			t.Fatalf("byte %d mismatch: got %x", i, core.ReadByte(0x20+i))
		}
	}
}
