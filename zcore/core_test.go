package zcore_test

import (
	"testing"

	"github.com/wrenfield/zigzag/zcore"
)

func minimalStory(version uint8) []uint8 {
	b := make([]uint8, 128)
	b[0x00] = version
	b[0x0e] = 0x00 // static base high
	b[0x0f] = 0x40 // static base low -> 0x40
	b[0x1a] = 0x00
	b[0x1b] = 0x10 // declared length units
	return b
}

func TestLoadRejectsShortFile(t *testing.T) {
	_, err := zcore.Load(make([]uint8, 10))
	if err == nil {
		t.Fatal("expected error loading a too-short file")
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	b := minimalStory(6)
	_, err := zcore.Load(b)
	if err == nil {
		t.Fatal("expected error loading version 6")
	}
}

func TestLoadWMatchesTwoLoadBs(t *testing.T) {
	core, err := zcore.Load(minimalStory(3))
	if err != nil {
		t.Fatal(err)
	}
	core.WriteByte(0x10, 0xAB)
	core.WriteByte(0x11, 0xCD)

	got := core.ReadHalfWord(0x10)
	want := uint16(core.ReadByte(0x10))<<8 | uint16(core.ReadByte(0x11))
	if got != want {
		t.Fatalf("loadw mismatch: got %x want %x", got, want)
	}
}

func TestStoreToStaticMemoryPanics(t *testing.T) {
	core, err := zcore.Load(minimalStory(3))
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic writing to static memory")
		}
	}()
	core.WriteByte(uint32(core.StaticMemoryBase), 0x01)
}

func TestPackedAddressPerVersion(t *testing.T) {
	tests := []struct {
		version uint8
		packed  uint32
		want    uint32
	}{
		{3, 0x100, 0x200},
		{5, 0x100, 0x400},
		{8, 0x100, 0x800},
	}

	for _, tt := range tests {
		core, err := zcore.Load(minimalStory(tt.version))
		if err != nil {
			t.Fatal(err)
		}
		if got := core.PackedAddress(tt.packed, false); got != tt.want {
			t.Errorf("v%d PackedAddress(%x) = %x, want %x", tt.version, tt.packed, got, tt.want)
		}
	}
}

func TestGlobalsRoundTrip(t *testing.T) {
	b := minimalStory(3)
	b[0x0c] = 0x00
	b[0x0d] = 0x20 // global vars base = 0x20, below static base 0x40
	core, err := zcore.Load(b)
	if err != nil {
		t.Fatal(err)
	}

	core.WriteGlobal(16, 0x1234)
	core.WriteGlobal(17, 0xFFFF)
	if core.ReadGlobal(16) != 0x1234 {
		t.Fatalf("global 16 mismatch: %x", core.ReadGlobal(16))
	}
	if core.ReadGlobal(17) != 0xFFFF {
		t.Fatalf("global 17 mismatch: %x", core.ReadGlobal(17))
	}
}
