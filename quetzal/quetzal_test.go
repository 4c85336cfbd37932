package quetzal_test

import (
	"reflect"
	"testing"

	"github.com/wrenfield/zigzag/quetzal"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := make([]uint8, 64)
	for i := range original {
		original[i] = uint8(i)
	}

	current := make([]uint8, len(original))
	copy(current, original)
	current[10] = 0xff
	current[11] = 0xfe
	current[40] = 0x00

	serial := [6]byte{'0', '2', '0', '9', '0', '1'}

	state := quetzal.SaveState{
		Release:  3,
		Serial:   serial,
		Checksum: 0x1234,
		PC:       0x4f12,
		DynamicMemory: current,
		Frames: []quetzal.Frame{
			{ReturnPC: 0, Locals: nil, EvalStack: nil, Discard: true},
			{ReturnPC: 0x4abc, Locals: []uint16{1, 2, 3}, EvalStack: []uint16{9, 8}, StoreVariable: 5, ArgsSupplied: 2},
		},
	}

	data := quetzal.Encode(original, state)

	got, ok := quetzal.Decode(data, original, 3, serial, 0x1234)
	if !ok {
		t.Fatalf("decode failed")
	}

	if !reflect.DeepEqual(got.DynamicMemory, current) {
		t.Fatalf("dynamic memory mismatch: got %v want %v", got.DynamicMemory, current)
	}
	if len(got.Frames) != 2 {
		t.Fatalf("got %d frames want 2", len(got.Frames))
	}
	if !reflect.DeepEqual(got.Frames[1].Locals, []uint16{1, 2, 3}) {
		t.Fatalf("locals mismatch: %v", got.Frames[1].Locals)
	}
	if !reflect.DeepEqual(got.Frames[1].EvalStack, []uint16{9, 8}) {
		t.Fatalf("eval stack mismatch: %v", got.Frames[1].EvalStack)
	}
	if got.Frames[1].StoreVariable != 5 || got.Frames[1].ArgsSupplied != 2 {
		t.Fatalf("frame metadata mismatch: %+v", got.Frames[1])
	}
	// The top frame's resume PC is overwritten from IFhd, not its own
	// serialised ReturnPC.
	if got.Frames[len(got.Frames)-1].ReturnPC != state.PC {
		t.Fatalf("top frame resume PC = %x want %x", got.Frames[len(got.Frames)-1].ReturnPC, state.PC)
	}
}

func TestDecodeRejectsMismatchedStory(t *testing.T) {
	original := make([]uint8, 16)
	serial := [6]byte{'0', '2', '0', '9', '0', '1'}
	data := quetzal.Encode(original, quetzal.SaveState{
		Release: 3, Serial: serial, Checksum: 0x1234, DynamicMemory: original,
	})

	if _, ok := quetzal.Decode(data, original, 3, serial, 0x9999); ok {
		t.Fatalf("expected checksum mismatch to fail decode")
	}
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	if _, ok := quetzal.Decode([]byte("FORM"), nil, 0, [6]byte{}, 0); ok {
		t.Fatalf("expected truncated data to fail decode")
	}
}
