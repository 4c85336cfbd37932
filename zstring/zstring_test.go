package zstring_test

import (
	"testing"

	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zstring"
)

func newTestCore(t *testing.T, version uint8, size uint32) *zcore.Core {
	t.Helper()
	return newTestCoreWithAbbreviations(t, version, size, 0)
}

// newTestCoreWithAbbreviations builds a synthetic story and, when
// abbrevBase is non-zero, points the header's abbreviation table there
// before loading - the header field is parsed once at Load time, so any
// override has to land in the raw bytes first.
func newTestCoreWithAbbreviations(t *testing.T, version uint8, size uint32, abbrevBase uint16) *zcore.Core {
	t.Helper()
	if size < 256 {
		size = 256
	}
	b := make([]uint8, size)
	b[0x00] = version
	b[0x0e] = 0x00
	b[0x0f] = 0x80 // static memory base 0x80, leaves 0x00-0x7f dynamic/writable for fixtures
	b[0x1a] = 0x00
	b[0x1b] = uint8(size / 2)
	if abbrevBase != 0 {
		b[0x18] = uint8(abbrevBase >> 8)
		b[0x19] = uint8(abbrevBase)
	}

	core, err := zcore.Load(b)
	if err != nil {
		t.Fatalf("failed to build test core: %v", err)
	}
	return core
}

func writeWords(core *zcore.Core, addr uint32, words []uint8) {
	for i, w := range words {
		core.WriteByte(addr+uint32(i), w)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []string{"hello", "mailbox", "up"}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			core := newTestCore(t, 3, 256)
			alphabets := zstring.DefaultAlphabets(core.Version)

			packed := zstring.Encode(core, text, alphabets, 3)
			writeWords(core, 0x10, packed)

			got, bytesRead := zstring.Decode(core, 0x10, alphabets)
			if got != text {
				t.Fatalf("decode mismatch: got %q want %q", got, text)
			}
			if bytesRead != uint32(len(packed)) {
				t.Fatalf("bytesRead mismatch: got %d want %d", bytesRead, len(packed))
			}
		})
	}
}

func TestDecodeUpperAndPunctuationShift(t *testing.T) {
	core := newTestCore(t, 3, 256)
	alphabets := zstring.DefaultAlphabets(core.Version)

	text := "Go, North!"
	packed := zstring.Encode(core, text, alphabets, 6)
	writeWords(core, 0x10, packed)

	// Encode lower-cases for dictionary use; decode what we actually wrote.
	got, _ := zstring.Decode(core, 0x10, alphabets)
	if got != "go, north!" {
		t.Fatalf("decode mismatch: got %q", got)
	}
}

func TestDecodeAbbreviation(t *testing.T) {
	core := newTestCoreWithAbbreviations(t, 3, 256, 0x20)
	alphabets := zstring.DefaultAlphabets(core.Version)

	// Abbreviation table at 0x20, 96 entries (32 per set x 3 sets); only
	// entry 0 (z=1, x=0) is used. It points to a word-address for "the ".
	abbrevBase := uint32(core.AbbreviationTableBase)

	abbrevText := "the "
	abbrevPacked := zstring.Encode(core, abbrevText, alphabets, 2)
	writeWords(core, 0x40, abbrevPacked)
	core.WriteByte(abbrevBase, 0x00)
	core.WriteByte(abbrevBase+1, 0x20) // word address 0x20 -> byte address 0x40

	// Main string: abbreviation 0 followed by "house".
	zchars := append([]uint8{1, 0}, zstring.ToZChars(core, "house", alphabets)...)
	packed := zstring.PackZChars(zchars, 0)
	writeWords(core, 0x60, packed)

	got, _ := zstring.Decode(core, 0x60, alphabets)
	want := "the house"
	if got != want {
		t.Fatalf("abbreviation expansion mismatch: got %q want %q", got, want)
	}
}

func TestNestedAbbreviationPanics(t *testing.T) {
	core := newTestCoreWithAbbreviations(t, 3, 256, 0x20)
	alphabets := zstring.DefaultAlphabets(core.Version)

	abbrevBase := uint32(core.AbbreviationTableBase)

	// Abbreviation 0's text is itself "abbreviation 0" (z-char 1, x 0),
	// which must be rejected rather than recursing.
	selfRef := zstring.PackZChars([]uint8{1, 0}, 0)
	writeWords(core, 0x40, selfRef)
	core.WriteByte(abbrevBase, 0x00)
	core.WriteByte(abbrevBase+1, 0x20)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on nested abbreviation reference")
		} else if _, ok := r.(zstring.NestedAbbreviationError); !ok {
			t.Fatalf("expected NestedAbbreviationError, got %T: %v", r, r)
		}
	}()

	zstring.Decode(core, 0x40, alphabets)
}

func TestTenBitZsciiEscapeRoundTrip(t *testing.T) {
	core := newTestCore(t, 5, 256)
	alphabets := zstring.DefaultAlphabets(core.Version)

	text := "café" // "café" - é is outside the basic alphabets
	packed := zstring.Encode(core, text, alphabets, 4)
	writeWords(core, 0x10, packed)

	got, _ := zstring.Decode(core, 0x10, alphabets)
	if got != text {
		t.Fatalf("10-bit escape round trip mismatch: got %q want %q", got, text)
	}
}

func TestV1NewlineIsPlainZChar(t *testing.T) {
	core := newTestCore(t, 1, 256)
	alphabets := zstring.DefaultAlphabets(core.Version)

	packed := zstring.PackZChars([]uint8{1, 7, 5}, 0) // zchar 1 (newline in v1), zchar 7 -> A0[1] = 'b'
	writeWords(core, 0x10, packed)

	got, _ := zstring.Decode(core, 0x10, alphabets)
	if len(got) == 0 || got[0] != '\n' {
		t.Fatalf("expected v1 z-char 1 to decode as newline, got %q", got)
	}
}
