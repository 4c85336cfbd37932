package zstring

import "github.com/wrenfield/zigzag/zcore"

// Alphabets holds the three 26-letter alphabet tables (A0 lower-case, A1
// upper-case, A2 punctuation/digits) used to decode and encode Z-strings.
// Versions 1 and 2 use fixed built-in tables; v5+ may replace them with a
// custom table named by the header extension table.
type Alphabets struct {
	A0 [26]byte
	A1 [26]byte
	A2 [26]byte
}

var a0Default = [26]byte{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var a1Default = [26]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}

// Both A2 tables are indexed uniformly by zchr-6, same as A0/A1, so index 0
// (zchr 6, the 10-bit-literal escape) is a placeholder never actually read -
// decode special-cases zchr==6 in alphabet 2 before any table lookup.

// a2Default is the punctuation/digit alphabet for v2+; index 1 (zchr 7) is
// the newline control character.
var a2Default = [26]byte{0, '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

// a2V1 is the v1 punctuation alphabet. v1 has no A2 newline escape (z-char 1
// is newline directly), so index 1 (zchr 7) is an ordinary character.
var a2V1 = [26]byte{0, '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '<', '-', ':', '(', ')'}

// DefaultAlphabets returns the built-in tables for the given version.
func DefaultAlphabets(version uint8) *Alphabets {
	a2 := a2Default
	if version == 1 {
		a2 = a2V1
	}
	return &Alphabets{A0: a0Default, A1: a1Default, A2: a2}
}

// LoadAlphabets returns the custom alphabet table from the story's
// alternative-character-set header pointer (v5+), falling back to the
// built-in tables when none is declared.
func LoadAlphabets(core *zcore.Core) *Alphabets {
	if core.Version < 5 || core.AlternativeCharSetBase == 0 {
		return DefaultAlphabets(core.Version)
	}

	alphabets := &Alphabets{}
	base := uint32(core.AlternativeCharSetBase)
	for i := 0; i < 26; i++ {
		alphabets.A0[i] = core.ReadByte(base + uint32(i))
		alphabets.A1[i] = core.ReadByte(base + 26 + uint32(i))
		alphabets.A2[i] = core.ReadByte(base + 52 + uint32(i))
	}
	// A2[0] (zchr 6) stays unused regardless of what the table declares -
	// decode never reaches the table lookup for that z-char.
	return alphabets
}
