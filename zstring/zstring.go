// Package zstring implements the Z-Machine's ZSCII text codec: unpacking
// Z-characters from memory, alphabet shift/lock state, abbreviation
// expansion, the 10-bit ZSCII literal escape, and the reverse direction
// (encoding text for dictionary lookups and tokenise's parse buffer).
package zstring

import (
	"encoding/binary"
	"strings"

	"github.com/wrenfield/zigzag/zcore"
)

type alphabet int

const (
	alphaA0 alphabet = 0
	alphaA1 alphabet = 1
	alphaA2 alphabet = 2
)

// NestedAbbreviationError is raised when an abbreviation string itself tries
// to reference another abbreviation - the Standard forbids this, and callers
// should treat it as a fatal story-file error rather than recover silently.
// Decode also raises it for a string that ends in the middle of an
// abbreviation reference or a 10-bit ZSCII literal.
type NestedAbbreviationError struct {
	Message string
}

func (e NestedAbbreviationError) Error() string { return "zstring: " + e.Message }

// Decode unpacks the Z-string starting at addr, expanding abbreviations and
// handling the 10-bit ZSCII escape, and returns the decoded text plus the
// number of bytes consumed from addr (always a multiple of 2 - the count of
// 16-bit z-words read, including the terminating one).
func Decode(core *zcore.Core, addr uint32, alphabets *Alphabets) (string, uint32) {
	return decode(core, addr, alphabets, true)
}

// decode does the actual work; abbreviationsAllowed is false while already
// unpacking an abbreviation's own text, so a nested reference is caught
// instead of recursing.
func decode(core *zcore.Core, addr uint32, alphabets *Alphabets, abbreviationsAllowed bool) (string, uint32) {
	var zchrStream []uint8
	bytesRead := uint32(0)
	ptr := addr

	for {
		halfWord := core.ReadHalfWord(ptr)
		bytesRead += 2
		ptr += 2

		zchrStream = append(zchrStream, uint8((halfWord>>10)&0b11111))
		zchrStream = append(zchrStream, uint8((halfWord>>5)&0b11111))
		zchrStream = append(zchrStream, uint8(halfWord&0b11111))

		if halfWord&0b1000_0000_0000_0000 != 0 {
			break
		}
	}

	version := core.Version
	baseAlphabet := alphaA0
	currentAlphabet := alphaA0
	nextAlphabet := alphaA0

	var out strings.Builder

	for i := 0; i < len(zchrStream); i++ {
		zchr := zchrStream[i]
		currentAlphabet = nextAlphabet
		nextAlphabet = baseAlphabet

		switch {
		case zchr == 0:
			out.WriteByte(' ')

		case zchr == 1 && version == 1:
			out.WriteByte('\n')

		case (zchr == 1 && version >= 2) || (zchr == 2 && version >= 3) || (zchr == 3 && version >= 3):
			if !abbreviationsAllowed {
				panic(NestedAbbreviationError{"abbreviation string references another abbreviation"})
			}
			i++
			if i >= len(zchrStream) {
				panic(NestedAbbreviationError{"truncated abbreviation reference"})
			}
			out.WriteString(expandAbbreviation(core, alphabets, zchr, zchrStream[i]))

		case zchr == 2 && version <= 2:
			nextAlphabet = alphabet((int(nextAlphabet) + 1) % 3)

		case zchr == 3 && version <= 2:
			nextAlphabet = alphabet((int(nextAlphabet) + 2) % 3)

		case zchr == 4 && version <= 2:
			baseAlphabet = alphabet((int(baseAlphabet) + 1) % 3)
			nextAlphabet = baseAlphabet

		case zchr == 4 && version >= 3:
			nextAlphabet = alphabet((int(nextAlphabet) + 1) % 3)

		case zchr == 5 && version <= 2:
			baseAlphabet = alphabet((int(baseAlphabet) + 2) % 3)
			nextAlphabet = baseAlphabet

		case zchr == 5 && version >= 3:
			nextAlphabet = alphabet((int(nextAlphabet) + 2) % 3)

		case currentAlphabet == alphaA2 && zchr == 6:
			// 10-bit ZSCII literal: next two z-chars are the top 5 and
			// bottom 5 bits of a single ZSCII code.
			if i+2 >= len(zchrStream) {
				panic(NestedAbbreviationError{"truncated 10-bit ZSCII literal"})
			}
			top := zchrStream[i+1]
			bottom := zchrStream[i+2]
			i += 2
			code := uint16(top)<<5 | uint16(bottom)
			out.WriteRune(zsciiRune(core, uint8(code)))

		default:
			var table *[26]byte
			switch currentAlphabet {
			case alphaA0:
				table = &alphabets.A0
			case alphaA1:
				table = &alphabets.A1
			default:
				table = &alphabets.A2
			}
			out.WriteByte(table[zchr-6])
		}
	}

	return out.String(), bytesRead
}

// expandAbbreviation resolves an abbreviation-table reference (z is the
// escape z-char 1-3, x the following z-char) to its decoded text.
// Abbreviation strings may not reference further abbreviations.
func expandAbbreviation(core *zcore.Core, alphabets *Alphabets, z, x uint8) string {
	abbrIx := uint32(32*(z-1) + x)
	entryAddr := uint32(core.AbbreviationTableBase) + 2*abbrIx
	wordAddr := core.ReadHalfWord(entryAddr)
	strAddr := 2 * uint32(wordAddr)

	text, _ := decode(core, strAddr, alphabets, false)
	return text
}

// ToZChars maps text to raw 5-bit z-character values, inserting alphabet
// shifts and the 10-bit escape as needed. It never expands or introduces
// abbreviations - that's purely a decode-side compression.
func ToZChars(core *zcore.Core, text string, alphabets *Alphabets) []uint8 {
	var zchars []uint8

	for _, r := range text {
		switch {
		case r == ' ':
			zchars = append(zchars, 0)
		case r < 256 && indexIn(alphabets.A0, byte(r), false) >= 0:
			zchars = append(zchars, uint8(indexIn(alphabets.A0, byte(r), false))+6)
		case r < 256 && indexIn(alphabets.A1, byte(r), false) >= 0:
			zchars = append(zchars, 4, uint8(indexIn(alphabets.A1, byte(r), false))+6)
		case r < 256 && indexIn(alphabets.A2, byte(r), true) >= 0:
			zchars = append(zchars, 5, uint8(indexIn(alphabets.A2, byte(r), true))+6)
		default:
			code, ok := UnicodeToZscii(core, r)
			if !ok {
				code = '?'
			}
			zchars = append(zchars, 5, 6, code>>5, code&0b11111)
		}
	}

	return zchars
}

// indexIn returns the table index of b, or -1. With skipEscapeSlot set (for
// A2) index 0 is skipped: zchr 6 in A2 is the 10-bit escape, never a literal
// character. In A0/A1 index 0 is an ordinary letter.
func indexIn(table [26]byte, b byte, skipEscapeSlot bool) int {
	start := 0
	if skipEscapeSlot {
		start = 1
	}
	for i := start; i < len(table); i++ {
		if table[i] == b {
			return i
		}
	}
	return -1
}

// PackZChars packs a stream of 5-bit z-characters into big-endian 16-bit
// z-words, three characters per word, padding with the shift-5 padding
// character up to a multiple of 3 and then up to minZWords words, and sets
// the terminator bit on the final word. When the input is longer than
// minZWords words it is truncated (dictionary encoding).
func PackZChars(zchars []uint8, minZWords int) []uint8 {
	padded := append([]uint8{}, zchars...)
	for len(padded)%3 != 0 {
		padded = append(padded, 5)
	}
	for minZWords > 0 && len(padded)/3 < minZWords {
		padded = append(padded, 5, 5, 5)
	}
	if minZWords > 0 && len(padded)/3 > minZWords {
		padded = padded[:minZWords*3]
	}

	out := make([]uint8, len(padded)/3*2)
	for i := 0; i < len(padded); i += 3 {
		word := uint16(padded[i])<<10 | uint16(padded[i+1])<<5 | uint16(padded[i+2])
		binary.BigEndian.PutUint16(out[i/3*2:], word)
	}
	if len(out) >= 2 {
		out[len(out)-2] |= 0b1000_0000
	}
	return out
}

// Encode converts text into a packed Z-string suitable for a dictionary
// lookup: lower-cased, then truncated/padded to dictWordLength z-words (2
// for v1-3, 3 for v4+ per the Standard).
func Encode(core *zcore.Core, text string, alphabets *Alphabets, dictWordLength int) []uint8 {
	zchars := ToZChars(core, strings.ToLower(text), alphabets)
	maxChars := dictWordLength * 3
	if len(zchars) > maxChars {
		zchars = zchars[:maxChars]
	}
	return PackZChars(zchars, dictWordLength)
}

// zsciiRune resolves a ZSCII code from the 10-bit literal escape to a
// Unicode rune: codes 32-126 are plain ASCII, 155-251 fall through to the
// extra-character translation table (custom or default).
func zsciiRune(core *zcore.Core, code uint8) rune {
	if code >= 32 && code <= 126 {
		return rune(code)
	}
	if code == 13 {
		return '\n'
	}
	if r, ok := ZsciiToUnicode(core, code); ok {
		return r
	}
	return '?'
}
