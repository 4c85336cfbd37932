// Package dictionary parses a story's dictionary table and tokenises input
// text against it, as used by the tokenise/sread/aread opcodes.
package dictionary

import (
	"bytes"
	"sort"

	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zstring"
)

// Header is the dictionary's fixed preamble: the word-separator set and the
// encoded-entry layout.
type Header struct {
	Separators  []uint8
	EntryLength uint8
	EntryCount  int16
}

// Entry is one parsed dictionary word.
type Entry struct {
	Address     uint16
	EncodedWord []uint8
	DecodedWord string
	Data        []uint8
}

// Dictionary is a parsed dictionary table, kept sorted by encoded word so
// Find can binary search it (the Standard requires dictionaries be sorted;
// interpreters are expected to exploit that rather than scan linearly).
type Dictionary struct {
	Header  Header
	entries []Entry
}

// Parse reads the dictionary table at baseAddress.
func Parse(core *zcore.Core, baseAddress uint32, alphabets *zstring.Alphabets) *Dictionary {
	ptr := baseAddress
	numSeparators := core.ReadByte(ptr)

	separators := make([]uint8, numSeparators)
	for i := range separators {
		separators[i] = core.ReadByte(ptr + 1 + uint32(i))
	}
	ptr += 1 + uint32(numSeparators)

	entryLength := core.ReadByte(ptr)
	entryCount := int16(core.ReadHalfWord(ptr + 1))
	ptr += 3

	encodedWordLength := uint32(4)
	if core.Version > 3 {
		encodedWordLength = 6
	}

	entries := make([]Entry, 0, entryCount)
	negative := entryCount < 0
	count := int(entryCount)
	if negative {
		// A negative count means the entries are NOT pre-sorted; we sort
		// them ourselves below regardless, so the distinction only affects
		// how many entries follow (abs value).
		count = -count
	}

	for i := 0; i < count; i++ {
		entryAddr := ptr + uint32(i)*uint32(entryLength)
		encodedWord := append([]uint8{}, core.ReadSlice(entryAddr, entryAddr+encodedWordLength)...)
		decodedWord, _ := zstring.Decode(core, entryAddr, alphabets)
		entries = append(entries, Entry{
			Address:     uint16(entryAddr),
			EncodedWord: encodedWord,
			DecodedWord: decodedWord,
			Data:        core.ReadSlice(entryAddr+encodedWordLength, entryAddr+uint32(entryLength)),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].EncodedWord, entries[j].EncodedWord) < 0
	})

	return &Dictionary{
		Header: Header{
			Separators:  separators,
			EntryLength: entryLength,
			EntryCount:  entryCount,
		},
		entries: entries,
	}
}

// Find looks up an encoded word by binary search over the sorted entries,
// returning its byte address or 0 when absent.
func (d *Dictionary) Find(encodedWord []uint8) uint16 {
	lo, hi := 0, len(d.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch bytes.Compare(d.entries[mid].EncodedWord, encodedWord) {
		case 0:
			return d.entries[mid].Address
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Word is one token produced by Tokenise: its raw text, where it started in
// the text buffer, and the resolved dictionary entry address (0 if absent).
type Word struct {
	Text              string
	StartOffset       uint8
	DictionaryAddress uint16
}

// isSeparator reports whether chr splits words the way space always does,
// per the dictionary's own separator list, but as a token in its own right
// rather than being discarded.
func isSeparator(chr uint8, separators []uint8) bool {
	for _, s := range separators {
		if chr == s {
			return true
		}
	}
	return false
}

// Tokenise splits text on spaces and the dictionary's declared separators
// (separators become their own single-character tokens), encodes each
// token, and looks it up in dict. dictWordLength is 2 for v1-3, 3 for v4+.
func Tokenise(core *zcore.Core, alphabets *zstring.Alphabets, text string, dict *Dictionary, dictWordLength int) []Word {
	var words []Word
	var current []byte
	currentStart := 0

	flush := func(end int) {
		if len(current) == 0 {
			return
		}
		token := string(current)
		encoded := zstring.Encode(core, token, alphabets, dictWordLength)
		words = append(words, Word{
			Text:              token,
			StartOffset:       uint8(currentStart),
			DictionaryAddress: dict.Find(encoded),
		})
		current = current[:0]
	}

	for i := 0; i < len(text); i++ {
		chr := text[i]
		switch {
		case chr == ' ':
			flush(i)
			currentStart = i + 1
		case isSeparator(chr, dict.Header.Separators):
			flush(i)
			sep := string(chr)
			encoded := zstring.Encode(core, sep, alphabets, dictWordLength)
			words = append(words, Word{
				Text:              sep,
				StartOffset:       uint8(i),
				DictionaryAddress: dict.Find(encoded),
			})
			currentStart = i + 1
		default:
			if len(current) == 0 {
				currentStart = i
			}
			current = append(current, chr)
		}
	}
	flush(len(text))

	return words
}
