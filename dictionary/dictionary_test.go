package dictionary_test

import (
	"testing"

	"github.com/wrenfield/zigzag/dictionary"
	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zstring"
)

func buildDictionary(t *testing.T, words []string) (*zcore.Core, *zstring.Alphabets, uint32) {
	t.Helper()

	const dictBase = 0x40
	const entryLength = 7 // 4-byte encoded word + 3 bytes data, v3
	size := uint32(dictBase) + 4 + uint32(len(words))*entryLength + 16

	b := make([]uint8, size)
	b[0x00] = 3
	b[0x0e] = uint8(size >> 8)
	b[0x0f] = uint8(size)
	b[0x1a] = 0x00
	b[0x1b] = uint8(size / 2)

	core, err := zcore.Load(b)
	if err != nil {
		t.Fatalf("failed to build core: %v", err)
	}
	alphabets := zstring.DefaultAlphabets(core.Version)

	ptr := uint32(dictBase)
	core.WriteByte(ptr, 3) // 3 separators
	core.WriteByte(ptr+1, '.')
	core.WriteByte(ptr+2, ',')
	core.WriteByte(ptr+3, '"')
	ptr += 4
	core.WriteByte(ptr, entryLength)
	core.WriteHalfWord(ptr+1, uint16(len(words)))
	ptr += 3

	for _, w := range words {
		encoded := zstring.Encode(core, w, alphabets, 2)
		for i, bb := range encoded {
			core.WriteByte(ptr+uint32(i), bb)
		}
		ptr += entryLength
	}

	return core, alphabets, dictBase
}

func TestFindRoundTrip(t *testing.T) {
	words := []string{"zebra", "apple", "mango", "kiwi"}
	core, alphabets, base := buildDictionary(t, words)
	dict := dictionary.Parse(core, base, alphabets)

	for _, w := range words {
		encoded := zstring.Encode(core, w, alphabets, 2)
		if addr := dict.Find(encoded); addr == 0 {
			t.Errorf("word %q not found in dictionary", w)
		}
	}

	missing := zstring.Encode(core, "nonexistent", alphabets, 2)
	if addr := dict.Find(missing); addr != 0 {
		t.Errorf("expected missing word to resolve to 0, got %x", addr)
	}
}

func TestTokeniseSplitsOnSeparatorsAndSpaces(t *testing.T) {
	words := []string{"go", "north"}
	core, alphabets, base := buildDictionary(t, words)
	dict := dictionary.Parse(core, base, alphabets)

	tokens := dictionary.Tokenise(core, alphabets, `go north.`, dict, 2)

	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens (go, north, .), got %d: %+v", len(tokens), tokens)
	}
	if tokens[0].Text != "go" || tokens[0].DictionaryAddress == 0 {
		t.Errorf("unexpected first token: %+v", tokens[0])
	}
	if tokens[1].Text != "north" || tokens[1].DictionaryAddress == 0 {
		t.Errorf("unexpected second token: %+v", tokens[1])
	}
	if tokens[2].Text != "." {
		t.Errorf("expected separator token, got %+v", tokens[2])
	}
}
