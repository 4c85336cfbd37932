package zstring

import "github.com/wrenfield/zigzag/zcore"

// DefaultUnicodeTranslationTable is the Standard's default extra-character
// table: ZSCII codes 155-223 map to accented Latin-1 characters not present
// in the basic 7-bit ZSCII range. A story with a custom table (v5+, header
// extension word 3) overrides this entirely rather than extending it.
var DefaultUnicodeTranslationTable = map[rune]uint8{
	'ä': 155, 'ö': 156, 'ü': 157, 'Ä': 158, 'Ö': 159, 'Ü': 160, 'ß': 161,
	'»': 162, '«': 163, 'ë': 164, 'ï': 165, 'ÿ': 166, 'Ë': 167, 'Ï': 168,
	'á': 169, 'é': 170, 'í': 171, 'ó': 172, 'ú': 173, 'ý': 174, 'Á': 175,
	'É': 176, 'Í': 177, 'Ó': 178, 'Ú': 179, 'Ý': 180, 'à': 181, 'è': 182,
	'ì': 183, 'ò': 184, 'ù': 185, 'À': 186, 'È': 187, 'Ì': 188, 'Ò': 189,
	'Ù': 190, 'â': 191, 'ê': 192, 'î': 193, 'ô': 194, 'û': 195, 'Â': 196,
	'Ê': 197, 'Î': 198, 'Ô': 199, 'Û': 200, 'å': 201, 'Å': 202, 'ø': 203,
	'Ø': 204, 'ã': 205, 'ñ': 206, 'õ': 207, 'Ã': 208, 'Ñ': 209, 'Õ': 210,
	'æ': 211, 'Æ': 212, 'ç': 213, 'Ç': 214, 'þ': 215, 'ð': 216, 'Þ': 217,
	'Ð': 218, '£': 219, 'œ': 220, 'Œ': 221, '¡': 222, '¿': 223,
}

// translationTable picks the story's custom extra-character table if the
// header names one (v5+), otherwise the Standard's default.
func translationTable(core *zcore.Core) map[rune]uint8 {
	if core.Version >= 5 && core.UnicodeExtensionTableBaseAddress != 0 {
		return parseUnicodeTranslationTable(core)
	}
	return DefaultUnicodeTranslationTable
}

// UnicodeToZscii maps a rune to its extra-character ZSCII code (155-251).
func UnicodeToZscii(core *zcore.Core, r rune) (uint8, bool) {
	code, ok := translationTable(core)[r]
	return code, ok
}

// ZsciiToUnicode maps an extra-character ZSCII code (155-251) back to a
// rune.
func ZsciiToUnicode(core *zcore.Core, code uint8) (rune, bool) {
	for r, c := range translationTable(core) {
		if c == code {
			return r, true
		}
	}
	return 0, false
}

// parseUnicodeTranslationTable reads a custom extra-character table: a
// count byte followed by that many 16-bit Unicode code points, assigned
// ZSCII codes 155, 156, ... in order.
func parseUnicodeTranslationTable(core *zcore.Core) map[rune]uint8 {
	result := make(map[rune]uint8)

	count := core.ReadByte(uint32(core.UnicodeExtensionTableBaseAddress))
	start := uint32(core.UnicodeExtensionTableBaseAddress) + 1
	for i := uint32(0); i < uint32(count); i++ {
		cp := core.ReadHalfWord(start + 2*i)
		result[rune(cp)] = uint8(155 + i)
	}

	return result
}
