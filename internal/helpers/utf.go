package helpers

import (
	"slices"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// JavaScript strings are sequences of UTF-16 code units that may contain
// unpaired surrogates. Converting them to Go strings uses WTF-8, which is
// UTF-8 extended to encode a lone surrogate as its own three-byte sequence.

func StringToUTF16(text string) []uint16 {
	decoded := make([]uint16, 0, len(text))
	for _, c := range text {
		decoded = AppendRuneAsUTF16(decoded, c)
	}
	return decoded
}

func AppendRuneAsUTF16(decoded []uint16, c rune) []uint16 {
	if c <= 0xFFFF {
		// Lone surrogates from WTF-8 input are kept as-is
		return append(decoded, uint16(c))
	}
	return utf16.AppendRune(decoded, c)
}

// Reads the code point at "text[i]", joining a surrogate pair when one starts
// there. Returns the code point and the number of code units it used.
func codePointAt(text []uint16, i int) (rune, int) {
	c := rune(text[i])
	if utf16.IsSurrogate(c) && i+1 < len(text) {
		if joined := utf16.DecodeRune(c, rune(text[i+1])); joined != utf8.RuneError {
			return joined, 2
		}
	}
	return c, 1
}

func appendWTF8(buf []byte, c rune) []byte {
	if utf16.IsSurrogate(c) {
		return append(buf, 0xE0|byte(c>>12), 0x80|byte(c>>6)&0x3F, 0x80|byte(c)&0x3F)
	}
	return utf8.AppendRune(buf, c)
}

func UTF16ToString(text []uint16) string {
	sb := strings.Builder{}
	sb.Grow(len(text))
	var buf [utf8.UTFMax]byte
	for i := 0; i < len(text); {
		c, n := codePointAt(text, i)
		sb.Write(appendWTF8(buf[:0], c))
		i += n
	}
	return sb.String()
}

// Same as "UTF16ToString(text) == str" but without building the string
func UTF16EqualsString(text []uint16, str string) bool {
	// Every code unit takes at least one byte
	if len(text) > len(str) {
		return false
	}
	var buf [utf8.UTFMax]byte
	j := 0
	for i := 0; i < len(text); {
		c, n := codePointAt(text, i)
		encoded := appendWTF8(buf[:0], c)
		if len(str)-j < len(encoded) || str[j:j+len(encoded)] != string(encoded) {
			return false
		}
		i += n
		j += len(encoded)
	}
	return j == len(str)
}

func UTF16EqualsUTF16(a []uint16, b []uint16) bool {
	return slices.Equal(a, b)
}
