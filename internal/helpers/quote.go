package helpers

import "unicode/utf8"

const hexChars = "0123456789ABCDEF"

// Quotes a string for embedding in JSON output (source maps and the
// serialized AST). Everything outside printable ASCII is escaped so the
// result is pure ASCII.
func QuoteForJSON(text string) []byte {
	bytes := make([]byte, 0, len(text)+2)
	bytes = append(bytes, '"')

	for i := 0; i < len(text); {
		c, width := DecodeWTF8Rune(text[i:])

		// Fast path: a run of characters that don't need escaping
		if c >= 0x20 && c <= 0x7E && c != '\\' && c != '"' {
			start := i
			i += width
			for i < len(text) {
				c := text[i]
				if c < 0x20 || c > 0x7E || c == '\\' || c == '"' {
					break
				}
				i++
			}
			bytes = append(bytes, text[start:i]...)
			continue
		}
		i += width

		switch c {
		case '\b':
			bytes = append(bytes, "\\b"...)
		case '\f':
			bytes = append(bytes, "\\f"...)
		case '\n':
			bytes = append(bytes, "\\n"...)
		case '\r':
			bytes = append(bytes, "\\r"...)
		case '\t':
			bytes = append(bytes, "\\t"...)
		case '\\':
			bytes = append(bytes, "\\\\"...)
		case '"':
			bytes = append(bytes, "\\\""...)
		default:
			if c == utf8.RuneError && width <= 1 {
				c = 0xFFFD
			}
			bytes = appendUnicodeEscape(bytes, c)
		}
	}

	return append(bytes, '"')
}

// Same as "QuoteForJSON(UTF16ToString(text))" except that lone surrogates
// survive the round trip as "\uD800"-style escapes.
func QuoteUTF16ForJSON(text []uint16) []byte {
	bytes := make([]byte, 0, len(text)+2)
	bytes = append(bytes, '"')

	for _, c := range text {
		switch {
		case c == '\\':
			bytes = append(bytes, "\\\\"...)
		case c == '"':
			bytes = append(bytes, "\\\""...)
		case c == '\n':
			bytes = append(bytes, "\\n"...)
		case c >= 0x20 && c <= 0x7E:
			bytes = append(bytes, byte(c))
		default:
			bytes = append(bytes, '\\', 'u', hexChars[c>>12], hexChars[(c>>8)&15], hexChars[(c>>4)&15], hexChars[c&15])
		}
	}

	return append(bytes, '"')
}

func appendUnicodeEscape(bytes []byte, c rune) []byte {
	if c <= 0xFFFF {
		return append(bytes, '\\', 'u', hexChars[c>>12], hexChars[(c>>8)&15], hexChars[(c>>4)&15], hexChars[c&15])
	}
	c -= 0x10000
	lo := 0xD800 + ((c >> 10) & 0x3FF)
	hi := 0xDC00 + (c & 0x3FF)
	return append(bytes,
		'\\', 'u', hexChars[lo>>12], hexChars[(lo>>8)&15], hexChars[(lo>>4)&15], hexChars[lo&15],
		'\\', 'u', hexChars[hi>>12], hexChars[(hi>>8)&15], hexChars[(hi>>4)&15], hexChars[hi&15])
}
