package js_printer

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/jspipe/jspipe/internal/compat"
)

const hexChars = "0123456789ABCDEF"

// Escapes used no matter which quote surrounds the text
func fixedEscape(c uint16) string {
	switch c {
	case '\x07':
		// Not "\a", which is invalid
		return "\\x07"
	case '\b':
		return "\\b"
	case '\t':
		return "\\t"
	case '\f':
		return "\\f"
	case '\r':
		return "\\r"
	case '\v':
		return "\\v"
	case '\x1B':
		return "\\x1B"
	case '\\':
		return "\\\\"
	case '\u2028':
		return "\\u2028"
	case '\u2029':
		return "\\u2029"
	case '\uFEFF':
		return "\\uFEFF"
	}
	return ""
}

// Case-insensitive check for the text that would close a script tag
func startsWithScript(text []uint16) bool {
	const script = "script"
	if len(text) < len(script) {
		return false
	}
	for i := 0; i < len(script); i++ {
		c := text[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != uint16(script[i]) {
			return false
		}
	}
	return true
}

func appendUnicodeEscape(js []byte, c uint16) []byte {
	return append(js, '\\', 'u', hexChars[c>>12], hexChars[c>>8&15], hexChars[c>>4&15], hexChars[c&15])
}

// Writes the body of a string literal that is delimited by "quote"
func (p *printer) printUnquotedUTF16(text []uint16, quote rune) {
	js := p.js
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escape := fixedEscape(c); escape != "" {
			js = append(js, escape...)
			continue
		}

		switch {
		case c == 0:
			// "\0" followed by a digit would read as an octal escape
			if i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
				js = append(js, "\\x00"...)
			} else {
				js = append(js, "\\0"...)
			}

		case c == '\n':
			if quote == '`' {
				js = append(js, '\n')
			} else {
				js = append(js, "\\n"...)
			}

		case rune(c) == quote:
			js = append(js, '\\', byte(c))

		case c == '$' && quote == '`' && i+1 < len(text) && text[i+1] == '{':
			js = append(js, '\\', '$')

		case c == '/' && i > 0 && text[i-1] == '<' && startsWithScript(text[i+1:]):
			js = append(js, '\\', '/')

		case c < 0x20:
			js = append(js, '\\', 'x', hexChars[c>>4], hexChars[c&15])

		case c < utf8.RuneSelf:
			js = append(js, byte(c))

		case utf16.IsSurrogate(rune(c)):
			if i+1 < len(text) {
				if r := utf16.DecodeRune(rune(c), rune(text[i+1])); r != utf8.RuneError {
					js = utf8.AppendRune(js, r)
					i++
					continue
				}
			}
			// A lone surrogate has no UTF-8 encoding
			js = appendUnicodeEscape(js, c)

		default:
			js = utf8.AppendRune(js, rune(c))
		}
	}
	p.js = js
}

// Picks the quote that needs the fewest escapes. Ties go to '"', then '\''.
func (p *printer) bestQuote(text []uint16, allowBacktick bool) byte {
	single, double, backtick := 0, 0, 0
	for i, c := range text {
		switch c {
		case '\n':
			// A template literal holds the newline without a backslash
			if p.options.MinifySyntax {
				backtick--
			}
		case '\'':
			single++
		case '"':
			double++
		case '`':
			backtick++
		case '$':
			if i+1 < len(text) && text[i+1] == '{' {
				backtick++
			}
		}
	}

	quote, cost := byte('"'), double
	if single < cost {
		quote, cost = '\'', single
	}
	if allowBacktick && backtick < cost {
		quote = '`'
	}
	return quote
}

func (p *printer) printQuotedUTF16(text []uint16, allowBacktick bool) {
	allowBacktick = allowBacktick && !p.options.UnsupportedFeatures.Has(compat.TemplateLiteral)
	quote := p.bestQuote(text, allowBacktick)
	p.js = append(p.js, quote)
	p.printUnquotedUTF16(text, rune(quote))
	p.js = append(p.js, quote)
}
