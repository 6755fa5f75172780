package js_printer

import (
	"math"
	"strconv"
	"strings"

	"github.com/jspipe/jspipe/internal/js_ast"
)

func (p *printer) printNumber(value float64, level js_ast.L) {
	switch {
	case math.IsNaN(value):
		p.printKeyword("NaN")

	case math.IsInf(value, 0):
		p.printInfinity(value < 0, level)

	case !math.Signbit(value):
		p.printKeyword(p.formatNonNegative(value))
		p.prevNumEnd = len(p.js)

	// Checking the sign bit instead of "value < 0" catches "-0" too.
	// "(-1).toString" needs the parentheses.
	case level >= js_ast.LPrefix:
		p.print("(-")
		p.print(p.formatNonNegative(-value))
		p.print(")")

	default:
		p.printSpaceBeforeOperator(js_ast.UnOpNeg)
		p.print("-")
		p.print(p.formatNonNegative(-value))
		p.prevNumEnd = len(p.js)
	}
}

func (p *printer) printInfinity(negative bool, level js_ast.L) {
	wrap := (p.options.MinifySyntax && level >= js_ast.LMultiply) || (negative && level >= js_ast.LPrefix)
	p.openParen(wrap)
	if negative {
		p.printSpaceBeforeOperator(js_ast.UnOpNeg)
		p.print("-")
	} else {
		p.printSpaceBeforeIdentifier()
	}
	switch {
	case !p.options.MinifySyntax:
		p.print("Infinity")
	case p.options.MinifyWhitespace:
		p.print("1/0")
	default:
		p.print("1 / 0")
	}
	p.closeParen(wrap)
}

// Returns the shorter of the plain and the exponent form. Ties go to the
// plain form, so "1200" stays but "1000" becomes "1e3".
func (p *printer) formatNonNegative(value float64) string {
	if value < 1000 && value == math.Trunc(value) {
		return strconv.Itoa(int(value))
	}

	digits, exponent := decimalDigits(value)
	plain := p.plainDecimal(digits, exponent)
	if scientific := digits + "e" + strconv.Itoa(exponent); len(scientific) < len(plain) {
		return scientific
	}
	return plain
}

// Splits a finite positive number into its shortest round-tripping digits
// and a power of ten, so that the value is "digits * 10**exponent"
func decimalDigits(value float64) (string, int) {
	mantissa, exponentText, _ := strings.Cut(strconv.FormatFloat(value, 'e', -1, 64), "e")
	exponent, _ := strconv.Atoi(exponentText)
	whole, fraction, _ := strings.Cut(mantissa, ".")
	return whole + fraction, exponent - len(fraction)
}

func (p *printer) plainDecimal(digits string, exponent int) string {
	switch {
	case exponent >= 0:
		return digits + strings.Repeat("0", exponent)

	case -exponent < len(digits):
		point := len(digits) + exponent
		return digits[:point] + "." + digits[point:]

	default:
		zeros := strings.Repeat("0", -exponent-len(digits))
		if p.options.MinifyWhitespace {
			return "." + zeros + digits
		}
		return "0." + zeros + digits
	}
}
