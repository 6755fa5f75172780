package js_ast

import (
	"math"
	"strconv"

	"github.com/jspipe/jspipe/internal/helpers"
)

type PrimitiveType uint8

const (
	PrimitiveUnknown PrimitiveType = iota
	PrimitiveMixed                 // Some primitive, but it's not known which
	PrimitiveNull
	PrimitiveUndefined
	PrimitiveBoolean
	PrimitiveNumber
	PrimitiveString
	PrimitiveBigInt
)

// Whether the type is known exactly
func (t PrimitiveType) isExact() bool {
	return t != PrimitiveUnknown && t != PrimitiveMixed
}

// The type of an expression that evaluates to either "a" or "b"
func MergedKnownPrimitiveTypes(a Expr, b Expr) PrimitiveType {
	x := KnownPrimitiveType(a)
	y := KnownPrimitiveType(b)
	switch {
	case x == PrimitiveUnknown || y == PrimitiveUnknown:
		return PrimitiveUnknown
	case x == y:
		return x
	}
	return PrimitiveMixed
}

type opResult uint8

const (
	opResultOther   opResult = iota
	opResultBoolean          // Comparisons, "in" and "instanceof"
	opResultNumeric          // Number or bigint, and possibly an exception
	opResultAdd              // String, number or bigint
)

// Classifies the result of a binary operator. Compound assignments act like
// the operator they apply.
func binaryOpResult(op OpCode) opResult {
	if binary, ok := op.AssignToBinary(); ok {
		op = binary
	}
	switch op {
	case BinOpLt, BinOpLe, BinOpGt, BinOpGe, BinOpIn, BinOpInstanceof,
		BinOpLooseEq, BinOpLooseNe, BinOpStrictEq, BinOpStrictNe:
		return opResultBoolean
	case BinOpSub, BinOpMul, BinOpDiv, BinOpRem, BinOpPow,
		BinOpShl, BinOpShr, BinOpUShr,
		BinOpBitwiseAnd, BinOpBitwiseOr, BinOpBitwiseXor:
		return opResultNumeric
	case BinOpAdd:
		return opResultAdd
	}
	return opResultOther
}

func KnownPrimitiveType(a Expr) PrimitiveType {
	switch e := a.Data.(type) {
	case *ENull:
		return PrimitiveNull
	case *EUndefined:
		return PrimitiveUndefined
	case *EBoolean:
		return PrimitiveBoolean
	case *ENumber:
		return PrimitiveNumber
	case *EString:
		return PrimitiveString
	case *EBigInt:
		return PrimitiveBigInt

	case *ETemplate:
		if e.Tag == nil {
			return PrimitiveString
		}

	case *EIf:
		return MergedKnownPrimitiveTypes(e.Yes, e.No)

	case *EUnary:
		return unaryPrimitiveType(e)

	case *EBinary:
		return binaryPrimitiveType(e)
	}
	return PrimitiveUnknown
}

func unaryPrimitiveType(e *EUnary) PrimitiveType {
	switch e.Op {
	case UnOpVoid:
		return PrimitiveUndefined
	case UnOpTypeof:
		return PrimitiveString
	case UnOpNot, UnOpDelete:
		return PrimitiveBoolean
	case UnOpPos:
		// "+1n" throws
		return PrimitiveNumber
	case UnOpNeg, UnOpCpl:
		switch value := KnownPrimitiveType(e.Value); {
		case value == PrimitiveBigInt:
			return PrimitiveBigInt
		case value.isExact():
			return PrimitiveNumber
		}
	}
	// Number or bigint
	return PrimitiveMixed
}

func binaryPrimitiveType(e *EBinary) PrimitiveType {
	switch e.Op {
	case BinOpLogicalOr, BinOpLogicalAnd:
		return MergedKnownPrimitiveTypes(e.Left, e.Right)

	case BinOpNullishCoalescing:
		left := KnownPrimitiveType(e.Left)
		right := KnownPrimitiveType(e.Right)
		switch {
		case left == PrimitiveNull || left == PrimitiveUndefined:
			return right
		case left.isExact():
			return left
		case left == PrimitiveMixed && right != PrimitiveUnknown:
			return PrimitiveMixed
		}
		return PrimitiveUnknown

	case BinOpAssign, BinOpComma:
		return KnownPrimitiveType(e.Right)
	}

	switch binaryOpResult(e.Op) {
	case opResultBoolean:
		return PrimitiveBoolean

	case opResultNumeric:
		return PrimitiveMixed

	case opResultAdd:
		left := KnownPrimitiveType(e.Left)
		right := KnownPrimitiveType(e.Right)
		switch {
		case left == PrimitiveString || right == PrimitiveString:
			return PrimitiveString
		case left == PrimitiveBigInt && right == PrimitiveBigInt:
			return PrimitiveBigInt
		case left.isExact() && left != PrimitiveBigInt && right.isExact() && right != PrimitiveBigInt:
			return PrimitiveNumber
		}
		return PrimitiveMixed
	}
	return PrimitiveUnknown
}

// "0n", "0x0n" and "0_0n" are the falsy bigints
func isZeroBigInt(text string) bool {
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '0' || c == '_':
		case i == 1 && text[0] == '0' && (c|0x20 == 'x' || c|0x20 == 'o' || c|0x20 == 'b'):
		default:
			return false
		}
	}
	return true
}

// The ECMAScript ToInt32 conversion
func ToInt32(f float64) int32 {
	if i := int32(f); float64(i) == f {
		return i
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	i := int32(uint32(math.Mod(math.Abs(f), 1<<32)))
	if math.Signbit(f) {
		return -i
	}
	return i
}

func ToUint32(f float64) uint32 {
	return uint32(ToInt32(f))
}

// Reports whether the expression always evaluates to a 32-bit integer
func isInt32OrUint32(data E) bool {
	switch e := data.(type) {
	case *EUnary:
		return e.Op == UnOpCpl

	case *EBinary:
		switch e.Op {
		case BinOpBitwiseAnd, BinOpBitwiseOr, BinOpBitwiseXor, BinOpShl, BinOpShr, BinOpUShr:
			return true
		case BinOpLogicalOr, BinOpLogicalAnd:
			return isInt32OrUint32(e.Left.Data) && isInt32OrUint32(e.Right.Data)
		}

	case *EIf:
		return isInt32OrUint32(e.Yes.Data) && isInt32OrUint32(e.No.Data)
	}
	return false
}

// The value of "+data" for literals whose conversion can't run code
func ToNumberWithoutSideEffects(data E) (float64, bool) {
	switch e := data.(type) {
	case *ENull:
		return 0, true
	case *EUndefined:
		return math.NaN(), true
	case *EBoolean:
		if e.Value {
			return 1, true
		}
		return 0, true
	case *ENumber:
		return e.Value, true
	}
	return 0, false
}

// The value of "String(data)" for literals, or false if it can't be known
func ToStringWithoutSideEffects(data E) ([]uint16, bool) {
	var text string
	switch e := data.(type) {
	case *EString:
		return e.Value, true
	case *ENull:
		text = "null"
	case *EUndefined:
		text = "undefined"
	case *EBoolean:
		text = strconv.FormatBool(e.Value)
	case *ENumber:
		str, ok := numberToString(e.Value)
		if !ok {
			return nil, false
		}
		text = str
	default:
		return nil, false
	}
	return helpers.StringToUTF16(text), true
}

// Formats a number like "Number.prototype.toString". Only values whose Go
// formatting is known to match are handled.
func numberToString(value float64) (string, bool) {
	abs := math.Abs(value)
	switch {
	case math.IsNaN(value):
		return "NaN", true
	case math.IsInf(value, 0):
		if value < 0 {
			return "-Infinity", true
		}
		return "Infinity", true
	case value == 0:
		// Includes "-0"
		return "0", true
	case abs < 1e21 && (abs >= 1e-6 || value == math.Trunc(value)):
		return strconv.FormatFloat(value, 'f', -1, 64), true
	}
	return "", false
}

func extractNumericValue(data E) (float64, bool) {
	if e, ok := data.(*ENumber); ok {
		return e.Value, true
	}
	return 0, false
}

func ExtractNumericValues(left Expr, right Expr) (float64, float64, bool) {
	a, okA := extractNumericValue(left.Data)
	b, okB := extractNumericValue(right.Data)
	if okA && okB {
		return a, b, true
	}
	return 0, 0, false
}

// Compares two literals. The second result is false when nothing is known,
// including when the literals have different types.
func CheckEqualityIfNoSideEffects(left E, right E) (equal bool, ok bool) {
	switch l := left.(type) {
	case *ENull:
		_, ok = right.(*ENull)
		return ok, ok

	case *EUndefined:
		_, ok = right.(*EUndefined)
		return ok, ok

	case *EBoolean:
		if r, ok := right.(*EBoolean); ok {
			return l.Value == r.Value, true
		}

	case *ENumber:
		if r, ok := right.(*ENumber); ok {
			return l.Value == r.Value, true
		}

	case *EBigInt:
		// "1n" and "0x1n" are equal, so only identical text is known
		if r, ok := right.(*EBigInt); ok && l.Value == r.Value {
			return true, true
		}

	case *EString:
		if r, ok := right.(*EString); ok {
			return helpers.UTF16EqualsUTF16(l.Value, r.Value), true
		}
	}
	return false, false
}

// Reports whether two expressions are the same reference or literal
func ValuesLookTheSame(left E, right E) bool {
	switch a := left.(type) {
	case *EIdentifier:
		b, ok := right.(*EIdentifier)
		return ok && a.Ref == b.Ref

	case *EDot:
		b, ok := right.(*EDot)
		return ok && a.OptionalChain == b.OptionalChain && a.Name == b.Name &&
			ValuesLookTheSame(a.Target.Data, b.Target.Data)

	case *EIndex:
		b, ok := right.(*EIndex)
		return ok && a.OptionalChain == b.OptionalChain &&
			ValuesLookTheSame(a.Target.Data, b.Target.Data) && ValuesLookTheSame(a.Index.Data, b.Index.Data)

	case *EIf:
		b, ok := right.(*EIf)
		return ok && ValuesLookTheSame(a.Test.Data, b.Test.Data) &&
			ValuesLookTheSame(a.Yes.Data, b.Yes.Data) && ValuesLookTheSame(a.No.Data, b.No.Data)

	case *EUnary:
		b, ok := right.(*EUnary)
		return ok && a.Op == b.Op && ValuesLookTheSame(a.Value.Data, b.Value.Data)

	case *EBinary:
		b, ok := right.(*EBinary)
		return ok && a.Op == b.Op &&
			ValuesLookTheSame(a.Left.Data, b.Left.Data) && ValuesLookTheSame(a.Right.Data, b.Right.Data)

	case *ENumber:
		// "0" and "-0" compare equal but aren't interchangeable
		if b, ok := right.(*ENumber); ok && a.Value == 0 && b.Value == 0 {
			return math.Signbit(a.Value) == math.Signbit(b.Value)
		}
	}

	equal, ok := CheckEqualityIfNoSideEffects(left, right)
	return ok && equal
}

type SideEffects uint8

const (
	CouldHaveSideEffects SideEffects = iota
	NoSideEffects
)

// Reports whether "data" is null or undefined when that is known statically
func ToNullOrUndefinedWithSideEffects(data E) (isNullOrUndefined bool, sideEffects SideEffects, ok bool) {
	switch e := data.(type) {
	case *ENull, *EUndefined:
		return true, NoSideEffects, true

	case *EBoolean, *ENumber, *EString, *ERegExp, *EFunction, *EArrow, *EBigInt:
		return false, NoSideEffects, true

	case *EObject, *EArray, *EClass:
		return false, CouldHaveSideEffects, true

	case *EUnary:
		// Every unary operator but "void" yields a number, bigint, boolean or string
		return e.Op == UnOpVoid, CouldHaveSideEffects, true

	case *EBinary:
		if e.Op == BinOpComma {
			if isNullOrUndefined, _, ok := ToNullOrUndefinedWithSideEffects(e.Right.Data); ok {
				return isNullOrUndefined, CouldHaveSideEffects, true
			}
		} else if binaryOpResult(e.Op) != opResultOther {
			return false, CouldHaveSideEffects, true
		}
	}
	return false, NoSideEffects, false
}

// Reports the truthiness of "data" when that is known statically
func ToBooleanWithSideEffects(data E) (boolean bool, sideEffects SideEffects, ok bool) {
	switch e := data.(type) {
	case *ENull, *EUndefined:
		return false, NoSideEffects, true
	case *EBoolean:
		return e.Value, NoSideEffects, true
	case *ENumber:
		return e.Value != 0 && !math.IsNaN(e.Value), NoSideEffects, true
	case *EBigInt:
		return !isZeroBigInt(e.Value), NoSideEffects, true
	case *EString:
		return len(e.Value) > 0, NoSideEffects, true
	case *EFunction, *EArrow, *ERegExp:
		return true, NoSideEffects, true
	case *EObject, *EArray, *EClass:
		return true, CouldHaveSideEffects, true

	case *EUnary:
		switch e.Op {
		case UnOpVoid:
			return false, CouldHaveSideEffects, true
		case UnOpTypeof:
			// Never the empty string, and "typeof x" can't throw
			if _, ok := e.Value.Data.(*EIdentifier); ok {
				return true, NoSideEffects, true
			}
			return true, CouldHaveSideEffects, true
		case UnOpNot:
			if boolean, sideEffects, ok := ToBooleanWithSideEffects(e.Value.Data); ok {
				return !boolean, sideEffects, true
			}
		}

	case *EBinary:
		// The right side decides when it is truthy for "||", falsy for "&&" or
		// last in a comma sequence
		if boolean, _, ok := ToBooleanWithSideEffects(e.Right.Data); ok {
			switch {
			case e.Op == BinOpLogicalOr && boolean,
				e.Op == BinOpLogicalAnd && !boolean,
				e.Op == BinOpComma:
				return boolean, CouldHaveSideEffects, true
			}
		}
	}
	return false, CouldHaveSideEffects, false
}
