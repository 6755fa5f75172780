package minifier

import (
	"fmt"
	"math"

	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

func foldConstants(ctx *js_pass.Context, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			switch e := expr.Data.(type) {
			case *js_ast.EUnary:
				if result, ok := foldUnary(e); ok {
					return js_ast.Expr{Loc: expr.Loc, Data: result}
				}

			case *js_ast.EBinary:
				warnAboutNaN(w, expr.Loc, e)
				if result, ok := foldBinary(e); ok {
					return js_ast.Expr{Loc: expr.Loc, Data: result}
				}
				if result, ok := foldLogical(e); ok {
					return result
				}

			case *js_ast.EIf:
				// "true ? a : b" => "a"
				if boolean, sideEffects, ok := js_ast.ToBooleanWithSideEffects(e.Test.Data); ok && sideEffects == js_ast.NoSideEffects {
					if boolean {
						return e.Yes
					}
					return e.No
				}
			}
			return expr
		},
	}), nil
}

func typeofLiteral(data js_ast.E) (string, bool) {
	switch data.(type) {
	case *js_ast.ENull:
		return "object", true
	case *js_ast.EUndefined:
		return "undefined", true
	case *js_ast.EBoolean:
		return "boolean", true
	case *js_ast.ENumber:
		return "number", true
	case *js_ast.EBigInt:
		return "bigint", true
	case *js_ast.EString:
		return "string", true
	case *js_ast.EFunction, *js_ast.EArrow:
		return "function", true
	}
	return "", false
}

func foldUnary(e *js_ast.EUnary) (js_ast.E, bool) {
	switch e.Op {
	case js_ast.UnOpNot:
		// "!0" stays as is since it's the shortest form of "true"
		if _, ok := e.Value.Data.(*js_ast.ENumber); ok {
			return nil, false
		}
		if boolean, sideEffects, ok := js_ast.ToBooleanWithSideEffects(e.Value.Data); ok && sideEffects == js_ast.NoSideEffects {
			return &js_ast.EBoolean{Value: !boolean}, true
		}

	case js_ast.UnOpVoid:
		// "void 0" is how undefined is printed
		if _, ok := e.Value.Data.(*js_ast.ENumber); ok {
			return nil, false
		}
		switch e.Value.Data.(type) {
		case *js_ast.ENull, *js_ast.EUndefined, *js_ast.EBoolean, *js_ast.EString:
			return &js_ast.EUndefined{}, true
		}

	case js_ast.UnOpTypeof:
		if name, ok := typeofLiteral(e.Value.Data); ok {
			return &js_ast.EString{Value: helpers.StringToUTF16(name)}, true
		}

	case js_ast.UnOpPos:
		if value, ok := js_ast.ToNumberWithoutSideEffects(e.Value.Data); ok {
			return &js_ast.ENumber{Value: value}, true
		}

	case js_ast.UnOpNeg:
		// Negative zero and NaN keep their original form
		if number, ok := e.Value.Data.(*js_ast.ENumber); ok {
			if number.Value == 0 || math.IsNaN(number.Value) {
				return nil, false
			}
			return &js_ast.ENumber{Value: -number.Value}, true
		}
		if value, ok := js_ast.ToNumberWithoutSideEffects(e.Value.Data); ok {
			return &js_ast.ENumber{Value: -value}, true
		}

	case js_ast.UnOpCpl:
		if value, ok := js_ast.ToNumberWithoutSideEffects(e.Value.Data); ok {
			return &js_ast.ENumber{Value: float64(^js_ast.ToInt32(value))}, true
		}
	}
	return nil, false
}

func foldBinary(e *js_ast.EBinary) (js_ast.E, bool) {
	switch e.Op {
	case js_ast.BinOpAdd:
		if result := foldStringAddition(e.Left, e.Right); result != nil {
			return result, true
		}
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: left + right}, true
		}

	case js_ast.BinOpSub:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: left - right}, true
		}

	case js_ast.BinOpMul:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: left * right}, true
		}

	case js_ast.BinOpDiv:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: left / right}, true
		}

	case js_ast.BinOpRem:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: math.Mod(left, right)}, true
		}

	case js_ast.BinOpPow:
		// Go's "math.Pow" differs from JavaScript for a base of 1 or -1 and an
		// infinite or NaN exponent
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok &&
			!math.IsNaN(right) && !math.IsInf(right, 0) && !math.IsNaN(left) {
			return &js_ast.ENumber{Value: math.Pow(left, right)}, true
		}

	case js_ast.BinOpShl:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: float64(js_ast.ToInt32(left) << (js_ast.ToUint32(right) & 31))}, true
		}

	case js_ast.BinOpShr:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: float64(js_ast.ToInt32(left) >> (js_ast.ToUint32(right) & 31))}, true
		}

	case js_ast.BinOpUShr:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: float64(js_ast.ToUint32(left) >> (js_ast.ToUint32(right) & 31))}, true
		}

	case js_ast.BinOpBitwiseAnd:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: float64(js_ast.ToInt32(left) & js_ast.ToInt32(right))}, true
		}

	case js_ast.BinOpBitwiseOr:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: float64(js_ast.ToInt32(left) | js_ast.ToInt32(right))}, true
		}

	case js_ast.BinOpBitwiseXor:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.ENumber{Value: float64(js_ast.ToInt32(left) ^ js_ast.ToInt32(right))}, true
		}

	case js_ast.BinOpLt:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.EBoolean{Value: left < right}, true
		}

	case js_ast.BinOpLe:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.EBoolean{Value: left <= right}, true
		}

	case js_ast.BinOpGt:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.EBoolean{Value: left > right}, true
		}

	case js_ast.BinOpGe:
		if left, right, ok := js_ast.ExtractNumericValues(e.Left, e.Right); ok {
			return &js_ast.EBoolean{Value: left >= right}, true
		}

	case js_ast.BinOpStrictEq, js_ast.BinOpStrictNe:
		equal, ok := js_ast.CheckEqualityIfNoSideEffects(e.Left.Data, e.Right.Data)
		if !ok && isNullOrUndefined(e.Left.Data) && isNullOrUndefined(e.Right.Data) {
			_, leftIsNull := e.Left.Data.(*js_ast.ENull)
			_, rightIsNull := e.Right.Data.(*js_ast.ENull)
			equal, ok = leftIsNull == rightIsNull, true
		}
		if ok {
			return &js_ast.EBoolean{Value: equal == (e.Op == js_ast.BinOpStrictEq)}, true
		}

	case js_ast.BinOpLooseEq, js_ast.BinOpLooseNe:
		equal, ok := js_ast.CheckEqualityIfNoSideEffects(e.Left.Data, e.Right.Data)
		if !ok && isNullOrUndefined(e.Left.Data) && isNullOrUndefined(e.Right.Data) {
			equal, ok = true, true
		}
		if ok {
			return &js_ast.EBoolean{Value: equal == (e.Op == js_ast.BinOpLooseEq)}, true
		}
	}
	return nil, false
}

// "void 0" is kept as a unary expression, so it counts as undefined here
func isNullOrUndefined(data js_ast.E) bool {
	switch e := data.(type) {
	case *js_ast.ENull, *js_ast.EUndefined:
		return true
	case *js_ast.EUnary:
		if e.Op == js_ast.UnOpVoid {
			_, ok := e.Value.Data.(*js_ast.ENumber)
			return ok
		}
	}
	return false
}

// "'a' + 'b'" => "'ab'"
// "'a' + 1" => "'a1'"
// "x + 'a' + 'b'" => "x + 'ab'"
func foldStringAddition(left js_ast.Expr, right js_ast.Expr) js_ast.E {
	r, ok := js_ast.ToStringWithoutSideEffects(right.Data)
	if !ok {
		return nil
	}
	_, rightIsString := right.Data.(*js_ast.EString)

	switch l := left.Data.(type) {
	case *js_ast.EString:
		return &js_ast.EString{Value: joinStrings(l.Value, r)}

	case *js_ast.EBinary:
		if l.Op != js_ast.BinOpAdd || !rightIsString {
			break
		}
		if inner, ok := l.Right.Data.(*js_ast.EString); ok {
			return &js_ast.EBinary{
				Op:    js_ast.BinOpAdd,
				Left:  l.Left,
				Right: js_ast.Expr{Loc: l.Right.Loc, Data: &js_ast.EString{Value: joinStrings(inner.Value, r)}},
			}
		}

	default:
		if rightIsString {
			if value, ok := js_ast.ToStringWithoutSideEffects(left.Data); ok {
				return &js_ast.EString{Value: joinStrings(value, r)}
			}
		}
	}
	return nil
}

func joinStrings(a []uint16, b []uint16) []uint16 {
	data := make([]uint16, len(a)+len(b))
	copy(data, a)
	copy(data[len(a):], b)
	return data
}

// "true && a" => "a"
// "null ?? a" => "a"
func foldLogical(e *js_ast.EBinary) (js_ast.Expr, bool) {
	switch e.Op {
	case js_ast.BinOpLogicalAnd, js_ast.BinOpLogicalOr:
		if boolean, sideEffects, ok := js_ast.ToBooleanWithSideEffects(e.Left.Data); ok && sideEffects == js_ast.NoSideEffects {
			if boolean == (e.Op == js_ast.BinOpLogicalAnd) {
				return e.Right, true
			}
			return e.Left, true
		}

	case js_ast.BinOpNullishCoalescing:
		if isNullOrUndefined, sideEffects, ok := js_ast.ToNullOrUndefinedWithSideEffects(e.Left.Data); ok && sideEffects == js_ast.NoSideEffects {
			if isNullOrUndefined {
				return e.Right, true
			}
			return e.Left, true
		}
	}
	return js_ast.Expr{}, false
}

func warnAboutNaN(w *js_pass.Walker, loc logger.Loc, e *js_ast.EBinary) {
	var op string
	switch e.Op {
	case js_ast.BinOpLooseEq:
		op = "=="
	case js_ast.BinOpLooseNe:
		op = "!="
	case js_ast.BinOpStrictEq:
		op = "==="
	case js_ast.BinOpStrictNe:
		op = "!=="
	default:
		return
	}
	for _, side := range [2]js_ast.Expr{e.Left, e.Right} {
		if number, ok := side.Data.(*js_ast.ENumber); ok && math.IsNaN(number.Value) {
			w.Ctx().AddWarning(logger.MsgID_JS_EqualsNaN, loc,
				fmt.Sprintf("Comparison with NaN using the %q operator here is always %v", op, op[0] == '!'))
			return
		}
	}
}
