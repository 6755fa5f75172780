package js_ast

// Helpers that build or rewrite expressions. None of them modify their
// arguments since passes share unchanged subtrees with their input.

func IsOptionalChain(value Expr) bool {
	switch e := value.Data.(type) {
	case *EDot:
		return e.OptionalChain != OptionalChainNone
	case *EIndex:
		return e.OptionalChain != OptionalChainNone
	case *ECall:
		return e.OptionalChain != OptionalChainNone
	}
	return false
}

func Assign(a Expr, b Expr) Expr {
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpAssign, Left: a, Right: b}}
}

func AssignStmt(a Expr, b Expr) Stmt {
	return Stmt{Loc: a.Loc, Data: &SExpr{Value: Assign(a, b)}}
}

// Returns "!expr", folded when possible so "!!x" doesn't become "!!!x"
func Not(expr Expr) Expr {
	if result, ok := MaybeSimplifyNot(expr); ok {
		return result
	}
	return Expr{Loc: expr.Loc, Data: &EUnary{Op: UnOpNot, Value: expr}}
}

// Returns a simpler equivalent of "!expr", or false if there isn't one
func MaybeSimplifyNot(expr Expr) (Expr, bool) {
	if boolean, sideEffects, ok := ToBooleanWithSideEffects(expr.Data); ok && sideEffects == NoSideEffects {
		return Expr{Loc: expr.Loc, Data: &EBoolean{Value: !boolean}}, true
	}

	switch e := expr.Data.(type) {
	case *EUnary:
		// "!!!a" is "!a" when "!a" is already a boolean
		if e.Op == UnOpNot && KnownPrimitiveType(e.Value) == PrimitiveBoolean {
			return e.Value, true
		}

	case *EBinary:
		// Only the equality operators can be inverted. "!(a < b)" differs from
		// "a >= b" when either side is NaN.
		if e.Op == BinOpComma {
			return Expr{Loc: expr.Loc, Data: &EBinary{Op: BinOpComma, Left: e.Left, Right: Not(e.Right)}}, true
		}
		if inverted, ok := invertedEquality[e.Op]; ok {
			return Expr{Loc: expr.Loc, Data: &EBinary{Op: inverted, Left: e.Left, Right: e.Right}}, true
		}
	}
	return Expr{}, false
}

var invertedEquality = map[OpCode]OpCode{
	BinOpLooseEq:  BinOpLooseNe,
	BinOpLooseNe:  BinOpLooseEq,
	BinOpStrictEq: BinOpStrictNe,
	BinOpStrictNe: BinOpStrictEq,
}

// Builds "a op b" for an associative operator, rotating the tree so that no
// parentheses are needed. "op" must really be associative, which rules out
// "-" among others.
func JoinWithLeftAssociativeOp(op OpCode, a Expr, b Expr) Expr {
	// "(a, b) op c" => "a, b op c"
	if comma, ok := a.Data.(*EBinary); ok && comma.Op == BinOpComma {
		return Expr{Loc: a.Loc, Data: &EBinary{
			Op:    BinOpComma,
			Left:  comma.Left,
			Right: JoinWithLeftAssociativeOp(op, comma.Right, b),
		}}
	}

	// "a op (b op c)" => "(a op b) op c"
	if right, ok := b.Data.(*EBinary); ok && right.Op == op {
		return JoinWithLeftAssociativeOp(op, JoinWithLeftAssociativeOp(op, a, right.Left), right.Right)
	}

	return Expr{Loc: a.Loc, Data: &EBinary{Op: op, Left: a, Right: b}}
}

// Either side may be missing
func JoinWithComma(a Expr, b Expr) Expr {
	switch {
	case a.Data == nil:
		return b
	case b.Data == nil:
		return a
	}
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpComma, Left: a, Right: b}}
}

func JoinAllWithComma(all []Expr) (result Expr) {
	for _, value := range all {
		result = JoinWithComma(result, value)
	}
	return
}

// Rewrites an expression whose value is only used as a condition
func SimplifyBooleanExpr(expr Expr) Expr {
	switch e := expr.Data.(type) {
	case *EUnary:
		if e.Op != UnOpNot {
			break
		}
		// "!!a" => "a"
		if inner, ok := e.Value.Data.(*EUnary); ok && inner.Op == UnOpNot {
			return SimplifyBooleanExpr(inner.Value)
		}
		if value := SimplifyBooleanExpr(e.Value); value.Data != e.Value.Data {
			return Expr{Loc: expr.Loc, Data: &EUnary{Op: UnOpNot, Value: value}}
		}

	case *EBinary:
		return simplifyBooleanBinary(expr, e)

	case *EIf:
		return simplifyBooleanIf(expr, e)
	}
	return expr
}

func simplifyBooleanBinary(expr Expr, e *EBinary) Expr {
	switch e.Op {
	case BinOpStrictEq, BinOpStrictNe, BinOpLooseEq, BinOpLooseNe:
		// An integer is truthy exactly when it isn't zero
		if right, ok := extractNumericValue(e.Right.Data); ok && right == 0 && isInt32OrUint32(e.Left.Data) {
			if e.Op == BinOpStrictNe || e.Op == BinOpLooseNe {
				return e.Left
			}
			return Not(e.Left)
		}

	case BinOpLogicalAnd, BinOpLogicalOr:
		left := SimplifyBooleanExpr(e.Left)
		right := SimplifyBooleanExpr(e.Right)

		// "a && true" and "a || false" test the same thing as "a"
		if boolean, sideEffects, ok := ToBooleanWithSideEffects(right.Data); ok &&
			sideEffects == NoSideEffects && boolean == (e.Op == BinOpLogicalAnd) {
			return left
		}
		if left.Data != e.Left.Data || right.Data != e.Right.Data {
			return Expr{Loc: expr.Loc, Data: &EBinary{Op: e.Op, Left: left, Right: right}}
		}

	case BinOpComma:
		if right := SimplifyBooleanExpr(e.Right); right.Data != e.Right.Data {
			return Expr{Loc: expr.Loc, Data: &EBinary{Op: BinOpComma, Left: e.Left, Right: right}}
		}
	}
	return expr
}

func simplifyBooleanIf(expr Expr, e *EIf) Expr {
	yes := SimplifyBooleanExpr(e.Yes)
	no := SimplifyBooleanExpr(e.No)

	// A constant branch turns the conditional into "&&" or "||":
	//
	//   "a ? true : b"  => "a || b"
	//   "a ? false : b" => "!a && b"
	//   "a ? b : true"  => "!a || b"
	//   "a ? b : false" => "a && b"
	//
	if boolean, sideEffects, ok := ToBooleanWithSideEffects(yes.Data); ok && sideEffects == NoSideEffects {
		if boolean {
			return JoinWithLeftAssociativeOp(BinOpLogicalOr, e.Test, no)
		}
		return JoinWithLeftAssociativeOp(BinOpLogicalAnd, Not(e.Test), no)
	}
	if boolean, sideEffects, ok := ToBooleanWithSideEffects(no.Data); ok && sideEffects == NoSideEffects {
		if boolean {
			return JoinWithLeftAssociativeOp(BinOpLogicalOr, Not(e.Test), yes)
		}
		return JoinWithLeftAssociativeOp(BinOpLogicalAnd, e.Test, yes)
	}

	if yes.Data != e.Yes.Data || no.Data != e.No.Data {
		return Expr{Loc: expr.Loc, Data: &EIf{Test: e.Test, Yes: yes, No: no}}
	}
	return expr
}
