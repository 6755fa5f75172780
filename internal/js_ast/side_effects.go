package js_ast

import "github.com/jspipe/jspipe/internal/logger"

// Reports whether the expression evaluates to a primitive value, whether or
// not evaluating it has side effects
func IsPrimitiveWithSideEffects(data E) bool {
	switch e := data.(type) {
	case *ENull, *EUndefined, *EBoolean, *ENumber, *EBigInt, *EString:
		return true

	case *EUnary:
		// Every unary operator yields a number, bigint, boolean, string or undefined
		return true

	case *EBinary:
		switch e.Op {
		case BinOpLogicalAnd, BinOpLogicalOr, BinOpNullishCoalescing,
			BinOpLogicalAndAssign, BinOpLogicalOrAssign, BinOpNullishCoalescingAssign:
			// The result is one of the operands
			return IsPrimitiveWithSideEffects(e.Left.Data) && IsPrimitiveWithSideEffects(e.Right.Data)
		case BinOpComma:
			return IsPrimitiveWithSideEffects(e.Right.Data)
		}
		return binaryOpResult(e.Op) != opResultOther

	case *EIf:
		return IsPrimitiveWithSideEffects(e.Yes.Data) && IsPrimitiveWithSideEffects(e.No.Data)
	}
	return false
}

// Reports whether evaluating the expression can't throw or have any other
// observable effect. Reads of identifiers that "isUnbound" reports are kept.
func ExprCanBeRemovedIfUnused(expr Expr, isUnbound func(Ref) bool) bool {
	return SimplifyUnusedExpr(expr, isUnbound).Data == nil
}

// Returns the parts of an expression whose result is unused that still have
// to be evaluated, or an empty expression if nothing does. Reading an
// undeclared global throws, so identifiers that "isUnbound" reports stay.
func SimplifyUnusedExpr(expr Expr, isUnbound func(Ref) bool) Expr {
	switch e := expr.Data.(type) {
	case *ENull, *EUndefined, *EMissing, *EBoolean, *ENumber, *EBigInt,
		*EString, *EThis, *ERegExp, *EFunction, *EArrow, *EImportMeta:
		return Expr{}

	case *EIdentifier:
		if !isUnbound(e.Ref) {
			return Expr{}
		}

	case *ETemplate:
		if e.Tag == nil {
			return simplifyUnusedTemplate(e, isUnbound)
		}

	case *EArray:
		return simplifyUnusedArray(expr, e, isUnbound)

	case *EObject:
		return simplifyUnusedObject(expr, e, isUnbound)

	case *EIf:
		yes := SimplifyUnusedExpr(e.Yes, isUnbound)
		no := SimplifyUnusedExpr(e.No, isUnbound)
		switch {
		case yes.Data == nil && no.Data == nil:
			return SimplifyUnusedExpr(e.Test, isUnbound)
		case yes.Data == nil:
			// "a() ? 1 : b()" => "a() || b()"
			return JoinWithLeftAssociativeOp(BinOpLogicalOr, e.Test, no)
		case no.Data == nil:
			// "a() ? b() : 2" => "a() && b()"
			return JoinWithLeftAssociativeOp(BinOpLogicalAnd, e.Test, yes)
		case yes.Data != e.Yes.Data || no.Data != e.No.Data:
			return Expr{Loc: expr.Loc, Data: &EIf{Test: e.Test, Yes: yes, No: no}}
		}

	case *EUnary:
		switch e.Op {
		case UnOpVoid, UnOpNot:
			// Neither converts its operand in a way that runs code
			return SimplifyUnusedExpr(e.Value, isUnbound)
		case UnOpTypeof:
			// "typeof x" never throws, even for undeclared globals
			if _, ok := e.Value.Data.(*EIdentifier); ok {
				return Expr{}
			}
			return SimplifyUnusedExpr(e.Value, isUnbound)
		}

	case *EBinary:
		return simplifyUnusedBinary(expr, e, isUnbound)

	case *ECall:
		if value, ok := simplifyUnusedIIFE(e); ok {
			return value
		}
	}
	return expr
}

func simplifyUnusedBoth(e *EBinary, isUnbound func(Ref) bool) Expr {
	return JoinWithComma(SimplifyUnusedExpr(e.Left, isUnbound), SimplifyUnusedExpr(e.Right, isUnbound))
}

func simplifyUnusedBinary(expr Expr, e *EBinary, isUnbound func(Ref) bool) Expr {
	switch e.Op {
	case BinOpStrictEq, BinOpStrictNe, BinOpComma:
		return simplifyUnusedBoth(e, isUnbound)

	case BinOpLooseEq, BinOpLooseNe:
		// Loose equality only converts objects, which can run "valueOf"
		if IsPrimitiveWithSideEffects(e.Left.Data) && IsPrimitiveWithSideEffects(e.Right.Data) {
			return simplifyUnusedBoth(e, isUnbound)
		}

	case BinOpLogicalAnd, BinOpLogicalOr, BinOpNullishCoalescing:
		// The left side still decides whether the right side runs
		right := SimplifyUnusedExpr(e.Right, isUnbound)
		if right.Data == nil {
			return SimplifyUnusedExpr(e.Left, isUnbound)
		}
		left := e.Left
		if e.Op != BinOpNullishCoalescing {
			left = SimplifyBooleanExpr(left)
		}
		if left.Data != e.Left.Data || right.Data != e.Right.Data {
			return Expr{Loc: expr.Loc, Data: &EBinary{Op: e.Op, Left: left, Right: right}}
		}
	}
	return expr
}

// Template parts of a known primitive type convert to strings without running
// code and can be dropped. The others stay in a template so "toString" is
// still called on them.
func simplifyUnusedTemplate(e *ETemplate, isUnbound func(Ref) bool) Expr {
	var result Expr
	var pending *ETemplate
	var pendingLoc logger.Loc
	flush := func() {
		if pending != nil {
			result = JoinWithComma(result, Expr{Loc: pendingLoc, Data: pending})
			pending = nil
		}
	}

	for _, part := range e.Parts {
		if KnownPrimitiveType(part.Value) != PrimitiveUnknown {
			flush()
			result = JoinWithComma(result, SimplifyUnusedExpr(part.Value, isUnbound))
			continue
		}
		if pending == nil {
			pending = &ETemplate{}
			pendingLoc = part.Value.Loc
		}
		pending.Parts = append(pending.Parts, TemplatePart{Value: part.Value})
	}
	flush()
	return result
}

func simplifyUnusedArray(expr Expr, e *EArray, isUnbound func(Ref) bool) Expr {
	hasSpread := false
	for _, item := range e.Items {
		if _, ok := item.Data.(*ESpread); ok {
			hasSpread = true
			break
		}
	}

	// A spread runs the iterator, so the array stays and only its other items
	// are trimmed
	if hasSpread {
		items := make([]Expr, 0, len(e.Items))
		for _, item := range e.Items {
			if item = SimplifyUnusedExpr(item, isUnbound); item.Data != nil {
				items = append(items, item)
			}
		}
		return Expr{Loc: expr.Loc, Data: &EArray{Items: items, IsSingleLine: e.IsSingleLine}}
	}

	var result Expr
	for _, item := range e.Items {
		result = JoinWithComma(result, SimplifyUnusedExpr(item, isUnbound))
	}
	return result
}

func simplifyUnusedObject(expr Expr, e *EObject, isUnbound func(Ref) bool) Expr {
	// A spread can run getters
	for _, property := range e.Properties {
		if property.Kind == PropertySpread {
			return expr
		}
	}

	var result Expr
	for _, property := range e.Properties {
		if property.IsComputed {
			// The key is still converted with "ToString"
			result = JoinWithComma(result, Expr{Loc: property.Key.Loc, Data: &EBinary{
				Op:    BinOpAdd,
				Left:  property.Key,
				Right: Expr{Loc: property.Key.Loc, Data: &EString{}},
			}})
		}
		if property.Value != nil {
			result = JoinWithComma(result, SimplifyUnusedExpr(*property.Value, isUnbound))
		}
	}
	return result
}

// Shortens calls to argument-less functions defined in place. Returns false
// if the call can't be shortened.
func simplifyUnusedIIFE(e *ECall) (Expr, bool) {
	if len(e.Args) != 0 {
		return Expr{}, false
	}

	switch target := e.Target.Data.(type) {
	case *EFunction:
		// "(function() {})()"
		if len(target.Fn.Args) == 0 && len(target.Fn.Body.Stmts) == 0 {
			return Expr{}, true
		}

	case *EArrow:
		if len(target.Args) != 0 || target.IsAsync {
			break
		}
		switch len(target.Body.Stmts) {
		case 0:
			// "(() => {})()"
			return Expr{}, true
		case 1:
			switch s := target.Body.Stmts[0].Data.(type) {
			case *SExpr:
				// "(() => { a() })()" => "a()"
				return s.Value, true
			case *SReturn:
				// "(() => a())()" => "a()"
				if s.Value != nil {
					return *s.Value, true
				}
				return Expr{}, true
			}
		}
	}
	return Expr{}, false
}
