package js_printer

import (
	"fmt"
	"strings"

	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
)

type printExprFlags uint16

const (
	forbidCall printExprFlags = 1 << iota
	forbidIn
	hasNonOptionalChainParent
	exprResultIsUnused
	isFollowedByOf
	isInsideForAwait
	isCallTarget
)

func (p *printer) printExpr(expr js_ast.Expr, level js_ast.L, flags printExprFlags) {
	switch expr.Data.(type) {
	case *js_ast.EIdentifier, *js_ast.EImportIdentifier:
		// Mapped together with their original name
	default:
		p.addSourceMapping(expr.Loc)
	}

	switch e := expr.Data.(type) {
	case *js_ast.EMissing:

	case *js_ast.EUndefined, *js_ast.EError:
		p.printUndefined(level)

	case *js_ast.ESuper:
		p.printKeyword("super")

	case *js_ast.ENull:
		p.printKeyword("null")

	case *js_ast.EThis:
		p.printKeyword("this")

	case *js_ast.ENewTarget:
		p.printKeyword("new.target")

	case *js_ast.EImportMeta:
		p.printKeyword("import.meta")

	case *js_ast.EBoolean:
		p.printBoolean(e.Value, level)

	case *js_ast.ENumber:
		p.printNumber(e.Value, level)

	case *js_ast.EBigInt:
		p.printKeyword(e.Value)
		p.print("n")

	case *js_ast.EString:
		p.printQuotedUTF16(e.Value, true /* allowBacktick */)

	case *js_ast.ETemplate:
		p.printTemplate(e)

	case *js_ast.ERegExp:
		p.printRegExp(e.Value)

	case *js_ast.EIdentifier:
		name := p.renamer.NameForSymbol(e.Ref)

		// "for (let of x)" and "for (async of x)" don't parse as a for-of loop
		wrap := len(p.js) == p.forOfInitStart && (name == "let" ||
			(flags&isFollowedByOf != 0 && flags&isInsideForAwait == 0 && name == "async"))
		p.openParen(wrap)
		p.printMappedSymbol(expr.Loc, e.Ref)
		p.closeParen(wrap)

	case *js_ast.EImportIdentifier:
		p.printMappedSymbol(expr.Loc, e.Ref)

	case *js_ast.ESpread:
		p.print("...")
		p.printExpr(e.Value, js_ast.LComma, 0)

	case *js_ast.ENew:
		p.printNew(e, level)

	case *js_ast.ECall:
		p.printCall(e, level, flags)

	case *js_ast.ERequire:
		wrap := level >= js_ast.LNew || flags&forbidCall != 0
		p.openParen(wrap)
		p.printKeyword("require(")
		p.printPath(e.ImportRecordIndex)
		p.print(")")
		p.closeParen(wrap)

	case *js_ast.EImport:
		wrap := level >= js_ast.LNew || flags&forbidCall != 0
		p.openParen(wrap)
		p.printKeyword("import(")
		p.printExpr(e.Expr, js_ast.LComma, 0)
		p.print(")")
		p.closeParen(wrap)

	case *js_ast.EDot:
		p.printDot(e, flags)

	case *js_ast.EIndex:
		flags, wrap := optionalChainFlags(e.OptionalChain, flags)
		p.openParen(wrap)
		p.printExpr(e.Target, js_ast.LPostfix, flags&(forbidCall|hasNonOptionalChainParent))
		if e.OptionalChain == js_ast.OptionalChainStart {
			p.print("?.")
		}
		p.print("[")
		p.printExpr(e.Index, js_ast.LLowest, 0)
		p.print("]")
		p.closeParen(wrap)

	case *js_ast.EIf:
		wrap := level >= js_ast.LConditional
		if wrap {
			flags &^= forbidIn
		}
		p.openParen(wrap)
		p.printExpr(e.Test, js_ast.LConditional, flags&forbidIn)
		p.printSpace()
		p.print("?")
		p.printSpace()
		p.printExpr(e.Yes, js_ast.LYield, 0)
		p.printSpace()
		p.print(":")
		p.printSpace()
		p.printExpr(e.No, js_ast.LYield, flags&forbidIn)
		p.closeParen(wrap)

	case *js_ast.EArrow:
		p.printArrow(e, level, flags)

	case *js_ast.EFunction:
		wrap := p.atDeclarationStart()
		p.openParen(wrap)
		p.printFunction(e.Fn, "")
		p.closeParen(wrap)

	case *js_ast.EClass:
		wrap := p.atDeclarationStart()
		p.openParen(wrap)
		p.printClass(e.Class, "")
		p.closeParen(wrap)

	case *js_ast.EArray:
		p.printArray(e)

	case *js_ast.EObject:
		wrap := p.atBlockStart()
		p.openParen(wrap)
		p.printObject(e)
		p.closeParen(wrap)

	case *js_ast.EAwait:
		wrap := level >= js_ast.LPrefix
		p.openParen(wrap)
		p.printKeyword("await")
		p.printSpace()
		p.printExpr(e.Value, js_ast.LPrefix-1, 0)
		p.closeParen(wrap)

	case *js_ast.EYield:
		wrap := level >= js_ast.LAssign
		p.openParen(wrap)
		p.printKeyword("yield")
		if e.Value != nil {
			if e.IsStar {
				p.print("*")
			}
			p.printSpace()
			p.printExpr(*e.Value, js_ast.LYield, 0)
		}
		p.closeParen(wrap)

	case *js_ast.EUnary:
		p.printUnary(e, level)

	case *js_ast.EBinary:
		p.printBinary(e, level, flags)

	default:
		panic(fmt.Sprintf("Unexpected expression of type %T", expr.Data))
	}
}

func (p *printer) printUndefined(level js_ast.L) {
	if level >= js_ast.LPrefix {
		p.print("(void 0)")
		return
	}
	p.printKeyword("void 0")
	p.prevNumEnd = len(p.js)
}

// Minified booleans are "!0" and "!1"
func (p *printer) printBoolean(value bool, level js_ast.L) {
	if !p.options.MinifySyntax {
		if value {
			p.printKeyword("true")
		} else {
			p.printKeyword("false")
		}
		return
	}

	wrap := level >= js_ast.LPrefix
	p.openParen(wrap)
	if value {
		p.print("!0")
	} else {
		p.print("!1")
	}
	p.closeParen(wrap)
}

func (p *printer) printTemplate(e *js_ast.ETemplate) {
	if e.Tag == nil && len(e.Parts) == 0 && p.options.MinifySyntax {
		p.printQuotedUTF16(e.Head, true /* allowBacktick */)
		return
	}

	if e.Tag != nil {
		// A tag can't be an optional chain
		if js_ast.IsOptionalChain(*e.Tag) {
			p.print("(")
			p.printExpr(*e.Tag, js_ast.LLowest, isCallTarget)
			p.print(")")
		} else {
			p.printExpr(*e.Tag, js_ast.LPostfix, isCallTarget)
		}
	}

	// Tagged templates see the raw text, so it's printed as written
	printText := func(cooked []uint16, raw string) {
		if e.Tag != nil {
			p.print(raw)
		} else {
			p.printUnquotedUTF16(cooked, '`')
		}
	}

	p.print("`")
	printText(e.Head, e.HeadRaw)
	for _, part := range e.Parts {
		p.print("${")
		p.printExpr(part.Value, js_ast.LLowest, 0)
		p.print("}")
		printText(part.Tail, part.TailRaw)
	}
	p.print("`")
}

func (p *printer) printRegExp(value string) {
	// Keep "/" from forming a comment with the previous "/" and "<" from
	// forming "</script"
	if n := len(p.js); n > 0 {
		last := p.js[n-1]
		if last == '/' || (last == '<' && len(value) >= 7 && strings.EqualFold(value[:7], "/script")) {
			p.print(" ")
		}
	}
	p.print(value)

	// An identifier right after this would become part of the flags
	p.prevRegExpEnd = len(p.js)
}

// Returns the flags for the target of a member access or call and whether
// the expression needs parentheses. "(a?.b).c" differs from "a?.b.c", so an
// optional chain below a non-optional parent must be wrapped.
func optionalChainFlags(chain js_ast.OptionalChain, flags printExprFlags) (printExprFlags, bool) {
	if chain == js_ast.OptionalChainNone {
		return flags | hasNonOptionalChainParent, false
	}
	return flags &^ hasNonOptionalChainParent, flags&hasNonOptionalChainParent != 0
}

func (p *printer) printDot(e *js_ast.EDot, flags printExprFlags) {
	flags, wrap := optionalChainFlags(e.OptionalChain, flags)
	p.openParen(wrap)
	p.printExpr(e.Target, js_ast.LPostfix, flags&(forbidCall|hasNonOptionalChainParent))

	isOptional := e.OptionalChain == js_ast.OptionalChainStart
	if !js_lexer.IsIdentifier(e.Name) {
		if isOptional {
			p.print("?.")
		}
		p.print("[")
		p.addSourceMapping(e.NameLoc)
		p.printQuotedUTF8(e.Name, true /* allowBacktick */)
		p.print("]")
		p.closeParen(wrap)
		return
	}

	switch {
	case isOptional:
		p.print("?.")
	case p.prevNumEnd == len(p.js):
		// "1.toString" is a syntax error
		p.print(" .")
	default:
		p.print(".")
	}
	p.addSourceMapping(e.NameLoc)
	p.print(e.Name)
	p.closeParen(wrap)
}

func (p *printer) printArgs(args []js_ast.Expr) {
	p.print("(")
	for i, arg := range args {
		p.printCommaBefore(i)
		p.printExpr(arg, js_ast.LComma, 0)
	}
	p.print(")")
}

func (p *printer) printNew(e *js_ast.ENew, level js_ast.L) {
	wrap := level >= js_ast.LCall
	p.openParen(wrap)
	p.printKeyword("new")
	p.printSpace()
	p.printExpr(e.Target, js_ast.LNew, forbidCall)

	// "new Foo" can drop its "()" unless something follows that would attach
	// to "Foo" instead
	if !p.options.MinifyWhitespace || len(e.Args) > 0 || level >= js_ast.LPostfix {
		p.printArgs(e.Args)
	}
	p.closeParen(wrap)
}

func (p *printer) printCall(e *js_ast.ECall, level js_ast.L, flags printExprFlags) {
	targetFlags, wrap := optionalChainFlags(e.OptionalChain, flags)
	targetFlags &= hasNonOptionalChainParent
	wrap = wrap || level >= js_ast.LNew || flags&forbidCall != 0
	p.openParen(wrap)

	// An unbound "eval" called directly would see local scope
	if !e.IsDirectEval && p.isUnboundEval(e.Target) {
		if p.options.MinifyWhitespace {
			p.print("(0,")
		} else {
			p.print("(0, ")
		}
		p.printExpr(e.Target, js_ast.LPostfix, isCallTarget)
		p.print(")")
	} else {
		p.printExpr(e.Target, js_ast.LPostfix, isCallTarget|targetFlags)
	}

	if e.OptionalChain == js_ast.OptionalChainStart {
		p.print("?.")
	}
	p.printArgs(e.Args)
	p.closeParen(wrap)
}

func (p *printer) isUnboundEval(value js_ast.Expr) bool {
	id, ok := value.Data.(*js_ast.EIdentifier)
	if !ok {
		return false
	}
	// Unbound symbols are never renamed
	symbol := p.symbols.Get(js_ast.FollowSymbols(p.symbols, id.Ref))
	return symbol.Kind == js_ast.SymbolUnbound && symbol.OriginalName == "eval"
}

func (p *printer) printArrow(e *js_ast.EArrow, level js_ast.L, flags printExprFlags) {
	wrap := level >= js_ast.LAssign
	p.openParen(wrap)
	if e.IsAsync {
		p.printKeyword("async")
		p.printSpace()
	}
	p.printFnArgs(e.Args, e.HasRestArg, true /* isArrow */)
	p.printSpace()
	p.print("=>")
	p.printSpace()

	if value, ok := arrowExprBody(e); ok {
		p.arrowExprStart = len(p.js)
		p.printExpr(value, js_ast.LComma, flags&forbidIn)
	} else {
		p.printBlock(e.Body.Loc, e.Body.Stmts)
	}
	p.closeParen(wrap)
}

// The returned value of an arrow that was written with an expression body
func arrowExprBody(e *js_ast.EArrow) (js_ast.Expr, bool) {
	if !e.PreferExpr || len(e.Body.Stmts) != 1 {
		return js_ast.Expr{}, false
	}
	if s, ok := e.Body.Stmts[0].Data.(*js_ast.SReturn); ok && s.Value != nil {
		return *s.Value, true
	}
	return js_ast.Expr{}, false
}

func (p *printer) printArray(e *js_ast.EArray) {
	p.print("[")
	if len(e.Items) > 0 {
		multiLine := !e.IsSingleLine
		if multiLine {
			p.options.Indent++
		}
		for i, item := range e.Items {
			if i != 0 {
				p.print(",")
				if !multiLine {
					p.printSpace()
				}
			}
			if multiLine {
				p.printNewline()
				p.printIndent()
			}
			p.printExpr(item, js_ast.LComma, 0)

			// "[a, ,]" keeps its hole only with the extra comma
			if _, ok := item.Data.(*js_ast.EMissing); ok && i == len(e.Items)-1 {
				p.print(",")
			}
		}
		if multiLine {
			p.options.Indent--
			p.printNewline()
			p.printIndent()
		}
	}
	p.print("]")
}

func (p *printer) printObject(e *js_ast.EObject) {
	p.print("{")
	if len(e.Properties) > 0 {
		multiLine := !e.IsSingleLine
		if multiLine {
			p.options.Indent++
		}
		for i, item := range e.Properties {
			if i != 0 {
				p.print(",")
			}
			if multiLine {
				p.printNewline()
				p.printIndent()
			} else {
				p.printSpace()
			}
			p.printProperty(item)
		}
		if multiLine {
			p.options.Indent--
			p.printNewline()
			p.printIndent()
		} else {
			p.printSpace()
		}
	}
	p.print("}")
}

// Shorthand properties need the key to match the printed name of the value
func (p *printer) canUseShorthand(key []uint16, ref js_ast.Ref) bool {
	return !p.options.UnsupportedFeatures.Has(compat.ObjectExtensions) &&
		helpers.UTF16EqualsString(key, p.renamer.NameForSymbol(ref))
}

func (p *printer) printProperty(item js_ast.Property) {
	if item.Kind == js_ast.PropertySpread {
		p.print("...")
		p.printExpr(*item.Value, js_ast.LComma, 0)
		return
	}

	if item.IsStatic {
		p.printKeyword("static")
		p.printSpace()
	}
	switch item.Kind {
	case js_ast.PropertyGet:
		p.printKeyword("get")
		p.printSpace()
	case js_ast.PropertySet:
		p.printKeyword("set")
		p.printSpace()
	}

	var fn *js_ast.EFunction
	if item.Value != nil {
		fn, _ = item.Value.Data.(*js_ast.EFunction)
	}
	if fn != nil && item.IsMethod {
		if fn.Fn.IsAsync {
			p.printKeyword("async")
			p.printSpace()
		}
		if fn.Fn.IsGenerator {
			p.print("*")
		}
	}

	if p.printPropertyKey(item) {
		p.printDefaultValue(item.Initializer)
		return
	}

	if item.Value != nil {
		if fn != nil && (item.IsMethod || item.Kind != js_ast.PropertyNormal) {
			p.printFn(fn.Fn)
			return
		}
		p.print(":")
		p.printSpace()
		p.printExpr(*item.Value, js_ast.LComma, 0)
	}
	p.printDefaultValue(item.Initializer)
}

// Prints the key and returns true if the property was written in shorthand
// form, in which case the value must not be printed
func (p *printer) printPropertyKey(item js_ast.Property) bool {
	if item.IsComputed {
		p.print("[")
		p.printExpr(item.Key, js_ast.LComma, 0)
		p.print("]")
		return false
	}

	key, ok := item.Key.Data.(*js_ast.EString)
	if !ok {
		p.printExpr(item.Key, js_ast.LLowest, 0)
		return false
	}

	p.addSourceMapping(item.Key.Loc)
	if !js_lexer.IsIdentifierUTF16(key.Value) {
		p.printQuotedUTF16(key.Value, false /* allowBacktick */)
		return false
	}
	p.printKeyword(helpers.UTF16ToString(key.Value))

	if item.Value == nil || item.IsMethod || item.Kind != js_ast.PropertyNormal {
		return false
	}
	switch e := item.Value.Data.(type) {
	case *js_ast.EIdentifier:
		return p.canUseShorthand(key.Value, e.Ref)
	case *js_ast.EImportIdentifier:
		return p.canUseShorthand(key.Value, e.Ref)
	}
	return false
}

func (p *printer) printUnary(e *js_ast.EUnary, level js_ast.L) {
	entry := js_ast.OpTable[e.Op]
	wrap := level >= entry.Level
	p.openParen(wrap)

	if e.Op.IsPrefix() {
		p.printOperator(e.Op)
		if entry.IsKeyword {
			p.printSpace()
		}
		p.printExpr(e.Value, js_ast.LPrefix-1, 0)
	} else {
		p.printExpr(e.Value, js_ast.LPostfix-1, 0)
		p.printOperator(e.Op)
	}
	p.closeParen(wrap)
}

// "??" can't be mixed with "||" or "&&" without parentheses
func isLogicalOrAnd(expr js_ast.Expr) bool {
	e, ok := expr.Data.(*js_ast.EBinary)
	return ok && (e.Op == js_ast.BinOpLogicalOr || e.Op == js_ast.BinOpLogicalAnd)
}

// The left side of "**" can't be a unary expression, and several values
// are printed as one
func (p *printer) isUnaryLikeOperand(expr js_ast.Expr) bool {
	switch e := expr.Data.(type) {
	case *js_ast.EUnary:
		return e.Op.UnaryAssignTarget() == js_ast.AssignTargetNone
	case *js_ast.EAwait, *js_ast.EUndefined, *js_ast.ENumber:
		// "void 0" and negative numbers
		return true
	case *js_ast.EBoolean:
		// "!0" and "!1"
		return p.options.MinifySyntax
	}
	return false
}

func (p *printer) printBinary(e *js_ast.EBinary, level js_ast.L, flags printExprFlags) {
	entry := js_ast.OpTable[e.Op]
	wrap := level >= entry.Level || (e.Op == js_ast.BinOpIn && flags&forbidIn != 0)

	// "({} = x)" would otherwise start with a block
	if _, ok := e.Left.Data.(*js_ast.EObject); ok && p.atBlockStart() {
		wrap = true
	}
	if wrap {
		flags &^= forbidIn
	}
	p.openParen(wrap)

	leftLevel := entry.Level - 1
	rightLevel := entry.Level - 1
	if e.Op.IsRightAssociative() {
		leftLevel = entry.Level
	}
	if e.Op.IsLeftAssociative() {
		rightLevel = entry.Level
	}
	switch e.Op {
	case js_ast.BinOpNullishCoalescing:
		if isLogicalOrAnd(e.Left) {
			leftLevel = js_ast.LPrefix
		}
		if isLogicalOrAnd(e.Right) {
			rightLevel = js_ast.LPrefix
		}
	case js_ast.BinOpPow:
		if p.isUnaryLikeOperand(e.Left) {
			leftLevel = js_ast.LCall
		}
	}

	// Both sides of a comma operator are unused when the whole expression is
	leftFlags := flags & forbidIn
	rightFlags := flags & forbidIn
	if e.Op == js_ast.BinOpComma {
		leftFlags |= exprResultIsUnused
		rightFlags |= flags & exprResultIsUnused
	}

	p.printExpr(e.Left, leftLevel, leftFlags)
	if e.Op != js_ast.BinOpComma {
		p.printSpace()
	}
	p.printOperator(e.Op)
	p.printSpace()
	p.printExpr(e.Right, rightLevel, rightFlags)
	p.closeParen(wrap)
}
