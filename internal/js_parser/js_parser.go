package js_parser

// This file contains the parser. It runs in two passes. The first pass in this
// file turns tokens into an AST where every identifier is a placeholder ref
// into a table of names. The second pass (see "js_binder.go") builds the
// scope tree, declares symbols and swaps every placeholder for a real ref.
// Keeping the passes separate means a tree decoded from its serialized form
// goes through exactly the same binding logic as a tree parsed from source.

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
	"github.com/jspipe/jspipe/internal/logger"
)

type fnOpts struct {
	allowAwait  bool
	allowYield  bool
	allowReturn bool
}

type parser struct {
	log                      logger.Log
	source                   logger.Source
	lexer                    js_lexer.Lexer
	options                  config.Options
	allowIn                  bool
	currentFnOpts            fnOpts
	latestReturnHadSemicolon bool
	names                    []string
	importRecords            []ast.ImportRecord
}

func (p *parser) addError(loc logger.Loc, text string) {
	p.log.AddError(&p.source, loc, text)
}

func (p *parser) addRangeError(r logger.Range, text string) {
	p.log.AddRangeError(&p.source, r, text)
}

// The name is stored in the tree's name table until the binding pass happens,
// at which point a symbol is generated and the ref points to the symbol
// instead.
func (p *parser) storeNameInRef(name string) js_ast.Ref {
	ref := js_ast.Ref{SourceIndex: js_ast.PlaceholderSourceIndex, InnerIndex: uint32(len(p.names))}
	p.names = append(p.names, name)
	return ref
}

func (p *parser) addImportRecord(kind ast.ImportKind, r logger.Range, path string) uint32 {
	index := uint32(len(p.importRecords))
	p.importRecords = append(p.importRecords, ast.ImportRecord{
		Kind:  kind,
		Range: r,
		Path:  path,
	})
	return index
}

// Names that can't be bindings in strict mode code. Every module is strict.
func (p *parser) checkBindingName(loc logger.Loc, name string) {
	if p.options.IsModule && (js_lexer.StrictModeReservedWords[name] || name == "eval" || name == "arguments") {
		r := js_lexer.RangeOfIdentifier(p.source, loc)
		p.addRangeError(r, fmt.Sprintf("%q cannot be used as an identifier in strict mode", name))
	}
}

// Due to ES6 destructuring patterns, there are many cases where it's
// impossible to distinguish between an array or object literal and a
// destructuring assignment until we hit the "=" operator later on.
// This object defers errors about being in one state or the other
// until we discover which state we're in.
type deferredErrors struct {
	// These are errors for expressions
	invalidExprDefaultValue logger.Range

	// These are errors for destructuring patterns
	invalidBindingCommaAfterSpread logger.Range
}

func (from *deferredErrors) mergeInto(to *deferredErrors) {
	if from.invalidExprDefaultValue.Len > 0 {
		to.invalidExprDefaultValue = from.invalidExprDefaultValue
	}
	if from.invalidBindingCommaAfterSpread.Len > 0 {
		to.invalidBindingCommaAfterSpread = from.invalidBindingCommaAfterSpread
	}
}

func (p *parser) logExprErrors(errors *deferredErrors) {
	if errors.invalidExprDefaultValue.Len > 0 {
		p.addRangeError(errors.invalidExprDefaultValue, "Unexpected \"=\"")
	}
}

func (p *parser) logBindingErrors(errors *deferredErrors) {
	if errors.invalidBindingCommaAfterSpread.Len > 0 {
		p.addRangeError(errors.invalidBindingCommaAfterSpread, "Unexpected \",\" after rest pattern")
	}
}

type propertyContext int

const (
	propertyContextObject propertyContext = iota
	propertyContextClass
)

type propertyOpts struct {
	isAsync     bool
	isGenerator bool
	isStatic    bool
}

func (p *parser) parseProperty(context propertyContext, kind js_ast.PropertyKind, opts propertyOpts, errors *deferredErrors) js_ast.Property {
	var key js_ast.Expr
	keyRange := p.lexer.Range()
	isComputed := false

	switch p.lexer.Token {
	case js_lexer.TNumericLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.ENumber{Value: p.lexer.Number}}
		p.lexer.Next()

	case js_lexer.TStringLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EString{Value: p.lexer.StringLiteral}}
		p.lexer.Next()

	case js_lexer.TBigIntegerLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EBigInt{Value: p.lexer.Identifier}}
		p.lexer.Next()

	case js_lexer.TOpenBracket:
		isComputed = true
		p.lexer.Next()
		wasIdentifier := p.lexer.Token == js_lexer.TIdentifier
		expr := p.parseExpr(js_ast.LComma)

		// Handle "[a] = b" shorthand inside destructuring: this is not allowed
		if wasIdentifier && p.lexer.Token == js_lexer.TComma {
			p.lexer.Expected(js_lexer.TCloseBracket)
		}
		p.lexer.Expect(js_lexer.TCloseBracket)
		key = expr

	case js_lexer.TAsterisk:
		if kind != js_ast.PropertyNormal || opts.isGenerator {
			p.lexer.Unexpected()
		}
		p.lexer.Next()
		opts.isGenerator = true
		return p.parseProperty(context, js_ast.PropertyNormal, opts, errors)

	default:
		name := p.lexer.Identifier
		raw := p.lexer.Raw()
		nameRange := p.lexer.Range()
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		p.lexer.Next()

		// Support contextual keywords
		if kind == js_ast.PropertyNormal && !opts.isGenerator {
			// Does the following token look like a key?
			couldBeModifierKeyword := p.lexer.IsIdentifierOrKeyword()
			if !couldBeModifierKeyword {
				switch p.lexer.Token {
				case js_lexer.TOpenBracket, js_lexer.TNumericLiteral, js_lexer.TStringLiteral,
					js_lexer.TAsterisk, js_lexer.TBigIntegerLiteral:
					couldBeModifierKeyword = true
				}
			}

			// If so, check for a modifier keyword
			if couldBeModifierKeyword && raw == name {
				switch name {
				case "get":
					if !opts.isAsync {
						return p.parseProperty(context, js_ast.PropertyGet, opts, nil)
					}

				case "set":
					if !opts.isAsync {
						return p.parseProperty(context, js_ast.PropertySet, opts, nil)
					}

				case "async":
					if !opts.isAsync && !p.lexer.HasNewlineBefore {
						opts.isAsync = true
						return p.parseProperty(context, kind, opts, nil)
					}

				case "static":
					if !opts.isStatic && !opts.isAsync && context == propertyContextClass {
						opts.isStatic = true
						return p.parseProperty(context, kind, opts, nil)
					}
				}
			}
		}

		key = js_ast.Expr{Loc: nameRange.Loc, Data: &js_ast.EString{Value: helpers.StringToUTF16(name)}}

		// Parse a shorthand property
		if context == propertyContextObject && kind == js_ast.PropertyNormal && !opts.isAsync &&
			p.lexer.Token != js_lexer.TColon && p.lexer.Token != js_lexer.TOpenParen && !opts.isGenerator {
			if js_lexer.Keywords[raw] != 0 {
				p.addRangeError(nameRange, fmt.Sprintf("Unexpected %q", raw))
				panic(js_lexer.LexerPanic{})
			}
			ref := p.storeNameInRef(name)
			value := js_ast.Expr{Loc: key.Loc, Data: &js_ast.EIdentifier{Ref: ref}}

			// Destructuring patterns have an optional default value
			var initializer *js_ast.Expr
			if errors != nil && p.lexer.Token == js_lexer.TEquals {
				errors.invalidExprDefaultValue = p.lexer.Range()
				p.lexer.Next()
				value := p.parseExpr(js_ast.LComma)
				initializer = &value
			}

			return js_ast.Property{
				Kind:         kind,
				Key:          key,
				Value:        &value,
				Initializer:  initializer,
				WasShorthand: true,
			}
		}
	}

	// Parse a class field
	if context == propertyContextClass && kind == js_ast.PropertyNormal &&
		!opts.isAsync && !opts.isGenerator && p.lexer.Token != js_lexer.TOpenParen {
		var initializer *js_ast.Expr
		if p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			value := p.parseExpr(js_ast.LComma)
			initializer = &value
		}
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Property{
			Kind:        kind,
			IsComputed:  isComputed,
			IsStatic:    opts.isStatic,
			Key:         key,
			Initializer: initializer,
		}
	}

	// Parse a method expression
	if p.lexer.Token == js_lexer.TOpenParen || kind != js_ast.PropertyNormal ||
		context == propertyContextClass || opts.isAsync || opts.isGenerator {
		loc := p.lexer.Loc()
		fn := p.parseFn(nil, fnOpts{
			allowAwait:  opts.isAsync,
			allowYield:  opts.isGenerator,
			allowReturn: true,
		})

		// Getters and setters have a fixed number of arguments
		switch kind {
		case js_ast.PropertyGet:
			if len(fn.Args) > 0 {
				p.addRangeError(keyRange, "Getter functions must have no arguments")
			}
		case js_ast.PropertySet:
			if len(fn.Args) != 1 || fn.HasRestArg {
				p.addRangeError(keyRange, "Setter functions must have exactly one argument")
			}
		}

		value := js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
		return js_ast.Property{
			Kind:       kind,
			IsComputed: isComputed,
			IsMethod:   true,
			IsStatic:   opts.isStatic,
			Key:        key,
			Value:      &value,
		}
	}

	p.lexer.Expect(js_lexer.TColon)
	value := p.parseExprOrBindings(js_ast.LComma, errors)
	return js_ast.Property{
		Kind:       kind,
		IsComputed: isComputed,
		Key:        key,
		Value:      &value,
	}
}

func (p *parser) parsePropertyBinding() js_ast.PropertyBinding {
	var key js_ast.Expr
	isComputed := false

	switch p.lexer.Token {
	case js_lexer.TDotDotDot:
		p.lexer.Next()
		loc := p.lexer.Loc()
		name := p.lexer.Identifier
		p.lexer.Expect(js_lexer.TIdentifier)
		p.checkBindingName(loc, name)
		value := js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: p.storeNameInRef(name)}}
		return js_ast.PropertyBinding{
			IsSpread: true,
			Value:    value,
		}

	case js_lexer.TNumericLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.ENumber{Value: p.lexer.Number}}
		p.lexer.Next()

	case js_lexer.TStringLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EString{Value: p.lexer.StringLiteral}}
		p.lexer.Next()

	case js_lexer.TOpenBracket:
		isComputed = true
		p.lexer.Next()
		key = p.parseExprAllowingIn(js_ast.LComma)
		p.lexer.Expect(js_lexer.TCloseBracket)

	default:
		name := p.lexer.Identifier
		loc := p.lexer.Loc()
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		p.lexer.Next()
		key = js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: helpers.StringToUTF16(name)}}

		if p.lexer.Token != js_lexer.TColon && p.lexer.Token != js_lexer.TOpenParen {
			if !isIdentifier {
				p.lexer.Expect(js_lexer.TColon)
			}
			p.checkBindingName(loc, name)
			ref := p.storeNameInRef(name)
			value := js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}}

			var defaultValue *js_ast.Expr
			if p.lexer.Token == js_lexer.TEquals {
				p.lexer.Next()
				init := p.parseExprAllowingIn(js_ast.LComma)
				defaultValue = &init
			}

			return js_ast.PropertyBinding{
				Key:          key,
				Value:        value,
				DefaultValue: defaultValue,
			}
		}
	}

	p.lexer.Expect(js_lexer.TColon)
	value := p.parseBinding()

	var defaultValue *js_ast.Expr
	if p.lexer.Token == js_lexer.TEquals {
		p.lexer.Next()
		init := p.parseExprAllowingIn(js_ast.LComma)
		defaultValue = &init
	}

	return js_ast.PropertyBinding{
		IsComputed:   isComputed,
		Key:          key,
		Value:        value,
		DefaultValue: defaultValue,
	}
}

// "in" expressions are allowed inside brackets and default values
func (p *parser) parseExprAllowingIn(level js_ast.L) js_ast.Expr {
	oldAllowIn := p.allowIn
	p.allowIn = true
	expr := p.parseExpr(level)
	p.allowIn = oldAllowIn
	return expr
}

// This assumes that the "=>" token has already been parsed by the caller
func (p *parser) parseArrowBody(args []js_ast.Arg, hasRestArg bool, opts fnOpts) *js_ast.EArrow {
	opts.allowReturn = true
	arrowLoc := p.lexer.Loc()

	if p.lexer.Token == js_lexer.TOpenBrace {
		body := p.parseFnBody(opts)
		return &js_ast.EArrow{
			Args:       args,
			Body:       body,
			IsAsync:    opts.allowAwait,
			HasRestArg: hasRestArg,
		}
	}

	oldFnOpts := p.currentFnOpts
	p.currentFnOpts = opts
	expr := p.parseExpr(js_ast.LComma)
	p.currentFnOpts = oldFnOpts
	return &js_ast.EArrow{
		Args:       args,
		Body:       js_ast.FnBody{Loc: arrowLoc, Stmts: []js_ast.Stmt{{Loc: expr.Loc, Data: &js_ast.SReturn{Value: &expr}}}},
		IsAsync:    opts.allowAwait,
		HasRestArg: hasRestArg,
		PreferExpr: true,
	}
}

func (p *parser) expectArrow() {
	if p.lexer.HasNewlineBefore {
		p.addRangeError(p.lexer.Range(), "Unexpected newline before \"=>\"")
		panic(js_lexer.LexerPanic{})
	}
	p.lexer.Expect(js_lexer.TEqualsGreaterThan)
}

// This parses an expression. This assumes we've already parsed the "async"
// keyword and are currently looking at the following token.
func (p *parser) parseAsyncExpr(asyncRange logger.Range, level js_ast.L) js_ast.Expr {
	loc := asyncRange.Loc

	// "async\nfunction() {}" and "async\nx => {}" are not async functions
	if !p.lexer.HasNewlineBefore {
		switch p.lexer.Token {
		// "async function() {}"
		case js_lexer.TFunction:
			return p.parseFnExpr(loc, true /* isAsync */)

		// "async x => {}"
		case js_lexer.TIdentifier:
			name := p.lexer.Identifier
			argLoc := p.lexer.Loc()
			p.lexer.Next()
			p.checkBindingName(argLoc, name)
			arg := js_ast.Arg{Binding: js_ast.Binding{Loc: argLoc, Data: &js_ast.BIdentifier{Ref: p.storeNameInRef(name)}}}
			p.expectArrow()
			arrow := p.parseArrowBody([]js_ast.Arg{arg}, false, fnOpts{allowAwait: true})
			return js_ast.Expr{Loc: loc, Data: arrow}

		// "async()"
		// "async () => {}"
		case js_lexer.TOpenParen:
			p.lexer.Next()
			return p.parseParenExpr(loc, level, true /* isAsync */)
		}
	}

	// "async => {}"
	if p.lexer.Token == js_lexer.TEqualsGreaterThan {
		p.lexer.Next()
		arg := js_ast.Arg{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: p.storeNameInRef("async")}}}
		arrow := p.parseArrowBody([]js_ast.Arg{arg}, false, fnOpts{})
		return js_ast.Expr{Loc: loc, Data: arrow}
	}

	// "async"
	// "async + 1"
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: p.storeNameInRef("async")}}
}

func (p *parser) parseFnExpr(loc logger.Loc, isAsync bool) js_ast.Expr {
	p.lexer.Next()
	isGenerator := p.lexer.Token == js_lexer.TAsterisk
	if isGenerator {
		p.lexer.Next()
	}
	var name *js_ast.LocRef

	if p.lexer.Token == js_lexer.TIdentifier {
		nameLoc := p.lexer.Loc()
		p.checkBindingName(nameLoc, p.lexer.Identifier)
		name = &js_ast.LocRef{Loc: nameLoc, Ref: p.storeNameInRef(p.lexer.Identifier)}
		p.lexer.Next()
	}

	fn := p.parseFn(name, fnOpts{
		allowAwait:  isAsync,
		allowYield:  isGenerator,
		allowReturn: true,
	})
	return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
}

// This assumes that the open parenthesis has already been parsed by the caller
func (p *parser) parseParenExpr(loc logger.Loc, level js_ast.L, isAsync bool) js_ast.Expr {
	items := []js_ast.Expr{}
	errors := deferredErrors{}
	spreadRange := logger.Range{}

	// Allow "in" inside parentheses
	oldAllowIn := p.allowIn
	p.allowIn = true

	// Scan over the comma-separated arguments or expressions
	for p.lexer.Token != js_lexer.TCloseParen {
		itemLoc := p.lexer.Loc()
		isSpread := p.lexer.Token == js_lexer.TDotDotDot

		if isSpread {
			spreadRange = p.lexer.Range()
			p.lexer.Next()
		}

		// We don't know yet whether these are arguments or expressions, so parse
		// a superset of the expression syntax. Errors about things that are valid
		// in one but not in the other are deferred.
		item := p.parseExprOrBindings(js_ast.LComma, &errors)

		if isSpread {
			item = js_ast.Expr{Loc: itemLoc, Data: &js_ast.ESpread{Value: item}}
		}

		items = append(items, item)
		if p.lexer.Token != js_lexer.TComma {
			break
		}

		// Spread arguments must come last. If there's a spread argument followed
		// by a comma, throw an error if we use these expressions as bindings.
		if isSpread {
			errors.invalidBindingCommaAfterSpread = p.lexer.Range()
		}

		// Eat the comma token
		p.lexer.Next()
	}

	// The parenthetical construct must end with a close parenthesis
	p.lexer.Expect(js_lexer.TCloseParen)
	p.allowIn = oldAllowIn

	// Are these arguments to an arrow function?
	if p.lexer.Token == js_lexer.TEqualsGreaterThan || (!isAsync && len(items) == 0) {
		// Arrow functions are not allowed inside certain expressions
		if level > js_ast.LAssign {
			p.lexer.Unexpected()
		}

		p.logBindingErrors(&errors)
		p.expectArrow()
		args := []js_ast.Arg{}
		for _, item := range items {
			if spread, ok := item.Data.(*js_ast.ESpread); ok {
				item = spread.Value
			}
			binding, initializer := p.convertExprToBindingAndInitializer(item)
			args = append(args, js_ast.Arg{Binding: binding, Default: initializer})
		}
		arrow := p.parseArrowBody(args, spreadRange.Len > 0, fnOpts{allowAwait: isAsync})
		return js_ast.Expr{Loc: loc, Data: arrow}
	}

	// Are these arguments for a call to a function named "async"?
	if isAsync {
		p.logExprErrors(&errors)
		async := js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: p.storeNameInRef("async")}}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{Target: async, Args: items}}
	}

	// Is this a chain of expressions and comma operators?
	p.logExprErrors(&errors)
	if spreadRange.Len > 0 {
		p.addRangeError(spreadRange, "Unexpected \"...\"")
		panic(js_lexer.LexerPanic{})
	}
	return js_ast.JoinAllWithComma(items)
}

func (p *parser) convertExprToBindingAndInitializer(expr js_ast.Expr) (binding js_ast.Binding, initializer *js_ast.Expr) {
	if assign, ok := expr.Data.(*js_ast.EBinary); ok && assign.Op == js_ast.BinOpAssign {
		initializer = &assign.Right
		expr = assign.Left
	}
	binding = p.convertExprToBinding(expr)
	return
}

func (p *parser) convertExprToBinding(expr js_ast.Expr) js_ast.Binding {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing:
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BMissing{}}

	case *js_ast.EIdentifier:
		p.checkBindingName(expr.Loc, p.names[e.Ref.InnerIndex])
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BIdentifier{Ref: e.Ref}}

	case *js_ast.EArray:
		items := []js_ast.ArrayBinding{}
		isSpread := false
		for _, item := range e.Items {
			if i, ok := item.Data.(*js_ast.ESpread); ok {
				isSpread = true
				item = i.Value
			}
			binding, initializer := p.convertExprToBindingAndInitializer(item)
			items = append(items, js_ast.ArrayBinding{Binding: binding, DefaultValue: initializer})
		}
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BArray{
			Items:     items,
			HasSpread: isSpread,
		}}

	case *js_ast.EObject:
		items := []js_ast.PropertyBinding{}
		for _, item := range e.Properties {
			if item.IsMethod || item.Kind == js_ast.PropertyGet || item.Kind == js_ast.PropertySet {
				p.addError(item.Key.Loc, "Invalid binding pattern")
				panic(js_lexer.LexerPanic{})
			}
			binding, initializer := p.convertExprToBindingAndInitializer(*item.Value)
			if initializer == nil {
				initializer = item.Initializer
			}
			items = append(items, js_ast.PropertyBinding{
				IsSpread:     item.Kind == js_ast.PropertySpread,
				IsComputed:   item.IsComputed,
				Key:          item.Key,
				Value:        binding,
				DefaultValue: initializer,
			})
		}
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BObject{Properties: items}}

	default:
		p.addError(expr.Loc, "Invalid binding pattern")
		panic(js_lexer.LexerPanic{})
	}
}

// In recover mode, a token that can't start an expression but can end one
// becomes an error node instead of stopping the parse
func (p *parser) maybeErrorExpr(loc logger.Loc) (js_ast.Expr, bool) {
	if !p.options.Recover {
		return js_ast.Expr{}, false
	}
	switch p.lexer.Token {
	case js_lexer.TCloseParen, js_lexer.TCloseBracket, js_lexer.TCloseBrace,
		js_lexer.TSemicolon, js_lexer.TComma, js_lexer.TColon, js_lexer.TEndOfFile:
		found := fmt.Sprintf("%q", p.lexer.Raw())
		if p.lexer.Token == js_lexer.TEndOfFile {
			found = "end of file"
		}
		p.addRangeError(p.lexer.Range(), fmt.Sprintf("Expected expression but found %s", found))
		return js_ast.Expr{Loc: loc, Data: &js_ast.EError{}}, true
	}
	return js_ast.Expr{}, false
}

func (p *parser) parsePrefix(level js_ast.L, errors *deferredErrors) js_ast.Expr {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSuper:
		superRange := p.lexer.Range()
		p.lexer.Next()

		switch p.lexer.Token {
		case js_lexer.TOpenParen:
			if level < js_ast.LCall {
				return js_ast.Expr{Loc: loc, Data: &js_ast.ESuper{}}
			}

		case js_lexer.TDot, js_lexer.TOpenBracket:
			return js_ast.Expr{Loc: loc, Data: &js_ast.ESuper{}}
		}

		p.addRangeError(superRange, "Unexpected \"super\"")
		panic(js_lexer.LexerPanic{})

	case js_lexer.TOpenParen:
		p.lexer.Next()

		// Arrow functions aren't allowed in the middle of expressions
		if level > js_ast.LAssign {
			value := p.parseExprAllowingIn(js_ast.LLowest)
			p.lexer.Expect(js_lexer.TCloseParen)
			return value
		}

		return p.parseParenExpr(loc, level, false /* isAsync */)

	case js_lexer.TFalse:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: false}}

	case js_lexer.TTrue:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: true}}

	case js_lexer.TNull:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}

	case js_lexer.TThis:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}}

	case js_lexer.TIdentifier:
		name := p.lexer.Identifier
		nameRange := p.lexer.Range()
		raw := p.lexer.Raw()
		p.lexer.Next()

		// Handle async and await expressions
		if raw == "async" {
			return p.parseAsyncExpr(nameRange, level)
		}
		if raw == "await" && p.currentFnOpts.allowAwait {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EAwait{Value: p.parseExpr(js_ast.LPrefix)}}
		}
		if raw == "yield" && p.currentFnOpts.allowYield {
			if level > js_ast.LAssign {
				p.addRangeError(nameRange, "Cannot use a \"yield\" expression here without parentheses")
				panic(js_lexer.LexerPanic{})
			}
			return p.parseYieldExpr(loc)
		}

		// Handle the start of an arrow expression
		if p.lexer.Token == js_lexer.TEqualsGreaterThan && level <= js_ast.LAssign {
			p.checkBindingName(loc, name)
			ref := p.storeNameInRef(name)
			arg := js_ast.Arg{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}}}
			p.expectArrow()
			arrow := p.parseArrowBody([]js_ast.Arg{arg}, false, fnOpts{})
			return js_ast.Expr{Loc: loc, Data: arrow}
		}

		ref := p.storeNameInRef(name)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref}}

	case js_lexer.TStringLiteral:
		value := p.lexer.StringLiteral
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: value}}

	case js_lexer.TNoSubstitutionTemplateLiteral:
		head := p.lexer.StringLiteral
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ETemplate{Head: head}}

	case js_lexer.TTemplateHead:
		head := p.lexer.StringLiteral
		parts := p.parseTemplateParts(false /* includeRaw */)
		return js_ast.Expr{Loc: loc, Data: &js_ast.ETemplate{Head: head, Parts: parts}}

	case js_lexer.TNumericLiteral:
		value := p.lexer.Number
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: value}}

	case js_lexer.TBigIntegerLiteral:
		value := p.lexer.Identifier
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBigInt{Value: value}}

	case js_lexer.TSlash, js_lexer.TSlashEquals:
		p.lexer.ScanRegExp()
		value := p.lexer.Raw()
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ERegExp{Value: value}}

	case js_lexer.TVoid:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpVoid, Value: p.parseUnaryOperand()}}

	case js_lexer.TTypeof:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpTypeof, Value: p.parseUnaryOperand()}}

	case js_lexer.TDelete:
		p.lexer.Next()
		value := p.parseUnaryOperand()
		if _, ok := value.Data.(*js_ast.EIdentifier); ok && p.options.IsModule {
			p.addError(value.Loc, "Delete of a bare identifier cannot be used in strict mode")
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpDelete, Value: value}}

	case js_lexer.TPlus:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPos, Value: p.parseUnaryOperand()}}

	case js_lexer.TMinus:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpNeg, Value: p.parseUnaryOperand()}}

	case js_lexer.TTilde:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpCpl, Value: p.parseUnaryOperand()}}

	case js_lexer.TExclamation:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpNot, Value: p.parseUnaryOperand()}}

	case js_lexer.TMinusMinus:
		p.lexer.Next()
		value := p.parseExpr(js_ast.LPrefix)
		p.checkAssignTarget(value)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPreDec, Value: value}}

	case js_lexer.TPlusPlus:
		p.lexer.Next()
		value := p.parseExpr(js_ast.LPrefix)
		p.checkAssignTarget(value)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPreInc, Value: value}}

	case js_lexer.TFunction:
		return p.parseFnExpr(loc, false /* isAsync */)

	case js_lexer.TClass:
		p.lexer.Next()
		var name *js_ast.LocRef

		if p.lexer.Token == js_lexer.TIdentifier {
			nameLoc := p.lexer.Loc()
			p.checkBindingName(nameLoc, p.lexer.Identifier)
			name = &js_ast.LocRef{Loc: nameLoc, Ref: p.storeNameInRef(p.lexer.Identifier)}
			p.lexer.Next()
		}

		class := p.parseClass(name)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: class}}

	case js_lexer.TNew:
		p.lexer.Next()

		// Special-case the weird "new.target" expression here
		if p.lexer.Token == js_lexer.TDot {
			p.lexer.Next()
			if p.lexer.Token != js_lexer.TIdentifier || p.lexer.Raw() != "target" {
				p.lexer.Unexpected()
			}
			p.lexer.Next()
			return js_ast.Expr{Loc: loc, Data: &js_ast.ENewTarget{}}
		}

		target := p.parseExpr(js_ast.LMember)
		args := []js_ast.Expr{}

		if p.lexer.Token == js_lexer.TOpenParen {
			args = p.parseCallArgs()
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: args}}

	case js_lexer.TOpenBracket:
		p.lexer.Next()
		isSingleLine := !p.lexer.HasNewlineBefore
		items := []js_ast.Expr{}
		selfErrors := deferredErrors{}

		// Allow "in" inside arrays
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBracket {
			switch p.lexer.Token {
			case js_lexer.TComma:
				items = append(items, js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EMissing{}})

			case js_lexer.TDotDotDot:
				dotsLoc := p.lexer.Loc()
				p.lexer.Next()
				item := p.parseExprOrBindings(js_ast.LComma, &selfErrors)
				items = append(items, js_ast.Expr{Loc: dotsLoc, Data: &js_ast.ESpread{Value: item}})

				// Commas are not allowed here when destructuring
				if p.lexer.Token == js_lexer.TComma {
					selfErrors.invalidBindingCommaAfterSpread = p.lexer.Range()
				}

			default:
				item := p.parseExprOrBindings(js_ast.LComma, &selfErrors)
				items = append(items, item)
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			if p.lexer.HasNewlineBefore {
				isSingleLine = false
			}
			p.lexer.Next()
			if p.lexer.HasNewlineBefore {
				isSingleLine = false
			}
		}

		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		p.lexer.Expect(js_lexer.TCloseBracket)
		p.allowIn = oldAllowIn

		if p.willNeedBindingPattern() {
			// Is this a binding pattern?
			p.logBindingErrors(&selfErrors)
		} else if errors == nil {
			// Is this an expression?
			p.logExprErrors(&selfErrors)
		} else {
			// In this case, we can't distinguish between the two yet
			selfErrors.mergeInto(errors)
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items, IsSingleLine: isSingleLine}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		isSingleLine := !p.lexer.HasNewlineBefore
		properties := []js_ast.Property{}
		selfErrors := deferredErrors{}
		duplicates := make(map[string]bool)

		// Allow "in" inside object literals
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBrace {
			if p.lexer.Token == js_lexer.TDotDotDot {
				dotsLoc := p.lexer.Loc()
				p.lexer.Next()
				value := p.parseExprOrBindings(js_ast.LComma, &selfErrors)
				properties = append(properties, js_ast.Property{
					Kind:  js_ast.PropertySpread,
					Key:   js_ast.Expr{Loc: dotsLoc, Data: &js_ast.EMissing{}},
					Value: &value,
				})

				// Commas are not allowed here when destructuring
				if p.lexer.Token == js_lexer.TComma {
					selfErrors.invalidBindingCommaAfterSpread = p.lexer.Range()
				}
			} else {
				property := p.parseProperty(propertyContextObject, js_ast.PropertyNormal, propertyOpts{}, &selfErrors)
				p.warnAboutDuplicateKey(property, duplicates)
				properties = append(properties, property)
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			if p.lexer.HasNewlineBefore {
				isSingleLine = false
			}
			p.lexer.Next()
			if p.lexer.HasNewlineBefore {
				isSingleLine = false
			}
		}

		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		p.lexer.Expect(js_lexer.TCloseBrace)
		p.allowIn = oldAllowIn

		if p.willNeedBindingPattern() {
			// Is this a binding pattern?
			p.logBindingErrors(&selfErrors)
		} else if errors == nil {
			// Is this an expression?
			p.logExprErrors(&selfErrors)
		} else {
			// In this case, we can't distinguish between the two yet
			selfErrors.mergeInto(errors)
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: isSingleLine}}

	case js_lexer.TImport:
		p.lexer.Next()
		return p.parseImportExpr(loc)

	default:
		if expr, ok := p.maybeErrorExpr(loc); ok {
			return expr
		}
		p.lexer.Unexpected()
		return js_ast.Expr{}
	}
}

func (p *parser) warnAboutDuplicateKey(property js_ast.Property, duplicates map[string]bool) {
	if property.IsComputed || property.Kind != js_ast.PropertyNormal {
		return
	}
	if str, ok := property.Key.Data.(*js_ast.EString); ok {
		key := helpers.UTF16ToString(str.Value)
		if key == "__proto__" {
			return
		}
		if duplicates[key] {
			r := js_lexer.RangeOfIdentifier(p.source, property.Key.Loc)
			if r.Len == 0 {
				r = p.source.RangeOfString(property.Key.Loc)
			}
			p.log.AddWarningWithID(logger.MsgID_JS_DuplicateObjectKey, &p.source, r,
				fmt.Sprintf("Duplicate key %q in object literal", key))
		} else {
			duplicates[key] = true
		}
	}
}

func (p *parser) parseYieldExpr(loc logger.Loc) js_ast.Expr {
	// Parse a yield-from expression, which yields from an iterator
	isStar := p.lexer.Token == js_lexer.TAsterisk
	if isStar && !p.lexer.HasNewlineBefore {
		p.lexer.Next()
	} else {
		isStar = false
	}

	var value *js_ast.Expr

	// The yield expression only has a value in certain cases
	switch p.lexer.Token {
	case js_lexer.TCloseBrace, js_lexer.TCloseBracket, js_lexer.TCloseParen,
		js_lexer.TColon, js_lexer.TComma, js_lexer.TSemicolon, js_lexer.TEndOfFile:

	default:
		if isStar || !p.lexer.HasNewlineBefore {
			expr := p.parseExpr(js_ast.LYield)
			value = &expr
		}
	}

	return js_ast.Expr{Loc: loc, Data: &js_ast.EYield{Value: value, IsStar: isStar}}
}

// Only identifiers and member expressions can be updated
func (p *parser) checkAssignTarget(expr js_ast.Expr) {
	switch expr.Data.(type) {
	case *js_ast.EIdentifier, *js_ast.EDot, *js_ast.EIndex, *js_ast.EError:
		return
	}
	p.addError(expr.Loc, "Invalid assignment target")
}

// Destructuring assignments also accept member expressions as targets
func (p *parser) checkAssignPattern(expr js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing:

	case *js_ast.EArray:
		for _, item := range e.Items {
			if spread, ok := item.Data.(*js_ast.ESpread); ok {
				item = spread.Value
			}
			if assign, ok := item.Data.(*js_ast.EBinary); ok && assign.Op == js_ast.BinOpAssign {
				item = assign.Left
			}
			p.checkAssignPattern(item)
		}

	case *js_ast.EObject:
		for _, property := range e.Properties {
			if property.IsMethod || property.Kind == js_ast.PropertyGet || property.Kind == js_ast.PropertySet {
				p.addError(property.Key.Loc, "Invalid assignment target")
				continue
			}
			value := *property.Value
			if assign, ok := value.Data.(*js_ast.EBinary); ok && assign.Op == js_ast.BinOpAssign {
				value = assign.Left
			}
			p.checkAssignPattern(value)
		}

	default:
		p.checkAssignTarget(expr)
	}
}

func (p *parser) willNeedBindingPattern() bool {
	switch p.lexer.Token {
	case js_lexer.TEquals:
		// "[a] = b;"
		return true

	case js_lexer.TIn:
		// "for ([a] in b) {}"
		return !p.allowIn

	case js_lexer.TIdentifier:
		// "for ([a] of b) {}"
		return !p.allowIn && p.lexer.IsContextualKeyword("of")

	default:
		return false
	}
}

// This assumes the "import" keyword has already been parsed
func (p *parser) parseImportExpr(loc logger.Loc) js_ast.Expr {
	// Parse an "import.meta" expression
	if p.lexer.Token == js_lexer.TDot {
		p.lexer.Next()
		if !p.lexer.IsContextualKeyword("meta") {
			p.lexer.ExpectedString("\"meta\"")
		}
		if !p.options.IsModule {
			p.addRangeError(p.lexer.Range(), "Cannot use \"import.meta\" outside a module")
		}
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImportMeta{}}
	}

	p.lexer.Expect(js_lexer.TOpenParen)
	value := p.parseExprAllowingIn(js_ast.LComma)
	p.lexer.Expect(js_lexer.TCloseParen)

	// The binder turns string arguments into import records
	return js_ast.Expr{Loc: loc, Data: &js_ast.EImport{Expr: value}}
}

func (p *parser) parseIndexExpr() js_ast.Expr {
	value := p.parseExprAllowingIn(js_ast.LLowest)
	return value
}

func (p *parser) parseExprOrBindings(level js_ast.L, errors *deferredErrors) js_ast.Expr {
	return p.parseSuffix(p.parsePrefix(level, errors), level, errors)
}

func (p *parser) parseExpr(level js_ast.L) js_ast.Expr {
	return p.parseSuffix(p.parsePrefix(level, nil), level, nil)
}

// The operand of a unary operator that is not "++" or "--". Such an
// expression can't be the left side of "**" unless it is parenthesized.
func (p *parser) parseUnaryOperand() js_ast.Expr {
	value := p.parseExpr(js_ast.LPrefix)
	if p.lexer.Token == js_lexer.TAsteriskAsterisk {
		p.lexer.Unexpected()
	}
	return value
}

func (p *parser) parseBinary(left js_ast.Expr, op js_ast.OpCode, rightLevel js_ast.L) js_ast.Expr {
	p.lexer.Next()
	return js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: p.parseExpr(rightLevel)}}
}

// Assignments are right-associative and turn the left side into a pattern
// when it's an array or object literal
func (p *parser) parseAssign(left js_ast.Expr, op js_ast.OpCode) js_ast.Expr {
	if op == js_ast.BinOpAssign {
		// The tree keeps the literal form of destructuring assignments
		p.checkAssignPattern(left)
	} else {
		p.checkAssignTarget(left)
	}
	p.lexer.Next()
	return js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: p.parseExpr(js_ast.LAssign - 1)}}
}

var binaryOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TPlus:                              js_ast.BinOpAdd,
	js_lexer.TMinus:                             js_ast.BinOpSub,
	js_lexer.TAsterisk:                          js_ast.BinOpMul,
	js_lexer.TSlash:                             js_ast.BinOpDiv,
	js_lexer.TPercent:                           js_ast.BinOpRem,
	js_lexer.TLessThan:                          js_ast.BinOpLt,
	js_lexer.TLessThanEquals:                    js_ast.BinOpLe,
	js_lexer.TGreaterThan:                       js_ast.BinOpGt,
	js_lexer.TGreaterThanEquals:                 js_ast.BinOpGe,
	js_lexer.TLessThanLessThan:                  js_ast.BinOpShl,
	js_lexer.TGreaterThanGreaterThan:            js_ast.BinOpShr,
	js_lexer.TGreaterThanGreaterThanGreaterThan: js_ast.BinOpUShr,
	js_lexer.TEqualsEquals:                      js_ast.BinOpLooseEq,
	js_lexer.TExclamationEquals:                 js_ast.BinOpLooseNe,
	js_lexer.TEqualsEqualsEquals:                js_ast.BinOpStrictEq,
	js_lexer.TExclamationEqualsEquals:           js_ast.BinOpStrictNe,
	js_lexer.TBar:                               js_ast.BinOpBitwiseOr,
	js_lexer.TAmpersand:                         js_ast.BinOpBitwiseAnd,
	js_lexer.TCaret:                             js_ast.BinOpBitwiseXor,
	js_lexer.TInstanceof:                        js_ast.BinOpInstanceof,
}

var assignOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TEquals:                                  js_ast.BinOpAssign,
	js_lexer.TPlusEquals:                              js_ast.BinOpAddAssign,
	js_lexer.TMinusEquals:                             js_ast.BinOpSubAssign,
	js_lexer.TAsteriskEquals:                          js_ast.BinOpMulAssign,
	js_lexer.TSlashEquals:                             js_ast.BinOpDivAssign,
	js_lexer.TPercentEquals:                           js_ast.BinOpRemAssign,
	js_lexer.TAsteriskAsteriskEquals:                  js_ast.BinOpPowAssign,
	js_lexer.TLessThanLessThanEquals:                  js_ast.BinOpShlAssign,
	js_lexer.TGreaterThanGreaterThanEquals:            js_ast.BinOpShrAssign,
	js_lexer.TGreaterThanGreaterThanGreaterThanEquals: js_ast.BinOpUShrAssign,
	js_lexer.TBarEquals:                               js_ast.BinOpBitwiseOrAssign,
	js_lexer.TAmpersandEquals:                         js_ast.BinOpBitwiseAndAssign,
	js_lexer.TCaretEquals:                             js_ast.BinOpBitwiseXorAssign,
	js_lexer.TQuestionQuestionEquals:                  js_ast.BinOpNullishCoalescingAssign,
	js_lexer.TBarBarEquals:                            js_ast.BinOpLogicalOrAssign,
	js_lexer.TAmpersandAmpersandEquals:                js_ast.BinOpLogicalAndAssign,
}

func (p *parser) parseSuffix(left js_ast.Expr, level js_ast.L, errors *deferredErrors) js_ast.Expr {
	optionalChain := js_ast.OptionalChainNone

	for {
		oldOptionalChain := optionalChain
		optionalChain = js_ast.OptionalChainNone

		// Continue an optional chain started earlier in this loop
		continueChain := js_ast.OptionalChainNone
		if oldOptionalChain != js_ast.OptionalChainNone {
			continueChain = js_ast.OptionalChainContinue
		}

		switch p.lexer.Token {
		case js_lexer.TDot:
			p.lexer.Next()
			if !p.lexer.IsIdentifierOrKeyword() {
				p.lexer.Expect(js_lexer.TIdentifier)
			}
			name := p.lexer.Identifier
			nameLoc := p.lexer.Loc()
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EDot{Target: left, Name: name, NameLoc: nameLoc, OptionalChain: continueChain}}
			optionalChain = continueChain

		case js_lexer.TQuestionDot:
			if level >= js_ast.LNew {
				return left
			}
			p.lexer.Next()

			switch p.lexer.Token {
			case js_lexer.TOpenBracket:
				p.lexer.Next()
				index := p.parseIndexExpr()
				p.lexer.Expect(js_lexer.TCloseBracket)
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIndex{Target: left, Index: index, OptionalChain: js_ast.OptionalChainStart}}

			case js_lexer.TOpenParen:
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ECall{Target: left, Args: p.parseCallArgs(), OptionalChain: js_ast.OptionalChainStart}}

			case js_lexer.TNoSubstitutionTemplateLiteral, js_lexer.TTemplateHead:
				p.addRangeError(p.lexer.Range(), "Template literals cannot have an optional chain as a tag")
				panic(js_lexer.LexerPanic{})

			default:
				if !p.lexer.IsIdentifierOrKeyword() {
					p.lexer.Expect(js_lexer.TIdentifier)
				}
				name := p.lexer.Identifier
				nameLoc := p.lexer.Loc()
				p.lexer.Next()
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EDot{Target: left, Name: name, NameLoc: nameLoc, OptionalChain: js_ast.OptionalChainStart}}
			}
			optionalChain = js_ast.OptionalChainContinue

		case js_lexer.TNoSubstitutionTemplateLiteral:
			if oldOptionalChain != js_ast.OptionalChainNone {
				p.addRangeError(p.lexer.Range(), "Template literals cannot have an optional chain as a tag")
				panic(js_lexer.LexerPanic{})
			}
			head := p.lexer.StringLiteral
			headRaw := p.lexer.RawTemplateContents()
			p.lexer.Next()
			tag := left
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ETemplate{Tag: &tag, Head: head, HeadRaw: headRaw}}

		case js_lexer.TTemplateHead:
			if oldOptionalChain != js_ast.OptionalChainNone {
				p.addRangeError(p.lexer.Range(), "Template literals cannot have an optional chain as a tag")
				panic(js_lexer.LexerPanic{})
			}
			head := p.lexer.StringLiteral
			headRaw := p.lexer.RawTemplateContents()
			parts := p.parseTemplateParts(true /* includeRaw */)
			tag := left
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ETemplate{Tag: &tag, Head: head, HeadRaw: headRaw, Parts: parts}}

		case js_lexer.TOpenBracket:
			p.lexer.Next()
			index := p.parseIndexExpr()
			p.lexer.Expect(js_lexer.TCloseBracket)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIndex{Target: left, Index: index, OptionalChain: continueChain}}
			optionalChain = continueChain

		case js_lexer.TOpenParen:
			if level >= js_ast.LCall {
				return left
			}
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ECall{Target: left, Args: p.parseCallArgs(), OptionalChain: continueChain}}
			optionalChain = continueChain

		case js_lexer.TQuestion:
			if level >= js_ast.LConditional {
				return left
			}
			p.lexer.Next()

			// Allow "in" in between "?" and ":"
			yes := p.parseExprAllowingIn(js_ast.LComma)

			p.lexer.Expect(js_lexer.TColon)
			no := p.parseExpr(js_ast.LComma)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIf{Test: left, Yes: yes, No: no}}

		case js_lexer.TMinusMinus:
			if p.lexer.HasNewlineBefore || level >= js_ast.LPostfix {
				return left
			}
			p.checkAssignTarget(left)
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPostDec, Value: left}}

		case js_lexer.TPlusPlus:
			if p.lexer.HasNewlineBefore || level >= js_ast.LPostfix {
				return left
			}
			p.checkAssignTarget(left)
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPostInc, Value: left}}

		case js_lexer.TComma:
			if level >= js_ast.LComma {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpComma, js_ast.LComma)

		case js_lexer.TAsteriskAsterisk:
			if level >= js_ast.LExponentiation {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpPow, js_ast.LExponentiation-1)

		case js_lexer.TQuestionQuestion:
			if level >= js_ast.LNullishCoalescing {
				return left
			}
			// The right side stops before "||" and "&&" so mixing them is caught below
			left = p.parseBinary(left, js_ast.BinOpNullishCoalescing, js_ast.LBitwiseOr-1)

			// "a ?? b || c" is a syntax error without parentheses
			if p.lexer.Token == js_lexer.TBarBar || p.lexer.Token == js_lexer.TAmpersandAmpersand {
				p.addRangeError(p.lexer.Range(), fmt.Sprintf("Cannot use %q with \"??\" without parentheses", p.lexer.Raw()))
				panic(js_lexer.LexerPanic{})
			}

		case js_lexer.TBarBar:
			if level >= js_ast.LLogicalOr {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpLogicalOr, js_ast.LLogicalOr)
			if p.lexer.Token == js_lexer.TQuestionQuestion {
				p.addRangeError(p.lexer.Range(), "Cannot use \"??\" with \"||\" without parentheses")
				panic(js_lexer.LexerPanic{})
			}

		case js_lexer.TAmpersandAmpersand:
			if level >= js_ast.LLogicalAnd {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpLogicalAnd, js_ast.LLogicalAnd)
			if p.lexer.Token == js_lexer.TQuestionQuestion {
				p.addRangeError(p.lexer.Range(), "Cannot use \"??\" with \"&&\" without parentheses")
				panic(js_lexer.LexerPanic{})
			}

		case js_lexer.TIn:
			if level >= js_ast.LCompare || !p.allowIn {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpIn, js_ast.LCompare)

		default:
			if op, ok := assignOps[p.lexer.Token]; ok {
				if level >= js_ast.LAssign {
					return left
				}
				left = p.parseAssign(left, op)
				continue
			}

			if op, ok := binaryOps[p.lexer.Token]; ok {
				opLevel := js_ast.OpTable[op].Level
				if level >= opLevel {
					return left
				}
				left = p.parseBinary(left, op, opLevel)
				continue
			}

			return left
		}
	}
}

func (p *parser) parseCallArgs() []js_ast.Expr {
	// Allow "in" inside call arguments
	oldAllowIn := p.allowIn
	p.allowIn = true

	args := []js_ast.Expr{}
	p.lexer.Expect(js_lexer.TOpenParen)

	for p.lexer.Token != js_lexer.TCloseParen {
		loc := p.lexer.Loc()
		isSpread := p.lexer.Token == js_lexer.TDotDotDot
		if isSpread {
			p.lexer.Next()
		}
		arg := p.parseExpr(js_ast.LComma)
		if isSpread {
			arg = js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: arg}}
		}
		args = append(args, arg)
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	p.allowIn = oldAllowIn
	return args
}

func (p *parser) parseTemplateParts(includeRaw bool) []js_ast.TemplatePart {
	parts := []js_ast.TemplatePart{}

	// Allow "in" inside template literals
	oldAllowIn := p.allowIn
	p.allowIn = true

	for {
		p.lexer.Next()
		value := p.parseExpr(js_ast.LLowest)
		tailLoc := p.lexer.Loc()
		p.lexer.RescanCloseBraceAsTemplateToken()
		tail := p.lexer.StringLiteral
		tailRaw := ""
		if includeRaw {
			tailRaw = p.lexer.RawTemplateContents()
		}
		parts = append(parts, js_ast.TemplatePart{Value: value, TailLoc: tailLoc, Tail: tail, TailRaw: tailRaw})
		if p.lexer.Token == js_lexer.TTemplateTail {
			p.lexer.Next()
			break
		}
	}

	p.allowIn = oldAllowIn
	return parts
}

func (p *parser) parseDecls() []js_ast.Decl {
	decls := []js_ast.Decl{}

	for {
		var value *js_ast.Expr
		local := p.parseBinding()

		if p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			expr := p.parseExpr(js_ast.LComma)
			value = &expr
		}

		decls = append(decls, js_ast.Decl{Binding: local, Value: value})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	return decls
}

func (p *parser) requireInitializers(decls []js_ast.Decl) {
	for _, d := range decls {
		if d.Value == nil {
			if _, ok := d.Binding.Data.(*js_ast.BIdentifier); ok {
				p.addError(d.Binding.Loc, "This constant must be initialized")
			}
		}
	}
}

func (p *parser) forbidInitializers(decls []js_ast.Decl, loopType string, isVar bool) {
	if len(decls) > 1 {
		p.addError(decls[0].Binding.Loc, fmt.Sprintf("for-%s loops must have a single declaration", loopType))
	} else if len(decls) == 1 && decls[0].Value != nil {
		if isVar {
			if _, ok := decls[0].Binding.Data.(*js_ast.BIdentifier); ok && loopType == "in" && !p.options.IsModule {
				// This is a weird special case. Initializers are allowed in "var"
				// statements with identifier bindings.
				return
			}
		}
		p.addError(decls[0].Value.Loc, fmt.Sprintf("for-%s loop variables cannot have an initializer", loopType))
	}
}

func (p *parser) parseImportClause() ([]js_ast.ClauseItem, bool) {
	items := []js_ast.ClauseItem{}
	p.lexer.Expect(js_lexer.TOpenBrace)
	hasDefault := false

	for p.lexer.Token != js_lexer.TCloseBrace {
		alias := p.lexer.Identifier
		aliasLoc := p.lexer.Loc()
		if p.lexer.Token == js_lexer.TStringLiteral {
			alias = helpers.UTF16ToString(p.lexer.StringLiteral)
		}
		name := js_ast.LocRef{Loc: aliasLoc, Ref: p.storeNameInRef(alias)}
		originalName := alias

		// The alias may be a keyword or a string
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		if !p.lexer.IsIdentifierOrKeyword() && p.lexer.Token != js_lexer.TStringLiteral {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		p.lexer.Next()

		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			originalName = p.lexer.Identifier
			nameLoc := p.lexer.Loc()
			p.checkBindingName(nameLoc, originalName)
			name = js_ast.LocRef{Loc: nameLoc, Ref: p.storeNameInRef(originalName)}
			p.lexer.Expect(js_lexer.TIdentifier)
		} else if !isIdentifier {
			// An import where the name is a keyword must have an alias
			p.lexer.ExpectedString("\"as\"")
		} else {
			p.checkBindingName(aliasLoc, alias)
		}

		if alias == "default" {
			hasDefault = true
		}
		items = append(items, js_ast.ClauseItem{Alias: alias, AliasLoc: aliasLoc, Name: name, OriginalName: originalName})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseBrace)
	return items, hasDefault
}

func (p *parser) parseExportClause() ([]js_ast.ClauseItem, bool) {
	items := []js_ast.ClauseItem{}
	firstNonIdentifierLoc := logger.Loc{}
	p.lexer.Expect(js_lexer.TOpenBrace)
	isSingleLine := !p.lexer.HasNewlineBefore

	for p.lexer.Token != js_lexer.TCloseBrace {
		alias := p.lexer.Identifier
		aliasLoc := p.lexer.Loc()
		if p.lexer.Token == js_lexer.TStringLiteral {
			alias = helpers.UTF16ToString(p.lexer.StringLiteral)
		}
		name := js_ast.LocRef{Loc: aliasLoc, Ref: p.storeNameInRef(alias)}
		originalName := alias

		// The name can actually be a keyword if we're really an "export from"
		// statement. However, we won't know until later. Allow keywords as
		// identifiers for now and throw an error later if there's no "from".
		//
		//   // This is fine
		//   export { default } from 'path'
		//
		//   // This is a syntax error
		//   export { default }
		//
		if p.lexer.Token != js_lexer.TIdentifier {
			if !p.lexer.IsIdentifierOrKeyword() && p.lexer.Token != js_lexer.TStringLiteral {
				p.lexer.Expect(js_lexer.TIdentifier)
			}
			if firstNonIdentifierLoc.Start == 0 {
				firstNonIdentifierLoc = p.lexer.Loc()
			}
		}
		p.lexer.Next()

		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			alias = p.lexer.Identifier
			aliasLoc = p.lexer.Loc()
			if p.lexer.Token == js_lexer.TStringLiteral {
				alias = helpers.UTF16ToString(p.lexer.StringLiteral)
			} else if !p.lexer.IsIdentifierOrKeyword() {
				// The alias may be a keyword
				p.lexer.Expect(js_lexer.TIdentifier)
			}
			p.lexer.Next()
		}

		items = append(items, js_ast.ClauseItem{Alias: alias, AliasLoc: aliasLoc, Name: name, OriginalName: originalName})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
	}

	if p.lexer.HasNewlineBefore {
		isSingleLine = false
	}
	p.lexer.Expect(js_lexer.TCloseBrace)

	// Throw an error here if we found a keyword earlier and this isn't an
	// "export from" statement after all
	if firstNonIdentifierLoc.Start != 0 && !p.lexer.IsContextualKeyword("from") {
		r := js_lexer.RangeOfIdentifier(p.source, firstNonIdentifierLoc)
		if r.Len == 0 {
			r = p.source.RangeOfString(firstNonIdentifierLoc)
		}
		p.addRangeError(r, fmt.Sprintf("Expected identifier but found %q", p.source.TextForRange(r)))
		panic(js_lexer.LexerPanic{})
	}

	return items, isSingleLine
}

func (p *parser) parseBinding() js_ast.Binding {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TIdentifier:
		name := p.lexer.Identifier
		p.checkBindingName(loc, name)
		ref := p.storeNameInRef(name)
		p.lexer.Next()
		return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}}

	case js_lexer.TOpenBracket:
		p.lexer.Next()
		items := []js_ast.ArrayBinding{}
		hasSpread := false

		// "in" expressions are allowed
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBracket {
			if p.lexer.Token == js_lexer.TComma {
				binding := js_ast.Binding{Loc: p.lexer.Loc(), Data: &js_ast.BMissing{}}
				items = append(items, js_ast.ArrayBinding{Binding: binding})
			} else {
				if p.lexer.Token == js_lexer.TDotDotDot {
					p.lexer.Next()
					hasSpread = true
				}

				binding := p.parseBinding()

				var defaultValue *js_ast.Expr
				if !hasSpread && p.lexer.Token == js_lexer.TEquals {
					p.lexer.Next()
					value := p.parseExpr(js_ast.LComma)
					defaultValue = &value
				}

				items = append(items, js_ast.ArrayBinding{Binding: binding, DefaultValue: defaultValue})

				// Commas after spread elements are not allowed
				if hasSpread && p.lexer.Token == js_lexer.TComma {
					p.addRangeError(p.lexer.Range(), "Unexpected \",\" after rest pattern")
					panic(js_lexer.LexerPanic{})
				}
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}

		p.allowIn = oldAllowIn

		p.lexer.Expect(js_lexer.TCloseBracket)
		return js_ast.Binding{Loc: loc, Data: &js_ast.BArray{Items: items, HasSpread: hasSpread}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		properties := []js_ast.PropertyBinding{}

		// "in" expressions are allowed
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBrace {
			property := p.parsePropertyBinding()
			properties = append(properties, property)

			// Commas after spread elements are not allowed
			if property.IsSpread && p.lexer.Token == js_lexer.TComma {
				p.addRangeError(p.lexer.Range(), "Unexpected \",\" after rest pattern")
				panic(js_lexer.LexerPanic{})
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}

		p.allowIn = oldAllowIn

		p.lexer.Expect(js_lexer.TCloseBrace)
		return js_ast.Binding{Loc: loc, Data: &js_ast.BObject{Properties: properties}}
	}

	p.lexer.Expect(js_lexer.TIdentifier)
	return js_ast.Binding{}
}

func (p *parser) parseFn(name *js_ast.LocRef, opts fnOpts) js_ast.Fn {
	args := []js_ast.Arg{}
	hasRestArg := false
	p.lexer.Expect(js_lexer.TOpenParen)

	// Await and yield are not allowed in the argument list of the function
	// they belong to, but they are still reserved
	oldFnOpts := p.currentFnOpts
	p.currentFnOpts = fnOpts{}

	for p.lexer.Token != js_lexer.TCloseParen {
		if !hasRestArg && p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			hasRestArg = true
		}

		arg := p.parseBinding()

		var defaultValue *js_ast.Expr
		if !hasRestArg && p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			value := p.parseExprAllowingIn(js_ast.LComma)
			defaultValue = &value
		}

		args = append(args, js_ast.Arg{Binding: arg, Default: defaultValue})
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		if hasRestArg {
			p.lexer.Expect(js_lexer.TCloseParen)
		}
		p.lexer.Next()
	}

	p.currentFnOpts = oldFnOpts
	p.lexer.Expect(js_lexer.TCloseParen)
	body := p.parseFnBody(opts)

	return js_ast.Fn{
		Name:         name,
		Args:         args,
		HasRestArg:   hasRestArg,
		IsAsync:      opts.allowAwait,
		IsGenerator:  opts.allowYield,
		Body:         body,
		ArgumentsRef: js_ast.InvalidRef,
	}
}

func (p *parser) parseClass(name *js_ast.LocRef) js_ast.Class {
	var extends *js_ast.Expr

	if p.lexer.Token == js_lexer.TExtends {
		p.lexer.Next()
		value := p.parseExpr(js_ast.LNew)
		extends = &value
	}

	bodyLoc := p.lexer.Loc()
	p.lexer.Expect(js_lexer.TOpenBrace)
	properties := []js_ast.Property{}

	// Allow "in" inside class bodies
	oldAllowIn := p.allowIn
	p.allowIn = true

	hasConstructor := false
	for p.lexer.Token != js_lexer.TCloseBrace {
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
			continue
		}

		property := p.parseProperty(propertyContextClass, js_ast.PropertyNormal, propertyOpts{}, nil)

		// Only one constructor is allowed
		if str, ok := property.Key.Data.(*js_ast.EString); ok && property.IsMethod && !property.IsStatic &&
			!property.IsComputed && helpers.UTF16EqualsString(str.Value, "constructor") {
			if hasConstructor {
				p.addError(property.Key.Loc, "Classes cannot contain more than one constructor")
			}
			hasConstructor = true
		}
		properties = append(properties, property)
	}

	p.allowIn = oldAllowIn

	p.lexer.Expect(js_lexer.TCloseBrace)
	return js_ast.Class{Name: name, Extends: extends, BodyLoc: bodyLoc, Properties: properties}
}

func (p *parser) parseLabelName() *js_ast.LocRef {
	if p.lexer.Token != js_lexer.TIdentifier || p.lexer.HasNewlineBefore {
		return nil
	}

	name := js_ast.LocRef{Loc: p.lexer.Loc(), Ref: p.storeNameInRef(p.lexer.Identifier)}
	p.lexer.Next()
	return &name
}

func (p *parser) parsePath() (logger.Range, string) {
	r := p.lexer.Range()
	text := helpers.UTF16ToString(p.lexer.StringLiteral)
	if p.lexer.Token == js_lexer.TNoSubstitutionTemplateLiteral {
		p.lexer.Next()
	} else {
		p.lexer.Expect(js_lexer.TStringLiteral)
	}
	return r, text
}

// This assumes the "function" token has already been parsed
func (p *parser) parseFnStmt(loc logger.Loc, opts parseStmtOpts, isAsync bool) js_ast.Stmt {
	isGenerator := p.lexer.Token == js_lexer.TAsterisk
	if isGenerator {
		p.lexer.Next()
	}
	var name *js_ast.LocRef
	if !opts.isNameOptional || p.lexer.Token == js_lexer.TIdentifier {
		nameLoc := p.lexer.Loc()
		nameText := p.lexer.Identifier
		p.lexer.Expect(js_lexer.TIdentifier)
		p.checkBindingName(nameLoc, nameText)
		name = &js_ast.LocRef{Loc: nameLoc, Ref: p.storeNameInRef(nameText)}
	}
	fn := p.parseFn(name, fnOpts{
		allowAwait:  isAsync,
		allowYield:  isGenerator,
		allowReturn: true,
	})
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn, IsExport: opts.isExport}}
}

type parseStmtOpts struct {
	allowImportAndExport bool
	isExport             bool
	isNameOptional       bool // For "export default" pseudo-statements
}

func (p *parser) parseStmt(opts parseStmtOpts) js_ast.Stmt {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSemicolon:
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}

	case js_lexer.TExport:
		if !opts.allowImportAndExport {
			if !p.options.IsModule {
				p.addRangeError(p.lexer.Range(), "Cannot use \"export\" outside a module")
				panic(js_lexer.LexerPanic{})
			}
			p.lexer.Unexpected()
		}
		p.lexer.Next()

		switch p.lexer.Token {
		case js_lexer.TClass, js_lexer.TConst, js_lexer.TFunction, js_lexer.TVar:
			opts.isExport = true
			return p.parseStmt(opts)

		case js_lexer.TIdentifier:
			if p.lexer.IsContextualKeyword("let") {
				opts.isExport = true
				return p.parseStmt(opts)
			}
			if p.lexer.IsContextualKeyword("async") {
				p.lexer.Next()
				if p.lexer.HasNewlineBefore {
					p.addRangeError(p.lexer.Range(), "Unexpected newline after \"async\"")
					panic(js_lexer.LexerPanic{})
				}
				p.lexer.Expect(js_lexer.TFunction)
				opts.isExport = true
				return p.parseFnStmt(loc, opts, true /* isAsync */)
			}
			p.lexer.Unexpected()
			return js_ast.Stmt{}

		case js_lexer.TDefault:
			defaultLoc := p.lexer.Loc()
			p.lexer.Next()

			// The binder generates a name for anonymous default exports
			defaultName := js_ast.LocRef{Loc: defaultLoc, Ref: js_ast.InvalidRef}

			// "export default async function() {}"
			if p.lexer.IsContextualKeyword("async") {
				asyncRange := p.lexer.Range()
				p.lexer.Next()

				if p.lexer.Token == js_lexer.TFunction && !p.lexer.HasNewlineBefore {
					p.lexer.Next()
					stmt := p.parseFnStmt(loc, parseStmtOpts{isNameOptional: true}, true /* isAsync */)
					return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: defaultName, Value: js_ast.ExprOrStmt{Stmt: &stmt}}}
				}

				expr := p.parseSuffix(p.parseAsyncExpr(asyncRange, js_ast.LComma), js_ast.LComma, nil)
				p.lexer.ExpectOrInsertSemicolon()
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: defaultName, Value: js_ast.ExprOrStmt{Expr: &expr}}}
			}

			if p.lexer.Token == js_lexer.TFunction || p.lexer.Token == js_lexer.TClass {
				stmt := p.parseStmt(parseStmtOpts{isNameOptional: true})
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: defaultName, Value: js_ast.ExprOrStmt{Stmt: &stmt}}}
			}

			expr := p.parseExpr(js_ast.LComma)
			p.lexer.ExpectOrInsertSemicolon()
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: defaultName, Value: js_ast.ExprOrStmt{Expr: &expr}}}

		case js_lexer.TAsterisk:
			p.lexer.Next()
			var alias *js_ast.ExportStarAlias
			if p.lexer.IsContextualKeyword("as") {
				// "export * as ns from 'path'"
				p.lexer.Next()
				name := p.lexer.Identifier
				if p.lexer.Token == js_lexer.TStringLiteral {
					name = helpers.UTF16ToString(p.lexer.StringLiteral)
				} else if !p.lexer.IsIdentifierOrKeyword() {
					p.lexer.Expect(js_lexer.TIdentifier)
				}
				alias = &js_ast.ExportStarAlias{Loc: p.lexer.Loc(), Name: name}
				p.lexer.Next()
			}
			p.lexer.ExpectContextualKeyword("from")
			pathRange, path := p.parsePath()
			p.lexer.ExpectOrInsertSemicolon()
			importRecordIndex := p.addImportRecord(ast.ImportStmt, pathRange, path)
			if alias != nil {
				p.importRecords[importRecordIndex].Flags |= ast.ContainsImportStar
			}
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportStar{
				NamespaceRef:      js_ast.InvalidRef,
				Alias:             alias,
				ImportRecordIndex: importRecordIndex,
			}}

		case js_lexer.TOpenBrace:
			items, _ := p.parseExportClause()
			if p.lexer.IsContextualKeyword("from") {
				// "export {a, b} from 'path'"
				p.lexer.Next()
				pathRange, path := p.parsePath()
				importRecordIndex := p.addImportRecord(ast.ImportStmt, pathRange, path)
				for _, item := range items {
					if item.OriginalName == "default" {
						p.importRecords[importRecordIndex].Flags |= ast.ContainsDefaultAlias
					}
				}
				p.lexer.ExpectOrInsertSemicolon()
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportFrom{
					Items:             items,
					NamespaceRef:      js_ast.InvalidRef,
					ImportRecordIndex: importRecordIndex,
				}}
			}
			p.lexer.ExpectOrInsertSemicolon()
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportClause{Items: items}}

		default:
			p.lexer.Unexpected()
			return js_ast.Stmt{}
		}

	case js_lexer.TFunction:
		p.lexer.Next()
		return p.parseFnStmt(loc, opts, false /* isAsync */)

	case js_lexer.TClass:
		p.lexer.Next()
		var name *js_ast.LocRef
		if !opts.isNameOptional || p.lexer.Token == js_lexer.TIdentifier {
			nameLoc := p.lexer.Loc()
			nameText := p.lexer.Identifier
			p.lexer.Expect(js_lexer.TIdentifier)
			p.checkBindingName(nameLoc, nameText)
			name = &js_ast.LocRef{Loc: nameLoc, Ref: p.storeNameInRef(nameText)}
		}
		class := p.parseClass(name)
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: class, IsExport: opts.isExport}}

	case js_lexer.TVar:
		p.lexer.Next()
		decls := p.parseDecls()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls, IsExport: opts.isExport}}

	case js_lexer.TConst:
		p.lexer.Next()
		decls := p.parseDecls()
		p.lexer.ExpectOrInsertSemicolon()
		p.requireInitializers(decls)
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: decls, IsExport: opts.isExport}}

	case js_lexer.TIf:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		yes := p.parseStmt(parseStmtOpts{})
		var no *js_ast.Stmt
		if p.lexer.Token == js_lexer.TElse {
			p.lexer.Next()
			stmt := p.parseStmt(parseStmtOpts{})
			no = &stmt
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: test, Yes: yes, No: no}}

	case js_lexer.TDo:
		p.lexer.Next()
		body := p.parseStmt(parseStmtOpts{})
		p.lexer.Expect(js_lexer.TWhile)
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)

		// This is a weird corner case where automatic semicolon insertion applies
		// even without a newline present
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDoWhile{Body: body, Test: test}}

	case js_lexer.TWhile:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: body}}

	case js_lexer.TWith:
		if p.options.IsModule {
			p.addRangeError(p.lexer.Range(), "With statements cannot be used in strict mode")
		}
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		bodyLoc := p.lexer.Loc()
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWith{Value: test, BodyLoc: bodyLoc, Body: body}}

	case js_lexer.TSwitch:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		bodyLoc := p.lexer.Loc()
		p.lexer.Expect(js_lexer.TOpenBrace)
		cases := []js_ast.Case{}
		foundDefault := false

		for p.lexer.Token != js_lexer.TCloseBrace {
			var value *js_ast.Expr
			body := []js_ast.Stmt{}

			if p.lexer.Token == js_lexer.TDefault {
				if foundDefault {
					p.addRangeError(p.lexer.Range(), "Multiple default clauses are not allowed")
					panic(js_lexer.LexerPanic{})
				}
				foundDefault = true
				p.lexer.Next()
				p.lexer.Expect(js_lexer.TColon)
			} else {
				p.lexer.Expect(js_lexer.TCase)
				expr := p.parseExpr(js_ast.LLowest)
				value = &expr
				p.lexer.Expect(js_lexer.TColon)
			}

		caseBody:
			for {
				switch p.lexer.Token {
				case js_lexer.TCloseBrace, js_lexer.TCase, js_lexer.TDefault:
					break caseBody

				default:
					body = append(body, p.parseStmt(parseStmtOpts{}))
				}
			}

			cases = append(cases, js_ast.Case{Value: value, Body: body})
		}

		p.lexer.Expect(js_lexer.TCloseBrace)
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SSwitch{Test: test, BodyLoc: bodyLoc, Cases: cases}}

	case js_lexer.TTry:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenBrace)
		body := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
		p.lexer.Next()

		var catch *js_ast.Catch
		var finally *js_ast.Finally

		if p.lexer.Token == js_lexer.TCatch {
			catchLoc := p.lexer.Loc()
			p.lexer.Next()
			var binding *js_ast.Binding

			// The catch binding is optional, and can be omitted
			if p.lexer.Token != js_lexer.TOpenBrace {
				p.lexer.Expect(js_lexer.TOpenParen)
				value := p.parseBinding()
				binding = &value
				p.lexer.Expect(js_lexer.TCloseParen)
			}

			p.lexer.Expect(js_lexer.TOpenBrace)
			stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
			p.lexer.Next()
			catch = &js_ast.Catch{Loc: catchLoc, Binding: binding, Body: stmts}
		}

		if p.lexer.Token == js_lexer.TFinally || catch == nil {
			finallyLoc := p.lexer.Loc()
			p.lexer.Expect(js_lexer.TFinally)
			p.lexer.Expect(js_lexer.TOpenBrace)
			stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
			p.lexer.Next()
			finally = &js_ast.Finally{Loc: finallyLoc, Stmts: stmts}
		}

		return js_ast.Stmt{Loc: loc, Data: &js_ast.STry{Body: body, Catch: catch, Finally: finally}}

	case js_lexer.TFor:
		return p.parseForStmt(loc)

	case js_lexer.TImport:
		return p.parseImportStmt(loc, opts)

	case js_lexer.TBreak:
		p.lexer.Next()
		name := p.parseLabelName()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBreak{Label: name}}

	case js_lexer.TContinue:
		p.lexer.Next()
		name := p.parseLabelName()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SContinue{Label: name}}

	case js_lexer.TReturn:
		returnRange := p.lexer.Range()
		if !p.currentFnOpts.allowReturn && p.options.IsModule {
			p.addRangeError(returnRange, "A return statement cannot be used here")
		}
		p.lexer.Next()
		var value *js_ast.Expr
		if p.lexer.Token != js_lexer.TSemicolon &&
			!p.lexer.HasNewlineBefore &&
			p.lexer.Token != js_lexer.TCloseBrace &&
			p.lexer.Token != js_lexer.TEndOfFile {
			expr := p.parseExpr(js_ast.LLowest)
			value = &expr
		}
		p.latestReturnHadSemicolon = p.lexer.Token == js_lexer.TSemicolon
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{Value: value}}

	case js_lexer.TThrow:
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			p.addError(logger.Loc{Start: loc.Start + 5}, "Unexpected newline after \"throw\"")
			panic(js_lexer.LexerPanic{})
		}
		expr := p.parseExpr(js_ast.LLowest)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: expr}}

	case js_lexer.TDebugger:
		p.lexer.Next()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDebugger{}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: stmts}}

	default:
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		raw := p.lexer.Raw()
		var expr js_ast.Expr

		if isIdentifier && raw == "async" {
			asyncRange := p.lexer.Range()
			p.lexer.Next()
			if p.lexer.Token == js_lexer.TFunction && !p.lexer.HasNewlineBefore {
				p.lexer.Next()
				return p.parseFnStmt(loc, opts, true /* isAsync */)
			}
			expr = p.parseSuffix(p.parseAsyncExpr(asyncRange, js_ast.LLowest), js_ast.LLowest, nil)
		} else if isIdentifier && raw == "let" {
			letRange := p.lexer.Range()
			p.lexer.Next()

			// "let x", "let [x]" and "let {x}" are declarations
			switch p.lexer.Token {
			case js_lexer.TIdentifier, js_lexer.TOpenBracket, js_lexer.TOpenBrace:
				decls := p.parseDecls()
				p.lexer.ExpectOrInsertSemicolon()
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: decls, IsExport: opts.isExport}}
			}

			// Otherwise "let" is a plain identifier in a script
			if p.options.IsModule || opts.isExport {
				p.addRangeError(letRange, "Unexpected \"let\"")
				panic(js_lexer.LexerPanic{})
			}
			ident := js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: p.storeNameInRef("let")}}
			expr = p.parseSuffix(ident, js_ast.LLowest, nil)
		} else {
			expr = p.parseExpr(js_ast.LLowest)
		}

		// Parse a labeled statement
		if ident, ok := expr.Data.(*js_ast.EIdentifier); ok && isIdentifier && p.lexer.Token == js_lexer.TColon {
			p.lexer.Next()
			name := js_ast.LocRef{Loc: expr.Loc, Ref: ident.Ref}
			stmt := p.parseStmt(parseStmtOpts{})
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SLabel{Name: name, Stmt: stmt}}
		}

		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: expr}}
	}
}

// This assumes the "for" token is the current token
func (p *parser) parseForStmt(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()

	// "for await (let x of y) {}"
	isAwait := p.lexer.IsContextualKeyword("await")
	if isAwait {
		if !p.currentFnOpts.allowAwait {
			p.addRangeError(p.lexer.Range(), "Cannot use \"await\" outside an async function")
			isAwait = false
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TOpenParen)

	var init *js_ast.Stmt
	var test *js_ast.Expr
	var update *js_ast.Expr

	// "in" expressions aren't allowed here
	oldAllowIn := p.allowIn
	p.allowIn = false

	var decls []js_ast.Decl
	initLoc := p.lexer.Loc()
	isVar := false
	switch {
	case p.lexer.Token == js_lexer.TVar:
		isVar = true
		p.lexer.Next()
		decls = p.parseDecls()
		init = &js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}

	case p.lexer.Token == js_lexer.TConst:
		p.lexer.Next()
		decls = p.parseDecls()
		init = &js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: decls}}

	case p.lexer.IsContextualKeyword("let"):
		p.lexer.Next()
		switch p.lexer.Token {
		case js_lexer.TIdentifier, js_lexer.TOpenBracket, js_lexer.TOpenBrace:
			decls = p.parseDecls()
			init = &js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: decls}}
		default:
			ident := js_ast.Expr{Loc: initLoc, Data: &js_ast.EIdentifier{Ref: p.storeNameInRef("let")}}
			init = &js_ast.Stmt{Loc: initLoc, Data: &js_ast.SExpr{Value: p.parseSuffix(ident, js_ast.LLowest, nil)}}
		}

	case p.lexer.Token == js_lexer.TSemicolon:

	default:
		init = &js_ast.Stmt{Loc: initLoc, Data: &js_ast.SExpr{Value: p.parseExpr(js_ast.LLowest)}}
	}

	// "in" expressions are allowed again
	p.allowIn = oldAllowIn

	// Detect for-of loops
	if p.lexer.IsContextualKeyword("of") || isAwait {
		if isAwait && !p.lexer.IsContextualKeyword("of") {
			if init != nil {
				p.lexer.ExpectedString("\"of\"")
			} else {
				p.lexer.Unexpected()
			}
		}
		if init == nil {
			p.lexer.Unexpected()
		}
		p.forbidInitializers(decls, "of", false)
		p.lexer.Next()
		value := p.parseExprAllowingIn(js_ast.LComma)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{IsAwait: isAwait, Init: *init, Value: value, Body: body}}
	}

	// Detect for-in loops
	if p.lexer.Token == js_lexer.TIn {
		if init == nil {
			p.lexer.Unexpected()
		}
		p.forbidInitializers(decls, "in", isVar)
		p.lexer.Next()
		value := p.parseExprAllowingIn(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{Init: *init, Value: value, Body: body}}
	}

	// Only require "const" statement initializers when we know we're a normal for loop
	if init != nil {
		if local, ok := init.Data.(*js_ast.SLocal); ok && local.Kind == js_ast.LocalConst {
			p.requireInitializers(decls)
		}
	}

	p.lexer.Expect(js_lexer.TSemicolon)

	if p.lexer.Token != js_lexer.TSemicolon {
		expr := p.parseExprAllowingIn(js_ast.LLowest)
		test = &expr
	}

	p.lexer.Expect(js_lexer.TSemicolon)

	if p.lexer.Token != js_lexer.TCloseParen {
		expr := p.parseExprAllowingIn(js_ast.LLowest)
		update = &expr
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	body := p.parseStmt(parseStmtOpts{})
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFor{Init: init, Test: test, Update: update, Body: body}}
}

// This assumes the "import" token is the current token
func (p *parser) parseImportStmt(loc logger.Loc, opts parseStmtOpts) js_ast.Stmt {
	importRange := p.lexer.Range()
	p.lexer.Next()

	// "import('path')"
	// "import.meta"
	if p.lexer.Token == js_lexer.TOpenParen || p.lexer.Token == js_lexer.TDot {
		expr := p.parseSuffix(p.parseImportExpr(loc), js_ast.LLowest, nil)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: expr}}
	}

	if !opts.allowImportAndExport {
		if !p.options.IsModule {
			p.addRangeError(importRange, "Cannot use import statement outside a module")
			panic(js_lexer.LexerPanic{})
		}
		p.lexer.Unexpected()
	}

	stmt := js_ast.SImport{NamespaceRef: js_ast.InvalidRef}
	var flags ast.ImportRecordFlags

	switch p.lexer.Token {
	case js_lexer.TStringLiteral, js_lexer.TNoSubstitutionTemplateLiteral:
		// "import 'path'"
		flags |= ast.WasOriginallyBareImport

	case js_lexer.TAsterisk:
		// "import * as ns from 'path'"
		p.lexer.Next()
		p.lexer.ExpectContextualKeyword("as")
		starLoc := p.lexer.Loc()
		p.checkBindingName(starLoc, p.lexer.Identifier)
		stmt.NamespaceRef = p.storeNameInRef(p.lexer.Identifier)
		stmt.StarNameLoc = &starLoc
		p.lexer.Expect(js_lexer.TIdentifier)
		p.lexer.ExpectContextualKeyword("from")
		flags |= ast.ContainsImportStar

	case js_lexer.TOpenBrace:
		// "import {item1, item2} from 'path'"
		items, hasDefault := p.parseImportClause()
		stmt.Items = &items
		if hasDefault {
			flags |= ast.ContainsDefaultAlias
		}
		p.lexer.ExpectContextualKeyword("from")

	case js_lexer.TIdentifier:
		// "import defaultItem from 'path'"
		defaultLoc := p.lexer.Loc()
		p.checkBindingName(defaultLoc, p.lexer.Identifier)
		stmt.DefaultName = &js_ast.LocRef{Loc: defaultLoc, Ref: p.storeNameInRef(p.lexer.Identifier)}
		flags |= ast.ContainsDefaultAlias
		p.lexer.Next()

		if p.lexer.Token == js_lexer.TComma {
			p.lexer.Next()
			switch p.lexer.Token {
			case js_lexer.TAsterisk:
				// "import defaultItem, * as ns from 'path'"
				p.lexer.Next()
				p.lexer.ExpectContextualKeyword("as")
				starLoc := p.lexer.Loc()
				p.checkBindingName(starLoc, p.lexer.Identifier)
				stmt.NamespaceRef = p.storeNameInRef(p.lexer.Identifier)
				stmt.StarNameLoc = &starLoc
				p.lexer.Expect(js_lexer.TIdentifier)
				flags |= ast.ContainsImportStar

			case js_lexer.TOpenBrace:
				// "import defaultItem, {item1, item2} from 'path'"
				items, _ := p.parseImportClause()
				stmt.Items = &items

			default:
				p.lexer.Unexpected()
			}
		}

		p.lexer.ExpectContextualKeyword("from")

	default:
		p.lexer.Unexpected()
		return js_ast.Stmt{}
	}

	pathRange, path := p.parsePath()
	p.lexer.ExpectOrInsertSemicolon()
	stmt.ImportRecordIndex = p.addImportRecord(ast.ImportStmt, pathRange, path)
	p.importRecords[stmt.ImportRecordIndex].Flags |= flags
	return js_ast.Stmt{Loc: loc, Data: &stmt}
}

func (p *parser) parseFnBody(opts fnOpts) js_ast.FnBody {
	oldFnOpts := p.currentFnOpts
	oldAllowIn := p.allowIn
	p.currentFnOpts = opts
	p.allowIn = true

	loc := p.lexer.Loc()
	p.lexer.Expect(js_lexer.TOpenBrace)
	stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
	p.lexer.Next()

	p.allowIn = oldAllowIn
	p.currentFnOpts = oldFnOpts
	return js_ast.FnBody{Loc: loc, Stmts: stmts}
}

func (p *parser) parseStmtsUpTo(end js_lexer.T, opts parseStmtOpts) []js_ast.Stmt {
	stmts := []js_ast.Stmt{}
	returnWithoutSemicolonStart := int32(-1)
	isDirectivePrologue := true

	for p.lexer.Token != end {
		// In recover mode a statement that fails to parse is replaced by an
		// error node and parsing picks up at the next statement boundary
		var stmt js_ast.Stmt
		if p.options.Recover {
			stmt = p.parseStmtOrSkip(end, opts)
		} else {
			stmt = p.parseStmt(opts)
		}

		// Turn a leading string literal statement into a directive
		if isDirectivePrologue {
			isDirectivePrologue = false
			if s, ok := stmt.Data.(*js_ast.SExpr); ok {
				if str, ok := s.Value.Data.(*js_ast.EString); ok && s.Value.Loc == stmt.Loc {
					stmt.Data = &js_ast.SDirective{Value: str.Value}
					isDirectivePrologue = true
				}
			}
		}

		stmts = append(stmts, stmt)

		// Warn about ASI and return statements
		if s, ok := stmt.Data.(*js_ast.SReturn); ok && s.Value == nil && !p.latestReturnHadSemicolon {
			returnWithoutSemicolonStart = stmt.Loc.Start
		} else {
			if returnWithoutSemicolonStart != -1 {
				if _, ok := stmt.Data.(*js_ast.SExpr); ok {
					p.log.AddWarningWithID(logger.MsgID_JS_UnreachableCode, &p.source,
						logger.Range{Loc: logger.Loc{Start: returnWithoutSemicolonStart + 6}},
						"The following expression is not returned because of an automatically-inserted semicolon")
				}
			}
			returnWithoutSemicolonStart = -1
		}
	}

	return stmts
}

func (p *parser) parseStmtOrSkip(end js_lexer.T, opts parseStmtOpts) (stmt js_ast.Stmt) {
	start := p.lexer.Loc()
	oldAllowIn := p.allowIn
	oldFnOpts := p.currentFnOpts

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, isLexerPanic := r.(js_lexer.LexerPanic); !isLexerPanic {
			panic(r)
		}

		p.allowIn = oldAllowIn
		p.currentFnOpts = oldFnOpts
		p.lexer.SkipToStatementBoundary()

		// Always make progress so a stray token can't cause an infinite loop
		if p.lexer.Loc() == start && p.lexer.Token != js_lexer.TEndOfFile && p.lexer.Token != end {
			p.lexer.SkipToken()
		}

		stop := p.lexer.Loc().Start
		if stop < start.Start {
			stop = start.Start
		}
		stmt = js_ast.Stmt{Loc: start, Data: &js_ast.SError{Text: p.source.Contents[start.Start:stop]}}
	}()

	return p.parseStmt(opts)
}

// Parses source text into a tree and binds it. The tree is returned even on
// failure in recover mode.
func Parse(log logger.Log, source logger.Source, options config.Options) (result js_ast.AST, ok bool) {
	tree, ok := parseUnbound(log, source, options)
	if !ok {
		return
	}
	if options.Recover {
		// Binding errors in a partial tree are reported but never fatal
		Bind(log, source, &tree, options)
		return tree, true
	}
	ok = Bind(log, source, &tree, options)
	result = tree
	return
}

func parseUnbound(log logger.Log, source logger.Source, options config.Options) (result js_ast.AST, ok bool) {
	ok = true
	defer func() {
		r := recover()
		if _, isLexerPanic := r.(js_lexer.LexerPanic); isLexerPanic {
			ok = false
		} else if r != nil {
			panic(r)
		}
	}()

	// Use a defer log to know whether this file had errors
	deferLog := logger.NewDeferLog()
	defer func() {
		for _, msg := range deferLog.Done() {
			log.AddMsg(msg)
		}
	}()

	p := &parser{
		log:     deferLog,
		source:  source,
		lexer:   js_lexer.NewLexer(deferLog, source),
		options: options,
		allowIn: true,
		currentFnOpts: fnOpts{
			// Scripts may return at the top level
			allowReturn: !options.IsModule,
		},
	}

	// Consume a leading hashbang comment
	hashbang := ""
	if p.lexer.Token == js_lexer.THashbang {
		hashbang = p.lexer.Identifier
		p.lexer.Next()
	}

	stmts := p.parseStmtsUpTo(js_lexer.TEndOfFile, parseStmtOpts{allowImportAndExport: options.IsModule})

	// Move the directive prologue out of the statement list
	directives := []string{}
	for len(stmts) > 0 {
		directive, isDirective := stmts[0].Data.(*js_ast.SDirective)
		if !isDirective {
			break
		}
		directives = append(directives, helpers.UTF16ToString(directive.Value))
		stmts = stmts[1:]
	}

	result = js_ast.AST{
		ApproximateLineCount: int32(p.lexer.ApproximateNewlineCount()) + 1,
		IsModule:             options.IsModule,
		Hashbang:             hashbang,
		Directives:           directives,
		Stmts:                stmts,
		Names:                p.names,
		ImportRecords:        p.importRecords,
		ExportsRef:           js_ast.InvalidRef,
		ModuleRef:            js_ast.InvalidRef,
	}

	if options.Recover {
		return
	}
	ok = !deferLog.HasErrors()
	return
}
