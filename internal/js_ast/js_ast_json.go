package js_ast

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jspipe/jspipe/internal/helpers"
)

// The serialized form of a tree is JSON. Every node is an object with a
// "type" field and a "start" field holding the byte offset of the node in the
// source. Identifiers are stored by name, so decoding a tree re-runs the
// binder. The decoder lives in "js_parser.ParseSerializedAST".

type jsonPrinter struct {
	tree *AST
	js   []byte
}

// Serializes a parsed tree. The tree may be bound or unbound.
func SerializeAST(tree *AST) string {
	p := &jsonPrinter{tree: tree}
	kind := "Script"
	if tree.IsModule {
		kind = "Module"
	}
	p.js = append(p.js, `{"type":"`...)
	p.js = append(p.js, kind...)
	p.js = append(p.js, '"')
	if tree.Hashbang != "" {
		p.stringField("hashbang", tree.Hashbang)
	}
	p.js = append(p.js, `,"directives":[`...)
	for i, directive := range tree.Directives {
		if i > 0 {
			p.js = append(p.js, ',')
		}
		p.js = append(p.js, helpers.QuoteForJSON(directive)...)
	}
	p.js = append(p.js, ']')
	p.stmtsField("body", tree.Stmts)
	p.js = append(p.js, '}')
	return string(p.js)
}

func (p *jsonPrinter) nameOf(ref Ref) string {
	if ref.IsPlaceholder() {
		return p.tree.Names[ref.InnerIndex]
	}
	return p.tree.Symbols[ref.InnerIndex].OriginalName
}

func (p *jsonPrinter) begin(kind string, start int32) {
	p.js = append(p.js, `{"type":"`...)
	p.js = append(p.js, kind...)
	p.js = append(p.js, `","start":`...)
	p.js = strconv.AppendInt(p.js, int64(start), 10)
}

func (p *jsonPrinter) end() {
	p.js = append(p.js, '}')
}

func (p *jsonPrinter) key(name string) {
	p.js = append(p.js, ',', '"')
	p.js = append(p.js, name...)
	p.js = append(p.js, '"', ':')
}

func (p *jsonPrinter) stringField(name string, value string) {
	p.key(name)
	p.js = append(p.js, helpers.QuoteForJSON(value)...)
}

func (p *jsonPrinter) utf16Field(name string, value []uint16) {
	p.key(name)
	p.js = append(p.js, helpers.QuoteUTF16ForJSON(value)...)
}

func (p *jsonPrinter) boolField(name string, value bool) {
	if value {
		p.key(name)
		p.js = append(p.js, "true"...)
	}
}

func (p *jsonPrinter) intField(name string, value int32) {
	p.key(name)
	p.js = strconv.AppendInt(p.js, int64(value), 10)
}

func (p *jsonPrinter) nameField(name string, ref LocRef) {
	p.key(name)
	p.begin("Identifier", ref.Loc.Start)
	p.stringField("name", p.nameOf(ref.Ref))
	p.end()
}

func (p *jsonPrinter) exprField(name string, expr Expr) {
	p.key(name)
	p.expr(expr)
}

func (p *jsonPrinter) optionalExprField(name string, expr *Expr) {
	if expr != nil {
		p.exprField(name, *expr)
	}
}

func (p *jsonPrinter) exprsField(name string, exprs []Expr) {
	p.key(name)
	p.js = append(p.js, '[')
	for i, expr := range exprs {
		if i > 0 {
			p.js = append(p.js, ',')
		}
		p.expr(expr)
	}
	p.js = append(p.js, ']')
}

func (p *jsonPrinter) stmtField(name string, stmt Stmt) {
	p.key(name)
	p.stmt(stmt)
}

func (p *jsonPrinter) stmtsField(name string, stmts []Stmt) {
	p.key(name)
	p.js = append(p.js, '[')
	for i, stmt := range stmts {
		if i > 0 {
			p.js = append(p.js, ',')
		}
		p.stmt(stmt)
	}
	p.js = append(p.js, ']')
}

func (p *jsonPrinter) optionalChainField(chain OptionalChain) {
	switch chain {
	case OptionalChainStart:
		p.stringField("optional", "start")
	case OptionalChainContinue:
		p.stringField("optional", "continue")
	}
}

func (p *jsonPrinter) fnBodyField(body FnBody) {
	p.key("body")
	p.begin("FunctionBody", body.Loc.Start)
	p.stmtsField("body", body.Stmts)
	p.end()
}

func (p *jsonPrinter) argsField(args []Arg) {
	p.key("params")
	p.js = append(p.js, '[')
	for i, arg := range args {
		if i > 0 {
			p.js = append(p.js, ',')
		}
		p.begin("Param", arg.Binding.Loc.Start)
		p.key("pattern")
		p.binding(arg.Binding)
		p.optionalExprField("default", arg.Default)
		p.end()
	}
	p.js = append(p.js, ']')
}

func (p *jsonPrinter) fnField(name string, start int32, fn Fn) {
	p.key(name)
	p.begin("Function", start)
	if fn.Name != nil {
		p.nameField("id", *fn.Name)
	}
	p.argsField(fn.Args)
	p.fnBodyField(fn.Body)
	p.boolField("async", fn.IsAsync)
	p.boolField("generator", fn.IsGenerator)
	p.boolField("rest", fn.HasRestArg)
	p.end()
}

func (p *jsonPrinter) classField(name string, start int32, class Class) {
	p.key(name)
	p.begin("Class", start)
	if class.Name != nil {
		p.nameField("id", *class.Name)
	}
	p.optionalExprField("superClass", class.Extends)
	p.intField("bodyStart", class.BodyLoc.Start)
	p.propertiesField("members", class.Properties)
	p.end()
}

func (p *jsonPrinter) propertiesField(name string, properties []Property) {
	p.key(name)
	p.js = append(p.js, '[')
	for i, property := range properties {
		if i > 0 {
			p.js = append(p.js, ',')
		}
		p.begin("Property", property.Key.Loc.Start)
		switch property.Kind {
		case PropertyGet:
			p.stringField("kind", "get")
		case PropertySet:
			p.stringField("kind", "set")
		case PropertySpread:
			p.stringField("kind", "spread")
		default:
			p.stringField("kind", "init")
		}
		if property.Kind != PropertySpread {
			p.exprField("key", property.Key)
		}
		p.optionalExprField("value", property.Value)
		p.optionalExprField("initializer", property.Initializer)
		p.boolField("computed", property.IsComputed)
		p.boolField("method", property.IsMethod)
		p.boolField("static", property.IsStatic)
		p.boolField("shorthand", property.WasShorthand)
		p.end()
	}
	p.js = append(p.js, ']')
}

func (p *jsonPrinter) clauseItemsField(name string, items []ClauseItem) {
	p.key(name)
	p.js = append(p.js, '[')
	for i, item := range items {
		if i > 0 {
			p.js = append(p.js, ',')
		}
		p.begin("Specifier", item.Name.Loc.Start)
		p.nameField("local", item.Name)
		p.stringField("alias", item.Alias)
		p.intField("aliasStart", item.AliasLoc.Start)
		if item.OriginalName != "" {
			p.stringField("original", item.OriginalName)
		}
		p.end()
	}
	p.js = append(p.js, ']')
}

func (p *jsonPrinter) sourceField(index uint32) {
	record := &p.tree.ImportRecords[index]
	p.stringField("source", record.Path)
	p.intField("sourceStart", record.Range.Loc.Start)
}

func (p *jsonPrinter) binding(binding Binding) {
	switch b := binding.Data.(type) {
	case *BMissing:
		p.begin("Missing", binding.Loc.Start)

	case *BIdentifier:
		p.begin("Identifier", binding.Loc.Start)
		p.stringField("name", p.nameOf(b.Ref))

	case *BArray:
		p.begin("ArrayPattern", binding.Loc.Start)
		p.key("elements")
		p.js = append(p.js, '[')
		for i, item := range b.Items {
			if i > 0 {
				p.js = append(p.js, ',')
			}
			p.begin("Element", item.Binding.Loc.Start)
			p.key("pattern")
			p.binding(item.Binding)
			p.optionalExprField("default", item.DefaultValue)
			p.end()
		}
		p.js = append(p.js, ']')
		p.boolField("rest", b.HasSpread)

	case *BObject:
		p.begin("ObjectPattern", binding.Loc.Start)
		p.key("properties")
		p.js = append(p.js, '[')
		for i, property := range b.Properties {
			if i > 0 {
				p.js = append(p.js, ',')
			}
			p.begin("Property", property.Value.Loc.Start)
			if !property.IsSpread {
				p.exprField("key", property.Key)
			}
			p.key("pattern")
			p.binding(property.Value)
			p.optionalExprField("default", property.DefaultValue)
			p.boolField("computed", property.IsComputed)
			p.boolField("spread", property.IsSpread)
			p.end()
		}
		p.js = append(p.js, ']')

	default:
		panic(fmt.Sprintf("Unexpected binding of type %T", binding.Data))
	}
	p.end()
}

func (p *jsonPrinter) expr(expr Expr) {
	start := expr.Loc.Start

	switch e := expr.Data.(type) {
	case *EArray:
		p.begin("ArrayExpression", start)
		p.exprsField("elements", e.Items)
		p.boolField("singleLine", e.IsSingleLine)

	case *EUnary:
		if e.Op.UnaryAssignTarget() == AssignTargetUpdate {
			p.begin("UpdateExpression", start)
			p.boolField("prefix", e.Op.IsPrefix())
		} else {
			p.begin("UnaryExpression", start)
		}
		p.stringField("operator", OpTable[e.Op].Text)
		p.exprField("argument", e.Value)

	case *EBinary:
		p.begin("BinaryExpression", start)
		p.stringField("operator", OpTable[e.Op].Text)
		p.exprField("left", e.Left)
		p.exprField("right", e.Right)

	case *EBoolean:
		p.begin("BooleanLiteral", start)
		p.key("value")
		p.js = strconv.AppendBool(p.js, e.Value)

	case *ESuper:
		p.begin("Super", start)

	case *ENull:
		p.begin("NullLiteral", start)

	case *EUndefined:
		p.begin("Undefined", start)

	case *EThis:
		p.begin("ThisExpression", start)

	case *ENew:
		p.begin("NewExpression", start)
		p.exprField("callee", e.Target)
		p.exprsField("arguments", e.Args)

	case *ENewTarget:
		p.begin("NewTarget", start)

	case *EImportMeta:
		p.begin("ImportMeta", start)

	case *ECall:
		p.begin("CallExpression", start)
		p.exprField("callee", e.Target)
		p.exprsField("arguments", e.Args)
		p.optionalChainField(e.OptionalChain)

	case *EDot:
		p.begin("MemberExpression", start)
		p.exprField("object", e.Target)
		p.stringField("property", e.Name)
		p.intField("propertyStart", e.NameLoc.Start)
		p.optionalChainField(e.OptionalChain)

	case *EIndex:
		p.begin("IndexExpression", start)
		p.exprField("object", e.Target)
		p.exprField("index", e.Index)
		p.optionalChainField(e.OptionalChain)

	case *EArrow:
		p.begin("ArrowFunctionExpression", start)
		p.argsField(e.Args)
		p.fnBodyField(e.Body)
		p.boolField("async", e.IsAsync)
		p.boolField("rest", e.HasRestArg)
		p.boolField("expression", e.PreferExpr)

	case *EFunction:
		p.begin("FunctionExpression", start)
		p.fnField("function", start, e.Fn)

	case *EClass:
		p.begin("ClassExpression", start)
		p.classField("class", start, e.Class)

	case *EIdentifier:
		p.begin("Identifier", start)
		p.stringField("name", p.nameOf(e.Ref))

	case *EImportIdentifier:
		p.begin("Identifier", start)
		p.stringField("name", p.nameOf(e.Ref))

	case *EMissing:
		p.begin("Missing", start)

	case *ENumber:
		p.begin("NumericLiteral", start)
		p.key("value")
		switch {
		case math.IsNaN(e.Value):
			p.js = append(p.js, `"NaN"`...)
		case math.IsInf(e.Value, 1):
			p.js = append(p.js, `"Infinity"`...)
		case math.IsInf(e.Value, -1):
			p.js = append(p.js, `"-Infinity"`...)
		default:
			p.js = strconv.AppendFloat(p.js, e.Value, 'g', -1, 64)
		}

	case *EBigInt:
		p.begin("BigIntLiteral", start)
		p.stringField("value", e.Value)

	case *EObject:
		p.begin("ObjectExpression", start)
		p.propertiesField("properties", e.Properties)
		p.boolField("singleLine", e.IsSingleLine)

	case *ESpread:
		p.begin("SpreadElement", start)
		p.exprField("argument", e.Value)

	case *EString:
		p.begin("StringLiteral", start)
		p.utf16Field("value", e.Value)

	case *ETemplate:
		p.begin("TemplateLiteral", start)
		p.optionalExprField("tag", e.Tag)
		p.utf16Field("head", e.Head)
		if e.Tag != nil {
			p.stringField("headRaw", e.HeadRaw)
		}
		p.key("parts")
		p.js = append(p.js, '[')
		for i, part := range e.Parts {
			if i > 0 {
				p.js = append(p.js, ',')
			}
			p.begin("TemplatePart", part.Value.Loc.Start)
			p.exprField("expression", part.Value)
			p.utf16Field("tail", part.Tail)
			p.intField("tailStart", part.TailLoc.Start)
			if e.Tag != nil {
				p.stringField("tailRaw", part.TailRaw)
			}
			p.end()
		}
		p.js = append(p.js, ']')

	case *ERegExp:
		p.begin("RegExpLiteral", start)
		p.stringField("value", e.Value)

	case *EAwait:
		p.begin("AwaitExpression", start)
		p.exprField("argument", e.Value)

	case *EYield:
		p.begin("YieldExpression", start)
		p.optionalExprField("argument", e.Value)
		p.boolField("delegate", e.IsStar)

	case *EIf:
		p.begin("ConditionalExpression", start)
		p.exprField("test", e.Test)
		p.exprField("consequent", e.Yes)
		p.exprField("alternate", e.No)

	case *ERequire:
		p.begin("RequireCall", start)
		p.sourceField(e.ImportRecordIndex)

	case *EImport:
		p.begin("ImportExpression", start)
		p.exprField("argument", e.Expr)

	case *EError:
		p.begin("ErrorExpression", start)
		p.stringField("text", e.Text)

	default:
		panic(fmt.Sprintf("Unexpected expression of type %T", expr.Data))
	}

	p.end()
}

func (p *jsonPrinter) stmt(stmt Stmt) {
	start := stmt.Loc.Start

	switch s := stmt.Data.(type) {
	case *SBlock:
		p.begin("BlockStatement", start)
		p.stmtsField("body", s.Stmts)

	case *SEmpty:
		p.begin("EmptyStatement", start)

	case *SDebugger:
		p.begin("DebuggerStatement", start)

	case *SDirective:
		p.begin("Directive", start)
		p.utf16Field("value", s.Value)

	case *SExportClause:
		p.begin("ExportClause", start)
		p.clauseItemsField("specifiers", s.Items)

	case *SExportFrom:
		p.begin("ExportFrom", start)
		p.clauseItemsField("specifiers", s.Items)
		p.sourceField(s.ImportRecordIndex)

	case *SExportDefault:
		p.begin("ExportDefault", start)
		p.intField("defaultStart", s.DefaultName.Loc.Start)
		if s.Value.Expr != nil {
			p.exprField("expression", *s.Value.Expr)
		} else {
			p.stmtField("declaration", *s.Value.Stmt)
		}

	case *SExportStar:
		p.begin("ExportStar", start)
		if s.Alias != nil {
			p.stringField("alias", s.Alias.Name)
			p.intField("aliasStart", s.Alias.Loc.Start)
		}
		p.sourceField(s.ImportRecordIndex)

	case *SExpr:
		p.begin("ExpressionStatement", start)
		p.exprField("expression", s.Value)

	case *SFunction:
		p.begin("FunctionDeclaration", start)
		p.fnField("function", start, s.Fn)
		p.boolField("export", s.IsExport)

	case *SClass:
		p.begin("ClassDeclaration", start)
		p.classField("class", start, s.Class)
		p.boolField("export", s.IsExport)

	case *SLabel:
		p.begin("LabeledStatement", start)
		p.nameField("label", s.Name)
		p.stmtField("body", s.Stmt)

	case *SIf:
		p.begin("IfStatement", start)
		p.exprField("test", s.Test)
		p.stmtField("consequent", s.Yes)
		if s.No != nil {
			p.stmtField("alternate", *s.No)
		}

	case *SFor:
		p.begin("ForStatement", start)
		if s.Init != nil {
			p.stmtField("init", *s.Init)
		}
		p.optionalExprField("test", s.Test)
		p.optionalExprField("update", s.Update)
		p.stmtField("body", s.Body)

	case *SForIn:
		p.begin("ForInStatement", start)
		p.stmtField("left", s.Init)
		p.exprField("right", s.Value)
		p.stmtField("body", s.Body)

	case *SForOf:
		p.begin("ForOfStatement", start)
		p.boolField("await", s.IsAwait)
		p.stmtField("left", s.Init)
		p.exprField("right", s.Value)
		p.stmtField("body", s.Body)

	case *SDoWhile:
		p.begin("DoWhileStatement", start)
		p.stmtField("body", s.Body)
		p.exprField("test", s.Test)

	case *SWhile:
		p.begin("WhileStatement", start)
		p.exprField("test", s.Test)
		p.stmtField("body", s.Body)

	case *SWith:
		p.begin("WithStatement", start)
		p.exprField("object", s.Value)
		p.intField("bodyStart", s.BodyLoc.Start)
		p.stmtField("body", s.Body)

	case *STry:
		p.begin("TryStatement", start)
		p.stmtsField("block", s.Body)
		if s.Catch != nil {
			p.key("handler")
			p.begin("CatchClause", s.Catch.Loc.Start)
			if s.Catch.Binding != nil {
				p.key("param")
				p.binding(*s.Catch.Binding)
			}
			p.stmtsField("body", s.Catch.Body)
			p.end()
		}
		if s.Finally != nil {
			p.key("finalizer")
			p.begin("FinallyClause", s.Finally.Loc.Start)
			p.stmtsField("body", s.Finally.Stmts)
			p.end()
		}

	case *SSwitch:
		p.begin("SwitchStatement", start)
		p.exprField("discriminant", s.Test)
		p.intField("bodyStart", s.BodyLoc.Start)
		p.key("cases")
		p.js = append(p.js, '[')
		for i, c := range s.Cases {
			if i > 0 {
				p.js = append(p.js, ',')
			}
			caseStart := start
			if c.Value != nil {
				caseStart = c.Value.Loc.Start
			}
			p.begin("SwitchCase", caseStart)
			p.optionalExprField("test", c.Value)
			p.stmtsField("consequent", c.Body)
			p.end()
		}
		p.js = append(p.js, ']')

	case *SImport:
		p.begin("ImportDeclaration", start)
		if s.DefaultName != nil {
			p.nameField("default", *s.DefaultName)
		}
		if s.StarNameLoc != nil {
			p.nameField("namespace", LocRef{Loc: *s.StarNameLoc, Ref: s.NamespaceRef})
		}
		if s.Items != nil {
			p.clauseItemsField("specifiers", *s.Items)
		}
		p.sourceField(s.ImportRecordIndex)

	case *SReturn:
		p.begin("ReturnStatement", start)
		p.optionalExprField("argument", s.Value)

	case *SThrow:
		p.begin("ThrowStatement", start)
		p.exprField("argument", s.Value)

	case *SLocal:
		p.begin("VariableDeclaration", start)
		p.stringField("kind", s.Kind.String())
		p.key("declarations")
		p.js = append(p.js, '[')
		for i, decl := range s.Decls {
			if i > 0 {
				p.js = append(p.js, ',')
			}
			p.begin("VariableDeclarator", decl.Binding.Loc.Start)
			p.key("id")
			p.binding(decl.Binding)
			p.optionalExprField("init", decl.Value)
			p.end()
		}
		p.js = append(p.js, ']')
		p.boolField("export", s.IsExport)

	case *SBreak:
		p.begin("BreakStatement", start)
		if s.Label != nil {
			p.nameField("label", *s.Label)
		}

	case *SContinue:
		p.begin("ContinueStatement", start)
		if s.Label != nil {
			p.nameField("label", *s.Label)
		}

	case *SError:
		p.begin("ErrorStatement", start)
		p.stringField("text", s.Text)

	default:
		panic(fmt.Sprintf("Unexpected statement of type %T", stmt.Data))
	}

	p.end()
}
