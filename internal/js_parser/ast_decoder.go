package js_parser

// This decodes the serialized form written by "js_ast.SerializeAST". The JSON
// text is read with the JSON parser in this package and then walked node by
// node. Identifiers are stored by name, so the result is an unbound tree just
// like the output of the parser and goes through the same binder.

import (
	"fmt"
	"math"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
)

type decodePanic struct{}

type astDecoder struct {
	log           logger.Log
	jsonSource    logger.Source
	names         []string
	importRecords []ast.ImportRecord
}

type astNode struct {
	loc    logger.Loc // Where the node is in the JSON text
	start  logger.Loc // Where the node was in the original source
	kind   string
	fields map[string]js_ast.Expr
}

var unaryOpsByText = map[string]js_ast.OpCode{}
var binaryOpsByText = map[string]js_ast.OpCode{}

func init() {
	for op := js_ast.UnOpPos; op <= js_ast.UnOpDelete; op++ {
		unaryOpsByText[js_ast.OpTable[op].Text] = op
	}
	for op := js_ast.BinOpAdd; int(op) < len(js_ast.OpTable); op++ {
		binaryOpsByText[js_ast.OpTable[op].Text] = op
	}
}

func (d *astDecoder) fail(loc logger.Loc, text string) {
	d.log.AddError(&d.jsonSource, loc, text)
	panic(decodePanic{})
}

func (d *astDecoder) storeNameInRef(name string) js_ast.Ref {
	ref := js_ast.Ref{SourceIndex: js_ast.PlaceholderSourceIndex, InnerIndex: uint32(len(d.names))}
	d.names = append(d.names, name)
	return ref
}

func (d *astDecoder) node(value js_ast.Expr) astNode {
	object, ok := value.Data.(*js_ast.EObject)
	if !ok {
		d.fail(value.Loc, "Expected an AST node object")
	}
	n := astNode{loc: value.Loc, fields: make(map[string]js_ast.Expr, len(object.Properties))}
	for _, property := range object.Properties {
		key := helpers.UTF16ToString(property.Key.Data.(*js_ast.EString).Value)
		n.fields[key] = *property.Value
	}
	n.kind = d.str(d.field(n, "type"))
	if start, ok := n.fields["start"]; ok {
		n.start = logger.Loc{Start: d.int32(start)}
	}
	return n
}

func (d *astDecoder) field(n astNode, name string) js_ast.Expr {
	value, ok := n.fields[name]
	if !ok {
		d.fail(n.loc, fmt.Sprintf("Missing field %q on %s node", name, n.kind))
	}
	return value
}

func (d *astDecoder) str(value js_ast.Expr) string {
	return helpers.UTF16ToString(d.utf16(value))
}

func (d *astDecoder) utf16(value js_ast.Expr) []uint16 {
	str, ok := value.Data.(*js_ast.EString)
	if !ok {
		d.fail(value.Loc, "Expected a string")
	}
	return str.Value
}

func (d *astDecoder) number(value js_ast.Expr) float64 {
	switch v := value.Data.(type) {
	case *js_ast.ENumber:
		return v.Value
	case *js_ast.EString:
		switch helpers.UTF16ToString(v.Value) {
		case "NaN":
			return math.NaN()
		case "Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
	}
	d.fail(value.Loc, "Expected a number")
	return 0
}

func (d *astDecoder) int32(value js_ast.Expr) int32 {
	number := d.number(value)
	if number != math.Trunc(number) || number < math.MinInt32 || number > math.MaxInt32 {
		d.fail(value.Loc, "Expected an integer")
	}
	return int32(number)
}

func (d *astDecoder) loc(n astNode, name string) logger.Loc {
	return logger.Loc{Start: d.int32(d.field(n, name))}
}

func (d *astDecoder) boolField(n astNode, name string) bool {
	value, ok := n.fields[name]
	if !ok {
		return false
	}
	b, ok := value.Data.(*js_ast.EBoolean)
	if !ok {
		d.fail(value.Loc, "Expected a boolean")
	}
	return b.Value
}

func (d *astDecoder) stringField(n astNode, name string) string {
	return d.str(d.field(n, name))
}

func (d *astDecoder) array(value js_ast.Expr) []js_ast.Expr {
	array, ok := value.Data.(*js_ast.EArray)
	if !ok {
		d.fail(value.Loc, "Expected an array")
	}
	return array.Items
}

func (d *astDecoder) nodes(n astNode, name string) []astNode {
	items := d.array(d.field(n, name))
	nodes := make([]astNode, len(items))
	for i, item := range items {
		nodes[i] = d.node(item)
	}
	return nodes
}

func (d *astDecoder) expectKind(n astNode, kind string) {
	if n.kind != kind {
		d.fail(n.loc, fmt.Sprintf("Expected %s node but found %s", kind, n.kind))
	}
}

func (d *astDecoder) name(n astNode) js_ast.LocRef {
	d.expectKind(n, "Identifier")
	return js_ast.LocRef{Loc: n.start, Ref: d.storeNameInRef(d.stringField(n, "name"))}
}

func (d *astDecoder) optionalName(n astNode, field string) *js_ast.LocRef {
	value, ok := n.fields[field]
	if !ok {
		return nil
	}
	name := d.name(d.node(value))
	return &name
}

func (d *astDecoder) exprField(n astNode, name string) js_ast.Expr {
	return d.expr(d.field(n, name))
}

func (d *astDecoder) optionalExprField(n astNode, name string) *js_ast.Expr {
	value, ok := n.fields[name]
	if !ok {
		return nil
	}
	expr := d.expr(value)
	return &expr
}

func (d *astDecoder) exprsField(n astNode, name string) []js_ast.Expr {
	items := d.array(d.field(n, name))
	exprs := make([]js_ast.Expr, len(items))
	for i, item := range items {
		exprs[i] = d.expr(item)
	}
	return exprs
}

func (d *astDecoder) stmtField(n astNode, name string) js_ast.Stmt {
	return d.stmt(d.field(n, name))
}

func (d *astDecoder) stmtsField(n astNode, name string) []js_ast.Stmt {
	items := d.array(d.field(n, name))
	stmts := make([]js_ast.Stmt, len(items))
	for i, item := range items {
		stmts[i] = d.stmt(item)
	}
	return stmts
}

func (d *astDecoder) optionalChain(n astNode) js_ast.OptionalChain {
	value, ok := n.fields["optional"]
	if !ok {
		return js_ast.OptionalChainNone
	}
	switch d.str(value) {
	case "start":
		return js_ast.OptionalChainStart
	case "continue":
		return js_ast.OptionalChainContinue
	}
	d.fail(value.Loc, "Invalid optional chain")
	return js_ast.OptionalChainNone
}

func (d *astDecoder) fnBody(n astNode) js_ast.FnBody {
	body := d.node(d.field(n, "body"))
	d.expectKind(body, "FunctionBody")
	return js_ast.FnBody{Loc: body.start, Stmts: d.stmtsField(body, "body")}
}

func (d *astDecoder) args(n astNode) []js_ast.Arg {
	params := d.nodes(n, "params")
	args := make([]js_ast.Arg, len(params))
	for i, param := range params {
		d.expectKind(param, "Param")
		args[i] = js_ast.Arg{
			Binding: d.binding(d.field(param, "pattern")),
			Default: d.optionalExprField(param, "default"),
		}
	}
	return args
}

func (d *astDecoder) fn(n astNode, name string) js_ast.Fn {
	f := d.node(d.field(n, name))
	d.expectKind(f, "Function")
	return js_ast.Fn{
		Name:         d.optionalName(f, "id"),
		Args:         d.args(f),
		Body:         d.fnBody(f),
		ArgumentsRef: js_ast.InvalidRef,
		IsAsync:      d.boolField(f, "async"),
		IsGenerator:  d.boolField(f, "generator"),
		HasRestArg:   d.boolField(f, "rest"),
	}
}

func (d *astDecoder) class(n astNode, name string) js_ast.Class {
	c := d.node(d.field(n, name))
	d.expectKind(c, "Class")
	return js_ast.Class{
		Name:       d.optionalName(c, "id"),
		Extends:    d.optionalExprField(c, "superClass"),
		BodyLoc:    d.loc(c, "bodyStart"),
		Properties: d.properties(c, "members"),
	}
}

func (d *astDecoder) properties(n astNode, name string) []js_ast.Property {
	nodes := d.nodes(n, name)
	properties := make([]js_ast.Property, len(nodes))
	for i, p := range nodes {
		d.expectKind(p, "Property")
		property := js_ast.Property{
			Value:        d.optionalExprField(p, "value"),
			Initializer:  d.optionalExprField(p, "initializer"),
			IsComputed:   d.boolField(p, "computed"),
			IsMethod:     d.boolField(p, "method"),
			IsStatic:     d.boolField(p, "static"),
			WasShorthand: d.boolField(p, "shorthand"),
		}
		switch kind := d.stringField(p, "kind"); kind {
		case "init":
			property.Kind = js_ast.PropertyNormal
		case "get":
			property.Kind = js_ast.PropertyGet
		case "set":
			property.Kind = js_ast.PropertySet
		case "spread":
			property.Kind = js_ast.PropertySpread
		default:
			d.fail(p.loc, fmt.Sprintf("Invalid property kind %q", kind))
		}
		if property.Kind == js_ast.PropertySpread {
			property.Key = js_ast.Expr{Loc: p.start, Data: &js_ast.EMissing{}}
		} else {
			property.Key = d.exprField(p, "key")
		}
		properties[i] = property
	}
	return properties
}

func (d *astDecoder) clauseItems(n astNode, name string) []js_ast.ClauseItem {
	nodes := d.nodes(n, name)
	items := make([]js_ast.ClauseItem, len(nodes))
	for i, item := range nodes {
		d.expectKind(item, "Specifier")
		local := d.name(d.node(d.field(item, "local")))
		original := ""
		if value, ok := item.fields["original"]; ok {
			original = d.str(value)
		}
		items[i] = js_ast.ClauseItem{
			Alias:        d.stringField(item, "alias"),
			AliasLoc:     d.loc(item, "aliasStart"),
			Name:         local,
			OriginalName: original,
		}
	}
	return items
}

func (d *astDecoder) importRecord(n astNode, flags ast.ImportRecordFlags) uint32 {
	path := d.stringField(n, "source")
	start := d.loc(n, "sourceStart")
	index := uint32(len(d.importRecords))
	d.importRecords = append(d.importRecords, ast.ImportRecord{
		Kind:  ast.ImportStmt,
		Range: logger.Range{Loc: start, Len: int32(len(helpers.QuoteForJSON(path)))},
		Path:  path,
		Flags: flags,
	})
	return index
}

func (d *astDecoder) binding(value js_ast.Expr) js_ast.Binding {
	n := d.node(value)

	switch n.kind {
	case "Missing":
		return js_ast.Binding{Loc: n.start, Data: &js_ast.BMissing{}}

	case "Identifier":
		return js_ast.Binding{Loc: n.start, Data: &js_ast.BIdentifier{Ref: d.storeNameInRef(d.stringField(n, "name"))}}

	case "ArrayPattern":
		elements := d.nodes(n, "elements")
		items := make([]js_ast.ArrayBinding, len(elements))
		for i, element := range elements {
			d.expectKind(element, "Element")
			items[i] = js_ast.ArrayBinding{
				Binding:      d.binding(d.field(element, "pattern")),
				DefaultValue: d.optionalExprField(element, "default"),
			}
		}
		return js_ast.Binding{Loc: n.start, Data: &js_ast.BArray{Items: items, HasSpread: d.boolField(n, "rest")}}

	case "ObjectPattern":
		nodes := d.nodes(n, "properties")
		properties := make([]js_ast.PropertyBinding, len(nodes))
		for i, p := range nodes {
			d.expectKind(p, "Property")
			property := js_ast.PropertyBinding{
				Value:        d.binding(d.field(p, "pattern")),
				DefaultValue: d.optionalExprField(p, "default"),
				IsComputed:   d.boolField(p, "computed"),
				IsSpread:     d.boolField(p, "spread"),
			}
			if property.IsSpread {
				property.Key = js_ast.Expr{Loc: p.start, Data: &js_ast.EMissing{}}
			} else {
				property.Key = d.exprField(p, "key")
			}
			properties[i] = property
		}
		return js_ast.Binding{Loc: n.start, Data: &js_ast.BObject{Properties: properties}}
	}

	d.fail(n.loc, fmt.Sprintf("Unexpected binding node %s", n.kind))
	return js_ast.Binding{}
}

func (d *astDecoder) expr(value js_ast.Expr) js_ast.Expr {
	n := d.node(value)
	loc := n.start

	switch n.kind {
	case "ArrayExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: d.exprsField(n, "elements"), IsSingleLine: d.boolField(n, "singleLine")}}

	case "UnaryExpression":
		text := d.stringField(n, "operator")
		op, ok := unaryOpsByText[text]
		if !ok {
			d.fail(n.loc, fmt.Sprintf("Invalid unary operator %q", text))
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: d.exprField(n, "argument")}}

	case "UpdateExpression":
		var op js_ast.OpCode
		isPrefix := d.boolField(n, "prefix")
		switch text := d.stringField(n, "operator"); {
		case text == "--" && isPrefix:
			op = js_ast.UnOpPreDec
		case text == "++" && isPrefix:
			op = js_ast.UnOpPreInc
		case text == "--":
			op = js_ast.UnOpPostDec
		case text == "++":
			op = js_ast.UnOpPostInc
		default:
			d.fail(n.loc, fmt.Sprintf("Invalid update operator %q", text))
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: d.exprField(n, "argument")}}

	case "BinaryExpression":
		text := d.stringField(n, "operator")
		op, ok := binaryOpsByText[text]
		if !ok {
			d.fail(n.loc, fmt.Sprintf("Invalid binary operator %q", text))
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: op, Left: d.exprField(n, "left"), Right: d.exprField(n, "right")}}

	case "BooleanLiteral":
		b, ok := d.field(n, "value").Data.(*js_ast.EBoolean)
		if !ok {
			d.fail(n.loc, "Expected a boolean")
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: b.Value}}

	case "Super":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ESuper{}}

	case "NullLiteral":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}

	case "Undefined":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUndefined{}}

	case "ThisExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}}

	case "NewExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: d.exprField(n, "callee"), Args: d.exprsField(n, "arguments")}}

	case "NewTarget":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENewTarget{}}

	case "ImportMeta":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImportMeta{}}

	case "CallExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
			Target:        d.exprField(n, "callee"),
			Args:          d.exprsField(n, "arguments"),
			OptionalChain: d.optionalChain(n),
		}}

	case "MemberExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EDot{
			Target:        d.exprField(n, "object"),
			Name:          d.stringField(n, "property"),
			NameLoc:       d.loc(n, "propertyStart"),
			OptionalChain: d.optionalChain(n),
		}}

	case "IndexExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{
			Target:        d.exprField(n, "object"),
			Index:         d.exprField(n, "index"),
			OptionalChain: d.optionalChain(n),
		}}

	case "ArrowFunctionExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArrow{
			Args:       d.args(n),
			Body:       d.fnBody(n),
			IsAsync:    d.boolField(n, "async"),
			HasRestArg: d.boolField(n, "rest"),
			PreferExpr: d.boolField(n, "expression"),
		}}

	case "FunctionExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: d.fn(n, "function")}}

	case "ClassExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: d.class(n, "class")}}

	case "Identifier":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: d.storeNameInRef(d.stringField(n, "name"))}}

	case "Missing":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EMissing{}}

	case "NumericLiteral":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: d.number(d.field(n, "value"))}}

	case "BigIntLiteral":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBigInt{Value: d.stringField(n, "value")}}

	case "ObjectExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: d.properties(n, "properties"), IsSingleLine: d.boolField(n, "singleLine")}}

	case "SpreadElement":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: d.exprField(n, "argument")}}

	case "StringLiteral":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: d.utf16(d.field(n, "value"))}}

	case "TemplateLiteral":
		template := &js_ast.ETemplate{
			Tag:  d.optionalExprField(n, "tag"),
			Head: d.utf16(d.field(n, "head")),
		}
		if template.Tag != nil {
			template.HeadRaw = d.stringField(n, "headRaw")
		}
		for _, part := range d.nodes(n, "parts") {
			d.expectKind(part, "TemplatePart")
			tp := js_ast.TemplatePart{
				Value:   d.exprField(part, "expression"),
				Tail:    d.utf16(d.field(part, "tail")),
				TailLoc: d.loc(part, "tailStart"),
			}
			if template.Tag != nil {
				tp.TailRaw = d.stringField(part, "tailRaw")
			}
			template.Parts = append(template.Parts, tp)
		}
		return js_ast.Expr{Loc: loc, Data: template}

	case "RegExpLiteral":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ERegExp{Value: d.stringField(n, "value")}}

	case "AwaitExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EAwait{Value: d.exprField(n, "argument")}}

	case "YieldExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EYield{Value: d.optionalExprField(n, "argument"), IsStar: d.boolField(n, "delegate")}}

	case "ConditionalExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{
			Test: d.exprField(n, "test"),
			Yes:  d.exprField(n, "consequent"),
			No:   d.exprField(n, "alternate"),
		}}

	case "RequireCall":
		// The binder turns this back into a require import record
		path := js_ast.Expr{Loc: d.loc(n, "sourceStart"), Data: &js_ast.EString{Value: d.utf16(d.field(n, "source"))}}
		require := js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: d.storeNameInRef("require")}}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{Target: require, Args: []js_ast.Expr{path}}}

	case "ImportExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImport{Expr: d.exprField(n, "argument")}}

	case "ErrorExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EError{Text: d.stringField(n, "text")}}
	}

	d.fail(n.loc, fmt.Sprintf("Unexpected expression node %s", n.kind))
	return js_ast.Expr{}
}

func (d *astDecoder) stmt(value js_ast.Expr) js_ast.Stmt {
	n := d.node(value)
	loc := n.start

	switch n.kind {
	case "BlockStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: d.stmtsField(n, "body")}}

	case "EmptyStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}

	case "DebuggerStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDebugger{}}

	case "Directive":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDirective{Value: d.utf16(d.field(n, "value"))}}

	case "ExportClause":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportClause{Items: d.clauseItems(n, "specifiers")}}

	case "ExportFrom":
		items := d.clauseItems(n, "specifiers")
		var flags ast.ImportRecordFlags
		for _, item := range items {
			if item.OriginalName == "default" {
				flags |= ast.ContainsDefaultAlias
			}
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportFrom{
			Items:             items,
			NamespaceRef:      js_ast.InvalidRef,
			ImportRecordIndex: d.importRecord(n, flags),
		}}

	case "ExportDefault":
		s := &js_ast.SExportDefault{DefaultName: js_ast.LocRef{Loc: d.loc(n, "defaultStart"), Ref: js_ast.InvalidRef}}
		if _, ok := n.fields["expression"]; ok {
			expr := d.exprField(n, "expression")
			s.Value.Expr = &expr
		} else {
			stmt := d.stmtField(n, "declaration")
			switch stmt.Data.(type) {
			case *js_ast.SFunction, *js_ast.SClass:
			default:
				d.fail(n.loc, "Expected a function or class declaration")
			}
			s.Value.Stmt = &stmt
		}
		return js_ast.Stmt{Loc: loc, Data: s}

	case "ExportStar":
		s := &js_ast.SExportStar{NamespaceRef: js_ast.InvalidRef}
		var flags ast.ImportRecordFlags
		if alias, ok := n.fields["alias"]; ok {
			s.Alias = &js_ast.ExportStarAlias{Loc: d.loc(n, "aliasStart"), Name: d.str(alias)}
			flags |= ast.ContainsImportStar
		}
		s.ImportRecordIndex = d.importRecord(n, flags)
		return js_ast.Stmt{Loc: loc, Data: s}

	case "ExpressionStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: d.exprField(n, "expression")}}

	case "FunctionDeclaration":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: d.fn(n, "function"), IsExport: d.boolField(n, "export")}}

	case "ClassDeclaration":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: d.class(n, "class"), IsExport: d.boolField(n, "export")}}

	case "LabeledStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLabel{
			Name: d.name(d.node(d.field(n, "label"))),
			Stmt: d.stmtField(n, "body"),
		}}

	case "IfStatement":
		s := &js_ast.SIf{Test: d.exprField(n, "test"), Yes: d.stmtField(n, "consequent")}
		if _, ok := n.fields["alternate"]; ok {
			no := d.stmtField(n, "alternate")
			s.No = &no
		}
		return js_ast.Stmt{Loc: loc, Data: s}

	case "ForStatement":
		s := &js_ast.SFor{
			Test:   d.optionalExprField(n, "test"),
			Update: d.optionalExprField(n, "update"),
			Body:   d.stmtField(n, "body"),
		}
		if _, ok := n.fields["init"]; ok {
			init := d.stmtField(n, "init")
			s.Init = &init
		}
		return js_ast.Stmt{Loc: loc, Data: s}

	case "ForInStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{
			Init:  d.stmtField(n, "left"),
			Value: d.exprField(n, "right"),
			Body:  d.stmtField(n, "body"),
		}}

	case "ForOfStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{
			IsAwait: d.boolField(n, "await"),
			Init:    d.stmtField(n, "left"),
			Value:   d.exprField(n, "right"),
			Body:    d.stmtField(n, "body"),
		}}

	case "DoWhileStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDoWhile{Body: d.stmtField(n, "body"), Test: d.exprField(n, "test")}}

	case "WhileStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: d.exprField(n, "test"), Body: d.stmtField(n, "body")}}

	case "WithStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWith{
			Value:   d.exprField(n, "object"),
			BodyLoc: d.loc(n, "bodyStart"),
			Body:    d.stmtField(n, "body"),
		}}

	case "TryStatement":
		s := &js_ast.STry{Body: d.stmtsField(n, "block")}
		if value, ok := n.fields["handler"]; ok {
			handler := d.node(value)
			d.expectKind(handler, "CatchClause")
			s.Catch = &js_ast.Catch{Loc: handler.start, Body: d.stmtsField(handler, "body")}
			if param, ok := handler.fields["param"]; ok {
				binding := d.binding(param)
				s.Catch.Binding = &binding
			}
		}
		if value, ok := n.fields["finalizer"]; ok {
			finalizer := d.node(value)
			d.expectKind(finalizer, "FinallyClause")
			s.Finally = &js_ast.Finally{Loc: finalizer.start, Stmts: d.stmtsField(finalizer, "body")}
		}
		if s.Catch == nil && s.Finally == nil {
			d.fail(n.loc, "A try statement needs a catch or finally clause")
		}
		return js_ast.Stmt{Loc: loc, Data: s}

	case "SwitchStatement":
		s := &js_ast.SSwitch{Test: d.exprField(n, "discriminant"), BodyLoc: d.loc(n, "bodyStart")}
		for _, c := range d.nodes(n, "cases") {
			d.expectKind(c, "SwitchCase")
			s.Cases = append(s.Cases, js_ast.Case{
				Value: d.optionalExprField(c, "test"),
				Body:  d.stmtsField(c, "consequent"),
			})
		}
		return js_ast.Stmt{Loc: loc, Data: s}

	case "ImportDeclaration":
		s := &js_ast.SImport{NamespaceRef: js_ast.InvalidRef}
		var flags ast.ImportRecordFlags
		s.DefaultName = d.optionalName(n, "default")
		if s.DefaultName != nil {
			flags |= ast.ContainsDefaultAlias
		}
		if namespace := d.optionalName(n, "namespace"); namespace != nil {
			s.NamespaceRef = namespace.Ref
			s.StarNameLoc = &namespace.Loc
			flags |= ast.ContainsImportStar
		}
		if _, ok := n.fields["specifiers"]; ok {
			items := d.clauseItems(n, "specifiers")
			for _, item := range items {
				if item.Alias == "default" {
					flags |= ast.ContainsDefaultAlias
				}
			}
			s.Items = &items
		}
		if s.DefaultName == nil && s.StarNameLoc == nil && s.Items == nil {
			flags |= ast.WasOriginallyBareImport
		}
		s.ImportRecordIndex = d.importRecord(n, flags)
		return js_ast.Stmt{Loc: loc, Data: s}

	case "ReturnStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{Value: d.optionalExprField(n, "argument")}}

	case "ThrowStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: d.exprField(n, "argument")}}

	case "VariableDeclaration":
		s := &js_ast.SLocal{IsExport: d.boolField(n, "export")}
		switch kind := d.stringField(n, "kind"); kind {
		case "var":
			s.Kind = js_ast.LocalVar
		case "let":
			s.Kind = js_ast.LocalLet
		case "const":
			s.Kind = js_ast.LocalConst
		default:
			d.fail(n.loc, fmt.Sprintf("Invalid declaration kind %q", kind))
		}
		for _, decl := range d.nodes(n, "declarations") {
			d.expectKind(decl, "VariableDeclarator")
			s.Decls = append(s.Decls, js_ast.Decl{
				Binding: d.binding(d.field(decl, "id")),
				Value:   d.optionalExprField(decl, "init"),
			})
		}
		return js_ast.Stmt{Loc: loc, Data: s}

	case "BreakStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBreak{Label: d.optionalName(n, "label")}}

	case "ContinueStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SContinue{Label: d.optionalName(n, "label")}}

	case "ErrorStatement":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SError{Text: d.stringField(n, "text")}}
	}

	d.fail(n.loc, fmt.Sprintf("Unexpected statement node %s", n.kind))
	return js_ast.Stmt{}
}

func (d *astDecoder) program(value js_ast.Expr) js_ast.AST {
	n := d.node(value)
	tree := js_ast.AST{
		ApproximateLineCount: 1,
		ExportsRef:           js_ast.InvalidRef,
		ModuleRef:            js_ast.InvalidRef,
	}

	switch n.kind {
	case "Module":
		tree.IsModule = true
	case "Script":
	default:
		d.fail(n.loc, fmt.Sprintf("Expected Module or Script node but found %s", n.kind))
	}

	if hashbang, ok := n.fields["hashbang"]; ok {
		tree.Hashbang = d.str(hashbang)
	}
	if directives, ok := n.fields["directives"]; ok {
		for _, directive := range d.array(directives) {
			tree.Directives = append(tree.Directives, d.str(directive))
		}
	}
	tree.Stmts = d.stmtsField(n, "body")
	tree.Names = d.names
	tree.ImportRecords = d.importRecords
	return tree
}

// ParseSerializedAST decodes a tree written by "js_ast.SerializeAST" and binds
// it. Decoding errors point into the JSON text. Binding errors use "source",
// which describes the program the tree came from; its contents may be empty.
// Whether the tree is a module comes from the serialized form, not from the
// options.
func ParseSerializedAST(log logger.Log, jsonSource logger.Source, source logger.Source, options config.Options) (result js_ast.AST, ok bool) {
	value, ok := ParseJSON(log, jsonSource, ParseJSONOptions{})
	if !ok {
		return js_ast.AST{}, false
	}

	d := &astDecoder{log: log, jsonSource: jsonSource}
	tree, ok := d.decode(value)
	if !ok {
		return js_ast.AST{}, false
	}

	options.IsModule = tree.IsModule
	if !Bind(log, source, &tree, options) {
		return tree, false
	}
	return tree, true
}

func (d *astDecoder) decode(value js_ast.Expr) (tree js_ast.AST, ok bool) {
	ok = true
	defer func() {
		r := recover()
		if _, isDecodePanic := r.(decodePanic); isDecodePanic {
			ok = false
		} else if r != nil {
			panic(r)
		}
	}()
	tree = d.program(value)
	return
}
