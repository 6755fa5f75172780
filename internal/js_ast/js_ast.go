package js_ast

import (
	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/logger"
)

// Each file parses into its own AST. Identifiers refer to symbols through a
// Ref into the file's symbol table, which lives next to the statements so that
// renaming can walk the symbols without walking the tree.
//
// A tree doesn't change once it has been bound. Passes copy the nodes they
// rewrite and share everything else with their input.

type L int

// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Operators/Operator_Precedence
const (
	LLowest L = iota
	LComma
	LSpread
	LYield
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LBitwiseOr
	LBitwiseXor
	LBitwiseAnd
	LEquals
	LCompare
	LShift
	LAdd
	LMultiply
	LExponentiation
	LPrefix
	LPostfix
	LNew
	LCall
	LMember
)

type OpCode int

func (op OpCode) IsPrefix() bool {
	return op < UnOpPostDec
}

func (op OpCode) UnaryAssignTarget() AssignTarget {
	if op >= UnOpPreDec && op <= UnOpPostInc {
		return AssignTargetUpdate
	}
	return AssignTargetNone
}

func (op OpCode) IsLeftAssociative() bool {
	return op >= BinOpAdd && op < BinOpComma && op != BinOpPow
}

func (op OpCode) IsRightAssociative() bool {
	return op >= BinOpAssign || op == BinOpPow
}

func (op OpCode) BinaryAssignTarget() AssignTarget {
	if op == BinOpAssign {
		return AssignTargetReplace
	}
	if op > BinOpAssign {
		return AssignTargetUpdate
	}
	return AssignTargetNone
}

func (op OpCode) IsShortCircuit() bool {
	switch op {
	case BinOpLogicalOr, BinOpLogicalOrAssign,
		BinOpLogicalAnd, BinOpLogicalAndAssign,
		BinOpNullishCoalescing, BinOpNullishCoalescingAssign:
		return true
	}
	return false
}

type AssignTarget uint8

const (
	AssignTargetNone    AssignTarget = iota
	AssignTargetReplace              // "a = b"
	AssignTargetUpdate               // "a += b"
)

// Every operator needs an entry in "OpTable"
const (
	// Prefix
	UnOpPos OpCode = iota
	UnOpNeg
	UnOpCpl
	UnOpNot
	UnOpVoid
	UnOpTypeof
	UnOpDelete

	// Prefix update
	UnOpPreDec
	UnOpPreInc

	// Postfix update
	UnOpPostDec
	UnOpPostInc

	// Left-associative
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpRem
	BinOpPow
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpIn
	BinOpInstanceof
	BinOpShl
	BinOpShr
	BinOpUShr
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpNullishCoalescing
	BinOpLogicalOr
	BinOpLogicalAnd
	BinOpBitwiseOr
	BinOpBitwiseAnd
	BinOpBitwiseXor

	// Non-associative
	BinOpComma

	// Right-associative
	BinOpAssign
	BinOpAddAssign
	BinOpSubAssign
	BinOpMulAssign
	BinOpDivAssign
	BinOpRemAssign
	BinOpPowAssign
	BinOpShlAssign
	BinOpShrAssign
	BinOpUShrAssign
	BinOpBitwiseOrAssign
	BinOpBitwiseAndAssign
	BinOpBitwiseXorAssign
	BinOpNullishCoalescingAssign
	BinOpLogicalOrAssign
	BinOpLogicalAndAssign
)

type opTableEntry struct {
	Text      string
	Level     L
	IsKeyword bool
}

// Indexed by OpCode
var OpTable = [...]opTableEntry{
	UnOpPos:                      {Text: "+", Level: LPrefix},
	UnOpNeg:                      {Text: "-", Level: LPrefix},
	UnOpCpl:                      {Text: "~", Level: LPrefix},
	UnOpNot:                      {Text: "!", Level: LPrefix},
	UnOpVoid:                     {Text: "void", Level: LPrefix, IsKeyword: true},
	UnOpTypeof:                   {Text: "typeof", Level: LPrefix, IsKeyword: true},
	UnOpDelete:                   {Text: "delete", Level: LPrefix, IsKeyword: true},
	UnOpPreDec:                   {Text: "--", Level: LPrefix},
	UnOpPreInc:                   {Text: "++", Level: LPrefix},
	UnOpPostDec:                  {Text: "--", Level: LPostfix},
	UnOpPostInc:                  {Text: "++", Level: LPostfix},
	BinOpAdd:                     {Text: "+", Level: LAdd},
	BinOpSub:                     {Text: "-", Level: LAdd},
	BinOpMul:                     {Text: "*", Level: LMultiply},
	BinOpDiv:                     {Text: "/", Level: LMultiply},
	BinOpRem:                     {Text: "%", Level: LMultiply},
	BinOpPow:                     {Text: "**", Level: LExponentiation},
	BinOpLt:                      {Text: "<", Level: LCompare},
	BinOpLe:                      {Text: "<=", Level: LCompare},
	BinOpGt:                      {Text: ">", Level: LCompare},
	BinOpGe:                      {Text: ">=", Level: LCompare},
	BinOpIn:                      {Text: "in", Level: LCompare, IsKeyword: true},
	BinOpInstanceof:              {Text: "instanceof", Level: LCompare, IsKeyword: true},
	BinOpShl:                     {Text: "<<", Level: LShift},
	BinOpShr:                     {Text: ">>", Level: LShift},
	BinOpUShr:                    {Text: ">>>", Level: LShift},
	BinOpLooseEq:                 {Text: "==", Level: LEquals},
	BinOpLooseNe:                 {Text: "!=", Level: LEquals},
	BinOpStrictEq:                {Text: "===", Level: LEquals},
	BinOpStrictNe:                {Text: "!==", Level: LEquals},
	BinOpNullishCoalescing:       {Text: "??", Level: LNullishCoalescing},
	BinOpLogicalOr:               {Text: "||", Level: LLogicalOr},
	BinOpLogicalAnd:              {Text: "&&", Level: LLogicalAnd},
	BinOpBitwiseOr:               {Text: "|", Level: LBitwiseOr},
	BinOpBitwiseAnd:              {Text: "&", Level: LBitwiseAnd},
	BinOpBitwiseXor:              {Text: "^", Level: LBitwiseXor},
	BinOpComma:                   {Text: ",", Level: LComma},
	BinOpAssign:                  {Text: "=", Level: LAssign},
	BinOpAddAssign:               {Text: "+=", Level: LAssign},
	BinOpSubAssign:               {Text: "-=", Level: LAssign},
	BinOpMulAssign:               {Text: "*=", Level: LAssign},
	BinOpDivAssign:               {Text: "/=", Level: LAssign},
	BinOpRemAssign:               {Text: "%=", Level: LAssign},
	BinOpPowAssign:               {Text: "**=", Level: LAssign},
	BinOpShlAssign:               {Text: "<<=", Level: LAssign},
	BinOpShrAssign:               {Text: ">>=", Level: LAssign},
	BinOpUShrAssign:              {Text: ">>>=", Level: LAssign},
	BinOpBitwiseOrAssign:         {Text: "|=", Level: LAssign},
	BinOpBitwiseAndAssign:        {Text: "&=", Level: LAssign},
	BinOpBitwiseXorAssign:        {Text: "^=", Level: LAssign},
	BinOpNullishCoalescingAssign: {Text: "??=", Level: LAssign},
	BinOpLogicalOrAssign:         {Text: "||=", Level: LAssign},
	BinOpLogicalAndAssign:        {Text: "&&=", Level: LAssign},
}

// The operator each compound assignment applies
var compoundAssignOps = map[OpCode]OpCode{
	BinOpAddAssign:               BinOpAdd,
	BinOpSubAssign:               BinOpSub,
	BinOpMulAssign:               BinOpMul,
	BinOpDivAssign:               BinOpDiv,
	BinOpRemAssign:               BinOpRem,
	BinOpPowAssign:               BinOpPow,
	BinOpShlAssign:               BinOpShl,
	BinOpShrAssign:               BinOpShr,
	BinOpUShrAssign:              BinOpUShr,
	BinOpBitwiseOrAssign:         BinOpBitwiseOr,
	BinOpBitwiseAndAssign:        BinOpBitwiseAnd,
	BinOpBitwiseXorAssign:        BinOpBitwiseXor,
	BinOpNullishCoalescingAssign: BinOpNullishCoalescing,
	BinOpLogicalOrAssign:         BinOpLogicalOr,
	BinOpLogicalAndAssign:        BinOpLogicalAnd,
}

func (op OpCode) AssignToBinary() (OpCode, bool) {
	binary, ok := compoundAssignOps[op]
	return binary, ok
}

type LocRef struct {
	Loc logger.Loc
	Ref Ref
}

type PropertyKind uint8

const (
	PropertyNormal PropertyKind = iota
	PropertyGet
	PropertySet
	PropertySpread
)

type Property struct {
	Key Expr

	// Nil for class fields
	Value *Expr

	// The "= 1" in "({a = 1} = b)" and in the field "class A { a = 1 }"
	Initializer *Expr

	Kind         PropertyKind
	IsComputed   bool
	IsMethod     bool
	IsStatic     bool
	WasShorthand bool
}

type PropertyBinding struct {
	IsComputed   bool
	IsSpread     bool
	Key          Expr
	Value        Binding
	DefaultValue *Expr
}

type Arg struct {
	Binding Binding
	Default *Expr
}

type Fn struct {
	Name         *LocRef
	Args         []Arg
	Body         FnBody
	ArgumentsRef Ref

	IsAsync     bool
	IsGenerator bool
	HasRestArg  bool
}

type FnBody struct {
	Loc   logger.Loc
	Stmts []Stmt
}

type Class struct {
	Name       *LocRef
	Extends    *Expr
	BodyLoc    logger.Loc
	Properties []Property
}

type ArrayBinding struct {
	Binding      Binding
	DefaultValue *Expr
}

type Binding struct {
	Loc  logger.Loc
	Data B
}

// Marker interface for binding nodes
type B interface{ isBinding() }

type BMissing struct{}

type BIdentifier struct{ Ref Ref }

type BArray struct {
	Items     []ArrayBinding
	HasSpread bool
}

type BObject struct {
	Properties []PropertyBinding
}

func (*BMissing) isBinding()    {}
func (*BIdentifier) isBinding() {}
func (*BArray) isBinding()      {}
func (*BObject) isBinding()     {}

type Expr struct {
	Loc  logger.Loc
	Data E
}

// Marker interface for expression nodes
type E interface{ isExpr() }

type EArray struct {
	Items        []Expr
	IsSingleLine bool
}

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EBinary struct {
	Op    OpCode
	Left  Expr
	Right Expr
}

type EBoolean struct{ Value bool }

type ESuper struct{}

type ENull struct{}

type EUndefined struct{}

type EThis struct{}

type ENew struct {
	Target Expr
	Args   []Expr
}

type ENewTarget struct{}

type EImportMeta struct{}

type OptionalChain uint8

const (
	// "a.b"
	OptionalChainNone OptionalChain = iota

	// "a?.b"
	OptionalChainStart

	// "a?.b.c" => ".c" is OptionalChainContinue
	// "(a?.b).c" => ".c" is OptionalChainNone
	OptionalChainContinue
)

type ECall struct {
	Target        Expr
	Args          []Expr
	OptionalChain OptionalChain
	IsDirectEval  bool
}

type EDot struct {
	Target        Expr
	Name          string
	NameLoc       logger.Loc
	OptionalChain OptionalChain
}

type EIndex struct {
	Target        Expr
	Index         Expr
	OptionalChain OptionalChain
}

type EArrow struct {
	Args []Arg
	Body FnBody

	IsAsync    bool
	HasRestArg bool
	PreferExpr bool // Written as "() => value"
}

type EFunction struct{ Fn Fn }

type EClass struct{ Class Class }

type EIdentifier struct {
	Ref Ref
}

// A use of an imported name. The bundler points these at the symbol the
// import resolves to.
type EImportIdentifier struct {
	Ref Ref
}

// A hole in an array literal
type EMissing struct{}

type ENumber struct{ Value float64 }

type EBigInt struct{ Value string }

type EObject struct {
	Properties   []Property
	IsSingleLine bool
}

type ESpread struct{ Value Expr }

type EString struct {
	Value []uint16
}

type TemplatePart struct {
	Value   Expr
	TailLoc logger.Loc
	Tail    []uint16
	TailRaw string // Only set when tagged
}

type ETemplate struct {
	Tag     *Expr
	Head    []uint16
	HeadRaw string // Only set when tagged
	Parts   []TemplatePart
}

type ERegExp struct{ Value string }

type EAwait struct {
	Value Expr
}

type EYield struct {
	Value  *Expr
	IsStar bool
}

type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

// A call to "require()" with a single string argument
type ERequire struct {
	ImportRecordIndex uint32
}

type EImport struct {
	Expr              Expr
	ImportRecordIndex ast.Index32
}

// An expression that failed to parse in recover mode. "Text" is the source
// text that was skipped.
type EError struct {
	Text string
}

func (*EArray) isExpr()            {}
func (*EUnary) isExpr()            {}
func (*EBinary) isExpr()           {}
func (*EBoolean) isExpr()          {}
func (*ESuper) isExpr()            {}
func (*ENull) isExpr()             {}
func (*EUndefined) isExpr()        {}
func (*EThis) isExpr()             {}
func (*ENew) isExpr()              {}
func (*ENewTarget) isExpr()        {}
func (*EImportMeta) isExpr()       {}
func (*ECall) isExpr()             {}
func (*EDot) isExpr()              {}
func (*EIndex) isExpr()            {}
func (*EArrow) isExpr()            {}
func (*EFunction) isExpr()         {}
func (*EClass) isExpr()            {}
func (*EIdentifier) isExpr()       {}
func (*EImportIdentifier) isExpr() {}
func (*EMissing) isExpr()          {}
func (*ENumber) isExpr()           {}
func (*EBigInt) isExpr()           {}
func (*EObject) isExpr()           {}
func (*ESpread) isExpr()           {}
func (*EString) isExpr()           {}
func (*ETemplate) isExpr()         {}
func (*ERegExp) isExpr()           {}
func (*EAwait) isExpr()            {}
func (*EYield) isExpr()            {}
func (*EIf) isExpr()               {}
func (*ERequire) isExpr()          {}
func (*EImport) isExpr()           {}
func (*EError) isExpr()            {}

type ExprOrStmt struct {
	Expr *Expr
	Stmt *Stmt
}

type Stmt struct {
	Loc  logger.Loc
	Data S
}

// Marker interface for statement nodes
type S interface{ isStmt() }

type SBlock struct {
	Stmts []Stmt
}

type SEmpty struct{}

type SDebugger struct{}

type SDirective struct {
	Value []uint16
}

type SExportClause struct {
	Items []ClauseItem
}

type SExportFrom struct {
	Items             []ClauseItem
	NamespaceRef      Ref
	ImportRecordIndex uint32
}

type SExportDefault struct {
	DefaultName LocRef
	Value       ExprOrStmt // May be a SFunction or SClass
}

type ExportStarAlias struct {
	Loc  logger.Loc
	Name string
}

type SExportStar struct {
	NamespaceRef      Ref
	Alias             *ExportStarAlias
	ImportRecordIndex uint32
}

type SExpr struct {
	Value Expr
}

type SFunction struct {
	Fn       Fn
	IsExport bool
}

type SClass struct {
	Class    Class
	IsExport bool
}

type SLabel struct {
	Name LocRef
	Stmt Stmt
}

type SIf struct {
	Test Expr
	Yes  Stmt
	No   *Stmt
}

type SFor struct {
	Init   *Stmt // May be a SLocal or SExpr
	Test   *Expr
	Update *Expr
	Body   Stmt
}

type SForIn struct {
	Init  Stmt // May be a SLocal or SExpr
	Value Expr
	Body  Stmt
}

type SForOf struct {
	IsAwait bool
	Init    Stmt // May be a SLocal or SExpr
	Value   Expr
	Body    Stmt
}

type SDoWhile struct {
	Body Stmt
	Test Expr
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type SWith struct {
	Value   Expr
	BodyLoc logger.Loc
	Body    Stmt
}

type Catch struct {
	Loc     logger.Loc
	Binding *Binding
	Body    []Stmt
}

type Finally struct {
	Loc   logger.Loc
	Stmts []Stmt
}

type STry struct {
	Body    []Stmt
	Catch   *Catch
	Finally *Finally
}

type Case struct {
	Value *Expr
	Body  []Stmt
}

type SSwitch struct {
	Test    Expr
	BodyLoc logger.Loc
	Cases   []Case
}

// Covers every import statement form:
//
//	import "path"
//	import a, {b, c as d} from "path"
//	import a, * as ns from "path"
//
// A star import and a clause never appear together.
type SImport struct {
	// The "ns" of a star import, otherwise a generated symbol that stands for
	// the imported file
	NamespaceRef Ref

	DefaultName       *LocRef
	Items             *[]ClauseItem
	StarNameLoc       *logger.Loc
	ImportRecordIndex uint32
}

type SReturn struct {
	Value *Expr
}

type SThrow struct {
	Value Expr
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

func (kind LocalKind) String() string {
	switch kind {
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	default:
		return "var"
	}
}

type SLocal struct {
	Decls    []Decl
	Kind     LocalKind
	IsExport bool
}

type SBreak struct {
	Label *LocRef
}

type SContinue struct {
	Label *LocRef
}

// A statement that failed to parse in recover mode. Parsing resumed at the
// next statement boundary and "Text" holds the skipped source text.
type SError struct {
	Text string
}

func (*SBlock) isStmt()         {}
func (*SDebugger) isStmt()      {}
func (*SDirective) isStmt()     {}
func (*SEmpty) isStmt()         {}
func (*SExportClause) isStmt()  {}
func (*SExportFrom) isStmt()    {}
func (*SExportDefault) isStmt() {}
func (*SExportStar) isStmt()    {}
func (*SExpr) isStmt()          {}
func (*SFunction) isStmt()      {}
func (*SClass) isStmt()         {}
func (*SLabel) isStmt()         {}
func (*SIf) isStmt()            {}
func (*SFor) isStmt()           {}
func (*SForIn) isStmt()         {}
func (*SForOf) isStmt()         {}
func (*SDoWhile) isStmt()       {}
func (*SWhile) isStmt()         {}
func (*SWith) isStmt()          {}
func (*STry) isStmt()           {}
func (*SSwitch) isStmt()        {}
func (*SImport) isStmt()        {}
func (*SReturn) isStmt()        {}
func (*SThrow) isStmt()         {}
func (*SLocal) isStmt()         {}
func (*SBreak) isStmt()         {}
func (*SContinue) isStmt()      {}
func (*SError) isStmt()         {}

type ClauseItem struct {
	Alias    string
	AliasLoc logger.Loc
	Name     LocRef

	// This is needed for "export {foo as bar} from 'path'" statements. This case
	// is a re-export and "foo" and "bar" are both aliases. We need to preserve
	// both aliases in case the symbol is renamed.
	OriginalName string
}

type Decl struct {
	Binding Binding
	Value   *Expr
}

type SymbolKind uint8

const (
	// An unbound symbol is one that isn't declared in the file it's referenced
	// in. For example, using "window" without declaring it will be unbound.
	SymbolUnbound SymbolKind = iota

	// This has special merging behavior. You're allowed to re-declare these
	// symbols more than once in the same scope. These symbols are also hoisted
	// out of the scope they are declared in to the closest containing function
	// or module scope. These are the symbols with this kind:
	//
	// - Function arguments
	// - Function statements
	// - Variables declared using "var"
	//
	SymbolHoisted
	SymbolHoistedFunction

	// A catch variable declared using a simple identifier. Hoisted "var"
	// declarations with the same name inside the catch body merge with it.
	SymbolCatchIdentifier

	// Generator and async functions are not hoisted, but still have special
	// properties such as being able to overwrite previous functions with the
	// same name
	SymbolGeneratorOrAsyncFunction

	// This is the special "arguments" variable inside functions
	SymbolArguments

	SymbolClass

	// Labels are in their own namespace
	SymbolLabel

	// An item in an ES6 import clause, or the namespace of "import * as ns"
	SymbolImport

	// Assigning to a "const" symbol will throw a TypeError at runtime
	SymbolConst

	// This annotates all other symbols that don't have special behavior.
	SymbolOther
)

func (kind SymbolKind) IsHoisted() bool {
	return kind == SymbolHoisted || kind == SymbolHoistedFunction
}

func (kind SymbolKind) IsHoistedOrFunction() bool {
	return kind.IsHoisted() || kind == SymbolGeneratorOrAsyncFunction
}

var InvalidRef Ref = Ref{^uint32(0), ^uint32(0)}

// Files are parsed in parallel for speed. We want to allow each parser to
// generate symbol IDs that won't conflict with each other. We also want to be
// able to quickly merge symbol tables from all files into one giant symbol
// table.
//
// We can accomplish both goals by giving each symbol ID two parts: an outer
// index that is the source index of the file, and an inner index that
// increments as the parser generates new symbol IDs. Then a symbol map can
// be an array of arrays indexed first by outer index, then by inner index.
type Ref struct {
	SourceIndex uint32
	InnerIndex  uint32
}

// Before binding, identifiers don't point at symbols yet. The parser stores
// the name of each identifier in the tree's name table and references it with
// a placeholder ref that has this outer index. The binder replaces every
// placeholder with a real symbol ref.
const PlaceholderSourceIndex = ^uint32(0) - 1

func (ref Ref) IsPlaceholder() bool {
	return ref.SourceIndex == PlaceholderSourceIndex
}

func (ref Ref) IsValid() bool {
	return ref != InvalidRef
}

// Note: the order of values in this struct matters to reduce struct size.
type Symbol struct {
	// This is the name that came from the parser. Printed names may be renamed
	// during minification or to avoid name collisions. Do not use the original
	// name during printing.
	OriginalName string

	// Used by the bundler to merge import items with the symbol they resolve
	// to. Symbols that have been merged form a linked list where the last link
	// is the symbol to use. This link is an invalid ref if it's the last link.
	// Use FollowSymbols to get the real one.
	Link Ref

	// An estimate of the number of uses of this symbol. This is used to detect
	// whether a symbol is used or not and to order symbols for minified name
	// assignment. It should always be non-zero when the symbol is used.
	UseCountEstimate uint32

	Kind SymbolKind

	// Certain symbols must not be renamed or minified. For example, the
	// "arguments" variable is declared by the runtime for every function.
	// Renaming can also break any identifier used inside a "with" statement
	// or visible to a direct "eval".
	MustNotBeRenamed bool
}

type SymbolMap struct {
	// This could be represented as a "map[Ref]Symbol" but a two-level array
	// avoids hashing and makes it trivial to merge the symbol maps of several
	// files: each file only generates symbols in a single inner array.
	Outer [][]Symbol
}

func NewSymbolMap(sourceCount int) SymbolMap {
	return SymbolMap{make([][]Symbol, sourceCount)}
}

func (sm SymbolMap) Get(ref Ref) *Symbol {
	return &sm.Outer[ref.SourceIndex][ref.InnerIndex]
}

// Returns the canonical ref that represents the ref for the provided symbol.
// This may not be the provided ref if the symbol has been merged with another
// symbol.
func FollowSymbols(symbols SymbolMap, ref Ref) Ref {
	symbol := symbols.Get(ref)
	if symbol.Link == InvalidRef {
		return ref
	}

	link := FollowSymbols(symbols, symbol.Link)

	// Only write if needed to avoid concurrent map update hazards
	if symbol.Link != link {
		symbol.Link = link
	}

	return link
}

// Makes "old" point to "new" by joining the linked lists for the two symbols
// together. That way "FollowSymbols" on both "old" and "new" will result in
// the same ref.
func MergeSymbols(symbols SymbolMap, old Ref, new Ref) Ref {
	if old == new {
		return new
	}

	oldSymbol := symbols.Get(old)
	if oldSymbol.Link != InvalidRef {
		oldSymbol.Link = MergeSymbols(symbols, oldSymbol.Link, new)
		return oldSymbol.Link
	}

	newSymbol := symbols.Get(new)
	if newSymbol.Link != InvalidRef {
		newSymbol.Link = MergeSymbols(symbols, old, newSymbol.Link)
		return newSymbol.Link
	}

	oldSymbol.Link = new
	newSymbol.UseCountEstimate += oldSymbol.UseCountEstimate
	if oldSymbol.MustNotBeRenamed {
		newSymbol.MustNotBeRenamed = true
	}
	return new
}

type AST struct {
	ApproximateLineCount int32

	// This is a list of CommonJS features. When a file uses CommonJS features,
	// the bundler can't link it statically.
	HasTopLevelReturn bool
	UsesExportsRef    bool
	UsesModuleRef     bool

	// This is a list of ES6 features
	HasES6Imports bool
	HasES6Exports bool

	// Script mode trees are not strict and can't contain import or export
	IsModule bool

	Hashbang   string
	Directives []string
	Stmts      []Stmt
	Symbols    []Symbol

	// Names of placeholder refs. This is only non-empty before binding.
	Names []string

	ExportsRef Ref
	ModuleRef  Ref

	// These are stored at the AST level instead of on individual AST nodes so
	// they can be manipulated efficiently without a full AST traversal
	ImportRecords []ast.ImportRecord

	// These are used when bundling. They are filled in by the binder.
	NamedImports            map[Ref]NamedImport
	NamedExports            map[string]NamedExport
	ExportStarImportRecords []uint32

	// Top-level symbols in declaration order. The bundler renames these.
	TopLevelSymbols []Ref
}

func (ast *AST) HasCommonJSFeatures() bool {
	return ast.HasTopLevelReturn || ast.UsesExportsRef || ast.UsesModuleRef
}

func (ast *AST) HasES6Syntax() bool {
	return ast.HasES6Imports || ast.HasES6Exports
}

type NamedImport struct {
	// "*" for a namespace import
	Alias             string
	AliasLoc          logger.Loc
	NamespaceRef      Ref
	ImportRecordIndex uint32

	// It's useful to flag exported imports because they need to be resolved
	// when another module imports them from this one
	IsExported bool
}

type NamedExport struct {
	Ref      Ref
	AliasLoc logger.Loc
}
