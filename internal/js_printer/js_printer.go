// Package js_printer turns a syntax tree back into JavaScript text, optionally
// recording a source map chunk for the output.
package js_printer

import (
	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/sourcemap"
)

type Options struct {
	// Set when the input came with its own source map, so that mappings point
	// all the way back to the original files
	InputSourceMap *sourcemap.SourceMap

	// Line starts of the source, used to turn locations into lines and columns
	LineOffsetTables []sourcemap.LineOffsetTable

	// The source text the tree came from. Locations past its end are not mapped.
	SourceContents string

	UnsupportedFeatures compat.JSFeature
	Indent              int
	MinifyWhitespace    bool
	MinifySyntax        bool
	AddSourceMappings   bool
}

type PrintResult struct {
	JS []byte

	// Only the VLQ mappings for "JS". The bundler joins the chunks of every
	// file into the final source map.
	SourceMapChunk sourcemap.Chunk
}

type printer struct {
	symbols       js_ast.SymbolMap
	renamer       renamer.Renamer
	importRecords []ast.ImportRecord
	options       Options
	builder       sourcemap.ChunkBuilder
	js            []byte

	// Offsets in "js" where certain constructs begin. A few expressions need
	// parentheses when they are printed at exactly one of these positions.
	stmtStart          int
	exportDefaultStart int
	arrowExprStart     int
	forOfInitStart     int

	// Offsets where the last token of a given kind ends, used to keep
	// adjacent tokens from merging
	prevOpEnd     int
	prevNumEnd    int
	prevRegExpEnd int
	prevOp        js_ast.OpCode

	needsSemicolon bool
}

func Print(tree js_ast.AST, symbols js_ast.SymbolMap, r renamer.Renamer, options Options) PrintResult {
	p := &printer{
		symbols:            symbols,
		renamer:            r,
		importRecords:      tree.ImportRecords,
		options:            options,
		builder:            sourcemap.MakeChunkBuilder(options.InputSourceMap, options.SourceContents, options.LineOffsetTables),
		stmtStart:          -1,
		exportDefaultStart: -1,
		arrowExprStart:     -1,
		forOfInitStart:     -1,
		prevOpEnd:          -1,
		prevNumEnd:         -1,
		prevRegExpEnd:      -1,
	}

	if tree.Hashbang != "" {
		p.print(tree.Hashbang)
		p.print("\n")
	}

	for _, directive := range tree.Directives {
		p.printIndent()
		p.printQuotedUTF8(directive, false /* allowBacktick */)
		p.print(";")
		p.printNewline()
	}

	for _, stmt := range tree.Stmts {
		p.printStmt(stmt, canOmitStatement)
		p.printSemicolonIfNeeded()
	}

	return PrintResult{
		JS:             p.js,
		SourceMapChunk: p.builder.GenerateChunk(p.js),
	}
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}

func (p *printer) printSpace() {
	if !p.options.MinifyWhitespace {
		p.print(" ")
	}
}

func (p *printer) printNewline() {
	if !p.options.MinifyWhitespace {
		p.print("\n")
	}
}

func (p *printer) printIndent() {
	if !p.options.MinifyWhitespace {
		for i := 0; i < p.options.Indent; i++ {
			p.print("  ")
		}
	}
}

func (p *printer) openParen(wrap bool) {
	if wrap {
		p.print("(")
	}
}

func (p *printer) closeParen(wrap bool) {
	if wrap {
		p.print(")")
	}
}

// Separator before every list item but the first
func (p *printer) printCommaBefore(i int) {
	if i != 0 {
		p.print(",")
		p.printSpace()
	}
}

// Minified statements only get their ";" once the next statement starts
func (p *printer) printSemicolonAfterStatement() {
	if p.options.MinifyWhitespace {
		p.needsSemicolon = true
	} else {
		p.print(";\n")
	}
}

func (p *printer) printSemicolonIfNeeded() {
	if p.needsSemicolon {
		p.print(";")
		p.needsSemicolon = false
	}
}

// An identifier right after another identifier, a number or a regular
// expression's flags would merge with it
func (p *printer) printSpaceBeforeIdentifier() {
	if n := len(p.js); n > 0 && (js_lexer.IsIdentifierContinue(rune(p.js[n-1])) || n == p.prevRegExpEnd) {
		p.print(" ")
	}
}

func (p *printer) printKeyword(text string) {
	p.printSpaceBeforeIdentifier()
	p.print(text)
}

// Reports whether "next" printed right after "prev" would lex as a different
// token, as in "+ +x" or "- --x"
func operatorsMerge(prev js_ast.OpCode, next js_ast.OpCode) bool {
	switch prev {
	case js_ast.BinOpAdd, js_ast.UnOpPos:
		return next == js_ast.BinOpAdd || next == js_ast.UnOpPos || next == js_ast.UnOpPreInc
	case js_ast.BinOpSub, js_ast.UnOpNeg:
		return next == js_ast.BinOpSub || next == js_ast.UnOpNeg || next == js_ast.UnOpPreDec
	case js_ast.UnOpPostDec:
		// "-->" starts a comment
		return next == js_ast.BinOpGt
	}
	return false
}

func (p *printer) printSpaceBeforeOperator(next js_ast.OpCode) {
	if p.prevOpEnd != len(p.js) {
		return
	}
	// "<!--" starts a comment too
	startsComment := p.prevOp == js_ast.UnOpNot && next == js_ast.UnOpPreDec &&
		len(p.js) > 1 && p.js[len(p.js)-2] == '<'
	if startsComment || operatorsMerge(p.prevOp, next) {
		p.print(" ")
	}
}

func (p *printer) printOperator(op js_ast.OpCode) {
	entry := js_ast.OpTable[op]
	if entry.IsKeyword {
		p.printKeyword(entry.Text)
		return
	}
	p.printSpaceBeforeOperator(op)
	p.print(entry.Text)
	p.prevOp = op
	p.prevOpEnd = len(p.js)
}

func (p *printer) addSourceMapping(loc logger.Loc) {
	if p.options.AddSourceMappings {
		p.builder.AddSourceMapping(loc, "", p.js)
	}
}

// Renamed identifiers keep their original name in the source map
func (p *printer) addSourceMappingForName(loc logger.Loc, ref js_ast.Ref, name string) {
	if !p.options.AddSourceMappings {
		return
	}
	originalName := p.symbols.Get(js_ast.FollowSymbols(p.symbols, ref)).OriginalName
	if originalName == name {
		originalName = ""
	}
	p.builder.AddSourceMapping(loc, originalName, p.js)
}

// Prints a symbol with a mapping that carries its original name
func (p *printer) printMappedSymbol(loc logger.Loc, ref js_ast.Ref) {
	name := p.renamer.NameForSymbol(ref)
	p.printSpaceBeforeIdentifier()
	p.addSourceMappingForName(loc, ref, name)
	p.print(name)
}

// Import and export aliases that aren't identifiers are written as strings
func (p *printer) printClauseAlias(alias string) {
	if js_lexer.IsIdentifier(alias) {
		p.printKeyword(alias)
	} else {
		p.printQuotedUTF8(alias, false /* allowBacktick */)
	}
}

func (p *printer) printPath(importRecordIndex uint32) {
	p.printQuotedUTF8(p.importRecords[importRecordIndex].Path, false /* allowBacktick */)
}

func (p *printer) printQuotedUTF8(text string, allowBacktick bool) {
	p.printQuotedUTF16(helpers.StringToUTF16(text), allowBacktick)
}

// Both function and class expressions would read as declarations here
func (p *printer) atDeclarationStart() bool {
	n := len(p.js)
	return p.stmtStart == n || p.exportDefaultStart == n
}

// An object literal would read as a block here
func (p *printer) atBlockStart() bool {
	n := len(p.js)
	return p.stmtStart == n || p.arrowExprStart == n
}
