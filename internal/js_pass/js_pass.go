// Package js_pass holds what every tree-to-tree pass shares: the pass
// signature, the per-operation context and a copy-on-write tree walker.
//
// A pass never mutates its input tree. The walker visits children first and
// only allocates a new parent node when one of its children was replaced, so
// the output shares every untouched subtree with the input.
package js_pass

import (
	"strconv"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
)

type Context struct {
	Log     logger.Log
	Source  *logger.Source
	Options config.Options

	// Temporary names are unique across all passes of one operation
	tempCount int
}

func NewContext(log logger.Log, source *logger.Source, options config.Options) *Context {
	return &Context{Log: log, Source: source, Options: options}
}

type Pass struct {
	Name string
	Run  func(ctx *Context, tree js_ast.AST) (js_ast.AST, error)
}

func (ctx *Context) nextTempName() string {
	// "_a", "_b", ..., "_z", "_a1", "_b1", ...
	n := ctx.tempCount
	ctx.tempCount++
	name := "_" + string(rune('a'+n%26))
	if n >= 26 {
		name += strconv.Itoa(n / 26)
	}
	return name
}

func (ctx *Context) AddWarning(id logger.MsgID, loc logger.Loc, text string) {
	ctx.Log.AddWarningWithID(id, ctx.Source, ctx.rangeAt(loc), text)
}

func (ctx *Context) AddError(id logger.MsgID, loc logger.Loc, text string) {
	ctx.Log.AddErrorWithID(id, ctx.Source, ctx.rangeAt(loc), text)
}

// Trees decoded from a serialized AST may carry offsets outside the text
func (ctx *Context) rangeAt(loc logger.Loc) logger.Range {
	if ctx.Source == nil || loc.Start < 0 || int(loc.Start) > len(ctx.Source.Contents) {
		return logger.Range{}
	}
	return logger.Range{Loc: loc}
}
