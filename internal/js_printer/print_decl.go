package js_printer

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
)

func (p *printer) printDefaultValue(value *js_ast.Expr) {
	if value == nil {
		return
	}
	p.printSpace()
	p.print("=")
	p.printSpace()
	p.printExpr(*value, js_ast.LComma, 0)
}

func (p *printer) printBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing:
		p.addSourceMapping(binding.Loc)

	case *js_ast.BIdentifier:
		p.printMappedSymbol(binding.Loc, b.Ref)

	case *js_ast.BArray:
		p.addSourceMapping(binding.Loc)
		p.print("[")
		last := len(b.Items) - 1
		for i, item := range b.Items {
			p.printCommaBefore(i)
			if b.HasSpread && i == last {
				p.print("...")
			}
			p.printBinding(item.Binding)
			p.printDefaultValue(item.DefaultValue)

			// A trailing hole needs its own comma
			if _, ok := item.Binding.Data.(*js_ast.BMissing); ok && i == last {
				p.print(",")
			}
		}
		p.print("]")

	case *js_ast.BObject:
		p.addSourceMapping(binding.Loc)
		p.print("{")
		for i, property := range b.Properties {
			if i != 0 {
				p.print(",")
			}
			p.printSpace()
			p.printPropertyBinding(property)
		}
		if len(b.Properties) > 0 {
			p.printSpace()
		}
		p.print("}")

	default:
		panic(fmt.Sprintf("Unexpected binding of type %T", binding.Data))
	}
}

func (p *printer) printPropertyBinding(property js_ast.PropertyBinding) {
	if property.IsSpread {
		p.print("...")
		p.printBinding(property.Value)
		return
	}

	switch key, _ := property.Key.Data.(*js_ast.EString); {
	case property.IsComputed:
		p.print("[")
		p.printExpr(property.Key, js_ast.LComma, 0)
		p.print("]")

	case key != nil && js_lexer.IsIdentifierUTF16(key.Value):
		p.addSourceMapping(property.Key.Loc)
		p.printKeyword(helpers.UTF16ToString(key.Value))

		// "{a: a}" becomes "{a}"
		if id, ok := property.Value.Data.(*js_ast.BIdentifier); ok && p.canUseShorthand(key.Value, id.Ref) {
			p.printDefaultValue(property.DefaultValue)
			return
		}

	default:
		p.printExpr(property.Key, js_ast.LLowest, 0)
	}

	p.print(":")
	p.printSpace()
	p.printBinding(property.Value)
	p.printDefaultValue(property.DefaultValue)
}

func (p *printer) printFnArgs(args []js_ast.Arg, hasRestArg bool, isArrow bool) {
	// "(a) => {}" minifies to "a=>{}"
	wrap := true
	if p.options.MinifyWhitespace && isArrow && !hasRestArg && len(args) == 1 && args[0].Default == nil {
		if _, ok := args[0].Binding.Data.(*js_ast.BIdentifier); ok {
			wrap = false
		}
	}

	p.openParen(wrap)
	for i, arg := range args {
		p.printCommaBefore(i)
		if hasRestArg && i == len(args)-1 {
			p.print("...")
		}
		p.printBinding(arg.Binding)
		p.printDefaultValue(arg.Default)
	}
	p.closeParen(wrap)
}

// Arguments and body
func (p *printer) printFn(fn js_ast.Fn) {
	p.printFnArgs(fn.Args, fn.HasRestArg, false /* isArrow */)
	p.printSpace()
	p.printBlock(fn.Body.Loc, fn.Body.Stmts)
}

// Prints a function declaration or expression. "prefix" is written first and
// must end in a space.
func (p *printer) printFunction(fn js_ast.Fn, prefix string) {
	if prefix != "" {
		p.printKeyword(prefix)
	}
	if fn.IsAsync {
		p.printKeyword("async ")
	}
	p.printKeyword("function")
	if fn.IsGenerator {
		p.print("*")
	}
	if fn.Name != nil {
		p.printSpace()
		p.printMappedSymbol(fn.Name.Loc, fn.Name.Ref)
	}
	p.printFn(fn)
}

// Same as printFunction, for classes
func (p *printer) printClass(class js_ast.Class, prefix string) {
	if prefix != "" {
		p.printKeyword(prefix)
	}
	p.printKeyword("class")
	if class.Name != nil {
		p.printSpace()
		p.printMappedSymbol(class.Name.Loc, class.Name.Ref)
	}
	if class.Extends != nil {
		p.printSpace()
		p.printKeyword("extends")
		p.printSpace()
		p.printExpr(*class.Extends, js_ast.LNew-1, 0)
	}
	p.printSpace()

	p.addSourceMapping(class.BodyLoc)
	p.print("{")
	p.printNewline()
	p.options.Indent++
	for _, item := range class.Properties {
		p.printSemicolonIfNeeded()
		p.printIndent()
		p.printProperty(item)

		// Fields end in ";" and methods don't
		if item.Value == nil {
			p.printSemicolonAfterStatement()
		} else {
			p.printNewline()
		}
	}
	p.needsSemicolon = false
	p.options.Indent--
	p.printIndent()
	p.print("}")
}
