package config

import (
	"math"
	"slices"
	"strings"

	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
)

// Returns the symbol for a global name, declaring it as unbound if needed
type FindSymbol func(logger.Loc, string) js_ast.Ref
type DefineFunc func(logger.Loc, FindSymbol) js_ast.E

type DefineData struct {
	// Builds the replacement. A nil function leaves the expression alone.
	DefineFunc DefineFunc
}

type DotDefine struct {
	Parts []string
	Data  DefineData
}

// Defines split by shape. Dot defines are keyed by their last part, which is
// the property name of the outermost "EDot" they can match.
type ProcessedDefines struct {
	IdentifierDefines map[string]DefineData
	DotDefines        map[string][]DotDefine
}

// Globals with constant values
var constantGlobals = map[string]DefineFunc{
	"undefined": func(logger.Loc, FindSymbol) js_ast.E { return &js_ast.EUndefined{} },
	"NaN":       func(logger.Loc, FindSymbol) js_ast.E { return &js_ast.ENumber{Value: math.NaN()} },
	"Infinity":  func(logger.Loc, FindSymbol) js_ast.E { return &js_ast.ENumber{Value: math.Inf(1)} },
}

// Indexes the defines for lookup during the define pass. Keys are
// dot-separated identifier chains. User defines override the constant globals.
func ProcessDefines(userDefines map[string]DefineData) ProcessedDefines {
	result := ProcessedDefines{
		IdentifierDefines: make(map[string]DefineData, len(constantGlobals)+len(userDefines)),
		DotDefines:        make(map[string][]DotDefine),
	}
	for name, fn := range constantGlobals {
		result.IdentifierDefines[name] = DefineData{DefineFunc: fn}
	}

	for key, data := range userDefines {
		parts := strings.Split(key, ".")
		if len(parts) == 1 {
			result.IdentifierDefines[key] = data
			continue
		}

		tail := parts[len(parts)-1]
		list := result.DotDefines[tail]
		index := slices.IndexFunc(list, func(d DotDefine) bool { return slices.Equal(d.Parts, parts) })
		if index == -1 {
			list = append(list, DotDefine{Parts: parts, Data: data})
		} else {
			list[index].Data = data
		}
		result.DotDefines[tail] = list
	}
	return result
}
