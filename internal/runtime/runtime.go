package runtime

// The runtime is parsed like any other module and linked into every chunk
// that uses one of its exports. Only the declarations that are used are
// printed. It must stay valid ES5 because it is not lowered.

import (
	"github.com/jspipe/jspipe/internal/logger"
)

const Code = `
	// Wraps a CommonJS closure and returns a require() function
	export function __commonJS(callback) {
		var module
		return function () {
			if (!module) {
				module = { exports: {} }
				callback(module.exports, module)
			}
			return module.exports
		}
	}

	// Publishes the symbols other chunks use as live properties of the
	// exports object of a CommonJS chunk
	export function __export(target, getters) {
		for (var name in getters)
			Object.defineProperty(target, name, { get: getters[name], enumerable: true })
	}

	// Dynamic imports of bundled modules resolve asynchronously like the
	// native import() they replace
	export function __import(load) {
		return Promise.resolve().then(load)
	}
`

func Source(index uint32) logger.Source {
	return logger.Source{
		Index:          index,
		KeyPath:        logger.Path{Text: "<runtime>"},
		PrettyPath:     "<runtime>",
		IdentifierName: "runtime",
		Contents:       Code,
	}
}
