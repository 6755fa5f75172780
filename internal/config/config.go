package config

import (
	"fmt"
	"strings"
)

type LanguageTarget int8

const (
	// These are arranged such that ESNext is the default zero value and such
	// that earlier releases are less than later releases
	ES5    LanguageTarget = -8
	ES2015 LanguageTarget = -7
	ES2016 LanguageTarget = -6
	ES2017 LanguageTarget = -5
	ES2018 LanguageTarget = -4
	ES2019 LanguageTarget = -3
	ES2020 LanguageTarget = -2
	ES2021 LanguageTarget = -1
	ESNext LanguageTarget = 0
)

// Names in the order they are listed in errors. The first name of a target
// is the one String returns.
var targetNames = []struct {
	name   string
	target LanguageTarget
}{
	{"esnext", ESNext},
	{"es5", ES5},
	{"es2015", ES2015},
	{"es6", ES2015},
	{"es2016", ES2016},
	{"es2017", ES2017},
	{"es2018", ES2018},
	{"es2019", ES2019},
	{"es2020", ES2020},
	{"es2021", ES2021},
}

func (target LanguageTarget) String() string {
	for _, entry := range targetNames {
		if entry.target == target {
			return entry.name
		}
	}
	return fmt.Sprintf("target(%d)", int8(target))
}

func ParseTarget(text string) (LanguageTarget, error) {
	lower := strings.ToLower(text)
	names := make([]string, len(targetNames))
	for i, entry := range targetNames {
		if entry.name == lower {
			return entry.target, nil
		}
		names[i] = entry.name
	}
	return ESNext, fmt.Errorf("Invalid target: %q (valid: %s)", text, strings.Join(names, ", "))
}

type SourceMap uint8

const (
	SourceMapNone SourceMap = iota
	SourceMapInline
	SourceMapLinkedWithComment
	SourceMapExternalWithoutComment
)

type Format uint8

const (
	// This is used when not bundling. It means to preserve whatever form the
	// import or export was originally in. ES6 syntax stays ES6 syntax and
	// CommonJS syntax stays CommonJS syntax.
	FormatPreserve Format = iota

	// IIFE stands for immediately-invoked function expression. That looks like
	// this:
	//
	//   (() => {
	//     ... bundled code ...
	//   })();
	//
	FormatIIFE

	// The CommonJS format looks like this:
	//
	//   ... bundled code ...
	//   module.exports = {...};
	//
	FormatCommonJS

	// The ES module format looks like this:
	//
	//   ... bundled code ...
	//   export {...};
	//
	FormatESModule
)

func (f Format) String() string {
	switch f {
	case FormatIIFE:
		return "iife"
	case FormatCommonJS:
		return "cjs"
	case FormatESModule:
		return "esm"
	default:
		return "preserve"
	}
}

func ParseFormat(text string) (Format, error) {
	switch text {
	case "iife":
		return FormatIIFE, nil
	case "cjs":
		return FormatCommonJS, nil
	case "esm":
		return FormatESModule, nil
	}
	return FormatPreserve, fmt.Errorf("Invalid format: %q (valid: iife, cjs, esm)", text)
}

// The bundler gives up on a binding after this many "name2", "name3", ...
// attempts and reports a bundle error instead.
const DefaultMaxRenameAttempts = 10000

// The default extension probing order used by the resolver
var DefaultExtensionOrder = []string{".js", ".mjs", ".cjs", ".json"}

// Options is read-only once an operation starts. Every stage receives it by
// value.
type Options struct {
	// Parse as an ES module (strict mode, import/export allowed) instead of a
	// classic script
	IsModule bool

	// Represent a few malformed constructs as error nodes and keep going
	// instead of stopping at the first syntax error
	Recover bool

	Target LanguageTarget

	RemoveWhitespace  bool
	MinifyIdentifiers bool
	MangleSyntax      bool

	// Also shorten top-level names that are not exported
	MinifyTopLevel bool

	Defines *ProcessedDefines

	ExtensionOrder  []string
	ExternalModules map[string]bool

	OutputFormat Format
	SourceMap    SourceMap

	// The file name written into the "sources" array of a source map and
	// used in diagnostics when there is no path
	SourceFile string

	MaxRenameAttempts int

	// Set for the per-module transforms of a bundle. The linker replaces
	// dynamic imports of bundled files, so they don't need native support.
	IsBundling bool
}

func (options *Options) RenameAttemptLimit() int {
	if options.MaxRenameAttempts > 0 {
		return options.MaxRenameAttempts
	}
	return DefaultMaxRenameAttempts
}

func (options *Options) Extensions() []string {
	if len(options.ExtensionOrder) > 0 {
		return options.ExtensionOrder
	}
	return DefaultExtensionOrder
}
