package compat

import (
	"github.com/jspipe/jspipe/internal/config"
)

type JSFeature uint32

const (
	ArrowFunctions JSFeature = 1 << iota
	Async
	BigInt
	Class
	ConstAndLet
	DefaultArgument
	Destructuring
	DynamicImport
	ExponentOperator
	ForOf
	Generator
	ImportMeta
	LogicalAssignment
	NestedRestBinding
	NewTarget
	NullishCoalescing
	ObjectExtensions
	ObjectRestSpread
	OptionalCatchBinding
	OptionalChain
	RestArgument
	SpreadArgument
	TemplateLiteral
)

func (features JSFeature) Has(feature JSFeature) bool {
	return (features & feature) != 0
}

// The first language version that has each feature
var jsTable = map[JSFeature]config.LanguageTarget{
	ArrowFunctions:       config.ES2015,
	Class:                config.ES2015,
	ConstAndLet:          config.ES2015,
	DefaultArgument:      config.ES2015,
	Destructuring:        config.ES2015,
	ForOf:                config.ES2015,
	Generator:            config.ES2015,
	NewTarget:            config.ES2015,
	ObjectExtensions:     config.ES2015,
	RestArgument:         config.ES2015,
	SpreadArgument:       config.ES2015,
	TemplateLiteral:      config.ES2015,
	ExponentOperator:     config.ES2016,
	Async:                config.ES2017,
	NestedRestBinding:    config.ES2018,
	ObjectRestSpread:     config.ES2018,
	OptionalCatchBinding: config.ES2019,
	BigInt:               config.ES2020,
	DynamicImport:        config.ES2020,
	ImportMeta:           config.ES2020,
	NullishCoalescing:    config.ES2020,
	OptionalChain:        config.ES2020,
	LogicalAssignment:    config.ES2021,
}

func UnsupportedJSFeatures(target config.LanguageTarget) (unsupported JSFeature) {
	for feature, introduced := range jsTable {
		if target < introduced {
			unsupported |= feature
		}
	}
	return
}

func (feature JSFeature) String() string {
	switch feature {
	case ArrowFunctions:
		return "arrow functions"
	case Async:
		return "async functions"
	case BigInt:
		return "big integer literals"
	case Class:
		return "classes"
	case ConstAndLet:
		return "lexical declarations"
	case DefaultArgument:
		return "default arguments"
	case Destructuring:
		return "destructuring"
	case DynamicImport:
		return "dynamic imports"
	case ExponentOperator:
		return "the exponent operator"
	case ForOf:
		return "for-of loops"
	case Generator:
		return "generator functions"
	case ImportMeta:
		return "import.meta"
	case LogicalAssignment:
		return "logical assignment operators"
	case NestedRestBinding:
		return "nested rest bindings"
	case NewTarget:
		return "new.target"
	case NullishCoalescing:
		return "the nullish coalescing operator"
	case ObjectExtensions:
		return "object literal extensions"
	case ObjectRestSpread:
		return "object rest and spread properties"
	case OptionalCatchBinding:
		return "optional catch bindings"
	case OptionalChain:
		return "optional chaining"
	case RestArgument:
		return "rest arguments"
	case SpreadArgument:
		return "spread arguments"
	case TemplateLiteral:
		return "template literals"
	}
	return "unknown feature"
}
