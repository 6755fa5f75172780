// Package transform rewrites a bound tree for a target environment. It runs
// an ordered list of passes selected from the options. Passes that introduce
// syntax run before the passes that assume it is gone.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/minifier"
)

// Returned when the tree uses syntax that cannot be expressed in the target
var ErrUnsupportedSyntax = errors.New("unsupported syntax")

type passContext = *js_pass.Context

type planEntry struct {
	pass    js_pass.Pass
	enabled func(options *config.Options, unsupported compat.JSFeature) bool
}

func whenUnsupported(feature compat.JSFeature) func(*config.Options, compat.JSFeature) bool {
	return func(_ *config.Options, unsupported compat.JSFeature) bool {
		return unsupported.Has(feature)
	}
}

var plan = []planEntry{
	{js_pass.Pass{Name: "lower-logical-assign", Run: lowerLogicalAssign}, whenUnsupported(compat.LogicalAssignment)},
	{js_pass.Pass{Name: "lower-nullish", Run: lowerNullish}, whenUnsupported(compat.NullishCoalescing | compat.OptionalChain)},
	{js_pass.Pass{Name: "lower-exponent", Run: lowerExponent}, whenUnsupported(compat.ExponentOperator)},
	{js_pass.Pass{Name: "lower-params", Run: lowerParams}, whenUnsupported(compat.DefaultArgument | compat.RestArgument)},
	{js_pass.Pass{Name: "lower-destructuring", Run: lowerDestructuring}, whenUnsupported(compat.Destructuring)},
	{js_pass.Pass{Name: "lower-template", Run: lowerTemplate}, whenUnsupported(compat.TemplateLiteral)},
	{js_pass.Pass{Name: "lower-object", Run: lowerObject}, whenUnsupported(compat.ObjectExtensions)},
	{js_pass.Pass{Name: "lower-arrow", Run: lowerArrow}, whenUnsupported(compat.ArrowFunctions)},
	{js_pass.Pass{Name: "check-unsupported", Run: checkUnsupported}, whenUnsupported(unloweredFeatures)},
	{js_pass.Pass{Name: "define", Run: substituteDefines}, func(options *config.Options, _ compat.JSFeature) bool {
		return options.Defines != nil
	}},
}

// Plan returns the passes to run for the options, in order
func Plan(options config.Options) []js_pass.Pass {
	unsupported := compat.UnsupportedJSFeatures(options.Target)
	var passes []js_pass.Pass
	for _, entry := range plan {
		if entry.enabled(&options, unsupported) {
			passes = append(passes, entry.pass)
		}
	}
	if options.MangleSyntax {
		passes = append(passes, minifier.Passes()...)
	}
	return passes
}

// Run applies every planned pass to the tree. Cancellation is checked before
// each pass. The input tree is never modified.
func Run(ctx context.Context, log logger.Log, source logger.Source, tree js_ast.AST, options config.Options) (js_ast.AST, error) {
	return RunPasses(ctx, js_pass.NewContext(log, &source, options), tree, Plan(options))
}

func RunPasses(ctx context.Context, pctx passContext, tree js_ast.AST, passes []js_pass.Pass) (js_ast.AST, error) {
	for _, pass := range passes {
		if err := ctx.Err(); err != nil {
			return js_ast.AST{}, err
		}
		result, err := pass.Run(pctx, tree)
		if err != nil {
			return js_ast.AST{}, fmt.Errorf("%s: %w", pass.Name, err)
		}
		tree = result
	}
	return tree, nil
}
