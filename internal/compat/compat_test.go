package compat

import (
	"testing"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/test"
)

func TestUnsupportedJSFeatures(t *testing.T) {
	check := func(target config.LanguageTarget, feature JSFeature, expected bool) {
		t.Helper()
		t.Run(target.String()+" "+feature.String(), func(t *testing.T) {
			test.AssertEqual(t, UnsupportedJSFeatures(target).Has(feature), expected)
		})
	}

	check(config.ESNext, LogicalAssignment, false)
	check(config.ES2020, LogicalAssignment, true)
	check(config.ES2020, NullishCoalescing, false)
	check(config.ES2019, NullishCoalescing, true)
	check(config.ES2019, OptionalChain, true)
	check(config.ES2016, ExponentOperator, false)
	check(config.ES2015, ExponentOperator, true)
	check(config.ES2015, ArrowFunctions, false)
	check(config.ES5, ArrowFunctions, true)
	check(config.ES5, Class, true)
	check(config.ES5, TemplateLiteral, true)
}

func TestEveryFeatureHasAnEntry(t *testing.T) {
	for feature := ArrowFunctions; feature <= TemplateLiteral; feature <<= 1 {
		if _, ok := jsTable[feature]; !ok {
			t.Fatalf("Missing table entry for %s", feature)
		}
		if feature.String() == "unknown feature" {
			t.Fatalf("Missing name for feature %d", feature)
		}
	}
	test.AssertEqual(t, UnsupportedJSFeatures(config.ESNext), JSFeature(0))
}
