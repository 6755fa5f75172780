package js_parser

import (
	"strings"
	"testing"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

func expectParseErrorJSON(t *testing.T, contents string, expected string, options ParseJSONOptions) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		ParseJSON(log, test.SourceForTest(contents), options)
		test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), expected)
	})
}

func parseJSONForTest(t *testing.T, contents string) js_ast.Expr {
	t.Helper()
	log := logger.NewDeferLog()
	expr, ok := ParseJSON(log, test.SourceForTest(contents), ParseJSONOptions{})
	test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), "")
	if !ok {
		t.Fatal("Parse error")
	}
	return expr
}

func TestJSONValues(t *testing.T) {
	obj := parseJSONForTest(t, `{"a": [1, -2.5, true, false, null], "b": "A\n"}`).Data.(*js_ast.EObject)
	test.AssertEqual(t, len(obj.Properties), 2)
	test.AssertEqual(t, helpers.UTF16ToString(obj.Properties[0].Key.Data.(*js_ast.EString).Value), "a")

	items := obj.Properties[0].Value.Data.(*js_ast.EArray).Items
	test.AssertEqual(t, len(items), 5)
	test.AssertEqual(t, items[0].Data.(*js_ast.ENumber).Value, 1.0)
	test.AssertEqual(t, items[1].Data.(*js_ast.ENumber).Value, -2.5)
	test.AssertEqual(t, items[2].Data.(*js_ast.EBoolean).Value, true)
	test.AssertEqual(t, items[3].Data.(*js_ast.EBoolean).Value, false)
	if _, ok := items[4].Data.(*js_ast.ENull); !ok {
		t.Fatalf("Expected null but got %T", items[4].Data)
	}

	str := obj.Properties[1].Value.Data.(*js_ast.EString)
	test.AssertEqual(t, helpers.UTF16ToString(str.Value), "A\n")
}

func TestJSONErrors(t *testing.T) {
	expectParseErrorJSON(t, "[1,]", "<stdin>: error: JSON does not support trailing commas\n", ParseJSONOptions{})
	expectParseErrorJSON(t, "{\"a\": 1,}", "<stdin>: error: JSON does not support trailing commas\n", ParseJSONOptions{})
	expectParseErrorJSON(t, "'a'", "<stdin>: error: JSON strings must use double quotes\n", ParseJSONOptions{})
	expectParseErrorJSON(t, "[1,]", "", ParseJSONOptions{AllowTrailingCommas: true})
	expectParseErrorJSON(t, "1 2", "<stdin>: error: Expected end of file but found \"2\"\n", ParseJSONOptions{})
}

func TestSerializedASTRoundTrip(t *testing.T) {
	for _, contents := range []string{
		"#!/usr/bin/env node\n'use strict';\nlet a = 1, {b, c: [d = 2]} = e;\nfunction f(x, ...y) { return x + y.length }",
		"import a, {b as c} from './x'; export {c as d}; export default class extends a { m() { super.m() } }",
		"for (const k in o) { if (k) continue; else break } label: while (true) break label",
		"x = `a${b}c` + tag`\\n` + /re/g + 10n + a?.b?.[c]?.(d) + (async () => await 1)",
		"try { throw new Error('x') } catch ({message}) { console.log(message) } finally {}",
		"switch (x) { case 1: y(); default: z() } do ; while (false); x = {get a() { return 1 }, ...r}",
	} {
		t.Run(contents, func(t *testing.T) {
			isModule := strings.Contains(contents, "import")
			source := test.SourceForTest(contents)
			tree := parseForTest(t, contents, config.Options{IsModule: isModule})
			expected := printTree(tree)

			serialized := js_ast.SerializeAST(&tree)
			jsonSource := logger.Source{KeyPath: logger.Path{Text: "<ast>"}, PrettyPath: "<ast>", Contents: serialized}
			log := logger.NewDeferLog()
			decoded, ok := ParseSerializedAST(log, jsonSource, source, config.Options{})
			test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), "")
			if !ok {
				t.Fatal("Decode error")
			}
			test.AssertEqual(t, decoded.IsModule, isModule)
			test.AssertEqualWithDiff(t, printTree(decoded), expected)
		})
	}
}

func TestSerializedASTErrors(t *testing.T) {
	for _, contents := range []string{
		`[]`,
		`{"type":"Module","directives":[],"body":[{"type":"NotANode","start":0}]}`,
		`{"type":"Module","directives":[],"body":[{"type":"ExpressionStatement","start":0}]}`,
	} {
		t.Run(contents, func(t *testing.T) {
			log := logger.NewDeferLog()
			jsonSource := logger.Source{PrettyPath: "<ast>", Contents: contents}
			_, ok := ParseSerializedAST(log, jsonSource, logger.Source{}, config.Options{})
			if ok {
				t.Fatal("Expected a decode error")
			}
			if !log.HasErrors() {
				t.Fatal("Expected an error to be logged")
			}
		})
	}
}

func parseSourceMapForTest(t *testing.T, contents string) (string, bool) {
	t.Helper()
	log := logger.NewDeferLog()
	sourceMap := ParseSourceMap(log, test.SourceForTest(contents))
	return msgsWithoutSource(log.Done()), sourceMap != nil
}

func TestSourceMapParser(t *testing.T) {
	log := logger.NewDeferLog()
	sourceMap := ParseSourceMap(log, test.SourceForTest(
		`{"version":3,"sources":["a.js","b.js"],"sourcesContent":["x","y"],"names":["foo"],"mappings":"AAAAA,EAAE;ACCA"}`))
	test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), "")
	if sourceMap == nil {
		t.Fatal("Expected a source map")
	}
	test.AssertEqual(t, len(sourceMap.Sources), 2)
	test.AssertEqual(t, sourceMap.SourcesContent[1], "y")
	test.AssertEqual(t, len(sourceMap.Mappings), 3)

	first := sourceMap.Mappings[0]
	test.AssertEqual(t, first.OriginalName.IsValid(), true)
	test.AssertEqual(t, first.OriginalName.GetIndex(), uint32(0))

	second := sourceMap.Mappings[1]
	test.AssertEqual(t, second.GeneratedColumn, int32(2))
	test.AssertEqual(t, second.OriginalColumn, int32(2))
	test.AssertEqual(t, second.OriginalName.IsValid(), false)

	third := sourceMap.Mappings[2]
	test.AssertEqual(t, third.GeneratedLine, int32(1))
	test.AssertEqual(t, third.SourceIndex, int32(1))
	test.AssertEqual(t, third.OriginalLine, int32(1))

	found := sourceMap.Find(0, 5)
	if found == nil || found.GeneratedColumn != 2 {
		t.Fatal("Expected to find the second mapping")
	}
}

func TestSourceMapParserWarnings(t *testing.T) {
	text, ok := parseSourceMapForTest(t, `{"version":3,"sections":[]}`)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, text, "<stdin>: warning: Source maps with \"sections\" are not supported\n")

	text, ok = parseSourceMapForTest(t, `{"version":3,"sources":["a.js"],"mappings":"AAAA,!"}`)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, text, "<stdin>: warning: Bad \"mappings\" data in source map at character 5: Missing generated column\n")

	text, ok = parseSourceMapForTest(t, `{"version":3,"sources":["a.js"],"mappings":"ACAA"}`)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, text, "<stdin>: warning: Bad \"mappings\" data in source map at character 1: Invalid source index value: 1\n")

	// Missing versions and empty maps are silently ignored
	text, ok = parseSourceMapForTest(t, `{"sources":["a.js"],"mappings":"AAAA"}`)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, text, "")

	text, ok = parseSourceMapForTest(t, `[]`)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, text, "<stdin>: warning: Invalid source map\n")
}
