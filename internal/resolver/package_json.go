package resolver

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/logger"
)

// The fields that select a package's entry point, in priority order. The ES
// module entry is preferred because the bundler links ES modules statically.
var mainFields = []string{"module", "main"}

type packageJSON struct {
	// Absolute paths for each main field that was present as a string
	absMainFields map[string]string
}

func (r *Resolver) parsePackageJSON(dir string) *packageJSON {
	packageJSONPath := r.fs.Join(dir, "package.json")
	contents, err := r.fs.ReadFile(packageJSONPath)
	if err != nil {
		r.log.AddErrorWithID(logger.MsgID_ResolutionError, nil, logger.Range{},
			fmt.Sprintf("Cannot read file %q: %s", r.PrettyPath(packageJSONPath), err.Error()))
		return nil
	}

	source := logger.Source{
		KeyPath:    logger.Path{Text: packageJSONPath, Namespace: "file"},
		PrettyPath: r.PrettyPath(packageJSONPath),
		Contents:   contents,
	}

	json, ok := js_parser.ParseJSON(r.log, source, js_parser.ParseJSONOptions{})
	if !ok {
		return nil
	}

	result := &packageJSON{}
	for _, field := range mainFields {
		value, loc, ok := getProperty(json, field)
		if !ok {
			continue
		}
		str, ok := value.Data.(*js_ast.EString)
		if !ok {
			r.log.AddWarningWithID(logger.MsgID_None, &source, source.RangeOfString(loc),
				fmt.Sprintf("The %q field must be a string", field))
			continue
		}
		if result.absMainFields == nil {
			result.absMainFields = make(map[string]string)
		}
		result.absMainFields[field] = r.fs.Join(dir, helpers.UTF16ToString(str.Value))
	}
	return result
}

// Returns the value of the last property with this key in a top-level object
func getProperty(json js_ast.Expr, name string) (js_ast.Expr, logger.Loc, bool) {
	obj, ok := json.Data.(*js_ast.EObject)
	if !ok {
		return js_ast.Expr{}, logger.Loc{}, false
	}
	var value js_ast.Expr
	var loc logger.Loc
	found := false
	for _, property := range obj.Properties {
		if key, ok := property.Key.Data.(*js_ast.EString); ok && property.Value != nil &&
			helpers.UTF16EqualsString(key.Value, name) {
			value, loc, found = *property.Value, property.Key.Loc, true
		}
	}
	return value, loc, found
}
