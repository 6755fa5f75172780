package js_parser

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/sourcemap"
	"golang.org/x/exp/slices"
)

// Decodes a version 3 source map. Problems with the map are reported as
// warnings and make this return nil, since a broken input source map should
// never fail a build.
func ParseSourceMap(log logger.Log, source logger.Source) *sourcemap.SourceMap {
	expr, ok := ParseJSON(log, source, ParseJSONOptions{})
	if !ok {
		return nil
	}

	obj, ok := expr.Data.(*js_ast.EObject)
	if !ok {
		log.AddWarning(&source, expr.Loc, "Invalid source map")
		return nil
	}

	var sources []string
	var sourcesContent []string
	var names []string
	var mappingsRaw []uint16
	var mappingsStart int32
	hasVersion := false

	for _, prop := range obj.Properties {
		keyRange := source.RangeOfString(prop.Key.Loc)
		value := *prop.Value

		switch helpers.UTF16ToString(prop.Key.Data.(*js_ast.EString).Value) {
		case "sections":
			log.AddRangeWarning(&source, keyRange, "Source maps with \"sections\" are not supported")
			return nil

		case "version":
			if number, ok := value.Data.(*js_ast.ENumber); ok && number.Value == 3 {
				hasVersion = true
			}

		case "mappings":
			if str, ok := value.Data.(*js_ast.EString); ok {
				mappingsRaw = str.Value
				mappingsStart = value.Loc.Start + 1
			}

		case "sources":
			sources = stringArray(value)

		case "sourcesContent":
			sourcesContent = stringArray(value)

		case "names":
			names = stringArray(value)
		}
	}

	// Silently fail if the version was missing or incorrect
	if !hasVersion {
		return nil
	}

	// Silently fail if the source map is pointless (i.e. empty)
	if len(sources) == 0 || len(mappingsRaw) == 0 {
		return nil
	}

	var mappings []sourcemap.Mapping
	mappingsLen := len(mappingsRaw)
	sourcesLen := len(sources)
	namesLen := len(names)
	generatedLine := 0
	generatedColumn := 0
	sourceIndex := 0
	originalLine := 0
	originalColumn := 0
	originalName := 0
	current := 0
	errorText := ""
	errorLen := 0
	needSort := false

	for current < mappingsLen {
		// Handle a line break
		if mappingsRaw[current] == ';' {
			generatedLine++
			generatedColumn = 0
			current++
			continue
		}

		// Read the generated column
		generatedColumnDelta, i, ok := sourcemap.DecodeVLQUTF16(mappingsRaw[current:])
		if !ok {
			errorText = "Missing generated column"
			errorLen = i
			break
		}
		if generatedColumnDelta < 0 {
			// This would mess up binary search
			needSort = true
		}
		generatedColumn += int(generatedColumnDelta)
		if generatedColumn < 0 {
			errorText = fmt.Sprintf("Invalid generated column value: %d", generatedColumn)
			errorLen = i
			break
		}
		current += i

		// A mapping with only one field has no original location. Skip it.
		if current == mappingsLen {
			break
		}
		switch mappingsRaw[current] {
		case ',':
			current++
			continue
		case ';':
			continue
		}

		// Read the original source
		sourceIndexDelta, i, ok := sourcemap.DecodeVLQUTF16(mappingsRaw[current:])
		if !ok {
			errorText = "Missing source index"
			errorLen = i
			break
		}
		sourceIndex += int(sourceIndexDelta)
		if sourceIndex < 0 || sourceIndex >= sourcesLen {
			errorText = fmt.Sprintf("Invalid source index value: %d", sourceIndex)
			errorLen = i
			break
		}
		current += i

		// Read the original line
		originalLineDelta, i, ok := sourcemap.DecodeVLQUTF16(mappingsRaw[current:])
		if !ok {
			errorText = "Missing original line"
			errorLen = i
			break
		}
		originalLine += int(originalLineDelta)
		if originalLine < 0 {
			errorText = fmt.Sprintf("Invalid original line value: %d", originalLine)
			errorLen = i
			break
		}
		current += i

		// Read the original column
		originalColumnDelta, i, ok := sourcemap.DecodeVLQUTF16(mappingsRaw[current:])
		if !ok {
			errorText = "Missing original column"
			errorLen = i
			break
		}
		originalColumn += int(originalColumnDelta)
		if originalColumn < 0 {
			errorText = fmt.Sprintf("Invalid original column value: %d", originalColumn)
			errorLen = i
			break
		}
		current += i

		// Read the optional original name
		var name ast.Index32
		if originalNameDelta, i, ok := sourcemap.DecodeVLQUTF16(mappingsRaw[current:]); ok {
			originalName += int(originalNameDelta)
			if originalName < 0 || originalName >= namesLen {
				errorText = fmt.Sprintf("Invalid name index value: %d", originalName)
				errorLen = i
				break
			}
			name = ast.MakeIndex32(uint32(originalName))
			current += i
		}

		// Handle the next character
		if current < mappingsLen {
			if c := mappingsRaw[current]; c == ',' {
				current++
			} else if c != ';' {
				errorText = fmt.Sprintf("Invalid character after mapping: %q",
					helpers.UTF16ToString(mappingsRaw[current:current+1]))
				errorLen = 1
				break
			}
		}

		mappings = append(mappings, sourcemap.Mapping{
			GeneratedLine:   int32(generatedLine),
			GeneratedColumn: int32(generatedColumn),
			SourceIndex:     int32(sourceIndex),
			OriginalLine:    int32(originalLine),
			OriginalColumn:  int32(originalColumn),
			OriginalName:    name,
		})
	}

	if errorText != "" {
		r := logger.Range{Loc: logger.Loc{Start: mappingsStart + int32(current)}, Len: int32(errorLen)}
		log.AddRangeWarning(&source, r,
			fmt.Sprintf("Bad \"mappings\" data in source map at character %d: %s", current, errorText))
		return nil
	}

	if needSort {
		// Lines can't be out of order by construction but columns can
		slices.SortStableFunc(mappings, func(a sourcemap.Mapping, b sourcemap.Mapping) int {
			if a.GeneratedLine != b.GeneratedLine {
				return int(a.GeneratedLine - b.GeneratedLine)
			}
			return int(a.GeneratedColumn - b.GeneratedColumn)
		})
	}

	return &sourcemap.SourceMap{
		Sources:        sources,
		SourcesContent: sourcesContent,
		Mappings:       mappings,
		Names:          names,
	}
}

func stringArray(value js_ast.Expr) []string {
	array, ok := value.Data.(*js_ast.EArray)
	if !ok {
		return nil
	}
	result := make([]string, len(array.Items))
	for i, item := range array.Items {
		if str, ok := item.Data.(*js_ast.EString); ok {
			result[i] = helpers.UTF16ToString(str.Value)
		}
	}
	return result
}
