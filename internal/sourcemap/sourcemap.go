package sourcemap

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/helpers"
)

type Mapping struct {
	GeneratedLine   int32 // 0-based
	GeneratedColumn int32 // 0-based count of UTF-16 code units

	SourceIndex    int32       // 0-based
	OriginalLine   int32       // 0-based
	OriginalColumn int32       // 0-based count of UTF-16 code units
	OriginalName   ast.Index32 // 0-based, optional
}

// A decoded version 3 source map
type SourceMap struct {
	Sources        []string
	SourcesContent []string
	Mappings       []Mapping
	Names          []string
}

// Returns the last mapping on the given generated line that starts at or
// before the column, or nil if there is none. Mappings must be sorted.
func (sm *SourceMap) Find(line int32, column int32) *Mapping {
	after := sort.Search(len(sm.Mappings), func(i int) bool {
		m := &sm.Mappings[i]
		return m.GeneratedLine > line || (m.GeneratedLine == line && m.GeneratedColumn > column)
	})
	if after > 0 && sm.Mappings[after-1].GeneratedLine == line {
		return &sm.Mappings[after-1]
	}
	return nil
}

func isLineTerminator(c rune) bool {
	return c == '\n' || c == '\r' || c == '\u2028' || c == '\u2029'
}

// Columns count UTF-16 code units
func utf16Len(c rune) int {
	if c > 0xFFFF {
		return 2
	}
	return 1
}

type LineColumnOffset struct {
	Lines   int
	Columns int
}

func (a *LineColumnOffset) Add(b LineColumnOffset) {
	if b.Lines == 0 {
		a.Columns += b.Columns
	} else {
		a.Lines += b.Lines
		a.Columns = b.Columns
	}
}

func (offset *LineColumnOffset) AdvanceBytes(text []byte) {
	for i := 0; i < len(text); {
		c, width := utf8.DecodeRune(text[i:])
		i += width
		switch {
		case c == '\r' && i < len(text) && text[i] == '\n':
			// The line ends at the "\n"
			offset.Columns++
		case isLineTerminator(c):
			offset.Lines++
			offset.Columns = 0
		default:
			offset.Columns += utf16Len(c)
		}
	}
}

// Where the printer was in the mappings stream. Mappings are delta-encoded,
// so each chunk is written relative to a zero state and its first mapping is
// rewritten against the previous chunk's end state when chunks are joined.
type SourceMapState struct {
	// Only used while joining. Lines are separated by ";" in the mappings.
	GeneratedLine int

	GeneratedColumn int
	SourceIndex     int
	OriginalLine    int
	OriginalColumn  int
	OriginalName    int
	HasOriginalName bool
}

// Appends a chunk's mappings after "prevEndState", re-basing the chunk's
// first mapping (and its first name index) onto "startState"
func AppendSourceMapChunk(j *helpers.Joiner, prevEndState SourceMapState, startState SourceMapState, buffer MappingsBuffer) {
	if startState.GeneratedLine != 0 {
		j.AddBytes(bytes.Repeat([]byte{';'}, startState.GeneratedLine))
		prevEndState.GeneratedColumn = 0
	}

	data := buffer.Data
	first := len(data) - len(bytes.TrimLeft(data, ";"))
	if first > 0 {
		j.AddBytes(data[:first])
		prevEndState.GeneratedColumn = 0
		startState.GeneratedColumn = 0
	}
	if first == len(data) {
		return
	}

	// A mapping with one field has no source
	generatedColumn, i, _ := decodeVLQ(data, first)
	omitSource := i == len(data) || strings.IndexByte(",;", data[i]) != -1
	if !omitSource {
		var sourceIndex, originalLine, originalColumn int
		sourceIndex, i, _ = decodeVLQ(data, i)
		originalLine, i, _ = decodeVLQ(data, i)
		originalColumn, i, _ = decodeVLQ(data, i)
		startState.SourceIndex += sourceIndex
		startState.OriginalLine += originalLine
		startState.OriginalColumn += originalColumn
	}
	startState.GeneratedColumn += generatedColumn

	// The name is re-based below from the saved offset
	prevEndState.HasOriginalName = false
	rewritten, _ := appendMappingToBuffer(nil, j.LastByte(), prevEndState, startState, omitSource)
	j.AddBytes(rewritten)

	if !buffer.FirstNameOffset.IsValid() {
		j.AddBytes(data[i:])
		return
	}
	nameStart := int(buffer.FirstNameOffset.GetIndex())
	originalName, nameEnd, _ := decodeVLQ(data, nameStart)
	j.AddBytes(data[i:nameStart])
	j.AddBytes(encodeVLQ(nil, originalName+startState.OriginalName-prevEndState.OriginalName))
	j.AddBytes(data[nameEnd:])
}

// Returns the new buffer and the offset of the name field, if one was written
func appendMappingToBuffer(
	buffer []byte, lastByte byte, prevState SourceMapState, currentState SourceMapState, omitSource bool,
) ([]byte, ast.Index32) {
	if lastByte != 0 && lastByte != ';' && lastByte != '"' {
		buffer = append(buffer, ',')
	}

	buffer = encodeVLQ(buffer, currentState.GeneratedColumn-prevState.GeneratedColumn)
	if !omitSource {
		buffer = encodeVLQ(buffer, currentState.SourceIndex-prevState.SourceIndex)
		buffer = encodeVLQ(buffer, currentState.OriginalLine-prevState.OriginalLine)
		buffer = encodeVLQ(buffer, currentState.OriginalColumn-prevState.OriginalColumn)
	}

	var nameOffset ast.Index32
	if currentState.HasOriginalName {
		nameOffset = ast.MakeIndex32(uint32(len(buffer)))
		buffer = encodeVLQ(buffer, currentState.OriginalName-prevState.OriginalName)
	}
	return buffer, nameOffset
}

// Converts byte offsets on one line of the source into UTF-16 columns
type LineOffsetTable struct {
	byteOffsetToStartOfLine int32

	// Bytes before the first non-ASCII character are one column each. Past it
	// the column of every byte offset is looked up here.
	byteOffsetToFirstNonASCII int32
	columnsForNonASCII        []int32
}

func GenerateLineOffsetTables(contents string, approximateLineCount int32) []LineOffsetTable {
	tables := make([]LineOffsetTable, 0, max(approximateLineCount, 1))
	for start := 0; start <= len(contents); {
		end, next := len(contents), len(contents)+1
		for i, c := range contents[start:] {
			if isLineTerminator(c) {
				end = start + i
				next = end + utf8.RuneLen(c)
				if c == '\r' && next < len(contents) && contents[next] == '\n' {
					next++
				}
				break
			}
		}
		tables = append(tables, makeLineOffsetTable(contents, start, end))
		start = next
	}
	return tables
}

func makeLineOffsetTable(contents string, start int, end int) LineOffsetTable {
	table := LineOffsetTable{byteOffsetToStartOfLine: int32(start)}
	line := contents[start:end]
	firstNonASCII := strings.IndexFunc(line, func(c rune) bool { return c > 0x7F })
	if firstNonASCII == -1 {
		return table
	}

	rest := line[firstNonASCII:]
	columns := make([]int32, 0, len(rest)+1)
	column := int32(firstNonASCII)
	for i, c := range rest {
		for len(columns) <= i {
			columns = append(columns, column)
		}
		column += int32(utf16Len(c))
	}
	for len(columns) <= len(rest) {
		columns = append(columns, column)
	}

	table.byteOffsetToFirstNonASCII = int32(firstNonASCII)
	table.columnsForNonASCII = columns
	return table
}

type MappingsBuffer struct {
	Data            []byte
	FirstNameOffset ast.Index32
}

type Chunk struct {
	Buffer MappingsBuffer
	Names  []string

	// The state after the last mapping, used to re-base the next chunk
	EndState SourceMapState

	// The number of columns on the last generated line
	FinalGeneratedColumn int

	// Set when the chunk has no mappings at all
	ShouldIgnore bool
}
