package sourcemap

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/logger"
)

// Collects the mappings for one printed chunk while the printer writes it
type ChunkBuilder struct {
	inputSourceMap   *SourceMap
	lineOffsetTables []LineOffsetTable
	contentsLen      int32

	sourceMap       []byte
	names           []string
	namesMap        map[string]uint32
	firstNameOffset ast.Index32

	prevState    SourceMapState
	hasPrevState bool

	// Used to skip repeated mappings for the same location
	prevOriginalLoc  logger.Loc
	prevOriginalName string
	prevGeneratedLen int

	// How much of the output has been scanned for line breaks
	lastGeneratedUpdate int
	generatedColumn     int

	// A generated line that has no mapping of its own repeats the previous
	// one at column zero, except when remapping through an input source map
	lineStartsWithMapping     bool
	coverLinesWithoutMappings bool
}

func MakeChunkBuilder(inputSourceMap *SourceMap, contents string, lineOffsetTables []LineOffsetTable) ChunkBuilder {
	return ChunkBuilder{
		inputSourceMap:            inputSourceMap,
		lineOffsetTables:          lineOffsetTables,
		contentsLen:               int32(len(contents)),
		namesMap:                  make(map[string]uint32),
		prevOriginalLoc:           logger.Loc{Start: -1},
		coverLinesWithoutMappings: inputSourceMap == nil,
	}
}

// Maps the end of "output" to "originalLoc" in the source
func (b *ChunkBuilder) AddSourceMapping(originalLoc logger.Loc, originalName string, output []byte) {
	// Decoded trees can carry locations outside of the source text
	if originalLoc.Start < 0 || originalLoc.Start > b.contentsLen || len(b.lineOffsetTables) == 0 {
		return
	}

	if originalLoc == b.prevOriginalLoc && (b.prevGeneratedLen == len(output) || b.prevOriginalName == originalName) {
		return
	}
	b.prevOriginalLoc = originalLoc
	b.prevGeneratedLen = len(output)
	b.prevOriginalName = originalName

	originalLine, originalColumn := b.lineAndColumn(originalLoc)
	b.updateGeneratedLineAndColumn(output)
	if b.generatedColumn > 0 {
		b.coverLineStart()
	}

	b.appendMapping(originalName, SourceMapState{
		GeneratedLine:   b.prevState.GeneratedLine,
		GeneratedColumn: b.generatedColumn,
		OriginalLine:    originalLine,
		OriginalColumn:  originalColumn,
	})
	b.lineStartsWithMapping = true
}

func (b *ChunkBuilder) lineAndColumn(loc logger.Loc) (int, int) {
	tables := b.lineOffsetTables
	line := sort.Search(len(tables), func(i int) bool {
		return tables[i].byteOffsetToStartOfLine > loc.Start
	}) - 1

	table := &tables[line]
	column := int(loc.Start - table.byteOffsetToStartOfLine)
	if table.columnsForNonASCII != nil && column >= int(table.byteOffsetToFirstNonASCII) {
		if index := column - int(table.byteOffsetToFirstNonASCII); index < len(table.columnsForNonASCII) {
			column = int(table.columnsForNonASCII[index])
		}
	}
	return line, column
}

func (b *ChunkBuilder) GenerateChunk(output []byte) Chunk {
	b.updateGeneratedLineAndColumn(output)
	return Chunk{
		Buffer: MappingsBuffer{
			Data:            b.sourceMap,
			FirstNameOffset: b.firstNameOffset,
		},
		Names:                b.names,
		EndState:             b.prevState,
		FinalGeneratedColumn: b.generatedColumn,
		ShouldIgnore:         len(bytes.TrimLeft(b.sourceMap, ";")) == 0,
	}
}

// Scans the output written since the last call for line breaks
func (b *ChunkBuilder) updateGeneratedLineAndColumn(output []byte) {
	for i := b.lastGeneratedUpdate; i < len(output); {
		c, width := utf8.DecodeRune(output[i:])
		i += width
		switch {
		case c == '\r' && i < len(output) && output[i] == '\n':
			// Counted at the "\n"

		case isLineTerminator(c):
			b.coverLineStart()
			b.prevState.GeneratedLine++
			b.prevState.GeneratedColumn = 0
			b.generatedColumn = 0
			b.sourceMap = append(b.sourceMap, ';')
			b.lineStartsWithMapping = false

		default:
			b.generatedColumn += utf16Len(c)
		}
	}
	b.lastGeneratedUpdate = len(output)
}

// Repeats the previous mapping at column zero of the current line when the
// line has no mapping yet
func (b *ChunkBuilder) coverLineStart() {
	if !b.coverLinesWithoutMappings || b.lineStartsWithMapping || !b.hasPrevState {
		return
	}
	state := b.prevState
	state.GeneratedColumn = 0
	state.HasOriginalName = false
	b.appendMappingWithoutRemapping(state)
}

func (b *ChunkBuilder) appendMapping(originalName string, currentState SourceMapState) {
	if b.inputSourceMap != nil {
		mapping := b.inputSourceMap.Find(int32(currentState.OriginalLine), int32(currentState.OriginalColumn))
		if mapping == nil {
			return
		}
		currentState.SourceIndex = int(mapping.SourceIndex)
		currentState.OriginalLine = int(mapping.OriginalLine)
		currentState.OriginalColumn = int(mapping.OriginalColumn)
		if mapping.OriginalName.IsValid() {
			originalName = b.inputSourceMap.Names[mapping.OriginalName.GetIndex()]
		}
	}

	if originalName != "" {
		index, ok := b.namesMap[originalName]
		if !ok {
			index = uint32(len(b.names))
			b.names = append(b.names, originalName)
			b.namesMap[originalName] = index
		}
		currentState.OriginalName = int(index)
		currentState.HasOriginalName = true
	}

	b.appendMappingWithoutRemapping(currentState)
}

func (b *ChunkBuilder) appendMappingWithoutRemapping(currentState SourceMapState) {
	var lastByte byte
	if len(b.sourceMap) != 0 {
		lastByte = b.sourceMap[len(b.sourceMap)-1]
	}

	var nameOffset ast.Index32
	b.sourceMap, nameOffset = appendMappingToBuffer(b.sourceMap, lastByte, b.prevState, currentState, false)

	// Name indices are relative to the last mapping that had a name
	if !currentState.HasOriginalName {
		currentState.OriginalName = b.prevState.OriginalName
	} else if !b.firstNameOffset.IsValid() {
		b.firstNameOffset = nameOffset
	}
	b.prevState = currentState
	b.hasPrevState = true
}
