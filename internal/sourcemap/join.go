package sourcemap

import (
	"github.com/jspipe/jspipe/internal/helpers"
)

type SourceFile struct {
	Path     string
	Contents string
}

// One printed piece of an output file. "Gap" is the text between the end of
// the previous piece (or the start of the file) and the start of this one.
type Piece struct {
	Gap         LineColumnOffset
	SourceIndex int
	Chunk       Chunk
}

// Writes a complete version 3 source map from chunks that were printed
// separately. Names are concatenated in piece order and each chunk's first
// mapping is rewritten to be relative to the end of the previous chunk.
func Join(sources []SourceFile, pieces []Piece) []byte {
	j := helpers.Joiner{}
	j.AddString(`{"version":3,"sources":[`)
	for i, source := range sources {
		if i > 0 {
			j.AddString(",")
		}
		j.AddBytes(helpers.QuoteForJSON(source.Path))
	}
	j.AddString(`],"sourcesContent":[`)
	for i, source := range sources {
		if i > 0 {
			j.AddString(",")
		}
		j.AddBytes(helpers.QuoteForJSON(source.Contents))
	}
	j.AddString(`],"names":[`)
	first := true
	for _, piece := range pieces {
		if piece.Chunk.ShouldIgnore {
			continue
		}
		for _, name := range piece.Chunk.Names {
			if !first {
				j.AddString(",")
			}
			first = false
			j.AddBytes(helpers.QuoteForJSON(name))
		}
	}
	j.AddString(`],"mappings":"`)

	prevEndState := SourceMapState{}
	prevColumnOffset := 0
	nameOffset := 0
	pendingGap := LineColumnOffset{}

	for _, piece := range pieces {
		chunk := piece.Chunk
		gap := pendingGap
		gap.Add(piece.Gap)

		// Skipped pieces still take up room in the output
		if chunk.ShouldIgnore {
			pendingGap = gap
			pendingGap.Add(LineColumnOffset{Lines: chunk.EndState.GeneratedLine, Columns: chunk.FinalGeneratedColumn})
			continue
		}
		pendingGap = LineColumnOffset{}

		startState := SourceMapState{
			SourceIndex:     piece.SourceIndex,
			GeneratedLine:   gap.Lines,
			GeneratedColumn: gap.Columns,
			OriginalName:    nameOffset,
		}
		if gap.Lines == 0 {
			startState.GeneratedColumn += prevColumnOffset
		}

		AppendSourceMapChunk(&j, prevEndState, startState, chunk.Buffer)

		prevOriginalName := prevEndState.OriginalName
		prevEndState = chunk.EndState
		prevEndState.SourceIndex += piece.SourceIndex
		if chunk.Buffer.FirstNameOffset.IsValid() {
			prevEndState.OriginalName += nameOffset
		} else {
			prevEndState.OriginalName = prevOriginalName
		}
		prevColumnOffset = chunk.FinalGeneratedColumn
		nameOffset += len(chunk.Names)

		// If this was all one line, include the column offset from the start
		if prevEndState.GeneratedLine == 0 {
			prevEndState.GeneratedColumn += startState.GeneratedColumn
			prevColumnOffset += startState.GeneratedColumn
		}
	}

	j.AddString(`"}`)
	return j.Done()
}
