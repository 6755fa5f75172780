package sourcemap

import (
	"testing"

	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

func TestVLQ(t *testing.T) {
	for _, value := range []int{0, 1, -1, 15, 16, -16, 1000, -123456} {
		encoded := encodeVLQ(nil, value)
		decoded, next, ok := decodeVLQ(encoded, 0)
		test.AssertEqual(t, ok, true)
		test.AssertEqual(t, next, len(encoded))
		test.AssertEqual(t, decoded, value)
	}

	test.AssertEqual(t, string(encodeVLQ(nil, 0)), "A")
	test.AssertEqual(t, string(encodeVLQ(nil, -1)), "D")
	test.AssertEqual(t, string(encodeVLQ(nil, 16)), "gB")

	// A continuation digit with nothing after it
	_, _, ok := decodeVLQ([]byte("g"), 0)
	test.AssertEqual(t, ok, false)
	_, _, ok = DecodeVLQUTF16(helpers.StringToUTF16("!"))
	test.AssertEqual(t, ok, false)
}

func TestLineOffsetTables(t *testing.T) {
	contents := "ab\r\nçd \U0001F600x\n"
	tables := GenerateLineOffsetTables(contents, 0)
	test.AssertEqual(t, len(tables), 3)
	test.AssertEqual(t, tables[1].byteOffsetToStartOfLine, int32(4))

	b := MakeChunkBuilder(nil, contents, tables)
	line, column := b.lineAndColumn(logger.Loc{Start: 7})
	test.AssertEqual(t, line, 1)
	test.AssertEqual(t, column, 2)

	// The emoji takes two columns
	line, column = b.lineAndColumn(logger.Loc{Start: int32(len("ab\r\nçd \U0001F600"))})
	test.AssertEqual(t, line, 1)
	test.AssertEqual(t, column, 5)
}

func TestChunkBuilderCoversLineStarts(t *testing.T) {
	contents := "a;\nb;\n"
	b := MakeChunkBuilder(nil, contents, GenerateLineOffsetTables(contents, 2))
	output := []byte{}
	output = append(output, "  "...)
	b.AddSourceMapping(logger.Loc{Start: 0}, "", output)
	output = append(output, "a;\n    "...)
	b.AddSourceMapping(logger.Loc{Start: 3}, "b", output)
	chunk := b.GenerateChunk(append(output, "b;\n"...))

	test.AssertEqual(t, string(chunk.Buffer.Data), "EAAA;AAAA,IACAA;")
	test.AssertEqual(t, len(chunk.Names), 1)
	test.AssertEqual(t, chunk.Names[0], "b")
	test.AssertEqual(t, chunk.ShouldIgnore, false)
	test.AssertEqual(t, chunk.EndState.GeneratedLine, 2)
}

func TestFind(t *testing.T) {
	sm := SourceMap{Mappings: []Mapping{
		{GeneratedLine: 0, GeneratedColumn: 0, OriginalLine: 5},
		{GeneratedLine: 0, GeneratedColumn: 4, OriginalLine: 6},
		{GeneratedLine: 2, GeneratedColumn: 1, OriginalLine: 7},
	}}
	test.AssertEqual(t, sm.Find(0, 3).OriginalLine, int32(5))
	test.AssertEqual(t, sm.Find(0, 9).OriginalLine, int32(6))
	test.AssertEqual(t, sm.Find(1, 0) == nil, true)
	test.AssertEqual(t, sm.Find(2, 0) == nil, true)
	test.AssertEqual(t, sm.Find(2, 1).OriginalLine, int32(7))
}
