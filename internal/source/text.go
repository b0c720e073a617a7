package source

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"owlsight/internal/model"
)

// Text indexes a file's content by codepoint so compiler byte positions can
// be turned into Locs without rescanning the whole file.
type Text struct {
	content string
	starts  []uint32 // byte offset of every codepoint
}

// NewText builds the codepoint index for content.
func NewText(content string) *Text {
	starts := make([]uint32, 0, len(content))
	for i := range content {
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("source offset overflow: %w", err))
		}
		starts = append(starts, off)
	}
	return &Text{content: content, starts: starts}
}

// String returns the indexed content.
func (t *Text) String() string {
	return t.content
}

// Len returns the number of codepoints.
func (t *Text) Len() model.Loc {
	return model.Loc(len(t.starts))
}

// Loc converts a compiler byte position into a codepoint index. fileStart is
// the byte position where this file begins in the compiler's address space.
// The result is the first codepoint starting at or after the position;
// positions past the end map to Len.
func (t *Text) Loc(bytePos, fileStart uint32) model.Loc {
	pos := bytePos - min(bytePos, fileStart)
	i := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] >= pos })
	return model.Loc(i)
}

// Range converts a compiler byte span into a codepoint range.
func (t *Text) Range(lo, hi, fileStart uint32) (model.Range, bool) {
	return model.NewRange(t.Loc(lo, fileStart), t.Loc(hi, fileStart))
}

// LineChar converts a codepoint index into an editor position.
func (t *Text) LineChar(loc model.Loc) LineChar {
	return IndexToLineChar(t.content, loc)
}

// Index converts an editor position into a codepoint index.
func (t *Text) Index(pos LineChar) model.Loc {
	return LineCharToIndex(t.content, pos)
}

// LocFromByte is the unindexed form of Text.Loc.
func LocFromByte(content string, bytePos, fileStart uint32) model.Loc {
	pos := bytePos - min(bytePos, fileStart)
	i := 0
	for b := range content {
		if uint64(pos) <= uint64(b) {
			return model.Loc(i)
		}
		i++
	}
	return model.Loc(i)
}

// IndexToLineChar walks content up to loc counting newlines.
// Carriage returns do not advance the column. A loc past the end yields the
// position right after the last codepoint.
func IndexToLineChar(content string, loc model.Loc) LineChar {
	var pos LineChar
	var i model.Loc
	for _, c := range content {
		if i == loc {
			return pos
		}
		switch c {
		case '\n':
			pos.Line++
			pos.Char = 0
		case '\r':
		default:
			pos.Char++
		}
		i++
	}
	return pos
}

// LineCharToIndex is the inverse of IndexToLineChar. A column past the end of
// its line clamps to the line break; a line past the end clamps to Len.
func LineCharToIndex(content string, pos LineChar) model.Loc {
	var line, col uint32
	var i model.Loc
	for _, c := range content {
		if line == pos.Line && (col == pos.Char || c == '\n') {
			return i
		}
		switch c {
		case '\n':
			line++
			col = 0
		case '\r':
		default:
			col++
		}
		i++
	}
	return i
}
