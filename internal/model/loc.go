package model

import "fmt"

// Loc is a codepoint index into the text of one source file.
type Loc uint32

// Add shifts the position by n, saturating at zero.
func (l Loc) Add(n int) Loc {
	if n < 0 && uint64(l) < uint64(-n) {
		return 0
	}
	return Loc(int64(l) + int64(n))
}

// Sub shifts the position back by n, saturating at zero.
func (l Loc) Sub(n int) Loc {
	return l.Add(-n)
}

// Range is a closed interval [From, Until] of codepoint positions.
// A valid range always has From < Until.
type Range struct {
	From  Loc `json:"from" msgpack:"from"`
	Until Loc `json:"until" msgpack:"until"`
}

// NewRange returns the range [from, until]; ok is false when from >= until.
func NewRange(from, until Loc) (Range, bool) {
	if until <= from {
		return Range{}, false
	}
	return Range{From: from, Until: until}, true
}

// Size is the distance between both ends.
func (r Range) Size() uint32 {
	return uint32(r.Until - r.From)
}

// Contains reports whether pos lies inside the closed interval.
func (r Range) Contains(pos Loc) bool {
	return r.From <= pos && pos <= r.Until
}

// Valid reports whether the range satisfies From < Until.
func (r Range) Valid() bool {
	return r.From < r.Until
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.From, r.Until)
}
