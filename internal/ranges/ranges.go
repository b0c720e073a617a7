// Package ranges implements set operations over closed source ranges.
package ranges

import (
	"slices"

	"owlsight/internal/model"
)

// Range is a shorthand for model.Range.
type Range = model.Range

// Common returns the overlap of a and b. Ranges that only touch at a single
// point have no valid overlap.
func Common(a, b Range) (Range, bool) {
	if b.From < a.From {
		a, b = b, a
	}
	if a.Until < b.From {
		return Range{}, false
	}
	return model.NewRange(b.From, min(a.Until, b.Until))
}

// CommonAll collects the pairwise overlaps of rs and flattens them.
func CommonAll(rs []Range) []Range {
	var out []Range
	for i := range rs {
		for j := i + 1; j < len(rs); j++ {
			if c, ok := Common(rs[i], rs[j]); ok {
				out = append(out, c)
			}
		}
	}
	return Eliminate(out)
}

// Merge returns the smallest range covering a and b when they overlap or are
// adjacent.
func Merge(a, b Range) (Range, bool) {
	_, overlap := Common(a, b)
	if !overlap && a.Until != b.From && b.Until != a.From {
		return Range{}, false
	}
	return model.NewRange(min(a.From, b.From), max(a.Until, b.Until))
}

// Eliminate merges ranges until no pair can be merged any more.
// The result is ordered by From.
func Eliminate(rs []Range) []Range {
	out := slices.Clone(rs)
outer:
	for i := 0; i < len(out); {
		for j := range out {
			if i == j {
				continue
			}
			if merged, ok := Merge(out[i], out[j]); ok {
				out[i] = merged
				out = slices.Delete(out, j, j+1)
				if j < i {
					i--
				}
				continue outer
			}
		}
		i++
	}
	slices.SortFunc(out, compare)
	return out
}

// IsSuperset reports whether b lies strictly inside a: one boundary may be
// shared, but not both.
func IsSuperset(a, b Range) bool {
	return (a.From < b.From && b.Until <= a.Until) ||
		(a.From <= b.From && b.Until < a.Until)
}

// EraseSupersets drops redundant ranges from rs. With eraseSubset false every
// range strictly contained in another one is removed, leaving only maximal
// fragments; with eraseSubset true every range strictly containing another one
// is removed, leaving only minimal fragments.
func EraseSupersets(rs []Range, eraseSubset bool) []Range {
	out := make([]Range, 0, len(rs))
	for i, r := range rs {
		redundant := false
		for j, other := range rs {
			if i == j {
				continue
			}
			if !eraseSubset && IsSuperset(other, r) {
				redundant = true
				break
			}
			if eraseSubset && IsSuperset(r, other) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, r)
		}
	}
	return out
}

// Exclude subtracts every range of excludes from every range of from.
// Residual fragments stop one position short of the excluded span.
func Exclude(from, excludes []Range) []Range {
	pending := slices.Clone(from)
	var out []Range
	for len(pending) > 0 {
		r := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		split := false
		for _, ex := range excludes {
			c, ok := Common(r, ex)
			if !ok {
				continue
			}
			if left, ok := model.NewRange(r.From, c.From.Sub(1)); ok {
				pending = append(pending, left)
			}
			if right, ok := model.NewRange(c.Until.Add(1), r.Until); ok {
				pending = append(pending, right)
			}
			split = true
			break
		}
		if !split {
			out = append(out, r)
		}
	}
	return Eliminate(out)
}

func compare(a, b Range) int {
	if a.From != b.From {
		if a.From < b.From {
			return -1
		}
		return 1
	}
	switch {
	case a.Until < b.Until:
		return -1
	case a.Until > b.Until:
		return 1
	}
	return 0
}
