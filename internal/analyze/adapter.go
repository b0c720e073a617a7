package analyze

import (
	"cmp"
	"maps"
	"slices"

	"owlsight/internal/facts"
	"owlsight/internal/mir"
	"owlsight/internal/model"
	"owlsight/internal/ranges"
	"owlsight/internal/source"
)

// adapter turns point relations of one body into source ranges.
type adapter struct {
	text      *source.Text
	fileStart uint32
	body      *mir.Body
	table     *LocationTable
}

type stmtCoord struct {
	block mir.BlockID
	stmt  uint32
}

func compareCoord(a, b stmtCoord) int {
	if c := cmp.Compare(a.block, b.block); c != 0 {
		return c
	}
	return cmp.Compare(a.stmt, b.stmt)
}

func (a *adapter) spanRange(sp mir.Span) (model.Range, bool) {
	return a.text.Range(sp.Lo, sp.Hi, a.fileStart)
}

// coordRange returns the source range of a statement, or of the terminator
// when the statement index is past the last statement.
func (a *adapter) coordRange(c stmtCoord) (model.Range, bool) {
	bb := a.body.Block(c.block)
	if bb == nil {
		return model.Range{}, false
	}
	if int(c.stmt) < len(bb.Statements) {
		return a.spanRange(bb.Statements[c.stmt].Span)
	}
	sp, ok := bb.TerminatorSpan()
	if !ok {
		return model.Range{}, false
	}
	return a.spanRange(sp)
}

// pointsToRanges pairs start points with mid points in (block, statement)
// order and covers each pair with one range. Unpaired points are dropped.
func (a *adapter) pointsToRanges(points []facts.Point) []model.Range {
	var starts, mids []stmtCoord
	for _, p := range points {
		loc, ok := a.table.RichLocation(p)
		if !ok {
			continue
		}
		c := stmtCoord{block: loc.Block, stmt: loc.Statement}
		if loc.Phase == PhaseStart {
			starts = append(starts, c)
		} else {
			mids = append(mids, c)
		}
	}
	slices.SortFunc(starts, compareCoord)
	slices.SortFunc(mids, compareCoord)

	n := min(len(starts), len(mids))
	out := make([]model.Range, 0, n)
	for i := range n {
		s, okS := a.coordRange(starts[i])
		m, okM := a.coordRange(mids[i])
		if !okS || !okM {
			continue
		}
		if r, ok := model.NewRange(s.From, m.Until); ok {
			out = append(out, r)
		}
	}
	return out
}

// localPoints inverts a point -> locals relation.
func localPoints[V any](rel map[facts.Point][]V, local func(V) (mir.LocalID, bool)) map[mir.LocalID][]facts.Point {
	out := make(map[mir.LocalID][]facts.Point)
	for p, vs := range rel {
		for _, v := range vs {
			if l, ok := local(v); ok {
				out[l] = append(out[l], p)
			}
		}
	}
	return out
}

func (a *adapter) rangesByLocal(points map[mir.LocalID][]facts.Point) map[mir.LocalID][]model.Range {
	out := make(map[mir.LocalID][]model.Range, len(points))
	for l, ps := range points {
		out[l] = ranges.Eliminate(a.pointsToRanges(ps))
	}
	return out
}

func self(l mir.LocalID) (mir.LocalID, bool) { return l, true }

// liveRanges: accurate liveness per local.
func (a *adapter) liveRanges(out *facts.Output) map[mir.LocalID][]model.Range {
	return a.rangesByLocal(localPoints(out.VarLiveOnEntry, self))
}

// dropRanges: drop-liveness per local.
func (a *adapter) dropRanges(out *facts.Output) map[mir.LocalID][]model.Range {
	return a.rangesByLocal(localPoints(out.VarDropLiveOnEntry, self))
}

// borrowRanges splits live loans by mutability and groups them by the
// borrowed local.
func (a *adapter) borrowRanges(out *facts.Output) (shared, mutable map[mir.LocalID][]model.Range) {
	loanLocal := func(wantMut bool) func(mir.LoanID) (mir.LocalID, bool) {
		return func(id mir.LoanID) (mir.LocalID, bool) {
			loan, ok := a.body.Loan(id)
			if !ok || loan.Mutable != wantMut {
				return 0, false
			}
			return loan.BorrowedLocal, true
		}
	}
	shared = a.rangesByLocal(localPoints(out.LoanLiveAt, loanLocal(false)))
	mutable = a.rangesByLocal(localPoints(out.LoanLiveAt, loanLocal(true)))
	return shared, mutable
}

// mustLiveRanges collects, for every local, the live points of each origin
// that contains a loan of that local anywhere.
func (a *adapter) mustLiveRanges(out *facts.Output) map[mir.LocalID][]model.Range {
	originPoints := make(map[facts.Origin][]facts.Point)
	for p, origins := range out.OriginLiveOnEntry {
		for _, o := range origins {
			originPoints[o] = append(originPoints[o], p)
		}
	}

	localOrigins := make(map[mir.LocalID]map[facts.Origin]struct{})
	for o, loans := range out.OriginContainsLoanAnywhere {
		for _, id := range loans {
			loan, ok := a.body.Loan(id)
			if !ok {
				continue
			}
			set := localOrigins[loan.BorrowedLocal]
			if set == nil {
				set = make(map[facts.Origin]struct{})
				localOrigins[loan.BorrowedLocal] = set
			}
			set[o] = struct{}{}
		}
	}

	res := make(map[mir.LocalID][]model.Range, len(localOrigins))
	for l, set := range localOrigins {
		var points []facts.Point
		for _, o := range slices.Sorted(maps.Keys(set)) {
			points = append(points, originPoints[o]...)
		}
		rs := ranges.EraseSupersets(a.pointsToRanges(points), false)
		res[l] = ranges.Eliminate(rs)
	}
	return res
}

type userVar struct {
	name string
	span model.Range
}

// userVars maps locals named by debug info to their name and span.
func (a *adapter) userVars() map[mir.LocalID]userVar {
	out := make(map[mir.LocalID]userVar)
	for _, dbg := range a.body.VarDebugInfo {
		if dbg.Place == nil {
			continue
		}
		span, ok := a.spanRange(dbg.Span)
		if !ok {
			continue
		}
		out[*dbg.Place] = userVar{name: dbg.Name, span: span}
	}
	return out
}
