package decoration

import "owlsight/internal/model"

type selectReason uint8

const (
	reasonDecl selectReason = iota
	reasonMove
	reasonBorrow
	reasonCall
)

type candidate struct {
	reason selectReason
	local  model.FnLocal
	rng    model.Range
}

// Selector picks the local most relevant to a cursor position.
//
// Rules, applied to every visited site whose range contains the cursor:
//   - a declaration replaces a non-declaration, and a wider declaration by
//     being narrower;
//   - a move or borrow replaces anything it is strictly narrower than;
//   - a call replaces only another call, and only by being wider, so the
//     enclosing call wins over its sub-expressions.
type Selector struct {
	pos  model.Loc
	best *candidate
}

// NewSelector creates a selector for the cursor at pos.
func NewSelector(pos model.Loc) *Selector {
	return &Selector{pos: pos}
}

func (s *Selector) offer(reason selectReason, local model.FnLocal, r model.Range) {
	if !r.Contains(s.pos) {
		return
	}
	next := &candidate{reason: reason, local: local, rng: r}
	if s.best == nil {
		s.best = next
		return
	}
	cur := s.best
	switch reason {
	case reasonDecl:
		if cur.reason != reasonDecl || r.Size() < cur.rng.Size() {
			s.best = next
		}
	case reasonMove, reasonBorrow:
		if r.Size() < cur.rng.Size() {
			s.best = next
		}
	case reasonCall:
		if cur.reason == reasonCall && cur.rng.Size() < r.Size() {
			s.best = next
		}
	}
}

// Selected returns the chosen local.
func (s *Selector) Selected() (model.FnLocal, bool) {
	if s.best == nil {
		return model.FnLocal{}, false
	}
	return s.best.local, true
}

func (s *Selector) VisitDecl(decl *model.Declaration) {
	if decl.IsUser() && decl.Span != nil {
		s.offer(reasonDecl, decl.Local, *decl.Span)
	}
}

func (s *Selector) VisitStatement(st *model.Statement) {
	if st.Kind != model.StmtAssign || st.Rval == nil {
		return
	}
	switch st.Rval.Kind {
	case model.RvalMove:
		s.offer(reasonMove, st.Rval.TargetLocal, st.Rval.Range)
	case model.RvalBorrow:
		s.offer(reasonBorrow, st.Rval.TargetLocal, st.Rval.Range)
	}
}

func (s *Selector) VisitTerminator(term *model.Terminator) {
	if term.Kind == model.TermCall {
		s.offer(reasonCall, term.DestinationLocal, term.FnSpan)
	}
}
