package decoration

import (
	"slices"

	"owlsight/internal/model"
	"owlsight/internal/ranges"
)

// Builder expands the selected locals into decorations.
type Builder struct {
	locals      map[model.FnLocal]struct{}
	decorations []Decoration
}

// NewBuilder creates a builder for the given locals.
func NewBuilder(locals ...model.FnLocal) *Builder {
	set := make(map[model.FnLocal]struct{}, len(locals))
	for _, l := range locals {
		set[l] = struct{}{}
	}
	return &Builder{locals: set}
}

func (b *Builder) selected(l model.FnLocal) bool {
	_, ok := b.locals[l]
	return ok
}

func (b *Builder) push(kind Kind, local model.FnLocal, r model.Range, text string) {
	b.decorations = append(b.decorations, Decoration{
		Kind:      kind,
		Local:     local,
		Range:     r,
		HoverText: text,
	})
}

func (b *Builder) VisitDecl(decl *model.Declaration) {
	if !b.selected(decl.Local) {
		return
	}
	name := ""
	if decl.IsUser() {
		name = decl.Name
	}

	// drop-live ranges extend the visible lifetime of the value
	live := make([]model.Range, 0, len(decl.Lives)+len(decl.DropRange))
	live = append(live, decl.Lives...)
	live = append(live, decl.DropRange...)
	live = ranges.Eliminate(live)
	for _, r := range live {
		b.push(KindLifetime, decl.Local, r, lifetimeText(name))
	}

	borrows := make([]model.Range, 0, len(decl.SharedBorrow)+len(decl.MutableBorrow))
	borrows = append(borrows, decl.SharedBorrow...)
	borrows = append(borrows, decl.MutableBorrow...)
	for _, r := range ranges.CommonAll(borrows) {
		b.push(KindSharedMut, decl.Local, r, sharedMutText(name))
	}

	for _, r := range ranges.Exclude(decl.MustLiveAt, live) {
		b.push(KindOutlive, decl.Local, r, outliveText(name))
	}
}

func (b *Builder) VisitStatement(st *model.Statement) {
	if st.Kind != model.StmtAssign || st.Rval == nil || !b.selected(st.Rval.TargetLocal) {
		return
	}
	rv := st.Rval
	switch rv.Kind {
	case model.RvalMove:
		b.push(KindMove, rv.TargetLocal, rv.Range, moveText)
	case model.RvalBorrow:
		if rv.Mutable {
			b.push(KindMutBorrow, rv.TargetLocal, rv.Range, mutBorrowText)
		} else {
			b.push(KindImmBorrow, rv.TargetLocal, rv.Range, immBorrowText)
		}
	}
}

// VisitTerminator records calls into the selected local. Nested calls
// collapse into the outermost one: for call spans [5,20] and [8,12] only
// [5,20] is kept, the same call the selector prefers at a cursor inside both.
func (b *Builder) VisitTerminator(term *model.Terminator) {
	if term.Kind != model.TermCall || !b.selected(term.DestinationLocal) {
		return
	}
	span := term.FnSpan
	for _, d := range b.decorations {
		if d.Kind == KindCall && (d.Range == span || ranges.IsSuperset(d.Range, span)) {
			return
		}
	}
	b.decorations = slices.DeleteFunc(b.decorations, func(d Decoration) bool {
		return d.Kind == KindCall && ranges.IsSuperset(span, d.Range)
	})
	b.push(KindCall, term.DestinationLocal, span, callText)
}

// Resolve splits lower-priority decorations around higher-priority ones.
func (b *Builder) Resolve() {
	b.decorations = ResolveOverlaps(b.decorations)
}

// Decorations returns the collected decorations.
func (b *Builder) Decorations() []Decoration {
	return b.decorations
}

// ResolveOverlaps orders ds by priority and sweeps through them once. For
// every decoration, each earlier decoration that has not been overlapped
// yet and intersects it is cut down to the intersection and marked
// overlapped; what lies outside the intersection is kept as new, not
// overlapped decorations of the same kind. Each step builds a new list.
func ResolveOverlaps(ds []Decoration) []Decoration {
	sorted := slices.Clone(ds)
	slices.SortStableFunc(sorted, func(a, b Decoration) int {
		return a.Priority() - b.Priority()
	})

	out := make([]Decoration, 0, len(sorted))
	for _, cur := range sorted {
		next := make([]Decoration, 0, len(out)+3)
		for _, prev := range out {
			if prev.Overlapped {
				next = append(next, prev)
				continue
			}
			common, ok := ranges.Common(cur.Range, prev.Range)
			if !ok {
				next = append(next, prev)
				continue
			}
			shared := prev
			shared.Range = common
			shared.Overlapped = true
			next = append(next, shared)
			for _, frag := range ranges.Exclude([]model.Range{prev.Range}, []model.Range{common}) {
				rest := prev
				rest.Range = frag
				rest.Overlapped = false
				next = append(next, rest)
			}
		}
		out = append(next, cur)
	}
	return out
}
