package decoration

import "owlsight/internal/model"

// Visitor receives the facts of a function in order: declarations first,
// then every block's statements followed by its terminator.
type Visitor interface {
	VisitDecl(decl *model.Declaration)
	VisitStatement(st *model.Statement)
	VisitTerminator(term *model.Terminator)
}

// Walk feeds fn to v.
func Walk(fn *model.Function, v Visitor) {
	for i := range fn.Decls {
		v.VisitDecl(&fn.Decls[i])
	}
	for i := range fn.BasicBlocks {
		bb := &fn.BasicBlocks[i]
		for j := range bb.Statements {
			v.VisitStatement(&bb.Statements[j])
		}
		if bb.Terminator != nil {
			v.VisitTerminator(bb.Terminator)
		}
	}
}
