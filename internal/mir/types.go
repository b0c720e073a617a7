// Package mir describes the function bodies handed over by the compiler
// side: locals, debug info, basic blocks and the borrow set. Only the parts
// needed to map solver points back to source spans are kept.
package mir

type (
	LocalID uint32
	BlockID uint32
	LoanID  uint32
)

// Span is a compiler byte span. Positions are absolute in the compiler's
// source map; subtract the file start to get a file offset.
type Span struct {
	Lo uint32 `json:"lo" msgpack:"lo"`
	Hi uint32 `json:"hi" msgpack:"hi"`
}

// LocalDecl is the declaration of one body local, indexed by LocalID.
type LocalDecl struct {
	Ty   string `json:"ty" msgpack:"ty"`
	Span Span   `json:"span" msgpack:"span"`
}

// VarDebugInfo names a user variable. Place is nil when the debug entry is
// a constant rather than a local.
type VarDebugInfo struct {
	Name  string   `json:"name" msgpack:"name"`
	Span  Span     `json:"span" msgpack:"span"`
	Place *LocalID `json:"place,omitempty" msgpack:"place,omitempty"`
}

// BorrowData describes one loan of the body's borrow set, indexed by LoanID.
type BorrowData struct {
	BorrowedLocal LocalID `json:"borrowed_local" msgpack:"borrowed_local"`
	Mutable       bool    `json:"mutable" msgpack:"mutable"`
}

// Place is a local with projections erased.
type Place struct {
	Local LocalID `json:"local" msgpack:"local"`
}
