package mir

// Body is a function body after borrow checking.
type Body struct {
	FnID         uint32         `json:"fn_id" msgpack:"fn_id"`
	Name         string         `json:"name,omitempty" msgpack:"name,omitempty"`
	Span         Span           `json:"span" msgpack:"span"`
	Locals       []LocalDecl    `json:"local_decls" msgpack:"local_decls"`
	VarDebugInfo []VarDebugInfo `json:"var_debug_info" msgpack:"var_debug_info"`
	Blocks       []Block        `json:"basic_blocks" msgpack:"basic_blocks"`
	BorrowSet    []BorrowData   `json:"borrow_set" msgpack:"borrow_set"`
}

// Block returns block id, or nil when out of range.
func (b *Body) Block(id BlockID) *Block {
	if int(id) >= len(b.Blocks) {
		return nil
	}
	return &b.Blocks[id]
}

// Loan returns the borrow data for id.
func (b *Body) Loan(id LoanID) (BorrowData, bool) {
	if int(id) >= len(b.BorrowSet) {
		return BorrowData{}, false
	}
	return b.BorrowSet[id], true
}
