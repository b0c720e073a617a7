package mir

type Block struct {
	Statements []Statement `json:"statements" msgpack:"statements"`
	Terminator *Terminator `json:"terminator,omitempty" msgpack:"terminator,omitempty"`
}

// TerminatorSpan returns the span of the terminator, if there is one.
func (b *Block) TerminatorSpan() (Span, bool) {
	if b == nil || b.Terminator == nil {
		return Span{}, false
	}
	return b.Terminator.Span, true
}
