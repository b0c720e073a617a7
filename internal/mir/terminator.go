package mir

import "fmt"

// TermKind enumerates terminator kinds. Everything that is neither a drop
// nor a call is reported as TermOther.
type TermKind uint8

const (
	TermOther TermKind = iota
	TermDrop
	TermCall
)

var termKindNames = [...]string{
	TermOther: "other",
	TermDrop:  "drop",
	TermCall:  "call",
}

func (k TermKind) String() string {
	if int(k) < len(termKindNames) {
		return termKindNames[k]
	}
	return fmt.Sprintf("TermKind(%d)", k)
}

func (k TermKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TermKind) UnmarshalText(b []byte) error {
	return parseKind(b, termKindNames[:], (*uint8)(k), "terminator")
}

type Terminator struct {
	Kind TermKind `json:"kind" msgpack:"kind"`
	Span Span     `json:"span" msgpack:"span"`

	Drop *DropTerm `json:"drop,omitempty" msgpack:"drop,omitempty"`
	Call *CallTerm `json:"call,omitempty" msgpack:"call,omitempty"`
}

type DropTerm struct {
	Place Place `json:"place" msgpack:"place"`
}

// CallTerm records where the call result goes and the span of the whole
// call expression.
type CallTerm struct {
	Destination Place `json:"destination" msgpack:"destination"`
	FnSpan      Span  `json:"fn_span" msgpack:"fn_span"`
}
