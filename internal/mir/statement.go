package mir

import "fmt"

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtNop StmtKind = iota
	StmtStorageLive
	StmtStorageDead
	StmtAssign
)

var stmtKindNames = [...]string{
	StmtNop:         "nop",
	StmtStorageLive: "storage_live",
	StmtStorageDead: "storage_dead",
	StmtAssign:      "assign",
}

func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return fmt.Sprintf("StmtKind(%d)", k)
}

func (k StmtKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StmtKind) UnmarshalText(b []byte) error {
	return parseKind(b, stmtKindNames[:], (*uint8)(k), "statement")
}

// Statement is one MIR statement. Local is set for storage markers, Assign
// for assignments. Hidden marks spans that do not point at user-written
// source (macro expansion, desugaring).
type Statement struct {
	Kind   StmtKind    `json:"kind" msgpack:"kind"`
	Span   Span        `json:"span" msgpack:"span"`
	Hidden bool        `json:"hidden,omitempty" msgpack:"hidden,omitempty"`
	Local  LocalID     `json:"local,omitempty" msgpack:"local,omitempty"`
	Assign *AssignStmt `json:"assign,omitempty" msgpack:"assign,omitempty"`
}

// AssignStmt is `place = rvalue`.
type AssignStmt struct {
	Place  Place  `json:"place" msgpack:"place"`
	Rvalue Rvalue `json:"rvalue" msgpack:"rvalue"`
}

// RvalueKind enumerates right-hand sides that matter for ownership.
type RvalueKind uint8

const (
	RvalueOther RvalueKind = iota
	RvalueUse
	RvalueRef
)

var rvalueKindNames = [...]string{
	RvalueOther: "other",
	RvalueUse:   "use",
	RvalueRef:   "ref",
}

func (k RvalueKind) String() string {
	if int(k) < len(rvalueKindNames) {
		return rvalueKindNames[k]
	}
	return fmt.Sprintf("RvalueKind(%d)", k)
}

func (k RvalueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RvalueKind) UnmarshalText(b []byte) error {
	return parseKind(b, rvalueKindNames[:], (*uint8)(k), "rvalue")
}

// Rvalue is the right-hand side of an assignment. Use carries an operand,
// Ref a borrowed place and whether the borrow is mutable.
type Rvalue struct {
	Kind    RvalueKind `json:"kind" msgpack:"kind"`
	Operand Operand    `json:"operand,omitzero" msgpack:"operand,omitempty"`
	Place   Place      `json:"place,omitzero" msgpack:"place,omitempty"`
	Mutable bool       `json:"mutable,omitempty" msgpack:"mutable,omitempty"`
}

// OperandKind distinguishes copies, moves and constants.
type OperandKind uint8

const (
	OperandConst OperandKind = iota
	OperandCopy
	OperandMove
)

var operandKindNames = [...]string{
	OperandConst: "const",
	OperandCopy:  "copy",
	OperandMove:  "move",
}

func (k OperandKind) String() string {
	if int(k) < len(operandKindNames) {
		return operandKindNames[k]
	}
	return fmt.Sprintf("OperandKind(%d)", k)
}

func (k OperandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OperandKind) UnmarshalText(b []byte) error {
	return parseKind(b, operandKindNames[:], (*uint8)(k), "operand")
}

// Operand is a value read by an rvalue.
type Operand struct {
	Kind  OperandKind `json:"kind" msgpack:"kind"`
	Place Place       `json:"place,omitzero" msgpack:"place,omitempty"`
}

func parseKind(b []byte, names []string, dst *uint8, what string) error {
	s := string(b)
	for i, name := range names {
		if name == s {
			*dst = uint8(i) // #nosec G115 -- kind tables are tiny
			return nil
		}
	}
	return fmt.Errorf("unknown %s kind %q", what, s)
}
