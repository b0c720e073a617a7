package model

// DeclKind distinguishes user-named variables from compiler temporaries.
type DeclKind string

const (
	DeclUser  DeclKind = "user"
	DeclOther DeclKind = "other"
)

// Declaration describes one local of a function body together with the
// ranges computed for it. Lists may overlap each other.
type Declaration struct {
	Kind          DeclKind `json:"type" msgpack:"type"`
	Local         FnLocal  `json:"local" msgpack:"local"`
	Name          string   `json:"name,omitempty" msgpack:"name,omitempty"`
	Span          *Range   `json:"span,omitempty" msgpack:"span,omitempty"`
	Ty            string   `json:"ty" msgpack:"ty"`
	Lives         []Range  `json:"lives" msgpack:"lives"`
	SharedBorrow  []Range  `json:"shared_borrow" msgpack:"shared_borrow"`
	MutableBorrow []Range  `json:"mutable_borrow" msgpack:"mutable_borrow"`
	Drop          bool     `json:"drop" msgpack:"drop"`
	DropRange     []Range  `json:"drop_range" msgpack:"drop_range"`
	MustLiveAt    []Range  `json:"must_live_at" msgpack:"must_live_at"`
}

// IsUser reports whether the local is named in the source.
func (d *Declaration) IsUser() bool {
	return d.Kind == DeclUser
}

// StatementKind enumerates the statement facts kept per basic block.
type StatementKind string

const (
	StmtStorageLive StatementKind = "storage_live"
	StmtStorageDead StatementKind = "storage_dead"
	StmtAssign      StatementKind = "assign"
)

// RvalKind is the interesting part of an assignment's right-hand side.
type RvalKind string

const (
	RvalMove   RvalKind = "move"
	RvalBorrow RvalKind = "borrow"
)

// Rval records a move out of, or a borrow of, TargetLocal.
type Rval struct {
	Kind        RvalKind `json:"type" msgpack:"type"`
	TargetLocal FnLocal  `json:"target_local" msgpack:"target_local"`
	Range       Range    `json:"range" msgpack:"range"`
	Mutable     bool     `json:"mutable,omitempty" msgpack:"mutable,omitempty"`
}

// Statement is a single statement fact.
type Statement struct {
	Kind        StatementKind `json:"type" msgpack:"type"`
	TargetLocal FnLocal       `json:"target_local" msgpack:"target_local"`
	Range       Range         `json:"range" msgpack:"range"`
	Rval        *Rval         `json:"rval,omitempty" msgpack:"rval,omitempty"`
}

// TerminatorKind enumerates block terminator facts.
type TerminatorKind string

const (
	TermDrop  TerminatorKind = "drop"
	TermCall  TerminatorKind = "call"
	TermOther TerminatorKind = "other"
)

// Terminator is the fact recorded for a block terminator.
// Local and Range are set for drops, DestinationLocal and FnSpan for calls.
type Terminator struct {
	Kind             TerminatorKind `json:"type" msgpack:"type"`
	Local            FnLocal        `json:"local,omitzero" msgpack:"local,omitempty"`
	Range            Range          `json:"range,omitzero" msgpack:"range,omitempty"`
	DestinationLocal FnLocal        `json:"destination_local,omitzero" msgpack:"destination_local,omitempty"`
	FnSpan           Range          `json:"fn_span,omitzero" msgpack:"fn_span,omitempty"`
}

// BasicBlock holds the statement facts of a block and its terminator, if any.
type BasicBlock struct {
	Statements []Statement `json:"statements" msgpack:"statements"`
	Terminator *Terminator `json:"terminator,omitempty" msgpack:"terminator,omitempty"`
}

// Function is the analysis result for one function body.
type Function struct {
	FnID        uint32        `json:"fn_id" msgpack:"fn_id"`
	BasicBlocks []BasicBlock  `json:"basic_blocks" msgpack:"basic_blocks"`
	Decls       []Declaration `json:"decls" msgpack:"decls"`
}
