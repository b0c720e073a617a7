// Package facts holds the relations computed by the region solver for one
// function body. Points, loans and origins are opaque indices; the tables
// are read-only once decoded.
package facts

import (
	"errors"

	"owlsight/internal/mir"
)

type (
	// Point is a location index: two per statement, start then mid.
	Point  uint32
	Origin uint32
)

// LocalPoint is a (local, point) pair.
type LocalPoint [2]uint32

func (lp LocalPoint) Local() mir.LocalID { return mir.LocalID(lp[0]) }
func (lp LocalPoint) Point() Point       { return Point(lp[1]) }

// Input is the subset of solver input facts that is consumed directly.
type Input struct {
	VarDroppedAt []LocalPoint `json:"var_dropped_at" msgpack:"var_dropped_at"`
}

// DroppedLocals returns the set of locals that are dropped somewhere.
func (in *Input) DroppedLocals() map[mir.LocalID]struct{} {
	out := make(map[mir.LocalID]struct{}, len(in.VarDroppedAt))
	for _, lp := range in.VarDroppedAt {
		out[lp.Local()] = struct{}{}
	}
	return out
}

// Output is one solver run's result relations.
type Output struct {
	VarLiveOnEntry             map[Point][]mir.LocalID `json:"var_live_on_entry" msgpack:"var_live_on_entry"`
	VarDropLiveOnEntry         map[Point][]mir.LocalID `json:"var_drop_live_on_entry" msgpack:"var_drop_live_on_entry"`
	LoanLiveAt                 map[Point][]mir.LoanID  `json:"loan_live_at" msgpack:"loan_live_at"`
	OriginLiveOnEntry          map[Point][]Origin      `json:"origin_live_on_entry" msgpack:"origin_live_on_entry"`
	OriginContainsLoanAnywhere map[Origin][]mir.LoanID `json:"origin_contains_loan_anywhere" msgpack:"origin_contains_loan_anywhere"`
}

// FunctionFacts is everything needed to analyze one function: where it
// lives, its body and the solver relations. Insensitive is the
// location-insensitive solver output used for must-live ranges; when absent
// the accurate output is used instead.
type FunctionFacts struct {
	Crate string `json:"crate" msgpack:"crate"`
	File  string `json:"file" msgpack:"file"`
	// FileStart is the compiler's byte position of the file's first byte.
	FileStart uint32 `json:"file_start" msgpack:"file_start"`
	// Source optionally inlines the file text; otherwise File is read.
	Source string `json:"source,omitempty" msgpack:"source,omitempty"`
	// UnitFunctions is how many functions the crate reports in total.
	UnitFunctions int `json:"unit_functions" msgpack:"unit_functions"`

	Body        mir.Body `json:"body" msgpack:"body"`
	Input       Input    `json:"input" msgpack:"input"`
	Output      Output   `json:"output" msgpack:"output"`
	Insensitive *Output  `json:"insensitive,omitempty" msgpack:"insensitive,omitempty"`
}

// MustLiveOutput returns the relations used for must-live ranges.
func (ff *FunctionFacts) MustLiveOutput() *Output {
	if ff.Insensitive != nil {
		return ff.Insensitive
	}
	return &ff.Output
}

var (
	ErrNoFile  = errors.New("facts: missing file path")
	ErrNoCrate = errors.New("facts: missing crate name")
)

// Check verifies that the record can be attributed to a file.
func (ff *FunctionFacts) Check() error {
	if ff.File == "" {
		return ErrNoFile
	}
	if ff.Crate == "" {
		return ErrNoCrate
	}
	return mir.Validate(&ff.Body)
}
