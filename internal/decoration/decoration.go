// Package decoration answers cursor queries: it picks the local under the
// cursor and expands it into typed, non-overlapping source ranges.
package decoration

import (
	"fmt"

	"owlsight/internal/model"
)

// Decoration is one labeled range shown for the selected local.
// Overlapped is set once a higher-priority decoration has claimed part of
// the original range; the remaining Range is then the shared part.
type Decoration struct {
	Kind       Kind          `json:"type"`
	Local      model.FnLocal `json:"local"`
	Range      model.Range   `json:"range"`
	HoverText  string        `json:"hover_text"`
	Overlapped bool          `json:"overlapped"`
}

// Priority is the overlap priority of the decoration's kind.
func (d Decoration) Priority() int {
	return d.Kind.Priority()
}

func (d Decoration) String() string {
	s := fmt.Sprintf("%s %v %v", d.Kind, d.Local, d.Range)
	if d.Overlapped {
		s += " (overlapped)"
	}
	return s
}

func varLabel(name string) string {
	if name == "" {
		return "anonymous variable"
	}
	return fmt.Sprintf("variable `%s`", name)
}

func lifetimeText(name string) string {
	return "lifetime of " + varLabel(name)
}

func sharedMutText(name string) string {
	return fmt.Sprintf("immutable and mutable borrows of %s exist here", varLabel(name))
}

func outliveText(name string) string {
	return varLabel(name) + " is required to live here"
}

const (
	moveText      = "variable moved"
	mutBorrowText = "mutable borrow"
	immBorrowText = "immutable borrow"
	callText      = "function call"
)
