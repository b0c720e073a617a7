package model

import "fmt"

// FnLocal identifies a local variable. Local ids are unique only inside
// their owning function, so the pair is used as the key everywhere.
type FnLocal struct {
	ID   uint32 `json:"id" msgpack:"id"`
	FnID uint32 `json:"fn_id" msgpack:"fn_id"`
}

// NewFnLocal builds a key for local id inside function fnID.
func NewFnLocal(id, fnID uint32) FnLocal {
	return FnLocal{ID: id, FnID: fnID}
}

func (l FnLocal) String() string {
	return fmt.Sprintf("_%d@%d", l.ID, l.FnID)
}
