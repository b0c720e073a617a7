package mir

import (
	"errors"
	"fmt"
)

// Validate checks that every local referenced by the body is declared.
func Validate(b *Body) error {
	if b == nil {
		return errors.New("nil body")
	}

	var errs []error
	n := len(b.Locals)
	check := func(what string, id LocalID) {
		if int(id) >= n {
			errs = append(errs, fmt.Errorf("%s refers to undeclared local _%d (locals=%d)", what, id, n))
		}
	}

	for i, dbg := range b.VarDebugInfo {
		if dbg.Place != nil {
			check(fmt.Sprintf("debug info #%d (%s)", i, dbg.Name), *dbg.Place)
		}
	}
	for i, loan := range b.BorrowSet {
		check(fmt.Sprintf("loan #%d", i), loan.BorrowedLocal)
	}
	for bi := range b.Blocks {
		bb := &b.Blocks[bi]
		for si, st := range bb.Statements {
			where := fmt.Sprintf("bb%d[%d]", bi, si)
			switch st.Kind {
			case StmtStorageLive, StmtStorageDead:
				check(where, st.Local)
			case StmtAssign:
				if st.Assign == nil {
					errs = append(errs, fmt.Errorf("%s: assign without payload", where))
					continue
				}
				check(where, st.Assign.Place.Local)
				switch st.Assign.Rvalue.Kind {
				case RvalueUse:
					if st.Assign.Rvalue.Operand.Kind != OperandConst {
						check(where, st.Assign.Rvalue.Operand.Place.Local)
					}
				case RvalueRef:
					check(where, st.Assign.Rvalue.Place.Local)
				}
			}
		}
		if t := bb.Terminator; t != nil {
			where := fmt.Sprintf("bb%d terminator", bi)
			switch t.Kind {
			case TermDrop:
				if t.Drop == nil {
					errs = append(errs, fmt.Errorf("%s: drop without payload", where))
				} else {
					check(where, t.Drop.Place.Local)
				}
			case TermCall:
				if t.Call == nil {
					errs = append(errs, fmt.Errorf("%s: call without payload", where))
				} else {
					check(where, t.Call.Destination.Local)
				}
			}
		}
	}
	return errors.Join(errs...)
}
