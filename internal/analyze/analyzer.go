// Package analyze converts borrow-checker facts of one function body into
// the ranges shown to the user: per-local lifetimes, borrows, drops and
// must-live obligations, plus a per-block summary of moves, borrows and
// calls.
package analyze

import (
	"context"
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"owlsight/internal/facts"
	"owlsight/internal/mir"
	"owlsight/internal/model"
	"owlsight/internal/source"
	"owlsight/internal/trace"
)

// Analyze builds the analyzed form of ff.Body. text must be the normalized
// content of ff.File. Facts whose spans do not form a valid range are
// dropped one by one; an error is returned only for malformed input.
func Analyze(ctx context.Context, text *source.Text, ff *facts.FunctionFacts) (model.Function, error) {
	if err := ctx.Err(); err != nil {
		return model.Function{}, err
	}
	if text == nil {
		return model.Function{}, fmt.Errorf("fn %d: no source text", ff.Body.FnID)
	}
	if err := mir.Validate(&ff.Body); err != nil {
		return model.Function{}, fmt.Errorf("fn %d: %w", ff.Body.FnID, err)
	}

	_, span := trace.Start(ctx, trace.ScopeFunction, "analyze")

	a := &adapter{
		text:      text,
		fileStart: ff.FileStart,
		body:      &ff.Body,
		table:     NewLocationTable(&ff.Body),
	}
	fn := model.Function{
		FnID:        ff.Body.FnID,
		Decls:       a.declarations(ff),
		BasicBlocks: a.basicBlocks(ff.Body.FnID),
	}

	span.Attr("fn", strconv.FormatUint(uint64(fn.FnID), 10)).
		Attr("decls", strconv.Itoa(len(fn.Decls))).
		End(ff.File)
	return fn, nil
}

func (a *adapter) declarations(ff *facts.FunctionFacts) []model.Declaration {
	users := a.userVars()
	lives := a.liveRanges(&ff.Output)
	drops := a.dropRanges(&ff.Output)
	shared, mutable := a.borrowRanges(&ff.Output)
	mustLive := a.mustLiveRanges(ff.MustLiveOutput())
	dropped := ff.Input.DroppedLocals()

	decls := make([]model.Declaration, 0, len(a.body.Locals))
	for i, local := range a.body.Locals {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			break
		}
		l := mir.LocalID(id)
		_, isDropped := dropped[l]
		d := model.Declaration{
			Kind:          model.DeclOther,
			Local:         model.NewFnLocal(id, a.body.FnID),
			Ty:            local.Ty,
			Lives:         nonNil(lives[l]),
			SharedBorrow:  nonNil(shared[l]),
			MutableBorrow: nonNil(mutable[l]),
			Drop:          isDropped,
			DropRange:     nonNil(drops[l]),
			MustLiveAt:    nonNil(mustLive[l]),
		}
		if uv, ok := users[l]; ok {
			d.Kind = model.DeclUser
			d.Name = uv.name
			span := uv.span
			d.Span = &span
		}
		decls = append(decls, d)
	}
	return decls
}

func (a *adapter) basicBlocks(fnID uint32) []model.BasicBlock {
	local := func(l mir.LocalID) model.FnLocal {
		return model.NewFnLocal(uint32(l), fnID)
	}

	out := make([]model.BasicBlock, 0, len(a.body.Blocks))
	for bi := range a.body.Blocks {
		bb := &a.body.Blocks[bi]
		block := model.BasicBlock{Statements: []model.Statement{}}
		for _, st := range bb.Statements {
			if st.Hidden {
				continue
			}
			r, ok := a.spanRange(st.Span)
			if !ok {
				continue
			}
			switch st.Kind {
			case mir.StmtStorageLive:
				block.Statements = append(block.Statements, model.Statement{
					Kind: model.StmtStorageLive, TargetLocal: local(st.Local), Range: r,
				})
			case mir.StmtStorageDead:
				block.Statements = append(block.Statements, model.Statement{
					Kind: model.StmtStorageDead, TargetLocal: local(st.Local), Range: r,
				})
			case mir.StmtAssign:
				block.Statements = append(block.Statements, model.Statement{
					Kind:        model.StmtAssign,
					TargetLocal: local(st.Assign.Place.Local),
					Range:       r,
					Rval:        rval(st.Assign.Rvalue, r, local),
				})
			}
		}
		block.Terminator = a.terminator(bb.Terminator, local)
		out = append(out, block)
	}
	return out
}

func rval(rv mir.Rvalue, r model.Range, local func(mir.LocalID) model.FnLocal) *model.Rval {
	switch rv.Kind {
	case mir.RvalueUse:
		if rv.Operand.Kind != mir.OperandMove {
			return nil
		}
		return &model.Rval{Kind: model.RvalMove, TargetLocal: local(rv.Operand.Place.Local), Range: r}
	case mir.RvalueRef:
		return &model.Rval{Kind: model.RvalBorrow, TargetLocal: local(rv.Place.Local), Range: r, Mutable: rv.Mutable}
	}
	return nil
}

func (a *adapter) terminator(t *mir.Terminator, local func(mir.LocalID) model.FnLocal) *model.Terminator {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case mir.TermDrop:
		r, ok := a.spanRange(t.Span)
		if !ok {
			return nil
		}
		return &model.Terminator{Kind: model.TermDrop, Local: local(t.Drop.Place.Local), Range: r}
	case mir.TermCall:
		r, ok := a.spanRange(t.Call.FnSpan)
		if !ok {
			return nil
		}
		return &model.Terminator{Kind: model.TermCall, DestinationLocal: local(t.Call.Destination.Local), FnSpan: r}
	default:
		return &model.Terminator{Kind: model.TermOther}
	}
}

func nonNil(rs []model.Range) []model.Range {
	if rs == nil {
		return []model.Range{}
	}
	return rs
}
