package model

import (
	"encoding/json"
	"testing"
)

func fn(id uint32) Function {
	return Function{FnID: id}
}

func TestWorkspaceMergeDedupsByFnID(t *testing.T) {
	ws := Workspace{"app": Crate{"src/main.rs": File{Items: []Function{fn(1), fn(2)}}}}
	ws.Merge(Workspace{
		"app": Crate{
			"src/main.rs": File{Items: []Function{fn(2), fn(3)}},
			"src/lib.rs":  File{Items: []Function{fn(9)}},
		},
		"dep": Crate{"src/lib.rs": File{Items: []Function{fn(1)}}},
	})

	items := ws["app"]["src/main.rs"].Items
	if len(items) != 3 {
		t.Fatalf("main.rs items = %d, want 3", len(items))
	}
	for i, want := range []uint32{1, 2, 3} {
		if items[i].FnID != want {
			t.Errorf("items[%d].FnID = %d, want %d", i, items[i].FnID, want)
		}
	}
	if got := ws.FunctionCount(); got != 5 {
		t.Errorf("FunctionCount() = %d, want 5", got)
	}
	if got := len(ws.Functions("src/lib.rs")); got != 2 {
		t.Errorf("Functions(lib.rs) = %d, want 2", got)
	}
}

func TestWorkspaceMergeKeepsFirstOccurrence(t *testing.T) {
	first := Function{FnID: 4, Decls: []Declaration{{Kind: DeclOther, Ty: "i32"}}}
	second := Function{FnID: 4}
	unit := Workspace{}
	unit.AddFunction("c", "a.rs", first)
	unit.AddFunction("c", "a.rs", second)
	if n := len(unit["c"]["a.rs"].Items); n != 2 {
		t.Fatalf("AddFunction kept %d items, want 2 before merge", n)
	}

	ws := Workspace{}
	ws.Merge(unit)
	items := ws["c"]["a.rs"].Items
	if len(items) != 1 || len(items[0].Decls) != 1 {
		t.Fatalf("expected the first function to survive, got %+v", items)
	}
}

func TestWorkspaceMergeCopiesNewFiles(t *testing.T) {
	src := Workspace{"c": Crate{"a.rs": File{Items: make([]Function, 1, 4)}}}
	dst := Workspace{}
	dst.Merge(src)
	dst.AddFunction("c", "a.rs", fn(2))
	if n := len(src["c"]["a.rs"].Items); n != 1 {
		t.Fatalf("source file grew to %d items", n)
	}
	if got := src["c"]["a.rs"].Items[:2][1].FnID; got != 0 {
		t.Fatalf("merge shares backing storage: source saw fn %d", got)
	}
}

func BenchmarkAddFunction(b *testing.B) {
	for b.Loop() {
		ws := Workspace{}
		for id := range uint32(2000) {
			ws.AddFunction("c", "a.rs", fn(id))
		}
		out := Workspace{}
		out.Merge(ws)
	}
}

func TestWorkspaceCloneIsIndependent(t *testing.T) {
	ws := Workspace{}
	ws.AddFunction("c", "a.rs", fn(1))
	cp := ws.Clone()
	cp.AddFunction("c", "a.rs", fn(2))
	if ws.FunctionCount() != 1 {
		t.Fatalf("original mutated by clone: %d functions", ws.FunctionCount())
	}
}

func TestWorkspaceJSONShape(t *testing.T) {
	span := Range{From: 4, Until: 5}
	ws := Workspace{"c": Crate{"a.rs": File{Items: []Function{{
		FnID: 7,
		Decls: []Declaration{{
			Kind:  DeclUser,
			Local: NewFnLocal(1, 7),
			Name:  "x",
			Span:  &span,
			Ty:    "String",
		}},
		BasicBlocks: []BasicBlock{{
			Statements: []Statement{{
				Kind:        StmtAssign,
				TargetLocal: NewFnLocal(2, 7),
				Range:       Range{From: 10, Until: 14},
				Rval:        &Rval{Kind: RvalMove, TargetLocal: NewFnLocal(1, 7), Range: Range{From: 10, Until: 14}},
			}},
			Terminator: &Terminator{Kind: TermCall, DestinationLocal: NewFnLocal(3, 7), FnSpan: Range{From: 15, Until: 20}},
		}},
	}}}}}

	data, err := json.Marshal(ws)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Workspace
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var raw map[string]map[string]map[string][]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	decl := raw["c"]["a.rs"]["items"][0]["decls"].([]any)[0].(map[string]any)
	if decl["type"] != "user" || decl["name"] != "x" {
		t.Errorf("unexpected decl encoding: %v", decl)
	}
	term := raw["c"]["a.rs"]["items"][0]["basic_blocks"].([]any)[0].(map[string]any)["terminator"].(map[string]any)
	if _, ok := term["local"]; ok {
		t.Errorf("call terminator should not carry a drop local: %v", term)
	}
	if term["type"] != "call" {
		t.Errorf("terminator type = %v, want call", term["type"])
	}
}
