package driver

import (
	"bytes"
	"encoding/json"
	"testing"

	"owlsight/internal/facts"
	"owlsight/internal/mir"
	"owlsight/internal/model"
)

const sampleSource = "fn main() { let x = 1; }"

// sampleFacts describes `let x = 1;` inside sampleSource with file start 100.
func sampleFacts(crate, file string, fnID uint32, unitFns int) facts.FunctionFacts {
	x := mir.LocalID(1)
	return facts.FunctionFacts{
		Crate:         crate,
		File:          file,
		FileStart:     100,
		Source:        sampleSource,
		UnitFunctions: unitFns,
		Body: mir.Body{
			FnID:   fnID,
			Locals: []mir.LocalDecl{{Ty: "()"}, {Ty: "i32"}},
			VarDebugInfo: []mir.VarDebugInfo{
				{Name: "x", Span: mir.Span{Lo: 116, Hi: 117}, Place: &x},
			},
			Blocks: []mir.Block{{
				Statements: []mir.Statement{
					{Kind: mir.StmtStorageLive, Span: mir.Span{Lo: 112, Hi: 122}, Local: 1},
				},
				Terminator: &mir.Terminator{Kind: mir.TermOther, Span: mir.Span{Lo: 123, Hi: 124}},
			}},
		},
		Output: facts.Output{
			VarLiveOnEntry: map[facts.Point][]mir.LocalID{0: {1}, 1: {1}},
		},
	}
}

func factsLine(t *testing.T, ff facts.FunctionFacts) string {
	t.Helper()
	data, err := json.Marshal(struct {
		Reason string `json:"reason"`
		facts.FunctionFacts
	}{reasonFacts, ff})
	if err != nil {
		t.Fatalf("marshal facts: %v", err)
	}
	return string(data)
}

func workspaceLine(t *testing.T, ws model.Workspace) string {
	t.Helper()
	data, err := json.Marshal(ws)
	if err != nil {
		t.Fatalf("marshal workspace: %v", err)
	}
	return string(data)
}

func artifactLine(name string) string {
	return `{"reason":"compiler-artifact","package_id":"` + name + ` 0.1.0","target":{"name":"` + name + `"},"fresh":false}`
}

func stream(lines ...string) *bytes.Buffer {
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return &b
}
