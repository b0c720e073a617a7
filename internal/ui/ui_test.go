package ui

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"owlsight/internal/driver"
)

func TestUnderlineWideRunes(t *testing.T) {
	tests := []struct {
		line        string
		from, until uint32
		pad, width  int
	}{
		{"let x = 1;", 4, 4, 4, 1},
		{"let 変数 = 1;", 4, 5, 4, 4},
		{"ab", 5, 6, 2, 1},
	}
	for _, tt := range tests {
		pad, width := underline(tt.line, tt.from, tt.until)
		if pad != tt.pad || width != tt.width {
			t.Errorf("underline(%q, %d, %d) = %d, %d; want %d, %d", tt.line, tt.from, tt.until, pad, width, tt.pad, tt.width)
		}
	}
}

func TestRenderDecorations(t *testing.T) {
	var buf bytes.Buffer
	lines := []string{"fn main() {", "    let x = 1;", "}"}
	RenderDecorations(&buf, "src/main.rs", lines, []DecorationRow{
		{Kind: "lifetime", Start: Position{Line: 1, Char: 4}, End: Position{Line: 1, Char: 13}, Hover: "lifetime of variable `x`"},
		{Kind: "outlive", Start: Position{Line: 1, Char: 8}, End: Position{Line: 2, Char: 0}, Hover: "variable `x` is required to live here", Overlapped: true},
	})
	out := buf.String()
	for _, want := range []string{
		"src/main.rs:2:5-2:14",
		"lifetime of variable `x`",
		"    let x = 1;",
		"^^^^^^^^^^",
		"(overlapped)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderNoDecorations(t *testing.T) {
	var buf bytes.Buffer
	RenderDecorations(&buf, "a.rs", nil, nil)
	if !strings.Contains(buf.String(), "a.rs: no decorations") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestProgressModelTracksUnits(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("owlsight check", events).(*progressModel)

	m.applyEvent(driver.Event{Unit: "demo", Stage: driver.StageCheck, Status: driver.StatusDone, Checked: 1, Expected: 4})
	m.applyEvent(driver.Event{Unit: "util", Stage: driver.StageAnalyze, Status: driver.StatusWorking, Checked: 1, Expected: 4})
	m.applyEvent(driver.Event{Unit: "demo", Stage: driver.StageMerge, Status: driver.StatusError, Checked: 2, Expected: 4, Err: errors.New("bad facts")})

	if len(m.rows) != 2 {
		t.Fatalf("rows = %+v", m.rows)
	}
	if m.rows[0].state != stateFailed || m.rows[1].state != stateAnalyzing {
		t.Fatalf("states = %v, %v", m.rows[0].state, m.rows[1].state)
	}
	if got := m.percent(); got != 0.5 {
		t.Fatalf("percent = %v, want 0.5", got)
	}

	m.applyEvent(driver.Event{Stage: driver.StageMerge, Status: driver.StatusDone, Checked: 2, Expected: 4, Elapsed: 1500 * time.Millisecond})
	m.done = true
	view := m.View()
	for _, want := range []string{"done: owlsight check (2/4 crates checked)", "demo", "bad facts", "util", "done in 1.5s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressPercentWithoutExpected(t *testing.T) {
	m := NewProgressModel("x", nil).(*progressModel)
	m.applyEvent(driver.Event{Unit: "a", Stage: driver.StageMerge, Status: driver.StatusDone})
	m.applyEvent(driver.Event{Unit: "b", Stage: driver.StageAnalyze, Status: driver.StatusWorking})
	if got := m.percent(); got != 0.5 {
		t.Fatalf("percent = %v, want 0.5", got)
	}
}

func TestProgressFoldsFinishedRows(t *testing.T) {
	m := NewProgressModel("x", nil).(*progressModel)
	for i := 0; i < maxRows+3; i++ {
		status := driver.StatusDone
		if i == 0 {
			status = driver.StatusWorking
		}
		m.applyEvent(driver.Event{Unit: fmt.Sprintf("crate%02d", i), Stage: driver.StageAnalyze, Status: status})
	}
	rows, folded := m.visibleRows()
	if len(rows) != maxRows || folded != 3 {
		t.Fatalf("visible = %d, folded = %d", len(rows), folded)
	}
	if rows[0].name != "crate00" {
		t.Fatalf("unfinished crate was folded: first row %q", rows[0].name)
	}
	if !strings.Contains(m.View(), "... 3 more") {
		t.Errorf("view does not mention folded rows:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 6, "abc..."},
		{"abcdef", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
