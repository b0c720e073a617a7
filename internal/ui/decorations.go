package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Position is a zero-based line and codepoint column.
type Position struct {
	Line uint32
	Char uint32
}

// DecorationRow is one decoration prepared for printing.
type DecorationRow struct {
	Kind       string
	Start      Position
	End        Position
	Hover      string
	Overlapped bool
}

var kindColors = map[string]lipgloss.Color{
	"lifetime":   lipgloss.Color("2"),
	"imm_borrow": lipgloss.Color("4"),
	"mut_borrow": lipgloss.Color("5"),
	"move":       lipgloss.Color("3"),
	"call":       lipgloss.Color("3"),
	"shared_mut": lipgloss.Color("1"),
	"outlive":    lipgloss.Color("1"),
}

// RenderDecorations prints rows with the source line each one starts on.
// Single-line ranges are underlined; wide characters are measured with
// their display width.
func RenderDecorations(w io.Writer, path string, lines []string, rows []DecorationRow) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	if len(rows) == 0 {
		fmt.Fprintln(w, dim.Render(path+": no decorations"))
		return
	}
	kindWidth := 0
	for _, r := range rows {
		kindWidth = max(kindWidth, runewidth.StringWidth(r.Kind))
	}
	for _, r := range rows {
		style := lipgloss.NewStyle().Bold(true)
		if c, ok := kindColors[r.Kind]; ok {
			style = style.Foreground(c)
		}
		kind := runewidth.FillRight(r.Kind, kindWidth)
		loc := fmt.Sprintf("%s:%d:%d-%d:%d", path, r.Start.Line+1, r.Start.Char+1, r.End.Line+1, r.End.Char+1)
		note := r.Hover
		if r.Overlapped {
			note += dim.Render(" (overlapped)")
		}
		fmt.Fprintf(w, "%s  %s  %s\n", style.Render(kind), loc, note)

		if int(r.Start.Line) >= len(lines) {
			continue
		}
		line := lines[r.Start.Line]
		fmt.Fprintf(w, "    %s\n", line)
		if r.Start.Line == r.End.Line {
			pad, width := underline(line, r.Start.Char, r.End.Char)
			fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", pad), style.Render(strings.Repeat("^", width)))
		}
	}
}

// underline returns the display offset and width of the closed codepoint
// range [from, until] within line.
func underline(line string, from, until uint32) (int, int) {
	var pad, width int
	var i uint32
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		switch {
		case i < from:
			pad += w
		case i <= until:
			width += w
		}
		i++
	}
	return pad, max(width, 1)
}
