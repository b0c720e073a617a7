// Package ui renders check progress and decoration listings for terminals.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"owlsight/internal/driver"
)

// unitState is where a crate is in the pipeline as the user sees it.
type unitState uint8

const (
	stateUnknown unitState = iota
	stateQueued
	stateChecking
	stateChecked
	stateAnalyzing
	stateMerging
	stateDone
	stateFailed
)

var stateNames = [...]string{"", "queued", "checking", "checked", "analyzing", "merging", "done", "error"}

var stateColors = [...]lipgloss.Color{"7", "8", "6", "2", "6", "6", "2", "1"}

func (s unitState) String() string { return stateNames[s] }

func (s unitState) finished() bool { return s == stateDone || s == stateFailed }

func stateOf(stage driver.Stage, status driver.Status) unitState {
	switch status {
	case driver.StatusQueued:
		return stateQueued
	case driver.StatusError:
		return stateFailed
	case driver.StatusDone:
		if stage == driver.StageCheck {
			return stateChecked
		}
		return stateDone
	case driver.StatusWorking:
		switch stage {
		case driver.StageCheck:
			return stateChecking
		case driver.StageAnalyze:
			return stateAnalyzing
		case driver.StageMerge:
			return stateMerging
		}
	}
	return stateUnknown
}

// maxRows caps the crate list; finished crates are folded first.
const maxRows = 12

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	noteStyle  = lipgloss.NewStyle().Faint(true)
)

type unitRow struct {
	name  string
	state unitState
	err   string
}

type progressModel struct {
	title    string
	events   <-chan driver.Event
	spinner  spinner.Model
	bar      progress.Model
	rows     []unitRow
	byName   map[string]int
	checked  int
	expected int
	summary  string
	width    int
	done     bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model for one analysis run. Crates
// appear in stream order; the model quits once events is closed.
func NewProgressModel(title string, events <-chan driver.Event) tea.Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("6"))))
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(76))
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		byName:  make(map[string]int),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-m.events; ok {
			return eventMsg(ev)
		}
		return doneMsg{}
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(driver.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	m.checked, m.expected = ev.Checked, ev.Expected
	if ev.Unit == "" {
		// итог всего прогона
		m.summary = fmt.Sprintf("%s in %s", stateOf(ev.Stage, ev.Status), ev.Elapsed.Round(time.Millisecond))
		return m.bar.SetPercent(1)
	}
	i, ok := m.byName[ev.Unit]
	if !ok {
		i = len(m.rows)
		m.byName[ev.Unit] = i
		m.rows = append(m.rows, unitRow{name: ev.Unit})
	}
	if st := stateOf(ev.Stage, ev.Status); st != stateUnknown {
		m.rows[i].state = st
	}
	if ev.Err != nil {
		m.rows[i].err = ev.Err.Error()
	}
	return m.bar.SetPercent(m.percent())
}

// percent uses checked/expected when the stream knows the total and the
// share of finished crates otherwise.
func (m *progressModel) percent() float64 {
	if pct, ok := (driver.Event{Checked: m.checked, Expected: m.expected}).Percent(); ok {
		return float64(pct) / 100
	}
	if len(m.rows) == 0 {
		return 0
	}
	n := 0
	for _, r := range m.rows {
		if r.state.finished() {
			n++
		}
	}
	return float64(n) / float64(len(m.rows))
}

func (m *progressModel) header() string {
	h := m.title
	switch {
	case m.expected > 0:
		h += fmt.Sprintf(" (%d/%d crates checked)", m.checked, m.expected)
	case m.checked > 0:
		h += fmt.Sprintf(" (%d crates checked)", m.checked)
	}
	if m.done {
		return "done: " + h
	}
	return m.spinner.View() + " " + h
}

// visibleRows keeps at most maxRows rows, dropping finished crates from the
// front first. It returns how many were folded.
func (m *progressModel) visibleRows() ([]unitRow, int) {
	if len(m.rows) <= maxRows {
		return m.rows, 0
	}
	drop := len(m.rows) - maxRows
	out := make([]unitRow, 0, maxRows)
	for _, r := range m.rows {
		if drop > 0 && r.state.finished() {
			drop--
			continue
		}
		out = append(out, r)
	}
	if len(out) > maxRows {
		out = out[len(out)-maxRows:]
	}
	return out, len(m.rows) - len(out)
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.header()) + "\n\n")

	const stateWidth = 10
	nameWidth := max(m.width-stateWidth-4, 20)
	rows, folded := m.visibleRows()
	if folded > 0 {
		b.WriteString(noteStyle.Render(fmt.Sprintf("  ... %d more", folded)) + "\n")
	}
	for _, r := range rows {
		label := lipgloss.NewStyle().Foreground(stateColors[r.state]).Render(fmt.Sprintf("%*s", stateWidth, r.state))
		line := "  " + label + " " + truncate(r.name, nameWidth)
		if r.err != "" {
			line += "  " + noteStyle.Render(truncate(r.err, max(nameWidth-runewidth.StringWidth(r.name)-2, 10)))
		}
		b.WriteString(line + "\n")
	}
	if len(rows) > 0 {
		b.WriteByte('\n')
	}
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	if m.summary != "" {
		b.WriteString(m.summary + "\n")
	}
	return b.String()
}

// truncate shortens value to width display cells, marking the cut.
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
