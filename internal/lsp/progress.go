package lsp

import (
	"fmt"
	"sync"

	"owlsight/internal/driver"
)

// progressToken reports one analysis through $/progress. A nil token (the
// client did not announce workDoneProgress) drops every call.
type progressToken struct {
	s     *Server
	token string
	title string

	mu      sync.Mutex
	lastPct int
	ended   bool
}

func (s *Server) beginProgress(title string) *progressToken {
	if !s.workDoneProgress() {
		return nil
	}
	s.mu.Lock()
	s.progressSeq++
	token := fmt.Sprintf("owlsight/%d", s.progressSeq)
	s.mu.Unlock()

	if err := s.sendRequest("window/workDoneProgress/create", workDoneProgressCreateParams{Token: token}); err != nil {
		s.logf("create progress: %v", err)
		return nil
	}
	p := &progressToken{s: s, token: token, title: title, lastPct: -1}
	p.send(workDoneProgressBegin{Kind: "begin", Title: title})
	return p
}

func (p *progressToken) send(value any) {
	if err := p.s.sendNotification("$/progress", progressParams{Token: p.token, Value: value}); err != nil {
		p.s.logf("progress: %v", err)
	}
}

// OnEvent turns driver events into reports; only percentage changes are sent.
func (p *progressToken) OnEvent(ev driver.Event) {
	if p == nil || ev.Stage != driver.StageCheck {
		return
	}
	pct, ok := ev.Percent()
	p.mu.Lock()
	if p.ended || (ok && pct == p.lastPct) {
		p.mu.Unlock()
		return
	}
	p.lastPct = pct
	p.mu.Unlock()

	report := workDoneProgressReport{Kind: "report", Message: fmt.Sprintf("%d crates checked", ev.Checked)}
	if ok {
		report.Percentage = &pct
	}
	p.send(report)
}

func (p *progressToken) end(message string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.mu.Unlock()
	p.send(workDoneProgressEnd{Kind: "end", Message: message})
}

// sink returns the token as a driver sink, or nil when progress is off.
func (p *progressToken) sink() driver.ProgressSink {
	if p == nil {
		return nil
	}
	return p
}
