package lsp

import (
	"encoding/json"
	"strconv"

	"owlsight/internal/trace"
)

// handleCursor answers owlsight/cursor with the decorations under the
// given position.
func (s *Server) handleCursor(msg *rpcMessage) error {
	var params cursorParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	return s.sendResponse(msg.ID, s.cursor(params))
}

func (s *Server) cursor(params cursorParams) cursorResult {
	path := uriToPath(params.Document.URI)
	status := s.store.Status()
	res := cursorResult{
		IsAnalyzed:  s.store.Analyzed(),
		Status:      status,
		Decorations: []lspDecoration{},
	}
	if path == "" {
		return res
	}
	text, err := readText(path)
	if err != nil {
		if s.currentTrace() {
			s.logf("cursor: read %s: %v", path, err)
		}
		return res
	}
	res.Path = &path
	// буфер разошёлся с диском, позиции не совпадут
	if s.documentDirty(path) {
		return res
	}

	root := ""
	if p := s.projectFor(path); p != nil {
		root = p.Root
	}
	_, span := trace.Start(s.baseCtx, trace.ScopeFunction, "cursor")
	q := s.store.Cursor(root, path, toLoc(text, params.Position))
	span.Attr("decorations", strconv.Itoa(len(q.Decorations))).End(path)
	res.IsAnalyzed = q.Analyzed
	res.Status = q.Status
	res.Decorations = toLSPDecorations(text, q.Decorations)
	if s.currentTrace() {
		s.logf("cursor: %s %d:%d -> %d decorations (%s)", path, params.Position.Line, params.Position.Character, len(res.Decorations), q.Status)
	}
	return res
}
