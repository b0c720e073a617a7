package lsp

func (s *Server) currentTrace() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traceLSP
}

func (s *Server) workDoneProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressSupported
}

// documentDirty reports whether path has unsaved edits since the last run.
func (s *Server) documentDirty(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.path == path {
			return doc.dirty
		}
	}
	return false
}

func (s *Server) expectedUnits(root string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked[root]
}

func (s *Server) setExpectedUnits(root string, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked[root] = n
}
