package lsp

import (
	"errors"
	"os"
	"path/filepath"
	"slices"

	"owlsight/internal/config"
	"owlsight/internal/workspace"
)

func resolveStartDir(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// inWorkspaceLocked reports whether path lies inside an editor workspace folder.
// Without folders every path qualifies.
func (s *Server) inWorkspaceLocked(path string) bool {
	if len(s.folders) == 0 {
		return true
	}
	for _, folder := range s.folders {
		if pathWithinRoot(folder, path) {
			return true
		}
	}
	return false
}

// registerRoot finds the project of path. It returns true when the project
// was not known before.
func (s *Server) registerRoot(path string) (*config.Project, bool) {
	s.mu.Lock()
	if !s.inWorkspaceLocked(path) {
		s.mu.Unlock()
		return nil, false
	}
	s.mu.Unlock()

	p, err := config.Discover(resolveStartDir(path))
	if err != nil {
		if !errors.Is(err, config.ErrNoProject) {
			s.logf("project lookup for %s: %v", path, err)
		}
		return nil, false
	}
	p.Root = canonicalPath(p.Root)

	s.mu.Lock()
	if _, ok := s.projects[p.Root]; ok {
		s.mu.Unlock()
		return p, false
	}
	s.projects[p.Root] = p
	s.mu.Unlock()

	s.logf("add %s to watch list", p.Root)
	s.loadCache(p)
	return p, true
}

// loadCache merges the project's cache.json into the snapshot so cursor
// queries have an answer before the first run completes.
func (s *Server) loadCache(p *config.Project) {
	ws, err := workspace.Load(workspace.CachePath(p.CacheDir()))
	if err != nil {
		s.logf("load cache: %v", err)
		return
	}
	if ws.FunctionCount() == 0 {
		return
	}
	cur, _ := s.store.Snapshot()
	next := cur.Clone()
	next.Merge(ws)
	s.store.Replace(next)
}

// projectFor returns the registered project containing path.
func (s *Server) projectFor(path string) *config.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *config.Project
	for root, p := range s.projects {
		if pathWithinRoot(root, path) && (best == nil || len(root) > len(best.Root)) {
			best = p
		}
	}
	return best
}

func (s *Server) projectList() []*config.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := make([]string, 0, len(s.projects))
	for root := range s.projects {
		roots = append(roots, root)
	}
	slices.Sort(roots)
	out := make([]*config.Project, 0, len(roots))
	for _, root := range roots {
		out = append(out, s.projects[root])
	}
	return out
}
