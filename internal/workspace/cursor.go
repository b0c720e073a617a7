package workspace

import (
	"path/filepath"

	"owlsight/internal/decoration"
	"owlsight/internal/model"
	"owlsight/internal/source"
)

// FileFunctions collects the functions recorded for path. Keys in the
// workspace may be relative to root; both forms are matched.
func FileFunctions(ws model.Workspace, root, path string) []model.Function {
	want := source.NormalizePath(path)
	var out []model.Function
	for _, krate := range ws {
		for key, file := range krate {
			if matchPath(key, root, want) {
				out = append(out, file.Items...)
			}
		}
	}
	return out
}

func matchPath(key, root, want string) bool {
	if source.NormalizePath(key) == want {
		return true
	}
	if root != "" && !filepath.IsAbs(key) {
		return source.NormalizePath(filepath.Join(root, key)) == want
	}
	return false
}

// CursorResult is the answer to a cursor query before it is mapped to
// editor coordinates.
type CursorResult struct {
	Analyzed    bool
	Status      Status
	Decorations []decoration.Decoration
}

// Cursor answers a query at pos in path from the current snapshot.
// A finished store reports an error for files it knows nothing about.
func (s *Store) Cursor(root, path string, pos model.Loc) CursorResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := CursorResult{
		Analyzed:    s.ws != nil,
		Status:      s.status,
		Decorations: []decoration.Decoration{},
	}
	fns := FileFunctions(s.ws, root, path)
	if len(fns) > 0 {
		res.Decorations = decoration.Query(fns, pos)
	} else if res.Status == StatusFinished {
		res.Status = StatusError
	}
	return res
}
