package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// uriToPath maps a file URI to a clean absolute path. Bare paths are
// accepted as-is; other schemes map to "".
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	switch {
	case uri == "" || err != nil:
		return ""
	case u.Scheme == "":
		return canonicalPath(uri)
	case u.Scheme != "file":
		return ""
	}
	// url.Parse уже снял процентное кодирование с Path
	return canonicalPath(u.Path)
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(canonicalPath(path))}).String()
}

// canonicalURI re-encodes uri so that differently escaped spellings of one
// file share a key.
func canonicalURI(uri string) string {
	if p := uriToPath(uri); p != "" {
		return pathToURI(p)
	}
	return ""
}

func canonicalPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(filepath.FromSlash(path))
	if err != nil {
		return filepath.Clean(filepath.FromSlash(path))
	}
	return abs
}

// pathWithinRoot reports whether path is root or lies below it.
func pathWithinRoot(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	up := rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
	return !up
}
