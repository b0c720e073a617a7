package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"owlsight/internal/config"
)

// resolveProject finds the project containing start (a file or directory).
// Without a manifest, allowBare falls back to defaults rooted at start.
func resolveProject(start string, allowBare bool) (*config.Project, error) {
	if start == "" {
		start = "."
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", start, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", start, err)
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	p, err := config.Discover(dir)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, config.ErrNoProject) && allowBare {
		return &config.Project{Root: dir, Config: config.Default()}, nil
	}
	return nil, err
}

// formatPathForOutput prints target relative to base when it is inside it.
func formatPathForOutput(base, target string) string {
	if rel, err := filepath.Rel(base, target); err == nil && rel != ".." && !filepath.IsAbs(rel) && !startsWithDotDot(rel) {
		return rel
	}
	return target
}

func startsWithDotDot(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
