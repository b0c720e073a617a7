package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// ManifestName is the project configuration file.
	ManifestName = "owlsight.toml"
	// CargoManifest marks a project root when no owlsight.toml exists.
	CargoManifest = "Cargo.toml"
)

// ErrNoProject is returned when neither manifest is found.
var ErrNoProject = errors.New("no owlsight.toml or Cargo.toml found")

// ancestors returns the absolute directory of start and each of its
// parents, innermost first. A file start begins at its directory.
func ancestors(start string) ([]string, error) {
	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", start, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	var out []string
	for {
		out = append(out, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			return out, nil
		}
		dir = parent
	}
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// declaresWorkspace reports whether the Cargo manifest at path has a
// [workspace] table. Unreadable manifests count as plain packages.
func declaresWorkspace(path string) bool {
	var m struct {
		Workspace map[string]any `toml:"workspace"`
	}
	_, err := toml.DecodeFile(path, &m)
	return err == nil && m.Workspace != nil
}

// FindRoot returns the project root for startDir. The nearest owlsight.toml
// wins. Otherwise the root is the nearest Cargo.toml, or the nearest
// enclosing Cargo.toml that declares [workspace], the same directory cargo
// itself builds from.
func FindRoot(startDir string) (root, manifest string, err error) {
	dirs, err := ancestors(startDir)
	if err != nil {
		return "", "", err
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, ManifestName)
		ok, err := exists(path)
		if err != nil {
			return "", "", err
		}
		if ok {
			return dir, path, nil
		}
	}
	for i, dir := range dirs {
		ok, err := exists(filepath.Join(dir, CargoManifest))
		if err != nil {
			return "", "", err
		}
		if !ok {
			continue
		}
		root = dir
		for _, up := range dirs[i+1:] {
			if declaresWorkspace(filepath.Join(up, CargoManifest)) {
				root = up
				break
			}
		}
		return root, "", nil
	}
	return "", "", ErrNoProject
}
