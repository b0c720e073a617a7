package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"owlsight/internal/model"
)

// CacheFile is the name of the persisted workspace inside the cache dir.
const CacheFile = "cache.json"

// CachePath returns the cache.json location for a cache directory.
func CachePath(dir string) string {
	return filepath.Join(dir, CacheFile)
}

// Load reads a workspace written by Save. A missing file yields (nil, nil).
func Load(path string) (model.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ws model.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ws, nil
}

// Save writes ws to path, replacing the previous file atomically.
func Save(path string, ws model.Workspace) error {
	if ws == nil {
		ws = model.Workspace{}
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "cache-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Remove deletes the cache file; a missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
