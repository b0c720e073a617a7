package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"

	"fortio.org/safecast"
)

// FileSet caches normalized source files by path. It is safe for
// concurrent use by analysis workers.
type FileSet struct {
	mu    sync.RWMutex
	files []*File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		index: make(map[string]FileID),
	}
}

// Add stores already normalized content under path and returns the new file.
// It always creates a new FileID even if the path is known.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) *File {
	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()
	return fileSet.addLocked(path, content, flags)
}

func (fileSet *FileSet) addLocked(path string, content []byte, flags FileFlags) *File {
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	normalized := NormalizePath(path)
	f := &File{
		ID:    FileID(n),
		Path:  normalized,
		Text:  NewText(string(content)),
		Hash:  sha256.Sum256(content),
		Flags: flags,
	}
	fileSet.files = append(fileSet.files, f)
	fileSet.index[normalized] = f.ID
	return f
}

// AddVirtual adds an in-memory buffer, normalizing it first.
func (fileSet *FileSet) AddVirtual(path, content string) *File {
	data, flags := Normalize([]byte(content))
	return fileSet.Add(path, data, flags|FileVirtual)
}

// Load returns the cached file for path, reading and normalizing it from
// disk on first use.
func (fileSet *FileSet) Load(path string) (*File, error) {
	if f, ok := fileSet.Get(path); ok {
		return f, nil
	}

	// #nosec G304 -- path comes from analyzer output for the opened project
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content, flags := Normalize(content)

	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()
	if id, ok := fileSet.index[NormalizePath(path)]; ok {
		return fileSet.files[id], nil
	}
	return fileSet.addLocked(path, content, flags), nil
}

// Get returns the latest version of path, if loaded.
func (fileSet *FileSet) Get(path string) (*File, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	id, ok := fileSet.index[NormalizePath(path)]
	if !ok {
		return nil, false
	}
	return fileSet.files[id], true
}

// Len returns how many file versions were added.
func (fileSet *FileSet) Len() int {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return len(fileSet.files)
}
