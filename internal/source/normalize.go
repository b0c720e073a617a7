package source

import (
	"bytes"
	"path/filepath"
)

var (
	bom  = []byte{0xEF, 0xBB, 0xBF}
	crlf = []byte("\r\n")
)

// Normalize strips a leading BOM and folds CRLF line endings, the same way
// the compiler does before it assigns byte positions. A lone \r is kept.
func Normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, bom); ok {
		content = rest
		flags |= FileHadBOM
	}
	if bytes.Contains(content, crlf) {
		content = bytes.ReplaceAll(content, crlf, []byte{'\n'})
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

// NormalizePath приводит путь к единому виду для ключей workspace.
func NormalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
