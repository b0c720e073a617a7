package source

type (
	// FileID identifies a loaded file inside a FileSet.
	FileID uint32
	// FileFlags records what normalization was applied on load.
	FileFlags uint8
)

const (
	// FileVirtual marks content that did not come from disk (editor buffer, test).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File is one normalized source file with its codepoint index.
type File struct {
	ID    FileID
	Path  string
	Text  *Text
	Hash  [32]byte
	Flags FileFlags
}

// LineChar is a zero-based editor position: line number and codepoint
// column with carriage returns not counted.
type LineChar struct {
	Line uint32 `json:"line"`
	Char uint32 `json:"character"`
}
