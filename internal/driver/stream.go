package driver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"owlsight/internal/facts"
	"owlsight/internal/model"
)

// MessageKind classifies one line of the analyzer output.
type MessageKind uint8

const (
	// MessageOther is a well-formed line nobody consumes (compiler messages etc.).
	MessageOther MessageKind = iota
	MessageArtifact
	MessageBuildFinished
	MessageFacts
	MessageWorkspace
)

const (
	reasonArtifact      = "compiler-artifact"
	reasonBuildFinished = "build-finished"
	reasonFacts         = "function-facts"
)

// ErrMalformed marks a line that could not be decoded. Such lines are skipped.
var ErrMalformed = errors.New("malformed stream line")

// Artifact is the part of a compiler-artifact record used for progress.
type Artifact struct {
	PackageID string `json:"package_id"`
	Target    struct {
		Name string `json:"name"`
	} `json:"target"`
	Fresh bool `json:"fresh"`
}

// Name is a short label for the checked crate.
func (a *Artifact) Name() string {
	if a.Target.Name != "" {
		return a.Target.Name
	}
	return a.PackageID
}

// Message is one decoded line. Raw is the trimmed line; the disk cache
// keys analyzed functions by its hash.
type Message struct {
	Kind      MessageKind
	Artifact  *Artifact
	Success   bool
	Facts     *facts.FunctionFacts
	Workspace model.Workspace
	Raw       []byte
}

type messageHead struct {
	Reason  string `json:"reason"`
	Success bool   `json:"success"`
}

// ParseMessage decodes one NDJSON line.
func ParseMessage(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)
	msg := Message{Raw: line}
	if len(line) == 0 || line[0] != '{' {
		return msg, ErrMalformed
	}
	var head messageHead
	if err := json.Unmarshal(line, &head); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch head.Reason {
	case reasonArtifact:
		var art Artifact
		if err := json.Unmarshal(line, &art); err != nil {
			return msg, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		msg.Kind, msg.Artifact = MessageArtifact, &art
	case reasonBuildFinished:
		msg.Kind, msg.Success = MessageBuildFinished, head.Success
	case reasonFacts:
		ff := new(facts.FunctionFacts)
		if err := json.Unmarshal(line, ff); err != nil {
			return msg, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		msg.Kind, msg.Facts = MessageFacts, ff
	case "":
		var ws model.Workspace
		if err := json.Unmarshal(line, &ws); err != nil {
			return msg, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if len(ws) > 0 {
			msg.Kind, msg.Workspace = MessageWorkspace, ws
		}
	}
	return msg, nil
}

// StreamReader splits the analyzer output into messages.
type StreamReader struct {
	r    *bufio.Reader
	line int
}

// NewStreamReader reads NDJSON from r. Lines may be arbitrarily long.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: bufio.NewReaderSize(r, 64<<10)}
}

// Line returns the number of the last line read.
func (s *StreamReader) Line() int { return s.line }

// Next returns the next message. Errors wrapping ErrMalformed refer to a
// single line and reading may continue; io.EOF ends the stream.
func (s *StreamReader) Next() (Message, error) {
	for {
		line, err := s.r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return Message{}, err
		}
		s.line++
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				return Message{}, err
			}
			continue
		}
		msg, perr := ParseMessage(line)
		if perr != nil {
			return msg, fmt.Errorf("line %d: %w", s.line, perr)
		}
		return msg, nil
	}
}
