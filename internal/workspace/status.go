// Package workspace keeps the analyzed snapshot served to cursor queries
// and persists it between runs.
package workspace

import "fmt"

// Status is the state of the most recent analysis run.
type Status uint8

const (
	StatusFinished Status = iota
	StatusAnalyzing
	StatusError
)

var statusNames = [...]string{
	StatusFinished:  "finished",
	StatusAnalyzing: "analyzing",
	StatusError:     "error",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", s)
}

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("unknown status %d", s)
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i) // #nosec G115 -- small table
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}
