package trace

import (
	"fmt"
	"strings"
	"time"
)

// Level is the verbosity threshold of a tracer.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelPhase
	LevelDetail
	LevelDebug
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (want %s)", s, strings.Join(levelNames[:], "|"))
}

// Scope is the granularity of an event. Coarser scopes have smaller values.
type Scope uint8

const (
	ScopeDriver   Scope = iota + 1 // command or server session
	ScopeRun                       // one analyzer run
	ScopeUnit                      // one crate
	ScopeFunction                  // one function body or cursor query
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeRun:
		return "run"
	case ScopeUnit:
		return "unit"
	case ScopeFunction:
		return "function"
	}
	return "?"
}

// finest returns the finest scope a level still records.
func (l Level) finest() Scope {
	switch l {
	case LevelPhase:
		return ScopeRun
	case LevelDetail:
		return ScopeUnit
	case LevelDebug:
		return ScopeFunction
	}
	return 0
}

// Admits reports whether an event of the given kind and scope passes the level.
// Errors and heartbeats pass at every level above off.
func (l Level) Admits(k Kind, s Scope) bool {
	if l == LevelOff {
		return false
	}
	if k == KindError || k == KindHeartbeat {
		return true
	}
	return s <= l.finest()
}

// Kind is what happened.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	KindHeartbeat
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	case KindError:
		return "error"
	}
	return "?"
}

// Attr is a key/value annotation on an event.
type Attr struct {
	Key   string
	Value string
}

// Event is one entry of the trace stream.
type Event struct {
	Time    time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	Span    uint64 // 0 for points and errors
	Parent  uint64
	Name    string
	Detail  string
	Elapsed time.Duration // set on KindEnd
	Attrs   []Attr
}
