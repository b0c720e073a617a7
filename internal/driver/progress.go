package driver

import "time"

// Stage is a step of an analysis run as reported to progress sinks.
type Stage string

const (
	StageCheck   Stage = "check"   // compiler checking one crate
	StageAnalyze Stage = "analyze" // worker pool analyzing a crate's functions
	StageMerge   Stage = "merge"   // a crate, or with an empty Unit the run, being merged
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one crate, or for the whole run when Unit is
// empty. Checked and Expected count crates the compiler has finished.
type Event struct {
	Unit     string
	Stage    Stage
	Status   Status
	Checked  int
	Expected int
	Err      error
	Elapsed  time.Duration // since the run started
}

// Percent returns checked*100/expected capped at 100; ok is false when the
// expected count is unknown.
func (e Event) Percent() (pct int, ok bool) {
	if e.Expected <= 0 {
		return 0, false
	}
	return min(e.Checked*100/e.Expected, 100), true
}

// ProgressSink consumes progress events. OnEvent is called from the run's
// goroutines and must not block for long.
type ProgressSink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) {
	if f != nil {
		f(ev)
	}
}

// ChannelSink forwards events to Ch. A nil channel drops them.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch != nil {
		s.Ch <- ev
	}
}

// Tee fans events out to every non-nil sink in order.
func Tee(sinks ...ProgressSink) ProgressSink {
	var live []ProgressSink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ev Event) {
		for _, s := range live {
			s.OnEvent(ev)
		}
	})
}
