package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev Event)
	Level() Level
	Flush() error
	Close() error
}

type nop struct{}

func (nop) Emit(Event)   {}
func (nop) Level() Level { return LevelOff }
func (nop) Flush() error { return nil }
func (nop) Close() error { return nil }

// Nop drops everything.
var Nop Tracer = nop{}

// Mode selects where a Recorder keeps events.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // write each event as it arrives
	ModeRing                   // keep the last RingSize events in memory
	ModeBoth
)

// ParseMode accepts "stream", "ring" or "both".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	}
	return 0, fmt.Errorf("invalid trace mode %q (want stream|ring|both)", s)
}

func (m Mode) streams() bool { return m == ModeStream || m == ModeBoth }
func (m Mode) rings() bool   { return m == ModeRing || m == ModeBoth }

const defaultRingSize = 4096

// Config describes a Recorder.
type Config struct {
	Level      Level
	Mode       Mode
	Format     Format    // FormatAuto picks NDJSON for .ndjson/.jsonl paths
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "" or "-" is stderr
	RingSize   int
}

// Recorder is the Tracer behind every non-nop configuration. It may stream
// events to a writer, keep the most recent ones in a ring, or both.
type Recorder struct {
	level  Level
	format Format

	mu   sync.Mutex
	out  io.Writer
	file *os.File // owned output, closed by Close
	ring []Event
	next int
	full bool
}

var seq atomic.Uint64

// New builds a tracer for cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeRing
	}
	if !cfg.Mode.streams() && !cfg.Mode.rings() {
		return nil, fmt.Errorf("unknown trace mode %d", cfg.Mode)
	}
	r := &Recorder{level: cfg.Level, format: cfg.Format}
	if r.format == FormatAuto {
		r.format = formatFor(cfg.OutputPath)
	}
	if cfg.Mode.rings() {
		size := cfg.RingSize
		if size <= 0 {
			size = defaultRingSize
		}
		r.ring = make([]Event, size)
	}
	if cfg.Mode.streams() {
		switch {
		case cfg.Output != nil:
			r.out = cfg.Output
		case cfg.OutputPath == "" || cfg.OutputPath == "-":
			r.out = os.Stderr
		default:
			f, err := os.Create(cfg.OutputPath)
			if err != nil {
				return nil, fmt.Errorf("open trace output: %w", err)
			}
			r.out, r.file = f, f
		}
	}
	return r, nil
}

func formatFor(path string) Format {
	switch filepath.Ext(path) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

// Level returns the configured level.
func (r *Recorder) Level() Level { return r.level }

// Emit stamps ev with a sequence number and records it.
func (r *Recorder) Emit(ev Event) {
	if !r.level.Admits(ev.Kind, ev.Scope) {
		return
	}
	ev.Seq = seq.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out != nil {
		// ошибки записи трассы не должны ронять анализ
		_, _ = r.out.Write(encode(&ev, r.format))
	}
	if r.ring != nil {
		r.ring[r.next] = ev
		r.next++
		if r.next == len(r.ring) {
			r.next, r.full = 0, true
		}
	}
}

// Recent returns the ring contents oldest first. It is empty in stream mode.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.ring[:r.next]...)
	}
	out := make([]Event, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	return append(out, r.ring[:r.next]...)
}

// Dump writes the ring contents to w.
func (r *Recorder) Dump(w io.Writer, f Format) error {
	for _, ev := range r.Recent() {
		if _, err := w.Write(encode(&ev, f)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the stream output when it buffers.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	if r.file != nil {
		return r.file.Sync()
	}
	return nil
}

// Close flushes and closes an output file opened by New.
func (r *Recorder) Close() error {
	err := r.Flush()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		err = errors.Join(err, r.file.Close())
		r.file, r.out = nil, nil
	}
	return err
}
