package trace

import (
	"context"
	"sync/atomic"
	"time"
)

// carrier is what a context holds: the tracer and the innermost open span.
type carrier struct {
	t    Tracer
	span uint64
}

type carrierKey struct{}

func carried(ctx context.Context) carrier {
	if ctx != nil {
		if c, ok := ctx.Value(carrierKey{}).(carrier); ok {
			return c
		}
	}
	return carrier{t: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return carried(ctx).t
}

// WithTracer attaches t to ctx. Spans started from the result have no parent.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, carrierKey{}, carrier{t: t})
}

var spanIDs atomic.Uint64

// Span is an open begin/end pair. A nil *Span is valid and records nothing.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	scope  Scope
	name   string
	begun  time.Time
	attrs  []Attr
}

// Start opens a span as a child of the span carried by ctx. The returned
// context carries the new span. When the tracer's level filters scope out,
// Start returns ctx unchanged and a nil span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	c := carried(ctx)
	if !c.t.Level().Admits(KindBegin, scope) {
		return ctx, nil
	}
	sp := &Span{
		t:      c.t,
		id:     spanIDs.Add(1),
		parent: c.span,
		scope:  scope,
		name:   name,
		begun:  time.Now(),
	}
	c.t.Emit(Event{Time: sp.begun, Kind: KindBegin, Scope: scope, Span: sp.id, Parent: sp.parent, Name: name})
	return context.WithValue(ctx, carrierKey{}, carrier{t: c.t, span: sp.id}), sp
}

// Attr annotates the end event.
func (s *Span) Attr(key, value string) *Span {
	if s != nil {
		s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	}
	return s
}

// ID is 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	d := now.Sub(s.begun)
	s.t.Emit(Event{
		Time:    now,
		Kind:    KindEnd,
		Scope:   s.scope,
		Span:    s.id,
		Parent:  s.parent,
		Name:    s.name,
		Detail:  detail,
		Elapsed: d,
		Attrs:   s.attrs,
	})
	return d
}

// Point records an instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Level().Admits(KindPoint, scope) {
		return
	}
	t.Emit(Event{Time: time.Now(), Kind: KindPoint, Scope: scope, Name: name, Detail: detail})
}

// Error records err. Errors pass every level except off.
func Error(t Tracer, scope Scope, name string, err error) {
	if t == nil || err == nil || t.Level() == LevelOff {
		return
	}
	t.Emit(Event{Time: time.Now(), Kind: KindError, Scope: scope, Name: name, Detail: err.Error()})
}
