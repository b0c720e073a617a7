// Package driver runs an analysis: it reads the analyzer's fact stream,
// analyzes every function on a bounded worker pool and merges the results
// unit by unit into a fresh workspace.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"owlsight/internal/analyze"
	"owlsight/internal/facts"
	"owlsight/internal/model"
	"owlsight/internal/source"
	"owlsight/internal/trace"
)

// Options configures one run.
type Options struct {
	// Root resolves relative file paths of the fact stream.
	Root string
	// Jobs limits concurrent function analyses; <= 0 means GOMAXPROCS.
	Jobs int
	// ExpectedUnits is the number of compiler artifacts the run is expected
	// to produce; 0 disables percentages.
	ExpectedUnits int
	Cache         *DiskCache
	Sink          ProgressSink
}

// Failure is one function that could not be analyzed.
type Failure struct {
	Crate string
	File  string
	FnID  uint32
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s fn %d: %v", f.Crate, f.File, f.FnID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// RunResult is what a run produced.
type RunResult struct {
	Workspace model.Workspace
	Failures  []Failure
	Functions int
	CacheHits int
	Checked   int
	Malformed int
	// BuildOK is the success flag of the build-finished record, if any.
	BuildOK *bool
	// ExitErr is the analyzer's exit error; a failing build may still
	// have produced facts.
	ExitErr error
	Elapsed time.Duration
}

// unit is one compilation unit (crate) of the stream.
type unit struct {
	name     string
	expected int
	seen     int
	drained  bool
	failed   bool
	jobs     sync.WaitGroup

	mu sync.Mutex
	ws model.Workspace
}

func (u *unit) add(path string, fn model.Function) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ws.AddFunction(u.name, path, fn)
}

// runState is the per-run context: nothing here outlives Run.
type runState struct {
	opts  Options
	files *source.FileSet
	start time.Time

	g      *errgroup.Group
	gctx   context.Context
	drains sync.WaitGroup

	units map[string]*unit
	order []string

	mu       sync.Mutex
	ws       model.Workspace
	result   RunResult
	virtual  sync.Mutex
	checked  int
	expected int
}

// Run consumes the fact stream r until EOF and returns the merged
// workspace. Per-function failures are collected in the result; the
// returned error is non-nil only when the stream could not be read or ctx
// was cancelled.
func Run(ctx context.Context, r io.Reader, opts Options) (*RunResult, error) {
	ctx, span := trace.Start(ctx, trace.ScopeRun, "run")
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	st := &runState{
		opts:     opts,
		files:    source.NewFileSet(),
		start:    time.Now(),
		g:        g,
		gctx:     gctx,
		units:    make(map[string]*unit),
		ws:       make(model.Workspace),
		expected: opts.ExpectedUnits,
	}

	readErr := st.consume(ctx, NewStreamReader(r))

	waitErr := g.Wait()
	for _, name := range st.order {
		if u := st.units[name]; !u.drained {
			st.drain(u)
		}
	}
	st.drains.Wait()

	res := st.finish()
	span.Attr("functions", strconv.Itoa(res.Functions)).
		Attr("failures", strconv.Itoa(len(res.Failures))).
		End("")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err := errors.Join(readErr, waitErr); err != nil {
		return res, err
	}
	return res, nil
}

func (st *runState) consume(ctx context.Context, sr *StreamReader) error {
	tracer := trace.FromContext(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := sr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, ErrMalformed) {
				st.mu.Lock()
				st.result.Malformed++
				st.mu.Unlock()
				trace.Point(tracer, trace.ScopeUnit, "skip", err.Error())
				continue
			}
			return fmt.Errorf("read fact stream: %w", err)
		}

		switch msg.Kind {
		case MessageArtifact:
			st.mu.Lock()
			st.checked++
			st.mu.Unlock()
			st.emit(Event{Unit: msg.Artifact.Name(), Stage: StageCheck, Status: StatusDone})
		case MessageBuildFinished:
			ok := msg.Success
			st.mu.Lock()
			st.result.BuildOK = &ok
			st.mu.Unlock()
			trace.Point(tracer, trace.ScopeRun, "build-finished", strconv.FormatBool(ok))
		case MessageWorkspace:
			st.mu.Lock()
			st.ws.Merge(msg.Workspace)
			st.mu.Unlock()
		case MessageFacts:
			st.schedule(msg.Facts, msg.Raw)
		}
	}
}

func (st *runState) unitFor(ff *facts.FunctionFacts) *unit {
	u, ok := st.units[ff.Crate]
	if ok && u.drained {
		// late function of an already merged unit starts a new one
		u, ok = nil, false
	}
	if !ok {
		u = &unit{name: ff.Crate, ws: make(model.Workspace)}
		st.units[ff.Crate] = u
		st.order = append(st.order, ff.Crate)
		st.emit(Event{Unit: u.name, Stage: StageAnalyze, Status: StatusWorking})
	}
	if ff.UnitFunctions > u.expected {
		u.expected = ff.UnitFunctions
	}
	return u
}

// schedule queues one function and drains its unit once every expected
// function has been seen. g.Go blocks while the pool is full.
func (st *runState) schedule(ff *facts.FunctionFacts, raw []byte) {
	if ff.Crate == "" {
		st.fail(nil, ff, facts.ErrNoCrate)
		return
	}
	u := st.unitFor(ff)
	u.seen++
	u.jobs.Add(1)
	st.g.Go(func() error {
		defer u.jobs.Done()
		return st.analyzeOne(u, ff, raw)
	})
	if u.expected > 0 && u.seen >= u.expected {
		st.drain(u)
	}
}

func (st *runState) analyzeOne(u *unit, ff *facts.FunctionFacts, raw []byte) error {
	ctx := st.gctx
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ff.Check(); err != nil {
		st.fail(u, ff, err)
		return nil
	}
	file, err := st.file(ff)
	if err != nil {
		st.fail(u, ff, err)
		return nil
	}
	path := source.NormalizePath(ff.File)
	// спаны фактов адресуют байты, а Loc считается по текущему тексту
	key := DigestOf(raw, file.Hash[:])

	var cached DiskPayload
	if hit, err := st.opts.Cache.Get(key, &cached); err == nil && hit && cached.Crate == ff.Crate && cached.File == path {
		u.add(path, cached.Function)
		st.mu.Lock()
		st.result.CacheHits++
		st.mu.Unlock()
		return nil
	} else if err != nil {
		trace.Error(trace.FromContext(ctx), trace.ScopeFunction, "cache", err)
	}

	fn, err := analyze.Analyze(ctx, file.Text, ff)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		st.fail(u, ff, err)
		return nil
	}
	u.add(path, fn)
	if err := st.opts.Cache.Put(key, &DiskPayload{Crate: ff.Crate, File: path, Function: fn}); err != nil {
		trace.Error(trace.FromContext(ctx), trace.ScopeFunction, "cache", err)
	}
	return nil
}

// file returns the normalized source the function's spans refer to.
func (st *runState) file(ff *facts.FunctionFacts) (*source.File, error) {
	if ff.Source != "" {
		st.virtual.Lock()
		defer st.virtual.Unlock()
		if f, ok := st.files.Get(ff.File); ok {
			return f, nil
		}
		return st.files.AddVirtual(ff.File, ff.Source), nil
	}
	path := ff.File
	if !filepath.IsAbs(path) && st.opts.Root != "" {
		path = filepath.Join(st.opts.Root, path)
	}
	f, err := st.files.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	return f, nil
}

func (st *runState) fail(u *unit, ff *facts.FunctionFacts, err error) {
	if u != nil {
		u.mu.Lock()
		u.failed = true
		u.mu.Unlock()
	}
	f := Failure{Crate: ff.Crate, File: ff.File, FnID: ff.Body.FnID, Err: err}
	st.mu.Lock()
	st.result.Failures = append(st.result.Failures, f)
	st.mu.Unlock()
	trace.Error(trace.FromContext(st.gctx), trace.ScopeFunction, "analyze", f)
}

// drain merges u once all of its queued jobs are done.
func (st *runState) drain(u *unit) {
	u.drained = true
	st.drains.Add(1)
	go func() {
		defer st.drains.Done()
		u.jobs.Wait()

		u.mu.Lock()
		ws := u.ws
		u.ws = make(model.Workspace)
		failed := u.failed
		u.mu.Unlock()

		st.mu.Lock()
		st.ws.Merge(ws)
		st.mu.Unlock()

		status := StatusDone
		if failed {
			status = StatusError
		}
		st.emit(Event{Unit: u.name, Stage: StageMerge, Status: status})
	}()
}

func (st *runState) emit(ev Event) {
	if st.opts.Sink == nil {
		return
	}
	st.mu.Lock()
	ev.Checked, ev.Expected = st.checked, st.expected
	st.mu.Unlock()
	ev.Elapsed = time.Since(st.start)
	st.opts.Sink.OnEvent(ev)
}

func (st *runState) finish() *RunResult {
	st.mu.Lock()
	res := st.result
	res.Workspace = st.ws
	res.Functions = st.ws.FunctionCount()
	res.Checked = st.checked
	res.Elapsed = time.Since(st.start)
	st.mu.Unlock()
	if st.opts.Sink != nil {
		status := StatusDone
		if res.Functions == 0 {
			status = StatusError
		}
		st.opts.Sink.OnEvent(Event{Stage: StageMerge, Status: status, Checked: res.Checked, Expected: st.expected, Elapsed: res.Elapsed})
	}
	return &res
}
