package lsp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"owlsight/internal/config"
	"owlsight/internal/driver"
	"owlsight/internal/model"
	"owlsight/internal/workspace"
)

// launch is the default AnalyzeFunc: it runs the project's analyzer command
// through the shared launcher, so at most one process is alive at a time.
func (s *Server) launch(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error) {
	cmd := driver.Command{
		Args:   p.Config.Analyzer.Command,
		Env:    p.Config.Analyzer.Env,
		Dir:    p.Root,
		Stderr: s.analyzerStderr,
	}
	if s.currentTrace() {
		s.logf("exec %s in %s", cmd, p.Root)
	}
	return s.launcher.Launch(ctx, cmd, opts)
}

func (s *Server) scheduleAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownRequested {
		return
	}
	s.runSeq++
	seq := s.runSeq
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		s.startAnalysis(seq)
	})
}

// startAnalysis replaces the running analysis with a new one unless a newer
// request superseded seq.
func (s *Server) startAnalysis(seq uint64) {
	s.mu.Lock()
	if seq != s.runSeq || s.shutdownRequested || s.stopped {
		s.mu.Unlock()
		return
	}
	if s.runCancel != nil {
		s.runCancel()
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.runCancel = cancel
	s.runs.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.runs.Done()
		defer cancel()
		s.runAnalysis(ctx)
	}()
}

func (s *Server) cancelRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
}

// stopRuns cancels pending and running analyses and waits for them.
func (s *Server) stopRuns() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancelRun()
	s.runs.Wait()
}

// runAnalysis analyzes every registered project and publishes the merged
// workspace. A cancelled run leaves the previous snapshot in place.
func (s *Server) runAnalysis(ctx context.Context) {
	projects := s.projectList()
	if len(projects) == 0 {
		return
	}
	gen := s.store.Begin()
	merged := model.Workspace{}
	var errs []error
	for _, p := range projects {
		ws, err := s.analyzeProject(ctx, p)
		if ctx.Err() != nil {
			s.store.Abort(gen)
			return
		}
		if err != nil {
			s.logf("analyze %s: %v", p.Root, err)
			errs = append(errs, err)
		}
		if ws.FunctionCount() == 0 {
			continue
		}
		merged.Merge(ws)
		if p.Config.Cache.Disk {
			if err := workspace.Save(workspace.CachePath(p.CacheDir()), ws); err != nil {
				s.logf("save cache: %v", err)
			}
		}
	}
	if merged.FunctionCount() == 0 && len(errs) > 0 {
		s.store.Fail(gen, errors.Join(errs...))
		return
	}
	if status := s.store.Finish(gen, merged); status == workspace.StatusError {
		s.logf("analysis produced no functions")
	}
}

func (s *Server) analyzeProject(ctx context.Context, p *config.Project) (model.Workspace, error) {
	prog := s.beginProgress("owlsight: " + p.Root)
	opts := driver.Options{
		Root:          p.Root,
		Jobs:          p.Config.Analyzer.Jobs,
		ExpectedUnits: s.expectedUnits(p.Root),
		Sink:          prog.sink(),
	}
	if p.Config.Cache.Disk {
		opts.Cache = s.cache
	}
	res, err := s.analyze(ctx, p, opts)
	if err != nil {
		prog.end("failed")
		return nil, err
	}
	if ctx.Err() != nil {
		prog.end("cancelled")
		return nil, ctx.Err()
	}
	s.setExpectedUnits(p.Root, res.Checked)
	if res.ExitErr != nil {
		s.logf("analyzer exited: %v", res.ExitErr)
	}
	for _, f := range res.Failures {
		s.logf("%v", f)
	}
	prog.end(fmt.Sprintf("%d functions analyzed", res.Functions))
	return res.Workspace, nil
}
