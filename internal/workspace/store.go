package workspace

import (
	"sync"

	"owlsight/internal/model"
)

// Store holds the last complete analysis result. Readers never see a
// half-merged run: a run builds its own workspace and Finish swaps it in.
type Store struct {
	mu      sync.RWMutex
	ws      model.Workspace
	status  Status
	gen     uint64
	lastErr error

	// state before the pending run, restored by Abort
	prevStatus Status
	prevErr    error
}

// NewStore creates an empty store in the finished state.
func NewStore() *Store {
	return &Store{status: StatusFinished}
}

// Begin marks a new run as started and returns its generation. Results of
// older generations are ignored by Finish and Fail.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.status != StatusAnalyzing {
		s.prevStatus, s.prevErr = s.status, s.lastErr
	}
	s.status = StatusAnalyzing
	s.lastErr = nil
	return s.gen
}

// Finish publishes the workspace produced by run gen. A run that produced no
// functions leaves the previous snapshot in place and reports an error.
func (s *Store) Finish(gen uint64, ws model.Workspace) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return s.status
	}
	if ws.FunctionCount() == 0 {
		s.status = StatusError
		return s.status
	}
	s.ws = ws
	s.status = StatusFinished
	return s.status
}

// Fail records that run gen stopped with err.
func (s *Store) Fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.status = StatusError
	s.lastErr = err
}

// Abort ends run gen without a result, e.g. when it was cancelled. The
// snapshot, status and error from before the run come back.
func (s *Store) Abort(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.status != StatusAnalyzing {
		return
	}
	s.status, s.lastErr = s.prevStatus, s.prevErr
}

// Replace installs ws without running an analysis, e.g. from cache.json.
func (s *Store) Replace(ws model.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws = ws
}

// Snapshot returns the current workspace (nil before any successful run)
// and status. The workspace must not be modified by the caller.
func (s *Store) Snapshot() (model.Workspace, Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws, s.status
}

// Status returns the current status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Analyzed reports whether any workspace has been published.
func (s *Store) Analyzed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws != nil
}

// Err returns the error of the last failed run.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
