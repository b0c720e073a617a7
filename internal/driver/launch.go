package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"owlsight/internal/trace"
)

// Command is the external analyzer invocation.
type Command struct {
	Args   []string
	Env    map[string]string
	Dir    string
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

func (c Command) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// Exec starts cmd and runs the analysis over its stdout. The process gets
// its own process group, which is killed when ctx is cancelled.
func Exec(ctx context.Context, cmd Command, opts Options) (*RunResult, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("analyzer command is empty")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// #nosec G204 -- command comes from the project configuration
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.environ()
	c.Stderr = cmd.Stderr
	c.WaitDelay = 5 * time.Second
	setProcessGroup(c)

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, err
	}
	trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "exec", cmd.String())
	if err := c.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("start %s: %w", cmd.Args[0], err)
	}

	res, runErr := Run(ctx, stdout, opts)
	if runErr != nil {
		// stop the producer before waiting on it
		cancel()
	}
	waitErr := c.Wait()
	if runErr != nil {
		return res, runErr
	}
	if waitErr != nil {
		res.ExitErr = waitErr
		trace.Error(trace.FromContext(ctx), trace.ScopeDriver, "exit", waitErr)
	}
	return res, nil
}

// Launcher runs at most one analysis at a time. Starting a new one cancels
// the previous run and waits for it to stop.
type Launcher struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Launch replaces the current run with cmd and blocks until it finishes.
func (l *Launcher) Launch(ctx context.Context, cmd Command, opts Options) (*RunResult, error) {
	runCtx, finish := l.replace(ctx)
	defer finish()
	return Exec(runCtx, cmd, opts)
}

// LaunchReader is Launch for an already recorded fact stream.
func (l *Launcher) LaunchReader(ctx context.Context, r io.Reader, opts Options) (*RunResult, error) {
	runCtx, finish := l.replace(ctx)
	defer finish()
	return Run(runCtx, r, opts)
}

func (l *Launcher) replace(ctx context.Context) (context.Context, func()) {
	l.mu.Lock()
	for l.cancel != nil {
		l.cancel()
		prev := l.done
		l.mu.Unlock()
		<-prev
		l.mu.Lock()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	l.mu.Unlock()

	return runCtx, func() {
		cancel()
		l.mu.Lock()
		if l.done == done {
			l.cancel, l.done = nil, nil
		}
		l.mu.Unlock()
		close(done)
	}
}

// Running reports whether a run is in progress.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}
