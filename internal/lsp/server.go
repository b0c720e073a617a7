// Package lsp serves owlsight over stdio JSON-RPC: document lifecycle,
// background analysis with work-done progress, and owlsight/cursor queries.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"owlsight/internal/config"
	"owlsight/internal/driver"
	"owlsight/internal/version"
	"owlsight/internal/workspace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
	// ErrClientGone is returned when the editor process announced in
	// initialize no longer exists.
	ErrClientGone = errors.New("lsp client process is gone")
)

// AnalyzeFunc runs one analysis of project p.
type AnalyzeFunc func(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Debounce time.Duration
	// Analyze replaces the external analyzer command.
	Analyze AnalyzeFunc
	// Cache is the per-function disk cache; nil disables it.
	Cache *driver.DiskCache
	// AnalyzerStderr receives the analyzer's stderr; nil discards it.
	AnalyzerStderr io.Writer
	// Log receives server messages; defaults to os.Stderr.
	Log io.Writer
	// LivenessInterval is how often the client pid is checked.
	LivenessInterval time.Duration
}

type document struct {
	path  string
	dirty bool
}

// Server handles stdio JSON-RPC for owlsight.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	mu     sync.Mutex

	docs     map[string]*document // by canonical uri
	folders  []string
	projects map[string]*config.Project
	checked  map[string]int // artifacts seen in the last run, by root

	store    *workspace.Store
	launcher driver.Launcher
	analyze  AnalyzeFunc
	cache    *driver.DiskCache

	shutdownRequested bool
	stopped           bool
	progressSupported bool
	clientPID         int
	traceLSP          bool

	debounce         time.Duration
	debounceTimer    *time.Timer
	runCancel        context.CancelFunc
	runSeq           uint64
	progressSeq      uint64
	requestSeq       uint64
	baseCtx          context.Context
	runs             sync.WaitGroup
	analyzerStderr   io.Writer
	log              io.Writer
	livenessInterval time.Duration
	clientGone       chan struct{}
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	logw := opts.Log
	if logw == nil {
		logw = os.Stderr
	}
	stderr := opts.AnalyzerStderr
	if stderr == nil {
		stderr = io.Discard
	}
	interval := opts.LivenessInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	s := &Server{
		in:               bufio.NewReader(in),
		out:              bufio.NewWriter(out),
		docs:             make(map[string]*document),
		projects:         make(map[string]*config.Project),
		checked:          make(map[string]int),
		store:            workspace.NewStore(),
		cache:            opts.Cache,
		debounce:         debounce,
		baseCtx:          context.Background(),
		analyzerStderr:   stderr,
		log:              logw,
		livenessInterval: interval,
		clientGone:       make(chan struct{}),
	}
	s.analyze = opts.Analyze
	if s.analyze == nil {
		s.analyze = s.launch
	}
	return s
}

type incoming struct {
	payload []byte
	err     error
}

// Run serves LSP requests until exit, EOF, ctx cancellation or the loss
// of the client process.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	defer s.stopRuns()

	msgs := make(chan incoming)
	go func() {
		for {
			payload, err := readMessage(s.in)
			select {
			case msgs <- incoming{payload: payload, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var in incoming
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clientGone:
			return ErrClientGone
		case in = <-msgs:
		}
		if in.err != nil {
			if errors.Is(in.err, io.EOF) {
				return nil
			}
			return in.err
		}
		var msg rpcMessage
		if err := json.Unmarshal(in.payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			// response to one of our requests
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/didChangeWorkspaceFolders":
		return s.handleDidChangeWorkspaceFolders(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "owlsight/cursor":
		return s.handleCursor(msg)
	case "owlsight/analyze":
		return s.handleAnalyze(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	var folders []string
	for _, f := range params.WorkspaceFolders {
		if p := uriToPath(f.URI); p != "" {
			folders = append(folders, p)
		}
	}
	if len(folders) == 0 {
		root := uriToPath(params.RootURI)
		if root == "" && params.RootPath != "" {
			root = canonicalPath(params.RootPath)
		}
		if root != "" {
			folders = append(folders, root)
		}
	}

	if len(params.InitializationOptions) > 0 {
		var opts owlsightSettings
		if err := json.Unmarshal(params.InitializationOptions, &opts); err == nil {
			s.applySettings(opts)
		}
	}

	s.mu.Lock()
	s.folders = folders
	s.progressSupported = params.Capabilities.Window != nil && params.Capabilities.Window.WorkDoneProgress
	if params.ProcessID != nil {
		s.clientPID = *params.ProcessID
	}
	pid := s.clientPID
	s.mu.Unlock()
	if pid > 0 {
		go s.watchClient(pid)
	}

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    1,
				Save:      true,
			},
			Workspace: workspaceServerCapabilities{
				WorkspaceFolders: workspaceFoldersServerCapabilities{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
		ServerInfo: serverInfo{Name: "owlsight", Version: version.Version},
	}
	return s.sendResponse(msg.ID, result)
}

// watchClient stops the server once the editor process exits.
func (s *Server) watchClient(pid int) {
	ticker := time.NewTicker(s.livenessInterval)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		ctx := s.baseCtx
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !processAlive(pid) {
			s.logf("client process %d is gone", pid)
			close(s.clientGone)
			return
		}
	}
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopRuns()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidChangeWorkspaceFolders(msg *rpcMessage) error {
	var params didChangeWorkspaceFoldersParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range params.Event.Removed {
		path := uriToPath(f.URI)
		for i, cur := range s.folders {
			if cur == path {
				s.folders = append(s.folders[:i], s.folders[i+1:]...)
				break
			}
		}
	}
	for _, f := range params.Event.Added {
		if path := uriToPath(f.URI); path != "" {
			s.folders = append(s.folders, path)
		}
	}
	return nil
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	path := uriToPath(uri)
	s.mu.Lock()
	s.docs[uri] = &document{path: path}
	s.mu.Unlock()

	if _, added := s.registerRoot(path); added {
		s.scheduleAnalysis()
	}
	return nil
}

// handleDidChange stops the running analysis: its facts no longer match
// the buffer. Queries on the document stay empty until the next save.
func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &document{path: uriToPath(uri)}
		s.docs[uri] = doc
	}
	doc.dirty = true
	trace := s.traceLSP
	s.mu.Unlock()
	if trace {
		s.logf("didChange: uri=%s version=%d", uri, params.TextDocument.Version)
	}
	s.cancelRun()
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	path := uriToPath(uri)
	s.mu.Lock()
	if doc, ok := s.docs[uri]; ok {
		doc.dirty = false
	}
	s.mu.Unlock()
	s.registerRoot(path)
	s.scheduleAnalysis()
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
	return nil
}

func (s *Server) handleAnalyze(msg *rpcMessage) error {
	s.mu.Lock()
	s.runSeq++
	seq := s.runSeq
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.mu.Unlock()
	s.startAnalysis(seq)
	if len(msg.ID) == 0 {
		return nil
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func (s *Server) sendRequest(method string, params any) error {
	s.mu.Lock()
	s.requestSeq++
	id := strconv.FormatUint(s.requestSeq, 10)
	s.mu.Unlock()
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      "owlsight-" + id,
		"method":  method,
		"params":  params,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(s.log, "lsp: "+format+"\n", args...)
}
