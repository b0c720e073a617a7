package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"owlsight/internal/config"
	"owlsight/internal/decoration"
	"owlsight/internal/driver"
	"owlsight/internal/model"
	"owlsight/internal/workspace"
)

func TestInitializeAndExit(t *testing.T) {
	in := frame(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"rootUri":"file:///tmp","capabilities":{"window":{"workDoneProgress":true}}}}`,
		`{"jsonrpc":"2.0","method":"initialized","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"owlsight/unknown"}`,
		`{"jsonrpc":"2.0","id":3,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	)
	var out bytes.Buffer
	s := NewServer(in, &out, ServerOptions{Log: &bytes.Buffer{}})
	if err := s.Run(context.Background()); !errors.Is(err, ErrExit) {
		t.Fatalf("Run = %v, want ErrExit", err)
	}

	msgs := readAll(t, out.Bytes())
	if len(msgs) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(msgs))
	}
	var initRes initializeResult
	if err := json.Unmarshal(msgs[0].Result, &initRes); err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	if initRes.ServerInfo.Name != "owlsight" {
		t.Fatalf("server name = %q", initRes.ServerInfo.Name)
	}
	if !initRes.Capabilities.TextDocumentSync.Save || initRes.Capabilities.TextDocumentSync.Change != 1 {
		t.Fatalf("unexpected sync options: %+v", initRes.Capabilities.TextDocumentSync)
	}
	if msgs[1].Error == nil || msgs[1].Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", msgs[1])
	}
	if !s.workDoneProgress() {
		t.Fatal("expected workDoneProgress to be recorded")
	}
	if got := s.folders; len(got) != 1 || got[0] != canonicalPath("/tmp") {
		t.Fatalf("folders = %v", got)
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	in := frame(t, `{"jsonrpc":"2.0","method":"exit"}`)
	s := NewServer(in, &bytes.Buffer{}, ServerOptions{Log: &bytes.Buffer{}})
	if err := s.Run(context.Background()); !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("Run = %v, want ErrExitWithoutShutdown", err)
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	s := NewServer(bytes.NewReader(nil), &bytes.Buffer{}, ServerOptions{Log: &bytes.Buffer{}})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}

func TestCursorAfterAnalysis(t *testing.T) {
	proj := newTestProject(t)
	var out bytes.Buffer
	s := newTestServer(&out, fixedAnalyze(mainWorkspace()))

	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: proj.uri, LanguageID: "rust", Version: 1, Text: mainSource},
	})
	settle(s)

	res := s.cursor(cursorParams{Position: position{Line: 1, Character: 8}, Document: textDocumentIdentifier{URI: proj.uri}})
	if !res.IsAnalyzed || res.Status != workspace.StatusFinished {
		t.Fatalf("unexpected state: analyzed=%v status=%s", res.IsAnalyzed, res.Status)
	}
	if res.Path == nil || *res.Path != proj.path {
		t.Fatalf("path = %v, want %s", res.Path, proj.path)
	}
	if len(res.Decorations) != 1 {
		t.Fatalf("expected 1 decoration, got %+v", res.Decorations)
	}
	got := res.Decorations[0]
	if got.Type != decoration.KindLifetime {
		t.Fatalf("type = %s, want lifetime", got.Type)
	}
	want := lspRange{Start: position{Line: 1, Character: 4}, End: position{Line: 1, Character: 13}}
	if got.Range != want {
		t.Fatalf("range = %+v, want %+v", got.Range, want)
	}
	if got.HoverText != "lifetime of variable `x`" {
		t.Fatalf("hover = %q", got.HoverText)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["status"] != "finished" || raw["is_analyzed"] != true {
		t.Fatalf("unexpected json: %s", data)
	}

	cache, err := workspace.Load(filepath.Join(proj.root, "target", "owl", workspace.CacheFile))
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if cache.FunctionCount() != 1 {
		t.Fatalf("cache holds %d functions, want 1", cache.FunctionCount())
	}
}

func TestCursorRequestResponse(t *testing.T) {
	proj := newTestProject(t)
	var out bytes.Buffer
	s := newTestServer(&out, fixedAnalyze(mainWorkspace()))
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	settle(s)

	params, _ := json.Marshal(cursorParams{Position: position{Line: 0, Character: 0}, Document: textDocumentIdentifier{URI: proj.uri}})
	if err := s.handleMessage(&rpcMessage{ID: json.RawMessage("7"), Method: "owlsight/cursor", Params: params}); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	msgs := readAll(t, out.Bytes())
	if len(msgs) != 1 || string(msgs[0].ID) != "7" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	var res cursorResult
	if err := json.Unmarshal(msgs[0].Result, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Decorations == nil || len(res.Decorations) != 0 {
		t.Fatalf("expected empty decorations outside any variable, got %+v", res.Decorations)
	}
	if res.Status != workspace.StatusFinished {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestCursorDirtyDocument(t *testing.T) {
	proj := newTestProject(t)
	s := newTestServer(&bytes.Buffer{}, fixedAnalyze(mainWorkspace()))
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	settle(s)

	call(t, s, "textDocument/didChange", didChangeTextDocumentParams{TextDocument: versionedTextDocumentIdentifier{URI: proj.uri, Version: 2}})
	pos := cursorParams{Position: position{Line: 1, Character: 8}, Document: textDocumentIdentifier{URI: proj.uri}}
	if res := s.cursor(pos); len(res.Decorations) != 0 || res.Path == nil {
		t.Fatalf("dirty document: %+v", res)
	}

	call(t, s, "textDocument/didSave", didSaveTextDocumentParams{TextDocument: textDocumentIdentifier{URI: proj.uri}})
	settle(s)
	if res := s.cursor(pos); len(res.Decorations) != 1 {
		t.Fatalf("saved document: %+v", res)
	}
}

func TestCursorUnknownFile(t *testing.T) {
	proj := newTestProject(t)
	s := newTestServer(&bytes.Buffer{}, fixedAnalyze(mainWorkspace()))
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	settle(s)

	other := filepath.Join(proj.root, "src", "lib.rs")
	if err := os.WriteFile(other, []byte("pub fn f() {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := s.cursor(cursorParams{Document: textDocumentIdentifier{URI: pathToURI(other)}})
	if res.Status != workspace.StatusError || len(res.Decorations) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	missing := s.cursor(cursorParams{Document: textDocumentIdentifier{URI: pathToURI(filepath.Join(proj.root, "nope.rs"))}})
	if missing.Path != nil || missing.Decorations == nil {
		t.Fatalf("missing file: %+v", missing)
	}
}

func TestAnalysisFailureKeepsSnapshot(t *testing.T) {
	proj := newTestProject(t)
	fail := false
	analyze := func(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error) {
		if fail {
			return nil, errors.New("cargo exploded")
		}
		ws := mainWorkspace()
		return &driver.RunResult{Workspace: ws, Functions: 1}, nil
	}
	s := newTestServer(&bytes.Buffer{}, analyze)
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	settle(s)

	fail = true
	settle(s)
	if got := s.store.Status(); got != workspace.StatusError {
		t.Fatalf("status = %s, want error", got)
	}
	res := s.cursor(cursorParams{Position: position{Line: 1, Character: 8}, Document: textDocumentIdentifier{URI: proj.uri}})
	if len(res.Decorations) != 1 {
		t.Fatalf("previous snapshot lost: %+v", res)
	}
}

func TestCancelledAnalysisIsAborted(t *testing.T) {
	proj := newTestProject(t)
	analyze := func(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := newTestServer(&bytes.Buffer{}, analyze)
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runAnalysis(ctx)
	if got := s.store.Status(); got != workspace.StatusFinished {
		t.Fatalf("status = %s, want finished", got)
	}
}

func TestProgressNotifications(t *testing.T) {
	proj := newTestProject(t)
	var out bytes.Buffer
	s := newTestServer(&out, fixedAnalyze(mainWorkspace()))
	s.progressSupported = true
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	settle(s)

	msgs := readAll(t, out.Bytes())
	if len(msgs) != 4 {
		t.Fatalf("expected create, begin, report, end; got %d messages", len(msgs))
	}
	if msgs[0].Method != "window/workDoneProgress/create" {
		t.Fatalf("first message = %q", msgs[0].Method)
	}
	kinds := make([]string, 0, 3)
	for _, m := range msgs[1:] {
		if m.Method != "$/progress" {
			t.Fatalf("unexpected method %q", m.Method)
		}
		var p struct {
			Value struct {
				Kind       string `json:"kind"`
				Percentage *int   `json:"percentage"`
			} `json:"value"`
		}
		if err := json.Unmarshal(m.Params, &p); err != nil {
			t.Fatalf("decode progress: %v", err)
		}
		if p.Value.Kind == "report" && (p.Value.Percentage == nil || *p.Value.Percentage != 50) {
			t.Fatalf("report percentage = %v, want 50", p.Value.Percentage)
		}
		kinds = append(kinds, p.Value.Kind)
	}
	if kinds[0] != "begin" || kinds[1] != "report" || kinds[2] != "end" {
		t.Fatalf("progress kinds = %v", kinds)
	}
	if got := s.expectedUnits(proj.root); got != 1 {
		t.Fatalf("expected units = %d, want 1", got)
	}
}

func TestCacheLoadedOnOpen(t *testing.T) {
	proj := newTestProject(t)
	cachePath := filepath.Join(proj.root, "target", "owl", workspace.CacheFile)
	if err := workspace.Save(cachePath, mainWorkspace()); err != nil {
		t.Fatalf("save: %v", err)
	}
	never := func(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error) {
		return &driver.RunResult{Workspace: model.Workspace{}}, nil
	}
	s := newTestServer(&bytes.Buffer{}, never)
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})

	res := s.cursor(cursorParams{Position: position{Line: 1, Character: 8}, Document: textDocumentIdentifier{URI: proj.uri}})
	if !res.IsAnalyzed || len(res.Decorations) != 1 {
		t.Fatalf("cached snapshot not served: %+v", res)
	}
}

func TestConfigurationTrace(t *testing.T) {
	s := newTestServer(&bytes.Buffer{}, nil)
	call(t, s, "workspace/didChangeConfiguration", map[string]any{"settings": map[string]any{"owlsight": map[string]any{"trace": true}}})
	if !s.currentTrace() {
		t.Fatal("expected trace to be enabled")
	}
}

func TestConfigurationDebounce(t *testing.T) {
	s := newTestServer(&bytes.Buffer{}, nil)
	call(t, s, "initialize", map[string]any{"initializationOptions": map[string]any{"debounceMs": 250}})
	if s.debounce != 250*time.Millisecond {
		t.Fatalf("debounce after initialize = %v", s.debounce)
	}
	call(t, s, "workspace/didChangeConfiguration", map[string]any{"settings": map[string]any{"owlsight": map[string]any{"debounceMs": 60000}}})
	if s.debounce != maxDebounce {
		t.Fatalf("debounce = %v, want clamp to %v", s.debounce, maxDebounce)
	}
	call(t, s, "workspace/didChangeConfiguration", map[string]any{"settings": "bogus"})
	if s.debounce != maxDebounce {
		t.Fatalf("malformed settings changed debounce to %v", s.debounce)
	}
}

func TestWorkspaceFoldersLimitProjects(t *testing.T) {
	proj := newTestProject(t)
	s := newTestServer(&bytes.Buffer{}, fixedAnalyze(mainWorkspace()))
	s.folders = []string{canonicalPath(t.TempDir())}
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	if len(s.projectList()) != 0 {
		t.Fatal("project outside workspace folders was registered")
	}

	call(t, s, "workspace/didChangeWorkspaceFolders", didChangeWorkspaceFoldersParams{
		Event: workspaceFoldersChangeEvent{Added: []workspaceFolder{{URI: pathToURI(proj.root)}}},
	})
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	if got := s.projectList(); len(got) != 1 || got[0].Root != proj.root {
		t.Fatalf("projects = %v", got)
	}
}

func TestDebouncedAnalysis(t *testing.T) {
	proj := newTestProject(t)
	done := make(chan struct{}, 4)
	analyze := func(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error) {
		defer func() { done <- struct{}{} }()
		return &driver.RunResult{Workspace: mainWorkspace(), Functions: 1}, nil
	}
	s := NewServer(bytes.NewReader(nil), &bytes.Buffer{}, ServerOptions{
		Debounce: time.Millisecond,
		Analyze:  analyze,
		Log:      &bytes.Buffer{},
	})
	call(t, s, "textDocument/didOpen", didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: proj.uri}})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("analysis did not run")
	}
	s.stopRuns()
	if !s.store.Analyzed() {
		t.Fatal("expected analyzed store")
	}
}
