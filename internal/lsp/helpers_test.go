package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"owlsight/internal/config"
	"owlsight/internal/driver"
	"owlsight/internal/model"
)

const mainSource = "fn main() {\n    let x = 1;\n}\n"

// testProject is a cargo project with a single src/main.rs.
type testProject struct {
	root string
	path string
	uri  string
}

func newTestProject(t *testing.T) testProject {
	t.Helper()
	root := canonicalPath(t.TempDir())
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	path := filepath.Join(root, "src", "main.rs")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(mainSource), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return testProject{root: root, path: path, uri: pathToURI(path)}
}

// mainWorkspace has `x` declared at line 1 col 8 and alive for the rest of
// that line.
func mainWorkspace() model.Workspace {
	span := model.Range{From: 20, Until: 21}
	decl := model.Declaration{
		Kind:  model.DeclUser,
		Local: model.NewFnLocal(1, 0),
		Name:  "x",
		Span:  &span,
		Ty:    "i32",
		Lives: []model.Range{{From: 16, Until: 25}},
	}
	fn := model.Function{FnID: 0, Decls: []model.Declaration{decl}}
	return model.Workspace{"demo": model.Crate{"src/main.rs": model.File{Items: []model.Function{fn}}}}
}

func fixedAnalyze(ws model.Workspace) AnalyzeFunc {
	return func(ctx context.Context, p *config.Project, opts driver.Options) (*driver.RunResult, error) {
		if opts.Sink != nil {
			opts.Sink.OnEvent(driver.Event{Unit: "demo", Stage: driver.StageCheck, Status: driver.StatusDone, Checked: 1, Expected: 2})
		}
		return &driver.RunResult{Workspace: ws, Functions: ws.FunctionCount(), Checked: 1}, nil
	}
}

func newTestServer(out *bytes.Buffer, analyze AnalyzeFunc) *Server {
	var logs bytes.Buffer
	s := NewServer(bytes.NewReader(nil), out, ServerOptions{
		Debounce: time.Hour,
		Analyze:  analyze,
		Log:      &logs,
	})
	return s
}

func call(t *testing.T, s *Server, method string, params any) {
	t.Helper()
	payload, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal %s: %v", method, err)
	}
	if err := s.handleMessage(&rpcMessage{Method: method, Params: payload}); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

// settle stops the pending debounce and runs the analysis inline.
func settle(s *Server) {
	s.mu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.mu.Unlock()
	s.runAnalysis(context.Background())
}

func readAll(t *testing.T, out []byte) []rpcMessage {
	t.Helper()
	reader := bufio.NewReader(bytes.NewReader(out))
	var msgs []rpcMessage
	for {
		payload, err := readMessage(reader)
		if err != nil {
			return msgs
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		msgs = append(msgs, msg)
	}
}

func frame(t *testing.T, msgs ...string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		if err := writeMessage(&buf, []byte(m)); err != nil {
			t.Fatalf("frame: %v", err)
		}
	}
	return &buf
}
