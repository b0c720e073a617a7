package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"owlsight/internal/decoration"
	"owlsight/internal/model"
	"owlsight/internal/source"
	"owlsight/internal/workspace"
)

const demoSource = "fn main() {\n    let x = 1;\n}\n"

func demoWorkspace() model.Workspace {
	span := model.Range{From: 20, Until: 21}
	decl := model.Declaration{
		Kind:  model.DeclUser,
		Local: model.NewFnLocal(1, 0),
		Name:  "x",
		Span:  &span,
		Ty:    "i32",
		Lives: []model.Range{{From: 16, Until: 25}},
	}
	fn := model.Function{Decls: []model.Declaration{decl}}
	return model.Workspace{"demo": model.Crate{"src/main.rs": model.File{Items: []model.Function{fn}}}}
}

// writeDemoProject creates a cargo project and a fact stream describing it.
func writeDemoProject(t *testing.T) (root, factsPath string) {
	t.Helper()
	root = t.TempDir()
	files := map[string]string{
		"Cargo.toml":  "[package]\nname = \"demo\"\n",
		"src/main.rs": demoSource,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	line, err := json.Marshal(demoWorkspace())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	factsPath = filepath.Join(root, "facts.ndjson")
	stream := `{"reason":"compiler-artifact","package_id":"demo 0.1.0","target":{"name":"demo"},"fresh":false}` + "\n" +
		"not json\n" + string(line) + "\n"
	if err := os.WriteFile(factsPath, []byte(stream), 0o600); err != nil {
		t.Fatalf("write facts: %v", err)
	}
	return root, factsPath
}

func TestCheckOnceWritesCache(t *testing.T) {
	root, factsPath := writeDemoProject(t)
	p, err := resolveProject(root, false)
	if err != nil {
		t.Fatalf("resolveProject: %v", err)
	}
	var out, errOut bytes.Buffer
	opts := checkOptions{facts: factsPath, timings: true, out: &out, errOut: &errOut}
	report, err := checkOnce(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("checkOnce: %v", err)
	}
	if report.status != workspace.StatusFinished {
		t.Fatalf("status = %s, want finished", report.status)
	}
	if report.result.Functions != 1 || report.result.Checked != 1 || report.result.Malformed != 1 {
		t.Fatalf("unexpected result: %+v", report.result)
	}

	cachePath := workspace.CachePath(p.CacheDir())
	ws, err := workspace.Load(cachePath)
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if ws.FunctionCount() != 1 {
		t.Fatalf("cache holds %d functions", ws.FunctionCount())
	}

	color.NoColor = true
	printReport(opts, p, report)
	for _, want := range []string{"1 functions", "1 crates checked", "1 malformed", "[finished]", "timings:", "analyze"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestCheckOnceEmptyStreamIsError(t *testing.T) {
	root, _ := writeDemoProject(t)
	empty := filepath.Join(root, "empty.ndjson")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := resolveProject(root, false)
	if err != nil {
		t.Fatalf("resolveProject: %v", err)
	}
	report, err := checkOnce(context.Background(), p, checkOptions{facts: empty, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("checkOnce: %v", err)
	}
	if report.status != workspace.StatusError {
		t.Fatalf("status = %s, want error", report.status)
	}
	if _, err := os.Stat(workspace.CachePath(p.CacheDir())); !os.IsNotExist(err) {
		t.Fatalf("cache.json written for an empty run: %v", err)
	}
}

func TestQueryCache(t *testing.T) {
	root, factsPath := writeDemoProject(t)
	p, err := resolveProject(root, false)
	if err != nil {
		t.Fatalf("resolveProject: %v", err)
	}
	if _, err := checkOnce(context.Background(), p, checkOptions{facts: factsPath, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}); err != nil {
		t.Fatalf("checkOnce: %v", err)
	}
	path := filepath.Join(p.Root, "src", "main.rs")
	text := source.NewText(demoSource)

	res, err := queryCache(p.Root, workspace.CachePath(p.CacheDir()), path, text, source.LineChar{Line: 1, Char: 8})
	if err != nil {
		t.Fatalf("queryCache: %v", err)
	}
	if !res.IsAnalyzed || res.Status != workspace.StatusFinished || len(res.Decorations) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	d := res.Decorations[0]
	if d.Type != decoration.KindLifetime || d.Range.Start != (source.LineChar{Line: 1, Char: 4}) || d.Range.End != (source.LineChar{Line: 1, Char: 13}) {
		t.Fatalf("unexpected decoration: %+v", d)
	}

	color.NoColor = true
	var out bytes.Buffer
	renderShowPretty(&out, "src/main.rs", text, res)
	if !strings.Contains(out.String(), "src/main.rs:2:5-2:14") {
		t.Fatalf("unexpected pretty output:\n%s", out.String())
	}
}

func TestQueryCacheWithoutAnalysis(t *testing.T) {
	root := t.TempDir()
	text := source.NewText(demoSource)
	res, err := queryCache(root, filepath.Join(root, "missing.json"), filepath.Join(root, "a.rs"), text, source.LineChar{})
	if err != nil {
		t.Fatalf("queryCache: %v", err)
	}
	if res.IsAnalyzed || res.Status != workspace.StatusError || res.Decorations == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	var out bytes.Buffer
	renderShowPretty(&out, "a.rs", text, res)
	if !strings.Contains(out.String(), "no cached analysis") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		in      string
		want    switchMode
		wantErr bool
	}{
		{"", switchAuto, false},
		{"AUTO", switchAuto, false},
		{" on ", switchOn, false},
		{"off", switchOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := parseSwitch("ui", tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseSwitch(%q) = %q, %v", tt.in, got, err)
		}
	}
	if !switchAuto.enabled(true) || switchAuto.enabled(false) || !switchOn.enabled(false) || switchOff.enabled(true) {
		t.Error("enabled does not resolve auto against the terminal")
	}
}

func TestResolveProjectBare(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveProject(dir, false); err == nil {
		t.Fatal("expected error without a manifest")
	}
	p, err := resolveProject(dir, true)
	if err != nil {
		t.Fatalf("resolveProject: %v", err)
	}
	if p.Root != dir || len(p.Config.Analyzer.Command) == 0 {
		t.Fatalf("unexpected project: %+v", p)
	}
}

func TestFormatPathForOutput(t *testing.T) {
	base := filepath.FromSlash("/proj")
	tests := []struct {
		target string
		want   string
	}{
		{filepath.FromSlash("/proj/target/owl/cache.json"), filepath.FromSlash("target/owl/cache.json")},
		{filepath.FromSlash("/other/x"), filepath.FromSlash("/other/x")},
	}
	for _, tt := range tests {
		if got := formatPathForOutput(base, tt.target); got != tt.want {
			t.Errorf("formatPathForOutput(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "json", "--hash"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	var info buildInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if info.Tool != "owlsight" || info.Version == "" || info.GitCommit == "" || info.BuildDate != "" {
		t.Fatalf("unexpected build info %+v", info)
	}
}
