package lsp

import "testing"

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///tmp/demo/src/main.rs", "/tmp/demo/src/main.rs"},
		{"file:///tmp/with%20space/lib.rs", "/tmp/with space/lib.rs"},
		{"file:///tmp/demo/./src/../src/lib.rs", "/tmp/demo/src/lib.rs"},
		{"/tmp/plain.rs", "/tmp/plain.rs"},
		{"untitled:Untitled-1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := uriToPath(tt.uri); got != tt.want {
			t.Errorf("uriToPath(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestCanonicalURI(t *testing.T) {
	a := canonicalURI("file:///tmp/with%20space/lib.rs")
	b := canonicalURI("file:///tmp/with%20space/./lib.rs")
	if a == "" || a != b {
		t.Fatalf("canonical forms differ: %q vs %q", a, b)
	}
}

func TestPathWithinRoot(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/ws", "/ws", true},
		{"/ws", "/ws/src/main.rs", true},
		{"/ws", "/ws2/main.rs", false},
		{"/ws", "/other", false},
		{"", "/ws", false},
	}
	for _, tt := range tests {
		if got := pathWithinRoot(tt.root, tt.path); got != tt.want {
			t.Errorf("pathWithinRoot(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
		}
	}
}
