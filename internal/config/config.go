// Package config loads the owlsight.toml project configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the decoded owlsight.toml.
type Config struct {
	Analyzer AnalyzerConfig `toml:"analyzer"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

// AnalyzerConfig describes the external command that emits the fact stream.
type AnalyzerConfig struct {
	Command []string          `toml:"command"`
	Env     map[string]string `toml:"env"`
	// Jobs limits concurrent function analyses; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

type CacheConfig struct {
	Dir  string `toml:"dir"`
	Disk bool   `toml:"disk"`
}

type ServerConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Default returns the configuration used when owlsight.toml is absent.
func Default() Config {
	return Config{
		Analyzer: AnalyzerConfig{
			Command: []string{"cargo", "check", "--all-targets", "--all-features", "--keep-going", "--message-format=json"},
			Env:     map[string]string{"RUSTC_WORKSPACE_WRAPPER": "owlsight-rustc"},
		},
		Cache: CacheConfig{
			Dir:  filepath.Join("target", "owl"),
			Disk: true,
		},
		Server: ServerConfig{DebounceMS: 100},
	}
}

// Project is a resolved project root with its configuration.
type Project struct {
	Root     string
	Manifest string // empty when the root came from Cargo.toml
	Config   Config
}

// CacheDir returns the absolute cache directory.
func (p *Project) CacheDir() string {
	dir := p.Config.Cache.Dir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.Root, dir)
}

// Debounce returns the server debounce delay.
func (p *Project) Debounce() time.Duration {
	return time.Duration(p.Config.Server.DebounceMS) * time.Millisecond
}

// Discover finds the project containing startDir and loads its config.
func Discover(startDir string) (*Project, error) {
	root, manifest, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if manifest != "" {
		if cfg, err = Load(manifest); err != nil {
			return nil, err
		}
	}
	return &Project{Root: root, Manifest: manifest, Config: cfg}, nil
}

// Load decodes path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("analyzer", "command") {
		if len(cfg.Analyzer.Command) == 0 || strings.TrimSpace(cfg.Analyzer.Command[0]) == "" {
			return Config{}, fmt.Errorf("%s: [analyzer].command must name a program", path)
		}
	}
	if cfg.Analyzer.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [analyzer].jobs must not be negative", path)
	}
	if meta.IsDefined("cache", "dir") && strings.TrimSpace(cfg.Cache.Dir) == "" {
		return Config{}, fmt.Errorf("%s: [cache].dir must not be empty", path)
	}
	if cfg.Server.DebounceMS < 0 {
		return Config{}, fmt.Errorf("%s: [server].debounce_ms must not be negative", path)
	}
	return cfg, nil
}
