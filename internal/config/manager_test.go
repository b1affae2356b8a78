package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestManagerParseYAML(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "assetflow.yaml", `
environment: dev
default_key: default
logging:
  level: debug
scripts:
  - handle: app
    src: app.js
    cache_bust: true
styles:
  - handle: theme
    src:
      dev: theme.dev.css
      prod: theme.min.css
`)
	m := NewManager(p)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Environment != "dev" || cfg.Logging.Level != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Scripts) != 1 || cfg.Scripts[0].Handle != "app" {
		t.Fatalf("scripts = %+v", cfg.Scripts)
	}
	if len(cfg.Styles) != 1 || len(cfg.Styles[0].Src) == 0 {
		t.Fatalf("styles = %+v", cfg.Styles)
	}
}

func TestManagerParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "assetflow.yaml", `
environment: dev
scriptz:
  - handle: app
`)
	m := NewManager(p)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("Parse accepted unknown top-level key")
	}
}

func TestManagerParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "assetflow.json", `{"environment":"dev"}{"environment":"prod"}`)
	m := NewManager(p)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("Parse accepted concatenated JSON documents")
	}
}

func TestManagerLoadCommitsAndGet(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "assetflow.json", `{"environment":"prod"}`)
	m := NewManager(p)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get() = %p, want the committed config %p", got, cfg)
	}
}
