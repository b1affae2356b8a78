package config

import (
	"encoding/json"
	"strings"
	"testing"

	"assetflow/internal/engine"
	"assetflow/internal/host"
	logx "assetflow/pkg/logx"
)

func boolp(b bool) *bool { return &b }

func TestCompileScriptEntry(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Scripts: []AssetConfig{{
			Handle:    "app",
			Src:       json.RawMessage(`"https://cdn.example/app.js"`),
			Deps:      []string{"vendor"},
			Version:   "2.1",
			Hook:      "footer",
			Priority:  20,
			Replace:   json.RawMessage(`true`),
			CacheBust: true,
			InFooter:  true,
		}},
	}

	m, err := Compile(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(m.Scripts) != 1 {
		t.Fatalf("scripts = %d, want 1", len(m.Scripts))
	}
	a := m.Scripts[0]
	if a.Kind != engine.KindScript {
		t.Fatalf("kind = %s", a.Kind)
	}
	if a.Source.URL != "https://cdn.example/app.js" {
		t.Fatalf("source = %+v", a.Source)
	}
	if !a.Replace || !a.CacheBust || a.Hook != "footer" || a.Priority != 20 {
		t.Fatalf("flags not carried: %+v", a)
	}
	if !a.Extra.InFooter {
		t.Fatalf("in_footer not carried")
	}
	if a.Condition != nil {
		t.Fatalf("enabled entries must not get a condition")
	}
}

func TestCompileReplaceMustBeBoolean(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
	}{
		{"string", `"yes"`},
		{"number", `1`},
		{"array", `[true]`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Scripts: []AssetConfig{{
				Handle:  "app",
				Src:     json.RawMessage(`"app.js"`),
				Replace: json.RawMessage(tc.raw),
			}}}
			_, err := Compile(cfg, logx.Nop())
			if err == nil {
				t.Fatalf("Compile accepted replace=%s", tc.raw)
			}
			if !strings.Contains(err.Error(), `"app"`) {
				t.Fatalf("error does not name the handle: %v", err)
			}
			if !strings.Contains(err.Error(), "replace must be a boolean") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCompileSourceShapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		raw     string
		want    engine.Source
		wantErr bool
	}{
		{"string", `"app.js"`, engine.Source{URL: "app.js"}, false},
		{"false means none", `false`, engine.Source{None: true}, false},
		{"missing means none", ``, engine.Source{None: true}, false},
		{"number casts", `42`, engine.Source{URL: "42"}, false},
		{"env map", `{"dev":"app.dev.js","prod":"app.min.js"}`,
			engine.Source{Env: map[string]string{"dev": "app.dev.js", "prod": "app.min.js"}}, false},
		{"env map casts scalars", `{"dev":7,"prod":"a.js"}`,
			engine.Source{Env: map[string]string{"dev": "7", "prod": "a.js"}}, false},
		{"true rejected", `true`, engine.Source{}, true},
		{"array rejected", `["a.js"]`, engine.Source{}, true},
		{"nested map rejected", `{"dev":{"x":1}}`, engine.Source{}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var raw json.RawMessage
			if tc.raw != "" {
				raw = json.RawMessage(tc.raw)
			}
			got, err := parseSource(raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseSource(%s) accepted, got %+v", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSource(%s) error: %v", tc.raw, err)
			}
			if got.URL != tc.want.URL || got.None != tc.want.None {
				t.Fatalf("parseSource(%s) = %+v, want %+v", tc.raw, got, tc.want)
			}
			if len(got.Env) != len(tc.want.Env) {
				t.Fatalf("env = %+v, want %+v", got.Env, tc.want.Env)
			}
			for k, v := range tc.want.Env {
				if got.Env[k] != v {
					t.Fatalf("env[%s] = %q, want %q", k, got.Env[k], v)
				}
			}
		})
	}
}

func TestCompileDisabledEntryGetsFalseCondition(t *testing.T) {
	t.Parallel()
	cfg := &Config{Styles: []AssetConfig{{
		Handle:  "theme",
		Src:     json.RawMessage(`"theme.css"`),
		Enabled: boolp(false),
	}}}

	m, err := Compile(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	a := m.Styles[0]
	if a.Condition == nil || a.Condition() {
		t.Fatalf("disabled entry must compile to a false condition")
	}
}

func TestCompileEntryWithoutHandleFails(t *testing.T) {
	t.Parallel()
	cfg := &Config{Styles: []AssetConfig{{Src: json.RawMessage(`"x.css"`)}}}
	if _, err := Compile(cfg, logx.Nop()); err == nil {
		t.Fatalf("Compile accepted a style entry without handle")
	}
}

func TestCompileInlineValidation(t *testing.T) {
	t.Parallel()
	cfg := &Config{Inline: []InlineConfig{
		{Kind: "Script", Parent: "app", Content: "x()", Position: "BEFORE"},
		{Kind: "style", Parent: "theme", Content: ".x{}"},
	}}

	m, err := Compile(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	scripts := m.Inline[engine.KindScript]
	if len(scripts) != 1 || scripts[0].Position != host.InlineBefore {
		t.Fatalf("script inline = %+v", scripts)
	}
	if len(m.Inline[engine.KindStyle]) != 1 {
		t.Fatalf("style inline = %+v", m.Inline[engine.KindStyle])
	}

	bad := &Config{Inline: []InlineConfig{{Kind: "font", Parent: "x", Content: "y"}}}
	if _, err := Compile(bad, logx.Nop()); err == nil {
		t.Fatalf("Compile accepted unknown inline kind")
	}
	bad = &Config{Inline: []InlineConfig{{Kind: "script", Parent: "x", Content: "y", Position: "middle"}}}
	if _, err := Compile(bad, logx.Nop()); err == nil {
		t.Fatalf("Compile accepted unknown inline position")
	}
}

func TestCompileDeregisterEntries(t *testing.T) {
	t.Parallel()
	cfg := &Config{Deregister: []json.RawMessage{
		json.RawMessage(`"old-widget"`),
		json.RawMessage(`{"handle":"legacy","hook":"footer","priority":10,"immediate":true}`),
		json.RawMessage(`{"hook":"footer"}`),      // no handle: skipped
		json.RawMessage(`{"handel":"typo"}`),      // unknown field: skipped
		json.RawMessage(`42`),                     // wrong shape: skipped
		json.RawMessage(`""`),                     // empty handle: skipped
	}}

	m, err := Compile(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(m.Deregister) != 2 {
		t.Fatalf("deregister = %+v, want 2 entries", m.Deregister)
	}
	if m.Deregister[0] != (engine.DeregisterRequest{Handle: "old-widget"}) {
		t.Fatalf("deregister[0] = %+v", m.Deregister[0])
	}
	want := engine.DeregisterRequest{Handle: "legacy", Hook: "footer", Priority: 10, Immediate: true}
	if m.Deregister[1] != want {
		t.Fatalf("deregister[1] = %+v, want %+v", m.Deregister[1], want)
	}
}
