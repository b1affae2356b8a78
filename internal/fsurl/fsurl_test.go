package fsurl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestURLToPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	r := New(
		Mapping{Prefix: "/assets/", Root: root},
		Mapping{Prefix: "/static", Root: filepath.Join(root, "static")},
	)

	cases := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"plain path", "/assets/app.js", filepath.Join(root, "app.js"), true},
		{"nested path", "/assets/js/app.js", filepath.Join(root, "js", "app.js"), true},
		{"query stripped", "/assets/app.js?ver=1.2", filepath.Join(root, "app.js"), true},
		{"fragment stripped", "/assets/app.js#main", filepath.Join(root, "app.js"), true},
		{"absolute url", "https://cdn.example/assets/app.js", filepath.Join(root, "app.js"), true},
		{"protocol relative", "//cdn.example/assets/app.js", filepath.Join(root, "app.js"), true},
		{"second mapping", "/static/x.css", filepath.Join(root, "static", "x.css"), true},
		{"no prefix match", "/media/app.js", "", false},
		{"empty", "", "", false},
		{"host only", "https://cdn.example", "", false},
		{"traversal blocked", "/assets/../../etc/passwd", "", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := r.URLToPath(tc.url)
			if ok != tc.ok {
				t.Fatalf("URLToPath(%q) ok = %v, want %v", tc.url, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("URLToPath(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "app.js")
	if err := os.WriteFile(file, []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := New(Mapping{Prefix: "/assets/", Root: dir})
	if !r.Exists(file) {
		t.Fatalf("Exists(%q) = false for a regular file", file)
	}
	if r.Exists(filepath.Join(dir, "missing.js")) {
		t.Fatalf("Exists reported a missing file")
	}
	if r.Exists(dir) {
		t.Fatalf("Exists reported a directory")
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.js")
	if err := os.WriteFile(a, []byte("var x = 1;"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(b, []byte("var x = 2;"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := New(Mapping{Prefix: "/assets/", Root: dir})
	h1, err := r.ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	h2, err := r.ContentHash(a)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %q vs %q", h1, h2)
	}
	if len(h1) != 64 || strings.ToLower(h1) != h1 {
		t.Fatalf("hash %q is not lowercase 64-char hex", h1)
	}
	hb, err := r.ContentHash(b)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if hb == h1 {
		t.Fatalf("different content produced same hash")
	}
	if _, err := r.ContentHash(filepath.Join(dir, "missing.js")); err == nil {
		t.Fatalf("ContentHash accepted a missing file")
	}
}
