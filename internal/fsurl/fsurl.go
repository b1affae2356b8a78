// Package fsurl maps public asset URLs onto the local filesystem and
// hashes file content for cache-busting tokens.
package fsurl

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// Mapping ties one public URL prefix to a local root directory.
// "/assets/" -> "./public/assets" means /assets/app.js resolves to
// ./public/assets/app.js.
type Mapping struct {
	Prefix string
	Root   string
}

// Resolver implements host.Paths over a prefix table.
type Resolver struct {
	mappings []Mapping
}

func New(mappings ...Mapping) *Resolver {
	ms := make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		m.Prefix = strings.TrimSpace(m.Prefix)
		m.Root = strings.TrimSpace(m.Root)
		if m.Prefix == "" || m.Root == "" {
			continue
		}
		ms = append(ms, m)
	}
	return &Resolver{mappings: ms}
}

// URLToPath maps url to a local path via the first matching prefix.
// Absolute URLs pointing off-host (scheme + host we don't serve) and URLs
// matching no prefix report false.
func (r *Resolver) URLToPath(url string) (string, bool) {
	u := strings.TrimSpace(url)
	if u == "" {
		return "", false
	}
	// Strip query/fragment; tokens and anchors never change the file.
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	// Protocol-relative and absolute URLs: keep only the path part.
	if strings.HasPrefix(u, "//") {
		u = trimHost(u[2:])
	} else if i := strings.Index(u, "://"); i >= 0 {
		u = trimHost(u[i+3:])
	}
	if u == "" {
		return "", false
	}

	for _, m := range r.mappings {
		if !strings.HasPrefix(u, m.Prefix) {
			continue
		}
		rel := strings.TrimPrefix(u, m.Prefix)
		rel = strings.TrimPrefix(rel, "/")
		p := filepath.Join(m.Root, filepath.FromSlash(rel))
		// A crafted "../" path must not escape the mapped root.
		if !strings.HasPrefix(p, filepath.Clean(m.Root)+string(filepath.Separator)) && p != filepath.Clean(m.Root) {
			return "", false
		}
		return p, true
	}
	return "", false
}

func trimHost(s string) string {
	if i := strings.Index(s, "/"); i >= 0 {
		return s[i:]
	}
	return ""
}

func (r *Resolver) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// ContentHash returns the hex BLAKE3 digest of the file content.
// Callers truncate it to taste.
func (r *Resolver) ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
