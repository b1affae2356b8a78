package memhost

import (
	"html"
	"sort"
	"strings"

	logx "assetflow/pkg/logx"
)

// RenderHead returns the tags delivered in the document head: every
// activated style, and every activated script not marked for the footer.
// Dependencies render before their dependents.
func (r *Registry) RenderHead() string {
	return r.render(false)
}

// RenderFooter returns the footer script tags. Styles never render here.
func (r *Registry) RenderFooter() string {
	if r.kind != "script" {
		return ""
	}
	return r.render(true)
}

func (r *Registry) render(footer bool) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, h := range r.order {
		r.renderOne(&b, h, footer, seen)
	}
	return b.String()
}

// renderOne emits handle's dependencies first, then the handle itself.
// A dependency only needs to be registered to render; activation of the
// dependent pulls it in. Missing dependencies are logged and skipped.
func (r *Registry) renderOne(b *strings.Builder, handle string, footer bool, seen map[string]bool) {
	if seen[handle] {
		return
	}
	it, ok := r.items[handle]
	if !ok {
		r.log.Debug("dependency not registered, skipped", logx.String("handle", handle))
		return
	}
	seen[handle] = true

	for _, dep := range it.deps {
		r.renderOne(b, dep, footer, seen)
	}

	if footer != it.extra.InFooter && r.kind == "script" {
		// Wrong half of the document; the other render pass takes it.
		// Undo the seen mark so that pass still emits it.
		seen[handle] = false
		return
	}

	src := it.src
	if it.version != "" {
		sep := "?"
		if strings.Contains(src, "?") {
			sep = "&"
		}
		src += sep + "ver=" + it.version
	}

	switch r.kind {
	case "script":
		for _, c := range it.inlineBefore {
			b.WriteString("<script>")
			b.WriteString(c)
			b.WriteString("</script>\n")
		}
		b.WriteString(`<script src="`)
		b.WriteString(html.EscapeString(src))
		b.WriteString(`"`)
		writeAttrs(b, it.extra.Attributes)
		b.WriteString("></script>\n")
		for _, c := range it.inlineAfter {
			b.WriteString("<script>")
			b.WriteString(c)
			b.WriteString("</script>\n")
		}
	case "style":
		b.WriteString(`<link rel="stylesheet" href="`)
		b.WriteString(html.EscapeString(src))
		b.WriteString(`"`)
		if it.extra.Media != "" {
			b.WriteString(` media="` + html.EscapeString(it.extra.Media) + `"`)
		}
		writeAttrs(b, it.extra.Attributes)
		b.WriteString(">\n")
		for _, c := range it.inlineAfter {
			b.WriteString("<style>")
			b.WriteString(c)
			b.WriteString("</style>\n")
		}
	}
}

func writeAttrs(b *strings.Builder, attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		if v := attrs[k]; v != "" {
			b.WriteString(`="` + html.EscapeString(v) + `"`)
		}
	}
}
