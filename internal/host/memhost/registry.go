package memhost

import (
	"assetflow/internal/host"
	logx "assetflow/pkg/logx"
)

type entry struct {
	handle  string
	src     string
	deps    []string
	version string
	extra   host.Extra

	activated    bool
	inlineBefore []string
	inlineAfter  []string
}

// Registry is one kind's in-memory resource registry. Script and Style
// engines each get their own instance.
type Registry struct {
	kind string
	log  logx.Logger

	items map[string]*entry
	// activation order, first-activated first; rendering respects it
	// after dependency ordering
	order []string

	// protected handles refuse deactivate/deregister, mimicking hosts
	// that pin core-owned resources
	protected map[string]bool
}

func NewRegistry(kind string, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{
		kind:      kind,
		log:       log.With(logx.String("registry", kind)),
		items:     map[string]*entry{},
		protected: map[string]bool{},
	}
}

// Protect marks a handle as host-owned: deactivate and deregister become
// no-ops for it, the way a real host pins its bundled resources.
func (r *Registry) Protect(handle string) { r.protected[handle] = true }

func (r *Registry) IsRegistered(handle string) bool {
	_, ok := r.items[handle]
	return ok
}

func (r *Registry) IsActivated(handle string) bool {
	it, ok := r.items[handle]
	return ok && it.activated
}

func (r *Registry) Register(handle, src string, deps []string, version string, extra host.Extra) bool {
	if handle == "" {
		return false
	}
	prev := r.items[handle]
	it := &entry{handle: handle, src: src, deps: append([]string(nil), deps...), version: version, extra: extra}
	if prev != nil {
		// Re-registration keeps activation state and inline payloads.
		it.activated = prev.activated
		it.inlineBefore = prev.inlineBefore
		it.inlineAfter = prev.inlineAfter
	}
	r.items[handle] = it
	r.log.Debug("registered", logx.String("handle", handle), logx.String("src", src))
	return true
}

func (r *Registry) Activate(handle string) {
	it, ok := r.items[handle]
	if !ok || it.activated {
		return
	}
	it.activated = true
	r.order = append(r.order, handle)
}

func (r *Registry) Deactivate(handle string) {
	if r.protected[handle] {
		r.log.Debug("deactivate refused, protected", logx.String("handle", handle))
		return
	}
	it, ok := r.items[handle]
	if !ok || !it.activated {
		return
	}
	it.activated = false
	kept := r.order[:0]
	for _, h := range r.order {
		if h != handle {
			kept = append(kept, h)
		}
	}
	r.order = kept
}

func (r *Registry) Deregister(handle string) {
	if r.protected[handle] {
		r.log.Debug("deregister refused, protected", logx.String("handle", handle))
		return
	}
	if it, ok := r.items[handle]; ok && it.activated {
		r.Deactivate(handle)
	}
	delete(r.items, handle)
}

func (r *Registry) AttachInline(handle, content string, pos host.InlinePosition) bool {
	it, ok := r.items[handle]
	if !ok || content == "" {
		return false
	}
	if pos == host.InlineBefore {
		it.inlineBefore = append(it.inlineBefore, content)
	} else {
		it.inlineAfter = append(it.inlineAfter, content)
	}
	return true
}
