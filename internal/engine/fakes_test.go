package engine

import (
	"context"
	"strings"

	"assetflow/internal/host"
	"assetflow/internal/storage"
)

// fakeRegistry records every host call so tests can assert both state and
// call counts.
type fakeRegistry struct {
	registered map[string]regRecord
	activated  map[string]bool
	// protected handles ignore Deactivate/Deregister, for partial-failure paths
	protected map[string]bool
	// rejectRegister makes Register return false
	rejectRegister bool

	calls []string // method names, in order
}

type regRecord struct {
	src     string
	deps    []string
	version string
	extra   host.Extra
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		registered: map[string]regRecord{},
		activated:  map[string]bool{},
		protected:  map[string]bool{},
	}
}

func (f *fakeRegistry) callCount(method string) int {
	n := 0
	for _, c := range f.calls {
		if c == method || strings.HasPrefix(c, method+":") {
			n++
		}
	}
	return n
}

func (f *fakeRegistry) IsRegistered(handle string) bool {
	_, ok := f.registered[handle]
	return ok
}

func (f *fakeRegistry) IsActivated(handle string) bool { return f.activated[handle] }

func (f *fakeRegistry) Register(handle, src string, deps []string, version string, extra host.Extra) bool {
	f.calls = append(f.calls, "register:"+handle)
	if f.rejectRegister {
		return false
	}
	f.registered[handle] = regRecord{src: src, deps: deps, version: version, extra: extra}
	return true
}

func (f *fakeRegistry) Activate(handle string) {
	f.calls = append(f.calls, "activate:"+handle)
	f.activated[handle] = true
}

func (f *fakeRegistry) Deactivate(handle string) {
	f.calls = append(f.calls, "deactivate:"+handle)
	if f.protected[handle] {
		return
	}
	delete(f.activated, handle)
}

func (f *fakeRegistry) Deregister(handle string) {
	f.calls = append(f.calls, "deregister:"+handle)
	if f.protected[handle] {
		return
	}
	delete(f.registered, handle)
}

func (f *fakeRegistry) AttachInline(handle, content string, pos host.InlinePosition) bool {
	f.calls = append(f.calls, "inline:"+handle+":"+string(pos))
	_, ok := f.registered[handle]
	return ok && content != ""
}

// fakeEvents captures attachments and lets tests fire them manually.
type fakeEvents struct {
	fired    map[string]bool
	attached []attachedCB
}

type attachedCB struct {
	event string
	prio  int
	fn    func()
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{fired: map[string]bool{}}
}

func (f *fakeEvents) Attach(event string, priority int, fn func()) {
	f.attached = append(f.attached, attachedCB{event: event, prio: priority, fn: fn})
}

func (f *fakeEvents) HasFired(event string) bool { return f.fired[event] }

func (f *fakeEvents) fire(event string, prio int) {
	f.fired[event] = true
	for _, cb := range f.attached {
		if cb.event == event && cb.prio == prio {
			cb.fn()
		}
	}
}

func (f *fakeEvents) attachCount(event string, prio int) int {
	n := 0
	for _, cb := range f.attached {
		if cb.event == event && cb.prio == prio {
			n++
		}
	}
	return n
}

// fakePaths serves URL->path->hash lookups from fixed maps and counts
// every filesystem-ish access, so tests can prove cache_bust=false never
// touches it.
type fakePaths struct {
	urlToPath map[string]string
	files     map[string]string // path -> full hash

	accesses int
}

func newFakePaths() *fakePaths {
	return &fakePaths{urlToPath: map[string]string{}, files: map[string]string{}}
}

func (f *fakePaths) URLToPath(url string) (string, bool) {
	f.accesses++
	p, ok := f.urlToPath[url]
	return p, ok
}

func (f *fakePaths) Exists(path string) bool {
	f.accesses++
	_, ok := f.files[path]
	return ok
}

func (f *fakePaths) ContentHash(path string) (string, error) {
	f.accesses++
	return f.files[path], nil
}

// fakeStore records delivery entries in memory so tests can assert what
// the engine audits.
type fakeStore struct {
	entries []storage.DeliveryEntry
}

func (f *fakeStore) AppendDelivery(_ context.Context, e storage.DeliveryEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) RecentDeliveries(_ context.Context, _ int) ([]storage.DeliveryEntry, error) {
	return f.entries, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type testHost struct {
	reg   *fakeRegistry
	ev    *fakeEvents
	paths *fakePaths
	store *fakeStore
}

func newTestEngine(kind Kind) (*Engine, *testHost) {
	th := &testHost{reg: newFakeRegistry(), ev: newFakeEvents(), paths: newFakePaths(), store: &fakeStore{}}
	e := New(kind, Deps{Registry: th.reg, Events: th.ev, Paths: th.paths, Store: th.store}, Options{})
	return e, th
}
