// Package host declares the boundary to the content-management host the
// asset engine runs inside: its resource registry, its lifecycle event
// scheduler, and its filesystem/URL helpers.
//
// The engine only ever talks to these interfaces. Production wiring uses
// the in-process implementation in host/memhost (or a real host adapter);
// tests inject recording fakes.
package host

// InlinePosition says where an inline script payload goes relative to its
// parent. Styles ignore it.
type InlinePosition string

const (
	InlineBefore InlinePosition = "before"
	InlineAfter  InlinePosition = "after"
)

// Extra carries kind-specific registration data the engine passes through
// untouched.
type Extra struct {
	InFooter   bool              // scripts
	Media      string            // styles
	Attributes map[string]string // extra markup attributes
}

// Registry is one kind's resource registry surface on the host.
// Script and Style engines each hold their own Registry.
type Registry interface {
	IsRegistered(handle string) bool
	IsActivated(handle string) bool

	// Register records the resource. A false return means the host
	// rejected it (duplicate policy, invalid source, ...).
	Register(handle, src string, deps []string, version string, extra Extra) bool

	Activate(handle string)
	Deactivate(handle string)
	Deregister(handle string)

	// AttachInline adds inline content to an already-registered parent.
	// Position is meaningful for scripts only.
	AttachInline(handle, content string, pos InlinePosition) bool
}

// Events is the host's named-event lifecycle scheduler.
type Events interface {
	// Attach schedules fn to run when event fires, ordered by priority.
	// The host may invoke the same callback more than once across
	// unrelated requests; callers must be idempotent.
	Attach(event string, priority int, fn func())
	HasFired(event string) bool
}

// Paths maps public URLs to local files for cache-busting.
type Paths interface {
	// URLToPath returns false when the URL does not live on this host.
	URLToPath(url string) (string, bool)
	Exists(path string) bool
	ContentHash(path string) (string, error)
}
