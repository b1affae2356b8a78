package engine

import (
	"errors"

	"assetflow/internal/host"
)

// Kind selects which host registry surface an engine drives.
// Script and Style are two parallel instances of the same engine and
// share no state.
type Kind string

const (
	KindScript Kind = "script"
	KindStyle  Kind = "style"
)

var (
	// ErrNoSource means a source declaration resolved to nothing usable.
	ErrNoSource = errors.New("no usable source")
	// ErrStagingOrder means a deferred asset leaked into the immediate queue.
	ErrStagingOrder = errors.New("staging order violated")
)

// Source is a declared source location.
//
// Exactly one of the three shapes is meaningful:
//   - URL: a single location string
//   - Env: environment-keyed variants ("dev", "prod", "default", ...)
//   - None: explicitly no hand-off (the declaration is bookkeeping only)
type Source struct {
	URL  string
	Env  map[string]string
	None bool
}

// Src is shorthand for a plain single-URL source.
func Src(url string) Source { return Source{URL: url} }

// Asset is one immutable resource declaration.
//
// Re-declaring the same handle replaces the prior declaration in its queue
// slot; declarations never merge.
type Asset struct {
	Handle  string
	Source  Source
	Deps    []string
	Version string
	Kind    Kind // filled in by Declare when empty

	// Condition is evaluated at processing time; nil means true.
	// A false result skips the asset, it is never queued again.
	Condition func() bool

	// Hook marks the asset deferred: it is handed to the host when the
	// named lifecycle event fires at Priority.
	Hook     string
	Priority int

	Replace   bool
	CacheBust bool

	Extra host.Extra
}

// InlineRequest attaches supplementary inline content to a parent asset.
// The parent may be immediate, deferred (set Hook to the parent's hook),
// or owned entirely by the host.
type InlineRequest struct {
	Parent    string
	Content   string
	Position  host.InlinePosition // scripts only
	Condition func() bool
	Hook      string
	Priority  int
}

// DeregisterRequest targets one handle for removal. Hook/Priority/Immediate
// narrow which internal queue slots are purged; host-side deregistration
// always runs.
type DeregisterRequest struct {
	Handle    string
	Hook      string
	Priority  int
	Immediate bool
}

// QueueName identifies which bookkeeping location a Locate hit came from.
type QueueName string

const (
	QueueImmediate QueueName = "assets"
	QueueDeferred  QueueName = "deferred"
	QueueInline    QueueName = "external_inline"
)

// Location is one Locate hit. Purely descriptive; it drives removal and is
// never persisted.
type Location struct {
	Queue    QueueName
	Hook     string
	Priority int
	Index    int
	Handle   string
}

// ReconcileOutcome is the terminal state of one deregistration pass.
type ReconcileOutcome int

const (
	// ReconcileNoOp: the handle was neither registered nor activated.
	ReconcileNoOp ReconcileOutcome = iota
	// ReconcileSuccess: every host-side step took effect.
	ReconcileSuccess
	// ReconcilePartial: at least one host-side step did not take effect.
	// Replacement still proceeds best-effort.
	ReconcilePartial
)

func (o ReconcileOutcome) String() string {
	switch o {
	case ReconcileNoOp:
		return "no-op"
	case ReconcileSuccess:
		return "success"
	case ReconcilePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// ReconcileResult reports one deregistration pass. The reconciler never
// logs; reasons are returned for the caller to surface.
type ReconcileResult struct {
	Handle  string
	Outcome ReconcileOutcome
	Reasons []string
}

// OK reports whether the pass completed without partial failures.
func (r ReconcileResult) OK() bool { return r.Outcome != ReconcilePartial }

type hookPrio struct {
	Hook string
	Prio int
}
