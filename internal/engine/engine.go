package engine

import (
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"assetflow/internal/eventbus"
	"assetflow/internal/host"
	"assetflow/internal/storage"
	logx "assetflow/pkg/logx"
)

// Options tune one engine instance.
type Options struct {
	// Environment selects the key tried first in environment-keyed
	// source maps ("prod" when empty).
	Environment string
	// EnvFallback lists keys tried after Environment. When nil it
	// defaults to the opposite of Environment ("dev" <-> "prod").
	EnvFallback []string
	// DefaultKey is the explicit last-resort key in environment maps
	// ("default" when empty). There is no positional fallback: a map
	// without any of the configured keys resolves to nothing.
	DefaultKey string
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Environment) == "" {
		o.Environment = "prod"
	}
	if o.EnvFallback == nil {
		if o.Environment == "prod" {
			o.EnvFallback = []string{"dev"}
		} else {
			o.EnvFallback = []string{"prod"}
		}
	}
	if strings.TrimSpace(o.DefaultKey) == "" {
		o.DefaultKey = "default"
	}
	return o
}

// Deps are the external collaborators one engine talks to.
// Registry/Events/Paths are required; Bus and Store are optional.
type Deps struct {
	Log      logx.Logger
	Registry host.Registry
	Events   host.Events
	Paths    host.Paths
	Bus      eventbus.Bus
	Store    storage.Store
}

// Engine owns one kind's immediate queue, deferred queue, inline queue and
// scheduled-callback set.
//
// All mutation happens synchronously inside calls triggered by the host's
// lifecycle dispatch, which is single-threaded; an Engine is therefore NOT
// safe for concurrent use. The only hazard is re-entrancy (a flush callback
// declaring new assets), which the copy-then-delete drain order makes safe.
type Engine struct {
	kind  Kind
	log   logx.Logger
	reg   host.Registry
	ev    host.Events
	paths host.Paths
	bus   eventbus.Bus
	store storage.Store
	opts  Options

	// Throttles repeated resolution warnings so a hot render loop with a
	// broken asset cannot flood the log.
	warnLimit *rate.Limiter

	immediate []Asset
	deferred  map[string]map[int][]Asset
	inline    []InlineRequest

	// attached enforces at most one scheduled flush callback per
	// (hook, priority) pair for the lifetime of this instance.
	attached map[hookPrio]bool
}

// New creates an engine for one resource kind.
func New(kind Kind, deps Deps, opts Options) *Engine {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		kind:      kind,
		log:       log.With(logx.String("kind", string(kind))),
		reg:       deps.Registry,
		ev:        deps.Events,
		paths:     deps.Paths,
		bus:       deps.Bus,
		store:     deps.Store,
		opts:      opts.withDefaults(),
		warnLimit: rate.NewLimiter(rate.Limit(1), 5),
		deferred:  map[string]map[int][]Asset{},
		attached:  map[hookPrio]bool{},
	}
}

// Kind returns the resource kind this engine drives.
func (e *Engine) Kind() Kind { return e.kind }

// Declare queues asset declarations. Assets without a Hook land in the
// immediate queue; the rest land in deferred[hook][priority], attaching a
// flush callback to the host scheduler the first time a pair is seen.
//
// A declaration with an empty handle is a configuration error: Declare
// stops and returns it (earlier assets in the batch stay queued).
func (e *Engine) Declare(assets ...Asset) error {
	for _, a := range assets {
		if strings.TrimSpace(a.Handle) == "" {
			return fmt.Errorf("asset declaration without handle (kind %s)", e.kind)
		}
		if a.Kind == "" {
			a.Kind = e.kind
		}
		if a.Kind != e.kind {
			return fmt.Errorf("asset %q declares kind %s on a %s engine", a.Handle, a.Kind, e.kind)
		}

		if a.Hook == "" {
			e.immediate = upsert(e.immediate, a)
			continue
		}

		// The host may already be past this event. Attaching a callback
		// would then never fire, silently dropping the asset; hand it
		// off right away instead.
		if e.ev.HasFired(a.Hook) {
			e.log.Warn("hook already fired, processing asset immediately",
				logx.String("handle", a.Handle), logx.String("hook", a.Hook))
			e.process(a, a.Hook)
			continue
		}

		byPrio := e.deferred[a.Hook]
		if byPrio == nil {
			byPrio = map[int][]Asset{}
			e.deferred[a.Hook] = byPrio
		}
		byPrio[a.Priority] = upsert(byPrio[a.Priority], a)

		hp := hookPrio{Hook: a.Hook, Prio: a.Priority}
		if !e.attached[hp] {
			e.attached[hp] = true
			hook, prio := a.Hook, a.Priority
			e.ev.Attach(hook, prio, func() { e.FlushDeferred(hook, prio) })
			e.log.Debug("flush callback attached",
				logx.String("hook", hook), logx.Int("prio", prio))
		}
		e.publish(eventbus.TopicAssetDeferred, a, "", "")
	}
	return nil
}

// upsert replaces an existing declaration with the same handle in place,
// otherwise appends. Overwrite, never merge.
func upsert(q []Asset, a Asset) []Asset {
	for i := range q {
		if q[i].Handle == a.Handle {
			q[i] = a
			return q
		}
	}
	return append(q, a)
}

// AttachInline queues inline content addressed to parent handles. Each
// entry is consumed when its parent is confirmed registered; entries whose
// parent never materializes are kept and inspectable via PendingInline.
func (e *Engine) AttachInline(reqs ...InlineRequest) error {
	for _, req := range reqs {
		if strings.TrimSpace(req.Parent) == "" {
			return fmt.Errorf("inline content without parent handle (kind %s)", e.kind)
		}
		e.inline = append(e.inline, req)
	}
	return nil
}

// PendingInline returns a copy of the not-yet-attached inline entries.
// A stuck entry here usually means its parent was never declared.
func (e *Engine) PendingInline() []InlineRequest {
	out := make([]InlineRequest, len(e.inline))
	copy(out, e.inline)
	return out
}

func (e *Engine) publish(topic string, a Asset, version, reason string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: topic, Data: eventbus.AssetEvent{
		Kind:    string(e.kind),
		Handle:  a.Handle,
		Hook:    a.Hook,
		Prio:    a.Priority,
		Version: version,
		Reason:  reason,
	}})
}

// warnThrottled logs at warn level subject to the engine's rate limit.
func (e *Engine) warnThrottled(msg string, fields ...logx.Field) {
	if e.warnLimit.Allow() {
		e.log.Warn(msg, fields...)
	}
}
