package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"assetflow/internal/eventbus"
	"assetflow/internal/storage"
	logx "assetflow/pkg/logx"
)

// FlushImmediate drains the immediate queue once, handing each asset to the
// host with registration and activation requested, then attempts any
// hookless inline attachments.
//
// Finding a deferred asset in this queue means staging order was violated
// and an asset would otherwise be silently dropped; that is the one fatal
// condition, returned as an error wrapping ErrStagingOrder.
func (e *Engine) FlushImmediate() error {
	// Drain a private copy so re-entrant declarations land in a fresh
	// slice, never the one mid-iteration.
	batch := e.immediate
	e.immediate = nil

	for _, a := range batch {
		if a.Condition != nil && !a.Condition() {
			e.log.Debug("condition false, asset skipped", logx.String("handle", a.Handle))
			e.publish(eventbus.TopicAssetSkipped, a, "", "condition")
			continue
		}
		if a.Hook != "" {
			return fmt.Errorf("deferred asset %q (hook %q) found in immediate queue: %w",
				a.Handle, a.Hook, ErrStagingOrder)
		}
		e.process(a, "")
	}

	e.flushInline("")
	return nil
}

// FlushDeferred drains deferred[hook][priority]. It is invoked by the host
// scheduler when the event fires; calling it again for an already-drained
// pair is a logged no-op (the host may reuse callbacks across requests).
//
// Nothing escapes this method into host dispatch: errors are logged, and a
// panicking condition callback is contained here.
func (e *Engine) FlushDeferred(hook string, priority int) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic during deferred flush contained",
				logx.String("hook", hook), logx.Int("prio", priority),
				logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()

	byPrio, ok := e.deferred[hook]
	if !ok {
		e.log.Debug("no deferred assets for hook", logx.String("hook", hook), logx.Int("prio", priority))
		return
	}
	batch, ok := byPrio[priority]
	if !ok {
		e.log.Debug("no deferred assets at priority", logx.String("hook", hook), logx.Int("prio", priority))
		return
	}

	// Delete before processing: re-entrant declarations during the drain
	// land in a fresh slice, and the structure never holds empty leaves.
	delete(byPrio, priority)
	if len(byPrio) == 0 {
		delete(e.deferred, hook)
	}

	for _, a := range batch {
		e.process(a, hook)
	}

	e.flushInline(hook)
}

// process hands one asset to the host registry: resolve source, resolve
// version, reconcile a replacement, register, activate. Reports whether the
// asset made it into the registry. Failures are logged and degrade to
// skipping this one asset; the batch always continues.
func (e *Engine) process(a Asset, hookCtx string) bool {
	if a.Handle == "" {
		e.log.Debug("asset without handle skipped")
		return false
	}
	if a.Condition != nil && !a.Condition() {
		e.log.Debug("condition false, asset skipped", logx.String("handle", a.Handle))
		e.publish(eventbus.TopicAssetSkipped, a, "", "condition")
		return false
	}
	if a.Source.None {
		// Declared with no hand-off on purpose; bookkeeping only.
		e.log.Debug("source disabled, no hand-off", logx.String("handle", a.Handle))
		return false
	}

	src, err := e.resolveSource(a.Source)
	if err != nil {
		e.log.Error("asset skipped, source did not resolve",
			logx.String("handle", a.Handle), logx.Err(err))
		e.publish(eventbus.TopicAssetSkipped, a, "", "unresolved source")
		return false
	}

	ver := e.resolveVersion(a, src)

	if a.Replace {
		res := e.reconcile(a.Handle)
		for _, reason := range res.Reasons {
			e.log.Warn("replacement incomplete", logx.String("handle", a.Handle), logx.String("reason", reason))
		}
		e.log.Debug("replacement reconciled",
			logx.String("handle", a.Handle), logx.String("outcome", res.Outcome.String()))
		e.publish(eventbus.TopicAssetReplaced, a, "", res.Outcome.String())
		e.audit("replace", a, src, ver, hookCtx, res.OK(), joinReasons(res.Reasons))
	}

	if !e.reg.Register(a.Handle, src, a.Deps, ver, a.Extra) {
		e.log.Error("host rejected registration", logx.String("handle", a.Handle), logx.String("src", src))
		e.audit("register", a, src, ver, hookCtx, false, "host rejected registration")
		return false
	}
	e.publish(eventbus.TopicAssetRegistered, a, ver, "")
	e.audit("register", a, src, ver, hookCtx, true, "")

	// Activation. The registration above normally guarantees presence,
	// but a host-side callback may have deregistered the handle in the
	// meantime; re-register before activating when a usable source exists.
	if !e.reg.IsRegistered(a.Handle) {
		if src == "" {
			e.log.Error("cannot activate asset, not registered and no usable source",
				logx.String("handle", a.Handle))
			return false
		}
		e.log.Warn("asset vanished before activation, registering again",
			logx.String("handle", a.Handle))
		if !e.reg.Register(a.Handle, src, a.Deps, ver, a.Extra) {
			e.log.Error("host rejected re-registration", logx.String("handle", a.Handle))
			return false
		}
	}
	e.reg.Activate(a.Handle)
	e.publish(eventbus.TopicAssetActivated, a, ver, "")
	e.audit("activate", a, src, ver, hookCtx, true, "")
	return true
}

func (e *Engine) audit(action string, a Asset, src, ver, hookCtx string, ok bool, errMsg string) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = e.store.AppendDelivery(ctx, storage.DeliveryEntry{
		At:      time.Now(),
		Kind:    string(e.kind),
		Handle:  a.Handle,
		Hook:    hookCtx,
		Prio:    a.Priority,
		Action:  action,
		Source:  src,
		Version: ver,
		OK:      ok,
		Error:   errMsg,
	})
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
