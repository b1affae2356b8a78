package engine

import (
	"strings"

	logx "assetflow/pkg/logx"
)

// Deregister removes handles ahead of replacement (or on operator request).
// Invalid requests (empty handle) are logged and skipped, never fatal.
// Each valid request yields one ReconcileResult, in input order.
//
// Hook/Priority/Immediate narrow which internal queue slots are purged;
// when none are set the whole deferred queue is pruned for the handle, as
// during replacement.
func (e *Engine) Deregister(reqs ...DeregisterRequest) []ReconcileResult {
	results := make([]ReconcileResult, 0, len(reqs))
	for _, req := range reqs {
		if strings.TrimSpace(req.Handle) == "" {
			e.log.Warn("deregister request without handle skipped")
			continue
		}

		if req.Immediate {
			e.removeImmediate(req.Handle)
		}
		var res ReconcileResult
		if req.Hook != "" {
			e.pruneDeferredAt(req.Handle, req.Hook, req.Priority)
			res = e.reconcileHost(req.Handle)
		} else {
			res = e.reconcile(req.Handle)
		}

		for _, reason := range res.Reasons {
			e.log.Warn("deregistration incomplete",
				logx.String("handle", req.Handle), logx.String("reason", reason))
		}
		e.log.Debug("deregistration finished",
			logx.String("handle", req.Handle), logx.String("outcome", res.Outcome.String()))
		results = append(results, res)
	}
	return results
}

// DeregisterHandles is shorthand for Deregister over bare handles.
func (e *Engine) DeregisterHandles(handles ...string) []ReconcileResult {
	reqs := make([]DeregisterRequest, 0, len(handles))
	for _, h := range handles {
		reqs = append(reqs, DeregisterRequest{Handle: h})
	}
	return e.Deregister(reqs...)
}

// reconcile is the replacement path: report where the handle lives, prune
// it from the deferred queue, then undo host-side state. The immediate
// queue is left alone; its entries clean up as a side effect of normal
// draining (the replacement declaration overwrites the slot anyway).
//
// The reconciler itself never logs failures; reasons travel in the result
// so the caller decides how to surface them.
func (e *Engine) reconcile(handle string) ReconcileResult {
	locs := e.Locate(handle)
	e.log.Debug("reconciling handle",
		logx.String("handle", handle), logx.Int("locations", len(locs)))

	e.pruneDeferredAt(handle, "", 0)

	return e.reconcileHost(handle)
}

// reconcileHost runs the host-side state machine: no-op when the handle is
// unknown, otherwise deactivate (if activated) and deregister, re-querying
// after each step. A step that does not take effect records a partial
// failure but never stops the pass; replacement proceeds best-effort and
// relies on the host's own idempotency.
func (e *Engine) reconcileHost(handle string) ReconcileResult {
	res := ReconcileResult{Handle: handle}

	if !e.reg.IsRegistered(handle) && !e.reg.IsActivated(handle) {
		res.Outcome = ReconcileNoOp
		return res
	}

	if e.reg.IsActivated(handle) {
		e.reg.Deactivate(handle)
		if e.reg.IsActivated(handle) {
			res.Reasons = append(res.Reasons,
				"failed to deactivate: may be protected or re-supplied by another plugin")
		}
	}

	e.reg.Deregister(handle)
	if e.reg.IsRegistered(handle) {
		res.Reasons = append(res.Reasons, "failed to deregister: may be protected")
	}

	if len(res.Reasons) > 0 {
		res.Outcome = ReconcilePartial
	} else {
		res.Outcome = ReconcileSuccess
	}
	return res
}

// pruneDeferredAt removes matching entries from the deferred queue. Empty
// hook matches every hook; priority is only narrowed when hook is given
// and priority is non-zero. Emptied leaves are pruned so the structure
// never holds empty slices or maps.
func (e *Engine) pruneDeferredAt(handle, hook string, priority int) {
	for h, byPrio := range e.deferred {
		if hook != "" && h != hook {
			continue
		}
		for p, list := range byPrio {
			if hook != "" && priority != 0 && p != priority {
				continue
			}
			kept := list[:0]
			for _, a := range list {
				if a.Handle != handle {
					kept = append(kept, a)
				}
			}
			if len(kept) == 0 {
				delete(byPrio, p)
			} else {
				byPrio[p] = kept
			}
		}
		if len(byPrio) == 0 {
			delete(e.deferred, h)
		}
	}
}

func (e *Engine) removeImmediate(handle string) {
	kept := e.immediate[:0]
	for _, a := range e.immediate {
		if a.Handle != handle {
			kept = append(kept, a)
		}
	}
	e.immediate = kept
}
