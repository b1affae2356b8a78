// Package memhost is an in-process implementation of the host boundary:
// a named-event lifecycle dispatcher and a resource registry per kind,
// with HTML rendering of the resulting delivery plan.
//
// It backs the standalone daemon and doubles as the integration-test host.
package memhost

import (
	"sort"

	logx "assetflow/pkg/logx"
)

type callback struct {
	prio int
	seq  int
	fn   func()
}

// Dispatcher fires named lifecycle events in whatever order the caller
// invokes Fire, running attached callbacks ordered by priority, then by
// attach order. Events are one-shot: an event reports fired from the
// moment Fire starts, and there is no detach.
type Dispatcher struct {
	log   logx.Logger
	seq   int
	fired map[string]bool
	cbs   map[string][]callback
}

func NewDispatcher(log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:   log,
		fired: map[string]bool{},
		cbs:   map[string][]callback{},
	}
}

func (d *Dispatcher) Attach(event string, priority int, fn func()) {
	if event == "" || fn == nil {
		return
	}
	d.seq++
	d.cbs[event] = append(d.cbs[event], callback{prio: priority, seq: d.seq, fn: fn})
}

func (d *Dispatcher) HasFired(event string) bool { return d.fired[event] }

// Fire marks the event fired, then drains its callbacks. Callbacks that
// attach further callbacks to the same event during the drain run in the
// same pass.
func (d *Dispatcher) Fire(event string) {
	if d.fired[event] {
		d.log.Debug("event already fired", logx.String("event", event))
		return
	}
	d.fired[event] = true

	for len(d.cbs[event]) > 0 {
		batch := d.cbs[event]
		d.cbs[event] = nil
		sort.SliceStable(batch, func(i, j int) bool {
			if batch[i].prio != batch[j].prio {
				return batch[i].prio < batch[j].prio
			}
			return batch[i].seq < batch[j].seq
		})
		for _, cb := range batch {
			cb.fn()
		}
	}
	delete(d.cbs, event)
}
