package engine

import "sort"

// Locate reports every internal bookkeeping location a handle currently
// occupies, in a fixed order: immediate queue, deferred queue, inline
// queue. A handle may legitimately show up in more than one queue at once
// (declared, then inline content attached to it); callers must handle the
// whole list.
//
// Malformed entries (empty handle, kind mismatch) are skipped silently:
// the queues may be touched by debugging code that bypasses Declare, and a
// bad slot must not poison lookups.
func (e *Engine) Locate(handle string) []Location {
	if handle == "" {
		return nil
	}
	var out []Location

	for i := range e.immediate {
		if e.immediate[i].Handle == handle {
			out = append(out, Location{Queue: QueueImmediate, Index: i, Handle: handle})
		}
	}

	for _, hook := range sortedHooks(e.deferred) {
		byPrio := e.deferred[hook]
		for _, prio := range sortedPrios(byPrio) {
			for i, a := range byPrio[prio] {
				if a.Handle == "" || (a.Kind != "" && a.Kind != e.kind) {
					continue
				}
				if a.Handle == handle {
					out = append(out, Location{
						Queue: QueueDeferred, Hook: hook, Priority: prio, Index: i, Handle: handle,
					})
				}
			}
		}
	}

	for i, in := range e.inline {
		if in.Parent == handle {
			out = append(out, Location{
				Queue: QueueInline, Hook: in.Hook, Priority: in.Priority, Index: i, Handle: handle,
			})
		}
	}
	return out
}

// sortedHooks keeps Locate output deterministic across runs.
func sortedHooks(m map[string]map[int][]Asset) []string {
	hooks := make([]string, 0, len(m))
	for h := range m {
		hooks = append(hooks, h)
	}
	sort.Strings(hooks)
	return hooks
}

func sortedPrios(m map[int][]Asset) []int {
	prios := make([]int, 0, len(m))
	for p := range m {
		prios = append(prios, p)
	}
	sort.Ints(prios)
	return prios
}
