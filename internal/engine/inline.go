package engine

import (
	"strings"

	"assetflow/internal/eventbus"
	"assetflow/internal/host"
	logx "assetflow/pkg/logx"
)

// flushInline attaches pending inline entries for the given hook context
// ("" = the immediate pass, matching entries with no parent hook).
//
// An entry is consumed exactly once on a successful match; an entry whose
// parent is not registered in the host stays queued and logs an error.
// That is deliberate: a never-attached entry surfaces the caller bug
// instead of being swallowed.
func (e *Engine) flushInline(hookCtx string) {
	if len(e.inline) == 0 {
		return
	}

	var kept []InlineRequest
	for _, in := range e.inline {
		if in.Hook != hookCtx {
			kept = append(kept, in)
			continue
		}

		if in.Condition != nil && !in.Condition() {
			e.log.Debug("inline condition false, entry dropped",
				logx.String("parent", in.Parent))
			continue
		}
		if strings.TrimSpace(in.Content) == "" {
			e.log.Warn("inline entry with empty content dropped",
				logx.String("parent", in.Parent))
			continue
		}

		if !e.reg.IsRegistered(in.Parent) {
			// Parent never made it into the host registry. Keep the
			// entry so the bug stays inspectable.
			e.log.Error("inline parent not registered, entry kept",
				logx.String("parent", in.Parent), logx.String("hook", hookCtx))
			kept = append(kept, in)
			continue
		}

		pos := in.Position
		if e.kind == KindStyle {
			pos = "" // styles have no before/after notion
		} else if pos == "" {
			pos = host.InlineAfter
		}

		parent := Asset{Handle: in.Parent, Priority: in.Priority}
		if e.reg.AttachInline(in.Parent, in.Content, pos) {
			e.log.Debug("inline content attached",
				logx.String("parent", in.Parent), logx.String("pos", string(pos)))
			if e.bus != nil {
				e.bus.Publish(eventbus.Event{Type: eventbus.TopicInlineAttached, Data: eventbus.AssetEvent{
					Kind: string(e.kind), Handle: in.Parent, Hook: hookCtx,
				}})
			}
			e.audit("inline", parent, "", "", hookCtx, true, "")
		} else {
			e.log.Warn("host declined inline content",
				logx.String("parent", in.Parent))
			e.audit("inline", parent, "", "", hookCtx, false, "host declined inline content")
		}
		// Consumed either way; an inline-attach failure must not block
		// later passes from making progress.
	}
	e.inline = kept
}
