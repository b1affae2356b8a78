// Package engine schedules front-end asset delivery through a host
// content-management platform.
//
// # Overview
//
// One Engine instance drives one resource kind (script or style) against
// the host's registry for that kind. Callers declare assets; the engine
// decides whether each hand-off happens during the current pass (immediate
// queue) or when a named lifecycle event fires (deferred queue, keyed
// hook -> priority), attaching at most one flush callback per pair to the
// host scheduler.
//
// # Replacement
//
// A declaration with Replace set first reconciles the handle across three
// independent bookkeeping locations: the internal queues (reported by
// Locate, actively pruned in the deferred queue) and the host registry
// (deactivate + deregister, re-queried after each step). Host-side steps
// that do not take effect are reported as a partial result, never as an
// error; the replacement registration proceeds regardless.
//
// # Versioning
//
// With CacheBust set, the published version token is derived from the
// content of the local file behind the resolved source URL (first ten hex
// chars of its hash). Without it, the declared version passes through
// untouched and the filesystem is never consulted.
//
// # Inline content
//
// Inline payloads are queued independently of their parent declaration and
// attached once the parent is confirmed present in the host registry,
// whether the parent was immediate, deferred, or registered by the host
// itself. Entries whose parent never appears stay queued on purpose.
//
// # Concurrency
//
// Everything runs synchronously inside host lifecycle dispatch, which is
// single-threaded; an Engine is not safe for concurrent use. Flush paths
// drain a private copy of their queue before processing, so re-entrant
// declarations made by callbacks land in fresh slices.
package engine
