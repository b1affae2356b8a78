// Package revalidate recomputes cache-bust tokens on a schedule.
//
// A long-running host process hands assets off once, but the files behind
// them keep changing during deploys. This service re-hashes tracked files
// periodically and publishes a version.changed event whenever a token
// drifts, so the app can re-stage affected assets.
package revalidate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"assetflow/internal/eventbus"
	"assetflow/internal/host"
	logx "assetflow/pkg/logx"
)

type trackKey struct {
	Kind   string
	Handle string
}

type trackState struct {
	url   string
	token string
}

type Service struct {
	log   logx.Logger
	paths host.Paths
	bus   eventbus.Bus

	mu      sync.Mutex
	tracked map[trackKey]*trackState

	c       *cron.Cron
	entryID cron.EntryID
}

func New(log logx.Logger, paths host.Paths, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log,
		paths:   paths,
		bus:     bus,
		tracked: map[trackKey]*trackState{},
	}
}

// Track registers one cache-busted asset for periodic re-hashing.
// Calling it again for the same kind/handle replaces the URL and resets
// the token baseline.
func (s *Service) Track(kind, handle, url string) {
	if handle == "" || strings.TrimSpace(url) == "" {
		return
	}
	s.mu.Lock()
	s.tracked[trackKey{Kind: kind, Handle: handle}] = &trackState{url: url, token: s.hash(url)}
	s.mu.Unlock()
}

// Untrack drops an asset, e.g. after it was deregistered.
func (s *Service) Untrack(kind, handle string) {
	s.mu.Lock()
	delete(s.tracked, trackKey{Kind: kind, Handle: handle})
	s.mu.Unlock()
}

// Start schedules periodic revalidation. Spec accepts standard 5-field
// cron expressions plus descriptors like "@hourly" and "@every 5m".
func (s *Service) Start(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "@every 5m"
	}
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	c := cron.New(cron.WithParser(parser))
	id, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return fmt.Errorf("revalidate schedule %q: %w", spec, err)
	}
	s.c = c
	s.entryID = id
	c.Start()
	s.log.Info("revalidation scheduled", logx.String("spec", spec))
	return nil
}

func (s *Service) Stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
}

// RunOnce is the scheduled body, exported for tests and for a manual
// "revalidate now" trigger.
func (s *Service) RunOnce() { s.runOnce() }

func (s *Service) runOnce() {
	s.mu.Lock()
	keys := make([]trackKey, 0, len(s.tracked))
	for k := range s.tracked {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	changed := 0
	for _, k := range keys {
		s.mu.Lock()
		st, ok := s.tracked[k]
		if !ok {
			s.mu.Unlock()
			continue
		}
		url, prev := st.url, st.token
		s.mu.Unlock()

		token := s.hash(url)
		if token == "" || token == prev {
			continue
		}

		s.mu.Lock()
		if st, ok := s.tracked[k]; ok {
			st.token = token
		}
		s.mu.Unlock()

		changed++
		s.log.Info("cache-bust token changed",
			logx.String("kind", k.Kind), logx.String("handle", k.Handle),
			logx.String("token", token))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TopicVersionChanged, Data: eventbus.AssetEvent{
				Kind: k.Kind, Handle: k.Handle, Version: token,
			}})
		}
	}
	if changed > 0 {
		s.log.Debug("revalidation pass finished", logx.Int("changed", changed))
	}
}

// hash returns the current 10-char token for url, "" when the file is not
// resolvable (matching the engine's degrade-to-declared-version behavior).
func (s *Service) hash(url string) string {
	path, ok := s.paths.URLToPath(url)
	if !ok || !s.paths.Exists(path) {
		return ""
	}
	sum, err := s.paths.ContentHash(path)
	if err != nil {
		return ""
	}
	if len(sum) > 10 {
		sum = sum[:10]
	}
	return sum
}
