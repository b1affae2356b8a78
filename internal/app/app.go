// Package app wires the asset engines to their collaborators and runs the
// simulated page lifecycle for the standalone daemon.
package app

import (
	"context"
	"fmt"
	"time"

	"assetflow/internal/config"
	"assetflow/internal/engine"
	"assetflow/internal/eventbus"
	"assetflow/internal/fsurl"
	"assetflow/internal/host/memhost"
	"assetflow/internal/revalidate"
	"assetflow/internal/storage"
	logx "assetflow/pkg/logx"
)

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger
	bus    eventbus.Bus
	store  storage.Store
	reval  *revalidate.Service

	preview *previewServer

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(loggingConfig(cfg))
	cfgm.SetLogger(log)
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		// Reject manifests that would not compile before publishing them.
		_, err := config.Compile(c, logx.Nop())
		return err
	})

	store, err := storage.Open(storageConfig(cfg), log)
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	bus := eventbus.New()

	return &App{
		cfgm:   cfgm,
		logSvc: logSvc,
		log:    log,
		bus:    bus,
		store:  store,
		done:   make(chan struct{}),
	}, nil
}

func (a *App) Logger() logx.Logger { return a.log }

// Start verifies the manifest compiles, runs one lifecycle pass, and
// brings up the manifest watcher, revalidator and preview server.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	page, err := a.RunLifecycle(cfg)
	if err != nil {
		return err
	}
	a.log.Info("initial lifecycle pass done",
		logx.Int("registered", page.Registered),
		logx.Int("head_bytes", len(page.Head)),
		logx.Int("footer_bytes", len(page.Footer)))

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		_ = a.cfgm.Watch(runCtx)
	}()

	// Log manifest reloads; the preview re-runs the lifecycle per request
	// so it picks up new config on its own.
	sub := a.cfgm.Subscribe(1)
	go func() {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case c := <-sub:
				if c == nil {
					return
				}
				a.logSvc.Apply(loggingConfig(c))
				a.log.Info("manifest reloaded",
					logx.Int("scripts", len(c.Scripts)), logx.Int("styles", len(c.Styles)))
				a.bus.Publish(eventbus.Event{Type: eventbus.TopicManifestReloaded})
			}
		}
	}()

	if cfg.Revalidate.Enabled {
		a.reval = revalidate.New(a.log, a.resolver(cfg), a.bus)
		a.trackCacheBusted(cfg)
		if err := a.reval.Start(cfg.Revalidate.Spec); err != nil {
			a.log.Warn("revalidation disabled", logx.Err(err))
			a.reval = nil
		}
	}

	if cfg.Preview.Enabled {
		a.preview = newPreviewServer(a, cfg.Preview.Addr)
		if err := a.preview.start(); err != nil {
			return fmt.Errorf("preview server: %w", err)
		}
	}

	// Bridge app ctx: when the caller's ctx ends, shut internals down.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.reval != nil {
		a.reval.Stop()
	}
	if a.preview != nil {
		a.preview.stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.logSvc.Close()
	close(a.done)
	return nil
}

// Page is the rendered outcome of one lifecycle pass.
type Page struct {
	Head       string
	Footer     string
	Registered int
	Pending    int // inline entries that never found their parent
}

// RunLifecycle builds a fresh in-process host, feeds it the manifest, and
// fires the configured lifecycle events in order, staging the immediate
// queue right before the stage event. Each call is one simulated request,
// the way the engine runs inside a real host.
func (a *App) RunLifecycle(cfg *config.Config) (*Page, error) {
	manifest, err := config.Compile(cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("compile manifest: %w", err)
	}

	dispatcher := memhost.NewDispatcher(a.log)
	paths := a.resolver(cfg)

	scriptReg := memhost.NewRegistry(string(engine.KindScript), a.log)
	styleReg := memhost.NewRegistry(string(engine.KindStyle), a.log)

	opts := engine.Options{
		Environment: cfg.Environment,
		EnvFallback: cfg.EnvFallback,
		DefaultKey:  cfg.DefaultKey,
	}
	scripts := engine.New(engine.KindScript, engine.Deps{
		Log: a.log, Registry: scriptReg, Events: dispatcher, Paths: paths,
		Bus: a.bus, Store: a.store,
	}, opts)
	styles := engine.New(engine.KindStyle, engine.Deps{
		Log: a.log, Registry: styleReg, Events: dispatcher, Paths: paths,
		Bus: a.bus, Store: a.store,
	}, opts)

	// Removal directives run before declarations so a replaced handle is
	// gone from the host before its successor shows up.
	if len(manifest.Deregister) > 0 {
		scripts.Deregister(manifest.Deregister...)
		styles.Deregister(manifest.Deregister...)
	}

	if err := scripts.Declare(manifest.Scripts...); err != nil {
		return nil, err
	}
	if err := styles.Declare(manifest.Styles...); err != nil {
		return nil, err
	}
	for _, in := range manifest.Inline[engine.KindScript] {
		if err := scripts.AttachInline(in); err != nil {
			return nil, err
		}
	}
	for _, in := range manifest.Inline[engine.KindStyle] {
		if err := styles.AttachInline(in); err != nil {
			return nil, err
		}
	}

	events := cfg.Lifecycle.Events
	if len(events) == 0 {
		events = []string{"init", "head", "footer", "shutdown"}
	}
	stageAt := cfg.Lifecycle.StageEvent
	if stageAt == "" {
		stageAt = "head"
	}

	for _, ev := range events {
		if ev == stageAt {
			if err := scripts.FlushImmediate(); err != nil {
				return nil, err
			}
			if err := styles.FlushImmediate(); err != nil {
				return nil, err
			}
		}
		dispatcher.Fire(ev)
	}

	pending := len(scripts.PendingInline()) + len(styles.PendingInline())
	if pending > 0 {
		a.log.Warn("inline entries never attached", logx.Int("count", pending))
	}

	head := styleReg.RenderHead() + scriptReg.RenderHead()
	footer := scriptReg.RenderFooter()
	return &Page{
		Head:       head,
		Footer:     footer,
		Registered: len(manifest.Scripts) + len(manifest.Styles),
		Pending:    pending,
	}, nil
}

func (a *App) resolver(cfg *config.Config) *fsurl.Resolver {
	mappings := make([]fsurl.Mapping, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		mappings = append(mappings, fsurl.Mapping{Prefix: p.Prefix, Root: p.Root})
	}
	return fsurl.New(mappings...)
}

func (a *App) trackCacheBusted(cfg *config.Config) {
	manifest, err := config.Compile(cfg, logx.Nop())
	if err != nil {
		return
	}
	track := func(kind engine.Kind, assets []engine.Asset) {
		for _, as := range assets {
			if as.CacheBust && as.Source.URL != "" {
				a.reval.Track(string(kind), as.Handle, as.Source.URL)
			}
		}
	}
	track(engine.KindScript, manifest.Scripts)
	track(engine.KindStyle, manifest.Styles)
}

func loggingConfig(cfg *config.Config) logx.Config {
	lc := logx.Config{Level: cfg.Logging.Level, Console: true}
	if cfg.Logging.Console != nil {
		lc.Console = *cfg.Logging.Console
	}
	lc.File.Enabled = cfg.Logging.File.Enabled
	lc.File.Path = cfg.Logging.File.Path
	return lc
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: time.Duration(cfg.Storage.BusyTimeoutMS) * time.Millisecond,
	}
}
