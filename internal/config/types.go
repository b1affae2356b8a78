package config

import "encoding/json"

// Config is the full daemon configuration plus the asset manifest.
// YAML and JSON are both accepted; YAML is coerced to JSON and decoded
// strictly, so unknown keys are rejected.
type Config struct {
	Environment string   `json:"environment,omitempty"`
	EnvFallback []string `json:"env_fallback,omitempty"`
	DefaultKey  string   `json:"default_key,omitempty"`

	Logging    LoggingConfig    `json:"logging,omitempty"`
	Storage    StorageConfig    `json:"storage,omitempty"`
	Paths      []PathMapping    `json:"paths,omitempty"`
	Lifecycle  LifecycleConfig  `json:"lifecycle,omitempty"`
	Revalidate RevalidateConfig `json:"revalidate,omitempty"`
	Preview    PreviewConfig    `json:"preview,omitempty"`

	Scripts []AssetConfig  `json:"scripts,omitempty"`
	Styles  []AssetConfig  `json:"styles,omitempty"`
	Inline  []InlineConfig `json:"inline,omitempty"`

	// Deregister entries are a bare handle string or an object
	// {handle, hook?, priority?, immediate?}. Invalid entries are logged
	// and skipped at compile time, never fatal.
	Deregister []json.RawMessage `json:"deregister,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"` // nil = true
	File    struct {
		Enabled bool   `json:"enabled,omitempty"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

type StorageConfig struct {
	Driver        string `json:"driver,omitempty"`
	Path          string `json:"path,omitempty"`
	BusyTimeoutMS int    `json:"busy_timeout_ms,omitempty"`
}

// PathMapping ties a public URL prefix to a local directory, for
// cache-bust hashing.
type PathMapping struct {
	Prefix string `json:"prefix"`
	Root   string `json:"root"`
}

// LifecycleConfig describes the simulated page lifecycle the daemon runs:
// events fire in order, and the immediate queue is staged right before
// StageEvent fires.
type LifecycleConfig struct {
	Events     []string `json:"events,omitempty"`
	StageEvent string   `json:"stage_event,omitempty"`
}

type RevalidateConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Spec    string `json:"spec,omitempty"` // cron spec or "@every 5m"
}

type PreviewConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
}

// AssetConfig is one manifest entry. Src and Replace stay raw because the
// manifest allows several shapes (string | false | map for Src, and
// Replace must be validated as a real boolean, naming the handle when it
// is not).
type AssetConfig struct {
	Handle     string            `json:"handle"`
	Src        json.RawMessage   `json:"src,omitempty"`
	Deps       []string          `json:"deps,omitempty"`
	Version    string            `json:"version,omitempty"`
	Hook       string            `json:"hook,omitempty"`
	Priority   int               `json:"priority,omitempty"`
	Replace    json.RawMessage   `json:"replace,omitempty"`
	CacheBust  bool              `json:"cache_bust,omitempty"`
	Enabled    *bool             `json:"enabled,omitempty"` // nil = true
	Attributes map[string]string `json:"attributes,omitempty"`

	// kind-specific
	InFooter bool   `json:"in_footer,omitempty"` // scripts
	Media    string `json:"media,omitempty"`     // styles
}

type InlineConfig struct {
	Kind     string `json:"kind"` // script | style
	Parent   string `json:"parent"`
	Content  string `json:"content"`
	Position string `json:"position,omitempty"` // before | after, scripts only
	Hook     string `json:"hook,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type deregisterObject struct {
	Handle    string `json:"handle"`
	Hook      string `json:"hook,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	Immediate bool   `json:"immediate,omitempty"`
}
