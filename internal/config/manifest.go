package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"assetflow/internal/engine"
	"assetflow/internal/host"
	logx "assetflow/pkg/logx"
)

// Manifest is the compiled form of a Config's asset entries, ready to feed
// the engines.
type Manifest struct {
	Scripts []engine.Asset
	Styles  []engine.Asset
	Inline  map[engine.Kind][]engine.InlineRequest
	// Deregister requests apply to both engines; the manifest format
	// does not distinguish kinds for removals.
	Deregister []engine.DeregisterRequest
}

// Compile validates and converts a parsed Config into engine declarations.
//
// Type errors on an asset entry (replace that is not a boolean, an
// unusable src shape) are configuration errors: they fail compilation,
// naming the offending handle. Invalid deregister entries are only logged
// and skipped, matching their looser contract.
func Compile(cfg *Config, log logx.Logger) (*Manifest, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Manifest{Inline: map[engine.Kind][]engine.InlineRequest{}}

	for _, ac := range cfg.Scripts {
		a, err := compileAsset(ac, engine.KindScript)
		if err != nil {
			return nil, err
		}
		m.Scripts = append(m.Scripts, a)
	}
	for _, ac := range cfg.Styles {
		a, err := compileAsset(ac, engine.KindStyle)
		if err != nil {
			return nil, err
		}
		m.Styles = append(m.Styles, a)
	}

	for _, ic := range cfg.Inline {
		kind := engine.Kind(strings.ToLower(strings.TrimSpace(ic.Kind)))
		if kind != engine.KindScript && kind != engine.KindStyle {
			return nil, fmt.Errorf("inline entry for %q: unknown kind %q", ic.Parent, ic.Kind)
		}
		pos := host.InlinePosition(strings.ToLower(strings.TrimSpace(ic.Position)))
		if pos != "" && pos != host.InlineBefore && pos != host.InlineAfter {
			return nil, fmt.Errorf("inline entry for %q: position must be before or after", ic.Parent)
		}
		m.Inline[kind] = append(m.Inline[kind], engine.InlineRequest{
			Parent:   ic.Parent,
			Content:  ic.Content,
			Position: pos,
			Hook:     ic.Hook,
			Priority: ic.Priority,
		})
	}

	for _, raw := range cfg.Deregister {
		req, ok := parseDeregister(raw, log)
		if !ok {
			continue
		}
		m.Deregister = append(m.Deregister, req)
	}

	return m, nil
}

func compileAsset(ac AssetConfig, kind engine.Kind) (engine.Asset, error) {
	if strings.TrimSpace(ac.Handle) == "" {
		return engine.Asset{}, fmt.Errorf("%s entry without handle", kind)
	}

	src, err := parseSource(ac.Src)
	if err != nil {
		return engine.Asset{}, fmt.Errorf("asset %q: %w", ac.Handle, err)
	}

	replace, err := parseReplace(ac.Replace)
	if err != nil {
		return engine.Asset{}, fmt.Errorf("asset %q: %w", ac.Handle, err)
	}

	a := engine.Asset{
		Handle:    ac.Handle,
		Source:    src,
		Deps:      ac.Deps,
		Version:   ac.Version,
		Kind:      kind,
		Hook:      ac.Hook,
		Priority:  ac.Priority,
		Replace:   replace,
		CacheBust: ac.CacheBust,
		Extra: host.Extra{
			InFooter:   ac.InFooter,
			Media:      ac.Media,
			Attributes: ac.Attributes,
		},
	}
	if ac.Enabled != nil && !*ac.Enabled {
		a.Condition = func() bool { return false }
	}
	return a, nil
}

// parseSource accepts the manifest's three src shapes: a string, false
// ("no hand-off"), or an environment map. Scalar values that are not
// strings are cast to strings; any other shape is a configuration error.
func parseSource(raw json.RawMessage) (engine.Source, error) {
	if len(raw) == 0 {
		return engine.Source{None: true}, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return engine.Source{}, fmt.Errorf("src: %w", err)
	}

	switch t := v.(type) {
	case string:
		return engine.Source{URL: t}, nil
	case bool:
		if t {
			return engine.Source{}, fmt.Errorf("src: true is not a source; use a URL, false, or an environment map")
		}
		return engine.Source{None: true}, nil
	case json.Number:
		return engine.Source{URL: t.String()}, nil
	case map[string]any:
		env := make(map[string]string, len(t))
		for k, val := range t {
			s, ok := scalarString(val)
			if !ok {
				return engine.Source{}, fmt.Errorf("src: environment %q must be a scalar", k)
			}
			env[k] = s
		}
		return engine.Source{Env: env}, nil
	default:
		return engine.Source{}, fmt.Errorf("src: unsupported shape %T", v)
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

func parseReplace(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var b bool
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&b); err != nil {
		return false, fmt.Errorf("replace must be a boolean, got %s", strings.TrimSpace(string(raw)))
	}
	return b, nil
}

// parseDeregister accepts a bare handle string or a
// {handle, hook?, priority?, immediate?} object. Anything else is logged
// and skipped.
func parseDeregister(raw json.RawMessage, log logx.Logger) (engine.DeregisterRequest, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			log.Warn("deregister entry with empty handle skipped")
			return engine.DeregisterRequest{}, false
		}
		return engine.DeregisterRequest{Handle: s}, true
	}

	var obj deregisterObject
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		log.Warn("invalid deregister entry skipped", logx.String("entry", string(raw)), logx.Err(err))
		return engine.DeregisterRequest{}, false
	}
	if strings.TrimSpace(obj.Handle) == "" {
		log.Warn("deregister entry without handle skipped", logx.String("entry", string(raw)))
		return engine.DeregisterRequest{}, false
	}
	return engine.DeregisterRequest{
		Handle:    obj.Handle,
		Hook:      obj.Hook,
		Priority:  obj.Priority,
		Immediate: obj.Immediate,
	}, true
}
