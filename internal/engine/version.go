package engine

import (
	"strings"

	logx "assetflow/pkg/logx"
)

// resolveSource turns a source declaration into a single location string.
// Environment maps try, in order: the configured environment key, the
// configured fallback keys, then the explicit default key. A map that
// matches none of them resolves to ErrNoSource; there is deliberately no
// "first entry wins" fallback, since map order carries no meaning.
func (e *Engine) resolveSource(s Source) (string, error) {
	if v := strings.TrimSpace(s.URL); v != "" {
		return v, nil
	}
	if len(s.Env) > 0 {
		keys := make([]string, 0, 2+len(e.opts.EnvFallback))
		keys = append(keys, e.opts.Environment)
		keys = append(keys, e.opts.EnvFallback...)
		keys = append(keys, e.opts.DefaultKey)
		for _, k := range keys {
			if v := strings.TrimSpace(s.Env[k]); v != "" {
				return v, nil
			}
		}
	}
	return "", ErrNoSource
}

// resolveVersion produces the version token published with a registration.
//
// With CacheBust off this returns the declared version untouched and never
// touches the filesystem. With CacheBust on it maps the resolved source to
// a local file and hashes its content; every failure along the way degrades
// to the declared version.
func (e *Engine) resolveVersion(a Asset, src string) string {
	if !a.CacheBust {
		return a.Version
	}
	if src == "" {
		return a.Version
	}

	path, ok := e.paths.URLToPath(src)
	if !ok {
		// Off-host resource; nothing to hash.
		return a.Version
	}
	if !e.paths.Exists(path) {
		e.warnThrottled("cache-bust file missing, keeping declared version",
			logx.String("handle", a.Handle), logx.String("path", path))
		return a.Version
	}
	sum, err := e.paths.ContentHash(path)
	if err != nil {
		e.warnThrottled("cache-bust hash failed, keeping declared version",
			logx.String("handle", a.Handle), logx.String("path", path), logx.Err(err))
		return a.Version
	}
	// Ten hex chars keeps query strings short; the collision risk across
	// one site's asset set is an acceptable trade.
	if len(sum) > 10 {
		sum = sum[:10]
	}
	return sum
}
