package client

import (
	"fmt"
	"net/url"
	"strings"
)

// parseBase validates the client's base location.
func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unknown uri scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u, nil
}

// resolve turns a path, relative reference or absolute URL into an
// absolute URL against base.
func resolve(base *url.URL, ref string) (*url.URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parsing path %q: %w", ref, err)
	}

	return base.ResolveReference(r), nil
}

// sameOrigin reports whether a and b share scheme, host and port.
func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	default:
		return "80"
	}
}

// requestURI is the path (plus query) sent on the request line and
// used as the digest uri.
func requestURI(u *url.URL) string {
	return u.RequestURI()
}

// trimSlash normalises a collection path for self comparison.
func trimSlash(p string) string {
	t := strings.TrimRight(p, "/")
	if t == "" {
		return "/"
	}

	return t
}
