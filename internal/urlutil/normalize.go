// Package urlutil provides URL resolution and normalization helpers.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidTarget is returned for analysis targets that are not absolute http(s) URLs.
	ErrInvalidTarget = errors.New("invalid target url")

	// ErrUnresolvable is returned when an href cannot be turned into an http(s) URL.
	ErrUnresolvable = errors.New("unresolvable href")
)

// ParseTarget validates a caller supplied analysis target.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q must be an absolute http(s) url", ErrInvalidTarget, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidTarget, raw)
	}
	return u, nil
}

// Resolve turns an href found on the page at base into an absolute URL.
//
// Hrefs starting with a single "/" resolve against the scheme and host of
// base, absolute hrefs are used as they are, protocol-relative hrefs take the
// scheme of base, and anything else resolves relative to the page path.
func Resolve(base *url.URL, href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, fmt.Errorf("%w: empty href", ErrUnresolvable)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}

	var resolved *url.URL
	switch {
	case strings.HasPrefix(href, "//"):
		resolved = ref
		resolved.Scheme = base.Scheme
	case strings.HasPrefix(href, "/"):
		resolved = ref
		resolved.Scheme = base.Scheme
		resolved.Host = base.Host
	case ref.IsAbs():
		resolved = ref
	default:
		resolved = base.ResolveReference(ref)
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrUnresolvable, resolved.Scheme)
	}
	if resolved.Hostname() == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrUnresolvable, href)
	}
	return resolved, nil
}

// Origin returns scheme://host for u.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// Key normalizes a URL for deduplication: lowercase scheme and host, default
// port and fragment removed, empty path replaced by "/".
func Key(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	if c.Scheme == "http" && strings.HasSuffix(c.Host, ":80") {
		c.Host = strings.TrimSuffix(c.Host, ":80")
	} else if c.Scheme == "https" && strings.HasSuffix(c.Host, ":443") {
		c.Host = strings.TrimSuffix(c.Host, ":443")
	}
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}

// IsSameHost reports whether two URLs share a host, ignoring a leading "www.".
func IsSameHost(a, b *url.URL) bool {
	return trimWWW(strings.ToLower(a.Hostname())) == trimWWW(strings.ToLower(b.Hostname()))
}

// ExtractDomain extracts the registrable domain from a host.
func ExtractDomain(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.Contains(host, "]") || idx > strings.LastIndex(host, "]") {
			host = host[:idx]
		}
	}

	// Simple extraction; multi-label suffixes such as co.uk are not handled.
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}

func trimWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
