// Package urlcanon normalizes URLs to a stable byte-identical form and
// computes a stable hash over that form, per the canonicalization rules
// an engine needs to dedup work across a crawl.
package urlcanon

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Canonical is a normalized URL string plus its stable hash.
type Canonical struct {
	URL  string
	Hash string
}

// Canonicalize normalizes rawURL into a stable, byte-identical form.
//
// Rules, applied in order: lowercase scheme and host; default-port removal;
// path normalization (resolve "." / ".." segments, collapse repeated
// slashes); percent-encoding normalization; drop fragment; sort query
// parameters by key; strip a trailing slash except on the root path "/".
//
// Canonicalize(Canonicalize(x)) == Canonicalize(x) for any x this function
// accepts, since every step below is idempotent on its own output.
func Canonicalize(rawURL string) (Canonical, error) {
	s, err := canonicalizeString(rawURL)
	if err != nil {
		return Canonical{}, err
	}
	return Canonical{URL: s, Hash: hashOf(s)}, nil
}

func canonicalizeString(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("urlcanon: cannot canonicalize empty URL")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlcanon: parse %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("urlcanon: %q must have both scheme and host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = stripDefaultPort(u.Scheme, strings.ToLower(u.Host))
	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
	} else {
		cleaned := path.Clean(u.Path)
		if cleaned == "." {
			cleaned = "/"
		}
		if !strings.HasPrefix(cleaned, "/") {
			cleaned = "/" + cleaned
		}
		u.Path = cleaned
	}
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}

	return u.String(), nil
}

// stripDefaultPort removes ":80" from an http host or ":443" from an https
// host, leaving any other explicit port untouched.
func stripDefaultPort(scheme, host string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}

// MakeAbsolute resolves ref against base using RFC-3986 reference
// resolution and canonicalizes the result. An empty ref returns the
// canonicalized base.
func MakeAbsolute(base, ref string) (Canonical, error) {
	if ref == "" {
		return Canonicalize(base)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return Canonical{}, fmt.Errorf("urlcanon: parse base %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return Canonical{}, fmt.Errorf("urlcanon: parse ref %q: %w", ref, err)
	}

	resolved := baseURL.ResolveReference(refURL)
	return Canonicalize(resolved.String())
}

// Host returns the scheme+host key ("https://example.com") for a
// canonical URL string, used as the Host Registry's map key.
func Host(canonicalURL string) (string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "", fmt.Errorf("urlcanon: parse %q: %w", canonicalURL, err)
	}
	return u.Scheme + "://" + u.Host, nil
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
