// Package filter implements the engine's enqueue-time domain and path
// filters (spec.md §4.2), generalized from the teacher's
// urlutil.IsSameDomain/IsHTTPScheme helpers and grounded on
// _examples/original_source/pyminiscraper/filter.py's DomainFilter and
// PathFilter.
package filter

import (
	"net/url"
	"strings"

	"github.com/markhamlong/crawlctl/internal/robots"
)

// DomainAllowance selects how the allowed-domain set is derived.
type DomainAllowance int

const (
	// AllowAll means every domain not in Forbidden is accepted.
	AllowAll DomainAllowance = iota
	// DeriveFromSeeds means the allowed set is the netlocs of the seed URLs.
	DeriveFromSeeds
	// ExplicitAllow means the allowed set is exactly the configured list.
	ExplicitAllow
)

// DomainConfig configures a DomainFilter.
type DomainConfig struct {
	Forbidden []string
	Allowance DomainAllowance
	Allowed   []string // used only when Allowance == ExplicitAllow
}

// DomainFilter decides whether a URL's host may be crawled. Forbidden
// always wins over allowed, per spec.md §4.2.
type DomainFilter struct {
	forbidden []string
	allowed   []string // nil/empty means allow-all
}

// NewDomainFilter builds a DomainFilter from cfg. seedURLs is consulted
// only for DeriveFromSeeds.
func NewDomainFilter(cfg DomainConfig, seedURLs []string) *DomainFilter {
	f := &DomainFilter{forbidden: cfg.Forbidden}

	switch cfg.Allowance {
	case DeriveFromSeeds:
		seen := make(map[string]bool)
		for _, raw := range seedURLs {
			u, err := url.Parse(raw)
			if err != nil {
				continue
			}
			if !seen[u.Host] {
				seen[u.Host] = true
				f.allowed = append(f.allowed, u.Host)
			}
		}
	case ExplicitAllow:
		f.allowed = append(f.allowed, cfg.Allowed...)
	case AllowAll:
		// f.allowed stays empty -> allow-all
	}

	return f
}

// Allowed reports whether rawURL's domain passes the filter.
func (f *DomainFilter) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	domain := strings.ToLower(u.Host)

	for _, forbidden := range f.forbidden {
		if hasDomainSuffix(domain, strings.ToLower(forbidden)) {
			return false
		}
	}

	if len(f.allowed) == 0 {
		return true
	}
	for _, allowed := range f.allowed {
		if hasDomainSuffix(domain, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

func hasDomainSuffix(domain, suffix string) bool {
	return domain == suffix || strings.HasSuffix(domain, "."+suffix)
}

// PathFilter is a compiled set of robots-style glob patterns consulted at
// enqueue time for include/exclude path decisions.
type PathFilter struct {
	patterns     []string
	defaultValue bool
}

// NewPathFilter compiles patterns. defaultValue is returned by Passes when
// patterns is empty -- true for an include filter (nothing excludes by
// default), false for an exclude filter (nothing is excluded by default
// unless named).
func NewPathFilter(patterns []string, defaultValue bool) *PathFilter {
	return &PathFilter{patterns: append([]string(nil), patterns...), defaultValue: defaultValue}
}

// Passes reports whether rawURL's path matches any configured pattern. If
// no patterns are configured, it returns the filter's default value.
func (f *PathFilter) Passes(rawURL string) bool {
	if len(f.patterns) == 0 {
		return f.defaultValue
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for _, pattern := range f.patterns {
		if robots.MatchPattern(pattern, path) {
			return true
		}
	}
	return false
}
