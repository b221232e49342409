// Package robots parses robots.txt and evaluates can-fetch/crawl-delay
// decisions against the parsed policy.
//
// The matcher intentionally returns the first matching rule in file order
// rather than the RFC-preferred longest-match: this mirrors
// _examples/original_source/pyminiscraper/robots.py, which the spec this
// package implements pins down as a deliberate, preserved deviation from
// current robots-matching practice (see spec.md §4.6, §9).
package robots

import (
	"bufio"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// AccessRule is the top-level access decision that short-circuits
// per-rule evaluation.
type AccessRule int

const (
	// Default means no top-level override; evaluate entries.
	Default AccessRule = iota
	AllowAll
	DisallowAll
)

// RequestRate is a parsed "Request-rate: N/M" directive.
type RequestRate struct {
	Requests int
	Seconds  int
}

type ruleLine struct {
	pattern   *regexp.Regexp
	allowance bool
}

func (r ruleLine) appliesTo(path string) bool {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.pattern.MatchString(path)
}

// entry is one User-agent block: a set of agent names and the ordered
// rule lines, crawl-delay, and request-rate that apply to them.
type entry struct {
	userAgents []string
	rules      []ruleLine
	delay      *int
	reqRate    *RequestRate
}

func (e *entry) appliesTo(userAgent string) bool {
	ua := strings.ToLower(strings.SplitN(userAgent, "/", 2)[0])
	for _, agent := range e.userAgents {
		if agent == "*" {
			return true
		}
		if strings.Contains(ua, strings.ToLower(agent)) {
			return true
		}
	}
	return false
}

// allowance returns the allowance of the first matching rule line in file
// order, or true (allow) if nothing matches.
func (e *entry) allowance(path string) bool {
	for _, rule := range e.rules {
		if rule.appliesTo(path) {
			return rule.allowance
		}
	}
	return true
}

// Policy is parsed robots.txt state for one host.
type Policy struct {
	AccessRule   AccessRule
	Sitemaps     []string
	entries      []*entry
	defaultEntry *entry
}

// AllowAllPolicy returns the degraded policy installed when a robots.txt
// fetch fails: allow everything, no rules, no sitemaps (spec.md §4.5,
// §4.6, §7 — robots-fetch failure degrades to ALLOW_ALL).
func AllowAllPolicy() *Policy {
	return &Policy{AccessRule: AllowAll}
}

// PolicyForStatus returns a policy derived purely from an HTTP status
// code, mirroring pyminiscraper's download_and_parse: 401/403 deny
// everything, other 4xx allow everything. ok is false when the status
// does not determine the policy by itself and the body must be parsed.
func PolicyForStatus(statusCode int) (policy *Policy, ok bool) {
	switch {
	case statusCode == 401 || statusCode == 403:
		return &Policy{AccessRule: DisallowAll}, true
	case statusCode >= 400 && statusCode < 500:
		return &Policy{AccessRule: AllowAll}, true
	default:
		return nil, false
	}
}

func (p *Policy) addEntry(e *entry) {
	for _, agent := range e.userAgents {
		if agent == "*" {
			if p.defaultEntry == nil {
				p.defaultEntry = e
			}
			return
		}
	}
	p.entries = append(p.entries, e)
}

type parseState int

const (
	stateNone parseState = iota
	stateUserAgent
	stateRules
)

// Parse parses robots.txt content into a Policy. Invalid lines (missing
// colon, malformed numbers) are skipped, not fatal.
func Parse(body []byte) *Policy {
	policy := &Policy{}
	state := stateNone
	current := &entry{}

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}

		switch key {
		case "user-agent":
			if state == stateRules {
				policy.addEntry(current)
				current = &entry{}
			}
			current.userAgents = append(current.userAgents, value)
			state = stateUserAgent
		case "disallow":
			if state != stateNone {
				current.rules = append(current.rules, ruleLine{pattern: compilePattern(value), allowance: value == ""})
				state = stateRules
			}
		case "allow":
			if state != stateNone {
				current.rules = append(current.rules, ruleLine{pattern: compilePattern(value), allowance: true})
				state = stateRules
			}
		case "crawl-delay":
			if state != stateNone {
				if n, err := strconv.Atoi(value); err == nil {
					current.delay = &n
				}
				state = stateRules
			}
		case "request-rate":
			if state != stateNone {
				if rate, ok := parseRequestRate(value); ok {
					current.reqRate = rate
				}
				state = stateRules
			}
		case "sitemap":
			policy.Sitemaps = append(policy.Sitemaps, value)
		}
	}
	if state == stateRules {
		policy.addEntry(current)
	}
	return policy
}

func parseRequestRate(value string) (*RequestRate, bool) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return nil, false
	}
	reqs, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	secs, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil, false
	}
	return &RequestRate{Requests: reqs, Seconds: secs}, true
}

// specialChars are regex metacharacters that appear literally in robots
// patterns and must be escaped before translating '*' wildcards.
var specialChars = map[rune]bool{
	'\\': true, '.': true, '+': true, '?': true, '|': true,
	'(': true, ')': true, '[': true, ']': true, '{': true, '}': true,
}

// compilePattern translates a robots-style glob ('*' = any run, '$' = end
// anchor, everything else literal) into a full-string-matching regexp.
func compilePattern(pattern string) *regexp.Regexp {
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}

	var b strings.Builder
	for _, c := range pattern {
		if specialChars[c] {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	escaped := b.String()
	translated := strings.ReplaceAll(escaped, "*", ".*")
	if !strings.HasSuffix(translated, "$") && !strings.HasSuffix(translated, ".*") {
		translated += ".*"
	}
	return regexp.MustCompile("^(?:" + translated + ")$")
}

// MatchPattern reports whether a raw robots-style pattern matches path,
// using the same compilation rules as Parse. Exposed for the Filter Set's
// path include/exclude lists (spec.md §4.2), which reuse the same glob
// syntax.
func MatchPattern(pattern, path string) bool {
	return ruleLine{pattern: compilePattern(pattern), allowance: true}.appliesTo(path)
}

// CanFetch evaluates whether userAgent may fetch rawURL against p,
// per spec.md §4.6:
//  1. DisallowAll/AllowAll short-circuit.
//  2. Strip scheme/host, re-encode path+query.
//  3. First entry whose user-agents match wins; first matching rule line
//     in file order decides the allowance (no longest-match preference).
//  4. Fall back to the default ("*") entry.
//  5. Undecided => allow.
func (p *Policy) CanFetch(userAgent, rawURL string) bool {
	if p.AccessRule == DisallowAll {
		return false
	}
	if p.AccessRule == AllowAll {
		return true
	}

	path := requestPath(rawURL)

	for _, e := range p.entries {
		if e.appliesTo(userAgent) {
			return e.allowance(path)
		}
	}
	if p.defaultEntry != nil {
		return p.defaultEntry.allowance(path)
	}
	return true
}

// CrawlDelay returns the matching entry's advertised Crawl-delay in
// seconds, or (0, false) if none applies.
func (p *Policy) CrawlDelay(userAgent string) (int, bool) {
	for _, e := range p.entries {
		if e.appliesTo(userAgent) {
			if e.delay != nil {
				return *e.delay, true
			}
			return 0, false
		}
	}
	if p.defaultEntry != nil && p.defaultEntry.delay != nil {
		return *p.defaultEntry.delay, true
	}
	return 0, false
}

func requestPath(rawURL string) string {
	unescaped, err := url.QueryUnescape(rawURL)
	if err != nil {
		unescaped = rawURL
	}
	u, err := url.Parse(unescaped)
	if err != nil {
		return "/"
	}
	reencoded := &url.URL{Path: u.Path, RawQuery: u.RawQuery}
	s := reencoded.String()
	if s == "" {
		return "/"
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}
