package filter

import "testing"

func TestDomainFilterDeriveFromSeeds(t *testing.T) {
	f := NewDomainFilter(DomainConfig{Allowance: DeriveFromSeeds}, []string{"https://a.test/"})

	if !f.Allowed("https://a.test/page") {
		t.Errorf("expected seed domain to be allowed")
	}
	if f.Allowed("https://b.test/page") {
		t.Errorf("expected non-seed domain to be rejected")
	}
}

func TestDomainFilterForbiddenWinsOverAllowed(t *testing.T) {
	f := NewDomainFilter(DomainConfig{
		Allowance: ExplicitAllow,
		Allowed:   []string{"a.test"},
		Forbidden: []string{"a.test"},
	}, nil)

	if f.Allowed("https://a.test/page") {
		t.Errorf("forbidden should win over allowed")
	}
}

func TestDomainFilterAllowAll(t *testing.T) {
	f := NewDomainFilter(DomainConfig{Allowance: AllowAll}, nil)
	if !f.Allowed("https://anything.example/page") {
		t.Errorf("AllowAll should accept any domain")
	}
}

func TestDomainFilterSubdomainSuffixMatch(t *testing.T) {
	f := NewDomainFilter(DomainConfig{Allowance: ExplicitAllow, Allowed: []string{"example.com"}}, nil)
	if !f.Allowed("https://blog.example.com/post") {
		t.Errorf("expected subdomain to match via suffix")
	}
	if f.Allowed("https://notexample.com/post") {
		t.Errorf("notexample.com must not match via bare suffix without a dot boundary")
	}
}

func TestPathFilterIncludeDefaultsTrue(t *testing.T) {
	include := NewPathFilter(nil, true)
	if !include.Passes("https://a.test/anything") {
		t.Errorf("empty include filter should pass everything")
	}
}

func TestPathFilterExcludeDefaultsFalse(t *testing.T) {
	exclude := NewPathFilter(nil, false)
	if exclude.Passes("https://a.test/anything") {
		t.Errorf("empty exclude filter should exclude nothing, i.e. Passes() (match) should be false")
	}
}

func TestPathFilterMatchesConfiguredPattern(t *testing.T) {
	exclude := NewPathFilter([]string{"/*.pdf", "/private$"}, false)
	if !exclude.Passes("https://a.test/doc.pdf") {
		t.Errorf("expected /doc.pdf to match exclude pattern")
	}
	if !exclude.Passes("https://a.test/private") {
		t.Errorf("expected /private to match exclude pattern")
	}
	if exclude.Passes("https://a.test/private/sub") {
		t.Errorf("expected /private/sub not to match end-anchored exclude pattern")
	}
}
