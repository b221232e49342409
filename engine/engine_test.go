package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/markhamlong/crawlctl/sink"
)

func baseConfig(seeds ...string) Config {
	return Config{
		SeedURLs:            seeds,
		MaxParallelRequests: 2,
		RequestTimeout:      2 * time.Second,
		FollowWebPageLinks:  true,
		FollowSitemapLinks:  true,
		FollowFeedLinks:     true,
		MaxDepth:            5,
	}
}

func newTestServer(t *testing.T, handlers map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range handlers {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// Scenario 1 (spec.md §8): single-host crawl, robots allows all, two
// pages linked from the seed.
func TestEngineSingleHostCrawl(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/robots.txt": "",
		"/":           `<html><body><a href="/x">x</a><a href="/y">y</a></body></html>`,
		"/x":          `<html><body>x</body></html>`,
		"/y":          `<html><body>y</body></html>`,
	})

	eng, err := New(baseConfig(srv.URL+"/"), nil, nil, sink.NewMemory())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Counters.Queued)
	require.Equal(t, 3, res.Counters.Succeeded)
	require.Equal(t, 0, res.Counters.Errored)
	require.Equal(t, 0, res.Counters.Skipped)
}

// Scenario 2 (spec.md §8): robots denies the seed path, so it is
// requested and skipped rather than fetched.
func TestEngineRobotsDeny(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/robots.txt": "User-agent: *\nDisallow: /forbidden\n",
		"/forbidden":  `<html><body>nope</body></html>`,
	})

	eng, err := New(baseConfig(srv.URL+"/forbidden"), nil, nil, sink.NewMemory())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Counters.Requested)
	require.Equal(t, 1, res.Counters.Skipped)
	require.Equal(t, 0, res.Counters.Succeeded)
}

// Scenario 3 (spec.md §8): with no explicit domain config, the filter
// derives its allowance from the seed URLs, so an outlink to a
// different host is dropped at enqueue time.
func TestEngineDomainFilterDerivedFromSeeds(t *testing.T) {
	external := newTestServer(t, map[string]string{
		"/robots.txt": "",
		"/":           `<html><body>external</body></html>`,
	})
	seed := newTestServer(t, map[string]string{
		"/robots.txt": "",
		"/":           `<html><body><a href="` + external.URL + `/">external</a></body></html>`,
	})

	eng, err := New(baseConfig(seed.URL+"/"), nil, nil, sink.NewMemory())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Counters.Queued)
	require.Equal(t, 1, res.Counters.Succeeded)
}

// Scenario 4 (spec.md §8): robots.txt advertises "Sitemap: .../s.xml",
// which the Host Registry surfaces once per host and the engine
// enqueues as a SITEMAP item; the sitemap lists two pages, both of
// which are expected to be queued and fetched. The sitemap item itself
// also counts as succeeded.
func TestEngineSitemapExpansion(t *testing.T) {
	var srv *httptest.Server
	srv = newTestServer(t, map[string]string{
		"/":   `<html><body>seed, no HTML sitemap hint here</body></html>`,
		"/p1": `<html><body>p1</body></html>`,
		"/p2": `<html><body>p2</body></html>`,
	})
	mux := srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nSitemap: " + srv.URL + "/sitemap.xml\n"))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>` + srv.URL + `/p1</loc></url>
  <url><loc>` + srv.URL + `/p2</loc></url>
</urlset>`))
	})

	eng, err := New(baseConfig(srv.URL+"/"), nil, nil, sink.NewMemory())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, res.Counters.Succeeded) // seed + sitemap + p1 + p2
}

// The HTML <link rel="sitemap"> hint (spec.md §4.8 dispatchHTML) is a
// distinct discovery path from the robots.txt-advertised one exercised
// above; both must independently expand to their listed pages.
func TestEngineSitemapLinkHintExpansion(t *testing.T) {
	var srv *httptest.Server
	srv = newTestServer(t, map[string]string{
		"/robots.txt": "",
	})
	mux := srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><link rel="sitemap" href="/sitemap.xml"></head><body></body></html>`))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>` + srv.URL + `/p1</loc></url>
  <url><loc>` + srv.URL + `/p2</loc></url>
</urlset>`))
	})
	mux.HandleFunc("/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>p1</body></html>`))
	})
	mux.HandleFunc("/p2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>p2</body></html>`))
	})

	eng, err := New(baseConfig(srv.URL+"/"), nil, nil, sink.NewMemory())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, res.Counters.Succeeded) // seed + sitemap + p1 + p2
}

// Scenario 5 (spec.md §8): the seed page advertises a feed via
// <link rel="alternate" type="application/rss+xml">; each entry's
// title becomes hint metadata only used when the fetched page itself
// has none.
func TestEngineFeedExpansion(t *testing.T) {
	var srv *httptest.Server
	srv = newTestServer(t, map[string]string{
		"/robots.txt": "",
	})
	mux := srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><link rel="alternate" type="application/rss+xml" href="/feed.xml"></head><body></body></html>`))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>T1</title><link>` + srv.URL + `/e1</link></item>
  <item><title>T2</title><link>` + srv.URL + `/e2</link></item>
</channel></rss>`))
	})
	mux.HandleFunc("/e1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no title here</body></html>`))
	})
	mux.HandleFunc("/e2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>OwnTitle</title></head><body>has its own title</body></html>`))
	})

	m := sink.NewMemory()
	eng, err := New(baseConfig(srv.URL+"/"), nil, nil, m)
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, res.Counters.Succeeded) // seed + feed + e1 + e2

	var sawFeedHintTitle, sawOwnTitlePreserved bool
	for _, page := range m.Pages() {
		switch page.URL {
		case srv.URL + "/e1":
			sawFeedHintTitle = page.Title == "T1"
		case srv.URL + "/e2":
			sawOwnTitlePreserved = page.Title == "OwnTitle"
		}
	}
	require.True(t, sawFeedHintTitle, "expected e1's missing title to be filled from the feed hint")
	require.True(t, sawOwnTitlePreserved, "expected e2's own title to take precedence over the feed hint")
}

// Scenario 6 (spec.md §8): back-to-back fetch errors past the
// configured threshold stop the engine early.
func TestEngineBackToBackErrors(t *testing.T) {
	eng, err := New(Config{
		SeedURLs:            []string{"http://a.test/1", "http://a.test/2", "http://a.test/3", "http://a.test/4"},
		MaxParallelRequests: 1,
		RequestTimeout:      time.Second,
		MaxBackToBackErrors: 3,
	}, alwaysErrorFetcher{}, nil, sink.NewMemory())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Counters.Errored)
}

type alwaysErrorFetcher struct{}

func (alwaysErrorFetcher) Fetch(ctx context.Context, rawURL string) (RawPage, error) {
	return RawPage{}, errors.New("simulated fetch failure")
}
