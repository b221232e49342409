package hostreg

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls              atomic.Int32
	status             int
	body               []byte
	err                error
	blockUntilReleased chan struct{}
}

func (f *countingFetcher) FetchRobots(ctx context.Context, host string) (int, []byte, error) {
	f.calls.Add(1)
	if f.blockUntilReleased != nil {
		<-f.blockUntilReleased
	}
	return f.status, f.body, f.err
}

func TestRegistryFetchesEachHostOnce(t *testing.T) {
	fetcher := &countingFetcher{status: 200, body: []byte("User-agent: *\nDisallow: /admin\n")}
	reg := New(fetcher, 500*time.Millisecond)

	rec1, fresh1, err := reg.Get(context.Background(), "https://a.test", "bot")
	require.NoError(t, err)
	rec2, fresh2, err := reg.Get(context.Background(), "https://a.test", "bot")
	require.NoError(t, err)

	assert.Same(t, rec1, rec2, "expected the cached record to be reused")
	assert.True(t, fresh1, "first lookup for a host should be reported fresh")
	assert.False(t, fresh2, "second lookup for the same host should not be reported fresh")
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.True(t, rec1.Policy.CanFetch("bot", "https://a.test/public"))
	assert.False(t, rec1.Policy.CanFetch("bot", "https://a.test/admin/x"))
}

func TestRegistryCoalescesConcurrentLookups(t *testing.T) {
	fetcher := &countingFetcher{status: 200, body: []byte(""), blockUntilReleased: make(chan struct{})}
	reg := New(fetcher, time.Second)

	const n = 8
	results := make(chan *HostRecord, n)
	for i := 0; i < n; i++ {
		go func() {
			rec, _, err := reg.Get(context.Background(), "https://b.test", "bot")
			require.NoError(t, err)
			results <- rec
		}()
	}

	time.Sleep(20 * time.Millisecond) // let every goroutine reach the singleflight call
	close(fetcher.blockUntilReleased)

	first := <-results
	for i := 1; i < n; i++ {
		assert.Same(t, first, <-results, "every concurrent caller should see the same record")
	}
	assert.Equal(t, int32(1), fetcher.calls.Load(), "robots.txt should be fetched exactly once per host")
}

func TestRegistryFailsOpenOnFetchError(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("dial tcp: connection refused")}
	reg := New(fetcher, time.Second)

	rec, fresh, err := reg.Get(context.Background(), "https://c.test", "bot")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.True(t, rec.Policy.CanFetch("bot", "https://c.test/anything"), "a fetch error should degrade to allow-all")
}

func TestRegistryUsesParsedCrawlDelayOverDefault(t *testing.T) {
	fetcher := &countingFetcher{status: 200, body: []byte("User-agent: *\nCrawl-delay: 3\n")}
	reg := New(fetcher, 200*time.Millisecond)

	rec, _, err := reg.Get(context.Background(), "https://d.test", "bot")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, rec.CrawlDelay)
}

func TestRegistryExposesAdvertisedSitemaps(t *testing.T) {
	fetcher := &countingFetcher{status: 200, body: []byte("User-agent: *\nSitemap: http://e.test/s1.xml\nSitemap: http://e.test/s2.xml\n")}
	reg := New(fetcher, time.Second)

	rec, fresh, err := reg.Get(context.Background(), "https://e.test", "bot")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.ElementsMatch(t, []string{"http://e.test/s1.xml", "http://e.test/s2.xml"}, rec.Policy.Sitemaps)
}
