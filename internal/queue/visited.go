package queue

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// VisitedSet is the engine's visited-set: a URL enters it exactly once,
// at enqueue time (spec.md §3 "Lifecycle"). It is the authority for the
// dedup invariant in spec.md §8 ("|visited_set| == |unique canonicalized
// URLs enqueued|"), so membership is always exact -- never approximate.
//
// For very large crawls, a disk-backed bloom filter (adapted from the
// teacher's VisitedTracker) sits in front of the exact map as a
// fast-negative pre-filter: since a bloom filter has no false negatives,
// "definitely not present" short-circuits straight to insertion without
// touching the map. A "maybe present" result still falls through to the
// authoritative map lookup, so correctness never depends on the filter's
// false-positive rate.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
	fast *bloomTracker // nil unless large-scale mode is enabled
}

// NewVisitedSet returns an empty VisitedSet. When largeScale is true, a
// disk-backed bloom filter pre-filter is installed; if it fails to
// initialize (e.g. no writable temp dir), the set silently falls back to
// exact-map-only operation.
func NewVisitedSet(largeScale bool) *VisitedSet {
	v := &VisitedSet{seen: make(map[string]struct{})}
	if largeScale {
		if tracker, err := newBloomTracker(); err == nil {
			v.fast = tracker
		}
	}
	return v
}

// VisitIfNew atomically checks membership and records url if new,
// returning true iff url was not previously visited.
func (v *VisitedSet) VisitIfNew(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fast != nil && !v.fast.IsVisited(url) {
		v.seen[url] = struct{}{}
		v.fast.Visit(url)
		return true
	}

	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	if v.fast != nil {
		v.fast.Visit(url)
	}
	return true
}

// Len returns the number of distinct URLs visited.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// URLs returns every URL visited so far, in no particular order. Used
// by the engine's end-of-crawl grouping report.
func (v *VisitedSet) URLs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	urls := make([]string, 0, len(v.seen))
	for u := range v.seen {
		urls = append(urls, u)
	}
	return urls
}

// Close releases the bloom pre-filter's backing file, if any.
func (v *VisitedSet) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fast == nil {
		return nil
	}
	return v.fast.Close()
}

// bloomTracker is a disk-backed bloom filter used as VisitedSet's
// fast-negative pre-filter, adapted from the teacher's
// crawler.VisitedTracker (mmap'd backing store, periodic flush).
type bloomTracker struct {
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64
	syncEvery uint64
}

func newBloomTracker() (*bloomTracker, error) {
	filter := bloom.NewWithEstimates(1_000_000, 0.001)

	tmpFile, err := os.CreateTemp(os.TempDir(), "crawlctl-visited-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	filterSize := filter.Cap()
	if err := tmpFile.Truncate(int64(filterSize)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(filterSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &bloomTracker{
		filter:    filter,
		file:      tmpFile,
		mmap:      mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

func (b *bloomTracker) IsVisited(url string) bool {
	return b.filter.TestString(url)
}

func (b *bloomTracker) Visit(url string) {
	b.filter.AddString(url)
	b.count++
	if b.count >= b.syncEvery {
		_ = b.syncLocked()
	}
}

func (b *bloomTracker) syncLocked() error {
	data, err := b.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) <= len(b.mmap) {
		copy(b.mmap, data)
	}
	if err := b.mmap.Flush(); err != nil {
		return fmt.Errorf("flush mmap: %w", err)
	}
	b.count = 0
	return nil
}

func (b *bloomTracker) Close() error {
	var errs []error
	if b.mmap != nil {
		if b.count > 0 {
			if err := b.syncLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := b.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		b.mmap = nil
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		b.file = nil
	}
	if b.tmpPath != "" {
		if err := os.Remove(b.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		b.tmpPath = ""
	}
	if len(errs) > 0 {
		return fmt.Errorf("close bloom tracker: %w", errors.Join(errs...))
	}
	return nil
}
