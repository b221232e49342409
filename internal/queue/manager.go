package queue

import "sync"

// Counters are the engine's monotonically non-decreasing crawl counters
// (spec.md §3 "CrawlCounters"). All mutation happens through Manager,
// which owns the single mutex guarding both the visited set and the
// counters together (spec.md §5: "one mutex per shared structure
// (visited set + counters...)").
type Counters struct {
	Queued           int
	Requested        int
	Succeeded        int
	Skipped          int
	Errored          int
	BackToBackErrors int
}

// Filterer decides whether a discovered URL's domain and path are
// allowed through the enqueue path (spec.md §4.2).
type Filterer interface {
	DomainAllowed(url string) bool
	PathAllowed(url string) bool
}

// Policy configures Manager.Enqueue's drop rules (spec.md §4.7).
type Policy struct {
	FollowSitemap bool
	FollowFeed    bool
	Filter        Filterer
}

// Manager is the Work Queue Manager: the visited set, enqueue policy,
// and counters (spec.md §4.7, §3). It owns a Deque for the actual
// blocking pop/push mechanics.
type Manager struct {
	mu       sync.Mutex
	visited  *VisitedSet
	counters Counters
	deque    *Deque
	policy   Policy
}

// NewManager builds a Manager with an empty visited set and deque.
func NewManager(policy Policy, largeScaleVisited bool) *Manager {
	return &Manager{
		visited: NewVisitedSet(largeScaleVisited),
		deque:   NewDeque(),
		policy:  policy,
	}
}

// Deque exposes the underlying Deque for PopRight (worker loop) and for
// the engine's direct TERMINAL-sentinel pushes, which bypass Enqueue's
// filter pipeline entirely (spec.md §4.9 "stop()").
func (m *Manager) Deque() *Deque { return m.deque }

// Enqueue applies spec.md §4.7's drop rules in order and, if the item
// survives, marks its URL visited and pushes it onto the deque.
// skipPathFilter is set for seed URLs (spec.md §4.9 "Enqueue each seed
// URL with skipPathFilter=true").
func (m *Manager) Enqueue(item Item, skipPathFilter bool) (enqueued bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.Kind == Sitemap && !m.policy.FollowSitemap {
		return false
	}
	if item.Kind == Feed && !m.policy.FollowFeed {
		return false
	}
	if m.policy.Filter != nil {
		if !m.policy.Filter.DomainAllowed(item.URL) {
			return false
		}
		if item.Kind == HTML && !skipPathFilter && !m.policy.Filter.PathAllowed(item.URL) {
			return false
		}
	}
	if !m.visited.VisitIfNew(item.URL) {
		return false
	}

	m.counters.Queued++
	m.deque.Push(item)
	return true
}

// IncRequested records that an item entered IN_FLIGHT state.
func (m *Manager) IncRequested() {
	m.mu.Lock()
	m.counters.Requested++
	m.mu.Unlock()
}

// IncSucceeded records a DONE item.
func (m *Manager) IncSucceeded() {
	m.mu.Lock()
	m.counters.Succeeded++
	m.mu.Unlock()
}

// IncSkipped records a SKIPPED item (robots-denied or enqueue-time drop
// accounted for separately -- see spec.md §7 "skipped covers both
// robots-denied and ... pre-queue drops").
func (m *Manager) IncSkipped() {
	m.mu.Lock()
	m.counters.Skipped++
	m.mu.Unlock()
}

// IncErrored records an ERRORED item and increments the back-to-back
// error streak. Returns the streak's new value.
func (m *Manager) IncErrored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.Errored++
	m.counters.BackToBackErrors++
	return m.counters.BackToBackErrors
}

// ResetBackToBackErrors clears the consecutive-error streak after a
// successful fetch.
func (m *Manager) ResetBackToBackErrors() {
	m.mu.Lock()
	m.counters.BackToBackErrors = 0
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Manager) Snapshot() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

// Quiescent reports whether every queued item has been accounted for
// (spec.md §4.9 "checkTerminate"): succeeded + errored + skipped >=
// queued. This is advisory -- a concurrent Enqueue racing this read
// merely defers termination to the next iteration (spec.md §9
// "Termination race").
func (m *Manager) Quiescent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.counters
	return c.Succeeded+c.Errored+c.Skipped >= c.Queued
}

// BudgetExceeded reports whether the request budget has been hit
// (spec.md §4.9 "budgetExceeded"): requested >= maxRequestedUrls.
func (m *Manager) BudgetExceeded(maxRequestedUrls int) bool {
	if maxRequestedUrls <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters.Requested >= maxRequestedUrls
}

// VisitedLen returns the number of distinct URLs ever enqueued.
func (m *Manager) VisitedLen() int {
	return m.visited.Len()
}

// VisitedURLs returns every URL ever enqueued, in no particular order.
func (m *Manager) VisitedURLs() []string {
	return m.visited.URLs()
}

// Close releases resources held by the visited set (its optional
// disk-backed bloom pre-filter).
func (m *Manager) Close() error {
	return m.visited.Close()
}
