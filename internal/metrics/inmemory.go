package metrics

import (
	"sync"
	"time"
)

// InMemoryRecorder implements Recorder with in-process counters.
// Useful for tests and local debugging; production deployments can swap in a
// Prometheus-backed Recorder without touching call sites.
type InMemoryRecorder struct {
	mu sync.Mutex

	redirectCacheHits   int64
	redirectCacheMisses int64
	linksCreated        int64
	linksDeleted        int64
	clicksRecorded      map[string]int64
	clickQueueDepth     int
}

// NewInMemory returns a Recorder backed by in-process counters.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		clicksRecorded: make(map[string]int64),
	}
}

// IncRedirectCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncRedirectCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirectCacheHits++
}

// IncRedirectCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncRedirectCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirectCacheMisses++
}

// ObserveRedirectDuration is recorded nowhere in memory; durations belong in
// a histogram backend.
func (m *InMemoryRecorder) ObserveRedirectDuration(duration time.Duration) {}

// IncLinkCreated increments the created counter.
func (m *InMemoryRecorder) IncLinkCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linksCreated++
}

// IncLinkDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncLinkDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linksDeleted++
}

// IncClickRecorded increments the counter for a recording outcome.
func (m *InMemoryRecorder) IncClickRecorded(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicksRecorded[status]++
}

// SetClickQueueDepth records the current queue depth.
func (m *InMemoryRecorder) SetClickQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickQueueDepth = depth
}

// Snapshot returns a copy of the current counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	clicks := make(map[string]int64, len(m.clicksRecorded))
	for k, v := range m.clicksRecorded {
		clicks[k] = v
	}

	return Snapshot{
		RedirectCacheHits:   m.redirectCacheHits,
		RedirectCacheMisses: m.redirectCacheMisses,
		LinksCreated:        m.linksCreated,
		LinksDeleted:        m.linksDeleted,
		ClicksRecorded:      clicks,
		ClickQueueDepth:     m.clickQueueDepth,
	}
}
