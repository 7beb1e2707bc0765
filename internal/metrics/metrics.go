// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Redirect metrics
	IncRedirectCacheHit()
	IncRedirectCacheMiss()
	ObserveRedirectDuration(duration time.Duration)

	// Link management metrics
	IncLinkCreated()
	IncLinkDeleted()

	// Click recording metrics
	IncClickRecorded(status string) // status: "success", "failed", "dropped"
	SetClickQueueDepth(depth int)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Snapshot is a point-in-time view of recorded metrics.
type Snapshot struct {
	RedirectCacheHits   int64            `json:"redirect_cache_hits"`
	RedirectCacheMisses int64            `json:"redirect_cache_misses"`
	LinksCreated        int64            `json:"links_created"`
	LinksDeleted        int64            `json:"links_deleted"`
	ClicksRecorded      map[string]int64 `json:"clicks_recorded"`
	ClickQueueDepth     int              `json:"click_queue_depth"`
}
