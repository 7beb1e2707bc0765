// Package clicks provides fire-and-forget click event recording.
//
// Redirect handlers enqueue click jobs onto a bounded queue; a single worker
// drains it and writes events to the click store. Recording never blocks a
// redirect and recording failures never surface to the caller: they are
// logged, counted, and dropped, not retried.
package clicks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shortloop/shortloop/internal/device"
	"github.com/shortloop/shortloop/internal/metrics"
	"github.com/shortloop/shortloop/internal/model"
	"github.com/shortloop/shortloop/internal/repository"
)

// DefaultRecordTimeout bounds each store write after the request is gone.
const DefaultRecordTimeout = 5 * time.Second

// Store persists click events.
type Store interface {
	InsertClick(ctx context.Context, event *model.ClickEvent) error
}

// LinkResolver looks up the link a click refers to.
// Needed on the cache-hit path, where only the short code is known.
type LinkResolver interface {
	GetLinkByShortCode(ctx context.Context, shortCode string) (*model.Link, error)
}

// Job is one click waiting to be recorded.
// LinkID may be empty when the redirect was served from cache; the worker
// resolves it with a second store lookup.
type Job struct {
	ShortCode string
	LinkID    string

	IPAddress string
	UserAgent string
	Referrer  string
	Country   string
	City      string

	ClickedAt time.Time
}

// Recorder is the bounded queue plus its worker.
type Recorder struct {
	store         Store
	links         LinkResolver
	logger        *slog.Logger
	metrics       metrics.Recorder
	jobs          chan Job
	recordTimeout time.Duration

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewRecorder creates a Recorder with the given queue capacity.
func NewRecorder(store Store, links LinkResolver, logger *slog.Logger, recorder metrics.Recorder, queueSize int) *Recorder {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Recorder{
		store:         store,
		links:         links,
		logger:        logger.With("component", "clicks.recorder"),
		metrics:       recorder,
		jobs:          make(chan Job, queueSize),
		recordTimeout: DefaultRecordTimeout,
	}
}

// SetRecordTimeout overrides the per-job store write timeout.
func (r *Recorder) SetRecordTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.recordTimeout = timeout
	}
}

// Enqueue offers a job to the queue without blocking.
// Returns false if the queue is full; the job is dropped and logged.
func (r *Recorder) Enqueue(job Job) bool {
	select {
	case r.jobs <- job:
		r.metrics.SetClickQueueDepth(len(r.jobs))
		return true
	default:
		r.logger.Warn("click queue full, dropping event",
			"short_code", job.ShortCode,
		)
		r.metrics.IncClickRecorded("dropped")
		return false
	}
}

// Run starts the worker loop. Blocks until the context is cancelled, then
// drains whatever is already queued before returning.
func (r *Recorder) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("recorder already started")
	}
	r.started = true
	r.done = make(chan struct{})
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	defer close(r.done)

	r.logger.Info("click recorder started", "queue_capacity", cap(r.jobs))

	for {
		select {
		case <-ctx.Done():
			r.drain()
			r.logger.Info("click recorder stopped")
			return nil
		case job := <-r.jobs:
			r.record(job)
			r.metrics.SetClickQueueDepth(len(r.jobs))
		}
	}
}

// Shutdown gracefully stops the worker, draining the queue.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.draining = true
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			r.logger.Warn("click recorder shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// drain records everything already queued, without blocking for more.
func (r *Recorder) drain() {
	for {
		select {
		case job := <-r.jobs:
			r.record(job)
		default:
			return
		}
	}
}

// record writes one click event. Failures are terminal: logged and counted,
// never retried, never propagated.
func (r *Recorder) record(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.recordTimeout)
	defer cancel()

	linkID := job.LinkID
	if linkID == "" {
		link, err := r.links.GetLinkByShortCode(ctx, job.ShortCode)
		if err != nil {
			if errors.Is(err, repository.ErrLinkNotFound) {
				// Link vanished between the cached redirect and now.
				r.logger.Debug("click for unknown link skipped", "short_code", job.ShortCode)
				r.metrics.IncClickRecorded("skipped")
				return
			}
			r.logger.Warn("failed to resolve link for click",
				"short_code", job.ShortCode,
				"error", err,
			)
			r.metrics.IncClickRecorded("failed")
			return
		}
		linkID = link.ID
	}

	event := &model.ClickEvent{
		ID:         ulid.Make().String(),
		LinkID:     linkID,
		IPAddress:  job.IPAddress,
		UserAgent:  job.UserAgent,
		Referrer:   job.Referrer,
		DeviceType: device.Detect(job.UserAgent),
		Country:    job.Country,
		City:       job.City,
		ClickedAt:  job.ClickedAt,
	}

	if err := r.store.InsertClick(ctx, event); err != nil {
		r.logger.Warn("failed to record click",
			"short_code", job.ShortCode,
			"link_id", linkID,
			"error", err,
		)
		r.metrics.IncClickRecorded("failed")
		return
	}

	r.metrics.IncClickRecorded("success")
}
