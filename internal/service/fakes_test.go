package service

import (
	"context"
	"sync"
	"time"

	"github.com/shortloop/shortloop/internal/cache"
	"github.com/shortloop/shortloop/internal/clicks"
	"github.com/shortloop/shortloop/internal/model"
	"github.com/shortloop/shortloop/internal/repository"
)

// fakeStore is an in-memory LinkStore keyed by short code.
// Inactive rows are kept so soft-delete semantics can be asserted.
type fakeStore struct {
	mu        sync.Mutex
	links     map[string]*model.Link
	createErr error
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: make(map[string]*model.Link)}
}

func (f *fakeStore) CreateLink(ctx context.Context, link *model.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if existing, ok := f.links[link.ShortCode]; ok && existing.Active {
		return repository.ErrCodeTaken
	}
	cp := *link
	f.links[link.ShortCode] = &cp
	return nil
}

func (f *fakeStore) GetLinkByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	link, ok := f.links[shortCode]
	if !ok || !link.Active {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (f *fakeStore) CodeInUse(ctx context.Context, shortCode string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[shortCode]
	return ok && link.Active, nil
}

func (f *fakeStore) SoftDeleteLink(ctx context.Context, shortCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[shortCode]
	if !ok || !link.Active {
		return repository.ErrLinkNotFound
	}
	link.Active = false
	return nil
}

func (f *fakeStore) ListLinksByOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Link
	for _, link := range f.links {
		if link.Active && link.OwnerID == ownerID {
			cp := *link
			result = append(result, &cp)
		}
	}
	return result, nil
}

// add seeds an active link directly, bypassing validation.
func (f *fakeStore) add(link *model.Link) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *link
	f.links[link.ShortCode] = &cp
}

// fakeCache is an in-memory URLCache with injectable transport failures.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	delErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) GetURL(ctx context.Context, shortCode string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.entries[shortCode]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return value, nil
}

func (f *fakeCache) SetURL(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[shortCode] = originalURL
	return nil
}

func (f *fakeCache) DeleteURL(ctx context.Context, shortCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.entries, shortCode)
	return nil
}

func (f *fakeCache) get(shortCode string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[shortCode]
	return value, ok
}

func (f *fakeCache) evict(shortCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, shortCode)
}

// fakeQueue records enqueued click jobs.
type fakeQueue struct {
	mu   sync.Mutex
	jobs []clicks.Job
	full bool
}

func (f *fakeQueue) Enqueue(job clicks.Job) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.jobs = append(f.jobs, job)
	return true
}

func (f *fakeQueue) drained() []clicks.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]clicks.Job(nil), f.jobs...)
}
