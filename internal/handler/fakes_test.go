package handler

import (
	"context"
	"sync"
	"time"

	"github.com/shortloop/shortloop/internal/cache"
	"github.com/shortloop/shortloop/internal/model"
	"github.com/shortloop/shortloop/internal/repository"
)

// memStore is a minimal in-memory link store for handler tests.
type memStore struct {
	mu    sync.Mutex
	links map[string]*model.Link
}

func newMemStore() *memStore {
	return &memStore{links: make(map[string]*model.Link)}
}

func (m *memStore) CreateLink(ctx context.Context, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.links[link.ShortCode]; ok && existing.Active {
		return repository.ErrCodeTaken
	}
	cp := *link
	m.links[link.ShortCode] = &cp
	return nil
}

func (m *memStore) GetLinkByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[shortCode]
	if !ok || !link.Active {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *memStore) CodeInUse(ctx context.Context, shortCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[shortCode]
	return ok && link.Active, nil
}

func (m *memStore) SoftDeleteLink(ctx context.Context, shortCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[shortCode]
	if !ok || !link.Active {
		return repository.ErrLinkNotFound
	}
	link.Active = false
	return nil
}

func (m *memStore) ListLinksByOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Link
	for _, link := range m.links {
		if link.Active && link.OwnerID == ownerID {
			cp := *link
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memStore) add(link *model.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.links[link.ShortCode] = &cp
}

// memCache is a minimal in-memory URL cache for handler tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (m *memCache) GetURL(ctx context.Context, shortCode string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[shortCode]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return value, nil
}

func (m *memCache) SetURL(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[shortCode] = originalURL
	return nil
}

func (m *memCache) DeleteURL(ctx context.Context, shortCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, shortCode)
	return nil
}

// memClickStore serves fixed aggregates for analytics handler tests.
type memClickStore struct {
	total    int64
	byDevice map[string]int64
}

func (m *memClickStore) TotalClicks(ctx context.Context, linkID string) (int64, error) {
	return m.total, nil
}

func (m *memClickStore) ClicksByDate(ctx context.Context, linkID string, days int) ([]model.DateCount, error) {
	return nil, nil
}

func (m *memClickStore) ClicksByCountry(ctx context.Context, linkID string, limit int) ([]model.CountryCount, error) {
	return nil, nil
}

func (m *memClickStore) ClicksByDevice(ctx context.Context, linkID string) (map[string]int64, error) {
	return m.byDevice, nil
}
