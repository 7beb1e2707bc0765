// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shortloop/shortloop/internal/cache"
	"github.com/shortloop/shortloop/internal/clicks"
	"github.com/shortloop/shortloop/internal/metrics"
	"github.com/shortloop/shortloop/internal/model"
	"github.com/shortloop/shortloop/internal/repository"
	"github.com/shortloop/shortloop/internal/shortcode"
)

// Service errors.
var (
	ErrInvalidURL       = errors.New("invalid original URL")
	ErrSuspiciousURL    = errors.New("URL contains a forbidden scheme")
	ErrInvalidAlias     = errors.New("invalid alias format")
	ErrInvalidShortCode = errors.New("invalid short code format")
	ErrAliasExists      = errors.New("alias already exists")
	ErrCodeGeneration   = errors.New("could not generate a unique short code")
	ErrLinkNotFound     = errors.New("link not found")
	ErrLinkExpired      = errors.New("link is expired")
	ErrExpiresInPast    = errors.New("expires_at must be in the future")
	ErrNotOwner         = errors.New("caller does not own this link")
)

// Alias validation: 3-50 chars, alphanumeric plus hyphen and underscore.
var aliasRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// trailingSlashes is stripped from sanitized URLs.
var trailingSlashes = regexp.MustCompile(`/+$`)

// Forbidden schemes rejected by substring, case-insensitively, anywhere in
// the URL. A deliberate defense-in-depth check on top of scheme parsing.
var forbiddenSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "about:"}

// maxGenerateAttempts bounds collision retries during code generation.
// Collisions in a 62^7 space are vanishingly rare; hitting this limit points
// at a systemic problem that should surface, not be retried forever.
const maxGenerateAttempts = 5

// LinkStore is the durable URL store.
type LinkStore interface {
	CreateLink(ctx context.Context, link *model.Link) error
	GetLinkByShortCode(ctx context.Context, shortCode string) (*model.Link, error)
	CodeInUse(ctx context.Context, shortCode string) (bool, error)
	SoftDeleteLink(ctx context.Context, shortCode string) error
	ListLinksByOwner(ctx context.Context, ownerID string) ([]*model.Link, error)
}

// URLCache is the volatile shortCode -> originalURL cache.
type URLCache interface {
	GetURL(ctx context.Context, shortCode string) (string, error)
	SetURL(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error
	DeleteURL(ctx context.Context, shortCode string) error
}

// ClickQueue accepts click jobs without blocking.
type ClickQueue interface {
	Enqueue(job clicks.Job) bool
}

// LinkService orchestrates link creation, resolution and deletion.
type LinkService struct {
	store     LinkStore
	cache     URLCache
	queue     ClickQueue
	generator *shortcode.Generator
	baseURL   string
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewLinkService creates a new LinkService.
func NewLinkService(store LinkStore, urlCache URLCache, queue ClickQueue, generator *shortcode.Generator, baseURL string, logger *slog.Logger, recorder metrics.Recorder) *LinkService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LinkService{
		store:     store,
		cache:     urlCache,
		queue:     queue,
		generator: generator,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger.With("component", "service.link"),
		metrics:   recorder,
	}
}

// CreateLinkInput defines input for creating a link.
type CreateLinkInput struct {
	OriginalURL string
	CustomAlias string
	ExpiresAt   *time.Time
	OwnerID     string
}

// ClickContext carries request metadata for click recording.
type ClickContext struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Country   string
	City      string
}

// CreateLink creates a new short link.
func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	originalURL, err := sanitizeURL(input.OriginalURL)
	if err != nil {
		return nil, err
	}

	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiresInPast
	}

	alias := input.CustomAlias
	if alias != "" {
		if !aliasRegex.MatchString(alias) {
			return nil, ErrInvalidAlias
		}
		// Fast-path conflict check. The unique index on active short codes
		// is the real guard; this only produces a friendly error early.
		inUse, err := s.store.CodeInUse(ctx, alias)
		if err != nil {
			return nil, fmt.Errorf("check alias: %w", err)
		}
		if inUse {
			return nil, ErrAliasExists
		}
	}

	code := alias
	if code == "" {
		code, err = s.generateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	link := &model.Link{
		ID:          ulid.Make().String(),
		ShortCode:   code,
		OriginalURL: originalURL,
		CustomAlias: alias,
		OwnerID:     input.OwnerID,
		Active:      true,
		ExpiresAt:   input.ExpiresAt,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			// Lost the check-then-act race; the caller should retry.
			return nil, ErrAliasExists
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.metrics.IncLinkCreated()

	// Cache population is best-effort; the created record is valid without it.
	if err := s.cache.SetURL(ctx, link.ShortCode, link.OriginalURL, 0); err != nil {
		s.logger.Warn("failed to cache new link",
			"short_code", link.ShortCode,
			"error", err,
		)
	}

	return link, nil
}

// Resolve returns the original URL for a short code. This is the hot path.
//
// The cache is probed first; a transport failure counts as a miss and the
// lookup degrades to the store. When click context is supplied, recording is
// dispatched to the queue and never blocks or fails the resolution.
func (s *LinkService) Resolve(ctx context.Context, shortCode string, clickCtx *ClickContext) (string, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRedirectDuration(time.Since(start))
	}()

	if !resolvable(shortCode) {
		return "", ErrInvalidShortCode
	}

	cached, err := s.cache.GetURL(ctx, shortCode)
	if err == nil {
		s.metrics.IncRedirectCacheHit()
		// The cache stores only the URL; the worker does the second lookup
		// for the link ID off the hot path.
		s.enqueueClick(shortCode, "", clickCtx)
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache probe failed, degrading to store",
			"short_code", shortCode,
			"error", err,
		)
	}
	s.metrics.IncRedirectCacheMiss()

	link, err := s.store.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("failed to resolve link: %w", err)
	}

	// Read-time expiry check; the record is not mutated.
	if link.IsExpired() {
		return "", ErrLinkExpired
	}

	if err := s.cache.SetURL(ctx, shortCode, link.OriginalURL, 0); err != nil {
		s.logger.Warn("failed to repopulate cache",
			"short_code", shortCode,
			"error", err,
		)
	}

	s.enqueueClick(shortCode, link.ID, clickCtx)

	return link.OriginalURL, nil
}

// DeleteLink soft-deletes a link owned by the caller and evicts its cache
// entry. Anonymous links cannot be deleted through this path.
func (s *LinkService) DeleteLink(ctx context.Context, shortCode, ownerID string) error {
	if !resolvable(shortCode) {
		return ErrInvalidShortCode
	}

	link, err := s.store.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to load link: %w", err)
	}

	if link.OwnerID == "" || link.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.store.SoftDeleteLink(ctx, shortCode); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to delete link: %w", err)
	}

	s.metrics.IncLinkDeleted()

	if err := s.cache.DeleteURL(ctx, shortCode); err != nil {
		s.logger.Warn("failed to evict deleted link from cache",
			"short_code", shortCode,
			"error", err,
		)
	}

	return nil
}

// ListLinks returns the caller's active links, newest first.
func (s *LinkService) ListLinks(ctx context.Context, ownerID string) ([]*model.Link, error) {
	links, err := s.store.ListLinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// BaseURL returns the configured base URL.
func (s *LinkService) BaseURL() string {
	return s.baseURL
}

// ShortURL builds the externally addressable URL for a code.
func (s *LinkService) ShortURL(shortCode string) string {
	return s.baseURL + "/" + shortCode
}

// enqueueClick dispatches a click job when context is present.
func (s *LinkService) enqueueClick(shortCode, linkID string, clickCtx *ClickContext) {
	if clickCtx == nil || s.queue == nil {
		return
	}

	s.queue.Enqueue(clicks.Job{
		ShortCode: shortCode,
		LinkID:    linkID,
		IPAddress: clickCtx.IPAddress,
		UserAgent: clickCtx.UserAgent,
		Referrer:  clickCtx.Referrer,
		Country:   clickCtx.Country,
		City:      clickCtx.City,
		ClickedAt: time.Now().UTC(),
	})
}

// generateUniqueCode draws candidates until one is unused.
func (s *LinkService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code := s.generator.Candidate()

		inUse, err := s.store.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check candidate: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrCodeGeneration
}

// sanitizeURL trims whitespace, strips trailing slashes, and validates the
// result as an absolute http/https URL free of forbidden schemes.
func sanitizeURL(raw string) (string, error) {
	sanitized := trailingSlashes.ReplaceAllString(strings.TrimSpace(raw), "")
	if sanitized == "" {
		return "", ErrInvalidURL
	}

	parsed, err := url.Parse(sanitized)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}

	lower := strings.ToLower(sanitized)
	for _, scheme := range forbiddenSchemes {
		if strings.Contains(lower, scheme) {
			return "", ErrSuspiciousURL
		}
	}

	return sanitized, nil
}

// resolvable accepts any string that could address a link: a generated code
// or a custom alias. Both live in one namespace, so the lookup gate is the
// union of the two shapes.
func resolvable(code string) bool {
	return shortcode.IsWellFormed(code) || aliasRegex.MatchString(code)
}
