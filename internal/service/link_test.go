package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shortloop/shortloop/internal/model"
	"github.com/shortloop/shortloop/internal/shortcode"
)

// testLink builds an active link for seeding the fake store directly.
func testLink(shortCode string) *model.Link {
	return &model.Link{
		ID:          "id-" + shortCode,
		ShortCode:   shortCode,
		OriginalURL: "https://example.com/" + shortCode,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestService(t *testing.T, store *fakeStore, urlCache *fakeCache, queue *fakeQueue, source shortcode.IntnFunc) *LinkService {
	t.Helper()
	generator, err := shortcode.New(shortcode.DefaultLength, source)
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	return NewLinkService(store, urlCache, queue, generator, "https://sho.rt/", slog.Default(), nil)
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"valid", "https://example.com/path", "https://example.com/path", nil},
		{"trailing_slash", "https://example.com/path/", "https://example.com/path", nil},
		{"many_trailing_slashes", "https://example.com/path///", "https://example.com/path", nil},
		{"whitespace", "  https://example.com  ", "https://example.com", nil},
		{"empty", "", "", ErrInvalidURL},
		{"only_slashes", "///", "", ErrInvalidURL},
		{"relative", "example.com/path", "", ErrInvalidURL},
		{"ftp_scheme", "ftp://example.com", "", ErrInvalidURL},
		{"missing_host", "https://", "", ErrInvalidURL},
		{"javascript", "javascript:alert(1)", "", ErrInvalidURL},
		{"javascript_embedded", "https://example.com/?next=JAVASCRIPT:alert(1)", "", ErrSuspiciousURL},
		{"data_embedded", "https://example.com/?u=data:text/html,x", "", ErrSuspiciousURL},
		{"vbscript_mixed_case", "https://example.com/VbScRiPt:x", "", ErrSuspiciousURL},
		{"file_embedded", "https://example.com/?f=file:///etc/passwd", "", ErrSuspiciousURL},
		{"about_embedded", "https://example.com/about:blank", "", ErrSuspiciousURL},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := sanitizeURL(test.raw)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected error %v, got %v", test.wantErr, err)
			}
			if got != test.want {
				t.Fatalf("expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestCreateLinkValidationErrors(t *testing.T) {
	past := time.Now().Add(-1 * time.Hour)

	tests := []struct {
		name    string
		input   CreateLinkInput
		wantErr error
	}{
		{
			name:    "invalid_url",
			input:   CreateLinkInput{OriginalURL: "not a url"},
			wantErr: ErrInvalidURL,
		},
		{
			name:    "alias_too_short",
			input:   CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: "ab"},
			wantErr: ErrInvalidAlias,
		},
		{
			name:    "alias_with_space",
			input:   CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: "my link"},
			wantErr: ErrInvalidAlias,
		},
		{
			name:    "alias_too_long",
			input:   CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: strings.Repeat("a", 51)},
			wantErr: ErrInvalidAlias,
		},
		{
			name:    "expires_in_past",
			input:   CreateLinkInput{OriginalURL: "https://example.com", ExpiresAt: &past},
			wantErr: ErrExpiresInPast,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc := newTestService(t, newFakeStore(), newFakeCache(), &fakeQueue{}, nil)
			_, err := svc.CreateLink(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestCreateLinkGeneratesCode(t *testing.T) {
	store := newFakeStore()
	urlCache := newFakeCache()
	svc := newTestService(t, store, urlCache, &fakeQueue{}, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com/path/",
		OwnerID:     "alice",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if len(link.ShortCode) != shortcode.DefaultLength {
		t.Fatalf("expected %d-char code, got %q", shortcode.DefaultLength, link.ShortCode)
	}
	if !shortcode.IsWellFormed(link.ShortCode) {
		t.Fatalf("generated code %q is not well-formed", link.ShortCode)
	}
	if link.OriginalURL != "https://example.com/path" {
		t.Fatalf("expected sanitized URL, got %q", link.OriginalURL)
	}
	if !link.Active {
		t.Fatal("new link should be active")
	}

	// Creation populates the cache.
	if cached, ok := urlCache.get(link.ShortCode); !ok || cached != link.OriginalURL {
		t.Fatalf("expected cache entry %q, got %q (present=%v)", link.OriginalURL, cached, ok)
	}
}

func TestCreateLinkCustomAlias(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeCache(), &fakeQueue{}, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
		CustomAlias: "my-link",
		OwnerID:     "alice",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if link.ShortCode != "my-link" {
		t.Fatalf("expected alias to be the code, got %q", link.ShortCode)
	}

	// Same alias again conflicts.
	_, err = svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.org",
		CustomAlias: "my-link",
	})
	if !errors.Is(err, ErrAliasExists) {
		t.Fatalf("expected ErrAliasExists, got %v", err)
	}
}

func TestCreateLinkAliasCollidesWithGeneratedCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeCache(), &fakeQueue{}, nil)

	first, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Aliases share the namespace with generated codes.
	_, err = svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.org",
		CustomAlias: first.ShortCode,
	})
	if !errors.Is(err, ErrAliasExists) {
		t.Fatalf("expected ErrAliasExists, got %v", err)
	}
}

func TestCreateLinkCollisionRetry(t *testing.T) {
	store := newFakeStore()

	// The seeded source yields "aaaaaaa" on the first draw and "bbbbbbb"
	// afterwards. Preloading the first forces exactly one retry.
	calls := 0
	source := func(n int) int {
		calls++
		if calls <= shortcode.DefaultLength {
			return 0
		}
		return 1
	}

	store.add(testLink(strings.Repeat(string(shortcode.Alphabet[0]), shortcode.DefaultLength)))

	svc := newTestService(t, store, newFakeCache(), &fakeQueue{}, source)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if link.ShortCode != strings.Repeat(string(shortcode.Alphabet[1]), shortcode.DefaultLength) {
		t.Fatalf("expected retry candidate, got %q", link.ShortCode)
	}
}

func TestCreateLinkGenerationExhausted(t *testing.T) {
	store := newFakeStore()

	// Every draw yields the same candidate, which is already taken.
	source := func(int) int { return 0 }
	collided := strings.Repeat(string(shortcode.Alphabet[0]), shortcode.DefaultLength)
	store.add(testLink(collided))

	svc := newTestService(t, store, newFakeCache(), &fakeQueue{}, source)

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
	})
	if !errors.Is(err, ErrCodeGeneration) {
		t.Fatalf("expected ErrCodeGeneration, got %v", err)
	}
}

func TestCreateLinkSurvivesCacheFailure(t *testing.T) {
	store := newFakeStore()
	urlCache := newFakeCache()
	urlCache.setErr = errors.New("redis down")
	svc := newTestService(t, store, urlCache, &fakeQueue{}, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("cache failure must not fail creation: %v", err)
	}
	if link.ShortCode == "" {
		t.Fatal("expected a short code")
	}
}

func TestResolveCacheHit(t *testing.T) {
	store := newFakeStore()
	urlCache := newFakeCache()
	queue := &fakeQueue{}
	svc := newTestService(t, store, urlCache, queue, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com/page",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := svc.Resolve(context.Background(), link.ShortCode, &ClickContext{UserAgent: "test"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "https://example.com/page" {
		t.Fatalf("expected original URL, got %q", got)
	}

	jobs := queue.drained()
	if len(jobs) != 1 {
		t.Fatalf("expected one click job, got %d", len(jobs))
	}
	// The cache only stores the URL; the worker resolves the link ID.
	if jobs[0].LinkID != "" {
		t.Fatalf("hit-path job should carry no link ID, got %q", jobs[0].LinkID)
	}
	if jobs[0].ShortCode != link.ShortCode {
		t.Fatalf("job short code mismatch: %q", jobs[0].ShortCode)
	}
}

func TestResolveCacheMissFallsThroughAndRepopulates(t *testing.T) {
	store := newFakeStore()
	urlCache := newFakeCache()
	queue := &fakeQueue{}
	svc := newTestService(t, store, urlCache, queue, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com/page",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Simulate TTL eviction.
	urlCache.evict(link.ShortCode)

	got, err := svc.Resolve(context.Background(), link.ShortCode, &ClickContext{UserAgent: "test"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "https://example.com/page" {
		t.Fatalf("expected original URL, got %q", got)
	}

	if cached, ok := urlCache.get(link.ShortCode); !ok || cached != got {
		t.Fatalf("expected cache repopulated with %q, got %q (present=%v)", got, cached, ok)
	}

	jobs := queue.drained()
	if len(jobs) != 1 {
		t.Fatalf("expected one click job, got %d", len(jobs))
	}
	if jobs[0].LinkID != link.ID {
		t.Fatalf("miss-path job should carry the link ID, got %q", jobs[0].LinkID)
	}
}

func TestResolveCacheTransportErrorDegradesToStore(t *testing.T) {
	store := newFakeStore()
	urlCache := newFakeCache()
	urlCache.getErr = errors.New("redis timeout")
	svc := newTestService(t, store, urlCache, &fakeQueue{}, nil)

	link := testLink("abc1234")
	link.OriginalURL = "https://example.com/deg"
	store.add(link)

	got, err := svc.Resolve(context.Background(), "abc1234", nil)
	if err != nil {
		t.Fatalf("cache failure must degrade to store, got %v", err)
	}
	if got != "https://example.com/deg" {
		t.Fatalf("expected store URL, got %q", got)
	}
}

func TestResolveErrors(t *testing.T) {
	store := newFakeStore()

	expired := testLink("expired1")
	past := time.Now().Add(-1 * time.Minute)
	expired.ExpiresAt = &past
	store.add(expired)

	deleted := testLink("deleted1")
	deleted.Active = false
	store.add(deleted)

	svc := newTestService(t, store, newFakeCache(), &fakeQueue{}, nil)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"malformed_too_short", "ab", ErrInvalidShortCode},
		{"malformed_bad_chars", "abc!@#def", ErrInvalidShortCode},
		{"unknown", "zzzzzzz", ErrLinkNotFound},
		{"expired", "expired1", ErrLinkExpired},
		{"soft_deleted", "deleted1", ErrLinkNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.Resolve(context.Background(), test.code, nil)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestResolveWithoutClickContextRecordsNothing(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	svc := newTestService(t, store, newFakeCache(), queue, nil)

	store.add(testLink("abc1234"))

	if _, err := svc.Resolve(context.Background(), "abc1234", nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(queue.drained()) != 0 {
		t.Fatal("expected no click jobs without click context")
	}
}

func TestDeleteLink(t *testing.T) {
	store := newFakeStore()
	urlCache := newFakeCache()
	svc := newTestService(t, store, urlCache, &fakeQueue{}, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
		CustomAlias: "my-link",
		OwnerID:     "alice",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Non-owner cannot delete.
	if err := svc.DeleteLink(context.Background(), link.ShortCode, "mallory"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	// Owner can.
	if err := svc.DeleteLink(context.Background(), link.ShortCode, "alice"); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}

	// The cache entry is evicted and the link no longer resolves.
	if _, ok := urlCache.get(link.ShortCode); ok {
		t.Fatal("expected cache entry evicted")
	}
	if _, err := svc.Resolve(context.Background(), link.ShortCode, nil); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound after delete, got %v", err)
	}

	// Deleting again is not found.
	if err := svc.DeleteLink(context.Background(), link.ShortCode, "alice"); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestDeleteAnonymousLinkForbidden(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeCache(), &fakeQueue{}, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.DeleteLink(context.Background(), link.ShortCode, "alice"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for anonymous link, got %v", err)
	}
}
