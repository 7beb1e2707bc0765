// Package testutil provides helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shortloop/shortloop/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates the urls and clicks schema for tests.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	// Clicks reference urls, so they go down first and up last.
	steps := []string{
		filepath.Join(root, "migrations", "000002_clicks.down.sql"),
		filepath.Join(root, "migrations", "000001_urls.down.sql"),
		filepath.Join(root, "migrations", "000001_urls.up.sql"),
		filepath.Join(root, "migrations", "000002_clicks.up.sql"),
	}

	for _, path := range steps {
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", path, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", path, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// NewTestLink creates a test link with sensible defaults.
func NewTestLink(t testing.TB, shortCode string) *model.Link {
	t.Helper()
	return &model.Link{
		ID:          ulid.Make().String(),
		ShortCode:   shortCode,
		OriginalURL: "https://example.com/" + shortCode,
		OwnerID:     "test-user",
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewTestLinkWithExpiry creates a test link with an expiry time.
func NewTestLinkWithExpiry(t testing.TB, shortCode string, expiresAt time.Time) *model.Link {
	t.Helper()
	link := NewTestLink(t, shortCode)
	link.ExpiresAt = &expiresAt
	return link
}

// NewTestClick creates a test click event for a link.
func NewTestClick(t testing.TB, linkID string, deviceType model.DeviceType) *model.ClickEvent {
	t.Helper()
	return &model.ClickEvent{
		ID:         ulid.Make().String(),
		LinkID:     linkID,
		IPAddress:  "203.0.113.7",
		UserAgent:  "test-agent",
		DeviceType: deviceType,
		ClickedAt:  time.Now().UTC(),
	}
}

// UniqueShortCode generates a unique well-formed short code for tests.
// The tail of a ULID is random Crockford base32, which is alphanumeric.
func UniqueShortCode() string {
	s := ulid.Make().String()
	return s[len(s)-7:]
}
