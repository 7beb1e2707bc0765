package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shortloop/shortloop/internal/model"
)

// Common errors for link repository operations.
var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeTaken    = errors.New("short code already taken")
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// CreateLink inserts a new link.
// The partial unique index on active short codes is the authoritative
// uniqueness guard; a violation surfaces as ErrCodeTaken regardless of
// whether the code was generated or a custom alias.
func (r *Repository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `
		INSERT INTO urls (id, short_code, original_url, custom_alias, owner_id, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.ShortCode,
		link.OriginalURL,
		nullableString(link.CustomAlias),
		nullableString(link.OwnerID),
		link.Active,
		link.ExpiresAt,
		link.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkByShortCode retrieves an active link by its short code.
// This is the hot path for redirects. Soft-deleted links are never returned.
func (r *Repository) GetLinkByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	query := `
		SELECT id, short_code, original_url, custom_alias, owner_id, is_active, expires_at, created_at
		FROM urls
		WHERE short_code = $1 AND is_active = true
	`

	link, err := scanLink(r.pool.QueryRow(ctx, query, shortCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by short code: %w", err)
	}

	return link, nil
}

// CodeInUse checks whether a short code is held by an active link.
// Used as a fast-path conflict check before insert; the unique index catches
// the check-then-act race.
func (r *Repository) CodeInUse(ctx context.Context, shortCode string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1 AND is_active = true)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, shortCode).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}

	return exists, nil
}

// SoftDeleteLink marks an active link inactive.
// The row is never physically removed; click events keep referencing it.
func (r *Repository) SoftDeleteLink(ctx context.Context, shortCode string) error {
	query := `
		UPDATE urls
		SET is_active = false
		WHERE short_code = $1 AND is_active = true
	`

	result, err := r.pool.Exec(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// ListLinksByOwner retrieves an owner's active links, newest first.
func (r *Repository) ListLinksByOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	query := `
		SELECT id, short_code, original_url, custom_alias, owner_id, is_active, expires_at, created_at
		FROM urls
		WHERE owner_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// scanLink scans a single row into a Link model.
func scanLink(row pgx.Row) (*model.Link, error) {
	var link model.Link
	var customAlias, ownerID *string

	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&customAlias,
		&ownerID,
		&link.Active,
		&link.ExpiresAt,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customAlias != nil {
		link.CustomAlias = *customAlias
	}
	if ownerID != nil {
		link.OwnerID = *ownerID
	}

	return &link, nil
}

// nullableString returns nil for empty strings so optional columns stay NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
