// Package model defines domain entities for the application.
package model

import "time"

// Link represents a shortened URL entity.
// A link is addressable by exactly one short code: either a caller-chosen
// custom alias or a generator-issued code. Both live in the same uniqueness
// namespace among active links.
type Link struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty"` // empty = anonymous
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsExpired returns true if the link has passed its expiry time.
// Links without an expiry never expire. Expiry is a read-time check only;
// it never mutates the record.
func (l *Link) IsExpired() bool {
	return l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt)
}
