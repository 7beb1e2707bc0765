// Package model defines domain entities for the application.
package model

import "time"

// DeviceType is the coarse device taxonomy derived from the User-Agent.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceTablet  DeviceType = "tablet"
	DeviceOther   DeviceType = "other"
	DeviceUnknown DeviceType = "unknown"
)

// ClickEvent represents a single recorded hit on a short link.
// Events are append-only and immutable; they reference the link that was hit
// but survive its soft deletion.
type ClickEvent struct {
	ID     string `json:"id"`
	LinkID string `json:"link_id"`

	// Request metadata, all optional.
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	Referrer   string     `json:"referrer,omitempty"`
	DeviceType DeviceType `json:"device_type,omitempty"`

	// Geo fields are populated by an external collaborator when present.
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`

	ClickedAt time.Time `json:"clicked_at"`
}

// DateCount is a per-calendar-date click count.
type DateCount struct {
	Date   string `json:"date"` // ISO date (YYYY-MM-DD)
	Clicks int64  `json:"clicks"`
}

// CountryCount is a per-country click count. Absent countries are coalesced
// into a literal "Unknown" bucket.
type CountryCount struct {
	Country string `json:"country"`
	Clicks  int64  `json:"clicks"`
}

// DeviceBreakdown is the fixed four-way device bucket counts. Labels outside
// the first three canonical values fold additively into Other.
type DeviceBreakdown struct {
	Mobile  int64 `json:"mobile"`
	Desktop int64 `json:"desktop"`
	Tablet  int64 `json:"tablet"`
	Other   int64 `json:"other"`
}

// Analytics is the combined aggregate view over a link's click events.
type Analytics struct {
	ShortCode       string          `json:"short_code"`
	TotalClicks     int64           `json:"total_clicks"`
	ClicksByDate    []DateCount     `json:"clicks_by_date"`
	ClicksByCountry []CountryCount  `json:"clicks_by_country"`
	ClicksByDevice  DeviceBreakdown `json:"clicks_by_device"`
}
