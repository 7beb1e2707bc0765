package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shortloop/shortloop/internal/model"
)

// ClickRepository provides database access for click events.
// The click log is append-only; events are never updated or deleted.
type ClickRepository struct {
	repo *Repository
}

// NewClickRepository creates a new ClickRepository.
func NewClickRepository(repo *Repository) *ClickRepository {
	return &ClickRepository{repo: repo}
}

// InsertClick records a single click event.
func (r *ClickRepository) InsertClick(ctx context.Context, event *model.ClickEvent) error {
	query := `
		INSERT INTO clicks (id, url_id, ip_address, user_agent, referrer, country, city, device_type, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.repo.pool.Exec(ctx, query,
		event.ID,
		event.LinkID,
		nullableString(event.IPAddress),
		nullableString(event.UserAgent),
		nullableString(event.Referrer),
		nullableString(event.Country),
		nullableString(event.City),
		nullableString(string(event.DeviceType)),
		event.ClickedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}

	return nil
}

// TotalClicks returns the total event count for a link.
func (r *ClickRepository) TotalClicks(ctx context.Context, linkID string) (int64, error) {
	query := `SELECT COUNT(*) FROM clicks WHERE url_id = $1`

	var count int64
	if err := r.repo.pool.QueryRow(ctx, query, linkID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}

	return count, nil
}

// ClicksByDate returns per-day counts over a trailing window, newest first.
func (r *ClickRepository) ClicksByDate(ctx context.Context, linkID string, days int) ([]model.DateCount, error) {
	query := `
		SELECT DATE(clicked_at) AS date, COUNT(*) AS clicks
		FROM clicks
		WHERE url_id = $1 AND clicked_at >= NOW() - ($2 * INTERVAL '1 day')
		GROUP BY DATE(clicked_at)
		ORDER BY date DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, linkID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks by date: %w", err)
	}
	defer rows.Close()

	var counts []model.DateCount
	for rows.Next() {
		var date time.Time
		var clicks int64
		if err := rows.Scan(&date, &clicks); err != nil {
			return nil, fmt.Errorf("failed to scan date count: %w", err)
		}
		counts = append(counts, model.DateCount{
			Date:   date.Format("2006-01-02"),
			Clicks: clicks,
		})
	}

	return counts, rows.Err()
}

// ClicksByCountry returns the top countries by count, descending.
// Events without a country fall into the "Unknown" bucket.
func (r *ClickRepository) ClicksByCountry(ctx context.Context, linkID string, limit int) ([]model.CountryCount, error) {
	query := `
		SELECT COALESCE(country, 'Unknown') AS country, COUNT(*) AS clicks
		FROM clicks
		WHERE url_id = $1
		GROUP BY country
		ORDER BY clicks DESC
		LIMIT $2
	`

	rows, err := r.repo.pool.Query(ctx, query, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks by country: %w", err)
	}
	defer rows.Close()

	var counts []model.CountryCount
	for rows.Next() {
		var c model.CountryCount
		if err := rows.Scan(&c.Country, &c.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan country count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// ClicksByDevice returns counts grouped by the raw stored device label.
// The service folds these into the fixed four-way taxonomy.
func (r *ClickRepository) ClicksByDevice(ctx context.Context, linkID string) (map[string]int64, error) {
	query := `
		SELECT COALESCE(device_type, ''), COUNT(*) AS clicks
		FROM clicks
		WHERE url_id = $1
		GROUP BY device_type
	`

	rows, err := r.repo.pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks by device: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var clicks int64
		if err := rows.Scan(&label, &clicks); err != nil {
			return nil, fmt.Errorf("failed to scan device count: %w", err)
		}
		counts[label] = clicks
	}

	return counts, rows.Err()
}
