package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shortloop/shortloop/internal/model"
	"github.com/shortloop/shortloop/internal/repository"
)

// Aggregate query parameters.
const (
	analyticsWindowDays   = 30
	analyticsTopCountries = 10
)

// ClickStore is the append-only click log's aggregate query surface.
type ClickStore interface {
	TotalClicks(ctx context.Context, linkID string) (int64, error)
	ClicksByDate(ctx context.Context, linkID string, days int) ([]model.DateCount, error)
	ClicksByCountry(ctx context.Context, linkID string, limit int) ([]model.CountryCount, error)
	ClicksByDevice(ctx context.Context, linkID string) (map[string]int64, error)
}

// AnalyticsService aggregates click events into summarized views.
type AnalyticsService struct {
	store  LinkStore
	clicks ClickStore
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store LinkStore, clickStore ClickStore) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		clicks: clickStore,
	}
}

// GetAnalytics returns the combined aggregate view for a link.
//
// The four aggregate queries run concurrently; either all succeed or the
// whole call fails. Partial results are never returned.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, shortCode string) (*model.Analytics, error) {
	if !resolvable(shortCode) {
		return nil, ErrInvalidShortCode
	}

	link, err := s.store.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}

	var (
		total     int64
		byDate    []model.DateCount
		byCountry []model.CountryCount
		byDevice  map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		total, err = s.clicks.TotalClicks(gctx, link.ID)
		return err
	})
	g.Go(func() error {
		var err error
		byDate, err = s.clicks.ClicksByDate(gctx, link.ID, analyticsWindowDays)
		return err
	})
	g.Go(func() error {
		var err error
		byCountry, err = s.clicks.ClicksByCountry(gctx, link.ID, analyticsTopCountries)
		return err
	})
	g.Go(func() error {
		var err error
		byDevice, err = s.clicks.ClicksByDevice(gctx, link.ID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate clicks: %w", err)
	}

	return &model.Analytics{
		ShortCode:       link.ShortCode,
		TotalClicks:     total,
		ClicksByDate:    byDate,
		ClicksByCountry: byCountry,
		ClicksByDevice:  foldDevices(byDevice),
	}, nil
}

// foldDevices buckets raw device labels into the fixed four-way taxonomy.
// Anything outside the three canonical labels, including absent values,
// folds additively into Other.
func foldDevices(raw map[string]int64) model.DeviceBreakdown {
	var breakdown model.DeviceBreakdown

	for label, clicks := range raw {
		switch strings.ToLower(label) {
		case string(model.DeviceMobile):
			breakdown.Mobile = clicks
		case string(model.DeviceDesktop):
			breakdown.Desktop = clicks
		case string(model.DeviceTablet):
			breakdown.Tablet = clicks
		default:
			breakdown.Other += clicks
		}
	}

	return breakdown
}
