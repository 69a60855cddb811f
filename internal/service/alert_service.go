package service

import (
	"context"
	"time"

	"medident/internal/dto"
	"medident/internal/repository"

	"golang.org/x/sync/errgroup"
)

// AlertService computes low-stock and expiring lists from the reporting
// database. It satisfies worker.AlertSource.
type AlertService interface {
	Alerts(ctx context.Context, expiringDays int) (*dto.AlertsResponse, error)
	LowStock(ctx context.Context) ([]dto.LowStockItem, error)
	Expiring(ctx context.Context, days int) ([]dto.ExpiringItem, error)
}

type alertService struct {
	reports     repository.ReportRepository
	defaultDays int
	now         func() time.Time
}

func NewAlertService(reports repository.ReportRepository, defaultDays int) AlertService {
	if defaultDays <= 0 {
		defaultDays = defaultExpiringDays
	}
	return &alertService{reports: reports, defaultDays: defaultDays, now: time.Now}
}

// Alerts loads both lists concurrently.
func (s *alertService) Alerts(ctx context.Context, expiringDays int) (*dto.AlertsResponse, error) {
	var resp dto.AlertsResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resp.LowStock, err = s.LowStock(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Expiring, err = s.Expiring(gctx, expiringDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *alertService) LowStock(ctx context.Context) ([]dto.LowStockItem, error) {
	rows, err := s.reports.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockItem, len(rows))
	for i, r := range rows {
		out[i] = dto.LowStockItem{
			ID:              r.ID.String(),
			Name:            r.Name,
			SKU:             r.SKU,
			Quantity:        r.Quantity,
			MinimumQuantity: r.MinimumQuantity,
			Unit:            r.Unit,
			Category:        r.Category,
		}
	}
	return out, nil
}

func (s *alertService) Expiring(ctx context.Context, days int) ([]dto.ExpiringItem, error) {
	if days <= 0 {
		days = s.defaultDays
	}
	now := s.now()
	rows, err := s.reports.Expiring(ctx, expiryCutoff(now, days))
	if err != nil {
		return nil, err
	}
	today := dto.NewDate(now)
	out := make([]dto.ExpiringItem, len(rows))
	for i, r := range rows {
		expiry := dto.NewDate(r.ExpiryDate)
		out[i] = dto.ExpiringItem{
			ID:              r.ItemID.String(),
			Name:            r.Name,
			SKU:             r.SKU,
			Unit:            r.Unit,
			Category:        r.Category,
			LotID:           uuidString(r.LotID),
			LotNumber:       r.LotNumber,
			ExpiryDate:      expiry,
			DaysUntilExpiry: int(expiry.Sub(today.Time).Hours() / 24),
			Quantity:        r.Quantity,
		}
	}
	return out, nil
}
