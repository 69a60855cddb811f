package service

import (
	"context"
	"time"

	"medident/internal/infra"
	"medident/internal/repository"

	"golang.org/x/sync/errgroup"
)

// ReportService renders the stock report PDF.
type ReportService interface {
	StockReportPDF(ctx context.Context) ([]byte, error)
}

type reportService struct {
	reports      repository.ReportRepository
	alerts       AlertService
	title        string
	expiringDays int
	now          func() time.Time
}

func NewReportService(reports repository.ReportRepository, alerts AlertService, title string, expiringDays int) ReportService {
	if title == "" {
		title = "Inventory stock report"
	}
	return &reportService{reports: reports, alerts: alerts, title: title, expiringDays: expiringDays, now: time.Now}
}

func (s *reportService) StockReportPDF(ctx context.Context) ([]byte, error) {
	report := infra.StockReport{Title: s.title, GeneratedAt: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Summary, err = s.reports.StockSummary(gctx)
		return err
	})
	g.Go(func() error {
		alerts, err := s.alerts.Alerts(gctx, s.expiringDays)
		if err != nil {
			return err
		}
		report.LowStock, report.Expiring = alerts.LowStock, alerts.Expiring
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infra.GenerateStockReportPDF(report)
}
