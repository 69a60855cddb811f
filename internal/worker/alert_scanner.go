package worker

// alert_scanner.go
// Background goroutine that periodically collects low-stock and expiring
// items and emails a digest. The digest is skipped while the SMTP breaker is
// open and when nothing changed since the last one sent within a day.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"medident/internal/dto"
	"medident/internal/infra"
	"medident/internal/telemetry"

	"github.com/rs/zerolog/log"
)

const digestRepeatAfter = 24 * time.Hour

// AlertSource returns the current alert lists.
type AlertSource interface {
	Alerts(ctx context.Context, expiringDays int) (*dto.AlertsResponse, error)
}

// EmailEnqueuer is satisfied by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// AlertScannerConfig holds all dependencies for the scanner goroutine.
type AlertScannerConfig struct {
	Source       AlertSource
	Enqueuer     EmailEnqueuer
	CB           *infra.CircuitBreaker
	Recipients   []string
	Interval     time.Duration
	ExpiringDays int
}

type alertScanner struct {
	cfg        AlertScannerConfig
	now        func() time.Time
	lastDigest string
	lastSentAt time.Time
}

// StartAlertScanner launches the scanner. It respects ctx for graceful shutdown.
func StartAlertScanner(ctx context.Context, cfg AlertScannerConfig) {
	if len(cfg.Recipients) == 0 {
		log.Info().Msg("alert_scanner: no recipients configured, not started")
		return
	}
	s := &alertScanner{cfg: cfg, now: time.Now}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("alert_scanner: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("alert_scanner: shutting down")
				return
			case <-ticker.C:
				s.scan(ctx)
			}
		}
	}()
}

func (s *alertScanner) scan(ctx context.Context) {
	if s.cfg.CB != nil && s.cfg.CB.State() == "open" {
		log.Debug().Msg("alert_scanner: circuit breaker is open, skipping tick")
		return
	}

	alerts, err := s.cfg.Source.Alerts(ctx, s.cfg.ExpiringDays)
	if err != nil {
		log.Error().Err(err).Msg("alert_scanner: failed to load alerts")
		return
	}
	if len(alerts.LowStock) == 0 && len(alerts.Expiring) == 0 {
		return
	}

	fp := fingerprint(alerts)
	now := s.now()
	if fp == s.lastDigest && now.Sub(s.lastSentAt) < digestRepeatAfter {
		return
	}

	payload := EmailJobPayload{
		To:      s.cfg.Recipients,
		Subject: fmt.Sprintf("Inventory alerts: %d low stock, %d expiring", len(alerts.LowStock), len(alerts.Expiring)),
		Body:    digestBody(alerts),
	}
	if err := s.cfg.Enqueuer.EnqueueEmail(ctx, payload); err != nil {
		log.Error().Err(err).Msg("alert_scanner: failed to enqueue digest")
		return
	}
	telemetry.AlertEmailsSentTotal.Inc()
	s.lastDigest, s.lastSentAt = fp, now
	log.Info().Int("low_stock", len(alerts.LowStock)).Int("expiring", len(alerts.Expiring)).Msg("alert_scanner: digest enqueued")
}

// fingerprint identifies the alert set by item, lot and quantity.
func fingerprint(a *dto.AlertsResponse) string {
	keys := make([]string, 0, len(a.LowStock)+len(a.Expiring))
	for _, it := range a.LowStock {
		keys = append(keys, "l:"+it.ID+":"+it.Quantity.String())
	}
	for _, it := range a.Expiring {
		lot := ""
		if it.LotID != nil {
			lot = *it.LotID
		}
		keys = append(keys, "e:"+it.ID+":"+lot+":"+it.ExpiryDate.Format(dto.DateLayout))
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "|")))
	return hex.EncodeToString(sum[:])
}

func digestBody(a *dto.AlertsResponse) string {
	var b strings.Builder
	if len(a.LowStock) > 0 {
		b.WriteString("Low stock:\n")
		for _, it := range a.LowStock {
			fmt.Fprintf(&b, "  - %s (%s): %s %s, minimum %s\n",
				it.Name, it.SKU, it.Quantity.StringFixed(2), it.Unit, it.MinimumQuantity.StringFixed(2))
		}
	}
	if len(a.Expiring) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Expiring:\n")
		for _, it := range a.Expiring {
			lot := ""
			if it.LotNumber != nil {
				lot = " lot " + *it.LotNumber
			}
			fmt.Fprintf(&b, "  - %s (%s)%s: %s, %d days\n",
				it.Name, it.SKU, lot, it.ExpiryDate.Format(dto.DateLayout), it.DaysUntilExpiry)
		}
	}
	return b.String()
}
