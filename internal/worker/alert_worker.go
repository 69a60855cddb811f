package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LowStockAlertPayload is enqueued when an adjustment takes an item from above
// its minimum to at or below it.
type LowStockAlertPayload struct {
	ItemID          string          `json:"item_id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Quantity        decimal.Decimal `json:"quantity"`
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
	Unit            string          `json:"unit"`
}

// AlertWorker turns low-stock alerts into emails to the configured recipients.
type AlertWorker struct {
	email      *EmailWorker
	recipients []string
}

func NewAlertWorker(email *EmailWorker, recipients []string) *AlertWorker {
	return &AlertWorker{email: email, recipients: recipients}
}

func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p LowStockAlertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("alert_worker: invalid payload: %w", err)
	}
	if len(w.recipients) == 0 {
		return nil
	}
	return w.email.send(ctx, EmailJobPayload{
		To:      w.recipients,
		Subject: fmt.Sprintf("Low stock: %s (%s)", p.Name, p.SKU),
		Body: fmt.Sprintf("%s (%s) is down to %s %s; minimum is %s.\n",
			p.Name, p.SKU, p.Quantity.StringFixed(2), p.Unit, p.MinimumQuantity.StringFixed(2)),
	})
}
