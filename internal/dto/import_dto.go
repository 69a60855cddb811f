package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ImportRowError struct {
	Line  int    `json:"line"`
	SKU   string `json:"sku,omitempty"`
	Error string `json:"error"`
}

type ImportResponse struct {
	Message       string           `json:"message"`
	ImportedItems int              `json:"importedItems"`
	UpdatedItems  int              `json:"updatedItems"`
	FailedItems   int              `json:"failedItems"`
	Errors        []ImportRowError `json:"errors"`
}

// ExportRow is one inventory line of the CSV export, read by the reporting
// repository.
type ExportRow struct {
	ID              uuid.UUID       `db:"id"`
	Name            string          `db:"name"`
	Category        *string         `db:"category"`
	SKU             string          `db:"sku"`
	Quantity        decimal.Decimal `db:"quantity"`
	MinimumQuantity decimal.Decimal `db:"minimum_quantity"`
	Unit            string          `db:"unit"`
	Location        *string         `db:"location"`
	ExpiryDate      *time.Time      `db:"expiry_date"`
	Notes           *string         `db:"notes"`
}

// StockSummaryRow aggregates items per category for the PDF report.
type StockSummaryRow struct {
	Category      string          `db:"category"`
	ItemCount     int64           `db:"item_count"`
	TotalQuantity decimal.Decimal `db:"total_quantity"`
	LowStockCount int64           `db:"low_stock_count"`
}
