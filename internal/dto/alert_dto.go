package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockRow is read by the reporting repository.
type LowStockRow struct {
	ID              uuid.UUID       `db:"id"`
	Name            string          `db:"name"`
	SKU             string          `db:"sku"`
	Quantity        decimal.Decimal `db:"quantity"`
	MinimumQuantity decimal.Decimal `db:"minimum_quantity"`
	Unit            string          `db:"unit"`
	Category        *string         `db:"category"`
}

// ExpiringRow is one item-level or lot-level expiry.
type ExpiringRow struct {
	ItemID     uuid.UUID       `db:"item_id"`
	Name       string          `db:"name"`
	SKU        string          `db:"sku"`
	Unit       string          `db:"unit"`
	Category   *string         `db:"category"`
	LotID      *uuid.UUID      `db:"lot_id"`
	LotNumber  *string         `db:"lot_number"`
	ExpiryDate time.Time       `db:"expiry_date"`
	Quantity   decimal.Decimal `db:"quantity"`
}

type LowStockItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Quantity        decimal.Decimal `json:"quantity"`
	MinimumQuantity decimal.Decimal `json:"minimumQuantity"`
	Unit            string          `json:"unit"`
	Category        *string         `json:"category"`
}

type ExpiringItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Unit            string          `json:"unit"`
	Category        *string         `json:"category"`
	LotID           *string         `json:"lotId"`
	LotNumber       *string         `json:"lotNumber"`
	ExpiryDate      Date            `json:"expiryDate"`
	DaysUntilExpiry int             `json:"daysUntilExpiry"`
	Quantity        decimal.Decimal `json:"quantity"`
}

type AlertsResponse struct {
	LowStock []LowStockItem `json:"lowStock"`
	Expiring []ExpiringItem `json:"expiring"`
}
