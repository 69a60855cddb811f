package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot is a dated sub-batch of an item. Its quantity is recorded independently
// of the parent item's quantity.
type Lot struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lot_item_number"`
	LotNumber       string          `gorm:"not null;uniqueIndex:idx_lot_item_number"`
	ExpiryDate      *time.Time      `gorm:"type:date"`
	Quantity        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Supplier        *string
	InvoiceNumber   *string
	ReceivedDate    *time.Time `gorm:"type:date"`
	CreatedBy       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Lot) TableName() string { return "inventory_lots" }
