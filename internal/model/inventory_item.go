package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a trackable SKU with its current on-hand quantity.
// Quantity is only ever written by the quantity ledger; field edits leave it alone.
type InventoryItem struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                string          `gorm:"not null;index"`
	SKU                 string          `gorm:"column:sku;uniqueIndex;not null"`
	CategoryID          *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	MinimumQuantity     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Unit                string          `gorm:"not null;default:'units'"`
	Location            *string
	Notes               *string
	ExpiryDate          *time.Time `gorm:"type:date"`
	RequiresLotTracking bool       `gorm:"not null;default:false"`
	IsActive            bool       `gorm:"not null;default:true"`
	CreatedBy           *uuid.UUID `gorm:"type:uuid"`
	UpdatedBy           *uuid.UUID `gorm:"type:uuid"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
	Lots     []Lot     `gorm:"foreignKey:InventoryItemID"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// IsLowStock reports whether the item sits at or below its reorder threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity.LessThanOrEqual(i.MinimumQuantity)
}
