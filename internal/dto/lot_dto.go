package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateLotRequest struct {
	LotNumber     string          `json:"lotNumber"     validate:"required,min=1,max=64"`
	ExpiryDate    *Date           `json:"expiryDate"`
	Quantity      decimal.Decimal `json:"quantity"      validate:"min=0"`
	Supplier      *string         `json:"supplier"      validate:"omitempty,max=200"`
	InvoiceNumber *string         `json:"invoiceNumber" validate:"omitempty,max=64"`
	ReceivedDate  *Date           `json:"receivedDate"`
}

type UpdateLotRequest struct {
	LotNumber     *string          `json:"lotNumber"     validate:"omitempty,min=1,max=64"`
	ExpiryDate    *Date            `json:"expiryDate"`
	Quantity      *decimal.Decimal `json:"quantity"      validate:"omitempty,min=0"`
	Supplier      *string          `json:"supplier"      validate:"omitempty,max=200"`
	InvoiceNumber *string          `json:"invoiceNumber" validate:"omitempty,max=64"`
	ReceivedDate  *Date            `json:"receivedDate"`
}

type LotResponse struct {
	ID              string          `json:"id"`
	InventoryItemID string          `json:"inventoryItemId"`
	LotNumber       string          `json:"lotNumber"`
	ExpiryDate      *Date           `json:"expiryDate"`
	Quantity        decimal.Decimal `json:"quantity"`
	Supplier        *string         `json:"supplier"`
	InvoiceNumber   *string         `json:"invoiceNumber"`
	ReceivedDate    *Date           `json:"receivedDate"`
	CreatedAt       time.Time       `json:"createdAt"`
}
