package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateQRCodeRequest struct {
	LotID *string `json:"lotId" validate:"omitempty,uuid"`
}

type ScanQRCodeRequest struct {
	Quantity *decimal.Decimal `json:"quantity" validate:"required"`
	Reason   string           `json:"reason"   validate:"max=255"`
}

type QRCodeResponse struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Type            string    `json:"type"`
	InventoryItemID string    `json:"inventoryItemId"`
	LotID           *string   `json:"lotId"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

type QRResolveResponse struct {
	QRCode QRCodeResponse `json:"qrCode"`
	Item   ItemResponse   `json:"item"`
	Lot    *LotResponse   `json:"lot,omitempty"`
}
