package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuditLogFilter struct {
	ItemID     string `form:"itemId"     validate:"omitempty,uuid"`
	ActionType string `form:"actionType" validate:"omitempty,oneof=manual invoice scan qr csv_import adjustment"`
	UserID     string `form:"userId"     validate:"omitempty,uuid"`
	From       string `form:"from"`
	To         string `form:"to"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=500"`
}

type AuditLogResponse struct {
	ID               string          `json:"id"`
	InventoryItemID  string          `json:"inventoryItemId"`
	LotID            *string         `json:"lotId"`
	PreviousQuantity decimal.Decimal `json:"previousQuantity"`
	NewQuantity      decimal.Decimal `json:"newQuantity"`
	ChangeAmount     decimal.Decimal `json:"changeAmount"`
	ActionType       string          `json:"actionType"`
	Reason           *string         `json:"reason"`
	UserID           *string         `json:"userId"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type AuditLogListResponse struct {
	AuditLogs  []AuditLogResponse `json:"auditLogs"`
	Pagination Pagination         `json:"pagination"`
}
