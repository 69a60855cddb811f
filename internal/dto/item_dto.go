package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateItemRequest struct {
	Name                string          `json:"name"                validate:"required,min=2,max=200"`
	CategoryID          *string         `json:"categoryId"          validate:"omitempty,uuid"`
	SKU                 string          `json:"sku"                 validate:"omitempty,max=64"`
	Quantity            decimal.Decimal `json:"quantity"            validate:"min=0"`
	MinimumQuantity     decimal.Decimal `json:"minimumQuantity"     validate:"min=0"`
	Unit                string          `json:"unit"                validate:"omitempty,max=32"`
	Location            *string         `json:"location"`
	Notes               *string         `json:"notes"`
	ExpiryDate          *Date           `json:"expiryDate"`
	RequiresLotTracking bool            `json:"requiresLotTracking"`
}

// UpdateItemRequest edits descriptive fields. Quantity is changed only
// through the quantity endpoint so every change is audited.
type UpdateItemRequest struct {
	Name                *string          `json:"name"            validate:"omitempty,min=2,max=200"`
	CategoryID          *string          `json:"categoryId"      validate:"omitempty,uuid"`
	SKU                 *string          `json:"sku"             validate:"omitempty,min=1,max=64"`
	MinimumQuantity     *decimal.Decimal `json:"minimumQuantity" validate:"omitempty,min=0"`
	Unit                *string          `json:"unit"            validate:"omitempty,max=32"`
	Location            *string          `json:"location"`
	Notes               *string          `json:"notes"`
	ExpiryDate          *Date            `json:"expiryDate"`
	RequiresLotTracking *bool            `json:"requiresLotTracking"`
	IsActive            *bool            `json:"isActive"`
}

// UpdateQuantityRequest drives one ledger adjustment. Quantity is an absolute
// total unless IsAdjustment is set, in which case it is a signed delta.
type UpdateQuantityRequest struct {
	Quantity     *decimal.Decimal `json:"quantity"     validate:"required"`
	IsAdjustment bool             `json:"isAdjustment"`
	Reason       string           `json:"reason"       validate:"max=255"`
	ActionType   string           `json:"actionType"   validate:"omitempty,oneof=manual invoice scan qr csv_import adjustment"`
	LotID        *string          `json:"lotId"        validate:"omitempty,uuid"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ItemFilter struct {
	Category        string `form:"category"`
	Search          string `form:"search"`
	LowStock        bool   `form:"lowStock"`
	Expiring        bool   `form:"expiring"`
	ExpiringDays    int    `form:"expiringDays" validate:"min=0,max=3650"`
	IncludeInactive bool   `form:"includeInactive"`
	Page            int    `form:"page,default=1"   validate:"min=1"`
	Limit           int    `form:"limit,default=20" validate:"min=1,max=100"`
	SortBy          string `form:"sortBy,default=name"`
	SortOrder       string `form:"sortOrder,default=asc" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	SKU                 string          `json:"sku"`
	CategoryID          *string         `json:"categoryId"`
	Category            *string         `json:"category"`
	Quantity            decimal.Decimal `json:"quantity"`
	MinimumQuantity     decimal.Decimal `json:"minimumQuantity"`
	Unit                string          `json:"unit"`
	Location            *string         `json:"location"`
	Notes               *string         `json:"notes"`
	ExpiryDate          *Date           `json:"expiryDate"`
	RequiresLotTracking bool            `json:"requiresLotTracking"`
	IsActive            bool            `json:"isActive"`
	LowStock            bool            `json:"lowStock"`
	Lots                []LotResponse   `json:"lots,omitempty"`
	CreatedBy           *string         `json:"createdBy"`
	UpdatedBy           *string         `json:"updatedBy"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type ItemListResponse struct {
	Items      []ItemResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// QuantityUpdateResponse is the refreshed item plus the audit entry written.
type QuantityUpdateResponse struct {
	Item     ItemResponse     `json:"item"`
	AuditLog AuditLogResponse `json:"auditLog"`
}
