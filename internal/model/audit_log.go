package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Audit action types. The set is fixed and mirrored by the
// inventory_action_type enum in the schema.
const (
	ActionManual     = "manual"
	ActionInvoice    = "invoice"
	ActionScan       = "scan"
	ActionQR         = "qr"
	ActionCSVImport  = "csv_import"
	ActionAdjustment = "adjustment"
)

// ActionTypes lists every accepted audit action type.
var ActionTypes = []string{ActionManual, ActionInvoice, ActionScan, ActionQR, ActionCSVImport, ActionAdjustment}

// AuditLogEntry is an immutable record of one quantity change.
// Rows are inserted by the ledger and never updated or deleted; InventoryItemID
// carries no foreign key so history survives item deletion.
type AuditLogEntry struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InventoryItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID            *uuid.UUID      `gorm:"type:uuid"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	NewQuantity      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ChangeAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ActionType       string          `gorm:"type:inventory_action_type;not null;default:'manual'"`
	Reason           *string
	UserID           *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
}

func (AuditLogEntry) TableName() string { return "inventory_audit_logs" }
