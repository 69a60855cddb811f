package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	QRTypePermanent = "permanent"
	QRTypeLot       = "lot"
)

// QRCode is a printable label pointing at an item, or at one lot of it.
type QRCode struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InventoryItemID uuid.UUID  `gorm:"type:uuid;not null;index"`
	LotID           *uuid.UUID `gorm:"type:uuid"`
	Code            string     `gorm:"uniqueIndex;not null"`
	Type            string     `gorm:"type:varchar(20);not null;default:'permanent'"`
	IsActive        bool       `gorm:"not null;default:true"`
	CreatedBy       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (QRCode) TableName() string { return "qr_codes" }
