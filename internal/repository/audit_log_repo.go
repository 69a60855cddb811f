package repository

import (
	"context"
	"time"

	"medident/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogFilter defines filters for listing audit entries.
type AuditLogFilter struct {
	ItemID     *uuid.UUID
	UserID     *uuid.UUID
	ActionType string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// AuditLogRepository is read-only: entries are written by LedgerStore.
type AuditLogRepository interface {
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLogEntry, int64, error)
}

type auditLogRepo struct{ db *gorm.DB }

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository { return &auditLogRepo{db: db} }

func (r *auditLogRepo) List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLogEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLogEntry{})
	if filter.ItemID != nil {
		q = q.Where("inventory_item_id = ?", *filter.ItemID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.ActionType != "" {
		q = q.Where("action_type = ?", filter.ActionType)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var entries []model.AuditLogEntry
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}
