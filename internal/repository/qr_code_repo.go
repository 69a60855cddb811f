package repository

import (
	"context"

	"medident/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QRCodeRepository interface {
	Create(ctx context.Context, qr *model.QRCode) error
	FindByCode(ctx context.Context, code string) (*model.QRCode, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.QRCode, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type qrCodeRepo struct{ db *gorm.DB }

func NewQRCodeRepository(db *gorm.DB) QRCodeRepository { return &qrCodeRepo{db: db} }

func (r *qrCodeRepo) Create(ctx context.Context, qr *model.QRCode) error {
	return translate(r.db.WithContext(ctx).Create(qr).Error)
}

func (r *qrCodeRepo) FindByCode(ctx context.Context, code string) (*model.QRCode, error) {
	var qr model.QRCode
	if err := r.db.WithContext(ctx).Where("code = ? AND is_active = true", code).First(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *qrCodeRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.QRCode, error) {
	var list []model.QRCode
	err := r.db.WithContext(ctx).Where("inventory_item_id = ?", itemID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *qrCodeRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.QRCode{}).Where("id = ?", id).Update("is_active", false).Error
}
